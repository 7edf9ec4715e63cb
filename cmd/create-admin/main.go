// Command create-admin bootstraps the first administrator account.
//
// Connection settings and the default seed account come from the same
// environment as the API server; flags override the seed values.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/spec-kit/chatdesk-admin/internal/auth"
	"github.com/spec-kit/chatdesk-admin/internal/config"
	"github.com/spec-kit/chatdesk-admin/internal/persistence"
	"github.com/spec-kit/chatdesk-admin/internal/service"
)

func main() {
	if err := run(); err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	seed := cfg.Seed
	flag.StringVar(&seed.Name, "name", seed.Name, "display name")
	flag.StringVar(&seed.Username, "username", seed.Username, "login username")
	flag.StringVar(&seed.Email, "email", seed.Email, "login email")
	flag.StringVar(&seed.Password, "password", seed.Password, "initial password (defaults to SEED_ADMIN_PASSWORD)")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := persistence.OpenStore(ctx, cfg, zap.NewNop())
	if err != nil {
		return err
	}
	defer store.Close()

	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	cyan.Printf("Store: %s\n", store.Driver)

	accounts := service.NewAccountService(service.AccountDependencies{
		Collections: store.Collections,
		Hasher:      auth.NewPasswordHasher(cfg.Auth.BcryptCost),
	})
	admin, created, err := accounts.EnsureSeedAdmin(ctx, seed)
	if err != nil {
		return err
	}
	if !created {
		yellow.Println("An administrator already exists; nothing to do.")
		return nil
	}

	green.Println("Administrator created")
	fmt.Printf("  id:       %s\n", admin.ID)
	fmt.Printf("  username: %s\n", admin.Username)
	fmt.Printf("  email:    %s\n", admin.Email)
	yellow.Println("Change the password after the first login.")
	return nil
}
