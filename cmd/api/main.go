package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/chatdesk-admin/internal/api/http"
	"github.com/spec-kit/chatdesk-admin/internal/api/http/handlers"
	"github.com/spec-kit/chatdesk-admin/internal/auth"
	"github.com/spec-kit/chatdesk-admin/internal/config"
	"github.com/spec-kit/chatdesk-admin/internal/domain"
	"github.com/spec-kit/chatdesk-admin/internal/events"
	"github.com/spec-kit/chatdesk-admin/internal/observability"
	"github.com/spec-kit/chatdesk-admin/internal/persistence"
	"github.com/spec-kit/chatdesk-admin/internal/service"
	"github.com/spec-kit/chatdesk-admin/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := persistence.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer store.Close()

	metrics := observability.NewMetrics()
	checks := []handlers.DependencyCheck{}
	if store.Pinger != nil {
		checks = append(checks, handlers.DependencyCheck{Name: store.Driver, Pinger: store.Pinger})
	}

	var sink events.Sink
	switch cfg.Events.Sink {
	case config.EventSinkRedis:
		redis := persistence.NewRedis(ctx, cfg.Redis, logger)
		defer redis.Close()
		checks = append(checks, handlers.DependencyCheck{Name: "redis", Pinger: redis})
		sink = events.NewRedisSink(redis, cfg.Events.RedisChannel)
	case config.EventSinkAMQP:
		sink = events.NewAMQPSink(cfg.Events.AMQPURL, cfg.Events.AMQPQueue)
	default:
		sink = events.NewLogSink(logger)
	}

	dispatcher := events.NewInMemoryDispatcher()
	feedWorker := worker.NewChangeFeedWorker(sink, cfg.Events.BufferSize, logger, metrics)
	feed := service.NewChangeFeedService(dispatcher, feedWorker, logger)
	worker.StartChangeFeedWorker(ctx, feedWorker, feed)

	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
	colls := store.Collections

	authService := service.NewAuthService(service.AuthDependencies{
		Accounts: colls.Accounts,
		Hasher:   hasher,
		Tokens:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.App.Name, cfg.Auth.AccessTokenTTLMinutes),
	})
	accountService := service.NewAccountService(service.AccountDependencies{
		Collections: colls,
		Hasher:      hasher,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	teamService := service.NewTeamService(service.TeamDependencies{Collections: colls, Dispatcher: dispatcher, Logger: logger})
	flowService := service.NewFlowService(service.FlowDependencies{Collections: colls, Dispatcher: dispatcher, Logger: logger})
	channelService := service.NewChannelService(service.ChannelDependencies{
		Collections: colls,
		Dispatcher:  dispatcher,
		Logger:      logger,
		PublicURL:   cfg.App.PublicURL,
	})

	if _, _, err := accountService.EnsureSeedAdmin(ctx, cfg.Seed); err != nil {
		logger.Warn("seed admin not created", zap.Error(err))
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, httptransport.MiddlewareConfig{
		Logger:         logger,
		Metrics:        metrics,
		RequestTimeout: cfg.App.RequestTimeout(),
		CORSOrigins:    cfg.App.CORSOrigins,
	})
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, metrics, checks...),
		Auth:           handlers.NewAuthHandler(authService),
		Admins:         handlers.NewAccountsHandler(accountService, domain.RoleAdmin),
		Agents:         handlers.NewAccountsHandler(accountService, domain.RoleAgent),
		Teams:          handlers.NewTeamsHandler(teamService),
		Flows:          handlers.NewFlowsHandler(flowService),
		Channels:       handlers.NewChannelsHandler(channelService),
		AuthMiddleware: auth.NewAuthMiddleware(authService),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.Shutdown(); err != nil {
		logger.Warn("fiber shutdown", zap.Error(err))
	}
	cancel()
	feedWorker.Stop()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
