package persistence

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/chatdesk-admin/internal/config"
	"github.com/spec-kit/chatdesk-admin/internal/repository"
)

// Store is the document store selected by STORE_DRIVER.
type Store struct {
	Driver      string
	Collections repository.Collections
	// Pinger is nil for the memory driver.
	Pinger interface {
		Ping(ctx context.Context) error
	}
	close func()
}

// OpenStore connects the configured backend and prepares its collections.
// Postgres migrations run here when enabled.
func OpenStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Store, error) {
	timeout := cfg.Store.OperationTimeout

	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		pg, err := NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if cfg.Postgres.RunMigrations {
			if err := RunMigrations(ctx, pg.Pool, logger); err != nil {
				pg.Close()
				return nil, fmt.Errorf("run migrations: %w", err)
			}
		}
		return &Store{
			Driver:      cfg.Store.Driver,
			Collections: repository.NewPostgresCollections(pg.Pool, timeout),
			Pinger:      pg,
			close:       pg.Close,
		}, nil

	case config.StoreDriverMongo:
		m, err := NewMongo(ctx, cfg.Mongo, logger)
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		colls, err := repository.NewMongoCollections(ctx, m.Database, timeout)
		if err != nil {
			m.Close()
			return nil, fmt.Errorf("prepare mongo collections: %w", err)
		}
		return &Store{Driver: cfg.Store.Driver, Collections: colls, Pinger: m, close: m.Close}, nil

	case config.StoreDriverMemory:
		logger.Warn("using in-memory store; data is lost on restart")
		return &Store{Driver: cfg.Store.Driver, Collections: repository.NewMemoryCollections(), close: func() {}}, nil
	}
	return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
}

// Close releases the backend connection.
func (s *Store) Close() {
	if s != nil && s.close != nil {
		s.close()
	}
}
