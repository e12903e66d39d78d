// Package stores opens the colony store selected by configuration.
package stores

import (
	"context"
	"fmt"
	"log/slog"

	"colony-server/internal/colony"
	"colony-server/internal/colony/memstore"
	"colony-server/internal/colony/migrations"
	"colony-server/internal/colony/redisstore"
	"colony-server/internal/colony/sqlitestore"
	"colony-server/internal/shared/config"
	"colony-server/internal/shared/database"
	"colony-server/internal/shared/redis"
)

// Store is what the server needs from a backend: the conditional-write
// contract plus a health check.
type Store interface {
	colony.Store
	colony.Pinger
}

// Open connects the backend named by cfg.Claims.Store. The returned close
// function releases its connections and is never nil.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Store, func() error, error) {
	log := logger.With("component", "stores", "operation", "open", "backend", cfg.Claims.Store)

	switch cfg.Claims.Store {
	case "postgres":
		db, err := database.Connect(cfg.Database, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := database.RunMigrations(ctx, db.DB, migrations.Postgres(), database.DialectPostgres, logger); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("Using postgres colony store")
		return colony.NewRepository(db, logger), db.Close, nil

	case "sqlite":
		store, err := sqlitestore.Open(ctx, cfg.SQLite.Path, logger)
		if err != nil {
			return nil, nil, err
		}
		log.Info("Using sqlite colony store", "path", cfg.SQLite.Path)
		return store, store.Close, nil

	case "redis":
		client, err := redis.Connect(cfg.Redis, logger)
		if err != nil {
			return nil, nil, err
		}
		if client == nil {
			return nil, nil, fmt.Errorf("redis store selected but redis is disabled")
		}
		log.Info("Using redis colony store", "prefix", cfg.Redis.KeyPrefix)
		return redisstore.New(client.Client, cfg.Redis.KeyPrefix, logger), client.Close, nil

	case "memory":
		log.Warn("Using in-memory colony store; claims are lost on restart")
		return colony.NewCompareAndSetStore(memstore.New(), logger), func() error { return nil }, nil

	default:
		return nil, nil, fmt.Errorf("unknown claim store %q", cfg.Claims.Store)
	}
}
