package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Jacobbrewer1/ticketwolf/pkg/dataaccess"
	"github.com/Jacobbrewer1/ticketwolf/pkg/dataaccess/connection"
	"github.com/Jacobbrewer1/ticketwolf/pkg/dataaccess/relational"
	"github.com/Jacobbrewer1/ticketwolf/pkg/locks"
	"github.com/redis/go-redis/v9"
)

// openRepository connects to the store selected by the configuration.
func openRepository(ctx context.Context, l *slog.Logger, cfg *Config) (dataaccess.Repository, error) {
	switch cfg.StoreDriver {
	case StoreDriverMongo:
		conn := &connection.MongoDB{ConnectionString: cfg.MongoURI}
		client, err := conn.Connect(ctx)
		if err != nil {
			return nil, fmt.Errorf("error connecting to MongoDB: %w", err)
		}
		return dataaccess.NewMongoRepository(l, client, cfg.MongoDatabase), nil
	case relational.DialectPostgres, relational.DialectSQLite:
		repo, err := relational.Open(l, cfg.StoreDriver, cfg.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("error opening %s store: %w", cfg.StoreDriver, err)
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// openLocker returns a Redis backed locker when a Redis URL is configured so that several
// replicas share creation locks. A single process falls back to in-memory locks.
func openLocker(ctx context.Context, l *slog.Logger, cfg *Config) (locks.Locker, *redis.Client, error) {
	if cfg.RedisURL == "" {
		l.Info("No Redis configured, using in-memory locks")
		return locks.NewMemory(), nil, nil
	}

	client, err := locks.Connect(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	return locks.NewRedis(l, client), client, nil
}
