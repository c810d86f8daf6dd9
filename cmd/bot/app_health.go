package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alexliesenfeld/health"
)

func (a *App) healthCheck() Controller {
	opts := []health.CheckerOption{
		// Set a TTL of 1 second for the results of the checks.
		health.WithCacheDuration(1 * time.Second),

		// Set a timeout of 2 seconds for the checks.
		health.WithTimeout(2 * time.Second),

		// Monitor the health of the ticket store.
		health.WithCheck(health.Check{
			Name: "Store",
			Check: func(ctx context.Context) error {
				if err := a.repo.Ping(ctx); err != nil {
					return fmt.Errorf("failed to ping %s store: %w", a.cfg.StoreDriver, err)
				}
				return nil
			},
			Timeout:        2 * time.Second,
			StatusListener: a.statusListener,
		}),

		// Monitor the health of the Discord API.
		health.WithPeriodicCheck(15*time.Second, 5*time.Second, health.Check{
			Name: "Discord_API",
			Check: func(ctx context.Context) error {
				if _, err := a.Session().GatewayBot(); err != nil {
					return fmt.Errorf("failed to ping Discord API: %w", err)
				}
				return nil
			},
			Timeout:        3 * time.Second,
			StatusListener: a.statusListener,
		}),
	}

	if a.redis != nil {
		opts = append(opts, health.WithCheck(health.Check{
			Name: "Redis",
			Check: func(ctx context.Context) error {
				if err := a.redis.Ping(ctx).Err(); err != nil {
					return fmt.Errorf("failed to ping Redis: %w", err)
				}
				return nil
			},
			Timeout:        2 * time.Second,
			StatusListener: a.statusListener,
		}))
	}

	return health.NewHandler(health.NewChecker(opts...)).ServeHTTP
}

func (a *App) statusListener(_ context.Context, name string, state health.CheckState) {
	a.Log().Info("Health check status changed",
		slog.String("name", name),
		slog.String("state", string(state.Status)),
	)
}
