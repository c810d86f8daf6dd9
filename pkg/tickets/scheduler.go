package tickets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Jacobbrewer1/ticketwolf/pkg/dataaccess"
	"github.com/Jacobbrewer1/ticketwolf/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

const (
	// DefaultSweepInterval is the time between two auto-close sweeps.
	DefaultSweepInterval = 2 * time.Minute

	// DefaultCloseRate is the number of automatic closes per second.
	DefaultCloseRate = 1.0
)

// AutoCloser periodically closes tickets that have been idle longer than their guild allows.
type AutoCloser struct {
	l        *slog.Logger
	engine   *Engine
	repo     dataaccess.Repository
	interval time.Duration
	limiter  *rate.Limiter

	mu   sync.Mutex
	stop context.CancelFunc
	done chan struct{}
}

// NewAutoCloser creates a new auto-close scheduler. closesPerSecond paces the closes of one
// sweep so a backlog does not trip platform rate limits.
func NewAutoCloser(l *slog.Logger, engine *Engine, repo dataaccess.Repository, interval time.Duration, closesPerSecond float64) *AutoCloser {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	limit := rate.Limit(closesPerSecond)
	if closesPerSecond <= 0 {
		limit = rate.Inf
	}
	return &AutoCloser{
		l:        l,
		engine:   engine,
		repo:     repo,
		interval: interval,
		limiter:  rate.NewLimiter(limit, 1),
	}
}

// Start runs the sweep loop until Stop is called or ctx is done.
func (a *AutoCloser) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stop != nil {
		return errors.New("auto closer already started")
	}

	ctx, a.stop = context.WithCancel(ctx)
	a.done = make(chan struct{})
	go a.run(ctx, a.done)

	a.l.Info("Auto closer started", slog.Duration("interval", a.interval))
	return nil
}

// Stop ends the sweep loop and waits for a running sweep to return.
func (a *AutoCloser) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stop == nil {
		return errors.New("auto closer already stopped or not started")
	}
	a.stop()
	<-a.done

	a.stop = nil
	a.done = nil
	return nil
}

func (a *AutoCloser) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := a.Sweep(ctx, a.engine.Now()); err != nil && !errors.Is(err, context.Canceled) {
				a.l.Error("Error sweeping idle tickets", slog.String(logging.KeyError, err.Error()))
			}
		case <-ctx.Done():
			return
		}
	}
}

// Sweep closes every open ticket whose last activity is at least the guild's auto-close
// threshold before now. It returns the number of tickets closed. Failures on single tickets
// are logged and do not stop the sweep.
func (a *AutoCloser) Sweep(ctx context.Context, now time.Time) (int, error) {
	t := prometheus.NewTimer(SweepDuration)
	defer t.ObserveDuration()

	guilds, err := a.repo.Settings().ListAutoClose(ctx)
	if err != nil {
		return 0, fmt.Errorf("error listing auto-close guilds: %w", err)
	}

	closed := 0
	for _, s := range guilds {
		after := s.AutoCloseAfter()
		if after <= 0 {
			continue
		}

		cutoff := now.Add(-after)
		idle, err := a.repo.Tickets().ListIdle(ctx, s.GuildID, cutoff)
		if err != nil {
			a.l.Error("Error listing idle tickets",
				slog.String(logging.KeyGuild, s.GuildID),
				slog.String(logging.KeyError, err.Error()),
			)
			continue
		}

		for _, tk := range idle {
			if err := a.limiter.Wait(ctx); err != nil {
				return closed, err
			}

			res, err := a.engine.Close(ctx, &ActionRequest{
				GuildID:    tk.GuildID,
				ChannelID:  tk.ChannelID,
				Actor:      SystemActor,
				IdleCutoff: cutoff,
			})
			if err != nil {
				a.l.Error("Error auto-closing ticket",
					slog.String(logging.KeyGuild, tk.GuildID),
					slog.String(logging.KeyChannel, tk.ChannelID),
					slog.Int64(logging.KeyTicket, tk.ID),
					slog.String(logging.KeyError, err.Error()),
				)
				continue
			}
			if !res.AlreadyClosed && !res.StillActive {
				closed++
			}
		}
	}

	if closed > 0 {
		a.l.Info("Auto-closed idle tickets", slog.Int("count", closed))
	}
	return closed, nil
}
