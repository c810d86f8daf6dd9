package tickets

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Jacobbrewer1/ticketwolf/pkg/dataaccess"
	"github.com/Jacobbrewer1/ticketwolf/pkg/entities"
	"github.com/Jacobbrewer1/ticketwolf/pkg/logging"
)

// Guard decides whether a user may open another ticket. It always reads the live ledger.
type Guard struct {
	l        *slog.Logger
	tickets  dataaccess.TicketDal
	platform Platform
}

// NewGuard creates a new guard.
func NewGuard(l *slog.Logger, tickets dataaccess.TicketDal, platform Platform) *Guard {
	return &Guard{
		l:        l,
		tickets:  tickets,
		platform: platform,
	}
}

// Check runs the cap, cooldown and duplicate-open checks in that order. Rejections are
// *RejectionError values matching ErrConcurrencyRejected.
func (g *Guard) Check(ctx context.Context, s *entities.Settings, userID string, now time.Time) error {
	if s.MaxOpenPerUser > 0 {
		n, err := g.tickets.CountOpen(ctx, s.GuildID, userID)
		if err != nil {
			return fmt.Errorf("error counting open tickets: %w", err)
		}
		if n >= s.MaxOpenPerUser {
			return &RejectionError{Reason: RejectCapExceeded, Limit: s.MaxOpenPerUser}
		}
	}

	if cooldown := s.Cooldown(); cooldown > 0 {
		last, ok, err := g.tickets.LastOpenedAt(ctx, s.GuildID, userID)
		if err != nil {
			return fmt.Errorf("error getting last ticket: %w", err)
		}
		if ok {
			if elapsed := now.Sub(last); elapsed < cooldown {
				return &RejectionError{Reason: RejectCooldown, Remaining: roundUpSeconds(cooldown - elapsed)}
			}
		}
	}

	return g.checkChannels(ctx, s, userID)
}

// checkChannels looks for live channels tagged with the user under the ticket category. It
// catches tickets the ledger no longer counts as open while their channel still exists.
func (g *Guard) checkChannels(ctx context.Context, s *entities.Settings, userID string) error {
	if s.MaxOpenPerUser == 0 || s.CategoryID == "" {
		return nil
	}

	channels, err := g.platform.GuildChannels(ctx, s.GuildID)
	if err != nil {
		g.l.Warn("Error scanning ticket channels",
			slog.String(logging.KeyGuild, s.GuildID),
			slog.String(logging.KeyUser, userID),
			slog.String(logging.KeyError, err.Error()),
		)
		return nil
	}

	var (
		found int
		first string
	)
	for _, c := range channels {
		if c.ParentID != s.CategoryID {
			continue
		}
		if opener, ok := TopicOpener(c.Topic); ok && opener == userID {
			if found == 0 {
				first = c.ID
			}
			found++
		}
	}

	if found >= s.MaxOpenPerUser {
		return &RejectionError{Reason: RejectAlreadyOpen, ChannelID: first}
	}
	return nil
}

func roundUpSeconds(d time.Duration) time.Duration {
	if r := d % time.Second; r != 0 {
		d += time.Second - r
	}
	return d
}
