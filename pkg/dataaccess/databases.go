package dataaccess

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/Jacobbrewer1/ticketwolf/pkg/entities"
)

// DefaultMongoDatabase is the database used when none is configured.
const DefaultMongoDatabase = "ticketwolf"

var (
	// ErrNotFound is returned when a lookup matches nothing.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when a write violates a unique key.
	ErrDuplicate = errors.New("duplicate key")
)

// Repository groups the data access layers of one storage backend.
type Repository interface {
	// Settings returns the settings store.
	Settings() SettingsDal

	// Types returns the ticket type registry.
	Types() TypeDal

	// Tickets returns the ticket ledger.
	Tickets() TicketDal

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Migrate creates the tables, collections and indexes the layers rely on.
	Migrate(ctx context.Context) error

	// Close releases the connection pool.
	Close(ctx context.Context) error
}

// SettingsDal is the per guild settings store.
type SettingsDal interface {
	// GetSettings returns the settings of a guild, or the defaults when the guild has none.
	GetSettings(ctx context.Context, guildID string) (*entities.Settings, error)

	// UpsertSettings merges the set fields of the patch into the guild's settings. The first
	// write inserts a full row with defaults for everything the patch leaves out.
	UpsertSettings(ctx context.Context, guildID string, patch *entities.SettingsPatch) (*entities.Settings, error)

	// ListAutoClose returns the settings of every guild with auto-close enabled.
	ListAutoClose(ctx context.Context) ([]*entities.Settings, error)
}

// TypeDal is the per guild ticket type registry.
type TypeDal interface {
	// UpsertType inserts or replaces a type by (guild, slug).
	UpsertType(ctx context.Context, t *entities.TicketType) error

	// DeleteType removes a type. It reports false when there was nothing to delete.
	DeleteType(ctx context.Context, guildID, slug string) (bool, error)

	// ListTypes returns the types of a guild sorted by order, then label.
	ListTypes(ctx context.Context, guildID string) ([]*entities.TicketType, error)

	// GetType returns one type or ErrNotFound.
	GetType(ctx context.Context, guildID, slug string) (*entities.TicketType, error)
}

// TicketDal is the ticket ledger.
type TicketDal interface {
	// InsertTicket stores a new ticket and returns its generated ID.
	InsertTicket(ctx context.Context, t *entities.Ticket) (int64, error)

	// GetTicketByChannel returns the ticket bound to a channel or ErrNotFound.
	GetTicketByChannel(ctx context.Context, guildID, channelID string) (*entities.Ticket, error)

	// CountOpen returns the number of open tickets of a user.
	CountOpen(ctx context.Context, guildID, userID string) (int, error)

	// LastOpenedAt returns the open time of the user's most recent ticket regardless of status.
	LastOpenedAt(ctx context.Context, guildID, userID string) (time.Time, bool, error)

	// TouchActivity moves the activity timestamp of an open ticket forward. Missing or
	// closed tickets are ignored.
	TouchActivity(ctx context.Context, guildID, channelID string, at time.Time) error

	// ClaimTicket assigns an open, unclaimed ticket. It reports false when the ticket is
	// missing, closed or already claimed.
	ClaimTicket(ctx context.Context, guildID, channelID, userID string, at time.Time) (bool, error)

	// CloseTicket closes a ticket. Closing a closed or missing ticket is a no-op.
	CloseTicket(ctx context.Context, guildID, channelID string, at time.Time, closedBy string) error

	// ListIdle returns the open tickets whose last activity is at or before the cutoff.
	ListIdle(ctx context.Context, guildID string, cutoff time.Time) ([]*entities.Ticket, error)

	// ListOpen returns every open ticket of a guild.
	ListOpen(ctx context.Context, guildID string) ([]*entities.Ticket, error)
}

// SortTypes orders types by (order, label, slug).
func SortTypes(types []*entities.TicketType) {
	sort.SliceStable(types, func(i, j int) bool {
		a, b := types[i], types[j]
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		if a.Label != b.Label {
			return a.Label < b.Label
		}
		return a.Slug < b.Slug
	})
}
