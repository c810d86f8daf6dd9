package entities

import (
	"fmt"
	"time"
)

// TicketStatus is the lifecycle state of a ticket.
type TicketStatus string

const (
	// TicketStatusOpen is the state of a ticket from creation until it is closed.
	TicketStatusOpen TicketStatus = "open"

	// TicketStatusClosed is the terminal state of a ticket.
	TicketStatusClosed TicketStatus = "closed"
)

// SystemActor is recorded as the closer of tickets closed by the auto-close sweep.
const SystemActor = "system"

// Ticket is a ticket.
type Ticket struct {
	// ID is the number of the ticket. It is unique across all guilds and only ever increases.
	ID int64 `json:"id" bson:"id" gorm:"primaryKey;autoIncrement"`

	// GuildID is the ID of the guild that the ticket is in.
	GuildID string `json:"guild_id" bson:"guild_id" gorm:"size:32;index:idx_tickets_guild_user,priority:1;index:idx_tickets_guild_status,priority:1"`

	// ChannelID is the ID of the channel that the ticket is in.
	ChannelID string `json:"channel_id" bson:"channel_id" gorm:"size:32;uniqueIndex"`

	// UserID is the ID of the user that created the ticket.
	UserID string `json:"user_id" bson:"user_id" gorm:"size:32;index:idx_tickets_guild_user,priority:2"`

	// Username is the username of the user that created the ticket.
	Username string `json:"username" bson:"username"`

	// Type is the slug of the ticket type the ticket was opened with.
	Type string `json:"type" bson:"type" gorm:"size:50"`

	// Reason is the optional text the opener supplied.
	Reason string `json:"reason" bson:"reason"`

	// Status is the lifecycle state of the ticket.
	Status TicketStatus `json:"status" bson:"status" gorm:"size:16;index:idx_tickets_guild_status,priority:2"`

	// ClaimedBy is the ID of the staff member that claimed the ticket.
	ClaimedBy string `json:"claimed_by" bson:"claimed_by" gorm:"size:32"`

	// ClosedBy is the ID of the user that closed the ticket, or SystemActor.
	ClosedBy string `json:"closed_by" bson:"closed_by" gorm:"size:32"`

	// OpenedAt is the time that the ticket was created.
	OpenedAt time.Time `json:"opened_at" bson:"opened_at"`

	// LastActivityAt is the time of the last message in the ticket channel.
	LastActivityAt time.Time `json:"last_activity_at" bson:"last_activity_at" gorm:"index:idx_tickets_guild_status,priority:3"`

	// ClaimedAt is the time the ticket was claimed.
	ClaimedAt *time.Time `json:"claimed_at,omitempty" bson:"claimed_at,omitempty"`

	// ClosedAt is the time the ticket was closed.
	ClosedAt *time.Time `json:"closed_at,omitempty" bson:"closed_at,omitempty"`
}

// IsOpen reports whether the ticket has not been closed yet.
func (t *Ticket) IsOpen() bool {
	return t.Status == TicketStatusOpen
}

// Name returns a short human readable name of the ticket.
func (t *Ticket) Name() string {
	return fmt.Sprintf("#%d-%s", t.ID, t.Username)
}

// TableName is the relational table of Ticket.
func (*Ticket) TableName() string {
	return "tickets"
}
