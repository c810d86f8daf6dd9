package tickets

import (
	"context"
	"time"
)

// Platform is the set of chat platform capabilities the engine needs. Implementations
// return ErrChannelGone (possibly wrapped) when a channel does not exist anymore.
type Platform interface {
	// CreateChannel creates a text channel visible only to the opener and the staff role.
	CreateChannel(ctx context.Context, spec *ChannelSpec) (*Channel, error)

	// Channel returns a channel by ID.
	Channel(ctx context.Context, channelID string) (*Channel, error)

	// GuildChannels returns every channel of a guild.
	GuildChannels(ctx context.Context, guildID string) ([]*Channel, error)

	// RenameChannel changes the name of a channel.
	RenameChannel(ctx context.Context, channelID, name string) error

	// RevokeVisibility removes a member's access to a channel.
	RevokeVisibility(ctx context.Context, channelID, userID string) error

	// PostMessage sends a message to a channel.
	PostMessage(ctx context.Context, channelID string, msg *Message) error

	// FetchHistory returns up to limit of the latest messages of a channel, oldest first.
	FetchHistory(ctx context.Context, channelID string, limit int) ([]*HistoryMessage, error)

	// DeleteChannel removes a channel.
	DeleteChannel(ctx context.Context, channelID string) error
}

// ChannelSpec describes a ticket channel to create.
type ChannelSpec struct {
	GuildID     string
	Name        string
	ParentID    string
	Topic       string
	OpenerID    string
	StaffRoleID string
}

// Channel is a platform channel.
type Channel struct {
	ID       string
	GuildID  string
	ParentID string
	Name     string
	Topic    string
}

// Field is a titled value rendered in a message.
type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Attachment is a file sent along a message.
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// Message is an outgoing message. Title, Description, Fields and Color render as an embed.
type Message struct {
	Content     string
	Title       string
	Description string
	Fields      []*Field
	Color       int

	// Controls adds the claim and close buttons.
	Controls bool

	Attachment *Attachment
}

// HistoryMessage is a message read back from a channel.
type HistoryMessage struct {
	ID          string
	AuthorID    string
	AuthorName  string
	Content     string
	Timestamp   time.Time
	Attachments []string
}
