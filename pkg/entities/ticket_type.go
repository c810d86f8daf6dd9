package entities

import "time"

// TicketType is a selectable request category of a guild.
type TicketType struct {
	// GuildID is the ID of the guild the type belongs to.
	GuildID string `json:"guild_id" bson:"guild_id" gorm:"primaryKey;size:32"`

	// Slug is the normalized identifier of the type. It is what tickets reference.
	Slug string `json:"slug" bson:"slug" gorm:"primaryKey;size:50"`

	// Label is the display name shown in the type menu.
	Label string `json:"label" bson:"label"`

	// Description is shown under the label in the type menu.
	Description string `json:"description" bson:"description"`

	// Emoji is the display emoji of the type.
	Emoji string `json:"emoji" bson:"emoji"`

	// Order is the sort position of the type in the menu. Lower comes first.
	Order int `json:"order" bson:"order" gorm:"column:sort_order"`

	// UpdatedAt is the time the type was last written.
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// Display returns the label prefixed with the emoji, if any.
func (t *TicketType) Display() string {
	if t.Emoji == "" {
		return t.Label
	}
	return t.Emoji + " " + t.Label
}

// TableName is the relational table of TicketType.
func (*TicketType) TableName() string {
	return "ticket_types"
}
