package entities

import (
	"errors"
	"time"
)

const (
	// DefaultMaxOpenPerUser is the number of open tickets a user may hold when nothing is configured.
	DefaultMaxOpenPerUser = 1

	// DefaultChannelNameTemplate is the channel name template used when nothing is configured.
	DefaultChannelNameTemplate = "ticket-{type}-{user}"

	// DefaultOpenMessage is posted at the top of every new ticket channel.
	DefaultOpenMessage = "Thanks for reaching out, {user}. A member of staff will be with you shortly."

	// DefaultGuideMessage tells the opener what to do while they wait.
	DefaultGuideMessage = "Please describe your issue in as much detail as you can. Use the buttons below to close the ticket once you are done."

	// DefaultCloseMessage is posted in the ticket channel right before it is removed.
	DefaultCloseMessage = "This ticket has been closed. The channel will now be deleted."

	// DefaultModalTitle is the title of the reason form.
	DefaultModalTitle = "Open a ticket"

	// DefaultModalLabel is the label of the reason input.
	DefaultModalLabel = "Reason"

	// DefaultModalPlaceholder is the placeholder of the reason input.
	DefaultModalPlaceholder = "Tell us briefly what you need help with"
)

// Settings is the ticketing configuration for a guild.
type Settings struct {
	// GuildID is the ID of the guild.
	GuildID string `json:"guild_id" bson:"guild_id" gorm:"primaryKey;size:32"`

	// CategoryID is the ID of the category that ticket channels are created in.
	CategoryID string `json:"category_id" bson:"category_id" gorm:"size:32"`

	// StaffRoleID is the ID of the role that handles tickets.
	StaffRoleID string `json:"staff_role_id" bson:"staff_role_id" gorm:"size:32"`

	// LogChannelID is the ID of the channel that transcripts are delivered to.
	LogChannelID string `json:"log_channel_id" bson:"log_channel_id" gorm:"size:32"`

	// PanelChannelID is the ID of the channel the ticket type menu was posted in.
	PanelChannelID string `json:"panel_channel_id" bson:"panel_channel_id" gorm:"size:32"`

	// PanelMessageID is the ID of the ticket type menu message.
	PanelMessageID string `json:"panel_message_id" bson:"panel_message_id" gorm:"size:32"`

	// MaxOpenPerUser is the number of open tickets a user may have at once. 0 is unlimited.
	MaxOpenPerUser int `json:"max_open_per_user" bson:"max_open_per_user"`

	// CooldownSeconds is the minimum time between two tickets opened by the same user.
	CooldownSeconds int `json:"cooldown_seconds" bson:"cooldown_seconds"`

	// AutoCloseMinutes is the inactivity after which a ticket is closed automatically. 0 disables it.
	AutoCloseMinutes int `json:"auto_close_minutes" bson:"auto_close_minutes" gorm:"index"`

	// ChannelNameTemplate is the template for ticket channel names. Supports {type}, {user} and {id}.
	ChannelNameTemplate string `json:"channel_name_template" bson:"channel_name_template"`

	OpenMessage      string `json:"open_message" bson:"open_message"`
	GuideMessage     string `json:"guide_message" bson:"guide_message"`
	CloseMessage     string `json:"close_message" bson:"close_message"`
	ModalTitle       string `json:"modal_title" bson:"modal_title"`
	ModalLabel       string `json:"modal_label" bson:"modal_label"`
	ModalPlaceholder string `json:"modal_placeholder" bson:"modal_placeholder"`

	// UpdatedAt is the time of the last administrative change.
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// DefaultSettings returns the settings used for a guild that has never been configured.
func DefaultSettings(guildID string) *Settings {
	return &Settings{
		GuildID:             guildID,
		MaxOpenPerUser:      DefaultMaxOpenPerUser,
		ChannelNameTemplate: DefaultChannelNameTemplate,
		OpenMessage:         DefaultOpenMessage,
		GuideMessage:        DefaultGuideMessage,
		CloseMessage:        DefaultCloseMessage,
		ModalTitle:          DefaultModalTitle,
		ModalLabel:          DefaultModalLabel,
		ModalPlaceholder:    DefaultModalPlaceholder,
	}
}

// Cooldown returns the configured cooldown as a duration.
func (s *Settings) Cooldown() time.Duration {
	return time.Duration(s.CooldownSeconds) * time.Second
}

// AutoCloseAfter returns the configured inactivity threshold. Zero means disabled.
func (s *Settings) AutoCloseAfter() time.Duration {
	return time.Duration(s.AutoCloseMinutes) * time.Minute
}

// SettingsPatch is a partial update of Settings. Nil fields are left untouched.
type SettingsPatch struct {
	CategoryID          *string
	StaffRoleID         *string
	LogChannelID        *string
	PanelChannelID      *string
	PanelMessageID      *string
	MaxOpenPerUser      *int
	CooldownSeconds     *int
	AutoCloseMinutes    *int
	ChannelNameTemplate *string
	OpenMessage         *string
	GuideMessage        *string
	CloseMessage        *string
	ModalTitle          *string
	ModalLabel          *string
	ModalPlaceholder    *string
}

// ErrNegativeSetting is returned when a numeric setting is below zero.
var ErrNegativeSetting = errors.New("numeric settings must not be negative")

// Validate range-checks the numeric fields of the patch.
func (p *SettingsPatch) Validate() error {
	for _, v := range []*int{p.MaxOpenPerUser, p.CooldownSeconds, p.AutoCloseMinutes} {
		if v != nil && *v < 0 {
			return ErrNegativeSetting
		}
	}
	return nil
}

// Apply copies every set field of the patch onto s.
func (p *SettingsPatch) Apply(s *Settings) {
	for k, v := range p.Fields() {
		switch k {
		case "category_id":
			s.CategoryID = v.(string)
		case "staff_role_id":
			s.StaffRoleID = v.(string)
		case "log_channel_id":
			s.LogChannelID = v.(string)
		case "panel_channel_id":
			s.PanelChannelID = v.(string)
		case "panel_message_id":
			s.PanelMessageID = v.(string)
		case "max_open_per_user":
			s.MaxOpenPerUser = v.(int)
		case "cooldown_seconds":
			s.CooldownSeconds = v.(int)
		case "auto_close_minutes":
			s.AutoCloseMinutes = v.(int)
		case "channel_name_template":
			s.ChannelNameTemplate = v.(string)
		case "open_message":
			s.OpenMessage = v.(string)
		case "guide_message":
			s.GuideMessage = v.(string)
		case "close_message":
			s.CloseMessage = v.(string)
		case "modal_title":
			s.ModalTitle = v.(string)
		case "modal_label":
			s.ModalLabel = v.(string)
		case "modal_placeholder":
			s.ModalPlaceholder = v.(string)
		}
	}
}

// Fields returns the set fields keyed by their storage name.
func (p *SettingsPatch) Fields() map[string]any {
	fields := make(map[string]any)
	str := func(k string, v *string) {
		if v != nil {
			fields[k] = *v
		}
	}
	num := func(k string, v *int) {
		if v != nil {
			fields[k] = *v
		}
	}

	str("category_id", p.CategoryID)
	str("staff_role_id", p.StaffRoleID)
	str("log_channel_id", p.LogChannelID)
	str("panel_channel_id", p.PanelChannelID)
	str("panel_message_id", p.PanelMessageID)
	num("max_open_per_user", p.MaxOpenPerUser)
	num("cooldown_seconds", p.CooldownSeconds)
	num("auto_close_minutes", p.AutoCloseMinutes)
	str("channel_name_template", p.ChannelNameTemplate)
	str("open_message", p.OpenMessage)
	str("guide_message", p.GuideMessage)
	str("close_message", p.CloseMessage)
	str("modal_title", p.ModalTitle)
	str("modal_label", p.ModalLabel)
	str("modal_placeholder", p.ModalPlaceholder)
	return fields
}

// Empty reports whether the patch changes nothing.
func (p *SettingsPatch) Empty() bool {
	return len(p.Fields()) == 0
}

// TableName is the relational table of Settings.
func (*Settings) TableName() string {
	return "settings"
}
