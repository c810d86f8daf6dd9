package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/Jacobbrewer1/ticketwolf/pkg/entities"
	"github.com/Jacobbrewer1/ticketwolf/pkg/messages"
	"github.com/Jacobbrewer1/ticketwolf/pkg/tickets"
)

const (
	// setupCmdName is the command for all configuration commands.
	setupCmdName = "setup"

	setupCategoryCmdName     = "category"
	setupRoleCmdName         = "role"
	setupLogCmdName          = "log"
	setupLimitsCmdName       = "limits"
	setupNameTemplateCmdName = "name_template"
	setupMessagesCmdName     = "messages"
	setupPanelCmdName        = "panel"
	setupShowCmdName         = "show"
)

// Bounds of the numeric settings. Values outside are clamped.
const (
	maxOpenPerUserLimit = 25
	maxCooldownSeconds  = 7 * 24 * 60 * 60
	maxAutoCloseMinutes = 30 * 24 * 60
	maxMessageLength    = 1000
)

var manageServer int64 = discordgo.PermissionManageServer

// setupCmd is the command for all configuration commands.
var setupCmd = &discordgo.ApplicationCommand{
	Name:                     setupCmdName,
	Type:                     discordgo.ChatApplicationCommand,
	Description:              "Configure ticketing for this server.",
	DefaultMemberPermissions: &manageServer,
	Options: []*discordgo.ApplicationCommandOption{
		{
			Name:        setupCategoryCmdName,
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Description: "Set the category ticket channels are created in.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:         "category",
					Type:         discordgo.ApplicationCommandOptionChannel,
					Description:  "The ticket category.",
					Required:     true,
					ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildCategory},
				},
			},
		},
		{
			Name:        setupRoleCmdName,
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Description: "Set the role that handles tickets.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        "role",
					Type:        discordgo.ApplicationCommandOptionRole,
					Description: "The staff role.",
					Required:    true,
				},
			},
		},
		{
			Name:        setupLogCmdName,
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Description: "Set the channel transcripts are delivered to. Leave empty to turn logging off.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:         "channel",
					Type:         discordgo.ApplicationCommandOptionChannel,
					Description:  "The log channel.",
					ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
				},
			},
		},
		{
			Name:        setupLimitsCmdName,
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Description: "Set the ticket limits.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        "max_open",
					Type:        discordgo.ApplicationCommandOptionInteger,
					Description: "Open tickets per user. 0 is unlimited.",
				},
				{
					Name:        "cooldown_seconds",
					Type:        discordgo.ApplicationCommandOptionInteger,
					Description: "Seconds a user has to wait between two tickets.",
				},
				{
					Name:        "auto_close_minutes",
					Type:        discordgo.ApplicationCommandOptionInteger,
					Description: "Minutes of inactivity after which a ticket is closed. 0 turns it off.",
				},
			},
		},
		{
			Name:        setupNameTemplateCmdName,
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Description: "Set the ticket channel name template.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        "template",
					Type:        discordgo.ApplicationCommandOptionString,
					Description: "Supports {type}, {user} and {id}.",
					Required:    true,
					MaxLength:   tickets.MaxChannelNameLength,
				},
			},
		},
		{
			Name:        setupMessagesCmdName,
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Description: "Customise the texts of the bot.",
			Options: []*discordgo.ApplicationCommandOption{
				messageOption("open", "Posted when a ticket opens. Supports {user}, {type} and {id}.", maxMessageLength),
				messageOption("guide", "Posted under the opening message.", maxMessageLength),
				messageOption("close", "Posted right before a ticket channel is removed.", maxMessageLength),
				messageOption("modal_title", "Title of the reason form.", maxModalTitle),
				messageOption("modal_label", "Label of the reason input.", maxModalTitle),
				messageOption("modal_placeholder", "Placeholder of the reason input.", maxPlaceholder),
			},
		},
		{
			Name:        setupPanelCmdName,
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Description: "Post the ticket menu.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:         "channel",
					Type:         discordgo.ApplicationCommandOptionChannel,
					Description:  "Where to post the menu. Defaults to this channel.",
					ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
				},
			},
		},
		{
			Name:        setupShowCmdName,
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Description: "Show the current configuration.",
		},
	},
}

func messageOption(name, description string, maxLength int) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Name:        name,
		Type:        discordgo.ApplicationCommandOptionString,
		Description: description,
		MaxLength:   maxLength,
	}
}

func setupCmdController(a IApp, i *discordgo.InteractionCreate) (commandProcessor, error) {
	if !isManager(i.Member) {
		return notManager, nil
	}

	sub, _, err := subCommand(i)
	if err != nil {
		return nil, err
	}

	switch sub {
	case setupCategoryCmdName:
		return idSetting("category", func(p *entities.SettingsPatch, id string) { p.CategoryID = &id }), nil
	case setupRoleCmdName:
		return idSetting("role", func(p *entities.SettingsPatch, id string) { p.StaffRoleID = &id }), nil
	case setupLogCmdName:
		return idSetting("channel", func(p *entities.SettingsPatch, id string) { p.LogChannelID = &id }), nil
	case setupLimitsCmdName:
		return setupLimits, nil
	case setupNameTemplateCmdName:
		return setupNameTemplate, nil
	case setupMessagesCmdName:
		return setupMessages, nil
	case setupPanelCmdName:
		return setupPanel, nil
	case setupShowCmdName:
		return setupShow, nil
	default:
		return nil, fmt.Errorf("unknown sub command %s", sub)
	}
}

func notManager(_ context.Context, a IApp, i *discordgo.InteractionCreate) error {
	return respondEphemeral(a, i, messages.ErrUserNotAdmin)
}

// idSetting stores the channel or role of an option. A missing option stores the empty
// ID, which unbinds the setting.
func idSetting(option string, set func(p *entities.SettingsPatch, id string)) commandProcessor {
	return func(ctx context.Context, a IApp, i *discordgo.InteractionCreate) error {
		_, opts, err := subCommand(i)
		if err != nil {
			return err
		}
		id, _ := optID(opts, option)

		patch := new(entities.SettingsPatch)
		set(patch, id)
		return applySettings(ctx, a, i, patch)
	}
}

func applySettings(ctx context.Context, a IApp, i *discordgo.InteractionCreate, patch *entities.SettingsPatch) error {
	if patch.Empty() {
		return respondEphemeral(a, i, messages.SettingsNothingToUpdate)
	}
	if _, err := a.Repository().Settings().UpsertSettings(ctx, i.GuildID, patch); err != nil {
		return fmt.Errorf("error saving settings: %w", err)
	}
	return respondEphemeral(a, i, messages.SettingsUpdated)
}

// limitsPatch builds a patch from the limit options, clamping each into range.
func limitsPatch(opts map[string]*discordgo.ApplicationCommandInteractionDataOption) *entities.SettingsPatch {
	patch := new(entities.SettingsPatch)
	if v, ok := optInt(opts, "max_open"); ok {
		v = clamp(v, 0, maxOpenPerUserLimit)
		patch.MaxOpenPerUser = &v
	}
	if v, ok := optInt(opts, "cooldown_seconds"); ok {
		v = clamp(v, 0, maxCooldownSeconds)
		patch.CooldownSeconds = &v
	}
	if v, ok := optInt(opts, "auto_close_minutes"); ok {
		v = clamp(v, 0, maxAutoCloseMinutes)
		patch.AutoCloseMinutes = &v
	}
	return patch
}

func setupLimits(ctx context.Context, a IApp, i *discordgo.InteractionCreate) error {
	_, opts, err := subCommand(i)
	if err != nil {
		return err
	}
	return applySettings(ctx, a, i, limitsPatch(opts))
}

// validTemplate reports whether a channel name template renders something per ticket.
func validTemplate(template string) bool {
	for _, token := range []string{"{type}", "{user}", "{id}"} {
		if strings.Contains(template, token) {
			return true
		}
	}
	return false
}

func setupNameTemplate(ctx context.Context, a IApp, i *discordgo.InteractionCreate) error {
	_, opts, err := subCommand(i)
	if err != nil {
		return err
	}

	template, _ := optString(opts, "template")
	template = strings.TrimSpace(template)
	if !validTemplate(template) {
		return respondEphemeral(a, i, messages.SettingsTemplateToken)
	}
	return applySettings(ctx, a, i, &entities.SettingsPatch{ChannelNameTemplate: &template})
}

// messagesPatch builds a patch from the text options. Empty values are ignored.
func messagesPatch(opts map[string]*discordgo.ApplicationCommandInteractionDataOption) *entities.SettingsPatch {
	patch := new(entities.SettingsPatch)
	for name, field := range map[string]**string{
		"open":              &patch.OpenMessage,
		"guide":             &patch.GuideMessage,
		"close":             &patch.CloseMessage,
		"modal_title":       &patch.ModalTitle,
		"modal_label":       &patch.ModalLabel,
		"modal_placeholder": &patch.ModalPlaceholder,
	} {
		v, ok := optString(opts, name)
		v = strings.TrimSpace(v)
		if !ok || v == "" {
			continue
		}
		*field = &v
	}
	return patch
}

func setupMessages(ctx context.Context, a IApp, i *discordgo.InteractionCreate) error {
	_, opts, err := subCommand(i)
	if err != nil {
		return err
	}
	return applySettings(ctx, a, i, messagesPatch(opts))
}

func setupPanel(ctx context.Context, a IApp, i *discordgo.InteractionCreate) error {
	_, opts, err := subCommand(i)
	if err != nil {
		return err
	}

	channelID, ok := optID(opts, "channel")
	if !ok || channelID == "" {
		channelID = i.ChannelID
	}

	if err := sendPanel(ctx, a, i.GuildID, channelID); err != nil {
		return err
	}
	return respondEphemeral(a, i, fmt.Sprintf(messages.PanelPosted, channelID))
}

func setupShow(ctx context.Context, a IApp, i *discordgo.InteractionCreate) error {
	s, err := a.Repository().Settings().GetSettings(ctx, i.GuildID)
	if err != nil {
		return fmt.Errorf("error getting settings: %w", err)
	}
	types, err := a.Repository().Types().ListTypes(ctx, i.GuildID)
	if err != nil {
		return fmt.Errorf("error listing ticket types: %w", err)
	}
	return respondEmbed(a, i, settingsEmbed(s, types))
}

func settingsEmbed(s *entities.Settings, types []*entities.TicketType) *discordgo.MessageEmbed {
	mention := func(format, id string) string {
		if id == "" {
			return "not set"
		}
		return fmt.Sprintf(format, id)
	}
	number := func(v int, zero string) string {
		if v == 0 {
			return zero
		}
		return fmt.Sprint(v)
	}

	typeNames := make([]string, 0, len(types))
	for _, tt := range types {
		typeNames = append(typeNames, fmt.Sprintf("%s (`%s`)", tt.Display(), tt.Slug))
	}
	typeList := "none"
	if len(typeNames) > 0 {
		typeList = truncate(strings.Join(typeNames, "\n"), 1024)
	}

	return &discordgo.MessageEmbed{
		Title: "Ticket settings",
		Color: 0x5865f2,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Category", Value: mention("<#%s>", s.CategoryID), Inline: true},
			{Name: "Staff role", Value: mention("<@&%s>", s.StaffRoleID), Inline: true},
			{Name: "Log channel", Value: mention("<#%s>", s.LogChannelID), Inline: true},
			{Name: "Open tickets per user", Value: number(s.MaxOpenPerUser, "unlimited"), Inline: true},
			{Name: "Cooldown (seconds)", Value: number(s.CooldownSeconds, "none"), Inline: true},
			{Name: "Auto-close (minutes)", Value: number(s.AutoCloseMinutes, "off"), Inline: true},
			{Name: "Channel name template", Value: fmt.Sprintf("`%s`", s.ChannelNameTemplate)},
			{Name: "Menu", Value: mention("<#%s>", s.PanelChannelID)},
			{Name: "Ticket types", Value: typeList},
		},
	}
}
