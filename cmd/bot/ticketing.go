package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/Jacobbrewer1/ticketwolf/pkg/dataaccess"
	"github.com/Jacobbrewer1/ticketwolf/pkg/entities"
	"github.com/Jacobbrewer1/ticketwolf/pkg/logging"
	"github.com/Jacobbrewer1/ticketwolf/pkg/messages"
	"github.com/Jacobbrewer1/ticketwolf/pkg/tickets"
)

const (
	// TicketTypeSelectID is the ID of the ticket type menu on the panel.
	TicketTypeSelectID = "ticket_type_select"

	// TicketReasonModalID is the ID prefix of the reason form. The type slug follows a colon.
	TicketReasonModalID = "ticket_reason_modal"

	// TicketReasonInputID is the ID of the reason input of the form.
	TicketReasonInputID = "ticket_reason"
)

const (
	// maxModalTitle is the Discord limit for modal titles and input labels.
	maxModalTitle = 45

	// maxPlaceholder is the Discord limit for input placeholders.
	maxPlaceholder = 100

	// maxSelectOptions is the Discord limit for options of a select menu.
	maxSelectOptions = 25

	// maxEmbedFields is the Discord limit for fields of an embed.
	maxEmbedFields = 25
)

// PanelEmoji is shown in the title of the ticket menu. (Envelope with arrow)
const PanelEmoji = "\U0001F4E9"

const (
	// TicketCmdName is the command for controlling tickets.
	TicketCmdName = "ticket"

	// ClaimCmdName is the sub command for claiming a ticket.
	ClaimCmdName = "claim"

	// CloseCmdName is the sub command for closing a ticket.
	CloseCmdName = "close"

	// RenameCmdName is the sub command for renaming a ticket channel.
	RenameCmdName = "rename"

	// PriorityCmdName is the sub command for setting the priority of a ticket.
	PriorityCmdName = "priority"

	// ListCmdName is the sub command for listing open tickets.
	ListCmdName = "list"
)

// ticketCmd is the command for controlling tickets.
var ticketCmd = &discordgo.ApplicationCommand{
	Name:        TicketCmdName,
	Type:        discordgo.ChatApplicationCommand,
	Description: "Manage the ticket of this channel.",
	Options: []*discordgo.ApplicationCommandOption{
		{
			Name:        ClaimCmdName,
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Description: "Claim the ticket of this channel.",
		},
		{
			Name:        CloseCmdName,
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Description: "Close the ticket of this channel.",
		},
		{
			Name:        RenameCmdName,
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Description: "Rename the ticket channel.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        "name",
					Type:        discordgo.ApplicationCommandOptionString,
					Description: "The new channel name.",
					Required:    true,
					MaxLength:   tickets.MaxChannelNameLength,
				},
			},
		},
		{
			Name:        PriorityCmdName,
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Description: "Set the priority of the ticket.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        "level",
					Type:        discordgo.ApplicationCommandOptionString,
					Description: "The priority level.",
					Required:    true,
					Choices:     priorityChoices(),
				},
			},
		},
		{
			Name:        ListCmdName,
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Description: "List the open tickets of this server.",
		},
	},
}

func priorityChoices() []*discordgo.ApplicationCommandOptionChoice {
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(tickets.Priorities))
	for _, p := range tickets.Priorities {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  string(p),
			Value: string(p),
		})
	}
	return choices
}

func ticketCmdController(a IApp, i *discordgo.InteractionCreate) (commandProcessor, error) {
	sub, _, err := subCommand(i)
	if err != nil {
		return nil, err
	}

	switch sub {
	case ClaimCmdName:
		return claimTicketHandler, nil
	case CloseCmdName:
		return closeTicketHandler, nil
	case RenameCmdName:
		return renameTicketHandler, nil
	case PriorityCmdName:
		return prioritizeTicketHandler, nil
	case ListCmdName:
		return listTicketsHandler, nil
	default:
		return nil, fmt.Errorf("unknown sub command %s", sub)
	}
}

// panelMessage renders the ticket menu for the types of a guild.
func panelMessage(types []*entities.TicketType) (*discordgo.MessageEmbed, []discordgo.MessageComponent) {
	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("%s How can we help?", PanelEmoji),
		Description: "Pick the kind of help you need from the menu below to open a private ticket with our staff.",
		Color:       0x5865f2,
	}

	options := make([]discordgo.SelectMenuOption, 0, min(len(types), maxSelectOptions))
	for _, tt := range types[:min(len(types), maxSelectOptions)] {
		options = append(options, discordgo.SelectMenuOption{
			Label:       truncate(tt.Display(), 100),
			Value:       tt.Slug,
			Description: truncate(tt.Description, 100),
		})
	}

	return embed, []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.SelectMenu{
					MenuType:    discordgo.StringSelectMenu,
					CustomID:    TicketTypeSelectID,
					Placeholder: "Select a ticket type",
					Options:     options,
				},
			},
		},
	}
}

// sendPanel posts the ticket menu to a channel. An existing menu in the same channel is
// edited in place instead.
func sendPanel(ctx context.Context, a IApp, guildID, channelID string) error {
	types, err := a.Repository().Types().ListTypes(ctx, guildID)
	if err != nil {
		return fmt.Errorf("error listing ticket types: %w", err)
	}
	if len(types) == 0 {
		return &tickets.MissingConfigError{Missing: "types"}
	}

	s, err := a.Repository().Settings().GetSettings(ctx, guildID)
	if err != nil {
		return fmt.Errorf("error getting settings: %w", err)
	}

	embed, components := panelMessage(types)
	if s.PanelChannelID == channelID && s.PanelMessageID != "" {
		_, err := a.Session().ChannelMessageEditComplex(&discordgo.MessageEdit{
			ID:         s.PanelMessageID,
			Channel:    channelID,
			Embeds:     []*discordgo.MessageEmbed{embed},
			Components: components,
		})
		if err == nil {
			return nil
		}
		// The old menu was probably deleted, post a new one.
		a.Log().Debug("Error editing ticket menu, posting a new one",
			slog.String(logging.KeyGuild, guildID),
			slog.String(logging.KeyError, err.Error()),
		)
	}

	msg, err := a.Session().ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{embed},
		Components: components,
	})
	if err != nil {
		return fmt.Errorf("%w: error posting ticket menu: %w", tickets.ErrExternalOperationFailed, err)
	}

	if _, err := a.Repository().Settings().UpsertSettings(ctx, guildID, &entities.SettingsPatch{
		PanelChannelID: &channelID,
		PanelMessageID: &msg.ID,
	}); err != nil {
		return fmt.Errorf("error saving ticket menu: %w", err)
	}
	return nil
}

// refreshPanel updates a posted ticket menu after the types changed.
func refreshPanel(ctx context.Context, a IApp, guildID string) {
	l := a.Log().With(slog.String(logging.KeyGuild, guildID))

	s, err := a.Repository().Settings().GetSettings(ctx, guildID)
	if err != nil {
		l.Error("Error getting settings", slog.String(logging.KeyError, err.Error()))
		return
	}
	if s.PanelChannelID == "" {
		return
	}

	if err := sendPanel(ctx, a, guildID, s.PanelChannelID); err != nil {
		if errors.Is(err, tickets.ErrConfigurationMissing) {
			return
		}
		l.Warn("Error refreshing ticket menu", slog.String(logging.KeyError, err.Error()))
	}
}

// ticketTypeSelected opens the reason form for the picked type.
func ticketTypeSelected(ctx context.Context, a IApp, i *discordgo.InteractionCreate) error {
	values := i.MessageComponentData().Values
	if len(values) == 0 {
		return errors.New("no ticket type selected")
	}
	slug := values[0]

	if _, err := a.Repository().Types().GetType(ctx, i.GuildID, slug); errors.Is(err, dataaccess.ErrNotFound) {
		return tickets.ErrUnknownType
	} else if err != nil {
		return fmt.Errorf("error getting ticket type: %w", err)
	}

	s, err := a.Repository().Settings().GetSettings(ctx, i.GuildID)
	if err != nil {
		return fmt.Errorf("error getting settings: %w", err)
	}

	return a.Session().InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: TicketReasonModalID + ":" + slug,
			Title:    truncate(s.ModalTitle, maxModalTitle),
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.TextInput{
							CustomID:    TicketReasonInputID,
							Label:       truncate(s.ModalLabel, maxModalTitle),
							Style:       discordgo.TextInputParagraph,
							Placeholder: truncate(s.ModalPlaceholder, maxPlaceholder),
							Required:    false,
							MaxLength:   tickets.MaxReasonLength,
						},
					},
				},
			},
		},
	})
}

// modalValue returns the value of a text input of a submitted form.
func modalValue(components []discordgo.MessageComponent, customID string) string {
	for _, c := range components {
		var row []discordgo.MessageComponent
		switch r := c.(type) {
		case *discordgo.ActionsRow:
			row = r.Components
		case discordgo.ActionsRow:
			row = r.Components
		}
		for _, rc := range row {
			switch in := rc.(type) {
			case *discordgo.TextInput:
				if in.CustomID == customID {
					return in.Value
				}
			case discordgo.TextInput:
				if in.CustomID == customID {
					return in.Value
				}
			}
		}
	}
	return ""
}

// createTicket opens a ticket from a submitted reason form.
func createTicket(ctx context.Context, a IApp, i *discordgo.InteractionCreate) error {
	data := i.ModalSubmitData()
	_, slug, _ := strings.Cut(data.CustomID, ":")
	reason := strings.TrimSpace(modalValue(data.Components, TicketReasonInputID))

	if err := deferEphemeral(a, i); err != nil {
		return fmt.Errorf("error deferring response: %w", err)
	}

	t, err := a.Engine().Create(ctx, &tickets.CreateRequest{
		GuildID:  i.GuildID,
		UserID:   i.Member.User.ID,
		Username: i.Member.User.Username,
		Type:     slug,
		Reason:   reason,
	})
	if err != nil {
		return err
	}

	return followupEphemeral(a, i, fmt.Sprintf(messages.TicketCreated, t.ChannelID))
}

func claimTicketHandler(ctx context.Context, a IApp, i *discordgo.InteractionCreate) error {
	res, err := a.Engine().Claim(ctx, actionRequest(i))
	if err != nil {
		return err
	}

	if res.Already {
		return respondEphemeral(a, i, messages.TicketAlreadyClaimedBySelf)
	}
	return respondEphemeral(a, i, messages.TicketClaimed)
}

// closeTicketHandler closes the ticket of the channel. Archiving takes a while so the
// interaction is acknowledged first.
func closeTicketHandler(ctx context.Context, a IApp, i *discordgo.InteractionCreate) error {
	t, err := a.Engine().Ticket(ctx, i.GuildID, i.ChannelID)
	if err != nil {
		return err
	}
	s, err := a.Repository().Settings().GetSettings(ctx, i.GuildID)
	if err != nil {
		return fmt.Errorf("error getting settings: %w", err)
	}
	if err := closeAllowed(s, t, i.Member); err != nil {
		return err
	}

	if err := deferEphemeral(a, i); err != nil {
		return fmt.Errorf("error deferring response: %w", err)
	}
	if err := followupEphemeral(a, i, messages.TicketClosing); err != nil {
		a.Log().Debug("Error sending closing notice", slog.String(logging.KeyError, err.Error()))
	}

	res, err := a.Engine().Close(ctx, actionRequest(i))
	if err != nil {
		return err
	}
	if res.AlreadyClosed {
		return tickets.ErrTicketClosed
	}
	return nil
}

// closeAllowed is checked before the closing notice goes out.
func closeAllowed(s *entities.Settings, t *entities.Ticket, m *discordgo.Member) error {
	if !t.IsOpen() {
		return tickets.ErrTicketClosed
	}
	if !tickets.CanClose(s, t, actorFromMember(m)) {
		return tickets.ErrAuthorizationDenied
	}
	return nil
}

func renameTicketHandler(ctx context.Context, a IApp, i *discordgo.InteractionCreate) error {
	_, opts, err := subCommand(i)
	if err != nil {
		return err
	}
	name, _ := optString(opts, "name")

	got, err := a.Engine().Rename(ctx, actionRequest(i), name)
	if err != nil {
		return err
	}
	return respondEphemeral(a, i, fmt.Sprintf(messages.TicketRenamed, got))
}

func prioritizeTicketHandler(ctx context.Context, a IApp, i *discordgo.InteractionCreate) error {
	_, opts, err := subCommand(i)
	if err != nil {
		return err
	}
	level, _ := optString(opts, "level")

	p, ok := tickets.ParsePriority(level)
	if !ok {
		return fmt.Errorf("unknown priority %q", level)
	}

	name, err := a.Engine().Prioritize(ctx, actionRequest(i), p)
	if err != nil {
		return err
	}
	return respondEphemeral(a, i, fmt.Sprintf(messages.TicketPrioritized, p, name))
}

// listTicketsHandler shows the open tickets of the guild to staff.
func listTicketsHandler(ctx context.Context, a IApp, i *discordgo.InteractionCreate) error {
	s, err := a.Repository().Settings().GetSettings(ctx, i.GuildID)
	if err != nil {
		return fmt.Errorf("error getting settings: %w", err)
	}
	if !tickets.IsStaff(s, actorFromMember(i.Member)) {
		return tickets.ErrAuthorizationDenied
	}

	open, err := a.Engine().ListOpen(ctx, i.GuildID)
	if err != nil {
		return fmt.Errorf("error listing open tickets: %w", err)
	}
	if len(open) == 0 {
		return respondEphemeral(a, i, messages.NoOpenTickets)
	}
	return respondEmbed(a, i, openTicketsEmbed(open))
}

func openTicketsEmbed(open []*entities.Ticket) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("Open tickets (%d)", len(open)),
		Color: 0x3498db,
	}

	for _, t := range open[:min(len(open), maxEmbedFields)] {
		claimed := "unclaimed"
		if t.ClaimedBy != "" {
			claimed = fmt.Sprintf("claimed by <@%s>", t.ClaimedBy)
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: fmt.Sprintf("%s (%s)", t.Name(), t.Type),
			Value: fmt.Sprintf("<#%s> opened by <@%s>, %s, last activity <t:%d:R>",
				t.ChannelID, t.UserID, claimed, t.LastActivityAt.Unix()),
		})
	}

	if extra := len(open) - maxEmbedFields; extra > 0 {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("and %d more", extra)}
	}
	return embed
}

// messageActivityHandler keeps ticket channels with ongoing conversation from being auto-closed.
func messageActivityHandler(a IApp) func(s *discordgo.Session, m *discordgo.MessageCreate) {
	return func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		if m.GuildID == "" || m.Author == nil || m.Author.Bot {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		at := m.Timestamp
		if at.IsZero() {
			at = a.Engine().Now()
		}
		if err := a.Engine().Touch(ctx, m.GuildID, m.ChannelID, at); err != nil {
			a.Log().Error("Error recording ticket activity",
				slog.String(logging.KeyGuild, m.GuildID),
				slog.String(logging.KeyChannel, m.ChannelID),
				slog.String(logging.KeyError, err.Error()),
			)
		}
	}
}
