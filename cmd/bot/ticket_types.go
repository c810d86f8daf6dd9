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
	// ticketTypeCmdName is the command for managing ticket types.
	ticketTypeCmdName = "ticket-type"

	ticketTypeAddCmdName    = "add"
	ticketTypeRemoveCmdName = "remove"
	ticketTypeListCmdName   = "list"
)

// ticketTypeCmd is the command for managing ticket types.
var ticketTypeCmd = &discordgo.ApplicationCommand{
	Name:                     ticketTypeCmdName,
	Type:                     discordgo.ChatApplicationCommand,
	Description:              "Manage the ticket types of this server.",
	DefaultMemberPermissions: &manageServer,
	Options: []*discordgo.ApplicationCommandOption{
		{
			Name:        ticketTypeAddCmdName,
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Description: "Add a ticket type or replace one with the same slug.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        "label",
					Type:        discordgo.ApplicationCommandOptionString,
					Description: "The name shown in the ticket menu.",
					Required:    true,
					MaxLength:   80,
				},
				{
					Name:        "description",
					Type:        discordgo.ApplicationCommandOptionString,
					Description: "Shown under the name in the ticket menu.",
					MaxLength:   100,
				},
				{
					Name:        "emoji",
					Type:        discordgo.ApplicationCommandOptionString,
					Description: "Shown in front of the name.",
					MaxLength:   32,
				},
				{
					Name:        "order",
					Type:        discordgo.ApplicationCommandOptionInteger,
					Description: "Position in the menu. Lower comes first.",
				},
				{
					Name:        "slug",
					Type:        discordgo.ApplicationCommandOptionString,
					Description: "Identifier of the type. Derived from the label when left out.",
					MaxLength:   tickets.MaxTypeSlugLength,
				},
			},
		},
		{
			Name:        ticketTypeRemoveCmdName,
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Description: "Remove a ticket type.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        "slug",
					Type:        discordgo.ApplicationCommandOptionString,
					Description: "Identifier of the type.",
					Required:    true,
					MaxLength:   tickets.MaxTypeSlugLength,
				},
			},
		},
		{
			Name:        ticketTypeListCmdName,
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Description: "List the ticket types.",
		},
	},
}

func ticketTypeCmdController(a IApp, i *discordgo.InteractionCreate) (commandProcessor, error) {
	if !isManager(i.Member) {
		return notManager, nil
	}

	sub, _, err := subCommand(i)
	if err != nil {
		return nil, err
	}

	switch sub {
	case ticketTypeAddCmdName:
		return addTicketType, nil
	case ticketTypeRemoveCmdName:
		return removeTicketType, nil
	case ticketTypeListCmdName:
		return listTicketTypes, nil
	default:
		return nil, fmt.Errorf("unknown sub command %s", sub)
	}
}

// ticketTypeFromOptions builds a type from the add options. It reports false when an
// explicit slug is malformed.
func ticketTypeFromOptions(guildID string, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) (*entities.TicketType, bool) {
	label, _ := optString(opts, "label")
	description, _ := optString(opts, "description")
	emoji, _ := optString(opts, "emoji")
	order, _ := optInt(opts, "order")

	tt := &entities.TicketType{
		GuildID:     guildID,
		Label:       strings.TrimSpace(label),
		Description: strings.TrimSpace(description),
		Emoji:       strings.TrimSpace(emoji),
		Order:       order,
	}

	if slug, ok := optString(opts, "slug"); ok && strings.TrimSpace(slug) != "" {
		tt.Slug = strings.ToLower(strings.TrimSpace(slug))
		return tt, tickets.ValidSlug(tt.Slug)
	}
	tt.Slug = tickets.Slugify(tt.Label)
	return tt, true
}

func addTicketType(ctx context.Context, a IApp, i *discordgo.InteractionCreate) error {
	_, opts, err := subCommand(i)
	if err != nil {
		return err
	}

	tt, ok := ticketTypeFromOptions(i.GuildID, opts)
	if !ok {
		return respondEphemeral(a, i, messages.TypeInvalidSlug)
	}

	if err := a.Repository().Types().UpsertType(ctx, tt); err != nil {
		return fmt.Errorf("error saving ticket type: %w", err)
	}

	refreshPanel(ctx, a, i.GuildID)
	return respondEphemeral(a, i, fmt.Sprintf(messages.TypeSaved, tt.Display(), tt.Slug))
}

func removeTicketType(ctx context.Context, a IApp, i *discordgo.InteractionCreate) error {
	_, opts, err := subCommand(i)
	if err != nil {
		return err
	}
	slug, _ := optString(opts, "slug")
	slug = strings.ToLower(strings.TrimSpace(slug))

	deleted, err := a.Repository().Types().DeleteType(ctx, i.GuildID, slug)
	if err != nil {
		return fmt.Errorf("error deleting ticket type: %w", err)
	}
	if !deleted {
		return respondEphemeral(a, i, fmt.Sprintf(messages.TypeNotFound, slug))
	}

	refreshPanel(ctx, a, i.GuildID)
	return respondEphemeral(a, i, fmt.Sprintf(messages.TypeRemoved, slug))
}

func listTicketTypes(ctx context.Context, a IApp, i *discordgo.InteractionCreate) error {
	types, err := a.Repository().Types().ListTypes(ctx, i.GuildID)
	if err != nil {
		return fmt.Errorf("error listing ticket types: %w", err)
	}
	if len(types) == 0 {
		return respondEphemeral(a, i, messages.ErrMissingTypes)
	}

	lines := make([]string, 0, len(types))
	for _, tt := range types {
		line := fmt.Sprintf("%d. %s (`%s`)", tt.Order, tt.Display(), tt.Slug)
		if tt.Description != "" {
			line += " " + tt.Description
		}
		lines = append(lines, line)
	}

	return respondEmbed(a, i, &discordgo.MessageEmbed{
		Title:       "Ticket types",
		Description: truncate(strings.Join(lines, "\n"), 4096),
		Color:       0x5865f2,
	})
}
