package main

import (
	"fmt"
	"log/slog"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/Jacobbrewer1/ticketwolf/pkg/logging"
	"github.com/Jacobbrewer1/ticketwolf/pkg/tickets"
)

// managerPermissions are the permissions that allow a member to configure the bot.
const managerPermissions = discordgo.PermissionAdministrator | discordgo.PermissionManageServer

func respondEphemeral(a IApp, i *discordgo.InteractionCreate, content string) error {
	return a.Session().InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

func respondEmbed(a IApp, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) error {
	return a.Session().InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  discordgo.MessageFlagsEphemeral,
		},
	})
}

// deferEphemeral acknowledges an interaction whose work may take longer than the three
// seconds Discord waits for a response.
func deferEphemeral(a IApp, i *discordgo.InteractionCreate) error {
	return a.Session().InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
		},
	})
}

func followupEphemeral(a IApp, i *discordgo.InteractionCreate, content string) error {
	_, err := a.Session().FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
	return err
}

// reply answers an interaction whether or not it has been acknowledged already.
func reply(a IApp, l *slog.Logger, i *discordgo.InteractionCreate, content string) {
	if err := respondEphemeral(a, i, content); err == nil {
		return
	}
	if err := followupEphemeral(a, i, content); err != nil {
		l.Error("Error responding to interaction", slog.String(logging.KeyError, err.Error()))
	}
}

// isManager reports whether the member may configure the bot.
func isManager(m *discordgo.Member) bool {
	return m != nil && m.Permissions&managerPermissions != 0
}

// actorFromMember builds the engine actor of an interaction.
func actorFromMember(m *discordgo.Member) tickets.Actor {
	return tickets.Actor{
		ID:    m.User.ID,
		Roles: m.Roles,
		Admin: isManager(m),
	}
}

func actionRequest(i *discordgo.InteractionCreate) *tickets.ActionRequest {
	return &tickets.ActionRequest{
		GuildID:   i.GuildID,
		ChannelID: i.ChannelID,
		Actor:     actorFromMember(i.Member),
	}
}

// subCommand returns the sub command of a slash command and its options by name.
func subCommand(i *discordgo.InteractionCreate) (string, map[string]*discordgo.ApplicationCommandInteractionDataOption, error) {
	data := i.ApplicationCommandData()
	if len(data.Options) == 0 {
		return "", nil, fmt.Errorf("command %s has no sub command", data.Name)
	}
	sub := data.Options[0]
	return sub.Name, optionMap(sub.Options), nil
}

func optionMap(opts []*discordgo.ApplicationCommandInteractionDataOption) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(opts))
	for _, opt := range opts {
		m[opt.Name] = opt
	}
	return m
}

func optString(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) (string, bool) {
	opt, ok := opts[name]
	if !ok {
		return "", false
	}
	return opt.StringValue(), true
}

func optInt(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) (int, bool) {
	opt, ok := opts[name]
	if !ok {
		return 0, false
	}
	return int(opt.IntValue()), true
}

// optID returns the ID of a channel or role option.
func optID(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) (string, bool) {
	opt, ok := opts[name]
	if !ok {
		return "", false
	}
	id, ok := opt.Value.(string)
	return id, ok
}

// clamp bounds v to [lo, hi].
func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
