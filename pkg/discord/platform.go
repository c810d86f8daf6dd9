// Package discord adapts a discordgo session to the ticket platform capabilities.
package discord

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/Jacobbrewer1/ticketwolf/pkg/tickets"
)

const (
	// ClaimTicketButtonID is the custom ID of the claim button.
	ClaimTicketButtonID = "claim_ticket_button"

	// CloseTicketButtonID is the custom ID of the close button.
	CloseTicketButtonID = "close_ticket_button"

	// ClaimEmoji is shown on the claim button. (Ticket)
	ClaimEmoji = "\U0001F3AB"

	// CloseEmoji is shown on the close button. (Padlock)
	CloseEmoji = "\U0001F510"

	// maxHistoryPage is the most messages one history request may return.
	maxHistoryPage = 100
)

// memberAllow is granted to the opener and the staff role on a ticket channel.
const memberAllow = discordgo.PermissionViewChannel |
	discordgo.PermissionSendMessages |
	discordgo.PermissionReadMessageHistory |
	discordgo.PermissionAttachFiles |
	discordgo.PermissionEmbedLinks

// Platform implements tickets.Platform on a discord session.
type Platform struct {
	s *discordgo.Session
}

// NewPlatform creates a new discord platform.
func NewPlatform(s *discordgo.Session) *Platform {
	return &Platform{s: s}
}

func (p *Platform) CreateChannel(ctx context.Context, spec *tickets.ChannelSpec) (*tickets.Channel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ch, err := p.s.GuildChannelCreateComplex(spec.GuildID, discordgo.GuildChannelCreateData{
		Name:                 spec.Name,
		Type:                 discordgo.ChannelTypeGuildText,
		Topic:                spec.Topic,
		ParentID:             spec.ParentID,
		PermissionOverwrites: overwrites(spec),
	})
	if err != nil {
		return nil, mapError(err)
	}
	return toChannel(ch), nil
}

// overwrites hides the channel from @everyone and opens it to the opener and the staff role.
func overwrites(spec *tickets.ChannelSpec) []*discordgo.PermissionOverwrite {
	o := []*discordgo.PermissionOverwrite{
		{
			// The @everyone role shares the ID of the guild.
			ID:   spec.GuildID,
			Type: discordgo.PermissionOverwriteTypeRole,
			Deny: discordgo.PermissionViewChannel,
		},
		{
			ID:    spec.OpenerID,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: memberAllow,
			Deny:  discordgo.PermissionMentionEveryone,
		},
	}
	if spec.StaffRoleID != "" {
		o = append(o, &discordgo.PermissionOverwrite{
			ID:    spec.StaffRoleID,
			Type:  discordgo.PermissionOverwriteTypeRole,
			Allow: memberAllow | discordgo.PermissionManageMessages,
		})
	}
	return o
}

func (p *Platform) Channel(ctx context.Context, channelID string) (*tickets.Channel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ch, err := p.s.Channel(channelID)
	if err != nil {
		return nil, mapError(err)
	}
	return toChannel(ch), nil
}

func (p *Platform) GuildChannels(ctx context.Context, guildID string) ([]*tickets.Channel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	chs, err := p.s.GuildChannels(guildID)
	if err != nil {
		return nil, mapError(err)
	}

	list := make([]*tickets.Channel, 0, len(chs))
	for _, ch := range chs {
		list = append(list, toChannel(ch))
	}
	return list, nil
}

func (p *Platform) RenameChannel(ctx context.Context, channelID, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := p.s.ChannelEditComplex(channelID, &discordgo.ChannelEdit{Name: name}); err != nil {
		return mapError(err)
	}
	return nil
}

func (p *Platform) RevokeVisibility(ctx context.Context, channelID, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := p.s.ChannelPermissionSet(channelID, userID, discordgo.PermissionOverwriteTypeMember, 0, discordgo.PermissionViewChannel)
	if err != nil {
		return mapError(err)
	}
	return nil
}

func (p *Platform) PostMessage(ctx context.Context, channelID string, msg *tickets.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := p.s.ChannelMessageSendComplex(channelID, toMessageSend(msg)); err != nil {
		return mapError(err)
	}
	return nil
}

func (p *Platform) FetchHistory(ctx context.Context, channelID string, limit int) ([]*tickets.HistoryMessage, error) {
	newestFirst := make([]*discordgo.Message, 0)
	before := ""
	for len(newestFirst) < limit {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := min(maxHistoryPage, limit-len(newestFirst))
		msgs, err := p.s.ChannelMessages(channelID, page, before, "", "")
		if err != nil {
			return nil, mapError(err)
		}
		newestFirst = append(newestFirst, msgs...)
		if len(msgs) < page {
			break
		}
		before = msgs[len(msgs)-1].ID
	}
	return toHistory(newestFirst), nil
}

func (p *Platform) DeleteChannel(ctx context.Context, channelID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := p.s.ChannelDelete(channelID); err != nil {
		return mapError(err)
	}
	return nil
}

// TicketControls returns the claim and close buttons of a ticket.
func TicketControls() []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    fmt.Sprintf("%s Claim", ClaimEmoji),
					Style:    discordgo.PrimaryButton,
					CustomID: ClaimTicketButtonID,
				},
				discordgo.Button{
					Label:    fmt.Sprintf("%s Close", CloseEmoji),
					Style:    discordgo.DangerButton,
					CustomID: CloseTicketButtonID,
				},
			},
		},
	}
}

func toMessageSend(msg *tickets.Message) *discordgo.MessageSend {
	send := &discordgo.MessageSend{
		Content:         msg.Content,
		AllowedMentions: &discordgo.MessageAllowedMentions{Parse: []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeUsers, discordgo.AllowedMentionTypeRoles}},
	}

	if msg.Title != "" || msg.Description != "" || len(msg.Fields) > 0 {
		embed := &discordgo.MessageEmbed{
			Title:       msg.Title,
			Description: msg.Description,
			Color:       msg.Color,
		}
		for _, f := range msg.Fields {
			embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
				Name:   f.Name,
				Value:  f.Value,
				Inline: f.Inline,
			})
		}
		send.Embeds = []*discordgo.MessageEmbed{embed}
	}

	if msg.Controls {
		send.Components = TicketControls()
	}

	if msg.Attachment != nil {
		send.Files = []*discordgo.File{{
			Name:        msg.Attachment.Name,
			ContentType: msg.Attachment.ContentType,
			Reader:      bytes.NewReader(msg.Attachment.Data),
		}}
	}
	return send
}

// toHistory converts a newest first message page to oldest first history.
func toHistory(newestFirst []*discordgo.Message) []*tickets.HistoryMessage {
	history := make([]*tickets.HistoryMessage, 0, len(newestFirst))
	for i := len(newestFirst) - 1; i >= 0; i-- {
		m := newestFirst[i]

		h := &tickets.HistoryMessage{
			ID:        m.ID,
			Content:   m.Content,
			Timestamp: m.Timestamp,
		}
		if m.Author != nil {
			h.AuthorID = m.Author.ID
			h.AuthorName = m.Author.Username
		}
		for _, a := range m.Attachments {
			h.Attachments = append(h.Attachments, a.URL)
		}
		history = append(history, h)
	}
	return history
}

func toChannel(ch *discordgo.Channel) *tickets.Channel {
	return &tickets.Channel{
		ID:       ch.ID,
		GuildID:  ch.GuildID,
		ParentID: ch.ParentID,
		Name:     ch.Name,
		Topic:    ch.Topic,
	}
}

// mapError turns unknown channel responses into tickets.ErrChannelGone.
func mapError(err error) error {
	if IsUnknownChannel(err) {
		return fmt.Errorf("%w: %w", tickets.ErrChannelGone, err)
	}
	return err
}

// IsUnknownChannel reports whether err is a REST response about a missing channel.
func IsUnknownChannel(err error) bool {
	restErr := new(discordgo.RESTError)
	if !errors.As(err, &restErr) {
		return false
	}
	if restErr.Message != nil && restErr.Message.Code == discordgo.ErrCodeUnknownChannel {
		return true
	}
	return restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound
}
