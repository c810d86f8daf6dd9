package discord

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/Jacobbrewer1/ticketwolf/pkg/tickets"
	"github.com/stretchr/testify/require"
)

func TestOverwrites(t *testing.T) {
	o := overwrites(&tickets.ChannelSpec{GuildID: "g1", OpenerID: "u1", StaffRoleID: "r1"})
	require.Len(t, o, 3)

	require.Equal(t, "g1", o[0].ID)
	require.Equal(t, int64(discordgo.PermissionViewChannel), o[0].Deny)

	require.Equal(t, "u1", o[1].ID)
	require.Equal(t, discordgo.PermissionOverwriteTypeMember, o[1].Type)
	require.NotZero(t, o[1].Allow&discordgo.PermissionViewChannel)

	require.Equal(t, "r1", o[2].ID)
	require.Equal(t, discordgo.PermissionOverwriteTypeRole, o[2].Type)

	o = overwrites(&tickets.ChannelSpec{GuildID: "g1", OpenerID: "u1"})
	require.Len(t, o, 2)
}

func TestToMessageSend(t *testing.T) {
	send := toMessageSend(&tickets.Message{
		Content:     "<@u1>",
		Title:       "Robux",
		Description: "Welcome",
		Fields:      []*tickets.Field{{Name: "Type", Value: "Robux", Inline: true}},
		Color:       0x00ff00,
		Controls:    true,
		Attachment:  &tickets.Attachment{Name: "ticket-1-transcript.txt", ContentType: "text/plain", Data: []byte("log")},
	})

	require.Equal(t, "<@u1>", send.Content)
	require.Len(t, send.Embeds, 1)
	require.Equal(t, "Robux", send.Embeds[0].Title)
	require.Len(t, send.Embeds[0].Fields, 1)
	require.Len(t, send.Components, 1)

	require.Len(t, send.Files, 1)
	require.Equal(t, "ticket-1-transcript.txt", send.Files[0].Name)
	data, err := io.ReadAll(send.Files[0].Reader)
	require.NoError(t, err)
	require.Equal(t, "log", string(data))

	plain := toMessageSend(&tickets.Message{Content: "hello"})
	require.Empty(t, plain.Embeds)
	require.Empty(t, plain.Components)
	require.Empty(t, plain.Files)
}

func TestToHistory(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	history := toHistory([]*discordgo.Message{
		{ID: "3", Content: "third", Timestamp: t0.Add(2 * time.Second), Author: &discordgo.User{ID: "u2", Username: "staff"}},
		{ID: "2", Content: "second", Timestamp: t0.Add(time.Second), Attachments: []*discordgo.MessageAttachment{{URL: "https://cdn/a.png"}}},
		{ID: "1", Content: "first", Timestamp: t0, Author: &discordgo.User{ID: "u1", Username: "alice"}},
	})

	require.Len(t, history, 3)
	require.Equal(t, "first", history[0].Content)
	require.Equal(t, "alice", history[0].AuthorName)
	require.Equal(t, []string{"https://cdn/a.png"}, history[1].Attachments)
	require.Empty(t, history[1].AuthorID)
	require.Equal(t, "u2", history[2].AuthorID)
}

func TestMapError(t *testing.T) {
	unknown := &discordgo.RESTError{
		Message: &discordgo.APIErrorMessage{Code: discordgo.ErrCodeUnknownChannel},
	}
	require.ErrorIs(t, mapError(unknown), tickets.ErrChannelGone)
	require.ErrorIs(t, mapError(fmt.Errorf("wrapped: %w", unknown)), tickets.ErrChannelGone)

	notFound := &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusNotFound}}
	require.ErrorIs(t, mapError(notFound), tickets.ErrChannelGone)

	forbidden := &discordgo.RESTError{
		Message:  &discordgo.APIErrorMessage{Code: discordgo.ErrCodeMissingAccess},
		Response: &http.Response{StatusCode: http.StatusForbidden},
	}
	require.False(t, errors.Is(mapError(forbidden), tickets.ErrChannelGone))

	other := errors.New("boom")
	require.Equal(t, other, mapError(other))
}
