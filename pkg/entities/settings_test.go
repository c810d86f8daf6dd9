package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T {
	return &v
}

func TestSettingsPatch_Apply(t *testing.T) {
	s := DefaultSettings("g1")
	p := &SettingsPatch{
		CategoryID:       ptr("cat"),
		CooldownSeconds:  ptr(60),
		AutoCloseMinutes: ptr(30),
		OpenMessage:      ptr("hello"),
	}

	p.Apply(s)

	require.Equal(t, "cat", s.CategoryID)
	require.Equal(t, 60, s.CooldownSeconds)
	require.Equal(t, 30, s.AutoCloseMinutes)
	require.Equal(t, "hello", s.OpenMessage)

	// Untouched fields keep their defaults.
	require.Equal(t, DefaultMaxOpenPerUser, s.MaxOpenPerUser)
	require.Equal(t, DefaultChannelNameTemplate, s.ChannelNameTemplate)
	require.Equal(t, DefaultCloseMessage, s.CloseMessage)
	require.Equal(t, time.Minute, s.Cooldown())
	require.Equal(t, 30*time.Minute, s.AutoCloseAfter())
}

func TestSettingsPatch_Validate(t *testing.T) {
	require.NoError(t, (&SettingsPatch{MaxOpenPerUser: ptr(0)}).Validate())
	require.ErrorIs(t, (&SettingsPatch{CooldownSeconds: ptr(-1)}).Validate(), ErrNegativeSetting)
	require.ErrorIs(t, (&SettingsPatch{AutoCloseMinutes: ptr(-5)}).Validate(), ErrNegativeSetting)
}

func TestSettingsPatch_Fields(t *testing.T) {
	require.True(t, (&SettingsPatch{}).Empty())

	p := &SettingsPatch{LogChannelID: ptr(""), MaxOpenPerUser: ptr(3)}
	require.Equal(t, map[string]any{"log_channel_id": "", "max_open_per_user": 3}, p.Fields())
}
