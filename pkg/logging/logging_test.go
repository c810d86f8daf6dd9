package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			require.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestCommonLogger(t *testing.T) {
	buf := new(bytes.Buffer)
	c := NewConfig(`tests`)
	c.Writer = buf
	c.Format = "json"
	c.Level = slog.LevelInfo

	l, err := CommonLogger(c)
	require.NoError(t, err)

	l.Info("hello", slog.String(KeyGuild, "g1"))

	got := make(map[string]any)
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Equal(t, "hello", got["msg"])
	require.Equal(t, "tests", got["app"])
	require.Equal(t, "g1", got[KeyGuild])
}

func TestCommonLogger_BadFormat(t *testing.T) {
	c := NewConfig(`tests`)
	c.Format = "xml"

	_, err := CommonLogger(c)
	require.Error(t, err)

	_, err = CommonLogger(nil)
	require.Error(t, err)
}
