package tickets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name  string
		label string
		want  string
	}{
		{name: "simple", label: "Robux", want: "robux"},
		{name: "spaces", label: "Buy Robux Now", want: "buy-robux-now"},
		{name: "punctuation", label: "Help! (urgent)", want: "help-urgent"},
		{name: "collapse", label: "a  -- b", want: "a-b"},
		{name: "trim", label: "  -report- ", want: "report"},
		{name: "empty", label: "!!!", want: "type"},
		{name: "non ascii", label: "환불 refund", want: "refund"},
		{name: "long", label: strings.Repeat("ab ", 40), want: strings.TrimRight(strings.Repeat("ab-", 17), "-")[:50]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Slugify(tt.label)
			require.Equal(t, tt.want, got)
			require.True(t, ValidSlug(got))
		})
	}
}

func TestValidSlug(t *testing.T) {
	require.True(t, ValidSlug("robux"))
	require.True(t, ValidSlug("ban-appeal-2"))
	require.False(t, ValidSlug(""))
	require.False(t, ValidSlug("Robux"))
	require.False(t, ValidSlug("ban appeal"))
	require.False(t, ValidSlug(strings.Repeat("a", 51)))
}

func TestRenderChannelName(t *testing.T) {
	tests := []struct {
		name     string
		template string
		id       int64
		want     string
	}{
		{name: "round trip", template: "ticket-{type}-{user}-{id}", id: 42, want: ChannelSlug("ticket-robux-alice-42")},
		{name: "before insert", template: "ticket-{type}-{user}-{id}", id: 0, want: "ticket-robux-alice"},
		{name: "no id", template: "{user} {type}", id: 7, want: "alice-robux"},
		{name: "empty", template: "", id: 0, want: "ticket"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, RenderChannelName(tt.template, "robux", "alice", tt.id))
		})
	}

	require.Equal(t, "ticket-robux-alice-42", RenderChannelName("ticket-{type}-{user}-{id}", "robux", "alice", 42))
	require.LessOrEqual(t, len(RenderChannelName(strings.Repeat("x", 200), "", "", 0)), MaxChannelNameLength)
}

func TestTopicOpener(t *testing.T) {
	id, ok := TopicOpener("Robux | " + OpenerTag("123"))
	require.True(t, ok)
	require.Equal(t, "123", id)

	_, ok = TopicOpener("General chat")
	require.False(t, ok)

	_, ok = TopicOpener("opener:")
	require.False(t, ok)
}

func TestApplyPriority(t *testing.T) {
	tests := []struct {
		name     string
		channel  string
		priority Priority
		want     string
	}{
		{name: "fresh", channel: "ticket-robux-alice", priority: PriorityHigh, want: "high-ticket-robux-alice"},
		{name: "replace", channel: "low-ticket-robux-alice", priority: PriorityHigh, want: "high-ticket-robux-alice"},
		{name: "stacked", channel: "high-normal-low-ticket", priority: PriorityLow, want: "low-ticket"},
		{name: "same", channel: "normal-ticket", priority: PriorityNormal, want: "normal-ticket"},
		{name: "not a prefix", channel: "lower-ticket", priority: PriorityLow, want: "low-lower-ticket"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ApplyPriority(tt.channel, tt.priority))
		})
	}
}

func TestParsePriority(t *testing.T) {
	p, ok := ParsePriority(" High ")
	require.True(t, ok)
	require.Equal(t, PriorityHigh, p)

	_, ok = ParsePriority("urgent")
	require.False(t, ok)
}
