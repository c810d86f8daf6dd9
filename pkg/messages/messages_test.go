package messages

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Jacobbrewer1/ticketwolf/pkg/tickets"
	"github.com/stretchr/testify/require"
)

func TestForError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		want     string
		expected bool
	}{
		{name: "category", err: &tickets.MissingConfigError{Missing: "category"}, want: ErrMissingCategory, expected: true},
		{name: "types", err: &tickets.MissingConfigError{Missing: "types"}, want: ErrMissingTypes, expected: true},
		{name: "cap", err: &tickets.RejectionError{Reason: tickets.RejectCapExceeded, Limit: 1}, want: fmt.Sprintf(TicketCapExceeded, 1), expected: true},
		{name: "cooldown", err: &tickets.RejectionError{Reason: tickets.RejectCooldown, Remaining: 59 * time.Second}, want: fmt.Sprintf(TicketCooldown, 59), expected: true},
		{name: "already open", err: &tickets.RejectionError{Reason: tickets.RejectAlreadyOpen, ChannelID: "c1"}, want: fmt.Sprintf(TicketAlreadyOpen, "c1"), expected: true},
		{name: "claimed", err: &tickets.ClaimedError{By: "u1"}, want: fmt.Sprintf(TicketClaimedByOther, "u1"), expected: true},
		{name: "denied", err: fmt.Errorf("claim: %w", tickets.ErrAuthorizationDenied), want: ErrUserNotAllowed, expected: true},
		{name: "not ticket", err: tickets.ErrNotTicket, want: ErrUserNotTicket, expected: true},
		{name: "closed", err: tickets.ErrTicketClosed, want: ErrUserTicketClosed, expected: true},
		{name: "unknown type", err: fmt.Errorf("%w: x", tickets.ErrUnknownType), want: ErrUserUnknownType, expected: true},
		{name: "external", err: fmt.Errorf("%w: boom", tickets.ErrExternalOperationFailed), want: ErrUserErrorProcessing, expected: false},
		{name: "other", err: errors.New("boom"), want: ErrUserErrorProcessing, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, expected := ForError(tt.err)
			require.Equal(t, tt.want, got)
			require.Equal(t, tt.expected, expected)
		})
	}
}

func TestLatency(t *testing.T) {
	require.Equal(t, "Pong! Gateway latency: 42ms", Latency(42*time.Millisecond))
}
