package tickets

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrConfigurationMissing is returned when the guild has not bound what ticketing needs.
	ErrConfigurationMissing = errors.New("ticketing is not configured")

	// ErrAuthorizationDenied is returned when the actor is neither the opener nor staff.
	ErrAuthorizationDenied = errors.New("not allowed to manage this ticket")

	// ErrConcurrencyRejected is matched by every creation rejection of the guard.
	ErrConcurrencyRejected = errors.New("ticket creation rejected")

	// ErrExternalOperationFailed is returned when a primary effect on the platform or the
	// ledger failed.
	ErrExternalOperationFailed = errors.New("external operation failed")

	// ErrNotTicket is returned for channels that have no ticket.
	ErrNotTicket = errors.New("channel is not a ticket")

	// ErrTicketClosed is returned for transitions that need an open ticket.
	ErrTicketClosed = errors.New("ticket is closed")

	// ErrUnknownType is returned when a creation names a type the guild does not have.
	ErrUnknownType = errors.New("unknown ticket type")

	// ErrChannelGone is returned by a Platform when the channel no longer exists.
	ErrChannelGone = errors.New("channel no longer exists")
)

// MissingConfigError names the binding a guild is missing.
type MissingConfigError struct {
	// Missing is either "category" or "types".
	Missing string
}

func (e *MissingConfigError) Error() string {
	return fmt.Sprintf("%s: no %s configured", ErrConfigurationMissing, e.Missing)
}

func (e *MissingConfigError) Unwrap() error {
	return ErrConfigurationMissing
}

// RejectReason is the guard check that rejected a creation.
type RejectReason int

const (
	// RejectCapExceeded means the user already holds the maximum number of open tickets.
	RejectCapExceeded RejectReason = iota + 1

	// RejectCooldown means the user opened a ticket too recently.
	RejectCooldown

	// RejectAlreadyOpen means live channels tagged for the user already fill the cap.
	RejectAlreadyOpen
)

func (r RejectReason) String() string {
	switch r {
	case RejectCapExceeded:
		return "cap_exceeded"
	case RejectCooldown:
		return "cooldown"
	case RejectAlreadyOpen:
		return "already_open"
	default:
		return "unknown"
	}
}

// RejectionError is returned by the guard.
type RejectionError struct {
	Reason RejectReason

	// Limit is the configured cap for RejectCapExceeded.
	Limit int

	// Remaining is the wait, rounded up to whole seconds, for RejectCooldown.
	Remaining time.Duration

	// ChannelID is an existing channel of the user for RejectAlreadyOpen.
	ChannelID string
}

func (e *RejectionError) Error() string {
	switch e.Reason {
	case RejectCapExceeded:
		return fmt.Sprintf("%s: %d open tickets allowed", ErrConcurrencyRejected, e.Limit)
	case RejectCooldown:
		return fmt.Sprintf("%s: cooldown, %s remaining", ErrConcurrencyRejected, e.Remaining)
	case RejectAlreadyOpen:
		return fmt.Sprintf("%s: already open in channel %s", ErrConcurrencyRejected, e.ChannelID)
	default:
		return ErrConcurrencyRejected.Error()
	}
}

func (e *RejectionError) Unwrap() error {
	return ErrConcurrencyRejected
}

// ClaimedError is returned when a ticket is already claimed by someone else.
type ClaimedError struct {
	// By is the ID of the current claimer.
	By string
}

func (e *ClaimedError) Error() string {
	return fmt.Sprintf("ticket already claimed by %s", e.By)
}
