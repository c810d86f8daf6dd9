// Package messages holds the user facing replies of the bot.
package messages

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Jacobbrewer1/ticketwolf/pkg/tickets"
)

const (
	// ErrUserErrorProcessing is shown when something failed on our side.
	ErrUserErrorProcessing = "Something went wrong while processing your request. Please try again later."

	// ErrUserNotAdmin is shown when a configuration command is used without Manage Server.
	ErrUserNotAdmin = "You need the Manage Server permission to use this command."

	// ErrUserGuildOnly is shown when the bot is used outside a server.
	ErrUserGuildOnly = "This bot can only be used inside a server."

	// ErrUserNotAllowed is shown when the member is neither the opener nor staff.
	ErrUserNotAllowed = "You are not allowed to do that with this ticket."

	// ErrUserNotTicket is shown when a ticket command is used outside a ticket channel.
	ErrUserNotTicket = "This channel is not a ticket."

	// ErrUserTicketClosed is shown for actions on closed tickets.
	ErrUserTicketClosed = "This ticket is already closed."

	// ErrUserUnknownType is shown when the selected type was removed in the meantime.
	ErrUserUnknownType = "That ticket type does not exist anymore. Please pick another one."

	// ErrMissingCategory is shown when no ticket category has been set.
	ErrMissingCategory = "Ticketing is not set up yet. An administrator needs to run `/setup category` first."

	// ErrMissingTypes is shown when the guild has no ticket types.
	ErrMissingTypes = "There are no ticket types yet. An administrator needs to add one with `/ticket-type add`."

	// TicketCreated is shown to the opener with a link to the new channel.
	TicketCreated = "Your ticket has been created: <#%s>"

	// TicketClaimed is shown to the claimer.
	TicketClaimed = "You have claimed this ticket."

	// TicketAlreadyClaimedBySelf is shown when the claimer claims again.
	TicketAlreadyClaimedBySelf = "You have already claimed this ticket."

	// TicketRenamed is shown after a rename.
	TicketRenamed = "The ticket channel is now called `%s`."

	// TicketPrioritized is shown after a priority change.
	TicketPrioritized = "Priority set to **%s**. The channel is now called `%s`."

	// NoOpenTickets is the reply to /ticket list when nothing is open.
	NoOpenTickets = "There are no open tickets."

	// PanelPosted is shown after the ticket menu was posted or refreshed.
	PanelPosted = "The ticket menu is up in <#%s>."

	// TicketClosing is shown while the ticket is being archived.
	TicketClosing = "Closing the ticket..."

	// TicketCapExceeded is shown when the user has too many open tickets.
	TicketCapExceeded = "You already have %d open ticket(s). Please close one before opening another."

	// TicketCooldown is shown when the user opened a ticket too recently.
	TicketCooldown = "You opened a ticket recently. Please wait %d more second(s)."

	// TicketAlreadyOpen is shown when a live channel of the user already exists.
	TicketAlreadyOpen = "You already have an open ticket: <#%s>"

	// TicketClaimedByOther is shown when someone else holds the ticket.
	TicketClaimedByOther = "This ticket is already claimed by <@%s>."

	// SettingsUpdated confirms a /setup change.
	SettingsUpdated = "Settings updated."

	// SettingsNothingToUpdate is shown when a /setup command carried no options.
	SettingsNothingToUpdate = "Nothing to update. Pass at least one option."

	// SettingsTemplateToken is shown for channel name templates without a placeholder.
	SettingsTemplateToken = "The template must contain {type}, {user} or {id}."

	// TypeSaved confirms /ticket-type add.
	TypeSaved = "Saved ticket type %s (`%s`)."

	// TypeRemoved confirms /ticket-type remove.
	TypeRemoved = "Removed ticket type `%s`."

	// TypeNotFound is shown when /ticket-type remove matched nothing.
	TypeNotFound = "There is no ticket type `%s`."

	// TypeInvalidSlug is shown for slugs outside [a-z0-9-].
	TypeInvalidSlug = "Slugs may only contain lowercase letters, digits and hyphens, up to 50 characters."

	// Pong is the reply to /ping.
	Pong = "Pong! Gateway latency: %dms"
)

// ForError returns the reply for an error of the ticket engine. The second result is false
// for errors that are our fault and should be logged.
func ForError(err error) (string, bool) {
	var (
		missing *tickets.MissingConfigError
		reject  *tickets.RejectionError
		claimed *tickets.ClaimedError
	)

	switch {
	case errors.As(err, &missing):
		if missing.Missing == "types" {
			return ErrMissingTypes, true
		}
		return ErrMissingCategory, true
	case errors.As(err, &reject):
		return Rejection(reject), true
	case errors.As(err, &claimed):
		return fmt.Sprintf(TicketClaimedByOther, claimed.By), true
	case errors.Is(err, tickets.ErrAuthorizationDenied):
		return ErrUserNotAllowed, true
	case errors.Is(err, tickets.ErrNotTicket):
		return ErrUserNotTicket, true
	case errors.Is(err, tickets.ErrTicketClosed):
		return ErrUserTicketClosed, true
	case errors.Is(err, tickets.ErrUnknownType):
		return ErrUserUnknownType, true
	default:
		return ErrUserErrorProcessing, false
	}
}

// Rejection renders a guard rejection.
func Rejection(r *tickets.RejectionError) string {
	switch r.Reason {
	case tickets.RejectCapExceeded:
		return fmt.Sprintf(TicketCapExceeded, r.Limit)
	case tickets.RejectCooldown:
		return fmt.Sprintf(TicketCooldown, int(math.Ceil(r.Remaining.Seconds())))
	case tickets.RejectAlreadyOpen:
		return fmt.Sprintf(TicketAlreadyOpen, r.ChannelID)
	default:
		return ErrUserErrorProcessing
	}
}

// Latency renders the /ping reply.
func Latency(d time.Duration) string {
	return fmt.Sprintf(Pong, d.Milliseconds())
}
