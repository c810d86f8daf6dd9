// Package tickets implements the ticket lifecycle: creation guards, claim, close and the
// auto-close sweep.
package tickets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/Jacobbrewer1/ticketwolf/pkg/dataaccess"
	"github.com/Jacobbrewer1/ticketwolf/pkg/entities"
	"github.com/Jacobbrewer1/ticketwolf/pkg/locks"
	"github.com/Jacobbrewer1/ticketwolf/pkg/logging"
)

const (
	colorOpen   = 0x2ecc71
	colorClaim  = 0x3498db
	colorClosed = 0xe74c3c
)

// Actor is the member performing a transition.
type Actor struct {
	ID    string
	Roles []string

	// Admin is set for members with guild administration permissions. Admins count as staff.
	Admin bool
}

// SystemActor performs the transitions of the auto-close sweep.
var SystemActor = Actor{ID: entities.SystemActor}

func (a Actor) isSystem() bool {
	return a.ID == entities.SystemActor
}

// CreateRequest asks for a new ticket.
type CreateRequest struct {
	GuildID  string
	UserID   string
	Username string
	Type     string
	Reason   string
}

// ActionRequest targets the ticket of a channel.
type ActionRequest struct {
	GuildID   string
	ChannelID string
	Actor     Actor

	// IdleCutoff, when set, makes Close skip a ticket with activity after the cutoff.
	IdleCutoff time.Time
}

// ClaimResult is the outcome of a claim.
type ClaimResult struct {
	Ticket *entities.Ticket

	// Already is set when the actor had claimed the ticket before.
	Already bool
}

// CloseResult is the outcome of a close.
type CloseResult struct {
	Ticket *entities.Ticket

	// AlreadyClosed is set when the ticket was closed before this call.
	AlreadyClosed bool

	// TranscriptDelivered is set when the transcript reached the log channel.
	TranscriptDelivered bool

	// StillActive is set when the ticket saw activity after the request's idle cutoff
	// and was left open.
	StillActive bool
}

// Option configures an Engine.
type Option func(e *Engine)

// WithClock replaces the time source of the engine.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// Engine runs the ticket lifecycle against a repository and a platform.
type Engine struct {
	l        *slog.Logger
	repo     dataaccess.Repository
	platform Platform
	locker   locks.Locker
	guard    *Guard
	now      func() time.Time
}

// NewEngine creates a new lifecycle engine.
func NewEngine(l *slog.Logger, repo dataaccess.Repository, platform Platform, locker locks.Locker, opts ...Option) *Engine {
	e := &Engine{
		l:        l,
		repo:     repo,
		platform: platform,
		locker:   locker,
		guard:    NewGuard(l, repo.Tickets(), platform),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Now returns the current time of the engine clock.
func (e *Engine) Now() time.Time {
	return e.now()
}

// Create opens a ticket for the user.
func (e *Engine) Create(ctx context.Context, req *CreateRequest) (*entities.Ticket, error) {
	s, err := e.repo.Settings().GetSettings(ctx, req.GuildID)
	if err != nil {
		return nil, fmt.Errorf("error getting settings: %w", err)
	}
	if s.CategoryID == "" {
		return nil, &MissingConfigError{Missing: "category"}
	}

	types, err := e.repo.Types().ListTypes(ctx, req.GuildID)
	if err != nil {
		return nil, fmt.Errorf("error listing ticket types: %w", err)
	}
	if len(types) == 0 {
		return nil, &MissingConfigError{Missing: "types"}
	}

	idx := slices.IndexFunc(types, func(t *entities.TicketType) bool { return t.Slug == req.Type })
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, req.Type)
	}
	tt := types[idx]

	l := e.l.With(
		slog.String(logging.KeyGuild, req.GuildID),
		slog.String(logging.KeyUser, req.UserID),
	)

	unlock, err := e.locker.Lock(ctx, "create:"+req.GuildID+":"+req.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: error acquiring creation lock: %w", ErrExternalOperationFailed, err)
	}
	defer unlock()

	now := e.now()
	if err := e.guard.Check(ctx, s, req.UserID, now); err != nil {
		rej := new(RejectionError)
		if errors.As(err, &rej) {
			TicketsRejected.WithLabelValues(rej.Reason.String()).Inc()
		}
		return nil, err
	}

	ch, err := e.platform.CreateChannel(ctx, &ChannelSpec{
		GuildID:     req.GuildID,
		Name:        RenderChannelName(s.ChannelNameTemplate, tt.Slug, req.Username, 0),
		ParentID:    s.CategoryID,
		Topic:       fmt.Sprintf("%s | %s", tt.Label, OpenerTag(req.UserID)),
		OpenerID:    req.UserID,
		StaffRoleID: s.StaffRoleID,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: error creating channel: %w", ErrExternalOperationFailed, err)
	}

	ticket := &entities.Ticket{
		GuildID:        req.GuildID,
		ChannelID:      ch.ID,
		UserID:         req.UserID,
		Username:       req.Username,
		Type:           tt.Slug,
		Reason:         truncateRunes(strings.TrimSpace(req.Reason), MaxReasonLength),
		Status:         entities.TicketStatusOpen,
		OpenedAt:       now,
		LastActivityAt: now,
	}

	id, err := e.repo.Tickets().InsertTicket(ctx, ticket)
	if err != nil {
		if delErr := e.platform.DeleteChannel(ctx, ch.ID); delErr != nil && !errors.Is(delErr, ErrChannelGone) {
			l.Error("Error removing channel of failed ticket",
				slog.String(logging.KeyChannel, ch.ID),
				slog.String(logging.KeyError, delErr.Error()),
			)
		}
		return nil, fmt.Errorf("%w: error recording ticket: %w", ErrExternalOperationFailed, err)
	}
	ticket.ID = id
	l = l.With(slog.Int64(logging.KeyTicket, id), slog.String(logging.KeyChannel, ch.ID))

	if HasIDToken(s.ChannelNameTemplate) {
		name := RenderChannelName(s.ChannelNameTemplate, tt.Slug, req.Username, id)
		if err := e.platform.RenameChannel(ctx, ch.ID, name); err != nil {
			e.sideEffectFailed(l, "rename", err)
		}
	}

	if err := e.platform.PostMessage(ctx, ch.ID, openingNotice(s, tt, ticket)); err != nil {
		e.sideEffectFailed(l, "opening_notice", err)
	}

	TicketsCreated.WithLabelValues(tt.Slug).Inc()
	l.Info("Ticket opened", slog.String("type", tt.Slug))
	return ticket, nil
}

// Claim assigns an open ticket to a staff member.
func (e *Engine) Claim(ctx context.Context, req *ActionRequest) (*ClaimResult, error) {
	t, s, err := e.load(ctx, req)
	if err != nil {
		return nil, err
	}
	if !t.IsOpen() {
		return nil, ErrTicketClosed
	}
	if !IsStaff(s, req.Actor) {
		return nil, ErrAuthorizationDenied
	}

	switch t.ClaimedBy {
	case req.Actor.ID:
		return &ClaimResult{Ticket: t, Already: true}, nil
	case "":
	default:
		return nil, &ClaimedError{By: t.ClaimedBy}
	}

	now := e.now()
	ok, err := e.repo.Tickets().ClaimTicket(ctx, req.GuildID, req.ChannelID, req.Actor.ID, now)
	if err != nil {
		return nil, fmt.Errorf("%w: error claiming ticket: %w", ErrExternalOperationFailed, err)
	}
	if !ok {
		// Lost a race, find out against what.
		t, err = e.ticket(ctx, req.GuildID, req.ChannelID)
		if err != nil {
			return nil, err
		}
		switch {
		case !t.IsOpen():
			return nil, ErrTicketClosed
		case t.ClaimedBy == req.Actor.ID:
			return &ClaimResult{Ticket: t, Already: true}, nil
		default:
			return nil, &ClaimedError{By: t.ClaimedBy}
		}
	}

	t.ClaimedBy = req.Actor.ID
	t.ClaimedAt = &now
	if now.After(t.LastActivityAt) {
		t.LastActivityAt = now
	}
	TicketsClaimed.Inc()

	l := e.ticketLogger(t)
	if err := e.platform.PostMessage(ctx, t.ChannelID, &Message{
		Description: fmt.Sprintf("This ticket has been claimed by <@%s>.", req.Actor.ID),
		Color:       colorClaim,
	}); err != nil {
		e.sideEffectFailed(l, "claim_notice", err)
	}

	l.Info("Ticket claimed", slog.String("claimed_by", req.Actor.ID))
	return &ClaimResult{Ticket: t}, nil
}

// Close archives the ticket and removes its channel. Closing a closed ticket succeeds
// without doing anything.
func (e *Engine) Close(ctx context.Context, req *ActionRequest) (*CloseResult, error) {
	t, s, err := e.load(ctx, req)
	if err != nil {
		return nil, err
	}
	if !t.IsOpen() {
		return &CloseResult{Ticket: t, AlreadyClosed: true}, nil
	}
	if !CanClose(s, t, req.Actor) {
		return nil, ErrAuthorizationDenied
	}

	unlock, err := e.locker.Lock(ctx, "close:"+req.GuildID+":"+req.ChannelID)
	if err != nil {
		return nil, fmt.Errorf("%w: error acquiring close lock: %w", ErrExternalOperationFailed, err)
	}
	defer unlock()

	// Someone may have closed it while we waited.
	t, err = e.ticket(ctx, req.GuildID, req.ChannelID)
	if err != nil {
		return nil, err
	}
	if !t.IsOpen() {
		return &CloseResult{Ticket: t, AlreadyClosed: true}, nil
	}
	if !req.IdleCutoff.IsZero() && t.LastActivityAt.After(req.IdleCutoff) {
		return &CloseResult{Ticket: t, StillActive: true}, nil
	}

	return e.close(ctx, s, t, req.Actor.ID)
}

func (e *Engine) close(ctx context.Context, s *entities.Settings, t *entities.Ticket, closedBy string) (*CloseResult, error) {
	l := e.ticketLogger(t)
	res := &CloseResult{Ticket: t}

	history, err := e.platform.FetchHistory(ctx, t.ChannelID, MaxTranscriptMessages)
	if err != nil {
		e.sideEffectFailed(l, "fetch_history", err)
	}
	transcript := BuildTranscript(history)

	now := e.now()

	if s.LogChannelID != "" {
		if err := e.platform.PostMessage(ctx, s.LogChannelID, closeSummary(t, closedBy, now, transcript)); err != nil {
			e.sideEffectFailed(l, "deliver_transcript", err)
		} else {
			res.TranscriptDelivered = true
		}
	}

	if err := e.platform.PostMessage(ctx, t.ChannelID, &Message{
		Description: renderMessage(s.CloseMessage, t, ""),
		Color:       colorClosed,
	}); err != nil {
		e.sideEffectFailed(l, "closing_message", err)
	}

	// The channel is torn down even when the ledger write fails. The ticket stays open
	// in the ledger, so a later close or sweep records it.
	ledgerErr := e.repo.Tickets().CloseTicket(ctx, t.GuildID, t.ChannelID, now, closedBy)

	if err := e.platform.RevokeVisibility(ctx, t.ChannelID, t.UserID); err != nil {
		e.sideEffectFailed(l, "revoke_visibility", err)
	}
	if err := e.platform.DeleteChannel(ctx, t.ChannelID); err != nil {
		e.sideEffectFailed(l, "delete_channel", err)
	}

	if ledgerErr != nil {
		return nil, fmt.Errorf("%w: error recording close: %w", ErrExternalOperationFailed, ledgerErr)
	}
	t.Status = entities.TicketStatusClosed
	t.ClosedAt = &now
	t.ClosedBy = closedBy

	by := "user"
	if closedBy == entities.SystemActor {
		by = entities.SystemActor
	}
	TicketsClosed.WithLabelValues(by).Inc()

	l.Info("Ticket closed", slog.String("closed_by", closedBy))
	return res, nil
}

// Rename sets a new channel name for an open ticket.
func (e *Engine) Rename(ctx context.Context, req *ActionRequest, name string) (string, error) {
	t, err := e.staffAction(ctx, req)
	if err != nil {
		return "", err
	}

	name = ChannelSlug(name)
	if err := e.platform.RenameChannel(ctx, t.ChannelID, name); err != nil {
		return "", fmt.Errorf("%w: error renaming channel: %w", ErrExternalOperationFailed, err)
	}
	return name, nil
}

// Prioritize rewrites the priority prefix of the ticket channel name.
func (e *Engine) Prioritize(ctx context.Context, req *ActionRequest, p Priority) (string, error) {
	t, err := e.staffAction(ctx, req)
	if err != nil {
		return "", err
	}

	ch, err := e.platform.Channel(ctx, t.ChannelID)
	if err != nil {
		return "", fmt.Errorf("%w: error getting channel: %w", ErrExternalOperationFailed, err)
	}

	name := ApplyPriority(ch.Name, p)
	if err := e.platform.RenameChannel(ctx, t.ChannelID, name); err != nil {
		return "", fmt.Errorf("%w: error renaming channel: %w", ErrExternalOperationFailed, err)
	}
	return name, nil
}

// Touch records activity in a ticket channel. Channels without an open ticket are ignored.
func (e *Engine) Touch(ctx context.Context, guildID, channelID string, at time.Time) error {
	if err := e.repo.Tickets().TouchActivity(ctx, guildID, channelID, at.UTC()); err != nil {
		return fmt.Errorf("error touching ticket: %w", err)
	}
	return nil
}

// ListOpen returns the open tickets of a guild.
func (e *Engine) ListOpen(ctx context.Context, guildID string) ([]*entities.Ticket, error) {
	return e.repo.Tickets().ListOpen(ctx, guildID)
}

// Ticket returns the ticket of a channel.
func (e *Engine) Ticket(ctx context.Context, guildID, channelID string) (*entities.Ticket, error) {
	return e.ticket(ctx, guildID, channelID)
}

func (e *Engine) staffAction(ctx context.Context, req *ActionRequest) (*entities.Ticket, error) {
	t, s, err := e.load(ctx, req)
	if err != nil {
		return nil, err
	}
	if !t.IsOpen() {
		return nil, ErrTicketClosed
	}
	if !IsStaff(s, req.Actor) {
		return nil, ErrAuthorizationDenied
	}
	return t, nil
}

func (e *Engine) load(ctx context.Context, req *ActionRequest) (*entities.Ticket, *entities.Settings, error) {
	t, err := e.ticket(ctx, req.GuildID, req.ChannelID)
	if err != nil {
		return nil, nil, err
	}

	s, err := e.repo.Settings().GetSettings(ctx, req.GuildID)
	if err != nil {
		return nil, nil, fmt.Errorf("error getting settings: %w", err)
	}
	return t, s, nil
}

func (e *Engine) ticket(ctx context.Context, guildID, channelID string) (*entities.Ticket, error) {
	t, err := e.repo.Tickets().GetTicketByChannel(ctx, guildID, channelID)
	if errors.Is(err, dataaccess.ErrNotFound) {
		return nil, ErrNotTicket
	} else if err != nil {
		return nil, fmt.Errorf("error getting ticket: %w", err)
	}
	return t, nil
}

func (e *Engine) ticketLogger(t *entities.Ticket) *slog.Logger {
	return e.l.With(
		slog.String(logging.KeyGuild, t.GuildID),
		slog.String(logging.KeyChannel, t.ChannelID),
		slog.Int64(logging.KeyTicket, t.ID),
	)
}

// sideEffectFailed logs a failed best effort step. Vanished channels are expected.
func (e *Engine) sideEffectFailed(l *slog.Logger, step string, err error) {
	if errors.Is(err, ErrChannelGone) {
		l.Debug("Channel already gone", slog.String("step", step))
		return
	}
	SideEffectFailures.WithLabelValues(step).Inc()
	l.Error("Error during ticket side effect",
		slog.String("step", step),
		slog.String(logging.KeyError, err.Error()),
	)
}

// CanClose reports whether the actor may close the ticket: the system, its opener or staff.
func CanClose(s *entities.Settings, t *entities.Ticket, a Actor) bool {
	return a.isSystem() || a.ID == t.UserID || IsStaff(s, a)
}

// IsStaff reports whether the actor may handle tickets in the guild.
func IsStaff(s *entities.Settings, a Actor) bool {
	if a.Admin {
		return true
	}
	return s.StaffRoleID != "" && slices.Contains(a.Roles, s.StaffRoleID)
}

func openingNotice(s *entities.Settings, tt *entities.TicketType, t *entities.Ticket) *Message {
	content := fmt.Sprintf("<@%s>", t.UserID)
	if s.StaffRoleID != "" {
		content += fmt.Sprintf(" <@&%s>", s.StaffRoleID)
	}

	fields := []*Field{
		{Name: "Type", Value: tt.Display(), Inline: true},
		{Name: "Opened by", Value: fmt.Sprintf("<@%s>", t.UserID), Inline: true},
		{Name: "Ticket", Value: "#" + strconv.FormatInt(t.ID, 10), Inline: true},
	}
	if t.Reason != "" {
		fields = append(fields, &Field{Name: "Reason", Value: t.Reason})
	}
	if s.GuideMessage != "" {
		fields = append(fields, &Field{Name: "What next", Value: renderMessage(s.GuideMessage, t, tt.Label)})
	}

	return &Message{
		Content:     content,
		Title:       tt.Display(),
		Description: renderMessage(s.OpenMessage, t, tt.Label),
		Fields:      fields,
		Color:       colorOpen,
		Controls:    true,
	}
}

func closeSummary(t *entities.Ticket, closedBy string, at time.Time, transcript []byte) *Message {
	claimed := "Unclaimed"
	if t.ClaimedBy != "" {
		claimed = fmt.Sprintf("<@%s>", t.ClaimedBy)
	}
	closer := "Auto-close"
	if closedBy != entities.SystemActor {
		closer = fmt.Sprintf("<@%s>", closedBy)
	}

	return &Message{
		Title: fmt.Sprintf("Ticket #%d closed", t.ID),
		Fields: []*Field{
			{Name: "Ticket", Value: "#" + strconv.FormatInt(t.ID, 10), Inline: true},
			{Name: "Type", Value: t.Type, Inline: true},
			{Name: "Opened by", Value: fmt.Sprintf("<@%s>", t.UserID), Inline: true},
			{Name: "Closed by", Value: closer, Inline: true},
			{Name: "Claimed by", Value: claimed, Inline: true},
			{Name: "Opened at", Value: t.OpenedAt.UTC().Format(TranscriptTimeFormat), Inline: true},
			{Name: "Closed at", Value: at.UTC().Format(TranscriptTimeFormat), Inline: true},
		},
		Color: colorClosed,
		Attachment: &Attachment{
			Name:        TranscriptName(t.ID),
			ContentType: "text/plain",
			Data:        transcript,
		},
	}
}

// renderMessage substitutes {user}, {type} and {id} in a configured message.
func renderMessage(tmpl string, t *entities.Ticket, typeLabel string) string {
	if typeLabel == "" {
		typeLabel = t.Type
	}
	return strings.NewReplacer(
		"{user}", fmt.Sprintf("<@%s>", t.UserID),
		"{type}", typeLabel,
		"{id}", strconv.FormatInt(t.ID, 10),
	).Replace(tmpl)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
