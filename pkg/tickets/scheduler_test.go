package tickets

import (
	"context"
	"testing"
	"time"

	"github.com/Jacobbrewer1/ticketwolf/pkg/dataaccess"
	"github.com/Jacobbrewer1/ticketwolf/pkg/entities"
	"github.com/stretchr/testify/require"
)

func newTestAutoCloser(env *testEnv) *AutoCloser {
	return NewAutoCloser(discardLogger(), env.engine, env.repo, time.Hour, 0)
}

func TestAutoCloser_ClosesIdleTicket(t *testing.T) {
	env := newTestEnv(t, &entities.SettingsPatch{AutoCloseMinutes: ptr(30)})
	ctx := context.Background()

	ticket, err := env.create(t, testOpener, "")
	require.NoError(t, err)

	env.clock.Advance(31 * time.Minute)

	n, err := newTestAutoCloser(env).Sweep(ctx, env.clock.Now())
	require.NoError(t, err)
	require.Equal(t, 1, n)

	stored, err := env.repo.Tickets().GetTicketByChannel(ctx, testGuild, ticket.ChannelID)
	require.NoError(t, err)
	require.Equal(t, entities.TicketStatusClosed, stored.Status)
	require.Equal(t, entities.SystemActor, stored.ClosedBy)
	require.False(t, env.platform.exists(ticket.ChannelID))
	require.Len(t, env.platform.messagesTo(testLog), 1)
}

func TestAutoCloser_Threshold(t *testing.T) {
	tests := []struct {
		name    string
		minutes int
		idle    time.Duration
		closed  bool
	}{
		{name: "below threshold", minutes: 30, idle: 30*time.Minute - time.Second, closed: false},
		{name: "at threshold", minutes: 30, idle: 30 * time.Minute, closed: true},
		{name: "above threshold", minutes: 30, idle: 2 * time.Hour, closed: true},
		{name: "disabled", minutes: 0, idle: 365 * 24 * time.Hour, closed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, &entities.SettingsPatch{AutoCloseMinutes: ptr(tt.minutes)})
			ctx := context.Background()

			ticket, err := env.create(t, testOpener, "")
			require.NoError(t, err)

			env.clock.Advance(tt.idle)
			_, err = newTestAutoCloser(env).Sweep(ctx, env.clock.Now())
			require.NoError(t, err)

			stored, err := env.repo.Tickets().GetTicketByChannel(ctx, testGuild, ticket.ChannelID)
			require.NoError(t, err)
			require.Equal(t, tt.closed, !stored.IsOpen())
		})
	}
}

func TestAutoCloser_ActivityResetsIdle(t *testing.T) {
	env := newTestEnv(t, &entities.SettingsPatch{AutoCloseMinutes: ptr(30)})
	ctx := context.Background()

	ticket, err := env.create(t, testOpener, "")
	require.NoError(t, err)

	env.clock.Advance(20 * time.Minute)
	require.NoError(t, env.engine.Touch(ctx, testGuild, ticket.ChannelID, env.clock.Now()))

	env.clock.Advance(20 * time.Minute)
	n, err := newTestAutoCloser(env).Sweep(ctx, env.clock.Now())
	require.NoError(t, err)
	require.Zero(t, n)
}

// activityRepository records activity on every ticket it reports as idle, as if a message
// arrived between the sweep's scan and the close.
type activityRepository struct {
	*fakeRepository
	at time.Time
}

func (r *activityRepository) Tickets() dataaccess.TicketDal {
	return &activityTickets{TicketDal: r.fakeRepository.Tickets(), at: r.at}
}

type activityTickets struct {
	dataaccess.TicketDal
	at time.Time
}

func (t *activityTickets) ListIdle(ctx context.Context, guildID string, cutoff time.Time) ([]*entities.Ticket, error) {
	list, err := t.TicketDal.ListIdle(ctx, guildID, cutoff)
	if err != nil {
		return nil, err
	}
	for _, tk := range list {
		if err := t.TicketDal.TouchActivity(ctx, guildID, tk.ChannelID, t.at); err != nil {
			return nil, err
		}
	}
	return list, nil
}

func TestAutoCloser_ActivityAfterScan(t *testing.T) {
	env := newTestEnv(t, &entities.SettingsPatch{AutoCloseMinutes: ptr(30)})
	ctx := context.Background()

	ticket, err := env.create(t, testOpener, "")
	require.NoError(t, err)

	env.clock.Advance(time.Hour)
	repo := &activityRepository{fakeRepository: env.repo, at: env.clock.Now()}

	n, err := NewAutoCloser(discardLogger(), env.engine, repo, time.Hour, 0).Sweep(ctx, env.clock.Now())
	require.NoError(t, err)
	require.Zero(t, n)

	stored, err := env.repo.Tickets().GetTicketByChannel(ctx, testGuild, ticket.ChannelID)
	require.NoError(t, err)
	require.True(t, stored.IsOpen())
	require.True(t, env.platform.exists(ticket.ChannelID))
	require.Empty(t, env.platform.messagesTo(testLog))

	// The next sweep past the new cutoff closes it.
	env.clock.Advance(31 * time.Minute)
	n, err = newTestAutoCloser(env).Sweep(ctx, env.clock.Now())
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestEngine_Close_IdleCutoff(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	ticket, err := env.create(t, testOpener, "")
	require.NoError(t, err)

	cutoff := env.clock.Now().Add(-time.Minute)
	res, err := env.engine.Close(ctx, &ActionRequest{
		GuildID:    testGuild,
		ChannelID:  ticket.ChannelID,
		Actor:      SystemActor,
		IdleCutoff: cutoff,
	})
	require.NoError(t, err)
	require.True(t, res.StillActive)
	require.True(t, env.platform.exists(ticket.ChannelID))

	res, err = env.engine.Close(ctx, &ActionRequest{
		GuildID:    testGuild,
		ChannelID:  ticket.ChannelID,
		Actor:      SystemActor,
		IdleCutoff: env.clock.Now(),
	})
	require.NoError(t, err)
	require.False(t, res.StillActive)
	require.False(t, env.platform.exists(ticket.ChannelID))
}

func TestAutoCloser_RacesManualClose(t *testing.T) {
	env := newTestEnv(t, &entities.SettingsPatch{AutoCloseMinutes: ptr(30)})
	ctx := context.Background()

	ticket, err := env.create(t, testOpener, "")
	require.NoError(t, err)

	env.clock.Advance(time.Hour)
	_, err = env.engine.Close(ctx, env.action(ticket.ChannelID, staffA))
	require.NoError(t, err)

	n, err := newTestAutoCloser(env).Sweep(ctx, env.clock.Now())
	require.NoError(t, err)
	require.Zero(t, n)

	stored, err := env.repo.Tickets().GetTicketByChannel(ctx, testGuild, ticket.ChannelID)
	require.NoError(t, err)
	require.Equal(t, staffA.ID, stored.ClosedBy)
}

func TestAutoCloser_ChannelDeletedOutOfBand(t *testing.T) {
	env := newTestEnv(t, &entities.SettingsPatch{AutoCloseMinutes: ptr(30)})
	ctx := context.Background()

	ticket, err := env.create(t, testOpener, "")
	require.NoError(t, err)
	require.NoError(t, env.platform.DeleteChannel(ctx, ticket.ChannelID))

	env.clock.Advance(time.Hour)
	n, err := newTestAutoCloser(env).Sweep(ctx, env.clock.Now())
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestAutoCloser_StartStop(t *testing.T) {
	env := newTestEnv(t, nil)
	a := NewAutoCloser(discardLogger(), env.engine, env.repo, 10*time.Millisecond, 0)

	require.NoError(t, a.Start(context.Background()))
	require.Error(t, a.Start(context.Background()))

	time.Sleep(30 * time.Millisecond)

	require.NoError(t, a.Stop())
	require.Error(t, a.Stop())
}
