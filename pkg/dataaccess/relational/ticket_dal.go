package relational

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Jacobbrewer1/ticketwolf/pkg/dataaccess"
	"github.com/Jacobbrewer1/ticketwolf/pkg/dataaccess/monitoring"
	"github.com/Jacobbrewer1/ticketwolf/pkg/entities"
	"gorm.io/gorm"
)

const ticketDalName = "ticket_dal"

type ticketDal struct {
	l       *slog.Logger
	db      *gorm.DB
	dialect string
}

func (d *ticketDal) InsertTicket(ctx context.Context, ticket *entities.Ticket) (int64, error) {
	t := monitoring.SQLTimer(ticketDalName, "insert_ticket", d.dialect, "tickets")
	defer t.ObserveDuration()

	ticket.ID = 0
	if err := d.db.WithContext(ctx).Create(ticket).Error; err != nil {
		if isDuplicate(err) {
			return 0, fmt.Errorf("channel %s already has a ticket: %w", ticket.ChannelID, dataaccess.ErrDuplicate)
		}
		return 0, fmt.Errorf("error inserting ticket: %w", err)
	}
	return ticket.ID, nil
}

func (d *ticketDal) GetTicketByChannel(ctx context.Context, guildID, channelID string) (*entities.Ticket, error) {
	t := monitoring.SQLTimer(ticketDalName, "get_ticket_by_channel", d.dialect, "tickets")
	defer t.ObserveDuration()

	ticket := new(entities.Ticket)
	err := d.db.WithContext(ctx).
		Where("guild_id = ? AND channel_id = ?", guildID, channelID).
		Take(ticket).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, dataaccess.ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("error getting ticket: %w", err)
	}
	return ticket, nil
}

func (d *ticketDal) CountOpen(ctx context.Context, guildID, userID string) (int, error) {
	t := monitoring.SQLTimer(ticketDalName, "count_open", d.dialect, "tickets")
	defer t.ObserveDuration()

	var n int64
	err := d.db.WithContext(ctx).Model(&entities.Ticket{}).
		Where("guild_id = ? AND user_id = ? AND status = ?", guildID, userID, entities.TicketStatusOpen).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("error counting open tickets: %w", err)
	}
	return int(n), nil
}

func (d *ticketDal) LastOpenedAt(ctx context.Context, guildID, userID string) (time.Time, bool, error) {
	t := monitoring.SQLTimer(ticketDalName, "last_opened_at", d.dialect, "tickets")
	defer t.ObserveDuration()

	latest := new(entities.Ticket)
	err := d.db.WithContext(ctx).
		Where("guild_id = ? AND user_id = ?", guildID, userID).
		Order("id DESC").
		Take(latest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, false, nil
	} else if err != nil {
		return time.Time{}, false, fmt.Errorf("error getting latest ticket: %w", err)
	}
	return latest.OpenedAt, true, nil
}

func (d *ticketDal) TouchActivity(ctx context.Context, guildID, channelID string, at time.Time) error {
	t := monitoring.SQLTimer(ticketDalName, "touch_activity", d.dialect, "tickets")
	defer t.ObserveDuration()

	err := d.db.WithContext(ctx).Model(&entities.Ticket{}).
		Where("guild_id = ? AND channel_id = ? AND status = ? AND last_activity_at < ?",
			guildID, channelID, entities.TicketStatusOpen, at).
		Update("last_activity_at", at).Error
	if err != nil {
		return fmt.Errorf("error touching ticket activity: %w", err)
	}
	return nil
}

func (d *ticketDal) ClaimTicket(ctx context.Context, guildID, channelID, userID string, at time.Time) (bool, error) {
	t := monitoring.SQLTimer(ticketDalName, "claim_ticket", d.dialect, "tickets")
	defer t.ObserveDuration()

	res := d.db.WithContext(ctx).Model(&entities.Ticket{}).
		Where("guild_id = ? AND channel_id = ? AND status = ? AND claimed_by = ?",
			guildID, channelID, entities.TicketStatusOpen, "").
		Updates(map[string]any{
			"claimed_by": userID,
			"claimed_at": at,
		})
	if res.Error != nil {
		return false, fmt.Errorf("error claiming ticket: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	if err := d.TouchActivity(ctx, guildID, channelID, at); err != nil {
		return true, err
	}
	return true, nil
}

func (d *ticketDal) CloseTicket(ctx context.Context, guildID, channelID string, at time.Time, closedBy string) error {
	t := monitoring.SQLTimer(ticketDalName, "close_ticket", d.dialect, "tickets")
	defer t.ObserveDuration()

	res := d.db.WithContext(ctx).Model(&entities.Ticket{}).
		Where("guild_id = ? AND channel_id = ? AND status = ?", guildID, channelID, entities.TicketStatusOpen).
		Updates(map[string]any{
			"status":    entities.TicketStatusClosed,
			"closed_at": at,
			"closed_by": closedBy,
		})
	if res.Error != nil {
		return fmt.Errorf("error closing ticket: %w", res.Error)
	}

	if res.RowsAffected == 0 {
		d.l.Debug("Ticket already closed or missing",
			slog.String("guild_id", guildID),
			slog.String("channel_id", channelID),
		)
	}
	return nil
}

func (d *ticketDal) ListIdle(ctx context.Context, guildID string, cutoff time.Time) ([]*entities.Ticket, error) {
	t := monitoring.SQLTimer(ticketDalName, "list_idle", d.dialect, "tickets")
	defer t.ObserveDuration()

	tickets := make([]*entities.Ticket, 0)
	err := d.db.WithContext(ctx).
		Where("guild_id = ? AND status = ? AND last_activity_at <= ?", guildID, entities.TicketStatusOpen, cutoff).
		Order("id").
		Find(&tickets).Error
	if err != nil {
		return nil, fmt.Errorf("error listing idle tickets: %w", err)
	}
	return tickets, nil
}

func (d *ticketDal) ListOpen(ctx context.Context, guildID string) ([]*entities.Ticket, error) {
	t := monitoring.SQLTimer(ticketDalName, "list_open", d.dialect, "tickets")
	defer t.ObserveDuration()

	tickets := make([]*entities.Ticket, 0)
	err := d.db.WithContext(ctx).
		Where("guild_id = ? AND status = ?", guildID, entities.TicketStatusOpen).
		Order("id").
		Find(&tickets).Error
	if err != nil {
		return nil, fmt.Errorf("error listing open tickets: %w", err)
	}
	return tickets, nil
}
