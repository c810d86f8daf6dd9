package dataaccess

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Jacobbrewer1/ticketwolf/pkg/dataaccess/monitoring"
	"github.com/Jacobbrewer1/ticketwolf/pkg/entities"
	"github.com/Jacobbrewer1/ticketwolf/pkg/logging"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	ticketDalName = "ticket_dal"

	ticketsCollection  = "tickets"
	countersCollection = "counters"
)

type ticketDal struct {
	// l is the logger.
	l *slog.Logger

	// db is the database.
	db *mongo.Database
}

// NewTicketDal creates a new Mongo backed ticket ledger.
func NewTicketDal(l *slog.Logger, db *mongo.Database) TicketDal {
	return &ticketDal{
		l:  l.With(slog.String(logging.KeyDal, ticketDalName)),
		db: db,
	}
}

func (d *ticketDal) InsertTicket(ctx context.Context, ticket *entities.Ticket) (int64, error) {
	id, err := d.nextID(ctx)
	if err != nil {
		return 0, err
	}

	t := monitoring.MongoTimer(ticketDalName, "insert_ticket", d.db.Name(), ticketsCollection)
	defer t.ObserveDuration()

	ticket.ID = id
	if _, err := d.db.Collection(ticketsCollection).InsertOne(ctx, ticket); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return 0, fmt.Errorf("channel %s already has a ticket: %w", ticket.ChannelID, ErrDuplicate)
		}
		return 0, fmt.Errorf("error inserting ticket: %w", err)
	}
	return id, nil
}

// nextID reserves the next ticket number from the counters collection.
func (d *ticketDal) nextID(ctx context.Context) (int64, error) {
	t := monitoring.MongoTimer(ticketDalName, "next_ticket_id", d.db.Name(), countersCollection)
	defer t.ObserveDuration()

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := d.db.Collection(countersCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": ticketsCollection},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("error reserving ticket id: %w", err)
	}
	return counter.Seq, nil
}

func (d *ticketDal) GetTicketByChannel(ctx context.Context, guildID, channelID string) (*entities.Ticket, error) {
	t := monitoring.MongoTimer(ticketDalName, "get_ticket_by_channel", d.db.Name(), ticketsCollection)
	defer t.ObserveDuration()

	ticket := new(entities.Ticket)
	err := d.db.Collection(ticketsCollection).FindOne(ctx, bson.M{
		"guild_id":   guildID,
		"channel_id": channelID,
	}).Decode(ticket)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("error getting ticket: %w", err)
	}
	return ticket, nil
}

func (d *ticketDal) CountOpen(ctx context.Context, guildID, userID string) (int, error) {
	t := monitoring.MongoTimer(ticketDalName, "count_open", d.db.Name(), ticketsCollection)
	defer t.ObserveDuration()

	n, err := d.db.Collection(ticketsCollection).CountDocuments(ctx, bson.M{
		"guild_id": guildID,
		"user_id":  userID,
		"status":   entities.TicketStatusOpen,
	})
	if err != nil {
		return 0, fmt.Errorf("error counting open tickets: %w", err)
	}
	return int(n), nil
}

func (d *ticketDal) LastOpenedAt(ctx context.Context, guildID, userID string) (time.Time, bool, error) {
	t := monitoring.MongoTimer(ticketDalName, "last_opened_at", d.db.Name(), ticketsCollection)
	defer t.ObserveDuration()

	opts := options.FindOne().
		SetSort(bson.D{{Key: "id", Value: -1}}).
		SetProjection(bson.M{"opened_at": 1})

	var latest struct {
		OpenedAt time.Time `bson:"opened_at"`
	}
	err := d.db.Collection(ticketsCollection).FindOne(ctx, bson.M{
		"guild_id": guildID,
		"user_id":  userID,
	}, opts).Decode(&latest)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return time.Time{}, false, nil
	} else if err != nil {
		return time.Time{}, false, fmt.Errorf("error getting latest ticket: %w", err)
	}
	return latest.OpenedAt, true, nil
}

func (d *ticketDal) TouchActivity(ctx context.Context, guildID, channelID string, at time.Time) error {
	t := monitoring.MongoTimer(ticketDalName, "touch_activity", d.db.Name(), ticketsCollection)
	defer t.ObserveDuration()

	_, err := d.db.Collection(ticketsCollection).UpdateOne(ctx, bson.M{
		"guild_id":   guildID,
		"channel_id": channelID,
		"status":     entities.TicketStatusOpen,
	}, bson.M{
		"$max": bson.M{"last_activity_at": at},
	})
	if err != nil {
		return fmt.Errorf("error touching ticket activity: %w", err)
	}
	return nil
}

func (d *ticketDal) ClaimTicket(ctx context.Context, guildID, channelID, userID string, at time.Time) (bool, error) {
	t := monitoring.MongoTimer(ticketDalName, "claim_ticket", d.db.Name(), ticketsCollection)
	defer t.ObserveDuration()

	res, err := d.db.Collection(ticketsCollection).UpdateOne(ctx, bson.M{
		"guild_id":   guildID,
		"channel_id": channelID,
		"status":     entities.TicketStatusOpen,
		"claimed_by": "",
	}, bson.M{
		"$set": bson.M{"claimed_by": userID, "claimed_at": at},
		"$max": bson.M{"last_activity_at": at},
	})
	if err != nil {
		return false, fmt.Errorf("error claiming ticket: %w", err)
	}
	return res.MatchedCount > 0, nil
}

func (d *ticketDal) CloseTicket(ctx context.Context, guildID, channelID string, at time.Time, closedBy string) error {
	t := monitoring.MongoTimer(ticketDalName, "close_ticket", d.db.Name(), ticketsCollection)
	defer t.ObserveDuration()

	res, err := d.db.Collection(ticketsCollection).UpdateOne(ctx, bson.M{
		"guild_id":   guildID,
		"channel_id": channelID,
		"status":     entities.TicketStatusOpen,
	}, bson.M{
		"$set": bson.M{
			"status":    entities.TicketStatusClosed,
			"closed_at": at,
			"closed_by": closedBy,
		},
	})
	if err != nil {
		return fmt.Errorf("error closing ticket: %w", err)
	}

	if res.MatchedCount == 0 {
		d.l.Debug("Ticket already closed or missing",
			slog.String(logging.KeyGuild, guildID),
			slog.String(logging.KeyChannel, channelID),
		)
	}
	return nil
}

func (d *ticketDal) ListIdle(ctx context.Context, guildID string, cutoff time.Time) ([]*entities.Ticket, error) {
	return d.find(ctx, "list_idle", bson.M{
		"guild_id":         guildID,
		"status":           entities.TicketStatusOpen,
		"last_activity_at": bson.M{"$lte": cutoff},
	})
}

func (d *ticketDal) ListOpen(ctx context.Context, guildID string) ([]*entities.Ticket, error) {
	return d.find(ctx, "list_open", bson.M{
		"guild_id": guildID,
		"status":   entities.TicketStatusOpen,
	})
}

func (d *ticketDal) find(ctx context.Context, query string, filter bson.M) ([]*entities.Ticket, error) {
	t := monitoring.MongoTimer(ticketDalName, query, d.db.Name(), ticketsCollection)
	defer t.ObserveDuration()

	opts := options.Find().SetSort(bson.D{{Key: "id", Value: 1}})
	cur, err := d.db.Collection(ticketsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error finding tickets: %w", err)
	}

	tickets := make([]*entities.Ticket, 0)
	if err := cur.All(ctx, &tickets); err != nil {
		return nil, fmt.Errorf("error decoding tickets: %w", err)
	}
	return tickets, nil
}
