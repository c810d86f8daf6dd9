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
	typeDalName = "type_dal"

	typesCollection = "ticket_types"
)

type typeDal struct {
	l  *slog.Logger
	db *mongo.Database
}

// NewTypeDal creates a new Mongo backed ticket type registry.
func NewTypeDal(l *slog.Logger, db *mongo.Database) TypeDal {
	return &typeDal{
		l:  l.With(slog.String(logging.KeyDal, typeDalName)),
		db: db,
	}
}

func (d *typeDal) UpsertType(ctx context.Context, tt *entities.TicketType) error {
	t := monitoring.MongoTimer(typeDalName, "upsert_type", d.db.Name(), typesCollection)
	defer t.ObserveDuration()

	tt.UpdatedAt = time.Now().UTC()

	opts := options.Update().SetUpsert(true)
	_, err := d.db.Collection(typesCollection).UpdateOne(ctx,
		bson.M{"guild_id": tt.GuildID, "slug": tt.Slug},
		bson.M{"$set": tt},
		opts,
	)
	if err != nil {
		return fmt.Errorf("error upserting ticket type: %w", err)
	}
	return nil
}

func (d *typeDal) DeleteType(ctx context.Context, guildID, slug string) (bool, error) {
	t := monitoring.MongoTimer(typeDalName, "delete_type", d.db.Name(), typesCollection)
	defer t.ObserveDuration()

	res, err := d.db.Collection(typesCollection).DeleteOne(ctx, bson.M{"guild_id": guildID, "slug": slug})
	if err != nil {
		return false, fmt.Errorf("error deleting ticket type: %w", err)
	}
	return res.DeletedCount > 0, nil
}

func (d *typeDal) ListTypes(ctx context.Context, guildID string) ([]*entities.TicketType, error) {
	t := monitoring.MongoTimer(typeDalName, "list_types", d.db.Name(), typesCollection)
	defer t.ObserveDuration()

	cur, err := d.db.Collection(typesCollection).Find(ctx, bson.M{"guild_id": guildID})
	if err != nil {
		return nil, fmt.Errorf("error listing ticket types: %w", err)
	}

	types := make([]*entities.TicketType, 0)
	if err := cur.All(ctx, &types); err != nil {
		return nil, fmt.Errorf("error decoding ticket types: %w", err)
	}

	SortTypes(types)
	return types, nil
}

func (d *typeDal) GetType(ctx context.Context, guildID, slug string) (*entities.TicketType, error) {
	t := monitoring.MongoTimer(typeDalName, "get_type", d.db.Name(), typesCollection)
	defer t.ObserveDuration()

	tt := new(entities.TicketType)
	err := d.db.Collection(typesCollection).FindOne(ctx, bson.M{"guild_id": guildID, "slug": slug}).Decode(tt)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("error getting ticket type: %w", err)
	}
	return tt, nil
}
