package dataaccess

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoRepository struct {
	client   *mongo.Client
	db       *mongo.Database
	settings SettingsDal
	types    TypeDal
	tickets  TicketDal
}

// NewMongoRepository creates a repository on top of a connected client.
func NewMongoRepository(l *slog.Logger, client *mongo.Client, database string) Repository {
	if database == "" {
		database = DefaultMongoDatabase
	}

	db := client.Database(database)
	return &mongoRepository{
		client:   client,
		db:       db,
		settings: NewSettingsDal(l, db),
		types:    NewTypeDal(l, db),
		tickets:  NewTicketDal(l, db),
	}
}

func (r *mongoRepository) Settings() SettingsDal { return r.settings }

func (r *mongoRepository) Types() TypeDal { return r.types }

func (r *mongoRepository) Tickets() TicketDal { return r.tickets }

func (r *mongoRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, nil)
}

func (r *mongoRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

// Migrate creates the indexes the data access layers rely on.
func (r *mongoRepository) Migrate(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		settingsCollection: {
			{Keys: bson.D{{Key: "guild_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "auto_close_minutes", Value: 1}}},
		},
		typesCollection: {
			{Keys: bson.D{{Key: "guild_id", Value: 1}, {Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		ticketsCollection: {
			{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "channel_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "guild_id", Value: 1}, {Key: "user_id", Value: 1}, {Key: "id", Value: -1}}},
			{Keys: bson.D{{Key: "guild_id", Value: 1}, {Key: "status", Value: 1}, {Key: "last_activity_at", Value: 1}}},
		},
	}

	for collection, models := range indexes {
		if _, err := r.db.Collection(collection).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("error creating indexes on %s: %w", collection, err)
		}
	}
	return nil
}
