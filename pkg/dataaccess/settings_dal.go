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
	settingsDalName = "settings_dal"

	settingsCollection = "settings"
)

type settingsDal struct {
	// l is the logger.
	l *slog.Logger

	// db is the database.
	db *mongo.Database
}

// NewSettingsDal creates a new Mongo backed settings store.
func NewSettingsDal(l *slog.Logger, db *mongo.Database) SettingsDal {
	return &settingsDal{
		l:  l.With(slog.String(logging.KeyDal, settingsDalName)),
		db: db,
	}
}

func (d *settingsDal) GetSettings(ctx context.Context, guildID string) (*entities.Settings, error) {
	t := monitoring.MongoTimer(settingsDalName, "get_settings", d.db.Name(), settingsCollection)
	defer t.ObserveDuration()

	s := new(entities.Settings)
	err := d.db.Collection(settingsCollection).FindOne(ctx, bson.M{"guild_id": guildID}).Decode(s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return entities.DefaultSettings(guildID), nil
	} else if err != nil {
		return nil, fmt.Errorf("error getting settings: %w", err)
	}
	return s, nil
}

func (d *settingsDal) UpsertSettings(ctx context.Context, guildID string, patch *entities.SettingsPatch) (*entities.Settings, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	set, setOnInsert, err := settingsUpdate(guildID, patch, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	t := monitoring.MongoTimer(settingsDalName, "upsert_settings", d.db.Name(), settingsCollection)
	defer t.ObserveDuration()

	update := bson.M{"$set": set}
	if len(setOnInsert) > 0 {
		update["$setOnInsert"] = setOnInsert
	}

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	s := new(entities.Settings)
	err = d.db.Collection(settingsCollection).FindOneAndUpdate(ctx, bson.M{"guild_id": guildID}, update, opts).Decode(s)
	if err != nil {
		return nil, fmt.Errorf("error upserting settings: %w", err)
	}

	d.l.Debug("Settings updated",
		slog.String(logging.KeyGuild, guildID),
		slog.Int("fields", len(set)-1),
	)
	return s, nil
}

func (d *settingsDal) ListAutoClose(ctx context.Context) ([]*entities.Settings, error) {
	t := monitoring.MongoTimer(settingsDalName, "list_auto_close", d.db.Name(), settingsCollection)
	defer t.ObserveDuration()

	cur, err := d.db.Collection(settingsCollection).Find(ctx, bson.M{"auto_close_minutes": bson.M{"$gt": 0}})
	if err != nil {
		return nil, fmt.Errorf("error listing auto close settings: %w", err)
	}

	settings := make([]*entities.Settings, 0)
	if err := cur.All(ctx, &settings); err != nil {
		return nil, fmt.Errorf("error decoding settings: %w", err)
	}
	return settings, nil
}

// settingsUpdate splits a patch into the fields to always set and the defaults that are only
// written when the upsert inserts a new document. A path may not appear in both.
func settingsUpdate(guildID string, patch *entities.SettingsPatch, now time.Time) (bson.M, bson.M, error) {
	raw, err := bson.Marshal(entities.DefaultSettings(guildID))
	if err != nil {
		return nil, nil, fmt.Errorf("error encoding default settings: %w", err)
	}

	setOnInsert := bson.M{}
	if err := bson.Unmarshal(raw, &setOnInsert); err != nil {
		return nil, nil, fmt.Errorf("error decoding default settings: %w", err)
	}

	// The filter supplies guild_id on insert and updated_at is always set.
	delete(setOnInsert, "guild_id")
	delete(setOnInsert, "updated_at")

	set := bson.M{"updated_at": now}
	for k, v := range patch.Fields() {
		set[k] = v
		delete(setOnInsert, k)
	}

	return set, setOnInsert, nil
}
