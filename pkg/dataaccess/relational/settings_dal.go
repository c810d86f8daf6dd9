package relational

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Jacobbrewer1/ticketwolf/pkg/dataaccess/monitoring"
	"github.com/Jacobbrewer1/ticketwolf/pkg/entities"
	"gorm.io/gorm"
)

const settingsDalName = "settings_dal"

type settingsDal struct {
	l       *slog.Logger
	db      *gorm.DB
	dialect string
}

func (d *settingsDal) GetSettings(ctx context.Context, guildID string) (*entities.Settings, error) {
	t := monitoring.SQLTimer(settingsDalName, "get_settings", d.dialect, "settings")
	defer t.ObserveDuration()

	s := new(entities.Settings)
	err := d.db.WithContext(ctx).Where("guild_id = ?", guildID).Take(s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
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

	t := monitoring.SQLTimer(settingsDalName, "upsert_settings", d.dialect, "settings")
	defer t.ObserveDuration()

	s := new(entities.Settings)
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("guild_id = ?", guildID).Take(s).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			s = entities.DefaultSettings(guildID)
			patch.Apply(s)
			s.UpdatedAt = time.Now().UTC()
			return tx.Create(s).Error
		case err != nil:
			return err
		}

		patch.Apply(s)
		s.UpdatedAt = time.Now().UTC()
		return tx.Save(s).Error
	})
	if err != nil {
		return nil, fmt.Errorf("error upserting settings: %w", err)
	}
	return s, nil
}

func (d *settingsDal) ListAutoClose(ctx context.Context) ([]*entities.Settings, error) {
	t := monitoring.SQLTimer(settingsDalName, "list_auto_close", d.dialect, "settings")
	defer t.ObserveDuration()

	settings := make([]*entities.Settings, 0)
	if err := d.db.WithContext(ctx).Where("auto_close_minutes > ?", 0).Find(&settings).Error; err != nil {
		return nil, fmt.Errorf("error listing auto close settings: %w", err)
	}
	return settings, nil
}
