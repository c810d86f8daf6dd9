package relational

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Jacobbrewer1/ticketwolf/pkg/dataaccess"
	"github.com/Jacobbrewer1/ticketwolf/pkg/dataaccess/monitoring"
	"github.com/Jacobbrewer1/ticketwolf/pkg/entities"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const typeDalName = "type_dal"

type typeDal struct {
	db      *gorm.DB
	dialect string
}

func (d *typeDal) UpsertType(ctx context.Context, tt *entities.TicketType) error {
	t := monitoring.SQLTimer(typeDalName, "upsert_type", d.dialect, "ticket_types")
	defer t.ObserveDuration()

	tt.UpdatedAt = time.Now().UTC()

	err := d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "guild_id"}, {Name: "slug"}},
		UpdateAll: true,
	}).Create(tt).Error
	if err != nil {
		return fmt.Errorf("error upserting ticket type: %w", err)
	}
	return nil
}

func (d *typeDal) DeleteType(ctx context.Context, guildID, slug string) (bool, error) {
	t := monitoring.SQLTimer(typeDalName, "delete_type", d.dialect, "ticket_types")
	defer t.ObserveDuration()

	res := d.db.WithContext(ctx).
		Where("guild_id = ? AND slug = ?", guildID, slug).
		Delete(&entities.TicketType{})
	if res.Error != nil {
		return false, fmt.Errorf("error deleting ticket type: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (d *typeDal) ListTypes(ctx context.Context, guildID string) ([]*entities.TicketType, error) {
	t := monitoring.SQLTimer(typeDalName, "list_types", d.dialect, "ticket_types")
	defer t.ObserveDuration()

	types := make([]*entities.TicketType, 0)
	if err := d.db.WithContext(ctx).Where("guild_id = ?", guildID).Find(&types).Error; err != nil {
		return nil, fmt.Errorf("error listing ticket types: %w", err)
	}

	dataaccess.SortTypes(types)
	return types, nil
}

func (d *typeDal) GetType(ctx context.Context, guildID, slug string) (*entities.TicketType, error) {
	t := monitoring.SQLTimer(typeDalName, "get_type", d.dialect, "ticket_types")
	defer t.ObserveDuration()

	tt := new(entities.TicketType)
	err := d.db.WithContext(ctx).Where("guild_id = ? AND slug = ?", guildID, slug).Take(tt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, dataaccess.ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("error getting ticket type: %w", err)
	}
	return tt, nil
}
