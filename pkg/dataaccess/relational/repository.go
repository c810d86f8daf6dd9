// Package relational implements the data access layers on gorm for Postgres and SQLite.
package relational

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Jacobbrewer1/ticketwolf/pkg/dataaccess"
	"github.com/Jacobbrewer1/ticketwolf/pkg/entities"
	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	// DialectPostgres selects the Postgres driver.
	DialectPostgres = "postgres"

	// DialectSQLite selects the pure Go SQLite driver.
	DialectSQLite = "sqlite"
)

type repository struct {
	db       *gorm.DB
	settings dataaccess.SettingsDal
	types    dataaccess.TypeDal
	tickets  dataaccess.TicketDal
}

// Open connects to a relational database and returns a repository on top of it.
func Open(l *slog.Logger, dialect, dsn string) (dataaccess.Repository, error) {
	var d gorm.Dialector
	switch dialect {
	case DialectPostgres:
		d = postgres.Open(dsn)
	case DialectSQLite:
		d = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported sql dialect %q", dialect)
	}

	db, err := gorm.Open(d, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("error opening %s database: %w", dialect, err)
	}

	if dialect == DialectSQLite {
		// SQLite serializes writers; a single connection also keeps in-memory databases alive.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("error getting sql handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return &repository{
		db:       db,
		settings: &settingsDal{l: l.With(slog.String("dal", "settings_dal")), db: db, dialect: dialect},
		types:    &typeDal{db: db, dialect: dialect},
		tickets:  &ticketDal{l: l.With(slog.String("dal", "ticket_dal")), db: db, dialect: dialect},
	}, nil
}

func (r *repository) Settings() dataaccess.SettingsDal { return r.settings }

func (r *repository) Types() dataaccess.TypeDal { return r.types }

func (r *repository) Tickets() dataaccess.TicketDal { return r.tickets }

func (r *repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *repository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(
		&entities.Settings{},
		&entities.TicketType{},
		&entities.Ticket{},
	); err != nil {
		return fmt.Errorf("error migrating schema: %w", err)
	}
	return nil
}

func (r *repository) Close(_ context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// isDuplicate reports whether err is a unique constraint violation.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
