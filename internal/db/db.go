package db

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"ordermgr/internal/config"
	"ordermgr/internal/model"
)

const (
	maxIdleConns    = 5
	maxOpenConns    = 7
	connMaxLifetime = 300 * time.Second

	slowQueryThreshold = 200 * time.Millisecond
)

// Open connects to the backend selected by cfg.Driver.
func Open(cfg config.DBConfig, log zerolog.Logger) (*gorm.DB, error) {
	switch cfg.Driver {
	case config.DriverMySQL:
		return NewMySQL(cfg.MySQLConnString(), log)
	case config.DriverPostgres:
		return NewPostgres(cfg.DatabaseURL, log)
	case config.DriverSQLite:
		log.Warn().Str("path", cfg.SQLitePath).Msg("using SQLite database; data is not shared across instances")
		return NewSQLite(cfg.SQLitePath, log)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Driver)
	}
}

// Migrate creates or updates the application tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.User{}, &model.Order{}); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// Reset drops every application table.
func Reset(db *gorm.DB) error {
	for _, table := range []interface{}{&model.Order{}, &model.User{}} {
		if err := db.Migrator().DropTable(table); err != nil {
			return fmt.Errorf("drop table: %w", err)
		}
	}
	return nil
}

func gormConfig(log zerolog.Logger) *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		Logger: gormlogger.New(gormWriter{log: log.With().Str("component", "gorm").Logger()}, gormlogger.Config{
			SlowThreshold:             slowQueryThreshold,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	}
}

// gormWriter feeds GORM's warnings, errors and slow queries into zerolog.
type gormWriter struct {
	log zerolog.Logger
}

func (w gormWriter) Printf(format string, args ...interface{}) {
	w.log.Warn().Msg(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func configurePool(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	return nil
}
