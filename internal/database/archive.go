package database

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Archive wraps the gorm connection backing the archive store.
type Archive struct {
	db *gorm.DB
}

// OpenArchive opens the SQLite archive database and migrates the given models.
func OpenArchive(dsn string, models ...any) (*Archive, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open archive database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get archive connection: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps ":memory:" databases shared.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(models...); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate archive database: %w", err)
	}

	slog.Info("database connected", "store", "archive", "dsn", dsn)

	return &Archive{db: db}, nil
}

// DB returns the gorm handle.
func (a *Archive) DB() *gorm.DB {
	return a.db
}

// Ping checks that the archive database is reachable.
func (a *Archive) Ping(ctx context.Context) error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return fmt.Errorf("get archive connection: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the archive database.
func (a *Archive) Close() {
	sqlDB, err := a.db.DB()
	if err != nil {
		slog.Error("failed to get archive connection", "error", err)
		return
	}
	if err := sqlDB.Close(); err != nil {
		slog.Error("failed to close archive database", "error", err)
		return
	}
	slog.Info("database connection closed", "store", "archive")
}
