// Package store manages the arcbot database layer.
// It initializes GORM with SQLite and exposes the per-guild configuration
// read path. Rows are written by an administrative path outside this module.
package store

import (
	"context"
	"fmt"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	arcerrors "github.com/vesaa/arcbot/internal/errors"
	"github.com/vesaa/arcbot/internal/models"
)

// Options configures Open.
type Options struct {
	Driver       string // "sqlite" or ""
	DSN          string // file path for sqlite
	MaxOpenConns int
}

// DB wraps the gorm handle. The underlying database/sql pool hands out one
// connection per query and returns it when the query finishes, on success
// and on error alike.
type DB struct {
	gorm *gorm.DB
	log  *zap.Logger
}

// Open opens the database, sizes the pool and runs AutoMigrate for the
// prefixes table.
func Open(opts Options, log *zap.Logger) (*DB, error) {
	var dialector gorm.Dialector
	switch opts.Driver {
	case "sqlite", "":
		dialector = sqlite.Open(opts.DSN)
	default:
		return nil, fmt.Errorf("unsupported db_driver %q (use 'sqlite')", opts.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("obtaining connection pool: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
		sqlDB.SetMaxIdleConns(opts.MaxOpenConns)
	}

	if err := db.AutoMigrate(&models.GuildPrefix{}); err != nil {
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}

	if log == nil {
		log = zap.NewNop()
	}
	log.Info("database opened", zap.String("driver", opts.Driver), zap.String("dsn", opts.DSN))
	return &DB{gorm: db, log: log}, nil
}

// Gorm exposes the underlying handle for fixtures and the admin path.
func (d *DB) Gorm() *gorm.DB { return d.gorm }

// Close releases the connection pool.
func (d *DB) Close() error {
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GuildPrefix reads the prefix row for guildID with a single equality query.
// found is false when no row exists. A row whose prefix column is NULL is
// returned with found == true and a nil prefix; callers decide what that means.
func (d *DB) GuildPrefix(ctx context.Context, guildID int64) (prefix *string, found bool, err error) {
	var rows []models.GuildPrefix
	res := d.gorm.WithContext(ctx).
		Where("guild_id = ?", guildID).
		Limit(1).
		Find(&rows)
	if res.Error != nil {
		return nil, false, arcerrors.WrapWithContext(arcerrors.ErrCodeStoreQueryFailure,
			"querying guild prefix", res.Error, map[string]any{"guild_id": guildID})
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	return rows[0].Prefix, true, nil
}
