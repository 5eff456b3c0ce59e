// Package database opens the shop store file, validates it against the schema
// catalog, and owns the whole-store maintenance operations.
package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/swapnilkulkarni99salesforce/mobileAppDemo/internal/invalidation"
	"github.com/swapnilkulkarni99salesforce/mobileAppDemo/internal/records"
	"github.com/swapnilkulkarni99salesforce/mobileAppDemo/internal/schema"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Options configures Open.
type Options struct {
	// Path is the SQLite file, or any DSN the driver accepts.
	Path string
	// ResetOnMismatch drops and recreates the tables instead of failing when
	// the catalog does not carry the expected identity hash.
	ResetOnMismatch bool
	Bus             *invalidation.Bus
	Logger          *zap.Logger
}

// Store is an open shop database together with its repositories.
type Store struct {
	DB           *gorm.DB
	Bus          *invalidation.Bus
	Repositories *records.Repositories

	path      string
	logger    *zap.Logger
	recreated bool
}

var errMissingPath = errors.New("database path is required")

// Open opens or creates the store at opts.Path. A new file receives the full
// schema and the catalog stamp; an existing file must already carry the
// expected identity hash, otherwise Open fails with a SchemaMismatch error
// unless opts.ResetOnMismatch is set.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if strings.TrimSpace(opts.Path) == "" {
		return nil, records.NewError(records.KindStorageFailure, "database.open", errMissingPath)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	bus := opts.Bus
	if bus == nil {
		bus = invalidation.NewBus(nil)
	}

	db, err := gorm.Open(sqlite.Open(withForeignKeys(opts.Path)), &gorm.Config{
		TranslateError: true,
		PrepareStmt:    true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, records.NewError(records.KindStorageFailure, "database.open", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, records.NewError(records.KindStorageFailure, "database.open", err)
	}
	sqlDB.SetMaxOpenConns(1)

	closeOnError := func(cause error) (*Store, error) {
		_ = sqlDB.Close()
		return nil, cause
	}

	if err := db.WithContext(ctx).Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return closeOnError(records.NewError(records.KindStorageFailure, "database.open", err))
	}

	repos, err := records.New(records.Config{Database: db, Bus: bus, Logger: logger})
	if err != nil {
		return closeOnError(err)
	}

	store := &Store{
		DB:           db,
		Bus:          bus,
		Repositories: repos,
		path:         opts.Path,
		logger:       logger,
	}

	if err := store.ensureCatalog(ctx, opts.ResetOnMismatch); err != nil {
		return closeOnError(err)
	}

	logger.Info("database initialized", zap.String("path", opts.Path))
	return store, nil
}

// Path returns the location the store was opened from.
func (s *Store) Path() string {
	return s.path
}

// Recreated reports whether Open created the schema, either in a new file or
// by resetting an incompatible one. Any state kept outside the file about its
// contents is stale in that case.
func (s *Store) Recreated() bool {
	return s.recreated
}

// Close releases the prepared statements and the connection.
func (s *Store) Close() error {
	if prepared, ok := s.DB.ConnPool.(*gorm.PreparedStmtDB); ok {
		prepared.Close()
	}
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// WipeAll deletes every row of every data table in one transaction with
// foreign-key checks deferred to commit, then checkpoints and compacts the
// file. Observers of every table are notified.
func (s *Store) WipeAll(ctx context.Context) error {
	err := s.Repositories.Maintain(ctx, "database.wipe_all", schema.Tables, func(tx *gorm.DB) error {
		if err := tx.Exec("PRAGMA defer_foreign_keys = TRUE").Error; err != nil {
			return err
		}
		for _, table := range schema.Tables {
			if err := tx.Exec("DELETE FROM `" + table + "`").Error; err != nil {
				return fmt.Errorf("delete %s: %w", table, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	err = s.Repositories.Locked(ctx, "database.checkpoint", func(db *gorm.DB) error {
		if err := db.Exec("PRAGMA wal_checkpoint(FULL)").Error; err != nil {
			return err
		}
		return db.Exec("VACUUM").Error
	})
	if err != nil {
		return err
	}
	s.logger.Info("database wiped", zap.String("path", s.path))
	return nil
}

// Reset drops and recreates every data table and re-stamps the catalog.
// Observers of every table are notified so live queries refresh.
func (s *Store) Reset(ctx context.Context) error {
	if err := s.Repositories.Maintain(ctx, "database.reset", schema.Tables, recreate); err != nil {
		return err
	}
	s.logger.Warn("database reset", zap.String("path", s.path))
	return nil
}

// Counts returns the number of rows in each data table.
func (s *Store) Counts(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64, len(schema.Tables))
	for _, table := range schema.Tables {
		var count int64
		if err := s.DB.WithContext(ctx).Table(table).Count(&count).Error; err != nil {
			return nil, records.NewError(records.KindOf(err), "database.counts", err)
		}
		counts[table] = count
	}
	return counts, nil
}

func recreate(tx *gorm.DB) error {
	for _, statement := range schema.DropStatements() {
		if err := tx.Exec(statement).Error; err != nil {
			return err
		}
	}
	return create(tx)
}

func create(tx *gorm.DB) error {
	for _, statement := range schema.CreateStatements() {
		if err := tx.Exec(statement).Error; err != nil {
			return err
		}
	}
	return tx.Exec(schema.StampStatement()).Error
}

// withForeignKeys asks the driver to enable foreign keys on every connection
// it opens, so the pragma survives a reconnect.
func withForeignKeys(path string) string {
	const pragma = "_pragma=foreign_keys(1)"
	if strings.Contains(path, pragma) {
		return path
	}
	if strings.Contains(path, "?") {
		return path + "&" + pragma
	}
	return path + "?" + pragma
}
