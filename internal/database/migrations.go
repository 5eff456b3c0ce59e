package database

import (
	"context"
	"fmt"

	"github.com/swapnilkulkarni99salesforce/mobileAppDemo/internal/records"
	"github.com/swapnilkulkarni99salesforce/mobileAppDemo/internal/schema"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrSchemaMismatch matches, through errors.Is, the error Open returns when
// the file's catalog does not carry the expected identity hash.
var ErrSchemaMismatch = records.ErrSchemaMismatch

// HashMismatchError describes the catalog found in an incompatible file.
// Found is empty when the catalog row or table is missing.
type HashMismatchError struct {
	Expected string
	Found    string
}

func (e *HashMismatchError) Error() string {
	if e.Found == "" {
		return fmt.Sprintf("catalog row %d missing, expected identity hash %s", schema.CatalogRowID, e.Expected)
	}
	return fmt.Sprintf("identity hash %s does not match expected %s", e.Found, e.Expected)
}

type catalogRecord struct {
	ID           int64  `gorm:"column:id;primaryKey"`
	IdentityHash string `gorm:"column:identity_hash"`
}

func (catalogRecord) TableName() string {
	return schema.TableCatalog
}

func (s *Store) ensureCatalog(ctx context.Context, resetOnMismatch bool) error {
	fresh, err := isEmptyFile(ctx, s.DB)
	if err != nil {
		return records.NewError(records.KindOf(err), "database.open", err)
	}
	if fresh {
		if err := s.Repositories.Maintain(ctx, "database.create", schema.Tables, create); err != nil {
			return err
		}
		s.recreated = true
		s.logger.Info("database schema created", zap.String("identity_hash", schema.IdentityHash))
		return nil
	}

	found, err := readIdentityHash(ctx, s.DB)
	if err != nil {
		return records.NewError(records.KindOf(err), "database.open", err)
	}
	if found == schema.IdentityHash {
		return nil
	}

	mismatch := &HashMismatchError{Expected: schema.IdentityHash, Found: found}
	s.logger.Debug("expected schema", zap.String("ddl", schema.CanonicalText()))
	if !resetOnMismatch {
		s.logger.Error("database schema mismatch",
			zap.String("expected", mismatch.Expected),
			zap.String("found", mismatch.Found))
		return records.NewError(records.KindSchemaMismatch, "database.open", mismatch)
	}
	s.logger.Warn("database schema mismatch, resetting",
		zap.String("expected", mismatch.Expected),
		zap.String("found", mismatch.Found))
	if err := s.Reset(ctx); err != nil {
		return err
	}
	s.recreated = true
	return nil
}

// isEmptyFile reports whether the file holds no tables at all.
func isEmptyFile(ctx context.Context, db *gorm.DB) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Raw("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'").
		Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count == 0, nil
}

// readIdentityHash returns the stamped hash, or "" when the catalog table or
// row is absent.
func readIdentityHash(ctx context.Context, db *gorm.DB) (string, error) {
	if !db.WithContext(ctx).Migrator().HasTable(schema.TableCatalog) {
		return "", nil
	}
	var rows []catalogRecord
	err := db.WithContext(ctx).Where("id = ?", schema.CatalogRowID).Limit(1).Find(&rows).Error
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", nil
	}
	return rows[0].IdentityHash, nil
}
