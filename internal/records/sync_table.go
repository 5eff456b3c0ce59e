package records

import (
	"context"

	"gorm.io/gorm"
)

const (
	queryID               = "id = ?"
	queryServerID         = "serverId = ?"
	querySyncStatus       = "syncStatus = ?"
	querySyncStatusIn     = "syncStatus IN ?"
	queryModifiedAfter    = "lastModified > ?"
	orderIDAsc            = "id ASC"
	columnSyncStatus      = "syncStatus"
	columnServerID        = "serverId"
	columnLastModified    = "lastModified"
	reasonSyncStatus      = "update_sync_status"
	reasonServerInfo      = "update_server_info"
	reasonGetByID         = "get_by_id"
	reasonGetByServerID   = "get_by_server_id"
	reasonGetBySyncStatus = "get_by_sync_status"
	reasonGetUnsynced     = "get_unsynced"
	reasonModifiedAfter   = "get_modified_after"
)

// syncRow is satisfied by every entity that carries the sync trailer.
type syncRow interface {
	Customer | Measurement | Order
}

// syncTable implements the selectors and sync-state mutators that are
// identical across the synchronizable tables.
type syncTable[T syncRow] struct {
	exec  *executor
	table string
}

func (t syncTable[T]) op(reason string) string {
	return t.table + "." + reason
}

// GetByID returns the row with id, or nil when absent.
func (t syncTable[T]) GetByID(ctx context.Context, id int64) (*T, error) {
	return first[T](ctx, t.exec, t.op(reasonGetByID), func(db *gorm.DB) *gorm.DB {
		return db.Where(queryID, id)
	})
}

// GetByServerID returns the row the remote knows as serverID, or nil.
func (t syncTable[T]) GetByServerID(ctx context.Context, serverID string) (*T, error) {
	return first[T](ctx, t.exec, t.op(reasonGetByServerID), func(db *gorm.DB) *gorm.DB {
		return db.Where(queryServerID, serverID).Order(orderIDAsc)
	})
}

// GetBySyncStatus returns rows in status, in id order.
func (t syncTable[T]) GetBySyncStatus(ctx context.Context, status SyncStatus) ([]T, error) {
	return t.list(ctx, t.op(reasonGetBySyncStatus), func(db *gorm.DB) *gorm.DB {
		return db.Where(querySyncStatus, string(status)).Order(orderIDAsc)
	})
}

// GetUnsynced returns rows that are PENDING or FAILED, in id order.
func (t syncTable[T]) GetUnsynced(ctx context.Context) ([]T, error) {
	return t.list(ctx, t.op(reasonGetUnsynced), func(db *gorm.DB) *gorm.DB {
		return db.Where(querySyncStatusIn, []string{string(SyncPending), string(SyncFailed)}).Order(orderIDAsc)
	})
}

// GetByStatuses returns rows in any of statuses, in id order, at most limit
// rows when limit is positive.
func (t syncTable[T]) GetByStatuses(ctx context.Context, statuses []SyncStatus, limit int) ([]T, error) {
	values := make([]string, 0, len(statuses))
	for _, status := range statuses {
		values = append(values, string(status))
	}
	return t.list(ctx, t.op(reasonGetBySyncStatus), func(db *gorm.DB) *gorm.DB {
		query := db.Where(querySyncStatusIn, values).Order(orderIDAsc)
		if limit > 0 {
			query = query.Limit(limit)
		}
		return query
	})
}

// GetModifiedAfter returns rows whose lastModified is strictly greater than
// timestamp, in id order.
func (t syncTable[T]) GetModifiedAfter(ctx context.Context, timestamp int64) ([]T, error) {
	return t.list(ctx, t.op(reasonModifiedAfter), func(db *gorm.DB) *gorm.DB {
		return db.Where(queryModifiedAfter, timestamp).Order(orderIDAsc)
	})
}

// UpdateSyncStatus changes only the sync state; lastModified is untouched.
func (t syncTable[T]) UpdateSyncStatus(ctx context.Context, id int64, status SyncStatus) error {
	operation := t.op(reasonSyncStatus)
	return t.exec.write(ctx, operation, []string{t.table}, func(tx *gorm.DB) (int64, error) {
		rows, err := checked(tx.Model(new(T)).Where(queryID, id).Update(columnSyncStatus, string(status)))
		if err != nil {
			return 0, err
		}
		if rows == 0 {
			return 0, notFound(operation, id)
		}
		return rows, nil
	})
}

// UpdateServerInfo records a remote acknowledgment: the server id, the new
// state, and the server's timestamp as lastModified.
func (t syncTable[T]) UpdateServerInfo(ctx context.Context, id int64, serverID string, status SyncStatus, timestamp int64) error {
	operation := t.op(reasonServerInfo)
	return t.exec.write(ctx, operation, []string{t.table}, func(tx *gorm.DB) (int64, error) {
		rows, err := checked(tx.Model(new(T)).Where(queryID, id).Updates(map[string]any{
			columnServerID:     serverID,
			columnSyncStatus:   string(status),
			columnLastModified: timestamp,
		}))
		if err != nil {
			return 0, err
		}
		if rows == 0 {
			return 0, notFound(operation, id)
		}
		return rows, nil
	})
}

// AcknowledgeIfUnchanged applies UpdateServerInfo only while the row's
// lastModified still equals inFlight. It reports whether the row was updated.
func (t syncTable[T]) AcknowledgeIfUnchanged(ctx context.Context, id int64, inFlight int64, serverID string, status SyncStatus, timestamp int64) (bool, error) {
	operation := t.op(reasonServerInfo)
	applied := false
	err := t.exec.write(ctx, operation, []string{t.table}, func(tx *gorm.DB) (int64, error) {
		rows, err := checked(tx.Model(new(T)).
			Where(queryID+" AND "+columnLastModified+" = ?", id, inFlight).
			Updates(map[string]any{
				columnServerID:     serverID,
				columnSyncStatus:   string(status),
				columnLastModified: timestamp,
			}))
		applied = rows > 0
		return rows, err
	})
	return applied, err
}

// MarkIfUnchanged sets status only while lastModified still equals inFlight.
func (t syncTable[T]) MarkIfUnchanged(ctx context.Context, id int64, inFlight int64, status SyncStatus) (bool, error) {
	operation := t.op(reasonSyncStatus)
	applied := false
	err := t.exec.write(ctx, operation, []string{t.table}, func(tx *gorm.DB) (int64, error) {
		rows, err := checked(tx.Model(new(T)).
			Where(queryID+" AND "+columnLastModified+" = ?", id, inFlight).
			Update(columnSyncStatus, string(status)))
		applied = rows > 0
		return rows, err
	})
	return applied, err
}

// Count returns the number of rows in the table.
func (t syncTable[T]) Count(ctx context.Context) (int64, error) {
	var count int64
	err := t.exec.read(ctx, t.op("count"), func(db *gorm.DB) *gorm.DB {
		return db.Model(new(T)).Count(&count)
	})
	return count, err
}

// CountByStatuses returns how many rows are in any of statuses.
func (t syncTable[T]) CountByStatuses(ctx context.Context, statuses []SyncStatus) (int64, error) {
	values := make([]string, 0, len(statuses))
	for _, status := range statuses {
		values = append(values, string(status))
	}
	var count int64
	err := t.exec.read(ctx, t.op("count_by_status"), func(db *gorm.DB) *gorm.DB {
		return db.Model(new(T)).Where(querySyncStatusIn, values).Count(&count)
	})
	return count, err
}

func (t syncTable[T]) list(ctx context.Context, operation string, query func(db *gorm.DB) *gorm.DB) ([]T, error) {
	rows := make([]T, 0)
	err := t.exec.read(ctx, operation, func(db *gorm.DB) *gorm.DB {
		return query(db).Find(&rows)
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}
