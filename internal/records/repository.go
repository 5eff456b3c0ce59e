package records

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/swapnilkulkarni99salesforce/mobileAppDemo/internal/invalidation"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var noOpLogger = zap.NewNop()

// Config describes the dependencies shared by every repository.
type Config struct {
	Database *gorm.DB
	Bus      *invalidation.Bus
	Logger   *zap.Logger
}

// Repositories bundles the typed repositories over one store.
type Repositories struct {
	Customers       *Customers
	Measurements    *Measurements
	Orders          *Orders
	WorkloadConfigs *WorkloadConfigs

	exec *executor
}

var errMissingDatabase = errors.New("database handle is required")

// New constructs all repositories over cfg.Database. Writes through any of
// them are serialized by one writer lock and published on cfg.Bus.
func New(cfg Config) (*Repositories, error) {
	if cfg.Database == nil {
		return nil, &Error{Kind: KindStorageFailure, Operation: "records.new", Err: errMissingDatabase}
	}
	bus := cfg.Bus
	if bus == nil {
		bus = invalidation.NewBus(nil)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	exec := &executor{
		db:      cfg.Database,
		bus:     bus,
		logger:  logger,
		writeMu: &sync.Mutex{},
	}
	return &Repositories{
		Customers:       newCustomers(exec),
		Measurements:    newMeasurements(exec),
		Orders:          newOrders(exec),
		WorkloadConfigs: newWorkloadConfigs(exec),
		exec:            exec,
	}, nil
}

// Maintain runs apply in one transaction under the same writer lock as the
// repositories and, after commit, notifies observers of tables regardless of
// how many rows changed. It serves whole-store operations such as wipe and
// reset.
func (r *Repositories) Maintain(ctx context.Context, operation string, tables []string, apply func(tx *gorm.DB) error) error {
	return r.exec.write(ctx, operation, tables, func(tx *gorm.DB) (int64, error) {
		if err := apply(tx); err != nil {
			return 0, err
		}
		return 1, nil
	})
}

// Locked runs fn while holding the writer lock, outside any transaction.
// Statements that SQLite refuses inside a transaction, such as VACUUM, go here.
func (r *Repositories) Locked(ctx context.Context, operation string, fn func(db *gorm.DB) error) error {
	if err := ctx.Err(); err != nil {
		return r.exec.fail(operation, "", err)
	}
	r.exec.writeMu.Lock()
	defer r.exec.writeMu.Unlock()
	if err := fn(r.exec.db.WithContext(ctx)); err != nil {
		return r.exec.fail(operation, "", err)
	}
	return nil
}

// executor runs repository statements. Every write is a single transaction;
// the bus is told about it only after commit.
type executor struct {
	db      *gorm.DB
	bus     *invalidation.Bus
	logger  *zap.Logger
	writeMu *sync.Mutex
}

// writeFunc applies a write inside tx and reports how many rows it changed.
type writeFunc func(tx *gorm.DB) (int64, error)

func (e *executor) write(ctx context.Context, operation string, tables []string, apply writeFunc) error {
	if err := ctx.Err(); err != nil {
		return e.fail(operation, "", err)
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	var changed int64
	txErr := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := apply(tx)
		if err != nil {
			return err
		}
		changed = rows
		return nil
	})
	if txErr != nil {
		return e.fail(operation, "", txErr)
	}
	if changed > 0 {
		e.bus.Publish(tables...)
	}
	return nil
}

func (e *executor) read(ctx context.Context, operation string, query func(db *gorm.DB) *gorm.DB) error {
	result := query(e.db.WithContext(ctx))
	if result.Error != nil {
		return e.fail(operation, lastStatement(result), result.Error)
	}
	return nil
}

// first runs query with Take semantics and maps a missing row to (nil, nil).
func first[T any](ctx context.Context, e *executor, operation string, query func(db *gorm.DB) *gorm.DB) (*T, error) {
	var row T
	result := query(e.db.WithContext(ctx)).Limit(1).Find(&row)
	if result.Error != nil {
		return nil, e.fail(operation, lastStatement(result), result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &row, nil
}

func (e *executor) fail(operation, statement string, cause error) error {
	var storeErr *Error
	if !errors.As(cause, &storeErr) {
		var failed *statementError
		if statement == "" && errors.As(cause, &failed) {
			statement = failed.statement
		}
		storeErr = newError(operation, statement, cause)
	}
	if storeErr.Kind != KindCanceled {
		e.logger.Error("records operation failed",
			zap.String("operation", storeErr.Operation),
			zap.String("reason", string(storeErr.Kind)),
			zap.String("statement", storeErr.Statement),
			zap.Error(storeErr.Err))
	}
	return storeErr
}

// statementError remembers which statement failed inside a transaction.
type statementError struct {
	statement string
	err       error
}

func (e *statementError) Error() string {
	return e.err.Error()
}

func (e *statementError) Unwrap() error {
	return e.err
}

// checked converts a finished gorm call into (rows affected, error), keeping
// the failing SQL for diagnostics.
func checked(result *gorm.DB) (int64, error) {
	if result.Error != nil {
		return 0, &statementError{statement: lastStatement(result), err: result.Error}
	}
	return result.RowsAffected, nil
}

func notFound(operation string, id int64) error {
	return &Error{Kind: KindNotFound, Operation: operation, Err: errRowMissing(id)}
}

type errRowMissing int64

func (id errRowMissing) Error() string {
	return "no row with id " + strconv.FormatInt(int64(id), 10)
}

func lastStatement(tx *gorm.DB) string {
	if tx == nil || tx.Statement == nil {
		return ""
	}
	return tx.Statement.SQL.String()
}

// clampLastModified keeps lastModified non-decreasing across local updates.
// It reports false when no row with id exists.
func clampLastModified(tx *gorm.DB, table string, id int64, trailer *SyncTrailer) (bool, error) {
	var current []int64
	result := tx.Table(table).Where(queryID, id).Pluck(columnLastModified, &current)
	if result.Error != nil {
		return false, &statementError{statement: lastStatement(result), err: result.Error}
	}
	if len(current) == 0 {
		return false, nil
	}
	if trailer.LastModified < current[0] {
		trailer.LastModified = current[0]
	}
	return true, nil
}
