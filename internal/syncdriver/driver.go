// Package syncdriver moves rows between the local store and a remote service:
// it uploads rows that need syncing, applies the remote's acknowledgments, and
// merges rows the remote sends back.
package syncdriver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/swapnilkulkarni99salesforce/mobileAppDemo/internal/metrics"
	"github.com/swapnilkulkarni99salesforce/mobileAppDemo/internal/records"
	"github.com/swapnilkulkarni99salesforce/mobileAppDemo/internal/schema"
	"go.uber.org/zap"
)

const (
	opDriverNew    = "syncdriver.new"
	opCollect      = "syncdriver.collect_outbound"
	opRun          = "syncdriver.run"
	opApplyAcks    = "syncdriver.apply_acks"
	opApplyInbound = "syncdriver.apply_inbound"

	// DefaultBatchSize bounds the rows collected per table for one upload.
	DefaultBatchSize = 100
)

var (
	errMissingRepositories = errors.New("repositories are required")
	errMissingRemote       = errors.New("remote is required")
	errBatchMismatch       = errors.New("ack names a different batch")
	noOpLogger             = zap.NewNop()
)

// DriverError carries an operation-qualified code such as
// "syncdriver.run.push_failed".
type DriverError struct {
	code string
	err  error
}

func (e *DriverError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *DriverError) Unwrap() error {
	return e.err
}

func (e *DriverError) Code() string {
	return e.code
}

func newDriverError(operation, reason string, cause error) error {
	return &DriverError{code: operation + "." + reason, err: cause}
}

// Config wires a Driver.
type Config struct {
	Repositories *records.Repositories
	Remote       Remote
	// State keeps the last pull timestamp; an in-memory store is used when nil.
	State      StateStore
	BatchSize  int
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
	Metrics    *metrics.Collectors
}

// Driver runs sync passes. Passes never overlap; a row left SYNCING is
// therefore always the remains of an interrupted pass and is uploaded again.
type Driver struct {
	repos      *records.Repositories
	remote     Remote
	state      StateStore
	batchSize  int
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
	metrics    *metrics.Collectors

	runMu       sync.Mutex
	stateMu     sync.RWMutex
	lastSuccess time.Time
}

// NewDriver validates cfg and applies defaults.
func NewDriver(cfg Config) (*Driver, error) {
	if cfg.Repositories == nil {
		return nil, newDriverError(opDriverNew, "missing_repositories", errMissingRepositories)
	}
	if cfg.Remote == nil {
		return nil, newDriverError(opDriverNew, "missing_remote", errMissingRemote)
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	idProvider := cfg.IDProvider
	if idProvider == nil {
		idProvider = NewUUIDProvider()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	state := cfg.State
	if state == nil {
		state = NewMemoryState()
	}
	return &Driver{
		repos:      cfg.Repositories,
		remote:     cfg.Remote,
		state:      state,
		batchSize:  batchSize,
		clock:      clock,
		idProvider: idProvider,
		logger:     logger,
		metrics:    cfg.Metrics,
	}, nil
}

// LastSuccess returns when the last pass finished without failed rows, or the
// zero time.
func (d *Driver) LastSuccess() time.Time {
	d.stateMu.RLock()
	defer d.stateMu.RUnlock()
	return d.lastSuccess
}

// Run performs one pass: collect, mark SYNCING, push, apply the acks, then
// merge the rows the remote changed since the previous pass and remember the
// remote's timestamp. The push happens even with nothing to upload so that
// remote changes still arrive. A transport failure marks the batch FAILED and
// is returned together with the partial result. Rows edited while the batch
// was in flight keep their new content and stay PENDING for the next pass.
func (d *Driver) Run(ctx context.Context) (Result, error) {
	d.runMu.Lock()
	defer d.runMu.Unlock()

	batch, err := d.CollectOutbound(ctx)
	if err != nil {
		return Result{}, err
	}
	result := newResult(batch.ID)

	inFlight, err := d.markSyncing(ctx, batch, &result)
	if err != nil {
		return result, err
	}
	batch.Rows = inFlight
	if batch.Empty() {
		d.logger.Debug("nothing to upload, pulling remote changes",
			zap.String("batch_id", batch.ID),
			zap.Int64("since", batch.LastSyncTimestamp))
	}

	ack, pushErr := d.remote.Push(ctx, batch)
	if pushErr == nil && ack.BatchID != "" && ack.BatchID != batch.ID {
		pushErr = fmt.Errorf("%w: got %s, sent %s", errBatchMismatch, ack.BatchID, batch.ID)
	}
	if pushErr != nil {
		d.logger.Warn("sync push failed",
			zap.String("batch_id", batch.ID),
			zap.Int("rows", len(batch.Rows)),
			zap.Error(pushErr))
		if err := d.failAll(ctx, batch.Rows, &result); err != nil {
			return result, err
		}
		d.record(result)
		return result, newDriverError(opRun, "push_failed", pushErr)
	}

	if err := d.applyAcks(ctx, batch.Rows, ack, &result); err != nil {
		return result, err
	}
	if !ack.Changes.Empty() {
		if err := d.mergeInbound(ctx, ack.Changes, &result); err != nil {
			d.record(result)
			return result, err
		}
	}
	if ack.ServerTimestamp > 0 {
		if err := d.state.SaveLastSyncTimestamp(ctx, ack.ServerTimestamp); err != nil {
			d.record(result)
			return result, newDriverError(opRun, "save_state", err)
		}
	}

	d.record(result)
	if result.Failed() == 0 {
		d.markSuccess()
	}
	d.logger.Info("sync pass finished",
		zap.String("batch_id", batch.ID),
		zap.Int("synced", result.Synced()),
		zap.Int("failed", result.Failed()),
		zap.Int("conflicted", result.Conflicted()),
		zap.Int("applied", result.Applied()),
		zap.Int64("server_timestamp", ack.ServerTimestamp))
	return result, nil
}

// LastSyncTimestamp returns the remote timestamp stored by the last pass that
// merged remote changes, or zero.
func (d *Driver) LastSyncTimestamp(ctx context.Context) (int64, error) {
	return d.state.LastSyncTimestamp(ctx)
}

// markSyncing moves every row to SYNCING unless it changed since collection.
func (d *Driver) markSyncing(ctx context.Context, batch Batch, result *Result) ([]OutboundRow, error) {
	inFlight := make([]OutboundRow, 0, len(batch.Rows))
	for _, row := range batch.Rows {
		applied, err := d.table(row.Table).MarkIfUnchanged(ctx, row.LocalID, row.Version, records.SyncSyncing)
		if err != nil {
			return nil, newDriverError(opRun, "mark_syncing", err)
		}
		if !applied {
			result.add(row.Table, outcomeConflicted)
			continue
		}
		inFlight = append(inFlight, row)
	}
	return inFlight, nil
}

func (d *Driver) failAll(ctx context.Context, rows []OutboundRow, result *Result) error {
	for _, row := range rows {
		if err := d.fail(ctx, row, result); err != nil {
			return err
		}
	}
	return nil
}

func (d *Driver) fail(ctx context.Context, row OutboundRow, result *Result) error {
	applied, err := d.table(row.Table).MarkIfUnchanged(ctx, row.LocalID, row.Version, records.SyncFailed)
	if err != nil {
		return newDriverError(opApplyAcks, "mark_failed", err)
	}
	if applied {
		result.add(row.Table, outcomeFailed)
	} else {
		result.add(row.Table, outcomeConflicted)
	}
	return nil
}

func (d *Driver) applyAcks(ctx context.Context, rows []OutboundRow, ack Ack, result *Result) error {
	byKey := make(map[rowKey]RowAck, len(ack.Results))
	for _, rowAck := range ack.Results {
		byKey[rowAck.key()] = rowAck
	}

	for _, row := range rows {
		rowAck, ok := byKey[row.key()]
		if !ok || !rowAck.Accepted || rowAck.ServerID == "" {
			if ok && rowAck.Reason != "" {
				d.logger.Debug("sync row rejected",
					zap.String("table", row.Table),
					zap.Int64("local_id", row.LocalID),
					zap.String("reason", rowAck.Reason))
			}
			if err := d.fail(ctx, row, result); err != nil {
				return err
			}
			continue
		}

		applied, err := d.table(row.Table).AcknowledgeIfUnchanged(ctx, row.LocalID, row.Version,
			rowAck.ServerID, records.SyncSynced, acknowledgedVersion(row, rowAck))
		if err != nil {
			return newDriverError(opApplyAcks, "update_server_info", err)
		}
		if applied {
			result.add(row.Table, outcomeSynced)
		} else {
			result.add(row.Table, outcomeConflicted)
		}
	}
	return nil
}

// acknowledgedVersion is the server timestamp, or the uploaded version when
// the remote did not send one.
func acknowledgedVersion(row OutboundRow, rowAck RowAck) int64 {
	if rowAck.Timestamp > 0 {
		return rowAck.Timestamp
	}
	return row.Version
}

// trailerTable is the part of a repository the driver needs for state changes.
type trailerTable interface {
	MarkIfUnchanged(ctx context.Context, id int64, inFlight int64, status records.SyncStatus) (bool, error)
	AcknowledgeIfUnchanged(ctx context.Context, id int64, inFlight int64, serverID string, status records.SyncStatus, timestamp int64) (bool, error)
}

func (d *Driver) table(name string) trailerTable {
	switch name {
	case schema.TableMeasurements:
		return d.repos.Measurements
	case schema.TableOrders:
		return d.repos.Orders
	default:
		return d.repos.Customers
	}
}

func (d *Driver) markSuccess() {
	d.stateMu.Lock()
	d.lastSuccess = d.clock()
	d.stateMu.Unlock()
}

func (d *Driver) record(result Result) {
	for table, counts := range result.Tables {
		d.metrics.SyncOutcome(table, outcomeSynced, counts.Synced)
		d.metrics.SyncOutcome(table, outcomeFailed, counts.Failed)
		d.metrics.SyncOutcome(table, outcomeConflicted, counts.Conflicted)
		d.metrics.SyncOutcome(table, outcomeSkipped, counts.Skipped)
		d.metrics.SyncOutcome(table, outcomeApplied, counts.Applied)
	}
}
