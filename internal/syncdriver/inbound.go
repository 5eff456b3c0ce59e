package syncdriver

import (
	"context"

	"github.com/swapnilkulkarni99salesforce/mobileAppDemo/internal/records"
	"github.com/swapnilkulkarni99salesforce/mobileAppDemo/internal/schema"
	"go.uber.org/zap"
)

type mergeDecision int

const (
	mergeInsert mergeDecision = iota
	mergeUpdate
	mergeKeepLocal
	mergeUnchanged
)

// resolveInbound decides how a remote row meets its local counterpart. The
// newer lastModified wins. On a tie a SYNCED local row is already current and
// an unsynced local edit is kept so it uploads on the next pass.
func resolveInbound(local *records.SyncTrailer, remote records.SyncTrailer) mergeDecision {
	switch {
	case local == nil:
		return mergeInsert
	case remote.LastModified > local.LastModified:
		return mergeUpdate
	case remote.LastModified < local.LastModified:
		return mergeKeepLocal
	case local.IsSynced():
		return mergeUnchanged
	default:
		return mergeKeepLocal
	}
}

// ApplyInbound merges rows sent by the remote. Each row is matched by server
// id. A customer without a match is also matched by its unique
// (firstName, lastName, mobile) triple, and a measurement by its customer,
// when the local row has no server id yet. Merged rows are stored as SYNCED
// with the remote's lastModified. Children whose parent customer is unknown
// locally are skipped.
func (d *Driver) ApplyInbound(ctx context.Context, inbound Inbound) (Result, error) {
	d.runMu.Lock()
	defer d.runMu.Unlock()

	result := newResult("")
	err := d.mergeInbound(ctx, inbound, &result)
	d.record(result)
	return result, err
}

// mergeInbound merges parents before children so that a customer and its rows
// can arrive together.
func (d *Driver) mergeInbound(ctx context.Context, inbound Inbound, result *Result) error {
	for _, customer := range inbound.Customers {
		if err := d.mergeCustomer(ctx, customer, result); err != nil {
			return newDriverError(opApplyInbound, schema.TableCustomers, err)
		}
	}
	for _, measurement := range inbound.Measurements {
		if err := d.mergeMeasurement(ctx, measurement, result); err != nil {
			return newDriverError(opApplyInbound, schema.TableMeasurements, err)
		}
	}
	for _, order := range inbound.Orders {
		if err := d.mergeOrder(ctx, order, result); err != nil {
			return newDriverError(opApplyInbound, schema.TableOrders, err)
		}
	}
	return nil
}

func (d *Driver) mergeCustomer(ctx context.Context, remote records.Customer, result *Result) error {
	serverID := remote.ServerIDValue()
	if serverID == "" {
		result.add(schema.TableCustomers, outcomeSkipped)
		return nil
	}
	repo := d.repos.Customers
	local, err := repo.GetByServerID(ctx, serverID)
	if err != nil {
		return err
	}
	if local == nil {
		local, err = repo.GetByCompositeKey(ctx, remote.FirstName, remote.LastName, remote.Mobile)
		if err != nil {
			return err
		}
		if local != nil && local.ServerID != nil {
			d.logger.Warn("inbound customer collides with another synced customer",
				zap.String("server_id", serverID),
				zap.String("local_server_id", local.ServerIDValue()))
			result.add(schema.TableCustomers, outcomeConflicted)
			return nil
		}
	}

	row := remote
	row.SyncStatus = records.SyncSynced
	return d.applyMerge(result, schema.TableCustomers, resolveInbound(trailerOf(local), remote.SyncTrailer),
		func() error {
			row.ID = 0
			_, err := repo.Insert(ctx, &row)
			return err
		},
		func() error {
			row.ID = local.ID
			return repo.Update(ctx, &row)
		})
}

func (d *Driver) mergeMeasurement(ctx context.Context, remote InboundMeasurement, result *Result) error {
	serverID := remote.Measurement.ServerIDValue()
	parent, err := d.parent(ctx, remote.CustomerServerID)
	if err != nil {
		return err
	}
	if serverID == "" || parent == nil {
		result.add(schema.TableMeasurements, outcomeSkipped)
		return nil
	}
	repo := d.repos.Measurements
	local, err := repo.GetByServerID(ctx, serverID)
	if err != nil {
		return err
	}
	if local == nil {
		local, err = repo.GetByCustomerID(ctx, parent.ID)
		if err != nil {
			return err
		}
		if local != nil && local.ServerID != nil {
			d.logger.Warn("inbound measurement collides with another synced measurement",
				zap.String("server_id", serverID),
				zap.String("local_server_id", local.ServerIDValue()))
			result.add(schema.TableMeasurements, outcomeConflicted)
			return nil
		}
	}

	row := remote.Measurement
	row.CustomerID = parent.ID
	row.SyncStatus = records.SyncSynced
	return d.applyMerge(result, schema.TableMeasurements, resolveInbound(trailerOf(local), row.SyncTrailer),
		func() error {
			row.ID = 0
			_, err := repo.Insert(ctx, &row)
			return err
		},
		func() error {
			row.ID = local.ID
			return repo.Update(ctx, &row)
		})
}

func (d *Driver) mergeOrder(ctx context.Context, remote InboundOrder, result *Result) error {
	serverID := remote.Order.ServerIDValue()
	parent, err := d.parent(ctx, remote.CustomerServerID)
	if err != nil {
		return err
	}
	if serverID == "" || parent == nil {
		result.add(schema.TableOrders, outcomeSkipped)
		return nil
	}
	repo := d.repos.Orders
	local, err := repo.GetByServerID(ctx, serverID)
	if err != nil {
		return err
	}

	row := remote.Order
	row.CustomerID = parent.ID
	row.SyncStatus = records.SyncSynced
	return d.applyMerge(result, schema.TableOrders, resolveInbound(trailerOf(local), row.SyncTrailer),
		func() error {
			row.ID = 0
			_, err := repo.Insert(ctx, &row)
			return err
		},
		func() error {
			row.ID = local.ID
			return repo.Update(ctx, &row)
		})
}

func (d *Driver) parent(ctx context.Context, customerServerID string) (*records.Customer, error) {
	if customerServerID == "" {
		return nil, nil
	}
	return d.repos.Customers.GetByServerID(ctx, customerServerID)
}

// applyMerge runs the write the decision calls for. A remote row that would
// break the customer uniqueness rule is counted as a conflict, not an error.
func (d *Driver) applyMerge(result *Result, table string, decision mergeDecision, insert, update func() error) error {
	var write func() error
	switch decision {
	case mergeInsert:
		write = insert
	case mergeUpdate:
		write = update
	case mergeKeepLocal:
		result.add(table, outcomeConflicted)
		return nil
	default:
		result.add(table, outcomeSkipped)
		return nil
	}

	err := write()
	switch {
	case err == nil:
		result.add(table, outcomeApplied)
	case records.KindOf(err) == records.KindUniqueConstraint:
		d.logger.Warn("inbound row violates a unique constraint", zap.String("table", table), zap.Error(err))
		result.add(table, outcomeConflicted)
	default:
		return err
	}
	return nil
}

// trailerOf returns the sync trailer of a possibly absent row.
func trailerOf[T any, P interface {
	*T
	Trailer() *records.SyncTrailer
}](row P) *records.SyncTrailer {
	if row == nil {
		return nil
	}
	return row.Trailer()
}
