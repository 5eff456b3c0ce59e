package syncdriver

import (
	"context"

	"github.com/swapnilkulkarni99salesforce/mobileAppDemo/internal/records"
	"github.com/swapnilkulkarni99salesforce/mobileAppDemo/internal/schema"
)

// outboundStatuses are the states collected for upload. SYNCING is included
// so that rows stranded by an interrupted pass are retried.
var outboundStatuses = []records.SyncStatus{records.SyncPending, records.SyncFailed, records.SyncSyncing}

// CollectOutbound gathers up to the batch size of rows per table that need
// syncing, customers before their children, and records each row's version
// together with the last pull timestamp.
func (d *Driver) CollectOutbound(ctx context.Context) (Batch, error) {
	id, err := d.idProvider.NewID()
	if err != nil {
		return Batch{}, newDriverError(opCollect, "batch_id", err)
	}
	since, err := d.state.LastSyncTimestamp(ctx)
	if err != nil {
		return Batch{}, newDriverError(opCollect, "sync_state", err)
	}
	batch := Batch{ID: id, CreatedAt: d.clock().UTC(), LastSyncTimestamp: since}

	customers, err := d.repos.Customers.GetByStatuses(ctx, outboundStatuses, d.batchSize)
	if err != nil {
		return Batch{}, newDriverError(opCollect, schema.TableCustomers, err)
	}
	for _, customer := range customers {
		batch.Rows = append(batch.Rows, outboundRow(schema.TableCustomers, customer.ID, customer.SyncTrailer, customer))
	}

	measurements, err := d.repos.Measurements.GetByStatuses(ctx, outboundStatuses, d.batchSize)
	if err != nil {
		return Batch{}, newDriverError(opCollect, schema.TableMeasurements, err)
	}
	for _, measurement := range measurements {
		batch.Rows = append(batch.Rows, outboundRow(schema.TableMeasurements, measurement.ID, measurement.SyncTrailer, measurement))
	}

	orders, err := d.repos.Orders.GetByStatuses(ctx, outboundStatuses, d.batchSize)
	if err != nil {
		return Batch{}, newDriverError(opCollect, schema.TableOrders, err)
	}
	for _, order := range orders {
		batch.Rows = append(batch.Rows, outboundRow(schema.TableOrders, order.ID, order.SyncTrailer, order))
	}
	return batch, nil
}

func outboundRow(table string, id int64, trailer records.SyncTrailer, record any) OutboundRow {
	return OutboundRow{
		Table:    table,
		LocalID:  id,
		ServerID: trailer.ServerID,
		Version:  trailer.LastModified,
		Record:   record,
	}
}

// PendingCounts reports, per synchronizable table, how many rows the next
// pass would consider for upload.
func PendingCounts(ctx context.Context, repos *records.Repositories) (map[string]int64, error) {
	counters := []struct {
		table string
		count func(context.Context, []records.SyncStatus) (int64, error)
	}{
		{schema.TableCustomers, repos.Customers.CountByStatuses},
		{schema.TableMeasurements, repos.Measurements.CountByStatuses},
		{schema.TableOrders, repos.Orders.CountByStatuses},
	}
	counts := make(map[string]int64, len(counters))
	for _, counter := range counters {
		count, err := counter.count(ctx, outboundStatuses)
		if err != nil {
			return nil, err
		}
		counts[counter.table] = count
	}
	return counts, nil
}
