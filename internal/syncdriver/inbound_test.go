package syncdriver

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/swapnilkulkarni99salesforce/mobileAppDemo/internal/records"
	"github.com/swapnilkulkarni99salesforce/mobileAppDemo/internal/schema"
)

func pointer(value string) *string {
	return &value
}

func TestResolveInbound(t *testing.T) {
	synced := records.SyncTrailer{LastModified: 100, SyncStatus: records.SyncSynced}
	pending := records.SyncTrailer{LastModified: 100, SyncStatus: records.SyncPending}

	cases := []struct {
		name   string
		local  *records.SyncTrailer
		remote int64
		want   mergeDecision
	}{
		{name: "unknown row", local: nil, remote: 50, want: mergeInsert},
		{name: "remote newer", local: &pending, remote: 101, want: mergeUpdate},
		{name: "local newer", local: &synced, remote: 99, want: mergeKeepLocal},
		{name: "tie with synced", local: &synced, remote: 100, want: mergeUnchanged},
		{name: "tie with local edit", local: &pending, remote: 100, want: mergeKeepLocal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := resolveInbound(tc.local, records.SyncTrailer{LastModified: tc.remote})
			require.Equal(t, tc.want, got)
		})
	}
}

func remoteCustomer(serverID string, lastModified int64) records.Customer {
	return records.Customer{
		FirstName:   "Kavya",
		LastName:    "Nair",
		Mobile:      "9000000002",
		Address:     "remote address",
		SyncTrailer: records.SyncTrailer{ServerID: pointer(serverID), LastModified: lastModified, SyncStatus: records.SyncSynced},
	}
}

func TestApplyInboundInsertsUnknownRows(t *testing.T) {
	store := newStore(t)
	driver := newDriver(t, store, &acceptingRemote{})

	result, err := driver.ApplyInbound(t.Context(), Inbound{
		Customers: []records.Customer{remoteCustomer("srv-c1", 500)},
		Orders: []InboundOrder{{
			CustomerServerID: "srv-c1",
			Order: records.Order{
				CustomerID: 9999, OrderDate: "2024-04-01", Amount: 800,
				SyncTrailer: records.SyncTrailer{ServerID: pointer("srv-o1"), LastModified: 510, SyncStatus: records.SyncPending},
			},
		}},
		Measurements: []InboundMeasurement{{
			CustomerServerID: "srv-missing",
			Measurement: records.Measurement{
				SyncTrailer: records.SyncTrailer{ServerID: pointer("srv-m1"), LastModified: 520},
			},
		}},
	})
	require.NoError(t, err)
	require.Equal(t, 2, result.Applied())
	require.Equal(t, 1, result.Tables[schema.TableMeasurements].Skipped)

	customer, err := store.Repositories.Customers.GetByServerID(t.Context(), "srv-c1")
	require.NoError(t, err)
	require.NotNil(t, customer)
	require.Equal(t, records.SyncSynced, customer.SyncStatus)
	require.Equal(t, int64(500), customer.LastModified)

	order, err := store.Repositories.Orders.GetByServerID(t.Context(), "srv-o1")
	require.NoError(t, err)
	require.NotNil(t, order)
	require.Equal(t, customer.ID, order.CustomerID)
	require.Equal(t, records.SyncSynced, order.SyncStatus)

	unsynced, err := store.Repositories.Orders.GetUnsynced(t.Context())
	require.NoError(t, err)
	require.Empty(t, unsynced, "merged rows must not be uploaded again")
}

func TestApplyInboundLastWriterWins(t *testing.T) {
	store := newStore(t)
	driver := newDriver(t, store, &acceptingRemote{})
	ctx := t.Context()

	_, err := driver.ApplyInbound(ctx, Inbound{Customers: []records.Customer{remoteCustomer("srv-c1", 500)}})
	require.NoError(t, err)

	stale := remoteCustomer("srv-c1", 400)
	stale.Address = "stale"
	result, err := driver.ApplyInbound(ctx, Inbound{Customers: []records.Customer{stale}})
	require.NoError(t, err)
	require.Equal(t, 1, result.Conflicted())

	newer := remoteCustomer("srv-c1", 900)
	newer.Address = "newer"
	result, err = driver.ApplyInbound(ctx, Inbound{Customers: []records.Customer{newer}})
	require.NoError(t, err)
	require.Equal(t, 1, result.Applied())

	customer, err := store.Repositories.Customers.GetByServerID(ctx, "srv-c1")
	require.NoError(t, err)
	require.Equal(t, "newer", customer.Address)
	require.Equal(t, int64(900), customer.LastModified)

	count, err := store.Repositories.Customers.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestApplyInboundAdoptsLocalCustomerByCompositeKey(t *testing.T) {
	store := newStore(t)
	driver := newDriver(t, store, &acceptingRemote{})
	ctx := t.Context()

	localID, err := store.Repositories.Customers.Insert(ctx, &records.Customer{
		FirstName: "Kavya", LastName: "Nair", Mobile: "9000000002",
		SyncTrailer: records.SyncTrailer{LastModified: 100, SyncStatus: records.SyncPending},
	})
	require.NoError(t, err)

	result, err := driver.ApplyInbound(ctx, Inbound{Customers: []records.Customer{remoteCustomer("srv-c9", 300)}})
	require.NoError(t, err)
	require.Equal(t, 1, result.Applied())

	customer, err := store.Repositories.Customers.GetByID(ctx, localID)
	require.NoError(t, err)
	require.Equal(t, "srv-c9", customer.ServerIDValue())
	require.Equal(t, records.SyncSynced, customer.SyncStatus)
	require.Equal(t, "remote address", customer.Address)
}

func TestApplyInboundAdoptsLocalMeasurementByCustomer(t *testing.T) {
	store := newStore(t)
	driver := newDriver(t, store, &acceptingRemote{})
	ctx := t.Context()

	_, err := driver.ApplyInbound(ctx, Inbound{Customers: []records.Customer{remoteCustomer("srv-c1", 500)}})
	require.NoError(t, err)
	customer, err := store.Repositories.Customers.GetByServerID(ctx, "srv-c1")
	require.NoError(t, err)

	localID, err := store.Repositories.Measurements.Insert(ctx, &records.Measurement{
		CustomerID: customer.ID, KurtiLength: "38",
		SyncTrailer: records.SyncTrailer{LastModified: 600, SyncStatus: records.SyncPending},
	})
	require.NoError(t, err)

	result, err := driver.ApplyInbound(ctx, Inbound{Measurements: []InboundMeasurement{{
		CustomerServerID: "srv-c1",
		Measurement: records.Measurement{
			KurtiLength: "40",
			SyncTrailer: records.SyncTrailer{ServerID: pointer("srv-m9"), LastModified: 900, SyncStatus: records.SyncSynced},
		},
	}}})
	require.NoError(t, err)
	require.Equal(t, 1, result.Applied())

	count, err := store.Repositories.Measurements.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	measurement, err := store.Repositories.Measurements.GetByCustomerID(ctx, customer.ID)
	require.NoError(t, err)
	require.Equal(t, localID, measurement.ID)
	require.Equal(t, "40", measurement.KurtiLength)
	require.Equal(t, "srv-m9", measurement.ServerIDValue())
	require.Equal(t, records.SyncSynced, measurement.SyncStatus)
	require.Equal(t, int64(900), measurement.LastModified)
}

func TestApplyInboundKeepsNewerLocalMeasurement(t *testing.T) {
	store := newStore(t)
	driver := newDriver(t, store, &acceptingRemote{})
	ctx := t.Context()

	_, err := driver.ApplyInbound(ctx, Inbound{Customers: []records.Customer{remoteCustomer("srv-c1", 500)}})
	require.NoError(t, err)
	customer, err := store.Repositories.Customers.GetByServerID(ctx, "srv-c1")
	require.NoError(t, err)
	_, err = store.Repositories.Measurements.Insert(ctx, &records.Measurement{
		CustomerID: customer.ID, KurtiLength: "38",
		SyncTrailer: records.SyncTrailer{LastModified: 950, SyncStatus: records.SyncPending},
	})
	require.NoError(t, err)

	result, err := driver.ApplyInbound(ctx, Inbound{Measurements: []InboundMeasurement{{
		CustomerServerID: "srv-c1",
		Measurement: records.Measurement{
			KurtiLength: "40",
			SyncTrailer: records.SyncTrailer{ServerID: pointer("srv-m9"), LastModified: 900},
		},
	}}})
	require.NoError(t, err)
	require.Equal(t, 1, result.Conflicted())

	count, err := store.Repositories.Measurements.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
	measurement, err := store.Repositories.Measurements.GetByCustomerID(ctx, customer.ID)
	require.NoError(t, err)
	require.Equal(t, "38", measurement.KurtiLength)
	require.Equal(t, records.SyncPending, measurement.SyncStatus)
}

func TestApplyInboundSkipsRowsWithoutServerID(t *testing.T) {
	store := newStore(t)
	driver := newDriver(t, store, &acceptingRemote{})

	anonymous := remoteCustomer("", 100)
	anonymous.ServerID = nil
	result, err := driver.ApplyInbound(t.Context(), Inbound{Customers: []records.Customer{anonymous}})
	require.NoError(t, err)
	require.Equal(t, 1, result.Skipped())
}
