package records

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/swapnilkulkarni99salesforce/mobileAppDemo/internal/invalidation"
)

func TestCustomerInsertAndFetch(t *testing.T) {
	repos, _, _ := newTestRepositories(t)
	ctx := t.Context()

	customer := newCustomer("Asha", "Rao", "9000000001", 1700000000000)
	id, err := repos.Customers.Insert(ctx, customer)
	if err != nil {
		t.Fatalf("unexpected insert error: %v", err)
	}
	if id != 1 {
		t.Fatalf("expected first id to be 1, got %d", id)
	}

	stored, err := repos.Customers.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("unexpected get error: %v", err)
	}
	if stored == nil {
		t.Fatalf("expected stored customer")
	}
	if *stored != *customer {
		t.Fatalf("stored customer differs: got %+v want %+v", *stored, *customer)
	}

	all, err := repos.Customers.GetAll(ctx)
	if err != nil {
		t.Fatalf("unexpected get all error: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected one customer, got %d", len(all))
	}
	if all[0].SyncStatus != SyncPending || all[0].LastModified != 1700000000000 {
		t.Fatalf("unexpected trailer: %+v", all[0].SyncTrailer)
	}
	if all[0].ServerID != nil {
		t.Fatalf("expected null server id")
	}
}

func TestCustomerDuplicateCompositeKeyIsRejected(t *testing.T) {
	repos, _, _ := newTestRepositories(t)
	ctx := t.Context()

	mustInsertCustomer(t, repos, newCustomer("Asha", "Rao", "9000000001", 100))

	_, err := repos.Customers.Insert(ctx, newCustomer("Asha", "Rao", "9000000001", 200))
	expectKind(t, err, KindUniqueConstraint)
	if !errors.Is(err, ErrUniqueConstraint) {
		t.Fatalf("expected errors.Is to match the unique constraint sentinel")
	}
	var storeErr *Error
	if !errors.As(err, &storeErr) || storeErr.Operation != "customers.insert" {
		t.Fatalf("expected operation to be recorded, got %#v", err)
	}

	all, err := repos.Customers.GetAll(ctx)
	if err != nil {
		t.Fatalf("unexpected get all error: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected exactly one customer after duplicate insert, got %d", len(all))
	}
}

func TestCustomerGetByCompositeKey(t *testing.T) {
	repos, _, _ := newTestRepositories(t)
	ctx := t.Context()

	first := mustInsertCustomer(t, repos, newCustomer("Asha", "Rao", "9000000001", 100))
	mustInsertCustomer(t, repos, newCustomer("Asha", "Rao", "9000000002", 100))

	found, err := repos.Customers.GetByCompositeKey(ctx, "Asha", "Rao", "9000000001")
	if err != nil {
		t.Fatalf("unexpected lookup error: %v", err)
	}
	if found == nil || found.ID != first {
		t.Fatalf("expected customer %d, got %+v", first, found)
	}

	missing, err := repos.Customers.GetByCompositeKey(ctx, "Asha", "Rao", "9999999999")
	if err != nil {
		t.Fatalf("unexpected lookup error: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected no customer, got %+v", missing)
	}
}

func TestCustomerInsertWithExistingIDReplacesRow(t *testing.T) {
	repos, _, _ := newTestRepositories(t)
	ctx := t.Context()

	id := mustInsertCustomer(t, repos, newCustomer("Asha", "Rao", "9000000001", 100))
	mustInsertOrder(t, repos, newOrder(id, "2024-01-10", 100))

	replacement := newCustomer("Asha", "Rao", "9000000001", 300)
	replacement.ID = id
	replacement.Address = "7 Temple Street"
	if _, err := repos.Customers.Insert(ctx, replacement); err != nil {
		t.Fatalf("unexpected upsert error: %v", err)
	}

	stored, err := repos.Customers.GetByID(ctx, id)
	if err != nil || stored == nil {
		t.Fatalf("expected stored customer, got %v %v", stored, err)
	}
	if stored.Address != "7 Temple Street" || stored.LastModified != 300 {
		t.Fatalf("expected replaced row, got %+v", stored)
	}
	orders, err := repos.Orders.GetByCustomerID(ctx, id)
	if err != nil {
		t.Fatalf("unexpected orders error: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("expected orders to survive an upsert, got %d", len(orders))
	}
}

func TestInsertWithExistingIDKeepsLastModifiedNonDecreasing(t *testing.T) {
	repos, _, _ := newTestRepositories(t)
	ctx := t.Context()

	id := mustInsertCustomer(t, repos, newCustomer("Asha", "Rao", "9000000001", 500))
	stale := newCustomer("Asha", "Rao", "9000000001", 100)
	stale.ID = id
	stale.Address = "older content"
	if _, err := repos.Customers.Insert(ctx, stale); err != nil {
		t.Fatalf("unexpected upsert error: %v", err)
	}
	stored, err := repos.Customers.GetByID(ctx, id)
	if err != nil || stored == nil {
		t.Fatalf("expected stored customer, got %v %v", stored, err)
	}
	if stored.Address != "older content" || stored.LastModified != 500 {
		t.Fatalf("expected content replaced with lastModified kept at 500, got %+v", stored)
	}

	measurement := &Measurement{CustomerID: id, KurtiLength: "38", SyncTrailer: pendingTrailer(800)}
	measurementID, err := repos.Measurements.Insert(ctx, measurement)
	if err != nil {
		t.Fatalf("unexpected measurement insert error: %v", err)
	}
	replacement := &Measurement{ID: measurementID, CustomerID: id, KurtiLength: "40", SyncTrailer: pendingTrailer(200)}
	if _, err := repos.Measurements.Insert(ctx, replacement); err != nil {
		t.Fatalf("unexpected measurement upsert error: %v", err)
	}
	storedMeasurement, err := repos.Measurements.GetByID(ctx, measurementID)
	if err != nil || storedMeasurement == nil {
		t.Fatalf("expected stored measurement, got %v %v", storedMeasurement, err)
	}
	if storedMeasurement.KurtiLength != "40" || storedMeasurement.LastModified != 800 {
		t.Fatalf("expected lastModified kept at 800, got %+v", storedMeasurement)
	}
}

func TestUpdateWithoutSyncStatusReturnsRowToPending(t *testing.T) {
	repos, _, _ := newTestRepositories(t)
	ctx := t.Context()

	customerID := mustInsertCustomer(t, repos, newCustomer("Asha", "Rao", "9000000001", 100))
	orderID := mustInsertOrder(t, repos, newOrder(customerID, "2024-01-10", 100))

	customer := newCustomer("Asha", "Rao", "9000000001", 200)
	customer.ID = customerID
	customer.SyncStatus = ""
	if err := repos.Customers.Update(ctx, customer); err != nil {
		t.Fatalf("unexpected update error: %v", err)
	}
	order := newOrder(customerID, "2024-01-11", 200)
	order.ID = orderID
	order.SyncStatus = ""
	if err := repos.Orders.Update(ctx, order); err != nil {
		t.Fatalf("unexpected order update error: %v", err)
	}

	customers, err := repos.Customers.GetUnsynced(ctx)
	if err != nil {
		t.Fatalf("unexpected unsynced error: %v", err)
	}
	if len(customers) != 1 || customers[0].SyncStatus != SyncPending {
		t.Fatalf("expected the customer back in the outbound queue, got %+v", customers)
	}
	orders, err := repos.Orders.GetUnsynced(ctx)
	if err != nil {
		t.Fatalf("unexpected unsynced error: %v", err)
	}
	if len(orders) != 1 || orders[0].SyncStatus != SyncPending {
		t.Fatalf("expected the order back in the outbound queue, got %+v", orders)
	}
}

func TestCustomerGetAllOrdersByFirstName(t *testing.T) {
	repos, _, _ := newTestRepositories(t)
	ctx := t.Context()

	mustInsertCustomer(t, repos, newCustomer("Meera", "Iyer", "9000000003", 100))
	mustInsertCustomer(t, repos, newCustomer("Asha", "Rao", "9000000001", 100))
	mustInsertCustomer(t, repos, newCustomer("Kavya", "Nair", "9000000002", 100))

	all, err := repos.Customers.GetAllList(ctx)
	if err != nil {
		t.Fatalf("unexpected get all error: %v", err)
	}
	got := []string{all[0].FirstName, all[1].FirstName, all[2].FirstName}
	want := []string{"Asha", "Kavya", "Meera"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected order: got %v want %v", got, want)
		}
	}
}

func TestCustomerUpdateKeepsLastModifiedNonDecreasing(t *testing.T) {
	repos, _, _ := newTestRepositories(t)
	ctx := t.Context()

	id := mustInsertCustomer(t, repos, newCustomer("Asha", "Rao", "9000000001", 500))

	edit := newCustomer("Asha", "Rao", "9000000001", 700)
	edit.ID = id
	edit.Address = "first edit"
	if err := repos.Customers.Update(ctx, edit); err != nil {
		t.Fatalf("unexpected update error: %v", err)
	}

	stale := newCustomer("Asha", "Rao", "9000000001", 600)
	stale.ID = id
	stale.Address = "second edit"
	if err := repos.Customers.Update(ctx, stale); err != nil {
		t.Fatalf("unexpected update error: %v", err)
	}

	stored, err := repos.Customers.GetByID(ctx, id)
	if err != nil || stored == nil {
		t.Fatalf("expected stored customer, got %v %v", stored, err)
	}
	if stored.Address != "second edit" {
		t.Fatalf("expected content change to apply, got %q", stored.Address)
	}
	if stored.LastModified != 700 {
		t.Fatalf("expected lastModified to stay at 700, got %d", stored.LastModified)
	}
}

func TestCustomerUpdateMissingRowIsNotFound(t *testing.T) {
	repos, bus, _ := newTestRepositories(t)
	var notified atomic.Int32
	cancel := bus.Subscribe([]string{"customers"}, func(invalidation.Notification) { notified.Add(1) })
	defer cancel()

	ghost := newCustomer("Nobody", "Here", "0", 100)
	ghost.ID = 99
	err := repos.Customers.Update(t.Context(), ghost)
	expectKind(t, err, KindNotFound)
	if notified.Load() != 0 {
		t.Fatalf("failed update must not notify observers")
	}
}

func TestCustomerDeleteCascadesToChildren(t *testing.T) {
	repos, bus, _ := newTestRepositories(t)
	ctx := t.Context()

	id := mustInsertCustomer(t, repos, newCustomer("Asha", "Rao", "9000000001", 100))
	measurement := &Measurement{CustomerID: id, KurtiLength: "40", LastUpdated: 100, SyncTrailer: pendingTrailer(100)}
	measurementID, err := repos.Measurements.Insert(ctx, measurement)
	if err != nil {
		t.Fatalf("unexpected measurement insert error: %v", err)
	}
	if measurementID != 1 {
		t.Fatalf("expected measurement id 1, got %d", measurementID)
	}
	if orderID := mustInsertOrder(t, repos, newOrder(id, "2024-01-10", 100)); orderID != 1 {
		t.Fatalf("expected order id 1, got %d", orderID)
	}

	var seen []string
	cancel := bus.Subscribe([]string{"measurements", "orders"}, func(n invalidation.Notification) {
		seen = append(seen, n.Tables...)
	})
	defer cancel()

	if err := repos.Customers.Delete(ctx, id); err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}

	remaining, err := repos.Measurements.GetByCustomerID(ctx, id)
	if err != nil {
		t.Fatalf("unexpected measurement lookup error: %v", err)
	}
	if remaining != nil {
		t.Fatalf("expected measurement to be deleted with its customer")
	}
	orders, err := repos.Orders.GetByCustomerID(ctx, id)
	if err != nil {
		t.Fatalf("unexpected orders lookup error: %v", err)
	}
	if len(orders) != 0 {
		t.Fatalf("expected orders to be deleted with their customer, got %d", len(orders))
	}
	if len(seen) != 3 {
		t.Fatalf("expected cascade notification to name all three tables, got %v", seen)
	}
}

func TestCustomerDeleteMissingIsNoOp(t *testing.T) {
	repos, bus, _ := newTestRepositories(t)
	var notified atomic.Int32
	cancel := bus.Subscribe([]string{"customers"}, func(invalidation.Notification) { notified.Add(1) })
	defer cancel()

	if err := repos.Customers.Delete(t.Context(), 12345); err != nil {
		t.Fatalf("expected delete of absent id to succeed, got %v", err)
	}
	if notified.Load() != 0 {
		t.Fatalf("no-op delete must not notify observers")
	}
}

func TestCustomerDeleteAll(t *testing.T) {
	repos, _, _ := newTestRepositories(t)
	ctx := t.Context()

	id := mustInsertCustomer(t, repos, newCustomer("Asha", "Rao", "9000000001", 100))
	mustInsertCustomer(t, repos, newCustomer("Kavya", "Nair", "9000000002", 100))
	mustInsertOrder(t, repos, newOrder(id, "2024-01-10", 100))

	if err := repos.Customers.DeleteAll(ctx); err != nil {
		t.Fatalf("unexpected delete all error: %v", err)
	}
	customers, _ := repos.Customers.Count(ctx)
	orders, _ := repos.Orders.Count(ctx)
	if customers != 0 || orders != 0 {
		t.Fatalf("expected empty tables, got %d customers and %d orders", customers, orders)
	}
}

func TestCanceledContextFailsWithoutWriting(t *testing.T) {
	repos, _, _ := newTestRepositories(t)
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := repos.Customers.Insert(ctx, newCustomer("Asha", "Rao", "9000000001", 100))
	expectKind(t, err, KindCanceled)

	count, err := repos.Customers.Count(t.Context())
	if err != nil {
		t.Fatalf("unexpected count error: %v", err)
	}
	if count != 0 {
		t.Fatalf("canceled insert must not persist, found %d rows", count)
	}
}
