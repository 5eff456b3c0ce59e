package records

import (
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/swapnilkulkarni99salesforce/mobileAppDemo/internal/invalidation"
	"github.com/swapnilkulkarni99salesforce/mobileAppDemo/internal/schema"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestRepositories(t *testing.T) (*Repositories, *invalidation.Bus, *gorm.DB) {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "shop.db") + "?_pragma=foreign_keys(1)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, statement := range schema.CreateStatements() {
		if err := db.Exec(statement).Error; err != nil {
			t.Fatalf("failed to create schema: %v", err)
		}
	}

	bus := invalidation.NewBus(nil)
	repos, err := New(Config{Database: db, Bus: bus})
	if err != nil {
		t.Fatalf("failed to build repositories: %v", err)
	}
	return repos, bus, db
}

func pendingTrailer(lastModified int64) SyncTrailer {
	return SyncTrailer{LastModified: lastModified, SyncStatus: SyncPending}
}

func newCustomer(firstName, lastName, mobile string, lastModified int64) *Customer {
	return &Customer{
		FirstName:       firstName,
		LastName:        lastName,
		Address:         "12 Market Road",
		Mobile:          mobile,
		AlternateMobile: "",
		BirthDate:       "1990-01-01",
		SyncTrailer:     pendingTrailer(lastModified),
	}
}

func newOrder(customerID int64, orderDate string, lastModified int64) *Order {
	return &Order{
		CustomerID:            customerID,
		CustomerName:          "Asha Rao",
		OrderDate:             orderDate,
		OrderType:             "Kurti",
		EstimatedDeliveryDate: "2024-02-01",
		Instructions:          "",
		Amount:                1500.0,
		Status:                "Pending",
		AdvancePayment:        500.0,
		BalancePayment:        1000.0,
		PaymentStatus:         "Partial",
		SyncTrailer:           pendingTrailer(lastModified),
	}
}

func mustInsertCustomer(t *testing.T, repos *Repositories, customer *Customer) int64 {
	t.Helper()
	id, err := repos.Customers.Insert(t.Context(), customer)
	if err != nil {
		t.Fatalf("unexpected customer insert error: %v", err)
	}
	return id
}

func mustInsertOrder(t *testing.T, repos *Repositories, order *Order) int64 {
	t.Helper()
	id, err := repos.Orders.Insert(t.Context(), order)
	if err != nil {
		t.Fatalf("unexpected order insert error: %v", err)
	}
	return id
}

func expectKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := KindOf(err); got != kind {
		t.Fatalf("expected %s error, got %s (%v)", kind, got, err)
	}
}
