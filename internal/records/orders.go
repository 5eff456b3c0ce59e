package records

import (
	"context"

	"github.com/swapnilkulkarni99salesforce/mobileAppDemo/internal/schema"
	"gorm.io/gorm"
)

// Orders is the repository for the orders table. Orders are append-only from
// the caller's side: inserting an id that already exists is an error.
type Orders struct {
	syncTable[Order]
	exec *executor
}

func newOrders(exec *executor) *Orders {
	return &Orders{
		syncTable: syncTable[Order]{exec: exec, table: schema.TableOrders},
		exec:      exec,
	}
}

// Insert stores order and returns its id. A colliding id fails with
// UniqueConstraint; an unknown customer fails with ForeignKeyViolation.
func (r *Orders) Insert(ctx context.Context, order *Order) (int64, error) {
	defaultTrailer(&order.SyncTrailer)
	err := r.exec.write(ctx, "orders.insert", []string{schema.TableOrders}, func(tx *gorm.DB) (int64, error) {
		return checked(tx.Create(order))
	})
	if err != nil {
		return 0, err
	}
	return order.ID, nil
}

func (r *Orders) Update(ctx context.Context, order *Order) error {
	const operation = "orders.update"
	defaultTrailer(&order.SyncTrailer)
	return r.exec.write(ctx, operation, []string{schema.TableOrders}, func(tx *gorm.DB) (int64, error) {
		found, err := clampLastModified(tx, schema.TableOrders, order.ID, &order.SyncTrailer)
		if err != nil {
			return 0, err
		}
		if !found {
			return 0, notFound(operation, order.ID)
		}
		return checked(tx.Model(order).Select("*").Omit("id").Updates(order))
	})
}

func (r *Orders) Delete(ctx context.Context, id int64) error {
	return r.exec.write(ctx, "orders.delete", []string{schema.TableOrders}, func(tx *gorm.DB) (int64, error) {
		return checked(tx.Where(queryID, id).Delete(&Order{}))
	})
}

// GetAll returns every order, newest order date first.
func (r *Orders) GetAll(ctx context.Context) ([]Order, error) {
	return r.list(ctx, "orders.get_all", orderByDate)
}

// GetByCustomerID returns the orders of customerID, newest order date first.
func (r *Orders) GetByCustomerID(ctx context.Context, customerID int64) ([]Order, error) {
	return r.list(ctx, "orders.get_by_customer_id", func(db *gorm.DB) *gorm.DB {
		return orderByDate(db.Where(queryCustomerID, customerID))
	})
}

func orderByDate(db *gorm.DB) *gorm.DB {
	return db.Order("orderDate DESC").Order("id DESC")
}
