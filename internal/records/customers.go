package records

import (
	"context"

	"github.com/swapnilkulkarni99salesforce/mobileAppDemo/internal/schema"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Customers is the repository for the customers table.
type Customers struct {
	syncTable[Customer]
	exec *executor
}

func newCustomers(exec *executor) *Customers {
	return &Customers{
		syncTable: syncTable[Customer]{exec: exec, table: schema.TableCustomers},
		exec:      exec,
	}
}

// deleteTables is every table a customer delete can write through cascade.
func (r *Customers) deleteTables() []string {
	return append([]string{schema.TableCustomers}, schema.CascadeTargets[schema.TableCustomers]...)
}

// Insert stores customer and returns its id. An id of zero is assigned by the
// store; a non-zero id replaces the row with that id, keeping lastModified at
// or above the replaced row's value. A collision on
// (firstName, lastName, mobile) with another row fails with UniqueConstraint.
func (r *Customers) Insert(ctx context.Context, customer *Customer) (int64, error) {
	defaultTrailer(&customer.SyncTrailer)
	err := r.exec.write(ctx, "customers.insert", []string{schema.TableCustomers}, func(tx *gorm.DB) (int64, error) {
		if customer.ID != 0 {
			if _, err := clampLastModified(tx, schema.TableCustomers, customer.ID, &customer.SyncTrailer); err != nil {
				return 0, err
			}
		}
		return checked(tx.Clauses(upsertOnID).Create(customer))
	})
	if err != nil {
		return 0, err
	}
	return customer.ID, nil
}

// Update rewrites every column of the row with customer.ID. lastModified is
// kept at or above the stored value and a missing sync status becomes PENDING.
func (r *Customers) Update(ctx context.Context, customer *Customer) error {
	const operation = "customers.update"
	defaultTrailer(&customer.SyncTrailer)
	return r.exec.write(ctx, operation, []string{schema.TableCustomers}, func(tx *gorm.DB) (int64, error) {
		found, err := clampLastModified(tx, schema.TableCustomers, customer.ID, &customer.SyncTrailer)
		if err != nil {
			return 0, err
		}
		if !found {
			return 0, notFound(operation, customer.ID)
		}
		return checked(tx.Model(customer).Select("*").Omit("id").Updates(customer))
	})
}

// Delete removes the customer with id together with its measurements and
// orders. Deleting an absent id is not an error.
func (r *Customers) Delete(ctx context.Context, id int64) error {
	return r.exec.write(ctx, "customers.delete", r.deleteTables(), func(tx *gorm.DB) (int64, error) {
		return checked(tx.Where(queryID, id).Delete(&Customer{}))
	})
}

// DeleteAll removes every customer and, through cascade, every measurement
// and order.
func (r *Customers) DeleteAll(ctx context.Context) error {
	return r.exec.write(ctx, "customers.delete_all", r.deleteTables(), func(tx *gorm.DB) (int64, error) {
		return checked(tx.Where("1 = 1").Delete(&Customer{}))
	})
}

// GetAll returns every customer ordered by first name.
func (r *Customers) GetAll(ctx context.Context) ([]Customer, error) {
	return r.list(ctx, "customers.get_all", func(db *gorm.DB) *gorm.DB {
		return db.Order("firstName ASC").Order(orderIDAsc)
	})
}

// GetAllList is GetAll for callers that want a one-shot snapshot rather than a
// live query.
func (r *Customers) GetAllList(ctx context.Context) ([]Customer, error) {
	return r.GetAll(ctx)
}

// GetByCompositeKey returns the customer matching the unique
// (firstName, lastName, mobile) triple, or nil.
func (r *Customers) GetByCompositeKey(ctx context.Context, firstName, lastName, mobile string) (*Customer, error) {
	return first[Customer](ctx, r.exec, "customers.get_by_composite_key", func(db *gorm.DB) *gorm.DB {
		return db.Where("firstName = ? AND lastName = ? AND mobile = ?", firstName, lastName, mobile)
	})
}

// upsertOnID turns a primary-key collision into an update of every column.
// Other unique indexes still raise.
var upsertOnID = clause.OnConflict{
	Columns:   []clause.Column{{Name: "id"}},
	UpdateAll: true,
}

// defaultTrailer fills a missing sync status with PENDING.
func defaultTrailer(trailer *SyncTrailer) {
	if trailer.SyncStatus == "" {
		trailer.SyncStatus = SyncPending
	}
}
