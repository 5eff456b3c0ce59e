package records

import (
	"context"

	"github.com/swapnilkulkarni99salesforce/mobileAppDemo/internal/schema"
	"gorm.io/gorm"
)

const queryCustomerID = "customerId = ?"

// Measurements is the repository for the measurements table.
type Measurements struct {
	syncTable[Measurement]
	exec *executor
}

func newMeasurements(exec *executor) *Measurements {
	return &Measurements{
		syncTable: syncTable[Measurement]{exec: exec, table: schema.TableMeasurements},
		exec:      exec,
	}
}

// Insert stores measurement and returns its id, replacing the row when a
// non-zero id already exists. The parent customer must exist.
func (r *Measurements) Insert(ctx context.Context, measurement *Measurement) (int64, error) {
	defaultTrailer(&measurement.SyncTrailer)
	err := r.exec.write(ctx, "measurements.insert", []string{schema.TableMeasurements}, func(tx *gorm.DB) (int64, error) {
		if measurement.ID != 0 {
			if _, err := clampLastModified(tx, schema.TableMeasurements, measurement.ID, &measurement.SyncTrailer); err != nil {
				return 0, err
			}
		}
		return checked(tx.Clauses(upsertOnID).Create(measurement))
	})
	if err != nil {
		return 0, err
	}
	return measurement.ID, nil
}

func (r *Measurements) Update(ctx context.Context, measurement *Measurement) error {
	const operation = "measurements.update"
	defaultTrailer(&measurement.SyncTrailer)
	return r.exec.write(ctx, operation, []string{schema.TableMeasurements}, func(tx *gorm.DB) (int64, error) {
		found, err := clampLastModified(tx, schema.TableMeasurements, measurement.ID, &measurement.SyncTrailer)
		if err != nil {
			return 0, err
		}
		if !found {
			return 0, notFound(operation, measurement.ID)
		}
		return checked(tx.Model(measurement).Select("*").Omit("id").Updates(measurement))
	})
}

func (r *Measurements) Delete(ctx context.Context, id int64) error {
	return r.exec.write(ctx, "measurements.delete", []string{schema.TableMeasurements}, func(tx *gorm.DB) (int64, error) {
		return checked(tx.Where(queryID, id).Delete(&Measurement{}))
	})
}

// DeleteByCustomerID removes every measurement of customerID.
func (r *Measurements) DeleteByCustomerID(ctx context.Context, customerID int64) error {
	return r.exec.write(ctx, "measurements.delete_by_customer_id", []string{schema.TableMeasurements}, func(tx *gorm.DB) (int64, error) {
		return checked(tx.Where(queryCustomerID, customerID).Delete(&Measurement{}))
	})
}

// GetByCustomerID returns the first measurement recorded for customerID, or nil.
func (r *Measurements) GetByCustomerID(ctx context.Context, customerID int64) (*Measurement, error) {
	return first[Measurement](ctx, r.exec, "measurements.get_by_customer_id", func(db *gorm.DB) *gorm.DB {
		return db.Where(queryCustomerID, customerID).Order(orderIDAsc)
	})
}

func (r *Measurements) GetAll(ctx context.Context) ([]Measurement, error) {
	return r.list(ctx, "measurements.get_all", func(db *gorm.DB) *gorm.DB {
		return db.Order(orderIDAsc)
	})
}
