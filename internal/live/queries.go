package live

import (
	"context"

	"github.com/swapnilkulkarni99salesforce/mobileAppDemo/internal/invalidation"
	"github.com/swapnilkulkarni99salesforce/mobileAppDemo/internal/metrics"
	"github.com/swapnilkulkarni99salesforce/mobileAppDemo/internal/records"
	"github.com/swapnilkulkarni99salesforce/mobileAppDemo/internal/schema"
	"go.uber.org/zap"
)

const (
	QueryCustomerList          = "customer_list"
	QueryMeasurementByCustomer = "measurement_by_customer"
)

// Deps are the collaborators shared by the designated live queries.
type Deps struct {
	Repositories *records.Repositories
	Bus          *invalidation.Bus
	Logger       *zap.Logger
	Metrics      *metrics.Collectors
}

// CustomerList watches every customer ordered by first name.
func CustomerList(deps Deps) (*Query[[]records.Customer], error) {
	customers := deps.Repositories.Customers
	return New(Config[[]records.Customer]{
		Name:    QueryCustomerList,
		Bus:     deps.Bus,
		Tables:  []string{schema.TableCustomers},
		Fetch:   customers.GetAll,
		Logger:  deps.Logger,
		Metrics: deps.Metrics,
	})
}

// MeasurementByCustomer watches the measurement of one customer. The value is
// nil while the customer has none.
func MeasurementByCustomer(deps Deps, customerID int64) (*Query[*records.Measurement], error) {
	measurements := deps.Repositories.Measurements
	return New(Config[*records.Measurement]{
		Name:   QueryMeasurementByCustomer,
		Bus:    deps.Bus,
		Tables: []string{schema.TableMeasurements},
		Fetch: func(ctx context.Context) (*records.Measurement, error) {
			return measurements.GetByCustomerID(ctx, customerID)
		},
		Logger:  deps.Logger,
		Metrics: deps.Metrics,
	})
}
