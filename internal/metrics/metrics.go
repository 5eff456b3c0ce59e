// Package metrics exposes the Prometheus collectors shared by the store, the
// live queries, and the sync driver.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "perfectfit"

// Collectors groups the counters recorded by the store components. A nil
// *Collectors is valid and records nothing.
type Collectors struct {
	tableNotifications *prometheus.CounterVec
	liveRefreshes      *prometheus.CounterVec
	syncOutcomes       *prometheus.CounterVec
}

// New registers the collectors on the provided registerer. A nil registerer
// falls back to prometheus.DefaultRegisterer.
func New(registry prometheus.Registerer) (*Collectors, error) {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	collectors := &Collectors{
		tableNotifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "table_invalidations_total",
			Help:      "Committed writes reported to the invalidation bus, by table.",
		}, []string{"table"}),
		liveRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_query_refreshes_total",
			Help:      "Live query evaluations, by query and result.",
		}, []string{"query", "result"}),
		syncOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_rows_total",
			Help:      "Rows processed by the sync driver, by table and outcome.",
		}, []string{"table", "outcome"}),
	}

	var err error
	if collectors.tableNotifications, err = register(registry, collectors.tableNotifications); err != nil {
		return nil, err
	}
	if collectors.liveRefreshes, err = register(registry, collectors.liveRefreshes); err != nil {
		return nil, err
	}
	if collectors.syncOutcomes, err = register(registry, collectors.syncOutcomes); err != nil {
		return nil, err
	}
	return collectors, nil
}

// register returns the collector already registered under the same
// descriptor, if any, so repeated construction shares one set of series.
func register(registry prometheus.Registerer, vec *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := registry.Register(vec); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return vec, nil
}

// TableInvalidated counts one committed write against table.
func (c *Collectors) TableInvalidated(table string) {
	if c == nil {
		return
	}
	c.tableNotifications.WithLabelValues(table).Inc()
}

// LiveRefreshed counts one evaluation of a live query.
func (c *Collectors) LiveRefreshed(query string, failed bool) {
	if c == nil {
		return
	}
	result := "ok"
	if failed {
		result = "error"
	}
	c.liveRefreshes.WithLabelValues(query, result).Inc()
}

// SyncOutcome adds count rows to the given table/outcome pair.
func (c *Collectors) SyncOutcome(table, outcome string, count int) {
	if c == nil || count <= 0 {
		return
	}
	c.syncOutcomes.WithLabelValues(table, outcome).Add(float64(count))
}

// RegisterSubscriberGauge exposes count as the number of live invalidation
// subscriptions. Registering twice on the same registry keeps the first gauge.
func RegisterSubscriberGauge(registry prometheus.Registerer, count func() int) error {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	gauge := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "live_subscribers",
		Help:      "Live invalidation subscriptions currently registered.",
	}, func() float64 {
		return float64(count())
	})
	if err := registry.Register(gauge); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			return nil
		}
		return err
	}
	return nil
}
