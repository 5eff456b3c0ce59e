package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCollectorsCountPerLabel(t *testing.T) {
	registry := prometheus.NewRegistry()
	collectors, err := New(registry)
	require.NoError(t, err)

	collectors.TableInvalidated("customers")
	collectors.TableInvalidated("customers")
	collectors.TableInvalidated("orders")
	collectors.LiveRefreshed("customer_list", false)
	collectors.SyncOutcome("orders", "synced", 3)
	collectors.SyncOutcome("orders", "failed", 0)

	require.Equal(t, 2.0, testutil.ToFloat64(collectors.tableNotifications.WithLabelValues("customers")))
	require.Equal(t, 1.0, testutil.ToFloat64(collectors.tableNotifications.WithLabelValues("orders")))
	require.Equal(t, 1.0, testutil.ToFloat64(collectors.liveRefreshes.WithLabelValues("customer_list", "ok")))
	require.Equal(t, 3.0, testutil.ToFloat64(collectors.syncOutcomes.WithLabelValues("orders", "synced")))
}

func TestNewToleratesRepeatedRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()
	_, err := New(registry)
	require.NoError(t, err)
	_, err = New(registry)
	require.NoError(t, err)
}

func TestNilCollectorsAreInert(t *testing.T) {
	var collectors *Collectors
	collectors.TableInvalidated("customers")
	collectors.LiveRefreshed("customer_list", true)
	collectors.SyncOutcome("orders", "failed", 1)
}

func TestSubscriberGaugeReadsCurrentCount(t *testing.T) {
	registry := prometheus.NewRegistry()
	current := 3
	require.NoError(t, RegisterSubscriberGauge(registry, func() int { return current }))
	require.NoError(t, RegisterSubscriberGauge(registry, func() int { return 99 }))

	expected := `
# HELP perfectfit_live_subscribers Live invalidation subscriptions currently registered.
# TYPE perfectfit_live_subscribers gauge
perfectfit_live_subscribers 3
`
	require.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected), "perfectfit_live_subscribers"))

	current = 1
	require.NoError(t, testutil.GatherAndCompare(registry,
		strings.NewReader(strings.Replace(expected, "subscribers 3", "subscribers 1", 1)),
		"perfectfit_live_subscribers"))
}
