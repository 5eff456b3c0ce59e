package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"github.com/swapnilkulkarni99salesforce/mobileAppDemo/internal/database"
	"github.com/swapnilkulkarni99salesforce/mobileAppDemo/internal/invalidation"
	"github.com/swapnilkulkarni99salesforce/mobileAppDemo/internal/metrics"
	"github.com/swapnilkulkarni99salesforce/mobileAppDemo/internal/records"
	"github.com/swapnilkulkarni99salesforce/mobileAppDemo/internal/schema"
	"github.com/swapnilkulkarni99salesforce/mobileAppDemo/internal/workload"
)

// testNow is Wednesday 2024-05-01 in the afternoon.
var testNow = time.Date(2024, 5, 1, 15, 0, 0, 0, time.UTC)

type fixedSyncStatus time.Time

func (f fixedSyncStatus) LastSuccess() time.Time {
	return time.Time(f)
}

type testServer struct {
	store   *database.Store
	handler http.Handler
}

func newTestServer(t *testing.T, sync SyncStatusSource) testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	registry := prometheus.NewRegistry()
	collectors, err := metrics.New(registry)
	require.NoError(t, err)
	store, err := database.Open(t.Context(), database.Options{
		Path: filepath.Join(t.TempDir(), "shop.db"),
		Bus:  invalidation.NewBus(collectors),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	handler, err := NewHTTPHandler(Dependencies{
		Repositories: store.Repositories,
		Bus:          store.Bus,
		Metrics:      collectors,
		Gatherer:     registry,
		Sync:         sync,
		Heartbeat:    time.Minute,
		Clock:        func() time.Time { return testNow },
	})
	require.NoError(t, err)
	return testServer{store: store, handler: handler}
}

func (s testServer) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	request := httptest.NewRequest(http.MethodGet, path, http.NoBody)
	recorder := httptest.NewRecorder()
	s.handler.ServeHTTP(recorder, request)
	return recorder
}

func insertCustomer(t *testing.T, store *database.Store, firstName string) int64 {
	t.Helper()
	id, err := store.Repositories.Customers.Insert(t.Context(), &records.Customer{
		FirstName: firstName, LastName: "Rao", Mobile: "9000000001",
		SyncTrailer: records.SyncTrailer{LastModified: 100, SyncStatus: records.SyncPending},
	})
	require.NoError(t, err)
	return id
}

func TestNewHTTPHandlerRequiresDependencies(t *testing.T) {
	_, err := NewHTTPHandler(Dependencies{})
	require.ErrorIs(t, err, errMissingRepositories)

	server := newTestServer(t, nil)
	_, err = NewHTTPHandler(Dependencies{Repositories: server.store.Repositories})
	require.ErrorIs(t, err, errMissingBus)
}

func TestCustomerRoutes(t *testing.T) {
	server := newTestServer(t, nil)
	zara := insertCustomer(t, server.store, "Zara")
	asha := insertCustomer(t, server.store, "Asha")

	recorder := server.get(t, "/customers")
	require.Equal(t, http.StatusOK, recorder.Code)
	var customers []records.Customer
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &customers))
	require.Len(t, customers, 2)
	require.Equal(t, asha, customers[0].ID, "customers are ordered by first name")
	require.Equal(t, zara, customers[1].ID)

	recorder = server.get(t, "/customers/"+itoa(zara))
	require.Equal(t, http.StatusOK, recorder.Code)
	var customer records.Customer
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &customer))
	require.Equal(t, "Zara", customer.FirstName)

	require.Equal(t, http.StatusNotFound, server.get(t, "/customers/999").Code)
	require.Equal(t, http.StatusBadRequest, server.get(t, "/customers/abc").Code)
	require.Equal(t, http.StatusNotFound, server.get(t, "/customers/"+itoa(zara)+"/measurement").Code)
}

func TestOrderRoutes(t *testing.T) {
	server := newTestServer(t, nil)
	customerID := insertCustomer(t, server.store, "Asha")
	for _, date := range []string{"2024-01-10", "2024-03-02"} {
		_, err := server.store.Repositories.Orders.Insert(t.Context(), &records.Order{
			CustomerID: customerID, CustomerName: "Asha Rao", OrderDate: date, Amount: 900,
			SyncTrailer: records.SyncTrailer{LastModified: 1, SyncStatus: records.SyncPending},
		})
		require.NoError(t, err)
	}

	recorder := server.get(t, "/orders")
	require.Equal(t, http.StatusOK, recorder.Code)
	var orders []records.Order
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &orders))
	require.Len(t, orders, 2)
	require.Equal(t, "2024-03-02", orders[0].OrderDate, "newest order first")

	recorder = server.get(t, "/customers/"+itoa(customerID)+"/orders")
	require.Equal(t, http.StatusOK, recorder.Code)
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &orders))
	require.Len(t, orders, 2)
}

func TestWorkloadRouteDoesNotWrite(t *testing.T) {
	server := newTestServer(t, nil)

	recorder := server.get(t, "/workload")
	require.Equal(t, http.StatusOK, recorder.Code)
	var payload workloadResponsePayload
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &payload))
	require.False(t, payload.Stored)
	require.InDelta(t, 44.0, payload.WeeklyHours, 0.001)

	stored, err := server.store.Repositories.WorkloadConfigs.Get(t.Context())
	require.NoError(t, err)
	require.Nil(t, stored)

	_, err = server.store.Repositories.WorkloadConfigs.GetOrCreate(t.Context())
	require.NoError(t, err)
	recorder = server.get(t, "/workload")
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &payload))
	require.True(t, payload.Stored)
}

func TestWorkloadRouteReportsCapacityAndAlerts(t *testing.T) {
	server := newTestServer(t, nil)
	customerID := insertCustomer(t, server.store, "Asha")
	orders := []struct {
		status string
		due    string
	}{
		{status: "Pending", due: "03/05/2024"},
		{status: "In Progress", due: "30/04/2024"},
		{status: "Pending", due: "20/05/2024"},
		{status: "Delivered", due: "01/05/2024"},
	}
	for _, order := range orders {
		_, err := server.store.Repositories.Orders.Insert(t.Context(), &records.Order{
			CustomerID: customerID, CustomerName: "Asha Rao", OrderDate: "2024-04-20",
			Status: order.status, EstimatedDeliveryDate: order.due,
			SyncTrailer: records.SyncTrailer{LastModified: 1},
		})
		require.NoError(t, err)
	}

	recorder := server.get(t, "/workload")
	require.Equal(t, http.StatusOK, recorder.Code)
	var payload workloadResponsePayload
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &payload))

	require.Equal(t, 3, payload.Status.PendingOrders, "delivered orders do not count")
	require.InDelta(t, 28.0, payload.Status.AvailableHoursThisWeek, 0.001)
	require.Equal(t, 21, payload.Status.UtilizationPercent)
	require.Equal(t, workload.LevelAvailable, payload.Status.Level)
	require.True(t, payload.Status.CanAcceptOrders)
	require.Equal(t, "01/05/2024", payload.NextDeliveryDate)

	require.Len(t, payload.Alerts, 2)
	require.Equal(t, workload.AlertUrgent, payload.Alerts[0].Level)
	require.True(t, payload.Alerts[0].Overdue)
	require.Equal(t, "In Progress", payload.Alerts[0].Order.Status)
	require.Equal(t, workload.AlertWarning, payload.Alerts[1].Level)
	require.Equal(t, 1, payload.Alerts[1].DaysUntilDelivery)
}

func TestListRoutesFilterBySyncStatus(t *testing.T) {
	server := newTestServer(t, nil)
	insertCustomer(t, server.store, "Asha")
	serverID := "srv-c1"
	_, err := server.store.Repositories.Customers.Insert(t.Context(), &records.Customer{
		FirstName: "Meera", LastName: "Iyer", Mobile: "9000000002",
		SyncTrailer: records.SyncTrailer{LastModified: 100, ServerID: &serverID, SyncStatus: records.SyncSynced},
	})
	require.NoError(t, err)

	recorder := server.get(t, "/customers?syncStatus=synced")
	require.Equal(t, http.StatusOK, recorder.Code)
	var customers []records.Customer
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &customers))
	require.Len(t, customers, 1)
	require.Equal(t, "Meera", customers[0].FirstName)

	recorder = server.get(t, "/orders?syncStatus=PENDING")
	require.Equal(t, http.StatusOK, recorder.Code)
	var orders []records.Order
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &orders))
	require.Empty(t, orders)

	recorder = server.get(t, "/customers?syncStatus=lost")
	require.Equal(t, http.StatusBadRequest, recorder.Code)
	require.Contains(t, recorder.Body.String(), "invalid_sync_status")
	require.Equal(t, http.StatusBadRequest, server.get(t, "/orders?syncStatus=").Code)
}

func TestMeasurementRouteSummarizesGarments(t *testing.T) {
	server := newTestServer(t, nil)
	customerID := insertCustomer(t, server.store, "Asha")
	_, err := server.store.Repositories.Measurements.Insert(t.Context(), &records.Measurement{
		CustomerID: customerID, KurtiLength: "40", ChestRound: "36", PantWaist: "30",
		SyncTrailer: records.SyncTrailer{LastModified: 1},
	})
	require.NoError(t, err)

	recorder := server.get(t, "/customers/"+itoa(customerID)+"/measurement")
	require.Equal(t, http.StatusOK, recorder.Code)
	var payload measurementResponsePayload
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &payload))
	require.Equal(t, "40", payload.KurtiLength)
	require.Equal(t, customerID, payload.CustomerID)
	require.Equal(t, 10, payload.Summary.KurtiCompleteness, "2 of 19 kurti fields")
	require.True(t, payload.Summary.HasKurti)
	require.True(t, payload.Summary.HasPant)
	require.False(t, payload.Summary.HasBlouse)
	require.True(t, payload.Summary.HasAny)
}

func TestPendingRoute(t *testing.T) {
	lastSync := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	server := newTestServer(t, fixedSyncStatus(lastSync))
	insertCustomer(t, server.store, "Asha")

	recorder := server.get(t, "/sync/pending")
	require.Equal(t, http.StatusOK, recorder.Code)
	var payload pendingResponsePayload
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &payload))
	require.Equal(t, int64(1), payload.Tables[schema.TableCustomers])
	require.Equal(t, int64(0), payload.Tables[schema.TableOrders])
	require.NotNil(t, payload.LastSuccess)
	require.True(t, lastSync.Equal(*payload.LastSuccess))
}

func TestMetricsRoute(t *testing.T) {
	server := newTestServer(t, nil)
	insertCustomer(t, server.store, "Asha")

	recorder := server.get(t, "/metrics")
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Contains(t, recorder.Body.String(), `perfectfit_table_invalidations_total{table="customers"}`)
}

func TestCORSPreflight(t *testing.T) {
	server := newTestServer(t, nil)

	request := httptest.NewRequest(http.MethodOptions, "/customers", http.NoBody)
	request.Header.Set("Origin", "http://localhost:3000")
	request.Header.Set("Access-Control-Request-Method", http.MethodGet)
	recorder := httptest.NewRecorder()
	server.handler.ServeHTTP(recorder, request)

	require.Equal(t, http.StatusNoContent, recorder.Code)
	require.Equal(t, "*", recorder.Header().Get("Access-Control-Allow-Origin"))
	require.True(t, strings.Contains(recorder.Header().Get("Access-Control-Allow-Methods"), http.MethodGet))
}
