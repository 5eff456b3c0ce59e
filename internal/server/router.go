package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/swapnilkulkarni99salesforce/mobileAppDemo/internal/invalidation"
	"github.com/swapnilkulkarni99salesforce/mobileAppDemo/internal/live"
	"github.com/swapnilkulkarni99salesforce/mobileAppDemo/internal/metrics"
	"github.com/swapnilkulkarni99salesforce/mobileAppDemo/internal/records"
	"github.com/swapnilkulkarni99salesforce/mobileAppDemo/internal/syncdriver"
	"github.com/swapnilkulkarni99salesforce/mobileAppDemo/internal/workload"
	"go.uber.org/zap"
)

var (
	errMissingRepositories = errors.New("repositories dependency required")
	errMissingBus          = errors.New("invalidation bus dependency required")
)

// SyncStatusSource reports when the last clean sync pass finished.
type SyncStatusSource interface {
	LastSuccess() time.Time
}

type Dependencies struct {
	Repositories *records.Repositories
	Bus          *invalidation.Bus
	Metrics      *metrics.Collectors
	// Gatherer backs GET /metrics; the route is absent when nil.
	Gatherer prometheus.Gatherer
	// Sync is optional; when set, GET /sync/pending includes the last success.
	Sync      SyncStatusSource
	Heartbeat time.Duration
	// Clock dates the workload figures; defaults to time.Now.
	Clock  func() time.Time
	Logger *zap.Logger
}

// NewHTTPHandler builds the local read API.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Repositories == nil {
		return nil, errMissingRepositories
	}
	if deps.Bus == nil {
		return nil, errMissingBus
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	heartbeat := deps.Heartbeat
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	handler := &httpHandler{
		repos:     deps.Repositories,
		sync:      deps.Sync,
		heartbeat: heartbeat,
		clock:     clock,
		logger:    logger,
		liveDeps: live.Deps{
			Repositories: deps.Repositories,
			Bus:          deps.Bus,
			Logger:       logger,
			Metrics:      deps.Metrics,
		},
	}

	router.GET("/customers", handler.handleListCustomers)
	router.GET("/customers/:id", handler.handleGetCustomer)
	router.GET("/customers/:id/measurement", handler.handleGetMeasurement)
	router.GET("/customers/:id/orders", handler.handleCustomerOrders)
	router.GET("/orders", handler.handleListOrders)
	router.GET("/workload", handler.handleWorkload)
	router.GET("/sync/pending", handler.handlePending)

	router.GET("/streams/customers", handler.handleCustomerStream)
	router.GET("/streams/customers/:id/measurement", handler.handleMeasurementStream)

	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	return router, nil
}

func corsMiddleware() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodOptions},
		AllowHeaders:    []string{"Accept", "Cache-Control", "Content-Type"},
		MaxAge:          12 * time.Hour,
	})
}

type httpHandler struct {
	repos     *records.Repositories
	sync      SyncStatusSource
	heartbeat time.Duration
	clock     func() time.Time
	logger    *zap.Logger
	liveDeps  live.Deps
}

type workloadResponsePayload struct {
	Config           records.WorkloadConfig `json:"config"`
	Stored           bool                   `json:"stored"`
	WeeklyHours      float64                `json:"weeklyHours"`
	Status           workload.Status        `json:"status"`
	NextDeliveryDate string                 `json:"nextDeliveryDate"`
	Alerts           []workload.Alert       `json:"alerts"`
}

type measurementSummary struct {
	KurtiCompleteness int  `json:"kurtiCompleteness"`
	HasKurti          bool `json:"hasKurti"`
	HasPant           bool `json:"hasPant"`
	HasBlouse         bool `json:"hasBlouse"`
	HasAny            bool `json:"hasAny"`
}

type measurementResponsePayload struct {
	records.Measurement
	Summary measurementSummary `json:"summary"`
}

type pendingResponsePayload struct {
	Tables      map[string]int64 `json:"tables"`
	LastSuccess *time.Time       `json:"lastSuccess,omitempty"`
}

func (h *httpHandler) handleListCustomers(c *gin.Context) {
	status, filtered, ok := parseSyncStatusFilter(c)
	if !ok {
		return
	}
	var (
		customers []records.Customer
		err       error
	)
	if filtered {
		customers, err = h.repos.Customers.GetBySyncStatus(c.Request.Context(), status)
	} else {
		customers, err = h.repos.Customers.GetAll(c.Request.Context())
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, customers)
}

func (h *httpHandler) handleGetCustomer(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	customer, err := h.repos.Customers.GetByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if customer == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	c.JSON(http.StatusOK, customer)
}

func (h *httpHandler) handleGetMeasurement(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	measurement, err := h.repos.Measurements.GetByCustomerID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if measurement == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	c.JSON(http.StatusOK, measurementResponsePayload{
		Measurement: *measurement,
		Summary: measurementSummary{
			KurtiCompleteness: measurement.KurtiCompleteness(),
			HasKurti:          measurement.HasKurti(),
			HasPant:           measurement.HasPant(),
			HasBlouse:         measurement.HasBlouse(),
			HasAny:            measurement.HasAny(),
		},
	})
}

func (h *httpHandler) handleCustomerOrders(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	orders, err := h.repos.Orders.GetByCustomerID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *httpHandler) handleListOrders(c *gin.Context) {
	status, filtered, ok := parseSyncStatusFilter(c)
	if !ok {
		return
	}
	var (
		orders []records.Order
		err    error
	)
	if filtered {
		orders, err = h.repos.Orders.GetBySyncStatus(c.Request.Context(), status)
	} else {
		orders, err = h.repos.Orders.GetAll(c.Request.Context())
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// handleWorkload never writes: a store without a configuration row reports
// the defaults with stored=false. Capacity and alerts cover the orders still
// Pending or In Progress.
func (h *httpHandler) handleWorkload(c *gin.Context) {
	ctx := c.Request.Context()
	config, err := h.repos.WorkloadConfigs.Get(ctx)
	if err != nil {
		h.respondError(c, err)
		return
	}
	orders, err := h.repos.Orders.GetAll(ctx)
	if err != nil {
		h.respondError(c, err)
		return
	}

	response := workloadResponsePayload{Stored: config != nil}
	if config != nil {
		response.Config = *config
	} else {
		response.Config = records.DefaultWorkloadConfig()
	}
	response.WeeklyHours = response.Config.TotalWeeklyHours()

	now := h.clock()
	open := workload.ActiveOrders(orders)
	response.Status = workload.Calculate(open, response.Config, now)
	response.NextDeliveryDate = workload.DeliveryDate(len(open), response.Config, now).Format(workload.DateLayout)
	response.Alerts = workload.Alerts(open, now)
	c.JSON(http.StatusOK, response)
}

func (h *httpHandler) handlePending(c *gin.Context) {
	counts, err := syncdriver.PendingCounts(c.Request.Context(), h.repos)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response := pendingResponsePayload{Tables: counts}
	if h.sync != nil {
		if last := h.sync.LastSuccess(); !last.IsZero() {
			last = last.UTC()
			response.LastSuccess = &last
		}
	}
	c.JSON(http.StatusOK, response)
}

func (h *httpHandler) handleCustomerStream(c *gin.Context) {
	query, err := live.CustomerList(h.liveDeps)
	if err != nil {
		h.respondError(c, err)
		return
	}
	streamQuery(c, query, h.heartbeat)
}

func (h *httpHandler) handleMeasurementStream(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	query, err := live.MeasurementByCustomer(h.liveDeps, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	streamQuery(c, query, h.heartbeat)
}

func (h *httpHandler) respondError(c *gin.Context, err error) {
	switch records.KindOf(err) {
	case records.KindNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	case records.KindCanceled:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "canceled"})
	default:
		h.logger.Error("read request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage_failure"})
	}
}

// parseSyncStatusFilter reads the optional syncStatus query parameter.
func parseSyncStatusFilter(c *gin.Context) (records.SyncStatus, bool, bool) {
	raw, present := c.GetQuery("syncStatus")
	if !present {
		return "", false, true
	}
	status, err := records.ParseSyncStatus(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_sync_status"})
		return "", false, false
	}
	return status, true, true
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_id"})
		return 0, false
	}
	return id, true
}
