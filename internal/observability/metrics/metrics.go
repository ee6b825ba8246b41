package metrics

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeOK = "ok"

	OperationCreate   = "create_with_participants"
	OperationSync     = "sync_participants"
	OperationGet      = "get_with_participants"
	OperationValidate = "validate_participants"
	OperationBulkSync = "bulk_sync"
)

// Config labels every series with the service identity.
type Config struct {
	ServiceName string
	Environment string
}

// RosterMetrics captures participant engine health signals.
type RosterMetrics struct {
	operations   *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	violations   *prometheus.CounterVec
	rowChanges   *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
}

var (
	rosterMetricsOnce sync.Once
	rosterMetrics     *RosterMetrics
)

// Roster returns the process-wide metrics registered on the default registerer.
func Roster(cfg Config) *RosterMetrics {
	rosterMetricsOnce.Do(func() {
		rosterMetrics = NewRoster(prometheus.DefaultRegisterer, cfg)
	})
	return rosterMetrics
}

// NewRoster registers roster metrics on registerer. Tests pass a fresh prometheus.NewRegistry().
func NewRoster(registerer prometheus.Registerer, cfg Config) *RosterMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "dealroster"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	m := &RosterMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "dealroster_roster_operations_total",
			Help:        "Roster operations by outcome kind.",
			ConstLabels: constLabels,
		}, []string{"operation", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "dealroster_roster_operation_duration_seconds",
			Help:        "Roster operation latency including the database transaction.",
			Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			ConstLabels: constLabels,
		}, []string{"operation"}),
		violations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "dealroster_roster_constraint_violations_total",
			Help:        "Writes rejected because a roster invariant would break.",
			ConstLabels: constLabels,
		}, []string{"invariant"}),
		rowChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "dealroster_roster_row_changes_total",
			Help:        "Participant rows written or removed by sync operations.",
			ConstLabels: constLabels,
		}, []string{"change"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "dealroster_http_requests_total",
			Help:        "HTTP requests by route and status.",
			ConstLabels: constLabels,
		}, []string{"method", "route", "status"}),
	}

	registerer.MustRegister(m.operations, m.duration, m.violations, m.rowChanges, m.httpRequests)
	return m
}

// ObserveOperation records one roster operation. outcome is OutcomeOK or an error kind.
func (m *RosterMetrics) ObserveOperation(operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = OutcomeOK
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
	m.duration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func (m *RosterMetrics) RecordViolation(invariant string) {
	if m == nil || invariant == "" {
		return
	}
	m.violations.WithLabelValues(invariant).Inc()
}

func (m *RosterMetrics) RecordRowChanges(upserted, deleted int) {
	if m == nil {
		return
	}
	if upserted > 0 {
		m.rowChanges.WithLabelValues("upserted").Add(float64(upserted))
	}
	if deleted > 0 {
		m.rowChanges.WithLabelValues("deleted").Add(float64(deleted))
	}
}

// GinMiddleware counts requests by matched route so path parameters stay low-cardinality.
func GinMiddleware(m *RosterMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if m == nil {
			return
		}
		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		m.httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
