package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Histogram bucket definitions.
var (
	httpDurationBuckets  = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
	storeDurationBuckets = []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}
)

// Metrics holds all Prometheus metric instruments for the service.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Workflow metrics
	StatusChangesTotal   *prometheus.CounterVec
	StatusChangeFailures *prometheus.CounterVec
	CasesByStatus        *prometheus.GaugeVec

	// Assignment metrics
	AssignmentsTotal          *prometheus.CounterVec
	AssignmentRejectionsTotal *prometheus.CounterVec
	AutoAssignCandidates      prometheus.Histogram

	// Activity metrics
	ActivitiesRecordedTotal *prometheus.CounterVec
	RetentionHiddenTotal    prometheus.Counter

	// Notification metrics
	NotificationsQueuedTotal prometheus.Counter
	NotificationsFailedTotal prometheus.Counter

	// Store metrics
	StoreQueryDuration *prometheus.HistogramVec
}

// InitMetrics creates and registers all Prometheus metric instruments.
func InitMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "caseflow_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path_pattern", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "caseflow_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: httpDurationBuckets,
		}, []string{"method", "path_pattern"}),

		StatusChangesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "caseflow_status_changes_total",
			Help: "Total number of successful case status changes.",
		}, []string{"from", "to"}),
		StatusChangeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "caseflow_status_change_failures_total",
			Help: "Total number of rejected status changes.",
		}, []string{"code"}),
		CasesByStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "caseflow_cases_by_status",
			Help: "Current number of cases per status.",
		}, []string{"status"}),

		AssignmentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "caseflow_assignments_total",
			Help: "Total number of advocate assignments.",
		}, []string{"kind"}),
		AssignmentRejectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "caseflow_assignment_rejections_total",
			Help: "Total number of rejected assignments.",
		}, []string{"code"}),
		AutoAssignCandidates: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "caseflow_auto_assign_candidates",
			Help:    "Number of eligible candidates per auto-assignment.",
			Buckets: []float64{1, 2, 3, 5, 10, 25, 50},
		}),

		ActivitiesRecordedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "caseflow_activities_recorded_total",
			Help: "Total number of activity entries recorded.",
		}, []string{"type"}),
		RetentionHiddenTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "caseflow_retention_hidden_total",
			Help: "Total number of activity entries hidden by retention sweeps.",
		}),

		NotificationsQueuedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "caseflow_notifications_queued_total",
			Help: "Total number of notifications queued.",
		}),
		NotificationsFailedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "caseflow_notifications_failed_total",
			Help: "Total number of notification dispatch failures.",
		}),

		StoreQueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "caseflow_store_query_duration_seconds",
			Help:    "Store query duration in seconds.",
			Buckets: storeDurationBuckets,
		}, []string{"operation"}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.StatusChangesTotal,
		m.StatusChangeFailures,
		m.CasesByStatus,
		m.AssignmentsTotal,
		m.AssignmentRejectionsTotal,
		m.AutoAssignCandidates,
		m.ActivitiesRecordedTotal,
		m.RetentionHiddenTotal,
		m.NotificationsQueuedTotal,
		m.NotificationsFailedTotal,
		m.StoreQueryDuration,
	)

	return m
}

// --- Recording helpers ---

// RecordHTTPRequest records HTTP request metrics.
func (m *Metrics) RecordHTTPRequest(method, pathPattern string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, pathPattern, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, pathPattern).Observe(duration.Seconds())
}

// RecordStatusChange records a successful status transition.
func (m *Metrics) RecordStatusChange(from, to string) {
	m.StatusChangesTotal.WithLabelValues(from, to).Inc()
	m.CasesByStatus.WithLabelValues(from).Dec()
	m.CasesByStatus.WithLabelValues(to).Inc()
}

// RecordStatusChangeFailure records a rejected status change by error code.
func (m *Metrics) RecordStatusChangeFailure(code string) {
	m.StatusChangeFailures.WithLabelValues(code).Inc()
}

// RecordAssignment records an assignment of the given kind
// (primary, secondary, auto, transfer).
func (m *Metrics) RecordAssignment(kind string) {
	m.AssignmentsTotal.WithLabelValues(kind).Inc()
}

// RecordAssignmentRejection records a rejected assignment by error code.
func (m *Metrics) RecordAssignmentRejection(code string) {
	m.AssignmentRejectionsTotal.WithLabelValues(code).Inc()
}

// RecordAutoAssignPool records the candidate pool size of an auto-assignment.
func (m *Metrics) RecordAutoAssignPool(size int) {
	m.AutoAssignCandidates.Observe(float64(size))
}

// RecordActivity records a recorded activity entry by type.
func (m *Metrics) RecordActivity(activityType string) {
	m.ActivitiesRecordedTotal.WithLabelValues(activityType).Inc()
}

// RecordRetentionSweep records the number of entries hidden by a sweep.
func (m *Metrics) RecordRetentionSweep(hidden int) {
	m.RetentionHiddenTotal.Add(float64(hidden))
}

// RecordNotificationQueued records a queued notification.
func (m *Metrics) RecordNotificationQueued() {
	m.NotificationsQueuedTotal.Inc()
}

// RecordNotificationFailed records a failed notification dispatch.
func (m *Metrics) RecordNotificationFailed() {
	m.NotificationsFailedTotal.Inc()
}

// RecordStoreQuery records the duration of a store operation.
func (m *Metrics) RecordStoreQuery(operation string, duration time.Duration) {
	m.StoreQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// --- HTTP Middleware ---

// MetricsMiddleware returns HTTP middleware that records request metrics using
// chi's route pattern (not the actual URL path) to avoid label cardinality
// explosion.
func (m *Metrics) MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &metricsResponseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		m.RecordHTTPRequest(r.Method, routePattern(r), sw.status, time.Since(start))
	})
}

// Handler returns the Prometheus HTTP handler for the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// routePattern extracts chi's route pattern from the request context.
// Falls back to the raw URL path if no pattern is found.
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return r.URL.Path
	}
	pattern := strings.Join(rctx.RoutePatterns, "")
	// chi route patterns have trailing /*, remove it.
	pattern = strings.TrimSuffix(pattern, "/*")
	if pattern == "" {
		return r.URL.Path
	}
	return pattern
}

// metricsResponseWriter wraps http.ResponseWriter to capture the status code.
type metricsResponseWriter struct {
	http.ResponseWriter
	status  int
	written bool
}

func (w *metricsResponseWriter) WriteHeader(code int) {
	if !w.written {
		w.status = code
		w.written = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *metricsResponseWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.written = true
	}
	return w.ResponseWriter.Write(b)
}
