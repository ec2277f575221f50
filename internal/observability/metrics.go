package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the research catalog service.
// Metrics are organized by subsystem: http, import, export, reconcile and events.
// All counters and histograms are registered via promauto with the default registry.
type Metrics struct {
	// HTTPRequestsTotal counts API requests, labeled by method, route pattern and status code.
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPRequestDuration observes API request duration in seconds, labeled by method and route pattern.
	HTTPRequestDuration *prometheus.HistogramVec

	// ImportsTotal counts CSV imports, labeled by outcome (success, warning, error).
	ImportsTotal *prometheus.CounterVec

	// ImportDuration observes the end-to-end duration of an import in seconds.
	ImportDuration prometheus.Histogram

	// ImportRowsParsed counts data rows parsed from uploaded CSV files.
	ImportRowsParsed prometheus.Counter

	// ImportParseWarnings counts recoverable CSV parse warnings.
	ImportParseWarnings prometheus.Counter

	// ImportArticles counts imported articles, labeled by result (new, existing, failed).
	ImportArticles *prometheus.CounterVec

	// ImportEntitiesCreated counts reference entities created by imports, labeled by entity.
	ImportEntitiesCreated *prometheus.CounterVec

	// ExportsTotal counts exports, labeled by format (csv, archive).
	ExportsTotal *prometheus.CounterVec

	// ExportRows counts article rows written by exports.
	ExportRows prometheus.Counter

	// ReconcileRuns counts reconciliation runs, labeled by mode (check, apply).
	ReconcileRuns *prometheus.CounterVec

	// ReconcileIssues reports the issues found by the latest run, labeled by kind.
	ReconcileIssues *prometheus.GaugeVec

	// ReconcileRepairs counts repair attempts, labeled by result (fixed, failed).
	ReconcileRepairs *prometheus.CounterVec

	// EventsPublished counts catalog events published, labeled by event type.
	EventsPublished *prometheus.CounterVec

	// EventsFailed counts catalog events that could not be published, labeled by event type.
	EventsFailed *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		// HTTP
		HTTPRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of API requests",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of API requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),

		// Import
		ImportsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "runs_total",
			Help:      "Total number of CSV imports by outcome",
		}, []string{"outcome"}),
		ImportDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "duration_seconds",
			Help:      "Duration of CSV imports in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		ImportRowsParsed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "rows_parsed_total",
			Help:      "Total number of CSV data rows parsed",
		}),
		ImportParseWarnings: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "parse_warnings_total",
			Help:      "Total number of recoverable CSV parse warnings",
		}),
		ImportArticles: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "articles_total",
			Help:      "Total number of imported articles by result",
		}, []string{"result"}),
		ImportEntitiesCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "entities_created_total",
			Help:      "Total number of reference entities created by imports",
		}, []string{"entity"}),

		// Export
		ExportsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "runs_total",
			Help:      "Total number of exports by format",
		}, []string{"format"}),
		ExportRows: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "rows_total",
			Help:      "Total number of article rows exported",
		}),

		// Reconcile
		ReconcileRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "runs_total",
			Help:      "Total number of identifier reconciliation runs",
		}, []string{"mode"}),
		ReconcileIssues: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "issues",
			Help:      "Issues found by the latest reconciliation run",
		}, []string{"kind"}),
		ReconcileRepairs: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "repairs_total",
			Help:      "Total number of identifier repairs by result",
		}, []string{"result"}),

		// Events
		EventsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Total number of catalog events published",
		}, []string{"event_type"}),
		EventsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "failed_total",
			Help:      "Total number of catalog events that failed to publish",
		}, []string{"event_type"}),
	}
}

// Record methods are no-ops on a nil *Metrics.

// RecordHTTPRequest records a served API request.
func (m *Metrics) RecordHTTPRequest(method, route, status string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(durationSeconds)
}

// RecordImport records a finished import with its outcome.
func (m *Metrics) RecordImport(outcome string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.ImportsTotal.WithLabelValues(outcome).Inc()
	m.ImportDuration.Observe(durationSeconds)
}

// RecordRowsParsed records parsed CSV rows and warnings.
func (m *Metrics) RecordRowsParsed(rows, warnings int) {
	if m == nil {
		return
	}
	m.ImportRowsParsed.Add(float64(rows))
	m.ImportParseWarnings.Add(float64(warnings))
}

// RecordArticles records imported articles by result.
func (m *Metrics) RecordArticles(result string, count int) {
	if m == nil {
		return
	}
	if count > 0 {
		m.ImportArticles.WithLabelValues(result).Add(float64(count))
	}
}

// RecordEntitiesCreated records reference entities created by an import.
func (m *Metrics) RecordEntitiesCreated(entity string, count int) {
	if m == nil {
		return
	}
	if count > 0 {
		m.ImportEntitiesCreated.WithLabelValues(entity).Add(float64(count))
	}
}

// RecordExport records an export and the number of rows it wrote.
func (m *Metrics) RecordExport(format string, rows int) {
	if m == nil {
		return
	}
	m.ExportsTotal.WithLabelValues(format).Inc()
	m.ExportRows.Add(float64(rows))
}

// RecordReconcile records a reconciliation run and the issues it found per kind.
func (m *Metrics) RecordReconcile(mode string, issues map[string]int, fixed, failed int) {
	if m == nil {
		return
	}
	m.ReconcileRuns.WithLabelValues(mode).Inc()
	for kind, n := range issues {
		m.ReconcileIssues.WithLabelValues(kind).Set(float64(n))
	}
	if fixed > 0 {
		m.ReconcileRepairs.WithLabelValues("fixed").Add(float64(fixed))
	}
	if failed > 0 {
		m.ReconcileRepairs.WithLabelValues("failed").Add(float64(failed))
	}
}

// RecordEventPublished records a published catalog event.
func (m *Metrics) RecordEventPublished(eventType string) {
	if m == nil {
		return
	}
	m.EventsPublished.WithLabelValues(eventType).Inc()
}

// RecordEventFailed records a catalog event that failed to publish.
func (m *Metrics) RecordEventFailed(eventType string) {
	if m == nil {
		return
	}
	m.EventsFailed.WithLabelValues(eventType).Inc()
}
