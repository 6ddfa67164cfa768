package observer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricsEnabled = true // Flag to control metric collection

	// Labels for run-level metrics
	importRunLabels = []string{"company_id", "run_kind", "status"}
	// Labels for per-lead outcome metrics
	leadActionLabels = []string{"company_id", "action"}

	// ImportRunsTotal counts orchestrator invocations by final classification.
	ImportRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lead_sync_import_runs_total",
			Help: "Total number of import runs, labeled by run kind and final status.",
		},
		importRunLabels,
	)

	// LeadActionsTotal counts per-lead outcomes across all runs.
	LeadActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lead_sync_lead_actions_total",
			Help: "Total per-lead outcomes (imported, updated, duplicated, errored, skipped).",
		},
		leadActionLabels,
	)

	// ImportRunDurationSeconds tracks end-to-end run durations.
	ImportRunDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lead_sync_import_run_duration_seconds",
			Help:    "Histogram of import run durations.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~200s
		},
		[]string{"company_id", "run_kind"},
	)

	// SourceRequestDurationSeconds tracks external API latency.
	SourceRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lead_sync_source_request_duration_seconds",
			Help:    "Histogram of external lead API request durations.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
		},
		[]string{"endpoint", "status"},
	)

	// ActivePollingJobs reports how many configs currently have a cron entry.
	ActivePollingJobs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lead_sync_active_polling_jobs",
		Help: "Current number of registered recurring polling jobs.",
	})

	// DatabaseOperationDurationSeconds tracks repo call latency.
	DatabaseOperationDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lead_sync_database_operation_duration_seconds",
			Help:    "Histogram of database operation durations.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "entity", "company_id", "status"},
	)
)

// SetMetricsEnabled toggles metric collection globally.
func SetMetricsEnabled(enabled bool) {
	metricsEnabled = enabled
}

// sanitizeTenant keeps the company label bounded; empty becomes "unknown".
func sanitizeTenant(companyID string) string {
	if companyID == "" {
		return "unknown"
	}
	return companyID
}

// IncImportRun counts one finished run.
func IncImportRun(companyID, runKind, status string) {
	if !metricsEnabled {
		return
	}
	ImportRunsTotal.WithLabelValues(sanitizeTenant(companyID), runKind, status).Inc()
}

// AddLeadAction adds n outcomes of the given action for a tenant.
func AddLeadAction(companyID, action string, n int) {
	if !metricsEnabled || n <= 0 {
		return
	}
	LeadActionsTotal.WithLabelValues(sanitizeTenant(companyID), action).Add(float64(n))
}

// ObserveImportRunDuration records the wall time of one run.
func ObserveImportRunDuration(companyID, runKind string, duration time.Duration) {
	if !metricsEnabled {
		return
	}
	ImportRunDurationSeconds.WithLabelValues(sanitizeTenant(companyID), runKind).Observe(duration.Seconds())
}

// ObserveSourceRequestDuration records one external API call.
func ObserveSourceRequestDuration(endpoint, status string, duration time.Duration) {
	if !metricsEnabled {
		return
	}
	SourceRequestDurationSeconds.WithLabelValues(endpoint, status).Observe(duration.Seconds())
}

// SetActivePollingJobs sets the polling job gauge to the registry size.
func SetActivePollingJobs(n int) {
	if !metricsEnabled {
		return
	}
	ActivePollingJobs.Set(float64(n))
}

// ObserveDbOperationDuration records the duration for a database operation.
func ObserveDbOperationDuration(operation, entity, companyID string, duration time.Duration, err error) {
	if !metricsEnabled {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	DatabaseOperationDurationSeconds.WithLabelValues(operation, entity, sanitizeTenant(companyID), status).Observe(duration.Seconds())
}
