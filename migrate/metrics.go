/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package migrate

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector collects metrics of change set runs.
type MetricsCollector interface {
	ObserveRun(report Report, duration time.Duration, err error)
}

// Task results used as label values.
const (
	TaskResultApplied    = "applied"
	TaskResultSkipped    = "skipped"
	TaskResultBackfilled = "backfilled"
)

// Run statuses used as label values.
const (
	RunStatusOK    = "ok"
	RunStatusError = "error"
)

// DefaultRunDurationBuckets is default buckets into which observations of run durations are counted.
var DefaultRunDurationBuckets = []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 300}

// PrometheusMetricsOpts represents options for PrometheusMetrics.
type PrometheusMetricsOpts struct {
	// Namespace is a namespace for metrics. It will be prepended to all metric names.
	Namespace string

	// RunDurationBuckets is a list of buckets into which observations of run durations are counted.
	RunDurationBuckets []float64

	// ConstLabels is a set of labels that will be applied to all metrics.
	ConstLabels prometheus.Labels
}

// PrometheusMetrics represents a collector of Prometheus metrics for change set runs.
type PrometheusMetrics struct {
	Tasks        *prometheus.CounterVec
	RunDurations *prometheus.HistogramVec
}

var _ MetricsCollector = (*PrometheusMetrics)(nil)

// NewPrometheusMetrics creates a new metrics collector with default options.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{})
}

// NewPrometheusMetricsWithOpts creates a new metrics collector with the given options.
func NewPrometheusMetricsWithOpts(opts PrometheusMetricsOpts) *PrometheusMetrics {
	runDurationBuckets := opts.RunDurationBuckets
	if runDurationBuckets == nil {
		runDurationBuckets = DefaultRunDurationBuckets
	}
	tasks := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "change_set_tasks_total",
			Help:        "Number of change set tasks processed by result.",
			ConstLabels: opts.ConstLabels,
		},
		[]string{"result"},
	)
	runDurations := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   opts.Namespace,
			Name:        "change_set_run_duration_seconds",
			Help:        "A histogram of the change set execution durations.",
			Buckets:     runDurationBuckets,
			ConstLabels: opts.ConstLabels,
		},
		[]string{"status"},
	)
	return &PrometheusMetrics{Tasks: tasks, RunDurations: runDurations}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(pm.Tasks, pm.RunDurations)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.Tasks)
	prometheus.Unregister(pm.RunDurations)
}

// ObserveRun updates the metrics with the outcome of a run.
func (pm *PrometheusMetrics) ObserveRun(report Report, duration time.Duration, err error) {
	status := RunStatusOK
	if err != nil {
		status = RunStatusError
	}
	pm.RunDurations.WithLabelValues(status).Observe(duration.Seconds())
	if err != nil {
		// Nothing of a failed run is committed.
		return
	}
	pm.Tasks.WithLabelValues(TaskResultApplied).Add(float64(len(report.Applied)))
	pm.Tasks.WithLabelValues(TaskResultSkipped).Add(float64(report.Skipped))
	pm.Tasks.WithLabelValues(TaskResultBackfilled).Add(float64(len(report.Backfilled)))
}
