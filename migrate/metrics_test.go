/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package migrate

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestPrometheusMetrics_ObserveRun(t *testing.T) {
	pm := NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{
		Namespace:   "app",
		ConstLabels: prometheus.Labels{"service": "billing"},
	})

	pm.ObserveRun(Report{
		Applied:    []TaskRef{{Version: "1.0.0", Task: "a"}, {Version: "1.0.0", Task: "b"}},
		Skipped:    3,
		Backfilled: []TaskRef{{Version: "0.9.0", Task: "c"}},
	}, 150*time.Millisecond, nil)

	require.Equal(t, 2.0, testutil.ToFloat64(pm.Tasks.WithLabelValues(TaskResultApplied)))
	require.Equal(t, 3.0, testutil.ToFloat64(pm.Tasks.WithLabelValues(TaskResultSkipped)))
	require.Equal(t, 1.0, testutil.ToFloat64(pm.Tasks.WithLabelValues(TaskResultBackfilled)))

	// Tasks of failed runs are rolled back and not counted.
	pm.ObserveRun(Report{Applied: []TaskRef{{Version: "1.1.0", Task: "d"}}}, time.Second, errors.New("failed"))
	require.Equal(t, 2.0, testutil.ToFloat64(pm.Tasks.WithLabelValues(TaskResultApplied)))

	require.Equal(t, 2, testutil.CollectAndCount(pm.RunDurations, "app_change_set_run_duration_seconds"))
}

func TestPrometheusMetrics_Register(t *testing.T) {
	pm := NewPrometheusMetrics()
	require.NotPanics(t, pm.MustRegister)
	pm.Unregister()
	require.NotPanics(t, pm.MustRegister)
	pm.Unregister()
}
