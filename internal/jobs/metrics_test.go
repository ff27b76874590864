package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

// counterValue returns the value of the counter name whose labels include want.
func counterValue(t *testing.T, reg *prometheus.Registry, name string, want map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
	next:
		for _, metric := range family.GetMetric() {
			labels := map[string]string{}
			for _, pair := range metric.GetLabel() {
				labels[pair.GetName()] = pair.GetValue()
			}
			for k, v := range want {
				if labels[k] != v {
					continue next
				}
			}
			return metric.GetCounter().GetValue()
		}
	}
	return 0
}

func TestTrackerRecordsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	require.NoError(t, metrics.Track("appstate:warm_reason_codes").End(nil))
	failure := errors.New("boom")
	require.ErrorIs(t, metrics.Track("appstate:warm_reason_codes").End(failure), failure)

	require.Equal(t, 1.0, counterValue(t, reg, "stockwizard_jobs_total", map[string]string{"job": "appstate:warm_reason_codes", "status": "success"}))
	require.Equal(t, 1.0, counterValue(t, reg, "stockwizard_jobs_total", map[string]string{"job": "appstate:warm_reason_codes", "status": "failure"}))
	require.Equal(t, 1.0, counterValue(t, reg, "stockwizard_jobs_failures_total", map[string]string{"job": "appstate:warm_reason_codes"}))
}

func TestAddWarmedIgnoresEmptyLoads(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	metrics.AddWarmed("translations", 0)
	metrics.AddWarmed("translations", 42)

	require.Equal(t, 42.0, counterValue(t, reg, "stockwizard_cache_warmed_entries_total", map[string]string{"kind": "translations"}))
}

func TestNilMetricsTracker(t *testing.T) {
	var metrics *Metrics
	failure := errors.New("boom")
	require.ErrorIs(t, metrics.Track("job").End(failure), failure)
	metrics.AddWarmed("users", 3)
}
