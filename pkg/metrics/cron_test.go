package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCronJobMetricsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)

	m.ObserveRun("shift_prefill", 2*time.Second, nil)
	m.ObserveRun("shift_prefill", time.Second, errors.New("db down"))
	m.Skipped("shift_prefill")
	m.Failed("outbox_retention")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	cases := []struct {
		job, outcome string
		want         float64
	}{
		{"shift_prefill", OutcomeSucceeded, 1},
		{"shift_prefill", OutcomeFailed, 1},
		{"shift_prefill", OutcomeSkipped, 1},
		{"outbox_retention", OutcomeFailed, 1},
	}
	for _, tc := range cases {
		got, err := fetchCounterValue(mfs, "cron_job_runs_total", map[string]string{"job": tc.job, "outcome": tc.outcome})
		if err != nil {
			t.Fatalf("%s/%s: %v", tc.job, tc.outcome, err)
		}
		if got != tc.want {
			t.Fatalf("%s/%s: expected %v, got %v", tc.job, tc.outcome, tc.want, got)
		}
	}

	if sum, err := fetchHistogramSum(mfs, "cron_job_duration_seconds", "job", "shift_prefill"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if sum != 3 {
		t.Fatalf("expected 3s observed, got %f", sum)
	}
	if ts := gaugeValue(mfs, "cron_job_last_success_timestamp_seconds", "shift_prefill"); ts <= 0 {
		t.Fatalf("expected last success timestamp, got %f", ts)
	}
	if ts := gaugeValue(mfs, "cron_job_last_success_timestamp_seconds", "outbox_retention"); ts != 0 {
		t.Fatalf("failed job must not record a success timestamp")
	}
}

func TestCronJobMetricsNilSafe(t *testing.T) {
	var m *CronJobMetrics
	m.ObserveRun("x", time.Second, nil)
	m.Skipped("x")
	NewCronJobMetrics(nil).Failed("x")
}

func fetchCounterValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if hasLabels(metric.GetLabel(), labels) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q has no series %v", name, labels)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if hasLabels(metric.GetLabel(), map[string]string{label: value}) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q has no series %s=%s", name, label, value)
}

func gaugeValue(mfs []*dto.MetricFamily, name, job string) float64 {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0
	}
	for _, metric := range mf.GetMetric() {
		if hasLabels(metric.GetLabel(), map[string]string{"job": job}) {
			return metric.GetGauge().GetValue()
		}
	}
	return 0
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func hasLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	matched := 0
	for _, p := range pairs {
		if v, ok := want[p.GetName()]; ok && v == p.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
