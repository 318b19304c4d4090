package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Cron run outcomes used as the "outcome" label.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomeSkipped   = "skipped"
)

// CronJobMetrics tracks prefill and retention runs of the cron worker.
type CronJobMetrics struct {
	runs        *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	lastSuccess *prometheus.GaugeVec
}

func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	if reg == nil {
		return &CronJobMetrics{}
	}
	m := &CronJobMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cron_job_runs_total",
			Help: "Cron job executions by outcome (succeeded, failed, skipped).",
		}, []string{"job", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cron_job_duration_seconds",
			Help:    "Wall time of executed cron jobs.",
			Buckets: []float64{.1, .5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"job"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cron_job_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run.",
		}, []string{"job"}),
	}
	reg.MustRegister(m.runs, m.duration, m.lastSuccess)
	return m
}

// ObserveRun records an executed job. A nil err counts as success.
func (m *CronJobMetrics) ObserveRun(job string, elapsed time.Duration, err error) {
	if m == nil || m.runs == nil {
		return
	}
	job = normalizeLabel(job)
	m.duration.WithLabelValues(job).Observe(elapsed.Seconds())
	if err != nil {
		m.runs.WithLabelValues(job, OutcomeFailed).Inc()
		return
	}
	m.runs.WithLabelValues(job, OutcomeSucceeded).Inc()
	m.lastSuccess.WithLabelValues(job).SetToCurrentTime()
}

// Skipped records a tick where another replica held the job lock.
func (m *CronJobMetrics) Skipped(job string) {
	if m == nil || m.runs == nil {
		return
	}
	m.runs.WithLabelValues(normalizeLabel(job), OutcomeSkipped).Inc()
}

// Failed records a run that never started, e.g. the lock could not be read.
func (m *CronJobMetrics) Failed(job string) {
	if m == nil || m.runs == nil {
		return
	}
	m.runs.WithLabelValues(normalizeLabel(job), OutcomeFailed).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
