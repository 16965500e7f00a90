package scheduler

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetrics records task completions as Prometheus counters and a
// duration histogram, registered under the "zetten" namespace. Metrics
// collection is optional; callers that don't need it use
// NoopMetrics instead.
type PrometheusMetrics struct {
	completed *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

// NewPrometheusMetrics builds and registers the collectors against reg. Pass
// prometheus.DefaultRegisterer to use the global registry.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	m := &PrometheusMetrics{
		completed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "zetten",
			Subsystem: "scheduler",
			Name:      "tasks_completed_total",
			Help:      "Number of tasks completed, by outcome.",
		}, []string{"task", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "zetten",
			Subsystem: "scheduler",
			Name:      "task_duration_seconds",
			Help:      "Observed task execution duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"task"}),
	}
	reg.MustRegister(m.completed, m.duration)
	return m
}

func (m *PrometheusMetrics) TaskCompleted(name string, outcome Outcome, duration time.Duration) {
	m.completed.WithLabelValues(name, outcome.String()).Inc()
	m.duration.WithLabelValues(name).Observe(duration.Seconds())
}
