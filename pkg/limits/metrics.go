package limits

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains Prometheus metrics for the limits subsystem.
type Metrics struct {
	// Sweep lifecycle
	sweeps        *prometheus.CounterVec
	sweepDuration prometheus.Histogram
	usersChecked  prometheus.Counter
	userFailures  prometheus.Counter

	// Evaluation outcomes
	evaluations *prometheus.CounterVec
	violations  *prometheus.CounterVec

	// Dispatch outcomes
	enforcementActions *prometheus.CounterVec
	notifications      *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with Prometheus collectors.
// Call it once per process; collectors register with the default registry.
func NewMetrics() *Metrics {
	return &Metrics{
		sweeps: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_limits_sweeps_total",
				Help: "Total number of monitor sweeps, by result",
			},
			[]string{"result"},
		),

		sweepDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "warden_limits_sweep_duration_seconds",
				Help:    "Duration of complete monitor sweeps in seconds",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
			},
		),

		usersChecked: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "warden_limits_users_checked_total",
				Help: "Total number of per-user checks performed",
			},
		),

		userFailures: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "warden_limits_user_check_failures_total",
				Help: "Total number of per-user checks skipped due to errors",
			},
		),

		evaluations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_limits_evaluations_total",
				Help: "Total number of rule evaluations, by kind and status",
			},
			[]string{"kind", "status"},
		),

		violations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_limits_violations_total",
				Help: "Total number of violations recorded, by kind and action",
			},
			[]string{"kind", "action"},
		),

		enforcementActions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_limits_enforcement_actions_total",
				Help: "Total number of enforcement actions dispatched, by action and result",
			},
			[]string{"action", "result"},
		),

		notifications: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_limits_notifications_total",
				Help: "Total number of notification sends attempted, by channel and result",
			},
			[]string{"channel", "result"},
		),
	}
}

// RecordSweep records a completed sweep and its duration.
func (m *Metrics) RecordSweep(err error, duration time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.sweeps.WithLabelValues(result).Inc()
	m.sweepDuration.Observe(duration.Seconds())
}

// RecordUserCheck records a per-user check and whether it was skipped.
func (m *Metrics) RecordUserCheck(failed bool) {
	if m == nil {
		return
	}
	m.usersChecked.Inc()
	if failed {
		m.userFailures.Inc()
	}
}

// RecordEvaluation records one rule evaluation outcome.
func (m *Metrics) RecordEvaluation(kind LimitKind, status Status) {
	if m == nil {
		return
	}
	m.evaluations.WithLabelValues(string(kind), string(status)).Inc()
}

// RecordViolation records one violation write.
func (m *Metrics) RecordViolation(kind LimitKind, action ActionKind) {
	if m == nil {
		return
	}
	m.violations.WithLabelValues(string(kind), string(action)).Inc()
}

// RecordEnforcement records one enforcement dispatch outcome.
func (m *Metrics) RecordEnforcement(action ActionKind, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.enforcementActions.WithLabelValues(string(action), result).Inc()
}

// RecordNotification records one channel send attempt.
func (m *Metrics) RecordNotification(channel ChannelType, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.notifications.WithLabelValues(string(channel), result).Inc()
}
