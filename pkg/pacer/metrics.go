package pacer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Admission results used as the "result" label on the admissions counter.
const (
	resultAdmitted  = "admitted"
	resultThrottled = "throttled"
	resultDenied    = "denied"
)

// Metrics contains Prometheus instruments for the admission path.
//
// The instruments are updated inline by the Limiter but are optional: a nil
// *Metrics disables publication without branching at the call sites.
type Metrics struct {
	admissions  *prometheus.CounterVec
	waitSeconds *prometheus.HistogramVec
	violations  *prometheus.CounterVec
}

// NewMetrics creates admission instruments registered on reg.
// Pass prometheus.DefaultRegisterer outside of tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		admissions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "callisto_pacer_admissions_total",
				Help: "Total number of admission decisions by result",
			},
			[]string{"channel", "result"},
		),

		waitSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "callisto_pacer_wait_seconds",
				Help:    "Wait imposed on throttled admissions in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 13), // 1ms to ~4s
			},
			[]string{"channel"},
		),

		violations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "callisto_pacer_violations_total",
				Help: "Total number of throttle violations recorded",
			},
			[]string{"channel", "endpoint"},
		),
	}
}

// observeAdmission records one admission decision. No-op on a nil receiver.
func (m *Metrics) observeAdmission(channel Channel, result string, wait time.Duration) {
	if m == nil {
		return
	}

	m.admissions.WithLabelValues(string(channel), result).Inc()
	if result == resultThrottled {
		m.waitSeconds.WithLabelValues(string(channel)).Observe(wait.Seconds())
	}
}

// observeViolation records one throttle violation. No-op on a nil receiver.
func (m *Metrics) observeViolation(channel Channel, endpoint string) {
	if m == nil {
		return
	}

	m.violations.WithLabelValues(string(channel), endpoint).Inc()
}
