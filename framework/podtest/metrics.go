package podtest

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "octopod"

// Metrics records test run statistics in Prometheus collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	testOutcomes         *prometheus.CounterVec
	provisioningDuration *prometheus.HistogramVec
	cleanupFailures      *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with registerer.
func NewMetrics(registerer prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		testOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "test_outcomes_total",
				Help:      "Total number of finished tests by application and outcome",
			},
			[]string{"app", "outcome"},
		),
		provisioningDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "provisioning_duration_seconds",
				Help:      "Time taken to provision an application environment",
				Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
			},
			[]string{"app"},
		),
		cleanupFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "cleanup_failures_total",
				Help:      "Total number of resources that could not be removed",
			},
			[]string{"app"},
		),
	}
	for _, c := range []prometheus.Collector{m.testOutcomes, m.provisioningDuration, m.cleanupFailures} {
		if err := registerer.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) testFinished(app string, outcome Outcome) {
	if m == nil {
		return
	}
	m.testOutcomes.WithLabelValues(app, outcomeLabel(outcome)).Inc()
}

func (m *Metrics) provisioned(app string, d time.Duration) {
	if m == nil {
		return
	}
	m.provisioningDuration.WithLabelValues(app).Observe(d.Seconds())
}

func (m *Metrics) cleanupFailed(app string, count int) {
	if m == nil || count == 0 {
		return
	}
	m.cleanupFailures.WithLabelValues(app).Add(float64(count))
}

func outcomeLabel(o Outcome) string {
	switch o {
	case Pass:
		return "pass"
	case Fail:
		return "fail"
	default:
		return "ignored"
	}
}
