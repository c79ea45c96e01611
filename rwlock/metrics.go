package rwlock

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

const (
	// MetricsSubsystem is a subsystem shared by all metrics exposed by this
	// package.
	MetricsSubsystem = "rwlock"
)

// Metrics contains metrics exposed by this package.
//
// Gauges are only ever moved by deltas, so one Metrics value may back any
// number of locks and report their sum.
type Metrics struct {
	// Number of live requests waiting in lock queues.
	Waiting metrics.Gauge
	// Number of read holds currently granted.
	Readers metrics.Gauge
	// Number of write holds currently granted.
	Writers metrics.Gauge
	// Number of granted requests.
	GrantsTotal metrics.Counter `metrics_labels:"mode"`
	// Number of queued requests given up before they were granted.
	AbandonedTotal metrics.Counter `metrics_labels:"mode"`
	// Time a queued request spent waiting before its grant.
	WaitSeconds metrics.Histogram `metrics_labels:"mode"`
}

// PrometheusMetrics returns Metrics built using the Prometheus client library.
// Optionally, labels can be provided along with their values ("foo",
// "fooValue").
func PrometheusMetrics(namespace string, labelsAndValues ...string) *Metrics {
	labels := []string{}
	for i := 0; i < len(labelsAndValues); i += 2 {
		labels = append(labels, labelsAndValues[i])
	}
	return &Metrics{
		Waiting: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "waiting",
			Help:      "Number of live requests waiting in lock queues.",
		}, labels).With(labelsAndValues...),
		Readers: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "readers",
			Help:      "Number of read holds currently granted.",
		}, labels).With(labelsAndValues...),
		Writers: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "writers",
			Help:      "Number of write holds currently granted.",
		}, labels).With(labelsAndValues...),
		GrantsTotal: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "grants_total",
			Help:      "Number of granted requests.",
		}, append(labels, "mode")).With(labelsAndValues...),
		AbandonedTotal: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "abandoned_total",
			Help:      "Number of queued requests given up before they were granted.",
		}, append(labels, "mode")).With(labelsAndValues...),
		WaitSeconds: prometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "wait_seconds",
			Help:      "Time a queued request spent waiting before its grant.",
			Buckets:   stdprometheus.ExponentialBuckets(0.0001, 4, 10),
		}, append(labels, "mode")).With(labelsAndValues...),
	}
}

// NopMetrics returns Metrics that discard every observation.
func NopMetrics() *Metrics {
	return &Metrics{
		Waiting:        discard.NewGauge(),
		Readers:        discard.NewGauge(),
		Writers:        discard.NewGauge(),
		GrantsTotal:    discard.NewCounter(),
		AbandonedTotal: discard.NewCounter(),
		WaitSeconds:    discard.NewHistogram(),
	}
}

func (m *Metrics) holdGauge(mode Mode) metrics.Gauge {
	if mode == Write {
		return m.Writers
	}
	return m.Readers
}
