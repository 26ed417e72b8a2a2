// Package metrics records ingest counters with Prometheus client types.
//
// A CLI run is short lived, so metrics live in a private registry and are
// written once at the end of a run in the text exposition format, ready for
// node_exporter's textfile collector.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ginjaninja78/contract-installment-validator/internal/types"
)

const (
	metricPrefix = "contract_ingest_"

	outcomeAccepted = "accepted"
	outcomeRejected = "rejected"

	resultSuccess = "success"
	resultError   = "error"
)

// Metrics holds the ingest collectors. A nil *Metrics is a no-op.
type Metrics struct {
	registry *prometheus.Registry

	records    *prometheus.CounterVec
	rejections *prometheus.CounterVec
	flushes    *prometheus.CounterVec
	batchSize  prometheus.Histogram
	dropped    prometheus.Counter
}

// New registers the collectors in a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		records: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "records_total",
				Help: "Processed records by outcome",
			},
			[]string{"outcome"},
		),
		rejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "rejections_total",
				Help: "Rejected records by reason",
			},
			[]string{"reason"},
		),
		flushes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "flushes_total",
				Help: "Batch flushes by result",
			},
			[]string{"result"},
		),
		batchSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "batch_records",
				Help:    "Records per flushed batch",
				Buckets: prometheus.ExponentialBuckets(1, 4, 8),
			},
		),
		dropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "dropped_records_total",
				Help: "Buffered records discarded when the row source failed",
			},
		),
	}
	m.registry.MustRegister(m.records, m.rejections, m.flushes, m.batchSize, m.dropped)

	// Pre-create label values so every series shows up at zero.
	m.records.WithLabelValues(outcomeAccepted)
	m.records.WithLabelValues(outcomeRejected)
	for _, reason := range types.Reasons {
		m.rejections.WithLabelValues(string(reason))
	}
	m.flushes.WithLabelValues(resultSuccess)
	m.flushes.WithLabelValues(resultError)
	return m
}

// Registry exposes the registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveAccepted counts one accepted record.
func (m *Metrics) ObserveAccepted() {
	if m == nil {
		return
	}
	m.records.WithLabelValues(outcomeAccepted).Inc()
}

// ObserveRejected counts one rejected record under its reason.
func (m *Metrics) ObserveRejected(reason types.Reason) {
	if m == nil {
		return
	}
	m.records.WithLabelValues(outcomeRejected).Inc()
	m.rejections.WithLabelValues(string(reason)).Inc()
}

// ObserveFlush records a flush of size records.
func (m *Metrics) ObserveFlush(size int, err error) {
	if m == nil {
		return
	}
	result := resultSuccess
	if err != nil {
		result = resultError
	}
	m.flushes.WithLabelValues(result).Inc()
	m.batchSize.Observe(float64(size))
}

// ObserveDropped counts records lost to an aborted run.
func (m *Metrics) ObserveDropped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.dropped.Add(float64(n))
}

// WriteTextfile writes every metric to path atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
