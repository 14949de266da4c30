package maintenance

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides Prometheus metrics for partition maintenance.
type Metrics struct {
	runs              *prometheus.CounterVec
	partitionsCreated prometheus.Counter
	partitionsRetired prometheus.Counter
	stageErrors       *prometheus.CounterVec
	runDuration       prometheus.Histogram
	livePartitions    prometheus.Gauge
}

// NewMetrics creates and registers maintenance metrics with the default
// Prometheus registry. Call it once per process; promauto panics on
// duplicate registration.
func NewMetrics() *Metrics {
	return &Metrics{
		runs: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "saturn_maintenance_runs_total",
				Help: "Total number of maintenance runs by outcome",
			},
			[]string{"outcome"},
		),
		partitionsCreated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "saturn_maintenance_partitions_created_total",
				Help: "Total number of partitions created by provisioning",
			},
		),
		partitionsRetired: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "saturn_maintenance_partitions_retired_total",
				Help: "Total number of partitions retired by reaping",
			},
		),
		stageErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "saturn_maintenance_errors_total",
				Help: "Total number of maintenance failures by pipeline stage",
			},
			[]string{"stage"},
		),
		runDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "saturn_maintenance_run_duration_seconds",
				Help:    "Wall time of maintenance runs in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
			},
		),
		livePartitions: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "saturn_maintenance_live_partitions",
				Help: "Number of partitions currently planned or active",
			},
		),
	}
}

// RecordRun increments the run counter for the given outcome.
func (m *Metrics) RecordRun(outcome string) {
	m.runs.WithLabelValues(outcome).Inc()
}

// RecordCreated adds to the created partitions counter.
func (m *Metrics) RecordCreated(n int) {
	m.partitionsCreated.Add(float64(n))
}

// RecordRetired adds to the retired partitions counter.
func (m *Metrics) RecordRetired(n int) {
	m.partitionsRetired.Add(float64(n))
}

// RecordError increments the failure counter for a pipeline stage.
func (m *Metrics) RecordError(stage string) {
	m.stageErrors.WithLabelValues(stage).Inc()
}

// RecordRunDuration observes a completed run's wall time.
func (m *Metrics) RecordRunDuration(d time.Duration) {
	m.runDuration.Observe(d.Seconds())
}

// SetLivePartitions updates the live partitions gauge.
func (m *Metrics) SetLivePartitions(n int) {
	m.livePartitions.Set(float64(n))
}
