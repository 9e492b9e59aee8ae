package blockdownload

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

const (
	// MetricsSubsystem is the subsystem identifier for all metrics exposed by this package.
	MetricsSubsystem = "blockdownload"
)

// Metrics contains metrics exposed by the blockdownload package.
type Metrics struct {
	// Number of blocks waiting in the queue to be requested.
	QueuedBlocks metrics.Gauge

	// Number of blocks requested and not delivered yet.
	BlocksInFlight metrics.Gauge

	// Bytes reserved for blocks in flight, at the average block size.
	ExpectedBytes metrics.Gauge

	// Total number of blocks requested from the block puller.
	RequestedBlocks metrics.Counter

	// Total number of requested blocks that were delivered, or whose
	// download failed.
	DeliveredBlocks metrics.Counter
}

// PrometheusMetrics returns Metrics build using Prometheus client library.
// Optionally, labels can be provided along with their values ("foo",
// "fooValue").
func PrometheusMetrics(namespace string, labelsAndValues ...string) *Metrics {
	labels := []string{}
	for i := 0; i < len(labelsAndValues); i += 2 {
		labels = append(labels, labelsAndValues[i])
	}
	return &Metrics{
		QueuedBlocks: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "queued_blocks",
			Help:      "Number of blocks waiting to be requested.",
		}, labels).With(labelsAndValues...),
		BlocksInFlight: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "blocks_in_flight",
			Help:      "Number of blocks requested and not delivered yet.",
		}, labels).With(labelsAndValues...),
		ExpectedBytes: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "expected_bytes",
			Help:      "Bytes reserved for blocks in flight.",
		}, labels).With(labelsAndValues...),
		RequestedBlocks: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "requested_blocks",
			Help:      "Total number of blocks requested.",
		}, labels).With(labelsAndValues...),
		DeliveredBlocks: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "delivered_blocks",
			Help:      "Total number of requested blocks delivered or failed.",
		}, labels).With(labelsAndValues...),
	}
}

// NopMetrics returns no-op Metrics.
func NopMetrics() *Metrics {
	return &Metrics{
		QueuedBlocks:    discard.NewGauge(),
		BlocksInFlight:  discard.NewGauge(),
		ExpectedBytes:   discard.NewGauge(),
		RequestedBlocks: discard.NewCounter(),
		DeliveredBlocks: discard.NewCounter(),
	}
}
