// Package metrics exposes the data service's Prometheus instruments,
// mirroring the teacher's pkg/metrics idiom: package-level vars plus
// Record* helper functions, and the original Rust service's metric names
// translated to Go/Prometheus naming conventions.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var requestLabels = []string{"api_key_name", "email", "processor_name"}

var (
	// ConnectionCount counts newly accepted GetTransactions streams.
	ConnectionCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "indexer_grpc_data_service_connection_count",
		Help: "Number of GetTransactions streams accepted, labeled by requester.",
	}, requestLabels)

	// ErrorCount counts adapter/pipeline failures, labeled by a short reason
	// code (e.g. "data_fetch_filestore_failed", "subscription_panic_recovered").
	ErrorCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "indexer_grpc_data_service_error_count",
		Help: "Number of errors encountered, labeled by reason.",
	}, []string{"reason"})

	// ShortConnectionCount counts subscriptions that ended before
	// ShortConnectionDuration elapsed.
	ShortConnectionCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "indexer_grpc_data_service_short_connection_count",
		Help: "Number of subscriptions that ended within the short-connection window.",
	}, requestLabels)

	// BytesReadyToTransfer counts protobuf-encoded bytes handed to the
	// response channel.
	BytesReadyToTransfer = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "indexer_grpc_data_service_bytes_ready_to_transfer",
		Help: "Encoded bytes of transactions queued for delivery to subscribers.",
	}, requestLabels)

	// ProcessedVersionsCount counts transactions delivered.
	ProcessedVersionsCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "indexer_grpc_data_service_processed_versions_count",
		Help: "Number of transaction versions delivered to subscribers.",
	}, requestLabels)

	// ProcessedBatchSize is the size of the most recent delivered batch.
	ProcessedBatchSize = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "indexer_grpc_data_service_processed_batch_size",
		Help: "Size of the most recently delivered batch, per requester.",
	}, requestLabels)

	// LatestProcessedVersion is the last version number delivered.
	LatestProcessedVersion = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "indexer_grpc_data_service_latest_processed_version",
		Help: "Highest transaction version delivered, per requester.",
	}, requestLabels)

	// ProcessedLatencyInSecs is the end-to-end data latency of the most
	// recent batch (now - txn timestamp), per requester.
	ProcessedLatencyInSecs = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "indexer_grpc_data_service_processed_latency_in_secs",
		Help: "Data latency in seconds of the most recently delivered batch.",
	}, requestLabels)

	// ProcessedLatencyInSecsAll is a histogram of data latency across all
	// requesters, labeled by user classification.
	ProcessedLatencyInSecsAll = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "indexer_grpc_data_service_processed_latency_in_secs_all",
		Help:    "Data latency in seconds across all delivered batches.",
		Buckets: prometheus.DefBuckets,
	}, []string{"user_classification"})

	// NumMultiFetchOverlappedVersions counts versions discarded/trimmed by
	// the Sequencer when reconciling parallel cold-tier fetches.
	NumMultiFetchOverlappedVersions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "indexer_grpc_data_service_multi_fetch_overlapped_versions",
		Help: "Versions discarded or trimmed while sequencing overlapping batches, labeled by overlap kind.",
	}, []string{"service_type", "overlap_kind"})

	// TransactionsPerSecond is the moving-average TPS gauge, one per active
	// subscription (labeled by connection id).
	TransactionsPerSecond = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "indexer_grpc_data_service_transactions_per_second",
		Help: "Smoothed transactions-per-second rate per subscription.",
	}, []string{"connection_id"})
)

func init() {
	prometheus.MustRegister(
		ConnectionCount,
		ErrorCount,
		ShortConnectionCount,
		BytesReadyToTransfer,
		ProcessedVersionsCount,
		ProcessedBatchSize,
		LatestProcessedVersion,
		ProcessedLatencyInSecs,
		ProcessedLatencyInSecsAll,
		NumMultiFetchOverlappedVersions,
		TransactionsPerSecond,
	)
}

// RequestLabels is the {api_key_name, email, processor_name} label triple
// shared by most per-connection metrics.
type RequestLabels struct {
	APIKeyName    string
	Email         string
	ProcessorName string
}

func (l RequestLabels) values() []string {
	return []string{l.APIKeyName, l.Email, l.ProcessorName}
}

// RecordConnection increments ConnectionCount for a newly accepted stream.
func RecordConnection(l RequestLabels) {
	ConnectionCount.WithLabelValues(l.values()...).Inc()
}

// RecordError increments ErrorCount for the given reason code.
func RecordError(reason string) {
	ErrorCount.WithLabelValues(reason).Inc()
}

// RecordShortConnection increments ShortConnectionCount.
func RecordShortConnection(l RequestLabels) {
	ShortConnectionCount.WithLabelValues(l.values()...).Inc()
}

// RecordBatchDelivered updates the per-batch gauges/counters after a chunk
// set has been successfully sent to a subscriber.
func RecordBatchDelivered(l RequestLabels, batchSize int, endVersion uint64, bytes int, dataLatencySecs *float64, userClassification string) {
	values := l.values()
	BytesReadyToTransfer.WithLabelValues(values...).Add(float64(bytes))
	ProcessedVersionsCount.WithLabelValues(values...).Add(float64(batchSize))
	ProcessedBatchSize.WithLabelValues(values...).Set(float64(batchSize))
	LatestProcessedVersion.WithLabelValues(values...).Set(float64(endVersion))
	if dataLatencySecs != nil {
		ProcessedLatencyInSecs.WithLabelValues(values...).Set(*dataLatencySecs)
		ProcessedLatencyInSecsAll.WithLabelValues(userClassification).Observe(*dataLatencySecs)
	}
}

// RecordOverlap records versions dropped/trimmed by the Sequencer, labeled
// by overlap kind ("full", "partial").
func RecordOverlap(serviceType, kind string, count uint64) {
	NumMultiFetchOverlappedVersions.WithLabelValues(serviceType, kind).Add(float64(count))
}

// SetTPS updates the moving-average TPS gauge for a subscription.
func SetTPS(connectionID string, tps float64) {
	TransactionsPerSecond.WithLabelValues(connectionID).Set(tps)
}
