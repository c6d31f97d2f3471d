package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Cluster metrics
	ClusterNodesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "aerospike_client_cluster_nodes_total",
			Help: "Total number of nodes currently known to the cluster tend loop",
		},
	)

	PartitionsUnavailable = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "aerospike_client_partitions_unavailable",
			Help: "Number of partitions with no known replica after the last tend",
		},
	)

	TendDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "aerospike_client_tend_duration_seconds",
			Help:    "Time taken to refresh cluster topology in a single tend cycle",
			Buckets: prometheus.DefBuckets,
		},
	)

	TendFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "aerospike_client_tend_failures_total",
			Help: "Total number of tend cycles that failed to reach any seed or peer",
		},
	)

	// Connection pool metrics
	PoolConnectionsOpen = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "aerospike_client_pool_connections_open",
			Help: "Open connections per node, broken down by idle/in-use",
		},
		[]string{"node", "state"},
	)

	PoolExhaustedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aerospike_client_pool_exhausted_total",
			Help: "Total times a connection acquire failed because a node's pool was at capacity",
		},
		[]string{"node"},
	)

	ConnectionErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aerospike_client_connection_errors_total",
			Help: "Total connection-level errors (dial, timeout, reset) by node",
		},
		[]string{"node"},
	)

	// Command metrics
	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aerospike_client_commands_total",
			Help: "Total commands issued by type and outcome",
		},
		[]string{"command", "result"},
	)

	CommandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aerospike_client_command_duration_seconds",
			Help:    "Command latency in seconds by type, seed to response",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)

	CommandRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aerospike_client_command_retries_total",
			Help: "Total command retry attempts by type",
		},
		[]string{"command"},
	)

	// Batch/Scan/Query metrics
	BatchKeysTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "aerospike_client_batch_keys_total",
			Help: "Total keys resolved across all batch reads",
		},
	)

	BatchNodesPerCall = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "aerospike_client_batch_nodes_per_call",
			Help:    "Number of distinct nodes a single batch call fanned out to",
			Buckets: []float64{1, 2, 4, 8, 16, 32, 64},
		},
	)

	ScanRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aerospike_client_scan_records_total",
			Help: "Total records streamed by scans and queries",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(ClusterNodesTotal)
	prometheus.MustRegister(PartitionsUnavailable)
	prometheus.MustRegister(TendDuration)
	prometheus.MustRegister(TendFailuresTotal)
	prometheus.MustRegister(PoolConnectionsOpen)
	prometheus.MustRegister(PoolExhaustedTotal)
	prometheus.MustRegister(ConnectionErrorsTotal)
	prometheus.MustRegister(CommandsTotal)
	prometheus.MustRegister(CommandDuration)
	prometheus.MustRegister(CommandRetriesTotal)
	prometheus.MustRegister(BatchKeysTotal)
	prometheus.MustRegister(BatchNodesPerCall)
	prometheus.MustRegister(ScanRecordsTotal)
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
