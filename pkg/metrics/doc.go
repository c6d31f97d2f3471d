/*
Package metrics provides Prometheus metrics collection and exposition for
this client.

The metrics package defines and registers every metric using the
Prometheus client library, providing observability into cluster topology,
connection pool health, command outcomes, and batch/scan/query volume.
Metrics are exposed via an HTTP endpoint for scraping by Prometheus
servers.

# Architecture

	┌──────────────────── METRICS SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │          Prometheus Registry                │          │
	│  │  - Global DefaultRegistry                   │          │
	│  │  - MustRegister at package init             │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │              Metric Types                   │          │
	│  │                                              │          │
	│  │  Gauge: Instant values (nodes known)        │          │
	│  │  Counter: Monotonic increases (commands)    │          │
	│  │  Histogram: Distributions (latency)         │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Metric Categories                 │          │
	│  │                                              │          │
	│  │  Cluster: Nodes, partitions, tend cycles    │          │
	│  │  Pool: Open connections, exhaustion, errors │          │
	│  │  Command: Count, duration, retries          │          │
	│  │  Batch/Scan: Keys, fanout, records streamed │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │          HTTP Metrics Endpoint              │          │
	│  │  - Format: Prometheus text exposition       │          │
	│  │  - Handler: metrics.Handler()               │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Core Components

Metric Registry:
  - Global Prometheus DefaultRegistry
  - All metrics registered at package init
  - Thread-safe for concurrent updates

Gauge Metrics:
  - Instant value that can go up or down
  - Examples: cluster nodes known, partitions unavailable
  - Operations: Set, Inc, Dec, Add, Sub

Counter Metrics:
  - Monotonically increasing value
  - Examples: commands total, tend failures total
  - Operations: Inc, Add (cannot decrease)

Histogram Metrics:
  - Distribution of observed values
  - Buckets for latency percentiles (p50, p95, p99)
  - Examples: command duration, tend duration
  - Includes: sum, count, buckets

Timer Helper:
  - Convenience wrapper for timing operations
  - Start timer, observe duration to histogram
  - Supports label values for histogram vectors

# Metrics Catalog

Cluster Metrics:

aerospike_client_cluster_nodes_total:
  - Type: Gauge
  - Description: Total number of nodes currently known to the cluster tend loop
  - Example: aerospike_client_cluster_nodes_total 3

aerospike_client_partitions_unavailable:
  - Type: Gauge
  - Description: Number of partitions with no known replica after the last tend
  - Example: aerospike_client_partitions_unavailable 0

aerospike_client_tend_duration_seconds:
  - Type: Histogram
  - Description: Time taken to refresh cluster topology in a single tend cycle
  - Buckets: Default Prometheus buckets

aerospike_client_tend_failures_total:
  - Type: Counter
  - Description: Total number of tend cycles that failed to reach any seed or peer

Connection Pool Metrics:

aerospike_client_pool_connections_open{node, state}:
  - Type: Gauge
  - Description: Open connections per node, broken down by idle/in-use
  - Labels: node, state

aerospike_client_pool_exhausted_total{node}:
  - Type: Counter
  - Description: Total times a connection acquire failed because a node's pool was at capacity
  - Labels: node

aerospike_client_connection_errors_total{node}:
  - Type: Counter
  - Description: Total connection-level errors (dial, timeout, reset) by node
  - Labels: node

Command Metrics:

aerospike_client_commands_total{command, result}:
  - Type: Counter
  - Description: Total commands issued by type and outcome
  - Labels: command, result
  - Example: aerospike_client_commands_total{command="Put",result="ok"} 1000

aerospike_client_command_duration_seconds{command}:
  - Type: Histogram
  - Description: Command latency in seconds by type, seed to response
  - Labels: command
  - Buckets: Default Prometheus buckets

aerospike_client_command_retries_total{command}:
  - Type: Counter
  - Description: Total command retry attempts by type
  - Labels: command

Batch/Scan/Query Metrics:

aerospike_client_batch_keys_total:
  - Type: Counter
  - Description: Total keys resolved across all batch reads

aerospike_client_batch_nodes_per_call:
  - Type: Histogram
  - Description: Number of distinct nodes a single batch call fanned out to
  - Buckets: 1, 2, 4, 8, 16, 32, 64

aerospike_client_scan_records_total{kind}:
  - Type: Counter
  - Description: Total records streamed by scans and queries
  - Labels: kind (scan, query)

# Usage

Updating Gauge Metrics:

	import "github.com/cuemby/aerospike-go/pkg/metrics"

	metrics.ClusterNodesTotal.Set(3)
	metrics.PartitionsUnavailable.Set(0)

Updating Counter Metrics:

	metrics.TendFailuresTotal.Inc()
	metrics.CommandsTotal.WithLabelValues("Put", "ok").Inc()

Recording Histogram Observations:

	// Direct observation
	metrics.BatchNodesPerCall.Observe(4)

	// Using Timer helper
	timer := metrics.NewTimer()
	// ... perform operation ...
	timer.ObserveDuration(metrics.TendDuration)

Using Timer with Labels:

	timer := metrics.NewTimer()
	// ... run a command ...
	timer.ObserveDurationVec(metrics.CommandDuration, "Get")

Complete Example:

	package main

	import (
		"net/http"

		"github.com/cuemby/aerospike-go/pkg/metrics"
	)

	func main() {
		metrics.ClusterNodesTotal.Set(3)

		timer := metrics.NewTimer()
		runTend()
		timer.ObserveDuration(metrics.TendDuration)

		http.Handle("/metrics", metrics.Handler())
		http.ListenAndServe(":9090", nil)
	}

	func runTend() {
		// tend logic
	}

# Integration Points

This package integrates with:

  - pkg/cluster: Updates node/partition gauges and tend histograms
  - pkg/command: Records command count, duration, and retries
  - pkg/node: Counts pool exhaustion and connection errors (pool
    occupancy gauges are set by pkg/cluster's tend pass)
  - pkg/ops: Records batch fanout and scan/query record counts
  - Prometheus: Scrapes /metrics endpoint

# Design Patterns

Package Init Registration:
  - All metrics registered in init() function
  - MustRegister panics on duplicate registration
  - No runtime registration needed

Label Discipline:
  - Use WithLabelValues for cardinality-bounded labels
  - Avoid high-cardinality labels (keys, digests, timestamps)
  - Keep label count low (< 5 per metric)

Timer Pattern:
  - Create timer at operation start
  - Defer or explicitly call ObserveDuration
  - Supports both simple and vector histograms

# Monitoring

Prometheus Queries (PromQL):

Cluster Health:
  - Nodes known: aerospike_client_cluster_nodes_total
  - Unavailable partitions: aerospike_client_partitions_unavailable
  - Tend failure rate: rate(aerospike_client_tend_failures_total[5m])

Command Performance:
  - Command rate: rate(aerospike_client_commands_total[1m])
  - Error rate: rate(aerospike_client_commands_total{result!="ok"}[1m])
  - p95 latency: histogram_quantile(0.95, aerospike_client_command_duration_seconds_bucket)
  - Retry rate: rate(aerospike_client_command_retries_total[1m])

Pool Health:
  - Open connections: sum(aerospike_client_pool_connections_open)
  - Exhaustion rate: rate(aerospike_client_pool_exhausted_total[5m])

# See Also

  - Prometheus documentation: https://prometheus.io/docs/
  - Prometheus client library: https://github.com/prometheus/client_golang
  - Histogram best practices: https://prometheus.io/docs/practices/histograms/
*/
package metrics
