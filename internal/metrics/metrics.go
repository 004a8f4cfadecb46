package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics (inbound listener)
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "potatomesh_bridge_http_requests_total",
			Help: "Total HTTP requests served by the appservice listener",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "potatomesh_bridge_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	TransactionsReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "potatomesh_bridge_transactions_received_total",
			Help: "Total authenticated appservice transactions",
		},
	)

	AuthFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "potatomesh_bridge_auth_failures_total",
			Help: "Total rejected inbound requests",
		},
		[]string{"reason"}, // "missing" or "mismatch"
	)

	// Forwarding metrics
	MessagesRelayed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "potatomesh_bridge_messages_relayed_total",
			Help: "Total mesh messages relayed into Matrix",
		},
	)

	MessagesSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "potatomesh_bridge_messages_skipped_total",
			Help: "Total fetched messages that were not relayed",
		},
		[]string{"reason"}, // "seen" or "non_text"
	)

	RelayFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "potatomesh_bridge_relay_failures_total",
			Help: "Total relay attempts aborted, by stage",
		},
		[]string{"stage"}, // "lookup", "join" or "send"
	)

	FetchErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "potatomesh_bridge_fetch_errors_total",
			Help: "Total failed PotatoMesh message fetches",
		},
	)

	PollDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "potatomesh_bridge_poll_duration_seconds",
			Help:    "Duration of one poll cycle",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	LastRxTime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "potatomesh_bridge_checkpoint_rx_time_seconds",
			Help: "Receipt time of the newest admitted message",
		},
	)

	// Infrastructure metrics
	CheckpointWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "potatomesh_bridge_checkpoint_writes_total",
			Help: "Total checkpoint writes",
		},
		[]string{"result"}, // "ok" or "error"
	)

	CheckpointWriteLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "potatomesh_bridge_checkpoint_write_seconds",
			Help:    "Checkpoint write latency",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1},
		},
	)

	UpstreamLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "potatomesh_bridge_upstream_request_seconds",
			Help:    "Outbound request latency",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"api", "operation"},
	)
)
