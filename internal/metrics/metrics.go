// Package metrics defines the Prometheus collectors updated by the importer
// and the HTTP server.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "orderimport"

// Record outcomes used as the "outcome" label of RecordsTotal.
const (
	OutcomeCreated   = "created"
	OutcomeUpdated   = "updated"
	OutcomeUnchanged = "unchanged"
	OutcomeFiltered  = "filtered"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

var ChunksRead = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "chunks_read_total",
		Help:      "Chunks read from source files.",
	},
	[]string{"format"},
)

var BytesRead = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bytes_read_total",
		Help:      "Bytes read from source files, including re-delivered bytes.",
	},
	[]string{"format"},
)

var RecordsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_total",
		Help:      "Records handled by the importer, by outcome.",
	},
	[]string{"format", "outcome"},
)

var RunDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "run_duration_seconds",
		Help:      "Wall time of complete import runs.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 14),
	},
	[]string{"format", "status"},
)

var HTTPRequests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests served, by route pattern and status code.",
	},
	[]string{"method", "route", "status"},
)

func init() {
	prometheus.MustRegister(ChunksRead)
	prometheus.MustRegister(BytesRead)
	prometheus.MustRegister(RecordsTotal)
	prometheus.MustRegister(RunDuration)
	prometheus.MustRegister(HTTPRequests)
}
