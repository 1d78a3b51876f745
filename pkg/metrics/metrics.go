package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Object store metrics
	ObjectStoreOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tagdb_objectstore_operations_total",
			Help: "Total number of object store operations by backend, op and status",
		},
		[]string{"backend", "op", "status"},
	)

	ObjectStoreOpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tagdb_objectstore_operation_duration_seconds",
			Help:    "Object store operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "op"},
	)

	// Metadata index metrics
	IndexQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tagdb_index_queries_total",
			Help: "Total number of metadata index queries by collection and op",
		},
		[]string{"collection", "op"},
	)

	IndexQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tagdb_index_query_duration_seconds",
			Help:    "Metadata index query duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"collection", "op"},
	)

	IndexRebuildsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tagdb_index_rebuilds_total",
			Help: "Total number of metadata index rebuilds performed",
		},
	)

	// ACL metrics
	ACLDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tagdb_acl_decisions_total",
			Help: "Total number of ACL authorization decisions by required permission and outcome",
		},
		[]string{"permission", "outcome"},
	)

	// Router / tracker metrics
	RouterRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tagdb_router_requests_total",
			Help: "Total number of router dispatches by route and status",
		},
		[]string{"route", "status"},
	)

	TrackerCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tagdb_tracker_cache_hits_total",
			Help: "Total number of peer tracker cache hits",
		},
	)

	TrackerCacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tagdb_tracker_cache_misses_total",
			Help: "Total number of peer tracker cache misses",
		},
	)

	PeerRPCDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tagdb_peer_rpc_duration_seconds",
			Help:    "Peer RPC call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// Documents currently known per collection (best-effort gauge, updated by the collector)
	DocumentsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tagdb_documents_total",
			Help: "Approximate number of documents by collection",
		},
		[]string{"collection"},
	)
)

func init() {
	prometheus.MustRegister(ObjectStoreOpsTotal)
	prometheus.MustRegister(ObjectStoreOpDuration)
	prometheus.MustRegister(IndexQueriesTotal)
	prometheus.MustRegister(IndexQueryDuration)
	prometheus.MustRegister(IndexRebuildsTotal)
	prometheus.MustRegister(ACLDecisionsTotal)
	prometheus.MustRegister(RouterRequestsTotal)
	prometheus.MustRegister(TrackerCacheHits)
	prometheus.MustRegister(TrackerCacheMisses)
	prometheus.MustRegister(PeerRPCDuration)
	prometheus.MustRegister(DocumentsTotal)
}

// Handler returns the Prometheus HTTP handler.
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
