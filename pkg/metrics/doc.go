/*
Package metrics provides Prometheus metrics collection and health checking
for the database core.

The metrics package defines and registers every metric using the Prometheus
client library, providing observability into object store traffic, index
query latency, ACL decisions, router dispatch and peer cache behavior.
Metrics are exposed via an HTTP endpoint for scraping; a companion health
registry backs /health and /ready endpoints.

# Architecture

The metrics system follows Prometheus conventions with instrumentation at
every layer boundary:

	┌──────────────────── METRICS SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │          Prometheus Registry                │          │
	│  │  - Global DefaultRegistry                   │          │
	│  │  - MustRegister at package init             │          │
	│  │  - Automatic Go runtime metrics             │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Metric Categories                 │          │
	│  │                                              │          │
	│  │  Object store: op counts, latency           │          │
	│  │  Index: query counts, latency, rebuilds     │          │
	│  │  ACL: authorization decisions               │          │
	│  │  Router: dispatches, peer RPC latency       │          │
	│  │  Tracker: cache hits and misses             │          │
	│  │  Documents: per-collection gauge            │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │            HTTP Exposition                  │          │
	│  │  - /metrics  (Prometheus scrape)            │          │
	│  │  - /health   (component health JSON)        │          │
	│  │  - /ready    (critical components only)     │          │
	│  │  - /live     (process liveness)             │          │
	│  └────────────────────────────────────────────┘          │
	│                                                            │
	└────────────────────────────────────────────────────────────┘

# Metrics Catalog

Object store:

	tagdb_objectstore_operations_total{backend,op,status}   counter
	tagdb_objectstore_operation_duration_seconds{backend,op} histogram

Metadata index:

	tagdb_index_queries_total{collection,op}            counter
	tagdb_index_query_duration_seconds{collection,op}   histogram
	tagdb_index_rebuilds_total                          counter

ACL:

	tagdb_acl_decisions_total{permission,outcome}       counter

Router and tracker:

	tagdb_router_requests_total{route,status}           counter
	tagdb_tracker_cache_hits_total                      counter
	tagdb_tracker_cache_misses_total                    counter
	tagdb_peer_rpc_duration_seconds{method}             histogram

Documents:

	tagdb_documents_total{collection}                   gauge

# Core Components

Timer: a start-time wrapper with ObserveDuration/ObserveDurationVec, so a
call site is two lines — construct at entry, observe in a defer.

Collector: polls a CollectionCounter every 15 seconds and refreshes the
per-collection document gauge. The local database satisfies the interface;
the collector never learns about tags, ACLs or routing.

HealthChecker: a process-global registry of named components with a
healthy/unhealthy flag and message. GetHealth aggregates them; GetReadiness
only considers the critical set (object store, metadata index).

# Usage

Time an operation:

	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.IndexQueryDuration, collection, "find")

Count a decision:

	metrics.ACLDecisionsTotal.WithLabelValues("read", "denied").Inc()

Serve everything (done by `tagdb metrics`):

	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/health", metrics.HealthHandler())
	mux.HandleFunc("/ready", metrics.ReadyHandler())

# Design Patterns

Package Init Registration: every metric is a package-level var registered
in init, so importing the package is sufficient and double registration is
impossible.

Label Discipline: label values are small closed sets (backend name, op
name, outcome) — never keys, user ids or other unbounded values, which
would explode cardinality.

# See Also

  - Prometheus client library: https://github.com/prometheus/client_golang
  - pkg/log for the textual side of observability
*/
package metrics
