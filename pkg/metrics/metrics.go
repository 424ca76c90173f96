package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Schema metrics

	SchemaFieldsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "xapiand_schema_fields_total",
			Help: "Total number of resolved fields per cached schema, by endpoint hash",
		},
		[]string{"endpoint"},
	)

	// Database pool metrics

	PoolCheckoutsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xapiand_pool_checkouts_total",
			Help: "Total number of database handle checkouts by flags",
		},
		[]string{"flags"},
	)

	PoolWritableHeld = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "xapiand_pool_writable_held",
			Help: "Number of endpoint sets currently holding a checked-out writable handle",
		},
	)

	// Raft metrics

	RaftIsLeader = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "xapiand_raft_is_leader",
			Help: "Whether this node is the Raft leader (1 = leader, 0 = follower/candidate)",
		},
	)

	RaftTerm = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "xapiand_raft_term",
			Help: "This node's current Raft term",
		},
	)

	RaftLogIndex = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "xapiand_raft_log_index",
			Help: "Index of the last entry in this node's Raft log",
		},
	)

	// Remote binary protocol metrics

	RemoteConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "xapiand_remote_connections_active",
			Help: "Number of currently open remote binary protocol connections",
		},
	)

	// Replication metrics

	ReplicationChangesetsApplied = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "xapiand_replication_changesets_applied_total",
			Help: "Total number of changesets applied across all replication catch-up runs",
		},
	)

	// Concurrency-control metrics

	ConcurrentModificationRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "xapiand_concurrent_modification_retries_total",
			Help: "Total number of backend operation retries caused by ConcurrentModification or NetworkError",
		},
	)
)

// registry is the dedicated registry every collector above registers
// into, rather than prometheus's global DefaultRegisterer, so a test
// can construct an isolated Collector without colliding with another
// test's metric registration (spec.md carries no metrics requirements
// of its own; this mirrors the ambient observability stack the
// teacher wires through prometheus/client_golang).
var registry = prometheus.NewRegistry()

// Registry returns the registry every metric in this package is
// registered against.
func Registry() *prometheus.Registry {
	return registry
}

func init() {
	registry.MustRegister(
		SchemaFieldsTotal,
		PoolCheckoutsTotal,
		PoolWritableHeld,
		RaftIsLeader,
		RaftTerm,
		RaftLogIndex,
		RemoteConnectionsActive,
		ReplicationChangesetsApplied,
		ConcurrentModificationRetries,
	)
}

// Handler returns the Prometheus HTTP handler for this package's
// registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
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

// Duration returns the elapsed time since timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
