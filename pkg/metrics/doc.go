// Package metrics exposes this node's Prometheus metrics (schema,
// database pool, Raft, remote protocol, replication) and its
// health/readiness/liveness HTTP endpoints.
//
// Metrics are registered against this package's own Registry rather
// than prometheus's global DefaultRegisterer, so tests can construct
// an isolated Collector. pkg/cluster's Manager is the source every
// gauge is read from; Collector.Start polls it on a ticker the way
// the teacher's metrics collector polls its own manager.
package metrics
