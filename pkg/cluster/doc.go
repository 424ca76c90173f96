// Package cluster wires a single node's schema cache, document-change
// map, database pool, Raft consensus core and replication driver
// behind one Manager context (spec.md §9 "Design Notes": those
// resources are process statics in the original; here they are
// explicit fields owned by one struct instead), and applies committed
// Raft membership commands into a node table the other components
// consult.
package cluster
