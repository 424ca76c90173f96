// Package replication drives catch-up of a lagging endpoint from a
// peer that owns an up-to-date copy (spec.md §4.J), built on top of
// pkg/remote's Client/Server/ChangesetSource (§4.H).
package replication
