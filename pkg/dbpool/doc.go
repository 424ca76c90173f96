// Package dbpool implements the reference-counted, per-endpoint
// checkout pool (spec.md §4.D): handles are checked out against a set
// of endpoints with reader/writer flags, retried on concurrent
// modification, and periodically swept for idleness.
package dbpool
