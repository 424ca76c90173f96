// Package raft implements the from-scratch Raft consensus core used
// to replicate cluster membership changes across nodes (spec.md
// §4.I), transported over UDP multicast (spec.md §6 "Wire — UDP Raft
// packets").
package raft

import "strings"

// Node is a cluster member's descriptor (spec.md GLOSSARY "Node":
// "{name, address, http_port, binary_port, last_touched_time}").
// Equality is case-insensitive on name plus address+ports; a node is
// considered the same physical member across restarts as long as
// those fields match.
type Node struct {
	Name        string
	Address     string
	HTTPPort    int
	BinaryPort  int
	LastTouched int64 // unix seconds
}

// Equal reports whether n and other name the same cluster member, per
// spec.md's "Equality is case-insensitive on name plus address+ports".
func (n Node) Equal(other Node) bool {
	return strings.EqualFold(n.Name, other.Name) &&
		n.Address == other.Address &&
		n.HTTPPort == other.HTTPPort &&
		n.BinaryPort == other.BinaryPort
}

// IsLocal reports whether n's address matches one of the given local
// interface addresses (spec.md "A node is local if its address
// matches one of the host's interfaces").
func (n Node) IsLocal(localAddrs []string) bool {
	for _, addr := range localAddrs {
		if addr == n.Address {
			return true
		}
	}
	return false
}
