package cluster

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/dubalu/xapiand-go/pkg/raft"
	"github.com/dubalu/xapiand-go/pkg/replication"
	"google.golang.org/protobuf/encoding/protowire"
)

// membershipOp tags what a raft-committed membership command does.
// Encoded as the command string's first byte so Table.Apply can
// dispatch without a second round of schema negotiation.
type membershipOp byte

const (
	opAddNode membershipOp = iota
	opRemoveNode
)

// EncodeAddNode serializes an add/update-node command for
// raft.Consensus.AddCommand, per spec.md §4.I "Apply ... updates the
// cluster membership table (add/update node by (idx, name))".
func EncodeAddNode(n raft.Node) string {
	buf := []byte{byte(opAddNode)}
	buf = protowire.AppendString(buf, n.Name)
	buf = protowire.AppendString(buf, n.Address)
	buf = protowire.AppendVarint(buf, uint64(n.HTTPPort))
	buf = protowire.AppendVarint(buf, uint64(n.BinaryPort))
	buf = protowire.AppendVarint(buf, uint64(n.LastTouched))
	return string(buf)
}

// EncodeRemoveNode serializes a node-departure command (spec.md §4.I
// "Node departure").
func EncodeRemoveNode(name string) string {
	buf := []byte{byte(opRemoveNode)}
	buf = protowire.AppendString(buf, name)
	return string(buf)
}

// ReplicaCount bounds how many nodes NodesForPath returns, so an
// endpoint's replication set stays fixed-size as the cluster grows.
// spec.md does not name a placement algorithm ("agree on cluster
// membership and index placement" is stated without detail); two
// copies is the smallest number that lets replication.Driver's
// catch-up path (§4.J) ever have a peer to pull from.
const ReplicaCount = 2

// Table is the process-wide cluster node table pkg/raft's Applier
// folds committed commands into (spec.md §4.I) and the placement
// oracle replication.Driver consults (spec.md §4.J step 3). One mutex
// guards it; reads and the rare write (one per Raft-committed entry)
// are both cheap.
type Table struct {
	mu    sync.RWMutex
	nodes map[string]raft.Node // lower-cased name -> node
}

// NewTable returns an empty node table.
func NewTable() *Table {
	return &Table{nodes: make(map[string]raft.Node)}
}

// Apply implements raft.Applier. index is accepted but not otherwise
// consulted: commands are idempotent by (name) alone, so re-applying
// the same committed index twice (e.g. after a restart replays the
// log) is harmless.
func (t *Table) Apply(index uint64, command string) error {
	if len(command) == 0 {
		return nil
	}
	op := membershipOp(command[0])
	payload := []byte(command[1:])
	switch op {
	case opAddNode:
		name, n := protowire.ConsumeString(payload)
		if n < 0 {
			return nil
		}
		payload = payload[n:]
		addr, n := protowire.ConsumeString(payload)
		if n < 0 {
			return nil
		}
		payload = payload[n:]
		httpPort, n := protowire.ConsumeVarint(payload)
		if n < 0 {
			return nil
		}
		payload = payload[n:]
		binaryPort, n := protowire.ConsumeVarint(payload)
		if n < 0 {
			return nil
		}
		payload = payload[n:]
		lastTouched, n := protowire.ConsumeVarint(payload)
		if n < 0 {
			return nil
		}
		t.mu.Lock()
		t.nodes[strings.ToLower(name)] = raft.Node{
			Name: name, Address: addr,
			HTTPPort: int(httpPort), BinaryPort: int(binaryPort),
			LastTouched: int64(lastTouched),
		}
		t.mu.Unlock()
	case opRemoveNode:
		name, n := protowire.ConsumeString(payload)
		if n < 0 {
			return nil
		}
		t.mu.Lock()
		delete(t.nodes, strings.ToLower(name))
		t.mu.Unlock()
	}
	return nil
}

// Nodes returns a snapshot of every node currently in the table,
// sorted by name for deterministic placement.
func (t *Table) Nodes() []raft.Node {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]raft.Node, 0, len(t.nodes))
	for _, n := range t.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// NodesForPath implements replication.MembershipResolver: it hashes
// path onto the sorted node ring and returns the ReplicaCount nodes
// starting at that position, wrapping around. Every node computes the
// same answer from the same table without coordination.
func (t *Table) NodesForPath(path string) ([]replication.NodeRef, error) {
	nodes := t.Nodes()
	if len(nodes) == 0 {
		return nil, nil
	}
	n := ReplicaCount
	if n > len(nodes) {
		n = len(nodes)
	}
	start := int(xxhash.Sum64String(path) % uint64(len(nodes)))
	out := make([]replication.NodeRef, 0, n)
	for i := 0; i < n; i++ {
		node := nodes[(start+i)%len(nodes)]
		out = append(out, replication.NodeRef{
			Name: node.Name,
			Addr: node.Address + ":" + strconv.Itoa(node.BinaryPort),
		})
	}
	return out, nil
}
