package cluster

import (
	"testing"

	"github.com/dubalu/xapiand-go/pkg/raft"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableApplyAddAndRemoveNode(t *testing.T) {
	tbl := NewTable()

	n := raft.Node{Name: "node1", Address: "10.0.0.1", HTTPPort: 8880, BinaryPort: 8890, LastTouched: 100}
	require.NoError(t, tbl.Apply(1, EncodeAddNode(n)))

	nodes := tbl.Nodes()
	require.Len(t, nodes, 1)
	assert.True(t, nodes[0].Equal(n))

	require.NoError(t, tbl.Apply(2, EncodeRemoveNode("node1")))
	assert.Empty(t, tbl.Nodes())
}

func TestTableApplyIsIdempotent(t *testing.T) {
	tbl := NewTable()
	n := raft.Node{Name: "node1", Address: "10.0.0.1", HTTPPort: 8880, BinaryPort: 8890}
	cmd := EncodeAddNode(n)

	require.NoError(t, tbl.Apply(1, cmd))
	require.NoError(t, tbl.Apply(1, cmd))
	assert.Len(t, tbl.Nodes(), 1)
}

func TestTableApplyIgnoresMalformedCommand(t *testing.T) {
	tbl := NewTable()
	assert.NoError(t, tbl.Apply(1, ""))
	assert.NoError(t, tbl.Apply(1, "\x00garbage"))
	assert.Empty(t, tbl.Nodes())
}

func TestNodesForPathEmptyTableReturnsNoNodes(t *testing.T) {
	tbl := NewTable()
	nodes, err := tbl.NodesForPath("/idx")
	require.NoError(t, err)
	assert.Empty(t, nodes)
}

func TestNodesForPathBoundedByReplicaCount(t *testing.T) {
	tbl := NewTable()
	for _, name := range []string{"node1", "node2", "node3", "node4"} {
		n := raft.Node{Name: name, Address: name, BinaryPort: 8890}
		require.NoError(t, tbl.Apply(1, EncodeAddNode(n)))
	}

	nodes, err := tbl.NodesForPath("/idx")
	require.NoError(t, err)
	assert.Len(t, nodes, ReplicaCount)

	// Same path always resolves to the same node set.
	again, err := tbl.NodesForPath("/idx")
	require.NoError(t, err)
	assert.Equal(t, nodes, again)
}

func TestNodesForPathCapsAtTableSize(t *testing.T) {
	tbl := NewTable()
	n := raft.Node{Name: "node1", Address: "node1", BinaryPort: 8890}
	require.NoError(t, tbl.Apply(1, EncodeAddNode(n)))

	nodes, err := tbl.NodesForPath("/idx")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "node1:8890", nodes[0].Addr)
}
