package metrics

import (
	"context"
	"testing"

	"github.com/dubalu/xapiand-go/pkg/backend"
	"github.com/dubalu/xapiand-go/pkg/cluster"
	"github.com/dubalu/xapiand-go/pkg/dbpool"
	"github.com/dubalu/xapiand-go/pkg/endpoint"
	"github.com/dubalu/xapiand-go/pkg/raft"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noopTransport is a collector-local stand-in for pkg/raft.Transport,
// just enough to let a cluster.Manager start without a real socket.
type noopTransport struct{ recv chan []byte }

func newNoopTransport() *noopTransport { return &noopTransport{recv: make(chan []byte)} }

func (t *noopTransport) Broadcast(data []byte) error { return nil }
func (t *noopTransport) Recv() ([]byte, error)       { <-t.recv; return nil, nil }
func (t *noopTransport) Close() error                { close(t.recv); return nil }

func fakeOpen(dir string, spawn bool) (backend.IndexBackend, error) {
	return &fakeCollectorBackend{}, nil
}

type fakeCollectorBackend struct{ revision uint64 }

func (f *fakeCollectorBackend) AddDocument(doc *backend.Document) (string, error) { return "", nil }
func (f *fakeCollectorBackend) ReplaceDocumentTerm(term string, doc *backend.Document) (string, error) {
	return "", nil
}
func (f *fakeCollectorBackend) DeleteDocumentTerm(term string) error { return nil }
func (f *fakeCollectorBackend) TermExists(term string) (bool, error) { return false, nil }
func (f *fakeCollectorBackend) AllTerms(prefix string) ([]string, error) { return nil, nil }
func (f *fakeCollectorBackend) Query(query string) (backend.Stats, error) {
	return backend.Stats{}, nil
}
func (f *fakeCollectorBackend) GetMSet(query string, offset, limit int) (backend.MSet, error) {
	return backend.MSet{}, nil
}
func (f *fakeCollectorBackend) Commit() error {
	f.revision++
	return nil
}
func (f *fakeCollectorBackend) Cancel() error                            { return nil }
func (f *fakeCollectorBackend) GetMetadata(key string) ([]byte, error)   { return nil, nil }
func (f *fakeCollectorBackend) SetMetadata(key string, value []byte) error { return nil }
func (f *fakeCollectorBackend) Revision() uint64                          { return f.revision }
func (f *fakeCollectorBackend) MasteryLevel() uint64                      { return 1 }
func (f *fakeCollectorBackend) Close() error                              { return nil }

func newTestManager(t *testing.T) *cluster.Manager {
	t.Helper()
	self := raft.Node{Name: "node1", Address: "127.0.0.1", HTTPPort: 8880, BinaryPort: 8890}
	return cluster.New(cluster.Config{
		ClusterName: "test",
		Self:        self,
		Transport:   newNoopTransport(),
		DataDir:     t.TempDir(),
		Open:        fakeOpen,
	})
}

func TestCollectRaftMetricsReflectsManagerState(t *testing.T) {
	mgr := newTestManager(t)
	c := NewCollector(mgr)

	c.collectRaftMetrics()

	assert.Equal(t, float64(0), testutil.ToFloat64(RaftIsLeader))
	assert.Equal(t, float64(0), testutil.ToFloat64(RaftTerm))
	assert.Equal(t, float64(0), testutil.ToFloat64(RaftLogIndex))
}

func TestCollectPoolMetricsTracksWritableHeldAndCheckouts(t *testing.T) {
	mgr := newTestManager(t)
	c := NewCollector(mgr)

	eps := endpoint.NewEndpoints(endpoint.Parse("/idx", "/"))
	h, err := mgr.Pool.Checkout(context.Background(), eps, dbpool.Writable|dbpool.Spawn)
	require.NoError(t, err)

	c.collectPoolMetrics()
	assert.Equal(t, float64(1), testutil.ToFloat64(PoolWritableHeld))

	require.NoError(t, mgr.Pool.Checkin(h))
	c.collectPoolMetrics()
	assert.Equal(t, float64(0), testutil.ToFloat64(PoolWritableHeld))

	before := testutil.ToFloat64(PoolCheckoutsTotal.WithLabelValues("writable+spawn"))

	// A second checkout with the same flags should advance the counter
	// by exactly one, not double-count the running total from Pool.
	h2, err := mgr.Pool.Checkout(context.Background(), eps, dbpool.Writable|dbpool.Spawn)
	require.NoError(t, err)
	require.NoError(t, mgr.Pool.Checkin(h2))
	c.collectPoolMetrics()
	assert.Equal(t, before+1, testutil.ToFloat64(PoolCheckoutsTotal.WithLabelValues("writable+spawn")))
}

func TestCollectorStartStop(t *testing.T) {
	mgr := newTestManager(t)
	c := NewCollector(mgr)
	c.Start()
	c.Stop()
}
