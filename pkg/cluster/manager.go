package cluster

import (
	"context"
	"strconv"
	"time"

	"github.com/dubalu/xapiand-go/pkg/changemap"
	"github.com/dubalu/xapiand-go/pkg/dbpool"
	"github.com/dubalu/xapiand-go/pkg/endpoint"
	"github.com/dubalu/xapiand-go/pkg/log"
	"github.com/dubalu/xapiand-go/pkg/raft"
	"github.com/dubalu/xapiand-go/pkg/replication"
	"github.com/dubalu/xapiand-go/pkg/schema"
)

// Config configures a Manager. Self and Transport are forwarded to
// raft.Config; the rest size the owned resources.
type Config struct {
	ClusterName string
	Self        raft.Node
	Transport   raft.Transport

	DataDir   string
	Open      dbpool.OpenFunc
	PoolQuota int

	CleanupInterval time.Duration
	CleanupMaxIdle  time.Duration
}

// Manager is the per-node context SPEC_FULL.md describes for
// pkg/cluster: the schema cache, document-change map, database pool and Raft
// node table as explicit fields on one struct, instead of the
// original's process statics (spec.md §9). cmd/xapiand constructs
// exactly one Manager per running node and wires the HTTP and binary
// servers against it.
type Manager struct {
	cfg Config

	Schema      *schema.LRU
	Changes     *changemap.Map
	Pool        *dbpool.Pool
	Raft        *raft.Consensus
	Nodes       *Table
	Replication *replication.Driver

	cancelCleanup context.CancelFunc
}

// New constructs a Manager's owned resources and wires the Raft
// consensus core's Applier to its node Table and the replication
// Driver's collaborators to its Pool and Table, but does not start
// anything; call Start to begin the Raft drive loop and the pool's
// cleanup sweep.
func New(cfg Config) *Manager {
	if cfg.PoolQuota <= 0 {
		cfg.PoolQuota = 64
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Duration(dbpool.CleanupInterval) * time.Second
	}
	if cfg.CleanupMaxIdle <= 0 {
		cfg.CleanupMaxIdle = 10 * time.Minute
	}

	m := &Manager{
		cfg:     cfg,
		Schema:  schema.NewLRU(),
		Changes: changemap.New(),
		Pool:    dbpool.NewPool(cfg.DataDir, cfg.Open, cfg.PoolQuota),
		Nodes:   NewTable(),
	}

	m.Raft = raft.New(raft.Config{
		ClusterName: cfg.ClusterName,
		Self:        cfg.Self,
		Transport:   cfg.Transport,
		Applier:     m.Nodes,
	})

	localAddr := cfg.Self.Address + ":" + strconv.Itoa(cfg.Self.BinaryPort)
	marker := replication.FileMarkerChecker{Root: func(path string) string {
		return m.Pool.EndpointDir(endpoint.NewEndpoints(endpoint.Parse(path, "/")))
	}}
	m.Replication = replication.NewDriver(localAddr, cfg.Self.Name, m.Nodes, marker, OpenScratch(m.Pool))

	return m
}

// Start runs the Raft drive loop and the pool cleanup sweep until ctx
// is cancelled or Stop is called.
func (m *Manager) Start(ctx context.Context) {
	logger := log.WithComponent("cluster")

	go m.Raft.Start()

	cleanupCtx, cancel := context.WithCancel(ctx)
	m.cancelCleanup = cancel
	go m.Pool.Run(cleanupCtx, m.cfg.CleanupInterval, m.cfg.CleanupMaxIdle)

	logger.Info().Str("node", m.cfg.Self.Name).Msg("cluster: manager started")
}

// Stop halts the Raft drive loop and the pool cleanup sweep.
func (m *Manager) Stop() {
	if m.cancelCleanup != nil {
		m.cancelCleanup()
	}
	m.Raft.Stop()
}

// IsLeader reports whether this node currently believes itself to be
// the Raft leader.
func (m *Manager) IsLeader() bool {
	return m.Raft.Role() == raft.Leader
}

// Join proposes adding or refreshing self's own record in the cluster
// node table via Raft. Per spec.md §4.I's AddCommand semantics this
// only succeeds against the leader; callers on a non-leader node
// should retry against whichever node they learn is leader.
func (m *Manager) Join(self raft.Node) error {
	return m.Raft.AddCommand(EncodeAddNode(self))
}

// Leave proposes removing name from the cluster node table.
func (m *Manager) Leave(name string) error {
	return m.Raft.AddCommand(EncodeRemoveNode(name))
}
