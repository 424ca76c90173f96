package metrics

import (
	"time"

	"github.com/dubalu/xapiand-go/pkg/cluster"
)

// Collector periodically samples a cluster.Manager's owned resources
// into this package's gauges/counters (the teacher's Collector does
// the same against its own pkg/manager.Manager).
type Collector struct {
	manager *cluster.Manager
	stopCh  chan struct{}

	lastCheckouts map[string]uint64
}

// NewCollector returns a Collector sampling mgr.
func NewCollector(mgr *cluster.Manager) *Collector {
	return &Collector{
		manager:       mgr,
		stopCh:        make(chan struct{}),
		lastCheckouts: make(map[string]uint64),
	}
}

// Start begins collecting metrics on a 15-second ticker, sampling
// once immediately.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop halts the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	c.collectRaftMetrics()
	c.collectPoolMetrics()
}

func (c *Collector) collectRaftMetrics() {
	if c.manager.IsLeader() {
		RaftIsLeader.Set(1)
	} else {
		RaftIsLeader.Set(0)
	}
	RaftTerm.Set(float64(c.manager.Raft.Term()))
	RaftLogIndex.Set(float64(c.manager.Raft.LogIndex()))
}

func (c *Collector) collectPoolMetrics() {
	PoolWritableHeld.Set(float64(c.manager.Pool.WritableCount()))

	for flags, total := range c.manager.Pool.CheckoutCounts() {
		delta := total - c.lastCheckouts[flags]
		if delta > 0 {
			PoolCheckoutsTotal.WithLabelValues(flags).Add(float64(delta))
		}
		c.lastCheckouts[flags] = total
	}
}
