package raft

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/dubalu/xapiand-go/pkg/log"
	"github.com/dubalu/xapiand-go/pkg/xerror"
	"github.com/rs/zerolog"
)

// ErrNotLeader is returned by AddCommand when called against a node
// that is not currently the Raft leader.
var ErrNotLeader = xerror.New(xerror.ClientError, "raft: node is not the leader")

// Role is a node's position in the Raft state machine (spec.md §4.I
// "Roles and rules").
type Role int

const (
	Follower Role = iota
	Candidate
	Leader
)

func (r Role) String() string {
	switch r {
	case Follower:
		return "follower"
	case Candidate:
		return "candidate"
	case Leader:
		return "leader"
	default:
		return "unknown"
	}
}

// Timing constants, taken verbatim from the original's
// HEARTBEAT_LEADER_MIN/MAX and LEADER_ELECTION_MIN/MAX (spec.md
// §4.I "Timers").
const (
	HeartbeatMin = 150 * time.Millisecond
	HeartbeatMax = 300 * time.Millisecond

	ElectionMin = 750 * time.Millisecond // 2.5 * HeartbeatMax... see note below
	ElectionMax = 1500 * time.Millisecond
)

// The original expresses election timing as a multiple of
// HEARTBEAT_LEADER_MAX (2.5x/5x); spelled out in absolute durations
// here since HeartbeatMax is itself a constant, not a config value.
var (
	electionTimeoutMin = time.Duration(2.5 * float64(HeartbeatMax))
	electionTimeoutMax = time.Duration(5.0 * float64(HeartbeatMax))
)

// Transport delivers and receives Raft UDP packets. pkg/raft owns
// only the consensus state machine; the multicast socket lives behind
// this interface the same way pkg/remote's Handler and
// pkg/changemap's Reader decouple their packages from a concrete I/O
// implementation.
type Transport interface {
	Broadcast(data []byte) error
	Recv() (data []byte, err error)
	Close() error
}

// Applier applies a committed log command to cluster state (spec.md
// §4.I "Apply is idempotent: it updates the cluster membership table
// (add/update node by (idx, name))"). Implemented by pkg/cluster.
type Applier interface {
	Apply(index uint64, command string) error
}

// Config configures a Node's Raft instance.
type Config struct {
	ClusterName string
	Self        Node
	Transport   Transport
	Applier     Applier
}

// Consensus runs the Raft state machine for one cluster node. One
// goroutine drives both the receive loop and the timers; all mutable
// state is guarded by mu so AddCommand (called from other goroutines,
// e.g. an HTTP handler proposing a membership change) is safe to call
// concurrently with the drive loop.
type Consensus struct {
	cfg Config
	rng *rand.Rand

	mu           sync.Mutex
	role         Role
	currentTerm  uint64
	votedFor     string // lower-cased node name, "" if none
	log          []LogEntry
	commitIndex  uint64
	lastApplied  uint64
	nextIndex    map[string]uint64
	matchIndex   map[string]uint64
	votesGranted int
	votesDenied  int
	leader       string
	active       map[string]Node // lower-cased name -> node, touched table

	electionTimer   *time.Timer
	heartbeatTicker *time.Ticker

	stop chan struct{}
	done chan struct{}
}

// New returns a Consensus instance, initially a Follower with an empty
// log, and registers Self in the active-node table.
func New(cfg Config) *Consensus {
	c := &Consensus{
		cfg:        cfg,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		role:       Follower,
		nextIndex:  make(map[string]uint64),
		matchIndex: make(map[string]uint64),
		active:     make(map[string]Node),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	c.active[strings.ToLower(cfg.Self.Name)] = cfg.Self
	return c
}

// Start runs the receive loop and the election timer until Stop is
// called. It blocks; callers run it in its own goroutine.
func (c *Consensus) Start() {
	logger := log.WithComponent("raft")
	defer close(c.done)

	c.resetElectionTimeout()
	defer c.electionTimer.Stop()

	packets := make(chan []byte)
	recvErrs := make(chan error, 1)
	go func() {
		for {
			data, err := c.cfg.Transport.Recv()
			if err != nil {
				recvErrs <- err
				return
			}
			select {
			case packets <- data:
			case <-c.stop:
				return
			}
		}
	}()

	for {
		select {
		case <-c.stop:
			return
		case <-c.electionTimer.C:
			c.onElectionTimeout(logger)
		case data := <-packets:
			pkt, err := DecodePacket(data)
			if err != nil {
				logger.Warn().Err(err).Msg("raft: malformed packet")
				continue
			}
			if pkt.ClusterName != c.cfg.ClusterName {
				continue // mismatched cluster name, dropped silently
			}
			c.handlePacket(logger, pkt)
		case err := <-recvErrs:
			logger.Warn().Err(err).Msg("raft: transport receive failed")
			return
		}
	}
}

// Stop halts the drive loop and any running heartbeat ticker.
func (c *Consensus) Stop() {
	close(c.stop)
	<-c.done
	c.mu.Lock()
	if c.heartbeatTicker != nil {
		c.heartbeatTicker.Stop()
	}
	c.mu.Unlock()
}

// Role reports the node's current role.
func (c *Consensus) Role() Role {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.role
}

// Term reports the node's current Raft term.
func (c *Consensus) Term() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentTerm
}

// LogIndex reports the index of the last entry in the node's log.
func (c *Consensus) LogIndex() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return lastIndex(c.log)
}

func (c *Consensus) resetElectionTimeout() {
	d := electionTimeoutMin + time.Duration(c.rng.Int63n(int64(electionTimeoutMax-electionTimeoutMin)+1))
	if c.electionTimer == nil {
		c.electionTimer = time.NewTimer(d)
		return
	}
	if !c.electionTimer.Stop() {
		select {
		case <-c.electionTimer.C:
		default:
		}
	}
	c.electionTimer.Reset(d)
}

func (c *Consensus) startHeartbeat() {
	d := HeartbeatMin + time.Duration(c.rng.Int63n(int64(HeartbeatMax-HeartbeatMin)+1))
	if c.heartbeatTicker != nil {
		c.heartbeatTicker.Stop()
	}
	c.heartbeatTicker = time.NewTicker(d)
	go func(ticker *time.Ticker) {
		for {
			select {
			case <-ticker.C:
				c.sendHeartbeats()
			case <-c.stop:
				return
			}
			c.mu.Lock()
			stillLeader := c.role == Leader && c.heartbeatTicker == ticker
			c.mu.Unlock()
			if !stillLeader {
				return
			}
		}
	}(c.heartbeatTicker)
}

// sendHeartbeats broadcasts one packet per tick: if any follower's
// nextIndex lags the log, the single oldest missing entry (lowest
// nextIndex across all followers) is sent as AppendEntries; otherwise
// a bare Heartbeat goes out. Per the original's leader_heartbeat_cb,
// one entry is replicated per tick regardless of how many followers
// are behind, and the furthest-behind follower is caught up first.
func (c *Consensus) sendHeartbeats() {
	logger := log.WithComponent("raft")

	c.mu.Lock()
	if c.role != Leader {
		c.mu.Unlock()
		return
	}
	term := c.currentTerm
	self := c.cfg.Self
	commitIndex := c.commitIndex
	lastLog := lastIndex(c.log)

	entryIndex := lastLog + 1
	for _, ni := range c.nextIndex {
		if ni < entryIndex {
			entryIndex = ni
		}
	}

	var pkt Packet
	if entryIndex > 0 && entryIndex <= lastLog {
		prevLogIndex := entryIndex - 1
		var prevLogTerm uint64
		if prevLogIndex > 0 {
			prevLogTerm = c.log[prevLogIndex-1].Term
		}
		entry := c.log[entryIndex-1]
		pkt = Packet{Type: AppendEntries, Payload: AppendEntriesArgs{
			Node: self, Term: term, PrevLogIndex: prevLogIndex, PrevLogTerm: prevLogTerm,
			LastLogIndex: lastLog, EntryTerm: entry.Term, EntryCmd: entry.Command, LeaderCommit: commitIndex,
		}.Encode()}
	} else {
		pkt = Packet{Type: Heartbeat, Payload: HeartbeatArgs{
			Node: self, Term: term, LastLogIndex: lastLog, LastLogTerm: lastTerm(c.log), LeaderCommit: commitIndex,
		}.Encode()}
	}
	c.mu.Unlock()

	c.broadcast(logger, pkt)
}

func (c *Consensus) activeCount() int {
	return len(c.active)
}

func (c *Consensus) touch(n Node) {
	c.active[strings.ToLower(n.Name)] = n
}

// AddCommand proposes command for replication. Only meaningful on the
// leader; spec.md §4.I does not define forwarding semantics for a
// non-leader receiving a client proposal beyond the AddCommand wire
// message used for node-to-node resend, so a non-leader call here
// returns ErrNotLeader and the caller (pkg/cluster) is expected to
// retry against whichever node it believes is leader.
func (c *Consensus) AddCommand(command string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.role != Leader {
		return ErrNotLeader
	}
	entry := LogEntry{Term: c.currentTerm, Command: command}
	c.log = append(c.log, entry)
	return nil
}

func (c *Consensus) broadcast(logger zerolog.Logger, pkt Packet) {
	pkt.Major, pkt.Minor, pkt.ClusterName = ProtocolMajor, ProtocolMinor, c.cfg.ClusterName
	if err := c.cfg.Transport.Broadcast(EncodePacket(pkt)); err != nil {
		logger.Warn().Err(err).Msg("raft: broadcast failed")
	}
}
