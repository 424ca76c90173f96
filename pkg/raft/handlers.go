package raft

import (
	"strings"

	"github.com/rs/zerolog"
)

func (c *Consensus) handlePacket(logger zerolog.Logger, pkt Packet) {
	switch pkt.Type {
	case RequestVote:
		c.onRequestVote(logger, pkt.Payload)
	case RequestVoteResponse:
		c.onRequestVoteResponse(logger, pkt.Payload)
	case AppendEntries:
		c.onAppendEntries(logger, pkt.Payload, true)
	case Heartbeat:
		c.onHeartbeat(logger, pkt.Payload)
	case AppendEntriesResponse, HeartbeatResponse:
		c.onAppendEntriesResponse(logger, pkt.Payload)
	case AddCommand:
		c.onAddCommand(logger, pkt.Payload)
	default:
		logger.Warn().Uint8("type", uint8(pkt.Type)).Msg("raft: unexpected message type")
	}
}

// onElectionTimeout converts the node to Candidate and starts a new
// election (spec.md §4.I "Candidate": currentTerm += 1, vote for self,
// broadcast RequestVote"). It self-votes immediately rather than
// relying on the multicast transport looping the broadcast packet
// back to the sender, which is not guaranteed by every Transport
// implementation.
func (c *Consensus) onElectionTimeout(logger zerolog.Logger) {
	c.mu.Lock()
	if c.role == Leader {
		c.mu.Unlock()
		return
	}
	c.currentTerm++
	c.role = Candidate
	c.votedFor = strings.ToLower(c.cfg.Self.Name)
	c.nextIndex = make(map[string]uint64)
	c.matchIndex = make(map[string]uint64)
	c.votesGranted = 1
	c.votesDenied = 0
	term := c.currentTerm
	lastLogIndex := lastIndex(c.log)
	lastLogTerm := lastTerm(c.log)
	active := c.activeCount()
	votes := c.votesGranted
	c.mu.Unlock()

	c.resetElectionTimeout()

	logger.Info().Uint64("term", term).Int("active_nodes", active).Msg("raft: starting election")

	if hasMajority(votes, active) && active == 1 {
		c.becomeLeader(logger, term)
		return
	}

	c.broadcast(logger, Packet{
		Type: RequestVote,
		Payload: RequestVoteArgs{
			Node: c.cfg.Self, Term: term, LastLogTerm: lastLogTerm, LastLogIndex: lastLogIndex,
		}.Encode(),
	})
}

func (c *Consensus) onRequestVote(logger zerolog.Logger, payload []byte) {
	args, err := DecodeRequestVoteArgs(payload)
	if err != nil {
		logger.Warn().Err(err).Msg("raft: malformed RequestVote")
		return
	}
	if strings.EqualFold(args.Node.Name, c.cfg.Self.Name) {
		return // our own broadcast, looped back by the transport
	}

	c.mu.Lock()
	c.touch(args.Node)
	stepDown := false
	if args.Term > c.currentTerm {
		c.currentTerm = args.Term
		c.role = Follower
		c.votedFor = ""
		c.nextIndex = make(map[string]uint64)
		c.matchIndex = make(map[string]uint64)
		stepDown = true
	}

	granted := false
	if args.Term == c.currentTerm {
		candidate := strings.ToLower(args.Node.Name)
		if (c.votedFor == "" || c.votedFor == candidate) && logUpToDate(c.log, args.LastLogTerm, args.LastLogIndex) {
			c.votedFor = candidate
			granted = true
		}
	}
	term := c.currentTerm
	c.mu.Unlock()

	if stepDown || granted {
		c.resetElectionTimeout()
	}

	logger.Debug().Str("candidate", args.Node.Name).Bool("granted", granted).Msg("raft: RequestVote")

	// Node here is the candidate being voted for, not the responder:
	// the response is multicast to everyone, and only the candidate
	// whose name matches tallies it (mirrors the original's
	// request_vote/request_vote_response pairing via Node::is_equal).
	c.broadcast(logger, Packet{
		Type:    RequestVoteResponse,
		Payload: RequestVoteResponseArgs{Node: args.Node, Term: term, Granted: granted}.Encode(),
	})
}

func (c *Consensus) onRequestVoteResponse(logger zerolog.Logger, payload []byte) {
	args, err := DecodeRequestVoteResponseArgs(payload)
	if err != nil {
		logger.Warn().Err(err).Msg("raft: malformed RequestVoteResponse")
		return
	}
	if !strings.EqualFold(args.Node.Name, c.cfg.Self.Name) {
		return // tallies are local to each candidate; ignore others' responses
	}

	c.mu.Lock()
	if c.role != Candidate {
		c.mu.Unlock()
		return
	}
	stepDown := false
	if args.Term > c.currentTerm {
		c.currentTerm = args.Term
		c.role = Follower
		c.votedFor = ""
		stepDown = true
	}
	becomeLeader := false
	var term uint64
	if !stepDown && args.Term == c.currentTerm {
		if args.Granted {
			c.votesGranted++
		} else {
			c.votesDenied++
		}
		active := c.activeCount()
		if hasMajority(c.votesGranted+c.votesDenied, active) {
			if c.votesGranted > c.votesDenied {
				becomeLeader = true
			} else {
				c.role = Follower
			}
		}
		term = c.currentTerm
	}
	c.mu.Unlock()

	if stepDown {
		c.resetElectionTimeout()
		return
	}
	if becomeLeader {
		c.becomeLeader(logger, term)
	}
}

func (c *Consensus) becomeLeader(logger zerolog.Logger, term uint64) {
	c.mu.Lock()
	c.role = Leader
	c.leader = strings.ToLower(c.cfg.Self.Name)
	nextIdx := lastIndex(c.log) + 1
	for name := range c.active {
		if name == c.leader {
			continue
		}
		c.nextIndex[name] = nextIdx
		c.matchIndex[name] = 0
	}
	c.mu.Unlock()

	logger.Info().Uint64("term", term).Msg("raft: elected leader")
	c.startHeartbeat()
	c.sendHeartbeats()
}

// onAppendEntries and onHeartbeat both drive the follower side of log
// replication (spec.md §4.I "Log matching") by way of the shared
// appendEntries helper; a Heartbeat carries no entry and never
// mutates the log.
func (c *Consensus) onAppendEntries(logger zerolog.Logger, payload []byte, hasEntry bool) {
	args, err := DecodeAppendEntriesArgs(payload)
	if err != nil {
		logger.Warn().Err(err).Msg("raft: malformed AppendEntries")
		return
	}
	c.appendEntries(logger, args, hasEntry, AppendEntriesResponse)
}

func (c *Consensus) onHeartbeat(logger zerolog.Logger, payload []byte) {
	args, err := DecodeHeartbeatArgs(payload)
	if err != nil {
		logger.Warn().Err(err).Msg("raft: malformed Heartbeat")
		return
	}
	c.appendEntries(logger, AppendEntriesArgs{
		Node: args.Node, Term: args.Term, PrevLogIndex: args.LastLogIndex, PrevLogTerm: args.LastLogTerm,
		LastLogIndex: args.LastLogIndex, LeaderCommit: args.LeaderCommit,
	}, false, HeartbeatResponse)
}

func (c *Consensus) appendEntries(logger zerolog.Logger, args AppendEntriesArgs, hasEntry bool, replyType MessageType) {
	if strings.EqualFold(args.Node.Name, c.cfg.Self.Name) {
		return
	}

	c.mu.Lock()
	c.touch(args.Node)
	if args.Term > c.currentTerm {
		c.currentTerm = args.Term
		c.role = Follower
		c.votedFor = ""
		c.nextIndex = make(map[string]uint64)
		c.matchIndex = make(map[string]uint64)
	}
	if c.role == Leader {
		c.mu.Unlock()
		return
	}

	success := false
	var nextIdx, matchIdx uint64
	if args.Term == c.currentTerm {
		c.role = Follower
		c.leader = strings.ToLower(args.Node.Name)

		entryIndex := args.PrevLogIndex + 1
		if entryIndex <= 1 || matchesAt(c.log, args.PrevLogIndex, args.PrevLogTerm) {
			if hasEntry {
				c.log, entryIndex = truncateAndAppend(c.log, entryIndex, LogEntry{Term: args.EntryTerm, Command: args.EntryCmd})
			}
			if args.LeaderCommit > c.commitIndex {
				newCommit := args.LeaderCommit
				if li := lastIndex(c.log); newCommit > li {
					newCommit = li
				}
				c.commitIndex = newCommit
			}
			success = true
			nextIdx = lastIndex(c.log) + 1
			matchIdx = entryIndex
			if !hasEntry {
				matchIdx = args.PrevLogIndex
			}
		}
	}
	self := c.cfg.Self
	term := c.currentTerm
	applied := c.applyCommitted()
	c.mu.Unlock()

	for _, err := range applied {
		if err != nil {
			logger.Warn().Err(err).Msg("raft: apply failed")
		}
	}

	c.resetElectionTimeout()

	c.broadcast(logger, Packet{
		Type: replyType,
		Payload: AppendEntriesResponseArgs{
			Node: self, Term: term, Success: success, NextIndex: nextIdx, MatchIndex: matchIdx,
		}.Encode(),
	})
}

func (c *Consensus) onAppendEntriesResponse(logger zerolog.Logger, payload []byte) {
	args, err := DecodeAppendEntriesResponseArgs(payload)
	if err != nil {
		logger.Warn().Err(err).Msg("raft: malformed AppendEntriesResponse")
		return
	}

	c.mu.Lock()
	if c.role != Leader {
		c.mu.Unlock()
		return
	}
	if args.Term > c.currentTerm {
		c.currentTerm = args.Term
		c.role = Follower
		c.votedFor = ""
		c.mu.Unlock()
		c.resetElectionTimeout()
		return
	}
	name := strings.ToLower(args.Node.Name)
	if args.Term == c.currentTerm {
		if args.Success {
			c.nextIndex[name] = args.NextIndex
			c.matchIndex[name] = args.MatchIndex
		} else if ni := c.nextIndex[name]; ni > 1 {
			c.nextIndex[name] = ni - 1
		}
	}
	c.commitIndex = computeCommitIndex(c.log, c.currentTerm, c.commitIndex, c.matchIndex, c.activeCount())
	applied := c.applyCommitted()
	c.mu.Unlock()

	for _, err := range applied {
		if err != nil {
			logger.Warn().Err(err).Msg("raft: apply failed")
		}
	}
}

// onAddCommand handles a follower forwarding a client-proposed command
// to whoever it believes is leader (spec.md §6 "AddCommand: node,
// cmd:string"); a non-leader receiving this ignores it.
func (c *Consensus) onAddCommand(logger zerolog.Logger, payload []byte) {
	args, err := DecodeAddCommandArgs(payload)
	if err != nil {
		logger.Warn().Err(err).Msg("raft: malformed AddCommand")
		return
	}
	if err := c.AddCommand(args.Cmd); err != nil {
		logger.Debug().Err(err).Str("from", args.Node.Name).Msg("raft: ignoring forwarded command")
	}
}

// applyCommitted runs Applier.Apply for every newly committed entry,
// in order, advancing lastApplied. Must be called with mu held; the
// returned errors are logged by the caller after mu is released.
func (c *Consensus) applyCommitted() []error {
	var errs []error
	for c.commitIndex > c.lastApplied {
		c.lastApplied++
		entry := c.log[c.lastApplied-1]
		if c.cfg.Applier != nil {
			if err := c.cfg.Applier.Apply(c.lastApplied, entry.Command); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errs
}
