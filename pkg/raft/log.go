package raft

// LogEntry is one Raft log slot (spec.md §4.I "RaftLogEntry": term,
// command). Index 0 is unused; entries are 1-indexed so that index 0
// can stand for "no entry" (an empty log has lastIndex 0).
type LogEntry struct {
	Term    uint64
	Command string
}

// matchesAt reports whether entry i (1-indexed) in log has the given
// term, per spec.md §4.I "Log matching: entry i matches iff
// log[i].term equals the sender's prevLogTerm and i ≤ lastIndex".
func matchesAt(log []LogEntry, i, term uint64) bool {
	if i == 0 {
		return term == 0
	}
	if i > uint64(len(log)) {
		return false
	}
	return log[i-1].Term == term
}

// truncateAndAppend drops any entries in log from index i onward (a
// conflict) and appends entry, returning the new log and its index.
// Per spec.md §4.I "On conflict, truncate from i and append the new
// entry".
func truncateAndAppend(log []LogEntry, i uint64, entry LogEntry) ([]LogEntry, uint64) {
	if i == 0 || i > uint64(len(log)) {
		log = append(log, entry)
		return log, uint64(len(log))
	}
	log = append(log[:i-1], entry)
	return log, i
}

// lastIndex and lastTerm describe the tail of log, both 0 for an
// empty log.
func lastIndex(log []LogEntry) uint64 {
	return uint64(len(log))
}

func lastTerm(log []LogEntry) uint64 {
	if len(log) == 0 {
		return 0
	}
	return log[len(log)-1].Term
}

// logUpToDate reports whether a candidate whose log ends at
// (candidateLastTerm, candidateLastIndex) is at least as up-to-date as
// log, per spec.md §4.I "Vote granting": last term strictly greater,
// or same term with length >= local length.
func logUpToDate(log []LogEntry, candidateLastTerm, candidateLastIndex uint64) bool {
	localTerm := lastTerm(log)
	if candidateLastTerm != localTerm {
		return candidateLastTerm > localTerm
	}
	return candidateLastIndex >= lastIndex(log)
}

// computeCommitIndex finds the highest N > commitIndex such that
// log[N].term == currentTerm and a majority of matchIndex values are
// >= N (spec.md §4.I "Commit"). It returns commitIndex unchanged if no
// such N exists.
func computeCommitIndex(log []LogEntry, currentTerm, commitIndex uint64, matchIndex map[string]uint64, activeNodes int) uint64 {
	best := commitIndex
	for n := lastIndex(log); n > commitIndex; n-- {
		if log[n-1].Term != currentTerm {
			continue
		}
		count := 1 // the leader itself
		for _, m := range matchIndex {
			if m >= n {
				count++
			}
		}
		if hasMajority(count, activeNodes) {
			best = n
			break
		}
	}
	return best
}

// hasMajority mirrors the original's has_consensus: a lone active node
// always has consensus with itself; otherwise votes must exceed half
// of the active node count.
func hasMajority(votes, activeNodes int) bool {
	if activeNodes <= 1 {
		return true
	}
	return votes > activeNodes/2
}
