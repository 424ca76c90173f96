package schema

import "sync"

// LRU is the process-wide schema cache keyed by endpoint hash
// (spec.md §5 "Shared resources: Schema LRU ... a process-wide map
// endpoint_hash → shared<Schema>. Writers CAS via set(old, new); if
// CAS fails the writer re-reads and retries. Readers take shared
// pointer, immutable.").
//
// Despite the name this is an unbounded cache, not an eviction
// policy — "LRU" names the role the original plays (a process-wide
// schema cache), not this port's retention strategy, which persisted
// schemas are cheap enough not to need.
type LRU struct {
	mu      sync.Mutex
	entries map[uint64]*Schema
}

// NewLRU returns an empty schema cache.
func NewLRU() *LRU {
	return &LRU{entries: make(map[uint64]*Schema)}
}

// Get returns the cached Schema for key, if any. The returned pointer
// is treated as immutable by convention: callers that need to mutate
// build a detached Clone (spec.md §3 "a writer mutates a detached
// copy").
func (l *LRU) Get(key uint64) (*Schema, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.entries[key]
	return s, ok
}

// Set performs a compare-and-swap: replaces the cached entry with
// replacement only if the currently cached pointer is old (nil counts
// as "currently absent"). Returns whether the swap took effect; on
// failure the caller re-reads via Get and retries its merge against
// the now-current entry (spec.md §5).
func (l *LRU) Set(key uint64, old, replacement *Schema) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	current := l.entries[key]
	if current != old {
		return false
	}
	l.entries[key] = replacement
	return true
}

// LoadOrCreate returns the cached Schema for key, or calls create to
// produce and cache one if absent. create is only invoked while the
// LRU's own lock is held, so a concurrent LoadOrCreate for the same
// key cannot race to create two different entries.
func (l *LRU) LoadOrCreate(key uint64, create func() (*Schema, error)) (*Schema, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.entries[key]; ok {
		return s, nil
	}
	s, err := create()
	if err != nil {
		return nil, err
	}
	l.entries[key] = s
	return s, nil
}
