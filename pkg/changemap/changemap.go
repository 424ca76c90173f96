// Package changemap implements the process-wide document-change map
// (spec.md §4.G, §5 "Shared resources"): a cache of the pre-image a
// script hook saw for a document, keyed by endpoint set and term ID,
// used to detect and reject a write racing against a stale read.
package changemap

import (
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/dubalu/xapiand-go/pkg/doc"
)

// Pair is a change-map entry: a document's content hash paired with
// the pre-image the caller saw it in (spec.md §4.G
// "shared<(content_hash, pre_image_msgpack)>").
type Pair struct {
	Hash     uint64
	PreImage doc.Value
}

// Reader resolves the current on-disk document for the term ID a Get
// or Set call is working against, used to seed the map on a cache
// miss. found is false when no such document exists yet.
type Reader func() (current doc.Value, hash uint64, found bool, err error)

type entry struct {
	pair *Pair
	refs int
}

// Map is the process-wide document-change map. It is consulted only
// when a script hook is active for the index being written; ordinary
// writes bypass it entirely (spec.md §4.G "Used only when a script
// hook is active"). One mutex guards the map itself; entries are
// handed out by pointer so a caller can keep computing against its
// pre-image after releasing the map's lock (spec.md §5).
type Map struct {
	mu      sync.Mutex
	entries map[uint64]*entry
}

// New returns an empty document-change map.
func New() *Map {
	return &Map{entries: make(map[uint64]*entry)}
}

// Key folds an endpoint-set hash and a term ID into the map's lookup
// key (spec.md §4.G "hash(endpoint_set) XOR hash(term_id)").
func Key(endpointSetHash uint64, termID string) uint64 {
	return endpointSetHash ^ xxhash.Sum64String(termID)
}

// Get returns the cached pair for key, or, on a miss, reads the
// current document via read and caches it — but only when local is
// true; a non-local endpoint set's original document lives on another
// node and is never fetched here. A nil *Pair with a nil error means
// no document exists yet for this term ID. Every successful Get must
// be matched by exactly one later Set or Dec call for key, which
// releases the reference Get took out.
func (m *Map) Get(key uint64, local bool, read Reader) (*Pair, error) {
	m.mu.Lock()
	if e, ok := m.entries[key]; ok {
		e.refs++
		pair := e.pair
		m.mu.Unlock()
		return pair, nil
	}
	m.mu.Unlock()

	if !local {
		return nil, nil
	}

	pair, err := readPair(read)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[key]; ok {
		e.refs++
		return e.pair, nil
	}
	m.entries[key] = &entry{pair: pair, refs: 1}
	return pair, nil
}

// Set performs the optimistic CAS described in spec.md §4.G: if
// oldPair is nil, this is the first writer and the write is always
// accepted. Otherwise the write is accepted only if oldPair's content
// hash still matches the currently cached (or freshly read, for a
// local endpoint set with no cached entry yet) pair. On acceptance the
// cache is updated to newPair so the next concurrent writer's Set
// observes it. oldPair, if non-nil, must be a value this Map
// previously returned from Get for key — Set releases that
// reference, and once no other reference remains the entry is dropped
// rather than updated, since nothing is left to race against it.
func (m *Map) Set(key uint64, local bool, read Reader, newPair, oldPair *Pair) (bool, error) {
	m.mu.Lock()
	e, ok := m.entries[key]
	m.mu.Unlock()

	var current *Pair
	if ok {
		current = e.pair
	} else if oldPair != nil {
		var pair *Pair
		if local {
			var err error
			pair, err = readPair(read)
			if err != nil {
				return false, err
			}
		}
		m.mu.Lock()
		if e2, ok2 := m.entries[key]; ok2 {
			e, ok = e2, true
			current = e.pair
		} else {
			e = &entry{pair: pair, refs: 0}
			m.entries[key] = e
			ok = true
			current = pair
		}
		m.mu.Unlock()
	}

	accepted := oldPair == nil || (current != nil && oldPair.Hash == current.Hash)

	m.mu.Lock()
	defer m.mu.Unlock()
	if ok {
		if oldPair != nil {
			e.refs--
		}
		if e.refs <= 0 {
			delete(m.entries, key)
		} else if accepted {
			e.pair = newPair
		}
	}
	return accepted, nil
}

// Dec releases a reference taken out by Get without performing a
// write, dropping the entry once no references remain (spec.md §4.G
// "dec ... drop when unused").
func (m *Map) Dec(key uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[key]; ok {
		e.refs--
		if e.refs <= 0 {
			delete(m.entries, key)
		}
	}
}

func readPair(read Reader) (*Pair, error) {
	if read == nil {
		return nil, nil
	}
	current, hash, found, err := read()
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &Pair{Hash: hash, PreImage: current}, nil
}
