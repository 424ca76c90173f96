package dbpool

import (
	"sync"
	"time"

	"github.com/dubalu/xapiand-go/pkg/backend"
	"github.com/dubalu/xapiand-go/pkg/endpoint"
	"github.com/dubalu/xapiand-go/pkg/xerror"
)

// Handle is a shared, reference-counted checkout of a backend index
// for a given set of endpoints (spec.md §3 "Database handle").
type Handle struct {
	Endpoints *endpoint.Endpoints
	Flags     Flags
	Backend   backend.IndexBackend

	mu        sync.Mutex
	refcount  int
	locked    bool
	touchedAt time.Time
}

// Lock marks the handle as locked, mirroring the original's
// lock_database RAII guard (original_source/src/lock_database.h).
// Unlike the original (which nests via a counter), this port's
// Handle.Lock is deliberately non-reentrant per spec.md §4.D: locking
// an already-locked handle is a programmer error and returns
// AlreadyLocked.
func (h *Handle) Lock() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.locked {
		return xerror.New(xerror.AlreadyLocked, "handle is already locked")
	}
	h.locked = true
	return nil
}

// Unlock clears the locked flag set by Lock.
func (h *Handle) Unlock() {
	h.mu.Lock()
	h.locked = false
	h.mu.Unlock()
}

func (h *Handle) retain() {
	h.mu.Lock()
	h.refcount++
	h.touchedAt = time.Now()
	h.mu.Unlock()
}

// release decrements the refcount and returns the count after the
// decrement.
func (h *Handle) release() int {
	h.mu.Lock()
	h.refcount--
	h.touchedAt = time.Now()
	n := h.refcount
	h.mu.Unlock()
	return n
}

func (h *Handle) idleSince() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.touchedAt
}

func (h *Handle) refs() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.refcount
}
