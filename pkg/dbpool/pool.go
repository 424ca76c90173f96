package dbpool

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/dubalu/xapiand-go/pkg/backend"
	"github.com/dubalu/xapiand-go/pkg/endpoint"
	"github.com/dubalu/xapiand-go/pkg/log"
	"github.com/dubalu/xapiand-go/pkg/xerror"
)

// OpenFunc opens (or spawns) the backend for an endpoint set's local
// path. Pool is injected with one so it does not hang a hard
// dependency on a specific IndexBackend implementation, mirroring the
// teacher's pkg/storage.Store interface + injection pattern.
type OpenFunc func(dir string, spawn bool) (backend.IndexBackend, error)

// CheckoutWait bounds how long checkout blocks for a writable handle
// that is already checked out elsewhere.
const CheckoutWait = 5 * time.Second

// Pool is the reference-counted, per-endpoint checkout pool (spec.md
// §4.D).
type Pool struct {
	baseDir string
	open    OpenFunc
	quota   int

	mu        sync.Mutex
	handles   map[string]*Handle
	tokens    map[string]chan struct{}
	checkouts map[string]uint64
}

// NewPool constructs a Pool rooted at baseDir, using open to spawn
// backends. quota bounds how many handles stay cached: when Checkin
// drops a handle's refcount to zero while the pool holds more than
// quota handles, that handle is closed and evicted. Cleanup closes
// idle handles independently of quota.
func NewPool(baseDir string, open OpenFunc, quota int) *Pool {
	return &Pool{
		baseDir:   baseDir,
		open:      open,
		quota:     quota,
		handles:   make(map[string]*Handle),
		tokens:    make(map[string]chan struct{}),
		checkouts: make(map[string]uint64),
	}
}

// writableToken returns the (lazily created) single-slot token
// channel that serializes writable checkouts for key: receiving from
// it acquires the slot, sending back into it releases the slot.
func (p *Pool) writableToken(key string) chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch, ok := p.tokens[key]
	if !ok {
		ch = make(chan struct{}, 1)
		ch <- struct{}{}
		p.tokens[key] = ch
	}
	return ch
}

func (p *Pool) key(eps *endpoint.Endpoints, flags Flags) string {
	return fmt.Sprintf("%016x:%d", eps.Hash(), flags&^Volatile)
}

func (p *Pool) endpointDir(eps *endpoint.Endpoints) string {
	members := eps.Members()
	if len(members) == 0 {
		return p.baseDir
	}
	return filepath.Join(p.baseDir, strconv.FormatUint(eps.Hash(), 16), filepath.Base(members[0].Path))
}

// EndpointDir exposes the on-disk directory eps resolves to, for
// callers outside the pool that need to locate the same backend
// directory without checking it out (e.g. pkg/replication's marker
// check for whether a path already holds an up-to-date copy).
func (p *Pool) EndpointDir(eps *endpoint.Endpoints) string {
	return p.endpointDir(eps)
}

// Checkout returns a shared handle for eps under flags, blocking
// (bounded by CheckoutWait) if a writable handle is requested and one
// is already checked out for the same endpoint set.
func (p *Pool) Checkout(ctx context.Context, eps *endpoint.Endpoints, flags Flags) (*Handle, error) {
	key := p.key(eps, flags)

	p.mu.Lock()
	p.checkouts[flags.String()]++
	p.mu.Unlock()

	if flags.Has(Writable) {
		token := p.writableToken(key)
		select {
		case <-token:
		case <-ctx.Done():
			return nil, xerror.Wrap(xerror.Timeout, "checkout cancelled", ctx.Err())
		case <-time.After(CheckoutWait):
			return nil, xerror.New(xerror.Timeout, "timed out waiting for writable checkout")
		}
	}

	p.mu.Lock()
	h, ok := p.handles[key]
	if !ok {
		p.mu.Unlock()
		be, err := p.open(p.endpointDir(eps), flags.Has(Spawn))
		p.mu.Lock()
		if err != nil {
			p.mu.Unlock()
			if flags.Has(Writable) {
				p.writableToken(key) <- struct{}{}
			}
			return nil, err
		}
		h, ok = p.handles[key]
		if !ok {
			h = &Handle{Endpoints: eps, Flags: flags, Backend: be, touchedAt: time.Now()}
			p.handles[key] = h
		} else {
			be.Close()
		}
	}
	h.retain()
	p.mu.Unlock()

	return h, nil
}

// WritableCount reports how many pooled handles with Writable flags
// are currently checked out (refcount > 0), for pkg/metrics's
// PoolWritableHeld gauge.
func (p *Pool) WritableCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, h := range p.handles {
		if h.Flags.Has(Writable) && h.refs() > 0 {
			n++
		}
	}
	return n
}

// CheckoutCounts returns a snapshot of total checkouts made so far,
// keyed by Flags.String(), for pkg/metrics's PoolCheckoutsTotal
// counter vector.
func (p *Pool) CheckoutCounts() map[string]uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]uint64, len(p.checkouts))
	for k, v := range p.checkouts {
		out[k] = v
	}
	return out
}

// Checkin decrements h's refcount; when it reaches zero and the pool
// is over quota, the backend is closed and the handle evicted.
func (p *Pool) Checkin(h *Handle) error {
	n := h.release()

	if h.Flags.Has(Writable) {
		key := p.key(h.Endpoints, h.Flags)
		p.writableToken(key) <- struct{}{}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if n > 0 {
		return nil
	}
	if len(p.handles) <= p.quota {
		return nil
	}
	return p.evictLocked(h)
}

func (p *Pool) evictLocked(h *Handle) error {
	for key, candidate := range p.handles {
		if candidate == h {
			delete(p.handles, key)
			break
		}
	}
	if err := h.Backend.Close(); err != nil {
		return xerror.Wrap(xerror.BackendError, "closing evicted handle", err)
	}
	return nil
}

// RecoverDatabase force-closes and removes a writable handle after an
// unrecoverable backend error, so the next checkout reopens fresh.
func (p *Pool) RecoverDatabase(eps *endpoint.Endpoints, flags Flags) error {
	key := p.key(eps, flags)

	p.mu.Lock()
	h, ok := p.handles[key]
	if ok {
		delete(p.handles, key)
	}
	p.mu.Unlock()

	select {
	case p.writableToken(key) <- struct{}{}:
	default:
	}

	if !ok {
		return nil
	}
	if err := h.Backend.Close(); err != nil {
		return xerror.Wrap(xerror.BackendError, "closing recovered handle", err)
	}
	return nil
}

// Cleanup sweeps handles with a zero refcount and closes them,
// returning the number closed (original_source/src/database_cleanup.cc).
func (p *Pool) Cleanup(maxIdle time.Duration) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	closed := 0
	now := time.Now()
	for key, h := range p.handles {
		if h.refs() != 0 {
			continue
		}
		if now.Sub(h.idleSince()) < maxIdle {
			continue
		}
		if err := h.Backend.Close(); err != nil {
			log.Logger.Warn().Err(err).Str("key", key).Msg("cleanup: failed to close idle handle")
			continue
		}
		delete(p.handles, key)
		closed++
	}
	return closed
}

// Run starts the periodic idle-handle sweep; it blocks until ctx is
// cancelled (spec.md §4.D "cleanup()": "periodic (60s) sweep that
// closes idle handles").
func (p *Pool) Run(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n := p.Cleanup(maxIdle)
			if n > 0 {
				log.Logger.Debug().Int("closed", n).Msg("database pool cleanup swept idle handles")
			}
		}
	}
}

// WithCheckout checks out a handle, guarantees Checkin on every exit
// path (success, early return, or panic recovery propagation), and
// runs fn with the handle (original_source/src/lock_database.h's RAII
// guard, adapted to Go's defer).
func (p *Pool) WithCheckout(ctx context.Context, eps *endpoint.Endpoints, flags Flags, fn func(*Handle) error) error {
	h, err := p.Checkout(ctx, eps, flags)
	if err != nil {
		return err
	}
	defer func() {
		if err := p.Checkin(h); err != nil {
			log.Logger.Warn().Err(err).Msg("checkin failed")
		}
	}()
	return fn(h)
}

// RetryOnConcurrentModification runs fn, retrying up to DBRetries
// times when it fails with ConcurrentModification or NetworkError
// (spec.md §4.D retry policy). reopen is called before each retry to
// advance the handle to the latest committed revision.
func RetryOnConcurrentModification(fn func() error, reopen func() error) error {
	var err error
	for attempt := 0; attempt <= DBRetries; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		kind := xerror.KindOf(err)
		if kind != xerror.ConcurrentModification && kind != xerror.NetworkError {
			return err
		}
		if attempt == DBRetries {
			break
		}
		if reopen != nil {
			if rErr := reopen(); rErr != nil {
				return rErr
			}
		}
	}
	return err
}
