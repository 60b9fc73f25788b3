// Package storepool implements the store pool (C6): a bounded set of named
// QuadStores opened on demand and leased to callers, evicting the least
// recently used store when the open-store cap is exceeded.
package storepool

import (
	"container/list"
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/quaddb/quaddb/pkg/qconfig"
	"github.com/quaddb/quaddb/pkg/qerr"
	"github.com/quaddb/quaddb/pkg/qlog"
	"github.com/quaddb/quaddb/pkg/qmetrics"
	"github.com/quaddb/quaddb/pkg/qstore"
)

// entry tracks one open store's lease bookkeeping. A store with
// refCount == 0 is idle and eligible for LRU eviction; one with
// refCount > 0 is pinned open regardless of LRU position.
type entry struct {
	name     string
	store    *qstore.Store
	refCount int
	elem     *list.Element // this entry's node in Pool.lru; nil while refCount > 0
}

// Pool holds a bounded set of named stores, each rooted at baseDir/<name>.
type Pool struct {
	mu      sync.Mutex
	baseDir string
	cfg     qconfig.Config
	max     int
	stores  map[string]*entry
	lru     *list.List // idle entries only, front = most recently released

	// openSem bounds concurrent store opens (disk I/O, WAL recovery) so
	// a burst of Acquire calls for distinct never-opened stores doesn't
	// thrash the disk.
	openSem *semaphore.Weighted
}

// New constructs a Pool rooted at baseDir, capped at cfg.StorePoolSize
// simultaneously open stores.
func New(baseDir string, cfg qconfig.Config) *Pool {
	max := cfg.StorePoolSize
	if max <= 0 {
		max = 8
	}
	return &Pool{
		baseDir: baseDir,
		cfg:     cfg,
		max:     max,
		stores:  make(map[string]*entry),
		lru:     list.New(),
		openSem: semaphore.NewWeighted(int64(max)),
	}
}

// Lease is a handle on a pooled store, returned by Acquire. The caller
// must call Release exactly once to return the store to the pool.
type Lease struct {
	id    uuid.UUID
	pool  *Pool
	name  string
	store *qstore.Store
}

// Store returns the leased store.
func (l *Lease) Store() *qstore.Store { return l.store }

// ID returns the lease's unique id, for diagnostics and logging.
func (l *Lease) ID() uuid.UUID { return l.id }

// Release returns the store to the pool. Once every outstanding lease on
// a store is released, it becomes eligible for LRU eviction.
func (l *Lease) Release() {
	l.pool.release(l.name)
}

// Acquire leases the named store, opening it from disk if it is not
// already resident and evicting the least-recently-used idle store first
// if the pool is at capacity. Acquisition on an evicted store transparently
// reopens it.
func (p *Pool) Acquire(ctx context.Context, name string) (*Lease, error) {
	p.mu.Lock()
	if e, ok := p.stores[name]; ok {
		p.pin(e)
		p.mu.Unlock()
		return p.newLease(name, e.store), nil
	}
	p.mu.Unlock()

	if err := p.openSem.Acquire(ctx, 1); err != nil {
		return nil, qerr.ErrCanceled
	}
	defer p.openSem.Release(1)

	p.mu.Lock()
	// Re-check: another Acquire may have opened it while we waited on
	// the semaphore.
	if e, ok := p.stores[name]; ok {
		p.pin(e)
		p.mu.Unlock()
		return p.newLease(name, e.store), nil
	}
	if len(p.stores) >= p.max {
		if !p.evictOneLocked() {
			p.mu.Unlock()
			return nil, fmt.Errorf("storepool: pool at capacity (%d), every open store is leased", p.max)
		}
	}
	p.mu.Unlock()

	cfg := p.cfg
	cfg.DataDir = filepath.Join(p.baseDir, name)
	st, err := qstore.Open(cfg)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	e := &entry{name: name, store: st, refCount: 1}
	p.stores[name] = e
	qmetrics.StorePoolOpenStores.Set(float64(len(p.stores)))
	p.mu.Unlock()

	storepoolLog := qlog.WithComponent("storepool")
	storepoolLog.Info().Str("store", name).Msg("opened and leased store")
	return p.newLease(name, st), nil
}

func (p *Pool) newLease(name string, st *qstore.Store) *Lease {
	return &Lease{id: uuid.New(), pool: p, name: name, store: st}
}

// pin must be called with p.mu held; it increments refCount and removes
// the entry from the idle LRU list if present.
func (p *Pool) pin(e *entry) {
	if e.elem != nil {
		p.lru.Remove(e.elem)
		e.elem = nil
	}
	e.refCount++
}

func (p *Pool) release(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.stores[name]
	if !ok {
		return
	}
	e.refCount--
	if e.refCount <= 0 {
		e.refCount = 0
		e.elem = p.lru.PushFront(e)
	}
}

// evictOneLocked closes and forgets the least-recently-used idle store.
// Must be called with p.mu held. Returns false if every store is leased
// (no idle entries to evict).
func (p *Pool) evictOneLocked() bool {
	back := p.lru.Back()
	if back == nil {
		return false
	}
	e := back.Value.(*entry)
	p.lru.Remove(back)
	delete(p.stores, e.name)
	if err := e.store.Close(); err != nil {
		storepoolLog := qlog.WithComponent("storepool")
		storepoolLog.Error().Err(err).Str("store", e.name).Msg("error closing evicted store")
	}
	qmetrics.StorePoolEvictionsTotal.Inc()
	qmetrics.StorePoolOpenStores.Set(float64(len(p.stores)))
	storepoolLog := qlog.WithComponent("storepool")
	storepoolLog.Info().Str("store", e.name).Msg("evicted idle store")
	return true
}

// CloseAll closes every currently open store, leased or not. Intended for
// process shutdown, not ordinary operation.
func (p *Pool) CloseAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var firstErr error
	for name, e := range p.stores {
		if err := e.store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(p.stores, name)
	}
	p.lru.Init()
	qmetrics.StorePoolOpenStores.Set(0)
	return firstErr
}

// Len returns the number of currently open stores (leased or idle).
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.stores)
}
