// Package bufpool defines the pooled-buffer capability used by the parse
// substrate and the page cache to rent scratch byte slices without
// allocating on every call. Only the interface is specified; callers decide
// which implementation to inject, following the "process-level OnceInit
// allocator, explicitly injected" guidance for the source's global
// PooledBufferManager.Shared singleton.
package bufpool

import "sync"

// Manager rents and returns byte-slice scratch buffers. Rent never fails:
// on free-list exhaustion it falls back to unpooled allocation, so callers
// never need an error path for memory pressure. Returned buffers are not
// cleared by Return; callers that handle sensitive data must clear their
// own buffer's contents before calling Return.
type Manager interface {
	// Rent returns a buffer with length 0 and capacity >= minCapacity.
	// The contents are not zero-initialized.
	Rent(minCapacity int) []byte
	// Return releases buf back to the pool. buf must not be used again
	// by the caller afterward.
	Return(buf []byte)
}

// sizeClass buckets are chosen to cover a single page (up to 8 KiB), a
// handful of pages, and larger WAL/output-buffer allocations without
// fragmenting the free lists across every possible size.
var sizeClasses = [6]int{256, 1024, 4096, 8192, 32768, 131072}

// poolManager is the default Manager: one sync.Pool per size class, with a
// final class of "no pool, allocate directly" for anything larger than the
// biggest class.
type poolManager struct {
	pools [len(sizeClasses)]sync.Pool
}

// NewPoolManager constructs the default sync.Pool-backed Manager.
func NewPoolManager() Manager {
	m := &poolManager{}
	for i, size := range sizeClasses {
		size := size
		m.pools[i].New = func() any {
			return make([]byte, 0, size)
		}
	}
	return m
}

func classFor(minCapacity int) int {
	for i, size := range sizeClasses {
		if minCapacity <= size {
			return i
		}
	}
	return -1
}

func (m *poolManager) Rent(minCapacity int) []byte {
	class := classFor(minCapacity)
	if class < 0 {
		// Exhausts every size class; fall back to unpooled allocation
		// per the rent-never-fails contract.
		return make([]byte, 0, minCapacity)
	}
	buf := m.pools[class].Get().([]byte)
	if cap(buf) < minCapacity {
		return make([]byte, 0, minCapacity)
	}
	return buf[:0]
}

func (m *poolManager) Return(buf []byte) {
	class := classFor(cap(buf))
	if class < 0 {
		return // larger than any tracked class; let the GC reclaim it
	}
	// Guard against a caller returning a buffer smaller than the class
	// it would be redistributed as; only pool buffers whose capacity
	// exactly matches a class size.
	if cap(buf) < sizeClasses[class] {
		return
	}
	m.pools[class].Put(buf[:0]) //nolint:staticcheck // intentional reuse of backing array
}

// Shared is the process-wide default Manager, analogous to the source's
// PooledBufferManager.Shared singleton. Tests and embedders that want
// deterministic allocation should construct their own Manager and pass it
// explicitly rather than relying on this var.
var Shared = NewPoolManager()
