// Package dict implements the atom/term dictionary (C2): a bidirectional,
// append-only mapping between canonical term strings and 64-bit atom ids.
package dict

import (
	"sync"

	"github.com/quaddb/quaddb/pkg/qlog"
	"github.com/quaddb/quaddb/pkg/quad"
)

// ReservedInvalid is atom id 0, conventionally reserved for "invalid" and
// never assigned to a real term.
const ReservedInvalid = quad.Unbound

// ReservedDefaultGraph is the fixed atom id for the default-graph sentinel
// used in the graph slot of a quad asserted outside any named graph.
const ReservedDefaultGraph quad.AtomID = 1

// firstAssignable is the first atom id intern() may hand out for an
// ordinary term; ids below it are reserved.
const firstAssignable quad.AtomID = 2

// Dictionary maps canonical term strings to atom ids and back. Strings are
// compared by byte-exact equality; there is no Unicode normalization.
// Interning is protected by a writer lock; Lookup takes a read lock, so
// readers observe a monotonically growing snapshot without ever seeing a
// partially-written entry.
type Dictionary struct {
	mu     sync.RWMutex
	byText map[string]quad.AtomID
	byAtom []quad.Term // index 0 unused, index 1 is the default-graph sentinel
}

// New constructs an empty dictionary seeded with the reserved atoms.
func New() *Dictionary {
	d := &Dictionary{
		byText: make(map[string]quad.AtomID),
		byAtom: make([]quad.Term, firstAssignable),
	}
	d.byAtom[ReservedDefaultGraph] = quad.DefaultGraphTerm
	return d
}

// Intern returns the existing atom id for t, or assigns and returns the
// next one. Ids are deterministic only within this dictionary instance;
// they are not stable across databases, since assignment order depends on
// the order terms were first seen.
func (d *Dictionary) Intern(t quad.Term) quad.AtomID {
	key := t.SortKey()

	d.mu.RLock()
	if id, ok := d.byText[key]; ok {
		d.mu.RUnlock()
		return id
	}
	d.mu.RUnlock()

	d.mu.Lock()
	defer d.mu.Unlock()
	// Re-check under the write lock: another writer may have interned
	// the same term between the RUnlock above and this Lock.
	if id, ok := d.byText[key]; ok {
		return id
	}
	id := quad.AtomID(len(d.byAtom))
	d.byAtom = append(d.byAtom, t)
	d.byText[key] = id
	dictLog := qlog.WithComponent("dict")
	dictLog.Debug().Uint64("atom_id", uint64(id)).Str("kind", t.Kind.String()).Msg("interned term")
	return id
}

// TryIntern returns t's existing atom id without assigning a new one. It is
// for read paths (query, retraction lookups) that must not grow the
// dictionary just to discover a term was never asserted: a term with no
// entry yet can have no index rows referencing it, so the caller can treat
// "not found" as "matches nothing" without interning anything.
func (d *Dictionary) TryIntern(t quad.Term) (quad.AtomID, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.byText[t.SortKey()]
	return id, ok
}

// Lookup returns the term for id. The returned Term is a copy (Go strings
// are immutable, so there is no aliasing hazard analogous to the borrowed
// C-string reference the source dictionary returns); it remains valid
// indefinitely, unlike the "valid until next mutation" contract of a true
// borrowed reference.
func (d *Dictionary) Lookup(id quad.AtomID) (quad.Term, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if id == ReservedInvalid || int(id) >= len(d.byAtom) {
		return quad.Term{}, false
	}
	return d.byAtom[id], true
}

// MustLookup is Lookup but panics on an unknown atom id; used internally
// where the id is known to have come from this dictionary's own Intern.
func (d *Dictionary) MustLookup(id quad.AtomID) quad.Term {
	t, ok := d.Lookup(id)
	if !ok {
		panic("dict: unknown atom id")
	}
	return t
}

// Len returns the number of assigned atoms, including the reserved ones.
func (d *Dictionary) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.byAtom)
}
