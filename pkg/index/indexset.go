package index

import (
	"github.com/quaddb/quaddb/pkg/pager"
	"github.com/quaddb/quaddb/pkg/quad"
)

// IndexSet owns all six B+Tree orderings over a single Pager, and
// maintains the invariant that every asserted quad appears in all six.
// Index selection (SelectOrdering) is modeled on a triple-store reference
// implementation's bound-prefix selection: prefer the ordering whose
// leading columns are bound by the query pattern.
type IndexSet struct {
	trees [numOrderings]*Tree
}

// Open builds an IndexSet over p, one Tree per Ordering; each Tree shares
// p's root-page bookkeeping via its own superblock slot.
func Open(p *pager.Pager) *IndexSet {
	is := &IndexSet{}
	for o := Ordering(0); o < numOrderings; o++ {
		is.trees[o] = newTree(o, p)
	}
	return is
}

// Insert adds q's key to every ordering. The quad must appear in
// all six indices before the enclosing commit_batch returns; callers are
// expected to call Insert for a quad exactly once per commit (interval
// merging on duplicate assert is handled by the caller at the Quad Store
// layer, which decides whether to Insert a fresh entry or Remove-then-
// Insert a merged one).
func (is *IndexSet) Insert(q quad.AtomQuad, txID pager.TxID) error {
	for o := Ordering(0); o < numOrderings; o++ {
		a, b, c := permute(o, q.Subject, q.Predicate, q.Object)
		entry := Entry{A: a, B: b, C: c, Graph: q.Graph, Valid: q.Valid}
		if err := is.trees[o].Insert(entry, txID); err != nil {
			return err
		}
	}
	return nil
}

// Remove deletes q's key from every ordering — used by retraction, which
// then inserts the quad again with its new validTo, and by the interval
// merge path (see Insert's doc comment).
func (is *IndexSet) Remove(q quad.AtomQuad, txID pager.TxID) error {
	for o := Ordering(0); o < numOrderings; o++ {
		a, b, c := permute(o, q.Subject, q.Predicate, q.Object)
		key := EncodeKey(Entry{A: a, B: b, C: c, Graph: q.Graph, Valid: q.Valid})
		if err := is.trees[o].Remove(key, txID); err != nil {
			return err
		}
	}
	return nil
}

// SelectOrdering picks the tree whose leading bound columns match p's
// bound positions, preferring the longest usable bound prefix. Orderings
// tied on prefix length cover exactly the same bound columns and hence
// the same entry set, so the tie-break is simply declaration order (no
// selectivity estimate can separate them); RangeCountEstimate exists for
// the planner's cross-pattern join-ordering decisions, not for this
// per-pattern choice. This mirrors a reference triple store's
// selectIndex, generalized from three orderings (SPO/POS/OSP) to all six
// permutations of the triple columns, each followed by the graph column.
func (is *IndexSet) SelectOrdering(p quad.Pattern) (Ordering, []byte) {
	sBound := p.Subject != quad.Unbound
	pBound := p.Predicate != quad.Unbound
	oBound := p.Object != quad.Unbound

	type candidate struct {
		ordering Ordering
		bound    int
		prefix   []byte
	}
	var candidates []candidate

	consider := func(o Ordering, a, b, c bool) {
		n := 0
		for _, bound := range []bool{a, b, c} {
			if !bound {
				break
			}
			n++
		}
		candidates = append(candidates, candidate{ordering: o, bound: n})
	}

	consider(SPO, sBound, pBound, oBound)
	consider(SOP, sBound, oBound, pBound)
	consider(PSO, pBound, sBound, oBound)
	consider(POS, pBound, oBound, sBound)
	consider(OSP, oBound, sBound, pBound)
	consider(OPS, oBound, pBound, sBound)

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.bound > best.bound {
			best = c
		}
	}

	a, b, c := permute(best.ordering, p.Subject, p.Predicate, p.Object)
	boundCount := best.bound
	graphBound := 0
	if p.GraphBound {
		graphBound = 1
	}
	if boundCount < 3 {
		// A partially-bound triple column can't be followed by a bound
		// graph column in a byte-prefix seek; only extend the prefix
		// with the graph column when all three triple columns matched.
		graphBound = 0
	}
	full := PrefixBytes(a, b, c, p.Graph, boundCount+graphBound)
	return best.ordering, full
}

// Scan returns a cursor over the tree SelectOrdering picks for pattern p,
// plus the Ordering actually chosen, which callers pass to Decode to
// translate the tree's raw (a,b,c) columns back into (subject, predicate,
// object).
func (is *IndexSet) Scan(p quad.Pattern) (*Cursor, Ordering, error) {
	ordering, prefix := is.SelectOrdering(p)
	cur, err := is.trees[ordering].Seek(prefix)
	return cur, ordering, err
}

// Decode translates an Entry read from ordering's tree back into
// (subject, predicate, object, graph, interval).
func Decode(ordering Ordering, e Entry) quad.AtomQuad {
	s, p, o := unpermute(ordering, e.A, e.B, e.C)
	return quad.AtomQuad{Subject: s, Predicate: p, Object: o, Graph: e.Graph, Valid: e.Valid}
}

// RangeCountEstimate delegates to the given ordering's tree, for the
// planner's selectivity comparisons between triple patterns; SelectOrdering
// does not consult it.
func (is *IndexSet) RangeCountEstimate(ordering Ordering, prefix []byte) (int, error) {
	return is.trees[ordering].RangeCountEstimate(prefix)
}
