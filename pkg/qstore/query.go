package qstore

import (
	"github.com/quaddb/quaddb/pkg/dict"
	"github.com/quaddb/quaddb/pkg/index"
	"github.com/quaddb/quaddb/pkg/qmetrics"
	"github.com/quaddb/quaddb/pkg/quad"
)

// QuadCursor iterates matching quads in index order, decoding atom ids
// back to Terms via the store's dictionary as it goes.
type QuadCursor struct {
	store    *Store
	cursor   *index.Cursor
	ordering index.Ordering
	pattern  quad.Pattern
	at       func(quad.Interval) bool // temporal acceptance test
	err      error                    // set if Scan itself failed; surfaced by the first Next call
}

// matchesPattern re-checks every bound position of the pattern against a
// decoded entry. The index seek prefix already covers the bound triple
// columns, but a bound graph column only makes it into the prefix when
// all three triple columns are bound too, so it must be filtered here.
func (c *QuadCursor) matchesPattern(aq quad.AtomQuad) bool {
	p := c.pattern
	if p.Subject != quad.Unbound && aq.Subject != p.Subject {
		return false
	}
	if p.Predicate != quad.Unbound && aq.Predicate != p.Predicate {
		return false
	}
	if p.Object != quad.Unbound && aq.Object != p.Object {
		return false
	}
	if p.GraphBound && aq.Graph != p.Graph {
		return false
	}
	return true
}

// Next advances the cursor, skipping entries whose columns or interval
// fail the pattern, and returns the next matching quad.
func (c *QuadCursor) Next() (quad.Quad, bool, error) {
	if c.err != nil {
		return quad.Quad{}, false, c.err
	}
	for {
		e, ok, err := c.cursor.Next()
		if err != nil {
			return quad.Quad{}, false, err
		}
		if !ok {
			return quad.Quad{}, false, nil
		}
		aq := index.Decode(c.ordering, e)
		if !c.matchesPattern(aq) {
			continue
		}
		if !c.at(aq.Valid) {
			continue
		}
		qmetrics.TriplePatternsMatchedTotal.Inc()
		return c.store.decode(aq), true, nil
	}
}

func (s *Store) decode(aq quad.AtomQuad) quad.Quad {
	subj, _ := s.dict.Lookup(aq.Subject)
	pred, _ := s.dict.Lookup(aq.Predicate)
	obj, _ := s.dict.Lookup(aq.Object)
	graph := quad.DefaultGraphTerm
	if aq.Graph != dict.ReservedDefaultGraph && aq.Graph != dict.ReservedInvalid {
		if g, ok := s.dict.Lookup(aq.Graph); ok {
			graph = g
		}
	}
	return quad.Quad{Subject: subj, Predicate: pred, Object: obj, Graph: graph}
}

// toPattern converts a (possibly partially bound) quad of Terms into an
// interned Pattern, where an unset Term (the zero Term value, which has
// Kind KindIRI and an empty Value — never a valid bound value since an
// empty IRI never gets interned) means "unbound". Callers build patterns
// with quad.Unbound directly when they already have atom ids; this helper
// is for the Term-level convenience entry points below.
func (s *Store) toPattern(subj, pred, obj, graph *quad.Term) quad.Pattern {
	var p quad.Pattern
	if subj != nil {
		p.Subject = boundOrNeverMatch(s.internedAtomFor(*subj))
	}
	if pred != nil {
		p.Predicate = boundOrNeverMatch(s.internedAtomFor(*pred))
	}
	if obj != nil {
		p.Object = boundOrNeverMatch(s.internedAtomFor(*obj))
	}
	if graph != nil {
		p.Graph = boundOrNeverMatch(s.lookupGraphAtom(*graph))
		p.GraphBound = true
	}
	return p
}

// boundOrNeverMatch turns a TryIntern/lookupGraphAtom result into a pattern
// position: the id itself when found, or quad.NeverMatch when not — never
// quad.Unbound, which would wrongly turn "this term was never asserted"
// into "match anything here".
func boundOrNeverMatch(id quad.AtomID, ok bool) quad.AtomID {
	if !ok {
		return quad.NeverMatch
	}
	return id
}

// Query matches the current moment: a quad is returned iff its interval
// contains now, which is always true for an open interval and false for
// a retracted one once now has passed its validTo. The index ordering
// with the longest bound prefix among subj/pred/obj/graph (nil means
// unbound) is selected automatically.
func (s *Store) Query(subj, pred, obj, graph *quad.Term) *QuadCursor {
	p := s.toPattern(subj, pred, obj, graph)
	now := s.now()
	return s.queryPattern(p, func(iv quad.Interval) bool { return iv.Contains(now) })
}

// QueryAsOf returns only quads whose interval contains instant t.
func (s *Store) QueryAsOf(subj, pred, obj, graph *quad.Term, t int64) *QuadCursor {
	p := s.toPattern(subj, pred, obj, graph)
	return s.queryPattern(p, func(iv quad.Interval) bool { return iv.Contains(t) })
}

// QueryBetween returns quads whose interval intersects [t1, t2).
func (s *Store) QueryBetween(subj, pred, obj, graph *quad.Term, t1, t2 int64) *QuadCursor {
	p := s.toPattern(subj, pred, obj, graph)
	return s.queryPattern(p, func(iv quad.Interval) bool { return iv.From < t2 && t1 < iv.To })
}

// QueryPattern runs an already-interned Pattern against the current
// moment; used by the SPARQL executor (C9), which interns its own terms
// once per query rather than per triple pattern.
func (s *Store) QueryPattern(p quad.Pattern) *QuadCursor {
	now := s.now()
	return s.queryPattern(p, func(iv quad.Interval) bool { return iv.Contains(now) })
}

// QueryPatternAsOf and QueryPatternBetween are QueryPattern's as-of and
// interval-intersection counterparts for already-interned patterns.
func (s *Store) QueryPatternAsOf(p quad.Pattern, t int64) *QuadCursor {
	return s.queryPattern(p, func(iv quad.Interval) bool { return iv.Contains(t) })
}

func (s *Store) QueryPatternBetween(p quad.Pattern, t1, t2 int64) *QuadCursor {
	return s.queryPattern(p, func(iv quad.Interval) bool { return iv.From < t2 && t1 < iv.To })
}

func (s *Store) queryPattern(p quad.Pattern, at func(quad.Interval) bool) *QuadCursor {
	cur, ordering, err := s.idx.Scan(p)
	if err != nil {
		return &QuadCursor{err: err}
	}
	return &QuadCursor{store: s, cursor: cur, ordering: ordering, pattern: p, at: at}
}

// Dict exposes the store's atom dictionary for components (the SPARQL
// executor, CONSTRUCT template instantiation) that must intern or resolve
// terms directly rather than through the Term-level convenience methods.
func (s *Store) Dict() interface {
	Intern(quad.Term) quad.AtomID
	Lookup(quad.AtomID) (quad.Term, bool)
} {
	return s.dict
}

// NamedGraphs returns every distinct named graph currently holding at
// least one quad whose interval contains now. The default graph is
// never included: it has no name to enumerate. Used by GRAPH ?g
// enumeration (when no FROM NAMED is given) and by the update executor's
// CLEAR NAMED / DROP ALL / GraphAll forms.
func (s *Store) NamedGraphs() ([]quad.Term, error) {
	cur := s.Query(nil, nil, nil, nil)
	seen := map[quad.Term]bool{}
	var out []quad.Term
	for {
		q, ok, err := cur.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		if q.Graph.Kind == quad.KindDefaultGraph || seen[q.Graph] {
			continue
		}
		seen[q.Graph] = true
		out = append(out, q.Graph)
	}
}
