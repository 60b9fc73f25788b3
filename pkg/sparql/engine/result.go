package engine

import (
	"github.com/quaddb/quaddb/pkg/quad"
	"github.com/quaddb/quaddb/pkg/sparql/lang"
)

// Result is the shaped outcome of executing one query, carrying only the
// fields relevant to its Kind: SELECT populates Vars/Rows, ASK populates
// Boolean, and CONSTRUCT/DESCRIBE populate Quads.
type Result struct {
	Kind    lang.QueryKind
	Vars    []string
	Rows    []quad.Row
	Boolean bool
	Quads   []quad.Quad

	// Dict lets a caller resolve Rows' atoms back to terms without
	// importing the store package directly.
	Dict interface {
		Lookup(quad.AtomID) (quad.Term, bool)
	}
}

// Term resolves one cell of a SELECT result row, returning the zero Term
// and false for an unbound cell.
func (r *Result) Term(cell quad.Cell) (quad.Term, bool) {
	if cell.Tag != quad.TagAtom {
		return quad.Term{}, false
	}
	return r.Dict.Lookup(cell.Atom)
}
