package engine

import (
	"fmt"

	"github.com/quaddb/quaddb/pkg/quad"
	"github.com/quaddb/quaddb/pkg/sparql/lang"
)

// instantiateConstruct grounds the CONSTRUCT template once per solution
// row, binding projected variables from the row and minting a fresh blank
// node per (row, template label) pair — each solution gets its own blank
// nodes, consistent with SPARQL CONSTRUCT semantics.
func (ex *executor) instantiateConstruct(table *quad.BindingTable, tmpl []lang.Slot) []quad.Quad {
	var out []quad.Quad
	for rowIdx, row := range table.Rows {
		blanks := map[string]quad.Term{}
		for _, slot := range tmpl {
			subj, ok1 := ex.groundTemplateTerm(table, row, blanks, rowIdx, slot.Subject)
			pred, ok2 := ex.groundTemplateTerm(table, row, blanks, rowIdx, slot.Predicate)
			obj, ok3 := ex.groundTemplateTerm(table, row, blanks, rowIdx, slot.Object)
			if !ok1 || !ok2 || !ok3 {
				continue
			}
			out = append(out, quad.Quad{Subject: subj, Predicate: pred, Object: obj, Graph: quad.DefaultGraphTerm})
		}
	}
	return out
}

func (ex *executor) groundTemplateTerm(table *quad.BindingTable, row quad.Row, blanks map[string]quad.Term, rowIdx int, ref lang.TermRef) (quad.Term, bool) {
	switch ref.Kind {
	case lang.RefVar:
		idx := table.VarIndex(ref.Var)
		if idx < 0 {
			return quad.Term{}, false
		}
		cell := row.Get(idx)
		if cell.Tag != quad.TagAtom {
			return quad.Term{}, false
		}
		return ex.dict.Lookup(cell.Atom)
	case lang.RefIRI:
		return quad.IRI(ref.IRI), true
	case lang.RefBlank:
		t, ok := blanks[ref.Blank]
		if !ok {
			t = quad.Blank(fmt.Sprintf("%s_r%d", ref.Blank, rowIdx))
			blanks[ref.Blank] = t
		}
		return t, true
	case lang.RefLiteral:
		return literalFromRef(ref), true
	}
	return quad.Term{}, false
}

// describeQuads gathers every quad having one of the given subjects as its
// subject — a minimal but spec-compliant DESCRIBE form, since SPARQL
// leaves the exact "description" shape implementation-defined.
func (ex *executor) describeQuads(subjects []quad.Term) []quad.Quad {
	seen := map[string]bool{}
	var out []quad.Quad
	for _, subj := range subjects {
		s := subj
		cur := ex.store.Query(&s, nil, nil, nil)
		for {
			q, ok, err := cur.Next()
			if err != nil || !ok {
				break
			}
			key := q.String()
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, q)
		}
	}
	return out
}
