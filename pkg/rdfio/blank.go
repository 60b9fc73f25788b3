package rdfio

import (
	"strconv"

	"github.com/quaddb/quaddb/pkg/quad"
)

// rdfFirst, rdfRest, and rdfNil are the well-known IRIs used to encode
// collections `( ... )` as a chain of blank nodes in RDF's standard
// collection vocabulary.
const (
	rdfFirst = "http://www.w3.org/1999/02/22-rdf-syntax-ns#first"
	rdfRest  = "http://www.w3.org/1999/02/22-rdf-syntax-ns#rest"
	rdfNil   = "http://www.w3.org/1999/02/22-rdf-syntax-ns#nil"
	rdfType  = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"
)

// blankAllocator hands out fresh `_:b{N}` labels for anonymous `[...]`
// nodes and collection cells, scoped to one parse (one Lexer's worth of
// input).
type blankAllocator struct {
	next int
}

func (a *blankAllocator) fresh() quad.Term {
	label := "b" + strconv.Itoa(a.next)
	a.next++
	return quad.Blank(label)
}

// emitCollection writes the rdf:first/rdf:rest chain for a parsed `( ... )`
// collection and returns the term that refers to its head: rdf:nil for an
// empty collection, or the first chain cell's blank node otherwise. emit is
// invoked once per rdf:first/rdf:rest triple, in the same
// (subject, predicate, object, graph) shape as any other parsed triple.
func emitCollection(alloc *blankAllocator, graph quad.Term, items []quad.Term, emit func(s, p, o, g quad.Term) error) (quad.Term, error) {
	if len(items) == 0 {
		return quad.IRI(rdfNil), nil
	}
	cells := make([]quad.Term, len(items))
	for i := range items {
		cells[i] = alloc.fresh()
	}
	for i, item := range items {
		if err := emit(cells[i], quad.IRI(rdfFirst), item, graph); err != nil {
			return quad.Term{}, err
		}
		rest := quad.IRI(rdfNil)
		if i+1 < len(cells) {
			rest = cells[i+1]
		}
		if err := emit(cells[i], quad.IRI(rdfRest), rest, graph); err != nil {
			return quad.Term{}, err
		}
	}
	return cells[0], nil
}
