package engine

import (
	"github.com/quaddb/quaddb/pkg/qstore"
	"github.com/quaddb/quaddb/pkg/quad"
	"github.com/quaddb/quaddb/pkg/sparql/lang"
)

// EvalWherePattern runs a parsed WHERE-clause pattern buffer (root slots at
// patterns[:rootCount]) against store and returns the resulting solution
// table. It gives the SPARQL Update executor (C10) access to the same
// pattern-matching machinery SELECT uses, without going through a full
// parsed Query.
func EvalWherePattern(store *qstore.Store, patterns []lang.Slot, rootCount int) (*quad.BindingTable, error) {
	q := &lang.Query{Patterns: patterns, RootCount: rootCount, Limit: -1}
	ex := newExecutor(store, q)
	return ex.evalPatterns(q.Patterns[:q.RootCount])
}
