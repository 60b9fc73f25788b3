package update

import (
	"fmt"

	"github.com/quaddb/quaddb/pkg/qerr"
	"github.com/quaddb/quaddb/pkg/qlog"
	"github.com/quaddb/quaddb/pkg/qmetrics"
	"github.com/quaddb/quaddb/pkg/qstore"
	"github.com/quaddb/quaddb/pkg/quad"
	"github.com/quaddb/quaddb/pkg/sparql/engine"
	"github.com/quaddb/quaddb/pkg/sparql/lang"
)

func opLabel(k lang.UpdateOpKind) string {
	switch k {
	case lang.OpInsertData:
		return "insert_data"
	case lang.OpDeleteData:
		return "delete_data"
	case lang.OpModify:
		return "modify"
	case lang.OpClear:
		return "clear"
	case lang.OpDrop:
		return "drop"
	case lang.OpAdd:
		return "add"
	case lang.OpMove:
		return "move"
	case lang.OpCopy:
		return "copy"
	default:
		return "unknown"
	}
}

// Execute parses src as a SPARQL 1.1 Update request and runs it against
// store. The whole request commits as one transaction: on any operation's
// error, no prior effect is visible.
func Execute(store *qstore.Store, src string) error {
	req, err := lang.ParseUpdate(src)
	if err != nil {
		qmetrics.ParseErrorsTotal.WithLabelValues("sparql-update").Inc()
		return err
	}
	return ExecuteRequest(store, req)
}

// ExecuteRequest runs an already-parsed update request against store as a
// single write transaction.
func ExecuteRequest(store *qstore.Store, req *lang.UpdateRequest) error {
	if err := store.BeginBatch(); err != nil {
		return err
	}
	for _, op := range req.Ops {
		label := opLabel(op.Kind)
		timer := qmetrics.NewTimer()
		err := execOp(store, op)
		timer.ObserveDurationVec(qmetrics.UpdateDuration, label)
		if err != nil {
			qmetrics.UpdatesTotal.WithLabelValues(label, "error").Inc()
			store.AbortBatch()
			queryLog := qlog.WithQuery("update")
			queryLog.Warn().Err(err).Str("op", label).Msg("update operation failed, rolled back")
			return fmt.Errorf("update operation %s: %w", label, err)
		}
		qmetrics.UpdatesTotal.WithLabelValues(label, "ok").Inc()
	}
	return store.CommitBatch()
}

func execOp(store *qstore.Store, op lang.UpdateOp) error {
	switch op.Kind {
	case lang.OpInsertData:
		return execData(store, op.Data[:op.DataRoot], quad.DefaultGraphTerm, assertQuad)
	case lang.OpDeleteData:
		return execData(store, op.Data[:op.DataRoot], quad.DefaultGraphTerm, retractQuad)
	case lang.OpModify:
		return execModify(store, op)
	case lang.OpClear:
		return execClearOrDrop(store, op.Graph, op.Silent)
	case lang.OpDrop:
		return execClearOrDrop(store, op.Graph, op.Silent)
	case lang.OpAdd:
		return execAdd(store, op.Graph, op.To)
	case lang.OpMove:
		return execMove(store, op.Graph, op.To)
	case lang.OpCopy:
		return execCopy(store, op.Graph, op.To)
	}
	return qerr.NewSchemaInvariantError("unknown update operation")
}

type quadOp func(store *qstore.Store, s, p, o, g quad.Term) error

func assertQuad(store *qstore.Store, s, p, o, g quad.Term) error {
	return store.AssertCurrent(s, p, o, g)
}

func retractQuad(store *qstore.Store, s, p, o, g quad.Term) error {
	return store.RetractCurrent(s, p, o, g)
}

// execData walks a ground quad template (INSERT DATA / DELETE DATA: no
// variables permitted, only GRAPH blocks and triples) and applies op to
// every quad it names.
func execData(store *qstore.Store, slots []lang.Slot, graph quad.Term, op quadOp) error {
	for i := 0; i < len(slots); i++ {
		s := slots[i]
		switch s.Kind {
		case lang.SlotGraphHeader:
			g, err := groundDataTerm(s.GraphTerm)
			if err != nil {
				return err
			}
			// Children sit right after their header in the flattened
			// buffer; recurse into them, then jump past so they are
			// not re-applied against the enclosing graph.
			children := slots[i+1 : i+1+s.ChildCount]
			if err := execData(store, children, g, op); err != nil {
				return err
			}
			i += s.ChildCount
		case lang.SlotTriple:
			subj, err := groundDataTerm(s.Subject)
			if err != nil {
				return err
			}
			pred, err := groundDataTerm(s.Predicate)
			if err != nil {
				return err
			}
			obj, err := groundDataTerm(s.Object)
			if err != nil {
				return err
			}
			if err := op(store, subj, pred, obj, graph); err != nil {
				return err
			}
		}
	}
	return nil
}

// groundDataTerm resolves a TermRef that must already be ground (no
// variables permitted in INSERT DATA / DELETE DATA's QuadData grammar).
func groundDataTerm(ref lang.TermRef) (quad.Term, error) {
	switch ref.Kind {
	case lang.RefIRI:
		return quad.IRI(ref.IRI), nil
	case lang.RefBlank:
		return quad.Blank(ref.Blank), nil
	case lang.RefLiteral:
		return quad.Term{Kind: quad.KindLiteral, Value: ref.Lit, Lang: ref.LitLang, Datatype: ref.LitDType}, nil
	}
	return quad.Term{}, qerr.NewSchemaInvariantError("variables are not permitted in INSERT DATA / DELETE DATA")
}

// execModify runs DELETE { ... } INSERT { ... } WHERE { ... }: for every
// solution of the WHERE pattern, the DELETE template is instantiated and
// retracted, then the INSERT template is instantiated and asserted. Each
// solution row mints its own fresh blank nodes, matching CONSTRUCT
// template semantics (pkg/sparql/engine's instantiateConstruct).
func execModify(store *qstore.Store, op lang.UpdateOp) error {
	table, err := engine.EvalWherePattern(store, op.Where, op.WhereRoot)
	if err != nil {
		return err
	}
	dict := store.Dict()
	for rowIdx, row := range table.Rows {
		blanks := map[string]quad.Term{}
		if len(op.DeleteTmpl) > 0 {
			if err := instantiateTemplate(dict, table, row, blanks, rowIdx,
				op.DeleteTmpl[:op.DeleteTmplRoot], quad.DefaultGraphTerm,
				func(s, p, o, g quad.Term) error { return store.RetractCurrent(s, p, o, g) }); err != nil {
				return err
			}
		}
		if len(op.InsertTmpl) > 0 {
			if err := instantiateTemplate(dict, table, row, blanks, rowIdx,
				op.InsertTmpl[:op.InsertTmplRoot], quad.DefaultGraphTerm,
				func(s, p, o, g quad.Term) error { return store.AssertCurrent(s, p, o, g) }); err != nil {
				return err
			}
		}
	}
	return nil
}

type templateDict interface {
	Lookup(quad.AtomID) (quad.Term, bool)
}

// templateApply applies one grounded (subject, predicate, object, graph)
// instantiated from a DELETE/INSERT template; the target store is already
// bound in the closure the caller passes to instantiateTemplate.
type templateApply func(s, p, o, g quad.Term) error

// instantiateTemplate grounds a DELETE/INSERT template against one WHERE
// solution row, skipping any triple that references an unbound variable
// (per SPARQL 1.1 Update: a template triple with an unbound variable is
// simply not produced for that solution).
func instantiateTemplate(dict templateDict, table *quad.BindingTable, row quad.Row, blanks map[string]quad.Term, rowIdx int, slots []lang.Slot, graph quad.Term, apply templateApply) error {
	for i := 0; i < len(slots); i++ {
		s := slots[i]
		switch s.Kind {
		case lang.SlotGraphHeader:
			g, ok := groundTemplateTerm(dict, table, row, blanks, rowIdx, s.GraphTerm)
			children := slots[i+1 : i+1+s.ChildCount]
			i += s.ChildCount
			if !ok {
				continue
			}
			if err := instantiateTemplate(dict, table, row, blanks, rowIdx, children, g, apply); err != nil {
				return err
			}
		case lang.SlotTriple:
			subj, ok1 := groundTemplateTerm(dict, table, row, blanks, rowIdx, s.Subject)
			pred, ok2 := groundTemplateTerm(dict, table, row, blanks, rowIdx, s.Predicate)
			obj, ok3 := groundTemplateTerm(dict, table, row, blanks, rowIdx, s.Object)
			if !ok1 || !ok2 || !ok3 {
				continue
			}
			if err := apply(subj, pred, obj, graph); err != nil {
				return err
			}
		}
	}
	return nil
}

func groundTemplateTerm(dict templateDict, table *quad.BindingTable, row quad.Row, blanks map[string]quad.Term, rowIdx int, ref lang.TermRef) (quad.Term, bool) {
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
		return dict.Lookup(cell.Atom)
	case lang.RefIRI:
		return quad.IRI(ref.IRI), true
	case lang.RefBlank:
		t, ok := blanks[ref.Blank]
		if !ok {
			t = quad.Blank(fmt.Sprintf("%s_u%d", ref.Blank, rowIdx))
			blanks[ref.Blank] = t
		}
		return t, true
	case lang.RefLiteral:
		return quad.Term{Kind: quad.KindLiteral, Value: ref.Lit, Lang: ref.LitLang, Datatype: ref.LitDType}, true
	}
	return quad.Term{}, false
}

// execClearOrDrop implements CLEAR and DROP identically: both bulk-retract
// every currently valid quad matching the graph reference. The store has
// no separate notion of graph existence beyond "has at least one quad", so
// DROP's additional "remove the graph itself" has no further effect here.
// Clearing an empty or absent graph is a no-op, not an error; with SILENT,
// any error the clear returns is discarded.
func execClearOrDrop(store *qstore.Store, ref lang.GraphRef, silent bool) error {
	err := clearByRef(store, ref)
	if err != nil && silent {
		return nil
	}
	return err
}

func clearByRef(store *qstore.Store, ref lang.GraphRef) error {
	switch ref.Kind {
	case lang.GraphDefault:
		return clearGraph(store, quad.DefaultGraphTerm)
	case lang.GraphIRI:
		return clearGraph(store, quad.IRI(ref.IRI))
	case lang.GraphNamed:
		graphs, err := store.NamedGraphs()
		if err != nil {
			return err
		}
		for _, g := range graphs {
			if err := clearGraph(store, g); err != nil {
				return err
			}
		}
		return nil
	case lang.GraphAll:
		if err := clearGraph(store, quad.DefaultGraphTerm); err != nil {
			return err
		}
		graphs, err := store.NamedGraphs()
		if err != nil {
			return err
		}
		for _, g := range graphs {
			if err := clearGraph(store, g); err != nil {
				return err
			}
		}
		return nil
	}
	return qerr.NewSchemaInvariantError("unrecognized graph reference")
}

// clearGraph retracts every currently valid quad in graph. Matches are
// collected before retracting any of them since retraction mutates the
// very index the matching cursor is reading.
func clearGraph(store *qstore.Store, graph quad.Term) error {
	g := graph
	cur := store.Query(nil, nil, nil, &g)
	var quads []quad.Quad
	for {
		q, ok, err := cur.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		quads = append(quads, q)
	}
	for _, q := range quads {
		if err := store.RetractCurrent(q.Subject, q.Predicate, q.Object, q.Graph); err != nil {
			return err
		}
	}
	return nil
}

func graphOrDefaultTerm(ref lang.GraphRef) quad.Term {
	if ref.Kind == lang.GraphIRI {
		return quad.IRI(ref.IRI)
	}
	return quad.DefaultGraphTerm
}

// execAdd copies every quad from the source graph into the destination
// graph, leaving the source untouched. A no-op when source and
// destination name the same graph, per SPARQL 1.1 Update semantics.
func execAdd(store *qstore.Store, from, to lang.GraphRef) error {
	src, dst := graphOrDefaultTerm(from), graphOrDefaultTerm(to)
	if src == dst {
		return nil
	}
	return copyGraph(store, src, dst)
}

// execCopy clears the destination graph, then copies the source graph
// into it: the destination ends up an exact copy of the source.
func execCopy(store *qstore.Store, from, to lang.GraphRef) error {
	src, dst := graphOrDefaultTerm(from), graphOrDefaultTerm(to)
	if src == dst {
		return nil
	}
	if err := clearGraph(store, dst); err != nil {
		return err
	}
	return copyGraph(store, src, dst)
}

// execMove is execCopy followed by clearing the source graph.
func execMove(store *qstore.Store, from, to lang.GraphRef) error {
	src, dst := graphOrDefaultTerm(from), graphOrDefaultTerm(to)
	if src == dst {
		return nil
	}
	if err := clearGraph(store, dst); err != nil {
		return err
	}
	if err := copyGraph(store, src, dst); err != nil {
		return err
	}
	return clearGraph(store, src)
}

func copyGraph(store *qstore.Store, src, dst quad.Term) error {
	s := src
	cur := store.Query(nil, nil, nil, &s)
	var quads []quad.Quad
	for {
		q, ok, err := cur.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		quads = append(quads, q)
	}
	for _, q := range quads {
		if err := store.AssertCurrent(q.Subject, q.Predicate, q.Object, dst); err != nil {
			return err
		}
	}
	return nil
}
