package engine

import (
	"context"

	"github.com/quaddb/quaddb/pkg/dict"
	"github.com/quaddb/quaddb/pkg/qerr"
	"github.com/quaddb/quaddb/pkg/qstore"
	"github.com/quaddb/quaddb/pkg/quad"
	"github.com/quaddb/quaddb/pkg/sparql/lang"
)

// graphScope restricts which graph(s) a triple pattern inside the current
// nesting level may match: the default graph (optionally merged across
// FROM clauses), a single fixed named graph, or all named graphs with the
// graph bound to a variable.
type graphScope struct {
	mode    int // 0 default, 1 fixed, 2 var
	atom    quad.AtomID
	varName string
}

const (
	scopeDefault = iota
	scopeFixed
	scopeVar
)

// executor holds the state shared across one query's pattern evaluation:
// the store being queried, the parsed query (for expression spans and
// dataset clauses), the temporal predicate in effect, and an expression
// AST cache so FILTER/BIND spans aren't re-parsed per row.
type executor struct {
	store      *qstore.Store
	dict       dictionary
	q          *lang.Query
	scope      graphScope
	exprCache  map[[2]int]*lang.Expr
	namedGraph map[quad.AtomID]bool // set iff FROM NAMED was given, restricting GRAPH ?g enumeration
	ctx        context.Context
}

// checkCanceled is called between rows in the executor's tight loops (per
// spec.md §5: "Executors check between rows in tight loops"), turning a
// canceled context into qerr.ErrCanceled rather than letting the loop run
// to completion.
func (ex *executor) checkCanceled() error {
	if ex.ctx == nil {
		return nil
	}
	select {
	case <-ex.ctx.Done():
		return qerr.ErrCanceled
	default:
		return nil
	}
}

func newExecutor(store *qstore.Store, q *lang.Query) *executor {
	return newExecutorContext(context.Background(), store, q)
}

func newExecutorContext(ctx context.Context, store *qstore.Store, q *lang.Query) *executor {
	ex := &executor{store: store, dict: store.Dict(), q: q, exprCache: map[[2]int]*lang.Expr{}, ctx: ctx}
	if len(q.FromNamed) > 0 {
		ex.namedGraph = map[quad.AtomID]bool{}
		for _, iri := range q.FromNamed {
			ex.namedGraph[ex.dict.Intern(quad.IRI(iri))] = true
		}
	}
	return ex
}

func (ex *executor) parseExpr(start, length int) (*lang.Expr, error) {
	key := [2]int{start, length}
	if e, ok := ex.exprCache[key]; ok {
		return e, nil
	}
	e, err := lang.ParseExpr(ex.q.ExprText(start, length))
	if err != nil {
		return nil, err
	}
	ex.exprCache[key] = e
	return e, nil
}

func (ex *executor) queryCursor(p quad.Pattern) *qstore.QuadCursor {
	t := ex.q.Temporal
	switch {
	case t.Present && t.Between:
		t1, t2 := ex.temporalBound(t.T1Start, t.T1Len), ex.temporalBound(t.T2Start, t.T2Len)
		return ex.store.QueryPatternBetween(p, t1, t2)
	case t.Present:
		at := ex.temporalBound(t.T1Start, t.T1Len)
		return ex.store.QueryPatternAsOf(p, at)
	default:
		return ex.store.QueryPattern(p)
	}
}

// temporalBound evaluates an AS OF/BETWEEN instant expression against the
// identity (no-variable) context, since temporal clause operands are
// constants, never solution-dependent.
func (ex *executor) temporalBound(start, length int) int64 {
	e, err := ex.parseExpr(start, length)
	if err != nil {
		return 0
	}
	c := &evalCtx{dict: ex.dict, vars: quad.IdentityTable(), row: quad.Row{}}
	v, err := c.eval(e)
	if err != nil || !v.IsNum {
		return 0
	}
	return int64(v.Num)
}

func (ex *executor) intern(t quad.Term) quad.AtomID {
	return ex.dict.Intern(t)
}

func literalFromRef(ref lang.TermRef) quad.Term {
	return quad.Term{Kind: quad.KindLiteral, Value: ref.Lit, Lang: ref.LitLang, Datatype: ref.LitDType}
}

func (ex *executor) atomForRef(in *quad.BindingTable, row quad.Row, ref lang.TermRef) quad.AtomID {
	switch ref.Kind {
	case lang.RefVar:
		idx := in.VarIndex(ref.Var)
		if idx < 0 {
			return quad.Unbound
		}
		cell := row.Get(idx)
		if cell.Tag != quad.TagAtom {
			return quad.Unbound
		}
		return cell.Atom
	case lang.RefIRI:
		return ex.intern(quad.IRI(ref.IRI))
	case lang.RefBlank:
		return ex.intern(quad.Blank(ref.Blank))
	case lang.RefLiteral:
		return ex.intern(literalFromRef(ref))
	}
	return quad.Unbound
}

// evalPatterns evaluates a contiguous run of sibling slots starting from
// the identity solution — the entry point for a WHERE clause or any
// nested GRAPH/OPTIONAL/UNION/EXISTS/MINUS body.
func (ex *executor) evalPatterns(slots []lang.Slot) (*quad.BindingTable, error) {
	return ex.evalPatternsFrom(quad.IdentityTable(), slots)
}

func (ex *executor) evalPatternsFrom(seed *quad.BindingTable, slots []lang.Slot) (*quad.BindingTable, error) {
	table := seed
	for i := 0; i < len(slots); i++ {
		s := slots[i]
		// A header's children sit contiguously right after it in the
		// flattened buffer, so they start at i+1 within any subslice
		// handed down; after dispatching on the header the loop jumps
		// past them (i += s.ChildCount below) so they are never
		// re-evaluated as siblings.
		children := slots[i+1 : i+1+s.ChildCount]
		var err error
		switch s.Kind {
		case lang.SlotTriple:
			table, err = ex.joinTriple(table, s)
		case lang.SlotGraphHeader:
			var sub *quad.BindingTable
			sub, err = ex.evalGraphHeader(s.GraphTerm, children)
			if err == nil {
				table = joinNatural(table, sub)
			}
		case lang.SlotOptionalHeader:
			var sub *quad.BindingTable
			sub, err = ex.evalPatterns(children)
			if err == nil {
				table = leftOuterJoin(table, sub)
			}
		case lang.SlotUnionHeader:
			split := s.UnionSplit - s.ChildStart
			left := children[:split]
			right := children[split:]
			var lt, rt *quad.BindingTable
			lt, err = ex.evalPatterns(left)
			if err == nil {
				rt, err = ex.evalPatterns(right)
			}
			if err == nil {
				table = joinNatural(table, unionTables(lt, rt))
			}
		case lang.SlotMinusHeader:
			var sub *quad.BindingTable
			sub, err = ex.evalPatterns(children)
			if err == nil {
				table = minusJoin(table, sub)
			}
		case lang.SlotExistsHeader, lang.SlotNotExistsHeader:
			table, err = ex.applyExists(table, children, s.Kind == lang.SlotNotExistsHeader)
		case lang.SlotFilter:
			table, err = ex.applyFilter(table, s)
		case lang.SlotBind:
			table, err = ex.applyBind(table, s)
		case lang.SlotValuesHeader:
			var sub *quad.BindingTable
			sub, err = ex.buildValuesTable(s, children)
			if err == nil {
				table = joinNatural(table, sub)
			}
		}
		if err != nil {
			return nil, err
		}
		i += s.ChildCount
	}
	return table, nil
}

func (ex *executor) evalGraphHeader(g lang.TermRef, children []lang.Slot) (*quad.BindingTable, error) {
	saved := ex.scope
	defer func() { ex.scope = saved }()
	switch g.Kind {
	case lang.RefIRI:
		ex.scope = graphScope{mode: scopeFixed, atom: ex.intern(quad.IRI(g.IRI))}
	case lang.RefVar:
		ex.scope = graphScope{mode: scopeVar, varName: g.Var}
	default:
		return nil, qerr.NewTypeError("GRAPH requires an IRI or variable")
	}
	return ex.evalPatterns(children)
}

// joinTriple performs one index-nested-loop join step: for every row of
// in, the triple's bound positions are substituted into a quad.Pattern,
// the matching quads are scanned, and each is unified with the row,
// extending it with any newly bound variables.
func (ex *executor) joinTriple(in *quad.BindingTable, s lang.Slot) (*quad.BindingTable, error) {
	out := &quad.BindingTable{Vars: append([]string{}, in.Vars...)}
	registerVar := func(ref lang.TermRef) {
		if ref.Kind == lang.RefVar {
			ensureVar(out, ref.Var)
		}
	}
	registerVar(s.Subject)
	registerVar(s.Predicate)
	registerVar(s.Object)
	if ex.scope.mode == scopeVar {
		ensureVar(out, ex.scope.varName)
	}

	for _, row := range in.Rows {
		if err := ex.checkCanceled(); err != nil {
			return nil, err
		}
		graphPatterns := ex.graphPatternsFor(in, row)
		for _, gp := range graphPatterns {
			p := quad.Pattern{
				Subject:    ex.atomForRef(in, row, s.Subject),
				Predicate:  ex.atomForRef(in, row, s.Predicate),
				Object:     ex.atomForRef(in, row, s.Object),
				Graph:      gp.atom,
				GraphBound: gp.bound,
			}
			cur := ex.queryCursor(p)
			for {
				q, ok, err := cur.Next()
				if err != nil {
					return nil, err
				}
				if !ok {
					break
				}
				newRow, ok := ex.unifyTriple(out, row, s, q)
				if ok {
					out.Rows = append(out.Rows, newRow)
				}
			}
		}
	}
	return out, nil
}

type graphPatternSpec struct {
	atom  quad.AtomID
	bound bool
}

// graphPatternsFor returns the set of graph restrictions to scan for the
// current triple pattern: one per FROM default-graph clause merged into
// the default graph, the single fixed graph inside GRAPH <iri>, or "any
// graph" (filtered to named graphs during unification) for GRAPH ?g.
func (ex *executor) graphPatternsFor(in *quad.BindingTable, row quad.Row) []graphPatternSpec {
	switch ex.scope.mode {
	case scopeFixed:
		return []graphPatternSpec{{atom: ex.scope.atom, bound: true}}
	case scopeVar:
		if idx := in.VarIndex(ex.scope.varName); idx >= 0 {
			if c := row.Get(idx); c.Tag == quad.TagAtom {
				return []graphPatternSpec{{atom: c.Atom, bound: true}}
			}
		}
		return []graphPatternSpec{{bound: false}}
	default:
		if len(ex.q.FromDefault) == 0 {
			return []graphPatternSpec{{atom: dict.ReservedDefaultGraph, bound: true}}
		}
		specs := make([]graphPatternSpec, len(ex.q.FromDefault))
		for i, iri := range ex.q.FromDefault {
			specs[i] = graphPatternSpec{atom: ex.intern(quad.IRI(iri)), bound: true}
		}
		return specs
	}
}

// unifyTriple checks a matched quad against the triple pattern's term
// refs, enforcing that any variable repeated within the pattern (or
// already bound by an earlier pattern) takes a single consistent value,
// and returns the row extended with newly bound variables.
func (ex *executor) unifyTriple(out *quad.BindingTable, row quad.Row, s lang.Slot, q quad.Quad) (quad.Row, bool) {
	newRow := widen(row, len(out.Vars))
	if ex.scope.mode == scopeVar {
		if q.Graph.Kind == quad.KindDefaultGraph {
			return nil, false
		}
		gAtom := ex.intern(q.Graph)
		if ex.namedGraph != nil && !ex.namedGraph[gAtom] {
			return nil, false
		}
		if !unifyCell(out, newRow, ex.scope.varName, gAtom) {
			return nil, false
		}
	}
	if !unifyPos(out, newRow, s.Subject, ex.intern(q.Subject)) {
		return nil, false
	}
	if !unifyPos(out, newRow, s.Predicate, ex.intern(q.Predicate)) {
		return nil, false
	}
	if !unifyPos(out, newRow, s.Object, ex.intern(q.Object)) {
		return nil, false
	}
	return newRow, true
}

func unifyPos(out *quad.BindingTable, row quad.Row, ref lang.TermRef, atom quad.AtomID) bool {
	if ref.Kind != lang.RefVar {
		return true
	}
	return unifyCell(out, row, ref.Var, atom)
}

func unifyCell(out *quad.BindingTable, row quad.Row, varName string, atom quad.AtomID) bool {
	idx := out.VarIndex(varName)
	if idx < 0 {
		return true
	}
	cell := row.Get(idx)
	if cell.Tag == quad.TagAtom {
		return cell.Atom == atom
	}
	row[idx] = quad.BoundCell(atom)
	return true
}

func (ex *executor) buildValuesTable(header lang.Slot, entries []lang.Slot) (*quad.BindingTable, error) {
	out := &quad.BindingTable{Vars: append([]string{}, header.ValuesVars...)}
	for _, entry := range entries {
		if entry.Kind != lang.SlotValuesEntry {
			continue
		}
		row := make(quad.Row, len(header.ValuesVars))
		for i, v := range entry.ValuesRow {
			if v.Kind == lang.RefUndef {
				continue
			}
			row[i] = quad.BoundCell(ex.atomForRef(nil, nil, v))
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

func (ex *executor) applyFilter(table *quad.BindingTable, s lang.Slot) (*quad.BindingTable, error) {
	e, err := ex.parseExpr(s.ExprStart, s.ExprLen)
	if err != nil {
		return nil, err
	}
	out := &quad.BindingTable{Vars: table.Vars}
	for _, row := range table.Rows {
		if err := ex.checkCanceled(); err != nil {
			return nil, err
		}
		c := &evalCtx{dict: ex.dict, vars: table, row: row}
		v, err := c.eval(e)
		if err != nil {
			continue
		}
		keep, err := effectiveBooleanValue(v)
		if err != nil || !keep {
			continue
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

func (ex *executor) applyBind(table *quad.BindingTable, s lang.Slot) (*quad.BindingTable, error) {
	e, err := ex.parseExpr(s.ExprStart, s.ExprLen)
	if err != nil {
		return nil, err
	}
	idx := ensureVar(table, s.BindVar)
	out := &quad.BindingTable{Vars: table.Vars}
	for _, row := range table.Rows {
		row = widen(row, len(table.Vars))
		if row.Get(idx).Tag == quad.TagAtom {
			continue // binding an already-bound variable fails the row
		}
		c := &evalCtx{dict: ex.dict, vars: table, row: row}
		v, err := c.eval(e)
		if err == nil {
			// An evaluation error leaves the variable unbound but keeps
			// the row, per SPARQL's error-as-unbound BIND semantics.
			row[idx] = quad.BoundCell(ex.intern(v.Term))
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

// applyExists evaluates children within the scope of each outer row (its
// current bindings act as implicit VALUES constraints on the sub-pattern)
// and keeps or drops the row depending on whether any solution resulted.
func (ex *executor) applyExists(table *quad.BindingTable, children []lang.Slot, negate bool) (*quad.BindingTable, error) {
	out := &quad.BindingTable{Vars: table.Vars}
	for _, row := range table.Rows {
		seed := &quad.BindingTable{Vars: table.Vars, Rows: []quad.Row{row}}
		sub, err := ex.evalPatternsFrom(seed, children)
		if err != nil {
			return nil, err
		}
		exists := !sub.Empty()
		if exists != negate {
			out.Rows = append(out.Rows, row)
		}
	}
	return out, nil
}
