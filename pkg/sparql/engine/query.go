package engine

import (
	"context"
	"sort"

	"github.com/quaddb/quaddb/pkg/qmetrics"
	"github.com/quaddb/quaddb/pkg/qstore"
	"github.com/quaddb/quaddb/pkg/quad"
	"github.com/quaddb/quaddb/pkg/sparql/lang"
)

func kindLabel(k lang.QueryKind) string {
	switch k {
	case lang.KindSelect:
		return "select"
	case lang.KindConstruct:
		return "construct"
	case lang.KindAsk:
		return "ask"
	case lang.KindDescribe:
		return "describe"
	default:
		return "unknown"
	}
}

// Execute parses and runs a single SPARQL query against store, returning a
// shaped Result. Read access to the store is held for the duration of
// execution via the store's own read lock, matching the rest of the
// engine's single-writer/many-readers discipline.
func Execute(store *qstore.Store, src string) (*Result, error) {
	return ExecuteContext(context.Background(), store, src)
}

// ExecuteContext is Execute with a cancellation token: the executor checks
// ctx between rows in its join/filter loops (spec.md §5) and fails the
// query with qerr.ErrCanceled once ctx is done, releasing the read lock
// through the normal deferred path rather than leaving it held.
func ExecuteContext(ctx context.Context, store *qstore.Store, src string) (*Result, error) {
	q, err := lang.ParseQuery(src)
	if err != nil {
		qmetrics.ParseErrorsTotal.WithLabelValues("sparql").Inc()
		return nil, err
	}

	label := kindLabel(q.Kind)
	timer := qmetrics.NewTimer()
	store.AcquireReadLock()
	defer store.ReleaseReadLock()

	ex := newExecutorContext(ctx, store, q)
	table, err := ex.evalPatterns(q.Patterns[:q.RootCount])
	if err != nil {
		timer.ObserveDurationVec(qmetrics.QueryDuration, label)
		qmetrics.QueriesTotal.WithLabelValues(label, "error").Inc()
		return nil, err
	}

	var res *Result
	switch q.Kind {
	case lang.KindAsk:
		res = &Result{Kind: q.Kind, Boolean: !table.Empty(), Dict: ex.dict}
	case lang.KindSelect:
		res, err = ex.buildSelectResult(table, q)
	case lang.KindConstruct:
		res = &Result{Kind: q.Kind, Quads: ex.instantiateConstruct(table, q.ConstructTemplate), Dict: ex.dict}
	case lang.KindDescribe:
		res, err = ex.buildDescribeResult(table, q)
	}
	if err != nil {
		timer.ObserveDurationVec(qmetrics.QueryDuration, label)
		qmetrics.QueriesTotal.WithLabelValues(label, "error").Inc()
		return nil, err
	}

	timer.ObserveDurationVec(qmetrics.QueryDuration, label)
	qmetrics.QueriesTotal.WithLabelValues(label, "ok").Inc()
	return res, nil
}

func (ex *executor) buildSelectResult(table *quad.BindingTable, q *lang.Query) (*Result, error) {
	var err error
	table, err = ex.applyGroupBy(table, q.Project)
	if err != nil {
		return nil, err
	}
	for _, h := range q.Having {
		table, err = ex.applyFilter(table, lang.Slot{Kind: lang.SlotFilter, ExprStart: h.ExprStart, ExprLen: h.ExprLen})
		if err != nil {
			return nil, err
		}
	}
	table, err = ex.bindProjectExprs(table, q.Project)
	if err != nil {
		return nil, err
	}

	// ORDER BY sees every in-scope variable, not just the projected ones,
	// so it runs on the full table before projecting down to the SELECT
	// list; row order is then preserved through projection.
	if len(q.OrderBy) > 0 {
		if err := ex.orderByTable(table, q.OrderBy); err != nil {
			return nil, err
		}
	}

	vars, rows := ex.project(table, q)
	if q.Distinct || q.Reduced {
		rows = dedupeRows(rows)
	}
	rows = applyLimitOffset(rows, q.Limit, q.Offset)

	return &Result{Kind: q.Kind, Vars: vars, Rows: rows, Dict: ex.dict}, nil
}

// bindProjectExprs evaluates every non-aggregate "(expr AS ?v)" projection
// item as a trailing BIND, so the final projection step can read every
// project item — bare variable, aggregate, or expression — uniformly by
// variable name.
func (ex *executor) bindProjectExprs(table *quad.BindingTable, project []lang.ProjectItem) (*quad.BindingTable, error) {
	for _, item := range project {
		if !item.IsExpr || item.Agg != nil {
			continue
		}
		var err error
		table, err = ex.applyBind(table, lang.Slot{Kind: lang.SlotBind, ExprStart: item.ExprStart, ExprLen: item.ExprLen, BindVar: item.Var})
		if err != nil {
			return nil, err
		}
	}
	return table, nil
}

func (ex *executor) project(table *quad.BindingTable, q *lang.Query) ([]string, []quad.Row) {
	if q.Star {
		return table.Vars, table.Rows
	}
	vars := make([]string, len(q.Project))
	for i, item := range q.Project {
		vars[i] = item.Var
	}
	rows := make([]quad.Row, len(table.Rows))
	for i, row := range table.Rows {
		out := make(quad.Row, len(vars))
		for j, v := range vars {
			if idx := table.VarIndex(v); idx >= 0 {
				out[j] = row.Get(idx)
			}
		}
		rows[i] = out
	}
	return vars, rows
}

func (ex *executor) orderByTable(table *quad.BindingTable, conds []lang.OrderCondition) error {
	exprs := make([]*lang.Expr, len(conds))
	for i, c := range conds {
		e, err := ex.parseExpr(c.ExprStart, c.ExprLen)
		if err != nil {
			return err
		}
		exprs[i] = e
	}
	rows := table.Rows
	sort.SliceStable(rows, func(i, j int) bool {
		for k, e := range exprs {
			c1 := &evalCtx{dict: ex.dict, vars: table, row: rows[i]}
			c2 := &evalCtx{dict: ex.dict, vars: table, row: rows[j]}
			v1, err1 := c1.eval(e)
			v2, err2 := c2.eval(e)
			// An evaluation error (typically an unbound variable) sorts
			// below every bound term.
			if err1 != nil {
				v1 = unboundValue()
			}
			if err2 != nil {
				v2 = unboundValue()
			}
			n := compareForOrder(v1, v2)
			if n == 0 {
				continue
			}
			if conds[k].Desc {
				return n > 0
			}
			return n < 0
		}
		return false
	})
	return nil
}

func dedupeRows(rows []quad.Row) []quad.Row {
	seen := map[string]bool{}
	out := make([]quad.Row, 0, len(rows))
	for _, row := range rows {
		key := rowKey(row)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, row)
	}
	return out
}

func rowKey(row quad.Row) string {
	b := make([]byte, 0, len(row)*9)
	for _, c := range row {
		b = append(b, byte(c.Tag))
		for i := 0; i < 8; i++ {
			b = append(b, byte(c.Atom>>(8*i)))
		}
	}
	return string(b)
}

func applyLimitOffset(rows []quad.Row, limit, offset int64) []quad.Row {
	if offset > 0 {
		if offset >= int64(len(rows)) {
			return nil
		}
		rows = rows[offset:]
	}
	if limit >= 0 && limit < int64(len(rows)) {
		rows = rows[:limit]
	}
	return rows
}

func (ex *executor) buildDescribeResult(table *quad.BindingTable, q *lang.Query) (*Result, error) {
	var subjects []quad.Term
	if q.Star {
		for _, row := range table.Rows {
			for i := range table.Vars {
				if c := row.Get(i); c.Tag == quad.TagAtom {
					if t, ok := ex.dict.Lookup(c.Atom); ok {
						subjects = append(subjects, t)
					}
				}
			}
		}
	}
	for _, ref := range q.DescribeTargets {
		switch ref.Kind {
		case lang.RefIRI:
			subjects = append(subjects, quad.IRI(ref.IRI))
		case lang.RefBlank:
			subjects = append(subjects, quad.Blank(ref.Blank))
		case lang.RefVar:
			idx := table.VarIndex(ref.Var)
			if idx < 0 {
				continue
			}
			for _, row := range table.Rows {
				if c := row.Get(idx); c.Tag == quad.TagAtom {
					if t, ok := ex.dict.Lookup(c.Atom); ok {
						subjects = append(subjects, t)
					}
				}
			}
		}
	}
	return &Result{Kind: q.Kind, Quads: ex.describeQuads(subjects), Dict: ex.dict}, nil
}
