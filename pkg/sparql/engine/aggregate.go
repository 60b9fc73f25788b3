package engine

import (
	"fmt"
	"strings"

	"github.com/quaddb/quaddb/pkg/quad"
	"github.com/quaddb/quaddb/pkg/sparql/lang"
)

// groupExprs resolves the GROUP BY clause's expression spans once.
func (ex *executor) groupExprs() ([]*lang.Expr, error) {
	exprs := make([]*lang.Expr, len(ex.q.GroupBy))
	for i, g := range ex.q.GroupBy {
		e, err := ex.parseExpr(g.ExprStart, g.ExprLen)
		if err != nil {
			return nil, err
		}
		exprs[i] = e
	}
	return exprs, nil
}

func hasAggregateProjection(project []lang.ProjectItem) bool {
	for _, p := range project {
		if p.Agg != nil {
			return true
		}
	}
	return false
}

// groupKey computes a row's grouping key: atom identity for a bare
// variable (exact and cheap), or the evaluated value's lexical form for an
// arbitrary expression.
func (ex *executor) groupKey(table *quad.BindingTable, row quad.Row, exprs []*lang.Expr) string {
	var b strings.Builder
	for _, e := range exprs {
		if e.Kind == lang.ExprVar {
			idx := table.VarIndex(e.Var)
			if idx < 0 {
				b.WriteString("U|")
				continue
			}
			c := row.Get(idx)
			if c.Tag != quad.TagAtom {
				b.WriteString("U|")
				continue
			}
			fmt.Fprintf(&b, "A%d|", c.Atom)
			continue
		}
		c := &evalCtx{dict: ex.dict, vars: table, row: row}
		v, err := c.eval(e)
		if err != nil {
			b.WriteString("E|")
			continue
		}
		fmt.Fprintf(&b, "%s\x00%s\x00%s|", v.Term.Value, v.Term.Lang, v.Term.Datatype)
	}
	return b.String()
}

// applyGroupBy partitions table into groups by the GROUP BY expressions
// (or a single implicit group when the projection contains an aggregate
// but no explicit GROUP BY), computes every aggregate projection item's
// value per group, and returns one representative row per group with the
// aggregate results bound under their "AS" variable.
func (ex *executor) applyGroupBy(table *quad.BindingTable, project []lang.ProjectItem) (*quad.BindingTable, error) {
	exprs, err := ex.groupExprs()
	if err != nil {
		return nil, err
	}
	if len(exprs) == 0 && !hasAggregateProjection(project) {
		return table, nil
	}

	type group struct {
		rep  quad.Row
		rows []quad.Row
	}
	order := []string{}
	groups := map[string]*group{}
	for _, row := range table.Rows {
		key := ex.groupKey(table, row, exprs)
		g, ok := groups[key]
		if !ok {
			g = &group{rep: row}
			groups[key] = g
			order = append(order, key)
		}
		g.rows = append(g.rows, row)
	}
	if len(order) == 0 && len(exprs) == 0 {
		// Aggregating an empty solution set still yields one group (e.g.
		// COUNT(*) over zero matches is 0, not "no rows").
		order = append(order, "")
		groups[""] = &group{rep: make(quad.Row, len(table.Vars))}
	}

	out := &quad.BindingTable{Vars: append([]string{}, table.Vars...)}
	aggVars := make([]int, 0, len(project))
	for _, item := range project {
		if item.Agg != nil {
			aggVars = append(aggVars, ensureVar(out, item.Var))
		}
	}

	for _, key := range order {
		g := groups[key]
		row := widen(g.rep, len(out.Vars))
		vi := 0
		for _, item := range project {
			if item.Agg == nil {
				continue
			}
			idx := aggVars[vi]
			vi++
			val, err := ex.evalAggregate(table, g.rows, item.Agg, item.ExprStart, item.ExprLen)
			if err != nil {
				continue
			}
			row[idx] = quad.BoundCell(ex.intern(val.Term))
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

// aggregateArg recovers the aggregate call's operand expression by
// re-parsing the owning ProjectItem's full span and pulling the first
// argument out of the resulting call node.
func (ex *executor) aggregateArg(exprStart, exprLen int) (*lang.Expr, bool, error) {
	e, err := ex.parseExpr(exprStart, exprLen)
	if err != nil {
		return nil, false, err
	}
	if e.Kind != lang.ExprCall || len(e.Args) == 0 {
		return nil, false, nil
	}
	arg := e.Args[0]
	if arg.Kind == lang.ExprVar && arg.Var == "*" {
		return nil, true, nil
	}
	return arg, false, nil
}

func (ex *executor) evalAggregate(table *quad.BindingTable, rows []quad.Row, agg *lang.Aggregate, exprStart, exprLen int) (Value, error) {
	arg, star, err := ex.aggregateArg(exprStart, exprLen)
	if err != nil {
		return Value{}, err
	}
	if agg.Star || star {
		return numValue(float64(len(rows)), lang.INTEGER), nil
	}

	var vals []Value
	seen := map[string]bool{}
	for _, row := range rows {
		c := &evalCtx{dict: ex.dict, vars: table, row: row}
		v, err := c.eval(arg)
		if err != nil {
			continue
		}
		if agg.Distinct {
			key := v.Term.Value + "\x00" + v.Term.Datatype
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		vals = append(vals, v)
	}

	switch agg.Func {
	case lang.COUNT:
		return numValue(float64(len(vals)), lang.INTEGER), nil
	case lang.SUM:
		var sum float64
		kind := lang.INTEGER
		for _, v := range vals {
			if v.IsNum {
				sum += v.Num
				kind = widestNumKind(kind, v.NumKind)
			}
		}
		return numValue(sum, kind), nil
	case lang.AVG:
		if len(vals) == 0 {
			return numValue(0, lang.DECIMAL), nil
		}
		var sum float64
		for _, v := range vals {
			if v.IsNum {
				sum += v.Num
			}
		}
		return numValue(sum/float64(len(vals)), lang.DECIMAL), nil
	case lang.MIN:
		return extremum(vals, -1), nil
	case lang.MAX:
		return extremum(vals, 1), nil
	case lang.SAMPLE:
		if len(vals) == 0 {
			return Value{}, nil
		}
		return vals[0], nil
	case lang.GROUP_CONCAT:
		sep := agg.Separator
		if sep == "" {
			sep = " "
		}
		parts := make([]string, len(vals))
		for i, v := range vals {
			parts[i] = v.Term.Value
		}
		return stringValue(strings.Join(parts, sep)), nil
	}
	return numValue(0, lang.INTEGER), nil
}

func extremum(vals []Value, want int) Value {
	if len(vals) == 0 {
		return Value{}
	}
	best := vals[0]
	for _, v := range vals[1:] {
		if n := compareForOrder(v, best); n == want {
			best = v
		}
	}
	return best
}
