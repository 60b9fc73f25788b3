package engine

import "github.com/quaddb/quaddb/pkg/quad"

// ensureVar returns name's column index in bt, adding a new column (and
// extending every existing row with an unbound cell) if it isn't already
// present.
func ensureVar(bt *quad.BindingTable, name string) int {
	if idx := bt.VarIndex(name); idx >= 0 {
		return idx
	}
	bt.Vars = append(bt.Vars, name)
	for i := range bt.Rows {
		bt.Rows[i] = append(bt.Rows[i], quad.UnboundCell)
	}
	return len(bt.Vars) - 1
}

// widen returns a copy of row reshaped to width cols, preserving existing
// values at their original positions.
func widen(row quad.Row, width int) quad.Row {
	out := make(quad.Row, width)
	copy(out, row)
	return out
}

// sharedVars returns the variable names present in both tables.
func sharedVars(a, b *quad.BindingTable) []string {
	bSet := make(map[string]bool, len(b.Vars))
	for _, v := range b.Vars {
		bSet[v] = true
	}
	var shared []string
	for _, v := range a.Vars {
		if bSet[v] {
			shared = append(shared, v)
		}
	}
	return shared
}

// compatible reports whether aRow and bRow agree on every variable they
// both bind (SPARQL's mapping-compatibility test); unbound on either side
// is never a conflict.
func compatible(a *quad.BindingTable, aRow quad.Row, b *quad.BindingTable, bRow quad.Row, shared []string) bool {
	for _, v := range shared {
		ac := aRow.Get(a.VarIndex(v))
		bc := bRow.Get(b.VarIndex(v))
		if ac.Tag == quad.TagAtom && bc.Tag == quad.TagAtom && ac.Atom != bc.Atom {
			return false
		}
	}
	return true
}

// hasSharedBinding reports whether aRow and bRow both actually bind (not
// merely share a column for) at least one variable in shared — the extra
// condition MINUS applies on top of compatibility.
func hasSharedBinding(a *quad.BindingTable, aRow quad.Row, b *quad.BindingTable, bRow quad.Row, shared []string) bool {
	for _, v := range shared {
		ac := aRow.Get(a.VarIndex(v))
		bc := bRow.Get(b.VarIndex(v))
		if ac.Tag == quad.TagAtom && bc.Tag == quad.TagAtom {
			return true
		}
	}
	return false
}

// mergeVars returns a's variables followed by b's variables not already in a.
func mergeVars(a, b []string) []string {
	seen := make(map[string]bool, len(a))
	out := append([]string{}, a...)
	for _, v := range a {
		seen[v] = true
	}
	for _, v := range b {
		if !seen[v] {
			out = append(out, v)
			seen[v] = true
		}
	}
	return out
}

func mergeRow(outVars []string, a *quad.BindingTable, aRow quad.Row, b *quad.BindingTable, bRow quad.Row) quad.Row {
	out := make(quad.Row, len(outVars))
	for i, v := range outVars {
		if ai := a.VarIndex(v); ai >= 0 {
			if c := aRow.Get(ai); c.Tag == quad.TagAtom {
				out[i] = c
				continue
			}
		}
		if bi := b.VarIndex(v); bi >= 0 {
			out[i] = bRow.Get(bi)
		}
	}
	return out
}

// joinNatural implements SPARQL Join: every compatible pair of rows from a
// and b, merged into the union of their variables.
func joinNatural(a, b *quad.BindingTable) *quad.BindingTable {
	if len(a.Vars) == 0 && len(a.Rows) == 1 && len(a.Rows[0]) == 0 {
		return b
	}
	shared := sharedVars(a, b)
	outVars := mergeVars(a.Vars, b.Vars)
	out := &quad.BindingTable{Vars: outVars}
	for _, ar := range a.Rows {
		for _, br := range b.Rows {
			if !compatible(a, ar, b, br, shared) {
				continue
			}
			out.Rows = append(out.Rows, mergeRow(outVars, a, ar, b, br))
		}
	}
	return out
}

// leftOuterJoin implements SPARQL LeftJoin (OPTIONAL): every a-row keeps
// its compatible matches from b, or, if none exist, survives unmatched
// with b's variables left unbound.
func leftOuterJoin(a, b *quad.BindingTable) *quad.BindingTable {
	shared := sharedVars(a, b)
	outVars := mergeVars(a.Vars, b.Vars)
	out := &quad.BindingTable{Vars: outVars}
	for _, ar := range a.Rows {
		matched := false
		for _, br := range b.Rows {
			if !compatible(a, ar, b, br, shared) {
				continue
			}
			matched = true
			out.Rows = append(out.Rows, mergeRow(outVars, a, ar, b, br))
		}
		if !matched {
			out.Rows = append(out.Rows, widen(ar, len(outVars)))
		}
	}
	return out
}

// minusJoin implements SPARQL Minus: a-rows are dropped when a b-row is
// compatible with them AND shares at least one actually-bound variable.
func minusJoin(a, b *quad.BindingTable) *quad.BindingTable {
	shared := sharedVars(a, b)
	out := &quad.BindingTable{Vars: a.Vars}
	for _, ar := range a.Rows {
		excluded := false
		if len(shared) > 0 {
			for _, br := range b.Rows {
				if compatible(a, ar, b, br, shared) && hasSharedBinding(a, ar, b, br, shared) {
					excluded = true
					break
				}
			}
		}
		if !excluded {
			out.Rows = append(out.Rows, ar)
		}
	}
	return out
}

// unionTables implements SPARQL Union: the concatenation of a's and b's
// rows, reshaped to their combined variable set (no compatibility check —
// UNION never joins, it just stacks solutions).
func unionTables(a, b *quad.BindingTable) *quad.BindingTable {
	outVars := mergeVars(a.Vars, b.Vars)
	out := &quad.BindingTable{Vars: outVars}
	for _, ar := range a.Rows {
		out.Rows = append(out.Rows, mergeRow(outVars, a, ar, &quad.BindingTable{}, nil))
	}
	for _, br := range b.Rows {
		out.Rows = append(out.Rows, mergeRow(outVars, &quad.BindingTable{}, nil, b, br))
	}
	return out
}
