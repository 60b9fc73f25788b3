package quad

// BindingTag identifies the shape of a single cell in a binding row: either
// unbound (the variable exists in the row's schema but has no value on this
// solution) or bound to an interned atom.
type BindingTag uint8

const (
	// TagUnbound marks a cell with no value. OPTIONAL and MINUS produce
	// rows with unbound cells rather than omitting the column.
	TagUnbound BindingTag = iota
	// TagAtom marks a cell bound to an AtomID resolvable via the
	// dictionary.
	TagAtom
)

// Cell is one column's value in a binding row: a tag plus, when bound, the
// atom. Cells are fixed-size so a row is a flat slice, not a map — the
// planner indexes into rows by the variable's position in the row's Vars
// schema rather than by name at execution time.
type Cell struct {
	Tag  BindingTag
	Atom AtomID
}

// UnboundCell is the zero-value cell, included for readability at
// call sites that build rows by hand (tests, CONSTRUCT template
// instantiation).
var UnboundCell = Cell{Tag: TagUnbound}

// BoundCell constructs a bound cell.
func BoundCell(a AtomID) Cell { return Cell{Tag: TagAtom, Atom: a} }

// Row is one solution: a flat slice of cells positionally aligned with the
// owning BindingTable's Vars.
type Row []Cell

// Get returns the cell at the variable's position, or the zero Cell
// (unbound) if pos is out of range.
func (r Row) Get(pos int) Cell {
	if pos < 0 || pos >= len(r) {
		return UnboundCell
	}
	return r[pos]
}

// Clone returns a copy of the row, safe to mutate independently of the
// original (needed when a join probes the same outer row against multiple
// inner matches).
func (r Row) Clone() Row {
	c := make(Row, len(r))
	copy(c, r)
	return c
}

// BindingTable is the result of evaluating a graph pattern: the ordered
// list of in-scope variable names and the rows solving the pattern. SELECT
// projects a subset of Vars; ASK only checks len(Rows) > 0; CONSTRUCT and
// DESCRIBE consume rows to instantiate templates.
type BindingTable struct {
	Vars []string
	Rows []Row
}

// VarIndex returns the position of name in Vars, or -1 if name is not a
// column of this table.
func (bt *BindingTable) VarIndex(name string) int {
	for i, v := range bt.Vars {
		if v == name {
			return i
		}
	}
	return -1
}

// Empty reports whether the table has no solutions. A BindingTable with
// zero Vars and exactly one empty Row is the identity solution (used as
// the starting point of a join chain and as ASK's "true, no bindings"
// result); that is distinct from Empty, which requires zero Rows.
func (bt *BindingTable) Empty() bool {
	return len(bt.Rows) == 0
}

// IdentityTable returns the single-row, zero-column table representing
// "matched, no bindings yet" — the left-hand operand of the first join in
// a basic graph pattern.
func IdentityTable() *BindingTable {
	return &BindingTable{Vars: nil, Rows: []Row{{}}}
}
