package lang

// SlotKind tags the variant a Slot holds — the discriminator byte-0 of
// the "parsed query buffer", modeled here as an ordinary Go enum
// over a typed slice rather than a reinterpreted byte layout.
type SlotKind uint8

const (
	SlotTriple SlotKind = iota
	SlotFilter
	SlotBind
	SlotGraphHeader
	SlotOptionalHeader
	SlotUnionHeader
	SlotExistsHeader
	SlotNotExistsHeader
	SlotMinusTriple
	SlotMinusHeader
	SlotValuesHeader
	SlotValuesEntry
)

func (k SlotKind) String() string {
	switch k {
	case SlotTriple:
		return "Triple"
	case SlotFilter:
		return "Filter"
	case SlotBind:
		return "Bind"
	case SlotGraphHeader:
		return "GraphHeader"
	case SlotOptionalHeader:
		return "OptionalHeader"
	case SlotUnionHeader:
		return "UnionHeader"
	case SlotExistsHeader:
		return "ExistsHeader"
	case SlotNotExistsHeader:
		return "NotExistsHeader"
	case SlotMinusTriple:
		return "MinusTriple"
	case SlotMinusHeader:
		return "MinusHeader"
	case SlotValuesHeader:
		return "ValuesHeader"
	case SlotValuesEntry:
		return "ValuesEntry"
	default:
		return "Unknown"
	}
}

// TermRefKind tags what a TermRef points at.
type TermRefKind uint8

const (
	RefVar TermRefKind = iota
	RefIRI
	RefBlank
	RefLiteral
	RefUndef // VALUES UNDEF entry
)

// TermRef is a position in a triple pattern or a VALUES row: either a
// variable name, or a term given directly in the query text. Literal/IRI
// text is resolved (prefix expansion, escape decoding) at parse time and
// stored as the final canonical string, matching the "(kind-tag,
// start, length) reference back into the original query source" for the
// var case while giving literal/IRI terms their already-resolved value
// (cheaper than re-resolving a prefix on every row during execution).
type TermRef struct {
	Kind     TermRefKind
	Var      string
	IRI      string
	Blank    string
	Lit      string
	LitLang  string
	LitDType string
}

// Slot is one element of a graph pattern, written left to right by the
// parser. Nested sections (GRAPH, OPTIONAL, UNION, EXISTS, NOT EXISTS,
// MINUS bodies) are stored contiguously starting at ChildStart, ChildCount
// slots long; the parser back-patches these two fields once a nested
// section's children have all been parsed.
type Slot struct {
	Kind SlotKind

	// SlotTriple / SlotMinusTriple
	Subject   TermRef
	Predicate TermRef
	Object    TermRef

	// SlotFilter / SlotBind: (start, length) reference into the source
	// text, re-parsed into an expression AST once during plan
	// construction (see pkg/sparql/engine).
	ExprStart int
	ExprLen   int
	BindVar   string // SlotBind only

	// SlotGraphHeader
	GraphTerm TermRef // RefVar for GRAPH ?g, else a bound graph name

	// Nested children, shared by GraphHeader/OptionalHeader/UnionHeader/
	// ExistsHeader/NotExistsHeader/MinusHeader.
	ChildStart int
	ChildCount int

	// SlotUnionHeader: explicit split point within [ChildStart,
	// ChildStart+ChildCount) where the second UNION branch begins. Stored
	// at parse time rather than reconstructed from slot-kind counts,
	// resolving the UnionStartIndex open question.
	UnionSplit int

	// SlotValuesHeader
	ValuesVars []string
	// SlotValuesEntry: one row, aligned positionally with the owning
	// ValuesHeader's ValuesVars.
	ValuesRow []TermRef
}

// Prefix is one `PREFIX`/`@prefix` binding from the query's prologue.
type Prefix struct {
	Name string
	IRI  string
}

// QueryKind identifies the top-level SPARQL operation.
type QueryKind int

const (
	KindSelect QueryKind = iota
	KindConstruct
	KindAsk
	KindDescribe
)

// OrderCondition is one ORDER BY clause entry.
type OrderCondition struct {
	Desc      bool
	ExprStart int
	ExprLen   int
}

// Aggregate describes one aggregate expression appearing in a SELECT
// projection item; a HAVING clause is kept only as a source span and gets
// no Aggregate record. The operand expression itself is not
// duplicated here: the owning ProjectItem's (ExprStart, ExprLen) already
// spans the whole aggregate call (e.g. "COUNT(DISTINCT ?v)"), and the
// engine re-parses that span once via lang.ParseExpr to recover the
// ExprCall node and its Args.
type Aggregate struct {
	Func     TokenKind // COUNT, SUM, AVG, MIN, MAX, SAMPLE, GROUP_CONCAT
	Distinct bool
	Star     bool // COUNT(*)
	Separator string // GROUP_CONCAT only; default " "
	As       string // output variable name
}

// ProjectItem is one SELECT-clause entry: either a bare variable or an
// `(expr AS ?v)` binding (which may be an aggregate).
type ProjectItem struct {
	Var       string // projected/bound variable name
	IsExpr    bool
	ExprStart int
	ExprLen   int
	Agg       *Aggregate
}

// Temporal carries the query's optional `AS OF` / `BETWEEN` clause: the
// source spans of its one or two instant expressions.
type Temporal struct {
	Present bool
	Between bool
	T1Start, T1Len int
	T2Start, T2Len int // BETWEEN only
}

// Query is the parser's output: the compact pattern buffer (Patterns)
// plus the prologue, dataset clauses, and solution modifiers extracted
// from a single query. Source holds the original text so FILTER/BIND/
// ORDER BY/HAVING expression spans can be re-sliced during planning.
type Query struct {
	Source string

	Kind     QueryKind
	Star     bool // SELECT *
	Distinct bool
	Reduced  bool

	Prefixes []Prefix
	Base     string

	FromDefault []string // FROM <iri> graphs merged into the default graph for this query
	FromNamed   []string // FROM NAMED <iri> graphs

	Project []ProjectItem // SELECT projection; empty + Star for SELECT *

	ConstructTemplate []Slot // CONSTRUCT { ... } template triples (SlotTriple only)
	DescribeTargets   []TermRef

	Patterns []Slot // the WHERE clause's pattern buffer, root-level slots at [0:RootCount)
	RootCount int

	GroupBy  []struct{ ExprStart, ExprLen int }
	Having   []struct{ ExprStart, ExprLen int }
	OrderBy  []OrderCondition
	Limit    int64 // -1 means unset
	Offset   int64

	Temporal Temporal
}

// ExprText returns the source slice a (start, length) pair refers to.
func (q *Query) ExprText(start, length int) string {
	return q.Source[start : start+length]
}
