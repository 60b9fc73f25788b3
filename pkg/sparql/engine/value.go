package engine

import (
	"strconv"
	"strings"

	"github.com/quaddb/quaddb/pkg/qerr"
	"github.com/quaddb/quaddb/pkg/quad"
	"github.com/quaddb/quaddb/pkg/sparql/lang"
)

// Value is the dynamic value an expression evaluates to: a decoded RDF
// term plus, for numeric literals, a parsed float64 so arithmetic and
// ordering don't re-parse the lexical form at every comparison.
type Value struct {
	Term    quad.Term
	IsNum   bool
	Num     float64
	NumKind lang.TokenKind // INTEGER, DECIMAL, or DOUBLE; preserved for the result's datatype

	// Unbound marks an ORDER BY operand that evaluated to no value at all
	// (an unbound variable). The zero Term's Kind is KindIRI, so a
	// separate marker is required for unbound to sort below every bound
	// term rather than alongside IRIs.
	Unbound bool
}

// unboundValue is the ORDER BY stand-in for a row whose sort expression
// has no value.
func unboundValue() Value { return Value{Unbound: true} }

func boolValue(b bool) Value {
	return Value{Term: quad.Term{Kind: quad.KindLiteral, Value: strconv.FormatBool(b), Datatype: lang.XSDBoolean}}
}

func numValue(n float64, kind lang.TokenKind) Value {
	return Value{Term: quad.Term{Kind: quad.KindLiteral, Value: formatNum(n, kind), Datatype: datatypeFor(kind)}, IsNum: true, Num: n, NumKind: kind}
}

func stringValue(s string) Value {
	return Value{Term: quad.Term{Kind: quad.KindLiteral, Value: s}}
}

func datatypeFor(kind lang.TokenKind) string {
	switch kind {
	case lang.INTEGER:
		return lang.XSDInteger
	case lang.DECIMAL:
		return lang.XSDDecimal
	default:
		return lang.XSDDouble
	}
}

func formatNum(n float64, kind lang.TokenKind) string {
	if kind == lang.INTEGER {
		return strconv.FormatInt(int64(n), 10)
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// isBoolean reports whether v's term is the xsd:boolean literal produced by
// boolValue or by a literal term of that datatype.
func (v Value) isBoolean() bool {
	return v.Term.Kind == quad.KindLiteral && v.Term.Datatype == lang.XSDBoolean
}

func (v Value) boolValue() bool {
	return v.Term.Value == "true" || v.Term.Value == "1"
}

// isPlainString reports whether v is a string literal (one with a language
// tag, no datatype, or the xsd:string datatype) — the operand shape the string
// builtins and lexicographic comparison operate on.
func (v Value) isPlainString() bool {
	if v.Term.Kind != quad.KindLiteral {
		return false
	}
	return v.Term.Lang != "" || v.Term.Datatype == "" || v.Term.Datatype == lang.XSDString
}

// effectiveBooleanValue implements SPARQL's EBV coercion used by FILTER,
// the logical operators, and the unary '!' operator.
func effectiveBooleanValue(v Value) (bool, error) {
	switch {
	case v.isBoolean():
		return v.boolValue(), nil
	case v.IsNum:
		return v.Num != 0, nil
	case v.isPlainString():
		return v.Term.Value != "", nil
	}
	return false, qerr.NewTypeError("cannot coerce " + v.Term.String() + " to a boolean")
}

// termEqual reports whether a and b denote the same RDF term, with numeric
// literals compared by value across xsd:integer/decimal/double per
// SPARQL's '=' operator.
func termEqual(a, b Value) (bool, error) {
	if a.IsNum && b.IsNum {
		return a.Num == b.Num, nil
	}
	if a.Term.Kind != b.Term.Kind {
		return false, nil
	}
	switch a.Term.Kind {
	case quad.KindLiteral:
		if a.IsNum != b.IsNum {
			return false, qerr.NewTypeError("cannot compare numeric and non-numeric literal")
		}
		return a.Term.Value == b.Term.Value && a.Term.Lang == b.Term.Lang && a.Term.Datatype == b.Term.Datatype, nil
	default:
		return a.Term.Value == b.Term.Value, nil
	}
}

// compareOrdered implements '<','>','<=','>=': numeric values compare
// numerically, plain/xsd:string literals compare lexically, anything else
// is a type error.
func compareOrdered(a, b Value) (int, error) {
	switch {
	case a.IsNum && b.IsNum:
		switch {
		case a.Num < b.Num:
			return -1, nil
		case a.Num > b.Num:
			return 1, nil
		default:
			return 0, nil
		}
	case a.isPlainString() && b.isPlainString():
		return strings.Compare(a.Term.Value, b.Term.Value), nil
	}
	return 0, qerr.NewTypeError("values are not ordered-comparable")
}

// termRank orders bound SPARQL terms for ORDER BY: blank node < IRI <
// literal. Unbound is handled separately in compareForOrder via
// Value.Unbound, since the zero Term is indistinguishable from an empty
// IRI by Kind alone.
func termRank(t quad.Term) int {
	switch t.Kind {
	case quad.KindBlank:
		return 1
	case quad.KindIRI:
		return 2
	case quad.KindLiteral:
		return 3
	default:
		return 0
	}
}

// compareForOrder gives ORDER BY's total order over arbitrary solution
// values: unbound < blank node < IRI < literal, with literals ordered by
// value when comparable, else by datatype IRI then lexical form —
// otherwise incomparable terms must still be placed consistently rather
// than rejected.
func compareForOrder(a, b Value) int {
	if a.Unbound || b.Unbound {
		switch {
		case a.Unbound && b.Unbound:
			return 0
		case a.Unbound:
			return -1
		default:
			return 1
		}
	}
	ra, rb := termRank(a.Term), termRank(b.Term)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	if n, err := compareOrdered(a, b); err == nil {
		return n
	}
	if a.Term.Kind == quad.KindLiteral {
		if n := strings.Compare(a.Term.Datatype, b.Term.Datatype); n != 0 {
			return n
		}
	}
	return strings.Compare(a.Term.Value, b.Term.Value)
}
