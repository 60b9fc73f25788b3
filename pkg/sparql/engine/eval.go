package engine

import (
	"strconv"

	"github.com/quaddb/quaddb/pkg/qerr"
	"github.com/quaddb/quaddb/pkg/quad"
	"github.com/quaddb/quaddb/pkg/sparql/lang"
)

// dictionary is the subset of the dictionary the evaluator needs: resolving
// a bound atom back to a term, and interning a literal/IRI constant it
// constructs (e.g. the result of CONCAT or arithmetic).
type dictionary interface {
	Intern(quad.Term) quad.AtomID
	Lookup(quad.AtomID) (quad.Term, bool)
}

// evalCtx evaluates one FILTER/BIND/ORDER BY/HAVING expression tree against
// a single solution row.
type evalCtx struct {
	dict dictionary
	vars *quad.BindingTable
	row  quad.Row
}

func (c *evalCtx) eval(e *lang.Expr) (Value, error) {
	switch e.Kind {
	case lang.ExprVar:
		idx := c.vars.VarIndex(e.Var)
		if idx < 0 {
			return Value{}, qerr.NewTypeError("unbound variable ?" + e.Var)
		}
		cell := c.row.Get(idx)
		if cell.Tag != quad.TagAtom {
			return Value{}, qerr.NewTypeError("unbound variable ?" + e.Var)
		}
		t, ok := c.dict.Lookup(cell.Atom)
		if !ok {
			return Value{}, qerr.NewTypeError("unbound variable ?" + e.Var)
		}
		return termToValue(t), nil
	case lang.ExprIRI:
		return Value{Term: quad.IRI(e.IRI)}, nil
	case lang.ExprNumeric:
		n, err := e.NumericValue()
		if err != nil {
			return Value{}, qerr.NewTypeError("malformed numeric literal " + e.Num)
		}
		return numValue(n, e.NumKind), nil
	case lang.ExprString:
		t := quad.Term{Kind: quad.KindLiteral, Value: e.Str, Lang: e.StrLang, Datatype: e.StrDType}
		return Value{Term: t}, nil
	case lang.ExprBool:
		return boolValue(e.Bool), nil
	case lang.ExprUnary:
		return c.evalUnary(e)
	case lang.ExprBinary:
		return c.evalBinary(e)
	case lang.ExprCall:
		return c.evalCall(e)
	}
	return Value{}, qerr.NewTypeError("unsupported expression")
}

func termToValue(t quad.Term) Value {
	if t.Kind == quad.KindLiteral {
		switch t.Datatype {
		case lang.XSDInteger:
			if n, ok := parseIntLiteral(t.Value); ok {
				return Value{Term: t, IsNum: true, Num: n, NumKind: lang.INTEGER}
			}
		case lang.XSDDecimal:
			if n, ok := parseFloatLiteral(t.Value); ok {
				return Value{Term: t, IsNum: true, Num: n, NumKind: lang.DECIMAL}
			}
		case lang.XSDDouble:
			if n, ok := parseFloatLiteral(t.Value); ok {
				return Value{Term: t, IsNum: true, Num: n, NumKind: lang.DOUBLE}
			}
		}
	}
	return Value{Term: t}
}

func parseIntLiteral(s string) (float64, bool) {
	return parseFloatLiteral(s)
}

func parseFloatLiteral(s string) (float64, bool) {
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func (c *evalCtx) evalUnary(e *lang.Expr) (Value, error) {
	v, err := c.eval(e.Left)
	if err != nil {
		return Value{}, err
	}
	switch e.Op {
	case lang.BANG:
		b, err := effectiveBooleanValue(v)
		if err != nil {
			return Value{}, err
		}
		return boolValue(!b), nil
	case lang.MINUS:
		if !v.IsNum {
			return Value{}, qerr.NewTypeError("unary '-' on non-numeric value")
		}
		return numValue(-v.Num, v.NumKind), nil
	}
	return Value{}, qerr.NewTypeError("unsupported unary operator")
}

func (c *evalCtx) evalBinary(e *lang.Expr) (Value, error) {
	switch e.Op {
	case lang.AND:
		l, err := c.eval(e.Left)
		if err != nil {
			return Value{}, err
		}
		lb, err := effectiveBooleanValue(l)
		if err != nil {
			return Value{}, err
		}
		if !lb {
			return boolValue(false), nil
		}
		r, err := c.eval(e.Right)
		if err != nil {
			return Value{}, err
		}
		rb, err := effectiveBooleanValue(r)
		if err != nil {
			return Value{}, err
		}
		return boolValue(rb), nil
	case lang.OR:
		l, err := c.eval(e.Left)
		if err == nil {
			if lb, err2 := effectiveBooleanValue(l); err2 == nil && lb {
				return boolValue(true), nil
			}
		}
		r, err := c.eval(e.Right)
		if err != nil {
			return Value{}, err
		}
		rb, err := effectiveBooleanValue(r)
		if err != nil {
			return Value{}, err
		}
		return boolValue(rb), nil
	}

	l, err := c.eval(e.Left)
	if err != nil {
		return Value{}, err
	}
	r, err := c.eval(e.Right)
	if err != nil {
		return Value{}, err
	}
	switch e.Op {
	case lang.EQ:
		ok, err := termEqual(l, r)
		if err != nil {
			return Value{}, err
		}
		return boolValue(ok), nil
	case lang.NE:
		ok, err := termEqual(l, r)
		if err != nil {
			return Value{}, err
		}
		return boolValue(!ok), nil
	case lang.LT, lang.GT, lang.LE, lang.GE:
		n, err := compareOrdered(l, r)
		if err != nil {
			return Value{}, err
		}
		switch e.Op {
		case lang.LT:
			return boolValue(n < 0), nil
		case lang.GT:
			return boolValue(n > 0), nil
		case lang.LE:
			return boolValue(n <= 0), nil
		default:
			return boolValue(n >= 0), nil
		}
	case lang.PLUS, lang.MINUS, lang.STAR, lang.SLASH:
		if !l.IsNum || !r.IsNum {
			return Value{}, qerr.NewTypeError("arithmetic on non-numeric operand")
		}
		kind := widestNumKind(l.NumKind, r.NumKind)
		switch e.Op {
		case lang.PLUS:
			return numValue(l.Num+r.Num, kind), nil
		case lang.MINUS:
			return numValue(l.Num-r.Num, kind), nil
		case lang.STAR:
			return numValue(l.Num*r.Num, kind), nil
		default:
			if r.Num == 0 {
				return Value{}, qerr.NewTypeError("division by zero")
			}
			return numValue(l.Num/r.Num, lang.DECIMAL), nil
		}
	}
	return Value{}, qerr.NewTypeError("unsupported binary operator")
}

// widestNumKind promotes INTEGER op INTEGER to INTEGER, and any operand
// involving DECIMAL or DOUBLE to the wider of the two, mirroring XPath's
// numeric type promotion used by SPARQL arithmetic.
func widestNumKind(a, b lang.TokenKind) lang.TokenKind {
	if a == lang.DOUBLE || b == lang.DOUBLE {
		return lang.DOUBLE
	}
	if a == lang.DECIMAL || b == lang.DECIMAL {
		return lang.DECIMAL
	}
	return lang.INTEGER
}
