package engine

import (
	"regexp"
	"strings"

	"github.com/quaddb/quaddb/pkg/qerr"
	"github.com/quaddb/quaddb/pkg/quad"
	"github.com/quaddb/quaddb/pkg/sparql/lang"
)

// evalCall dispatches a function-call expression. It has no case for
// aggregate calls (COUNT/SUM/...): a SELECT projection aggregate is computed
// by the GROUP BY stage (aggregate.go), which binds its result to the AS
// variable before HAVING/BIND/ORDER BY run, so those expressions refer to
// it by that variable. An aggregate call written directly inside a HAVING,
// FILTER or ORDER BY expression reaches here and is rejected as an
// unsupported function.
func (c *evalCtx) evalCall(e *lang.Expr) (Value, error) {
	name := strings.ToUpper(e.Func)
	if name == "BOUND" {
		if len(e.Args) != 1 || e.Args[0].Kind != lang.ExprVar {
			return Value{}, qerr.NewTypeError("BOUND() takes a single variable argument")
		}
		idx := c.vars.VarIndex(e.Args[0].Var)
		if idx < 0 {
			return boolValue(false), nil
		}
		return boolValue(c.row.Get(idx).Tag == quad.TagAtom), nil
	}

	args := make([]Value, len(e.Args))
	for i, a := range e.Args {
		v, err := c.eval(a)
		if err != nil {
			return Value{}, err
		}
		args[i] = v
	}

	switch name {
	case "STR":
		return stringValue(args[0].Term.Value), nil
	case "LANG":
		return stringValue(args[0].Term.Lang), nil
	case "DATATYPE":
		if args[0].Term.Kind != quad.KindLiteral {
			return Value{}, qerr.NewTypeError("DATATYPE() applies only to literals")
		}
		dt := args[0].Term.Datatype
		if dt == "" {
			dt = lang.XSDString
		}
		return Value{Term: quad.IRI(dt)}, nil
	case "LANGMATCHES":
		return boolValue(langMatches(args[0].Term.Value, args[1].Term.Value)), nil
	case "IRI", "URI":
		return Value{Term: quad.IRI(args[0].Term.Value)}, nil
	case "ISIRI", "ISURI":
		return boolValue(args[0].Term.Kind == quad.KindIRI), nil
	case "ISBLANK":
		return boolValue(args[0].Term.Kind == quad.KindBlank), nil
	case "ISLITERAL":
		return boolValue(args[0].Term.Kind == quad.KindLiteral), nil
	case "ISNUMERIC":
		return boolValue(args[0].IsNum), nil
	case "STRLEN":
		return numValue(float64(len([]rune(args[0].Term.Value))), lang.INTEGER), nil
	case "CONCAT":
		var b strings.Builder
		for _, a := range args {
			b.WriteString(a.Term.Value)
		}
		return stringValue(b.String()), nil
	case "SAMETERM":
		ok, err := termEqual(args[0], args[1])
		if err != nil {
			return boolValue(false), nil
		}
		return boolValue(ok), nil
	case "REGEX":
		flags := ""
		if len(args) > 2 {
			flags = args[2].Term.Value
		}
		ok, err := regexMatch(args[0].Term.Value, args[1].Term.Value, flags)
		if err != nil {
			return Value{}, qerr.NewTypeError("invalid regular expression: " + err.Error())
		}
		return boolValue(ok), nil
	}
	return Value{}, qerr.NewTypeError("unsupported function " + e.Func)
}

func langMatches(tag, rng string) bool {
	tag, rng = strings.ToLower(tag), strings.ToLower(rng)
	if rng == "*" {
		return tag != ""
	}
	if tag == rng {
		return true
	}
	return strings.HasPrefix(tag, rng+"-")
}

func regexMatch(s, pattern, flags string) (bool, error) {
	if strings.Contains(flags, "i") {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, err
	}
	return re.MatchString(s), nil
}
