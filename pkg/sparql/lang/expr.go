package lang

import "strconv"

// ExprKind tags one node of a FILTER/BIND/ORDER BY/HAVING expression tree.
// Expression spans are stored by the outer parser as (start, length) into
// the query source and only turned into this tree once, during plan
// construction (pkg/sparql/engine), matching the outer grammar's
// reparsed-on-demand handling of nested expressions.
type ExprKind uint8

const (
	ExprVar ExprKind = iota
	ExprIRI
	ExprNumeric
	ExprString
	ExprBool
	ExprUnary  // !, unary -
	ExprBinary // arithmetic, comparison, &&, ||
	ExprCall   // function call, including aggregates
)

// Expr is one node of the expression tree.
type Expr struct {
	Kind ExprKind

	Var      string
	IRI      string
	Num      string // numeric literal lexical form, parsed lazily by the evaluator
	NumKind  TokenKind // INTEGER, DECIMAL, or DOUBLE
	Str      string
	StrLang  string
	StrDType string
	Bool     bool

	Op    TokenKind // operator token for Unary/Binary
	Left  *Expr
	Right *Expr // Unary leaves Right nil

	Func     string // uppercased function name for ExprCall
	Args     []*Expr
	Distinct bool // DISTINCT inside an aggregate call
}

// ParseExpr parses a standalone expression (the grammar rooted at
// SPARQL's Expression production), the entry point the engine's executor uses to
// turn a Filter/Bind/OrderBy/Having slot's source span into a tree.
func ParseExpr(src string) (*Expr, error) {
	p := &exprParser{lx: newLexer(src)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.tok.Kind != EOF {
		return nil, p.lx.errAt(p.tok.Start, "unexpected trailing input in expression")
	}
	return e, nil
}

type exprParser struct {
	lx  *lexer
	tok Token
}

func (p *exprParser) advance() error {
	t, err := p.lx.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *exprParser) expect(k TokenKind, what string) error {
	if p.tok.Kind != k {
		return p.lx.errAt(p.tok.Start, "expected "+what)
	}
	return p.advance()
}

// parseExpr parses the full precedence chain: ConditionalOrExpression.
func (p *exprParser) parseExpr() (*Expr, error) {
	return p.parseOr()
}

func (p *exprParser) parseOr() (*Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.tok.Kind == OR {
		op := p.tok.Kind
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &Expr{Kind: ExprBinary, Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *exprParser) parseAnd() (*Expr, error) {
	left, err := p.parseRelational()
	if err != nil {
		return nil, err
	}
	for p.tok.Kind == AND {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseRelational()
		if err != nil {
			return nil, err
		}
		left = &Expr{Kind: ExprBinary, Op: AND, Left: left, Right: right}
	}
	return left, nil
}

func (p *exprParser) parseRelational() (*Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	switch p.tok.Kind {
	case EQ, NE, LT, GT, LE, GE:
		op := p.tok.Kind
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return &Expr{Kind: ExprBinary, Op: op, Left: left, Right: right}, nil
	}
	return left, nil
}

func (p *exprParser) parseAdditive() (*Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.tok.Kind == PLUS || p.tok.Kind == MINUS {
		op := p.tok.Kind
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &Expr{Kind: ExprBinary, Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *exprParser) parseMultiplicative() (*Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.tok.Kind == STAR || p.tok.Kind == SLASH {
		op := p.tok.Kind
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &Expr{Kind: ExprBinary, Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *exprParser) parseUnary() (*Expr, error) {
	switch p.tok.Kind {
	case BANG:
		if err := p.advance(); err != nil {
			return nil, err
		}
		e, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Expr{Kind: ExprUnary, Op: BANG, Left: e}, nil
	case MINUS:
		if err := p.advance(); err != nil {
			return nil, err
		}
		e, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Expr{Kind: ExprUnary, Op: MINUS, Left: e}, nil
	case PLUS:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return p.parseUnary()
	}
	return p.parsePrimary()
}

func (p *exprParser) parsePrimary() (*Expr, error) {
	switch p.tok.Kind {
	case LPAREN:
		if err := p.advance(); err != nil {
			return nil, err
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(RPAREN, "')'"); err != nil {
			return nil, err
		}
		return e, nil
	case VAR:
		e := &Expr{Kind: ExprVar, Var: p.tok.Text}
		return e, p.advance()
	case IRIREF:
		e := &Expr{Kind: ExprIRI, IRI: p.tok.Text}
		return e, p.advance()
	case STRING:
		return p.parseStringLiteral()
	case INTEGER, DECIMAL, DOUBLE:
		e := &Expr{Kind: ExprNumeric, Num: p.tok.Text, NumKind: p.tok.Kind}
		return e, p.advance()
	case BOOLEAN:
		e := &Expr{Kind: ExprBool, Bool: p.tok.Text == "TRUE"}
		return e, p.advance()
	case BOUND, STR, LANG, LANGMATCHES, DATATYPE, IRI_FUNC, URI_FUNC, ISIRI,
		ISBLANK, ISLITERAL, ISNUMERIC, REGEX, CONCAT_FUNC, STRLEN, SAMETERM,
		COUNT, SUM, AVG, MIN, MAX, SAMPLE, GROUP_CONCAT:
		return p.parseCall()
	case PNAME_LN, PNAME_NS:
		// Unresolved custom function call by prefixed name, e.g. a
		// user-defined extension function; outside the builtin set this
		// evaluator implements, so parsed but rejected at evaluation.
		name := p.tok.Text
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.Kind != LPAREN {
			return nil, p.lx.errAt(p.tok.Start, "expected function call")
		}
		return p.parseCallArgs(name)
	}
	return nil, p.lx.errAt(p.tok.Start, "unexpected token in expression")
}

func (p *exprParser) parseStringLiteral() (*Expr, error) {
	e := &Expr{Kind: ExprString, Str: p.tok.Text}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.tok.Kind == CARET {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.Kind != IRIREF && p.tok.Kind != PNAME_LN {
			return nil, p.lx.errAt(p.tok.Start, "expected datatype IRI after ^^")
		}
		e.StrDType = p.tok.Text
		return e, p.advance()
	}
	// A language tag token isn't separately lexed here; SPARQL's
	// LANGTAG (@en, @en-US) is recognized as part of the literal grammar
	// in full implementations. This engine's FILTER/BIND surface accepts
	// plain and datatype-qualified literals; language-tagged literal
	// constants in expressions are out of scope (language tags on stored
	// terms are still fully supported via the LANG builtin).
	return e, nil
}

func (p *exprParser) parseCall() (*Expr, error) {
	name := p.tok.Text
	kind := p.tok.Kind
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.tok.Kind != LPAREN {
		return nil, p.lx.errAt(p.tok.Start, "expected '(' after function name")
	}
	switch kind {
	case COUNT, SUM, AVG, MIN, MAX, SAMPLE, GROUP_CONCAT:
		return p.parseAggregateCall(name)
	}
	return p.parseCallArgs(name)
}

func (p *exprParser) parseAggregateCall(name string) (*Expr, error) {
	if err := p.advance(); err != nil { // '('
		return nil, err
	}
	e := &Expr{Kind: ExprCall, Func: name}
	if p.tok.Kind == DISTINCT {
		e.Distinct = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if p.tok.Kind == STAR {
		e.Args = append(e.Args, &Expr{Kind: ExprVar, Var: "*"})
		if err := p.advance(); err != nil {
			return nil, err
		}
	} else if p.tok.Kind != RPAREN {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		e.Args = append(e.Args, arg)
		for p.tok.Kind == SEPARATOR_KW {
			if err := p.advance(); err != nil {
				return nil, err
			}
			if err := p.expect(EQ, "'='"); err != nil {
				return nil, err
			}
			sep, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			e.Args = append(e.Args, sep)
		}
	}
	return e, p.expect(RPAREN, "')'")
}

func (p *exprParser) parseCallArgs(name string) (*Expr, error) {
	if err := p.advance(); err != nil { // '('
		return nil, err
	}
	e := &Expr{Kind: ExprCall, Func: name}
	if p.tok.Kind != RPAREN {
		for {
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			e.Args = append(e.Args, arg)
			if p.tok.Kind != COMMA {
				break
			}
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	return e, p.expect(RPAREN, "')'")
}

// NumericValue parses the expression's Num lexical form into a float64,
// for builtin arithmetic that doesn't need to preserve xsd:integer vs
// xsd:decimal distinctions beyond their string representation.
func (e *Expr) NumericValue() (float64, error) {
	return strconv.ParseFloat(e.Num, 64)
}
