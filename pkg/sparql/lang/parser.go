package lang

import (
	"strings"

	"github.com/quaddb/quaddb/pkg/qerr"
)

// node is the parser's intermediate graph-pattern representation: a tree
// mirroring the nested structure of GRAPH/OPTIONAL/UNION/EXISTS/NOT
// EXISTS/MINUS bodies before it is flattened, depth-first, into the
// Query's contiguous Patterns buffer. Building the tree first and
// flattening once lets the parser back-patch each header's (ChildStart,
// ChildCount) — and, for UNION, the explicit split point — in a single
// pass without reshuffling an append-only buffer mid-parse.
type node struct {
	slot     Slot // populated for every node; Kind distinguishes leaf vs container
	children []node
	// branch1Count is the number of flattened slots contributed by a
	// UNION's first branch, used to compute the absolute UnionSplit once
	// this node's ChildStart is known.
	branch1Count int
}

func flatCount(nodes []node) int {
	n := 0
	for _, c := range nodes {
		n++
		n += flatCount(c.children)
	}
	return n
}

func flatten(nodes []node, out *[]Slot) {
	for _, n := range nodes {
		idx := len(*out)
		*out = append(*out, n.slot)
		if len(n.children) > 0 {
			childStart := len(*out)
			flatten(n.children, out)
			(*out)[idx].ChildStart = childStart
			(*out)[idx].ChildCount = len(*out) - childStart
			if n.slot.Kind == SlotUnionHeader {
				(*out)[idx].UnionSplit = childStart + n.branch1Count
			}
		}
	}
}

// parser is the SPARQL recursive-descent parser. One instance parses
// exactly one query string; it is not reusable or safe for concurrent
// use, matching rdfio's "streaming parsers are not thread-safe" rule
// extended to this in-memory analog.
type parser struct {
	lx       *lexer
	tok      Token
	prefixes map[string]string
	base     string
	q        *Query
	anonSeq  int
}

// ParseQuery parses src (a complete SPARQL 1.1 query — SELECT, CONSTRUCT,
// ASK, or DESCRIBE) into a Query ready for planning.
func ParseQuery(src string) (*Query, error) {
	p := &parser{
		lx:       newLexer(src),
		prefixes: map[string]string{},
		q:        &Query{Source: src, Limit: -1, Offset: 0},
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.parsePrologue(); err != nil {
		return nil, err
	}
	switch p.tok.Kind {
	case SELECT:
		if err := p.parseSelect(); err != nil {
			return nil, err
		}
	case CONSTRUCT:
		if err := p.parseConstruct(); err != nil {
			return nil, err
		}
	case ASK:
		p.q.Kind = KindAsk
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.parseDatasetClauses(); err != nil {
			return nil, err
		}
		if err := p.parseWhereAndModifiers(false); err != nil {
			return nil, err
		}
	case DESCRIBE:
		if err := p.parseDescribe(); err != nil {
			return nil, err
		}
	default:
		return nil, p.errHere("expected SELECT, CONSTRUCT, ASK, or DESCRIBE")
	}
	return p.q, nil
}

func (p *parser) advance() error {
	t, err := p.lx.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *parser) errHere(msg string) error {
	return p.lx.errAt(p.tok.Start, msg)
}

func (p *parser) expect(k TokenKind, what string) error {
	if p.tok.Kind != k {
		return p.errHere("expected " + what)
	}
	return p.advance()
}

// resolveIRI expands a PNAME_NS/PNAME_LN token's text using the prologue's
// prefix bindings, or returns an IRIREF's text as-is (base-relative
// resolution mirrors rdfio's, omitted here since SPARQL queries typically
// carry absolute IRIs or are resolved by the caller's own base before
// reaching the store).
func (p *parser) resolveIRI(tok Token) (string, error) {
	switch tok.Kind {
	case IRIREF:
		return tok.Text, nil
	case PNAME_NS, PNAME_LN:
		i := strings.IndexByte(tok.Text, ':')
		if i < 0 {
			return "", p.errHere("expected a prefixed name")
		}
		prefix, local := tok.Text[:i], tok.Text[i+1:]
		base, ok := p.prefixes[prefix]
		if !ok {
			return "", qerr.NewUnknownPrefixError(prefix)
		}
		return base + local, nil
	case A:
		return "http://www.w3.org/1999/02/22-rdf-syntax-ns#type", nil
	}
	return "", p.errHere("expected an IRI")
}

func (p *parser) parsePrologue() error {
	for {
		switch p.tok.Kind {
		case BASE:
			if err := p.advance(); err != nil {
				return err
			}
			if p.tok.Kind != IRIREF {
				return p.errHere("expected IRI after BASE")
			}
			p.base = p.tok.Text
			p.q.Base = p.base
			if err := p.advance(); err != nil {
				return err
			}
		case PREFIX:
			if err := p.advance(); err != nil {
				return err
			}
			if p.tok.Kind != PNAME_NS {
				return p.errHere("expected prefix name (e.g. ex:) after PREFIX")
			}
			name := strings.TrimSuffix(p.tok.Text, ":")
			if err := p.advance(); err != nil {
				return err
			}
			if p.tok.Kind != IRIREF {
				return p.errHere("expected IRI after prefix name")
			}
			p.prefixes[name] = p.tok.Text
			p.q.Prefixes = append(p.q.Prefixes, Prefix{Name: name, IRI: p.tok.Text})
			if err := p.advance(); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (p *parser) parseDatasetClauses() error {
	for p.tok.Kind == FROM {
		if err := p.advance(); err != nil {
			return err
		}
		named := false
		if p.tok.Kind == NAMED {
			named = true
			if err := p.advance(); err != nil {
				return err
			}
		}
		iri, err := p.resolveIRI(p.tok)
		if err != nil {
			return err
		}
		if err := p.advance(); err != nil {
			return err
		}
		if named {
			p.q.FromNamed = append(p.q.FromNamed, iri)
		} else {
			p.q.FromDefault = append(p.q.FromDefault, iri)
		}
	}
	return nil
}

func (p *parser) parseSelect() error {
	p.q.Kind = KindSelect
	if err := p.advance(); err != nil {
		return err
	}
	if p.tok.Kind == DISTINCT {
		p.q.Distinct = true
		if err := p.advance(); err != nil {
			return err
		}
	} else if p.tok.Kind == REDUCED {
		p.q.Reduced = true
		if err := p.advance(); err != nil {
			return err
		}
	}
	if p.tok.Kind == STAR {
		p.q.Star = true
		if err := p.advance(); err != nil {
			return err
		}
	} else {
		for p.tok.Kind == VAR || p.tok.Kind == LPAREN {
			item, err := p.parseProjectItem()
			if err != nil {
				return err
			}
			p.q.Project = append(p.q.Project, item)
		}
		if len(p.q.Project) == 0 {
			return p.errHere("expected a projected variable or '*'")
		}
	}
	if err := p.parseDatasetClauses(); err != nil {
		return err
	}
	return p.parseWhereAndModifiers(true)
}

func (p *parser) parseProjectItem() (ProjectItem, error) {
	if p.tok.Kind == VAR {
		v := p.tok.Text
		return ProjectItem{Var: v}, p.advance()
	}
	// '(' expr AS ?v ')'
	if err := p.advance(); err != nil {
		return ProjectItem{}, err
	}
	start := p.tok.Start
	agg, exprStart, exprLen, err := p.parseExprOrAggregateSpan()
	if err != nil {
		return ProjectItem{}, err
	}
	_ = start
	if err := p.expect(AS, "AS"); err != nil {
		return ProjectItem{}, err
	}
	if p.tok.Kind != VAR {
		return ProjectItem{}, p.errHere("expected variable after AS")
	}
	v := p.tok.Text
	if err := p.advance(); err != nil {
		return ProjectItem{}, err
	}
	if err := p.expect(RPAREN, "')'"); err != nil {
		return ProjectItem{}, err
	}
	item := ProjectItem{Var: v, IsExpr: true, ExprStart: exprStart, ExprLen: exprLen}
	if agg != nil {
		agg.As = v
		item.Agg = agg
	}
	return item, nil
}

// parseExprOrAggregateSpan parses one expression (which may be an
// aggregate call) and returns both its (start, length) source span — so
// FILTER-style re-parsing stays uniform — and, when it is a top-level
// aggregate call, a populated Aggregate for the planner's GROUP BY stage.
func (p *parser) parseExprOrAggregateSpan() (*Aggregate, int, int, error) {
	start := p.tok.Start
	ep := &exprParser{lx: p.lx, tok: p.tok}
	e, err := ep.parseExpr()
	if err != nil {
		return nil, 0, 0, err
	}
	end := ep.tok.Start
	p.tok = ep.tok
	length := end - start
	if e.Kind == ExprCall {
		if agg := aggregateFromCall(e); agg != nil {
			return agg, start, length, nil
		}
	}
	return nil, start, length, nil
}

var aggregateFuncs = map[string]bool{
	"COUNT": true, "SUM": true, "AVG": true, "MIN": true, "MAX": true,
	"SAMPLE": true, "GROUP_CONCAT": true,
}

func aggregateFromCall(e *Expr) *Aggregate {
	if !aggregateFuncs[e.Func] {
		return nil
	}
	a := &Aggregate{Distinct: e.Distinct}
	switch e.Func {
	case "COUNT":
		a.Func = COUNT
	case "SUM":
		a.Func = SUM
	case "AVG":
		a.Func = AVG
	case "MIN":
		a.Func = MIN
	case "MAX":
		a.Func = MAX
	case "SAMPLE":
		a.Func = SAMPLE
	case "GROUP_CONCAT":
		a.Func = GROUP_CONCAT
		a.Separator = " "
	}
	if len(e.Args) > 0 && e.Args[0].Kind == ExprVar && e.Args[0].Var == "*" {
		a.Star = true
	}
	if a.Func == GROUP_CONCAT && len(e.Args) > 1 {
		a.Separator = e.Args[1].Str
	}
	return a
}

func (p *parser) parseConstruct() error {
	p.q.Kind = KindConstruct
	if err := p.advance(); err != nil {
		return err
	}
	tmpl, err := p.parseTriplesTemplateBraced()
	if err != nil {
		return err
	}
	p.q.ConstructTemplate = tmpl
	if err := p.parseDatasetClauses(); err != nil {
		return err
	}
	return p.parseWhereAndModifiers(false)
}

func (p *parser) parseDescribe() error {
	p.q.Kind = KindDescribe
	if err := p.advance(); err != nil {
		return err
	}
	if p.tok.Kind == STAR {
		p.q.Star = true
		if err := p.advance(); err != nil {
			return err
		}
	} else {
		for {
			ref, err := p.parseVarOrTerm()
			if err != nil {
				return err
			}
			p.q.DescribeTargets = append(p.q.DescribeTargets, ref)
			if p.tok.Kind != VAR && p.tok.Kind != IRIREF && p.tok.Kind != PNAME_LN && p.tok.Kind != PNAME_NS {
				break
			}
		}
	}
	if err := p.parseDatasetClauses(); err != nil {
		return err
	}
	if p.tok.Kind == WHERE || p.tok.Kind == LBRACE {
		return p.parseWhereAndModifiers(false)
	}
	p.q.Limit = -1
	return nil
}

func (p *parser) parseWhereAndModifiers(allowModifiers bool) error {
	if p.tok.Kind == WHERE {
		if err := p.advance(); err != nil {
			return err
		}
	}
	nodes, err := p.parseGroupGraphPatternBraced()
	if err != nil {
		return err
	}
	p.q.RootCount = flatCount(nodes)
	flatten(nodes, &p.q.Patterns)

	if err := p.parseSolutionModifiers(); err != nil {
		return err
	}
	return nil
}

func (p *parser) parseSolutionModifiers() error {
	if p.tok.Kind == GROUP {
		if err := p.advance(); err != nil {
			return err
		}
		if err := p.expect(BY, "BY"); err != nil {
			return err
		}
		for p.isExprStart() {
			start := p.tok.Start
			ep := &exprParser{lx: p.lx, tok: p.tok}
			if _, err := ep.parseExpr(); err != nil {
				return err
			}
			length := ep.tok.Start - start
			p.tok = ep.tok
			p.q.GroupBy = append(p.q.GroupBy, struct{ ExprStart, ExprLen int }{start, length})
		}
	}
	if p.tok.Kind == HAVING {
		if err := p.advance(); err != nil {
			return err
		}
		start := p.tok.Start
		ep := &exprParser{lx: p.lx, tok: p.tok}
		if _, err := ep.parseExpr(); err != nil {
			return err
		}
		length := ep.tok.Start - start
		p.tok = ep.tok
		p.q.Having = append(p.q.Having, struct{ ExprStart, ExprLen int }{start, length})
	}
	if p.tok.Kind == ORDER {
		if err := p.advance(); err != nil {
			return err
		}
		if err := p.expect(BY, "BY"); err != nil {
			return err
		}
		for p.isExprStart() || p.tok.Kind == ASC || p.tok.Kind == DESC {
			desc := false
			if p.tok.Kind == ASC || p.tok.Kind == DESC {
				desc = p.tok.Kind == DESC
				if err := p.advance(); err != nil {
					return err
				}
				if err := p.expect(LPAREN, "'('"); err != nil {
					return err
				}
				start := p.tok.Start
				ep := &exprParser{lx: p.lx, tok: p.tok}
				if _, err := ep.parseExpr(); err != nil {
					return err
				}
				length := ep.tok.Start - start
				p.tok = ep.tok
				if err := p.expect(RPAREN, "')'"); err != nil {
					return err
				}
				p.q.OrderBy = append(p.q.OrderBy, OrderCondition{Desc: desc, ExprStart: start, ExprLen: length})
				continue
			}
			start := p.tok.Start
			ep := &exprParser{lx: p.lx, tok: p.tok}
			if _, err := ep.parseExpr(); err != nil {
				return err
			}
			length := ep.tok.Start - start
			p.tok = ep.tok
			p.q.OrderBy = append(p.q.OrderBy, OrderCondition{Desc: false, ExprStart: start, ExprLen: length})
		}
	}
	p.q.Limit = -1
	for p.tok.Kind == LIMIT || p.tok.Kind == OFFSET {
		if p.tok.Kind == LIMIT {
			if err := p.advance(); err != nil {
				return err
			}
			if p.tok.Kind != INTEGER {
				return p.errHere("expected integer after LIMIT")
			}
			p.q.Limit = parseIntLiteral(p.tok.Text)
			if err := p.advance(); err != nil {
				return err
			}
		} else {
			if err := p.advance(); err != nil {
				return err
			}
			if p.tok.Kind != INTEGER {
				return p.errHere("expected integer after OFFSET")
			}
			p.q.Offset = parseIntLiteral(p.tok.Text)
			if err := p.advance(); err != nil {
				return err
			}
		}
	}
	return p.parseTemporalClause()
}

// parseTemporalClause parses the supplemental `AS OF <instant>` /
// `BETWEEN <t1> AND <t2>` clause, where an instant is any scalar
// expression the engine can evaluate to an integer moment (typically an
// integer literal). The first BETWEEN instant is parsed as an additive
// expression, so it ends at the AND keyword, which lexes as the && token.
func (p *parser) parseTemporalClause() error {
	if p.tok.Kind == AS {
		if err := p.advance(); err != nil {
			return err
		}
		if !(p.tok.Kind == PNAME_LN && strings.EqualFold(p.tok.Text, "OF")) {
			return p.errHere("expected OF after AS")
		}
		if err := p.advance(); err != nil {
			return err
		}
		start := p.tok.Start
		ep := &exprParser{lx: p.lx, tok: p.tok}
		if _, err := ep.parseExpr(); err != nil {
			return err
		}
		length := ep.tok.Start - start
		p.tok = ep.tok
		p.q.Temporal = Temporal{Present: true, T1Start: start, T1Len: length}
		return nil
	}
	if p.tok.Kind == BETWEEN {
		if err := p.advance(); err != nil {
			return err
		}
		start1 := p.tok.Start
		ep := &exprParser{lx: p.lx, tok: p.tok}
		if _, err := ep.parseAdditive(); err != nil {
			return err
		}
		len1 := ep.tok.Start - start1
		p.tok = ep.tok
		if err := p.expect(AND, "AND"); err != nil {
			return err
		}
		start2 := p.tok.Start
		ep2 := &exprParser{lx: p.lx, tok: p.tok}
		if _, err := ep2.parseExpr(); err != nil {
			return err
		}
		len2 := ep2.tok.Start - start2
		p.tok = ep2.tok
		p.q.Temporal = Temporal{Present: true, Between: true, T1Start: start1, T1Len: len1, T2Start: start2, T2Len: len2}
		return nil
	}
	return nil
}

func parseIntLiteral(s string) int64 {
	var n int64
	neg := false
	for i, r := range s {
		if i == 0 && r == '-' {
			neg = true
			continue
		}
		n = n*10 + int64(r-'0')
	}
	if neg {
		n = -n
	}
	return n
}

func (p *parser) isExprStart() bool {
	switch p.tok.Kind {
	case VAR, IRIREF, STRING, INTEGER, DECIMAL, DOUBLE, BOOLEAN, LPAREN, BANG, PLUS, MINUS,
		BOUND, STR, LANG, LANGMATCHES, DATATYPE, IRI_FUNC, URI_FUNC, ISIRI, ISBLANK, ISLITERAL,
		ISNUMERIC, REGEX, CONCAT_FUNC, STRLEN, SAMETERM, COUNT, SUM, AVG, MIN, MAX, SAMPLE, GROUP_CONCAT:
		return true
	}
	return false
}
