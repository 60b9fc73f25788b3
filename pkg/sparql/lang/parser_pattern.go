package lang

import (
	"fmt"
	"strings"
)

// parseGroupGraphPatternBraced parses a '{' GroupGraphPattern '}' and
// returns its content as a flat sequence of nodes at this nesting level;
// the surrounding braces themselves never produce a Slot — only GRAPH,
// OPTIONAL, UNION, FILTER EXISTS/NOT EXISTS, and MINUS bodies do.
func (p *parser) parseGroupGraphPatternBraced() ([]node, error) {
	if err := p.expect(LBRACE, "'{'"); err != nil {
		return nil, err
	}
	var out []node
	for p.tok.Kind != RBRACE {
		switch p.tok.Kind {
		case DOT:
			if err := p.advance(); err != nil {
				return nil, err
			}
		case LBRACE:
			ns, err := p.parseGroupOrUnion()
			if err != nil {
				return nil, err
			}
			out = append(out, ns...)
		case OPTIONAL:
			if err := p.advance(); err != nil {
				return nil, err
			}
			children, err := p.parseGroupGraphPatternBraced()
			if err != nil {
				return nil, err
			}
			out = append(out, node{slot: Slot{Kind: SlotOptionalHeader}, children: children})
		case GRAPH:
			if err := p.advance(); err != nil {
				return nil, err
			}
			term, err := p.parseVarOrTerm()
			if err != nil {
				return nil, err
			}
			children, err := p.parseGroupGraphPatternBraced()
			if err != nil {
				return nil, err
			}
			out = append(out, node{slot: Slot{Kind: SlotGraphHeader, GraphTerm: term}, children: children})
		case MINUS_KW:
			if err := p.advance(); err != nil {
				return nil, err
			}
			children, err := p.parseGroupGraphPatternBraced()
			if err != nil {
				return nil, err
			}
			out = append(out, node{slot: Slot{Kind: SlotMinusHeader}, children: children})
		case FILTER:
			n, err := p.parseFilter()
			if err != nil {
				return nil, err
			}
			out = append(out, n)
		case BIND:
			n, err := p.parseBind()
			if err != nil {
				return nil, err
			}
			out = append(out, n)
		case VALUES:
			n, err := p.parseInlineValues()
			if err != nil {
				return nil, err
			}
			out = append(out, n)
		default:
			ns, err := p.parseTriplesBlock()
			if err != nil {
				return nil, err
			}
			out = append(out, ns...)
		}
	}
	return out, p.expect(RBRACE, "'}'")
}

// parseGroupOrUnion parses "{ ... } [UNION { ... }]*", folding repeated
// UNION branches into a left-nested chain of UnionHeader nodes (binary at
// each level) rather than a single N-ary slot, matching the source's own
// two-branch UNION model generalized by nesting.
func (p *parser) parseGroupOrUnion() ([]node, error) {
	left, err := p.parseGroupGraphPatternBraced()
	if err != nil {
		return nil, err
	}
	for p.tok.Kind == UNION {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseGroupGraphPatternBraced()
		if err != nil {
			return nil, err
		}
		children := make([]node, 0, len(left)+len(right))
		children = append(children, left...)
		children = append(children, right...)
		left = []node{{slot: Slot{Kind: SlotUnionHeader}, children: children, branch1Count: flatCount(left)}}
	}
	return left, nil
}

func (p *parser) parseFilter() (node, error) {
	if err := p.advance(); err != nil {
		return node{}, err
	}
	if p.tok.Kind == EXISTS {
		if err := p.advance(); err != nil {
			return node{}, err
		}
		children, err := p.parseGroupGraphPatternBraced()
		if err != nil {
			return node{}, err
		}
		return node{slot: Slot{Kind: SlotExistsHeader}, children: children}, nil
	}
	if p.tok.Kind == NOT {
		if err := p.advance(); err != nil {
			return node{}, err
		}
		if err := p.expect(EXISTS, "EXISTS"); err != nil {
			return node{}, err
		}
		children, err := p.parseGroupGraphPatternBraced()
		if err != nil {
			return node{}, err
		}
		return node{slot: Slot{Kind: SlotNotExistsHeader}, children: children}, nil
	}
	start := p.tok.Start
	ep := &exprParser{lx: p.lx, tok: p.tok}
	if _, err := ep.parseExpr(); err != nil {
		return node{}, err
	}
	length := ep.tok.Start - start
	p.tok = ep.tok
	return node{slot: Slot{Kind: SlotFilter, ExprStart: start, ExprLen: length}}, nil
}

func (p *parser) parseBind() (node, error) {
	if err := p.advance(); err != nil {
		return node{}, err
	}
	if err := p.expect(LPAREN, "'('"); err != nil {
		return node{}, err
	}
	start := p.tok.Start
	ep := &exprParser{lx: p.lx, tok: p.tok}
	if _, err := ep.parseExpr(); err != nil {
		return node{}, err
	}
	length := ep.tok.Start - start
	p.tok = ep.tok
	if err := p.expect(AS, "AS"); err != nil {
		return node{}, err
	}
	if p.tok.Kind != VAR {
		return node{}, p.errHere("expected variable after AS")
	}
	v := p.tok.Text
	if err := p.advance(); err != nil {
		return node{}, err
	}
	if err := p.expect(RPAREN, "')'"); err != nil {
		return node{}, err
	}
	return node{slot: Slot{Kind: SlotBind, ExprStart: start, ExprLen: length, BindVar: v}}, nil
}

func (p *parser) parseInlineValues() (node, error) {
	if err := p.advance(); err != nil {
		return node{}, err
	}
	var vars []string
	if p.tok.Kind == LPAREN {
		if err := p.advance(); err != nil {
			return node{}, err
		}
		for p.tok.Kind == VAR {
			vars = append(vars, p.tok.Text)
			if err := p.advance(); err != nil {
				return node{}, err
			}
		}
		if err := p.expect(RPAREN, "')'"); err != nil {
			return node{}, err
		}
	} else if p.tok.Kind == VAR {
		vars = append(vars, p.tok.Text)
		if err := p.advance(); err != nil {
			return node{}, err
		}
	} else {
		return node{}, p.errHere("expected variable or '(' after VALUES")
	}
	if err := p.expect(LBRACE, "'{'"); err != nil {
		return node{}, err
	}
	var rows []node
	for p.tok.Kind != RBRACE {
		row, err := p.parseValuesRow(len(vars))
		if err != nil {
			return node{}, err
		}
		rows = append(rows, node{slot: Slot{Kind: SlotValuesEntry, ValuesRow: row}})
	}
	if err := p.expect(RBRACE, "'}'"); err != nil {
		return node{}, err
	}
	return node{slot: Slot{Kind: SlotValuesHeader, ValuesVars: vars}, children: rows}, nil
}

func (p *parser) parseValuesRow(n int) ([]TermRef, error) {
	paren := p.tok.Kind == LPAREN
	if paren {
		if err := p.advance(); err != nil {
			return nil, err
		}
	} else if n > 1 {
		return nil, p.errHere("expected '(' to start a multi-variable VALUES row")
	}
	row := make([]TermRef, 0, n)
	for i := 0; i < n; i++ {
		v, err := p.parseDataBlockValue()
		if err != nil {
			return nil, err
		}
		row = append(row, v)
	}
	if paren {
		if err := p.expect(RPAREN, "')'"); err != nil {
			return nil, err
		}
	}
	return row, nil
}

func (p *parser) parseDataBlockValue() (TermRef, error) {
	if p.tok.Kind == UNDEF {
		if err := p.advance(); err != nil {
			return TermRef{}, err
		}
		return TermRef{Kind: RefUndef}, nil
	}
	return p.parseTerm()
}

func (p *parser) parseTriplesBlock() ([]node, error) {
	var out []node
	for {
		if !p.isTripleSubjectStart() {
			return nil, p.errHere("expected a triple pattern")
		}
		subj, err := p.parseVarOrTerm()
		if err != nil {
			return nil, err
		}
		nodes, err := p.parsePredicateObjectList(subj)
		if err != nil {
			return nil, err
		}
		out = append(out, nodes...)
		if p.tok.Kind != DOT {
			break
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		if !p.isTripleSubjectStart() {
			break
		}
	}
	return out, nil
}

func (p *parser) parsePredicateObjectList(subj TermRef) ([]node, error) {
	var out []node
	for {
		pred, err := p.parseVerb()
		if err != nil {
			return nil, err
		}
		objs, err := p.parseObjectList()
		if err != nil {
			return nil, err
		}
		for _, o := range objs {
			out = append(out, node{slot: Slot{Kind: SlotTriple, Subject: subj, Predicate: pred, Object: o}})
		}
		if p.tok.Kind != SEMICOLON {
			break
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		if !p.isVerbStart() {
			break // trailing ';' is permitted
		}
	}
	return out, nil
}

func (p *parser) parseObjectList() ([]TermRef, error) {
	var objs []TermRef
	for {
		o, err := p.parseVarOrTerm()
		if err != nil {
			return nil, err
		}
		objs = append(objs, o)
		if p.tok.Kind != COMMA {
			break
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	return objs, nil
}

func (p *parser) parseVerb() (TermRef, error) {
	if p.tok.Kind == A {
		if err := p.advance(); err != nil {
			return TermRef{}, err
		}
		return TermRef{Kind: RefIRI, IRI: RDFType}, nil
	}
	return p.parseVarOrTerm()
}

func (p *parser) isVerbStart() bool {
	switch p.tok.Kind {
	case VAR, IRIREF, PNAME_NS, PNAME_LN, A:
		return true
	}
	return false
}

func (p *parser) isTripleSubjectStart() bool {
	switch p.tok.Kind {
	case VAR, IRIREF, PNAME_NS, PNAME_LN, BLANK_NODE_LABEL, LBRACKET:
		return true
	}
	return false
}

func (p *parser) parseVarOrTerm() (TermRef, error) {
	if p.tok.Kind == VAR {
		v := p.tok.Text
		return TermRef{Kind: RefVar, Var: v}, p.advance()
	}
	return p.parseTerm()
}

func (p *parser) parseTerm() (TermRef, error) {
	switch p.tok.Kind {
	case VAR:
		v := p.tok.Text
		return TermRef{Kind: RefVar, Var: v}, p.advance()
	case IRIREF, PNAME_NS, PNAME_LN, A:
		iri, err := p.resolveIRI(p.tok)
		if err != nil {
			return TermRef{}, err
		}
		return TermRef{Kind: RefIRI, IRI: iri}, p.advance()
	case BLANK_NODE_LABEL:
		lbl := p.tok.Text
		return TermRef{Kind: RefBlank, Blank: lbl}, p.advance()
	case LBRACKET:
		if err := p.advance(); err != nil {
			return TermRef{}, err
		}
		if p.tok.Kind != RBRACKET {
			return TermRef{}, p.errHere("only the empty anonymous node '[]' is supported here")
		}
		p.anonSeq++
		name := fmt.Sprintf("_anon%d", p.anonSeq)
		return TermRef{Kind: RefVar, Var: name}, p.advance()
	case STRING:
		return p.parseLiteralTerm()
	case INTEGER, DECIMAL, DOUBLE:
		return p.parseNumericTerm()
	case BOOLEAN:
		v := strings.ToLower(p.tok.Text)
		if err := p.advance(); err != nil {
			return TermRef{}, err
		}
		return TermRef{Kind: RefLiteral, Lit: v, LitDType: XSDBoolean}, nil
	}
	return TermRef{}, p.errHere("expected a term")
}

func (p *parser) parseLiteralTerm() (TermRef, error) {
	val := p.tok.Text
	lang := p.consumeAdjacentLangTag()
	if err := p.advance(); err != nil {
		return TermRef{}, err
	}
	if lang != "" {
		return TermRef{Kind: RefLiteral, Lit: val, LitLang: lang}, nil
	}
	if p.tok.Kind == CARET {
		if err := p.advance(); err != nil {
			return TermRef{}, err
		}
		iri, err := p.resolveIRI(p.tok)
		if err != nil {
			return TermRef{}, err
		}
		if err := p.advance(); err != nil {
			return TermRef{}, err
		}
		return TermRef{Kind: RefLiteral, Lit: val, LitDType: iri}, nil
	}
	return TermRef{Kind: RefLiteral, Lit: val}, nil
}

// consumeAdjacentLangTag checks the raw source immediately following the
// just-lexed STRING token for a LANGTAG ('@' plus letters/hyphenated
// subtags) with no intervening whitespace, per SPARQL's RDFLiteral
// grammar. It must operate on raw bytes rather than the tokenizer's own
// next(), since the tokenizer's whitespace-skipping would hide the
// adjacency requirement.
func (p *parser) consumeAdjacentLangTag() string {
	src, pos := p.lx.src, p.lx.pos
	if pos >= len(src) || src[pos] != '@' {
		return ""
	}
	j := pos + 1
	start := j
	for j < len(src) && isASCIILetter(src[j]) {
		j++
	}
	if j == start {
		return ""
	}
	for j < len(src) && src[j] == '-' {
		k := j + 1
		m := k
		for m < len(src) && isASCIIAlnum(src[m]) {
			m++
		}
		if m == k {
			break
		}
		j = m
	}
	tag := src[start:j]
	p.lx.pos = j
	return tag
}

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isASCIIAlnum(b byte) bool {
	return isASCIILetter(b) || (b >= '0' && b <= '9')
}

func (p *parser) parseNumericTerm() (TermRef, error) {
	text := p.tok.Text
	var dtype string
	switch p.tok.Kind {
	case INTEGER:
		dtype = XSDInteger
	case DECIMAL:
		dtype = XSDDecimal
	case DOUBLE:
		dtype = XSDDouble
	}
	if err := p.advance(); err != nil {
		return TermRef{}, err
	}
	return TermRef{Kind: RefLiteral, Lit: text, LitDType: dtype}, nil
}

// parseTriplesTemplateBraced parses a CONSTRUCT template: a brace-bracketed
// sequence of triple patterns only (no FILTER/OPTIONAL/etc). Blank node
// labels here are freshly scoped per output row by the executor, not
// unified with the WHERE clause's bindings.
func (p *parser) parseTriplesTemplateBraced() ([]Slot, error) {
	if err := p.expect(LBRACE, "'{'"); err != nil {
		return nil, err
	}
	var out []Slot
	for p.tok.Kind != RBRACE {
		if p.tok.Kind == DOT {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		subj, err := p.parseVarOrTerm()
		if err != nil {
			return nil, err
		}
		nodes, err := p.parsePredicateObjectList(subj)
		if err != nil {
			return nil, err
		}
		for _, n := range nodes {
			out = append(out, n.slot)
		}
	}
	return out, p.expect(RBRACE, "'}'")
}
