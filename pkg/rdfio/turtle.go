package rdfio

import (
	"io"
	"strconv"
	"strings"

	"github.com/quaddb/quaddb/pkg/qerr"
	"github.com/quaddb/quaddb/pkg/quad"
)

// turtleParser holds the state shared by the Turtle and TriG grammars: the
// lexer, the accumulated prefix/base bindings, and the blank-node
// allocator. TriG is Turtle's superset (block-level GRAPH/{}/shorthand
// forms around the same triple grammar), so one parser drives both, gated
// by allowGraphBlocks.
type turtleParser struct {
	lx               *Lexer
	base             string
	prefixes         map[string]string
	alloc            blankAllocator
	allowGraphBlocks bool
	emit             Handler

	// currentGraph is the graph of the statement currently being parsed;
	// nested blank-node property lists and collections emit into it too,
	// since neither Turtle nor TriG can switch graphs mid-statement.
	currentGraph quad.Term
}

// ParseTurtle reads Turtle text from r, calling handler once per triple
// (always in the default graph).
func ParseTurtle(r io.Reader, baseIRI string, handler Handler) error {
	return parseTurtleFamily(r, baseIRI, false, handler)
}

// ParseTriG reads TriG text from r, calling handler once per quad.
func ParseTriG(r io.Reader, baseIRI string, handler Handler) error {
	return parseTurtleFamily(r, baseIRI, true, handler)
}

func parseTurtleFamily(r io.Reader, baseIRI string, allowGraphBlocks bool, handler Handler) error {
	lx := NewLexer(r)
	defer lx.Close()
	p := &turtleParser{
		lx:               lx,
		base:             baseIRI,
		prefixes:         make(map[string]string),
		allowGraphBlocks: allowGraphBlocks,
		emit:             handler,
	}
	for {
		p.skipWS()
		if p.lx.atEOF() {
			return nil
		}
		if err := p.topLevel(); err != nil {
			return err
		}
	}
}

func (p *turtleParser) skipWS() { skipWhitespaceAndComments(p.lx) }

func (p *turtleParser) err(msg string) error { return syntaxErr(p.lx, msg) }

// topLevel implements the Top state: a directive or a block.
func (p *turtleParser) topLevel() error {
	if p.lx.matchKeyword("@prefix", true) {
		return p.directivePrefix(true)
	}
	if p.lx.matchKeyword("@base", true) {
		return p.directiveBase(true)
	}
	if p.matchKeywordCI("PREFIX") {
		return p.directivePrefix(false)
	}
	if p.matchKeywordCI("BASE") {
		return p.directiveBase(false)
	}
	return p.block()
}

// matchKeywordCI matches a case-insensitive keyword that must not be
// immediately followed by another identifier character (so "BASEX" is not
// mistaken for "BASE"). matchKeyword itself only advances the lexer once
// every rune has matched, so a failed match here leaves position
// untouched; only the followed-by-identifier-char case needs an explicit
// rewind.
func (p *turtleParser) matchKeywordCI(kw string) bool {
	// Buffer the keyword plus one trailing rune up front, so the snapshot
	// below stays valid: no refill can slide the buffer while matching.
	p.lx.ensure(len(kw) + 8)
	before := *p.lx
	if !p.lx.matchKeyword(kw, false) {
		return false
	}
	if r, ok := p.lx.peek(); ok && isPNCharsOrDigit(r) {
		*p.lx = before
		return false
	}
	return true
}

func (p *turtleParser) directivePrefix(dotTerminated bool) error {
	p.skipWS()
	name, err := p.parsePrefixName()
	if err != nil {
		return err
	}
	p.skipWS()
	iriTerm, err := parseNTIRI(p.lx)
	if err != nil {
		return err
	}
	p.prefixes[name] = p.resolve(iriTerm.Value)
	p.skipWS()
	if dotTerminated {
		if !p.lx.tryConsume('.') {
			return p.err("@prefix directive must be terminated by '.'")
		}
	}
	return nil
}

func (p *turtleParser) directiveBase(dotTerminated bool) error {
	p.skipWS()
	iriTerm, err := parseNTIRI(p.lx)
	if err != nil {
		return err
	}
	p.base = p.resolve(iriTerm.Value)
	p.skipWS()
	if dotTerminated {
		if !p.lx.tryConsume('.') {
			return p.err("@base directive must be terminated by '.'")
		}
	}
	return nil
}

// parsePrefixName reads the prefix label up to and including its ':',
// returning the label without the colon ("" for the default prefix ":").
func (p *turtleParser) parsePrefixName() (string, error) {
	var b strings.Builder
	for {
		r, ok := p.lx.peek()
		if !ok || r == ':' {
			break
		}
		if !isPNCharsOrDigit(r) && r != '.' {
			return "", p.err("invalid prefix name")
		}
		p.lx.consume()
		b.WriteRune(r)
	}
	if !p.lx.tryConsume(':') {
		return "", p.err("expected ':' in prefix declaration")
	}
	return b.String(), nil
}

func (p *turtleParser) resolve(iri string) string {
	if p.base == "" {
		return iri
	}
	return ResolveIRI(p.base, iri)
}

func isPNCharsOrDigit(r rune) bool {
	return r == '_' || r == '-' ||
		(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// block implements the Block state: a TriG graph block or a default-graph
// subject/predicate-object-list statement.
func (p *turtleParser) block() error {
	r, ok := p.lx.peek()
	if !ok {
		return nil
	}

	if p.allowGraphBlocks && r == '{' {
		return p.graphBody(quad.DefaultGraphTerm)
	}
	if p.allowGraphBlocks && p.matchKeywordCI("GRAPH") {
		p.skipWS()
		g, err := p.parseTerm(nil)
		if err != nil {
			return err
		}
		p.skipWS()
		return p.graphBody(g)
	}

	// currentGraph must be in place before the subject parse: a blank node
	// property list or collection in subject position emits triples of its
	// own. (A shorthand graph block's name term can never be one of those,
	// so the early assignment is safe for that branch too.)
	p.currentGraph = quad.DefaultGraphTerm
	subj, err := p.parseTerm(nil)
	if err != nil {
		return err
	}
	p.skipWS()

	if p.allowGraphBlocks {
		if nr, ok := p.lx.peek(); ok && nr == '{' {
			// Shorthand "iri { ... }" graph block: subj names the graph.
			return p.graphBody(subj)
		}
	}

	// A bare blankNodePropertyList statement `[ ... ] .` carries no further
	// predicate-object list; its triples were emitted while parsing it.
	if r, ok := p.lx.peek(); !(ok && r == '.' && subj.IsBlank()) {
		if err := p.predicateObjectList(subj, quad.DefaultGraphTerm); err != nil {
			return err
		}
		p.skipWS()
	}
	if !p.lx.tryConsume('.') {
		return p.err("expected '.' to terminate statement")
	}
	return nil
}

func (p *turtleParser) graphBody(graph quad.Term) error {
	if !p.lx.tryConsume('{') {
		return p.err("expected '{' to start graph block")
	}
	for {
		p.skipWS()
		if p.lx.tryConsume('}') {
			return nil
		}
		p.currentGraph = graph
		subj, err := p.parseTerm(nil)
		if err != nil {
			return err
		}
		p.skipWS()
		if r, ok := p.lx.peek(); !(ok && (r == '.' || r == '}') && subj.IsBlank()) {
			if err := p.predicateObjectList(subj, graph); err != nil {
				return err
			}
			p.skipWS()
		}
		if !p.lx.tryConsume('.') {
			// A trailing statement before '}' may omit the '.'; accept
			// either form.
			if r, ok := p.lx.peek(); !ok || r != '}' {
				return p.err("expected '.' between statements in graph block")
			}
		}
	}
}

// predicateObjectList parses `verb objectList (';' verb objectList)* ';'?`
// for subj in graph, emitting one triple per object encountered.
func (p *turtleParser) predicateObjectList(subj quad.Term, graph quad.Term) error {
	for {
		pred, err := p.parseVerb()
		if err != nil {
			return err
		}
		p.skipWS()
		if err := p.objectList(subj, pred, graph); err != nil {
			return err
		}
		p.skipWS()
		if !p.lx.tryConsume(';') {
			return nil
		}
		p.skipWS()
		// Trailing ';' with nothing following is permitted.
		if r, ok := p.lx.peek(); !ok || r == '.' || r == '}' {
			return nil
		}
	}
}

func (p *turtleParser) parseVerb() (quad.Term, error) {
	if r, ok := p.lx.peek(); ok && r == 'a' {
		if next, ok := p.lx.peekAheadRune(1); !ok || !isPNCharsOrDigit(next) {
			p.lx.consume()
			return quad.IRI(rdfType), nil
		}
	}
	return p.parseTerm(nil)
}

func (p *turtleParser) objectList(subj, pred quad.Term, graph quad.Term) error {
	for {
		obj, err := p.parseTerm(&objCtx{subj: subj, pred: pred, graph: graph})
		if err != nil {
			return err
		}
		if err := p.emit(subj, pred, obj, graph); err != nil {
			return err
		}
		p.skipWS()
		if !p.lx.tryConsume(',') {
			return nil
		}
		p.skipWS()
	}
}

// objCtx is unused by parseTerm directly today but documents the call
// site's (subj, pred, graph) so future collection/blank-node-property-list
// nesting can thread it through without another parameter list change.
type objCtx struct {
	subj, pred, graph quad.Term
}

// parseTerm parses one RDF term: IRI (absolute or prefixed), blank node
// (labeled, anonymous "[...]", or collection "(...)"), or literal.
func (p *turtleParser) parseTerm(ctx *objCtx) (quad.Term, error) {
	r, ok := p.lx.peek()
	if !ok {
		return quad.Term{}, p.err("unexpected end of input")
	}
	switch {
	case r == '<':
		t, err := parseNTIRI(p.lx)
		if err != nil {
			return quad.Term{}, err
		}
		return quad.IRI(p.resolve(t.Value)), nil
	case r == '_':
		return parseNTBlank(p.lx)
	case r == '"' || r == '\'':
		return p.parseLiteral()
	case r == '[':
		return p.parseBlankNodePropertyList()
	case r == '(':
		return p.parseCollection()
	case r >= '0' && r <= '9', r == '+', r == '-', r == '.':
		return p.parseNumericLiteral()
	default:
		return p.parsePrefixedName()
	}
}

func (p *turtleParser) parsePrefixedName() (quad.Term, error) {
	if p.matchKeywordCI("true") {
		return quad.TypedLiteral("true", xsdBoolean), nil
	}
	if p.matchKeywordCI("false") {
		return quad.TypedLiteral("false", xsdBoolean), nil
	}
	var b strings.Builder
	for {
		r, ok := p.lx.peek()
		if !ok || r == ':' || !(isPNCharsOrDigit(r) || r == '.') {
			break
		}
		p.lx.consume()
		b.WriteRune(r)
	}
	if !p.lx.tryConsume(':') {
		return quad.Term{}, p.err("expected prefixed name or keyword")
	}
	prefix := b.String()
	ns, ok := p.prefixes[prefix]
	if !ok {
		return quad.Term{}, qerr.NewUnknownPrefixError(prefix)
	}
	var local strings.Builder
	for {
		r, ok := p.lx.peek()
		if !ok || !isLocalNameChar(r) {
			break
		}
		if r == '.' {
			if next, ok := p.lx.peekAheadRune(1); !ok || !isLocalNameChar(next) {
				break
			}
		}
		p.lx.consume()
		local.WriteRune(r)
	}
	return quad.IRI(ns + local.String()), nil
}

func isLocalNameChar(r rune) bool {
	return isPNCharsOrDigit(r) || r == '.' || r == '%'
}

func (p *turtleParser) parseLiteral() (quad.Term, error) {
	quoteChar, ok := p.lx.peek()
	if !ok {
		return quad.Term{}, p.err("unexpected end of input")
	}
	long := false
	if p.lx.matchKeyword(strings.Repeat(string(quoteChar), 3), true) {
		long = true
	} else {
		p.lx.consume()
	}
	p.lx.resetOutput()
	for {
		r, ok := p.lx.peek()
		if !ok {
			return quad.Term{}, p.err("unterminated string literal")
		}
		if r == quoteChar {
			if !long {
				p.lx.consume()
				break
			}
			if p.lx.matchKeyword(strings.Repeat(string(quoteChar), 3), true) {
				break
			}
		}
		if r == '\\' {
			decoded, err := readEscape(p.lx)
			if err != nil {
				return quad.Term{}, err
			}
			p.lx.emit(decoded)
			continue
		}
		p.lx.consume()
		p.lx.emit(r)
	}
	value := p.lx.span()

	if p.lx.tryConsume('@') {
		var lang strings.Builder
		for {
			r, ok := p.lx.peek()
			if !ok || !(r == '-' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
				break
			}
			p.lx.consume()
			lang.WriteRune(r)
		}
		return quad.LangLiteral(value, lang.String()), nil
	}
	if p.lx.matchKeyword("^^", true) {
		dt, err := p.parseTerm(nil)
		if err != nil {
			return quad.Term{}, err
		}
		return quad.TypedLiteral(value, dt.Value), nil
	}
	return quad.PlainLiteral(value), nil
}

const (
	xsdInteger = "http://www.w3.org/2001/XMLSchema#integer"
	xsdDecimal = "http://www.w3.org/2001/XMLSchema#decimal"
	xsdDouble  = "http://www.w3.org/2001/XMLSchema#double"
	xsdBoolean = "http://www.w3.org/2001/XMLSchema#boolean"
)

// parseNumericLiteral implements the `.5` → xsd:decimal and `1e1` →
// xsd:double boundary behaviors, plus the "'.' before a digit starts a
// numeric literal; otherwise it is the terminator" rule.
func (p *turtleParser) parseNumericLiteral() (quad.Term, error) {
	var b strings.Builder
	if r, ok := p.lx.peek(); ok && (r == '+' || r == '-') {
		p.lx.consume()
		b.WriteRune(r)
	}
	sawDigitsBeforeDot := false
	for {
		r, ok := p.lx.peek()
		if !ok || r < '0' || r > '9' {
			break
		}
		p.lx.consume()
		b.WriteRune(r)
		sawDigitsBeforeDot = true
	}
	isDecimal := false
	if r, ok := p.lx.peek(); ok && r == '.' {
		if next, ok := p.lx.peekAheadRune(1); ok && next >= '0' && next <= '9' {
			isDecimal = true
			p.lx.consume()
			b.WriteByte('.')
			for {
				r, ok := p.lx.peek()
				if !ok || r < '0' || r > '9' {
					break
				}
				p.lx.consume()
				b.WriteRune(r)
			}
		} else if !sawDigitsBeforeDot {
			return quad.Term{}, p.err("expected digit after '.' in numeric literal")
		}
	}
	isDouble := false
	if r, ok := p.lx.peek(); ok && (r == 'e' || r == 'E') {
		p.lx.ensure(8) // snapshot safety: see matchKeywordCI
		save := *p.lx
		p.lx.consume()
		b.WriteRune(r)
		if s, ok := p.lx.peek(); ok && (s == '+' || s == '-') {
			p.lx.consume()
			b.WriteRune(s)
		}
		digits := 0
		for {
			r, ok := p.lx.peek()
			if !ok || r < '0' || r > '9' {
				break
			}
			p.lx.consume()
			b.WriteRune(r)
			digits++
		}
		if digits == 0 {
			// "A numeric exponent requires at least one digit": not an
			// exponent after all, back out.
			*p.lx = save
		} else {
			isDouble = true
		}
	}
	text := b.String()
	if _, err := strconv.ParseFloat(text, 64); err != nil {
		return quad.Term{}, p.err("invalid numeric literal")
	}
	switch {
	case isDouble:
		return quad.TypedLiteral(text, xsdDouble), nil
	case isDecimal:
		return quad.TypedLiteral(text, xsdDecimal), nil
	default:
		return quad.TypedLiteral(text, xsdInteger), nil
	}
}

// parseBlankNodePropertyList parses `[ predicateObjectList? ]`, allocating
// a fresh blank node as its subject and emitting its properties into the
// enclosing graph (threaded in via parseTerm callers through objectList's
// use of p.currentGraph — tracked on the parser since parseTerm itself is
// graph-agnostic).
func (p *turtleParser) parseBlankNodePropertyList() (quad.Term, error) {
	if !p.lx.tryConsume('[') {
		return quad.Term{}, p.err("expected '['")
	}
	bnode := p.alloc.fresh()
	p.skipWS()
	if p.lx.tryConsume(']') {
		return bnode, nil
	}
	if err := p.predicateObjectList(bnode, p.currentGraph); err != nil {
		return quad.Term{}, err
	}
	p.skipWS()
	if !p.lx.tryConsume(']') {
		return quad.Term{}, p.err("expected ']' to close blank node property list")
	}
	return bnode, nil
}

func (p *turtleParser) parseCollection() (quad.Term, error) {
	if !p.lx.tryConsume('(') {
		return quad.Term{}, p.err("expected '('")
	}
	var items []quad.Term
	for {
		p.skipWS()
		if p.lx.tryConsume(')') {
			break
		}
		item, err := p.parseTerm(nil)
		if err != nil {
			return quad.Term{}, err
		}
		items = append(items, item)
	}
	return emitCollection(&p.alloc, p.currentGraph, items, p.emit)
}
