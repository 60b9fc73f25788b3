package rdfio

import (
	"io"
	"strings"

	"github.com/quaddb/quaddb/pkg/qerr"
	"github.com/quaddb/quaddb/pkg/quad"
)

// Handler receives one parsed quad at a time. Unlike the source's
// span-over-byte-buffer contract, Term values here are independently owned
// strings (each freshly copied out of the lexer's scratch buffer by
// Lexer.span), so a Handler may retain them past the call without copying
// again — Go's immutable strings give the same safety the source achieves
// with an explicit "valid only for the duration of the call" rule.
type Handler func(subject, predicate, object, graph quad.Term) error

// ParseNTriples reads N-Triples text from r, calling handler once per
// triple with an empty-default-graph term in the graph position.
func ParseNTriples(r io.Reader, handler Handler) error {
	return parseLineGrammar(r, false, handler)
}

// ParseNQuads reads N-Quads text from r, calling handler once per quad.
func ParseNQuads(r io.Reader, handler Handler) error {
	return parseLineGrammar(r, true, handler)
}

// parseLineGrammar implements the shared N-Triples/N-Quads grammar: each
// statement is `subject predicate object [graph] '.'`, one per line
// (blank lines and '#' comments are skipped), built directly on the shared
// Lexer scaffold rather than a separate bufio.Scanner line reader.
func parseLineGrammar(r io.Reader, allowGraph bool, handler Handler) error {
	lx := NewLexer(r)
	defer lx.Close()
	alloc := &blankAllocator{}

	for {
		skipWhitespaceAndComments(lx)
		if lx.atEOF() {
			return nil
		}
		subj, err := parseNTSubject(lx, alloc)
		if err != nil {
			return err
		}
		skipRequiredSpace(lx)
		pred, err := parseNTIRI(lx)
		if err != nil {
			return err
		}
		skipRequiredSpace(lx)
		obj, err := parseNTObject(lx, alloc)
		if err != nil {
			return err
		}
		skipWhitespaceAndComments(lx)

		graph := quad.DefaultGraphTerm
		if allowGraph {
			if r, ok := lx.peek(); ok && r != '.' {
				graph, err = parseNTSubject(lx, alloc)
				if err != nil {
					return err
				}
				skipWhitespaceAndComments(lx)
			}
		}
		if !lx.tryConsume('.') {
			return syntaxErr(lx, "expected '.' to terminate statement")
		}
		if err := handler(subj, pred, obj, graph); err != nil {
			return err
		}
	}
}

func syntaxErr(lx *Lexer, msg string) error {
	return qerr.NewSyntaxError(lx.Line(), lx.Col(), msg)
}

func skipWhitespaceAndComments(lx *Lexer) {
	for {
		r, ok := lx.peek()
		if !ok {
			return
		}
		switch {
		case r == ' ' || r == '\t' || r == '\r' || r == '\n':
			lx.consume()
		case r == '#':
			for {
				r, ok := lx.peek()
				if !ok || r == '\n' {
					break
				}
				lx.consume()
			}
		default:
			return
		}
	}
}

func skipRequiredSpace(lx *Lexer) {
	for {
		r, ok := lx.peek()
		if !ok || (r != ' ' && r != '\t') {
			return
		}
		lx.consume()
	}
}

func parseNTSubject(lx *Lexer, alloc *blankAllocator) (quad.Term, error) {
	r, ok := lx.peek()
	if !ok {
		return quad.Term{}, syntaxErr(lx, "unexpected end of input")
	}
	switch r {
	case '<':
		return parseNTIRI(lx)
	case '_':
		return parseNTBlank(lx)
	default:
		return quad.Term{}, syntaxErr(lx, "expected IRI or blank node")
	}
}

func parseNTObject(lx *Lexer, alloc *blankAllocator) (quad.Term, error) {
	r, ok := lx.peek()
	if !ok {
		return quad.Term{}, syntaxErr(lx, "unexpected end of input")
	}
	switch r {
	case '<':
		return parseNTIRI(lx)
	case '_':
		return parseNTBlank(lx)
	case '"':
		return parseNTLiteral(lx)
	default:
		return quad.Term{}, syntaxErr(lx, "expected IRI, blank node, or literal")
	}
}

func parseNTIRI(lx *Lexer) (quad.Term, error) {
	if !lx.tryConsume('<') {
		return quad.Term{}, syntaxErr(lx, "expected '<' to start IRI")
	}
	lx.resetOutput()
	for {
		r, ok := lx.peek()
		if !ok {
			return quad.Term{}, syntaxErr(lx, "unterminated IRI")
		}
		if r == '>' {
			lx.consume()
			break
		}
		if r <= ' ' || r == '<' || r == '"' || r == '{' || r == '}' || r == '|' || r == '^' || r == '`' {
			if r != '\\' {
				return quad.Term{}, syntaxErr(lx, "IRI rejects raw whitespace and reserved characters")
			}
		}
		if r == '\\' {
			decoded, err := readEscape(lx)
			if err != nil {
				return quad.Term{}, err
			}
			lx.emit(decoded)
			continue
		}
		lx.consume()
		lx.emit(r)
	}
	return quad.IRI(lx.span()), nil
}

func parseNTBlank(lx *Lexer) (quad.Term, error) {
	if !lx.matchKeyword("_:", true) {
		return quad.Term{}, syntaxErr(lx, "expected '_:' to start blank node label")
	}
	lx.resetOutput()
	for {
		r, ok := lx.peek()
		if !ok || !isBlankLabelChar(r) {
			break
		}
		// A trailing '.' is the statement terminator, not part of the
		// label, unless followed by another label character.
		if r == '.' {
			if next, ok := lx.peekAheadRune(1); !ok || !isBlankLabelChar(next) {
				break
			}
		}
		lx.consume()
		lx.emit(r)
	}
	if len(lx.out) == 0 {
		return quad.Term{}, syntaxErr(lx, "empty blank node label")
	}
	return quad.Blank(lx.span()), nil
}

func isBlankLabelChar(r rune) bool {
	return r == '_' || r == '-' || r == '.' ||
		(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// peekAheadRune is a code-point-indexed convenience over peekAhead, used by
// grammars that need to look past a single already-decoded rune.
func (lx *Lexer) peekAheadRune(runesAhead int) (rune, bool) {
	off := 0
	var r rune
	var width int
	var ok bool
	for i := 0; i <= runesAhead; i++ {
		r, width, ok = lx.peekAhead(off)
		if !ok {
			return 0, false
		}
		off += width
	}
	return r, true
}

func parseNTLiteral(lx *Lexer) (quad.Term, error) {
	if !lx.tryConsume('"') {
		return quad.Term{}, syntaxErr(lx, "expected '\"' to start literal")
	}
	lx.resetOutput()
	for {
		r, ok := lx.peek()
		if !ok {
			return quad.Term{}, syntaxErr(lx, "unterminated string literal")
		}
		if r == '"' {
			lx.consume()
			break
		}
		if r == '\\' {
			decoded, err := readEscape(lx)
			if err != nil {
				return quad.Term{}, err
			}
			lx.emit(decoded)
			continue
		}
		lx.consume()
		lx.emit(r)
	}
	value := lx.span()

	if lx.tryConsume('@') {
		var lang strings.Builder
		for {
			r, ok := lx.peek()
			if !ok || !(r == '-' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
				break
			}
			lx.consume()
			lang.WriteRune(r)
		}
		return quad.LangLiteral(value, lang.String()), nil
	}
	if lx.matchKeyword("^^", true) {
		dt, err := parseNTIRI(lx)
		if err != nil {
			return quad.Term{}, err
		}
		return quad.TypedLiteral(value, dt.Value), nil
	}
	return quad.PlainLiteral(value), nil
}

// readEscape decodes a single backslash escape sequence (\t \b \n \r \f \"
// \' \\ \uXXXX \UXXXXXXXX), rejecting lone or surrogate \u escapes, per
// the "surrogate code points rejected" edge case. Grounded on the
// escape/unescape handling in gonum's N-Quads reader.
func readEscape(lx *Lexer) (rune, error) {
	lx.consume() // the backslash
	r, ok := lx.consume()
	if !ok {
		return 0, syntaxErr(lx, "unterminated escape sequence")
	}
	switch r {
	case 't':
		return '\t', nil
	case 'b':
		return '\b', nil
	case 'n':
		return '\n', nil
	case 'r':
		return '\r', nil
	case 'f':
		return '\f', nil
	case '"':
		return '"', nil
	case '\'':
		return '\'', nil
	case '\\':
		return '\\', nil
	case 'u':
		return readHexEscape(lx, 4)
	case 'U':
		return readHexEscape(lx, 8)
	default:
		return 0, syntaxErr(lx, "unknown escape sequence")
	}
}

func readHexEscape(lx *Lexer, digits int) (rune, error) {
	var v rune
	for i := 0; i < digits; i++ {
		r, ok := lx.consume()
		if !ok {
			return 0, syntaxErr(lx, "truncated unicode escape")
		}
		d, ok := hexDigit(r)
		if !ok {
			return 0, syntaxErr(lx, "invalid hex digit in unicode escape")
		}
		v = v<<4 | rune(d)
	}
	if v >= 0xD800 && v <= 0xDFFF {
		return 0, syntaxErr(lx, "surrogate code point rejected")
	}
	return v, nil
}

func hexDigit(r rune) (int, bool) {
	switch {
	case r >= '0' && r <= '9':
		return int(r - '0'), true
	case r >= 'a' && r <= 'f':
		return int(r-'a') + 10, true
	case r >= 'A' && r <= 'F':
		return int(r-'A') + 10, true
	default:
		return 0, false
	}
}
