package rdfio

import (
	"io"
	"unicode/utf8"

	"github.com/quaddb/quaddb/pkg/bufpool"
	"github.com/quaddb/quaddb/pkg/qerr"
)

// lowWatermark is the unread-byte threshold below which the lexer refills
// its input buffer, per the "refill when consumption crosses a
// low-watermark" contract.
const lowWatermark = 64

const inputBufCapacity = 8192

// Lexer is the shared streaming scaffold for all RDF text grammars: it
// decodes UTF-8 code points from r, tracks (line, column) for diagnostics,
// and owns a growing output buffer that grammars append term bytes to.
// A Lexer is not safe for concurrent use — one instance per input stream.
type Lexer struct {
	r   io.Reader
	buf []byte
	pos int // next unread byte within buf
	end int // end of valid data within buf
	eof bool

	line, col int

	out []byte // pooled output scratch buffer for the term currently being built
}

// NewLexer wraps r in a Lexer ready to scan from line 1, column 0.
func NewLexer(r io.Reader) *Lexer {
	buf := bufpool.Shared.Rent(inputBufCapacity)
	return &Lexer{
		r:    r,
		buf:  buf[:cap(buf)],
		line: 1,
	}
}

// Close returns the lexer's pooled buffers. After Close the Lexer must not
// be used again.
func (lx *Lexer) Close() {
	bufpool.Shared.Return(lx.buf)
	if lx.out != nil {
		bufpool.Shared.Return(lx.out)
	}
	lx.buf, lx.out = nil, nil
}

// Line and Col report the lexer's current position, 1-based and 0-based
// respectively, for SyntaxError construction.
func (lx *Lexer) Line() int { return lx.line }
func (lx *Lexer) Col() int  { return lx.col }

// refill slides the unread remainder to the front of buf and reads more
// input when fewer than lowWatermark unread bytes remain.
func (lx *Lexer) refill() error {
	if lx.eof || lx.end-lx.pos >= lowWatermark {
		return nil
	}
	return lx.fill()
}

// fill performs one unconditional read, sliding the unread remainder to
// the front of buf (and growing buf if it is already full of unread data).
func (lx *Lexer) fill() error {
	if lx.eof {
		return nil
	}
	if lx.pos > 0 {
		n := copy(lx.buf, lx.buf[lx.pos:lx.end])
		lx.pos, lx.end = 0, n
	}
	if lx.end == len(lx.buf) {
		grown := bufpool.Shared.Rent(len(lx.buf) * 2)
		grown = grown[:cap(grown)]
		copy(grown, lx.buf[:lx.end])
		bufpool.Shared.Return(lx.buf[:0])
		lx.buf = grown
	}
	n, err := lx.r.Read(lx.buf[lx.end:])
	lx.end += n
	if err != nil {
		if err == io.EOF {
			lx.eof = true
			return nil
		}
		return qerr.NewStorageIOError("read rdf input", err)
	}
	return nil
}

// ensure buffers at least n unread bytes (or everything up to EOF), so a
// caller may snapshot the lexer and restore it after a bounded lookahead:
// within the ensured window no peek or consume triggers a refill, and a
// refill is the only operation that slides data out from under a saved
// position.
func (lx *Lexer) ensure(n int) {
	for lx.end-lx.pos < n && !lx.eof {
		if err := lx.fill(); err != nil {
			return
		}
	}
}

// peekAhead decodes the rune starting at byte offset off bytes past the
// current position without consuming it. It returns ok=false at end of
// input. A non-UTF-8 byte sequence decodes as utf8.RuneError with width 1,
// matching strict "reject raw malformed input" parsing.
func (lx *Lexer) peekAhead(off int) (r rune, width int, ok bool) {
	for lx.pos+off >= lx.end && !lx.eof {
		if err := lx.refill(); err != nil {
			return utf8.RuneError, 0, false
		}
		if lx.pos+off >= lx.end && lx.eof {
			break
		}
	}
	if lx.pos+off >= lx.end {
		return 0, 0, false
	}
	r, width = utf8.DecodeRune(lx.buf[lx.pos+off : lx.end])
	return r, width, true
}

// peek returns the next rune without consuming it.
func (lx *Lexer) peek() (rune, bool) {
	r, _, ok := lx.peekAhead(0)
	return r, ok
}

// consume advances past the next rune, updating line/column, and returns it.
func (lx *Lexer) consume() (rune, bool) {
	r, width, ok := lx.peekAhead(0)
	if !ok {
		return 0, false
	}
	lx.pos += width
	if r == '\n' {
		lx.line++
		lx.col = 0
	} else {
		lx.col++
	}
	return r, true
}

// tryConsume consumes the next rune iff it equals expected, reporting
// whether it did.
func (lx *Lexer) tryConsume(expected rune) bool {
	r, ok := lx.peek()
	if !ok || r != expected {
		return false
	}
	lx.consume()
	return true
}

// matchKeyword consumes len(kw) runes iff they equal kw (respecting
// caseSensitive), reporting whether it matched. On a non-match, the lexer
// position is left unchanged.
func (lx *Lexer) matchKeyword(kw string, caseSensitive bool) bool {
	runes := []rune(kw)
	for i, want := range runes {
		r, _, ok := lx.peekAhead(runeOffset(runes[:i]))
		if !ok {
			return false
		}
		if !caseSensitive {
			r = toLowerASCII(r)
			want = toLowerASCII(want)
		}
		if r != want {
			return false
		}
	}
	for range runes {
		lx.consume()
	}
	return true
}

func runeOffset(rs []rune) int {
	n := 0
	for _, r := range rs {
		n += utf8.RuneLen(r)
	}
	return n
}

func toLowerASCII(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r + ('a' - 'A')
	}
	return r
}

// resetOutput truncates the output scratch buffer, growing it via the pool
// on first use.
func (lx *Lexer) resetOutput() {
	if lx.out == nil {
		lx.out = bufpool.Shared.Rent(256)
	}
	lx.out = lx.out[:0]
}

// emit appends r's UTF-8 encoding to the output buffer.
func (lx *Lexer) emit(r rune) {
	var tmp [utf8.UTFMax]byte
	n := utf8.EncodeRune(tmp[:], r)
	lx.out = append(lx.out, tmp[:n]...)
}

// emitByte appends a single already-ASCII byte to the output buffer.
func (lx *Lexer) emitByte(b byte) {
	lx.out = append(lx.out, b)
}

// span returns the output buffer's contents built up since the last
// resetOutput. The returned string is a fresh copy: Go's string immutability
// makes an unsafe zero-copy reinterpretation of out unsound once out is
// reused by the next resetOutput, so this spends one copy per term rather
// than risk aliasing.
func (lx *Lexer) span() string {
	return string(lx.out)
}

// atEOF reports whether every byte of input has been consumed.
func (lx *Lexer) atEOF() bool {
	_, ok := lx.peek()
	return !ok
}
