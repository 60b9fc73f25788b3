package dict

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/quaddb/quaddb/pkg/quad"
)

// heapRecordKind tags what a string-heap record encodes, so Load can
// reconstruct a Term's Kind without a separate side table.
type heapRecordKind uint8

const (
	heapIRI heapRecordKind = iota
	heapBlank
	heapLiteralPlain
	heapLiteralLang
	heapLiteralTyped
)

// WriteHeap appends every non-reserved atom's term to w in atom-id order,
// one length-prefixed record per atom, matching the append-only
// atoms.strings layout described for the on-disk store: atom id is
// implicitly the record's ordinal position (offset by firstAssignable),
// since atoms are only ever appended.
func (d *Dictionary) WriteHeap(w io.Writer) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	bw := bufio.NewWriter(w)
	for id := firstAssignable; int(id) < len(d.byAtom); id++ {
		if err := writeHeapRecord(bw, d.byAtom[id]); err != nil {
			return fmt.Errorf("dict: write heap record for atom %d: %w", id, err)
		}
	}
	return bw.Flush()
}

// AppendHeap writes records for atoms in [from, Len()) to w, for callers
// that maintain an incrementally-appended heap file: the heap is
// append-only, so persisting only the atoms interned since the last append
// keeps commit-time durability proportional to the new atoms, not the
// whole dictionary.
func (d *Dictionary) AppendHeap(w io.Writer, from int) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	start := quad.AtomID(from)
	if start < firstAssignable {
		start = firstAssignable
	}
	bw := bufio.NewWriter(w)
	for id := start; int(id) < len(d.byAtom); id++ {
		if err := writeHeapRecord(bw, d.byAtom[id]); err != nil {
			return fmt.Errorf("dict: append heap record for atom %d: %w", id, err)
		}
	}
	return bw.Flush()
}

func writeHeapRecord(w *bufio.Writer, t quad.Term) error {
	var kind heapRecordKind
	switch {
	case t.Kind == quad.KindIRI:
		kind = heapIRI
	case t.Kind == quad.KindBlank:
		kind = heapBlank
	case t.Kind == quad.KindLiteral && t.Lang != "":
		kind = heapLiteralLang
	case t.Kind == quad.KindLiteral && t.Datatype != "":
		kind = heapLiteralTyped
	default:
		kind = heapLiteralPlain
	}

	if err := w.WriteByte(byte(kind)); err != nil {
		return err
	}
	if err := writeLenPrefixed(w, t.Value); err != nil {
		return err
	}
	switch kind {
	case heapLiteralLang:
		return writeLenPrefixed(w, t.Lang)
	case heapLiteralTyped:
		return writeLenPrefixed(w, t.Datatype)
	}
	return nil
}

func writeLenPrefixed(w *bufio.Writer, s string) error {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(s)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.WriteString(s)
	return err
}

// LoadHeap rebuilds a Dictionary by replaying the records written by
// WriteHeap, reassigning atom ids in the same append order they were
// originally interned in — required for recovery to preserve the ids that
// existing index entries reference.
func LoadHeap(r io.Reader) (*Dictionary, error) {
	d := New()
	br := bufio.NewReader(r)

	for {
		kindByte, err := br.ReadByte()
		if err == io.EOF {
			return d, nil
		}
		if err != nil {
			return nil, fmt.Errorf("dict: read heap record kind: %w", err)
		}

		value, err := readLenPrefixed(br)
		if isTornTail(err) {
			return d, nil
		}
		if err != nil {
			return nil, fmt.Errorf("dict: read heap record value: %w", err)
		}

		var t quad.Term
		switch heapRecordKind(kindByte) {
		case heapIRI:
			t = quad.IRI(value)
		case heapBlank:
			t = quad.Blank(value)
		case heapLiteralPlain:
			t = quad.PlainLiteral(value)
		case heapLiteralLang:
			lang, err := readLenPrefixed(br)
			if isTornTail(err) {
				return d, nil
			}
			if err != nil {
				return nil, fmt.Errorf("dict: read heap record lang: %w", err)
			}
			t = quad.LangLiteral(value, lang)
		case heapLiteralTyped:
			dt, err := readLenPrefixed(br)
			if isTornTail(err) {
				return d, nil
			}
			if err != nil {
				return nil, fmt.Errorf("dict: read heap record datatype: %w", err)
			}
			t = quad.TypedLiteral(value, dt)
		default:
			return nil, fmt.Errorf("dict: unknown heap record kind %d", kindByte)
		}

		id := quad.AtomID(len(d.byAtom))
		d.byAtom = append(d.byAtom, t)
		d.byText[t.SortKey()] = id
	}
}

// isTornTail reports whether err is the truncated-read signature of a heap
// file whose final record was cut short by a crash mid-append. The torn
// record's atom was never referenced by a committed transaction (the heap
// is fsynced before the WAL's commit frame), so dropping it is safe.
func isTornTail(err error) bool {
	return err == io.EOF || err == io.ErrUnexpectedEOF
}

func readLenPrefixed(r *bufio.Reader) (string, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return "", err
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// LoadHeapFile opens path and replays it via LoadHeap; a missing file is
// treated as an empty, freshly-created dictionary.
func LoadHeapFile(path string) (*Dictionary, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("dict: open %s: %w", path, err)
	}
	defer f.Close()
	return LoadHeap(f)
}
