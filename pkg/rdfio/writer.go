package rdfio

import (
	"bufio"
	"io"

	"github.com/quaddb/quaddb/pkg/quad"
)

// WriteNQuads writes q to w in canonical N-Quads form: one line per quad,
// `subject predicate object [graph] .\n`, using Term.String's canonical
// rendering. The default graph is omitted: an absent graph term denotes
// the default graph.
func WriteNQuads(w io.Writer, q quad.Quad) error {
	bw := bufferedWriter(w)
	if err := writeNQuadLine(bw, q); err != nil {
		return err
	}
	return bw.Flush()
}

// NQuadsWriter batches many WriteQuad calls behind one buffered writer,
// for use by CONSTRUCT/DESCRIBE result serialization and round-trip tests.
type NQuadsWriter struct {
	bw *bufio.Writer
}

func NewNQuadsWriter(w io.Writer) *NQuadsWriter {
	return &NQuadsWriter{bw: bufferedWriter(w)}
}

func (nw *NQuadsWriter) WriteQuad(q quad.Quad) error {
	return writeNQuadLine(nw.bw, q)
}

func (nw *NQuadsWriter) Flush() error { return nw.bw.Flush() }

func writeNQuadLine(bw *bufio.Writer, q quad.Quad) error {
	if _, err := bw.WriteString(q.Subject.String()); err != nil {
		return err
	}
	if err := bw.WriteByte(' '); err != nil {
		return err
	}
	if _, err := bw.WriteString(q.Predicate.String()); err != nil {
		return err
	}
	if err := bw.WriteByte(' '); err != nil {
		return err
	}
	if _, err := bw.WriteString(q.Object.String()); err != nil {
		return err
	}
	if q.Graph.Kind != quad.KindDefaultGraph {
		if err := bw.WriteByte(' '); err != nil {
			return err
		}
		if _, err := bw.WriteString(q.Graph.String()); err != nil {
			return err
		}
	}
	_, err := bw.WriteString(" .\n")
	return err
}

// WriteNTriples writes q to w in canonical N-Triples form, dropping the
// graph position entirely (N-Triples has no graph slot).
func WriteNTriples(w io.Writer, q quad.Quad) error {
	bw := bufferedWriter(w)
	if _, err := bw.WriteString(q.Subject.String()); err != nil {
		return err
	}
	if err := bw.WriteByte(' '); err != nil {
		return err
	}
	if _, err := bw.WriteString(q.Predicate.String()); err != nil {
		return err
	}
	if err := bw.WriteByte(' '); err != nil {
		return err
	}
	if _, err := bw.WriteString(q.Object.String()); err != nil {
		return err
	}
	if _, err := bw.WriteString(" .\n"); err != nil {
		return err
	}
	return bw.Flush()
}

func bufferedWriter(w io.Writer) *bufio.Writer {
	if bw, ok := w.(*bufio.Writer); ok {
		return bw
	}
	return bufio.NewWriter(w)
}
