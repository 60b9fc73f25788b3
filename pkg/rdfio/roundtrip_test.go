package rdfio_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/quaddb/quaddb/pkg/quad"
	"github.com/quaddb/quaddb/pkg/rdfio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNQuadsWriteThenParseRoundTrips(t *testing.T) {
	in := quad.Quad{
		Subject:   quad.IRI("http://ex/s"),
		Predicate: quad.IRI("http://ex/p"),
		Object:    quad.TypedLiteral("42", "http://www.w3.org/2001/XMLSchema#integer"),
		Graph:     quad.IRI("http://ex/g"),
	}
	var buf bytes.Buffer
	require.NoError(t, rdfio.WriteNQuads(&buf, in))

	var got []quad.Quad
	err := rdfio.ParseNQuads(&buf, func(s, p, o, g quad.Term) error {
		got = append(got, quad.Quad{Subject: s, Predicate: p, Object: o, Graph: g})
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, in, got[0])
}

func TestNQuadsWriterOmitsDefaultGraph(t *testing.T) {
	in := quad.Quad{
		Subject:   quad.IRI("http://ex/s"),
		Predicate: quad.IRI("http://ex/p"),
		Object:    quad.PlainLiteral("v"),
		Graph:     quad.DefaultGraphTerm,
	}
	var buf bytes.Buffer
	require.NoError(t, rdfio.WriteNQuads(&buf, in))
	assert.False(t, strings.Contains(buf.String(), "http://ex/g"))

	var got []quad.Quad
	require.NoError(t, rdfio.ParseNQuads(&buf, func(s, p, o, g quad.Term) error {
		got = append(got, quad.Quad{Subject: s, Predicate: p, Object: o, Graph: g})
		return nil
	}))
	require.Len(t, got, 1)
	assert.Equal(t, quad.DefaultGraphTerm, got[0].Graph)
}

func TestNTriplesRoundTripsLangTaggedLiteral(t *testing.T) {
	src := `<http://ex/s> <http://ex/p> "bonjour"@fr .` + "\n"
	var got []quad.Term
	require.NoError(t, rdfio.ParseNTriples(strings.NewReader(src), func(s, p, o, g quad.Term) error {
		got = append(got, o)
		return nil
	}))
	require.Len(t, got, 1)
	assert.Equal(t, "bonjour", got[0].Value)
	assert.Equal(t, "fr", got[0].Lang)
}

func TestNTriplesRejectsUnterminatedStatement(t *testing.T) {
	src := `<http://ex/s> <http://ex/p> "no terminator"` + "\n"
	err := rdfio.ParseNTriples(strings.NewReader(src), func(s, p, o, g quad.Term) error { return nil })
	assert.Error(t, err)
}

func TestNTriplesRejectsSurrogateEscape(t *testing.T) {
	src := `<http://ex/s> <http://ex/p> "\uD800" .` + "\n"
	err := rdfio.ParseNTriples(strings.NewReader(src), func(s, p, o, g quad.Term) error { return nil })
	assert.Error(t, err)
}

func TestTurtlePrefixedNameExpandsToFullIRI(t *testing.T) {
	src := `@prefix ex: <http://ex/> .
ex:s ex:p "v" .
`
	var got []quad.Term
	require.NoError(t, rdfio.ParseTurtle(strings.NewReader(src), "", func(s, p, o, g quad.Term) error {
		got = append(got, s, p)
		return nil
	}))
	require.Len(t, got, 2)
	assert.Equal(t, "http://ex/s", got[0].Value)
	assert.Equal(t, "http://ex/p", got[1].Value)
}

func TestTriGNamedGraphBlock(t *testing.T) {
	src := `@prefix ex: <http://ex/> .
ex:g1 { ex:s ex:p "v" . }
`
	var graphs []quad.Term
	require.NoError(t, rdfio.ParseTriG(strings.NewReader(src), "", func(s, p, o, g quad.Term) error {
		graphs = append(graphs, g)
		return nil
	}))
	require.Len(t, graphs, 1)
	assert.Equal(t, "http://ex/g1", graphs[0].Value)
}

func TestTurtleEmptyCollectionIsRDFNil(t *testing.T) {
	src := `@prefix ex: <http://ex/> .
ex:s ex:p () .
`
	var got []quad.Quad
	require.NoError(t, rdfio.ParseTurtle(strings.NewReader(src), "", func(s, p, o, g quad.Term) error {
		got = append(got, quad.Quad{Subject: s, Predicate: p, Object: o, Graph: g})
		return nil
	}))
	require.Len(t, got, 1)
	assert.Equal(t, "http://www.w3.org/1999/02/22-rdf-syntax-ns#nil", got[0].Object.Value)
}

func TestTurtleCollectionEmitsFirstRestChain(t *testing.T) {
	src := `@prefix ex: <http://ex/> .
ex:s ex:p (ex:a ex:b) .
`
	var preds []string
	require.NoError(t, rdfio.ParseTurtle(strings.NewReader(src), "", func(s, p, o, g quad.Term) error {
		preds = append(preds, p.Value)
		return nil
	}))
	// Two cells, each contributing rdf:first and rdf:rest, plus the
	// statement's own triple once the head cell is known.
	require.Len(t, preds, 5)
	first, rest := 0, 0
	for _, p := range preds {
		switch p {
		case "http://www.w3.org/1999/02/22-rdf-syntax-ns#first":
			first++
		case "http://www.w3.org/1999/02/22-rdf-syntax-ns#rest":
			rest++
		}
	}
	assert.Equal(t, 2, first)
	assert.Equal(t, 2, rest)
}

func TestTurtleNestedBlankNodePropertyListsGetFreshLabels(t *testing.T) {
	src := `@prefix ex: <http://ex/> .
[ ex:p [ ex:q "v" ] ] .
`
	var quads []quad.Quad
	require.NoError(t, rdfio.ParseTurtle(strings.NewReader(src), "", func(s, p, o, g quad.Term) error {
		quads = append(quads, quad.Quad{Subject: s, Predicate: p, Object: o, Graph: g})
		return nil
	}))
	require.Len(t, quads, 2)
	// The inner list's triple is emitted first; its subject must differ
	// from the outer list's.
	assert.True(t, quads[0].Subject.IsBlank())
	assert.True(t, quads[1].Subject.IsBlank())
	assert.NotEqual(t, quads[0].Subject.Value, quads[1].Subject.Value)
	assert.Equal(t, quads[0].Subject, quads[1].Object)
}

func TestTurtleNumericLiteralBoundaries(t *testing.T) {
	src := `@prefix ex: <http://ex/> .
ex:s ex:p .5 .
ex:s ex:q 1e1 .
ex:s ex:r 1 .
`
	var objs []quad.Term
	require.NoError(t, rdfio.ParseTurtle(strings.NewReader(src), "", func(s, p, o, g quad.Term) error {
		objs = append(objs, o)
		return nil
	}))
	require.Len(t, objs, 3)
	assert.Equal(t, ".5", objs[0].Value)
	assert.Equal(t, "http://www.w3.org/2001/XMLSchema#decimal", objs[0].Datatype)
	assert.Equal(t, "1e1", objs[1].Value)
	assert.Equal(t, "http://www.w3.org/2001/XMLSchema#double", objs[1].Datatype)
	assert.Equal(t, "1", objs[2].Value)
	assert.Equal(t, "http://www.w3.org/2001/XMLSchema#integer", objs[2].Datatype)
}

func TestFormatFromContentTypeIgnoresCharsetParameter(t *testing.T) {
	assert.Equal(t, rdfio.Turtle, rdfio.FormatFromContentType("text/turtle; charset=utf-8"))
	assert.Equal(t, rdfio.Unknown, rdfio.FormatFromContentType("application/octet-stream"))
}

func TestPreferredFormatRespectsQValues(t *testing.T) {
	got := rdfio.PreferredFormat("application/rdf+xml;q=0.1, text/turtle;q=0.9")
	assert.Equal(t, rdfio.Turtle, got)
}
