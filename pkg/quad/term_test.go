package quad

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTermString(t *testing.T) {
	tests := []struct {
		name string
		term Term
		want string
	}{
		{"iri", IRI("http://ex/s"), "<http://ex/s>"},
		{"blank", Blank("b0"), "_:b0"},
		{"plain literal", PlainLiteral("hello"), `"hello"`},
		{"lang literal", LangLiteral("hello", "en"), `"hello"@en`},
		{"typed literal", TypedLiteral("42", "http://www.w3.org/2001/XMLSchema#integer"), `"42"^^<http://www.w3.org/2001/XMLSchema#integer>`},
		{"default graph", DefaultGraphTerm, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.term.String())
		})
	}
}

func TestTermKindPredicates(t *testing.T) {
	assert.True(t, IRI("http://ex/s").IsIRI())
	assert.False(t, IRI("http://ex/s").IsBlank())
	assert.True(t, Blank("b0").IsBlank())
	assert.True(t, PlainLiteral("x").IsLiteral())
	assert.False(t, PlainLiteral("x").IsIRI())
}

func TestSortKeyDistinguishesKindAndFields(t *testing.T) {
	a := LangLiteral("v", "en")
	b := TypedLiteral("v", "http://example/dt")
	assert.NotEqual(t, a.SortKey(), b.SortKey())
	assert.NotEqual(t, a.SortKey(), IRI("v").SortKey())
}

func TestTermEquality(t *testing.T) {
	// Term is a plain comparable struct; two Terms built the same way must
	// compare equal so the dictionary and binding-table machinery can use
	// it as a map key (NamedGraphs' dedup relies on this).
	assert.Equal(t, IRI("http://ex/g1"), IRI("http://ex/g1"))
	assert.NotEqual(t, IRI("http://ex/g1"), IRI("http://ex/g2"))
}
