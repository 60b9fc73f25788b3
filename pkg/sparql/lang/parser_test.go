package lang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuerySelectStarSetsStarAndLeavesProjectEmpty(t *testing.T) {
	q, err := ParseQuery(`SELECT * WHERE { ?s ?p ?o }`)
	require.NoError(t, err)
	assert.Equal(t, KindSelect, q.Kind)
	assert.True(t, q.Star)
	assert.Empty(t, q.Project)
	assert.Greater(t, q.RootCount, 0)
}

func TestParseQuerySelectDistinctWithExplicitVars(t *testing.T) {
	q, err := ParseQuery(`SELECT DISTINCT ?s ?o WHERE { ?s ?p ?o }`)
	require.NoError(t, err)
	assert.True(t, q.Distinct)
	require.Len(t, q.Project, 2)
	assert.Equal(t, "s", q.Project[0].Var)
	assert.Equal(t, "o", q.Project[1].Var)
}

func TestParseQueryAskSetsKindAsk(t *testing.T) {
	q, err := ParseQuery(`ASK { ?s ?p ?o }`)
	require.NoError(t, err)
	assert.Equal(t, KindAsk, q.Kind)
}

func TestParseQueryLimitAndOffset(t *testing.T) {
	q, err := ParseQuery(`SELECT * WHERE { ?s ?p ?o } LIMIT 10 OFFSET 5`)
	require.NoError(t, err)
	assert.Equal(t, int64(10), q.Limit)
	assert.Equal(t, int64(5), q.Offset)
}

func TestParseQueryDefaultLimitIsUnset(t *testing.T) {
	q, err := ParseQuery(`SELECT * WHERE { ?s ?p ?o }`)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), q.Limit)
}

func TestParseQueryRecordsProloguePrefix(t *testing.T) {
	q, err := ParseQuery(`PREFIX ex: <http://ex/> SELECT * WHERE { ?s ex:p ?o }`)
	require.NoError(t, err)
	require.Len(t, q.Prefixes, 1)
	assert.Equal(t, "http://ex/", q.Prefixes[0].IRI)
}

func TestParseQueryRejectsUnclosedBrace(t *testing.T) {
	_, err := ParseQuery(`SELECT * WHERE { ?s ?p ?o`)
	assert.Error(t, err)
}

func TestParseQueryRejectsGarbageKeyword(t *testing.T) {
	_, err := ParseQuery(`NOTAVERB * WHERE { ?s ?p ?o }`)
	assert.Error(t, err)
}

func TestLexNumberLeadingDotDecimal(t *testing.T) {
	lx := newLexer(`.5`)
	tok, err := lx.next()
	require.NoError(t, err)
	assert.Equal(t, DECIMAL, tok.Kind)
	assert.Equal(t, ".5", tok.Text)
}

func TestLexNumberExponentWithoutDecimalPoint(t *testing.T) {
	lx := newLexer(`1e1`)
	tok, err := lx.next()
	require.NoError(t, err)
	assert.Equal(t, DOUBLE, tok.Kind)
	assert.Equal(t, "1e1", tok.Text)
}

func TestLexNumberExponentRequiresDigit(t *testing.T) {
	lx := newLexer(`1e`)
	_, err := lx.next()
	assert.Error(t, err)
}

func TestParseQueryOptionalAndMinus(t *testing.T) {
	q, err := ParseQuery(`SELECT * WHERE {
		?s ?p ?o
		OPTIONAL { ?s <http://ex/extra> ?x }
		MINUS { ?s <http://ex/excluded> ?y }
	}`)
	require.NoError(t, err)
	assert.Greater(t, q.RootCount, 0)
}

func TestParseQueryGraphVariable(t *testing.T) {
	q, err := ParseQuery(`SELECT ?g ?s WHERE { GRAPH ?g { ?s ?p ?o } }`)
	require.NoError(t, err)
	assert.Equal(t, KindSelect, q.Kind)
}

func TestParseQueryConstructPopulatesTemplate(t *testing.T) {
	q, err := ParseQuery(`CONSTRUCT { ?s <http://ex/p> ?o } WHERE { ?s <http://ex/p> ?o }`)
	require.NoError(t, err)
	assert.Equal(t, KindConstruct, q.Kind)
	assert.NotEmpty(t, q.ConstructTemplate)
}
