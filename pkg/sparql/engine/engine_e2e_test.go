package engine_test

import (
	"testing"

	"github.com/quaddb/quaddb/pkg/qconfig"
	"github.com/quaddb/quaddb/pkg/qstore"
	"github.com/quaddb/quaddb/pkg/quad"
	"github.com/quaddb/quaddb/pkg/sparql/engine"
	"github.com/quaddb/quaddb/pkg/sparql/lang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *qstore.Store {
	t.Helper()
	cfg := qconfig.Default()
	cfg.DataDir = t.TempDir()
	s, err := qstore.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func cellTerm(t *testing.T, res *engine.Result, c quad.Cell) quad.Term {
	t.Helper()
	term, ok := res.Term(c)
	require.True(t, ok)
	return term
}

func indexOf(vars []string, name string) int {
	for i, v := range vars {
		if v == name {
			return i
		}
	}
	return -1
}

// TestBasicRoundTrip is spec.md §8 scenario 1.
func TestBasicRoundTrip(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.AssertCurrent(quad.IRI("http://ex/s"), quad.IRI("http://ex/p"), quad.PlainLiteral("v"), quad.DefaultGraphTerm))

	res, err := engine.Execute(s, "SELECT * WHERE { ?s ?p ?o }")
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)

	row := res.Rows[0]
	assert.Equal(t, quad.IRI("http://ex/s"), cellTerm(t, res, row[indexOf(res.Vars, "s")]))
	assert.Equal(t, quad.IRI("http://ex/p"), cellTerm(t, res, row[indexOf(res.Vars, "p")]))
	assert.Equal(t, quad.PlainLiteral("v"), cellTerm(t, res, row[indexOf(res.Vars, "o")]))
}

// TestNamedGraphIsolation is spec.md §8 scenario 2.
func TestNamedGraphIsolation(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.AssertCurrent(quad.IRI("http://ex/s"), quad.IRI("http://ex/p"), quad.PlainLiteral("v"), quad.IRI("http://ex/g1")))

	res, err := engine.Execute(s, `SELECT * WHERE { <http://ex/s> ?p ?o }`)
	require.NoError(t, err)
	assert.Empty(t, res.Rows, "the quad was asserted into a named graph, so a default-graph query must see nothing")

	res, err = engine.Execute(s, `SELECT * WHERE { GRAPH <http://ex/g1> { <http://ex/s> ?p ?o } }`)
	require.NoError(t, err)
	assert.Len(t, res.Rows, 1)
}

// TestOptionalLeftOuterJoin is spec.md §8 scenario 3.
func TestOptionalLeftOuterJoin(t *testing.T) {
	s := openTestStore(t)
	xsdInt := "http://www.w3.org/2001/XMLSchema#integer"
	require.NoError(t, s.AssertCurrent(quad.IRI("http://ex/a"), quad.IRI("http://ex/p"), quad.TypedLiteral("1", xsdInt), quad.DefaultGraphTerm))
	require.NoError(t, s.AssertCurrent(quad.IRI("http://ex/b"), quad.IRI("http://ex/p"), quad.TypedLiteral("2", xsdInt), quad.DefaultGraphTerm))
	require.NoError(t, s.AssertCurrent(quad.IRI("http://ex/a"), quad.IRI("http://ex/q"), quad.PlainLiteral("hi"), quad.DefaultGraphTerm))

	res, err := engine.Execute(s, `SELECT ?s ?v WHERE {
		?s <http://ex/p> ?x
		OPTIONAL { ?s <http://ex/q> ?v }
	}`)
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)

	sIdx, vIdx := indexOf(res.Vars, "s"), indexOf(res.Vars, "v")
	bound := map[string]string{}
	for _, row := range res.Rows {
		subj := cellTerm(t, res, row[sIdx]).Value
		if row[vIdx].Tag == quad.TagAtom {
			bound[subj] = cellTerm(t, res, row[vIdx]).Value
		} else {
			bound[subj] = ""
		}
	}
	assert.Equal(t, "hi", bound["http://ex/a"])
	assert.Equal(t, "", bound["http://ex/b"])
}

// TestBitemporalAsOf is spec.md §8 scenario 4.
func TestBitemporalAsOf(t *testing.T) {
	s := openTestStore(t)
	x, p := quad.IRI("http://ex/x"), quad.IRI("http://ex/p")
	xsdInt := "http://www.w3.org/2001/XMLSchema#integer"
	one := quad.TypedLiteral("1", xsdInt)
	two := quad.TypedLiteral("2", xsdInt)

	require.NoError(t, s.Assert(x, p, one, quad.DefaultGraphTerm, 10, 20))
	require.NoError(t, s.Assert(x, p, two, quad.DefaultGraphTerm, 30, quad.Forever))

	assertAsOf := func(asOf int64, want string) {
		cur := s.QueryAsOf(&x, &p, nil, nil, asOf)
		q, ok, err := cur.Next()
		require.NoError(t, err)
		if want == "" {
			assert.False(t, ok)
			return
		}
		require.True(t, ok)
		assert.Equal(t, want, q.Object.Value)
		_, ok, err = cur.Next()
		require.NoError(t, err)
		assert.False(t, ok)
	}
	assertAsOf(15, "1")
	assertAsOf(25, "")
	assertAsOf(35, "2")
}

// TestOrderBySortsUnboundBelowEveryBoundTerm covers the unbound < blank <
// IRI < literal term order: a row whose ORDER BY variable is left unbound
// by an OPTIONAL must sort before every row that binds it.
func TestOrderBySortsUnboundBelowEveryBoundTerm(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.AssertCurrent(quad.IRI("http://ex/a"), quad.IRI("http://ex/p"), quad.PlainLiteral("1"), quad.DefaultGraphTerm))
	require.NoError(t, s.AssertCurrent(quad.IRI("http://ex/b"), quad.IRI("http://ex/p"), quad.PlainLiteral("2"), quad.DefaultGraphTerm))
	require.NoError(t, s.AssertCurrent(quad.IRI("http://ex/a"), quad.IRI("http://ex/q"), quad.PlainLiteral("hi"), quad.DefaultGraphTerm))

	res, err := engine.Execute(s, `SELECT ?s ?v WHERE {
		?s <http://ex/p> ?x
		OPTIONAL { ?s <http://ex/q> ?v }
	} ORDER BY ?v`)
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)

	vIdx := indexOf(res.Vars, "v")
	assert.Equal(t, quad.TagUnbound, res.Rows[0][vIdx].Tag, "the unbound row must sort first")
	assert.Equal(t, quad.TagAtom, res.Rows[1][vIdx].Tag)
}

// TestAggregateSum is spec.md §8 scenario 6.
func TestAggregateSum(t *testing.T) {
	s := openTestStore(t)
	a, p := quad.IRI("http://ex/a"), quad.IRI("http://ex/p")
	xsdInt := "http://www.w3.org/2001/XMLSchema#integer"
	for _, v := range []string{"1", "2", "3", "4", "5"} {
		require.NoError(t, s.AssertCurrent(a, p, quad.TypedLiteral(v, xsdInt), quad.DefaultGraphTerm))
	}

	res, err := engine.Execute(s, `SELECT (SUM(?v) AS ?s) WHERE { <http://ex/a> <http://ex/p> ?v }`)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)

	idx := indexOf(res.Vars, "s")
	term := cellTerm(t, res, res.Rows[0][idx])
	assert.Equal(t, "15", term.Value)
	assert.Equal(t, xsdInt, term.Datatype)
}

// TestSelectStarReturnsEveryAssertedTripleOnce is the second boundary
// behavior listed under spec.md §8 Round-trips.
func TestSelectStarReturnsEveryAssertedTripleOnce(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.AssertCurrent(quad.IRI("http://ex/a"), quad.IRI("http://ex/p"), quad.PlainLiteral("1"), quad.DefaultGraphTerm))
	require.NoError(t, s.AssertCurrent(quad.IRI("http://ex/b"), quad.IRI("http://ex/p"), quad.PlainLiteral("2"), quad.DefaultGraphTerm))

	res, err := engine.Execute(s, `SELECT ?s ?p ?o WHERE { ?s ?p ?o }`)
	require.NoError(t, err)
	assert.Len(t, res.Rows, 2)
}

// TestGraphVariableOverDefaultOnlyStoreYieldsNoRows is the last boundary
// behavior listed under spec.md §8.
func TestGraphVariableOverDefaultOnlyStoreYieldsNoRows(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.AssertCurrent(quad.IRI("http://ex/a"), quad.IRI("http://ex/p"), quad.PlainLiteral("1"), quad.DefaultGraphTerm))

	res, err := engine.Execute(s, `SELECT ?g ?s WHERE { GRAPH ?g { ?s ?p ?o } }`)
	require.NoError(t, err)
	assert.Empty(t, res.Rows)
}

// TestConcatOfNoArgumentsIsPlainEmptyLiteral is another §8 boundary
// behavior: CONCAT() must be the plain literal "", distinct from unbound.
func TestConcatOfNoArgumentsIsPlainEmptyLiteral(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.AssertCurrent(quad.IRI("http://ex/a"), quad.IRI("http://ex/p"), quad.PlainLiteral("x"), quad.DefaultGraphTerm))

	res, err := engine.Execute(s, `SELECT (CONCAT() AS ?c) WHERE { ?s ?p ?o }`)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	idx := indexOf(res.Vars, "c")
	cell := res.Rows[0][idx]
	require.Equal(t, quad.TagAtom, cell.Tag)
	term := cellTerm(t, res, cell)
	assert.Equal(t, "", term.Value)
	assert.True(t, term.IsLiteral())
}

func TestAskQueryReturnsBoolean(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.AssertCurrent(quad.IRI("http://ex/a"), quad.IRI("http://ex/p"), quad.PlainLiteral("1"), quad.DefaultGraphTerm))

	res, err := engine.Execute(s, `ASK { ?s <http://ex/p> ?o }`)
	require.NoError(t, err)
	assert.Equal(t, lang.KindAsk, res.Kind)
	assert.True(t, res.Boolean)

	res, err = engine.Execute(s, `ASK { ?s <http://ex/nope> ?o }`)
	require.NoError(t, err)
	assert.False(t, res.Boolean)
}

// TestQueryForNeverSeenTermMatchesNothing guards against a pattern
// position built from a term the dictionary has never interned being
// treated as "unbound" (which would wrongly match every row) instead of
// "matches nothing".
func TestQueryForNeverSeenTermMatchesNothing(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.AssertCurrent(quad.IRI("http://ex/a"), quad.IRI("http://ex/p"), quad.PlainLiteral("1"), quad.DefaultGraphTerm))

	res, err := engine.Execute(s, `SELECT ?o WHERE { <http://ex/never-asserted> <http://ex/p> ?o }`)
	require.NoError(t, err)
	assert.Empty(t, res.Rows)
}
