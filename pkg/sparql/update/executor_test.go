package update_test

import (
	"testing"

	"github.com/quaddb/quaddb/pkg/qconfig"
	"github.com/quaddb/quaddb/pkg/qstore"
	"github.com/quaddb/quaddb/pkg/quad"
	"github.com/quaddb/quaddb/pkg/sparql/engine"
	"github.com/quaddb/quaddb/pkg/sparql/update"
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

func countRows(t *testing.T, s *qstore.Store, query string) int {
	t.Helper()
	res, err := engine.Execute(s, query)
	require.NoError(t, err)
	return len(res.Rows)
}

func TestInsertDataAssertsEveryQuad(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, update.Execute(s, `INSERT DATA { <http://ex/a> <http://ex/p> "1" . <http://ex/b> <http://ex/p> "2" . }`))
	assert.Equal(t, 2, countRows(t, s, `SELECT ?s WHERE { ?s <http://ex/p> ?o }`))
}

func TestDeleteDataRetractsMatchingQuad(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.AssertCurrent(quad.IRI("http://ex/a"), quad.IRI("http://ex/p"), quad.PlainLiteral("1"), quad.DefaultGraphTerm))
	require.NoError(t, update.Execute(s, `DELETE DATA { <http://ex/a> <http://ex/p> "1" . }`))
	assert.Equal(t, 0, countRows(t, s, `SELECT ?s WHERE { ?s <http://ex/p> ?o }`))
}

func TestInsertDataIntoNamedGraph(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, update.Execute(s, `INSERT DATA { GRAPH <http://ex/g1> { <http://ex/a> <http://ex/p> "1" . } }`))
	assert.Equal(t, 0, countRows(t, s, `SELECT ?s WHERE { ?s <http://ex/p> ?o }`))
	assert.Equal(t, 1, countRows(t, s, `SELECT ?s WHERE { GRAPH <http://ex/g1> { ?s <http://ex/p> ?o } }`))
}

func TestModifyDeletesAndInsertsFromWherePattern(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.AssertCurrent(quad.IRI("http://ex/a"), quad.IRI("http://ex/status"), quad.PlainLiteral("old"), quad.DefaultGraphTerm))

	require.NoError(t, update.Execute(s, `
		DELETE { ?s <http://ex/status> ?old }
		INSERT { ?s <http://ex/status> "new" }
		WHERE  { ?s <http://ex/status> ?old }
	`))

	res, err := engine.Execute(s, `SELECT ?v WHERE { <http://ex/a> <http://ex/status> ?v }`)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	term, ok := res.Term(res.Rows[0][indexOf(res.Vars, "v")])
	require.True(t, ok)
	assert.Equal(t, "new", term.Value)
}

func indexOf(vars []string, name string) int {
	for i, v := range vars {
		if v == name {
			return i
		}
	}
	return -1
}

func TestClearDefaultGraphRemovesOnlyDefaultGraphQuads(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.AssertCurrent(quad.IRI("http://ex/a"), quad.IRI("http://ex/p"), quad.PlainLiteral("1"), quad.DefaultGraphTerm))
	require.NoError(t, s.AssertCurrent(quad.IRI("http://ex/b"), quad.IRI("http://ex/p"), quad.PlainLiteral("2"), quad.IRI("http://ex/g1")))

	require.NoError(t, update.Execute(s, `CLEAR DEFAULT`))

	assert.Equal(t, 0, countRows(t, s, `SELECT ?s WHERE { ?s <http://ex/p> ?o }`))
	assert.Equal(t, 1, countRows(t, s, `SELECT ?s WHERE { GRAPH <http://ex/g1> { ?s <http://ex/p> ?o } }`))
}

func TestClearSilentOnEmptyGraphIsNotAnError(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, update.Execute(s, `CLEAR SILENT GRAPH <http://ex/never-existed>`))
}

func TestCopyOverwritesDestinationGraph(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.AssertCurrent(quad.IRI("http://ex/a"), quad.IRI("http://ex/p"), quad.PlainLiteral("src"), quad.IRI("http://ex/src")))
	require.NoError(t, s.AssertCurrent(quad.IRI("http://ex/old"), quad.IRI("http://ex/p"), quad.PlainLiteral("stale"), quad.IRI("http://ex/dst")))

	require.NoError(t, update.Execute(s, `COPY <http://ex/src> TO <http://ex/dst>`))

	assert.Equal(t, 1, countRows(t, s, `SELECT ?s WHERE { GRAPH <http://ex/dst> { ?s <http://ex/p> ?o } }`))
	assert.Equal(t, 1, countRows(t, s, `SELECT ?s WHERE { GRAPH <http://ex/src> { ?s <http://ex/p> ?o } }`), "COPY must leave the source graph intact")
}

func TestMoveClearsSourceGraph(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.AssertCurrent(quad.IRI("http://ex/a"), quad.IRI("http://ex/p"), quad.PlainLiteral("src"), quad.IRI("http://ex/src")))

	require.NoError(t, update.Execute(s, `MOVE <http://ex/src> TO <http://ex/dst>`))

	assert.Equal(t, 0, countRows(t, s, `SELECT ?s WHERE { GRAPH <http://ex/src> { ?s <http://ex/p> ?o } }`))
	assert.Equal(t, 1, countRows(t, s, `SELECT ?s WHERE { GRAPH <http://ex/dst> { ?s <http://ex/p> ?o } }`))
}

func TestUpdateRequestIsAtomicOnError(t *testing.T) {
	s := openTestStore(t)
	err := update.Execute(s, `
		INSERT DATA { <http://ex/a> <http://ex/p> "1" . } ;
		INSERT DATA { <http://ex/b> "not-a-predicate" <http://ex/o> . }
	`)
	require.Error(t, err, "a literal used in predicate position must be rejected")
	assert.Equal(t, 0, countRows(t, s, `SELECT ?s WHERE { ?s <http://ex/p> ?o }`), "a failing operation must roll back the whole request, including earlier successful ops")
}
