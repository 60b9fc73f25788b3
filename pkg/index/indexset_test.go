package index

import (
	"path/filepath"
	"testing"

	"github.com/quaddb/quaddb/pkg/pager"
	"github.com/quaddb/quaddb/pkg/quad"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestIndexSet(t *testing.T) (*IndexSet, *pager.Pager) {
	t.Helper()
	dir := t.TempDir()
	p, err := pager.Open(pager.Config{DataPath: filepath.Join(dir, "data.pages"), PageSize: 4096})
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return Open(p), p
}

func insertQuad(t *testing.T, is *IndexSet, p *pager.Pager, aq quad.AtomQuad) {
	t.Helper()
	txID, err := p.BeginTx()
	require.NoError(t, err)
	require.NoError(t, is.Insert(aq, txID))
	require.NoError(t, p.CommitTx(txID))
}

func TestInsertAppearsInAllSixOrderings(t *testing.T) {
	is, p := openTestIndexSet(t)
	aq := quad.AtomQuad{Subject: 10, Predicate: 20, Object: 30, Graph: 1, Valid: quad.Interval{From: 0, To: quad.Forever}}
	insertQuad(t, is, p, aq)

	for o := Ordering(0); o < numOrderings; o++ {
		cur, err := is.trees[o].Seek(nil)
		require.NoError(t, err)
		found := false
		for {
			e, ok, err := cur.Next()
			require.NoError(t, err)
			if !ok {
				break
			}
			if Decode(o, e) == aq {
				found = true
			}
		}
		assert.True(t, found, "quad missing from ordering %s", o)
	}
}

func TestScanBoundSubjectPredicateObjectFindsExactMatch(t *testing.T) {
	is, p := openTestIndexSet(t)
	want := quad.AtomQuad{Subject: 1, Predicate: 2, Object: 3, Graph: 1, Valid: quad.Interval{From: 0, To: quad.Forever}}
	other := quad.AtomQuad{Subject: 1, Predicate: 2, Object: 4, Graph: 1, Valid: quad.Interval{From: 0, To: quad.Forever}}
	insertQuad(t, is, p, want)
	insertQuad(t, is, p, other)

	pattern := quad.Pattern{Subject: 1, Predicate: 2, Object: 3}
	cur, ordering, err := is.Scan(pattern)
	require.NoError(t, err)

	var got []quad.AtomQuad
	for {
		e, ok, err := cur.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		aq := Decode(ordering, e)
		if aq.Subject == 1 && aq.Predicate == 2 && aq.Object == 3 {
			got = append(got, aq)
		}
	}
	require.Len(t, got, 1)
	assert.Equal(t, want, got[0])
}

func TestScanUnboundAllReturnsEveryInsertedQuad(t *testing.T) {
	is, p := openTestIndexSet(t)
	quads := []quad.AtomQuad{
		{Subject: 1, Predicate: 2, Object: 3, Graph: 1, Valid: quad.Interval{From: 0, To: quad.Forever}},
		{Subject: 4, Predicate: 5, Object: 6, Graph: 1, Valid: quad.Interval{From: 0, To: quad.Forever}},
		{Subject: 7, Predicate: 8, Object: 9, Graph: 1, Valid: quad.Interval{From: 0, To: quad.Forever}},
	}
	for _, q := range quads {
		insertQuad(t, is, p, q)
	}

	cur, ordering, err := is.Scan(quad.Pattern{})
	require.NoError(t, err)
	count := 0
	for {
		_, ok, err := cur.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		count++
		_ = ordering
	}
	assert.Equal(t, len(quads), count)
}

func TestSelectOrderingPrefersLongestBoundPrefix(t *testing.T) {
	is, _ := openTestIndexSet(t)
	_ = is

	ordering, _ := (&IndexSet{}).SelectOrdering(quad.Pattern{Subject: 1, Predicate: 2, Object: 3})
	assert.Equal(t, SPO, ordering)

	ordering, _ = (&IndexSet{}).SelectOrdering(quad.Pattern{Predicate: 2})
	assert.Equal(t, PSO, ordering)

	ordering, _ = (&IndexSet{}).SelectOrdering(quad.Pattern{Object: 3})
	assert.Equal(t, OSP, ordering)
}

func TestRemoveDeletesFromAllOrderings(t *testing.T) {
	is, p := openTestIndexSet(t)
	aq := quad.AtomQuad{Subject: 1, Predicate: 2, Object: 3, Graph: 1, Valid: quad.Interval{From: 0, To: quad.Forever}}
	insertQuad(t, is, p, aq)

	txID, err := p.BeginTx()
	require.NoError(t, err)
	require.NoError(t, is.Remove(aq, txID))
	require.NoError(t, p.CommitTx(txID))

	cur, ordering, err := is.Scan(quad.Pattern{Subject: 1, Predicate: 2, Object: 3})
	require.NoError(t, err)
	_, ok, err := cur.Next()
	require.NoError(t, err)
	assert.False(t, ok)
	_ = ordering
}

func TestPermuteUnpermuteRoundTripsForEveryOrdering(t *testing.T) {
	s, p, o := quad.AtomID(11), quad.AtomID(22), quad.AtomID(33)
	for ord := Ordering(0); ord < numOrderings; ord++ {
		a, b, c := permute(ord, s, p, o)
		gotS, gotP, gotO := unpermute(ord, a, b, c)
		assert.Equal(t, s, gotS, "ordering %s", ord)
		assert.Equal(t, p, gotP, "ordering %s", ord)
		assert.Equal(t, o, gotO, "ordering %s", ord)
	}
}
