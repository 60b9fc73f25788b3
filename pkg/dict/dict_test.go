package dict

import (
	"bytes"
	"testing"

	"github.com/quaddb/quaddb/pkg/quad"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInternAssignsStableIDs(t *testing.T) {
	d := New()
	id1 := d.Intern(quad.IRI("http://ex/s"))
	id2 := d.Intern(quad.IRI("http://ex/s"))
	assert.Equal(t, id1, id2, "interning the same term twice must return the same atom id")

	other := d.Intern(quad.IRI("http://ex/p"))
	assert.NotEqual(t, id1, other)
}

func TestLookupRoundTripsIntern(t *testing.T) {
	d := New()
	terms := []quad.Term{
		quad.IRI("http://ex/s"),
		quad.Blank("b0"),
		quad.PlainLiteral("hello"),
		quad.LangLiteral("hello", "en"),
		quad.TypedLiteral("42", "http://www.w3.org/2001/XMLSchema#integer"),
	}
	for _, term := range terms {
		id := d.Intern(term)
		got, ok := d.Lookup(id)
		require.True(t, ok)
		assert.Equal(t, term, got)
	}
}

func TestLookupUnknownAtomFails(t *testing.T) {
	d := New()
	_, ok := d.Lookup(quad.AtomID(999))
	assert.False(t, ok)

	_, ok = d.Lookup(ReservedInvalid)
	assert.False(t, ok)
}

func TestReservedDefaultGraphResolves(t *testing.T) {
	d := New()
	got, ok := d.Lookup(ReservedDefaultGraph)
	require.True(t, ok)
	assert.Equal(t, quad.DefaultGraphTerm, got)
}

func TestMustLookupPanicsOnUnknownAtom(t *testing.T) {
	d := New()
	assert.Panics(t, func() { d.MustLookup(quad.AtomID(12345)) })
}

func TestLenCountsReservedAndAssignedAtoms(t *testing.T) {
	d := New()
	base := d.Len()
	d.Intern(quad.IRI("http://ex/a"))
	d.Intern(quad.IRI("http://ex/b"))
	assert.Equal(t, base+2, d.Len())
}

func TestWriteHeapLoadHeapRoundTrip(t *testing.T) {
	d := New()
	want := []quad.Term{
		quad.IRI("http://ex/s"),
		quad.Blank("b0"),
		quad.PlainLiteral("hello"),
		quad.LangLiteral("hi", "en"),
		quad.TypedLiteral("1", "http://www.w3.org/2001/XMLSchema#integer"),
	}
	ids := make([]quad.AtomID, len(want))
	for i, term := range want {
		ids[i] = d.Intern(term)
	}

	var buf bytes.Buffer
	require.NoError(t, d.WriteHeap(&buf))

	reloaded, err := LoadHeap(&buf)
	require.NoError(t, err)

	for i, id := range ids {
		got, ok := reloaded.Lookup(id)
		require.True(t, ok)
		assert.Equal(t, want[i], got)
	}
}

func TestTryInternFindsExistingWithoutGrowingDictionary(t *testing.T) {
	d := New()
	id := d.Intern(quad.IRI("http://ex/s"))
	base := d.Len()

	got, ok := d.TryIntern(quad.IRI("http://ex/s"))
	require.True(t, ok)
	assert.Equal(t, id, got)
	assert.Equal(t, base, d.Len(), "TryIntern must not grow the dictionary on a hit")

	_, ok = d.TryIntern(quad.IRI("http://ex/never-seen"))
	assert.False(t, ok)
	assert.Equal(t, base, d.Len(), "TryIntern must not grow the dictionary on a miss")
}

func TestLoadHeapFileMissingIsEmptyDictionary(t *testing.T) {
	d, err := LoadHeapFile("/nonexistent/path/atoms.strings")
	require.NoError(t, err)
	assert.Equal(t, New().Len(), d.Len())
}
