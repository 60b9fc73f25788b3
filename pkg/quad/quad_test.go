package quad

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIntervalContains(t *testing.T) {
	iv := Interval{From: 10, To: 20}
	assert.False(t, iv.Contains(9))
	assert.True(t, iv.Contains(10))
	assert.True(t, iv.Contains(19))
	assert.False(t, iv.Contains(20))
}

func TestIntervalOpen(t *testing.T) {
	assert.True(t, Interval{From: 0, To: Forever}.Open())
	assert.False(t, Interval{From: 0, To: 100}.Open())
}

func TestQuadStringOmitsDefaultGraph(t *testing.T) {
	q := Quad{Subject: IRI("http://ex/s"), Predicate: IRI("http://ex/p"), Object: PlainLiteral("v")}
	assert.Equal(t, `<http://ex/s> <http://ex/p> "v" .`, q.String())
}

func TestQuadStringIncludesNamedGraph(t *testing.T) {
	q := Quad{Subject: IRI("http://ex/s"), Predicate: IRI("http://ex/p"), Object: PlainLiteral("v"), Graph: IRI("http://ex/g1")}
	assert.Equal(t, `<http://ex/s> <http://ex/p> "v" <http://ex/g1> .`, q.String())
}

func TestPatternBoundCount(t *testing.T) {
	p := Pattern{Subject: 1, Predicate: Unbound, Object: 3, GraphBound: true, Graph: 4}
	assert.Equal(t, 3, p.BoundCount())

	assert.Equal(t, 0, Pattern{}.BoundCount())
}
