package bufpool

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRentReturnsRequestedCapacity(t *testing.T) {
	m := NewPoolManager()
	buf := m.Rent(100)
	assert.Len(t, buf, 0)
	assert.GreaterOrEqual(t, cap(buf), 100)
}

func TestRentAboveLargestClassFallsBackToUnpooledAllocation(t *testing.T) {
	m := NewPoolManager()
	buf := m.Rent(1 << 20)
	assert.GreaterOrEqual(t, cap(buf), 1<<20)
}

func TestRentAfterReturnMeetsRequestedCapacity(t *testing.T) {
	m := NewPoolManager()
	buf := m.Rent(4096)
	m.Return(buf)

	again := m.Rent(4096)
	assert.GreaterOrEqual(t, cap(again), 4096)
}

func TestReturnOfOversizeBufferIsANoOp(t *testing.T) {
	m := NewPoolManager()
	// Must not panic: classFor(cap) returns -1 for anything above the
	// largest tracked class, and Return must simply drop it.
	assert.NotPanics(t, func() { m.Return(make([]byte, 0, 1<<21)) })
}

func TestSharedIsUsableWithoutExplicitConstruction(t *testing.T) {
	buf := Shared.Rent(64)
	assert.GreaterOrEqual(t, cap(buf), 64)
	Shared.Return(buf)
}
