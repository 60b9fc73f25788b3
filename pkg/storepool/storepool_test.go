package storepool

import (
	"context"
	"testing"

	"github.com/quaddb/quaddb/pkg/qconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() qconfig.Config {
	cfg := qconfig.Default()
	cfg.StorePoolSize = 2
	return cfg
}

func TestAcquireOpensAndReleaseMakesEvictable(t *testing.T) {
	p := New(t.TempDir(), testConfig())

	l, err := p.Acquire(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, 1, p.Len())

	l.Release()
	assert.Equal(t, 1, p.Len(), "releasing a lease closes nothing by itself")
}

func TestAcquireSameNameTwiceReturnsSameStore(t *testing.T) {
	p := New(t.TempDir(), testConfig())

	l1, err := p.Acquire(context.Background(), "a")
	require.NoError(t, err)
	l2, err := p.Acquire(context.Background(), "a")
	require.NoError(t, err)

	assert.Same(t, l1.Store(), l2.Store())
	l1.Release()
	l2.Release()
}

func TestPoolEvictsLeastRecentlyUsedIdleStoreAtCapacity(t *testing.T) {
	p := New(t.TempDir(), testConfig()) // capacity 2

	la, err := p.Acquire(context.Background(), "a")
	require.NoError(t, err)
	lb, err := p.Acquire(context.Background(), "b")
	require.NoError(t, err)
	la.Release()
	lb.Release()
	assert.Equal(t, 2, p.Len())

	// "a" was released first, so it is the LRU candidate once a third
	// distinct store is acquired at capacity.
	lc, err := p.Acquire(context.Background(), "c")
	require.NoError(t, err)
	defer lc.Release()

	assert.Equal(t, 2, p.Len(), "pool must stay at capacity after eviction")

	la2, err := p.Acquire(context.Background(), "a")
	require.NoError(t, err)
	defer la2.Release()
	assert.NotSame(t, la.Store(), la2.Store(), "evicted store must be reopened fresh, not reused")
}

func TestAcquireAtCapacityWithEveryStoreLeasedFails(t *testing.T) {
	p := New(t.TempDir(), testConfig()) // capacity 2

	la, err := p.Acquire(context.Background(), "a")
	require.NoError(t, err)
	defer la.Release()
	lb, err := p.Acquire(context.Background(), "b")
	require.NoError(t, err)
	defer lb.Release()

	_, err = p.Acquire(context.Background(), "c")
	assert.Error(t, err)
}

func TestCloseAllClosesEveryStoreRegardlessOfLease(t *testing.T) {
	p := New(t.TempDir(), testConfig())

	l, err := p.Acquire(context.Background(), "a")
	require.NoError(t, err)
	_ = l // deliberately not released: CloseAll must still close it

	require.NoError(t, p.CloseAll())
	assert.Equal(t, 0, p.Len())
}
