package pager

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestPager(t *testing.T) (*Pager, Config) {
	t.Helper()
	dir := t.TempDir()
	cfg := Config{DataPath: filepath.Join(dir, "data.pages"), PageSize: 4096, MaxCachePages: 64}
	p, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p, cfg
}

func TestAllocWriteCommitReadsBackThroughCache(t *testing.T) {
	p, _ := openTestPager(t)

	id, buf := p.AllocPage()
	copy(buf, []byte("hello page"))

	txID, err := p.BeginTx()
	require.NoError(t, err)
	w, err := p.BeginWrite(txID, id)
	require.NoError(t, err)
	copy(w, []byte("hello page"))
	require.NoError(t, p.WritePage(txID, id, w))
	require.NoError(t, p.CommitTx(txID))

	got, err := p.ReadPage(id)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello page"), got[:len("hello page")])
}

func TestAbortTxRestoresPreImage(t *testing.T) {
	p, _ := openTestPager(t)

	id, buf := p.AllocPage()
	copy(buf, []byte("original"))
	txID, err := p.BeginTx()
	require.NoError(t, err)
	require.NoError(t, p.CommitTx(txID))

	txID, err = p.BeginTx()
	require.NoError(t, err)
	w, err := p.BeginWrite(txID, id)
	require.NoError(t, err)
	copy(w, []byte("mutated!"))
	require.NoError(t, p.WritePage(txID, id, w))
	require.NoError(t, p.AbortTx(txID))

	got, err := p.ReadPage(id)
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), got[:len("original")])
}

func TestCheckpointPersistsAcrossReopen(t *testing.T) {
	p, cfg := openTestPager(t)

	id, buf := p.AllocPage()
	copy(buf, []byte("persisted"))
	txID, err := p.BeginTx()
	require.NoError(t, err)
	w, err := p.BeginWrite(txID, id)
	require.NoError(t, err)
	copy(w, []byte("persisted"))
	require.NoError(t, p.WritePage(txID, id, w))
	require.NoError(t, p.CommitTx(txID))
	require.NoError(t, p.Checkpoint())
	require.NoError(t, p.Close())

	p2, err := Open(cfg)
	require.NoError(t, err)
	defer p2.Close()

	got, err := p2.ReadPage(id)
	require.NoError(t, err)
	assert.Equal(t, []byte("persisted"), got[:len("persisted")])
}

// TestRecoverRedoesCommittedTransactionAfterSimulatedCrash models scenario
// 5 from spec.md §8: a committed transaction whose pages were never
// checkpointed must still be visible after the WAL is replayed on reopen.
func TestRecoverRedoesCommittedTransactionAfterSimulatedCrash(t *testing.T) {
	p, cfg := openTestPager(t)

	id, buf := p.AllocPage()
	copy(buf, []byte("crash-safe"))
	txID, err := p.BeginTx()
	require.NoError(t, err)
	w, err := p.BeginWrite(txID, id)
	require.NoError(t, err)
	copy(w, []byte("crash-safe"))
	require.NoError(t, p.WritePage(txID, id, w))
	require.NoError(t, p.CommitTx(txID))
	// No Checkpoint call: simulate the process dying right after the
	// commit fsync, before any checkpoint flushed the page to data.pages.

	require.NoError(t, p.wal.Close())
	require.NoError(t, p.file.Close())

	p2, err := Open(cfg)
	require.NoError(t, err)
	defer p2.Close()

	got, err := p2.ReadPage(id)
	require.NoError(t, err)
	assert.Equal(t, []byte("crash-safe"), got[:len("crash-safe")])
}

func TestAllocPageIDsNeverReused(t *testing.T) {
	p, _ := openTestPager(t)
	id1, _ := p.AllocPage()
	id2, _ := p.AllocPage()
	assert.NotEqual(t, id1, id2)
}

func TestSecondBeginTxSucceedsAfterFirstCommits(t *testing.T) {
	p, _ := openTestPager(t)
	txID, err := p.BeginTx()
	require.NoError(t, err)
	require.NoError(t, p.CommitTx(txID))

	// After the first transaction commits, a second BeginTx must succeed
	// immediately rather than deadlocking on writeMu.
	tx2, err := p.BeginTx()
	require.NoError(t, err)
	assert.NoError(t, p.CommitTx(tx2))
}
