// Package qstore implements the quad store (C5): the operations that wrap
// the atom dictionary, page cache/WAL, and B+Tree index set behind a
// bitemporal assert/retract/query API with batch and transaction support.
package qstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/quaddb/quaddb/pkg/dict"
	"github.com/quaddb/quaddb/pkg/index"
	"github.com/quaddb/quaddb/pkg/pager"
	"github.com/quaddb/quaddb/pkg/qconfig"
	"github.com/quaddb/quaddb/pkg/qerr"
	"github.com/quaddb/quaddb/pkg/qlog"
	"github.com/quaddb/quaddb/pkg/qmetrics"
	"github.com/quaddb/quaddb/pkg/quad"
)

const (
	dataFileName = "data.pages"
	walFileName  = "wal.log"
	heapFileName = "atoms.strings"
)

// Store is one open quad store directory. A Store has a multi-reader/
// single-writer lock : AcquireReadLock/ReleaseReadLock must be paired
// on the same goroutine, and writer transactions (Assert/Retract/batches)
// take the exclusive side.
type Store struct {
	dir   string
	pager *pager.Pager
	dict  *dict.Dictionary
	idx   *index.IndexSet

	rw sync.RWMutex

	clock int64 // monotonic moment counter; see now

	heapMu        sync.Mutex // guards heapFile and heapPersisted
	heapFile      *os.File   // atoms.strings, opened for append
	heapPersisted int        // dictionary length already durable on disk

	batchMu  sync.Mutex // serializes batch lifecycle against concurrent BeginBatch calls
	batchTxn pager.TxID
	inBatch  bool
	closed   bool
}

// Open opens or creates a store directory per cfg.
func Open(cfg qconfig.Config) (*Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, qerr.NewStorageIOError("create store directory", err)
	}

	p, err := pager.Open(pager.Config{
		DataPath:      filepath.Join(cfg.DataDir, dataFileName),
		WALPath:       filepath.Join(cfg.DataDir, walFileName),
		PageSize:      cfg.PageSize,
		MaxCachePages: cfg.MaxCachePages,
	})
	if err != nil {
		return nil, err
	}

	heapPath := filepath.Join(cfg.DataDir, heapFileName)
	d, err := dict.LoadHeapFile(heapPath)
	if err != nil {
		p.Close()
		return nil, err
	}

	// Rewrite the heap from the loaded state: LoadHeapFile drops a torn
	// trailing record from a crash mid-append, and the rewrite brings the
	// file back to exactly the records the dictionary holds before the
	// incremental append handle below takes over.
	hf, err := os.Create(heapPath)
	if err != nil {
		p.Close()
		return nil, qerr.NewStorageIOError("create atoms.strings", err)
	}
	if err := d.WriteHeap(hf); err != nil {
		hf.Close()
		p.Close()
		return nil, err
	}
	if err := hf.Sync(); err != nil {
		hf.Close()
		p.Close()
		return nil, qerr.NewStorageIOError("fsync atoms.strings", err)
	}

	s := &Store{
		dir:           cfg.DataDir,
		pager:         p,
		dict:          d,
		idx:           index.Open(p),
		clock:         p.Moment(),
		heapFile:      hf,
		heapPersisted: d.Len(),
	}
	storeLog := qlog.WithStore(cfg.DataDir)
	storeLog.Info().Msg("store opened")
	return s, nil
}

// syncDictHeap appends any atoms interned since the last sync to
// atoms.strings and fsyncs it. Called before every WAL commit, so the ids
// the committed index entries reference are durable by the time the
// commit frame is.
func (s *Store) syncDictHeap() error {
	s.heapMu.Lock()
	defer s.heapMu.Unlock()
	n := s.dict.Len()
	if n == s.heapPersisted {
		return nil
	}
	if err := s.dict.AppendHeap(s.heapFile, s.heapPersisted); err != nil {
		return err
	}
	if err := s.heapFile.Sync(); err != nil {
		return qerr.NewStorageIOError("fsync atoms.strings", err)
	}
	s.heapPersisted = n
	return nil
}

// now returns a fresh monotonic moment for assert_current/retract_current.
// It is not wall-clock time: it is a strictly increasing counter seeded
// from the superblock's persisted high-water moment, matching the "64-bit
// monotonic moments" without tying the data model to OS clock resolution
// or skew.
func (s *Store) now() int64 {
	return atomic.AddInt64(&s.clock, 1)
}

// bumpClock advances the moment counter past an explicitly supplied
// interval endpoint, so a later RetractCurrent can never close an interval
// at a moment before it opened.
func (s *Store) bumpClock(m int64) {
	for {
		cur := atomic.LoadInt64(&s.clock)
		if m <= cur || atomic.CompareAndSwapInt64(&s.clock, cur, m) {
			return
		}
	}
}

// AcquireReadLock and ReleaseReadLock implement the reader side of the
// store's reader/writer protocol. They must be called on the same
// goroutine, in pairs, around any Query/QueryAsOf/QueryBetween iteration.
func (s *Store) AcquireReadLock() { s.rw.RLock() }
func (s *Store) ReleaseReadLock() { s.rw.RUnlock() }

// internTriple interns s/p/o/g, rejecting a literal in predicate position
// per the SchemaInvariant failure mode.
func (s *Store) internTriple(subj, pred, obj, graph quad.Term) (quad.AtomQuad, error) {
	if pred.IsLiteral() {
		return quad.AtomQuad{}, qerr.NewSchemaInvariantError("literal used in predicate position")
	}
	g := dict.ReservedDefaultGraph
	if graph.Kind != quad.KindDefaultGraph {
		g = s.dict.Intern(graph)
	}
	return quad.AtomQuad{
		Subject:   s.dict.Intern(subj),
		Predicate: s.dict.Intern(pred),
		Object:    s.dict.Intern(obj),
		Graph:     g,
	}, nil
}

// withWriteTxn runs fn under a write transaction: if a batch is already
// open on this goroutine's call chain, fn joins it; otherwise a
// single-operation transaction is begun and committed around fn,
// amortizing nothing but still going through the same WAL protocol.
func (s *Store) withWriteTxn(fn func(txID pager.TxID) error) error {
	s.batchMu.Lock()
	if s.inBatch {
		// The batch owner already holds the store's write lock.
		txID := s.batchTxn
		s.batchMu.Unlock()
		return fn(txID)
	}
	s.batchMu.Unlock()

	s.rw.Lock()
	defer s.rw.Unlock()

	txID, err := s.pager.BeginTx()
	if err != nil {
		return err
	}
	if err := fn(txID); err != nil {
		s.pager.AbortTx(txID)
		return err
	}
	if err := s.syncDictHeap(); err != nil {
		s.pager.AbortTx(txID)
		return err
	}
	s.pager.SetMoment(atomic.LoadInt64(&s.clock))
	timer := qmetrics.NewTimer()
	err = s.pager.CommitTx(txID)
	timer.ObserveDuration(qmetrics.TransactionCommitDuration)
	return err
}

// BeginBatch opens a write transaction that subsequent Assert/Retract
// calls join, amortizing WAL and index writes across many operations.
// Only one batch may be open at a time.
func (s *Store) BeginBatch() error {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	if s.inBatch {
		return fmt.Errorf("qstore: a batch is already open")
	}
	s.rw.Lock()
	txID, err := s.pager.BeginTx()
	if err != nil {
		s.rw.Unlock()
		return err
	}
	s.batchTxn = txID
	s.inBatch = true
	return nil
}

// CommitBatch commits the open batch's transaction.
func (s *Store) CommitBatch() error {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	if !s.inBatch {
		return fmt.Errorf("qstore: no batch is open")
	}
	s.inBatch = false
	defer s.rw.Unlock()
	if err := s.syncDictHeap(); err != nil {
		s.pager.AbortTx(s.batchTxn)
		return err
	}
	s.pager.SetMoment(atomic.LoadInt64(&s.clock))
	timer := qmetrics.NewTimer()
	err := s.pager.CommitTx(s.batchTxn)
	timer.ObserveDuration(qmetrics.TransactionCommitDuration)
	return err
}

// AbortBatch discards the open batch's uncommitted writes.
func (s *Store) AbortBatch() error {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	if !s.inBatch {
		return fmt.Errorf("qstore: no batch is open")
	}
	s.inBatch = false
	defer s.rw.Unlock()
	return s.pager.AbortTx(s.batchTxn)
}

// Assert adds a quad valid over [from, to). If an identical (subject,
// predicate, object, graph) already has an interval overlapping [from, to),
// the two intervals are merged into their union rather than creating a
// second entry — per the mandated interval-merge-on-duplicate-assert
// policy.
func (s *Store) Assert(subj, pred, obj, graph quad.Term, from, to int64) error {
	if from >= to {
		return qerr.NewSchemaInvariantError("validFrom must be before validTo")
	}
	aq, err := s.internTriple(subj, pred, obj, graph)
	if err != nil {
		return err
	}
	aq.Valid = quad.Interval{From: from, To: to}
	s.bumpClock(from)
	if to != quad.Forever {
		s.bumpClock(to)
	}

	return s.withWriteTxn(func(txID pager.TxID) error {
		merged, existing, found, err := s.findOverlapping(aq)
		if err != nil {
			return err
		}
		if found {
			if err := s.idx.Remove(existing, txID); err != nil {
				return err
			}
			aq.Valid = merged
		}
		if err := s.idx.Insert(aq, txID); err != nil {
			return err
		}
		qmetrics.QuadsAssertedTotal.Inc()
		return nil
	})
}

// findOverlapping scans the SPO-ordered tree for an existing entry with
// the same (subject, predicate, object, graph) whose interval overlaps
// aq.Valid, returning the union interval to write if one is found.
func (s *Store) findOverlapping(aq quad.AtomQuad) (merged quad.Interval, existing quad.AtomQuad, found bool, err error) {
	pattern := quad.Pattern{Subject: aq.Subject, Predicate: aq.Predicate, Object: aq.Object, Graph: aq.Graph, GraphBound: true}
	cur, ordering, err := s.idx.Scan(pattern)
	if err != nil {
		return quad.Interval{}, quad.AtomQuad{}, false, err
	}
	for {
		e, ok, err := cur.Next()
		if err != nil {
			return quad.Interval{}, quad.AtomQuad{}, false, err
		}
		if !ok {
			return quad.Interval{}, quad.AtomQuad{}, false, nil
		}
		cand := index.Decode(ordering, e)
		if cand.Subject != aq.Subject || cand.Predicate != aq.Predicate || cand.Object != aq.Object || cand.Graph != aq.Graph {
			continue
		}
		if intervalsOverlap(cand.Valid, aq.Valid) {
			return unionInterval(cand.Valid, aq.Valid), cand, true, nil
		}
	}
}

func intervalsOverlap(a, b quad.Interval) bool {
	return a.From < b.To && b.From < a.To
}

func unionInterval(a, b quad.Interval) quad.Interval {
	iv := quad.Interval{From: a.From, To: a.To}
	if b.From < iv.From {
		iv.From = b.From
	}
	if b.To > iv.To {
		iv.To = b.To
	}
	return iv
}

// AssertCurrent is shorthand for Assert(..., now, Forever).
func (s *Store) AssertCurrent(subj, pred, obj, graph quad.Term) error {
	return s.Assert(subj, pred, obj, graph, s.now(), quad.Forever)
}

// RetractCurrent finds the open-ended ([..., Forever)) quad matching
// (subject, predicate, object, graph) and sets its validTo to now. A
// quad with no currently-open interval is left untouched (retraction is
// a no-op, not an error, matching the bitemporal model's append-only
// philosophy).
func (s *Store) RetractCurrent(subj, pred, obj, graph quad.Term) error {
	g, ok := s.lookupGraphAtom(graph)
	if !ok {
		return nil
	}
	sID, sOK := s.internedAtomFor(subj)
	pID, pOK := s.internedAtomFor(pred)
	oID, oOK := s.internedAtomFor(obj)
	if !sOK || !pOK || !oOK {
		return nil // never interned, so certainly never asserted
	}

	return s.withWriteTxn(func(txID pager.TxID) error {
		pattern := quad.Pattern{Subject: sID, Predicate: pID, Object: oID, Graph: g, GraphBound: true}
		cur, ordering, err := s.idx.Scan(pattern)
		if err != nil {
			return err
		}
		for {
			e, ok, err := cur.Next()
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			cand := index.Decode(ordering, e)
			if cand.Subject != sID || cand.Predicate != pID || cand.Object != oID || cand.Graph != g {
				continue
			}
			if cand.Valid.To != quad.Forever {
				continue
			}
			if err := s.idx.Remove(cand, txID); err != nil {
				return err
			}
			cand.Valid.To = s.now()
			if err := s.idx.Insert(cand, txID); err != nil {
				return err
			}
			qmetrics.QuadsRetractedTotal.Inc()
			return nil
		}
	})
}

func (s *Store) lookupGraphAtom(graph quad.Term) (quad.AtomID, bool) {
	if graph.Kind == quad.KindDefaultGraph {
		return dict.ReservedDefaultGraph, true
	}
	return s.internedAtomFor(graph)
}

// internedAtomFor returns t's atom id without assigning a new one; used by
// read paths (retraction lookups, query binding) that must not grow the
// dictionary just to discover a term was never asserted.
func (s *Store) internedAtomFor(t quad.Term) (quad.AtomID, bool) {
	return s.dict.TryIntern(t)
}

// Close flushes and closes the store, persisting the atom dictionary's
// string heap and performing a final pager checkpoint.
func (s *Store) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.syncDictHeap(); err != nil {
		return err
	}
	if err := s.heapFile.Close(); err != nil {
		return qerr.NewStorageIOError("close atoms.strings", err)
	}

	storeLog := qlog.WithStore(s.dir)
	storeLog.Info().Msg("store closed")
	return s.pager.Close()
}

// Dir returns the store's directory path.
func (s *Store) Dir() string { return s.dir }

// Checkpoint flushes all dirty pages back to data.pages and truncates the
// WAL. Pages are reclaimed only during offline compaction; there is no
// online page reuse. Checkpoint is the durability half of that maintenance
// story; the CLI's `compact` command is this method plus a dictionary heap
// rewrite, with no page-level defragmentation beyond it.
func (s *Store) Checkpoint() error {
	return s.pager.Checkpoint()
}

// DictLen reports how many atoms the dictionary has interned, for
// diagnostics (the CLI's `compact` command reports it after running).
func (s *Store) DictLen() int {
	return s.dict.Len()
}
