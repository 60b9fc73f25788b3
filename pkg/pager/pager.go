package pager

import (
	"fmt"
	"os"
	"sync"

	"github.com/quaddb/quaddb/pkg/qerr"
	"github.com/quaddb/quaddb/pkg/qlog"
	"github.com/quaddb/quaddb/pkg/qmetrics"
)

// Config configures a Pager.
type Config struct {
	DataPath      string // main data.pages file
	WALPath       string // wal.log file; defaults to DataPath+".wal"
	PageSize      int    // 0 selects DefaultPageSize
	MaxCachePages int    // 0 selects a 1024-page default
}

// txn tracks a single open write transaction's dirty pages and their
// pre-images, so AbortTx can restore the cache to its pre-transaction
// state without having touched the main file.
type txn struct {
	id        TxID
	preimages map[PageID][]byte
	preDirty  map[PageID]bool // page's dirty flag before this txn touched it
	sbSnap    Superblock      // superblock state at BeginTx, restored on abort
}

// Pager manages page-level I/O, the buffer pool, and the WAL for one store
// directory. At most one write transaction is open at a time; BeginTx
// blocks (via writeMu) until the previous writer has committed or
// aborted.
type Pager struct {
	mu       sync.RWMutex // guards sb, pool, and page I/O
	writeMu  sync.Mutex   // enforces single-writer-at-a-time
	file     *os.File
	wal      *WAL
	pool     *bufferPool
	sb       *Superblock
	pageSize int
	path     string
	walPath  string
	closed   bool

	activeTxn *txn // non-nil only while writeMu is held by BeginTx...CommitTx/AbortTx
}

// Open opens or creates a page-based store directory.
func Open(cfg Config) (*Pager, error) {
	ps := cfg.PageSize
	if ps == 0 {
		ps = DefaultPageSize
	}
	if ps < MinPageSize || ps > MaxPageSize || ps&(ps-1) != 0 {
		return nil, fmt.Errorf("pager: invalid page size %d", ps)
	}

	isNew := false
	if _, err := os.Stat(cfg.DataPath); os.IsNotExist(err) {
		isNew = true
	}

	f, err := os.OpenFile(cfg.DataPath, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, qerr.NewStorageIOError("open data file", err)
	}

	p := &Pager{
		file:     f,
		pageSize: ps,
		path:     cfg.DataPath,
		pool:     newBufferPool(cfg.MaxCachePages),
	}

	if isNew {
		sb := NewSuperblock(uint32(ps))
		buf := MarshalSuperblock(sb, ps)
		if _, err := f.WriteAt(buf, 0); err != nil {
			f.Close()
			return nil, qerr.NewStorageIOError("write superblock", err)
		}
		if err := f.Sync(); err != nil {
			f.Close()
			return nil, qerr.NewStorageIOError("sync new data file", err)
		}
		p.sb = sb
	} else {
		sb, err := p.readSuperblock()
		if err != nil {
			f.Close()
			return nil, err
		}
		p.sb = sb
		p.pageSize = int(sb.PageSize)
	}

	walPath := cfg.WALPath
	if walPath == "" {
		walPath = cfg.DataPath + ".wal"
	}
	p.walPath = walPath
	wal, err := OpenWAL(walPath)
	if err != nil {
		f.Close()
		return nil, err
	}
	p.wal = wal

	if !isNew {
		if err := p.Recover(); err != nil {
			wal.Close()
			f.Close()
			return nil, fmt.Errorf("pager: recovery: %w", err)
		}
	}

	return p, nil
}

func (p *Pager) readSuperblock() (*Superblock, error) {
	buf := make([]byte, p.pageSize)
	if _, err := p.file.ReadAt(buf, 0); err != nil {
		return nil, qerr.NewStorageIOError("read superblock", err)
	}
	sb, err := UnmarshalSuperblock(buf)
	if err != nil {
		return nil, qerr.NewStorageIOError("decode superblock", err)
	}
	return sb, nil
}

func (p *Pager) readPageRaw(id PageID) ([]byte, error) {
	buf := make([]byte, p.pageSize)
	off := int64(id) * int64(p.pageSize)
	if _, err := p.file.ReadAt(buf, off); err != nil {
		return nil, qerr.NewStorageIOError(fmt.Sprintf("read page %d", id), err)
	}
	if !VerifyPageCRC(buf) {
		return nil, qerr.NewStorageIOError(fmt.Sprintf("page %d CRC mismatch", id), nil)
	}
	return buf, nil
}

func (p *Pager) writePageRaw(id PageID, buf []byte) error {
	SetPageCRC(buf)
	off := int64(id) * int64(p.pageSize)
	if _, err := p.file.WriteAt(buf, off); err != nil {
		return qerr.NewStorageIOError(fmt.Sprintf("write page %d", id), err)
	}
	return nil
}

// PageSize returns the configured page size in bytes.
func (p *Pager) PageSize() int { return p.pageSize }

// Path and WALPath return the store's on-disk file paths.
func (p *Pager) Path() string    { return p.path }
func (p *Pager) WALPath() string { return p.walPath }

// ReadPage returns a page by id through the buffer pool, pinning it. The
// caller must call UnpinPage when done with the returned slice; the slice
// aliases the cache entry and must not be retained past the unpin.
func (p *Pager) ReadPage(id PageID) ([]byte, error) {
	p.mu.Lock() // the buffer pool mutates LRU links even on a "read"
	defer p.mu.Unlock()

	if f, ok := p.pool.get(id); ok {
		f.pinned++
		qmetrics.PageCacheHitsTotal.Inc()
		return f.buf, nil
	}
	qmetrics.PageCacheMissesTotal.Inc()

	buf, err := p.readPageRaw(id)
	if err != nil {
		return nil, err
	}
	before := len(p.pool.pages)
	f := &frame{id: id, buf: buf, pinned: 1}
	if !p.pool.put(f) {
		pagerLog := qlog.WithComponent("pager")
		pagerLog.Warn().Uint32("page_id", uint32(id)).Msg("buffer pool over capacity, all frames pinned")
	} else if len(p.pool.pages) <= before {
		qmetrics.PageCacheEvictionsTotal.Inc()
	}
	return buf, nil
}

// UnpinPage decrements the pin count for id.
func (p *Pager) UnpinPage(id PageID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if f, ok := p.pool.get(id); ok && f.pinned > 0 {
		f.pinned--
	}
}

// BeginTx starts the single permitted write transaction, blocking until
// any previous writer has committed or aborted. Commit or Abort must
// always be called to release the writer slot.
func (p *Pager) BeginTx() (TxID, error) {
	p.writeMu.Lock()

	p.mu.Lock()
	id := p.sb.NextTxID
	p.sb.NextTxID++
	sbSnap := *p.sb
	p.mu.Unlock()

	if _, err := p.wal.AppendRecord(&Record{Type: RecordBegin, TxID: id}); err != nil {
		p.writeMu.Unlock()
		return 0, qerr.NewStorageIOError("append BeginTxn record", err)
	}

	p.activeTxn = &txn{id: id, preimages: make(map[PageID][]byte), preDirty: make(map[PageID]bool), sbSnap: sbSnap}
	txnLog := qlog.WithTxn(uint64(id))
	txnLog.Debug().Msg("transaction begun")
	return id, nil
}

// BeginWrite returns a writable, pinned copy of page id for txID. The
// page's pre-image is captured once per transaction the first time it is
// touched, so AbortTx can restore it without the main file ever having
// been mutated.
func (p *Pager) BeginWrite(txID TxID, id PageID) ([]byte, error) {
	if p.activeTxn == nil || p.activeTxn.id != txID {
		return nil, fmt.Errorf("pager: BeginWrite called without a matching active transaction")
	}
	buf, err := p.ReadPage(id)
	if err != nil {
		return nil, err
	}
	if _, captured := p.activeTxn.preimages[id]; !captured {
		pre := make([]byte, len(buf))
		copy(pre, buf)
		p.activeTxn.preimages[id] = pre
		p.mu.Lock()
		if f, ok := p.pool.get(id); ok {
			p.activeTxn.preDirty[id] = f.dirty
		}
		p.mu.Unlock()
	}
	return buf, nil
}

// WritePage installs buf as page id's new content within transaction txID.
// The page is marked dirty but nothing is written to the WAL or the main
// file until CommitTx.
func (p *Pager) WritePage(txID TxID, id PageID, buf []byte) error {
	if p.activeTxn == nil || p.activeTxn.id != txID {
		return fmt.Errorf("pager: WritePage called without a matching active transaction")
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	f, ok := p.pool.get(id)
	if !ok {
		f = &frame{id: id, buf: make([]byte, p.pageSize)}
		p.pool.put(f)
	}
	if len(f.buf) != len(buf) {
		f.buf = make([]byte, len(buf))
	}
	copy(f.buf, buf)
	f.dirty = true
	f.txID = txID
	return nil
}

// CommitTx appends post-image WAL frames for every page this transaction
// dirtied, then a CommitTxn frame, then fsyncs the WAL. Only after fsync
// returns are the pages considered clean and eligible to be flushed to the
// main file by a checkpoint.
func (p *Pager) CommitTx(txID TxID) error {
	if p.activeTxn == nil || p.activeTxn.id != txID {
		return fmt.Errorf("pager: CommitTx called without a matching active transaction")
	}
	defer func() {
		p.activeTxn = nil
		p.writeMu.Unlock()
	}()

	p.mu.Lock()
	dirty := p.pool.dirtyPages()
	var toCommit []*frame
	for _, f := range dirty {
		if f.txID == txID {
			toCommit = append(toCommit, f)
		}
	}
	p.mu.Unlock()

	for _, f := range toCommit {
		SetPageCRC(f.buf)
		data := append([]byte{}, f.buf...)
		if _, err := p.wal.AppendRecord(&Record{Type: RecordPostImage, TxID: txID, PageID: f.id, Data: data}); err != nil {
			return qerr.NewStorageIOError("append PagePostImage record", err)
		}
	}
	// The superblock carries the index roots and allocation counters this
	// transaction may have advanced; it is only written to the main file at
	// checkpoint time, so its post-image must ride the WAL too or a crash
	// before the next checkpoint would redo the pages but lose the roots
	// pointing at them.
	p.mu.Lock()
	sbBuf := MarshalSuperblock(p.sb, p.pageSize)
	p.mu.Unlock()
	if _, err := p.wal.AppendRecord(&Record{Type: RecordPostImage, TxID: txID, PageID: 0, Data: sbBuf}); err != nil {
		return qerr.NewStorageIOError("append superblock post-image record", err)
	}
	if _, err := p.wal.AppendRecord(&Record{Type: RecordCommit, TxID: txID}); err != nil {
		return qerr.NewStorageIOError("append CommitTxn record", err)
	}
	timer := qmetrics.NewTimer()
	if err := p.wal.Sync(); err != nil {
		return qerr.NewStorageIOError("fsync WAL on commit", err)
	}
	timer.ObserveDuration(qmetrics.WALFsyncDuration)
	qmetrics.WALFsyncTotal.Inc()

	p.mu.Lock()
	for _, f := range toCommit {
		f.txID = 0 // stays dirty (not yet in the main file) but no longer "in flight"
	}
	p.mu.Unlock()

	qmetrics.TransactionsCommittedTotal.Inc()
	txnLog := qlog.WithTxn(uint64(txID))
	txnLog.Info().Msg("transaction committed")
	return nil
}

// AbortTx writes an AbortTxn-equivalent marker is unnecessary since the
// main file was never touched; AbortTx simply restores every page this
// transaction dirtied to its captured pre-image and releases the writer
// slot. Per the redo-only recovery design, nothing needs to be logged: a
// crash between WritePage and AbortTx leaves no WAL trace of the aborted
// writes at all.
func (p *Pager) AbortTx(txID TxID) error {
	if p.activeTxn == nil || p.activeTxn.id != txID {
		return fmt.Errorf("pager: AbortTx called without a matching active transaction")
	}
	defer func() {
		p.activeTxn = nil
		p.writeMu.Unlock()
	}()

	p.mu.Lock()
	defer p.mu.Unlock()
	for id, pre := range p.activeTxn.preimages {
		if f, ok := p.pool.get(id); ok {
			copy(f.buf, pre)
			// A page dirtied by an earlier committed-but-unflushed
			// transaction must stay dirty or the next checkpoint would
			// skip it.
			f.dirty = p.activeTxn.preDirty[id]
			f.txID = 0
		}
	}
	// Index roots and the page-allocation counter advanced by this
	// transaction point at pages that were just restored or never
	// committed; roll the superblock back with them.
	*p.sb = p.activeTxn.sbSnap
	txnLog := qlog.WithTxn(uint64(txID))
	txnLog.Warn().Msg("transaction aborted, pre-images restored")
	return nil
}

// AllocPage returns a fresh, zeroed page id. Pages are never reused once
// allocated (reclaimed only during offline compaction), so allocation is a
// bare counter increment. The frame is cached unpinned; callers are
// expected to BeginWrite/WritePage it immediately, which pins it for the
// duration of the write as usual.
func (p *Pager) AllocPage() (PageID, []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.sb.NextPageID
	p.sb.NextPageID++
	buf := make([]byte, p.pageSize)
	f := &frame{id: id, buf: buf}
	p.pool.put(f)
	return id, buf
}

// IndexRoot and SetIndexRoot read and update one of the six index root
// page ids recorded in the superblock (in memory; CommitTx logs the
// superblock to the WAL, and the next Checkpoint writes it to page 0).
func (p *Pager) IndexRoot(ordering int) PageID {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sb.IndexRoots[ordering]
}

func (p *Pager) SetIndexRoot(ordering int, id PageID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sb.IndexRoots[ordering] = id
}

// Moment and SetMoment read and record the store's high-water bitemporal
// moment counter in the superblock, so a reopened store resumes its clock
// past every interval endpoint it has ever committed.
func (p *Pager) Moment() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sb.LastMoment
}

func (p *Pager) SetMoment(m int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if m > p.sb.LastMoment {
		p.sb.LastMoment = m
	}
}

// Checkpoint flushes every dirty page to the main file, updates and
// writes the superblock, fsyncs the main file, and truncates the WAL.
func (p *Pager) Checkpoint() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	timer := qmetrics.NewTimer()
	rec := &Record{Type: RecordCheckpoint}
	lsn, err := p.wal.AppendRecord(rec)
	if err != nil {
		return qerr.NewStorageIOError("append Checkpoint record", err)
	}
	if err := p.wal.Sync(); err != nil {
		return qerr.NewStorageIOError("fsync WAL before checkpoint", err)
	}

	dirty := p.pool.dirtyPages()
	flushed := 0
	for _, f := range dirty {
		if f.txID != 0 {
			continue // dirtied by the in-flight transaction; not yet committed
		}
		if err := p.writePageRaw(f.id, f.buf); err != nil {
			return fmt.Errorf("pager: checkpoint flush page %d: %w", f.id, err)
		}
		f.dirty = false
		flushed++
	}
	qmetrics.PagesDirty.Set(0)

	p.sb.CheckpointLSN = lsn
	sbBuf := MarshalSuperblock(p.sb, p.pageSize)
	if err := p.writePageRaw(0, sbBuf); err != nil {
		return fmt.Errorf("pager: write superblock at checkpoint: %w", err)
	}
	if err := p.file.Sync(); err != nil {
		return qerr.NewStorageIOError("fsync data file at checkpoint", err)
	}
	if err := p.wal.Truncate(); err != nil {
		return err
	}
	timer.ObserveDuration(qmetrics.CheckpointDuration)
	pagerLog := qlog.WithComponent("pager")
	pagerLog.Info().Int("pages_flushed", flushed).Msg("checkpoint complete")
	return nil
}

// Recover replays the WAL from the beginning (there is no prior checkpoint
// marker to seek to within the truncated log, since Checkpoint truncates
// the WAL to empty once applied): every BeginTxn/PagePostImage/CommitTxn
// group that reaches a CommitTxn frame is redone by writing its post-images
// straight to the main file;
// a transaction with no matching CommitTxn frame (the process died mid
// commit) is discarded, since the main file was never mutated for it. A
// torn trailing frame (detected by WAL.ReadAll's CRC check) simply ends
// the scan early.
func (p *Pager) Recover() error {
	records, err := p.wal.ReadAll()
	if err != nil {
		return err
	}

	pending := make(map[TxID][]Record)
	var committed []TxID
	for _, rec := range records {
		switch rec.Type {
		case RecordBegin:
			pending[rec.TxID] = nil
		case RecordPostImage:
			pending[rec.TxID] = append(pending[rec.TxID], rec)
		case RecordCommit:
			committed = append(committed, rec.TxID)
		case RecordCheckpoint:
			// Nothing to redo prior to a checkpoint: the checkpoint
			// already flushed every dirty page that existed at that
			// point and truncated the WAL, so any checkpoint frame
			// seen here belongs to a partial checkpoint that never
			// reached Truncate. Recovery still redoes every
			// committed transaction after it.
		}
	}

	redidSuperblock := false
	for _, txID := range committed {
		for _, rec := range pending[txID] {
			if err := p.writePageRaw(rec.PageID, rec.Data); err != nil {
				return fmt.Errorf("pager: redo page %d for txn %d: %w", rec.PageID, txID, err)
			}
			if rec.PageID == 0 {
				redidSuperblock = true
			}
		}
		delete(pending, txID)
	}
	if err := p.file.Sync(); err != nil {
		return qerr.NewStorageIOError("fsync data file after recovery", err)
	}
	if redidSuperblock {
		// The in-memory superblock was read before replay and is stale:
		// the redone page 0 carries the index roots and counters the
		// committed transactions advanced.
		sb, err := p.readSuperblock()
		if err != nil {
			return err
		}
		p.sb = sb
	}
	if len(committed) > 0 {
		pagerLog := qlog.WithComponent("pager")
		pagerLog.Info().Int("transactions_redone", len(committed)).Msg("WAL recovery complete")
	}
	return p.wal.Truncate()
}

// Close performs a final checkpoint, then closes the WAL and data files.
func (p *Pager) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	if err := p.Checkpoint(); err != nil {
		p.wal.Close()
		p.file.Close()
		return err
	}
	if err := p.wal.Close(); err != nil {
		p.file.Close()
		return err
	}
	return p.file.Close()
}
