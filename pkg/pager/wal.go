package pager

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
)

// RecordType tags a WAL frame's purpose, matching the frame-type list.
type RecordType uint8

const (
	RecordBegin      RecordType = iota // BeginTxn
	RecordPreImage                     // PagePreImage (never written by this pager; pre-images stay in memory)
	RecordPostImage                    // PagePostImage
	RecordCommit                       // CommitTxn
	RecordCheckpoint                   // Checkpoint
)

// Record is one WAL frame: type, payload length, payload bytes, CRC. For
// Begin/Commit/Checkpoint records PageID and Data are unused.
type Record struct {
	Type   RecordType
	TxID   TxID
	PageID PageID
	Data   []byte
}

// frameHeaderSize: type(1) + txID(8) + pageID(4) + payloadLen(4).
const frameHeaderSize = 1 + 8 + 4 + 4

// WAL is the append-only log backing a single Pager.
type WAL struct {
	file   *os.File
	writer *bufio.Writer
	offset int64 // next LSN to be assigned == current file length
	path   string
}

// OpenWAL opens (creating if necessary) the WAL file at path.
func OpenWAL(path string) (*WAL, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("pager: open WAL %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("pager: stat WAL %s: %w", path, err)
	}
	return &WAL{
		file:   f,
		writer: bufio.NewWriter(f),
		offset: info.Size(),
		path:   path,
	}, nil
}

// AppendRecord encodes rec and appends it, returning the LSN (byte offset)
// at which the frame begins. The caller must call Sync for durability
// before treating the record as committed.
func (w *WAL) AppendRecord(rec *Record) (LSN, error) {
	if _, err := w.file.Seek(w.offset, io.SeekStart); err != nil {
		return 0, fmt.Errorf("pager: seek WAL: %w", err)
	}
	w.writer.Reset(w.file)

	lsn := LSN(w.offset)
	header := make([]byte, frameHeaderSize)
	header[0] = byte(rec.Type)
	binary.LittleEndian.PutUint64(header[1:], uint64(rec.TxID))
	binary.LittleEndian.PutUint32(header[9:], uint32(rec.PageID))
	binary.LittleEndian.PutUint32(header[13:], uint32(len(rec.Data)))

	crc := crc32.ChecksumIEEE(header)
	crc = crc32.Update(crc, crc32.IEEETable, rec.Data)

	if _, err := w.writer.Write(header); err != nil {
		return 0, fmt.Errorf("pager: write WAL frame header: %w", err)
	}
	if len(rec.Data) > 0 {
		if _, err := w.writer.Write(rec.Data); err != nil {
			return 0, fmt.Errorf("pager: write WAL frame payload: %w", err)
		}
	}
	var crcBuf [4]byte
	binary.LittleEndian.PutUint32(crcBuf[:], crc)
	if _, err := w.writer.Write(crcBuf[:]); err != nil {
		return 0, fmt.Errorf("pager: write WAL frame CRC: %w", err)
	}
	if err := w.writer.Flush(); err != nil {
		return 0, fmt.Errorf("pager: flush WAL: %w", err)
	}
	w.offset += int64(frameHeaderSize + len(rec.Data) + 4)
	return lsn, nil
}

// Sync fsyncs the WAL file, making every frame appended so far durable.
func (w *WAL) Sync() error {
	return w.file.Sync()
}

// Truncate empties the WAL; called after a successful checkpoint once
// every dirty page has been flushed to the main file, since the log no
// longer needs to redo anything before that point.
func (w *WAL) Truncate() error {
	if err := w.file.Truncate(0); err != nil {
		return fmt.Errorf("pager: truncate WAL: %w", err)
	}
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	w.offset = 0
	return nil
}

// Close flushes any buffered frame bytes and closes the WAL file; it does
// not fsync (CommitTx and Checkpoint call Sync themselves).
func (w *WAL) Close() error {
	if err := w.writer.Flush(); err != nil {
		return err
	}
	return w.file.Close()
}

// ReadAll reads every well-formed frame from the start of the WAL,
// stopping at the first torn frame (header or payload CRC mismatch, or a
// header claiming more payload than remains in the file) without error —
// a torn tail frame truncates recovery rather than failing it.
func (w *WAL) ReadAll() ([]Record, error) {
	data, err := os.ReadFile(w.path)
	if err != nil {
		return nil, fmt.Errorf("pager: read WAL %s: %w", w.path, err)
	}

	var records []Record
	pos := 0
	for pos+frameHeaderSize <= len(data) {
		header := data[pos : pos+frameHeaderSize]
		payloadLen := int(binary.LittleEndian.Uint32(header[13:]))
		frameEnd := pos + frameHeaderSize + payloadLen + 4
		if frameEnd > len(data) {
			break // torn frame: header claims more than is on disk
		}
		payload := data[pos+frameHeaderSize : pos+frameHeaderSize+payloadLen]
		wantCRC := binary.LittleEndian.Uint32(data[frameEnd-4 : frameEnd])

		crc := crc32.ChecksumIEEE(header)
		crc = crc32.Update(crc, crc32.IEEETable, payload)
		if crc != wantCRC {
			break // torn frame: CRC mismatch
		}

		rec := Record{
			Type:   RecordType(header[0]),
			TxID:   TxID(binary.LittleEndian.Uint64(header[1:])),
			PageID: PageID(binary.LittleEndian.Uint32(header[9:])),
		}
		if payloadLen > 0 {
			rec.Data = append([]byte{}, payload...)
		}
		records = append(records, rec)
		pos = frameEnd
	}
	return records, nil
}
