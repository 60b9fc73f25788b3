package pager

import (
	"encoding/binary"
	"fmt"
)

const superblockMagic uint32 = 0x51444231 // "QDB1"
const superblockVersion uint32 = 1

// numIndexRoots is one root page id per B+Tree ordering: SPO, SOP,
// PSO, POS, OSP, OPS.
const numIndexRoots = 6

// Superblock is page 0: magic, version, page size, and the root page ids
// for each of the six indices plus the dictionary's string-heap cursor and
// the transaction/page-allocation counters.
type Superblock struct {
	Magic         uint32
	Version       uint32
	PageSize      uint32
	NextPageID    PageID
	NextTxID      TxID
	CheckpointLSN LSN
	IndexRoots    [numIndexRoots]PageID
	DictHeapSize  int64 // slot for the length of atoms.strings; nothing in this module sets it, so it stays 0
	LastMoment    int64 // high-water bitemporal moment across committed writes
}

// NewSuperblock returns a freshly initialized superblock for a new
// database of the given page size: page 0 is reserved, so the next
// allocation starts at page 1, and no index has a root yet.
func NewSuperblock(pageSize uint32) *Superblock {
	sb := &Superblock{
		Magic:      superblockMagic,
		Version:    superblockVersion,
		PageSize:   pageSize,
		NextPageID: 1,
		NextTxID:   1,
	}
	for i := range sb.IndexRoots {
		sb.IndexRoots[i] = InvalidPageID
	}
	return sb
}

// superblockEncodedSize is fixed regardless of the configured page size;
// MarshalSuperblock pads the remainder of the page with zeros.
const superblockEncodedSize = 4 + 4 + 4 + 4 + 8 + 8 + numIndexRoots*4 + 8 + 8

// MarshalSuperblock encodes sb into a full page-sized buffer (with a
// trailing CRC set by the caller via SetPageCRC).
func MarshalSuperblock(sb *Superblock, pageSize int) []byte {
	buf := make([]byte, pageSize)
	binary.LittleEndian.PutUint32(buf[0:], sb.Magic)
	binary.LittleEndian.PutUint32(buf[4:], sb.Version)
	binary.LittleEndian.PutUint32(buf[8:], sb.PageSize)
	binary.LittleEndian.PutUint32(buf[12:], uint32(sb.NextPageID))
	binary.LittleEndian.PutUint64(buf[16:], uint64(sb.NextTxID))
	binary.LittleEndian.PutUint64(buf[24:], uint64(sb.CheckpointLSN))
	off := 32
	for _, root := range sb.IndexRoots {
		binary.LittleEndian.PutUint32(buf[off:], uint32(root))
		off += 4
	}
	binary.LittleEndian.PutUint64(buf[off:], uint64(sb.DictHeapSize))
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], uint64(sb.LastMoment))
	SetPageCRC(buf)
	return buf
}

// UnmarshalSuperblock decodes a superblock page, verifying its CRC and
// magic number.
func UnmarshalSuperblock(buf []byte) (*Superblock, error) {
	if len(buf) < superblockEncodedSize+crcSize {
		return nil, fmt.Errorf("pager: superblock page too small (%d bytes)", len(buf))
	}
	if !VerifyPageCRC(buf) {
		return nil, fmt.Errorf("pager: superblock CRC mismatch (torn page 0)")
	}
	sb := &Superblock{}
	sb.Magic = binary.LittleEndian.Uint32(buf[0:])
	if sb.Magic != superblockMagic {
		return nil, fmt.Errorf("pager: bad superblock magic %#x", sb.Magic)
	}
	sb.Version = binary.LittleEndian.Uint32(buf[4:])
	sb.PageSize = binary.LittleEndian.Uint32(buf[8:])
	sb.NextPageID = PageID(binary.LittleEndian.Uint32(buf[12:]))
	sb.NextTxID = TxID(binary.LittleEndian.Uint64(buf[16:]))
	sb.CheckpointLSN = LSN(binary.LittleEndian.Uint64(buf[24:]))
	off := 32
	for i := range sb.IndexRoots {
		sb.IndexRoots[i] = PageID(binary.LittleEndian.Uint32(buf[off:]))
		off += 4
	}
	sb.DictHeapSize = int64(binary.LittleEndian.Uint64(buf[off:]))
	off += 8
	sb.LastMoment = int64(binary.LittleEndian.Uint64(buf[off:]))
	return sb, nil
}
