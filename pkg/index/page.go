package index

import (
	"encoding/binary"

	"github.com/quaddb/quaddb/pkg/pager"
)

// Page layout (within a pager page, trailing 4 bytes reserved for the
// pager's own CRC and never touched here):
//
//	byte 0:       1 = leaf, 0 = interior
//	bytes 1-2:    entry count (uint16)
//	leaf only:    bytes 3-6: next-leaf PageID (pager.InvalidPageID if none)
//	then:         count * KeySize-byte entries, in sort order
//	interior only following the count*KeySize separator keys:
//	              (count+1) * 4-byte child PageIDs
const (
	pageHeaderLeaf     = 7  // isLeaf(1) + count(2) + nextLeaf(4)
	pageHeaderInterior = 3  // isLeaf(1) + count(2)
)

type leafPage struct {
	entries  [][KeySize]byte
	nextLeaf pager.PageID
}

func maxLeafEntries(pageSize int) int {
	return (pageSize - 4 /*crc*/ - pageHeaderLeaf) / KeySize
}

func maxInteriorEntries(pageSize int) int {
	// count separators of KeySize bytes + (count+1) child ids of 4 bytes
	// must fit in pageSize-4(crc)-pageHeaderInterior.
	avail := pageSize - 4 - pageHeaderInterior - 4 // reserve one child slot up front
	return avail / (KeySize + 4)
}

func encodeLeaf(buf []byte, lp *leafPage) {
	buf[0] = 1
	binary.LittleEndian.PutUint16(buf[1:3], uint16(len(lp.entries)))
	binary.LittleEndian.PutUint32(buf[3:7], uint32(lp.nextLeaf))
	off := pageHeaderLeaf
	for _, e := range lp.entries {
		copy(buf[off:off+KeySize], e[:])
		off += KeySize
	}
}

func decodeLeaf(buf []byte) *leafPage {
	count := int(binary.LittleEndian.Uint16(buf[1:3]))
	next := pager.PageID(binary.LittleEndian.Uint32(buf[3:7]))
	lp := &leafPage{nextLeaf: next, entries: make([][KeySize]byte, count)}
	off := pageHeaderLeaf
	for i := 0; i < count; i++ {
		copy(lp.entries[i][:], buf[off:off+KeySize])
		off += KeySize
	}
	return lp
}

type interiorPage struct {
	separators [][KeySize]byte // len = count
	children   []pager.PageID  // len = count+1
}

func encodeInterior(buf []byte, ip *interiorPage) {
	buf[0] = 0
	count := len(ip.separators)
	binary.LittleEndian.PutUint16(buf[1:3], uint16(count))
	off := pageHeaderInterior
	for _, s := range ip.separators {
		copy(buf[off:off+KeySize], s[:])
		off += KeySize
	}
	for _, c := range ip.children {
		binary.LittleEndian.PutUint32(buf[off:off+4], uint32(c))
		off += 4
	}
}

func decodeInterior(buf []byte) *interiorPage {
	count := int(binary.LittleEndian.Uint16(buf[1:3]))
	ip := &interiorPage{
		separators: make([][KeySize]byte, count),
		children:   make([]pager.PageID, count+1),
	}
	off := pageHeaderInterior
	for i := 0; i < count; i++ {
		copy(ip.separators[i][:], buf[off:off+KeySize])
		off += KeySize
	}
	for i := 0; i < count+1; i++ {
		ip.children[i] = pager.PageID(binary.LittleEndian.Uint32(buf[off : off+4]))
		off += 4
	}
	return ip
}

func isLeafPage(buf []byte) bool { return buf[0] == 1 }
