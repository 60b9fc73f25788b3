// Package index implements the B+Tree index set: six orderings of
// (S,P,O,G,validFrom,validTo), each a standalone B+Tree of fixed-size
// entries stored in pager pages, supporting prefix seeks and ordered range
// scans.
package index

import (
	"encoding/binary"

	"github.com/quaddb/quaddb/pkg/quad"
)

// Ordering names one of the six column permutations an index tree is built
// over. The graph column always sorts after the three triple columns.
type Ordering int

const (
	SPO Ordering = iota
	SOP
	PSO
	POS
	OSP
	OPS
	numOrderings
)

func (o Ordering) String() string {
	return [numOrderings]string{"SPO", "SOP", "PSO", "POS", "OSP", "OPS"}[o]
}

// KeySize is the fixed width of an encoded index entry: four 8-byte atom
// columns (the permuted triple plus graph) and two 8-byte temporal
// columns. The source spec describes this tuple as "40 bytes"; with
// 64-bit atom ids and 64-bit temporal moments (both specified elsewhere in
// the same document) the natural fixed encoding is 48 bytes, and that is
// what this implementation uses.
const KeySize = 8 * 6

// Entry is the decoded form of one index key: the three permuted columns
// (named generically since their meaning depends on the tree's Ordering),
// the graph atom, and the bitemporal interval.
type Entry struct {
	A, B, C quad.AtomID
	Graph   quad.AtomID
	Valid   quad.Interval
}

// permute reorders (s,p,o) into the (a,b,c) triple the given ordering
// stores, so every tree shares one key encoding.
func permute(o Ordering, s, p, obj quad.AtomID) (a, b, c quad.AtomID) {
	switch o {
	case SPO:
		return s, p, obj
	case SOP:
		return s, obj, p
	case PSO:
		return p, s, obj
	case POS:
		return p, obj, s
	case OSP:
		return obj, s, p
	case OPS:
		return obj, p, s
	default:
		return s, p, obj
	}
}

// unpermute is permute's inverse: given a tree's (a,b,c) columns, recover
// (s,p,o).
func unpermute(o Ordering, a, b, c quad.AtomID) (s, p, obj quad.AtomID) {
	switch o {
	case SPO:
		return a, b, c
	case SOP:
		return a, c, b
	case PSO:
		return b, a, c
	case POS:
		return c, a, b
	case OSP:
		return b, c, a
	case OPS:
		return c, b, a
	default:
		return a, b, c
	}
}

// EncodeKey renders an Entry's (a,b,c,g,validFrom,validTo) tuple into its
// fixed 48-byte sort-order byte representation. Atom columns sort
// ascending by id (big-endian encoding gives byte-order == numeric order
// for non-negative ids). validFrom sorts ascending; validTo is stored
// bit-complemented so ascending byte order yields descending validTo —
// "longest-asserted first" per the tie-break rule.
func EncodeKey(e Entry) [KeySize]byte {
	var buf [KeySize]byte
	binary.BigEndian.PutUint64(buf[0:8], uint64(e.A))
	binary.BigEndian.PutUint64(buf[8:16], uint64(e.B))
	binary.BigEndian.PutUint64(buf[16:24], uint64(e.C))
	binary.BigEndian.PutUint64(buf[24:32], uint64(e.Graph))
	binary.BigEndian.PutUint64(buf[32:40], uint64(e.Valid.From))
	binary.BigEndian.PutUint64(buf[40:48], ^uint64(e.Valid.To))
	return buf
}

// DecodeKey is EncodeKey's inverse.
func DecodeKey(buf [KeySize]byte) Entry {
	return Entry{
		A:     quad.AtomID(binary.BigEndian.Uint64(buf[0:8])),
		B:     quad.AtomID(binary.BigEndian.Uint64(buf[8:16])),
		C:     quad.AtomID(binary.BigEndian.Uint64(buf[16:24])),
		Graph: quad.AtomID(binary.BigEndian.Uint64(buf[24:32])),
		Valid: quad.Interval{
			From: int64(binary.BigEndian.Uint64(buf[32:40])),
			To:   int64(^binary.BigEndian.Uint64(buf[40:48])),
		},
	}
}

// PrefixBytes encodes only the leading boundCount*8 bytes of a, b, c, g
// (in that column order), for use as a B+Tree seek prefix. boundCount
// ranges 0..4.
func PrefixBytes(a, b, c, g quad.AtomID, boundCount int) []byte {
	full := EncodeKey(Entry{A: a, B: b, C: c, Graph: g})
	return full[:boundCount*8]
}
