package index

import (
	"bytes"
	"sort"

	"github.com/quaddb/quaddb/pkg/pager"
)

// Tree is a single B+Tree ordering, backed by pages from a shared Pager.
// Root management is delegated to the Pager's superblock (one root slot
// per Ordering).
type Tree struct {
	ordering Ordering
	pager    *pager.Pager
}

func newTree(ordering Ordering, p *pager.Pager) *Tree {
	return &Tree{ordering: ordering, pager: p}
}

func keyLess(a, b [KeySize]byte) bool { return bytes.Compare(a[:], b[:]) < 0 }
func keyCmp(a, b []byte) int          { return bytes.Compare(a, b) }

// Insert adds entry's key to the tree. Splits propagate upward as needed,
// obeying the standard B+Tree invariant that a split always produces two
// half-full-or-better nodes. The only other mutating operation is Remove,
// which retraction and the interval-merge correction call before
// inserting an entry again under its new validTo.
func (t *Tree) Insert(e Entry, txID pager.TxID) error {
	key := EncodeKey(e)
	rootID := t.pager.IndexRoot(int(t.ordering))

	if rootID == pager.InvalidPageID {
		id, buf := t.pager.AllocPage()
		lp := &leafPage{entries: [][KeySize]byte{key}, nextLeaf: pager.InvalidPageID}
		encodeLeaf(buf, lp)
		if _, err := t.pager.BeginWrite(txID, id); err != nil {
			return err
		}
		if err := t.pager.WritePage(txID, id, buf); err != nil {
			return err
		}
		t.pager.UnpinPage(id)
		t.pager.SetIndexRoot(int(t.ordering), id)
		return nil
	}

	splitKey, newRight, err := t.insertInto(txID, rootID, key)
	if err != nil {
		return err
	}
	if newRight != pager.InvalidPageID {
		// Root split: allocate a fresh interior root pointing at the
		// old root and the new right sibling.
		id, buf := t.pager.AllocPage()
		ip := &interiorPage{
			separators: [][KeySize]byte{splitKey},
			children:   []pager.PageID{rootID, newRight},
		}
		encodeInterior(buf, ip)
		if _, err := t.pager.BeginWrite(txID, id); err != nil {
			return err
		}
		if err := t.pager.WritePage(txID, id, buf); err != nil {
			return err
		}
		t.pager.UnpinPage(id)
		t.pager.SetIndexRoot(int(t.ordering), id)
	}
	return nil
}

// insertInto recursively descends to the leaf that should own key,
// inserting it in sorted position and splitting if the page is full.
// Returns a non-InvalidPageID newRight (plus the separator key promoted to
// the parent) when pageID's page split.
func (t *Tree) insertInto(txID pager.TxID, pageID pager.PageID, key [KeySize]byte) ([KeySize]byte, pager.PageID, error) {
	buf, err := t.pager.ReadPage(pageID)
	if err != nil {
		return [KeySize]byte{}, pager.InvalidPageID, err
	}

	if isLeafPage(buf) {
		lp := decodeLeaf(buf)
		t.pager.UnpinPage(pageID)

		idx := sort.Search(len(lp.entries), func(i int) bool { return !keyLess(lp.entries[i], key) })
		if idx < len(lp.entries) && lp.entries[idx] == key {
			// Duplicate key: nothing to do (callers merge intervals
			// before calling Insert; an exact duplicate key is a no-op).
			return [KeySize]byte{}, pager.InvalidPageID, nil
		}
		entries := make([][KeySize]byte, 0, len(lp.entries)+1)
		entries = append(entries, lp.entries[:idx]...)
		entries = append(entries, key)
		entries = append(entries, lp.entries[idx:]...)

		maxEntries := maxLeafEntries(t.pager.PageSize())
		if len(entries) <= maxEntries {
			writeBuf, err := t.pager.BeginWrite(txID, pageID)
			if err != nil {
				return [KeySize]byte{}, pager.InvalidPageID, err
			}
			encodeLeaf(writeBuf, &leafPage{entries: entries, nextLeaf: lp.nextLeaf})
			if err := t.pager.WritePage(txID, pageID, writeBuf); err != nil {
				return [KeySize]byte{}, pager.InvalidPageID, err
			}
			t.pager.UnpinPage(pageID)
			return [KeySize]byte{}, pager.InvalidPageID, nil
		}

		// Split: left half stays at pageID, right half moves to a new page.
		mid := len(entries) / 2
		leftEntries, rightEntries := entries[:mid], entries[mid:]

		rightID, rightBuf := t.pager.AllocPage()
		encodeLeaf(rightBuf, &leafPage{entries: rightEntries, nextLeaf: lp.nextLeaf})
		if _, err := t.pager.BeginWrite(txID, rightID); err != nil {
			return [KeySize]byte{}, pager.InvalidPageID, err
		}
		if err := t.pager.WritePage(txID, rightID, rightBuf); err != nil {
			return [KeySize]byte{}, pager.InvalidPageID, err
		}
		t.pager.UnpinPage(rightID)

		leftBuf, err := t.pager.BeginWrite(txID, pageID)
		if err != nil {
			return [KeySize]byte{}, pager.InvalidPageID, err
		}
		encodeLeaf(leftBuf, &leafPage{entries: leftEntries, nextLeaf: rightID})
		if err := t.pager.WritePage(txID, pageID, leftBuf); err != nil {
			return [KeySize]byte{}, pager.InvalidPageID, err
		}
		t.pager.UnpinPage(pageID)

		return rightEntries[0], rightID, nil
	}

	ip := decodeInterior(buf)
	t.pager.UnpinPage(pageID)

	// A separator is its right child's first key, so a key equal to the
	// separator lives in the right child: descend into the first child
	// whose separator is strictly greater.
	childIdx := sort.Search(len(ip.separators), func(i int) bool { return keyLess(key, ip.separators[i]) })
	childID := ip.children[childIdx]

	splitKey, newChild, err := t.insertInto(txID, childID, key)
	if err != nil {
		return [KeySize]byte{}, pager.InvalidPageID, err
	}
	if newChild == pager.InvalidPageID {
		return [KeySize]byte{}, pager.InvalidPageID, nil
	}

	separators := make([][KeySize]byte, 0, len(ip.separators)+1)
	separators = append(separators, ip.separators[:childIdx]...)
	separators = append(separators, splitKey)
	separators = append(separators, ip.separators[childIdx:]...)

	children := make([]pager.PageID, 0, len(ip.children)+1)
	children = append(children, ip.children[:childIdx+1]...)
	children = append(children, newChild)
	children = append(children, ip.children[childIdx+1:]...)

	maxEntries := maxInteriorEntries(t.pager.PageSize())
	if len(separators) <= maxEntries {
		writeBuf, err := t.pager.BeginWrite(txID, pageID)
		if err != nil {
			return [KeySize]byte{}, pager.InvalidPageID, err
		}
		encodeInterior(writeBuf, &interiorPage{separators: separators, children: children})
		if err := t.pager.WritePage(txID, pageID, writeBuf); err != nil {
			return [KeySize]byte{}, pager.InvalidPageID, err
		}
		t.pager.UnpinPage(pageID)
		return [KeySize]byte{}, pager.InvalidPageID, nil
	}

	// Interior split: the middle separator is promoted to the parent
	// and does not appear in either child's separator list.
	mid := len(separators) / 2
	promoted := separators[mid]
	leftSeps, rightSeps := separators[:mid], separators[mid+1:]
	leftChildren, rightChildren := children[:mid+1], children[mid+1:]

	rightID, rightBuf := t.pager.AllocPage()
	encodeInterior(rightBuf, &interiorPage{separators: rightSeps, children: rightChildren})
	if _, err := t.pager.BeginWrite(txID, rightID); err != nil {
		return [KeySize]byte{}, pager.InvalidPageID, err
	}
	if err := t.pager.WritePage(txID, rightID, rightBuf); err != nil {
		return [KeySize]byte{}, pager.InvalidPageID, err
	}
	t.pager.UnpinPage(rightID)

	leftBuf, err := t.pager.BeginWrite(txID, pageID)
	if err != nil {
		return [KeySize]byte{}, pager.InvalidPageID, err
	}
	encodeInterior(leftBuf, &interiorPage{separators: leftSeps, children: leftChildren})
	if err := t.pager.WritePage(txID, pageID, leftBuf); err != nil {
		return [KeySize]byte{}, pager.InvalidPageID, err
	}
	t.pager.UnpinPage(pageID)

	return promoted, rightID, nil
}

// Remove deletes the exact key from the tree if present. No rebalancing
// or merging of under-full nodes is performed. Because validTo is part of
// the key, retraction removes the open entry before inserting it again
// with the new validTo, and the interval-merge correction does the same
// when an overlapping duplicate assert must replace an existing entry's
// key. An under-full leaf from a Remove call is
// functionally harmless — it just wastes a little page space until the
// next compaction (out of scope for this engine).
func (t *Tree) Remove(key [KeySize]byte, txID pager.TxID) error {
	rootID := t.pager.IndexRoot(int(t.ordering))
	if rootID == pager.InvalidPageID {
		return nil
	}
	return t.removeFrom(txID, rootID, key)
}

func (t *Tree) removeFrom(txID pager.TxID, pageID pager.PageID, key [KeySize]byte) error {
	buf, err := t.pager.ReadPage(pageID)
	if err != nil {
		return err
	}
	if isLeafPage(buf) {
		lp := decodeLeaf(buf)
		t.pager.UnpinPage(pageID)
		idx := sort.Search(len(lp.entries), func(i int) bool { return !keyLess(lp.entries[i], key) })
		if idx >= len(lp.entries) || lp.entries[idx] != key {
			return nil // not present
		}
		entries := append(append([][KeySize]byte{}, lp.entries[:idx]...), lp.entries[idx+1:]...)
		writeBuf, err := t.pager.BeginWrite(txID, pageID)
		if err != nil {
			return err
		}
		encodeLeaf(writeBuf, &leafPage{entries: entries, nextLeaf: lp.nextLeaf})
		if err := t.pager.WritePage(txID, pageID, writeBuf); err != nil {
			return err
		}
		t.pager.UnpinPage(pageID)
		return nil
	}

	ip := decodeInterior(buf)
	t.pager.UnpinPage(pageID)
	childIdx := sort.Search(len(ip.separators), func(i int) bool { return keyLess(key, ip.separators[i]) })
	return t.removeFrom(txID, ip.children[childIdx], key)
}

// Cursor iterates a tree's leaf chain in key order, starting from a seek
// position, yielding entries until Next reports no more.
type Cursor struct {
	tree      *Tree
	leaf      *leafPage
	leafIndex int
	prefix    []byte
	done      bool
}

// Seek positions a cursor at the first entry whose encoded key has the
// given prefix (prefix is the leading N*8 bytes produced by PrefixBytes;
// an empty prefix seeks to the very first entry in the tree).
func (t *Tree) Seek(prefix []byte) (*Cursor, error) {
	rootID := t.pager.IndexRoot(int(t.ordering))
	if rootID == pager.InvalidPageID {
		return &Cursor{tree: t, done: true}, nil
	}

	pageID := rootID
	for {
		buf, err := t.pager.ReadPage(pageID)
		if err != nil {
			return nil, err
		}
		if isLeafPage(buf) {
			lp := decodeLeaf(buf)
			t.pager.UnpinPage(pageID)
			idx := sort.Search(len(lp.entries), func(i int) bool {
				return keyCmp(lp.entries[i][:len(prefix)], prefix) >= 0
			})
			return &Cursor{tree: t, leaf: lp, leafIndex: idx, prefix: prefix}, nil
		}
		ip := decodeInterior(buf)
		t.pager.UnpinPage(pageID)
		childIdx := sort.Search(len(ip.separators), func(i int) bool {
			return keyCmp(ip.separators[i][:min(len(prefix), KeySize)], prefix) >= 0
		})
		pageID = ip.children[childIdx]
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Next advances the cursor and returns the entry it now points to, or ok
// == false once the prefix's matching run is exhausted.
func (c *Cursor) Next() (Entry, bool, error) {
	if c.done || c.leaf == nil {
		return Entry{}, false, nil
	}
	for {
		if c.leafIndex >= len(c.leaf.entries) {
			if c.leaf.nextLeaf == pager.InvalidPageID {
				c.done = true
				return Entry{}, false, nil
			}
			buf, err := c.tree.pager.ReadPage(c.leaf.nextLeaf)
			if err != nil {
				return Entry{}, false, err
			}
			next := decodeLeaf(buf)
			c.tree.pager.UnpinPage(c.leaf.nextLeaf)
			c.leaf = next
			c.leafIndex = 0
			continue
		}
		key := c.leaf.entries[c.leafIndex]
		if len(c.prefix) > 0 && !bytes.HasPrefix(key[:], c.prefix) {
			c.done = true
			return Entry{}, false, nil
		}
		entry := DecodeKey(key)
		c.leafIndex++
		return entry, true, nil
	}
}

// RangeCountEstimate returns a sampled count of tuples whose key matches
// prefix, for the planner's selectivity estimate. This
// implementation counts exactly rather than sampling a histogram, since
// the store's scale does not warrant the added complexity of maintaining
// one; callers treat it as an estimate regardless.
func (t *Tree) RangeCountEstimate(prefix []byte) (int, error) {
	cur, err := t.Seek(prefix)
	if err != nil {
		return 0, err
	}
	count := 0
	for {
		_, ok, err := cur.Next()
		if err != nil {
			return count, err
		}
		if !ok {
			return count, nil
		}
		count++
		if count >= 10000 {
			// Cap the walk: beyond this the planner only needs to know
			// "large", not the exact count.
			return count, nil
		}
	}
}
