package btree

import (
	"github.com/perdixdb/perdix/blockfile"
	"github.com/perdixdb/perdix/internal/plog"
	"github.com/perdixdb/perdix/record"
)

// Tree is an order-N copy-on-write B+ tree over a single BlockFile (spec
// §4.3). Every mutation appends fresh node images and a fresh trailing
// metadata record; nothing is ever overwritten in place.
type Tree struct {
	opts Options
	bf   *blockfile.BlockFile
	meta Meta
	pool *nodePool
}

// closeOnOpenErr best-effort closes bf when Open is unwinding after a
// failure; the open error is already what gets returned to the caller, so
// a failure here can only be logged, not propagated.
func closeOnOpenErr(bf *blockfile.BlockFile) {
	if err := bf.Close(); err != nil {
		plog.Warn("btree: close during open cleanup: %v", err)
	}
}

// Open opens (or initializes) a Tree backed by opts.Path.
func Open(opts Options) (*Tree, error) {
	if opts.Order < 3 {
		return nil, ErrInvalidOrder
	}

	bf, err := blockfile.Open(opts.Path, blockfile.ReadWrite)
	if err != nil {
		return nil, err
	}

	t := &Tree{
		opts: opts,
		bf:   bf,
		pool: newNodePool(opts.NodePoolSize),
	}

	size, err := bf.Size()
	if err != nil {
		closeOnOpenErr(bf)
		return nil, err
	}

	if size == 0 {
		maxEntries := int64(opts.Order - 1)
		minEntries := int64((opts.Order+1)/2 - 1)

		root := t.pool.get()
		root.id = 0
		root.isLeaf = true
		rootOffset, err := t.writeNode(root)
		if err != nil {
			closeOnOpenErr(bf)
			return nil, err
		}

		t.meta = Meta{
			Version:     0,
			MaxEntries:  maxEntries,
			MinEntries:  minEntries,
			Size:        0,
			RootPointer: rootOffset,
			NextID:      1,
		}
		if err := appendMeta(bf, t.meta); err != nil {
			closeOnOpenErr(bf)
			return nil, err
		}
		return t, nil
	}

	meta, err := readMeta(bf)
	if err != nil {
		closeOnOpenErr(bf)
		return nil, err
	}
	t.meta = meta
	return t, nil
}

// Close releases the underlying BlockFile.
func (t *Tree) Close() error {
	return t.bf.Close()
}

// Size returns the number of distinct keys currently stored.
func (t *Tree) Size() int64 { return t.meta.Size }

// Version returns the tree's current mutation version.
func (t *Tree) Version() int64 { return t.meta.Version }

func (t *Tree) allocID() int64 {
	id := t.meta.NextID
	t.meta.NextID++
	return id
}

func (t *Tree) loadNode(offset uint64) (*node, error) {
	length, err := record.SizeAt(t.bf, offset)
	if err != nil {
		return nil, err
	}
	data, err := t.bf.ReadRange(offset, length)
	if err != nil {
		return nil, err
	}
	v, err := record.Decode(data)
	if err != nil {
		return nil, err
	}
	n, err := decodeNode(v)
	if err != nil {
		return nil, err
	}
	n.offset = offset
	return n, nil
}

func (t *Tree) writeNode(n *node) (uint64, error) {
	_, data, err := encodeNode(n)
	if err != nil {
		return 0, err
	}
	offset, err := t.bf.Append(data)
	if err != nil {
		return 0, err
	}
	n.offset = offset
	return offset, nil
}

// childIndex finds the child slot key should descend into. Ties break
// right: the index advances while key is greater than or equal to the
// separator, per spec §4.3.3.
func childIndex(keys []record.Value, key record.Value) int {
	idx := 0
	for idx < len(keys) && record.Compare(key, keys[idx]) >= 0 {
		idx++
	}
	return idx
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

func insertValueAt(s []record.Value, idx int, v record.Value) []record.Value {
	s = append(s, record.Value{})
	copy(s[idx+1:], s[idx:])
	s[idx] = v
	return s
}

func insertPointerAt(s []uint64, idx int, v uint64) []uint64 {
	s = append(s, 0)
	copy(s[idx+1:], s[idx:])
	s[idx] = v
	return s
}

// Search looks up key and reports whether a binding exists.
func (t *Tree) Search(key record.Value) (record.Value, bool, error) {
	offset := t.meta.RootPointer
	for {
		n, err := t.loadNode(offset)
		if err != nil {
			return record.Value{}, false, err
		}
		if n.isLeaf {
			for i, k := range n.keys {
				if record.Compare(key, k) == 0 {
					return n.values[i], true, nil
				}
			}
			return record.Value{}, false, nil
		}
		idx := childIndex(n.keys, key)
		offset = n.children[idx]
	}
}

type insertResult struct {
	newOffset     uint64
	existed       bool
	split         bool
	splitKey      record.Value
	siblingOffset uint64
}

// Add inserts or updates the binding for key, returning whether the key
// already existed. Size only increases on a genuinely new key (spec §9: a
// reinsertion of an existing key must not double count).
func (t *Tree) Add(key, value record.Value) (bool, error) {
	res, err := t.insertRecursive(t.meta.RootPointer, key, value)
	if err != nil {
		return false, err
	}

	newRoot := res.newOffset
	if res.split {
		root := t.pool.get()
		root.id = t.allocID()
		root.isLeaf = false
		root.keys = []record.Value{res.splitKey}
		root.children = []uint64{res.newOffset, res.siblingOffset}
		newRoot, err = t.writeNode(root)
		if err != nil {
			return false, err
		}
		t.pool.put(root)
	}

	t.meta.RootPointer = newRoot
	t.meta.Version++
	if !res.existed {
		t.meta.Size++
	}
	if err := appendMeta(t.bf, t.meta); err != nil {
		return false, err
	}
	return res.existed, nil
}

func (t *Tree) insertRecursive(offset uint64, key, value record.Value) (insertResult, error) {
	n, err := t.loadNode(offset)
	if err != nil {
		return insertResult{}, err
	}

	if n.isLeaf {
		idx := 0
		for idx < len(n.keys) && record.Compare(key, n.keys[idx]) > 0 {
			idx++
		}
		existed := idx < len(n.keys) && record.Compare(key, n.keys[idx]) == 0

		cp := n.clone()
		t.pool.put(n)
		if existed {
			cp.values[idx] = value
		} else {
			cp.keys = insertValueAt(cp.keys, idx, key)
			cp.values = insertValueAt(cp.values, idx, value)
		}

		if int64(len(cp.keys)) <= t.meta.MaxEntries {
			newOff, err := t.writeNode(cp)
			t.pool.put(cp)
			return insertResult{newOffset: newOff, existed: existed}, err
		}

		mid := ceilDiv(len(cp.keys), 2)

		left := t.pool.get()
		left.id = cp.id
		left.isLeaf = true
		left.keys = append([]record.Value(nil), cp.keys[:mid]...)
		left.values = append([]record.Value(nil), cp.values[:mid]...)

		right := t.pool.get()
		right.id = t.allocID()
		right.isLeaf = true
		right.keys = append([]record.Value(nil), cp.keys[mid:]...)
		right.values = append([]record.Value(nil), cp.values[mid:]...)
		right.next = cp.next
		t.pool.put(cp)

		rightOff, err := t.writeNode(right)
		if err != nil {
			return insertResult{}, err
		}
		left.next = &rightOff
		leftOff, err := t.writeNode(left)
		if err != nil {
			return insertResult{}, err
		}
		splitKey := right.keys[0]
		t.pool.put(left)
		t.pool.put(right)

		return insertResult{
			newOffset:     leftOff,
			existed:       existed,
			split:         true,
			splitKey:      splitKey,
			siblingOffset: rightOff,
		}, nil
	}

	idx := childIndex(n.keys, key)
	childRes, err := t.insertRecursive(n.children[idx], key, value)
	if err != nil {
		return insertResult{}, err
	}

	cp := n.clone()
	t.pool.put(n)
	cp.children[idx] = childRes.newOffset

	if !childRes.split {
		newOff, err := t.writeNode(cp)
		t.pool.put(cp)
		return insertResult{newOffset: newOff, existed: childRes.existed}, err
	}

	cp.keys = insertValueAt(cp.keys, idx, childRes.splitKey)
	cp.children = insertPointerAt(cp.children, idx+1, childRes.siblingOffset)

	if int64(len(cp.keys)) <= t.meta.MaxEntries {
		newOff, err := t.writeNode(cp)
		t.pool.put(cp)
		return insertResult{newOffset: newOff, existed: childRes.existed}, err
	}

	mid := ceilDiv(len(cp.keys), 2) - 1
	promoted := cp.keys[mid]

	left := t.pool.get()
	left.id = cp.id
	left.isLeaf = false
	left.keys = append([]record.Value(nil), cp.keys[:mid]...)
	left.children = append([]uint64(nil), cp.children[:mid+1]...)

	right := t.pool.get()
	right.id = t.allocID()
	right.isLeaf = false
	right.keys = append([]record.Value(nil), cp.keys[mid+1:]...)
	right.children = append([]uint64(nil), cp.children[mid+1:]...)
	t.pool.put(cp)

	leftOff, err := t.writeNode(left)
	if err != nil {
		return insertResult{}, err
	}
	rightOff, err := t.writeNode(right)
	if err != nil {
		return insertResult{}, err
	}
	t.pool.put(left)
	t.pool.put(right)

	return insertResult{
		newOffset:     leftOff,
		existed:       childRes.existed,
		split:         true,
		splitKey:      promoted,
		siblingOffset: rightOff,
	}, nil
}

// Delete removes key, reporting whether it was present. No redistribution
// or merge happens on underflow (spec §4.3.5): a node left thin stays thin
// until the next Compact. The root collapses one level when a delete
// leaves it with a single child.
func (t *Tree) Delete(key record.Value) (bool, error) {
	newRootOff, removed, err := t.deleteRecursive(t.meta.RootPointer, key)
	if err != nil {
		return false, err
	}
	if !removed {
		return false, nil
	}

	root, err := t.loadNode(newRootOff)
	if err != nil {
		return false, err
	}
	if !root.isLeaf && len(root.children) == 1 {
		newRootOff = root.children[0]
	}

	t.meta.RootPointer = newRootOff
	t.meta.Version++
	t.meta.Size--
	if err := appendMeta(t.bf, t.meta); err != nil {
		return false, err
	}
	return true, nil
}

func (t *Tree) deleteRecursive(offset uint64, key record.Value) (uint64, bool, error) {
	n, err := t.loadNode(offset)
	if err != nil {
		return 0, false, err
	}

	if n.isLeaf {
		idx := -1
		for i, k := range n.keys {
			if record.Compare(key, k) == 0 {
				idx = i
				break
			}
		}
		if idx == -1 {
			return offset, false, nil
		}

		cp := n.clone()
		t.pool.put(n)
		cp.keys = append(cp.keys[:idx], cp.keys[idx+1:]...)
		cp.values = append(cp.values[:idx], cp.values[idx+1:]...)
		newOff, err := t.writeNode(cp)
		t.pool.put(cp)
		return newOff, true, err
	}

	idx := childIndex(n.keys, key)
	childOff, removed, err := t.deleteRecursive(n.children[idx], key)
	if err != nil {
		return 0, false, err
	}
	if !removed {
		return offset, false, nil
	}

	cp := n.clone()
	t.pool.put(n)
	cp.children[idx] = childOff
	newOff, err := t.writeNode(cp)
	t.pool.put(cp)
	return newOff, true, err
}
