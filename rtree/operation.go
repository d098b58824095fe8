package rtree

import (
	"github.com/perdixdb/perdix/blockfile"
	"github.com/perdixdb/perdix/internal/plog"
	"github.com/perdixdb/perdix/record"
)

// Tree is a copy-on-write R-tree over a single BlockFile (spec §4.4). As
// with the btree package, every mutation appends fresh node images and a
// fresh trailing metadata record.
type Tree struct {
	opts Options
	bf   *blockfile.BlockFile
	meta Meta
	pool *nodePool
}

const defaultMaxEntries = 9

// closeOnOpenErr best-effort closes bf when Open is unwinding after a
// failure; the open error is already what gets returned to the caller, so
// a failure here can only be logged, not propagated.
func closeOnOpenErr(bf *blockfile.BlockFile) {
	if err := bf.Close(); err != nil {
		plog.Warn("rtree: close during open cleanup: %v", err)
	}
}

// Open opens (or initializes) a Tree backed by opts.Path.
func Open(opts Options) (*Tree, error) {
	maxEntries := opts.MaxEntries
	if maxEntries == 0 {
		maxEntries = defaultMaxEntries
	}
	if maxEntries < 3 {
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
		if err := t.initializeFile(maxEntries); err != nil {
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

func (t *Tree) initializeFile(maxEntries int) error {
	minEntries := maxEntries / 2
	if maxEntries%2 != 0 {
		minEntries++
	}
	if minEntries < 2 {
		minEntries = 2
	}

	root := t.pool.get()
	root.isLeaf = true
	rootOffset, err := t.writeNode(root)
	if err != nil {
		return err
	}

	t.meta = Meta{
		Version:     0,
		MaxEntries:  int64(maxEntries),
		MinEntries:  int64(minEntries),
		Size:        0,
		RootPointer: rootOffset,
		NextID:      1,
	}
	return appendMeta(t.bf, t.meta)
}

// Close releases the underlying BlockFile.
func (t *Tree) Close() error { return t.bf.Close() }

// Size returns the number of indexed points.
func (t *Tree) Size() int64 { return t.meta.Size }

// Clear destroys the backing file and reinitializes an empty tree.
func (t *Tree) Clear() error {
	path := t.opts.Path
	if err := t.bf.Close(); err != nil {
		return err
	}
	if err := blockfile.Delete(path); err != nil {
		return err
	}
	bf, err := blockfile.Open(path, blockfile.ReadWrite)
	if err != nil {
		return err
	}
	t.bf = bf
	maxEntries := int(t.meta.MaxEntries)
	if maxEntries == 0 {
		maxEntries = defaultMaxEntries
	}
	return t.initializeFile(maxEntries)
}

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
	data, err := encodeNode(n)
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

func chooseSubtree(n *node, lat, lng float64) int {
	point := pointBBox(lat, lng)
	best := 0
	bestEnlarge := -1.0
	bestArea := -1.0
	for i, bb := range n.childBBoxes {
		enlarge := areaOf(unionBBox(bb, point)) - areaOf(bb)
		area := areaOf(bb)
		if bestEnlarge < 0 || enlarge < bestEnlarge || (enlarge == bestEnlarge && area < bestArea) {
			best = i
			bestEnlarge = enlarge
			bestArea = area
		}
	}
	return best
}

type splitPart struct {
	offset uint64
	bbox   BBox
}

type insertResult struct {
	node    splitPart
	split   bool
	sibling splitPart
}

// Insert adds a point entry (spec §4.4.2).
func (t *Tree) Insert(lat, lng float64, oid record.ObjectId) error {
	res, err := t.insertRecursive(t.meta.RootPointer, lat, lng, oid)
	if err != nil {
		return err
	}

	newRoot := res.node.offset
	if res.split {
		root := t.pool.get()
		root.id = t.allocID()
		root.isLeaf = false
		root.children = []uint64{res.node.offset, res.sibling.offset}
		root.childBBoxes = []BBox{res.node.bbox, res.sibling.bbox}
		root.bbox = unionBBox(res.node.bbox, res.sibling.bbox)
		newRoot, err = t.writeNode(root)
		if err != nil {
			return err
		}
		t.pool.put(root)
	}

	t.meta.RootPointer = newRoot
	t.meta.Version++
	t.meta.Size++
	return appendMeta(t.bf, t.meta)
}

func (t *Tree) insertRecursive(offset uint64, lat, lng float64, oid record.ObjectId) (insertResult, error) {
	n, err := t.loadNode(offset)
	if err != nil {
		return insertResult{}, err
	}

	if n.isLeaf {
		cp := n.clone()
		t.pool.put(n)
		cp.entries = append(cp.entries, Entry{Lat: lat, Lng: lng, ObjectId: oid})
		cp.bbox = entriesBBox(cp.entries)

		if int64(len(cp.entries)) <= t.meta.MaxEntries {
			newOff, err := t.writeNode(cp)
			t.pool.put(cp)
			return insertResult{node: splitPart{newOff, cp.bbox}}, err
		}

		boxes := make([]BBox, len(cp.entries))
		for i, e := range cp.entries {
			boxes[i] = e.bbox()
		}
		groupA, groupB := quadraticSplitIndices(boxes)

		left := t.pool.get()
		left.id = cp.id
		left.isLeaf = true
		for _, idx := range groupA {
			left.entries = append(left.entries, cp.entries[idx])
		}
		left.bbox = entriesBBox(left.entries)

		right := t.pool.get()
		right.id = t.allocID()
		right.isLeaf = true
		for _, idx := range groupB {
			right.entries = append(right.entries, cp.entries[idx])
		}
		right.bbox = entriesBBox(right.entries)
		t.pool.put(cp)

		leftOff, err := t.writeNode(left)
		if err != nil {
			return insertResult{}, err
		}
		rightOff, err := t.writeNode(right)
		if err != nil {
			return insertResult{}, err
		}
		leftBBox, rightBBox := left.bbox, right.bbox
		t.pool.put(left)
		t.pool.put(right)

		return insertResult{
			node:    splitPart{leftOff, leftBBox},
			split:   true,
			sibling: splitPart{rightOff, rightBBox},
		}, nil
	}

	idx := chooseSubtree(n, lat, lng)
	childRes, err := t.insertRecursive(n.children[idx], lat, lng, oid)
	if err != nil {
		return insertResult{}, err
	}

	cp := n.clone()
	t.pool.put(n)
	cp.children[idx] = childRes.node.offset
	cp.childBBoxes[idx] = childRes.node.bbox
	if childRes.split {
		cp.children = append(cp.children, childRes.sibling.offset)
		cp.childBBoxes = append(cp.childBBoxes, childRes.sibling.bbox)
	}
	cp.bbox = unionAll(cp.childBBoxes)

	if int64(len(cp.children)) <= t.meta.MaxEntries {
		newOff, err := t.writeNode(cp)
		t.pool.put(cp)
		return insertResult{node: splitPart{newOff, cp.bbox}}, err
	}

	groupA, groupB := quadraticSplitIndices(cp.childBBoxes)

	left := t.pool.get()
	left.id = cp.id
	left.isLeaf = false
	for _, i := range groupA {
		left.children = append(left.children, cp.children[i])
		left.childBBoxes = append(left.childBBoxes, cp.childBBoxes[i])
	}
	left.bbox = unionAll(left.childBBoxes)

	right := t.pool.get()
	right.id = t.allocID()
	right.isLeaf = false
	for _, i := range groupB {
		right.children = append(right.children, cp.children[i])
		right.childBBoxes = append(right.childBBoxes, cp.childBBoxes[i])
	}
	right.bbox = unionAll(right.childBBoxes)
	t.pool.put(cp)

	leftOff, err := t.writeNode(left)
	if err != nil {
		return insertResult{}, err
	}
	rightOff, err := t.writeNode(right)
	if err != nil {
		return insertResult{}, err
	}
	leftBBox, rightBBox := left.bbox, right.bbox
	t.pool.put(left)
	t.pool.put(right)

	return insertResult{
		node:    splitPart{leftOff, leftBBox},
		split:   true,
		sibling: splitPart{rightOff, rightBBox},
	}, nil
}

// Remove deletes the entry for oid, reporting whether it was present.
func (t *Tree) Remove(oid record.ObjectId) (bool, error) {
	newRootOff, _, removed, err := t.removeRecursive(t.meta.RootPointer, oid)
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
	if !root.isLeaf {
		switch len(root.children) {
		case 0:
			fresh := t.pool.get()
			fresh.isLeaf = true
			newRootOff, err = t.writeNode(fresh)
			if err != nil {
				return false, err
			}
			t.pool.put(fresh)
		case 1:
			newRootOff = root.children[0]
		}
	}

	t.meta.RootPointer = newRootOff
	t.meta.Version++
	t.meta.Size--
	return true, appendMeta(t.bf, t.meta)
}

// removeRecursive locates oid by visiting every reachable leaf (the
// operation is keyed by objectId, not by a spatial hint, so no bbox
// pruning is available during the search itself). On removal it rebalances
// the underflowing child against an adjacent sibling (spec §4.4.2).
func (t *Tree) removeRecursive(offset uint64, oid record.ObjectId) (uint64, BBox, bool, error) {
	n, err := t.loadNode(offset)
	if err != nil {
		return 0, BBox{}, false, err
	}

	if n.isLeaf {
		idx := -1
		for i, e := range n.entries {
			if e.ObjectId == oid {
				idx = i
				break
			}
		}
		if idx == -1 {
			return offset, n.bbox, false, nil
		}
		cp := n.clone()
		t.pool.put(n)
		cp.entries = append(cp.entries[:idx], cp.entries[idx+1:]...)
		cp.bbox = entriesBBox(cp.entries)
		newOff, err := t.writeNode(cp)
		bbox := cp.bbox
		t.pool.put(cp)
		return newOff, bbox, true, err
	}

	for i, childOff := range n.children {
		newChildOff, newChildBBox, removed, err := t.removeRecursive(childOff, oid)
		if err != nil {
			return 0, BBox{}, false, err
		}
		if !removed {
			continue
		}

		cp := n.clone()
		t.pool.put(n)
		cp.children[i] = newChildOff
		cp.childBBoxes[i] = newChildBBox

		child, err := t.loadNode(newChildOff)
		if err != nil {
			return 0, BBox{}, false, err
		}
		count := child.childCount()
		t.pool.put(child)

		switch {
		case count == 0:
			cp.children = append(cp.children[:i], cp.children[i+1:]...)
			cp.childBBoxes = append(cp.childBBoxes[:i], cp.childBBoxes[i+1:]...)
		case int64(count) < t.meta.MinEntries && len(cp.children) > 1:
			j := i + 1
			if j >= len(cp.children) {
				j = i - 1
			}
			if err := t.rebalance(cp, i, j); err != nil {
				return 0, BBox{}, false, err
			}
		}

		cp.bbox = unionAll(cp.childBBoxes)
		newOff, err := t.writeNode(cp)
		bbox := cp.bbox
		t.pool.put(cp)
		return newOff, bbox, true, err
	}

	return offset, n.bbox, false, nil
}

// rebalance redistributes or merges the children at indices i and j of
// parent, in place on the (already cloned) parent node.
func (t *Tree) rebalance(parent *node, i, j int) error {
	lo, hi := i, j
	if lo > hi {
		lo, hi = hi, lo
	}

	a, err := t.loadNode(parent.children[lo])
	if err != nil {
		return err
	}
	b, err := t.loadNode(parent.children[hi])
	if err != nil {
		return err
	}

	if a.isLeaf {
		aID, bID := a.id, b.id
		combined := append(append([]Entry(nil), a.entries...), b.entries...)
		t.pool.put(a)
		t.pool.put(b)
		if int64(len(combined)) <= t.meta.MaxEntries {
			merged := t.pool.get()
			merged.id = aID
			merged.isLeaf = true
			merged.entries = combined
			merged.bbox = entriesBBox(combined)
			off, err := t.writeNode(merged)
			if err != nil {
				return err
			}
			parent.children[lo] = off
			parent.childBBoxes[lo] = merged.bbox
			parent.children = append(parent.children[:hi], parent.children[hi+1:]...)
			parent.childBBoxes = append(parent.childBBoxes[:hi], parent.childBBoxes[hi+1:]...)
			t.pool.put(merged)
			return nil
		}

		boxes := make([]BBox, len(combined))
		for k, e := range combined {
			boxes[k] = e.bbox()
		}
		groupA, groupB := quadraticSplitIndices(boxes)

		left := t.pool.get()
		left.id = aID
		left.isLeaf = true
		for _, idx := range groupA {
			left.entries = append(left.entries, combined[idx])
		}
		left.bbox = entriesBBox(left.entries)

		right := t.pool.get()
		right.id = bID
		right.isLeaf = true
		for _, idx := range groupB {
			right.entries = append(right.entries, combined[idx])
		}
		right.bbox = entriesBBox(right.entries)

		leftOff, err := t.writeNode(left)
		if err != nil {
			return err
		}
		rightOff, err := t.writeNode(right)
		if err != nil {
			return err
		}
		parent.children[lo], parent.childBBoxes[lo] = leftOff, left.bbox
		parent.children[hi], parent.childBBoxes[hi] = rightOff, right.bbox
		t.pool.put(left)
		t.pool.put(right)
		return nil
	}

	aID, bID := a.id, b.id
	combinedChildren := append(append([]uint64(nil), a.children...), b.children...)
	combinedBoxes := append(append([]BBox(nil), a.childBBoxes...), b.childBBoxes...)
	t.pool.put(a)
	t.pool.put(b)

	if int64(len(combinedChildren)) <= t.meta.MaxEntries {
		merged := t.pool.get()
		merged.id = aID
		merged.isLeaf = false
		merged.children = combinedChildren
		merged.childBBoxes = combinedBoxes
		merged.bbox = unionAll(combinedBoxes)
		off, err := t.writeNode(merged)
		if err != nil {
			return err
		}
		parent.children[lo] = off
		parent.childBBoxes[lo] = merged.bbox
		parent.children = append(parent.children[:hi], parent.children[hi+1:]...)
		parent.childBBoxes = append(parent.childBBoxes[:hi], parent.childBBoxes[hi+1:]...)
		t.pool.put(merged)
		return nil
	}

	groupA, groupB := quadraticSplitIndices(combinedBoxes)

	left := t.pool.get()
	left.id = aID
	left.isLeaf = false
	for _, idx := range groupA {
		left.children = append(left.children, combinedChildren[idx])
		left.childBBoxes = append(left.childBBoxes, combinedBoxes[idx])
	}
	left.bbox = unionAll(left.childBBoxes)

	right := t.pool.get()
	right.id = bID
	right.isLeaf = false
	for _, idx := range groupB {
		right.children = append(right.children, combinedChildren[idx])
		right.childBBoxes = append(right.childBBoxes, combinedBoxes[idx])
	}
	right.bbox = unionAll(right.childBBoxes)

	leftOff, err := t.writeNode(left)
	if err != nil {
		return err
	}
	rightOff, err := t.writeNode(right)
	if err != nil {
		return err
	}
	parent.children[lo], parent.childBBoxes[lo] = leftOff, left.bbox
	parent.children[hi], parent.childBBoxes[hi] = rightOff, right.bbox
	t.pool.put(left)
	t.pool.put(right)
	return nil
}
