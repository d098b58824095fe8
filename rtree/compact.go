package rtree

import (
	"github.com/perdixdb/perdix/blockfile"
	"github.com/perdixdb/perdix/internal/compactstats"
	"github.com/perdixdb/perdix/internal/plog"
)

// closeOnCompactErr best-effort closes bf when Compact is unwinding after
// a failure; the compaction error is already what gets returned to the
// caller, so a failure here can only be logged, not propagated.
func closeOnCompactErr(bf *blockfile.BlockFile) {
	if err := bf.Close(); err != nil {
		plog.Warn("rtree: close during compact cleanup: %v", err)
	}
}

// Compact rewrites the tree into a fresh, dense file at destPath (spec
// §4.6). Unlike the btree package's array-replay rebuild, the R-tree has
// no total order to replay through; instead it performs a post-order clone
// of the reachable node graph, memoizing old-offset -> new-offset so a
// shared sub-DAG (possible because of copy-on-write overlap between
// versions) is written only once.
func (t *Tree) Compact(destPath string) (compactstats.Result, error) {
	oldSize, err := t.bf.Size()
	if err != nil {
		return compactstats.Result{}, err
	}

	if blockfile.Exists(destPath) {
		if err := blockfile.Delete(destPath); err != nil {
			return compactstats.Result{}, err
		}
	}

	destBf, err := blockfile.Open(destPath, blockfile.ReadWrite)
	if err != nil {
		return compactstats.Result{}, err
	}
	dest := &Tree{
		opts: Options{Path: destPath, MaxEntries: int(t.meta.MaxEntries), NodePoolSize: t.opts.NodePoolSize},
		bf:   destBf,
		pool: newNodePool(t.opts.NodePoolSize),
	}

	memo := make(map[uint64]uint64)
	newRoot, err := t.cloneRecursive(t.meta.RootPointer, dest, memo)
	if err != nil {
		closeOnCompactErr(destBf)
		return compactstats.Result{}, err
	}

	dest.meta = Meta{
		Version:     0,
		MaxEntries:  t.meta.MaxEntries,
		MinEntries:  t.meta.MinEntries,
		Size:        t.meta.Size,
		RootPointer: newRoot,
		NextID:      t.meta.NextID,
	}
	if err := appendMeta(destBf, dest.meta); err != nil {
		closeOnCompactErr(destBf)
		return compactstats.Result{}, err
	}
	if err := destBf.Close(); err != nil {
		return compactstats.Result{}, err
	}

	reread, err := blockfile.Open(destPath, blockfile.ReadOnly)
	if err != nil {
		return compactstats.Result{}, err
	}
	newSize, err := reread.Size()
	if err != nil {
		closeOnCompactErr(reread)
		return compactstats.Result{}, err
	}
	if err := reread.Close(); err != nil {
		return compactstats.Result{}, err
	}

	return compactstats.Compute(oldSize, newSize), nil
}

func (t *Tree) cloneRecursive(offset uint64, dest *Tree, memo map[uint64]uint64) (uint64, error) {
	if newOff, ok := memo[offset]; ok {
		return newOff, nil
	}

	n, err := t.loadNode(offset)
	if err != nil {
		return 0, err
	}

	if n.isLeaf {
		cp := &node{id: n.id, isLeaf: true, bbox: n.bbox}
		cp.entries = append([]Entry(nil), n.entries...)
		newOff, err := dest.writeNode(cp)
		if err != nil {
			return 0, err
		}
		memo[offset] = newOff
		return newOff, nil
	}

	cp := &node{id: n.id, isLeaf: false, bbox: n.bbox}
	for i, childOffset := range n.children {
		newChildOffset, err := t.cloneRecursive(childOffset, dest, memo)
		if err != nil {
			return 0, err
		}
		cp.children = append(cp.children, newChildOffset)
		cp.childBBoxes = append(cp.childBBoxes, n.childBBoxes[i])
	}

	newOff, err := dest.writeNode(cp)
	if err != nil {
		return 0, err
	}
	memo[offset] = newOff
	return newOff, nil
}
