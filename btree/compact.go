package btree

import (
	"github.com/perdixdb/perdix/blockfile"
	"github.com/perdixdb/perdix/internal/compactstats"
)

// Compact rewrites the tree's live entries into a fresh, dense file at
// destPath (spec §4.6). The rebuild walks ToArray() in ascending order and
// replays it through Add, which yields balanced, gap-free nodes the same
// way a from-scratch build would.
func (t *Tree) Compact(destPath string) (compactstats.Result, error) {
	oldSize, err := t.bf.Size()
	if err != nil {
		return compactstats.Result{}, err
	}

	entries, err := t.ToArray()
	if err != nil {
		return compactstats.Result{}, err
	}

	if blockfile.Exists(destPath) {
		if err := blockfile.Delete(destPath); err != nil {
			return compactstats.Result{}, err
		}
	}

	dest, err := Open(Options{
		Path:         destPath,
		Order:        t.opts.Order,
		NodePoolSize: t.opts.NodePoolSize,
	})
	if err != nil {
		return compactstats.Result{}, err
	}
	defer dest.Close()

	for _, kv := range entries {
		if _, err := dest.Add(kv.Key, kv.Value); err != nil {
			return compactstats.Result{}, err
		}
	}

	newSize, err := dest.bf.Size()
	if err != nil {
		return compactstats.Result{}, err
	}

	return compactstats.Compute(oldSize, newSize), nil
}
