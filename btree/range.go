package btree

import "github.com/perdixdb/perdix/record"

// descendToLeaf walks internal nodes toward the leaf that would contain
// key, using the same tie-break-right rule as Search.
func (t *Tree) descendToLeaf(key record.Value) (uint64, error) {
	offset := t.meta.RootPointer
	for {
		n, err := t.loadNode(offset)
		if err != nil {
			return 0, err
		}
		if n.isLeaf {
			return offset, nil
		}
		idx := childIndex(n.keys, key)
		offset = n.children[idx]
	}
}

// leftmostLeaf walks the left spine of the tree.
func (t *Tree) leftmostLeaf() (uint64, error) {
	offset := t.meta.RootPointer
	for {
		n, err := t.loadNode(offset)
		if err != nil {
			return 0, err
		}
		if n.isLeaf {
			return offset, nil
		}
		offset = n.children[0]
	}
}

// RangeSearch returns every binding with min <= key <= max, in ascending
// key order, by descending to the first candidate leaf and then walking
// the leaf chain via each leaf's next pointer (spec §4.3.3).
func (t *Tree) RangeSearch(min, max record.Value) ([]KV, error) {
	if record.Compare(min, max) > 0 {
		return nil, ErrRangeInverted
	}

	offset, err := t.descendToLeaf(min)
	if err != nil {
		return nil, err
	}

	var out []KV
	for {
		leaf, err := t.loadNode(offset)
		if err != nil {
			return nil, err
		}

		stop := false
		for i, k := range leaf.keys {
			if record.Compare(k, min) < 0 {
				continue
			}
			if record.Compare(k, max) > 0 {
				stop = true
				break
			}
			out = append(out, KV{Key: k, Value: leaf.values[i]})
		}
		if stop || leaf.next == nil {
			break
		}
		offset = *leaf.next
	}
	return out, nil
}

// ToArray returns every binding in ascending key order.
func (t *Tree) ToArray() ([]KV, error) {
	offset, err := t.leftmostLeaf()
	if err != nil {
		return nil, err
	}

	var out []KV
	for {
		leaf, err := t.loadNode(offset)
		if err != nil {
			return nil, err
		}
		for i, k := range leaf.keys {
			out = append(out, KV{Key: k, Value: leaf.values[i]})
		}
		if leaf.next == nil {
			break
		}
		offset = *leaf.next
	}
	return out, nil
}

// GetHeight returns the number of levels from root to leaf, inclusive: 1
// for a tree whose root is itself a leaf (no internal nodes yet), 2 once
// the first split introduces an internal root, and so on.
func (t *Tree) GetHeight() (int, error) {
	height := 1
	offset := t.meta.RootPointer
	for {
		n, err := t.loadNode(offset)
		if err != nil {
			return 0, err
		}
		if n.isLeaf {
			return height, nil
		}
		offset = n.children[0]
		height++
	}
}
