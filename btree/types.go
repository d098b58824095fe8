package btree

import "github.com/perdixdb/perdix/record"

// Options configures a Tree at creation time, the btree analogue of the
// teacher's MariOpts.
type Options struct {
	// Path is the backing BlockFile's path.
	Path string
	// Order is the branching factor N (spec §4.3.1). Must be >= 3.
	Order int
	// NodePoolSize bounds the recycled-node pool (teacher's NodePool.go).
	// Zero selects a small sensible default.
	NodePoolSize int
}

// KV is a single key/value binding, returned by RangeSearch and ToArray.
type KV struct {
	Key   record.Value
	Value record.Value
}

// Meta is the trailing, fixed-width metadata record of spec §4.3.4.
type Meta struct {
	Version     int64
	MaxEntries  int64
	MinEntries  int64
	Size        int64
	RootPointer uint64
	NextID      int64
}

// node is the in-memory shape of a B+ tree node (spec §3.4). Leaves carry
// Values of equal length to Keys; internal nodes carry Children with
// len(Children) == len(Keys)+1.
type node struct {
	id       int64
	isLeaf   bool
	keys     []record.Value
	values   []record.Value // leaf only
	children []uint64       // internal only; offsets of child nodes
	next     *uint64         // leaf only; offset of the next leaf, if any

	offset uint64 // the offset this node was last persisted at (0 if unwritten)
}

func (n *node) clone() *node {
	cp := &node{
		id:     n.id,
		isLeaf: n.isLeaf,
		offset: n.offset,
	}
	cp.keys = append([]record.Value(nil), n.keys...)
	if n.isLeaf {
		cp.values = append([]record.Value(nil), n.values...)
		if n.next != nil {
			next := *n.next
			cp.next = &next
		}
	} else {
		cp.children = append([]uint64(nil), n.children...)
	}
	return cp
}
