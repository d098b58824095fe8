package rtree

import "github.com/perdixdb/perdix/record"

// Options configures a Tree at creation time.
type Options struct {
	// Path is the backing BlockFile's path.
	Path string
	// MaxEntries is the branching factor (spec §4.4.1). Zero selects the
	// spec's default of 9.
	MaxEntries int
	// NodePoolSize bounds the recycled-node pool.
	NodePoolSize int
}

// Entry is a leaf binding: a point and the object it identifies.
type Entry struct {
	Lat, Lng float64
	ObjectId record.ObjectId
}

func (e Entry) bbox() BBox { return pointBBox(e.Lat, e.Lng) }

// Hit is a SearchBBox result.
type Hit struct {
	ObjectId record.ObjectId
	Lat, Lng float64
}

// RadiusHit is a SearchRadius result, additionally carrying the Haversine
// distance from the query point.
type RadiusHit struct {
	ObjectId record.ObjectId
	Lat, Lng float64
	Distance float64
}

// Meta is the trailing, fixed-width metadata record of spec §4.4.4.
type Meta struct {
	Version     int64
	MaxEntries  int64
	MinEntries  int64
	Size        int64
	RootPointer uint64
	NextID      int64
}

// node is the in-memory shape of an R-tree node (spec §3, "R-Tree node").
// Leaves carry point Entries; internal nodes carry child Pointers paired
// with each child's bounding box.
type node struct {
	id     int64
	isLeaf bool
	bbox   BBox

	entries []Entry // leaf only

	children    []uint64 // internal only
	childBBoxes []BBox   // internal only, parallel to children

	offset uint64
}

func (n *node) clone() *node {
	cp := &node{id: n.id, isLeaf: n.isLeaf, bbox: n.bbox, offset: n.offset}
	if n.isLeaf {
		cp.entries = append([]Entry(nil), n.entries...)
	} else {
		cp.children = append([]uint64(nil), n.children...)
		cp.childBBoxes = append([]BBox(nil), n.childBBoxes...)
	}
	return cp
}

func (n *node) childCount() int {
	if n.isLeaf {
		return len(n.entries)
	}
	return len(n.children)
}

func entriesBBox(entries []Entry) BBox {
	boxes := make([]BBox, len(entries))
	for i, e := range entries {
		boxes[i] = e.bbox()
	}
	return unionAll(boxes)
}
