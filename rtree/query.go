package rtree

// SearchBBox returns every entry whose point falls inside query, inclusive
// of all four edges (spec §4.4.2, §4.4.5). It never mutates the tree.
func (t *Tree) SearchBBox(query BBox) ([]Hit, error) {
	var out []Hit
	if err := t.searchBBoxRecursive(t.meta.RootPointer, query, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (t *Tree) searchBBoxRecursive(offset uint64, query BBox, out *[]Hit) error {
	n, err := t.loadNode(offset)
	if err != nil {
		return err
	}

	if n.isLeaf {
		for _, e := range n.entries {
			if pointInBBox(e.Lat, e.Lng, query) {
				*out = append(*out, Hit{ObjectId: e.ObjectId, Lat: e.Lat, Lng: e.Lng})
			}
		}
		return nil
	}

	for i, childBox := range n.childBBoxes {
		if intersects(childBox, query) {
			if err := t.searchBBoxRecursive(n.children[i], query, out); err != nil {
				return err
			}
		}
	}
	return nil
}

// SearchRadius returns every entry within radiusKm of (lat, lng), using an
// admissible bounding-box over-approximation to prune the search and
// Haversine distance as the authoritative filter (spec §4.4.2, §4.4.5).
func (t *Tree) SearchRadius(lat, lng, radiusKm float64) ([]RadiusHit, error) {
	box := radiusBBox(lat, lng, radiusKm)
	candidates, err := t.SearchBBox(box)
	if err != nil {
		return nil, err
	}

	var out []RadiusHit
	for _, c := range candidates {
		d := haversineKm(lat, lng, c.Lat, c.Lng)
		if d <= radiusKm {
			out = append(out, RadiusHit{ObjectId: c.ObjectId, Lat: c.Lat, Lng: c.Lng, Distance: d})
		}
	}
	return out, nil
}
