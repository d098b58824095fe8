package rtree

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/perdixdb/perdix/record"
	"github.com/pkg/errors"
)

const (
	fieldID          = "id"
	fieldLeaf        = "leaf"
	fieldMinLat      = "minLat"
	fieldMaxLat      = "maxLat"
	fieldMinLng      = "minLng"
	fieldMaxLng      = "maxLng"
	fieldEntries     = "entries"
	fieldLat         = "lat"
	fieldLng         = "lng"
	fieldObjectId    = "objectId"
	fieldChildren    = "children"
	fieldChildBoxes  = "childBoxes"
	fieldChecksum    = "checksum"
)

func bboxFields(b BBox) []struct {
	Key   string
	Value record.Value
} {
	return []struct {
		Key   string
		Value record.Value
	}{
		{fieldMinLat, record.Float(b.MinLat)},
		{fieldMaxLat, record.Float(b.MaxLat)},
		{fieldMinLng, record.Float(b.MinLng)},
		{fieldMaxLng, record.Float(b.MaxLng)},
	}
}

func bboxFromValue(v record.Value) (BBox, error) {
	get := func(key string) (float64, error) {
		f, ok := v.Field(key)
		if !ok {
			return 0, errors.Errorf("rtree: bbox missing field %q", key)
		}
		n, ok := f.Float()
		if !ok {
			return 0, errors.Errorf("rtree: bbox field %q malformed", key)
		}
		return n, nil
	}
	minLat, err := get(fieldMinLat)
	if err != nil {
		return BBox{}, err
	}
	maxLat, err := get(fieldMaxLat)
	if err != nil {
		return BBox{}, err
	}
	minLng, err := get(fieldMinLng)
	if err != nil {
		return BBox{}, err
	}
	maxLng, err := get(fieldMaxLng)
	if err != nil {
		return BBox{}, err
	}
	return BBox{MinLat: minLat, MaxLat: maxLat, MinLng: minLng, MaxLng: maxLng}, nil
}

func encodeEntry(e Entry) record.Value {
	return record.ObjectFromPairs([]struct {
		Key   string
		Value record.Value
	}{
		{fieldLat, record.Float(e.Lat)},
		{fieldLng, record.Float(e.Lng)},
		{fieldObjectId, record.ObjectIdValue(e.ObjectId)},
	})
}

func decodeEntry(v record.Value) (Entry, error) {
	latVal, ok := v.Field(fieldLat)
	if !ok {
		return Entry{}, errors.New("rtree: entry missing lat")
	}
	lat, ok := latVal.Float()
	if !ok {
		return Entry{}, errors.New("rtree: entry lat malformed")
	}
	lngVal, ok := v.Field(fieldLng)
	if !ok {
		return Entry{}, errors.New("rtree: entry missing lng")
	}
	lng, ok := lngVal.Float()
	if !ok {
		return Entry{}, errors.New("rtree: entry lng malformed")
	}
	oidVal, ok := v.Field(fieldObjectId)
	if !ok {
		return Entry{}, errors.New("rtree: entry missing objectId")
	}
	oid, ok := oidVal.ObjectIdVal()
	if !ok {
		return Entry{}, errors.New("rtree: entry objectId malformed")
	}
	return Entry{Lat: lat, Lng: lng, ObjectId: oid}, nil
}

func baseNodeFields(n *node) []struct {
	Key   string
	Value record.Value
} {
	fields := []struct {
		Key   string
		Value record.Value
	}{
		{fieldID, record.MustInt(n.id)},
		{fieldLeaf, record.Bool(n.isLeaf)},
	}
	fields = append(fields, bboxFields(n.bbox)...)

	if n.isLeaf {
		entryVals := make([]record.Value, len(n.entries))
		for i, e := range n.entries {
			entryVals[i] = encodeEntry(e)
		}
		fields = append(fields, struct {
			Key   string
			Value record.Value
		}{fieldEntries, record.Array(entryVals)})
	} else {
		childVals := make([]record.Value, len(n.children))
		for i, c := range n.children {
			pv, _ := record.PointerValue(c)
			childVals[i] = pv
		}
		boxVals := make([]record.Value, len(n.childBBoxes))
		for i, b := range n.childBBoxes {
			boxVals[i] = record.ObjectFromPairs(bboxFields(b))
		}
		fields = append(fields,
			struct {
				Key   string
				Value record.Value
			}{fieldChildren, record.Array(childVals)},
			struct {
				Key   string
				Value record.Value
			}{fieldChildBoxes, record.Array(boxVals)},
		)
	}
	return fields
}

// encodeNode serializes n as a record.Value Object with a trailing
// xxhash64 checksum, the same integrity scheme used by the btree package.
func encodeNode(n *node) ([]byte, error) {
	fields := baseNodeFields(n)
	body := record.ObjectFromPairs(fields)
	bodyBytes, err := record.Encode(body)
	if err != nil {
		return nil, err
	}

	sum := xxhash.Sum64(bodyBytes)
	sumBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(sumBytes, sum)

	fields = append(fields, struct {
		Key   string
		Value record.Value
	}{fieldChecksum, record.Binary(sumBytes)})
	full := record.ObjectFromPairs(fields)

	return record.Encode(full)
}

func decodeNode(v record.Value) (*node, error) {
	if v.Tag() != record.TagObject {
		return nil, errors.New("rtree: node record is not an object")
	}

	sumField, ok := v.Field(fieldChecksum)
	if !ok {
		return nil, errors.New("rtree: node record missing checksum")
	}
	storedSum, ok := sumField.Binary()
	if !ok || len(storedSum) != 8 {
		return nil, errors.New("rtree: node checksum malformed")
	}

	n := &node{}

	idVal, ok := v.Field(fieldID)
	if !ok {
		return nil, errors.New("rtree: node record missing id")
	}
	id, ok := idVal.Int()
	if !ok {
		return nil, errors.New("rtree: node id malformed")
	}
	n.id = id

	leafVal, ok := v.Field(fieldLeaf)
	if !ok {
		return nil, errors.New("rtree: node record missing leaf flag")
	}
	isLeaf, ok := leafVal.Bool()
	if !ok {
		return nil, errors.New("rtree: node leaf flag malformed")
	}
	n.isLeaf = isLeaf

	bbox, err := bboxFromValue(v)
	if err != nil {
		return nil, err
	}
	n.bbox = bbox

	if isLeaf {
		entriesVal, ok := v.Field(fieldEntries)
		if !ok {
			return nil, errors.New("rtree: leaf record missing entries")
		}
		items, ok := entriesVal.Items()
		if !ok {
			return nil, errors.New("rtree: leaf entries malformed")
		}
		n.entries = make([]Entry, len(items))
		for i, item := range items {
			e, err := decodeEntry(item)
			if err != nil {
				return nil, err
			}
			n.entries[i] = e
		}
	} else {
		childrenVal, ok := v.Field(fieldChildren)
		if !ok {
			return nil, errors.New("rtree: internal record missing children")
		}
		childItems, ok := childrenVal.Items()
		if !ok {
			return nil, errors.New("rtree: internal children malformed")
		}
		n.children = make([]uint64, len(childItems))
		for i, cv := range childItems {
			offset, ok := cv.Pointer()
			if !ok {
				return nil, errors.New("rtree: child pointer malformed")
			}
			n.children[i] = offset
		}

		boxesVal, ok := v.Field(fieldChildBoxes)
		if !ok {
			return nil, errors.New("rtree: internal record missing child boxes")
		}
		boxItems, ok := boxesVal.Items()
		if !ok {
			return nil, errors.New("rtree: internal child boxes malformed")
		}
		n.childBBoxes = make([]BBox, len(boxItems))
		for i, bv := range boxItems {
			b, err := bboxFromValue(bv)
			if err != nil {
				return nil, err
			}
			n.childBBoxes[i] = b
		}
	}

	fields := baseNodeFields(n)
	body := record.ObjectFromPairs(fields)
	bodyBytes, err := record.Encode(body)
	if err != nil {
		return nil, err
	}
	expected := xxhash.Sum64(bodyBytes)
	got := binary.LittleEndian.Uint64(storedSum)
	if expected != got {
		return nil, errors.New("rtree: node checksum mismatch")
	}

	return n, nil
}
