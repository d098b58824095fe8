package btree

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/perdixdb/perdix/record"
	"github.com/pkg/errors"
)

// Node field names within the Object envelope each node is encoded as. The
// node shape itself is not bit-exact normative (spec §9: "Pin the metadata
// schema"; only the trailing metadata record needs a fixed width), so
// B+ tree nodes ride directly on the record.Value codec like any other
// structured payload a caller of record would build — the same way the
// teacher's own Node.go offsets are an implementation detail layered over
// a fixed mmap, not part of the codec itself.
const (
	fieldID       = "id"
	fieldLeaf     = "leaf"
	fieldKeys     = "keys"
	fieldValues   = "values"
	fieldChildren = "children"
	fieldNext     = "next"
	fieldChecksum = "checksum"
)

// encodeNode builds the record.Value envelope for n, with a trailing
// xxhash64 checksum field covering every other field's encoding. This is
// the node-level integrity check SPEC_FULL.md grounds on darshanime-pebble's
// use of cespare/xxhash for block checksums — it hardens the copy-on-write
// node layer against a torn write without touching the normative Value
// wire format of spec §3.1.
func encodeNode(n *node) (record.Value, []byte, error) {
	fields := baseNodeFields(n)
	body := record.ObjectFromPairs(fields)

	bodyBytes, err := record.Encode(body)
	if err != nil {
		return record.Value{}, nil, err
	}

	sum := xxhash.Sum64(bodyBytes)
	sumBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(sumBytes, sum)

	fields = append(fields, pair(fieldChecksum, record.Binary(sumBytes)))
	full := record.ObjectFromPairs(fields)

	fullBytes, err := record.Encode(full)
	if err != nil {
		return record.Value{}, nil, err
	}

	return full, fullBytes, nil
}

func baseNodeFields(n *node) []struct {
	Key   string
	Value record.Value
} {
	keysVal := record.Array(n.keys)

	fields := []struct {
		Key   string
		Value record.Value
	}{
		pair(fieldID, record.MustInt(n.id)),
		pair(fieldLeaf, record.Bool(n.isLeaf)),
		pair(fieldKeys, keysVal),
	}

	if n.isLeaf {
		fields = append(fields, pair(fieldValues, record.Array(n.values)))

		nextVal := record.Null()
		if n.next != nil {
			pv, _ := record.PointerValue(*n.next)
			nextVal = pv
		}
		fields = append(fields, pair(fieldNext, nextVal))
	} else {
		childVals := make([]record.Value, len(n.children))
		for i, c := range n.children {
			pv, _ := record.PointerValue(c)
			childVals[i] = pv
		}
		fields = append(fields, pair(fieldChildren, record.Array(childVals)))
	}

	return fields
}

func pair(k string, v record.Value) struct {
	Key   string
	Value record.Value
} {
	return struct {
		Key   string
		Value record.Value
	}{Key: k, Value: v}
}

// decodeNode parses a node from its record.Value envelope and verifies the
// trailing checksum.
func decodeNode(v record.Value) (*node, error) {
	if v.Tag() != record.TagObject {
		return nil, errors.New("btree: node record is not an object")
	}

	sumField, ok := v.Field(fieldChecksum)
	if !ok {
		return nil, errors.New("btree: node record missing checksum")
	}
	storedSum, ok := sumField.Binary()
	if !ok || len(storedSum) != 8 {
		return nil, errors.New("btree: node checksum malformed")
	}

	n := &node{}

	idVal, ok := v.Field(fieldID)
	if !ok {
		return nil, errors.New("btree: node record missing id")
	}
	id, ok := idVal.Int()
	if !ok {
		return nil, errors.New("btree: node id malformed")
	}
	n.id = id

	leafVal, ok := v.Field(fieldLeaf)
	if !ok {
		return nil, errors.New("btree: node record missing leaf flag")
	}
	isLeaf, ok := leafVal.Bool()
	if !ok {
		return nil, errors.New("btree: node leaf flag malformed")
	}
	n.isLeaf = isLeaf

	keysVal, ok := v.Field(fieldKeys)
	if !ok {
		return nil, errors.New("btree: node record missing keys")
	}
	keys, ok := keysVal.Items()
	if !ok {
		return nil, errors.New("btree: node keys malformed")
	}
	n.keys = keys

	if isLeaf {
		valuesVal, ok := v.Field(fieldValues)
		if !ok {
			return nil, errors.New("btree: leaf record missing values")
		}
		values, ok := valuesVal.Items()
		if !ok {
			return nil, errors.New("btree: leaf values malformed")
		}
		n.values = values

		nextVal, ok := v.Field(fieldNext)
		if !ok {
			return nil, errors.New("btree: leaf record missing next")
		}
		if !nextVal.IsNull() {
			offset, ok := nextVal.Pointer()
			if !ok {
				return nil, errors.New("btree: leaf next pointer malformed")
			}
			n.next = &offset
		}
	} else {
		childrenVal, ok := v.Field(fieldChildren)
		if !ok {
			return nil, errors.New("btree: internal record missing children")
		}
		childVals, ok := childrenVal.Items()
		if !ok {
			return nil, errors.New("btree: internal children malformed")
		}
		n.children = make([]uint64, len(childVals))
		for i, cv := range childVals {
			offset, ok := cv.Pointer()
			if !ok {
				return nil, errors.New("btree: child pointer malformed")
			}
			n.children[i] = offset
		}
	}

	// Recompute the checksum over the deterministic re-encoding of the
	// non-checksum fields and compare against what was stored.
	fields := baseNodeFields(n)
	body := record.ObjectFromPairs(fields)
	bodyBytes, err := record.Encode(body)
	if err != nil {
		return nil, err
	}
	expected := xxhash.Sum64(bodyBytes)
	got := binary.LittleEndian.Uint64(storedSum)
	if expected != got {
		return nil, errors.New("btree: node checksum mismatch")
	}

	return n, nil
}
