package btree

import (
	"github.com/perdixdb/perdix/blockfile"
	"github.com/perdixdb/perdix/record"
)

// metaSize is the fixed width of a serialized Meta record: six fields, each
// an Int or Pointer value which record.Encode always renders as exactly 9
// bytes (a tag byte plus an 8-byte little-endian word, per spec §3.1). This
// only holds because rootPointer is never Null (spec §4.3.4's invariant
// that the root always references a real node), so every field here is the
// same fixed-width shape and the trailing-record recovery rule of spec §4.2
// applies without any variable-width discrimination.
const metaSize = 6 * 9

func encodeMeta(m Meta) ([]byte, error) {
	fields := []struct {
		Key   string
		Value record.Value
	}{
		pair("version", record.MustInt(m.Version)),
		pair("maxEntries", record.MustInt(m.MaxEntries)),
		pair("minEntries", record.MustInt(m.MinEntries)),
		pair("size", record.MustInt(m.Size)),
		pair("nextID", record.MustInt(m.NextID)),
	}
	rootPtr, err := record.PointerValue(m.RootPointer)
	if err != nil {
		return nil, err
	}
	fields = append(fields, pair("rootPointer", rootPtr))

	// Metadata is not wrapped in a single Object envelope (that would add a
	// length-prefixed content wrapper and break the fixed-width guarantee);
	// each field is encoded independently and concatenated in a fixed
	// order instead.
	out := make([]byte, 0, metaSize)
	for _, f := range fields {
		enc, err := record.Encode(f.Value)
		if err != nil {
			return nil, err
		}
		out = append(out, enc...)
	}
	if len(out) != metaSize {
		return nil, ErrCorruptMetadata
	}
	return out, nil
}

func decodeMeta(data []byte) (Meta, error) {
	if len(data) != metaSize {
		return Meta{}, ErrCorruptMetadata
	}

	var ints [5]int64
	offset := 0
	for i := 0; i < 5; i++ {
		v, err := record.Decode(data[offset : offset+9])
		if err != nil {
			return Meta{}, ErrCorruptMetadata
		}
		n, ok := v.Int()
		if !ok {
			return Meta{}, ErrCorruptMetadata
		}
		ints[i] = n
		offset += 9
	}

	rootVal, err := record.Decode(data[offset : offset+9])
	if err != nil {
		return Meta{}, ErrCorruptMetadata
	}
	root, ok := rootVal.Pointer()
	if !ok {
		return Meta{}, ErrCorruptMetadata
	}

	return Meta{
		Version:     ints[0],
		MaxEntries:  ints[1],
		MinEntries:  ints[2],
		Size:        ints[3],
		NextID:      ints[4],
		RootPointer: root,
	}, nil
}

// readMeta recovers the trailing metadata record from bf, per spec §4.2's
// O(1) reopen rule: the last metaSize bytes of the file are always the
// current metadata, with no scan required.
func readMeta(bf *blockfile.BlockFile) (Meta, error) {
	size, err := bf.Size()
	if err != nil {
		return Meta{}, err
	}
	if size < metaSize {
		return Meta{}, ErrCorruptMetadata
	}
	data, err := bf.ReadRange(size-metaSize, metaSize)
	if err != nil {
		return Meta{}, err
	}
	return decodeMeta(data)
}

// appendMeta writes a fresh metadata record as the new tail of bf.
func appendMeta(bf *blockfile.BlockFile, m Meta) error {
	data, err := encodeMeta(m)
	if err != nil {
		return err
	}
	_, err = bf.Append(data)
	return err
}
