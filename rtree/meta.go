package rtree

import (
	"github.com/perdixdb/perdix/blockfile"
	"github.com/perdixdb/perdix/record"
)

// metaSize mirrors the btree package's reasoning: six Int/Pointer fields,
// each a fixed 9 bytes, give a deterministic trailing-record width (spec
// §4.4.4) since rootPointer is never Null.
const metaSize = 6 * 9

func encodeMeta(m Meta) ([]byte, error) {
	rootPtr, err := record.PointerValue(m.RootPointer)
	if err != nil {
		return nil, err
	}
	values := []record.Value{
		record.MustInt(m.Version),
		record.MustInt(m.MaxEntries),
		record.MustInt(m.MinEntries),
		record.MustInt(m.Size),
		record.MustInt(m.NextID),
		rootPtr,
	}

	out := make([]byte, 0, metaSize)
	for _, v := range values {
		enc, err := record.Encode(v)
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

func appendMeta(bf *blockfile.BlockFile, m Meta) error {
	data, err := encodeMeta(m)
	if err != nil {
		return err
	}
	_, err = bf.Append(data)
	return err
}
