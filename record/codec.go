package record

import (
	"encoding/binary"
	"math"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// OffsetReader is the minimal read capability SizeAt needs: read a range of
// bytes at a known offset. blockfile.BlockFile satisfies this directly.
type OffsetReader interface {
	ReadRange(offset, length uint64) ([]byte, error)
}

// Encode serializes v per spec §3.1's bit-exact layout.
func Encode(v Value) ([]byte, error) {
	switch v.tag {
	case TagNull, TagFalse, TagTrue:
		return []byte{byte(v.tag)}, nil
	case TagInt:
		return append([]byte{byte(v.tag)}, le64(uint64(v.i64))...), nil
	case TagFloat:
		bits := math.Float64bits(v.f64)
		return append([]byte{byte(v.tag)}, le64(bits)...), nil
	case TagString:
		if !utf8.ValidString(v.str) {
			return nil, ErrNonUtf8
		}
		payload := []byte(v.str)
		out := make([]byte, 0, 5+len(payload))
		out = append(out, byte(v.tag))
		out = append(out, le32(uint32(len(payload)))...)
		out = append(out, payload...)
		return out, nil
	case TagObjectId:
		out := make([]byte, 0, 13)
		out = append(out, byte(v.tag))
		out = append(out, v.oid[:]...)
		return out, nil
	case TagDate:
		return append([]byte{byte(v.tag)}, le64(uint64(v.i64))...), nil
	case TagPointer:
		offset := uint64(v.i64)
		if offset > MaxSafePointer {
			return nil, ErrPointerOutOfRange
		}
		return append([]byte{byte(v.tag)}, le64(offset)...), nil
	case TagBinary:
		out := make([]byte, 0, 5+len(v.bin))
		out = append(out, byte(v.tag))
		out = append(out, le32(uint32(len(v.bin)))...)
		out = append(out, v.bin...)
		return out, nil
	case TagTimestamp:
		return append([]byte{byte(v.tag)}, le64(v.ts.asUint64())...), nil
	case TagArray:
		content, err := encodeArrayContent(v.arr)
		if err != nil {
			return nil, err
		}
		out := make([]byte, 0, 5+len(content))
		out = append(out, byte(v.tag))
		out = append(out, le32(uint32(len(content)))...)
		out = append(out, content...)
		return out, nil
	case TagObject:
		content, err := encodeObjectContent(v.obj)
		if err != nil {
			return nil, err
		}
		out := make([]byte, 0, 5+len(content))
		out = append(out, byte(v.tag))
		out = append(out, le32(uint32(len(content)))...)
		out = append(out, content...)
		return out, nil
	default:
		return nil, errors.Wrapf(ErrUnknownTag, "tag 0x%02x", byte(v.tag))
	}
}

func encodeArrayContent(items []Value) ([]byte, error) {
	out := le32(uint32(len(items)))
	for _, item := range items {
		enc, err := Encode(item)
		if err != nil {
			return nil, err
		}
		out = append(out, enc...)
	}
	return out, nil
}

func encodeObjectContent(fields []objectField) ([]byte, error) {
	out := le32(uint32(len(fields)))
	for _, f := range fields {
		if !utf8.ValidString(f.key) {
			return nil, ErrNonUtf8
		}
		keyBytes := []byte(f.key)
		out = append(out, le32(uint32(len(keyBytes)))...)
		out = append(out, keyBytes...)

		enc, err := Encode(f.val)
		if err != nil {
			return nil, err
		}
		out = append(out, enc...)
	}
	return out, nil
}

// Decode parses exactly one top-level Value starting at offset 0 of data.
func Decode(data []byte) (Value, error) {
	v, n, err := decodeAt(data)
	if err != nil {
		return Value{}, err
	}
	if n != len(data) {
		return Value{}, errors.Wrap(ErrInvalidLength, "trailing bytes after value")
	}
	return v, nil
}

// decodeAt parses one Value from the start of data, returning it and the
// number of bytes it consumed.
func decodeAt(data []byte) (Value, int, error) {
	if len(data) < 1 {
		return Value{}, 0, ErrUnexpectedEof
	}
	tag := Tag(data[0])

	switch tag {
	case TagNull:
		return Value{tag: TagNull}, 1, nil
	case TagFalse:
		return Value{tag: TagFalse}, 1, nil
	case TagTrue:
		return Value{tag: TagTrue}, 1, nil
	case TagInt:
		if len(data) < 9 {
			return Value{}, 0, ErrUnexpectedEof
		}
		i := int64(binary.LittleEndian.Uint64(data[1:9]))
		if i < MinSafeInt || i > MaxSafeInt {
			return Value{}, 0, ErrIntegerOutOfRange
		}
		return Value{tag: TagInt, i64: i}, 9, nil
	case TagFloat:
		if len(data) < 9 {
			return Value{}, 0, ErrUnexpectedEof
		}
		bits := binary.LittleEndian.Uint64(data[1:9])
		return Value{tag: TagFloat, f64: math.Float64frombits(bits)}, 9, nil
	case TagString:
		if len(data) < 5 {
			return Value{}, 0, ErrUnexpectedEof
		}
		n := binary.LittleEndian.Uint32(data[1:5])
		end := 5 + int(n)
		if len(data) < end {
			return Value{}, 0, ErrUnexpectedEof
		}
		payload := data[5:end]
		if !utf8.Valid(payload) {
			return Value{}, 0, ErrNonUtf8
		}
		return Value{tag: TagString, str: string(payload)}, end, nil
	case TagObjectId:
		if len(data) < 13 {
			return Value{}, 0, ErrUnexpectedEof
		}
		var oid ObjectId
		copy(oid[:], data[1:13])
		return Value{tag: TagObjectId, oid: oid}, 13, nil
	case TagDate:
		if len(data) < 9 {
			return Value{}, 0, ErrUnexpectedEof
		}
		ms := int64(binary.LittleEndian.Uint64(data[1:9]))
		return Value{tag: TagDate, i64: ms}, 9, nil
	case TagPointer:
		if len(data) < 9 {
			return Value{}, 0, ErrUnexpectedEof
		}
		offset := binary.LittleEndian.Uint64(data[1:9])
		if offset > MaxSafePointer {
			return Value{}, 0, ErrPointerOutOfRange
		}
		return Value{tag: TagPointer, i64: int64(offset)}, 9, nil
	case TagBinary:
		if len(data) < 5 {
			return Value{}, 0, ErrUnexpectedEof
		}
		n := binary.LittleEndian.Uint32(data[1:5])
		end := 5 + int(n)
		if len(data) < end {
			return Value{}, 0, ErrUnexpectedEof
		}
		payload := make([]byte, n)
		copy(payload, data[5:end])
		return Value{tag: TagBinary, bin: payload}, end, nil
	case TagTimestamp:
		if len(data) < 9 {
			return Value{}, 0, ErrUnexpectedEof
		}
		raw := binary.LittleEndian.Uint64(data[1:9])
		return Value{tag: TagTimestamp, ts: timestampFromUint64(raw)}, 9, nil
	case TagArray:
		return decodeArray(data)
	case TagObject:
		return decodeObject(data)
	default:
		return Value{}, 0, errors.Wrapf(ErrUnknownTag, "tag 0x%02x", byte(tag))
	}
}

func decodeArray(data []byte) (Value, int, error) {
	if len(data) < 5 {
		return Value{}, 0, ErrUnexpectedEof
	}
	contentSize := binary.LittleEndian.Uint32(data[1:5])
	end := 5 + int(contentSize)
	if len(data) < end {
		return Value{}, 0, ErrUnexpectedEof
	}
	content := data[5:end]

	if len(content) < 4 {
		return Value{}, 0, ErrInvalidLength
	}
	count := binary.LittleEndian.Uint32(content[:4])

	items := make([]Value, 0, count)
	rest := content[4:]
	for i := uint32(0); i < count; i++ {
		item, n, err := decodeAt(rest)
		if err != nil {
			return Value{}, 0, err
		}
		items = append(items, item)
		rest = rest[n:]
	}
	if len(rest) != 0 {
		return Value{}, 0, errors.Wrap(ErrInvalidLength, "array content-size mismatch")
	}

	return Value{tag: TagArray, arr: items}, end, nil
}

func decodeObject(data []byte) (Value, int, error) {
	if len(data) < 5 {
		return Value{}, 0, ErrUnexpectedEof
	}
	contentSize := binary.LittleEndian.Uint32(data[1:5])
	end := 5 + int(contentSize)
	if len(data) < end {
		return Value{}, 0, ErrUnexpectedEof
	}
	content := data[5:end]

	if len(content) < 4 {
		return Value{}, 0, ErrInvalidLength
	}
	count := binary.LittleEndian.Uint32(content[:4])

	fields := make([]objectField, 0, count)
	idx := make(map[string]int, count)
	rest := content[4:]
	for i := uint32(0); i < count; i++ {
		if len(rest) < 4 {
			return Value{}, 0, ErrUnexpectedEof
		}
		keyLen := binary.LittleEndian.Uint32(rest[:4])
		rest = rest[4:]
		if uint32(len(rest)) < keyLen {
			return Value{}, 0, ErrUnexpectedEof
		}
		keyBytes := rest[:keyLen]
		if !utf8.Valid(keyBytes) {
			return Value{}, 0, ErrNonUtf8
		}
		key := string(keyBytes)
		rest = rest[keyLen:]

		val, n, err := decodeAt(rest)
		if err != nil {
			return Value{}, 0, err
		}
		rest = rest[n:]

		if pos, ok := idx[key]; ok {
			fields[pos].val = val
		} else {
			idx[key] = len(fields)
			fields = append(fields, objectField{key: key, val: val})
		}
	}
	if len(rest) != 0 {
		return Value{}, 0, errors.Wrap(ErrInvalidLength, "object content-size mismatch")
	}

	return Value{tag: TagObject, obj: fields}, end, nil
}

// SizeOf returns the byte length of the value encoded at the start of data,
// without fully decoding composite payloads. At most the tag byte and the
// following 4-byte length word are consulted, per spec §4.1.
func SizeOf(data []byte) (int, error) {
	if len(data) < 1 {
		return 0, ErrUnexpectedEof
	}
	tag := Tag(data[0])

	switch tag {
	case TagNull, TagFalse, TagTrue:
		return 1, nil
	case TagInt, TagFloat, TagDate, TagPointer, TagTimestamp:
		return 9, nil
	case TagObjectId:
		return 13, nil
	case TagString, TagBinary:
		if len(data) < 5 {
			return 0, ErrUnexpectedEof
		}
		n := binary.LittleEndian.Uint32(data[1:5])
		return 5 + int(n), nil
	case TagArray, TagObject:
		if len(data) < 5 {
			return 0, ErrUnexpectedEof
		}
		s := binary.LittleEndian.Uint32(data[1:5])
		return 5 + int(s), nil
	default:
		return 0, errors.Wrapf(ErrUnknownTag, "tag 0x%02x", byte(tag))
	}
}

// SizeAt returns the byte length of the value at offset in r, reading at
// most the tag byte and a trailing length word — never the full payload.
func SizeAt(r OffsetReader, offset uint64) (uint64, error) {
	head, err := r.ReadRange(offset, 5)
	if err != nil {
		return 0, err
	}
	if len(head) < 1 {
		return 0, ErrUnexpectedEof
	}
	tag := Tag(head[0])

	switch tag {
	case TagNull, TagFalse, TagTrue:
		return 1, nil
	case TagInt, TagFloat, TagDate, TagPointer, TagTimestamp:
		return 9, nil
	case TagObjectId:
		return 13, nil
	case TagString, TagBinary, TagArray, TagObject:
		if len(head) < 5 {
			return 0, ErrUnexpectedEof
		}
		n := binary.LittleEndian.Uint32(head[1:5])
		return 5 + uint64(n), nil
	default:
		return 0, errors.Wrapf(ErrUnknownTag, "tag 0x%02x", byte(tag))
	}
}

func le64(v uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, v)
	return buf
}

func le32(v uint32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, v)
	return buf
}
