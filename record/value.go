package record

import "fmt"

// Tag identifies the variant of a Value per spec §3.1. It is the first byte
// of every encoded record, and the first byte is always enough (plus, for
// length-prefixed variants, the next 4 bytes) to compute the record's size.
type Tag byte

const (
	TagNull      Tag = 0x00
	TagFalse     Tag = 0x01
	TagTrue      Tag = 0x02
	TagInt       Tag = 0x03
	TagFloat     Tag = 0x04
	TagString    Tag = 0x05
	TagObjectId  Tag = 0x06
	TagDate      Tag = 0x07
	TagPointer   Tag = 0x08
	TagBinary    Tag = 0x09
	TagTimestamp Tag = 0x0A
	TagArray     Tag = 0x10
	TagObject    Tag = 0x11
)

// MaxSafeInt and MinSafeInt bound the integer range the codec accepts,
// matching the IEEE-754 double's safe-integer range (±(2^53−1)).
const (
	MaxSafeInt int64 = 1<<53 - 1
	MinSafeInt int64 = -(1<<53 - 1)
)

// MaxSafePointer bounds Pointer payloads to 63 bits per spec §3.3.
const MaxSafePointer uint64 = 1<<63 - 1

// ObjectId is a 12-byte identifier: 4 bytes big-endian seconds-since-epoch
// followed by 8 random bytes, printable as 24 lowercase hex characters.
type ObjectId [12]byte

// String renders the ObjectId as 24 lowercase hex characters.
func (id ObjectId) String() string {
	const hexDigits = "0123456789abcdef"
	buf := make([]byte, 24)
	for i, b := range id {
		buf[i*2] = hexDigits[b>>4]
		buf[i*2+1] = hexDigits[b&0x0F]
	}
	return string(buf)
}

// Compare orders ObjectIds lexicographically by byte content.
func (id ObjectId) Compare(other ObjectId) int {
	for i := range id {
		if id[i] != other[i] {
			if id[i] < other[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// Timestamp is an operation-ordinal clock: seconds since epoch plus a
// monotonic ordinal within that second, per spec §3.1's Timestamp variant.
type Timestamp struct {
	Seconds uint32
	Ordinal uint32
}

func (t Timestamp) asUint64() uint64 {
	return uint64(t.Seconds)<<32 | uint64(t.Ordinal)
}

func timestampFromUint64(v uint64) Timestamp {
	return Timestamp{Seconds: uint32(v >> 32), Ordinal: uint32(v)}
}

// Value is a tagged variant per spec §3.1. The zero Value is Null.
type Value struct {
	tag Tag

	i64 int64
	f64 float64
	str string
	bin []byte
	oid ObjectId
	ts  Timestamp
	arr []Value
	obj []objectField
}

type objectField struct {
	key string
	val Value
}

// Tag reports the variant of v.
func (v Value) Tag() Tag { return v.tag }

func Null() Value  { return Value{tag: TagNull} }
func Bool(b bool) Value {
	if b {
		return Value{tag: TagTrue}
	}
	return Value{tag: TagFalse}
}

// Int constructs an Int value. Per spec §8's safe-range invariant, values
// outside [MinSafeInt, MaxSafeInt] are rejected at construction time rather
// than silently truncated.
func Int(i int64) (Value, error) {
	if i < MinSafeInt || i > MaxSafeInt {
		return Value{}, ErrIntegerOutOfRange
	}
	return Value{tag: TagInt, i64: i}, nil
}

// MustInt panics if i is out of the safe integer range; for call sites that
// already know the value is in range (e.g. deserialized metadata counters).
func MustInt(i int64) Value {
	v, err := Int(i)
	if err != nil {
		panic(err)
	}
	return v
}

func Float(f float64) Value { return Value{tag: TagFloat, f64: f} }

func String(s string) Value { return Value{tag: TagString, str: s} }

func ObjectIdValue(id ObjectId) Value { return Value{tag: TagObjectId, oid: id} }

// Date constructs a Date value from milliseconds since epoch.
func Date(millis int64) Value { return Value{tag: TagDate, i64: millis} }

// PointerValue constructs a Pointer value naming a byte offset in a BlockFile.
func PointerValue(offset uint64) (Value, error) {
	if offset > MaxSafePointer {
		return Value{}, ErrPointerOutOfRange
	}
	return Value{tag: TagPointer, i64: int64(offset)}, nil
}

func Binary(b []byte) Value { return Value{tag: TagBinary, bin: b} }

func TimestampValue(t Timestamp) Value { return Value{tag: TagTimestamp, ts: t} }

func Array(items []Value) Value { return Value{tag: TagArray, arr: items} }

// Object constructs an Object value from a map. Field order follows map
// iteration and is therefore not stable; use ObjectFromPairs for an ordered
// Object.
func Object(fields map[string]Value) Value {
	// Deterministic field order isn't specified; iterate the map and rely on
	// callers that need stable encodings to build via ObjectFromPairs.
	out := make([]objectField, 0, len(fields))
	for k, v := range fields {
		out = append(out, objectField{key: k, val: v})
	}
	return Value{tag: TagObject, obj: out}
}

// ObjectFromPairs builds an Object preserving insertion order, applying
// last-write-wins on duplicate keys as encoding-time dedup (spec §3.1).
func ObjectFromPairs(pairs []struct {
	Key   string
	Value Value
}) Value {
	idx := make(map[string]int, len(pairs))
	out := make([]objectField, 0, len(pairs))
	for _, p := range pairs {
		if i, ok := idx[p.Key]; ok {
			out[i].val = p.Value
			continue
		}
		idx[p.Key] = len(out)
		out = append(out, objectField{key: p.Key, val: p.Value})
	}
	return Value{tag: TagObject, obj: out}
}

// IsNull reports whether v is the Null variant.
func (v Value) IsNull() bool { return v.tag == TagNull }

// Bool returns the boolean payload of a True/False value.
func (v Value) Bool() (bool, bool) {
	switch v.tag {
	case TagTrue:
		return true, true
	case TagFalse:
		return false, true
	default:
		return false, false
	}
}

// Int returns the integer payload of an Int or Date value.
func (v Value) Int() (int64, bool) {
	if v.tag == TagInt || v.tag == TagDate {
		return v.i64, true
	}
	return 0, false
}

// Float returns the float payload of a Float value.
func (v Value) Float() (float64, bool) {
	if v.tag != TagFloat {
		return 0, false
	}
	return v.f64, true
}

// Str returns the string payload of a String value.
func (v Value) Str() (string, bool) {
	if v.tag != TagString {
		return "", false
	}
	return v.str, true
}

// ObjectIdVal returns the ObjectId payload of an ObjectId value.
func (v Value) ObjectIdVal() (ObjectId, bool) {
	if v.tag != TagObjectId {
		return ObjectId{}, false
	}
	return v.oid, true
}

// Pointer returns the pointer payload (a byte offset) of a Pointer value.
func (v Value) Pointer() (uint64, bool) {
	if v.tag != TagPointer {
		return 0, false
	}
	return uint64(v.i64), true
}

// Binary returns the raw byte payload of a Binary value.
func (v Value) Binary() ([]byte, bool) {
	if v.tag != TagBinary {
		return nil, false
	}
	return v.bin, true
}

// TimestampVal returns the Timestamp payload of a Timestamp value.
func (v Value) TimestampVal() (Timestamp, bool) {
	if v.tag != TagTimestamp {
		return Timestamp{}, false
	}
	return v.ts, true
}

// Items returns the element payload of an Array value.
func (v Value) Items() ([]Value, bool) {
	if v.tag != TagArray {
		return nil, false
	}
	return v.arr, true
}

// Field looks up a key within an Object value.
func (v Value) Field(key string) (Value, bool) {
	if v.tag != TagObject {
		return Value{}, false
	}
	for _, f := range v.obj {
		if f.key == key {
			return f.val, true
		}
	}
	return Value{}, false
}

// Fields returns the ordered key/value pairs of an Object value.
func (v Value) Fields() ([]string, []Value) {
	if v.tag != TagObject {
		return nil, nil
	}
	keys := make([]string, len(v.obj))
	vals := make([]Value, len(v.obj))
	for i, f := range v.obj {
		keys[i] = f.key
		vals[i] = f.val
	}
	return keys, vals
}

// Equal compares two Values structurally. ObjectId/Pointer/Timestamp compare
// by byte content per spec §8's codec round-trip property.
func (v Value) Equal(other Value) bool {
	if v.tag != other.tag {
		return false
	}
	switch v.tag {
	case TagNull, TagTrue, TagFalse:
		return true
	case TagInt, TagDate:
		return v.i64 == other.i64
	case TagFloat:
		return v.f64 == other.f64
	case TagString:
		return v.str == other.str
	case TagObjectId:
		return v.oid == other.oid
	case TagPointer:
		return v.i64 == other.i64
	case TagBinary:
		return bytesEqual(v.bin, other.bin)
	case TagTimestamp:
		return v.ts == other.ts
	case TagArray:
		if len(v.arr) != len(other.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(other.arr[i]) {
				return false
			}
		}
		return true
	case TagObject:
		if len(v.obj) != len(other.obj) {
			return false
		}
		for _, f := range v.obj {
			ov, ok := other.Field(f.key)
			if !ok || !f.val.Equal(ov) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Compare orders two comparable Values (Int or String) per spec §9:
// numeric ordering within Int, lexicographic ordering within String.
// Comparing across variants, or variants other than Int/String, is
// unspecified behavior; Compare falls back to ordering by tag so the
// result is at least deterministic and total.
func Compare(a, b Value) int {
	if a.tag != b.tag {
		if a.tag < b.tag {
			return -1
		}
		return 1
	}

	switch a.tag {
	case TagInt, TagDate:
		switch {
		case a.i64 < b.i64:
			return -1
		case a.i64 > b.i64:
			return 1
		default:
			return 0
		}
	case TagString:
		switch {
		case a.str < b.str:
			return -1
		case a.str > b.str:
			return 1
		default:
			return 0
		}
	case TagFloat:
		switch {
		case a.f64 < b.f64:
			return -1
		case a.f64 > b.f64:
			return 1
		default:
			return 0
		}
	case TagObjectId:
		return a.oid.Compare(b.oid)
	default:
		return 0
	}
}

func (v Value) String() string {
	switch v.tag {
	case TagNull:
		return "null"
	case TagTrue:
		return "true"
	case TagFalse:
		return "false"
	case TagInt:
		return fmt.Sprintf("%d", v.i64)
	case TagDate:
		return fmt.Sprintf("Date(%d)", v.i64)
	case TagFloat:
		return fmt.Sprintf("%g", v.f64)
	case TagString:
		return v.str
	case TagObjectId:
		return v.oid.String()
	case TagPointer:
		return fmt.Sprintf("Pointer(%d)", uint64(v.i64))
	case TagBinary:
		return fmt.Sprintf("Binary(%d bytes)", len(v.bin))
	case TagTimestamp:
		return fmt.Sprintf("Timestamp(%d,%d)", v.ts.Seconds, v.ts.Ordinal)
	case TagArray:
		return fmt.Sprintf("Array(%d items)", len(v.arr))
	case TagObject:
		return fmt.Sprintf("Object(%d fields)", len(v.obj))
	default:
		return "?"
	}
}
