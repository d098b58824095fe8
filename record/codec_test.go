package record

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTripScalars(t *testing.T) {
	intVal, err := Int(42)
	require.NoError(t, err)

	ptrVal, err := PointerValue(1024)
	require.NoError(t, err)

	cases := []Value{
		Null(),
		Bool(true),
		Bool(false),
		intVal,
		Float(3.14159),
		String("hello, perdix"),
		ObjectIdValue(ObjectId{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}),
		Date(1700000000000),
		ptrVal,
		Binary([]byte{0xDE, 0xAD, 0xBE, 0xEF}),
		TimestampValue(Timestamp{Seconds: 1700000000, Ordinal: 7}),
	}

	for _, v := range cases {
		enc, err := Encode(v)
		require.NoError(t, err)

		dec, err := Decode(enc)
		require.NoError(t, err)
		require.True(t, v.Equal(dec), "round-trip mismatch for %s", v)

		size, err := SizeOf(enc)
		require.NoError(t, err)
		require.Equal(t, len(enc), size)
	}
}

func TestRoundTripArrayAndObject(t *testing.T) {
	arr := Array([]Value{String("a"), String("b"), Bool(true)})
	enc, err := Encode(arr)
	require.NoError(t, err)
	dec, err := Decode(enc)
	require.NoError(t, err)
	require.True(t, arr.Equal(dec))

	obj := ObjectFromPairs([]struct {
		Key   string
		Value Value
	}{
		{"name", String("perdix")},
		{"version", MustInt(1)},
	})
	enc, err = Encode(obj)
	require.NoError(t, err)
	dec, err = Decode(enc)
	require.NoError(t, err)
	require.True(t, obj.Equal(dec))

	v, ok := dec.Field("name")
	require.True(t, ok)
	s, _ := v.Str()
	require.Equal(t, "perdix", s)
}

func TestObjectDuplicateKeyLastWriteWins(t *testing.T) {
	obj := ObjectFromPairs([]struct {
		Key   string
		Value Value
	}{
		{"x", MustInt(1)},
		{"x", MustInt(2)},
	})

	keys, vals := obj.Fields()
	require.Equal(t, []string{"x"}, keys)
	i, _ := vals[0].Int()
	require.Equal(t, int64(2), i)
}

func TestIntOutOfSafeRangeRejected(t *testing.T) {
	_, err := Int(MaxSafeInt + 1)
	require.ErrorIs(t, err, ErrIntegerOutOfRange)

	_, err = Int(MinSafeInt - 1)
	require.ErrorIs(t, err, ErrIntegerOutOfRange)
}

func TestDecodeUnknownTag(t *testing.T) {
	_, err := Decode([]byte{0xFF})
	require.Error(t, err)
}

func TestDecodeTruncated(t *testing.T) {
	enc, err := Encode(String("hello"))
	require.NoError(t, err)

	_, err = Decode(enc[:len(enc)-1])
	require.Error(t, err)
}

func TestSizeAtUsesOffsetReader(t *testing.T) {
	enc, err := Encode(Array([]Value{MustInt(1), MustInt(2), MustInt(3)}))
	require.NoError(t, err)

	reader := fakeReader{data: enc}
	size, err := SizeAt(reader, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(len(enc)), size)
}

type fakeReader struct{ data []byte }

func (f fakeReader) ReadRange(offset, length uint64) ([]byte, error) {
	end := offset + length
	if end > uint64(len(f.data)) {
		end = uint64(len(f.data))
	}
	if offset > uint64(len(f.data)) {
		return nil, ErrUnexpectedEof
	}
	return f.data[offset:end], nil
}
