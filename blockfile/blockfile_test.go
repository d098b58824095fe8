package blockfile

import (
	"path/filepath"
	"testing"

	"github.com/perdixdb/perdix/record"
	"github.com/stretchr/testify/require"
)

func TestAppendReadRangeRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")

	bf, err := Open(path, ReadWrite)
	require.NoError(t, err)
	defer bf.Close()

	off, err := bf.Append([]byte("hello"))
	require.NoError(t, err)
	require.Equal(t, uint64(0), off)

	off2, err := bf.Append([]byte("world"))
	require.NoError(t, err)
	require.Equal(t, uint64(5), off2)

	got, err := bf.ReadRange(0, 10)
	require.NoError(t, err)
	require.Equal(t, "helloworld", string(got))
}

func TestSecondOpenFailsWithAlreadyOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")

	bf, err := Open(path, ReadWrite)
	require.NoError(t, err)
	defer bf.Close()

	_, err = Open(path, ReadWrite)
	require.ErrorIs(t, err, ErrAlreadyOpen)
}

func TestReadOnlyRejectsMutation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")

	bf, err := Open(path, ReadWrite)
	require.NoError(t, err)
	_, err = bf.Append([]byte("seed"))
	require.NoError(t, err)
	require.NoError(t, bf.Close())

	ro, err := Open(path, ReadOnly)
	require.NoError(t, err)
	defer ro.Close()

	_, err = ro.Append([]byte("x"))
	require.ErrorIs(t, err, ErrReadOnly)

	err = ro.WriteAt(0, []byte("x"))
	require.ErrorIs(t, err, ErrReadOnly)

	err = ro.Truncate(0)
	require.ErrorIs(t, err, ErrReadOnly)
}

func TestOpenReadOnlyMissingPathIsNotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.bin")
	_, err := Open(path, ReadOnly)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestScanIteratesRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")
	bf, err := Open(path, ReadWrite)
	require.NoError(t, err)
	defer bf.Close()

	values := []record.Value{record.MustInt(1), record.String("two"), record.Bool(true)}
	for _, v := range values {
		enc, err := record.Encode(v)
		require.NoError(t, err)
		_, err = bf.Append(enc)
		require.NoError(t, err)
	}

	scanner, err := bf.Scan()
	require.NoError(t, err)

	var got []record.Value
	for {
		v, _, ok := scanner.Next()
		if !ok {
			break
		}
		got = append(got, v)
	}
	require.NoError(t, scanner.Err())
	require.Len(t, got, 3)
	for i, v := range values {
		require.True(t, v.Equal(got[i]))
	}
}

func TestExistsAndDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")
	require.False(t, Exists(path))

	bf, err := Open(path, ReadWrite)
	require.NoError(t, err)
	require.NoError(t, bf.Close())

	require.True(t, Exists(path))
	require.NoError(t, Delete(path))
	require.False(t, Exists(path))
}
