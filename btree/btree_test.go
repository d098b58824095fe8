package btree

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/perdixdb/perdix/record"
	"github.com/stretchr/testify/require"
)

func openTree(t *testing.T, order int) *Tree {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tree.bin")
	tr, err := Open(Options{Path: path, Order: order})
	require.NoError(t, err)
	t.Cleanup(func() { tr.Close() })
	return tr
}

func TestOpenRejectsSmallOrder(t *testing.T) {
	_, err := Open(Options{Path: filepath.Join(t.TempDir(), "t.bin"), Order: 2})
	require.ErrorIs(t, err, ErrInvalidOrder)
}

func TestAddSearchRoundTrip(t *testing.T) {
	tr := openTree(t, 4)

	existed, err := tr.Add(record.MustInt(1), record.String("one"))
	require.NoError(t, err)
	require.False(t, existed)

	got, ok, err := tr.Search(record.MustInt(1))
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, got.Equal(record.String("one")))

	_, ok, err = tr.Search(record.MustInt(2))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestAddExistingKeyDoesNotDoubleCountSize(t *testing.T) {
	tr := openTree(t, 4)

	existed, err := tr.Add(record.MustInt(1), record.String("one"))
	require.NoError(t, err)
	require.False(t, existed)
	require.EqualValues(t, 1, tr.Size())

	existed, err = tr.Add(record.MustInt(1), record.String("uno"))
	require.NoError(t, err)
	require.True(t, existed)
	require.EqualValues(t, 1, tr.Size())

	got, ok, err := tr.Search(record.MustInt(1))
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, got.Equal(record.String("uno")))
}

func TestInsertManyForcesSplitsAndStaysOrdered(t *testing.T) {
	tr := openTree(t, 4)

	const n = 200
	for i := 0; i < n; i++ {
		_, err := tr.Add(record.MustInt(int64(i)), record.MustInt(int64(i*2)))
		require.NoError(t, err)
	}
	require.EqualValues(t, n, tr.Size())

	height, err := tr.GetHeight()
	require.NoError(t, err)
	require.Greater(t, height, 1, "inserting enough keys for order 4 must split beyond a single leaf")

	entries, err := tr.ToArray()
	require.NoError(t, err)
	require.Len(t, entries, n)
	for i, kv := range entries {
		want, _ := record.MustInt(int64(i)).Int()
		got, _ := kv.Key.Int()
		require.Equal(t, want, got)
	}
}

func TestDeleteRemovesKeyAndReportsPresence(t *testing.T) {
	tr := openTree(t, 4)

	for i := 0; i < 50; i++ {
		_, err := tr.Add(record.MustInt(int64(i)), record.MustInt(int64(i)))
		require.NoError(t, err)
	}

	removed, err := tr.Delete(record.MustInt(25))
	require.NoError(t, err)
	require.True(t, removed)
	require.EqualValues(t, 49, tr.Size())

	_, ok, err := tr.Search(record.MustInt(25))
	require.NoError(t, err)
	require.False(t, ok)

	removed, err = tr.Delete(record.MustInt(999))
	require.NoError(t, err)
	require.False(t, removed)
}

func TestReopenRecoversStateFromTrailingMetadata(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree.bin")

	tr, err := Open(Options{Path: path, Order: 4})
	require.NoError(t, err)
	for i := 0; i < 30; i++ {
		_, err := tr.Add(record.MustInt(int64(i)), record.String(fmt.Sprintf("v%d", i)))
		require.NoError(t, err)
	}
	require.NoError(t, tr.Close())

	reopened, err := Open(Options{Path: path, Order: 4})
	require.NoError(t, err)
	defer reopened.Close()

	require.EqualValues(t, 30, reopened.Size())
	got, ok, err := reopened.Search(record.MustInt(15))
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, got.Equal(record.String("v15")))
}

func TestRangeSearchReturnsAscendingBoundedKeys(t *testing.T) {
	tr := openTree(t, 4)
	for i := 0; i < 40; i++ {
		_, err := tr.Add(record.MustInt(int64(i)), record.MustInt(int64(i)))
		require.NoError(t, err)
	}

	got, err := tr.RangeSearch(record.MustInt(10), record.MustInt(15))
	require.NoError(t, err)
	require.Len(t, got, 6)
	for i, kv := range got {
		want, _ := record.MustInt(int64(10 + i)).Int()
		k, _ := kv.Key.Int()
		require.Equal(t, want, k)
	}
}

func TestRangeSearchInvertedBoundsErrors(t *testing.T) {
	tr := openTree(t, 4)
	_, err := tr.Add(record.MustInt(1), record.MustInt(1))
	require.NoError(t, err)

	_, err = tr.RangeSearch(record.MustInt(5), record.MustInt(1))
	require.ErrorIs(t, err, ErrRangeInverted)
}

func TestCompactProducesEquivalentDenserTree(t *testing.T) {
	tr := openTree(t, 4)
	for i := 0; i < 100; i++ {
		_, err := tr.Add(record.MustInt(int64(i)), record.MustInt(int64(i)))
		require.NoError(t, err)
	}
	for i := 0; i < 50; i++ {
		_, err := tr.Delete(record.MustInt(int64(i)))
		require.NoError(t, err)
	}

	destPath := filepath.Join(t.TempDir(), "compacted.bin")
	stats, err := tr.Compact(destPath)
	require.NoError(t, err)
	require.Greater(t, stats.OldSize, uint64(0))
	require.Greater(t, stats.NewSize, uint64(0))

	dest, err := Open(Options{Path: destPath, Order: 4})
	require.NoError(t, err)
	defer dest.Close()

	require.EqualValues(t, 50, dest.Size())
	for i := 50; i < 100; i++ {
		got, ok, err := dest.Search(record.MustInt(int64(i)))
		require.NoError(t, err)
		require.True(t, ok)
		want, _ := record.MustInt(int64(i)).Int()
		g, _ := got.Int()
		require.Equal(t, want, g)
	}
	for i := 0; i < 50; i++ {
		_, ok, err := dest.Search(record.MustInt(int64(i)))
		require.NoError(t, err)
		require.False(t, ok)
	}
}

// TestCompactBytesSavedNeverNegative covers the pathological case where a
// rebuild has little or no garbage to reclaim: Compact still must not
// report a negative BytesSaved, even when the rebuilt file comes out the
// same size as (or larger than) the source.
func TestCompactBytesSavedNeverNegative(t *testing.T) {
	tr := openTree(t, 4)
	_, err := tr.Add(record.MustInt(1), record.MustInt(1))
	require.NoError(t, err)

	destPath := filepath.Join(t.TempDir(), "compacted.bin")
	stats, err := tr.Compact(destPath)
	require.NoError(t, err)
	require.GreaterOrEqual(t, stats.BytesSaved, int64(0))
}
