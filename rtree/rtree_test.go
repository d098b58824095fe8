package rtree

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/perdixdb/perdix/record"
	"github.com/stretchr/testify/require"
)

func oidFor(i int) record.ObjectId {
	var oid record.ObjectId
	oid[11] = byte(i)
	oid[10] = byte(i >> 8)
	return oid
}

func openTree(t *testing.T, maxEntries int) *Tree {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rtree.bin")
	tr, err := Open(Options{Path: path, MaxEntries: maxEntries})
	require.NoError(t, err)
	t.Cleanup(func() { tr.Close() })
	return tr
}

func TestOpenRejectsSmallMaxEntries(t *testing.T) {
	_, err := Open(Options{Path: filepath.Join(t.TempDir(), "t.bin"), MaxEntries: 2})
	require.ErrorIs(t, err, ErrInvalidOrder)
}

func TestInsertAndSearchBBoxFindsPoint(t *testing.T) {
	tr := openTree(t, 4)

	oid := oidFor(1)
	require.NoError(t, tr.Insert(37.7749, -122.4194, oid))

	hits, err := tr.SearchBBox(BBox{MinLat: 37, MaxLat: 38, MinLng: -123, MaxLng: -122})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, oid, hits[0].ObjectId)
}

func TestPersistManyEntriesAndSearchBBoxFindsAll(t *testing.T) {
	tr := openTree(t, 4)

	const n = 50
	for i := 0; i < n; i++ {
		lat := float64(i%10) + 0.1*float64(i)
		lng := -float64(i%10) - 0.1*float64(i)
		require.NoError(t, tr.Insert(lat, lng, oidFor(i)))
	}
	require.EqualValues(t, n, tr.Size())

	hits, err := tr.SearchBBox(BBox{MinLat: -1000, MaxLat: 1000, MinLng: -1000, MaxLng: 1000})
	require.NoError(t, err)
	require.Len(t, hits, n)
}

func TestSearchRadiusIsSoundAndComplete(t *testing.T) {
	tr := openTree(t, 4)

	center := struct{ lat, lng float64 }{37.0, -122.0}
	const radiusKm = 50.0

	inside := map[int]bool{}
	for i := 0; i < 30; i++ {
		dlat := float64(i-15) * 0.05
		dlng := float64(i-15) * 0.05
		lat := center.lat + dlat
		lng := center.lng + dlng
		require.NoError(t, tr.Insert(lat, lng, oidFor(i)))
		if haversineKm(center.lat, center.lng, lat, lng) <= radiusKm {
			inside[i] = true
		}
	}

	hits, err := tr.SearchRadius(center.lat, center.lng, radiusKm)
	require.NoError(t, err)

	for _, h := range hits {
		require.LessOrEqual(t, h.Distance, radiusKm, "soundness: every hit must be within the radius")
	}
	require.Len(t, hits, len(inside), "completeness: every in-radius point must be returned")
}

func TestRemoveDeletesEntry(t *testing.T) {
	tr := openTree(t, 4)

	for i := 0; i < 40; i++ {
		require.NoError(t, tr.Insert(float64(i), float64(-i), oidFor(i)))
	}
	require.EqualValues(t, 40, tr.Size())

	removed, err := tr.Remove(oidFor(20))
	require.NoError(t, err)
	require.True(t, removed)
	require.EqualValues(t, 39, tr.Size())

	hits, err := tr.SearchBBox(BBox{MinLat: -1000, MaxLat: 1000, MinLng: -1000, MaxLng: 1000})
	require.NoError(t, err)
	for _, h := range hits {
		require.NotEqual(t, oidFor(20), h.ObjectId)
	}

	removed, err = tr.Remove(oidFor(999))
	require.NoError(t, err)
	require.False(t, removed)
}

func TestReopenRecoversState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rtree.bin")

	tr, err := Open(Options{Path: path, MaxEntries: 4})
	require.NoError(t, err)
	for i := 0; i < 25; i++ {
		require.NoError(t, tr.Insert(float64(i), float64(i), oidFor(i)))
	}
	require.NoError(t, tr.Close())

	reopened, err := Open(Options{Path: path, MaxEntries: 4})
	require.NoError(t, err)
	defer reopened.Close()

	require.EqualValues(t, 25, reopened.Size())
	hits, err := reopened.SearchBBox(BBox{MinLat: -1000, MaxLat: 1000, MinLng: -1000, MaxLng: 1000})
	require.NoError(t, err)
	require.Len(t, hits, 25)
}

func TestCompactPreservesLiveEntries(t *testing.T) {
	tr := openTree(t, 4)

	for i := 0; i < 60; i++ {
		require.NoError(t, tr.Insert(float64(i%20), float64(-(i % 20)), oidFor(i)))
	}
	for i := 0; i < 30; i++ {
		_, err := tr.Remove(oidFor(i))
		require.NoError(t, err)
	}

	destPath := filepath.Join(t.TempDir(), "compacted.bin")
	stats, err := tr.Compact(destPath)
	require.NoError(t, err)
	require.Greater(t, stats.OldSize, uint64(0))

	dest, err := Open(Options{Path: destPath, MaxEntries: 4})
	require.NoError(t, err)
	defer dest.Close()

	require.EqualValues(t, 30, dest.Size())
	hits, err := dest.SearchBBox(BBox{MinLat: -1000, MaxLat: 1000, MinLng: -1000, MaxLng: 1000})
	require.NoError(t, err)
	require.Len(t, hits, 30)
	for _, h := range hits {
		seen := false
		for i := 30; i < 60; i++ {
			if h.ObjectId == oidFor(i) {
				seen = true
				break
			}
		}
		require.True(t, seen)
	}
}

func TestHaversineKnownDistance(t *testing.T) {
	// London to Paris is roughly 344km great-circle.
	d := haversineKm(51.5074, -0.1278, 48.8566, 2.3522)
	require.InDelta(t, 344, d, 15)
}

func TestRadiusBBoxClampsToValidRange(t *testing.T) {
	box := radiusBBox(89.9, 179.9, 500)
	require.LessOrEqual(t, box.MaxLat, 90.0)
	require.GreaterOrEqual(t, box.MinLat, -90.0)
	require.LessOrEqual(t, box.MaxLng, 180.0)
}

func TestAreaOfDegenerateBoxIsZero(t *testing.T) {
	require.Equal(t, 0.0, areaOf(pointBBox(1, 1)))
	require.True(t, math.Abs(areaOf(BBox{MinLat: 0, MaxLat: 2, MinLng: 0, MaxLng: 3})-6) < 1e-9)
}
