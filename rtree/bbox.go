package rtree

import "math"

// BBox is an axis-aligned lat/lng bounding box. Intersection and
// point-containment are closed on all four edges (spec §4.4.5).
type BBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

func pointBBox(lat, lng float64) BBox {
	return BBox{MinLat: lat, MaxLat: lat, MinLng: lng, MaxLng: lng}
}

func unionBBox(a, b BBox) BBox {
	return BBox{
		MinLat: math.Min(a.MinLat, b.MinLat),
		MaxLat: math.Max(a.MaxLat, b.MaxLat),
		MinLng: math.Min(a.MinLng, b.MinLng),
		MaxLng: math.Max(a.MaxLng, b.MaxLng),
	}
}

func unionAll(boxes []BBox) BBox {
	if len(boxes) == 0 {
		return BBox{}
	}
	out := boxes[0]
	for _, b := range boxes[1:] {
		out = unionBBox(out, b)
	}
	return out
}

func areaOf(b BBox) float64 {
	return (b.MaxLat - b.MinLat) * (b.MaxLng - b.MinLng)
}

func intersects(a, b BBox) bool {
	return a.MinLat <= b.MaxLat && a.MaxLat >= b.MinLat &&
		a.MinLng <= b.MaxLng && a.MaxLng >= b.MinLng
}

func pointInBBox(lat, lng float64, b BBox) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// haversineKm returns the great-circle distance between two points in
// kilometres, on a sphere of radius 6371 km (spec glossary).
func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	const earthRadiusKm = 6371.0
	rad := math.Pi / 180

	dLat := (lat2 - lat1) * rad
	dLng := (lng2 - lng1) * rad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// radiusBBox approximates a radius query as a bounding box, per spec
// §4.4.2: latΔ = r/111, lngΔ = r / (111·cos(lat·π/180)).
func radiusBBox(lat, lng, radiusKm float64) BBox {
	latDelta := radiusKm / 111
	lngDelta := radiusKm / (111 * math.Cos(lat*math.Pi/180))

	return BBox{
		MinLat: clamp(lat-latDelta, -90, 90),
		MaxLat: clamp(lat+latDelta, -90, 90),
		MinLng: clamp(lng-lngDelta, -180, 180),
		MaxLng: clamp(lng+lngDelta, -180, 180),
	}
}

// quadraticSplitIndices partitions boxes into two groups using the
// quadratic-seed heuristic of spec §4.4.3: seed with the pair whose union
// has the greatest area, then assign the rest one at a time to whichever
// group needs less enlargement, ties broken by the smaller group.
func quadraticSplitIndices(boxes []BBox) ([]int, []int) {
	n := len(boxes)
	seedI, seedJ := 0, 1
	bestArea := -1.0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			a := areaOf(unionBBox(boxes[i], boxes[j]))
			if a > bestArea {
				bestArea = a
				seedI, seedJ = i, j
			}
		}
	}

	groupA := []int{seedI}
	groupB := []int{seedJ}
	boxA := boxes[seedI]
	boxB := boxes[seedJ]
	assigned := make([]bool, n)
	assigned[seedI] = true
	assigned[seedJ] = true

	for i := 0; i < n; i++ {
		if assigned[i] {
			continue
		}
		enlargeA := areaOf(unionBBox(boxA, boxes[i])) - areaOf(boxA)
		enlargeB := areaOf(unionBBox(boxB, boxes[i])) - areaOf(boxB)
		switch {
		case enlargeA < enlargeB:
			groupA = append(groupA, i)
			boxA = unionBBox(boxA, boxes[i])
		case enlargeB < enlargeA:
			groupB = append(groupB, i)
			boxB = unionBBox(boxB, boxes[i])
		default:
			if len(groupA) <= len(groupB) {
				groupA = append(groupA, i)
				boxA = unionBBox(boxA, boxes[i])
			} else {
				groupB = append(groupB, i)
				boxB = unionBBox(boxB, boxes[i])
			}
		}
	}

	return groupA, groupB
}
