package geo

import "math"

const earthRadiusM = 6371000.0

// Point is a lon,lat coordinate pair in WGS84 degrees.
type Point = [2]float64

// HaversineM returns the great-circle distance between two lon,lat points in meters.
func HaversineM(a, b Point) float64 {
	lat1 := a[1] * math.Pi / 180
	lat2 := b[1] * math.Pi / 180
	dLat := (b[1] - a[1]) * math.Pi / 180
	dLon := (b[0] - a[0]) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusM * c
}

// PolylineLengthM returns the summed segment lengths of a polyline in meters.
func PolylineLengthM(pts []Point) float64 {
	total := 0.0
	for i := 1; i < len(pts); i++ {
		total += HaversineM(pts[i-1], pts[i])
	}
	return total
}

// CumulativeM returns the running length of a polyline at each vertex in meters.
func CumulativeM(pts []Point) []float64 {
	cum := make([]float64, len(pts))
	if len(pts) == 0 {
		return cum
	}
	for i := 1; i < len(pts); i++ {
		cum[i] = cum[i-1] + HaversineM(pts[i-1], pts[i])
	}
	return cum
}

// toLocalXY projects p into a meter-scaled plane centered on origin using an
// equirectangular approximation. Good to well under a meter at the distances
// the candidate search operates on.
func toLocalXY(origin, p Point) (x, y float64) {
	cosLat := math.Cos(origin[1] * math.Pi / 180)
	x = (p[0] - origin[0]) * math.Pi / 180 * earthRadiusM * cosLat
	y = (p[1] - origin[1]) * math.Pi / 180 * earthRadiusM
	return
}

// Projection is the result of projecting a point onto a polyline.
type Projection struct {
	Segment  int     // index i of segment pts[i]..pts[i+1]
	T        float64 // clamped parameter within the segment, 0..1
	Point    Point   // snapped lon,lat
	DistM    float64 // perpendicular distance to the polyline, meters
	AlongM   float64 // distance from the polyline start to the snap, meters
	Fraction float64 // AlongM over the full polyline length, 0..1
}

// ProjectOntoPolyline finds the closest point of a polyline to p. The second
// return value is false for degenerate polylines (fewer than 2 points).
func ProjectOntoPolyline(pts []Point, p Point) (Projection, bool) {
	if len(pts) < 2 {
		return Projection{}, false
	}
	cum := CumulativeM(pts)
	best := Projection{DistM: math.MaxFloat64}
	x0, y0 := toLocalXY(p, pts[0])
	for i := 1; i < len(pts); i++ {
		x1, y1 := toLocalXY(p, pts[i])
		dx := x1 - x0
		dy := y1 - y0
		segLen2 := dx*dx + dy*dy
		t := 0.0
		if segLen2 > 0 {
			// projection of the origin (= p in local coordinates) onto the segment
			t = -(x0*dx + y0*dy) / segLen2
			if t < 0 {
				t = 0
			} else if t > 1 {
				t = 1
			}
		}
		px := x0 + t*dx
		py := y0 + t*dy
		d := math.Sqrt(px*px + py*py)
		if d < best.DistM {
			a := pts[i-1]
			b := pts[i]
			best = Projection{
				Segment: i - 1,
				T:       t,
				Point:   Point{a[0] + t*(b[0]-a[0]), a[1] + t*(b[1]-a[1])},
				DistM:   d,
				AlongM:  cum[i-1] + t*(cum[i]-cum[i-1]),
			}
		}
		x0, y0 = x1, y1
	}
	total := cum[len(cum)-1]
	if total > 0 {
		best.Fraction = best.AlongM / total
	}
	return best, true
}

// InterpolateAlong returns the point at distM along the polyline, clamped to
// its ends.
func InterpolateAlong(pts []Point, distM float64) Point {
	if len(pts) == 0 {
		return Point{}
	}
	if len(pts) == 1 || distM <= 0 {
		return pts[0]
	}
	cum := CumulativeM(pts)
	total := cum[len(cum)-1]
	if distM >= total {
		return pts[len(pts)-1]
	}
	// binary search for the containing segment
	lo, hi := 0, len(cum)-1
	for lo < hi {
		mid := (lo + hi) / 2
		if cum[mid] < distM {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	i := lo
	if i == 0 {
		i = 1
	}
	segLen := cum[i] - cum[i-1]
	t := 0.0
	if segLen > 0 {
		t = (distM - cum[i-1]) / segLen
	}
	a := pts[i-1]
	b := pts[i]
	return Point{a[0] + t*(b[0]-a[0]), a[1] + t*(b[1]-a[1])}
}

// SlicePolyline returns the part of a polyline between two distances along it,
// including interpolated end points. fromM must not exceed toM.
func SlicePolyline(pts []Point, fromM, toM float64) []Point {
	if len(pts) < 2 || toM <= fromM {
		if len(pts) == 0 {
			return nil
		}
		return []Point{InterpolateAlong(pts, fromM)}
	}
	cum := CumulativeM(pts)
	out := []Point{InterpolateAlong(pts, fromM)}
	for i := 1; i < len(pts)-1; i++ {
		if cum[i] > fromM && cum[i] < toM {
			out = append(out, pts[i])
		}
	}
	out = append(out, InterpolateAlong(pts, toM))
	return out
}

// RoundCoord rounds a coordinate to the given number of decimals.
func RoundCoord(v float64, decimals int) float64 {
	if decimals <= 0 {
		return v
	}
	scale := math.Pow10(decimals)
	return math.Round(v*scale) / scale
}
