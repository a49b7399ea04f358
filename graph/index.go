package graph

import (
	"math"
	"sort"

	"github.com/transitstat/transitgo/geo"
)

// metersPerDegreeLat is close enough for sizing grid cells; longitude cells
// are scaled by cos(lat) per query.
const metersPerDegreeLat = 111320.0

type cellKey struct{ x, y int32 }

// cellIndex buckets edge ids by the grid cells their bounding boxes touch.
type cellIndex struct {
	cellDeg float64
	cells   map[cellKey][]EdgeID
}

func buildCellIndex(edges []Edge, cellSizeM float64) *cellIndex {
	if cellSizeM <= 0 {
		cellSizeM = 250
	}
	idx := &cellIndex{
		cellDeg: cellSizeM / metersPerDegreeLat,
		cells:   map[cellKey][]EdgeID{},
	}
	for _, e := range edges {
		minLon, minLat := math.Inf(1), math.Inf(1)
		maxLon, maxLat := math.Inf(-1), math.Inf(-1)
		for _, p := range e.Geometry {
			minLon = math.Min(minLon, p[0])
			maxLon = math.Max(maxLon, p[0])
			minLat = math.Min(minLat, p[1])
			maxLat = math.Max(maxLat, p[1])
		}
		x0 := int32(math.Floor(minLon / idx.cellDeg))
		x1 := int32(math.Floor(maxLon / idx.cellDeg))
		y0 := int32(math.Floor(minLat / idx.cellDeg))
		y1 := int32(math.Floor(maxLat / idx.cellDeg))
		for x := x0; x <= x1; x++ {
			for y := y0; y <= y1; y++ {
				k := cellKey{x, y}
				idx.cells[k] = append(idx.cells[k], e.ID)
			}
		}
	}
	return idx
}

// candidates returns the deduplicated edge ids of every cell within radiusM
// of p, superset of the true hits.
func (idx *cellIndex) candidates(p geo.Point, radiusM float64) []EdgeID {
	latDeg := radiusM / metersPerDegreeLat
	cosLat := math.Cos(p[1] * math.Pi / 180)
	if cosLat < 0.01 {
		cosLat = 0.01
	}
	lonDeg := latDeg / cosLat

	x0 := int32(math.Floor((p[0] - lonDeg) / idx.cellDeg))
	x1 := int32(math.Floor((p[0] + lonDeg) / idx.cellDeg))
	y0 := int32(math.Floor((p[1] - latDeg) / idx.cellDeg))
	y1 := int32(math.Floor((p[1] + latDeg) / idx.cellDeg))

	seen := map[EdgeID]bool{}
	var out []EdgeID
	for x := x0; x <= x1; x++ {
		for y := y0; y <= y1; y++ {
			for _, id := range idx.cells[cellKey{x, y}] {
				if !seen[id] {
					seen[id] = true
					out = append(out, id)
				}
			}
		}
	}
	return out
}

// NearestEdges returns every edge within radiusM of p with the projection of
// p onto it, ordered by distance then edge id.
func (g *Graph) NearestEdges(p geo.Point, radiusM float64) []EdgeHit {
	var hits []EdgeHit
	for _, id := range g.index.candidates(p, radiusM) {
		e := g.edges[id]
		proj, ok := geo.ProjectOntoPolyline(e.Geometry, p)
		if !ok || proj.DistM > radiusM {
			continue
		}
		hits = append(hits, EdgeHit{
			Edge:      id,
			Fraction:  proj.Fraction,
			DistanceM: proj.DistM,
			Point:     proj.Point,
		})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].DistanceM != hits[j].DistanceM {
			return hits[i].DistanceM < hits[j].DistanceM
		}
		return hits[i].Edge < hits[j].Edge
	})
	return hits
}
