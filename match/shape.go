package match

import (
	"github.com/transitstat/transitgo/geo"
	"github.com/transitstat/transitgo/graph"
)

// assemble concatenates the network geometry of the winning candidate
// sequence. Within a sub-path every consecutive pair contributes its
// shortest-path edge geometry, trimmed to the end fractions; across gaps the
// sub-path geometries are joined directly.
func (m *Matcher) assemble(subPaths [][]Candidate, cache *spCache) []geo.Point {
	var out []geo.Point
	for _, sp := range subPaths {
		if len(sp) == 1 {
			out = appendPoint(out, sp[0].Point)
			continue
		}
		for k := 0; k+1 < len(sp); k++ {
			route, ok := cache.path(sp[k].position(), sp[k+1].position())
			if !ok {
				// decoded transitions always have a path; defensive only
				continue
			}
			seg := m.routeGeometry(route, sp[k].position(), sp[k+1].position())
			for _, p := range seg {
				out = appendPoint(out, p)
			}
		}
	}
	return out
}

// routeGeometry renders a resolved route as a polyline: the first edge from
// the start fraction, interior edges whole, the last edge up to the end
// fraction.
func (m *Matcher) routeGeometry(route graph.Route, from, to graph.PointOnEdge) []geo.Point {
	if len(route.Edges) == 0 {
		return nil
	}
	if len(route.Edges) == 1 {
		g := m.g.EdgeGeometry(route.Edges[0])
		l := m.g.EdgeLengthM(route.Edges[0])
		return geo.SlicePolyline(g, from.Fraction*l, to.Fraction*l)
	}

	var out []geo.Point
	first := route.Edges[0]
	g := m.g.EdgeGeometry(first)
	l := m.g.EdgeLengthM(first)
	out = append(out, geo.SlicePolyline(g, from.Fraction*l, l)...)
	for _, id := range route.Edges[1 : len(route.Edges)-1] {
		for _, p := range m.g.EdgeGeometry(id) {
			out = appendPoint(out, p)
		}
	}
	last := route.Edges[len(route.Edges)-1]
	g = m.g.EdgeGeometry(last)
	l = m.g.EdgeLengthM(last)
	for _, p := range geo.SlicePolyline(g, 0, to.Fraction*l) {
		out = appendPoint(out, p)
	}
	return out
}

// appendPoint appends p unless it repeats the current tail vertex.
func appendPoint(pts []geo.Point, p geo.Point) []geo.Point {
	if n := len(pts); n > 0 && pts[n-1] == p {
		return pts
	}
	return append(pts, p)
}
