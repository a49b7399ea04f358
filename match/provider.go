package match

import (
	"github.com/transitstat/transitgo/geo"
	"github.com/transitstat/transitgo/graph"
)

// GraphProvider is the network the matcher decodes onto. graph.Graph is the
// in-module implementation; callers may bring their own routing backend as
// long as queries stay radius- and cutoff-bounded and are safe for concurrent
// use.
type GraphProvider interface {
	// NearestEdges returns the edges within radiusM of p, with p's projection
	// onto each, ordered by distance then edge id.
	NearestEdges(p geo.Point, radiusM float64) []graph.EdgeHit
	// ShortestPath resolves the cheapest directed path between two points on
	// edges, or false when none exists within cutoffM.
	ShortestPath(from, to graph.PointOnEdge, cutoffM float64) (graph.Route, bool)
	// EdgeGeometry returns the edge's polyline from its From to its To node.
	EdgeGeometry(id graph.EdgeID) []geo.Point
	// EdgeLengthM returns the edge's length in meters.
	EdgeLengthM(id graph.EdgeID) float64
}

var _ GraphProvider = (*graph.Graph)(nil)
