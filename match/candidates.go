package match

import (
	"github.com/transitstat/transitgo/geo"
	"github.com/transitstat/transitgo/graph"
)

// Candidate is one possible network position of a shape point.
type Candidate struct {
	Edge      graph.EdgeID
	Fraction  float64
	DistanceM float64
	Point     geo.Point
	// Index is the shape point this candidate belongs to.
	Index int
}

// position returns the candidate as a routable point on its edge.
func (c Candidate) position() graph.PointOnEdge {
	return graph.PointOnEdge{Edge: c.Edge, Fraction: c.Fraction}
}

// GenerateCandidates queries the provider for every shape point independently.
// The result has one slice per point, in the provider's distance order; an
// empty slice means no edge within radius.
func GenerateCandidates(shape []geo.Point, g GraphProvider, radiusM float64) [][]Candidate {
	out := make([][]Candidate, len(shape))
	for i, p := range shape {
		hits := g.NearestEdges(p, radiusM)
		if len(hits) == 0 {
			continue
		}
		cands := make([]Candidate, len(hits))
		for j, h := range hits {
			cands[j] = Candidate{
				Edge:      h.Edge,
				Fraction:  h.Fraction,
				DistanceM: h.DistanceM,
				Point:     h.Point,
				Index:     i,
			}
		}
		out[i] = cands
	}
	return out
}
