package match

import "github.com/transitstat/transitgo/graph"

type spKey struct {
	from graph.PointOnEdge
	to   graph.PointOnEdge
}

type spVal struct {
	route graph.Route
	ok    bool
}

// spCache memoizes shortest-path queries for one shape's match run. The
// decoder and the shape builder ask for the same pairs; unreachable pairs are
// cached too. Not safe for concurrent use; every run builds its own.
type spCache struct {
	g       GraphProvider
	cutoffM float64
	entries map[spKey]spVal
}

func newSPCache(g GraphProvider, cutoffM float64) *spCache {
	return &spCache{g: g, cutoffM: cutoffM, entries: map[spKey]spVal{}}
}

func (c *spCache) path(from, to graph.PointOnEdge) (graph.Route, bool) {
	k := spKey{from: from, to: to}
	if v, ok := c.entries[k]; ok {
		return v.route, v.ok
	}
	route, ok := c.g.ShortestPath(from, to, c.cutoffM)
	c.entries[k] = spVal{route: route, ok: ok}
	return route, ok
}
