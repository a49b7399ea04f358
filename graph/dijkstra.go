package graph

import "container/heap"

type pqItem struct {
	node  NodeID
	distM float64
}

type nodeQueue []pqItem

func (q nodeQueue) Len() int            { return len(q) }
func (q nodeQueue) Less(i, j int) bool  { return q[i].distM < q[j].distM }
func (q nodeQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *nodeQueue) Push(x interface{}) { *q = append(*q, x.(pqItem)) }
func (q *nodeQueue) Pop() interface{} {
	old := *q
	n := len(old)
	it := old[n-1]
	*q = old[:n-1]
	return it
}

// ShortestPathDistance returns the network distance between two points on
// edges, or false when no path exists within cutoffM. cutoffM <= 0 disables
// the cutoff.
func (g *Graph) ShortestPathDistance(from, to PointOnEdge, cutoffM float64) (float64, bool) {
	r, ok := g.ShortestPath(from, to, cutoffM)
	if !ok {
		return 0, false
	}
	return r.DistanceM, true
}

// ShortestPath resolves the cheapest path between two points on edges. Travel
// follows edge direction only; reaching an earlier fraction of the same edge
// means going around. The search expands settled nodes in distance order and
// abandons branches beyond cutoffM.
func (g *Graph) ShortestPath(from, to PointOnEdge, cutoffM float64) (Route, bool) {
	fromEdge := g.edges[from.Edge]
	toEdge := g.edges[to.Edge]

	if from.Edge == to.Edge && to.Fraction >= from.Fraction {
		d := (to.Fraction - from.Fraction) * fromEdge.LengthM
		if cutoffM > 0 && d > cutoffM {
			return Route{}, false
		}
		return Route{DistanceM: d, Edges: []EdgeID{from.Edge}}, true
	}

	startCost := (1 - from.Fraction) * fromEdge.LengthM
	endCost := to.Fraction * toEdge.LengthM
	target := toEdge.From

	const unvisited = -1.0
	dist := make([]float64, len(g.nodes))
	prev := make([]EdgeID, len(g.nodes))
	for i := range dist {
		dist[i] = unvisited
		prev[i] = -1
	}

	q := &nodeQueue{{node: fromEdge.To, distM: startCost}}
	dist[fromEdge.To] = startCost
	for q.Len() > 0 {
		it := heap.Pop(q).(pqItem)
		if it.distM > dist[it.node] {
			continue
		}
		if it.node == target {
			break
		}
		for _, eid := range g.out[it.node] {
			e := g.edges[eid]
			nd := it.distM + e.LengthM
			if cutoffM > 0 && nd > cutoffM {
				continue
			}
			if dist[e.To] == unvisited || nd < dist[e.To] {
				dist[e.To] = nd
				prev[e.To] = eid
				heap.Push(q, pqItem{node: e.To, distM: nd})
			}
		}
	}

	if dist[target] == unvisited {
		return Route{}, false
	}
	total := dist[target] + endCost
	if cutoffM > 0 && total > cutoffM {
		return Route{}, false
	}

	var chain []EdgeID
	for n := target; prev[n] >= 0; n = g.edges[prev[n]].From {
		chain = append(chain, prev[n])
	}
	edges := make([]EdgeID, 0, len(chain)+2)
	edges = append(edges, from.Edge)
	for i := len(chain) - 1; i >= 0; i-- {
		edges = append(edges, chain[i])
	}
	edges = append(edges, to.Edge)
	return Route{DistanceM: total, Edges: edges}, true
}
