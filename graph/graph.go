package graph

import (
	"fmt"

	"github.com/transitstat/transitgo/geo"
)

// NodeID indexes into the graph's node arena.
type NodeID int32

// EdgeID indexes into the graph's edge arena.
type EdgeID int32

// Node is a junction of the network.
type Node struct {
	ID    NodeID
	Point geo.Point
}

// Edge is one directed segment of the network. Geometry runs from the From
// node to the To node and includes both endpoints.
type Edge struct {
	ID       EdgeID
	From     NodeID
	To       NodeID
	Geometry []geo.Point
	LengthM  float64
}

// PointOnEdge pins a position to the network: an edge and a fraction of its
// length, 0 at the From node and 1 at the To node.
type PointOnEdge struct {
	Edge     EdgeID
	Fraction float64
}

// EdgeHit is one result of a radius query: the edge, where the query point
// projects onto it, and how far away it is.
type EdgeHit struct {
	Edge      EdgeID
	Fraction  float64
	DistanceM float64
	Point     geo.Point
}

// Route is a resolved network path between two points on edges. Edges lists
// every traversed edge in order, including the partially used first and last
// ones; DistanceM accounts for the partial use.
type Route struct {
	DistanceM float64
	Edges     []EdgeID
}

// Graph is the immutable network. Build one with a Builder.
type Graph struct {
	nodes []Node
	edges []Edge
	// out[n] are the edges leaving node n, in insertion order.
	out   [][]EdgeID
	index *cellIndex
}

// NumNodes returns the node count.
func (g *Graph) NumNodes() int { return len(g.nodes) }

// NumEdges returns the edge count.
func (g *Graph) NumEdges() int { return len(g.edges) }

// Node returns the node with the given id.
func (g *Graph) Node(id NodeID) Node { return g.nodes[id] }

// Edge returns the edge with the given id.
func (g *Graph) Edge(id EdgeID) Edge { return g.edges[id] }

// EdgeGeometry returns the edge's polyline from its From node to its To node.
func (g *Graph) EdgeGeometry(id EdgeID) []geo.Point { return g.edges[id].Geometry }

// EdgeLengthM returns the edge's length in meters.
func (g *Graph) EdgeLengthM(id EdgeID) float64 { return g.edges[id].LengthM }

// Builder accumulates nodes and edges and finalizes them into a Graph.
type Builder struct {
	nodes []Node
	edges []Edge
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder { return &Builder{} }

// AddNode appends a node and returns its id.
func (b *Builder) AddNode(p geo.Point) NodeID {
	id := NodeID(len(b.nodes))
	b.nodes = append(b.nodes, Node{ID: id, Point: p})
	return id
}

// AddEdge appends a directed edge. A nil geometry is replaced by the straight
// line between the endpoint nodes; a non-nil one must start at the From node
// and end at the To node.
func (b *Builder) AddEdge(from, to NodeID, geometry []geo.Point) (EdgeID, error) {
	if int(from) >= len(b.nodes) || int(to) >= len(b.nodes) || from < 0 || to < 0 {
		return 0, fmt.Errorf("edge %d->%d references unknown node", from, to)
	}
	if geometry == nil {
		geometry = []geo.Point{b.nodes[from].Point, b.nodes[to].Point}
	}
	if len(geometry) < 2 {
		return 0, fmt.Errorf("edge %d->%d: geometry needs at least two points", from, to)
	}
	id := EdgeID(len(b.edges))
	b.edges = append(b.edges, Edge{
		ID:       id,
		From:     from,
		To:       to,
		Geometry: geometry,
		LengthM:  geo.PolylineLengthM(geometry),
	})
	return id, nil
}

// AddBidirectional appends the edge and its reversal, returning both ids.
func (b *Builder) AddBidirectional(from, to NodeID, geometry []geo.Point) (EdgeID, EdgeID, error) {
	fwd, err := b.AddEdge(from, to, geometry)
	if err != nil {
		return 0, 0, err
	}
	var rev []geo.Point
	if geometry != nil {
		rev = make([]geo.Point, len(geometry))
		for i, p := range geometry {
			rev[len(geometry)-1-i] = p
		}
	}
	bwd, err := b.AddEdge(to, from, rev)
	if err != nil {
		return 0, 0, err
	}
	return fwd, bwd, nil
}

// Build finalizes the graph: adjacency lists and the spatial index keyed by
// cells of roughly cellSizeM meters.
func (b *Builder) Build(cellSizeM float64) *Graph {
	g := &Graph{
		nodes: b.nodes,
		edges: b.edges,
		out:   make([][]EdgeID, len(b.nodes)),
	}
	for _, e := range g.edges {
		g.out[e.From] = append(g.out[e.From], e.ID)
	}
	g.index = buildCellIndex(g.edges, cellSizeM)
	return g
}
