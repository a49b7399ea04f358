package graph

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/transitstat/transitgo/geo"
)

// lineGraph builds a straight west-to-east chain of bidirectional edges at
// the equator, one node every 0.001 degrees (~111m).
func lineGraph(t *testing.T, nodes int) *Graph {
	t.Helper()
	b := NewBuilder()
	ids := make([]NodeID, nodes)
	for i := 0; i < nodes; i++ {
		ids[i] = b.AddNode(geo.Point{float64(i) * 0.001, 0})
	}
	for i := 0; i+1 < nodes; i++ {
		if _, _, err := b.AddBidirectional(ids[i], ids[i+1], nil); err != nil {
			t.Fatal(err)
		}
	}
	return b.Build(100)
}

func TestBuilderRejectsUnknownNode(t *testing.T) {
	b := NewBuilder()
	b.AddNode(geo.Point{0, 0})
	if _, err := b.AddEdge(0, 5, nil); err == nil {
		t.Fatal("expected error for unknown node")
	}
}

func TestNearestEdgesRadiusBound(t *testing.T) {
	g := lineGraph(t, 5)

	p := geo.Point{0.0015, 0.0002} // ~22m north of the line
	hits := g.NearestEdges(p, 50)
	if len(hits) == 0 {
		t.Fatal("expected hits within 50m")
	}
	for _, h := range hits {
		if h.DistanceM > 50 {
			t.Errorf("hit %d at %.1fm exceeds the radius", h.Edge, h.DistanceM)
		}
		if h.Fraction < 0 || h.Fraction > 1 {
			t.Errorf("fraction %f out of range", h.Fraction)
		}
	}
	// ordered by distance
	for i := 1; i < len(hits); i++ {
		if hits[i].DistanceM < hits[i-1].DistanceM {
			t.Errorf("hits not ordered by distance: %+v", hits)
		}
	}

	far := geo.Point{0.0015, 0.01} // ~1.1km away
	if got := g.NearestEdges(far, 50); len(got) != 0 {
		t.Errorf("expected no hits 1km from the line, got %d", len(got))
	}
}

func TestShortestPathSameEdge(t *testing.T) {
	g := lineGraph(t, 3)
	// edge 0 runs node0 -> node1, ~111m
	from := PointOnEdge{Edge: 0, Fraction: 0.25}
	to := PointOnEdge{Edge: 0, Fraction: 0.75}

	r, ok := g.ShortestPath(from, to, 0)
	if !ok {
		t.Fatal("no path on the same edge")
	}
	want := g.EdgeLengthM(0) * 0.5
	if math.Abs(r.DistanceM-want) > 0.1 {
		t.Errorf("distance = %f, want %f", r.DistanceM, want)
	}
	if len(r.Edges) != 1 || r.Edges[0] != 0 {
		t.Errorf("edges = %v, want [0]", r.Edges)
	}
}

func TestShortestPathAcrossNodes(t *testing.T) {
	g := lineGraph(t, 4)
	// forward edges are even ids: 0 (n0->n1), 2 (n1->n2), 4 (n2->n3)
	from := PointOnEdge{Edge: 0, Fraction: 0.5}
	to := PointOnEdge{Edge: 4, Fraction: 0.5}

	r, ok := g.ShortestPath(from, to, 0)
	if !ok {
		t.Fatal("no path")
	}
	edgeLen := g.EdgeLengthM(0)
	want := edgeLen * 2 // half + whole + half
	if math.Abs(r.DistanceM-want) > 0.5 {
		t.Errorf("distance = %f, want %f", r.DistanceM, want)
	}
	wantEdges := []EdgeID{0, 2, 4}
	if len(r.Edges) != len(wantEdges) {
		t.Fatalf("edges = %v, want %v", r.Edges, wantEdges)
	}
	for i, e := range wantEdges {
		if r.Edges[i] != e {
			t.Fatalf("edges = %v, want %v", r.Edges, wantEdges)
		}
	}
}

func TestShortestPathCutoff(t *testing.T) {
	g := lineGraph(t, 10)
	from := PointOnEdge{Edge: 0, Fraction: 0}
	to := PointOnEdge{Edge: EdgeID(16), Fraction: 1} // far end, ~1km

	if _, ok := g.ShortestPath(from, to, 200); ok {
		t.Error("path beyond the cutoff should be rejected")
	}
	if _, ok := g.ShortestPath(from, to, 0); !ok {
		t.Error("unbounded search should find the path")
	}
}

func TestShortestPathDisconnected(t *testing.T) {
	b := NewBuilder()
	n0 := b.AddNode(geo.Point{0, 0})
	n1 := b.AddNode(geo.Point{0.001, 0})
	n2 := b.AddNode(geo.Point{0.5, 0.5})
	n3 := b.AddNode(geo.Point{0.501, 0.5})
	if _, _, err := b.AddBidirectional(n0, n1, nil); err != nil {
		t.Fatal(err)
	}
	if _, _, err := b.AddBidirectional(n2, n3, nil); err != nil {
		t.Fatal(err)
	}
	g := b.Build(100)

	if _, ok := g.ShortestPath(PointOnEdge{Edge: 0}, PointOnEdge{Edge: 2, Fraction: 0.5}, 0); ok {
		t.Error("disconnected components should have no path")
	}
}

func TestOnewayRespectsDirection(t *testing.T) {
	b := NewBuilder()
	n0 := b.AddNode(geo.Point{0, 0})
	n1 := b.AddNode(geo.Point{0.001, 0})
	if _, err := b.AddEdge(n0, n1, nil); err != nil {
		t.Fatal(err)
	}
	g := b.Build(100)

	// moving backwards along the only directed edge is impossible
	if _, ok := g.ShortestPath(PointOnEdge{Edge: 0, Fraction: 0.8}, PointOnEdge{Edge: 0, Fraction: 0.2}, 0); ok {
		t.Error("reverse travel on a oneway edge should fail")
	}
}

func TestLoadCSV(t *testing.T) {
	dir := t.TempDir()
	nodes := "node_id,lat,lon\nA,0,0\nB,0,0.001\nC,0,0.002\n"
	edges := "from_node,to_node,oneway,geometry\nA,B,,\nB,C,1,\n"
	nodesPath := filepath.Join(dir, "nodes.csv")
	edgesPath := filepath.Join(dir, "edges.csv")
	if err := os.WriteFile(nodesPath, []byte(nodes), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(edgesPath, []byte(edges), 0o644); err != nil {
		t.Fatal(err)
	}

	g, err := LoadCSV(nodesPath, edgesPath, 100)
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	if g.NumNodes() != 3 {
		t.Errorf("nodes = %d, want 3", g.NumNodes())
	}
	// A-B bidirectional (2 edges) + B->C oneway (1 edge)
	if g.NumEdges() != 3 {
		t.Errorf("edges = %d, want 3", g.NumEdges())
	}
}

func TestLoadCSVUnknownNode(t *testing.T) {
	dir := t.TempDir()
	nodesPath := filepath.Join(dir, "nodes.csv")
	edgesPath := filepath.Join(dir, "edges.csv")
	os.WriteFile(nodesPath, []byte("node_id,lat,lon\nA,0,0\n"), 0o644)
	os.WriteFile(edgesPath, []byte("from_node,to_node\nA,MISSING\n"), 0o644)

	if _, err := LoadCSV(nodesPath, edgesPath, 100); err == nil {
		t.Fatal("expected error for edge referencing unknown node")
	}
}
