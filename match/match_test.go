package match

import (
	"context"
	"errors"
	"math"
	"reflect"
	"sync"
	"testing"

	"github.com/transitstat/transitgo/config"
	"github.com/transitstat/transitgo/geo"
	"github.com/transitstat/transitgo/graph"
	"github.com/transitstat/transitgo/gtfs"
)

func testMatchConfig() config.MatchConfig {
	return config.MatchConfig{
		SearchRadiusM:       50,
		EmissionSigmaM:      10,
		TransitionDecay:     "exponential",
		TransitionDecayRate: 2,
		PathDistanceCutoffM: 2000,
		MaxGapFraction:      0.25,
		Workers:             2,
		CRS:                 4326,
	}
}

// lineGraph is a straight west-to-east chain of bidirectional edges at the
// equator, one node every 0.001 degrees (~111m).
func lineGraph(t *testing.T, nodes int) *graph.Graph {
	t.Helper()
	b := graph.NewBuilder()
	ids := make([]graph.NodeID, nodes)
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

func shapeOf(id string, pts ...geo.Point) *gtfs.Shape {
	sh := &gtfs.Shape{ID: id}
	for i, p := range pts {
		sh.Points = append(sh.Points, gtfs.ShapePoint{Lon: p[0], Lat: p[1], Sequence: i})
	}
	return sh
}

func TestGenerateCandidatesRadiusBound(t *testing.T) {
	g := lineGraph(t, 5)
	pts := []geo.Point{
		{0.0015, 0.0002}, // ~22m from the line
		{0.0015, 0.01},   // ~1.1km away
	}
	cands := GenerateCandidates(pts, g, 50)
	if len(cands[0]) == 0 {
		t.Fatal("expected candidates for the near point")
	}
	for _, c := range cands[0] {
		if c.DistanceM > 50 {
			t.Errorf("candidate at %.1fm exceeds the radius", c.DistanceM)
		}
		if c.Index != 0 {
			t.Errorf("candidate index = %d, want 0", c.Index)
		}
	}
	if len(cands[1]) != 0 {
		t.Errorf("far point should have no candidates, got %d", len(cands[1]))
	}
}

func TestNewMatcherRejectsUnknownDecay(t *testing.T) {
	cfg := testMatchConfig()
	cfg.TransitionDecay = "linear"
	if _, err := NewMatcher(lineGraph(t, 2), cfg); err == nil {
		t.Fatal("expected error for unknown decay")
	}
}

// Shape points sitting exactly on a straight chain must match with zero
// penalty: every emission is at distance zero and every transition has detour
// ratio one.
func TestMatchShapeExactLine(t *testing.T) {
	g := lineGraph(t, 5)
	m, err := NewMatcher(g, testMatchConfig())
	if err != nil {
		t.Fatal(err)
	}
	sh := shapeOf("SH1",
		geo.Point{0.0005, 0}, geo.Point{0.0015, 0}, geo.Point{0.0025, 0}, geo.Point{0.0035, 0})

	ms, err := m.MatchShape(sh, nil)
	if err != nil {
		t.Fatalf("MatchShape: %v", err)
	}

	if len(ms.Path) != 4 {
		t.Fatalf("path covers %d points, want 4", len(ms.Path))
	}
	for i, c := range ms.Path {
		if c.Index != i {
			t.Errorf("path[%d].Index = %d", i, c.Index)
		}
		if c.DistanceM > 0.01 {
			t.Errorf("path[%d] perpendicular distance = %f, want 0", i, c.DistanceM)
		}
	}
	if math.Abs(ms.Score) > 1e-9 {
		t.Errorf("score = %g, want 0 for a perfect match", ms.Score)
	}
	if len(ms.Gaps) != 0 || ms.GapFraction != 0 {
		t.Errorf("gaps = %+v, fraction %f; want none", ms.Gaps, ms.GapFraction)
	}
	if ms.CRS != 4326 {
		t.Errorf("CRS = %d, want 4326", ms.CRS)
	}

	wantLen := geo.HaversineM(geo.Point{0.0005, 0}, geo.Point{0.0035, 0})
	if math.Abs(ms.LengthM-wantLen) > 1 {
		t.Errorf("geometry length = %f, want ~%f", ms.LengthM, wantLen)
	}
}

func TestMatchShapeDeterministic(t *testing.T) {
	g := lineGraph(t, 5)
	m, err := NewMatcher(g, testMatchConfig())
	if err != nil {
		t.Fatal(err)
	}
	sh := shapeOf("SH1",
		geo.Point{0.0005, 0.0001}, geo.Point{0.0015, -0.0001}, geo.Point{0.0025, 0.0001}, geo.Point{0.0035, 0})

	first, err := m.MatchShape(sh, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		again, err := m.MatchShape(sh, nil)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs from the first", i+2)
		}
	}
}

// A shape point too far from any edge splits the match into two sub-paths
// with a recorded gap over the skipped point.
func TestMatchShapeGap(t *testing.T) {
	g := lineGraph(t, 5)
	cfg := testMatchConfig()
	cfg.MaxGapFraction = 0.6
	m, err := NewMatcher(g, cfg)
	if err != nil {
		t.Fatal(err)
	}
	sh := shapeOf("SH1",
		geo.Point{0.0005, 0}, geo.Point{0.0010, 0}, geo.Point{0.0015, 0},
		geo.Point{0.0020, 0.001}, // ~111m off the line, outside the 50m radius
		geo.Point{0.0025, 0}, geo.Point{0.0030, 0}, geo.Point{0.0035, 0})

	ms, err := m.MatchShape(sh, nil)
	if err != nil {
		t.Fatalf("MatchShape: %v", err)
	}
	if len(ms.Path) != 6 {
		t.Fatalf("path covers %d points, want 6 (all but the outlier)", len(ms.Path))
	}
	if len(ms.Gaps) != 1 {
		t.Fatalf("gaps = %+v, want exactly one", ms.Gaps)
	}
	gap := ms.Gaps[0]
	if gap.FromIndex != 2 || gap.ToIndex != 4 {
		t.Errorf("gap spans %d..%d, want 2..4", gap.FromIndex, gap.ToIndex)
	}
	if gap.LengthM <= 0 {
		t.Errorf("gap length = %f, want positive", gap.LengthM)
	}
	if ms.GapFraction <= 0 || ms.GapFraction > cfg.MaxGapFraction {
		t.Errorf("gap fraction = %f", ms.GapFraction)
	}

	// the same shape fails under a stricter gap budget
	strict := testMatchConfig()
	strict.MaxGapFraction = 0.3
	ms2, err := NewMatcher(g, strict)
	if err != nil {
		t.Fatal(err)
	}
	_, err = ms2.MatchShape(sh, nil)
	var unmatchable *UnmatchableShapeError
	if !errors.As(err, &unmatchable) {
		t.Fatalf("err = %v, want UnmatchableShapeError", err)
	}
	if unmatchable.ShapeID != "SH1" {
		t.Errorf("ShapeID = %q", unmatchable.ShapeID)
	}
}

// A three-point shape whose middle point sits off the network matches only
// its endpoints: the single gap between them spans the whole along-shape
// length, so only a full gap budget tolerates it.
func TestMatchShapeThreePointGap(t *testing.T) {
	g := lineGraph(t, 5)
	cfg := testMatchConfig()
	cfg.MaxGapFraction = 1
	m, err := NewMatcher(g, cfg)
	if err != nil {
		t.Fatal(err)
	}
	sh := shapeOf("SH1",
		geo.Point{0.0005, 0},
		geo.Point{0.0020, 0.001}, // ~111m off the line, outside the 50m radius
		geo.Point{0.0035, 0})

	ms, err := m.MatchShape(sh, nil)
	if err != nil {
		t.Fatalf("MatchShape: %v", err)
	}
	if len(ms.Path) != 2 {
		t.Fatalf("path covers %d points, want the two endpoints", len(ms.Path))
	}
	if ms.Path[0].Index != 0 || ms.Path[1].Index != 2 {
		t.Errorf("path indexes = %d,%d; want 0,2", ms.Path[0].Index, ms.Path[1].Index)
	}
	if len(ms.Gaps) != 1 {
		t.Fatalf("gaps = %+v, want exactly one", ms.Gaps)
	}
	gap := ms.Gaps[0]
	if gap.FromIndex != 0 || gap.ToIndex != 2 {
		t.Errorf("gap spans %d..%d, want 0..2", gap.FromIndex, gap.ToIndex)
	}
	if gap.LengthM <= 0 {
		t.Errorf("gap length = %f, want positive", gap.LengthM)
	}
	if math.Abs(ms.GapFraction-1) > 1e-9 {
		t.Errorf("gap fraction = %f, want 1 (the gap covers the whole shape)", ms.GapFraction)
	}

	// the default budget rejects the same shape
	strict, err := NewMatcher(g, testMatchConfig())
	if err != nil {
		t.Fatal(err)
	}
	_, err = strict.MatchShape(sh, nil)
	var unmatchable *UnmatchableShapeError
	if !errors.As(err, &unmatchable) {
		t.Fatalf("err = %v, want UnmatchableShapeError", err)
	}
}

// Candidates on disconnected components make every transition forbidden: the
// path splits and the whole span between the sub-paths counts as a gap.
func TestMatchShapeForbiddenTransitions(t *testing.T) {
	b := graph.NewBuilder()
	n0 := b.AddNode(geo.Point{0, 0})
	n1 := b.AddNode(geo.Point{0.001, 0})
	n2 := b.AddNode(geo.Point{0.01, 0})
	n3 := b.AddNode(geo.Point{0.011, 0})
	if _, _, err := b.AddBidirectional(n0, n1, nil); err != nil {
		t.Fatal(err)
	}
	if _, _, err := b.AddBidirectional(n2, n3, nil); err != nil {
		t.Fatal(err)
	}
	g := b.Build(100)

	m, err := NewMatcher(g, testMatchConfig())
	if err != nil {
		t.Fatal(err)
	}
	sh := shapeOf("SH1", geo.Point{0.0005, 0}, geo.Point{0.0105, 0})

	_, err = m.MatchShape(sh, nil)
	var unmatchable *UnmatchableShapeError
	if !errors.As(err, &unmatchable) {
		t.Fatalf("err = %v, want UnmatchableShapeError", err)
	}
	if unmatchable.GapFraction < 0.99 {
		t.Errorf("gap fraction = %f, want ~1", unmatchable.GapFraction)
	}
}

func TestMatchShapeNothingNearby(t *testing.T) {
	g := lineGraph(t, 3)
	m, err := NewMatcher(g, testMatchConfig())
	if err != nil {
		t.Fatal(err)
	}
	sh := shapeOf("SH1", geo.Point{1, 1}, geo.Point{1.001, 1})

	_, err = m.MatchShape(sh, nil)
	var unmatchable *UnmatchableShapeError
	if !errors.As(err, &unmatchable) {
		t.Fatalf("err = %v, want UnmatchableShapeError", err)
	}
}

func TestMatchShapeStopProjections(t *testing.T) {
	g := lineGraph(t, 5)
	m, err := NewMatcher(g, testMatchConfig())
	if err != nil {
		t.Fatal(err)
	}
	sh := shapeOf("SH1", geo.Point{0.0005, 0}, geo.Point{0.0035, 0})
	stops := []*gtfs.Stop{
		{ID: "S1", Lon: 0.001, Lat: 0.00005},
		{ID: "S2", Lon: 0.003, Lat: -0.00005},
	}

	ms, err := m.MatchShape(sh, stops)
	if err != nil {
		t.Fatal(err)
	}
	if len(ms.Stops) != 2 {
		t.Fatalf("stop projections = %d, want 2", len(ms.Stops))
	}
	for _, sp := range ms.Stops {
		if sp.DistanceM > 10 {
			t.Errorf("stop %s projects %.1fm away, want < 10m", sp.StopID, sp.DistanceM)
		}
	}
	if ms.Stops[0].AlongM >= ms.Stops[1].AlongM {
		t.Errorf("stop order along geometry wrong: %+v", ms.Stops)
	}
}

func TestGaussianDecaySharperThanExponential(t *testing.T) {
	g := lineGraph(t, 5)

	exp, err := NewMatcher(g, testMatchConfig())
	if err != nil {
		t.Fatal(err)
	}
	cfgG := testMatchConfig()
	cfgG.TransitionDecay = "gaussian"
	gauss, err := NewMatcher(g, cfgG)
	if err != nil {
		t.Fatal(err)
	}

	// detour ratio 2 -> excess 1
	if e, w := exp.decay(1), -2.0; e != w {
		t.Errorf("exponential decay(1) = %f, want %f", e, w)
	}
	if e, w := gauss.decay(1), -2.0; e != w {
		t.Errorf("gaussian decay(1) = %f, want %f", e, w)
	}
	// beyond excess 1 the gaussian falls off faster
	if gauss.decay(3) >= exp.decay(3) {
		t.Errorf("gaussian should penalize large detours harder: %f vs %f",
			gauss.decay(3), exp.decay(3))
	}
	// no detour, no penalty
	if exp.decay(0) != 0 || gauss.decay(0) != 0 {
		t.Error("zero excess must carry zero penalty")
	}
}

type countingStats struct {
	mu      sync.Mutex
	matched int
	failed  int
	gaps    int
}

func (s *countingStats) ShapeMatched(gaps int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matched++
	s.gaps += gaps
}

func (s *countingStats) ShapeFailed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed++
}

func TestMatchAllIsolatesFailures(t *testing.T) {
	g := lineGraph(t, 5)
	m, err := NewMatcher(g, testMatchConfig())
	if err != nil {
		t.Fatal(err)
	}
	good := shapeOf("GOOD", geo.Point{0.0005, 0}, geo.Point{0.0035, 0})
	bad := needsTwoPoints("BAD")

	stats := &countingStats{}
	results := m.MatchAll(context.Background(), []Job{
		{Shape: good}, {Shape: bad}, {Shape: good},
	}, stats)

	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	if results[0].Err != nil || results[0].Matched == nil {
		t.Errorf("first result should succeed: %v", results[0].Err)
	}
	if results[1].Err == nil {
		t.Error("second result should fail")
	}
	if results[2].Err != nil {
		t.Errorf("third result should succeed: %v", results[2].Err)
	}
	if results[1].ShapeID != "BAD" {
		t.Errorf("results out of order: %+v", results)
	}
	if stats.matched != 2 || stats.failed != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

// needsTwoPoints builds a degenerate one-point shape.
func needsTwoPoints(id string) *gtfs.Shape {
	return &gtfs.Shape{ID: id, Points: []gtfs.ShapePoint{{Lon: 1, Lat: 1}}}
}

func TestMatchAllCancellation(t *testing.T) {
	g := lineGraph(t, 5)
	m, err := NewMatcher(g, testMatchConfig())
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sh := shapeOf("SH1", geo.Point{0.0005, 0}, geo.Point{0.0035, 0})
	jobs := make([]Job, 16)
	for i := range jobs {
		jobs[i] = Job{Shape: sh}
	}
	results := m.MatchAll(ctx, jobs, nil)

	cancelled := 0
	for _, r := range results {
		if errors.Is(r.Err, context.Canceled) {
			cancelled++
		}
	}
	if cancelled == 0 {
		t.Error("expected some slots to carry the cancellation error")
	}
}
