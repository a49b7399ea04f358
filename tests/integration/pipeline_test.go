package integration

import (
	"context"
	"testing"

	"github.com/transitstat/transitgo/config"
	"github.com/transitstat/transitgo/gtfs"
	"github.com/transitstat/transitgo/gtfsout"
	"github.com/transitstat/transitgo/match"
	"github.com/transitstat/transitgo/normalize"
	"github.com/transitstat/transitgo/tests/helpers"
)

// TestPipelineEndToEnd drives the full flow: load a GTFS fixture, normalize
// it, match its pattern shape onto the street network and re-project stops.
func TestPipelineEndToEnd(t *testing.T) {
	dir := t.TempDir()
	helpers.WriteGTFSFixture(t, dir)

	feed, err := gtfs.Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	norm := normalize.New(config.NormalizeConfig{
		MaxSpeedByMode:     config.DefaultMaxSpeedByMode,
		CoordinateDecimals: 6,
	})
	if err := norm.Run(feed); err != nil {
		t.Fatalf("normalize: %v", err)
	}

	if len(feed.Trips) != 2 {
		t.Fatalf("trips = %d, want 2", len(feed.Trips))
	}
	// T1's middle stop had no time: it must be interpolated, not dropped
	t1 := feed.Trips["T1"]
	if len(t1.StopTimes) != 3 {
		t.Fatalf("T1 stop times = %d, want 3", len(t1.StopTimes))
	}
	if t1.StopTimes[1].ArrivalSec == gtfs.TimeMissing {
		t.Error("middle stop time not interpolated")
	}

	// weekday span Jan 5..11 minus the removed Wednesday
	dates := feed.ServiceDates["WK"]
	if len(dates) != 4 {
		t.Fatalf("service dates = %v, want 4", dates)
	}

	patterns := normalize.Patterns(feed)
	if len(patterns) != 1 {
		t.Fatalf("patterns = %d, want 1 (both trips share the stop sequence)", len(patterns))
	}

	g := helpers.BuildTestNetwork(t)
	matcher, err := match.NewMatcher(g, helpers.TestMatchConfig())
	if err != nil {
		t.Fatalf("matcher: %v", err)
	}

	var jobs []match.Job
	for _, p := range patterns {
		jobs = append(jobs, match.Job{
			Shape: feed.Shapes[p.ShapeID],
			Stops: feed.StopsForTrip(feed.Trips[p.TripID]),
		})
	}
	results := matcher.MatchAll(context.Background(), jobs, nil)
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}
	r := results[0]
	if r.Err != nil {
		t.Fatalf("match: %v", r.Err)
	}
	if len(r.Matched.Gaps) != 0 {
		t.Errorf("gaps = %+v, want none for an on-network shape", r.Matched.Gaps)
	}
	if len(r.Matched.Geometry) < 2 {
		t.Fatalf("geometry too short: %v", r.Matched.Geometry)
	}
	if len(r.Matched.Stops) != 3 {
		t.Fatalf("stop projections = %d, want 3", len(r.Matched.Stops))
	}
	for _, sp := range r.Matched.Stops {
		if sp.DistanceM > 15 {
			t.Errorf("stop %s projects %.1fm from the matched line", sp.StopID, sp.DistanceM)
		}
	}
	// stops must appear in travel order along the geometry
	for i := 1; i < len(r.Matched.Stops); i++ {
		if r.Matched.Stops[i].AlongM <= r.Matched.Stops[i-1].AlongM {
			t.Errorf("stops out of order along the shape: %+v", r.Matched.Stops)
		}
	}
}

// TestNormalizedFeedRoundTrips writes a normalized feed back to GTFS tables,
// reloads it and normalizes again: the second pass must drop nothing.
func TestNormalizedFeedRoundTrips(t *testing.T) {
	dir := t.TempDir()
	helpers.WriteGTFSFixture(t, dir)

	feed, err := gtfs.Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg := config.NormalizeConfig{
		MaxSpeedByMode:     config.DefaultMaxSpeedByMode,
		CoordinateDecimals: 6,
	}
	if err := normalize.New(cfg).Run(feed); err != nil {
		t.Fatalf("normalize: %v", err)
	}

	out := t.TempDir()
	if err := gtfsout.Write(feed, out); err != nil {
		t.Fatalf("write: %v", err)
	}

	again, err := gtfs.Load(out)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if err := normalize.New(cfg).Run(again); err != nil {
		t.Fatalf("renormalize: %v", err)
	}
	if again.Dropped.Total() != 0 {
		t.Errorf("round trip dropped %d rows: %v", again.Dropped.Total(), again.Dropped.Summary())
	}
	if len(again.Trips) != len(feed.Trips) {
		t.Errorf("trips = %d, want %d", len(again.Trips), len(feed.Trips))
	}
	if len(again.Stops) != len(feed.Stops) {
		t.Errorf("stops = %d, want %d", len(again.Stops), len(feed.Stops))
	}
	for id := range feed.ServiceDates {
		if len(again.ServiceDates[id]) != len(feed.ServiceDates[id]) {
			t.Errorf("service %s dates = %d, want %d",
				id, len(again.ServiceDates[id]), len(feed.ServiceDates[id]))
		}
	}
}
