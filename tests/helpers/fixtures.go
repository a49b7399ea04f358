// Package helpers builds the fixtures shared by the integration tests.
package helpers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/transitstat/transitgo/config"
	"github.com/transitstat/transitgo/geo"
	"github.com/transitstat/transitgo/graph"
)

// TestMatchConfig returns matching parameters tuned for the small fixture
// network.
func TestMatchConfig() config.MatchConfig {
	return config.MatchConfig{
		SearchRadiusM:       60,
		EmissionSigmaM:      10,
		TransitionDecay:     "exponential",
		TransitionDecayRate: 2,
		PathDistanceCutoffM: 2000,
		MaxGapFraction:      0.25,
		Workers:             2,
		CRS:                 4326,
	}
}

// WriteGTFSFixture writes a small but complete GTFS dataset into dir: one bus
// line with two trips sharing a pattern, a shape following the street chain,
// and a weekday calendar with one removed date. The shape and stops line up
// with BuildTestNetwork.
func WriteGTFSFixture(t *testing.T, dir string) {
	t.Helper()
	files := map[string]string{
		"stops.txt": "stop_id,stop_name,stop_lat,stop_lon\n" +
			"S1,West End,0.00005,0.0005\n" +
			"S2,Middle,0.00005,0.0020\n" +
			"S3,East End,0.00005,0.0035\n",
		"routes.txt": "route_id,route_short_name,route_long_name,route_type\n" +
			"R1,1,Crosstown,3\n",
		"trips.txt": "trip_id,route_id,service_id,shape_id,trip_headsign\n" +
			"T1,R1,WK,SH1,East End\n" +
			"T2,R1,WK,SH1,East End\n",
		"stop_times.txt": "trip_id,stop_id,stop_sequence,arrival_time,departure_time\n" +
			"T1,S1,1,08:00:00,08:00:00\n" +
			"T1,S2,2,,\n" +
			"T1,S3,3,08:10:00,08:10:00\n" +
			"T2,S1,1,09:00:00,09:00:00\n" +
			"T2,S2,2,09:05:00,09:05:00\n" +
			"T2,S3,3,09:10:00,09:10:00\n",
		"calendar.txt": "service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date\n" +
			"WK,1,1,1,1,1,0,0,20260105,20260111\n",
		"calendar_dates.txt": "service_id,date,exception_type\n" +
			"WK,20260107,2\n",
		"shapes.txt": "shape_id,shape_pt_lat,shape_pt_lon,shape_pt_sequence\n" +
			"SH1,0,0.0005,1\n" +
			"SH1,0,0.0015,2\n" +
			"SH1,0,0.0025,3\n" +
			"SH1,0,0.0035,4\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write fixture %s: %v", name, err)
		}
	}
}

// BuildTestNetwork returns a straight west-to-east street chain at the
// equator, one node every 0.001 degrees, with bidirectional edges.
func BuildTestNetwork(t *testing.T) *graph.Graph {
	t.Helper()
	b := graph.NewBuilder()
	ids := make([]graph.NodeID, 5)
	for i := range ids {
		ids[i] = b.AddNode(geo.Point{float64(i) * 0.001, 0})
	}
	for i := 0; i+1 < len(ids); i++ {
		if _, _, err := b.AddBidirectional(ids[i], ids[i+1], nil); err != nil {
			t.Fatal(err)
		}
	}
	return b.Build(100)
}
