package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"

	geojson "github.com/paulmach/go.geojson"

	"github.com/transitstat/transitgo/config"
	"github.com/transitstat/transitgo/graph"
	"github.com/transitstat/transitgo/gtfs"
	"github.com/transitstat/transitgo/gtfsout"
	"github.com/transitstat/transitgo/internal/logging"
	"github.com/transitstat/transitgo/match"
	"github.com/transitstat/transitgo/metrics"
	"github.com/transitstat/transitgo/normalize"
	"github.com/transitstat/transitgo/publisher"
	"github.com/transitstat/transitgo/store"
)

func main() {
	configPath := flag.String("config", "", "YAML configuration file (defaults apply when empty)")
	gtfsPath := flag.String("gtfs", "", "GTFS dataset: directory or zip (required)")
	nodesPath := flag.String("nodes", "", "network nodes CSV (enables map matching)")
	edgesPath := flag.String("edges", "", "network edges CSV (enables map matching)")
	outPath := flag.String("out", "", "write matched shapes as GeoJSON to this file")
	feedOut := flag.String("gtfsout", "", "write the normalized feed as GTFS tables to this directory")
	cellSize := flag.Float64("cellSize", 250, "spatial index cell size, meters")
	flag.Parse()

	logging.InitLogging()
	if *gtfsPath == "" {
		log.Fatal("missing -gtfs")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var coll *metrics.Collector
	if cfg.Sinks.MetricsAddr != "" {
		coll = metrics.NewCollector()
		srv := coll.Serve(cfg.Sinks.MetricsAddr)
		defer srv.Close()
	}

	feed, err := gtfs.Load(*gtfsPath)
	if err != nil {
		log.Fatalf("load gtfs: %v", err)
	}
	log.Printf("loaded %d stops, %d routes, %d trips, %d shapes",
		len(feed.Stops), len(feed.Routes), len(feed.Trips), len(feed.Shapes))

	norm := normalize.New(cfg.Normalize)
	if err := norm.Run(feed); err != nil {
		log.Fatalf("normalize: %v", err)
	}
	logDropSummary(feed.Dropped)
	log.Printf("normalized: %d trips, %d shapes remain", len(feed.Trips), len(feed.Shapes))

	if coll != nil {
		coll.TripsLoaded.Set(float64(len(feed.Trips)))
		coll.ShapesLoaded.Set(float64(len(feed.Shapes)))
		byKind := map[string]int{}
		for kind := range feed.Dropped {
			byKind[kind] = feed.Dropped.Count(kind)
		}
		coll.RecordDropped(byKind)
	}

	if *feedOut != "" {
		if err := gtfsout.Write(feed, *feedOut); err != nil {
			log.Fatalf("write gtfs: %v", err)
		}
		log.Printf("normalized feed written to %s", *feedOut)
	}

	var st *store.Store
	if cfg.Sinks.PostgresDSN != "" {
		st, err = store.Open(cfg.Sinks.PostgresDSN)
		if err != nil {
			log.Fatalf("postgres: %v", err)
		}
		defer st.Close()
		if err := st.Ping(ctx); err != nil {
			log.Fatalf("postgres ping: %v", err)
		}
		if err := st.EnsureSchema(ctx); err != nil {
			log.Fatalf("postgres schema: %v", err)
		}
		if err := st.SaveFeed(ctx, feed); err != nil {
			log.Fatalf("postgres save: %v", err)
		}
		log.Printf("normalized feed stored")
	}

	if *nodesPath == "" || *edgesPath == "" {
		return
	}

	g, err := graph.LoadCSV(*nodesPath, *edgesPath, *cellSize)
	if err != nil {
		log.Fatalf("load graph: %v", err)
	}
	log.Printf("graph: %d nodes, %d edges", g.NumNodes(), g.NumEdges())

	matcher, err := match.NewMatcher(g, cfg.Match)
	if err != nil {
		log.Fatalf("matcher: %v", err)
	}

	patterns := normalize.Patterns(feed)
	jobs := make([]match.Job, 0, len(patterns))
	routeByShape := map[string]string{}
	for _, p := range patterns {
		shape, ok := feed.Shapes[p.ShapeID]
		if !ok {
			continue
		}
		jobs = append(jobs, match.Job{
			Shape: shape,
			Stops: feed.StopsForTrip(feed.Trips[p.TripID]),
		})
		routeByShape[p.ShapeID] = p.RouteID
	}

	var stats match.Stats
	if coll != nil {
		stats = coll
	}
	results := matcher.MatchAll(ctx, jobs, stats)

	matched, failed := 0, 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			log.Printf("shape %s: %v", r.ShapeID, r.Err)
			continue
		}
		matched++
	}
	log.Printf("matched %d/%d shapes (%d failed)", matched, len(results), failed)

	if *outPath != "" {
		if err := writeGeoJSON(*outPath, results, routeByShape); err != nil {
			log.Fatalf("write geojson: %v", err)
		}
		log.Printf("matched shapes written to %s", *outPath)
	}

	if cfg.Sinks.NATSURL != "" {
		var pm publisher.Metrics
		if coll != nil {
			pm = coll
		}
		pub, err := publisher.NewNATSPublisher(cfg.Sinks.NATSURL, pm)
		if err != nil {
			log.Fatalf("nats: %v", err)
		}
		defer pub.Close()
		for _, r := range results {
			if r.Err != nil {
				continue
			}
			if err := pub.PublishShape(routeByShape[r.ShapeID], r.Matched); err != nil {
				log.Printf("publish shape %s: %v", r.ShapeID, err)
			}
		}
	}

	if st != nil {
		if err := st.SaveMatches(ctx, results); err != nil {
			log.Fatalf("postgres save matches: %v", err)
		}
	}
}

func logDropSummary(d gtfs.Dropped) {
	summary := d.Summary()
	keys := make([]string, 0, len(summary))
	for k := range summary {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		log.Printf("dropped %d %s", summary[k], k)
	}
}

func writeGeoJSON(path string, results []match.BatchResult, routeByShape map[string]string) error {
	fc := geojson.NewFeatureCollection()
	for _, r := range results {
		if r.Err != nil || r.Matched == nil {
			continue
		}
		coords := make([][]float64, len(r.Matched.Geometry))
		for i, p := range r.Matched.Geometry {
			coords[i] = []float64{p[0], p[1]}
		}
		f := geojson.NewLineStringFeature(coords)
		f.SetProperty("shapeId", r.ShapeID)
		f.SetProperty("routeId", routeByShape[r.ShapeID])
		f.SetProperty("crs", r.Matched.CRS)
		f.SetProperty("lengthM", r.Matched.LengthM)
		f.SetProperty("gapFraction", r.Matched.GapFraction)
		f.SetProperty("gaps", len(r.Matched.Gaps))
		fc.AddFeature(f)
	}
	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
