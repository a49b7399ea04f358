// Package metrics exposes pipeline counters over a Prometheus registry.
package metrics

import (
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns the pipeline's metrics. It implements match.Stats and
// publisher.Metrics, so the batch pool and the NATS sink report through it.
type Collector struct {
	reg *prometheus.Registry

	TripsLoaded  prometheus.Gauge
	ShapesLoaded prometheus.Gauge

	RowsDropped *prometheus.CounterVec // kind label: stops|routes|trips|stop_times|calendar|shapes

	ShapesMatched prometheus.Counter
	ShapesFailed  prometheus.Counter
	MatchGaps     prometheus.Counter

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		TripsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "transitgo_trips_loaded",
			Help: "Trips surviving normalization.",
		}),
		ShapesLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "transitgo_shapes_loaded",
			Help: "Shapes surviving normalization.",
		}),
		RowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transitgo_rows_dropped_total",
			Help: "Rows rejected by normalization, by entity kind.",
		}, []string{"kind"}),
		ShapesMatched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "transitgo_shapes_matched_total",
			Help: "Shapes successfully map matched.",
		}),
		ShapesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "transitgo_shapes_failed_total",
			Help: "Shapes that could not be matched.",
		}),
		MatchGaps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "transitgo_match_gaps_total",
			Help: "Gaps recorded across all matched shapes.",
		}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "transitgo_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "transitgo_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "transitgo_nats_connected",
			Help: "1 if the NATS connection is established, 0 otherwise.",
		}),
	}

	reg.MustRegister(
		c.TripsLoaded, c.ShapesLoaded, c.RowsDropped,
		c.ShapesMatched, c.ShapesFailed, c.MatchGaps,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected,
	)
	return c
}

// ShapeMatched implements match.Stats.
func (c *Collector) ShapeMatched(gaps int) {
	c.ShapesMatched.Inc()
	c.MatchGaps.Add(float64(gaps))
}

// ShapeFailed implements match.Stats.
func (c *Collector) ShapeFailed() { c.ShapesFailed.Inc() }

// RecordDropped feeds a normalization drop summary into the counters.
func (c *Collector) RecordDropped(byKind map[string]int) {
	for kind, n := range byKind {
		c.RowsDropped.WithLabelValues(kind).Add(float64(n))
	}
}

// NATSPublishedInc implements publisher.Metrics.
func (c *Collector) NATSPublishedInc() { c.NATSPublished.Inc() }

// NATSPublishErrInc implements publisher.Metrics.
func (c *Collector) NATSPublishErrInc() { c.NATSPublishErrs.Inc() }

// NATSSetConnected implements publisher.Metrics.
func (c *Collector) NATSSetConnected(connected bool) {
	if connected {
		c.NATSConnected.Set(1)
	} else {
		c.NATSConnected.Set(0)
	}
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()
	log.Printf("metrics listening on %s", addr)
	return srv
}
