package match

import (
	"fmt"

	"github.com/transitstat/transitgo/config"
	"github.com/transitstat/transitgo/geo"
	"github.com/transitstat/transitgo/gtfs"
)

// MatchGap marks a stretch of the shape the network path does not cover.
// FromIndex is the last matched shape point before the gap (-1 when the gap
// opens the shape); ToIndex is the first matched point after it (the point
// count when the gap closes the shape).
type MatchGap struct {
	FromIndex int
	ToIndex   int
	LengthM   float64
}

// StopProjection is a pattern stop snapped onto the matched geometry.
type StopProjection struct {
	StopID    string
	Point     geo.Point
	DistanceM float64
	AlongM    float64
}

// MatchedShape is the result of matching one shape.
type MatchedShape struct {
	ShapeID string
	// CRS is the EPSG code of the geometry coordinates.
	CRS int
	// Geometry is the assembled network polyline; sub-paths on either side of
	// a gap are concatenated, the gap itself contributes nothing.
	Geometry []geo.Point
	LengthM  float64
	// Path holds the winning candidate of every matched shape point, in shape
	// order.
	Path        []Candidate
	Gaps        []MatchGap
	GapFraction float64
	// Score is the cumulative Viterbi log score over all sub-paths.
	Score float64
	Stops []StopProjection
}

type decayFunc func(excess float64) float64

// Matcher decodes shapes onto a network. Safe for concurrent use as long as
// the provider is; every MatchShape run keeps its own state.
type Matcher struct {
	g     GraphProvider
	cfg   config.MatchConfig
	decay decayFunc
}

// NewMatcher validates the decay selection and returns a Matcher.
func NewMatcher(g GraphProvider, cfg config.MatchConfig) (*Matcher, error) {
	m := &Matcher{g: g, cfg: cfg}
	rate := cfg.TransitionDecayRate
	switch cfg.TransitionDecay {
	case "", "exponential":
		m.decay = func(excess float64) float64 { return -rate * excess }
	case "gaussian":
		m.decay = func(excess float64) float64 {
			z := rate * excess
			return -0.5 * z * z
		}
	default:
		return nil, fmt.Errorf("unknown transition decay %q", cfg.TransitionDecay)
	}
	if cfg.CRS <= 0 {
		m.cfg.CRS = 4326
	}
	return m, nil
}

// MatchShape decodes one shape and re-projects the given pattern stops onto
// the result. The error is an *UnmatchableShapeError when gaps cover more
// than the configured fraction of the shape.
func (m *Matcher) MatchShape(shape *gtfs.Shape, stops []*gtfs.Stop) (*MatchedShape, error) {
	pts := shape.Geometry()
	if len(pts) < 2 {
		return nil, fmt.Errorf("shape %s: needs at least two points", shape.ID)
	}

	cands := GenerateCandidates(pts, m.g, m.cfg.SearchRadiusM)
	cache := newSPCache(m.g, m.cfg.PathDistanceCutoffM)
	subPaths, gaps, score := m.decode(pts, cands, cache)

	shapeLen := geo.PolylineLengthM(pts)
	gapLen := 0.0
	for _, g := range gaps {
		gapLen += g.LengthM
	}
	gapFrac := 1.0
	if shapeLen > 0 {
		gapFrac = gapLen / shapeLen
	}
	if len(subPaths) == 0 || gapFrac > m.cfg.MaxGapFraction {
		return nil, &UnmatchableShapeError{
			ShapeID:     shape.ID,
			GapFraction: gapFrac,
			MaxFraction: m.cfg.MaxGapFraction,
		}
	}

	geom := m.assemble(subPaths, cache)
	out := &MatchedShape{
		ShapeID:     shape.ID,
		CRS:         m.cfg.CRS,
		Geometry:    geom,
		LengthM:     geo.PolylineLengthM(geom),
		Gaps:        gaps,
		GapFraction: gapFrac,
		Score:       score,
	}
	for _, sp := range subPaths {
		out.Path = append(out.Path, sp...)
	}
	for _, stop := range stops {
		if stop == nil {
			continue
		}
		proj, ok := geo.ProjectOntoPolyline(geom, stop.Point())
		if !ok {
			continue
		}
		out.Stops = append(out.Stops, StopProjection{
			StopID:    stop.ID,
			Point:     proj.Point,
			DistanceM: proj.DistM,
			AlongM:    proj.AlongM,
		})
	}
	return out, nil
}
