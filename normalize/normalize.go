package normalize

import (
	"errors"

	"github.com/transitstat/transitgo/config"
	"github.com/transitstat/transitgo/geo"
	"github.com/transitstat/transitgo/gtfs"
)

// ErrEmptyFeed is returned when no trips survive integrity pruning.
var ErrEmptyFeed = errors.New("no trips survived normalization")

// Normalizer applies the normalization stages to a feed in place.
type Normalizer struct {
	opts config.NormalizeConfig
}

// New returns a Normalizer. Missing per-mode speeds fall back to the defaults.
func New(opts config.NormalizeConfig) *Normalizer {
	if opts.MaxSpeedByMode == nil {
		opts.MaxSpeedByMode = config.DefaultMaxSpeedByMode
	}
	return &Normalizer{opts: opts}
}

// Run executes all stages in order. The feed is mutated; rejections accumulate
// in feed.Dropped. The returned error is terminal (ErrEmptyFeed) or nil.
func (n *Normalizer) Run(feed *gtfs.Feed) error {
	n.roundCoordinates(feed)
	n.fillTimes(feed)
	if err := n.pruneIntegrity(feed); err != nil {
		return err
	}
	n.simplifyStations(feed)
	n.orderTimes(feed)
	n.filterSpeeds(feed)
	// speed filtering may have invalidated trips; re-establish consistency
	if err := n.pruneIntegrity(feed); err != nil {
		return err
	}
	n.expandCalendar(feed)
	n.assignGroups(feed)
	return nil
}

// roundCoordinates compresses stop and shape coordinates to the configured
// precision. 6 decimals is roughly one meter.
func (n *Normalizer) roundCoordinates(feed *gtfs.Feed) {
	d := n.opts.CoordinateDecimals
	if d <= 0 {
		return
	}
	for _, s := range feed.Stops {
		s.Lon = geo.RoundCoord(s.Lon, d)
		s.Lat = geo.RoundCoord(s.Lat, d)
	}
	for _, sh := range feed.Shapes {
		for i := range sh.Points {
			sh.Points[i].Lon = geo.RoundCoord(sh.Points[i].Lon, d)
			sh.Points[i].Lat = geo.RoundCoord(sh.Points[i].Lat, d)
		}
	}
}
