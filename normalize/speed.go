package normalize

import (
	"github.com/transitstat/transitgo/geo"
	"github.com/transitstat/transitgo/gtfs"
)

// minLegSeconds floors the travel time of a leg when computing its speed, so
// that back-to-back schedule times do not read as infinite speed.
const minLegSeconds = 60

// filterSpeeds drops stop times that imply a speed above the per-mode limit.
// The later stop of an offending pair is removed and the trip is rescanned,
// so a single runaway coordinate cannot take healthy neighbors with it.
func (n *Normalizer) filterSpeeds(feed *gtfs.Feed) {
	for _, id := range feed.TripIDs() {
		trip := feed.Trips[id]
		route := feed.Routes[trip.RouteID]
		if route == nil {
			continue
		}
		limit, ok := n.opts.MaxSpeedByMode[route.Mode()]
		if !ok || limit <= 0 {
			continue
		}
		n.filterTripSpeeds(feed, trip, limit)
	}
}

func (n *Normalizer) filterTripSpeeds(feed *gtfs.Feed, trip *gtfs.Trip, limitKmh float64) {
	for {
		bad := -1
		for i := 1; i < len(trip.StopTimes); i++ {
			prev := trip.StopTimes[i-1]
			cur := trip.StopTimes[i]
			from, okFrom := feed.Stops[prev.StopID]
			to, okTo := feed.Stops[cur.StopID]
			if !okFrom || !okTo {
				continue
			}
			if legSpeedKmh(from.Point(), to.Point(), prev.DepartureSec, cur.ArrivalSec) > limitKmh {
				bad = i
				break
			}
		}
		if bad < 0 {
			return
		}
		st := trip.StopTimes[bad]
		feed.Dropped.Add(gtfs.KindStopTimes, stopTimeID(trip.ID, st.Sequence), "implausible speed")
		trip.StopTimes = append(trip.StopTimes[:bad], trip.StopTimes[bad+1:]...)
	}
}

func legSpeedKmh(from, to geo.Point, depSec, arrSec int) float64 {
	dt := arrSec - depSec
	if dt < minLegSeconds {
		dt = minLegSeconds
	}
	distKm := geo.HaversineM(from, to) / 1000
	return distKm / (float64(dt) / 3600)
}
