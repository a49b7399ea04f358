package normalize

import (
	"strconv"

	"github.com/transitstat/transitgo/gtfs"
)

// fillTimes fills missing arrival/departure times. Where only one of the pair
// is known it is copied to the other; interior runs of fully missing times are
// linearly interpolated between the bounding known times on the same trip;
// a missing first or last time is extrapolated one minute from its neighbor.
// Trips with no known time at all are dropped.
func (n *Normalizer) fillTimes(feed *gtfs.Feed) {
	for _, id := range feed.TripIDs() {
		trip := feed.Trips[id]
		if !fillTripTimes(trip) {
			for _, st := range trip.StopTimes {
				feed.Dropped.Add(gtfs.KindStopTimes, stopTimeID(trip.ID, st.Sequence), "trip without resolvable times")
			}
			feed.Dropped.Add(gtfs.KindTrips, trip.ID, "no resolvable times")
			delete(feed.Trips, id)
		}
	}
}

// fillTripTimes returns false when the trip has no known time to anchor on.
func fillTripTimes(trip *gtfs.Trip) bool {
	sts := trip.StopTimes
	if len(sts) == 0 {
		return false
	}

	// one side known: mirror it
	anyKnown := false
	for i := range sts {
		if sts[i].ArrivalSec == gtfs.TimeMissing && sts[i].DepartureSec != gtfs.TimeMissing {
			sts[i].ArrivalSec = sts[i].DepartureSec
		}
		if sts[i].DepartureSec == gtfs.TimeMissing && sts[i].ArrivalSec != gtfs.TimeMissing {
			sts[i].DepartureSec = sts[i].ArrivalSec
		}
		if sts[i].ArrivalSec != gtfs.TimeMissing {
			anyKnown = true
		}
	}
	if !anyKnown {
		return false
	}

	// extrapolate missing ends one minute out
	if sts[0].ArrivalSec == gtfs.TimeMissing {
		next := firstKnown(sts, 1)
		v := sts[next].ArrivalSec - 60*next
		if v < 0 {
			v = 0
		}
		sts[0].ArrivalSec = v
		sts[0].DepartureSec = v
	}
	last := len(sts) - 1
	if sts[last].ArrivalSec == gtfs.TimeMissing {
		prev := lastKnown(sts, last-1)
		v := sts[prev].DepartureSec + 60*(last-prev)
		sts[last].ArrivalSec = v
		sts[last].DepartureSec = v
	}

	// interpolate interior runs between bounding known times
	i := 1
	for i < last {
		if sts[i].ArrivalSec != gtfs.TimeMissing {
			i++
			continue
		}
		lo := i - 1
		hi := i
		for hi < last && sts[hi].ArrivalSec == gtfs.TimeMissing {
			hi++
		}
		span := hi - lo
		from := sts[lo].DepartureSec
		to := sts[hi].ArrivalSec
		for k := lo + 1; k < hi; k++ {
			v := from + (to-from)*(k-lo)/span
			sts[k].ArrivalSec = v
			sts[k].DepartureSec = v
		}
		i = hi
	}
	return true
}

func firstKnown(sts []gtfs.StopTime, from int) int {
	for i := from; i < len(sts); i++ {
		if sts[i].ArrivalSec != gtfs.TimeMissing {
			return i
		}
	}
	return len(sts) - 1
}

func lastKnown(sts []gtfs.StopTime, from int) int {
	for i := from; i >= 0; i-- {
		if sts[i].DepartureSec != gtfs.TimeMissing {
			return i
		}
	}
	return 0
}

func stopTimeID(tripID string, seq int) string {
	return tripID + ":" + strconv.Itoa(seq)
}
