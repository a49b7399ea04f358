package normalize

import (
	"github.com/transitstat/transitgo/gtfs"
)

// orderTimes drops stop times that run backwards in time, so that every
// surviving trip carries a non-decreasing schedule. The later entry of an
// offending pair is removed and the trip rescanned, matching the speed
// filter, so one bad row cannot take healthy neighbors with it.
func (n *Normalizer) orderTimes(feed *gtfs.Feed) {
	for _, id := range feed.TripIDs() {
		orderTripTimes(feed, feed.Trips[id])
	}
}

func orderTripTimes(feed *gtfs.Feed, trip *gtfs.Trip) {
	for {
		bad := -1
		for i, cur := range trip.StopTimes {
			if cur.DepartureSec < cur.ArrivalSec {
				bad = i
				break
			}
			if i > 0 && cur.ArrivalSec < trip.StopTimes[i-1].DepartureSec {
				bad = i
				break
			}
		}
		if bad < 0 {
			return
		}
		st := trip.StopTimes[bad]
		feed.Dropped.Add(gtfs.KindStopTimes, stopTimeID(trip.ID, st.Sequence), "non-increasing time")
		trip.StopTimes = append(trip.StopTimes[:bad], trip.StopTimes[bad+1:]...)
	}
}
