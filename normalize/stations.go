package normalize

import "github.com/transitstat/transitgo/gtfs"

// simplifyStations folds child stops into their parent stations and removes
// non-boarding locations. Stop times pointing at a merged child are rewritten
// to the parent; a merge that leaves two consecutive stop times on the same
// station collapses them into one, keeping the earliest arrival and the
// latest departure.
func (n *Normalizer) simplifyStations(feed *gtfs.Feed) {
	for _, id := range feed.StopIDs() {
		s := feed.Stops[id]
		if s.LocationType >= gtfs.LocationEntrance {
			feed.Dropped.Add(gtfs.KindStops, id, "non-boarding location")
			delete(feed.Stops, id)
		}
	}

	// child -> parent, only where the parent actually exists
	merged := map[string]string{}
	for _, id := range feed.StopIDs() {
		s := feed.Stops[id]
		if s.ParentStation == "" {
			continue
		}
		parent, ok := feed.Stops[s.ParentStation]
		if !ok || parent.LocationType != gtfs.LocationStation {
			s.ParentStation = ""
			continue
		}
		merged[id] = parent.ID
		feed.Dropped.Add(gtfs.KindStops, id, "merged into parent station")
		delete(feed.Stops, id)
	}
	if len(merged) == 0 {
		return
	}

	for _, tid := range feed.TripIDs() {
		trip := feed.Trips[tid]
		for i := range trip.StopTimes {
			if parent, ok := merged[trip.StopTimes[i].StopID]; ok {
				trip.StopTimes[i].StopID = parent
			}
		}
		collapseRepeats(feed, trip)
	}
}

func collapseRepeats(feed *gtfs.Feed, trip *gtfs.Trip) {
	kept := trip.StopTimes[:0]
	for _, st := range trip.StopTimes {
		if len(kept) > 0 && kept[len(kept)-1].StopID == st.StopID {
			if st.DepartureSec > kept[len(kept)-1].DepartureSec {
				kept[len(kept)-1].DepartureSec = st.DepartureSec
			}
			feed.Dropped.Add(gtfs.KindStopTimes, stopTimeID(trip.ID, st.Sequence), "repeated station after merge")
			continue
		}
		kept = append(kept, st)
	}
	trip.StopTimes = kept
}
