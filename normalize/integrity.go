package normalize

import "github.com/transitstat/transitgo/gtfs"

// pruneIntegrity removes rows that break referential integrity and cascades
// until the feed is stable. Order inside the loop does not matter; the loop
// runs until a full pass removes nothing.
func (n *Normalizer) pruneIntegrity(feed *gtfs.Feed) error {
	n.dropBadCoordinates(feed)
	for {
		changed := false
		if pruneStopTimes(feed) {
			changed = true
		}
		if pruneTrips(feed) {
			changed = true
		}
		if pruneUnusedRoutes(feed) {
			changed = true
		}
		if pruneUnusedStops(feed) {
			changed = true
		}
		if !changed {
			break
		}
	}
	pruneUnusedShapes(feed)
	pruneUnusedCalendar(feed)
	if len(feed.Trips) == 0 {
		return ErrEmptyFeed
	}
	return nil
}

// dropBadCoordinates removes stops outside the WGS84 coordinate range and
// stops sitting exactly on the null island origin.
func (n *Normalizer) dropBadCoordinates(feed *gtfs.Feed) {
	for _, id := range feed.StopIDs() {
		s := feed.Stops[id]
		bad := s.Lat < -90 || s.Lat > 90 || s.Lon < -180 || s.Lon > 180
		if s.Lat == 0 && s.Lon == 0 {
			bad = true
		}
		if bad {
			feed.Dropped.Add(gtfs.KindStops, id, "invalid coordinates")
			delete(feed.Stops, id)
		}
	}
}

func pruneStopTimes(feed *gtfs.Feed) bool {
	changed := false
	for _, id := range feed.TripIDs() {
		trip := feed.Trips[id]
		kept := trip.StopTimes[:0]
		for _, st := range trip.StopTimes {
			if _, ok := feed.Stops[st.StopID]; !ok {
				feed.Dropped.Add(gtfs.KindStopTimes, stopTimeID(trip.ID, st.Sequence), "unknown stop")
				changed = true
				continue
			}
			kept = append(kept, st)
		}
		trip.StopTimes = kept
	}
	return changed
}

func pruneTrips(feed *gtfs.Feed) bool {
	changed := false
	for _, id := range feed.TripIDs() {
		trip := feed.Trips[id]
		reason := ""
		switch {
		case len(trip.StopTimes) < 2:
			reason = "fewer than two stops"
		case feed.Routes[trip.RouteID] == nil:
			reason = "unknown route"
		case trip.ServiceID != "" && !serviceKnown(feed, trip.ServiceID):
			reason = "unknown service"
		}
		if reason != "" {
			feed.Dropped.Add(gtfs.KindTrips, id, reason)
			delete(feed.Trips, id)
			changed = true
		}
	}
	return changed
}

func serviceKnown(feed *gtfs.Feed, serviceID string) bool {
	for _, c := range feed.Calendar {
		if c.ServiceID == serviceID {
			return true
		}
	}
	for _, cd := range feed.CalendarDates {
		if cd.ServiceID == serviceID {
			return true
		}
	}
	return false
}

func pruneUnusedRoutes(feed *gtfs.Feed) bool {
	used := map[string]bool{}
	for _, t := range feed.Trips {
		used[t.RouteID] = true
	}
	changed := false
	for _, id := range feed.RouteIDs() {
		if !used[id] {
			feed.Dropped.Add(gtfs.KindRoutes, id, "no remaining trips")
			delete(feed.Routes, id)
			changed = true
		}
	}
	return changed
}

// pruneUnusedStops removes stops no stop time references. Parent stations of
// referenced stops survive so station simplification can still merge into them.
func pruneUnusedStops(feed *gtfs.Feed) bool {
	used := map[string]bool{}
	for _, t := range feed.Trips {
		for _, st := range t.StopTimes {
			used[st.StopID] = true
		}
	}
	for id := range used {
		if s, ok := feed.Stops[id]; ok && s.ParentStation != "" {
			used[s.ParentStation] = true
		}
	}
	changed := false
	for _, id := range feed.StopIDs() {
		if !used[id] {
			feed.Dropped.Add(gtfs.KindStops, id, "unreferenced")
			delete(feed.Stops, id)
			changed = true
		}
	}
	return changed
}

func pruneUnusedShapes(feed *gtfs.Feed) {
	used := map[string]bool{}
	for _, t := range feed.Trips {
		if t.ShapeID != "" {
			used[t.ShapeID] = true
		}
	}
	for _, id := range feed.ShapeIDs() {
		sh := feed.Shapes[id]
		if !used[id] {
			feed.Dropped.Add(gtfs.KindShapes, id, "unreferenced")
			delete(feed.Shapes, id)
			continue
		}
		if len(sh.Points) < 2 {
			feed.Dropped.Add(gtfs.KindShapes, id, "fewer than two points")
			delete(feed.Shapes, id)
			for _, t := range feed.Trips {
				if t.ShapeID == id {
					t.ShapeID = ""
				}
			}
		}
	}
}

func pruneUnusedCalendar(feed *gtfs.Feed) {
	used := map[string]bool{}
	for _, t := range feed.Trips {
		used[t.ServiceID] = true
	}
	kept := feed.Calendar[:0]
	for _, c := range feed.Calendar {
		if !used[c.ServiceID] {
			feed.Dropped.Add(gtfs.KindCalendar, c.ServiceID, "unreferenced service")
			continue
		}
		kept = append(kept, c)
	}
	feed.Calendar = kept

	keptDates := feed.CalendarDates[:0]
	for _, cd := range feed.CalendarDates {
		if !used[cd.ServiceID] {
			feed.Dropped.Add(gtfs.KindCalendar, cd.ServiceID+":"+gtfs.FormatDate(cd.Date), "unreferenced service")
			continue
		}
		keptDates = append(keptDates, cd)
	}
	feed.CalendarDates = keptDates
}
