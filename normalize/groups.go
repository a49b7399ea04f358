package normalize

import (
	"fmt"
	"hash/fnv"
	"sort"

	"github.com/transitstat/transitgo/gtfs"
)

// assignGroups gives every trip a GroupID derived from its ordered stop-id
// sequence; trips serving the same stops in the same order share one. Trips
// without a recorded shape get a synthesized stop-to-stop shape per group.
func (n *Normalizer) assignGroups(feed *gtfs.Feed) {
	for _, id := range feed.TripIDs() {
		trip := feed.Trips[id]
		trip.GroupID = patternHash(trip.StopIDs())
		if trip.ShapeID == "" {
			n.synthesizeShape(feed, trip)
		}
	}
}

// patternHash is an FNV-1a over the stop ids with a zero-byte separator, so
// ["ab","c"] and ["a","bc"] hash differently.
func patternHash(stopIDs []string) uint64 {
	h := fnv.New64a()
	for _, id := range stopIDs {
		h.Write([]byte(id))
		h.Write([]byte{0})
	}
	return h.Sum64()
}

// synthesizeShape builds a straight stop-to-stop polyline for a trip whose
// feed carries no shape, shared by all trips of the same pattern.
func (n *Normalizer) synthesizeShape(feed *gtfs.Feed, trip *gtfs.Trip) {
	id := fmt.Sprintf("pattern-%016x", trip.GroupID)
	if _, ok := feed.Shapes[id]; ok {
		trip.ShapeID = id
		return
	}
	pts := make([]gtfs.ShapePoint, 0, len(trip.StopTimes))
	for i, st := range trip.StopTimes {
		stop, ok := feed.Stops[st.StopID]
		if !ok {
			continue
		}
		pts = append(pts, gtfs.ShapePoint{Lon: stop.Lon, Lat: stop.Lat, Sequence: i})
	}
	if len(pts) < 2 {
		return
	}
	feed.Shapes[id] = &gtfs.Shape{ID: id, Points: pts}
	trip.ShapeID = id
}

// Pattern is one distinct stop sequence of the feed with its shape and a
// representative trip.
type Pattern struct {
	GroupID uint64
	ShapeID string
	TripID  string
	RouteID string
	StopIDs []string
}

// Patterns lists the feed's distinct patterns in deterministic order. The
// representative trip is the one with the smallest id in the group.
func Patterns(feed *gtfs.Feed) []Pattern {
	byGroup := map[uint64]Pattern{}
	for _, id := range feed.TripIDs() {
		trip := feed.Trips[id]
		if _, ok := byGroup[trip.GroupID]; ok {
			continue
		}
		byGroup[trip.GroupID] = Pattern{
			GroupID: trip.GroupID,
			ShapeID: trip.ShapeID,
			TripID:  trip.ID,
			RouteID: trip.RouteID,
			StopIDs: trip.StopIDs(),
		}
	}
	out := make([]Pattern, 0, len(byGroup))
	for _, p := range byGroup {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TripID < out[j].TripID })
	return out
}
