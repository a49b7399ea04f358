package gtfs

import (
	"sort"
	"time"
)

// Entity kinds used as keys of the Dropped report.
const (
	KindStops     = "stops"
	KindRoutes    = "routes"
	KindTrips     = "trips"
	KindStopTimes = "stop_times"
	KindCalendar  = "calendar"
	KindShapes    = "shapes"
)

// DropRecord is one rejected row: its id and the stage that rejected it.
type DropRecord struct {
	ID     string
	Reason string
}

// Dropped accumulates rejected ids per entity kind. Stages merge into it
// explicitly; it is not a shared mutable log.
type Dropped map[string][]DropRecord

// Add records one rejection.
func (d Dropped) Add(kind, id, reason string) {
	d[kind] = append(d[kind], DropRecord{ID: id, Reason: reason})
}

// Count returns the number of rejections for a kind.
func (d Dropped) Count(kind string) int { return len(d[kind]) }

// Total returns the number of rejections across all kinds.
func (d Dropped) Total() int {
	n := 0
	for _, recs := range d {
		n += len(recs)
	}
	return n
}

// Merge appends all records of other into d.
func (d Dropped) Merge(other Dropped) {
	for kind, recs := range other {
		d[kind] = append(d[kind], recs...)
	}
}

// Summary returns rejection counts keyed by "kind/reason".
func (d Dropped) Summary() map[string]int {
	out := map[string]int{}
	for kind, recs := range d {
		for _, r := range recs {
			out[kind+"/"+r.Reason]++
		}
	}
	return out
}

// Feed owns the tabular GTFS entities of one dataset. The normalize package
// establishes its invariants: every StopTime references an existing Trip and
// Stop, every Trip references an existing Route and carries a non-empty,
// time-ordered stop sequence.
type Feed struct {
	Stops  map[string]*Stop
	Routes map[string]*Route
	Trips  map[string]*Trip
	Shapes map[string]*Shape

	Calendar      []CalendarRow
	CalendarDates []CalendarDate
	// ServiceDates is the expanded per-date service table, filled by normalize.
	ServiceDates map[string][]time.Time

	Dropped Dropped
}

// NewFeed returns an empty feed with initialized containers.
func NewFeed() *Feed {
	return &Feed{
		Stops:        map[string]*Stop{},
		Routes:       map[string]*Route{},
		Trips:        map[string]*Trip{},
		Shapes:       map[string]*Shape{},
		ServiceDates: map[string][]time.Time{},
		Dropped:      Dropped{},
	}
}

// TripIDs returns all trip ids in sorted order, for deterministic iteration.
func (f *Feed) TripIDs() []string {
	ids := make([]string, 0, len(f.Trips))
	for id := range f.Trips {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// StopIDs returns all stop ids in sorted order.
func (f *Feed) StopIDs() []string {
	ids := make([]string, 0, len(f.Stops))
	for id := range f.Stops {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ShapeIDs returns all shape ids in sorted order.
func (f *Feed) ShapeIDs() []string {
	ids := make([]string, 0, len(f.Shapes))
	for id := range f.Shapes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// RouteIDs returns all route ids in sorted order.
func (f *Feed) RouteIDs() []string {
	ids := make([]string, 0, len(f.Routes))
	for id := range f.Routes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// StopsForTrip resolves the trip's stops in stop-time order. Unknown stop ids
// yield nil entries; normalized feeds never produce those.
func (f *Feed) StopsForTrip(t *Trip) []*Stop {
	stops := make([]*Stop, len(t.StopTimes))
	for i, st := range t.StopTimes {
		stops[i] = f.Stops[st.StopID]
	}
	return stops
}
