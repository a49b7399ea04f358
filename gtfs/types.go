package gtfs

import (
	"time"

	"github.com/transitstat/transitgo/geo"
)

// Location types from stops.txt.
const (
	LocationStop         = 0
	LocationStation      = 1
	LocationEntrance     = 2
	LocationGenericNode  = 3
	LocationBoardingArea = 4
)

// Stop corresponds to a row in stops.txt.
type Stop struct {
	ID            string
	Code          string
	Name          string
	Lon           float64
	Lat           float64
	LocationType  int
	ParentStation string
}

// Point returns the stop position as lon,lat.
func (s *Stop) Point() geo.Point { return geo.Point{s.Lon, s.Lat} }

// Route corresponds to a row in routes.txt.
type Route struct {
	ID        string
	AgencyID  string
	ShortName string
	LongName  string
	Type      int
}

// Mode returns the transit mode name for the route's GTFS route_type.
func (r *Route) Mode() string { return ModeForRouteType(r.Type) }

// ModeForRouteType maps a GTFS route_type to a mode name used for per-mode
// configuration (speed limits). Unknown types map to "bus".
func ModeForRouteType(routeType int) string {
	switch routeType {
	case 0:
		return "tram"
	case 1:
		return "metro"
	case 2:
		return "rail"
	case 3:
		return "bus"
	case 4:
		return "ferry"
	case 5:
		return "cable"
	case 6:
		return "gondola"
	case 7:
		return "funicular"
	case 11:
		return "trolleybus"
	case 12:
		return "monorail"
	default:
		return "bus"
	}
}

// StopTime is one scheduled stop of a trip. Times are seconds after midnight
// and may exceed 24h for overnight services; TimeMissing marks absent values.
type StopTime struct {
	StopID       string
	Sequence     int
	ArrivalSec   int
	DepartureSec int
}

// TimeMissing is the sentinel for an absent arrival or departure time.
const TimeMissing = -1

// Trip corresponds to a row in trips.txt plus its ordered stop times.
type Trip struct {
	ID          string
	RouteID     string
	ServiceID   string
	ShapeID     string
	Headsign    string
	DirectionID int
	// GroupID identifies the trip's stop pattern: trips share a GroupID iff
	// their ordered stop-id sequences are identical. Assigned by normalize.
	GroupID   uint64
	StopTimes []StopTime
}

// StopIDs returns the trip's ordered stop ids.
func (t *Trip) StopIDs() []string {
	ids := make([]string, len(t.StopTimes))
	for i, st := range t.StopTimes {
		ids[i] = st.StopID
	}
	return ids
}

// ShapePoint is one vertex of a recorded route geometry.
type ShapePoint struct {
	Lon      float64
	Lat      float64
	Sequence int
}

// Shape is the recorded polyline of a route pattern.
type Shape struct {
	ID     string
	Points []ShapePoint
}

// Geometry returns the shape as a lon,lat polyline.
func (s *Shape) Geometry() []geo.Point {
	pts := make([]geo.Point, len(s.Points))
	for i, p := range s.Points {
		pts[i] = geo.Point{p.Lon, p.Lat}
	}
	return pts
}

// LengthM returns the shape's polyline length in meters.
func (s *Shape) LengthM() float64 { return geo.PolylineLengthM(s.Geometry()) }

// CalendarRow corresponds to a row in calendar.txt.
type CalendarRow struct {
	ServiceID string
	// Weekdays holds service availability indexed by time.Weekday.
	Weekdays  [7]bool
	StartDate time.Time
	EndDate   time.Time
}

// Calendar exception types from calendar_dates.txt.
const (
	ServiceAdded   = 1
	ServiceRemoved = 2
)

// CalendarDate corresponds to a row in calendar_dates.txt.
type CalendarDate struct {
	ServiceID     string
	Date          time.Time
	ExceptionType int
}
