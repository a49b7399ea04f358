// Package gtfsout writes a normalized feed back out as GTFS text tables.
package gtfsout

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/transitstat/transitgo/gtfs"
)

// Write renders the feed into dir, one file per populated table. Calendar
// output uses the expanded per-date table, so the result round-trips through
// the loader as calendar_dates.txt only.
func Write(feed *gtfs.Feed, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := writeStops(feed, dir); err != nil {
		return err
	}
	if err := writeRoutes(feed, dir); err != nil {
		return err
	}
	if err := writeTrips(feed, dir); err != nil {
		return err
	}
	if err := writeStopTimes(feed, dir); err != nil {
		return err
	}
	if err := writeCalendarDates(feed, dir); err != nil {
		return err
	}
	if len(feed.Shapes) > 0 {
		if err := writeShapes(feed, dir); err != nil {
			return err
		}
	}
	return nil
}

func writeTable(dir, name string, header []string, rows [][]string) error {
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func writeStops(feed *gtfs.Feed, dir string) error {
	header := []string{"stop_id", "stop_code", "stop_name", "stop_lat", "stop_lon", "location_type", "parent_station"}
	var rows [][]string
	for _, id := range feed.StopIDs() {
		s := feed.Stops[id]
		rows = append(rows, []string{
			s.ID, s.Code, s.Name,
			strconv.FormatFloat(s.Lat, 'f', -1, 64),
			strconv.FormatFloat(s.Lon, 'f', -1, 64),
			strconv.Itoa(s.LocationType),
			s.ParentStation,
		})
	}
	return writeTable(dir, "stops.txt", header, rows)
}

func writeRoutes(feed *gtfs.Feed, dir string) error {
	header := []string{"route_id", "agency_id", "route_short_name", "route_long_name", "route_type"}
	var rows [][]string
	for _, id := range feed.RouteIDs() {
		r := feed.Routes[id]
		rows = append(rows, []string{r.ID, r.AgencyID, r.ShortName, r.LongName, strconv.Itoa(r.Type)})
	}
	return writeTable(dir, "routes.txt", header, rows)
}

func writeTrips(feed *gtfs.Feed, dir string) error {
	header := []string{"trip_id", "route_id", "service_id", "shape_id", "trip_headsign", "direction_id"}
	var rows [][]string
	for _, id := range feed.TripIDs() {
		t := feed.Trips[id]
		rows = append(rows, []string{t.ID, t.RouteID, t.ServiceID, t.ShapeID, t.Headsign, strconv.Itoa(t.DirectionID)})
	}
	return writeTable(dir, "trips.txt", header, rows)
}

func writeStopTimes(feed *gtfs.Feed, dir string) error {
	header := []string{"trip_id", "stop_id", "stop_sequence", "arrival_time", "departure_time"}
	var rows [][]string
	for _, id := range feed.TripIDs() {
		t := feed.Trips[id]
		for _, st := range t.StopTimes {
			rows = append(rows, []string{
				t.ID, st.StopID, strconv.Itoa(st.Sequence),
				gtfs.FormatDaySeconds(st.ArrivalSec),
				gtfs.FormatDaySeconds(st.DepartureSec),
			})
		}
	}
	return writeTable(dir, "stop_times.txt", header, rows)
}

func writeCalendarDates(feed *gtfs.Feed, dir string) error {
	header := []string{"service_id", "date", "exception_type"}
	var rows [][]string
	ids := make([]string, 0, len(feed.ServiceDates))
	for id := range feed.ServiceDates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		for _, d := range feed.ServiceDates[id] {
			rows = append(rows, []string{id, gtfs.FormatDate(d), strconv.Itoa(gtfs.ServiceAdded)})
		}
	}
	return writeTable(dir, "calendar_dates.txt", header, rows)
}

func writeShapes(feed *gtfs.Feed, dir string) error {
	header := []string{"shape_id", "shape_pt_lat", "shape_pt_lon", "shape_pt_sequence"}
	var rows [][]string
	for _, id := range feed.ShapeIDs() {
		sh := feed.Shapes[id]
		for _, p := range sh.Points {
			rows = append(rows, []string{
				sh.ID,
				strconv.FormatFloat(p.Lat, 'f', -1, 64),
				strconv.FormatFloat(p.Lon, 'f', -1, 64),
				strconv.Itoa(p.Sequence),
			})
		}
	}
	return writeTable(dir, "shapes.txt", header, rows)
}
