package gtfs

import (
	"archive/zip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ErrNotGTFS is returned when a path is missing required GTFS tables.
var ErrNotGTFS = errors.New("path does not contain the required GTFS tables")

var requiredTables = []string{"stops.txt", "routes.txt", "trips.txt", "stop_times.txt"}

// tableSource abstracts a GTFS dataset directory or zip archive.
type tableSource interface {
	open(name string) (io.ReadCloser, bool, error)
	close() error
}

type dirSource struct{ root string }

func (d dirSource) open(name string) (io.ReadCloser, bool, error) {
	f, err := os.Open(filepath.Join(d.root, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return f, true, nil
}

func (d dirSource) close() error { return nil }

type zipSource struct{ r *zip.ReadCloser }

func (z zipSource) open(name string) (io.ReadCloser, bool, error) {
	for _, f := range z.r.File {
		if strings.EqualFold(filepath.Base(f.Name), name) {
			rc, err := f.Open()
			if err != nil {
				return nil, false, err
			}
			return rc, true, nil
		}
	}
	return nil, false, nil
}

func (z zipSource) close() error { return z.r.Close() }

// Load reads a GTFS dataset from a directory of text tables or a zip archive.
// Rows are parsed into typed entities; no cleaning happens here.
func Load(path string) (*Feed, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	var src tableSource
	if info.IsDir() {
		src = dirSource{root: path}
	} else {
		zr, err := zip.OpenReader(path)
		if err != nil {
			return nil, fmt.Errorf("open gtfs zip: %w", err)
		}
		src = zipSource{r: zr}
	}
	defer src.close()

	feed := NewFeed()
	ls := &loadState{}
	for _, name := range requiredTables {
		rec, ok, err := readTable(src, name)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: missing %s", ErrNotGTFS, name)
		}
		if err := ls.consumeTable(feed, name, rec); err != nil {
			return nil, err
		}
	}

	haveCalendar := false
	for _, name := range []string{"calendar.txt", "calendar_dates.txt", "shapes.txt"} {
		rec, ok, err := readTable(src, name)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if name != "shapes.txt" {
			haveCalendar = true
		}
		if err := ls.consumeTable(feed, name, rec); err != nil {
			return nil, err
		}
	}
	if !haveCalendar {
		return nil, fmt.Errorf("%w: neither calendar.txt nor calendar_dates.txt present", ErrNotGTFS)
	}

	ls.finishLoad(feed)
	return feed, nil
}

func readTable(src tableSource, name string) ([][]string, bool, error) {
	r, ok, err := src.open(name)
	if err != nil || !ok {
		return nil, ok, err
	}
	defer r.Close()
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1
	rec, err := csvr.ReadAll()
	if err != nil {
		return nil, true, fmt.Errorf("read %s: %w", name, err)
	}
	return rec, true, nil
}

// loadState buffers stop-time and shape rows until finishLoad sorts and
// attaches them; one instance per Load call.
type loadState struct {
	stopTimes []stopTimeRow
	shapePts  []shapeRow
}

type stopTimeRow struct {
	tripID string
	st     StopTime
}

type shapeRow struct {
	shapeID string
	pt      ShapePoint
}

func (ls *loadState) consumeTable(feed *Feed, name string, rec [][]string) error {
	if len(rec) == 0 {
		return nil
	}
	head := rec[0]
	idx := func(col string) int {
		for i, h := range head {
			if strings.EqualFold(strings.TrimSpace(h), col) {
				return i
			}
		}
		return -1
	}
	field := func(row []string, i int) string {
		if i < 0 || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	switch name {
	case "stops.txt":
		sID := idx("stop_id")
		sCode := idx("stop_code")
		sName := idx("stop_name")
		sLat := idx("stop_lat")
		sLon := idx("stop_lon")
		sLoc := idx("location_type")
		sParent := idx("parent_station")
		if sID < 0 {
			return fmt.Errorf("stops.txt: missing stop_id column")
		}
		for _, row := range rec[1:] {
			id := field(row, sID)
			if id == "" {
				continue
			}
			lat, _ := strconv.ParseFloat(field(row, sLat), 64)
			lon, _ := strconv.ParseFloat(field(row, sLon), 64)
			loc, _ := strconv.Atoi(field(row, sLoc))
			feed.Stops[id] = &Stop{
				ID:            id,
				Code:          field(row, sCode),
				Name:          field(row, sName),
				Lon:           lon,
				Lat:           lat,
				LocationType:  loc,
				ParentStation: field(row, sParent),
			}
		}
	case "routes.txt":
		rID := idx("route_id")
		rAg := idx("agency_id")
		rSN := idx("route_short_name")
		rLN := idx("route_long_name")
		rType := idx("route_type")
		if rID < 0 {
			return fmt.Errorf("routes.txt: missing route_id column")
		}
		for _, row := range rec[1:] {
			id := field(row, rID)
			if id == "" {
				continue
			}
			typ, _ := strconv.Atoi(field(row, rType))
			feed.Routes[id] = &Route{
				ID:        id,
				AgencyID:  field(row, rAg),
				ShortName: field(row, rSN),
				LongName:  field(row, rLN),
				Type:      typ,
			}
		}
	case "trips.txt":
		tID := idx("trip_id")
		rID := idx("route_id")
		svc := idx("service_id")
		sh := idx("shape_id")
		hs := idx("trip_headsign")
		dir := idx("direction_id")
		if tID < 0 || rID < 0 {
			return fmt.Errorf("trips.txt: missing trip_id or route_id column")
		}
		for _, row := range rec[1:] {
			id := field(row, tID)
			if id == "" {
				continue
			}
			d, _ := strconv.Atoi(field(row, dir))
			feed.Trips[id] = &Trip{
				ID:          id,
				RouteID:     field(row, rID),
				ServiceID:   field(row, svc),
				ShapeID:     field(row, sh),
				Headsign:    field(row, hs),
				DirectionID: d,
			}
		}
	case "stop_times.txt":
		tID := idx("trip_id")
		sID := idx("stop_id")
		sq := idx("stop_sequence")
		arr := idx("arrival_time")
		dep := idx("departure_time")
		if tID < 0 || sID < 0 || sq < 0 {
			return fmt.Errorf("stop_times.txt: missing trip_id, stop_id or stop_sequence column")
		}
		for _, row := range rec[1:] {
			seq, _ := strconv.Atoi(field(row, sq))
			ls.stopTimes = append(ls.stopTimes, stopTimeRow{
				tripID: field(row, tID),
				st: StopTime{
					StopID:       field(row, sID),
					Sequence:     seq,
					ArrivalSec:   ParseDaySeconds(field(row, arr)),
					DepartureSec: ParseDaySeconds(field(row, dep)),
				},
			})
		}
	case "shapes.txt":
		sh := idx("shape_id")
		latIdx := idx("shape_pt_lat")
		lonIdx := idx("shape_pt_lon")
		seqIdx := idx("shape_pt_sequence")
		if sh < 0 || latIdx < 0 || lonIdx < 0 || seqIdx < 0 {
			return nil
		}
		for _, row := range rec[1:] {
			lat, _ := strconv.ParseFloat(field(row, latIdx), 64)
			lon, _ := strconv.ParseFloat(field(row, lonIdx), 64)
			seq, _ := strconv.Atoi(field(row, seqIdx))
			ls.shapePts = append(ls.shapePts, shapeRow{
				shapeID: field(row, sh),
				pt:      ShapePoint{Lon: lon, Lat: lat, Sequence: seq},
			})
		}
	case "calendar.txt":
		svc := idx("service_id")
		start := idx("start_date")
		end := idx("end_date")
		days := [7]int{idx("sunday"), idx("monday"), idx("tuesday"), idx("wednesday"), idx("thursday"), idx("friday"), idx("saturday")}
		if svc < 0 || start < 0 || end < 0 {
			return fmt.Errorf("calendar.txt: missing service_id, start_date or end_date column")
		}
		for _, row := range rec[1:] {
			cal := CalendarRow{ServiceID: field(row, svc)}
			var err error
			cal.StartDate, err = ParseDate(field(row, start))
			if err != nil {
				continue
			}
			cal.EndDate, err = ParseDate(field(row, end))
			if err != nil {
				continue
			}
			for wd, col := range days {
				cal.Weekdays[wd] = field(row, col) == "1"
			}
			feed.Calendar = append(feed.Calendar, cal)
		}
	case "calendar_dates.txt":
		svc := idx("service_id")
		date := idx("date")
		exc := idx("exception_type")
		if svc < 0 || date < 0 {
			return fmt.Errorf("calendar_dates.txt: missing service_id or date column")
		}
		for _, row := range rec[1:] {
			d, err := ParseDate(field(row, date))
			if err != nil {
				continue
			}
			e, _ := strconv.Atoi(field(row, exc))
			if e == 0 {
				e = ServiceAdded
			}
			feed.CalendarDates = append(feed.CalendarDates, CalendarDate{
				ServiceID:     field(row, svc),
				Date:          d,
				ExceptionType: e,
			})
		}
	}
	return nil
}

// finishLoad attaches buffered stop times and shape points in sequence order.
func (ls *loadState) finishLoad(feed *Feed) {
	sts := ls.stopTimes
	sort.SliceStable(sts, func(i, j int) bool {
		if sts[i].tripID != sts[j].tripID {
			return sts[i].tripID < sts[j].tripID
		}
		return sts[i].st.Sequence < sts[j].st.Sequence
	})
	for _, row := range sts {
		if t, ok := feed.Trips[row.tripID]; ok {
			t.StopTimes = append(t.StopTimes, row.st)
		}
	}

	pts := ls.shapePts
	sort.SliceStable(pts, func(i, j int) bool {
		if pts[i].shapeID != pts[j].shapeID {
			return pts[i].shapeID < pts[j].shapeID
		}
		return pts[i].pt.Sequence < pts[j].pt.Sequence
	})
	for _, row := range pts {
		s, ok := feed.Shapes[row.shapeID]
		if !ok {
			s = &Shape{ID: row.shapeID}
			feed.Shapes[row.shapeID] = s
		}
		s.Points = append(s.Points, row.pt)
	}
}

// ParseDaySeconds parses a GTFS HH:MM:SS time, allowing hours >= 24 for
// overnight services. Empty or malformed values yield TimeMissing.
func ParseDaySeconds(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return TimeMissing
	}
	parts := strings.Split(s, ":")
	if len(parts) < 2 {
		return TimeMissing
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || h < 0 || m < 0 {
		return TimeMissing
	}
	sec := 0
	if len(parts) > 2 {
		sec, _ = strconv.Atoi(parts[2])
	}
	return h*3600 + m*60 + sec
}

// FormatDaySeconds renders seconds after midnight back to HH:MM:SS.
// TimeMissing renders as an empty string.
func FormatDaySeconds(v int) string {
	if v == TimeMissing {
		return ""
	}
	return fmt.Sprintf("%02d:%02d:%02d", v/3600, (v/60)%60, v%60)
}

// ParseDate parses a GTFS YYYYMMDD date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse("20060102", strings.TrimSpace(s))
}

// FormatDate renders a date as GTFS YYYYMMDD.
func FormatDate(t time.Time) string { return t.Format("20060102") }
