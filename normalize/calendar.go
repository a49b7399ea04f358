package normalize

import (
	"sort"
	"time"

	"github.com/transitstat/transitgo/gtfs"
)

// expandCalendar turns weekday spans and date exceptions into the per-date
// service table. Invalid spans and exceptions outside the feed validity
// window are removed from the feed, not just skipped, so a repeated run has
// nothing left to reject.
func (n *Normalizer) expandCalendar(feed *gtfs.Feed) {
	start, end := validityWindow(feed)

	kept := feed.Calendar[:0]
	for _, c := range feed.Calendar {
		if c.StartDate.After(c.EndDate) {
			feed.Dropped.Add(gtfs.KindCalendar, c.ServiceID, "invalid date range")
			continue
		}
		kept = append(kept, c)
	}
	feed.Calendar = kept

	dates := map[string]map[time.Time]bool{}
	add := func(serviceID string, d time.Time) {
		set, ok := dates[serviceID]
		if !ok {
			set = map[time.Time]bool{}
			dates[serviceID] = set
		}
		set[d] = true
	}

	for _, c := range feed.Calendar {
		for d := c.StartDate; !d.After(c.EndDate); d = d.AddDate(0, 0, 1) {
			if c.Weekdays[d.Weekday()] {
				add(c.ServiceID, d)
			}
		}
	}

	keptDates := feed.CalendarDates[:0]
	for _, cd := range feed.CalendarDates {
		if cd.Date.Before(start) || cd.Date.After(end) {
			feed.Dropped.Add(gtfs.KindCalendar, cd.ServiceID+":"+gtfs.FormatDate(cd.Date), "outside feed validity window")
			continue
		}
		keptDates = append(keptDates, cd)
		switch cd.ExceptionType {
		case gtfs.ServiceAdded:
			add(cd.ServiceID, cd.Date)
		case gtfs.ServiceRemoved:
			delete(dates[cd.ServiceID], cd.Date)
		}
	}
	feed.CalendarDates = keptDates

	feed.ServiceDates = map[string][]time.Time{}
	for serviceID, set := range dates {
		out := make([]time.Time, 0, len(set))
		for d := range set {
			out = append(out, d)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
		feed.ServiceDates[serviceID] = out
	}
}

// validityWindow is the span covered by the calendar rows, or by the date
// exceptions when the feed only ships calendar_dates.txt.
func validityWindow(feed *gtfs.Feed) (time.Time, time.Time) {
	var start, end time.Time
	grow := func(s, e time.Time) {
		if start.IsZero() || s.Before(start) {
			start = s
		}
		if end.IsZero() || e.After(end) {
			end = e
		}
	}
	for _, c := range feed.Calendar {
		if c.StartDate.After(c.EndDate) {
			continue
		}
		grow(c.StartDate, c.EndDate)
	}
	if start.IsZero() {
		for _, cd := range feed.CalendarDates {
			grow(cd.Date, cd.Date)
		}
	}
	return start, end
}
