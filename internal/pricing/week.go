package pricing

import "time"

// WeekStart returns the most recent Sunday 00:00 at or before t, in loc.
// A nil loc means UTC.
//
// Built with time.Date rather than subtracting 24h multiples so that a DST
// transition inside the week does not shift the boundary off midnight.
func WeekStart(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	lt := t.In(loc)
	y, m, d := lt.Date()
	return time.Date(y, m, d-int(lt.Weekday()), 0, 0, 0, 0, loc)
}

// NextWeekStart returns the Sunday 00:00 that ends the week containing t.
func NextWeekStart(t time.Time, loc *time.Location) time.Time {
	ws := WeekStart(t, loc)
	y, m, d := ws.Date()
	return time.Date(y, m, d+7, 0, 0, 0, 0, ws.Location())
}

// inLateWindow reports whether t falls between Sunday 00:00:00 and
// Wednesday 23:59:59.999999999 inclusive, in loc.
func inLateWindow(t time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.UTC
	}
	switch t.In(loc).Weekday() {
	case time.Sunday, time.Monday, time.Tuesday, time.Wednesday:
		return true
	default:
		return false
	}
}
