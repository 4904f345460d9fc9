package utils

import "time"

// StartOfLocalDay returns midnight of t's day in loc.
func StartOfLocalDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// StartOfLocalMonth returns midnight of the first day of t's month in loc.
func StartOfLocalMonth(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, loc)
}
