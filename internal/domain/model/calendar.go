package model

import "time"

// Date truncates t to a calendar date at UTC midnight, keeping the
// year/month/day t carries in its own location.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AddMonthsClamped moves start forward n calendar months, keeping the
// day-of-month where the target month has it and clamping to the month's
// last day otherwise (31 Jan + 1 = 28/29 Feb). Always computed from start so
// a clamp in one month does not shift later months.
func AddMonthsClamped(start time.Time, n int) time.Time {
	y, m, d := start.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	if last := daysIn(first.Year(), first.Month()); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole calendar days from a to b, negative when b
// is before a.
func DaysBetween(a, b time.Time) int {
	return int(Date(b).Sub(Date(a)).Hours() / 24)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
