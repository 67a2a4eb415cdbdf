// Package busday implements business-day (Mon-Fri) deadline arithmetic.
package busday

import "time"

// IsBusinessDay reports whether t falls on a weekday.
func IsBusinessDay(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	default:
		return true
	}
}

// Sub walks backward from t one calendar day at a time until n weekdays
// have been counted. The start day itself is never counted, so subtracting
// 3 from a Monday lands on the previous Wednesday and subtracting 3 from a
// Saturday lands on the Wednesday before it.
func Sub(t time.Time, n int) time.Time {
	for n > 0 {
		t = t.AddDate(0, 0, -1)
		if IsBusinessDay(t) {
			n--
		}
	}
	return t
}

// Week returns the Monday 00:00 UTC and the instant just past Friday
// 23:59:59 UTC of the ISO week containing t. Saturday and Sunday resolve to
// the Friday that already passed.
func Week(t time.Time) (monday, fridayEnd time.Time) {
	t = t.UTC()
	offset := int(t.Weekday()) - int(time.Monday)
	if offset < 0 {
		offset += 7 // Sunday belongs to the week that started six days earlier
	}
	monday = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -offset)
	fridayEnd = monday.AddDate(0, 0, 5)
	return monday, fridayEnd
}

// Friday returns the Friday date of the ISO week containing t, at 00:00 UTC.
func Friday(t time.Time) time.Time {
	monday, _ := Week(t)
	return monday.AddDate(0, 0, 4)
}
