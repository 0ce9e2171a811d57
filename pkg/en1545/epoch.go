package en1545

import "time"

// All EN1545 dates count from 1997-01-01 in the issuer's local time. The
// codec hands out raw integers; these helpers turn them into instants once
// the caller knows which time zone the issuer uses.

func epochDays(y int, m time.Month, d int) int {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	e := time.Date(1997, time.January, 1, 0, 0, 0, 0, time.UTC)
	return int(t.Sub(e).Hours() / 24)
}

// DateToTime converts a day count to local midnight of that day.
func DateToTime(days int, loc *time.Location) time.Time {
	return time.Date(1997, time.January, 1+days, 0, 0, 0, 0, loc)
}

// DateTimeToTime combines a day count and a minutes-of-day value.
func DateTimeToTime(days, minutes int, loc *time.Location) time.Time {
	return time.Date(1997, time.January, 1+days, 0, minutes, 0, 0, loc)
}

// DateTimeLocalToTime converts a seconds count from the local epoch.
func DateTimeLocalToTime(seconds int, loc *time.Location) time.Time {
	return time.Date(1997, time.January, 1, 0, 0, seconds, 0, loc)
}

// DateFromTime is the inverse of DateToTime for t's wall clock.
func DateFromTime(t time.Time) int {
	y, m, d := t.Date()
	return epochDays(y, m, d)
}

// TimeLocalFromTime returns the minutes since midnight of t's wall clock.
func TimeLocalFromTime(t time.Time) int {
	h, m, _ := t.Clock()
	return h*60 + m
}

// DateTimeLocalFromTime is the inverse of DateTimeLocalToTime for t's wall clock.
func DateTimeLocalFromTime(t time.Time) int {
	h, m, s := t.Clock()
	return DateFromTime(t)*86400 + h*3600 + m*60 + s
}
