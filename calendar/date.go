package calendar

import (
	"fmt"
	"time"
)

// Date is a calendar date without a time of day. Day may exceed the length
// of the month when the value was built from unchecked components; use
// Gregorian.ValidDate before treating it as a real day.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// Compare returns -1, 0 or +1 depending on whether d sorts before, equal to
// or after o. Invalid dates compare by their raw components.
func (d Date) Compare(o Date) int {
	switch {
	case d.Year != o.Year:
		return cmpInt(d.Year, o.Year)
	case d.Month != o.Month:
		return cmpInt(int(d.Month), int(o.Month))
	default:
		return cmpInt(d.Day, o.Day)
	}
}

func (d Date) Before(o Date) bool { return d.Compare(o) < 0 }

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// utc returns midnight UTC of the date, normalizing overflowing days.
func (d Date) utc() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func dateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Wall is a local wall-clock reading: the component tuple a recurrence rule
// produces before it is tied to an instant.
type Wall struct {
	Date
	Hour   int
	Minute int
	Second int
}

// At attaches a time of day to a date.
func At(d Date, hour, minute, second int) Wall {
	return Wall{Date: d, Hour: hour, Minute: minute, Second: second}
}

func (w Wall) Compare(o Wall) int {
	if c := w.Date.Compare(o.Date); c != 0 {
		return c
	}
	if w.Hour != o.Hour {
		return cmpInt(w.Hour, o.Hour)
	}
	if w.Minute != o.Minute {
		return cmpInt(w.Minute, o.Minute)
	}
	return cmpInt(w.Second, o.Second)
}

func (w Wall) String() string {
	return fmt.Sprintf("%sT%02d:%02d:%02d", w.Date, w.Hour, w.Minute, w.Second)
}

// ValidTime reports whether the time-of-day components are on the clock face.
func (w Wall) ValidTime() bool {
	return w.Hour >= 0 && w.Hour < 24 &&
		w.Minute >= 0 && w.Minute < 60 &&
		w.Second >= 0 && w.Second < 60
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
