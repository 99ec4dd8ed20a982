package recurrence

import (
	"github.com/cyp0633/librecur/calendar"
)

// boundary is the span an nth weekday selector counts within.
type boundary int

const (
	boundaryYear boundary = iota
	boundaryMonth
	boundaryWeek
)

// weekdayBoundary picks the span nth selectors count in. Weekly rules and
// yearly rules with week numbers count inside the week; yearly rules count
// inside the month once months are fixed and inside the year otherwise.
// Everything from monthly down counts inside the month.
func weekdayBoundary(freq Frequency, hasMonths, hasWeeks bool) boundary {
	switch {
	case freq == Weekly:
		return boundaryWeek
	case freq == Yearly && hasWeeks:
		return boundaryWeek
	case freq == Yearly && !hasMonths:
		return boundaryYear
	}
	return boundaryMonth
}

// weekdaySelector matches dates against a set of Weekday selectors.
type weekdaySelector struct {
	cal       Calendar
	selectors []Weekday
	bound     boundary
}

func (s weekdaySelector) empty() bool { return len(s.selectors) == 0 }

// matches reports whether d satisfies at least one selector. Every and nth
// selectors may be mixed; the result is their union.
func (s weekdaySelector) matches(d calendar.Date) bool {
	wd := s.cal.Weekday(d)
	for _, sel := range s.selectors {
		if sel.Day != wd {
			continue
		}
		if sel.IsEvery() {
			return true
		}
		first, last := s.ordinals(d)
		if sel.N == first || sel.N == -last {
			return true
		}
	}
	return false
}

// ordinals returns d's position among the same weekdays of its boundary,
// counted from the start and from the end (both 1-based).
func (s weekdaySelector) ordinals(d calendar.Date) (fromStart, fromEnd int) {
	switch s.bound {
	case boundaryYear:
		doy := s.cal.DayOfYear(d)
		return (doy-1)/7 + 1, (s.cal.DaysInYear(d.Year)-doy)/7 + 1
	case boundaryMonth:
		return (d.Day-1)/7 + 1, (s.cal.DaysInMonth(d.Year, d.Month)-d.Day)/7 + 1
	default:
		return 1, 1
	}
}
