// Package recurrence expands calendar recurrence rules into concrete
// instants.
//
// A Rule names a frequency (yearly down to secondly), a stride, an end and
// any number of field constraints: months, week numbers, days of the year,
// days of the month, weekdays, hours, minutes, seconds and set positions.
// Depending on the frequency a constraint either expands each period into
// several candidates or filters the candidates it already has. Candidates
// are plain wall-clock tuples; the rule's MatchingPolicy and
// RepeatedTimePolicy decide how tuples that name no instant (February 30, a
// time skipped by a daylight saving transition) or two instants (a repeated
// hour) are mapped onto the timeline.
//
// Occurrences come out strictly increasing and lazily, either through an
// Iterator or as an iter.Seq:
//
//	cal := calendar.MustNew(loc)
//	r := recurrence.NewRule(cal, recurrence.Monthly)
//	r.Weekdays = []recurrence.Weekday{recurrence.Nth(-1, time.Friday)}
//	seq, err := r.Recurrences(anchor)
//	for t := range seq {
//		...
//	}
//
// Rules also travel as JSON, YAML, RRULE text (with the RFC 7529 RSCALE and
// SKIP extensions) and inside go-ical components; package xcal adds xCal.
// Engine wraps expansion for event queries with a cache, RDATE and EXDATE
// handling.
package recurrence
