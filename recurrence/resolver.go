package recurrence

import (
	"time"

	"github.com/cyp0633/librecur/calendar"
	"github.com/samber/mo"
)

// dateResolver turns wall tuples into instants according to a rule's
// matching and repeated time policies.
type dateResolver struct {
	cal      Calendar
	matching MatchingPolicy
	repeated RepeatedTimePolicy
}

// resolve maps w to zero, one or two instants. preferOffset, when present,
// picks among repeated wall times the instant with that UTC offset; it is
// used by sub-daily rules so both passes through a repeated hour survive.
func (r dateResolver) resolve(w calendar.Wall, preferOffset mo.Option[int]) []time.Time {
	if !w.ValidTime() {
		return nil
	}
	if !r.cal.ValidDate(w.Date) {
		return r.resolveInvalidDate(w)
	}
	return r.resolveWall(w, preferOffset)
}

// resolveInvalidDate handles dates that do not exist, such as February 29
// of a common year or the 31st of a 30-day month.
func (r dateResolver) resolveInvalidDate(w calendar.Wall) []time.Time {
	if w.Month < time.January || w.Month > time.December || w.Day < 1 {
		return nil
	}
	switch r.matching {
	case Strict:
		return nil
	case NextTime:
		y, m := r.cal.AddMonths(w.Year, w.Month, 1)
		next := calendar.At(calendar.Date{Year: y, Month: m, Day: 1}, 0, 0, 0)
		return r.resolveWall(next, mo.None[int]())
	case NextTimePreservingSmallerComponents:
		y, m := r.cal.AddMonths(w.Year, w.Month, 1)
		w.Date = calendar.Date{Year: y, Month: m, Day: 1}
		return r.resolveWall(w, mo.None[int]())
	case PreviousTimePreservingSmallerComponents:
		w.Day = r.cal.DaysInMonth(w.Year, w.Month)
		return r.resolveWall(w, mo.None[int]())
	}
	return nil
}

// resolveWall handles a real date whose wall time may be repeated or
// skipped by a transition.
func (r dateResolver) resolveWall(w calendar.Wall, preferOffset mo.Option[int]) []time.Time {
	res := r.cal.Resolve(w)
	switch res.Kind {
	case calendar.Unique:
		return res.Instants[:1]
	case calendar.Repeated:
		if off, ok := preferOffset.Get(); ok {
			for _, t := range res.Instants {
				if _, o := t.Zone(); o == off {
					return []time.Time{t}
				}
			}
		}
		if r.repeated == Last {
			return res.Instants[len(res.Instants)-1:]
		}
		return res.Instants[:1]
	case calendar.Skipped:
		switch r.matching {
		case Strict:
			return nil
		case NextTime:
			return []time.Time{res.Transition}
		case NextTimePreservingSmallerComponents:
			return []time.Time{res.Forward}
		case PreviousTimePreservingSmallerComponents:
			return []time.Time{res.Backward}
		}
	}
	return nil
}
