package calendar

import (
	"sort"
	"time"
)

// ResolutionKind classifies how a wall-clock tuple maps onto instants.
type ResolutionKind int

const (
	// Invalid means the tuple is not a calendar date or not a clock reading
	// (February 29 of a common year, hour 24).
	Invalid ResolutionKind = iota
	// Unique means exactly one instant shows this wall time.
	Unique
	// Repeated means the wall time occurs twice, around a backward transition.
	Repeated
	// Skipped means the wall time falls into a forward transition gap.
	Skipped
)

func (k ResolutionKind) String() string {
	switch k {
	case Invalid:
		return "invalid"
	case Unique:
		return "unique"
	case Repeated:
		return "repeated"
	case Skipped:
		return "skipped"
	}
	return "unknown"
}

// Resolution is the outcome of mapping a Wall onto the time line.
type Resolution struct {
	Kind ResolutionKind

	// Instants holds one instant for Unique and two, earlier first, for
	// Repeated.
	Instants []time.Time

	// Forward, Backward and Transition are only set for Skipped.
	// Forward reads the wall time with the offset in force before the gap
	// and therefore lands after it (02:30 becomes 03:30). Backward reads it
	// with the offset in force after the gap and lands before it (01:30).
	// Transition is the first instant after the gap (03:00).
	Forward    time.Time
	Backward   time.Time
	Transition time.Time
}

// Resolve maps w onto the time line of the calendar's location.
func (g *Gregorian) Resolve(w Wall) Resolution {
	if !g.ValidDate(w.Date) || !w.ValidTime() {
		return Resolution{Kind: Invalid}
	}

	wall := time.Date(w.Year, w.Month, w.Day, w.Hour, w.Minute, w.Second, 0, time.UTC).Unix()

	// Offsets in force a day either side cover every transition that can
	// affect this wall time.
	before := g.offsetAt(wall - secondsPerDay)
	after := g.offsetAt(wall + secondsPerDay)
	offsets := []int{before, g.offsetAt(wall), after}

	var hits []time.Time
	for _, off := range offsets {
		t := time.Unix(wall-int64(off), 0).In(g.loc)
		if _, got := t.Zone(); got != off {
			continue
		}
		dup := false
		for _, h := range hits {
			if h.Equal(t) {
				dup = true
				break
			}
		}
		if !dup {
			hits = append(hits, t)
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Before(hits[j]) })

	switch len(hits) {
	case 0:
		forward := time.Unix(wall-int64(before), 0).In(g.loc)
		backward := time.Unix(wall-int64(after), 0).In(g.loc)
		start, _ := forward.ZoneBounds()
		if start.IsZero() || start.After(forward) {
			start = forward
		}
		return Resolution{
			Kind:       Skipped,
			Forward:    forward,
			Backward:   backward,
			Transition: start.In(g.loc),
		}
	case 1:
		return Resolution{Kind: Unique, Instants: hits}
	default:
		return Resolution{Kind: Repeated, Instants: []time.Time{hits[0], hits[len(hits)-1]}}
	}
}

// Components reads the wall clock of t in the calendar's location.
func (g *Gregorian) Components(t time.Time) Wall {
	l := t.In(g.loc)
	return Wall{
		Date:   dateOf(l),
		Hour:   l.Hour(),
		Minute: l.Minute(),
		Second: l.Second(),
	}
}

func (g *Gregorian) offsetAt(unix int64) int {
	_, off := time.Unix(unix, 0).In(g.loc).Zone()
	return off
}

const secondsPerDay = 24 * 60 * 60
