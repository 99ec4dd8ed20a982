package recurrence

import (
	"fmt"
	"time"

	"github.com/cyp0633/librecur/calendar"
	"github.com/samber/mo"
)

// Calendar is everything the engine needs from a calendar system: component
// arithmetic, the week convention and local-time resolution.
// *calendar.Gregorian implements it.
type Calendar interface {
	Identifier() string
	Location() *time.Location
	FirstWeekday() time.Weekday
	MinimumDaysInFirstWeek() int

	IsLeapYear(year int) bool
	DaysInMonth(year int, month time.Month) int
	DaysInYear(year int) int
	DayOfYear(d calendar.Date) int
	ValidDate(d calendar.Date) bool
	Weekday(d calendar.Date) time.Weekday
	AddDays(d calendar.Date, n int) calendar.Date
	AddMonths(year int, month time.Month, n int) (int, time.Month)
	DaysBetween(from, to calendar.Date) int

	StartOfWeek(d calendar.Date) calendar.Date
	StartOfWeekYear(year int) calendar.Date
	WeekOfYear(d calendar.Date) (year, week int)
	WeeksInYear(year int) int

	Components(t time.Time) calendar.Wall
	Resolve(w calendar.Wall) calendar.Resolution
}

// Frequency is the period unit of a rule, ordered from coarsest to finest.
type Frequency int

const (
	Yearly Frequency = iota
	Monthly
	Weekly
	Daily
	Hourly
	Minutely
	Secondly
)

var frequencyNames = [...]string{
	Yearly:   "yearly",
	Monthly:  "monthly",
	Weekly:   "weekly",
	Daily:    "daily",
	Hourly:   "hourly",
	Minutely: "minutely",
	Secondly: "secondly",
}

func (f Frequency) String() string {
	if f.valid() {
		return frequencyNames[f]
	}
	return fmt.Sprintf("Frequency(%d)", int(f))
}

func (f Frequency) valid() bool { return f >= Yearly && f <= Secondly }

// subDaily reports whether periods of f are shorter than a day.
func (f Frequency) subDaily() bool { return f >= Hourly }

// ParseFrequency is the inverse of Frequency.String.
func ParseFrequency(s string) (Frequency, error) {
	for f, name := range frequencyNames {
		if name == s {
			return Frequency(f), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown frequency %q", ErrOutOfRange, s)
}

// Month is a month number, optionally tagged as the leap month that some
// calendars insert after it. Gregorian months are never leap months.
type Month struct {
	Index int
	Leap  bool
}

// M is shorthand for a regular month.
func M(index int) Month { return Month{Index: index} }

// LeapMonth is shorthand for a leap month.
func LeapMonth(index int) Month { return Month{Index: index, Leap: true} }

func (m Month) String() string {
	if m.Leap {
		return fmt.Sprintf("%dL", m.Index)
	}
	return fmt.Sprintf("%d", m.Index)
}

// Weekday selects days of the week. N == 0 selects every such day in the
// period; otherwise it selects the N-th one inside the enclosing boundary,
// counting from the end when N is negative.
type Weekday struct {
	Day time.Weekday
	N   int
}

// Every selects each d.
func Every(d time.Weekday) Weekday { return Weekday{Day: d} }

// Nth selects the n-th d. n must not be zero.
func Nth(n int, d time.Weekday) Weekday { return Weekday{Day: d, N: n} }

func (w Weekday) IsEvery() bool { return w.N == 0 }

func (w Weekday) String() string {
	if w.IsEvery() {
		return "every " + w.Day.String()
	}
	return fmt.Sprintf("%d %s", w.N, w.Day)
}

type endKind int

const (
	endNever endKind = iota
	endCount
	endDate
)

// End says when a recurrence stops.
type End struct {
	kind  endKind
	count int
	date  time.Time
}

// Never returns an end that never comes.
func Never() End { return End{} }

// AfterOccurrences ends the recurrence once n occurrences were produced.
func AfterOccurrences(n int) End { return End{kind: endCount, count: n} }

// AfterDate ends the recurrence at t. Occurrences at or after t are not
// produced.
func AfterDate(t time.Time) End { return End{kind: endDate, date: t} }

// Count returns the occurrence limit, if the end is count based.
func (e End) Count() mo.Option[int] {
	if e.kind != endCount {
		return mo.None[int]()
	}
	return mo.Some(e.count)
}

// Date returns the exclusive bound, if the end is date based.
func (e End) Date() mo.Option[time.Time] {
	if e.kind != endDate {
		return mo.None[time.Time]()
	}
	return mo.Some(e.date)
}

func (e End) IsNever() bool { return e.kind == endNever }

func (e End) Equal(o End) bool {
	return e.kind == o.kind && e.count == o.count && e.date.Equal(o.date)
}

func (e End) String() string {
	switch e.kind {
	case endCount:
		return fmt.Sprintf("after %d occurrences", e.count)
	case endDate:
		return "before " + e.date.Format(time.RFC3339)
	}
	return "never"
}

// MatchingPolicy decides what happens to a tuple that names no instant,
// either because the date does not exist or because the wall time falls
// into a forward transition.
type MatchingPolicy int

const (
	// NextTimePreservingSmallerComponents moves to the next valid date (or
	// past the gap) keeping the requested time of day.
	NextTimePreservingSmallerComponents MatchingPolicy = iota
	// NextTime moves to the first instant after the nominal time.
	NextTime
	// PreviousTimePreservingSmallerComponents moves to the previous valid
	// date (or before the gap) keeping the requested time of day.
	PreviousTimePreservingSmallerComponents
	// Strict drops the tuple.
	Strict
)

var matchingPolicyNames = [...]string{
	NextTimePreservingSmallerComponents:     "nextTimePreservingSmallerComponents",
	NextTime:                                "nextTime",
	PreviousTimePreservingSmallerComponents: "previousTimePreservingSmallerComponents",
	Strict:                                  "strict",
}

func (p MatchingPolicy) String() string {
	if p >= 0 && int(p) < len(matchingPolicyNames) {
		return matchingPolicyNames[p]
	}
	return fmt.Sprintf("MatchingPolicy(%d)", int(p))
}

func ParseMatchingPolicy(s string) (MatchingPolicy, error) {
	for p, name := range matchingPolicyNames {
		if name == s {
			return MatchingPolicy(p), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown matching policy %q", ErrOutOfRange, s)
}

// RepeatedTimePolicy picks one of the two instants sharing a wall time.
type RepeatedTimePolicy int

const (
	// First picks the earlier instant.
	First RepeatedTimePolicy = iota
	// Last picks the later instant.
	Last
)

func (p RepeatedTimePolicy) String() string {
	switch p {
	case First:
		return "first"
	case Last:
		return "last"
	}
	return fmt.Sprintf("RepeatedTimePolicy(%d)", int(p))
}

func ParseRepeatedTimePolicy(s string) (RepeatedTimePolicy, error) {
	switch s {
	case "first":
		return First, nil
	case "last":
		return Last, nil
	}
	return 0, fmt.Errorf("%w: unknown repeated time policy %q", ErrOutOfRange, s)
}

// Window is the half-open range [From, To).
type Window struct {
	From time.Time
	To   time.Time
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.From) && t.Before(w.To)
}
