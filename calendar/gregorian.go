package calendar

import (
	"errors"
	"fmt"
	"time"
)

// IdentifierGregorian names the only calendar system this package implements.
const IdentifierGregorian = "gregorian"

var (
	ErrNoLocation       = errors.New("calendar: location is required")
	ErrInvalidFirstDays = errors.New("calendar: minimum days in first week must be within 1...7")
)

// Gregorian is a proleptic Gregorian calendar bound to a time zone and a
// week convention. It carries no mutable state and may be shared freely.
type Gregorian struct {
	loc          *time.Location
	firstWeekday time.Weekday
	minDays      int
}

// Option configures a Gregorian calendar.
type Option func(*Gregorian)

// WithFirstWeekday sets the day weeks start on. The default is Sunday.
func WithFirstWeekday(d time.Weekday) Option {
	return func(g *Gregorian) { g.firstWeekday = d }
}

// WithMinimumDaysInFirstWeek sets how many days of a year the first week must
// hold. The default is 1.
func WithMinimumDaysInFirstWeek(n int) Option {
	return func(g *Gregorian) { g.minDays = n }
}

// New returns a Gregorian calendar in loc. Weeks start on Sunday and week 1
// is the week containing January 1 unless options say otherwise.
func New(loc *time.Location, opts ...Option) (*Gregorian, error) {
	if loc == nil {
		return nil, ErrNoLocation
	}
	g := &Gregorian{loc: loc, firstWeekday: time.Sunday, minDays: 1}
	for _, opt := range opts {
		opt(g)
	}
	if g.minDays < 1 || g.minDays > 7 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidFirstDays, g.minDays)
	}
	if g.firstWeekday < time.Sunday || g.firstWeekday > time.Saturday {
		return nil, fmt.Errorf("calendar: invalid first weekday %d", g.firstWeekday)
	}
	return g, nil
}

// MustNew is New for package-level fixtures; it panics on bad options.
func MustNew(loc *time.Location, opts ...Option) *Gregorian {
	g, err := New(loc, opts...)
	if err != nil {
		panic(err)
	}
	return g
}

// ISO8601 returns a calendar using ISO week rules: Monday first, four days
// in the first week.
func ISO8601(loc *time.Location) *Gregorian {
	return MustNew(loc, WithFirstWeekday(time.Monday), WithMinimumDaysInFirstWeek(4))
}

func (g *Gregorian) Identifier() string { return IdentifierGregorian }
func (g *Gregorian) Location() *time.Location { return g.loc }
func (g *Gregorian) FirstWeekday() time.Weekday { return g.firstWeekday }
func (g *Gregorian) MinimumDaysInFirstWeek() int { return g.minDays }
func (g *Gregorian) String() string { return fmt.Sprintf("gregorian(%s)", g.loc) }
func (g *Gregorian) Weekday(d Date) time.Weekday { return d.utc().Weekday() }
func (g *Gregorian) AddDays(d Date, n int) Date { return dateOf(d.utc().AddDate(0, 0, n)) }
func (g *Gregorian) DayOfYear(d Date) int { return d.utc().YearDay() }
func (g *Gregorian) DaysBetween(from, to Date) int {
	return int((to.utc().Unix() - from.utc().Unix()) / secondsPerDay)
}

func (g *Gregorian) IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

func (g *Gregorian) DaysInYear(year int) int {
	if g.IsLeapYear(year) {
		return 366
	}
	return 365
}

func (g *Gregorian) DaysInMonth(year int, month time.Month) int {
	switch month {
	case time.February:
		if g.IsLeapYear(year) {
			return 29
		}
		return 28
	case time.April, time.June, time.September, time.November:
		return 30
	}
	return 31
}

// ValidDate reports whether d names a real day.
func (g *Gregorian) ValidDate(d Date) bool {
	if d.Month < time.January || d.Month > time.December {
		return false
	}
	return d.Day >= 1 && d.Day <= g.DaysInMonth(d.Year, d.Month)
}

// AddMonths moves a year/month pair by n months.
func (g *Gregorian) AddMonths(year int, month time.Month, n int) (int, time.Month) {
	total := year*12 + int(month) - 1 + n
	y := floorDiv(total, 12)
	return y, time.Month(total-y*12) + 1
}

// StartOfWeek returns the first day of the week containing d.
func (g *Gregorian) StartOfWeek(d Date) Date {
	back := (int(g.Weekday(d)) - int(g.firstWeekday) + 7) % 7
	return g.AddDays(d, -back)
}

// StartOfWeekYear returns the first day of week 1 of the week-numbering
// year.
func (g *Gregorian) StartOfWeekYear(year int) Date {
	jan1 := Date{Year: year, Month: time.January, Day: 1}
	start := g.StartOfWeek(jan1)
	if 7-g.DaysBetween(start, jan1) < g.minDays {
		start = g.AddDays(start, 7)
	}
	return start
}

// WeekOfYear returns the week-numbering year of d and its week within it.
func (g *Gregorian) WeekOfYear(d Date) (year, week int) {
	year = d.Year
	start := g.StartOfWeekYear(year)
	if d.Before(start) {
		year--
		start = g.StartOfWeekYear(year)
	} else if next := g.StartOfWeekYear(year + 1); !d.Before(next) {
		year++
		start = next
	}
	return year, g.DaysBetween(start, d)/7 + 1
}

// WeeksInYear returns the number of weeks in the week-numbering year.
func (g *Gregorian) WeeksInYear(year int) int {
	return g.DaysBetween(g.StartOfWeekYear(year), g.StartOfWeekYear(year+1)) / 7
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
