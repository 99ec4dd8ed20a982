package recurrence

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// Rule describes a recurrence: a frequency and stride, optional constraints
// on calendar fields, an end condition and the policies used when a
// generated wall time does not map to exactly one instant.
//
// A Rule is a plain value. Iterators copy it when they start, so changing a
// Rule afterwards does not affect sequences already being consumed.
type Rule struct {
	Calendar  Calendar
	Frequency Frequency
	// Interval is the number of periods between two base periods.
	Interval int
	End      End

	MatchingPolicy     MatchingPolicy
	RepeatedTimePolicy RepeatedTimePolicy

	Months         []Month
	Weeks          []int
	DaysOfTheYear  []int
	DaysOfTheMonth []int
	Weekdays       []Weekday
	Hours          []int
	Minutes        []int
	Seconds        []int
	SetPositions   []int
}

// NewRule returns a rule with an interval of one that never ends.
func NewRule(cal Calendar, freq Frequency) Rule {
	return Rule{
		Calendar:  cal,
		Frequency: freq,
		Interval:  1,
	}
}

// Validate reports every structural problem of the rule.
func (r Rule) Validate() error {
	var errs []error
	if r.Calendar == nil {
		errs = append(errs, ErrNoCalendar)
	}
	if !r.Frequency.valid() {
		errs = append(errs, fmt.Errorf("%w: %d", ErrInvalidFrequency, int(r.Frequency)))
	}
	if r.Interval < 1 {
		errs = append(errs, fmt.Errorf("%w: got %d", ErrInvalidInterval, r.Interval))
	}
	if n, ok := r.End.Count().Get(); ok && n < 1 {
		errs = append(errs, fmt.Errorf("%w: got %d", ErrInvalidCount, n))
	}
	if r.MatchingPolicy < NextTimePreservingSmallerComponents || r.MatchingPolicy > Strict {
		errs = append(errs, fmt.Errorf("%w: matching policy %d", ErrOutOfRange, int(r.MatchingPolicy)))
	}
	if r.RepeatedTimePolicy != First && r.RepeatedTimePolicy != Last {
		errs = append(errs, fmt.Errorf("%w: repeated time policy %d", ErrOutOfRange, int(r.RepeatedTimePolicy)))
	}

	for _, m := range r.Months {
		if m.Index < 1 || m.Index > 13 {
			errs = append(errs, fmt.Errorf("%w: month %s", ErrOutOfRange, m))
		}
	}
	errs = append(errs, checkOrdinals("weeks", r.Weeks)...)
	errs = append(errs, checkOrdinals("days of the year", r.DaysOfTheYear)...)
	errs = append(errs, checkOrdinals("days of the month", r.DaysOfTheMonth)...)
	errs = append(errs, checkOrdinals("set positions", r.SetPositions)...)
	for _, wd := range r.Weekdays {
		if wd.Day < time.Sunday || wd.Day > time.Saturday {
			errs = append(errs, fmt.Errorf("%w: weekday %d", ErrOutOfRange, int(wd.Day)))
		}
	}
	errs = append(errs, checkClock("hour", r.Hours, 23)...)
	errs = append(errs, checkClock("minute", r.Minutes, 59)...)
	errs = append(errs, checkClock("second", r.Seconds, 59)...)

	return errors.Join(errs...)
}

func checkOrdinals(field string, values []int) []error {
	var errs []error
	for _, v := range values {
		if v == 0 {
			errs = append(errs, fmt.Errorf("%w: %s", ErrZeroOrdinal, field))
		}
	}
	return errs
}

func checkClock(field string, values []int, limit int) []error {
	var errs []error
	for _, v := range values {
		if v < 0 || v > limit {
			errs = append(errs, fmt.Errorf("%w: %s %d", ErrOutOfRange, field, v))
		}
	}
	return errs
}

// Clone returns a deep copy of the rule. The calendar is shared; calendars
// are immutable.
func (r Rule) Clone() Rule {
	c := r
	c.Months = slices.Clone(r.Months)
	c.Weeks = slices.Clone(r.Weeks)
	c.DaysOfTheYear = slices.Clone(r.DaysOfTheYear)
	c.DaysOfTheMonth = slices.Clone(r.DaysOfTheMonth)
	c.Weekdays = slices.Clone(r.Weekdays)
	c.Hours = slices.Clone(r.Hours)
	c.Minutes = slices.Clone(r.Minutes)
	c.Seconds = slices.Clone(r.Seconds)
	c.SetPositions = slices.Clone(r.SetPositions)
	return c
}

// Equal compares two rules by value. Calendars are equal when they agree on
// identifier, time zone and week convention; nil and empty field sets are
// equal.
func (r Rule) Equal(o Rule) bool {
	return sameCalendar(r.Calendar, o.Calendar) &&
		r.Frequency == o.Frequency &&
		r.Interval == o.Interval &&
		r.End.Equal(o.End) &&
		r.MatchingPolicy == o.MatchingPolicy &&
		r.RepeatedTimePolicy == o.RepeatedTimePolicy &&
		slices.Equal(r.Months, o.Months) &&
		slices.Equal(r.Weeks, o.Weeks) &&
		slices.Equal(r.DaysOfTheYear, o.DaysOfTheYear) &&
		slices.Equal(r.DaysOfTheMonth, o.DaysOfTheMonth) &&
		slices.Equal(r.Weekdays, o.Weekdays) &&
		slices.Equal(r.Hours, o.Hours) &&
		slices.Equal(r.Minutes, o.Minutes) &&
		slices.Equal(r.Seconds, o.Seconds) &&
		slices.Equal(r.SetPositions, o.SetPositions)
}

func sameCalendar(a, b Calendar) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Identifier() == b.Identifier() &&
		a.Location().String() == b.Location().String() &&
		a.FirstWeekday() == b.FirstWeekday() &&
		a.MinimumDaysInFirstWeek() == b.MinimumDaysInFirstWeek()
}
