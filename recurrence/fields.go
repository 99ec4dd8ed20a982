package recurrence

import (
	"slices"
	"time"

	"github.com/cyp0633/librecur/calendar"
)

// period is one base period of a rule. Only the members matching the rule's
// frequency are set.
type period struct {
	index int

	year  int        // yearly, monthly
	month time.Month // monthly
	start calendar.Date

	// instant is the period's own instant for sub-daily rules and clock
	// its wall reading.
	instant time.Time
	clock   calendar.Wall
}

// skipUnit tells the iterator that every period up to the next boundary of
// the given unit would be rejected for the same reason.
type skipUnit int

const (
	skipNone skipUnit = iota
	skipMinute
	skipHour
	skipDay
)

// fieldEngine expands one period into the sorted wall tuples it contains.
type fieldEngine struct {
	cal    Calendar
	freq   Frequency
	anchor calendar.Wall

	months         []int
	hasMonths      bool
	weeks          []int
	daysOfTheYear  []int
	daysOfTheMonth []int
	hours          []int
	minutes        []int
	seconds        []int
	weekdays       weekdaySelector
}

func newFieldEngine(r Rule, anchor calendar.Wall) fieldEngine {
	e := fieldEngine{
		cal:            r.Calendar,
		freq:           r.Frequency,
		anchor:         anchor,
		weeks:          sortedSet(r.Weeks),
		daysOfTheYear:  sortedSet(r.DaysOfTheYear),
		daysOfTheMonth: sortedSet(r.DaysOfTheMonth),
		hours:          sortedSet(r.Hours),
		minutes:        sortedSet(r.Minutes),
		seconds:        sortedSet(r.Seconds),
		hasMonths:      len(r.Months) > 0,
	}
	var months []int
	for _, m := range r.Months {
		if !m.Leap && m.Index >= 1 && m.Index <= 12 {
			months = append(months, m.Index)
		}
	}
	e.months = sortedSet(months)
	e.weekdays = weekdaySelector{
		cal:       r.Calendar,
		selectors: slices.Clone(r.Weekdays),
		bound:     weekdayBoundary(r.Frequency, e.hasMonths, len(r.Weeks) > 0),
	}
	return e
}

func (e fieldEngine) declared(f field) bool {
	switch f {
	case fieldMonths:
		return e.hasMonths
	case fieldWeeks:
		return len(e.weeks) > 0
	case fieldDaysOfTheYear:
		return len(e.daysOfTheYear) > 0
	case fieldDaysOfTheMonth:
		return len(e.daysOfTheMonth) > 0
	case fieldWeekdays:
		return !e.weekdays.empty()
	case fieldHours:
		return len(e.hours) > 0
	case fieldMinutes:
		return len(e.minutes) > 0
	case fieldSeconds:
		return len(e.seconds) > 0
	}
	return false
}

func (e fieldEngine) expands(f field) bool {
	return e.declared(f) && roleOf(f, e.freq) == expand
}

// expand returns the period's tuples in ascending order without duplicates.
func (e fieldEngine) expand(p period) ([]calendar.Wall, skipUnit) {
	if e.freq.subDaily() {
		return e.expandClock(p.clock)
	}
	dates := e.dates(p)
	if len(dates) == 0 {
		return nil, skipNone
	}
	hours := e.valuesOr(fieldHours, e.hours, e.anchor.Hour)
	minutes := e.valuesOr(fieldMinutes, e.minutes, e.anchor.Minute)
	seconds := e.valuesOr(fieldSeconds, e.seconds, e.anchor.Second)
	return product(dates, hours, minutes, seconds), skipNone
}

// expandClock handles hourly, minutely and secondly periods. Components at
// or above the frequency come from the period's own clock and are filtered;
// finer ones expand or default to that clock.
func (e fieldEngine) expandClock(c calendar.Wall) ([]calendar.Wall, skipUnit) {
	if !e.dateMatches(c.Date) {
		return nil, skipDay
	}
	hours := []int{c.Hour}
	if e.declared(fieldHours) && !slices.Contains(e.hours, c.Hour) {
		return nil, skipHour
	}
	minutes := e.valuesOr(fieldMinutes, e.minutes, c.Minute)
	if roleOf(fieldMinutes, e.freq) == filter {
		minutes = []int{c.Minute}
		if e.declared(fieldMinutes) && !slices.Contains(e.minutes, c.Minute) {
			return nil, skipMinute
		}
	}
	seconds := e.valuesOr(fieldSeconds, e.seconds, c.Second)
	if roleOf(fieldSeconds, e.freq) == filter {
		seconds = []int{c.Second}
		if e.declared(fieldSeconds) && !slices.Contains(e.seconds, c.Second) {
			return nil, skipNone
		}
	}
	return product([]calendar.Date{c.Date}, hours, minutes, seconds), skipNone
}

func (e fieldEngine) valuesOr(f field, declared []int, fallback int) []int {
	if e.expands(f) {
		return declared
	}
	return []int{fallback}
}

// dates returns the candidate days of a daily or coarser period. Days that
// do not exist (the 30th of February) are kept when nothing but the month
// and day constrain them, so the matching policy can decide their fate.
func (e fieldEngine) dates(p period) []calendar.Date {
	var candidates []calendar.Date
	switch e.freq {
	case Yearly:
		candidates = e.yearDates(p.year)
	case Monthly:
		if e.hasMonths && !slices.Contains(e.months, int(p.month)) {
			return nil
		}
		if e.expands(fieldWeekdays) && !e.declared(fieldDaysOfTheMonth) {
			candidates = e.monthDays(p.year, p.month)
		} else {
			days := e.valuesOr(fieldDaysOfTheMonth, e.daysOfTheMonth, e.anchor.Day)
			candidates = e.explicitDays(p.year, p.month, days)
		}
	case Weekly:
		if e.declared(fieldWeekdays) {
			for i := 0; i < 7; i++ {
				candidates = append(candidates, e.cal.AddDays(p.start, i))
			}
		} else {
			candidates = []calendar.Date{e.cal.AddDays(p.start, e.weekdayOffset(e.anchorWeekday()))}
		}
	case Daily:
		candidates = []calendar.Date{p.start}
	}

	out := candidates[:0:0]
	for _, d := range candidates {
		if e.cal.ValidDate(d) {
			if e.dateMatches(d) {
				out = append(out, d)
			}
			continue
		}
		if !e.declared(fieldWeekdays) && !e.declared(fieldWeeks) && !e.declared(fieldDaysOfTheYear) {
			out = append(out, d)
		}
	}
	slices.SortFunc(out, calendar.Date.Compare)
	return slices.Compact(out)
}

func (e fieldEngine) yearDates(year int) []calendar.Date {
	switch {
	case e.expands(fieldWeeks):
		return e.weekDates(year)
	case e.expands(fieldDaysOfTheYear):
		var out []calendar.Date
		diy := e.cal.DaysInYear(year)
		jan1 := calendar.Date{Year: year, Month: time.January, Day: 1}
		for _, v := range e.daysOfTheYear {
			if idx, ok := ordinal(v, diy); ok {
				out = append(out, e.cal.AddDays(jan1, idx-1))
			}
		}
		return out
	case e.expands(fieldWeekdays) && !e.declared(fieldDaysOfTheMonth):
		var out []calendar.Date
		months := e.months
		if !e.hasMonths {
			months = []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
		}
		for _, m := range months {
			out = append(out, e.monthDays(year, time.Month(m))...)
		}
		return out
	}

	months := e.months
	if !e.hasMonths {
		months = []int{int(e.anchor.Month)}
	}
	days := e.valuesOr(fieldDaysOfTheMonth, e.daysOfTheMonth, e.anchor.Day)
	var out []calendar.Date
	for _, m := range months {
		out = append(out, e.explicitDays(year, time.Month(m), days)...)
	}
	return out
}

// weekDates lists the days of the declared weeks of a week-numbering year.
// Without weekday selectors each week contributes the day sharing the
// weekday of the anchor's month and day in that year.
func (e fieldEngine) weekDates(year int) []calendar.Date {
	n := e.cal.WeeksInYear(year)
	first := e.cal.StartOfWeekYear(year)
	base := e.clampedDate(year, e.anchor.Month, e.anchor.Day)
	offset := e.weekdayOffset(e.cal.Weekday(base))

	var out []calendar.Date
	for _, w := range e.weeks {
		idx, ok := ordinal(w, n)
		if !ok {
			continue
		}
		start := e.cal.AddDays(first, 7*(idx-1))
		if e.declared(fieldWeekdays) {
			for i := 0; i < 7; i++ {
				out = append(out, e.cal.AddDays(start, i))
			}
			continue
		}
		out = append(out, e.cal.AddDays(start, offset))
	}
	return out
}

func (e fieldEngine) monthDays(year int, month time.Month) []calendar.Date {
	dim := e.cal.DaysInMonth(year, month)
	out := make([]calendar.Date, 0, dim)
	for d := 1; d <= dim; d++ {
		out = append(out, calendar.Date{Year: year, Month: month, Day: d})
	}
	return out
}

// explicitDays builds the given days of a month. Positive days past the end
// of the month are kept as invalid dates; negative days that fall before
// the first are dropped.
func (e fieldEngine) explicitDays(year int, month time.Month, days []int) []calendar.Date {
	dim := e.cal.DaysInMonth(year, month)
	out := make([]calendar.Date, 0, len(days))
	for _, v := range days {
		day := v
		if v < 0 {
			day = dim + 1 + v
			if day < 1 {
				continue
			}
		}
		out = append(out, calendar.Date{Year: year, Month: month, Day: day})
	}
	return out
}

// dateMatches applies every declared date-level constraint to a real day.
func (e fieldEngine) dateMatches(d calendar.Date) bool {
	if e.hasMonths && !slices.Contains(e.months, int(d.Month)) {
		return false
	}
	if len(e.weeks) > 0 {
		y, w := e.cal.WeekOfYear(d)
		if !matchesOrdinal(e.weeks, w, e.cal.WeeksInYear(y)) {
			return false
		}
	}
	if len(e.daysOfTheYear) > 0 && !matchesOrdinal(e.daysOfTheYear, e.cal.DayOfYear(d), e.cal.DaysInYear(d.Year)) {
		return false
	}
	if len(e.daysOfTheMonth) > 0 && !matchesOrdinal(e.daysOfTheMonth, d.Day, e.cal.DaysInMonth(d.Year, d.Month)) {
		return false
	}
	if !e.weekdays.empty() && !e.weekdays.matches(d) {
		return false
	}
	return true
}

func (e fieldEngine) anchorWeekday() time.Weekday {
	return e.cal.Weekday(e.anchor.Date)
}

// weekdayOffset is the distance of wd from the first day of the week.
func (e fieldEngine) weekdayOffset(wd time.Weekday) int {
	return (int(wd) - int(e.cal.FirstWeekday()) + 7) % 7
}

func (e fieldEngine) clampedDate(year int, month time.Month, day int) calendar.Date {
	if dim := e.cal.DaysInMonth(year, month); day > dim {
		day = dim
	}
	return calendar.Date{Year: year, Month: month, Day: day}
}

// ordinal resolves a signed 1-based ordinal against n items.
func ordinal(v, n int) (int, bool) {
	if v < 0 {
		v = n + 1 + v
	}
	return v, v >= 1 && v <= n
}

func matchesOrdinal(values []int, actual, n int) bool {
	for _, v := range values {
		if idx, ok := ordinal(v, n); ok && idx == actual {
			return true
		}
	}
	return false
}

func product(dates []calendar.Date, hours, minutes, seconds []int) []calendar.Wall {
	out := make([]calendar.Wall, 0, len(dates)*len(hours)*len(minutes)*len(seconds))
	for _, d := range dates {
		for _, h := range hours {
			for _, m := range minutes {
				for _, s := range seconds {
					out = append(out, calendar.At(d, h, m, s))
				}
			}
		}
	}
	return out
}

func sortedSet(values []int) []int {
	out := slices.Clone(values)
	slices.Sort(out)
	return slices.Compact(out)
}
