package recurrence

import (
	"testing"
	"time"

	"github.com/cyp0633/librecur/calendar"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoles(t *testing.T) {
	tests := []struct {
		f    field
		freq Frequency
		want role
	}{
		{fieldMonths, Yearly, expand},
		{fieldMonths, Monthly, filter},
		{fieldDaysOfTheMonth, Monthly, expand},
		{fieldDaysOfTheMonth, Weekly, filter},
		{fieldWeekdays, Yearly, expand},
		{fieldWeekdays, Monthly, expand},
		{fieldWeekdays, Weekly, expand},
		{fieldWeekdays, Daily, filter},
		{fieldHours, Daily, expand},
		{fieldHours, Hourly, filter},
		{fieldMinutes, Hourly, expand},
		{fieldSeconds, Minutely, expand},
		{fieldSeconds, Secondly, filter},
	}
	for _, tt := range tests {
		t.Run(tt.f.String()+"/"+tt.freq.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, roleOf(tt.f, tt.freq))
		})
	}
}

func TestSelectPositions(t *testing.T) {
	items := []string{"a", "b", "c", "d"}
	tests := []struct {
		name      string
		positions []int
		want      []string
	}{
		{"empty keeps all", nil, items},
		{"first", []int{1}, []string{"a"}},
		{"last", []int{-1}, []string{"d"}},
		{"order preserved", []int{-1, 1}, []string{"a", "d"}},
		{"duplicates collapse", []int{2, -3}, []string{"b"}},
		{"out of range", []int{5, -5}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, selectPositions(items, tt.positions))
		})
	}
}

func TestWeekdayBoundary(t *testing.T) {
	assert.Equal(t, boundaryWeek, weekdayBoundary(Weekly, false, false))
	assert.Equal(t, boundaryWeek, weekdayBoundary(Yearly, true, true))
	assert.Equal(t, boundaryYear, weekdayBoundary(Yearly, false, false))
	assert.Equal(t, boundaryMonth, weekdayBoundary(Yearly, true, false))
	assert.Equal(t, boundaryMonth, weekdayBoundary(Monthly, false, false))
	assert.Equal(t, boundaryMonth, weekdayBoundary(Daily, false, false))
}

func TestWeekdaySelector(t *testing.T) {
	cal := calendar.MustNew(time.UTC)

	month := weekdaySelector{cal: cal, selectors: []Weekday{Nth(2, time.Tuesday), Nth(-1, time.Tuesday)}, bound: boundaryMonth}
	assert.True(t, month.matches(calendar.Date{Year: 2024, Month: time.July, Day: 9}))
	assert.True(t, month.matches(calendar.Date{Year: 2024, Month: time.July, Day: 30}))
	assert.False(t, month.matches(calendar.Date{Year: 2024, Month: time.July, Day: 16}))

	year := weekdaySelector{cal: cal, selectors: []Weekday{Nth(-1, time.Sunday)}, bound: boundaryYear}
	assert.True(t, year.matches(calendar.Date{Year: 2024, Month: time.December, Day: 29}))
	assert.False(t, year.matches(calendar.Date{Year: 2024, Month: time.November, Day: 24}))

	every := weekdaySelector{cal: cal, selectors: []Weekday{Every(time.Monday), Nth(1, time.Friday)}, bound: boundaryMonth}
	assert.True(t, every.matches(calendar.Date{Year: 2024, Month: time.July, Day: 22}))
	assert.True(t, every.matches(calendar.Date{Year: 2024, Month: time.July, Day: 5}))
	assert.False(t, every.matches(calendar.Date{Year: 2024, Month: time.July, Day: 12}))
}

func TestResolverInvalidDates(t *testing.T) {
	cal := calendar.MustNew(time.UTC)
	feb30 := calendar.At(calendar.Date{Year: 2023, Month: time.February, Day: 30}, 10, 15, 0)

	tests := []struct {
		policy MatchingPolicy
		want   []time.Time
	}{
		{NextTimePreservingSmallerComponents, []time.Time{time.Date(2023, time.March, 1, 10, 15, 0, 0, time.UTC)}},
		{NextTime, []time.Time{time.Date(2023, time.March, 1, 0, 0, 0, 0, time.UTC)}},
		{PreviousTimePreservingSmallerComponents, []time.Time{time.Date(2023, time.February, 28, 10, 15, 0, 0, time.UTC)}},
		{Strict, nil},
	}
	for _, tt := range tests {
		t.Run(tt.policy.String(), func(t *testing.T) {
			r := dateResolver{cal: cal, matching: tt.policy}
			got := r.resolve(feb30, mo.None[int]())
			require.Len(t, got, len(tt.want))
			for i := range got {
				assert.True(t, tt.want[i].Equal(got[i]), "got %s", got[i])
			}
		})
	}
}

func TestResolverRepeatedPrefersOffset(t *testing.T) {
	cal := pacific(t)
	w := calendar.At(calendar.Date{Year: 2024, Month: time.November, Day: 3}, 1, 30, 0)

	r := dateResolver{cal: cal, repeated: First}
	got := r.resolve(w, mo.Some(-8*3600))
	require.Len(t, got, 1)
	assert.Equal(t, int64(1730626200), got[0].Unix())

	got = r.resolve(w, mo.None[int]())
	require.Len(t, got, 1)
	assert.Equal(t, int64(1730622600), got[0].Unix())
}

func TestFieldEngineMonthlyInvalidDays(t *testing.T) {
	r := NewRule(calendar.MustNew(time.UTC), Monthly)
	r.DaysOfTheMonth = []int{31, -31}
	e := newFieldEngine(r, calendar.At(calendar.Date{Year: 2024, Month: time.January, Day: 1}, 9, 0, 0))

	// April has 30 days: the 31st stays as an invalid date, -31 drops out.
	tuples, skip := e.expand(period{year: 2024, month: time.April})
	assert.Equal(t, skipNone, skip)
	require.Len(t, tuples, 1)
	assert.Equal(t, calendar.Date{Year: 2024, Month: time.April, Day: 31}, tuples[0].Date)
}

func TestFieldEngineSubDailySkips(t *testing.T) {
	r := NewRule(calendar.MustNew(time.UTC), Minutely)
	r.Weekdays = []Weekday{Every(time.Monday)}
	r.Hours = []int{9}
	r.Minutes = []int{30}
	anchor := calendar.At(calendar.Date{Year: 2024, Month: time.July, Day: 1}, 0, 0, 0)
	e := newFieldEngine(r, anchor)

	_, skip := e.expandClock(calendar.At(calendar.Date{Year: 2024, Month: time.July, Day: 2}, 9, 30, 0))
	assert.Equal(t, skipDay, skip)
	_, skip = e.expandClock(calendar.At(anchor.Date, 8, 30, 0))
	assert.Equal(t, skipHour, skip)
	_, skip = e.expandClock(calendar.At(anchor.Date, 9, 29, 0))
	assert.Equal(t, skipMinute, skip)

	tuples, skip := e.expandClock(calendar.At(anchor.Date, 9, 30, 0))
	assert.Equal(t, skipNone, skip)
	assert.Equal(t, []calendar.Wall{calendar.At(anchor.Date, 9, 30, 0)}, tuples)
}
