package recurrence

import (
	"errors"
	"testing"
	"time"

	"github.com/cyp0633/librecur/calendar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	cal := calendar.MustNew(time.UTC)
	tests := []struct {
		name   string
		modify func(*Rule)
		want   error
	}{
		{"valid", func(r *Rule) {}, nil},
		{"no calendar", func(r *Rule) { r.Calendar = nil }, ErrNoCalendar},
		{"bad frequency", func(r *Rule) { r.Frequency = Secondly + 1 }, ErrInvalidFrequency},
		{"zero interval", func(r *Rule) { r.Interval = 0 }, ErrInvalidInterval},
		{"zero count", func(r *Rule) { r.End = AfterOccurrences(0) }, ErrInvalidCount},
		{"zero week", func(r *Rule) { r.Weeks = []int{0} }, ErrZeroOrdinal},
		{"zero set position", func(r *Rule) { r.SetPositions = []int{1, 0} }, ErrZeroOrdinal},
		{"month 14", func(r *Rule) { r.Months = []Month{M(14)} }, ErrOutOfRange},
		{"minute 60", func(r *Rule) { r.Minutes = []int{60} }, ErrOutOfRange},
		{"negative second", func(r *Rule) { r.Seconds = []int{-1} }, ErrOutOfRange},
		{"weekday 7", func(r *Rule) { r.Weekdays = []Weekday{{Day: 7}} }, ErrOutOfRange},
		{"policy", func(r *Rule) { r.MatchingPolicy = Strict + 1 }, ErrOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRule(cal, Monthly)
			tt.modify(&r)
			err := r.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}

	// Out-of-range ordinals are not errors; they select nothing.
	r := NewRule(cal, Yearly)
	r.DaysOfTheYear = []int{400, -400}
	r.Weeks = []int{60}
	assert.NoError(t, r.Validate())
}

func TestRuleCloneAndEqual(t *testing.T) {
	r := NewRule(calendar.MustNew(time.UTC), Yearly)
	r.Months = []Month{M(3), LeapMonth(4)}
	r.Weekdays = []Weekday{Nth(-1, time.Sunday)}
	r.End = AfterDate(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))

	c := r.Clone()
	require.True(t, r.Equal(c))
	c.Months[0] = M(5)
	assert.Equal(t, M(3), r.Months[0])
	assert.False(t, r.Equal(c))

	other := r.Clone()
	other.Calendar = calendar.ISO8601(time.UTC)
	assert.False(t, r.Equal(other))

	empty := NewRule(calendar.MustNew(time.UTC), Daily)
	empty.Hours = []int{}
	assert.True(t, empty.Equal(NewRule(calendar.MustNew(time.UTC), Daily)))
}

func TestEnd(t *testing.T) {
	assert.True(t, Never().IsNever())
	assert.False(t, Never().Count().IsPresent())

	n, ok := AfterOccurrences(3).Count().Get()
	assert.True(t, ok)
	assert.Equal(t, 3, n)

	d := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, AfterDate(d).Equal(AfterDate(d.In(time.FixedZone("x", 3600)))))
	assert.Equal(t, "after 3 occurrences", AfterOccurrences(3).String())
}

func TestNamedValues(t *testing.T) {
	for f := Yearly; f <= Secondly; f++ {
		got, err := ParseFrequency(f.String())
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}
	_, err := ParseFrequency("fortnightly")
	assert.ErrorIs(t, err, ErrOutOfRange)

	for p := NextTimePreservingSmallerComponents; p <= Strict; p++ {
		got, err := ParseMatchingPolicy(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
	got, err := ParseRepeatedTimePolicy("last")
	require.NoError(t, err)
	assert.Equal(t, Last, got)

	assert.Equal(t, "5L", LeapMonth(5).String())
	assert.Equal(t, "-1 Friday", Nth(-1, time.Friday).String())
	assert.Equal(t, "every Monday", Every(time.Monday).String())
}
