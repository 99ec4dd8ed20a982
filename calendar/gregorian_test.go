package calendar

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustLoad(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}

func TestNew(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrNoLocation)

	_, err = New(time.UTC, WithMinimumDaysInFirstWeek(0))
	assert.ErrorIs(t, err, ErrInvalidFirstDays)

	g, err := New(time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Sunday, g.FirstWeekday())
	assert.Equal(t, 1, g.MinimumDaysInFirstWeek())
	assert.Equal(t, IdentifierGregorian, g.Identifier())

	iso := ISO8601(time.UTC)
	assert.Equal(t, time.Monday, iso.FirstWeekday())
	assert.Equal(t, 4, iso.MinimumDaysInFirstWeek())
}

func TestDateArithmetic(t *testing.T) {
	g := MustNew(time.UTC)

	assert.True(t, g.IsLeapYear(2024))
	assert.True(t, g.IsLeapYear(2000))
	assert.False(t, g.IsLeapYear(1900))
	assert.Equal(t, 29, g.DaysInMonth(2024, time.February))
	assert.Equal(t, 28, g.DaysInMonth(2023, time.February))
	assert.Equal(t, 366, g.DaysInYear(2024))

	assert.False(t, g.ValidDate(Date{2023, time.February, 29}))
	assert.False(t, g.ValidDate(Date{2024, time.April, 31}))
	assert.True(t, g.ValidDate(Date{2024, time.February, 29}))

	assert.Equal(t, Date{2024, time.March, 1}, g.AddDays(Date{2024, time.February, 28}, 2))
	assert.Equal(t, 60, g.DayOfYear(Date{2024, time.February, 29}))
	assert.Equal(t, 366, g.DaysBetween(Date{2024, time.January, 1}, Date{2025, time.January, 1}))
	assert.Equal(t, -1, g.DaysBetween(Date{2024, time.January, 2}, Date{2024, time.January, 1}))

	y, m := g.AddMonths(2024, time.November, 3)
	assert.Equal(t, 2025, y)
	assert.Equal(t, time.February, m)
	y, m = g.AddMonths(2024, time.January, -1)
	assert.Equal(t, 2023, y)
	assert.Equal(t, time.December, m)
}

func TestWeekNumbering(t *testing.T) {
	tests := []struct {
		name     string
		cal      *Gregorian
		date     Date
		wantYear int
		wantWeek int
	}{
		{"sunday first, jan 1 monday", MustNew(time.UTC), Date{2024, time.January, 1}, 2024, 1},
		{"sunday first, last week spills into next year", MustNew(time.UTC), Date{2024, time.December, 29}, 2025, 1},
		{"sunday first, december 28", MustNew(time.UTC), Date{2024, time.December, 28}, 2024, 52},
		{"iso, jan 1 2021 belongs to 2020", ISO8601(time.UTC), Date{2021, time.January, 1}, 2020, 53},
		{"iso, dec 30 2024 is week 1 of 2025", ISO8601(time.UTC), Date{2024, time.December, 30}, 2025, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			y, w := tt.cal.WeekOfYear(tt.date)
			assert.Equal(t, tt.wantYear, y)
			assert.Equal(t, tt.wantWeek, w)
		})
	}

	iso := ISO8601(time.UTC)
	assert.Equal(t, 53, iso.WeeksInYear(2020))
	assert.Equal(t, 52, iso.WeeksInYear(2021))
	assert.Equal(t, Date{2023, time.December, 31}, MustNew(time.UTC).StartOfWeekYear(2024))
	assert.Equal(t, Date{2024, time.January, 1}, iso.StartOfWeekYear(2024))
}

func TestResolve(t *testing.T) {
	la := mustLoad(t, "America/Los_Angeles")
	g := MustNew(la)

	t.Run("unique", func(t *testing.T) {
		res := g.Resolve(At(Date{2024, time.July, 1}, 9, 0, 0))
		require.Equal(t, Unique, res.Kind)
		assert.Equal(t, time.Date(2024, time.July, 1, 16, 0, 0, 0, time.UTC).Unix(), res.Instants[0].Unix())
	})

	t.Run("repeated", func(t *testing.T) {
		res := g.Resolve(At(Date{2024, time.November, 3}, 1, 30, 0))
		require.Equal(t, Repeated, res.Kind)
		require.Len(t, res.Instants, 2)
		assert.Equal(t, int64(1730622600), res.Instants[0].Unix())
		assert.Equal(t, int64(1730626200), res.Instants[1].Unix())
	})

	t.Run("skipped", func(t *testing.T) {
		res := g.Resolve(At(Date{2024, time.March, 10}, 2, 30, 0))
		require.Equal(t, Skipped, res.Kind)
		assert.Equal(t, Wall{Date{2024, time.March, 10}, 3, 30, 0}, g.Components(res.Forward))
		assert.Equal(t, Wall{Date{2024, time.March, 10}, 1, 30, 0}, g.Components(res.Backward))
		assert.Equal(t, Wall{Date{2024, time.March, 10}, 3, 0, 0}, g.Components(res.Transition))
	})

	t.Run("invalid", func(t *testing.T) {
		assert.Equal(t, Invalid, g.Resolve(At(Date{2023, time.February, 29}, 9, 0, 0)).Kind)
		assert.Equal(t, Invalid, g.Resolve(At(Date{2024, time.July, 1}, 24, 0, 0)).Kind)
	})
}

func TestWallCompare(t *testing.T) {
	a := At(Date{2024, time.January, 1}, 9, 0, 0)
	b := At(Date{2024, time.January, 1}, 9, 0, 30)
	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 1, b.Compare(a))
	assert.Equal(t, 0, a.Compare(a))
	assert.Equal(t, "2024-01-01T09:00:30", b.String())
}
