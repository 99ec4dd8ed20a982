package recurrence

import (
	"testing"
	"time"

	"github.com/cyp0633/librecur/calendar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teambition/rrule-go"
)

func TestParseRRULE(t *testing.T) {
	cal := calendar.MustNew(time.UTC)

	r, err := ParseRRULE("RRULE:FREQ=MONTHLY;INTERVAL=2;COUNT=10;BYDAY=+1MO,-1FR;BYHOUR=9", cal)
	require.NoError(t, err)
	assert.Equal(t, Monthly, r.Frequency)
	assert.Equal(t, 2, r.Interval)
	assert.Equal(t, []Weekday{Nth(1, time.Monday), Nth(-1, time.Friday)}, r.Weekdays)
	assert.Equal(t, []int{9}, r.Hours)
	assert.Equal(t, Strict, r.MatchingPolicy)
	n, _ := r.End.Count().Get()
	assert.Equal(t, 10, n)
	assert.Equal(t, time.Sunday, r.Calendar.FirstWeekday(), "calendar week convention kept without WKST")

	r, err = ParseRRULE("FREQ=WEEKLY;WKST=MO;UNTIL=20240301T000000Z", cal)
	require.NoError(t, err)
	assert.Equal(t, time.Monday, r.Calendar.FirstWeekday())
	until, ok := r.End.Date().Get()
	require.True(t, ok)
	assert.True(t, until.Equal(time.Date(2024, 3, 1, 0, 0, 1, 0, time.UTC)), "UNTIL is inclusive: %s", until)

	r, err = ParseRRULE("FREQ=YEARLY;BYMONTH=2,5L;BYMONTHDAY=30;RSCALE=GREGORIAN;SKIP=BACKWARD;X-REPEATED=LAST", cal)
	require.NoError(t, err)
	assert.Equal(t, []Month{M(2), LeapMonth(5)}, r.Months)
	assert.Equal(t, PreviousTimePreservingSmallerComponents, r.MatchingPolicy)
	assert.Equal(t, Last, r.RepeatedTimePolicy)
}

func TestParseRRULESkip(t *testing.T) {
	cal := calendar.MustNew(time.UTC)
	tests := map[string]MatchingPolicy{
		"FREQ=YEARLY":                                Strict,
		"FREQ=YEARLY;RSCALE=GREGORIAN;SKIP=OMIT":     Strict,
		"FREQ=YEARLY;RSCALE=GREGORIAN;SKIP=FORWARD":  NextTimePreservingSmallerComponents,
		"FREQ=YEARLY;SKIP=FORWARD;X-SKIP=NEXT-TIME":  NextTime,
		"FREQ=YEARLY;RSCALE=GREGORIAN;SKIP=BACKWARD": PreviousTimePreservingSmallerComponents,
		"FREQ=YEARLY;RSCALE=gregorian;SKIP=backward": PreviousTimePreservingSmallerComponents,
	}
	for text, want := range tests {
		t.Run(text, func(t *testing.T) {
			r, err := ParseRRULE(text, cal)
			require.NoError(t, err)
			assert.Equal(t, want, r.MatchingPolicy)
		})
	}
}

func TestParseRRULEErrors(t *testing.T) {
	cal := calendar.MustNew(time.UTC)
	tests := map[string]error{
		"FREQ=YEARLY;RSCALE=HEBREW": ErrUnsupported,
		"FREQ=YEARLY;SKIP=SIDEWAYS": ErrOutOfRange,
		"FREQ=YEARLY;BYEASTER=1":    ErrUnsupported,
		"FREQ=DAILY;INTERVAL=-1":    ErrInvalidInterval,
		"FREQ=MONTHLY;BYMONTHDAY=0": ErrZeroOrdinal,
	}
	for text, want := range tests {
		t.Run(text, func(t *testing.T) {
			_, err := ParseRRULE(text, cal)
			assert.ErrorIs(t, err, want)
		})
	}

	for _, text := range []string{"FREQ=DAILY;BYMONTH=X", "FREQ=DAILY;NOPE", "FREQ=FORTNIGHTLY", "INTERVAL=2"} {
		_, err := ParseRRULE(text, cal)
		assert.Error(t, err, text)
	}

	_, err := ParseRRULE("FREQ=DAILY", nil)
	assert.ErrorIs(t, err, ErrNoCalendar)
}

func TestFormatRRULE(t *testing.T) {
	cal := calendar.MustNew(time.UTC)

	r := NewRule(cal, Monthly)
	r.Weekdays = []Weekday{Nth(1, time.Monday), Nth(-1, time.Friday)}
	r.End = AfterOccurrences(10)
	r.MatchingPolicy = Strict
	text, err := FormatRRULE(r)
	require.NoError(t, err)
	assert.Equal(t, "FREQ=MONTHLY;INTERVAL=1;WKST=SU;COUNT=10;BYDAY=+1MO,-1FR", text)

	r.MatchingPolicy = NextTime
	r.RepeatedTimePolicy = Last
	r.Months = []Month{M(1), LeapMonth(5)}
	text, err = FormatRRULE(r)
	require.NoError(t, err)
	assert.Equal(t, "FREQ=MONTHLY;INTERVAL=1;WKST=SU;COUNT=10;BYDAY=+1MO,-1FR;BYMONTH=1,5L;RSCALE=GREGORIAN;SKIP=FORWARD;X-SKIP=NEXT-TIME;X-REPEATED=LAST", text)

	_, err = ToROption(r)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestRRULERoundTrip(t *testing.T) {
	la := pacific(t)
	rules := []Rule{NewRule(la, Daily)}

	r := NewRule(la, Yearly)
	r.Months = []Month{M(2), LeapMonth(3)}
	r.DaysOfTheMonth = []int{29, -1}
	r.SetPositions = []int{1}
	r.MatchingPolicy = PreviousTimePreservingSmallerComponents
	r.End = AfterDate(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))
	rules = append(rules, r)

	r = NewRule(calendar.ISO8601(time.UTC), Weekly)
	r.Interval = 3
	r.Weekdays = []Weekday{Every(time.Tuesday), Every(time.Sunday)}
	r.Hours = []int{8, 20}
	r.Minutes = []int{15}
	r.MatchingPolicy = NextTime
	r.RepeatedTimePolicy = Last
	rules = append(rules, r)

	r = NewRule(la, Hourly)
	r.Weeks = []int{-1}
	r.DaysOfTheYear = []int{100}
	r.Seconds = []int{0, 30}
	r.MatchingPolicy = Strict
	rules = append(rules, r)

	for _, r := range rules {
		text, err := FormatRRULE(r)
		require.NoError(t, err)
		t.Run(text, func(t *testing.T) {
			got, err := ParseRRULE(text, r.Calendar)
			require.NoError(t, err)
			assert.True(t, r.Equal(got), "parsed back as %+v", got)
		})
	}
}

// TestAgainstRRuleGo compares expansions of plain RFC 5545 rules with
// rrule-go. ISO weeks match its default WKST=MO.
func TestAgainstRRuleGo(t *testing.T) {
	cal := calendar.ISO8601(time.UTC)
	anchor := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	texts := []string{
		"FREQ=DAILY;COUNT=20;BYHOUR=9,10;BYMINUTE=0,30",
		"FREQ=WEEKLY;INTERVAL=2;COUNT=15;BYDAY=MO,FR",
		"FREQ=MONTHLY;COUNT=24;BYDAY=+1MO,-1FR",
		"FREQ=MONTHLY;COUNT=12;BYDAY=MO,TU,WE,TH,FR;BYSETPOS=-1",
		"FREQ=MONTHLY;COUNT=12;BYMONTHDAY=31",
		"FREQ=YEARLY;COUNT=8;BYMONTH=1,5;BYMONTHDAY=3,10",
		"FREQ=YEARLY;COUNT=5;BYDAY=+20MO",
		"FREQ=YEARLY;COUNT=6;BYYEARDAY=100,-100",
		"FREQ=YEARLY;COUNT=4;BYMONTH=2;BYMONTHDAY=29",
		"FREQ=HOURLY;INTERVAL=7;COUNT=30;BYDAY=SA,SU",
		"FREQ=MINUTELY;INTERVAL=15;COUNT=10;BYHOUR=9,17",
		"FREQ=DAILY;UNTIL=20240215T090000Z;BYDAY=TU",
	}
	for _, text := range texts {
		t.Run(text, func(t *testing.T) {
			o, err := rrule.StrToROption(text)
			require.NoError(t, err)
			o.Dtstart = anchor
			oracle, err := rrule.NewRRule(*o)
			require.NoError(t, err)
			want := oracle.All()
			require.NotEmpty(t, want)

			r, err := ParseRRULE(text, cal)
			require.NoError(t, err)
			seq, err := r.Recurrences(anchor)
			require.NoError(t, err)
			var got []time.Time
			for tm := range seq {
				got = append(got, tm)
			}

			require.Len(t, got, len(want))
			for i := range want {
				assert.True(t, want[i].Equal(got[i]), "occurrence %d: want %s, got %s", i, want[i], got[i])
			}
		})
	}
}

func TestROptionConversion(t *testing.T) {
	cal := calendar.MustNew(time.UTC)
	r := NewRule(cal, Weekly)
	r.Weekdays = []Weekday{Every(time.Saturday)}
	r.End = AfterDate(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	o, err := ToROption(r)
	require.NoError(t, err)
	assert.Equal(t, rrule.WEEKLY, o.Freq)
	assert.Equal(t, rrule.SU, o.Wkst)
	assert.Equal(t, []rrule.Weekday{rrule.SA}, o.Byweekday)
	assert.True(t, o.Until.Equal(time.Date(2024, 5, 31, 23, 59, 59, 0, time.UTC)))

	back, err := FromROption(o, cal)
	require.NoError(t, err)
	back.MatchingPolicy = r.MatchingPolicy
	assert.True(t, r.Equal(back))

	_, err = FromROption(nil, cal)
	assert.ErrorIs(t, err, ErrUnsupported)
}
