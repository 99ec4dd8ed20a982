package recurrence

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cyp0633/librecur/calendar"
	"github.com/teambition/rrule-go"
)

// rruleWeekdays is indexed by rrule-go's day numbering, Monday first.
var rruleWeekdays = [...]rrule.Weekday{rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA, rrule.SU}

func toRRuleWeekday(d time.Weekday, n int) rrule.Weekday {
	wd := rruleWeekdays[(int(d)+6)%7]
	return wd.Nth(n)
}

func fromRRuleWeekday(wd rrule.Weekday) Weekday {
	return Weekday{Day: time.Weekday((wd.Day() + 1) % 7), N: wd.N()}
}

var rruleFrequencies = [...]rrule.Frequency{
	Yearly:   rrule.YEARLY,
	Monthly:  rrule.MONTHLY,
	Weekly:   rrule.WEEKLY,
	Daily:    rrule.DAILY,
	Hourly:   rrule.HOURLY,
	Minutely: rrule.MINUTELY,
	Secondly: rrule.SECONDLY,
}

// ToROption maps r onto rrule-go's option struct. Policies have no ROption
// counterpart and are dropped; leap months cannot be expressed at all.
//
// RRULE's UNTIL is inclusive while AfterDate is exclusive, so the bound is
// moved back by one second.
func ToROption(r Rule) (*rrule.ROption, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	o := &rrule.ROption{
		Freq:       rruleFrequencies[r.Frequency],
		Interval:   r.Interval,
		Wkst:       toRRuleWeekday(r.Calendar.FirstWeekday(), 0),
		Bysetpos:   r.SetPositions,
		Bymonthday: r.DaysOfTheMonth,
		Byyearday:  r.DaysOfTheYear,
		Byweekno:   r.Weeks,
		Byhour:     r.Hours,
		Byminute:   r.Minutes,
		Bysecond:   r.Seconds,
	}
	if n, ok := r.End.Count().Get(); ok {
		o.Count = n
	}
	if until, ok := r.End.Date().Get(); ok {
		o.Until = until.Add(-time.Second)
	}
	for _, m := range r.Months {
		if m.Leap {
			return nil, fmt.Errorf("%w: leap month %s", ErrUnsupported, m)
		}
		o.Bymonth = append(o.Bymonth, m.Index)
	}
	for _, wd := range r.Weekdays {
		o.Byweekday = append(o.Byweekday, toRRuleWeekday(wd.Day, wd.N))
	}
	return o, nil
}

// FromROption builds a rule over cal from an rrule-go option. A WKST that
// differs from cal's first weekday yields a Gregorian calendar with that
// first weekday. Dtstart is ignored; it is the caller's anchor.
func FromROption(o *rrule.ROption, cal Calendar) (Rule, error) {
	if o == nil {
		return Rule{}, fmt.Errorf("%w: nil option", ErrUnsupported)
	}
	if len(o.Byeaster) > 0 {
		return Rule{}, fmt.Errorf("%w: BYEASTER", ErrUnsupported)
	}
	freq := Frequency(-1)
	for f, rf := range rruleFrequencies {
		if rf == o.Freq {
			freq = Frequency(f)
		}
	}
	cal, err := withFirstWeekday(cal, fromRRuleWeekday(o.Wkst).Day)
	if err != nil {
		return Rule{}, err
	}

	r := NewRule(cal, freq)
	if o.Interval != 0 {
		r.Interval = o.Interval
	}
	switch {
	case o.Count > 0:
		r.End = AfterOccurrences(o.Count)
	case !o.Until.IsZero():
		r.End = AfterDate(o.Until.Add(time.Second))
	}
	for _, m := range o.Bymonth {
		r.Months = append(r.Months, M(m))
	}
	for _, wd := range o.Byweekday {
		r.Weekdays = append(r.Weekdays, fromRRuleWeekday(wd))
	}
	r.Weeks = o.Byweekno
	r.DaysOfTheYear = o.Byyearday
	r.DaysOfTheMonth = o.Bymonthday
	r.Hours = o.Byhour
	r.Minutes = o.Byminute
	r.Seconds = o.Bysecond
	r.SetPositions = o.Bysetpos
	// RFC 5545 ignores invalid dates; RFC 7529 SKIP overrides this when
	// parsing text.
	r.MatchingPolicy = Strict

	if err := r.Validate(); err != nil {
		return Rule{}, err
	}
	return r, nil
}

func withFirstWeekday(cal Calendar, first time.Weekday) (Calendar, error) {
	if cal == nil {
		return nil, ErrNoCalendar
	}
	if cal.FirstWeekday() == first {
		return cal, nil
	}
	if cal.Identifier() != calendar.IdentifierGregorian {
		return nil, fmt.Errorf("%w: WKST on calendar %q", ErrUnsupported, cal.Identifier())
	}
	g, err := calendar.New(cal.Location(),
		calendar.WithFirstWeekday(first),
		calendar.WithMinimumDaysInFirstWeek(cal.MinimumDaysInFirstWeek()))
	if err != nil {
		return nil, err
	}
	return g, nil
}

// RRULE parts understood here rather than by rrule-go.
const (
	partSkip     = "SKIP"
	partXSkip    = "X-SKIP"
	partRScale   = "RSCALE"
	partRepeated = "X-REPEATED"
	partByMonth  = "BYMONTH"

	skipOmit     = "OMIT"
	skipBackward = "BACKWARD"
	skipForward  = "FORWARD"
	xSkipNext    = "NEXT-TIME"
	repeatedLast = "LAST"
)

// ParseRRULE parses an RRULE value (with or without the "RRULE:" prefix)
// into a rule over cal. Besides RFC 5545 it accepts the RFC 7529 RSCALE and
// SKIP parts, leap months written as "5L", X-SKIP=NEXT-TIME for the next
// time policy and X-REPEATED=LAST for the repeated time policy. UNTIL
// values without a zone are read in cal's location. Without WKST the week
// convention of cal is kept.
func ParseRRULE(text string, cal Calendar) (Rule, error) {
	if cal == nil {
		return Rule{}, ErrNoCalendar
	}
	text = strings.TrimPrefix(strings.TrimSpace(text), "RRULE:")

	var (
		rest     []string
		months   []Month
		skip     string
		xskip    string
		repeated string
		hasWKST  bool
	)
	for _, part := range strings.Split(text, ";") {
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			return Rule{}, fmt.Errorf("recurrence: malformed RRULE part %q", part)
		}
		switch strings.ToUpper(key) {
		case partRScale:
			if !strings.EqualFold(value, calendar.IdentifierGregorian) {
				return Rule{}, fmt.Errorf("%w: RSCALE=%s", ErrUnsupported, value)
			}
		case partSkip:
			skip = strings.ToUpper(value)
		case partXSkip:
			xskip = strings.ToUpper(value)
		case partRepeated:
			repeated = strings.ToUpper(value)
		case partByMonth:
			ms, err := parseMonths(value)
			if err != nil {
				return Rule{}, err
			}
			months = ms
		default:
			hasWKST = hasWKST || strings.EqualFold(key, "WKST")
			rest = append(rest, part)
		}
	}

	o, err := rrule.StrToROptionInLocation(strings.Join(rest, ";"), cal.Location())
	if err != nil {
		return Rule{}, fmt.Errorf("recurrence: parse RRULE: %w", err)
	}
	if !hasWKST {
		o.Wkst = toRRuleWeekday(cal.FirstWeekday(), 0)
	}
	r, err := FromROption(o, cal)
	if err != nil {
		return Rule{}, err
	}
	r.Months = months

	switch skip {
	case "", skipOmit:
		r.MatchingPolicy = Strict
	case skipBackward:
		r.MatchingPolicy = PreviousTimePreservingSmallerComponents
	case skipForward:
		r.MatchingPolicy = NextTimePreservingSmallerComponents
		if xskip == xSkipNext {
			r.MatchingPolicy = NextTime
		}
	default:
		return Rule{}, fmt.Errorf("%w: SKIP=%s", ErrOutOfRange, skip)
	}
	if repeated == repeatedLast {
		r.RepeatedTimePolicy = Last
	}
	if err := r.Validate(); err != nil {
		return Rule{}, err
	}
	return r, nil
}

func parseMonths(value string) ([]Month, error) {
	var out []Month
	for _, s := range strings.Split(value, ",") {
		leap := strings.HasSuffix(strings.ToUpper(s), "L")
		if leap {
			s = s[:len(s)-1]
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("recurrence: BYMONTH value %q: %w", s, err)
		}
		out = append(out, Month{Index: n, Leap: leap})
	}
	return out, nil
}

// FormatRRULE renders r as an RRULE value without the "RRULE:" prefix.
// Rules that do not use the strict policy carry RSCALE and SKIP so that the
// policy survives a round trip through ParseRRULE.
func FormatRRULE(r Rule) (string, error) {
	plain := r.Clone()
	plain.Months = nil
	o, err := ToROption(plain)
	if err != nil {
		return "", err
	}
	parts := []string{o.RRuleString()}

	if len(r.Months) > 0 {
		ms := make([]string, len(r.Months))
		for i, m := range r.Months {
			ms[i] = m.String()
		}
		parts = append(parts, partByMonth+"="+strings.Join(ms, ","))
	}
	hasLeap := false
	for _, m := range r.Months {
		hasLeap = hasLeap || m.Leap
	}
	if r.MatchingPolicy != Strict || hasLeap {
		parts = append(parts, partRScale+"="+strings.ToUpper(r.Calendar.Identifier()))
	}
	switch r.MatchingPolicy {
	case NextTimePreservingSmallerComponents:
		parts = append(parts, partSkip+"="+skipForward)
	case NextTime:
		parts = append(parts, partSkip+"="+skipForward, partXSkip+"="+xSkipNext)
	case PreviousTimePreservingSmallerComponents:
		parts = append(parts, partSkip+"="+skipBackward)
	}
	if r.RepeatedTimePolicy == Last {
		parts = append(parts, partRepeated+"="+repeatedLast)
	}
	return strings.Join(parts, ";"), nil
}
