package recurrence

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cyp0633/librecur/calendar"
	"gopkg.in/yaml.v3"
)

// ruleRecord is the interchange form of a Rule shared by the JSON and YAML
// encodings.
type ruleRecord struct {
	Calendar           calendarRecord  `json:"calendar" yaml:"calendar"`
	Frequency          string          `json:"frequency" yaml:"frequency"`
	Interval           int             `json:"interval" yaml:"interval"`
	End                endRecord       `json:"end" yaml:"end"`
	MatchingPolicy     string          `json:"matchingPolicy" yaml:"matchingPolicy"`
	RepeatedTimePolicy string          `json:"repeatedTimePolicy" yaml:"repeatedTimePolicy"`
	Months             []monthRecord   `json:"months,omitempty" yaml:"months,omitempty"`
	Weeks              []int           `json:"weeks,omitempty" yaml:"weeks,omitempty,flow"`
	DaysOfTheYear      []int           `json:"daysOfTheYear,omitempty" yaml:"daysOfTheYear,omitempty,flow"`
	DaysOfTheMonth     []int           `json:"daysOfTheMonth,omitempty" yaml:"daysOfTheMonth,omitempty,flow"`
	Weekdays           []weekdayRecord `json:"weekdays,omitempty" yaml:"weekdays,omitempty"`
	Hours              []int           `json:"hours,omitempty" yaml:"hours,omitempty,flow"`
	Minutes            []int           `json:"minutes,omitempty" yaml:"minutes,omitempty,flow"`
	Seconds            []int           `json:"seconds,omitempty" yaml:"seconds,omitempty,flow"`
	SetPositions       []int           `json:"setPositions,omitempty" yaml:"setPositions,omitempty,flow"`
}

type calendarRecord struct {
	Identifier             string `json:"identifier" yaml:"identifier"`
	TimeZone               string `json:"timeZone" yaml:"timeZone"`
	FirstWeekday           int    `json:"firstWeekday" yaml:"firstWeekday"`
	MinimumDaysInFirstWeek int    `json:"minimumDaysInFirstWeek" yaml:"minimumDaysInFirstWeek"`
}

type endRecord struct {
	Type  string     `json:"type" yaml:"type"`
	Count int        `json:"count,omitempty" yaml:"count,omitempty"`
	Date  *time.Time `json:"date,omitempty" yaml:"date,omitempty"`
}

type monthRecord struct {
	Month int  `json:"month" yaml:"month"`
	Leap  bool `json:"leap,omitempty" yaml:"leap,omitempty"`
}

type weekdayRecord struct {
	Weekday int `json:"weekday" yaml:"weekday"`
	N       int `json:"n,omitempty" yaml:"n,omitempty"`
}

const (
	endTypeNever = "never"
	endTypeCount = "count"
	endTypeDate  = "date"
)

func (r Rule) record() (ruleRecord, error) {
	if r.Calendar == nil {
		return ruleRecord{}, ErrNoCalendar
	}
	rec := ruleRecord{
		Calendar: calendarRecord{
			Identifier:             r.Calendar.Identifier(),
			TimeZone:               r.Calendar.Location().String(),
			FirstWeekday:           int(r.Calendar.FirstWeekday()),
			MinimumDaysInFirstWeek: r.Calendar.MinimumDaysInFirstWeek(),
		},
		Frequency:          r.Frequency.String(),
		Interval:           r.Interval,
		MatchingPolicy:     r.MatchingPolicy.String(),
		RepeatedTimePolicy: r.RepeatedTimePolicy.String(),
		Weeks:              r.Weeks,
		DaysOfTheYear:      r.DaysOfTheYear,
		DaysOfTheMonth:     r.DaysOfTheMonth,
		Hours:              r.Hours,
		Minutes:            r.Minutes,
		Seconds:            r.Seconds,
		SetPositions:       r.SetPositions,
	}
	switch {
	case r.End.Count().IsPresent():
		rec.End = endRecord{Type: endTypeCount, Count: r.End.Count().MustGet()}
	case r.End.Date().IsPresent():
		d := r.End.Date().MustGet()
		rec.End = endRecord{Type: endTypeDate, Date: &d}
	default:
		rec.End = endRecord{Type: endTypeNever}
	}
	for _, m := range r.Months {
		rec.Months = append(rec.Months, monthRecord{Month: m.Index, Leap: m.Leap})
	}
	for _, wd := range r.Weekdays {
		rec.Weekdays = append(rec.Weekdays, weekdayRecord{Weekday: int(wd.Day), N: wd.N})
	}
	return rec, nil
}

func (rec ruleRecord) rule() (Rule, error) {
	cal, err := rec.Calendar.calendar()
	if err != nil {
		return Rule{}, err
	}
	freq, err := ParseFrequency(rec.Frequency)
	if err != nil {
		return Rule{}, err
	}
	r := NewRule(cal, freq)
	if rec.Interval != 0 {
		r.Interval = rec.Interval
	}
	if rec.MatchingPolicy != "" {
		if r.MatchingPolicy, err = ParseMatchingPolicy(rec.MatchingPolicy); err != nil {
			return Rule{}, err
		}
	}
	if rec.RepeatedTimePolicy != "" {
		if r.RepeatedTimePolicy, err = ParseRepeatedTimePolicy(rec.RepeatedTimePolicy); err != nil {
			return Rule{}, err
		}
	}
	switch rec.End.Type {
	case "", endTypeNever:
		r.End = Never()
	case endTypeCount:
		r.End = AfterOccurrences(rec.End.Count)
	case endTypeDate:
		if rec.End.Date == nil {
			return Rule{}, fmt.Errorf("%w: end of type date without a date", ErrOutOfRange)
		}
		r.End = AfterDate(*rec.End.Date)
	default:
		return Rule{}, fmt.Errorf("%w: unknown end type %q", ErrOutOfRange, rec.End.Type)
	}

	for _, m := range rec.Months {
		r.Months = append(r.Months, Month{Index: m.Month, Leap: m.Leap})
	}
	for _, wd := range rec.Weekdays {
		r.Weekdays = append(r.Weekdays, Weekday{Day: time.Weekday(wd.Weekday), N: wd.N})
	}
	r.Weeks = rec.Weeks
	r.DaysOfTheYear = rec.DaysOfTheYear
	r.DaysOfTheMonth = rec.DaysOfTheMonth
	r.Hours = rec.Hours
	r.Minutes = rec.Minutes
	r.Seconds = rec.Seconds
	r.SetPositions = rec.SetPositions

	if err := r.Validate(); err != nil {
		return Rule{}, err
	}
	return r, nil
}

func (c calendarRecord) calendar() (Calendar, error) {
	if c.Identifier != calendar.IdentifierGregorian {
		return nil, fmt.Errorf("%w: calendar %q", ErrUnsupported, c.Identifier)
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("recurrence: load time zone %q: %w", c.TimeZone, err)
	}
	opts := []calendar.Option{calendar.WithFirstWeekday(time.Weekday(c.FirstWeekday))}
	if c.MinimumDaysInFirstWeek != 0 {
		opts = append(opts, calendar.WithMinimumDaysInFirstWeek(c.MinimumDaysInFirstWeek))
	}
	g, err := calendar.New(loc, opts...)
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (r Rule) MarshalJSON() ([]byte, error) {
	rec, err := r.record()
	if err != nil {
		return nil, err
	}
	return json.Marshal(rec)
}

func (r *Rule) UnmarshalJSON(data []byte) error {
	var rec ruleRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	decoded, err := rec.rule()
	if err != nil {
		return err
	}
	*r = decoded
	return nil
}

func (r Rule) MarshalYAML() (interface{}, error) {
	return r.record()
}

func (r *Rule) UnmarshalYAML(value *yaml.Node) error {
	var rec ruleRecord
	if err := value.Decode(&rec); err != nil {
		return err
	}
	decoded, err := rec.rule()
	if err != nil {
		return err
	}
	*r = decoded
	return nil
}
