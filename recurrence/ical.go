package recurrence

import (
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/cyp0633/librecur/calendar"
	"github.com/emersion/go-ical"
	"github.com/samber/mo"
)

// RecurrenceSet contains all recurrence-related information for a component.
type RecurrenceSet struct {
	Rule mo.Option[Rule]
	// RDates are extra occurrences. Date-only values become local midnight.
	RDates []time.Time
	// ExDates exclude occurrences at exactly these instants.
	ExDates []time.Time
	// ExDays exclude every occurrence on these local days (EXDATE;VALUE=DATE).
	ExDays []calendar.Date
	// RecurrenceID marks an overridden instance.
	RecurrenceID mo.Option[time.Time]
}

// ExtractRecurrenceSet reads RRULE, RDATE, EXDATE and RECURRENCE-ID from
// comp. Floating date-times are read in cal's location.
func ExtractRecurrenceSet(comp *ical.Component, cal Calendar) (RecurrenceSet, error) {
	var set RecurrenceSet
	if cal == nil {
		return set, ErrNoCalendar
	}
	loc := cal.Location()

	if prop := comp.Props.Get(ical.PropRecurrenceRule); prop != nil && prop.Value != "" {
		r, err := ParseRRULE(prop.Value, cal)
		if err != nil {
			return set, fmt.Errorf("recurrence: component RRULE: %w", err)
		}
		set.Rule = mo.Some(r)
	}

	for _, prop := range comp.Props.Values(ical.PropRecurrenceDates) {
		values, _, err := parseDateList(&prop, loc)
		if err != nil {
			return set, fmt.Errorf("recurrence: component RDATE: %w", err)
		}
		set.RDates = append(set.RDates, values...)
	}

	for _, prop := range comp.Props.Values(ical.PropExceptionDates) {
		values, dateOnly, err := parseDateList(&prop, loc)
		if err != nil {
			return set, fmt.Errorf("recurrence: component EXDATE: %w", err)
		}
		if dateOnly {
			for _, v := range values {
				set.ExDays = append(set.ExDays, calendar.Date{Year: v.Year(), Month: v.Month(), Day: v.Day()})
			}
			continue
		}
		set.ExDates = append(set.ExDates, values...)
	}

	if prop := comp.Props.Get(ical.PropRecurrenceID); prop != nil && prop.Value != "" {
		t, err := prop.DateTime(loc)
		if err != nil {
			return set, fmt.Errorf("recurrence: component RECURRENCE-ID: %w", err)
		}
		set.RecurrenceID = mo.Some(t)
	}
	return set, nil
}

// parseDateList reads a comma separated DATE or DATE-TIME list property.
// PERIOD values keep only their start.
func parseDateList(prop *ical.Prop, loc *time.Location) ([]time.Time, bool, error) {
	dateOnly := prop.ValueType() == ical.ValueDate
	params := maps.Clone(prop.Params)
	if prop.ValueType() == ical.ValuePeriod {
		delete(params, ical.ParamValue)
	}
	var out []time.Time
	for _, raw := range strings.Split(prop.Value, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if start, _, ok := strings.Cut(raw, "/"); ok {
			raw = start
		}
		single := ical.NewProp(prop.Name)
		single.Params = params
		single.Value = raw
		t, err := single.DateTime(loc)
		if err != nil {
			return nil, false, err
		}
		out = append(out, t.In(loc))
	}
	return out, dateOnly, nil
}

// SetComponentRule writes r as comp's RRULE, replacing any existing one.
func SetComponentRule(comp *ical.Component, r Rule) error {
	text, err := FormatRRULE(r)
	if err != nil {
		return err
	}
	prop := ical.NewProp(ical.PropRecurrenceRule)
	prop.Value = text
	comp.Props.Set(prop)
	return nil
}

// ComponentTimes extracts start and end times from comp. End falls back to
// DURATION, then to one day for all-day starts and to the start otherwise.
// For VTODO a later DUE extends the end.
func ComponentTimes(comp *ical.Component, loc *time.Location) (start, end time.Time, ok bool) {
	if prop := comp.Props.Get(ical.PropDateTimeStart); prop != nil {
		dtstart, err := prop.DateTime(loc)
		if err != nil {
			return time.Time{}, time.Time{}, false
		}
		start = dtstart
		ok = true

		if prop := comp.Props.Get(ical.PropDateTimeEnd); prop != nil {
			if end, err = prop.DateTime(loc); err != nil {
				return time.Time{}, time.Time{}, false
			}
			if isAllDay(comp) && !end.After(start) {
				end = start.AddDate(0, 0, 1)
			}
		} else if prop := comp.Props.Get(ical.PropDuration); prop != nil {
			d, err := prop.Duration()
			if err != nil {
				return time.Time{}, time.Time{}, false
			}
			end = start.Add(d)
		} else if isAllDay(comp) {
			end = start.AddDate(0, 0, 1)
		} else {
			end = start
		}
	}

	if comp.Name == ical.CompToDo {
		if prop := comp.Props.Get(ical.PropDue); prop != nil {
			due, err := prop.DateTime(loc)
			if err != nil {
				return start, end, ok
			}
			if !ok {
				return due, due, true
			}
			if due.After(end) {
				end = due
			}
		}
	}
	return start, end, ok
}

func isAllDay(comp *ical.Component) bool {
	prop := comp.Props.Get(ical.PropDateTimeStart)
	return prop != nil && prop.ValueType() == ical.ValueDate
}
