package recurrence

// field names a constrainable component of a rule.
type field int

const (
	fieldMonths field = iota
	fieldWeeks
	fieldDaysOfTheYear
	fieldDaysOfTheMonth
	fieldWeekdays
	fieldHours
	fieldMinutes
	fieldSeconds
	numFields
)

var fieldNames = [numFields]string{
	fieldMonths:         "months",
	fieldWeeks:          "weeks",
	fieldDaysOfTheYear:  "daysOfTheYear",
	fieldDaysOfTheMonth: "daysOfTheMonth",
	fieldWeekdays:       "weekdays",
	fieldHours:          "hours",
	fieldMinutes:        "minutes",
	fieldSeconds:        "seconds",
}

func (f field) String() string { return fieldNames[f] }

// role is what a declared field does to a period.
type role int

const (
	// expand multiplies a period into one candidate per declared value.
	expand role = iota
	// filter keeps only candidates whose component is declared.
	filter
)

func (r role) String() string {
	if r == expand {
		return "expand"
	}
	return "filter"
}

const (
	ex = expand
	fl = filter
)

// roles is indexed by field, then frequency. A field expands when it is
// finer than the period and filters otherwise. Expanding weekdays means
// enumerating every day of the enclosing month, year or week and keeping
// the ones the selectors accept.
var roles = [numFields][Secondly + 1]role{
	//                   Y   M   W   D   h   m   s
	fieldMonths:         {ex, fl, fl, fl, fl, fl, fl},
	fieldWeeks:          {ex, fl, fl, fl, fl, fl, fl},
	fieldDaysOfTheYear:  {ex, fl, fl, fl, fl, fl, fl},
	fieldDaysOfTheMonth: {ex, ex, fl, fl, fl, fl, fl},
	fieldWeekdays:       {ex, ex, ex, fl, fl, fl, fl},
	fieldHours:          {ex, ex, ex, ex, fl, fl, fl},
	fieldMinutes:        {ex, ex, ex, ex, ex, fl, fl},
	fieldSeconds:        {ex, ex, ex, ex, ex, ex, fl},
}

// roleOf returns the role of f for a rule of frequency freq.
func roleOf(f field, freq Frequency) role { return roles[f][freq] }
