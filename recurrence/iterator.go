package recurrence

import (
	"fmt"
	"iter"
	"slices"
	"time"

	"github.com/cyp0633/librecur/calendar"
	"github.com/samber/mo"
)

// StopReason says why an iterator stopped producing occurrences.
type StopReason int

const (
	// NotStopped means the iterator may still produce occurrences.
	NotStopped StopReason = iota
	// StopCount means the rule's occurrence count was reached.
	StopCount
	// StopDate means the rule's end date was reached.
	StopDate
	// StopWindow means the query window's upper bound was reached.
	StopWindow
	// StopEmpty means the rule stopped matching anything: a long run of
	// periods produced no instant at all.
	StopEmpty
)

func (s StopReason) String() string {
	switch s {
	case NotStopped:
		return "running"
	case StopCount:
		return "count"
	case StopDate:
		return "date"
	case StopWindow:
		return "window"
	case StopEmpty:
		return "empty"
	}
	return fmt.Sprintf("StopReason(%d)", int(s))
}

const (
	// DefaultMaxEmptyPeriods bounds consecutive periods without instants.
	DefaultMaxEmptyPeriods = 1_000_000
	// DefaultMaxEmptyYears bounds the calendar span of such a run. Date
	// patterns of the Gregorian calendar repeat every 400 years.
	DefaultMaxEmptyYears = 400
)

type iteratorConfig struct {
	window          mo.Option[Window]
	maxEmptyPeriods int
	maxEmptyYears   int
}

// IteratorOption configures an Iterator.
type IteratorOption func(*iteratorConfig)

// WithWindow restricts the sequence to the half-open range [w.From, w.To).
func WithWindow(w Window) IteratorOption {
	return func(c *iteratorConfig) { c.window = mo.Some(w) }
}

// WithMaxEmptyPeriods sets how many consecutive periods may produce nothing
// before the iterator gives up.
func WithMaxEmptyPeriods(n int) IteratorOption {
	return func(c *iteratorConfig) {
		if n > 0 {
			c.maxEmptyPeriods = n
		}
	}
}

// WithMaxEmptyYears sets how many calendar years a run of empty periods may
// span before the iterator gives up. The span is multiplied by the rule's
// interval.
func WithMaxEmptyYears(n int) IteratorOption {
	return func(c *iteratorConfig) {
		if n > 0 {
			c.maxEmptyYears = n
		}
	}
}

// Iterator is a pull cursor over the occurrences of a rule. It is not safe
// for concurrent use; independent iterators over the same rule are.
type Iterator struct {
	rule       Rule
	cal        Calendar
	anchor     time.Time
	anchorWall calendar.Wall
	fields     fieldEngine
	resolver   dateResolver
	cfg        iteratorConfig

	limit mo.Option[int]
	until mo.Option[time.Time]

	next      int
	pending   []time.Time
	emitted   int
	last      mo.Option[time.Time]
	emptyRun  int
	emptyFrom int
	reason    StopReason
}

// NewIterator validates r and returns a cursor over its occurrences at or
// after anchor. The rule is copied; later changes to r are not observed.
func NewIterator(r Rule, anchor time.Time, opts ...IteratorOption) (*Iterator, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	cfg := iteratorConfig{
		maxEmptyPeriods: DefaultMaxEmptyPeriods,
		maxEmptyYears:   DefaultMaxEmptyYears,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if w, ok := cfg.window.Get(); ok && w.To.Before(w.From) {
		return nil, fmt.Errorf("%w: [%s, %s)", ErrInvalidWindow, w.From.Format(time.RFC3339), w.To.Format(time.RFC3339))
	}

	r = r.Clone()
	anchor = anchor.Truncate(time.Second).In(r.Calendar.Location())
	wall := r.Calendar.Components(anchor)
	it := &Iterator{
		rule:       r,
		cal:        r.Calendar,
		anchor:     anchor,
		anchorWall: wall,
		fields:     newFieldEngine(r, wall),
		resolver: dateResolver{
			cal:      r.Calendar,
			matching: r.MatchingPolicy,
			repeated: r.RepeatedTimePolicy,
		},
		cfg:   cfg,
		limit: r.End.Count(),
		until: r.End.Date(),
	}
	it.next = it.firstIndex()
	return it, nil
}

// Next returns the next occurrence. The second result is false once the
// sequence is exhausted.
func (it *Iterator) Next() (time.Time, bool) {
	for {
		if it.reason != NotStopped {
			return time.Time{}, false
		}
		if len(it.pending) == 0 {
			it.advance()
			continue
		}

		t := it.pending[0]
		it.pending = it.pending[1:]
		if t.Before(it.anchor) {
			continue
		}
		if last, ok := it.last.Get(); ok && !t.After(last) {
			continue
		}
		if until, ok := it.until.Get(); ok && !t.Before(until) {
			it.stop(StopDate)
			continue
		}
		w, windowed := it.cfg.window.Get()
		if windowed && !t.Before(w.To) {
			it.stop(StopWindow)
			continue
		}

		it.last = mo.Some(t)
		it.emitted++
		if n, ok := it.limit.Get(); ok && it.emitted >= n {
			it.stop(StopCount)
		}
		if windowed && t.Before(w.From) {
			continue
		}
		return t, true
	}
}

// All adapts the iterator to a range-over-func sequence. The sequence
// shares the iterator's position.
func (it *Iterator) All() iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		for {
			t, ok := it.Next()
			if !ok || !yield(t) {
				return
			}
		}
	}
}

// Reason reports why the iterator stopped, or NotStopped.
func (it *Iterator) Reason() StopReason { return it.reason }

// Emitted is the number of occurrences the rule produced so far, including
// those outside the query window.
func (it *Iterator) Emitted() int { return it.emitted }

func (it *Iterator) stop(reason StopReason) {
	if it.reason == NotStopped {
		it.reason = reason
	}
	it.pending = nil
}

// advance evaluates the next period and queues its instants.
func (it *Iterator) advance() {
	p := it.periodAt(it.next)
	lower := it.lowerBound(p)
	if until, ok := it.until.Get(); ok && !lower.Before(until) {
		it.stop(StopDate)
		return
	}
	if w, ok := it.cfg.window.Get(); ok && !lower.Before(w.To) {
		it.stop(StopWindow)
		return
	}

	tuples, skip := it.fields.expand(p)
	tuples = selectPositions(tuples, it.rule.SetPositions)

	prefer := mo.None[int]()
	if it.rule.Frequency.subDaily() {
		_, off := p.instant.Zone()
		prefer = mo.Some(off)
	}
	var instants []time.Time
	for _, w := range tuples {
		instants = append(instants, it.resolver.resolve(w, prefer)...)
	}
	slices.SortFunc(instants, time.Time.Compare)
	instants = slices.CompactFunc(instants, time.Time.Equal)

	if len(instants) == 0 {
		year := lower.Year()
		if it.emptyRun == 0 {
			it.emptyFrom = year
		}
		it.emptyRun++
		// The calendar repeats every maxEmptyYears years, so a stride of n
		// periods revisits every pattern within n times that span.
		if it.emptyRun >= it.cfg.maxEmptyPeriods || year-it.emptyFrom > it.cfg.maxEmptyYears*it.rule.Interval {
			it.stop(StopEmpty)
			return
		}
	} else {
		it.emptyRun = 0
	}
	it.pending = instants
	it.next = it.nextIndex(p, skip)
}

// periodAt returns the k-th base period counted from the one containing
// the anchor.
func (it *Iterator) periodAt(k int) period {
	stride := k * it.rule.Interval
	a := it.anchorWall
	p := period{index: k}
	switch it.rule.Frequency {
	case Yearly:
		p.year = a.Year + stride
	case Monthly:
		p.year, p.month = it.cal.AddMonths(a.Year, a.Month, stride)
	case Weekly:
		p.start = it.cal.AddDays(it.cal.StartOfWeek(a.Date), 7*stride)
	case Daily:
		p.start = it.cal.AddDays(a.Date, stride)
	default:
		p.instant = time.Unix(it.anchor.Unix()+int64(stride)*it.unitSeconds(), 0).In(it.cal.Location())
		p.clock = it.cal.Components(p.instant)
	}
	return p
}

// lowerBound is an instant no occurrence of p can precede. It leaves room
// for week-numbering years starting in December and for backward matching.
func (it *Iterator) lowerBound(p period) time.Time {
	loc := it.cal.Location()
	switch it.rule.Frequency {
	case Yearly:
		return time.Date(p.year-1, time.December, 24, 0, 0, 0, 0, loc)
	case Monthly:
		return time.Date(p.year, p.month, 0, 0, 0, 0, 0, loc)
	case Weekly, Daily:
		return time.Date(p.start.Year, p.start.Month, p.start.Day-1, 0, 0, 0, 0, loc)
	}
	return p.instant.Add(-2 * time.Hour)
}

// nextIndex returns the index of the period after p. Sub-daily periods that
// were rejected for their day, hour or minute jump past that boundary.
func (it *Iterator) nextIndex(p period, skip skipUnit) int {
	if skip == skipNone || !it.rule.Frequency.subDaily() {
		return p.index + 1
	}
	var boundary time.Time
	c := p.clock
	switch skip {
	case skipDay:
		res := it.cal.Resolve(calendar.At(it.cal.AddDays(c.Date, 1), 0, 0, 0))
		switch res.Kind {
		case calendar.Unique, calendar.Repeated:
			boundary = res.Instants[0]
		case calendar.Skipped:
			boundary = res.Transition
		default:
			return p.index + 1
		}
	case skipHour:
		boundary = p.instant.Add(time.Duration(3600-c.Minute*60-c.Second) * time.Second)
	case skipMinute:
		boundary = p.instant.Add(time.Duration(60-c.Second) * time.Second)
	}
	step := int64(it.rule.Interval) * it.unitSeconds()
	delta := boundary.Unix() - it.anchor.Unix()
	k := int((delta + step - 1) / step)
	if k <= p.index {
		return p.index + 1
	}
	return k
}

// firstIndex skips periods that end before the query window starts. Rules
// limited by count must be walked from the anchor, since occurrences before
// the window still count.
func (it *Iterator) firstIndex() int {
	w, ok := it.cfg.window.Get()
	if !ok || it.limit.IsPresent() || !w.From.After(it.anchor) {
		return 0
	}
	a := it.anchorWall
	f := it.cal.Components(w.From)
	interval := it.rule.Interval
	var k int
	switch it.rule.Frequency {
	case Yearly:
		k = (f.Year - a.Year) / interval
	case Monthly:
		k = ((f.Year-a.Year)*12 + int(f.Month) - int(a.Month)) / interval
	case Weekly:
		k = it.cal.DaysBetween(it.cal.StartOfWeek(a.Date), f.Date) / (7 * interval)
	case Daily:
		k = it.cal.DaysBetween(a.Date, f.Date) / interval
	default:
		k = int((w.From.Unix() - it.anchor.Unix()) / (int64(interval) * it.unitSeconds()))
	}
	return max(k-1, 0)
}

func (it *Iterator) unitSeconds() int64 {
	switch it.rule.Frequency {
	case Hourly:
		return 3600
	case Minutely:
		return 60
	}
	return 1
}

// Recurrences returns the occurrences of the rule at or after anchor as a
// lazy sequence. Each range over the sequence starts a fresh iterator.
func (r Rule) Recurrences(anchor time.Time) (iter.Seq[time.Time], error) {
	return r.sequence(anchor)
}

// RecurrencesIn is Recurrences intersected with the window [w.From, w.To).
func (r Rule) RecurrencesIn(anchor time.Time, w Window) (iter.Seq[time.Time], error) {
	return r.sequence(anchor, WithWindow(w))
}

func (r Rule) sequence(anchor time.Time, opts ...IteratorOption) (iter.Seq[time.Time], error) {
	if _, err := NewIterator(r, anchor, opts...); err != nil {
		return nil, err
	}
	r = r.Clone()
	return func(yield func(time.Time) bool) {
		it, err := NewIterator(r, anchor, opts...)
		if err != nil {
			return
		}
		it.All()(yield)
	}, nil
}
