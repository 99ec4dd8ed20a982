package recurrence

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/cyp0633/librecur/calendar"
	"github.com/samber/mo"
	"golang.org/x/sync/singleflight"
)

// TimeOccurrence is a single occurrence of an event in time.
type TimeOccurrence struct {
	Start time.Time
	End   time.Time
	// IsException is set when the component overrides one instance of a
	// series; RecurrenceID then names that instance.
	IsException  bool
	RecurrenceID mo.Option[time.Time]
}

// Engine answers event-level questions about recurring components:
// expansion into a window, overlap checks and RDATE/EXDATE handling.
// It is safe for concurrent use.
type Engine struct {
	cache  *ExpansionCache
	config EngineConfig
	logger *slog.Logger
	flight singleflight.Group
}

type EngineOption func(*Engine)

// WithLogger sets the engine's logger. The default discards everything.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates an engine with DefaultEngineConfig.
func NewEngine(opts ...EngineOption) *Engine {
	return NewEngineWithConfig(DefaultEngineConfig, opts...)
}

// NewEngineWithConfig creates an engine with custom configuration.
func NewEngineWithConfig(config EngineConfig, opts ...EngineOption) *Engine {
	if config.MaxExpansionOccurrences < 1 {
		config.MaxExpansionOccurrences = DefaultEngineConfig.MaxExpansionOccurrences
	}
	e := &Engine{
		config: config,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if config.CacheEnabled {
		e.cache = NewExpansionCache(config.CacheConfig)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Close releases the engine's cache.
func (e *Engine) Close() {
	if e.cache != nil {
		e.cache.Close()
	}
}

// CacheStats reports cache contents, if caching is enabled.
func (e *Engine) CacheStats() mo.Option[CacheStats] {
	if e.cache == nil {
		return mo.None[CacheStats]()
	}
	return mo.Some(e.cache.Stats())
}

// Expand returns the occurrences of r anchored at anchor inside w, at most
// MaxExpansionOccurrences of them. Results are cached and concurrent
// expansions of the same query share one computation.
func (e *Engine) Expand(r Rule, anchor time.Time, w Window) ([]time.Time, error) {
	if e.cache == nil {
		return e.expand(r, anchor, w)
	}

	key, err := expansionKey(r, anchor, w)
	if err != nil {
		return nil, fmt.Errorf("recurrence: cache key: %w", err)
	}
	if cached, ok := e.cache.Get(key).Get(); ok {
		expansionCacheHits.Inc()
		e.logger.Debug("expansion cache hit", "frequency", r.Frequency, "occurrences", len(cached))
		return cached, nil
	}
	expansionCacheMisses.Inc()

	result, err, shared := e.flight.Do(key, func() (interface{}, error) {
		occurrences, err := e.expand(r, anchor, w)
		if err != nil {
			return nil, err
		}
		e.cache.Set(key, occurrences)
		return occurrences, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		e.logger.Debug("expansion shared with concurrent caller", "frequency", r.Frequency)
	}
	return slices.Clone(result.([]time.Time)), nil
}

func (e *Engine) expand(r Rule, anchor time.Time, w Window) ([]time.Time, error) {
	started := time.Now()
	opts := append(e.config.iteratorOptions(), WithWindow(w))
	it, err := NewIterator(r, anchor, opts...)
	if err != nil {
		return nil, err
	}

	var out []time.Time
	truncated := false
	for t := range it.All() {
		if len(out) == e.config.MaxExpansionOccurrences {
			truncated = true
			break
		}
		out = append(out, t)
	}

	freq := r.Frequency.String()
	stop := it.Reason().String()
	if truncated {
		stop = "truncated"
		expansionTruncated.Inc()
		e.logger.Warn("expansion cut by occurrence cap",
			"frequency", freq,
			"cap", e.config.MaxExpansionOccurrences,
			"from", w.From,
			"to", w.To)
	}
	expansionTotal.WithLabelValues(freq, stop).Inc()
	expansionDuration.WithLabelValues(freq).Observe(time.Since(started).Seconds())
	expansionOccurrences.Observe(float64(len(out)))
	e.logger.Debug("expanded rule",
		"frequency", freq,
		"stop", stop,
		"occurrences", len(out),
		"elapsed", time.Since(started))
	return out, nil
}

// Occurrences lists the instances of a component whose span overlaps w:
// the master instance, the rule's occurrences and the RDATEs, minus the
// EXDATEs, sorted by start. Every instance lasts as long as the master.
func (e *Engine) Occurrences(masterStart, masterEnd time.Time, set RecurrenceSet, w Window) ([]TimeOccurrence, error) {
	duration := masterEnd.Sub(masterStart)
	if id, ok := set.RecurrenceID.Get(); ok {
		if !overlaps(masterStart, masterEnd, w) {
			return nil, nil
		}
		return []TimeOccurrence{{Start: masterStart, End: masterEnd, IsException: true, RecurrenceID: mo.Some(id)}}, nil
	}

	starts := []time.Time{masterStart}
	if r, ok := set.Rule.Get(); ok {
		generated, err := e.Expand(r, masterStart, Window{From: w.From.Add(-duration), To: w.To})
		if err != nil {
			return nil, fmt.Errorf("recurrence: expand rule: %w", err)
		}
		starts = append(starts, generated...)
	}
	starts = append(starts, set.RDates...)
	slices.SortFunc(starts, time.Time.Compare)
	starts = slices.CompactFunc(starts, time.Time.Equal)

	var out []TimeOccurrence
	for _, s := range starts {
		end := s.Add(duration)
		if !overlaps(s, end, w) || isExcluded(s, set) {
			continue
		}
		out = append(out, TimeOccurrence{Start: s, End: end})
	}
	return out, nil
}

// HasOccurrenceInRange checks if a recurring component has any occurrence
// overlapping [rangeStart, rangeEnd]. Long ranges are probed over their
// first LargeRangeLimit before being scanned in full.
func (e *Engine) HasOccurrenceInRange(
	masterStart, masterEnd time.Time,
	set RecurrenceSet,
	rangeStart, rangeEnd time.Time,
) (bool, error) {
	// Inclusive overlap: start <= rangeEnd and end >= rangeStart.
	if !masterStart.After(rangeEnd) && !masterEnd.Before(rangeStart) && !isExcluded(masterStart, set) {
		return true, nil
	}

	duration := masterEnd.Sub(masterStart)
	for _, rdate := range set.RDates {
		if !rdate.After(rangeEnd) && !rdate.Add(duration).Before(rangeStart) && !isExcluded(rdate, set) {
			return true, nil
		}
	}

	r, ok := set.Rule.Get()
	if !ok {
		return false, nil
	}
	from := rangeStart.Add(-duration)
	to := rangeEnd.Add(time.Second)
	probeTo := to
	if rangeEnd.Sub(rangeStart) > e.config.LargeRangeThreshold && e.config.LargeRangeLimit > 0 {
		probeTo = rangeStart.Add(e.config.LargeRangeLimit)
	}

	found, err := e.anyIncluded(r, masterStart, Window{From: from, To: probeTo}, set)
	if err != nil || found || !probeTo.Before(to) {
		return found, err
	}
	return e.anyIncluded(r, masterStart, Window{From: probeTo, To: to}, set)
}

func (e *Engine) anyIncluded(r Rule, anchor time.Time, w Window, set RecurrenceSet) (bool, error) {
	occurrences, err := e.Expand(r, anchor, w)
	if err != nil {
		return false, fmt.Errorf("recurrence: check rule occurrences: %w", err)
	}
	for _, t := range occurrences {
		if !isExcluded(t, set) {
			return true, nil
		}
	}
	return false, nil
}

// isExcluded checks t against EXDATE instants and EXDATE days. Days are
// compared in t's own location.
func isExcluded(t time.Time, set RecurrenceSet) bool {
	for _, ex := range set.ExDates {
		if t.Equal(ex) {
			return true
		}
	}
	if len(set.ExDays) == 0 {
		return false
	}
	day := calendar.Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
	return slices.Contains(set.ExDays, day)
}

// overlaps reports whether [start, end) meets w. Zero-length spans count
// when they lie inside w.
func overlaps(start, end time.Time, w Window) bool {
	if !end.After(start) {
		return w.Contains(start)
	}
	return start.Before(w.To) && end.After(w.From)
}
