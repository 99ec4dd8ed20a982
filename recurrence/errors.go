package recurrence

import "errors"

var (
	ErrNoCalendar       = errors.New("recurrence: rule has no calendar")
	ErrInvalidFrequency = errors.New("recurrence: invalid frequency")
	ErrInvalidInterval  = errors.New("recurrence: interval must be at least 1")
	ErrInvalidCount     = errors.New("recurrence: occurrence count must be at least 1")
	ErrZeroOrdinal      = errors.New("recurrence: ordinal must not be zero")
	ErrOutOfRange       = errors.New("recurrence: value out of range")
	ErrInvalidWindow    = errors.New("recurrence: window end precedes its start")
	ErrUnsupported      = errors.New("recurrence: not representable in this encoding")
)
