package chrono

import "time"

// TimeAPI is the interface that anything depending on the system clock should use.
type TimeAPI interface {
	// Now returns the current time in UTC.
	Now() time.Time
}

// StandardTime is the standard implementation of TimeAPI using the standard library.
type StandardTime struct{}

// NewStandardTime is the constructor of StandardTime.
func NewStandardTime() StandardTime {
	return StandardTime{}
}

func (StandardTime) Now() time.Time {
	return time.Now().UTC()
}

// FixedTime always returns the same instant.
type FixedTime struct {
	Instant time.Time
}

func (f FixedTime) Now() time.Time {
	return f.Instant
}
