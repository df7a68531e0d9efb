package usage

import (
	"fmt"
	"time"
)

// Range is a closed time interval; both endpoints count as within.
type Range struct {
	Start time.Time
	End   time.Time
}

// NewRange builds a range from two instants with start <= end.
func NewRange(start, end time.Time) (Range, error) {
	if end.Before(start) {
		return Range{}, fmt.Errorf("%w: %s > %s", ErrInvalidRange, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return Range{Start: start, End: end}, nil
}

// Contains reports whether t falls within the range, endpoints included.
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}
