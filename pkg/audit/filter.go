package audit

import (
	"fmt"
	"time"
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Action   string
	Username string
	Resource string
	Start    *time.Time
	End      *time.Time
	Limit    int
	Offset   int
}

// Normalize clamps Limit into [1, MaxLimit] (zero means DefaultLimit) and
// Offset to be non-negative. It rejects an End before Start.
func (f Filter) Normalize() (Filter, error) {
	switch {
	case f.Limit <= 0:
		f.Limit = DefaultLimit
	case f.Limit > MaxLimit:
		f.Limit = MaxLimit
	}
	f.Offset = max(f.Offset, 0)

	if f.Start != nil && f.End != nil && f.End.Before(*f.Start) {
		return f, fmt.Errorf("%w: end is before start", ErrInvalidFilter)
	}
	return f, nil
}
