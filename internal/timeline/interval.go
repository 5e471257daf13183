// Package timeline computes the day-view layout: where each timed event of a
// single day sits on a vertical time axis and how overlapping events share the
// horizontal space.
//
// The package is pure computation. It does not draw, it does not fetch events
// and it holds no locks; callers serialize config changes with layout passes.
package timeline

import "time"

// Interval is a closed time span with Start <= End.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Duration returns End - Start.
func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// IsZeroLength reports whether the interval is degenerate (Start == End).
func (iv Interval) IsZeroLength() bool {
	return iv.Start.Equal(iv.End)
}

// Touches reports whether one interval ends exactly where the other starts.
func (iv Interval) Touches(o Interval) bool {
	return iv.End.Equal(o.Start) || o.End.Equal(iv.Start)
}

// Overlaps reports true overlap: the two intervals share open interior.
// Touching intervals and zero-length intervals never overlap.
func (iv Interval) Overlaps(o Interval) bool {
	if iv.IsZeroLength() || o.IsZeroLength() {
		return false
	}
	if iv.Touches(o) {
		return false
	}
	return iv.Start.Before(o.End) && iv.End.After(o.Start)
}

// Intersects is the closed-interval test: touching counts.
func (iv Interval) Intersects(o Interval) bool {
	return !iv.Start.After(o.End) && !o.Start.After(iv.End)
}

// Contains reports whether t lies in [Start, End].
func (iv Interval) Contains(t time.Time) bool {
	return !t.Before(iv.Start) && !t.After(iv.End)
}
