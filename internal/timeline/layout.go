package timeline

import "time"

// Config holds the layout constants for one timeline. It is a value: a layout
// pass reads one snapshot and a change means the previous layout is stale.
type Config struct {
	// VerticalInset is the offset of hour 0 from the top of the timeline.
	VerticalInset float64
	// VerticalDiff is the height of one hour.
	VerticalDiff float64
	// LeadingInset is the x offset of the first column (room for hour labels).
	LeadingInset float64
	// EventGap is shaved off each frame when a caller binds it. A value <= 0
	// also enables the touching fallback of the strict grouping policy.
	EventGap float64
	// SplitMinuteInterval is the snap window, in minutes, used when
	// EventsWillOverlap is set.
	SplitMinuteInterval int
	// EventsWillOverlap selects the snap-interval grouping policy instead of
	// the strict-overlap one.
	EventsWillOverlap bool
	// CalendarWidth is the horizontal space shared by one overlap group.
	CalendarWidth float64
}

// DefaultConfig returns the stock layout constants. CalendarWidth is left at
// zero; it depends on the surface the timeline is drawn on.
func DefaultConfig() Config {
	return Config{
		VerticalInset:       10,
		VerticalDiff:        45,
		LeadingInset:        53,
		EventGap:            0,
		SplitMinuteInterval: 15,
		EventsWillOverlap:   false,
	}
}

// Descriptor is one event as the layout sees it.
type Descriptor struct {
	ID       string
	Title    string
	Interval Interval
	AllDay   bool
}

// Rect is a frame in timeline coordinates.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// MaxX returns X + Width.
func (r Rect) MaxX() float64 { return r.X + r.Width }

// MaxY returns Y + Height.
func (r Rect) MaxY() float64 { return r.Y + r.Height }

// Contains reports whether (x, y) lies inside r, left/top edges inclusive.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x < r.MaxX() && y >= r.Y && y < r.MaxY()
}

// Inset shrinks r by gap on its right and bottom edges, which is how the
// event gap is applied at bind time. Column boundaries are unaffected.
func (r Rect) Inset(gap float64) Rect {
	if gap <= 0 {
		return r
	}
	return Rect{X: r.X, Y: r.Y, Width: r.Width - gap, Height: r.Height - gap}
}

// Attributes binds a descriptor to the frame computed for it. Frame is
// rewritten on every layout pass; the pointer stays stable between passes.
type Attributes struct {
	Descriptor Descriptor
	Frame      Rect
}

// Group is a run of events that share horizontal space, in start order.
type Group []*Attributes

// NewAttributes wraps every timed descriptor. All-day descriptors are dropped;
// they belong to the all-day strip, not to the timeline.
func NewAttributes(descs []Descriptor) []*Attributes {
	out := make([]*Attributes, 0, len(descs))
	for _, d := range descs {
		if d.AllDay {
			continue
		}
		out = append(out, &Attributes{Descriptor: d})
	}
	return out
}

// ComputeLayout lays out descs on the timeline of day and returns one
// Attributes per timed descriptor, sorted by start time.
func ComputeLayout(descs []Descriptor, day time.Time, cfg Config) []*Attributes {
	attrs := NewAttributes(descs)
	return Relayout(attrs, day, cfg)
}

// Relayout recomputes frames for attrs in place and returns them in the
// order the grouper produced (start time, stable).
func Relayout(attrs []*Attributes, day time.Time, cfg Config) []*Attributes {
	groups := GroupOverlaps(attrs, day, cfg)
	AssignColumns(groups, day, cfg)

	out := make([]*Attributes, 0, len(attrs))
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}
