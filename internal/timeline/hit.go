package timeline

import "time"

// HitKind says what a pointer position resolved to.
type HitKind int

const (
	// HitTime means the pointer is over empty timeline; Hit.Time is set.
	HitTime HitKind = iota
	// HitEvent means the pointer is over an event frame; Hit.Event is set.
	HitEvent
)

// Hit is the result of translating a pointer position.
type Hit struct {
	Kind  HitKind
	Event *Attributes
	Time  time.Time
}

// HitTester turns a pointer position into either an event or a time.
// Gesture handling calls it synchronously; nothing is retained.
type HitTester interface {
	HitTest(x, y float64) Hit
}

// HitTest resolves (x, y) against attrs. Frames later in attrs are drawn on
// top, so they win. Misses resolve to the time at y.
func HitTest(attrs []*Attributes, x, y float64, day time.Time, cfg Config) Hit {
	for i := len(attrs) - 1; i >= 0; i-- {
		if attrs[i].Frame.Contains(x, y) {
			return Hit{Kind: HitEvent, Event: attrs[i]}
		}
	}
	return Hit{Kind: HitTime, Time: YToDate(y, day, cfg)}
}

// HitTest implements HitTester against the current layout.
func (tl *Timeline) HitTest(x, y float64) Hit {
	return HitTest(tl.Layout(), x, y, tl.day, tl.cfg)
}

var _ HitTester = (*Timeline)(nil)
