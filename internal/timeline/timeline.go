package timeline

import "time"

// Timeline keeps the state of one rendered day: the day, its layout config,
// the events and the layout computed from them. The layout is recomputed
// lazily, only after something it depends on changed.
//
// A Timeline is not safe for concurrent use.
type Timeline struct {
	day     time.Time
	cfg     Config
	version uint64

	events []Descriptor
	attrs  []*Attributes
	dirty  bool

	labels        []string
	labelsVersion uint64
	labelsFormat  string
}

// New returns a Timeline for day with the given config.
func New(day time.Time, cfg Config) *Timeline {
	return &Timeline{
		day:     startOfDay(day),
		cfg:     cfg,
		version: 1,
		dirty:   true,
	}
}

// Day returns midnight of the rendered day.
func (tl *Timeline) Day() time.Time { return tl.day }

// Config returns the current layout config.
func (tl *Timeline) Config() Config { return tl.cfg }

// Version increases every time SetConfig installs a different config.
func (tl *Timeline) Version() uint64 { return tl.version }

// SetConfig installs cfg. An identical config is a no-op; anything else
// invalidates the layout and every cache derived from the previous config.
func (tl *Timeline) SetConfig(cfg Config) {
	if cfg == tl.cfg {
		return
	}
	tl.cfg = cfg
	tl.version++
	tl.dirty = true
}

// SetDay moves the timeline to another day.
func (tl *Timeline) SetDay(day time.Time) {
	day = startOfDay(day)
	if day.Equal(tl.day) {
		return
	}
	tl.day = day
	tl.dirty = true
}

// SetEvents replaces the events. Attributes of events whose ID survives are
// reused so callers holding them see the new frame after the next Layout.
func (tl *Timeline) SetEvents(descs []Descriptor) {
	byID := make(map[string]*Attributes, len(tl.attrs))
	for _, a := range tl.attrs {
		byID[a.Descriptor.ID] = a
	}

	events := make([]Descriptor, 0, len(descs))
	attrs := make([]*Attributes, 0, len(descs))
	for _, d := range descs {
		if d.AllDay {
			continue
		}
		events = append(events, d)
		if a, ok := byID[d.ID]; ok && d.ID != "" {
			a.Descriptor = d
			attrs = append(attrs, a)
			delete(byID, d.ID)
			continue
		}
		attrs = append(attrs, &Attributes{Descriptor: d})
	}

	tl.events = events
	tl.attrs = attrs
	tl.dirty = true
}

// Events returns the timed events currently on the timeline.
func (tl *Timeline) Events() []Descriptor { return tl.events }

// Layout returns the laid out events, recomputing them if needed.
func (tl *Timeline) Layout() []*Attributes {
	if tl.dirty {
		tl.attrs = Relayout(tl.attrs, tl.day, tl.cfg)
		tl.dirty = false
	}
	return tl.attrs
}

// DateToY maps t onto this timeline.
func (tl *Timeline) DateToY(t time.Time) float64 {
	return DateToY(t, tl.day, tl.cfg)
}

// YToDate maps a vertical offset on this timeline back to a time.
func (tl *Timeline) YToDate(y float64) time.Time {
	return YToDate(y, tl.day, tl.cfg)
}

// HourLabels returns the 25 hour labels (00:00 of the day through 00:00 of
// the next) formatted with the given time layout. The strings are cached
// until the config version or the format changes.
func (tl *Timeline) HourLabels(format string) []string {
	if tl.labels != nil && tl.labelsVersion == tl.version && tl.labelsFormat == format {
		return tl.labels
	}

	labels := make([]string, hoursPerDay+1)
	base := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	for h := range labels {
		labels[h] = base.Add(time.Duration(h) * time.Hour).Format(format)
	}

	tl.labels = labels
	tl.labelsVersion = tl.version
	tl.labelsFormat = format
	return labels
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
