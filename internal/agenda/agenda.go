// Package agenda keeps the expanded occurrences of every configured feed in
// memory and slices them into per-day descriptors for the layout engine.
package agenda

import (
	"context"
	"sort"
	"sync"
	"time"

	"dayview/internal/ics"
	appLog "dayview/internal/log"
	"dayview/internal/model"
	"dayview/internal/timeline"
)

// Loader produces occurrences for a time range. *ics.Loader implements it.
type Loader interface {
	Load(ctx context.Context, start, end time.Time) (ics.ExpandResult, error)
}

// Agenda caches occurrences over [today-1, today+horizon]. It is safe for
// concurrent use; the cron refresh and HTTP handlers share one instance.
type Agenda struct {
	loader  Loader
	loc     *time.Location
	horizon int
	now     func() time.Time

	mu          sync.RWMutex
	occurrences []model.Occurrence
	truncated   []string
	rangeStart  time.Time
	rangeEnd    time.Time
	updatedAt   time.Time
}

// New returns an empty Agenda. horizon is the number of days after today
// that Refresh loads.
func New(loader Loader, loc *time.Location, horizon int) *Agenda {
	if loc == nil {
		loc = time.Local
	}
	if horizon <= 0 {
		horizon = 7
	}
	return &Agenda{
		loader:  loader,
		loc:     loc,
		horizon: horizon,
		now:     time.Now,
	}
}

// Location is the zone days are cut in.
func (a *Agenda) Location() *time.Location { return a.loc }

// Refresh reloads the window around today.
func (a *Agenda) Refresh(ctx context.Context) error {
	return a.load(ctx, a.today())
}

// Ensure makes sure day is inside the cached window, reloading a window
// around day when it is not.
func (a *Agenda) Ensure(ctx context.Context, day time.Time) error {
	if a.Covers(day) {
		return nil
	}
	return a.load(ctx, startOfDay(day.In(a.loc)))
}

// Covers reports whether day lies inside the cached window.
func (a *Agenda) Covers(day time.Time) bool {
	start, end := dayBounds(day, a.loc)
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.updatedAt.IsZero() {
		return false
	}
	return !start.Before(a.rangeStart) && !end.After(a.rangeEnd)
}

func (a *Agenda) load(ctx context.Context, anchor time.Time) error {
	start := anchor.AddDate(0, 0, -1)
	end := anchor.AddDate(0, 0, a.horizon+1)

	res, err := a.loader.Load(ctx, start, end)
	if err != nil && len(res.Occurrences) == 0 {
		appLog.Error("agenda refresh failed; keeping previous occurrences", err)
		return err
	}

	a.mu.Lock()
	a.occurrences = res.Occurrences
	a.truncated = res.TruncatedEvents
	a.rangeStart = start
	a.rangeEnd = end
	a.updatedAt = a.now()
	a.mu.Unlock()

	appLog.Info("agenda refreshed",
		"occurrences", len(res.Occurrences),
		"range_start", start.Format(time.RFC3339),
		"range_end", end.Format(time.RFC3339),
	)
	return err
}

// Snapshot is a consistent copy of the cache.
type Snapshot struct {
	Occurrences []model.Occurrence
	Truncated   []string
	RangeStart  time.Time
	RangeEnd    time.Time
	UpdatedAt   time.Time
}

// Snapshot returns the cache contents.
func (a *Agenda) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return Snapshot{
		Occurrences: append([]model.Occurrence(nil), a.occurrences...),
		Truncated:   append([]string(nil), a.truncated...),
		RangeStart:  a.rangeStart,
		RangeEnd:    a.rangeEnd,
		UpdatedAt:   a.updatedAt,
	}
}

// Occurrences returns every cached occurrence.
func (a *Agenda) Occurrences() []model.Occurrence {
	return a.Snapshot().Occurrences
}

// Day returns the timed occurrences intersecting day as layout descriptors,
// ordered by start. An occurrence reachable twice (same source, UID and
// instance) is reported once.
func (a *Agenda) Day(day time.Time) []timeline.Descriptor {
	start, end := dayBounds(day, a.loc)
	occs := a.collect(start, end, false)

	descs := make([]timeline.Descriptor, 0, len(occs))
	for _, occ := range occs {
		descs = append(descs, Descriptor(occ))
	}
	return descs
}

// AllDay returns the all-day occurrences that cover day.
func (a *Agenda) AllDay(day time.Time) []model.Occurrence {
	start, end := dayBounds(day, a.loc)
	return a.collect(start, end, true)
}

func (a *Agenda) collect(start, end time.Time, allDay bool) []model.Occurrence {
	a.mu.RLock()
	defer a.mu.RUnlock()

	seen := make(map[string]struct{})
	out := make([]model.Occurrence, 0)
	for _, occ := range a.occurrences {
		if occ.AllDay != allDay || !intersectsDay(occ, start, end) {
			continue
		}
		key := occ.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, occ)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start.Before(out[j].Start)
	})
	return out
}

// Descriptor converts an occurrence into the layout engine's event type.
func Descriptor(occ model.Occurrence) timeline.Descriptor {
	return timeline.Descriptor{
		ID:    occ.Key(),
		Title: occ.Summary,
		Interval: timeline.Interval{
			Start: occ.Start,
			End:   occ.End,
		},
		AllDay: occ.AllDay,
	}
}

// intersectsDay reports whether occ shares time with [start, end). A
// zero-length occurrence counts when it sits inside the day.
func intersectsDay(occ model.Occurrence, start, end time.Time) bool {
	if !occ.End.After(occ.Start) {
		return !occ.Start.Before(start) && occ.Start.Before(end)
	}
	return occ.Start.Before(end) && occ.End.After(start)
}

func (a *Agenda) today() time.Time {
	return startOfDay(a.now().In(a.loc))
}

func dayBounds(day time.Time, loc *time.Location) (time.Time, time.Time) {
	start := startOfDay(day.In(loc))
	return start, start.AddDate(0, 0, 1)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
