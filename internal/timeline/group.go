package timeline

import (
	"sort"
	"time"
)

// GroupOverlaps partitions attrs into overlap groups. The input slice is not
// reordered; groups come back in earliest-start-first order. Snap windows are
// cut in day's location, whatever zone the event times carry.
//
// With cfg.EventsWillOverlap the snap-interval policy applies: a candidate
// joins when it falls into the SplitMinuteInterval window anchored at the
// group's first event. Otherwise the strict policy applies: a candidate joins
// when it truly overlaps any member, and, only while EventGap <= 0, when it
// merely touches the group's longest or most recently added member.
func GroupOverlaps(attrs []*Attributes, day time.Time, cfg Config) []Group {
	if len(attrs) == 0 {
		return nil
	}

	sorted := make([]*Attributes, len(attrs))
	copy(sorted, attrs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Descriptor.Interval.Start.Before(sorted[j].Descriptor.Interval.Start)
	})

	var groups []Group
	current := Group{sorted[0]}

	for _, ev := range sorted[1:] {
		var joins bool
		if cfg.EventsWillOverlap {
			joins = joinsSnapWindow(current, ev, day.Location(), cfg.SplitMinuteInterval)
		} else {
			joins = joinsStrict(current, ev, cfg.EventGap)
		}

		if joins {
			current = append(current, ev)
			continue
		}
		groups = append(groups, current)
		current = Group{ev}
	}

	return append(groups, current)
}

func joinsSnapWindow(g Group, ev *Attributes, loc *time.Location, splitMinutes int) bool {
	window := SnapWindow(g[0].Descriptor.Interval.Start.In(loc), splitMinutes)
	iv := ev.Descriptor.Interval
	if iv.Contains(window.Start) {
		return true
	}
	return !iv.Start.Before(window.Start) && iv.Start.Before(window.End)
}

// SnapWindow returns the splitMinutes-long window containing t: t truncated
// to the minute, rounded down to a multiple of splitMinutes within its hour.
// A non-positive splitMinutes is treated as one minute.
func SnapWindow(t time.Time, splitMinutes int) Interval {
	if splitMinutes < 1 {
		splitMinutes = 1
	}
	minute := t.Minute()
	snapped := (minute / splitMinutes) * splitMinutes

	start := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), snapped, 0, 0, t.Location())
	return Interval{Start: start, End: start.Add(time.Duration(splitMinutes) * time.Minute)}
}

func joinsStrict(g Group, ev *Attributes, eventGap float64) bool {
	iv := ev.Descriptor.Interval
	for _, m := range g {
		if m.Descriptor.Interval.Overlaps(iv) {
			return true
		}
	}

	// Zero gap keeps the legacy behaviour: touching the longest or the last
	// member is enough to share columns.
	if eventGap > 0 {
		return false
	}
	if g.longest().Descriptor.Interval.Intersects(iv) {
		return true
	}
	return g[len(g)-1].Descriptor.Interval.Intersects(iv)
}

// longest returns the member with the greatest duration; the earliest one
// wins ties.
func (g Group) longest() *Attributes {
	best := g[0]
	for _, m := range g[1:] {
		if m.Descriptor.Interval.Duration() > best.Descriptor.Interval.Duration() {
			best = m
		}
	}
	return best
}
