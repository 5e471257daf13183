package ics

import (
	"errors"
	"time"

	"github.com/teambition/rrule-go"

	appLog "dayview/internal/log"
	"dayview/internal/model"
)

const defaultMaxOccurrencesPerEvent = 5000

// ExpandConfig controls recurrence expansion.
type ExpandConfig struct {
	// DisplayLocation is the zone every occurrence is converted into.
	// Nil means time.Local.
	DisplayLocation *time.Location

	// RangeStart / RangeEnd bound the occurrences, inclusive.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent caps a single RRULE. Zero means
	// defaultMaxOccurrencesPerEvent.
	MaxOccurrencesPerEvent int
}

// ExpandResult is the output of ExpandOccurrences.
type ExpandResult struct {
	Occurrences []model.Occurrence
	// TruncatedEvents lists UIDs that hit MaxOccurrencesPerEvent.
	TruncatedEvents []string
}

// ExpandOccurrences turns parsed VEVENTs into concrete occurrences inside the
// configured range: single events, RRULE recurrences minus EXDATEs, with
// RECURRENCE-ID overrides applied. Occurrences are converted into
// DisplayLocation.
func ExpandOccurrences(events []ParsedEvent, cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult

	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return result, errors.New("expand: RangeEnd is before RangeStart")
	}
	if cfg.DisplayLocation == nil {
		cfg.DisplayLocation = time.Local
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	// Overrides are keyed by source as well as UID; two feeds may reuse UIDs.
	type uidKey struct{ source, uid string }
	var order []uidKey
	baseByUID := make(map[uidKey][]ParsedEvent)
	overridesByUID := make(map[uidKey][]ParsedEvent)

	for _, ev := range events {
		k := uidKey{ev.Source.ID, ev.UID}
		if ev.IsOverride && ev.Recurrence != nil {
			overridesByUID[k] = append(overridesByUID[k], ev)
			continue
		}
		if _, seen := baseByUID[k]; !seen {
			order = append(order, k)
		}
		baseByUID[k] = append(baseByUID[k], ev)
	}

	for _, k := range order {
		truncated := false
		for _, ev := range baseByUID[k] {
			occ, hitCap := expandEvent(ev, overridesByUID[k], cfg)
			truncated = truncated || hitCap
			result.Occurrences = append(result.Occurrences, occ...)
		}

		if truncated {
			result.TruncatedEvents = append(result.TruncatedEvents, k.uid)
			appLog.Warn("expand: occurrences truncated",
				"uid", k.uid,
				"source", k.source,
				"cap", cfg.MaxOccurrencesPerEvent,
			)
		}
	}

	return result, nil
}

func expandEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]model.Occurrence, bool) {
	if ev.RawRRule == "" {
		return expandSingleEvent(ev, overrides, cfg), false
	}
	return expandRecurringEvent(ev, overrides, cfg)
}

func expandSingleEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) []model.Occurrence {
	if !timeRangesOverlap(ev.Start, ev.End, cfg.RangeStart, cfg.RangeEnd) {
		return nil
	}

	start, end := ev.Start, ev.End
	if i, ok := findOverrideForStart(overrides, start); ok {
		o := overrides[i]
		start, end, ev = o.Start, o.End, o
	}

	return []model.Occurrence{makeOccurrence(ev, start, end, cfg.DisplayLocation)}
}

func expandRecurringEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]model.Occurrence, bool) {
	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("expand: failed to parse RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil, false
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	// Widen the lower bound by the event's duration so an occurrence that
	// started before RangeStart but is still running is kept.
	dur := ev.End.Sub(ev.Start)
	loc := ev.Start.Location()
	occTimes := set.Between(cfg.RangeStart.Add(-dur).In(loc), cfg.RangeEnd.In(loc), true)

	hitCap := false
	if len(occTimes) > cfg.MaxOccurrencesPerEvent {
		occTimes = occTimes[:cfg.MaxOccurrencesPerEvent]
		hitCap = true
	}

	out := make([]model.Occurrence, 0, len(occTimes))
	replaced := make(map[int]bool)
	for _, occStart := range occTimes {
		var occEnd time.Time
		if ev.AllDay {
			occStart = time.Date(occStart.Year(), occStart.Month(), occStart.Day(), 0, 0, 0, 0, occStart.Location())
			occEnd = occStart.AddDate(0, 0, 1)
		} else {
			occEnd = occStart.Add(dur)
		}

		start, end, base := occStart, occEnd, ev
		if i, ok := findOverrideForStart(overrides, occStart); ok {
			replaced[i] = true
			o := overrides[i]
			if !timeRangesOverlap(o.Start, o.End, cfg.RangeStart, cfg.RangeEnd) {
				// Moved out of the range.
				continue
			}
			start, end, base = o.Start, o.End, o
		}

		out = append(out, makeOccurrence(base, start, end, cfg.DisplayLocation))
	}

	// Instances outside the range can be moved into it.
	for i, o := range overrides {
		if replaced[i] || !timeRangesOverlap(o.Start, o.End, cfg.RangeStart, cfg.RangeEnd) {
			continue
		}
		rid := o.Recurrence.In(loc)
		if len(set.Between(rid, rid, true)) == 0 {
			appLog.Debug("expand: override does not match an instance", "uid", o.UID, "recurrence_id", rid)
			continue
		}
		out = append(out, makeOccurrence(o, o.Start, o.End, cfg.DisplayLocation))
	}

	return out, hitCap
}

// findOverrideForStart returns the index of the override whose RECURRENCE-ID
// equals start.
func findOverrideForStart(overrides []ParsedEvent, start time.Time) (int, bool) {
	for i, ov := range overrides {
		if ov.Recurrence != nil && ov.Recurrence.Equal(start) {
			return i, true
		}
	}
	return -1, false
}

// makeOccurrence builds an Occurrence in displayLoc. All-day occurrences keep
// their calendar date rather than being shifted by the zone change.
func makeOccurrence(ev ParsedEvent, start, end time.Time, displayLoc *time.Location) model.Occurrence {
	if ev.AllDay {
		start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, displayLoc)
		end = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, displayLoc)
	} else {
		start = start.In(displayLoc)
		end = end.In(displayLoc)
	}

	return model.Occurrence{
		SourceID:    ev.Source.ID,
		UID:         ev.UID,
		InstanceKey: start.Format(time.RFC3339Nano),
		Summary:     ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		AllDay:      ev.AllDay,
		Start:       start,
		End:         end,
	}
}

func timeRangesOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aEnd.Before(bStart) && !bEnd.Before(aStart)
}
