package timeline

import (
	"math"
	"time"
)

// hoursPerDay is the height of one rendered day in VerticalDiff units.
const hoursPerDay = 24

// minuteEpsilon absorbs float error when converting a pixel offset back to
// whole minutes, so that DateToY -> YToDate is stable at minute precision.
const minuteEpsilon = 1e-6

// FullHeight is the pixel height of one full rendered day (without insets).
func FullHeight(cfg Config) float64 {
	return hoursPerDay * cfg.VerticalDiff
}

// DateToY maps t to a vertical pixel offset on the timeline of day.
//
// t is read in day's location. Its hour and minute give the offset inside a
// day; an instant whose calendar date is before (after) day's date is shifted
// one full day up (down), which is how events that begin the previous day or
// end the next day are drawn.
func DateToY(t, day time.Time, cfg Config) float64 {
	t = t.In(day.Location())

	hourY := float64(t.Hour())*cfg.VerticalDiff + cfg.VerticalInset
	minuteY := float64(t.Minute()) * cfg.VerticalDiff / 60

	return hourY + minuteY + FullHeight(cfg)*float64(dayOffset(t, day))
}

// YToDate maps a vertical pixel offset back to a minute-aligned instant on
// the timeline of day. Offsets above the first hour resolve to the previous
// day, offsets past the 24th hour to the next day.
func YToDate(y float64, day time.Time, cfg Config) time.Time {
	minutes := int(math.Floor((y-cfg.VerticalInset)/cfg.VerticalDiff*60 + minuteEpsilon))

	hour := floorDiv(minutes, 60)
	minute := clamp(minutes-hour*60, 0, 59)

	offset := 0
	if hour > 23 {
		hour -= hoursPerDay
		offset = 1
	} else if hour < 0 {
		hour += hoursPerDay
		offset = -1
	}

	return time.Date(day.Year(), day.Month(), day.Day()+offset, hour, minute, 0, 0, day.Location())
}

// dayOffset returns -1, 0 or +1 depending on how t's calendar date compares
// with day's calendar date. Both must already be in the same location.
func dayOffset(t, day time.Time) int {
	ty, tm, td := t.Date()
	dy, dm, dd := day.Date()
	a := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	b := time.Date(dy, dm, dd, 0, 0, 0, 0, time.UTC)
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
