package timeline

import "time"

// AssignColumns writes a frame into every member of every group. Member i of
// a group of n gets the i-th of n equal columns across CalendarWidth; its
// vertical extent comes from its own start and end.
func AssignColumns(groups []Group, day time.Time, cfg Config) {
	for _, g := range groups {
		n := float64(len(g))
		width := cfg.CalendarWidth / n

		for i, a := range g {
			startY := DateToY(a.Descriptor.Interval.Start, day, cfg)
			endY := DateToY(a.Descriptor.Interval.End, day, cfg)

			a.Frame = Rect{
				X:      cfg.LeadingInset + float64(i)*width,
				Y:      startY,
				Width:  width,
				Height: endY - startY,
			}
		}
	}
}
