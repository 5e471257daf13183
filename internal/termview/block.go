package termview

import (
	"image/color"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss/v2"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"

	"dayview/internal/pool"
	"dayview/internal/timeline"
)

// blockContent is what a block handle is bound to on each layout pass.
type blockContent struct {
	attrs      *timeline.Attributes
	timeFormat string
	color      color.Color
}

// block is an on-screen event. Blocks are recycled through a pool; Bind
// converts the float frame to terminal cells.
type block struct {
	id    string
	title string
	span  string
	color color.Color

	// Cell rectangle in timeline rows (not screen rows).
	x, y, w, h int
}

func (b *block) Bind(c blockContent) {
	f := c.attrs.Frame
	iv := c.attrs.Descriptor.Interval

	x := int(math.Round(f.X))
	w := int(math.Round(f.MaxX())) - x
	y := int(math.Floor(f.Y))
	h := int(math.Ceil(f.MaxY())) - y
	if h < 1 {
		h = 1
	}

	*b = block{
		id:    c.attrs.Descriptor.ID,
		title: c.attrs.Descriptor.Title,
		span:  iv.Start.Format(c.timeFormat) + "-" + iv.End.Format(c.timeFormat),
		color: c.color,
		x:     x,
		y:     y,
		w:     w,
		h:     h,
	}
}

var _ pool.Bindable[blockContent] = (*block)(nil)

// layer renders the part of b visible in rows [top, top+rows) at screen row
// offset originY. It returns nil when nothing is visible.
func (b *block) layer(top, rows, originY, z int) *lipgloss.Layer {
	y, h := b.y-top, b.h
	if y < 0 {
		h += y
		y = 0
	}
	if y+h > rows {
		h = rows - y
	}
	w := b.w
	if w > 2 {
		w-- // one blank cell between neighbouring columns
	}
	if h <= 0 || w <= 0 {
		return nil
	}

	lines := b.lines(w)
	if len(lines) > h {
		lines = lines[:h]
	}

	fg := lipgloss.ANSIColor(235)
	content := lipgloss.NewStyle().
		Background(b.color).
		Foreground(fg).
		Width(w).
		Height(h).
		Render(strings.Join(lines, "\n"))

	return lipgloss.NewLayer(content).X(b.x).Y(originY + y).Z(z)
}

// lines wraps title and time span into at most one cell-width per line.
func (b *block) lines(w int) []string {
	text := b.title
	if b.h > 1 {
		text += "\n" + b.span
	} else {
		text += " " + b.span
	}

	var out []string
	for _, line := range strings.Split(wordwrap.String(text, w), "\n") {
		out = append(out, truncate.StringWithTail(line, uint(w), "…"))
	}
	return out
}

func truncateTo(s string, w int) string {
	if w <= 0 {
		return ""
	}
	return truncate.StringWithTail(s, uint(w), "…")
}
