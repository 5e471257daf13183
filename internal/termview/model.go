// Package termview is an interactive terminal day view. Event blocks are laid
// out by the same timeline engine as the web page, with one terminal row per
// VerticalDiff unit and one column per width unit.
package termview

import (
	"context"
	"fmt"
	"image/color"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss/v2"

	appLog "dayview/internal/log"
	"dayview/internal/model"
	"dayview/internal/pool"
	"dayview/internal/timeline"
)

// Source supplies the events of a day. *agenda.Agenda implements it.
type Source interface {
	Ensure(ctx context.Context, day time.Time) error
	Day(day time.Time) []timeline.Descriptor
	AllDay(day time.Time) []model.Occurrence
}

const (
	defaultRowsPerHour = 2
	minRowsPerHour     = 1
	maxRowsPerHour     = 12
	defaultScrollHour  = 8
)

// Options configures a Model.
type Options struct {
	// Layout supplies the grouping policy and split interval; the geometry
	// is derived from the terminal size.
	Layout     timeline.Config
	TimeFormat string
	Location   *time.Location
	Day        time.Time
}

// Styles used by the view.
type Styles struct {
	Header lipgloss.Style
	Hour   lipgloss.Style
	Now    lipgloss.Style
	Status lipgloss.Style
}

// DefaultStyles returns the default palette.
func DefaultStyles() Styles {
	return Styles{
		Header: lipgloss.NewStyle().Foreground(lipgloss.ANSIColor(220)).Bold(true),
		Hour:   lipgloss.NewStyle().Foreground(lipgloss.ANSIColor(244)),
		Now:    lipgloss.NewStyle().Foreground(lipgloss.ANSIColor(196)).Bold(true),
		Status: lipgloss.NewStyle().Foreground(lipgloss.ANSIColor(252)).Background(lipgloss.ANSIColor(236)),
	}
}

var blockColors = []color.Color{
	lipgloss.ANSIColor(110),
	lipgloss.ANSIColor(150),
	lipgloss.ANSIColor(180),
	lipgloss.ANSIColor(216),
	lipgloss.ANSIColor(183),
}

// Model is the bubbletea model of the day view.
type Model struct {
	src  Source
	ctx  context.Context
	loc  *time.Location
	base timeline.Config

	tl     *timeline.Timeline
	blocks *pool.Pool[*block]
	live   []*block
	allDay []model.Occurrence

	timeFormat  string
	rowsPerHour int
	gutter      int
	top         int // first visible timeline row
	scrolled    bool

	width, height int
	status        string
	loading       bool
	styles        Styles
	now           func() time.Time
}

// New returns a Model showing opts.Day.
func New(ctx context.Context, src Source, opts Options) *Model {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.TimeFormat == "" {
		opts.TimeFormat = "15:04"
	}
	day := opts.Day
	if day.IsZero() {
		day = time.Now()
	}
	day = day.In(opts.Location)

	m := &Model{
		src:         src,
		ctx:         ctx,
		loc:         opts.Location,
		base:        opts.Layout,
		timeFormat:  opts.TimeFormat,
		rowsPerHour: defaultRowsPerHour,
		gutter:      lipgloss.Width(day.Format(opts.TimeFormat)) + 1,
		blocks:      pool.New(func() *block { return &block{} }),
		styles:      DefaultStyles(),
		now:         time.Now,
	}
	m.tl = timeline.New(day, m.layoutConfig())
	return m
}

// Run starts an interactive program until the user quits or ctx is done.
func Run(ctx context.Context, src Source, opts Options) error {
	m := New(ctx, src, opts)
	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	_, err := p.Run()
	return err
}

// layoutConfig maps the user's layout onto terminal cells.
func (m *Model) layoutConfig() timeline.Config {
	c := m.base
	c.VerticalInset = 0
	c.VerticalDiff = float64(m.rowsPerHour)
	c.LeadingInset = float64(m.gutter)
	c.CalendarWidth = float64(max(m.width-m.gutter, 1))
	// Cells cannot hold a fractional gap; columns are separated at render time.
	c.EventGap = 0
	return c
}

// viewRows is the number of timeline rows between the header and status.
func (m *Model) viewRows() int {
	return max(m.height-2, 1)
}

// dayLoadedMsg carries the events of one day back to Update.
type dayLoadedMsg struct {
	day    time.Time
	events []timeline.Descriptor
	allDay []model.Occurrence
	err    error
}

func (m *Model) loadDay(day time.Time) tea.Cmd {
	m.loading = true
	src, ctx := m.src, m.ctx
	return func() tea.Msg {
		err := src.Ensure(ctx, day)
		return dayLoadedMsg{day: day, events: src.Day(day), allDay: src.AllDay(day), err: err}
	}
}

// Init loads the initial day.
func (m *Model) Init() tea.Cmd {
	return m.loadDay(m.tl.Day())
}

// Update handles input and loaded data.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.tl.SetConfig(m.layoutConfig())
		if !m.scrolled {
			m.scrollToHour(defaultScrollHour)
		}
		m.clampTop()
		return m, nil

	case dayLoadedMsg:
		if !sameDay(msg.day, m.tl.Day()) {
			return m, nil // stale
		}
		m.loading = false
		if msg.err != nil {
			appLog.Error("termview: load failed", msg.err, "date", msg.day.Format("2006-01-02"))
			m.status = "load failed: " + msg.err.Error()
		}
		m.tl.SetEvents(msg.events)
		m.allDay = msg.allDay
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft {
			m.handleClick(msg.X, msg.Y)
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "j", "down":
		m.scroll(1)
	case "k", "up":
		m.scroll(-1)
	case "h", "left":
		return m, m.setDay(m.tl.Day().AddDate(0, 0, -1))
	case "l", "right":
		return m, m.setDay(m.tl.Day().AddDate(0, 0, 1))
	case "t":
		return m, m.setDay(m.now().In(m.loc))
	case "+", "=":
		m.zoom(m.rowsPerHour * 2)
	case "-":
		m.zoom(m.rowsPerHour / 2)
	case "o":
		m.base.EventsWillOverlap = !m.base.EventsWillOverlap
		m.tl.SetConfig(m.layoutConfig())
		if m.base.EventsWillOverlap {
			m.status = fmt.Sprintf("grouping: %d minute windows", m.base.SplitMinuteInterval)
		} else {
			m.status = "grouping: overlapping events"
		}
	}
	return m, nil
}

func (m *Model) setDay(day time.Time) tea.Cmd {
	if sameDay(day, m.tl.Day()) {
		return nil
	}
	m.tl.SetDay(day)
	m.tl.SetEvents(nil)
	m.allDay = nil
	m.status = ""
	return m.loadDay(m.tl.Day())
}

func (m *Model) scroll(rows int) {
	m.top += rows
	m.scrolled = true
	m.clampTop()
}

func (m *Model) scrollToHour(hour int) {
	day := m.tl.Day()
	t := time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, day.Location())
	m.top = int(m.tl.DateToY(t))
}

func (m *Model) clampTop() {
	maxTop := int(timeline.FullHeight(m.tl.Config())) - m.viewRows()
	m.top = min(m.top, maxTop)
	m.top = max(m.top, 0)
}

// zoom changes rows per hour, keeping the time at the top of the screen.
func (m *Model) zoom(rows int) {
	rows = min(max(rows, minRowsPerHour), maxRowsPerHour)
	if rows == m.rowsPerHour {
		return
	}
	anchor := m.tl.YToDate(float64(m.top))
	m.rowsPerHour = rows
	m.tl.SetConfig(m.layoutConfig())
	m.top = int(m.tl.DateToY(anchor))
	m.clampTop()
}

// handleClick resolves a screen cell through the timeline hit tester.
func (m *Model) handleClick(x, y int) {
	row := y - 1
	if row < 0 || row >= m.viewRows() {
		return
	}
	hit := m.tl.HitTest(float64(x)+0.5, float64(m.top+row)+0.5)
	m.status = describeHit(hit, m.timeFormat)
}

func describeHit(hit timeline.Hit, format string) string {
	if hit.Kind == timeline.HitEvent {
		d := hit.Event.Descriptor
		return fmt.Sprintf("%s  %s-%s", d.Title, d.Interval.Start.Format(format), d.Interval.End.Format(format))
	}
	return hit.Time.Format("Mon Jan 2 " + format)
}

// relayout rebinds pooled blocks to the current layout.
func (m *Model) relayout() {
	attrs := m.tl.Layout()
	contents := make([]blockContent, 0, len(attrs))
	for i, a := range attrs {
		contents = append(contents, blockContent{
			attrs:      a,
			timeFormat: m.timeFormat,
			color:      blockColors[i%len(blockColors)],
		})
	}
	m.live = pool.Rebind(m.blocks, m.live, contents)
}

// View renders the header, hour gutter, event blocks and status line.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}
	m.relayout()

	rows := m.viewRows()
	layers := []*lipgloss.Layer{
		lipgloss.NewLayer(m.header()).X(0).Y(0).Z(0),
	}
	layers = append(layers, m.hourLayers(rows)...)
	for i, b := range m.live {
		if l := b.layer(m.top, rows, 1, i+2); l != nil {
			layers = append(layers, l)
		}
	}
	layers = append(layers, lipgloss.NewLayer(m.statusLine()).X(0).Y(m.height-1).Z(1))

	return lipgloss.NewCanvas(layers...).Render()
}

func (m *Model) header() string {
	text := m.tl.Day().Format("Monday, January 2 2006")
	if m.loading {
		text += "  (loading)"
	}
	if len(m.allDay) > 0 {
		names := make([]string, 0, len(m.allDay))
		for _, occ := range m.allDay {
			names = append(names, occ.Summary)
		}
		text += "  | " + strings.Join(names, ", ")
	}
	return m.styles.Header.Render(truncateTo(text, m.width))
}

func (m *Model) hourLayers(rows int) []*lipgloss.Layer {
	var layers []*lipgloss.Layer
	labels := m.tl.HourLabels(m.timeFormat)
	day := m.tl.Day()
	for h, label := range labels {
		t := time.Date(day.Year(), day.Month(), day.Day(), h, 0, 0, 0, day.Location())
		y := int(m.tl.DateToY(t)) - m.top
		if y < 0 || y >= rows {
			continue
		}
		layers = append(layers, lipgloss.NewLayer(m.styles.Hour.Render(label)).X(0).Y(1+y).Z(1))
	}

	now := m.now().In(m.loc)
	if sameDay(now, day) {
		y := int(m.tl.DateToY(now)) - m.top
		if y >= 0 && y < rows {
			line := m.styles.Now.Render(strings.Repeat("─", max(m.width-m.gutter, 0)))
			layers = append(layers, lipgloss.NewLayer(line).X(m.gutter).Y(1+y).Z(1))
		}
	}
	return layers
}

func (m *Model) statusLine() string {
	text := m.status
	if text == "" {
		text = "j/k scroll  h/l day  t today  +/- zoom  o grouping  q quit"
	}
	return m.styles.Status.Width(m.width).Render(truncateTo(" "+text, m.width))
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.In(a.Location()).Date()
	return ay == by && am == bm && ad == bd
}
