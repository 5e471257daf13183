package termview

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"dayview/internal/model"
	"dayview/internal/timeline"
)

var testDay = time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

type fakeSource struct {
	events map[string][]timeline.Descriptor
	allDay map[string][]model.Occurrence
	err    error
}

func (f *fakeSource) Ensure(context.Context, time.Time) error { return f.err }

func (f *fakeSource) Day(day time.Time) []timeline.Descriptor {
	return f.events[day.Format("2006-01-02")]
}

func (f *fakeSource) AllDay(day time.Time) []model.Occurrence {
	return f.allDay[day.Format("2006-01-02")]
}

func desc(id string, sh, sm, eh, em int) timeline.Descriptor {
	at := func(h, m int) time.Time { return testDay.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute) }
	return timeline.Descriptor{ID: id, Title: id, Interval: timeline.Interval{Start: at(sh, sm), End: at(eh, em)}}
}

func newTestModel(t *testing.T, src Source) *Model {
	t.Helper()
	layout := timeline.DefaultConfig()
	layout.EventsWillOverlap = false
	m := New(context.Background(), src, Options{Layout: layout, Location: time.UTC, Day: testDay})
	m.now = func() time.Time { return testDay.Add(10 * time.Hour) }

	m.Update(tea.WindowSizeMsg{Width: 86, Height: 30})
	m.Update(m.Init()())
	return m
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestInitialLayout(t *testing.T) {
	src := &fakeSource{events: map[string][]timeline.Descriptor{
		"2025-03-14": {desc("Standup", 9, 0, 10, 0), desc("Pairing", 9, 30, 10, 30)},
	}}
	m := newTestModel(t, src)

	if m.gutter != 6 {
		t.Fatalf("gutter = %d, want 6", m.gutter)
	}
	if m.top != 16 {
		t.Errorf("top = %d, want 8:00 at 2 rows per hour", m.top)
	}

	view := m.View()
	for _, want := range []string{"Friday, March 14 2025", "Standup", "Pairing", "09:00"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}

	if len(m.live) != 2 {
		t.Fatalf("live blocks = %d", len(m.live))
	}
	a, b := m.live[0], m.live[1]
	if a.x != 6 || a.w != 40 || b.x != 46 || b.w != 40 {
		t.Errorf("columns = (%d,%d) (%d,%d), want (6,40) (46,40)", a.x, a.w, b.x, b.w)
	}
	if a.y != 18 || a.h != 2 {
		t.Errorf("Standup rows = y %d h %d, want 18/2", a.y, a.h)
	}
}

func TestRedrawReusesBlocks(t *testing.T) {
	src := &fakeSource{events: map[string][]timeline.Descriptor{
		"2025-03-14": {desc("a", 9, 0, 10, 0), desc("b", 11, 0, 12, 0), desc("c", 13, 0, 14, 0)},
		"2025-03-15": {desc("d", 9, 0, 10, 0)},
	}}
	m := newTestModel(t, src)

	for i := 0; i < 5; i++ {
		m.View()
		m.Update(key("j"))
	}
	if got := m.blocks.Created(); got != 3 {
		t.Errorf("created = %d after redraws, want 3", got)
	}

	_, cmd := m.Update(key("l"))
	m.Update(cmd())
	m.View()
	if got := m.blocks.Created(); got != 3 {
		t.Errorf("created = %d after moving to a smaller day, want 3", got)
	}
	if m.blocks.Free() != 2 || len(m.live) != 1 {
		t.Errorf("free = %d live = %d", m.blocks.Free(), len(m.live))
	}
}

func TestKeys(t *testing.T) {
	src := &fakeSource{}
	m := newTestModel(t, src)

	m.Update(key("j"))
	m.Update(key("j"))
	if m.top != 18 {
		t.Errorf("top after jj = %d", m.top)
	}
	m.Update(key("k"))
	if m.top != 17 {
		t.Errorf("top after k = %d", m.top)
	}

	for i := 0; i < 100; i++ {
		m.Update(key("k"))
	}
	if m.top != 0 {
		t.Errorf("top clamped = %d", m.top)
	}

	_, cmd := m.Update(key("h"))
	if cmd == nil || !m.tl.Day().Equal(testDay.AddDate(0, 0, -1)) {
		t.Fatalf("h: day = %v", m.tl.Day())
	}
	m.Update(cmd())
	m.Update(key("l"))
	m.Update(key("l"))
	if !m.tl.Day().Equal(testDay.AddDate(0, 0, 1)) {
		t.Errorf("ll: day = %v", m.tl.Day())
	}
	m.Update(key("t"))
	if !m.tl.Day().Equal(testDay) {
		t.Errorf("t: day = %v", m.tl.Day())
	}

	_, cmd = m.Update(key("q"))
	if cmd == nil {
		t.Fatal("q: no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
}

func TestZoomKeepsTopTime(t *testing.T) {
	m := newTestModel(t, &fakeSource{})
	before := m.tl.YToDate(float64(m.top))
	v := m.tl.Version()

	m.Update(key("+"))
	if m.rowsPerHour != 4 {
		t.Fatalf("rowsPerHour = %d", m.rowsPerHour)
	}
	if m.tl.Version() == v {
		t.Error("zoom did not bump the timeline version")
	}
	if got := m.tl.YToDate(float64(m.top)); !got.Equal(before) {
		t.Errorf("top time = %v, want %v", got, before)
	}

	for i := 0; i < 10; i++ {
		m.Update(key("-"))
	}
	if m.rowsPerHour != minRowsPerHour {
		t.Errorf("rowsPerHour = %d, want %d", m.rowsPerHour, minRowsPerHour)
	}
}

func TestToggleOverlap(t *testing.T) {
	src := &fakeSource{events: map[string][]timeline.Descriptor{
		"2025-03-14": {desc("a", 9, 0, 10, 0), desc("b", 9, 30, 10, 30)},
	}}
	m := newTestModel(t, src)

	if got := len(m.tl.Layout()); got != 2 || m.tl.Layout()[0].Frame.Width != 40 {
		t.Fatalf("strict grouping should share the row")
	}

	m.Update(key("o"))
	if !m.base.EventsWillOverlap {
		t.Fatal("o did not toggle")
	}
	for _, a := range m.tl.Layout() {
		if a.Frame.Width != 80 {
			t.Errorf("%s width = %v, want full width under 15 minute windows", a.Descriptor.ID, a.Frame.Width)
		}
	}
	if !strings.Contains(m.status, "15 minute") {
		t.Errorf("status = %q", m.status)
	}

	m.Update(key("o"))
	if m.base.EventsWillOverlap || m.status != "grouping: overlapping events" {
		t.Errorf("second toggle: overlap = %v, status = %q", m.base.EventsWillOverlap, m.status)
	}
	if got := m.tl.Layout()[0].Frame.Width; got != 40 {
		t.Errorf("width after toggling back = %v, want 40", got)
	}
}

func TestMouseHit(t *testing.T) {
	src := &fakeSource{events: map[string][]timeline.Descriptor{
		"2025-03-14": {desc("Standup", 9, 0, 10, 0)},
	}}
	m := newTestModel(t, src)

	press := func(x, y int) {
		m.Update(tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	}

	// Screen row 3 is timeline row 18 (09:00) with 8:00 at the top.
	press(10, 3)
	if !strings.HasPrefix(m.status, "Standup") {
		t.Errorf("status = %q, want the event", m.status)
	}

	press(2, 1)
	if m.status != "Fri Mar 14 08:15" {
		t.Errorf("status = %q, want time under pointer", m.status)
	}

	m.status = ""
	press(10, 0)
	if m.status != "" {
		t.Errorf("header click changed status to %q", m.status)
	}
}

func TestLoadErrorShown(t *testing.T) {
	m := newTestModel(t, &fakeSource{err: errors.New("offline")})
	if !strings.Contains(m.status, "offline") {
		t.Errorf("status = %q", m.status)
	}
}

func TestStaleLoadIgnored(t *testing.T) {
	src := &fakeSource{events: map[string][]timeline.Descriptor{
		"2025-03-14": {desc("a", 9, 0, 10, 0)},
	}}
	m := newTestModel(t, src)

	m.Update(key("l"))
	m.Update(dayLoadedMsg{day: testDay, events: src.events["2025-03-14"]})
	if n := len(m.tl.Events()); n != 0 {
		t.Errorf("stale load applied: %d events", n)
	}
}

func TestViewBeforeSize(t *testing.T) {
	m := New(context.Background(), &fakeSource{}, Options{Location: time.UTC, Day: testDay})
	if got := m.View(); got != "Loading..." {
		t.Errorf("View() = %q", got)
	}
}
