package agenda

import (
	"context"
	"errors"
	"testing"
	"time"

	"dayview/internal/ics"
	"dayview/internal/model"
)

type fakeLoader struct {
	occ   []model.Occurrence
	err   error
	calls int
	start time.Time
	end   time.Time
}

func (f *fakeLoader) Load(_ context.Context, start, end time.Time) (ics.ExpandResult, error) {
	f.calls++
	f.start, f.end = start, end
	return ics.ExpandResult{Occurrences: f.occ}, f.err
}

var day = time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

func occ(uid string, start, end time.Time, allDay bool) model.Occurrence {
	return model.Occurrence{
		SourceID:    "work",
		UID:         uid,
		InstanceKey: start.Format(time.RFC3339Nano),
		Summary:     uid,
		AllDay:      allDay,
		Start:       start,
		End:         end,
	}
}

func newTestAgenda(l Loader) *Agenda {
	a := New(l, time.UTC, 7)
	a.now = func() time.Time { return day.Add(10 * time.Hour) }
	return a
}

func TestRefreshWindow(t *testing.T) {
	l := &fakeLoader{}
	a := newTestAgenda(l)

	if err := a.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if !l.start.Equal(day.AddDate(0, 0, -1)) {
		t.Errorf("start = %v", l.start)
	}
	if !l.end.Equal(day.AddDate(0, 0, 8)) {
		t.Errorf("end = %v", l.end)
	}
	if !a.Covers(day) || !a.Covers(day.AddDate(0, 0, 7)) {
		t.Error("window should cover today through today+horizon")
	}
	if a.Covers(day.AddDate(0, 0, 8)) {
		t.Error("window should not cover today+horizon+1")
	}
}

func TestDay(t *testing.T) {
	at := func(h, m int) time.Time { return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute) }

	late := occ("late", at(9, 0), at(10, 0), false)
	l := &fakeLoader{occ: []model.Occurrence{
		late,
		occ("early", at(8, 0), at(8, 30), false),
		occ("overnight", at(-2, 0), at(1, 0), false),
		occ("tomorrow", at(24, 0), at(25, 0), false),
		occ("yesterday", at(-3, 0), at(0, 0), false),
		occ("instant", at(12, 0), at(12, 0), false),
		occ("holiday", day, day.AddDate(0, 0, 1), true),
		late,
	}}
	a := newTestAgenda(l)
	if err := a.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	got := a.Day(day)
	want := []string{"overnight", "early", "late", "instant"}
	if len(got) != len(want) {
		t.Fatalf("Day() = %d descriptors, want %d: %+v", len(got), len(want), got)
	}
	for i, w := range want {
		if got[i].Title != w {
			t.Errorf("Day()[%d] = %q, want %q", i, got[i].Title, w)
		}
		if got[i].AllDay {
			t.Errorf("Day()[%d] is all-day", i)
		}
	}

	allDay := a.AllDay(day)
	if len(allDay) != 1 || allDay[0].UID != "holiday" {
		t.Errorf("AllDay() = %+v", allDay)
	}
	if len(a.AllDay(day.AddDate(0, 0, 1))) != 0 {
		t.Error("holiday must not spill into the next day")
	}
}

func TestRefreshKeepsCacheOnTotalFailure(t *testing.T) {
	l := &fakeLoader{occ: []model.Occurrence{occ("a", day.Add(9*time.Hour), day.Add(10*time.Hour), false)}}
	a := newTestAgenda(l)
	if err := a.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	l.occ = nil
	l.err = errors.New("network down")
	if err := a.Refresh(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if n := len(a.Occurrences()); n != 1 {
		t.Errorf("occurrences after failed refresh = %d, want 1", n)
	}
}

func TestRefreshPartialFailure(t *testing.T) {
	l := &fakeLoader{
		occ: []model.Occurrence{occ("a", day.Add(9*time.Hour), day.Add(10*time.Hour), false)},
		err: errors.New("one feed failed"),
	}
	a := newTestAgenda(l)
	if err := a.Refresh(context.Background()); err == nil {
		t.Fatal("expected partial error to be reported")
	}
	if n := len(a.Occurrences()); n != 1 {
		t.Errorf("occurrences = %d, want 1", n)
	}
}

func TestEnsure(t *testing.T) {
	l := &fakeLoader{}
	a := newTestAgenda(l)
	ctx := context.Background()

	if err := a.Ensure(ctx, day); err != nil {
		t.Fatal(err)
	}
	if l.calls != 1 {
		t.Fatalf("calls = %d, want 1", l.calls)
	}
	if err := a.Ensure(ctx, day.AddDate(0, 0, 2)); err != nil {
		t.Fatal(err)
	}
	if l.calls != 1 {
		t.Errorf("covered day reloaded: calls = %d", l.calls)
	}

	far := day.AddDate(0, 1, 0)
	if err := a.Ensure(ctx, far); err != nil {
		t.Fatal(err)
	}
	if l.calls != 2 || !a.Covers(far) {
		t.Errorf("calls = %d, covers = %v", l.calls, a.Covers(far))
	}
}

func TestDescriptor(t *testing.T) {
	o := occ("standup", day.Add(9*time.Hour), day.Add(9*time.Hour+15*time.Minute), false)
	d := Descriptor(o)
	if d.ID != o.Key() || d.Title != "standup" {
		t.Errorf("Descriptor() = %+v", d)
	}
	if !d.Interval.Start.Equal(o.Start) || !d.Interval.End.Equal(o.End) {
		t.Errorf("interval = %+v", d.Interval)
	}
}
