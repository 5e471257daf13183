package web

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"dayview/internal/agenda"
	"dayview/internal/config"
	"dayview/internal/ics"
	"dayview/internal/model"
)

type staticLoader []model.Occurrence

func (l staticLoader) Load(_ context.Context, _, _ time.Time) (ics.ExpandResult, error) {
	return ics.ExpandResult{Occurrences: l}, nil
}

var testDay = time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

func occAt(uid string, sh, sm, eh, em int) model.Occurrence {
	start := testDay.Add(time.Duration(sh)*time.Hour + time.Duration(sm)*time.Minute)
	end := testDay.Add(time.Duration(eh)*time.Hour + time.Duration(em)*time.Minute)
	return model.Occurrence{
		SourceID:    "work",
		UID:         uid,
		InstanceKey: start.Format(time.RFC3339Nano),
		Summary:     uid,
		Start:       start,
		End:         end,
	}
}

func newTestServer(t *testing.T, occ []model.Occurrence, mutate func(*config.Config)) *Server {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Layout.EventsWillOverlap = false
	cfg.Layout.CalendarWidth = 300
	cfg.PreviewPath = t.TempDir() + "/preview.png"
	if mutate != nil {
		mutate(cfg)
	}
	return NewServer(cfg, agenda.New(staticLoader(occ), time.UTC, 7))
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil, nil)
	rec := get(t, s.Handler(), "/health")
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("GET /health = %d %q", rec.Code, rec.Body.String())
	}
}

func TestBasicAuth(t *testing.T) {
	s := newTestServer(t, nil, func(c *config.Config) {
		c.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "secret"}
	})
	h := s.Handler()

	if rec := get(t, h, "/health"); rec.Code != http.StatusOK {
		t.Errorf("/health behind auth: %d", rec.Code)
	}
	if rec := get(t, h, "/api/dayview?date=2025-03-14"); rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated /api/dayview: %d", rec.Code)
	}

	tests := []struct {
		name, user, pass string
		want             int
	}{
		{"valid", "admin", "secret", http.StatusOK},
		{"wrong password", "admin", "nope", http.StatusUnauthorized},
		{"wrong user", "root", "secret", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/dayview?date=2025-03-14", nil)
			req.SetBasicAuth(tt.user, tt.pass)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestBasicAuthFollowsReload(t *testing.T) {
	s := newTestServer(t, nil, nil)
	h := s.Handler()

	if rec := get(t, h, "/api/events"); rec.Code != http.StatusOK {
		t.Fatalf("without credentials configured: %d", rec.Code)
	}

	next := *s.Config()
	next.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "secret"}
	s.SetConfig(&next)
	if rec := get(t, h, "/api/events"); rec.Code != http.StatusUnauthorized {
		t.Errorf("after enabling auth: %d, want 401", rec.Code)
	}
	if rec := get(t, h, "/health"); rec.Code != http.StatusOK {
		t.Errorf("/health after enabling auth: %d", rec.Code)
	}

	off := next
	off.BasicAuth = nil
	s.SetConfig(&off)
	if rec := get(t, h, "/api/events"); rec.Code != http.StatusOK {
		t.Errorf("after disabling auth: %d, want 200", rec.Code)
	}
}

func TestDayviewJSON(t *testing.T) {
	s := newTestServer(t, []model.Occurrence{
		occAt("a", 9, 0, 10, 0),
		occAt("b", 9, 30, 10, 30),
		occAt("late", 20, 0, 21, 0),
	}, func(c *config.Config) { c.Layout.EventGap = 2 })

	rec := get(t, s.Handler(), "/api/dayview?date=2025-03-14")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp dayviewResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Date != "2025-03-14" || len(resp.Hours) != 25 || len(resp.Events) != 3 {
		t.Fatalf("resp = date %s, %d hours, %d events", resp.Date, len(resp.Hours), len(resp.Events))
	}
	if !approx(resp.Height, 24*45+2*10) {
		t.Errorf("Height = %v", resp.Height)
	}

	byTitle := map[string]frameDTO{}
	for _, e := range resp.Events {
		byTitle[e.Title] = e
	}

	a, b, late := byTitle["a"], byTitle["b"], byTitle["late"]
	if !approx(a.Frame.X, 53) || !approx(a.Frame.Width, 150) || !approx(a.Frame.Y, 10+9*45) || !approx(a.Frame.Height, 45) {
		t.Errorf("a.Frame = %+v", a.Frame)
	}
	if !approx(b.Frame.X, 203) || !approx(b.Frame.Width, 150) {
		t.Errorf("b.Frame = %+v", b.Frame)
	}
	if !approx(late.Frame.Width, 300) {
		t.Errorf("late.Frame = %+v, want full width", late.Frame)
	}
	if !approx(a.Inset.Width, 148) || !approx(a.Inset.Height, 43) || !approx(a.Inset.X, a.Frame.X) {
		t.Errorf("a.Inset = %+v", a.Inset)
	}
}

func TestDayviewJSONWidthOverride(t *testing.T) {
	s := newTestServer(t, []model.Occurrence{occAt("a", 9, 0, 10, 0)}, nil)

	rec := get(t, s.Handler(), "/api/dayview?date=2025-03-14&width=120")
	var resp dayviewResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Events) != 1 || !approx(resp.Events[0].Frame.Width, 120) {
		t.Errorf("events = %+v", resp.Events)
	}
}

func TestDayviewBadRequest(t *testing.T) {
	s := newTestServer(t, nil, nil)
	for _, target := range []string{
		"/api/dayview?date=14-03-2025",
		"/api/dayview?date=2025-03-14&width=-5",
		"/api/dayview?date=2025-03-14&width=wide",
		"/api/hit?date=2025-03-14&x=1",
		"/dayview?date=tomorrow",
	} {
		t.Run(target, func(t *testing.T) {
			if rec := get(t, s.Handler(), target); rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestHit(t *testing.T) {
	s := newTestServer(t, []model.Occurrence{
		occAt("a", 9, 0, 10, 0),
		occAt("b", 9, 30, 10, 30),
	}, nil)

	tests := []struct {
		name     string
		query    string
		wantKind string
		wantID   string
		wantTime time.Time
	}{
		{"first column", "x=60&y=420", "event", "a", time.Time{}},
		{"second column", "x=250&y=440", "event", "b", time.Time{}},
		{"gutter", "x=10&y=420", "time", "", testDay.Add(9*time.Hour + 6*time.Minute)},
		{"empty morning", "x=100&y=145", "time", "", testDay.Add(3 * time.Hour)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, s.Handler(), "/api/hit?date=2025-03-14&"+tt.query)
			var resp hitResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatal(err)
			}
			if resp.Kind != tt.wantKind {
				t.Fatalf("kind = %q, want %q", resp.Kind, tt.wantKind)
			}
			if tt.wantKind == "event" && (resp.Event == nil || resp.Event.Title != tt.wantID) {
				t.Errorf("event = %+v, want %s", resp.Event, tt.wantID)
			}
			if tt.wantKind == "time" && !resp.Time.Equal(tt.wantTime) {
				t.Errorf("time = %v, want %v", resp.Time, tt.wantTime)
			}
		})
	}
}

func TestDayviewPageReusesBlocks(t *testing.T) {
	s := newTestServer(t, []model.Occurrence{
		occAt("Standup", 9, 0, 9, 30),
		occAt("Review <draft>", 13, 0, 15, 0),
	}, nil)
	h := s.Handler()

	for i := 0; i < 3; i++ {
		rec := get(t, h, "/dayview?date=2025-03-14")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		body := rec.Body.String()
		for _, want := range []string{`data-ready="true"`, "Standup", "Review &lt;draft&gt;", "09:00 - 09:30"} {
			if !strings.Contains(body, want) {
				t.Errorf("page missing %q", want)
			}
		}
	}

	if got := s.blocks.Created(); got != 2 {
		t.Errorf("pool created %d blocks over 3 renders, want 2", got)
	}

	// An empty day returns both handles to the pool.
	get(t, h, "/dayview?date=2025-03-20")
	if s.blocks.Free() != 2 || len(s.live) != 0 {
		t.Errorf("after empty day: free = %d, live = %d", s.blocks.Free(), len(s.live))
	}
}

func TestSetConfigBumpsVersion(t *testing.T) {
	s := newTestServer(t, []model.Occurrence{occAt("a", 9, 0, 10, 0)}, nil)
	h := s.Handler()

	decode := func() dayviewResponse {
		var resp dayviewResponse
		if err := json.NewDecoder(get(t, h, "/api/dayview?date=2025-03-14").Body).Decode(&resp); err != nil {
			t.Fatal(err)
		}
		return resp
	}

	before := decode()
	next := *s.Config()
	next.Layout.VerticalDiff = 60
	s.SetConfig(&next)
	after := decode()

	if after.Version <= before.Version {
		t.Errorf("version %d -> %d, want increase", before.Version, after.Version)
	}
	if !approx(after.Events[0].Frame.Y, 10+9*60) {
		t.Errorf("Frame.Y = %v after reload", after.Events[0].Frame.Y)
	}
}

func TestEvents(t *testing.T) {
	now := time.Now().UTC()
	s := newTestServer(t, []model.Occurrence{
		{SourceID: "work", UID: "soon", Summary: "soon", Start: now.Add(time.Hour), End: now.Add(2 * time.Hour)},
		{SourceID: "work", UID: "old", Summary: "old", Start: now.AddDate(0, 0, -30), End: now.AddDate(0, 0, -30).Add(time.Hour)},
	}, nil)

	rec := get(t, s.Handler(), "/api/events?days=3&backfill=1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp eventsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Occurrences) != 1 || resp.Occurrences[0].UID != "soon" {
		t.Errorf("occurrences = %+v", resp.Occurrences)
	}
}

func TestPreviewMissing(t *testing.T) {
	s := newTestServer(t, nil, nil)
	if rec := get(t, s.Handler(), "/preview.png"); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
