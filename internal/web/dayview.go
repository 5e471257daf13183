package web

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"dayview/internal/config"
	appLog "dayview/internal/log"
	"dayview/internal/model"
	"dayview/internal/pool"
	"dayview/internal/timeline"
)

const dateLayout = "2006-01-02"

// occurrenceDTO is a JSON-friendly view of occurrences.
type occurrenceDTO struct {
	SourceID    string    `json:"source_id"`
	UID         string    `json:"uid"`
	InstanceKey string    `json:"instance_key"`
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	AllDay      bool      `json:"all_day"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
}

func newOccurrenceDTO(occ model.Occurrence) occurrenceDTO {
	return occurrenceDTO{
		SourceID:    occ.SourceID,
		UID:         occ.UID,
		InstanceKey: occ.InstanceKey,
		Summary:     occ.Summary,
		Description: occ.Description,
		Location:    occ.Location,
		AllDay:      occ.AllDay,
		Start:       occ.Start,
		End:         occ.End,
	}
}

// frameDTO is one laid out event. Frame is the raw column frame, Inset the
// frame with the event gap applied, which is what gets drawn.
type frameDTO struct {
	ID    string        `json:"id"`
	Title string        `json:"title"`
	Start time.Time     `json:"start"`
	End   time.Time     `json:"end"`
	Frame timeline.Rect `json:"frame"`
	Inset timeline.Rect `json:"inset"`
}

func newFrameDTO(a *timeline.Attributes, gap float64) frameDTO {
	return frameDTO{
		ID:    a.Descriptor.ID,
		Title: a.Descriptor.Title,
		Start: a.Descriptor.Interval.Start,
		End:   a.Descriptor.Interval.End,
		Frame: a.Frame,
		Inset: a.Frame.Inset(gap),
	}
}

type hourDTO struct {
	Label string  `json:"label"`
	Y     float64 `json:"y"`
}

// dayviewResponse is the JSON response shape for /api/dayview.
type dayviewResponse struct {
	Date     string              `json:"date"`
	Timezone string              `json:"timezone"`
	Version  uint64              `json:"version"`
	Layout   config.LayoutConfig `json:"layout"`
	Width    float64             `json:"width"`
	Height   float64             `json:"height"`
	Hours    []hourDTO           `json:"hours"`
	Events   []frameDTO          `json:"events"`
	AllDay   []occurrenceDTO     `json:"all_day,omitempty"`
}

type hitResponse struct {
	Kind  string    `json:"kind"`
	Event *frameDTO `json:"event,omitempty"`
	Time  time.Time `json:"time,omitzero"`
}

var errBadRequest = errors.New("bad request")

// dayRequest is the parsed common query of the day endpoints.
type dayRequest struct {
	day    time.Time
	layout config.LayoutConfig
	cfg    *config.Config
}

// parseDayRequest reads ?date=YYYY-MM-DD (default today) and ?width= (default
// the configured calendar width).
func (s *Server) parseDayRequest(r *http.Request) (dayRequest, error) {
	cfg := s.Config()
	loc := s.agenda.Location()
	q := r.URL.Query()

	day := time.Now().In(loc)
	if v := q.Get("date"); v != "" {
		d, err := time.ParseInLocation(dateLayout, v, loc)
		if err != nil {
			return dayRequest{}, fmt.Errorf("%w: date must be YYYY-MM-DD", errBadRequest)
		}
		day = d
	}

	layout := cfg.Layout
	if v := q.Get("width"); v != "" {
		width, err := strconv.ParseFloat(v, 64)
		if err != nil || width <= 0 {
			return dayRequest{}, fmt.Errorf("%w: width must be a positive number", errBadRequest)
		}
		layout.CalendarWidth = width
	}

	return dayRequest{day: day, layout: layout, cfg: cfg}, nil
}

// withDay lays out the requested day on the shared timeline and calls fn
// while holding the render lock. Attributes must not escape fn.
func (s *Server) withDay(r *http.Request, fn func(dr dayRequest, tl *timeline.Timeline)) error {
	dr, err := s.parseDayRequest(r)
	if err != nil {
		return err
	}

	if err := s.agenda.Ensure(r.Context(), dr.day); err != nil {
		appLog.Error("dayview: agenda load failed", err, "date", dr.day.Format(dateLayout))
	}
	events := s.agenda.Day(dr.day)

	s.renderMu.Lock()
	defer s.renderMu.Unlock()

	s.tl.SetConfig(dr.layout.Timeline())
	s.tl.SetDay(dr.day)
	s.tl.SetEvents(events)
	fn(dr, s.tl)
	return nil
}

func (s *Server) handleDayviewJSON(w http.ResponseWriter, r *http.Request) {
	var (
		resp dayviewResponse
		day  time.Time
	)
	err := s.withDay(r, func(dr dayRequest, tl *timeline.Timeline) {
		day = tl.Day()
		cfg := tl.Config()
		attrs := tl.Layout()

		resp = dayviewResponse{
			Date:     tl.Day().Format(dateLayout),
			Timezone: s.agenda.Location().String(),
			Version:  tl.Version(),
			Layout:   dr.layout,
			Width:    cfg.LeadingInset + cfg.CalendarWidth,
			Height:   timeline.FullHeight(cfg) + 2*cfg.VerticalInset,
			Hours:    hourMarks(tl, dr.cfg.TimeFormat),
			Events:   make([]frameDTO, 0, len(attrs)),
		}
		for _, a := range attrs {
			resp.Events = append(resp.Events, newFrameDTO(a, cfg.EventGap))
		}
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if s.Config().ShowAllDay {
		for _, occ := range s.agenda.AllDay(day) {
			resp.AllDay = append(resp.AllDay, newOccurrenceDTO(occ))
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleHit resolves a point on the day view.
//
// GET /api/hit?date=2025-03-14&x=120&y=400
func (s *Server) handleHit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	x, errX := strconv.ParseFloat(q.Get("x"), 64)
	y, errY := strconv.ParseFloat(q.Get("y"), 64)
	if errX != nil || errY != nil {
		writeError(w, http.StatusBadRequest, "x and y must be numbers")
		return
	}

	var resp hitResponse
	err := s.withDay(r, func(_ dayRequest, tl *timeline.Timeline) {
		hit := tl.HitTest(x, y)
		switch hit.Kind {
		case timeline.HitEvent:
			dto := newFrameDTO(hit.Event, tl.Config().EventGap)
			resp = hitResponse{Kind: "event", Event: &dto}
		default:
			resp = hitResponse{Kind: "time", Time: hit.Time}
		}
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func hourMarks(tl *timeline.Timeline, format string) []hourDTO {
	labels := tl.HourLabels(format)
	day := tl.Day()
	out := make([]hourDTO, len(labels))
	for h, label := range labels {
		t := time.Date(day.Year(), day.Month(), day.Day(), h, 0, 0, 0, day.Location())
		out[h] = hourDTO{Label: label, Y: tl.DateToY(t)}
	}
	return out
}

// blockContent is what a block handle is bound to on each pass.
type blockContent struct {
	attrs      *timeline.Attributes
	gap        float64
	timeFormat string
}

// blockView is one absolutely positioned event block on the HTML page.
// Handles are recycled between requests through a pool.
type blockView struct {
	ID     string
	Title  string
	Range  string
	Left   float64
	Top    float64
	Width  float64
	Height float64
}

// Bind points the block at new content.
func (b *blockView) Bind(c blockContent) {
	f := c.attrs.Frame.Inset(c.gap)
	iv := c.attrs.Descriptor.Interval
	*b = blockView{
		ID:     c.attrs.Descriptor.ID,
		Title:  c.attrs.Descriptor.Title,
		Range:  iv.Start.Format(c.timeFormat) + " - " + iv.End.Format(c.timeFormat),
		Left:   f.X,
		Top:    f.Y,
		Width:  f.Width,
		Height: f.Height,
	}
}

var _ pool.Bindable[blockContent] = (*blockView)(nil)

type pageData struct {
	Date       string
	Width      float64
	Height     float64
	Hours      []hourDTO
	Blocks     []*blockView
	AllDay     []model.Occurrence
	ShowAllDay bool
}

var pageTmpl = template.Must(template.New("dayview").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Date}}</title>
<style>
body { margin: 0; font-family: sans-serif; background: #fff; color: #000; }
.allday { padding: 4px 8px; border-bottom: 1px solid #000; }
.allday span { display: inline-block; margin-right: 8px; padding: 1px 4px; border: 1px solid #000; font-size: 12px; }
.day { position: relative; }
.hour { position: absolute; left: 0; right: 0; border-top: 1px solid #ccc; }
.hour span { position: absolute; top: -8px; font-size: 11px; background: #fff; padding-right: 4px; }
.event { position: absolute; box-sizing: border-box; overflow: hidden; border: 1px solid #000; border-left-width: 3px; background: #eee; font-size: 12px; padding: 1px 3px; }
.event small { display: block; }
</style>
</head>
<body>
<main data-ready="true" data-date="{{.Date}}">
{{- if and .ShowAllDay .AllDay}}
<div class="allday">{{range .AllDay}}<span>{{.Summary}}</span>{{end}}</div>
{{- end}}
<div class="day" style="width: {{.Width}}px; height: {{.Height}}px;">
{{- range .Hours}}
<div class="hour" style="top: {{.Y}}px;"><span>{{.Label}}</span></div>
{{- end}}
{{- range .Blocks}}
<div class="event" data-id="{{.ID}}" style="left: {{.Left}}px; top: {{.Top}}px; width: {{.Width}}px; height: {{.Height}}px;">{{.Title}}<small>{{.Range}}</small></div>
{{- end}}
</div>
</main>
</body>
</html>
`))

// handleDayviewPage renders the day as absolutely positioned HTML blocks.
// The page is what the capture command screenshots.
func (s *Server) handleDayviewPage(w http.ResponseWriter, r *http.Request) {
	var (
		buf       bytes.Buffer
		renderErr error
		blocks    int
		created   int
	)

	err := s.withDay(r, func(dr dayRequest, tl *timeline.Timeline) {
		cfg := tl.Config()
		attrs := tl.Layout()

		contents := make([]blockContent, 0, len(attrs))
		for _, a := range attrs {
			contents = append(contents, blockContent{attrs: a, gap: cfg.EventGap, timeFormat: dr.cfg.TimeFormat})
		}
		s.live = pool.Rebind(s.blocks, s.live, contents)

		data := pageData{
			Date:       tl.Day().Format(dateLayout),
			Width:      cfg.LeadingInset + cfg.CalendarWidth,
			Height:     timeline.FullHeight(cfg) + 2*cfg.VerticalInset,
			Hours:      hourMarks(tl, dr.cfg.TimeFormat),
			Blocks:     s.live,
			ShowAllDay: dr.cfg.ShowAllDay,
		}
		if data.ShowAllDay {
			data.AllDay = s.agenda.AllDay(tl.Day())
		}

		// Handles are reused by the next request, so execute under the lock.
		renderErr = pageTmpl.Execute(&buf, data)
		blocks, created = len(s.live), s.blocks.Created()
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if renderErr != nil {
		appLog.Error("dayview: template failed", renderErr)
		writeError(w, http.StatusInternalServerError, "failed to render day view")
		return
	}

	appLog.Debug("dayview rendered", "blocks", blocks, "pool_created", created)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
