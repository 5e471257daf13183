package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"dayview/internal/agenda"
	"dayview/internal/config"
	appLog "dayview/internal/log"
	"dayview/internal/pool"
	"dayview/internal/timeline"
)

// Server serves the day layout as JSON and as a capturable HTML page.
type Server struct {
	agenda *agenda.Agenda
	mux    *http.ServeMux

	cfgMu sync.RWMutex
	cfg   *config.Config

	// renderMu serializes use of the shared timeline and block pool.
	renderMu sync.Mutex
	tl       *timeline.Timeline
	blocks   *pool.Pool[*blockView]
	live     []*blockView
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, ag *agenda.Agenda) *Server {
	s := &Server{
		agenda: ag,
		mux:    http.NewServeMux(),
		cfg:    cfg,
		tl:     timeline.New(time.Now().In(ag.Location()), cfg.Layout.Timeline()),
		blocks: pool.New(func() *blockView { return &blockView{} }),
	}
	s.registerRoutes()
	return s
}

// Config returns the configuration currently in effect.
func (s *Server) Config() *config.Config {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg
}

// SetConfig swaps in a reloaded configuration. The next request lays out
// with the new layout block.
func (s *Server) SetConfig(cfg *config.Config) {
	s.cfgMu.Lock()
	s.cfg = cfg
	s.cfgMu.Unlock()
	appLog.Info("web config updated", "calendar_width", cfg.Layout.CalendarWidth)
}

// Handler returns the underlying http.Handler for this server. Basic auth is
// decided per request, so a reloaded basic_auth block applies immediately.
func (s *Server) Handler() http.Handler {
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.Config().Listen)
	}
	return s.basicAuthMiddleware(s.mux)
}

// LocalHandler serves the routes without basic auth. It is meant for a
// loopback listener that headless Chromium captures from.
func (s *Server) LocalHandler() http.Handler {
	return s.mux
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	return authEnabled(s.Config())
}

func authEnabled(cfg *config.Config) bool {
	if cfg == nil || cfg.BasicAuth == nil {
		return false
	}
	// Empty credentials disable auth rather than locking everyone out.
	return cfg.BasicAuth.Username != "" && cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth
// whenever credentials are configured.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cfg := s.Config()
		if r.URL.Path == "/health" || !authEnabled(cfg) {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, cfg.BasicAuth.Username) || !secureCompare(p, cfg.BasicAuth.Password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="dayview", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// ListenAndServe serves on cfg.Listen until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Config().Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/events", s.handleEvents)
	s.mux.HandleFunc("/api/dayview", s.handleDayviewJSON)
	s.mux.HandleFunc("/api/hit", s.handleHit)
	s.mux.HandleFunc("/dayview", s.handleDayviewPage)
	s.mux.HandleFunc("/preview.png", s.handlePreview)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handlePreview serves the last captured PNG from disk.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, s.Config().PreviewPath)
}

// eventsResponse is the JSON response shape for /api/events.
type eventsResponse struct {
	Occurrences     []occurrenceDTO `json:"occurrences"`
	TruncatedUIDs   []string        `json:"truncated_uids,omitempty"`
	RangeStart      time.Time       `json:"range_start"`
	RangeEnd        time.Time       `json:"range_end"`
	DisplayTimeZone string          `json:"display_timezone"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// handleEvents returns cached occurrences within a window around now.
//
// GET /api/events?days=7&backfill=1
//   - days:     how many days ahead (default 7)
//   - backfill: how many days back (default 1)
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	days := parseIntDefault(q.Get("days"), 7)
	if days <= 0 {
		days = 7
	}
	backfill := parseIntDefault(q.Get("backfill"), 1)
	if backfill < 0 {
		backfill = 0
	}

	loc := s.agenda.Location()
	now := time.Now().In(loc)
	rangeStart := now.AddDate(0, 0, -backfill)
	rangeEnd := now.AddDate(0, 0, days)

	if err := s.agenda.Ensure(r.Context(), now); err != nil {
		appLog.Error("api events: agenda refresh failed", err)
	}
	snap := s.agenda.Snapshot()

	dtos := make([]occurrenceDTO, 0, len(snap.Occurrences))
	for _, occ := range snap.Occurrences {
		if occ.End.Before(rangeStart) || occ.Start.After(rangeEnd) {
			continue
		}
		dtos = append(dtos, newOccurrenceDTO(occ))
	}

	writeJSON(w, http.StatusOK, eventsResponse{
		Occurrences:     dtos,
		TruncatedUIDs:   snap.Truncated,
		RangeStart:      rangeStart,
		RangeEnd:        rangeEnd,
		DisplayTimeZone: loc.String(),
		UpdatedAt:       snap.UpdatedAt,
	})
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
