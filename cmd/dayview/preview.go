package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"dayview/internal/capture"
	"dayview/internal/config"
	appLog "dayview/internal/log"
	"dayview/internal/timeline"
	"dayview/internal/web"
)

// allDayStrip is the extra viewport height kept for the all-day row.
const allDayStrip = 32

// capturePreview serves srv on a loopback port and screenshots the day page
// of day into out.
func capturePreview(ctx context.Context, srv *web.Server, cfg *config.Config, day time.Time, out string) error {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("preview: listen: %w", err)
	}

	hs := &http.Server{Handler: srv.LocalHandler(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := hs.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Error("preview server failed", err)
		}
	}()
	defer hs.Close()

	layout := cfg.Layout.Timeline()
	opts := capture.Options{
		URL:        fmt.Sprintf("http://%s/dayview?date=%s", ln.Addr(), day.Format(dateLayout)),
		OutputPath: out,
		Width:      int(layout.LeadingInset + layout.CalendarWidth),
		Height:     int(timeline.FullHeight(layout)+2*layout.VerticalInset) + allDayStrip,
	}
	return capture.CaptureDayPNG(ctx, opts)
}
