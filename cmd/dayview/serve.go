package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"dayview/internal/config"
	appLog "dayview/internal/log"
	"dayview/internal/web"
)

var servePreview bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the day view over HTTP and refresh feeds on a schedule",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&servePreview, "preview", false, "Capture /preview.png after every refresh")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	srv := web.NewServer(a.cfg, a.agenda)

	refresh := func() {
		rctx, rcancel := context.WithTimeout(ctx, 2*time.Minute)
		defer rcancel()

		if err := a.agenda.Refresh(rctx); err != nil {
			appLog.Error("scheduled refresh failed", err)
		}
		if servePreview {
			cfg := srv.Config()
			if err := capturePreview(rctx, srv, cfg, time.Now().In(a.loc), cfg.PreviewPath); err != nil {
				appLog.Error("preview capture failed", err)
			}
		}
	}

	sched := cron.New(cron.WithLocation(a.loc))
	entry, err := sched.AddFunc(a.cfg.RefreshCron, refresh)
	if err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", a.cfg.RefreshCron, err)
	}
	sched.Start()
	defer sched.Stop()

	go refresh()

	r := &reloader{srv: srv, sched: sched, entry: entry, current: a.cfg, refresh: refresh}
	watcher, err := config.Watch(cfgFile, r.apply)
	if err != nil {
		appLog.Error("config watch disabled", err, "config_path", cfgFile)
	} else {
		defer watcher.Close()
	}

	err = srv.ListenAndServe(ctx)
	appLog.Info("dayview exiting")
	return err
}

// configSetter is the part of *web.Server a reload publishes to.
type configSetter interface {
	SetConfig(cfg *config.Config)
}

// reloader applies a reloaded config file to a running server.
type reloader struct {
	mu      sync.Mutex
	srv     configSetter
	sched   *cron.Cron
	entry   cron.EntryID
	current *config.Config
	refresh func()
}

// apply reschedules the refresh job if needed, then publishes next. next is
// not modified after it has been handed to the server.
func (r *reloader) apply(next *config.Config) {
	r.mu.Lock()
	defer r.mu.Unlock()

	applyLogLevel(next)

	if next.RefreshCron != r.current.RefreshCron {
		id, err := r.sched.AddFunc(next.RefreshCron, r.refresh)
		if err != nil {
			appLog.Error("invalid refresh schedule; keeping previous", err, "refresh", next.RefreshCron)
			next.RefreshCron = r.current.RefreshCron
		} else {
			r.sched.Remove(r.entry)
			r.entry = id
			appLog.Info("refresh schedule updated", "refresh", next.RefreshCron)
		}
	}
	if next.Timezone != r.current.Timezone || len(next.ICS) != len(r.current.ICS) || next.CacheDir != r.current.CacheDir {
		appLog.Warn("source or timezone changes take effect after restart")
	}

	r.srv.SetConfig(next)
	r.current = next
}
