package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"dayview/internal/agenda"
	"dayview/internal/config"
	"dayview/internal/ics"
	appLog "dayview/internal/log"
)

const dateLayout = "2006-01-02"

var (
	cfgFile string
	debug   bool
	dateArg string
)

var rootCmd = &cobra.Command{
	Use:   "dayview",
	Short: "Lay out a day of calendar events on a time axis",
	Long: `dayview fetches ICS subscriptions, lays out one day of events on a
vertical time axis and serves the result as JSON, as a capturable HTML page
and as an interactive terminal view.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "./dayview.yaml", "Path to config file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
}

// app bundles what every subcommand builds from the config file.
type app struct {
	cfg    *config.Config
	loc    *time.Location
	agenda *agenda.Agenda
}

func loadApp() (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", cfgFile, err)
	}
	applyLogLevel(cfg)

	loc, err := cfg.Location()
	if err != nil {
		appLog.Warn("invalid timezone; using local", "timezone", cfg.Timezone, "err", err)
	}

	appLog.Info("effective config",
		"config_path", cfgFile,
		"listen", cfg.Listen,
		"timezone", loc.String(),
		"refresh", cfg.RefreshCron,
		"horizon_days", cfg.HorizonDays,
		"ics_count", len(cfg.ICS),
	)

	return &app{cfg: cfg, loc: loc, agenda: newAgenda(cfg, loc)}, nil
}

func newAgenda(cfg *config.Config, loc *time.Location) *agenda.Agenda {
	sources := make([]ics.Source, 0, len(cfg.ICS))
	for _, c := range cfg.ICS {
		if c.URL == "" {
			continue
		}
		sources = append(sources, ics.Source{ID: c.SourceID(), URL: c.URL})
	}

	loader := &ics.Loader{
		Fetcher:  ics.NewFetcher(cfg.CacheDir),
		Sources:  sources,
		Location: loc,
	}
	return agenda.New(loader, loc, cfg.HorizonDays)
}

func applyLogLevel(cfg *config.Config) {
	if debug {
		appLog.SetLevel(appLog.LevelDebug)
		return
	}
	appLog.SetLevel(appLog.ParseLevel(cfg.LogLevel))
}

// parseDay reads --date, defaulting to today in loc.
func parseDay(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Now().In(loc), nil
	}
	day, err := time.ParseInLocation(dateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q: want YYYY-MM-DD", s)
	}
	return day, nil
}

// signalContext is canceled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			appLog.Info("signal received, shutting down", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}
