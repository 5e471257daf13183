package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"dayview/internal/timeline"
)

// ICSConfig describes a single ICS subscription source.
type ICSConfig struct {
	// URL is the ICS endpoint. http(s) URLs are fetched with caching;
	// file:// URLs and plain paths are read from disk.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used for de-dup and logging.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
}

// SourceID returns ID, falling back to Name and then URL.
func (c ICSConfig) SourceID() string {
	switch {
	case c.ID != "":
		return c.ID
	case c.Name != "":
		return c.Name
	default:
		return c.URL
	}
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the web API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// LayoutConfig holds the day-view layout constants, in pixels unless noted.
type LayoutConfig struct {
	VerticalInset       float64 `yaml:"vertical_inset" json:"vertical_inset"`
	VerticalDiff        float64 `yaml:"vertical_diff" json:"vertical_diff"`
	LeadingInset        float64 `yaml:"leading_inset" json:"leading_inset"`
	EventGap            float64 `yaml:"event_gap" json:"event_gap"`
	SplitMinuteInterval int     `yaml:"split_minute_interval" json:"split_minute_interval"`
	EventsWillOverlap   bool    `yaml:"events_will_overlap" json:"events_will_overlap"`
	CalendarWidth       float64 `yaml:"calendar_width" json:"calendar_width"`
}

// Timeline converts the YAML layout block to the layout engine's config.
func (l LayoutConfig) Timeline() timeline.Config {
	return timeline.Config{
		VerticalInset:       l.VerticalInset,
		VerticalDiff:        l.VerticalDiff,
		LeadingInset:        l.LeadingInset,
		EventGap:            l.EventGap,
		SplitMinuteInterval: l.SplitMinuteInterval,
		EventsWillOverlap:   l.EventsWillOverlap,
		CalendarWidth:       l.CalendarWidth,
	}
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the web API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone the day view is rendered in.
	Timezone string `yaml:"timezone" json:"timezone"`

	// RefreshCron is a cron spec (e.g. "*/15 * * * *") driving feed refresh.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// HorizonDays is how many days ahead are expanded and cached.
	HorizonDays int `yaml:"horizon_days" json:"horizon_days"`

	// ShowAllDay toggles the all-day strip on rendered pages.
	ShowAllDay bool `yaml:"show_all_day" json:"show_all_day"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// TimeFormat is the Go time layout used for hour labels.
	TimeFormat string `yaml:"time_format" json:"time_format"`

	// CacheDir holds the HTTP cache of ICS feeds.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// PreviewPath is where captured PNG previews are written.
	PreviewPath string `yaml:"preview_path" json:"preview_path"`

	// Layout holds the day-view layout constants.
	Layout LayoutConfig `yaml:"layout" json:"layout"`

	// ICS is the list of subscribed ICS sources.
	ICS []ICSConfig `yaml:"ics" json:"ics"`

	// BasicAuth, if set, protects every endpoint except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

const (
	defaultListen      = "127.0.0.1:8080"
	defaultTimezone    = "UTC"
	defaultRefreshCron = "*/15 * * * *"
	defaultHorizonDays = 7
	defaultTimeFormat  = "15:04"
	defaultCacheDir    = "./cache/ics-cache"
	defaultPreviewPath = "./cache/preview.png"
	defaultWidth       = 600
)

func defaultLayout() LayoutConfig {
	d := timeline.DefaultConfig()
	return LayoutConfig{
		VerticalInset:       d.VerticalInset,
		VerticalDiff:        d.VerticalDiff,
		LeadingInset:        d.LeadingInset,
		EventGap:            d.EventGap,
		SplitMinuteInterval: d.SplitMinuteInterval,
		EventsWillOverlap:   d.EventsWillOverlap,
		CalendarWidth:       defaultWidth,
	}
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:      defaultListen,
		Timezone:    defaultTimezone,
		RefreshCron: defaultRefreshCron,
		HorizonDays: defaultHorizonDays,
		ShowAllDay:  true,
		LogLevel:    "info",
		TimeFormat:  defaultTimeFormat,
		CacheDir:    defaultCacheDir,
		PreviewPath: defaultPreviewPath,
		Layout:      defaultLayout(),
		ICS:         []ICSConfig{},
	}
}

// Normalize fills in missing/zero values with defaults so partially-filled
// configs still behave. Layout values are only defaulted when the whole
// block is missing; a present but odd layout is the user's call.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = defaultHorizonDays
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.TimeFormat == "" {
		c.TimeFormat = defaultTimeFormat
	}
	if c.CacheDir == "" {
		c.CacheDir = defaultCacheDir
	}
	if c.PreviewPath == "" {
		c.PreviewPath = defaultPreviewPath
	}
	if c.Layout == (LayoutConfig{}) {
		c.Layout = defaultLayout()
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
}

// Location resolves Timezone, falling back to time.Local on error.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local, fmt.Errorf("config: timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Load loads configuration from the given YAML path.
//
// A missing file is created with defaults (0600) and the defaults are
// returned. An existing file is unmarshalled and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600 perms,
// creating the parent directory (0700) if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".dayview-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save is a convenience wrapper around the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
