// Package config handles loading and saving lv configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config: ~/.config/loomview/config.yaml
package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/loomview/pkg/errors"
	"github.com/vanderheijden86/loomview/pkg/layout"
)

// FitViewConfig holds the viewport-fit animation defaults.
type FitViewConfig struct {
	Padding    float64 `yaml:"padding"`               // Fraction of the viewport kept as margin
	MaxZoom    float64 `yaml:"max_zoom,omitempty"`    // 0 means unlimited
	DurationMS int     `yaml:"duration_ms,omitempty"` // Animation duration in milliseconds
}

// Duration returns the fit animation duration.
func (f FitViewConfig) Duration() time.Duration {
	return time.Duration(f.DurationMS) * time.Millisecond
}

// SearchConfig holds search preferences.
type SearchConfig struct {
	MaxResults int `yaml:"max_results,omitempty"` // Result pane display cap; 0 means unlimited
}

// WatcherConfig controls live-reload behavior.
type WatcherConfig struct {
	DebounceMS   int  `yaml:"debounce_ms,omitempty"` // Quiet period before a reload fires
	PollMS       int  `yaml:"poll_ms,omitempty"`     // Poll interval when fsnotify is unavailable
	ForcePolling bool `yaml:"force_polling,omitempty"`
}

// Debounce returns the reload debounce duration.
func (w WatcherConfig) Debounce() time.Duration {
	return time.Duration(w.DebounceMS) * time.Millisecond
}

// PollInterval returns the fallback polling interval.
func (w WatcherConfig) PollInterval() time.Duration {
	return time.Duration(w.PollMS) * time.Millisecond
}

// BehaviorConfig holds view behavior preferences.
type BehaviorConfig struct {
	CollapseAllOnLoad bool `yaml:"collapse_all_on_load,omitempty"` // Start with every container collapsed
}

// ExportConfig holds image/file export preferences.
type ExportConfig struct {
	Theme string  `yaml:"theme,omitempty"` // Palette name: dark, light
	Scale float64 `yaml:"scale,omitempty"` // PNG supersampling factor
}

// Config is the top-level configuration for lv.
type Config struct {
	Layout   layout.Config  `yaml:"layout,omitempty"`
	FitView  FitViewConfig  `yaml:"fit_view,omitempty"`
	Search   SearchConfig   `yaml:"search,omitempty"`
	Watcher  WatcherConfig  `yaml:"watcher,omitempty"`
	Behavior BehaviorConfig `yaml:"behavior,omitempty"`
	Export   ExportConfig   `yaml:"export,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Layout: layout.DefaultConfig(),
		FitView: FitViewConfig{
			Padding:    0.1,
			DurationMS: 200,
		},
		Search: SearchConfig{
			MaxResults: 50,
		},
		Watcher: WatcherConfig{
			DebounceMS: 100,
			PollMS:     2000,
		},
		Export: ExportConfig{
			Theme: "dark",
			Scale: 2,
		},
	}
}

// ConfigDir returns the XDG config directory for lv.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "loomview")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "loomview")
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path. Returns DefaultConfig if the
// file doesn't exist, and defaults plus an error if it cannot be parsed, so
// callers can warn and keep running.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, errors.Wrap(errors.ErrCodeIO, err, "reading config %s", path)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), errors.Wrap(errors.ErrCodeParse, err, "parsing config %s", path)
	}

	cfg.normalize()
	return cfg, nil
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return errors.New(errors.ErrCodeIO, "cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "creating config directory %s", dir)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "marshaling config")
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "writing config %s", path)
	}

	return nil
}

// normalize clamps hand-edited values that would break downstream consumers.
// Layout geometry is normalized by the layout engines themselves.
func (c *Config) normalize() {
	d := DefaultConfig()
	if c.FitView.Padding < 0 {
		c.FitView.Padding = d.FitView.Padding
	}
	if c.FitView.MaxZoom < 0 {
		c.FitView.MaxZoom = 0
	}
	if c.FitView.DurationMS < 0 {
		c.FitView.DurationMS = d.FitView.DurationMS
	}
	if c.Search.MaxResults < 0 {
		c.Search.MaxResults = 0
	}
	if c.Watcher.DebounceMS < 0 {
		c.Watcher.DebounceMS = d.Watcher.DebounceMS
	}
	if c.Watcher.PollMS < 0 {
		c.Watcher.PollMS = d.Watcher.PollMS
	}
	if c.Export.Scale <= 0 {
		c.Export.Scale = d.Export.Scale
	}
	if c.Export.Theme == "" {
		c.Export.Theme = d.Export.Theme
	}
}
