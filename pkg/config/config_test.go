package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vanderheijden86/loomview/pkg/errors"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Layout.NodeWidth != 120 {
		t.Errorf("expected node width 120, got %f", cfg.Layout.NodeWidth)
	}
	if cfg.FitView.Padding != 0.1 {
		t.Errorf("expected fit padding 0.1, got %f", cfg.FitView.Padding)
	}
	if cfg.FitView.Duration() != 200*time.Millisecond {
		t.Errorf("expected fit duration 200ms, got %v", cfg.FitView.Duration())
	}
	if cfg.Search.MaxResults != 50 {
		t.Errorf("expected max results 50, got %d", cfg.Search.MaxResults)
	}
	if cfg.Watcher.Debounce() != 100*time.Millisecond {
		t.Errorf("expected debounce 100ms, got %v", cfg.Watcher.Debounce())
	}
	if cfg.Watcher.PollInterval() != 2*time.Second {
		t.Errorf("expected poll interval 2s, got %v", cfg.Watcher.PollInterval())
	}
	if cfg.Export.Theme != "dark" {
		t.Errorf("expected theme 'dark', got %q", cfg.Export.Theme)
	}
	if cfg.Behavior.CollapseAllOnLoad {
		t.Error("expected collapse-all-on-load off by default")
	}
}

func TestLoadFrom_NonExistent(t *testing.T) {
	cfg, err := LoadFrom("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}
	if cfg.Search.MaxResults != 50 {
		t.Errorf("expected default config, got max results %d", cfg.Search.MaxResults)
	}
}

func TestLoadFrom_ValidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
layout:
  node_width: 160
  node_height: 60
  h_gap: 30

fit_view:
  padding: 0.2
  max_zoom: 1.5
  duration_ms: 400

search:
  max_results: 10

watcher:
  debounce_ms: 250
  force_polling: true

behavior:
  collapse_all_on_load: true

export:
  theme: light
  scale: 3
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Layout.NodeWidth != 160 || cfg.Layout.NodeHeight != 60 || cfg.Layout.HGap != 30 {
		t.Errorf("layout not applied: %+v", cfg.Layout)
	}
	// Keys absent from the file keep their defaults.
	if cfg.Layout.VGap != 56 {
		t.Errorf("expected default v_gap 56, got %f", cfg.Layout.VGap)
	}
	if cfg.FitView.Padding != 0.2 || cfg.FitView.MaxZoom != 1.5 || cfg.FitView.DurationMS != 400 {
		t.Errorf("fit view not applied: %+v", cfg.FitView)
	}
	if cfg.Search.MaxResults != 10 {
		t.Errorf("expected max results 10, got %d", cfg.Search.MaxResults)
	}
	if cfg.Watcher.DebounceMS != 250 {
		t.Errorf("expected debounce 250, got %d", cfg.Watcher.DebounceMS)
	}
	if !cfg.Watcher.ForcePolling {
		t.Error("expected force_polling true")
	}
	// poll_ms omitted, default survives
	if cfg.Watcher.PollMS != 2000 {
		t.Errorf("expected default poll 2000, got %d", cfg.Watcher.PollMS)
	}
	if !cfg.Behavior.CollapseAllOnLoad {
		t.Error("expected collapse_all_on_load true")
	}
	if cfg.Export.Theme != "light" || cfg.Export.Scale != 3 {
		t.Errorf("export not applied: %+v", cfg.Export)
	}
}

func TestLoadFrom_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(path, []byte("{{invalid yaml"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
	if !errors.Is(err, errors.ErrCodeParse) {
		t.Errorf("expected PARSE_FAILED, got %v", err)
	}
	// Caller still gets usable defaults alongside the error.
	if cfg.Search.MaxResults != 50 {
		t.Errorf("expected defaults on parse failure, got max results %d", cfg.Search.MaxResults)
	}
}

func TestLoadFrom_UnknownKeysIgnored(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
search:
  max_results: 5
future_section:
  some_flag: true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("unknown keys should not fail the load: %v", err)
	}
	if cfg.Search.MaxResults != 5 {
		t.Errorf("expected max results 5, got %d", cfg.Search.MaxResults)
	}
}

func TestLoadFrom_NormalizesBrokenValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
fit_view:
  padding: -1
  duration_ms: -5
search:
  max_results: -3
watcher:
  debounce_ms: -10
export:
  scale: 0
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.FitView.Padding != 0.1 {
		t.Errorf("negative padding not clamped: %f", cfg.FitView.Padding)
	}
	if cfg.FitView.DurationMS != 200 {
		t.Errorf("negative duration not clamped: %d", cfg.FitView.DurationMS)
	}
	if cfg.Search.MaxResults != 0 {
		t.Errorf("negative max results should mean unlimited, got %d", cfg.Search.MaxResults)
	}
	if cfg.Watcher.DebounceMS != 100 {
		t.Errorf("negative debounce not clamped: %d", cfg.Watcher.DebounceMS)
	}
	if cfg.Export.Scale != 2 {
		t.Errorf("zero scale not clamped: %f", cfg.Export.Scale)
	}
}

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Layout.NodeWidth = 200
	cfg.Search.MaxResults = 25
	cfg.Behavior.CollapseAllOnLoad = true
	cfg.Export.Theme = "light"

	if err := SaveTo(cfg, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("Load after save failed: %v", err)
	}

	if loaded.Layout.NodeWidth != 200 {
		t.Errorf("expected node width 200, got %f", loaded.Layout.NodeWidth)
	}
	if loaded.Search.MaxResults != 25 {
		t.Errorf("expected max results 25, got %d", loaded.Search.MaxResults)
	}
	if !loaded.Behavior.CollapseAllOnLoad {
		t.Error("expected collapse_all_on_load true after round trip")
	}
	if loaded.Export.Theme != "light" {
		t.Errorf("expected theme 'light', got %q", loaded.Export.Theme)
	}
}

func TestConfigDir_XDGOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	got := ConfigDir()
	expected := filepath.Join(dir, "loomview")
	if got != expected {
		t.Errorf("expected %q, got %q", expected, got)
	}
}

func TestConfigPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	got := ConfigPath()
	expected := filepath.Join(dir, "loomview", "config.yaml")
	if got != expected {
		t.Errorf("expected %q, got %q", expected, got)
	}
}
