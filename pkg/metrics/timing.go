// Package metrics collects in-memory timing statistics for the hot paths
// of the viewer: document loading, collapse/expand, layout, render, search
// and export. Collection is on by default and costs a few atomic ops per
// sample; LV_METRICS=0 turns it off.
package metrics

import (
	"os"
	"sync/atomic"
	"time"
)

var enabled = os.Getenv("LV_METRICS") != "0"

// Enabled reports whether samples are being collected.
func Enabled() bool {
	return enabled
}

// SetEnabled toggles collection at runtime.
func SetEnabled(on bool) {
	enabled = on
}

// TimingMetric accumulates duration samples for one named operation.
// Safe for concurrent use.
type TimingMetric struct {
	name    string
	count   atomic.Int64
	totalNs atomic.Int64
	maxNs   atomic.Int64
	minNs   atomic.Int64 // 0 until the first sample lands
}

func newTimingMetric(name string) *TimingMetric {
	return &TimingMetric{name: name}
}

// Record adds one sample.
func (m *TimingMetric) Record(d time.Duration) {
	if !enabled {
		return
	}
	ns := d.Nanoseconds()
	m.count.Add(1)
	m.totalNs.Add(ns)
	for {
		max := m.maxNs.Load()
		if ns <= max || m.maxNs.CompareAndSwap(max, ns) {
			break
		}
	}
	for {
		min := m.minNs.Load()
		if min != 0 && ns >= min {
			break
		}
		if m.minNs.CompareAndSwap(min, ns) {
			break
		}
	}
}

// Name returns the metric name.
func (m *TimingMetric) Name() string { return m.name }

// Count returns how many samples have been recorded.
func (m *TimingMetric) Count() int64 { return m.count.Load() }

// TotalNs returns the summed sample time in nanoseconds.
func (m *TimingMetric) TotalNs() int64 { return m.totalNs.Load() }

// MaxNs returns the largest sample in nanoseconds.
func (m *TimingMetric) MaxNs() int64 { return m.maxNs.Load() }

// MinNs returns the smallest sample in nanoseconds, 0 before any sample.
func (m *TimingMetric) MinNs() int64 { return m.minNs.Load() }

// AvgNs returns the mean sample in nanoseconds, 0 before any sample.
func (m *TimingMetric) AvgNs() int64 {
	n := m.count.Load()
	if n == 0 {
		return 0
	}
	return m.totalNs.Load() / n
}

// Stats snapshots the metric into millisecond form.
func (m *TimingMetric) Stats() TimingStats {
	n := m.count.Load()
	total := m.totalNs.Load()
	var avg int64
	if n > 0 {
		avg = total / n
	}
	return TimingStats{
		Name:    m.name,
		Count:   n,
		TotalMs: float64(total) / 1e6,
		AvgMs:   float64(avg) / 1e6,
		MaxMs:   float64(m.maxNs.Load()) / 1e6,
		MinMs:   float64(m.minNs.Load()) / 1e6,
	}
}

// Reset drops all samples.
func (m *TimingMetric) Reset() {
	m.count.Store(0)
	m.totalNs.Store(0)
	m.maxNs.Store(0)
	m.minNs.Store(0)
}

// TimingStats is the JSON-friendly snapshot of one metric.
type TimingStats struct {
	Name    string  `json:"name"`
	Count   int64   `json:"count"`
	TotalMs float64 `json:"total_ms"`
	AvgMs   float64 `json:"avg_ms"`
	MaxMs   float64 `json:"max_ms"`
	MinMs   float64 `json:"min_ms,omitempty"`
}

// Timer starts a measurement and returns the stop function, usually
// deferred:
//
//	defer metrics.Timer(metrics.LayoutCompute)()
func Timer(m *TimingMetric) func() {
	if !enabled || m == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		m.Record(time.Since(start))
	}
}

// TimerWithCallback is Timer with the measured duration also handed to cb,
// for callers that display the timing as well as record it.
func TimerWithCallback(m *TimingMetric, cb func(time.Duration)) func() {
	if !enabled || m == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		d := time.Since(start)
		m.Record(d)
		if cb != nil {
			cb(d)
		}
	}
}

// The operation metrics the viewer records.
var (
	DocumentLoad   = newTimingMetric("document_load")
	JSONParsing    = newTimingMetric("json_parsing")
	CollapseExpand = newTimingMetric("collapse_expand")
	CoverageAudit  = newTimingMetric("coverage_audit")
	LayoutCompute  = newTimingMetric("layout_compute")
	RenderBuild    = newTimingMetric("render_build")
	SearchQuery    = newTimingMetric("search_query")
	ExportWrite    = newTimingMetric("export_write")
	WatcherReload  = newTimingMetric("watcher_reload")
	UIRender       = newTimingMetric("ui_render")
)

// AllTimingMetrics lists every registered metric.
func AllTimingMetrics() []*TimingMetric {
	return []*TimingMetric{
		DocumentLoad,
		JSONParsing,
		CollapseExpand,
		CoverageAudit,
		LayoutCompute,
		RenderBuild,
		SearchQuery,
		ExportWrite,
		WatcherReload,
		UIRender,
	}
}

// ResetAll clears every metric.
func ResetAll() {
	for _, m := range AllTimingMetrics() {
		m.Reset()
	}
}

// AllTimingStats snapshots every metric that has at least one sample.
func AllTimingStats() []TimingStats {
	all := AllTimingMetrics()
	stats := make([]TimingStats, 0, len(all))
	for _, m := range all {
		if m.Count() > 0 {
			stats = append(stats, m.Stats())
		}
	}
	return stats
}
