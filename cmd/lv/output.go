package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/vanderheijden86/loomview/internal/datasource"
	"github.com/vanderheijden86/loomview/pkg/config"
	"github.com/vanderheijden86/loomview/pkg/debug"
	"github.com/vanderheijden86/loomview/pkg/export"
	"github.com/vanderheijden86/loomview/pkg/metrics"
	"github.com/vanderheijden86/loomview/pkg/model"
	"github.com/vanderheijden86/loomview/pkg/viz"
)

// runCompare diffs two document paths and prints the summary. Exit code 1
// means the sources disagree, matching diff-style conventions.
func runCompare(pathA, pathB string) int {
	diff, err := datasource.ComparePaths(pathA, pathB, datasource.DefaultDiffOptions())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Compare failed: %v\n", err)
		return 1
	}

	summary := diff.Summary()
	if !strings.HasSuffix(summary, "\n") {
		summary += "\n"
	}
	fmt.Print(summary)

	if diff.HasInconsistencies() {
		return 1
	}
	return 0
}

// runHeadless serves the -robot and -export flags: snapshot JSON on stdout,
// file exports on disk, no TUI.
func runHeadless(coord *viz.Coordinator, doc *model.Document, cfg config.Config, robot bool, exportSpec string) int {
	opts := export.Options{Theme: cfg.Export.Theme, Scale: cfg.Export.Scale}

	if robot {
		if err := export.WriteJSON(os.Stdout, coord.LastSnapshot(), opts); err != nil {
			fmt.Fprintf(os.Stderr, "Robot output failed: %v\n", err)
			return 1
		}
	}

	if exportSpec != "" {
		targets, err := parseExportTargets(exportSpec)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 2
		}
		req := export.Request{
			Snapshot: coord.LastSnapshot(),
			Document: doc,
			Targets:  targets,
			Options:  opts,
		}
		if err := export.WriteAll(context.Background(), req); err != nil {
			fmt.Fprintf(os.Stderr, "Export failed: %v\n", err)
			return 1
		}
		for _, t := range targets {
			fmt.Fprintf(os.Stderr, "Wrote %s\n", t.Path)
		}
	}

	return 0
}

// parseExportTargets splits a comma-separated -export value into targets.
// Each part is either "format=path" or a bare path with a known extension.
func parseExportTargets(spec string) ([]export.Target, error) {
	parts := strings.Split(spec, ",")
	targets := make([]export.Target, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		t, err := export.ParseTarget(part)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("no export targets in %q", spec)
	}
	return targets, nil
}

// dumpTimings prints per-operation timing stats to stderr on exit when
// LV_DEBUG is set.
func dumpTimings() {
	if !debug.Enabled() {
		return
	}
	for _, s := range metrics.AllTimingStats() {
		debug.Log("%-16s count=%d avg=%.2fms max=%.2fms total=%.2fms",
			s.Name, s.Count, s.AvgMs, s.MaxMs, s.TotalMs)
	}
}

// formatIssues renders up to max validation issues as a stderr block.
// Returns "" when there is nothing to report.
func formatIssues(issues []model.ValidationIssue, max int) string {
	if len(issues) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Document loaded with %d validation issue(s):\n", len(issues))
	shown := len(issues)
	if shown > max {
		shown = max
	}
	for _, issue := range issues[:shown] {
		fmt.Fprintf(&b, "  %s\n", issue)
	}
	if rest := len(issues) - shown; rest > 0 {
		fmt.Fprintf(&b, "  ... and %d more\n", rest)
	}
	return b.String()
}
