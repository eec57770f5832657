// Package export writes render snapshots to static files: SVG and PNG
// images for humans, JSON for scripting, and SQLite snapshot databases
// that round-trip through the SQLite datasource.
package export

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/loomview/pkg/errors"
	"github.com/vanderheijden86/loomview/pkg/metrics"
	"github.com/vanderheijden86/loomview/pkg/model"
	"github.com/vanderheijden86/loomview/pkg/render"
)

// Supported export formats.
const (
	FormatSVG    = "svg"
	FormatPNG    = "png"
	FormatJSON   = "json"
	FormatSQLite = "sqlite"
)

// ExportVersion tags the JSON and SQLite export layouts.
const ExportVersion = "1.0.0"

// Options control appearance shared across formats.
type Options struct {
	Title string  // Rendered in the summary block; empty means a default title
	Theme string  // Palette name: "dark" (default) or "light"
	Scale float64 // PNG supersampling factor; values <= 0 mean 1
}

// Target names one requested output: a format and its destination path.
// An empty Format is inferred from the path extension.
type Target struct {
	Format string
	Path   string
}

// Request bundles the inputs WriteAll fans out over. Image and JSON
// formats draw the snapshot; SQLite persists the full document so the
// database can be reloaded as a datasource.
type Request struct {
	Snapshot *render.Snapshot
	Document *model.Document
	Targets  []Target
	Options  Options
}

// ParseTarget parses a command-line export argument of the form
// "format=path", or a bare path whose extension names the format.
func ParseTarget(arg string) (Target, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return Target{}, errors.New(errors.ErrCodeInvalidInput, "empty export target")
	}

	t := Target{Path: arg}
	if format, path, ok := strings.Cut(arg, "="); ok {
		t = Target{Format: strings.TrimSpace(format), Path: strings.TrimSpace(path)}
	}
	if _, _, err := resolveTarget(t); err != nil {
		return Target{}, err
	}
	return t, nil
}

// resolveTarget normalizes the format, inferring it from the path
// extension when unset. A bare path with no extension defaults to SVG
// and gets the extension appended.
func resolveTarget(t Target) (format, path string, err error) {
	path = t.Path
	if path == "" {
		return "", "", errors.New(errors.ErrCodeInvalidInput, "export target has no path")
	}

	format = strings.ToLower(strings.TrimPrefix(t.Format, "."))
	if format == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".svg":
			format = FormatSVG
		case ".png":
			format = FormatPNG
		case ".json":
			format = FormatJSON
		case ".db", ".sqlite", ".sqlite3":
			format = FormatSQLite
		default:
			format = FormatSVG // safe default
			if filepath.Ext(path) == "" {
				path += ".svg"
			}
		}
	}

	switch format {
	case FormatSVG, FormatPNG, FormatJSON, FormatSQLite:
		return format, path, nil
	}
	return "", "", errors.New(errors.ErrCodeInvalidInput,
		"unsupported export format %q (want svg, png, json or sqlite)", format)
}

// WriteAll renders every target concurrently. The first failure cancels
// the remaining work and is returned.
func WriteAll(ctx context.Context, req Request) error {
	if len(req.Targets) == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "no export targets")
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for _, t := range req.Targets {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			return Write(t, req.Snapshot, req.Document, req.Options)
		})
	}

	return g.Wait()
}

// Write renders a single target.
func Write(t Target, snap *render.Snapshot, doc *model.Document, opts Options) error {
	defer metrics.Timer(metrics.ExportWrite)()

	format, path, err := resolveTarget(t)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "creating export directory for %s", path)
	}

	switch format {
	case FormatSVG:
		return SaveSVG(path, snap, opts)
	case FormatPNG:
		return SavePNG(path, snap, opts)
	case FormatJSON:
		return SaveJSON(path, snap, opts)
	case FormatSQLite:
		return SaveSQLite(path, doc, opts)
	default:
		return errors.New(errors.ErrCodeInternal, "unhandled format %q", format)
	}
}
