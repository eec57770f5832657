package export

import (
	"context"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vanderheijden86/loomview/pkg/errors"
	"github.com/vanderheijden86/loomview/pkg/model"
	"github.com/vanderheijden86/loomview/pkg/render"
	"github.com/vanderheijden86/loomview/pkg/testutil"
	"github.com/vanderheijden86/loomview/pkg/vizstate"
)

// buildSnapshot loads doc into a fresh store, spreads entities on simple
// rows so edges have direction, collapses the requested containers, and
// renders the visible state.
func buildSnapshot(t *testing.T, doc *model.Document, collapse ...string) *render.Snapshot {
	t.Helper()

	view, handle := vizstate.New()
	if _, err := handle.Load(doc); err != nil {
		t.Fatalf("load document: %v", err)
	}

	positions := make(map[string]model.Position)
	x := 0.0
	for _, n := range doc.Nodes {
		positions[n.ID] = model.Position{X: x, Y: 200}
		x += 160
	}
	x = 0
	for _, c := range doc.Containers {
		positions[c.ID] = model.Position{X: x, Y: 40}
		x += 160
	}
	handle.ApplyLayout(positions, nil)

	for _, id := range collapse {
		if err := handle.CollapseContainer(id); err != nil {
			t.Fatalf("collapse %s: %v", id, err)
		}
	}

	snap, err := render.Build(render.Input{State: view.Snapshot()})
	if err != nil {
		t.Fatalf("build render snapshot: %v", err)
	}
	return snap
}

func TestWriteAll_AllFormats(t *testing.T) {
	doc := testutil.QuickClustered(2, 2)
	snap := buildSnapshot(t, doc, "test-g0")

	tmp := t.TempDir()
	req := Request{
		Snapshot: snap,
		Document: doc,
		Targets: []Target{
			{Path: filepath.Join(tmp, "graph.svg")},
			{Path: filepath.Join(tmp, "graph.png")},
			{Path: filepath.Join(tmp, "graph.json")},
			{Path: filepath.Join(tmp, "graph.db")},
		},
		Options: Options{Title: "clustered"},
	}

	if err := WriteAll(context.Background(), req); err != nil {
		t.Fatalf("WriteAll error: %v", err)
	}

	for _, target := range req.Targets {
		info, err := os.Stat(target.Path)
		if err != nil {
			t.Fatalf("output %s not created: %v", target.Path, err)
		}
		if info.Size() == 0 {
			t.Errorf("output %s is empty", target.Path)
		}
	}
}

func TestWriteAll_NoTargets(t *testing.T) {
	err := WriteAll(context.Background(), Request{})
	if err == nil {
		t.Fatal("expected error for empty target list")
	}
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
}

func TestWriteAll_CanceledContext(t *testing.T) {
	doc := testutil.QuickChain(3)
	snap := buildSnapshot(t, doc)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WriteAll(ctx, Request{
		Snapshot: snap,
		Document: doc,
		Targets:  []Target{{Path: filepath.Join(t.TempDir(), "graph.svg")}},
	})
	if err == nil {
		t.Fatal("expected error from canceled context")
	}
}

func TestWriteAll_PropagatesTargetFailure(t *testing.T) {
	doc := testutil.QuickChain(3)
	snap := buildSnapshot(t, doc)

	tmp := t.TempDir()
	err := WriteAll(context.Background(), Request{
		Snapshot: snap,
		Document: doc,
		Targets: []Target{
			{Path: filepath.Join(tmp, "good.svg")},
			{Format: "bmp", Path: filepath.Join(tmp, "bad.bmp")},
		},
	})
	if err == nil {
		t.Fatal("expected error for unsupported format in batch")
	}
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
}

func TestWrite_FormatInference(t *testing.T) {
	doc := testutil.QuickChain(3)
	snap := buildSnapshot(t, doc)
	tmp := t.TempDir()

	cases := []struct {
		name   string
		file   string
		prefix string
	}{
		{"svg extension", "out.svg", "<?xml"},
		{"png extension", "out.png", "\x89PNG"},
		{"json extension", "out.json", "{"},
		{"db extension", "out.db", "SQLite format 3"},
		{"sqlite extension", "out.sqlite", "SQLite format 3"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(tmp, tc.file)
			if err := Write(Target{Path: path}, snap, doc, Options{}); err != nil {
				t.Fatalf("Write error: %v", err)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("read output: %v", err)
			}
			if !strings.HasPrefix(string(data), tc.prefix) {
				t.Errorf("output %s does not start with %q", tc.file, tc.prefix)
			}
		})
	}
}

func TestWrite_NoExtensionDefaultsToSVG(t *testing.T) {
	doc := testutil.QuickChain(2)
	snap := buildSnapshot(t, doc)

	path := filepath.Join(t.TempDir(), "bare")
	if err := Write(Target{Path: path}, snap, doc, Options{}); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if _, err := os.Stat(path + ".svg"); err != nil {
		t.Fatalf("expected %s.svg to be created: %v", path, err)
	}
}

func TestWrite_UnsupportedFormat(t *testing.T) {
	doc := testutil.QuickChain(2)
	snap := buildSnapshot(t, doc)

	err := Write(Target{Format: "txt", Path: "graph.txt"}, snap, doc, Options{})
	if err == nil {
		t.Fatal("expected error for unsupported format")
	}
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
}

func TestWrite_CreatesParentDirs(t *testing.T) {
	doc := testutil.QuickChain(2)
	snap := buildSnapshot(t, doc)

	path := filepath.Join(t.TempDir(), "nested", "deep", "out.svg")
	if err := Write(Target{Path: path}, snap, doc, Options{}); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("output not created: %v", err)
	}
}

func TestWrite_NilInputs(t *testing.T) {
	tmp := t.TempDir()
	cases := []struct {
		name   string
		target Target
	}{
		{"svg without snapshot", Target{Path: filepath.Join(tmp, "a.svg")}},
		{"png without snapshot", Target{Path: filepath.Join(tmp, "a.png")}},
		{"json without snapshot", Target{Path: filepath.Join(tmp, "a.json")}},
		{"sqlite without document", Target{Path: filepath.Join(tmp, "a.db")}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Write(tc.target, nil, nil, Options{})
			if err == nil {
				t.Fatal("expected error for nil input")
			}
			if !errors.Is(err, errors.ErrCodeInvalidInput) {
				t.Errorf("expected INVALID_INPUT, got %v", err)
			}
		})
	}
}

func TestParseTarget(t *testing.T) {
	cases := []struct {
		name       string
		arg        string
		wantFormat string
		wantPath   string
		wantErr    bool
	}{
		{"explicit svg", "svg=out.svg", "svg", "out.svg", false},
		{"explicit png", "png=shot.png", "png", "shot.png", false},
		{"explicit sqlite", "sqlite=snap.db", "sqlite", "snap.db", false},
		{"bare path", "graph.json", "", "graph.json", false},
		{"bare path no extension", "graph", "", "graph", false},
		{"spaces trimmed", " svg = out.svg ", "svg", "out.svg", false},
		{"empty", "", "", "", true},
		{"missing path", "json=", "", "", true},
		{"unsupported format", "bmp=x.bmp", "", "", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			target, err := ParseTarget(tc.arg)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("ParseTarget(%q) expected error", tc.arg)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTarget(%q) error: %v", tc.arg, err)
			}
			if target.Format != tc.wantFormat {
				t.Errorf("format = %q, want %q", target.Format, tc.wantFormat)
			}
			if target.Path != tc.wantPath {
				t.Errorf("path = %q, want %q", target.Path, tc.wantPath)
			}
		})
	}
}

func TestResolveTarget_ExtensionMapping(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"x.svg", FormatSVG},
		{"x.SVG", FormatSVG},
		{"x.png", FormatPNG},
		{"x.json", FormatJSON},
		{"x.db", FormatSQLite},
		{"x.sqlite", FormatSQLite},
		{"x.sqlite3", FormatSQLite},
		{"x.txt", FormatSVG},
	}

	for _, tc := range cases {
		format, _, err := resolveTarget(Target{Path: tc.path})
		if err != nil {
			t.Errorf("resolveTarget(%q) error: %v", tc.path, err)
			continue
		}
		if format != tc.want {
			t.Errorf("resolveTarget(%q) = %q, want %q", tc.path, format, tc.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	cases := []struct {
		name  string
		input string
		max   int
		want  string
	}{
		{"empty string", "", 10, ""},
		{"short string", "hello", 10, "hello"},
		{"exact length", "hello", 5, "hello"},
		{"truncate with ellipsis", "hello world", 8, "hello..."},
		{"max of 3", "hello", 3, "hel"},
		{"zero max", "hello", 0, ""},
		{"unicode", "こんにちは世界", 5, "こん..."},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := truncate(tc.input, tc.max)
			if got != tc.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tc.input, tc.max, got, tc.want)
			}
		})
	}
}

func TestFitLabel(t *testing.T) {
	// 120px wide box fits 15 characters at the 7px glyph width.
	if got := fitLabel("short", 120); got != "short" {
		t.Errorf("fitLabel short = %q", got)
	}
	if got := fitLabel("a very long label that cannot fit", 120); len([]rune(got)) != 15 {
		t.Errorf("fitLabel long = %q (%d runes), want 15 runes", got, len([]rune(got)))
	}
	// Tiny boxes keep at least a readable stub.
	if got := fitLabel("abcdefgh", 10); got != "a..." {
		t.Errorf("fitLabel tiny = %q, want %q", got, "a...")
	}
}

func TestCss(t *testing.T) {
	cases := []struct {
		c    color.RGBA
		want string
	}{
		{color.RGBA{0, 0, 0, 255}, "#000000"},
		{color.RGBA{255, 255, 255, 255}, "#ffffff"},
		{color.RGBA{171, 205, 239, 255}, "#abcdef"},
	}
	for _, tc := range cases {
		got := css(tc.c)
		if got != tc.want {
			t.Errorf("css(%v) = %q, want %q", tc.c, got, tc.want)
		}
	}
}
