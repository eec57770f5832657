package export

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/vanderheijden86/loomview/internal/datasource"
	"github.com/vanderheijden86/loomview/pkg/errors"
	"github.com/vanderheijden86/loomview/pkg/testutil"
)

func TestSaveSQLite_RoundTrip(t *testing.T) {
	cfg := testutil.DefaultConfig()
	cfg.IncludeLongLabels = true
	cfg.IncludeTags = true
	gen := testutil.New(cfg)
	doc := gen.ToDocument(gen.Clustered(2, 3))

	path := filepath.Join(t.TempDir(), "snapshot.db")
	if err := SaveSQLite(path, doc, Options{Title: "round trip"}); err != nil {
		t.Fatalf("SaveSQLite failed: %v", err)
	}

	reader, err := datasource.NewSQLiteReader(datasource.Source{
		Type: datasource.SourceTypeSQLite,
		Path: path,
	})
	if err != nil {
		t.Fatalf("failed to open exported database: %v", err)
	}
	defer reader.Close()

	got, err := reader.LoadDocument()
	if err != nil {
		t.Fatalf("LoadDocument failed: %v", err)
	}

	// The reader must reproduce the document exactly, long labels and
	// tags included, in the original order.
	testutil.AssertJSONEqual(t, doc, got)
}

func TestSaveSQLite_EmptyDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")
	if err := SaveSQLite(path, testutil.Empty(), Options{}); err != nil {
		t.Fatalf("SaveSQLite failed: %v", err)
	}

	reader, err := datasource.NewSQLiteReader(datasource.Source{
		Type: datasource.SourceTypeSQLite,
		Path: path,
	})
	if err != nil {
		t.Fatalf("failed to open exported database: %v", err)
	}
	defer reader.Close()

	count, err := reader.CountElements()
	if err != nil {
		t.Fatalf("CountElements failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 elements in empty export, got %d", count)
	}
}

func TestSaveSQLite_OverwritesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.db")

	if err := SaveSQLite(path, testutil.QuickClustered(3, 3), Options{}); err != nil {
		t.Fatalf("first SaveSQLite failed: %v", err)
	}
	if err := SaveSQLite(path, testutil.QuickChain(2), Options{}); err != nil {
		t.Fatalf("second SaveSQLite failed: %v", err)
	}

	reader, err := datasource.NewSQLiteReader(datasource.Source{
		Type: datasource.SourceTypeSQLite,
		Path: path,
	})
	if err != nil {
		t.Fatalf("failed to open exported database: %v", err)
	}
	defer reader.Close()

	got, err := reader.LoadDocument()
	if err != nil {
		t.Fatalf("LoadDocument failed: %v", err)
	}

	// No rows from the first export may survive the second.
	testutil.AssertCounts(t, got, 2, 1, 0)
}

func TestSaveSQLite_Meta(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.db")
	if err := SaveSQLite(path, testutil.QuickClustered(2, 2), Options{Title: "nightly snapshot"}); err != nil {
		t.Fatalf("SaveSQLite failed: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("failed to open exported database: %v", err)
	}
	defer db.Close()

	rows, err := db.Query(`SELECT key, value FROM export_meta`)
	if err != nil {
		t.Fatalf("failed to query export_meta: %v", err)
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			t.Fatalf("failed to scan meta row: %v", err)
		}
		meta[key] = value
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("error iterating meta rows: %v", err)
	}

	want := map[string]string{
		"version":         ExportVersion,
		"schema_version":  "1",
		"node_count":      "4",
		"edge_count":      "3",
		"container_count": "2",
		"title":           "nightly snapshot",
	}
	for key, value := range want {
		if meta[key] != value {
			t.Errorf("meta[%q] = %q, want %q", key, meta[key], value)
		}
	}
	if meta["generated_at"] == "" {
		t.Error("meta lacks generated_at timestamp")
	}
}

func TestSaveSQLite_NilDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.db")
	err := SaveSQLite(path, nil, Options{})
	if err == nil {
		t.Fatal("expected error for nil document")
	}
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
}

func TestJSONArray(t *testing.T) {
	tests := []struct {
		name  string
		items []string
		want  string
	}{
		{"nil", nil, "[]"},
		{"empty", []string{}, "[]"},
		{"single", []string{"io"}, `["io"]`},
		{"multiple", []string{"io", "hot-path"}, `["io","hot-path"]`},
		{"comma in value", []string{"a,b"}, `["a,b"]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := jsonArray(tt.items); got != tt.want {
				t.Errorf("jsonArray(%v) = %q, want %q", tt.items, got, tt.want)
			}
		})
	}
}
