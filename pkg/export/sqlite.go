package export

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	json "github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/loomview/pkg/errors"
	"github.com/vanderheijden86/loomview/pkg/model"
)

// SchemaVersion tracks the snapshot database layout.
const SchemaVersion = 1

// SaveSQLite writes the document to a snapshot database with the same
// schema the SQLite datasource reads, so exports round-trip as sources.
func SaveSQLite(path string, doc *model.Document, opts Options) error {
	if doc == nil {
		return errors.New(errors.ErrCodeInvalidInput, "sqlite export requires a document")
	}

	// Start from a clean file so stale rows from a previous export
	// cannot survive.
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(errors.ErrCodeIO, err, "removing existing database %s", path)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "opening database %s", path)
	}
	dbClosed := false
	defer func() {
		if !dbClosed {
			db.Close()
		}
	}()

	if err := createSnapshotSchema(db); err != nil {
		return err
	}
	if err := insertNodes(db, doc.Nodes); err != nil {
		return err
	}
	if err := insertEdges(db, doc.Edges); err != nil {
		return err
	}
	if err := insertContainers(db, doc.Containers); err != nil {
		return err
	}
	if err := insertSnapshotMeta(db, doc, opts); err != nil {
		return err
	}
	if err := optimizeSnapshot(db); err != nil {
		return err
	}

	if err := db.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "closing database %s", path)
	}
	dbClosed = true
	return nil
}

// createSnapshotSchema creates the tables the datasource reader expects.
// Column names and order match its SELECT statements.
func createSnapshotSchema(db *sql.DB) error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS nodes (
			id TEXT PRIMARY KEY,
			label TEXT NOT NULL,
			long_label TEXT,
			type TEXT,
			semantic_tags TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS edges (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			target TEXT NOT NULL,
			type TEXT,
			semantic_tags TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS containers (
			id TEXT PRIMARY KEY,
			label TEXT,
			children TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS export_meta (
			key TEXT PRIMARY KEY,
			value TEXT
		)`,
	}
	for _, stmt := range tables {
		if _, err := db.Exec(stmt); err != nil {
			return errors.Wrap(errors.ErrCodeIO, err, "creating snapshot schema")
		}
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source)`,
		`CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target)`,
	}
	for _, stmt := range indexes {
		if _, err := db.Exec(stmt); err != nil {
			return errors.Wrap(errors.ErrCodeIO, err, "creating snapshot indexes")
		}
	}

	return nil
}

// insertNodes inserts all nodes in document order; rowid preserves it
// for the reader.
func insertNodes(db *sql.DB, nodes []model.GraphNode) error {
	tx, err := db.Begin()
	if err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "beginning node insert")
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO nodes (id, label, long_label, type, semantic_tags) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "preparing node insert")
	}
	defer stmt.Close()

	for i := range nodes {
		n := &nodes[i]
		if _, err := stmt.Exec(n.ID, n.Label, n.LongLabel, n.Type, jsonArray(n.SemanticTags)); err != nil {
			return errors.Wrap(errors.ErrCodeIO, err, "inserting node %s", n.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "committing node insert")
	}
	return nil
}

func insertEdges(db *sql.DB, edges []model.GraphEdge) error {
	tx, err := db.Begin()
	if err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "beginning edge insert")
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO edges (id, source, target, type, semantic_tags) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "preparing edge insert")
	}
	defer stmt.Close()

	for i := range edges {
		e := &edges[i]
		if _, err := stmt.Exec(e.ID, e.Source, e.Target, e.Type, jsonArray(e.SemanticTags)); err != nil {
			return errors.Wrap(errors.ErrCodeIO, err, "inserting edge %s", e.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "committing edge insert")
	}
	return nil
}

func insertContainers(db *sql.DB, containers []model.Container) error {
	tx, err := db.Begin()
	if err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "beginning container insert")
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO containers (id, label, children) VALUES (?, ?, ?)`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "preparing container insert")
	}
	defer stmt.Close()

	for i := range containers {
		c := &containers[i]
		if _, err := stmt.Exec(c.ID, c.Label, jsonArray(c.Children)); err != nil {
			return errors.Wrap(errors.ErrCodeIO, err, "inserting container %s", c.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "committing container insert")
	}
	return nil
}

// insertSnapshotMeta records export provenance. The datasource reader
// ignores this table.
func insertSnapshotMeta(db *sql.DB, doc *model.Document, opts Options) error {
	nodes, edges, containers := doc.Counts()
	meta := map[string]string{
		"version":         ExportVersion,
		"schema_version":  fmt.Sprintf("%d", SchemaVersion),
		"generated_at":    time.Now().UTC().Format(time.RFC3339),
		"node_count":      fmt.Sprintf("%d", nodes),
		"edge_count":      fmt.Sprintf("%d", edges),
		"container_count": fmt.Sprintf("%d", containers),
	}
	if opts.Title != "" {
		meta["title"] = opts.Title
	}

	for key, value := range meta {
		if _, err := db.Exec(`INSERT OR REPLACE INTO export_meta (key, value) VALUES (?, ?)`, key, value); err != nil {
			return errors.Wrap(errors.ErrCodeIO, err, "inserting meta %s", key)
		}
	}
	return nil
}

// optimizeSnapshot compacts the database for read-only consumption.
func optimizeSnapshot(db *sql.DB) error {
	optimizations := []string{
		`PRAGMA journal_mode=DELETE`,
		`ANALYZE`,
		`PRAGMA optimize`,
	}
	for _, stmt := range optimizations {
		// Some pragmas fail depending on connection state; keep going.
		if _, err := db.Exec(stmt); err != nil {
			continue
		}
	}

	// VACUUM must run last and outside any transaction.
	if _, err := db.Exec(`VACUUM`); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "vacuuming snapshot database")
	}
	return nil
}

// jsonArray renders a string slice as the JSON TEXT form the reader
// parses. Empty slices encode as "[]" rather than NULL.
func jsonArray(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(data)
}
