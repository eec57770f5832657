package datasource

import (
	"database/sql"
	"strings"

	json "github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/loomview/pkg/errors"
	"github.com/vanderheijden86/loomview/pkg/model"
)

// SQLiteReader provides read access to a graph snapshot database
type SQLiteReader struct {
	db   *sql.DB
	path string
}

// NewSQLiteReader opens a snapshot database for reading
func NewSQLiteReader(source Source) (*SQLiteReader, error) {
	if source.Type != SourceTypeSQLite {
		return nil, errors.New(errors.ErrCodeInvalidInput, "source is not SQLite: %s", source.Type)
	}

	// Open in read-only mode with various pragmas for read performance
	dsn := "file:" + source.Path + "?mode=ro&_busy_timeout=5000&_journal_mode=WAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "cannot open database %s", source.Path)
	}

	pragmas := []string{
		"PRAGMA cache_size = -64000",   // 64MB cache
		"PRAGMA mmap_size = 268435456", // 256MB mmap
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		// Best effort; a read-only connection may reject some pragmas.
		_, _ = db.Exec(pragma)
	}

	return &SQLiteReader{
		db:   db,
		path: source.Path,
	}, nil
}

// Close closes the database connection
func (r *SQLiteReader) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// LoadDocument reads the full graph from the snapshot tables. Rows that
// fail to scan are skipped so one damaged row cannot block the rest of the
// snapshot.
func (r *SQLiteReader) LoadDocument() (*model.Document, error) {
	nodes, err := r.loadNodes()
	if err != nil {
		return nil, err
	}
	edges, err := r.loadEdges()
	if err != nil {
		return nil, err
	}
	containers, err := r.loadContainers()
	if err != nil {
		return nil, err
	}

	return &model.Document{
		Nodes:      nodes,
		Edges:      edges,
		Containers: containers,
	}, nil
}

func (r *SQLiteReader) loadNodes() ([]model.GraphNode, error) {
	// rowid preserves insertion order, which downstream code treats as
	// the document order.
	rows, err := r.db.Query(`SELECT id, label, long_label, type, semantic_tags FROM nodes ORDER BY rowid`)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "cannot query nodes in %s", r.path)
	}
	defer rows.Close()

	var nodes []model.GraphNode
	for rows.Next() {
		var n model.GraphNode
		var longLabel, nodeType, tags sql.NullString

		if err := rows.Scan(&n.ID, &n.Label, &longLabel, &nodeType, &tags); err != nil {
			continue
		}

		if longLabel.Valid {
			n.LongLabel = longLabel.String
		}
		if nodeType.Valid {
			n.Type = nodeType.String
		}
		if tags.Valid {
			n.SemanticTags = parseJSONStringArray(tags.String)
		}

		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "error iterating nodes")
	}
	return nodes, nil
}

func (r *SQLiteReader) loadEdges() ([]model.GraphEdge, error) {
	rows, err := r.db.Query(`SELECT id, source, target, type, semantic_tags FROM edges ORDER BY rowid`)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "cannot query edges in %s", r.path)
	}
	defer rows.Close()

	var edges []model.GraphEdge
	for rows.Next() {
		var e model.GraphEdge
		var edgeType, tags sql.NullString

		if err := rows.Scan(&e.ID, &e.Source, &e.Target, &edgeType, &tags); err != nil {
			continue
		}

		if edgeType.Valid {
			e.Type = edgeType.String
		}
		if tags.Valid {
			e.SemanticTags = parseJSONStringArray(tags.String)
		}

		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "error iterating edges")
	}
	return edges, nil
}

func (r *SQLiteReader) loadContainers() ([]model.Container, error) {
	rows, err := r.db.Query(`SELECT id, label, children FROM containers ORDER BY rowid`)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "cannot query containers in %s", r.path)
	}
	defer rows.Close()

	var containers []model.Container
	for rows.Next() {
		var c model.Container
		var label, children sql.NullString

		if err := rows.Scan(&c.ID, &label, &children); err != nil {
			continue
		}

		if label.Valid {
			c.Label = label.String
		}
		if children.Valid {
			c.Children = parseJSONStringArray(children.String)
		}

		containers = append(containers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "error iterating containers")
	}
	return containers, nil
}

// CountElements returns the total number of nodes, edges, and containers in
// the snapshot. Used by source validation as a cheap readability probe.
func (r *SQLiteReader) CountElements() (int, error) {
	query := `SELECT
		(SELECT COUNT(*) FROM nodes) +
		(SELECT COUNT(*) FROM edges) +
		(SELECT COUNT(*) FROM containers)`

	var count int
	if err := r.db.QueryRow(query).Scan(&count); err != nil {
		return 0, errors.Wrap(errors.ErrCodeIO, err, "cannot count elements in %s", r.path)
	}
	return count, nil
}

// parseJSONStringArray parses a JSON array of strings
func parseJSONStringArray(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == "null" || s == "[]" {
		return nil
	}

	// Use proper JSON unmarshaling to handle edge cases like commas in tags
	var result []string
	if err := json.Unmarshal([]byte(s), &result); err != nil {
		// Fallback to simple parser for malformed JSON
		s = strings.TrimPrefix(s, "[")
		s = strings.TrimSuffix(s, "]")
		if s == "" {
			return nil
		}
		for _, item := range strings.Split(s, ",") {
			item = strings.TrimSpace(item)
			item = strings.Trim(item, `"`)
			if item != "" {
				result = append(result, item)
			}
		}
	}
	return result
}
