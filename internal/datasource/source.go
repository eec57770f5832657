// Package datasource provides multi-source data detection and selection for
// lv. It discovers, validates, and selects the freshest valid source from
// JSON graph documents and SQLite snapshot databases.
package datasource

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/vanderheijden86/loomview/pkg/errors"
	"github.com/vanderheijden86/loomview/pkg/loader"
)

// SourceType identifies the type of data source
type SourceType string

const (
	// SourceTypeSQLite is a SQLite snapshot database
	SourceTypeSQLite SourceType = "sqlite"
	// SourceTypeJSON is a JSON graph document
	SourceTypeJSON SourceType = "json"
)

// Priority values for source types (higher = preferred on modtime ties)
const (
	PrioritySQLite = 100
	PriorityJSON   = 50
)

// sqliteMagic is the 16-byte header every SQLite database starts with.
var sqliteMagic = []byte("SQLite format 3\x00")

// Source represents a potential source of graph data
type Source struct {
	// Type identifies the source type
	Type SourceType `json:"type"`
	// Path is the path to the source file
	Path string `json:"path"`
	// Priority determines preference when timestamps are equal (higher = preferred)
	Priority int `json:"priority"`
	// ModTime is the last modification time of the source
	ModTime time.Time `json:"modTime"`
	// Size is the file size in bytes
	Size int64 `json:"size"`
	// ElementCount is the number of entities in the source (set during validation)
	ElementCount int `json:"elementCount"`
	// Valid indicates whether the source passed validation
	Valid bool `json:"valid"`
	// ValidationError describes why validation failed (if Valid is false)
	ValidationError string `json:"validationError,omitempty"`
}

// String returns a human-readable description of the source
func (s Source) String() string {
	status := "valid"
	if !s.Valid {
		status = fmt.Sprintf("invalid: %s", s.ValidationError)
	}
	return fmt.Sprintf("%s (%s, priority=%d, mod=%s, elements=%d, %s)",
		s.Path, s.Type, s.Priority, s.ModTime.Format(time.RFC3339), s.ElementCount, status)
}

// Discover classifies and validates the source at path. A directory is
// scanned for candidates and the freshest valid one wins, with SQLite
// preferred on modification-time ties. An empty path means the current
// directory.
func Discover(path string) (Source, error) {
	if path == "" {
		var err error
		path, err = os.Getwd()
		if err != nil {
			return Source{}, errors.Wrap(errors.ErrCodeIO, err, "cannot resolve current directory")
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return Source{}, errors.Wrap(errors.ErrCodeIO, err, "cannot stat %s", path)
	}

	if info.IsDir() {
		sources, err := DiscoverSources(path)
		if err != nil {
			return Source{}, err
		}
		return SelectBestSource(sources)
	}

	src := classify(path, info)
	ValidateSource(&src)
	return src, nil
}

// DiscoverSources finds all candidate sources in a directory, validates
// them, and returns them freshest-first.
func DiscoverSources(dir string) ([]Source, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "cannot read source directory %s", dir)
	}

	var sources []Source
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()

		// Skip backups and editor artifacts
		if strings.Contains(name, ".backup") || strings.Contains(name, ".orig") ||
			strings.HasSuffix(name, "~") {
			continue
		}

		switch strings.ToLower(filepath.Ext(name)) {
		case ".json", ".db", ".sqlite", ".sqlite3":
		default:
			continue
		}

		info, err := e.Info()
		if err != nil {
			continue
		}
		sources = append(sources, classify(filepath.Join(dir, name), info))
	}

	for i := range sources {
		ValidateSource(&sources[i])
	}

	// Freshest first; source-type priority breaks ties.
	sort.Slice(sources, func(i, j int) bool {
		if sources[i].ModTime.Equal(sources[j].ModTime) {
			return sources[i].Priority > sources[j].Priority
		}
		return sources[i].ModTime.After(sources[j].ModTime)
	})

	return sources, nil
}

// SelectBestSource returns the first valid source from a freshest-first
// list.
func SelectBestSource(sources []Source) (Source, error) {
	for _, s := range sources {
		if s.Valid {
			return s, nil
		}
	}
	if len(sources) == 0 {
		return Source{}, errors.New(errors.ErrCodeNotFound, "no graph sources discovered")
	}
	return Source{}, errors.New(errors.ErrCodeNotFound, "no valid source among %d candidates", len(sources))
}

// ValidateSource checks that a source is readable and counts its elements,
// recording the outcome on the source itself.
func ValidateSource(s *Source) {
	switch s.Type {
	case SourceTypeSQLite:
		reader, err := NewSQLiteReader(*s)
		if err != nil {
			s.Valid = false
			s.ValidationError = err.Error()
			return
		}
		defer reader.Close()
		count, err := reader.CountElements()
		if err != nil {
			s.Valid = false
			s.ValidationError = err.Error()
			return
		}
		s.Valid = true
		s.ValidationError = ""
		s.ElementCount = count

	case SourceTypeJSON:
		doc, _, err := loader.LoadDocument(s.Path)
		if err != nil {
			s.Valid = false
			s.ValidationError = err.Error()
			return
		}
		nodes, edges, containers := doc.Counts()
		s.Valid = true
		s.ValidationError = ""
		s.ElementCount = nodes + edges + containers

	default:
		s.Valid = false
		s.ValidationError = fmt.Sprintf("unknown source type: %s", s.Type)
	}
}

// classify assigns a source type from the file extension, falling back to a
// header sniff for ambiguous names. SQLite databases are recognizable by
// their 16-byte magic regardless of extension.
func classify(path string, info os.FileInfo) Source {
	src := Source{
		Path:    path,
		ModTime: info.ModTime(),
		Size:    info.Size(),
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		src.Type = SourceTypeSQLite
		src.Priority = PrioritySQLite
	case ".json":
		src.Type = SourceTypeJSON
		src.Priority = PriorityJSON
	default:
		if sniffSQLite(path) {
			src.Type = SourceTypeSQLite
			src.Priority = PrioritySQLite
		} else {
			src.Type = SourceTypeJSON
			src.Priority = PriorityJSON
		}
	}
	return src
}

// sniffSQLite reports whether the file starts with the SQLite header magic.
func sniffSQLite(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	header := make([]byte, len(sqliteMagic))
	if _, err := io.ReadFull(f, header); err != nil {
		return false
	}
	return bytes.Equal(header, sqliteMagic)
}
