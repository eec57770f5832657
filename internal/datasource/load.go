package datasource

import (
	"github.com/vanderheijden86/loomview/pkg/errors"
	"github.com/vanderheijden86/loomview/pkg/loader"
	"github.com/vanderheijden86/loomview/pkg/model"
)

// Load reads a graph document from a specific source, dispatching to the
// appropriate reader based on source type. SQLite snapshots carry no
// parse-level issues; structural validation happens when the document is
// loaded into the store.
func Load(source Source, opts loader.ParseOptions) (*model.Document, []model.ValidationIssue, error) {
	switch source.Type {
	case SourceTypeSQLite:
		reader, err := NewSQLiteReader(source)
		if err != nil {
			return nil, nil, errors.Wrap(errors.ErrCodeIO, err, "failed to open SQLite source %s", source.Path)
		}
		defer reader.Close()
		doc, err := reader.LoadDocument()
		if err != nil {
			return nil, nil, err
		}
		return doc, nil, nil

	case SourceTypeJSON:
		return loader.LoadDocumentWithOptions(source.Path, opts)

	default:
		return nil, nil, errors.New(errors.ErrCodeInvalidInput, "unknown source type: %s", source.Type)
	}
}

// LoadPath performs smart source detection and loading. It discovers the
// best source at path (a file, or a directory of candidates where the
// freshest valid source wins with SQLite preferred on ties) and loads the
// graph from it. The winning source is returned so callers can report what
// was loaded.
func LoadPath(path string, opts loader.ParseOptions) (*model.Document, Source, []model.ValidationIssue, error) {
	src, err := Discover(path)
	if err != nil {
		return nil, Source{}, nil, err
	}
	doc, issues, err := Load(src, opts)
	if err != nil {
		return nil, src, nil, err
	}
	return doc, src, issues, nil
}
