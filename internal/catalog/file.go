package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// FileSource reads a catalog snapshot from a local JSON array of {id, name, set}.
type FileSource struct {
	path string
}

// NewFileSource creates a source backed by the JSON file at path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Source implements Loader.
func (s *FileSource) Source() Source {
	return SourceLocal
}

// Load decodes the catalog file.
func (s *FileSource) Load(_ context.Context) ([]Card, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}

	var cards []Card
	if err := json.Unmarshal(data, &cards); err != nil {
		return nil, fmt.Errorf("parse catalog file %s: %w", s.path, err)
	}
	return cards, nil
}
