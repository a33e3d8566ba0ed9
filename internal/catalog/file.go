package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/SmitUplenchwar2687/Tollgate/internal/clock"
)

// FileSource reads a JSON Document from disk on every Load.
type FileSource struct {
	path  string
	clock clock.Clock
}

// NewFileSource creates a FileSource for path.
func NewFileSource(path string, c clock.Clock) *FileSource {
	if c == nil {
		c = clock.NewReal()
	}
	return &FileSource{path: path, clock: c}
}

// Load implements Source.
func (s *FileSource) Load(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog file: %w", err)
	}
	defer f.Close()

	doc, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("catalog file %s: %w", s.path, err)
	}
	return NewSnapshot(doc, s.clock.Now())
}

// Decode reads a Document, rejecting unknown fields.
func Decode(r io.Reader) (Document, error) {
	var doc Document
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("decoding catalog: %w", err)
	}
	return doc, nil
}

// WriteFile writes doc as indented JSON.
func WriteFile(path string, doc Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding catalog: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing catalog file: %w", err)
	}
	return nil
}
