package index

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"dormguide/internal/domain"
	"dormguide/internal/embedding/tfidf"
)

// Blob is the single persisted representation of the index.
// Matrix, Documents and Metadata are aligned by position.
type Blob struct {
	Model     tfidf.State
	Matrix    []tfidf.Vector
	Documents []string
	Metadata  []domain.SourceMeta
	BuiltAt   time.Time
}

// Len returns the number of indexed documents.
func (b *Blob) Len() int { return len(b.Documents) }

func (b *Blob) validate() error {
	if len(b.Matrix) != len(b.Documents) || len(b.Documents) != len(b.Metadata) {
		return fmt.Errorf("%w: %d rows, %d documents, %d metadata entries",
			domain.ErrCorruptIndex, len(b.Matrix), len(b.Documents), len(b.Metadata))
	}
	return nil
}

// Save writes the blob to path, replacing any previous file atomically.
func Save(path string, b *Blob) error {
	if err := b.validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".index-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp index: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := gob.NewEncoder(tmp).Encode(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("encode index: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace index: %w", err)
	}
	return nil
}

// Load reads the blob at path. A missing file is reported as domain.ErrIndexNotFound.
func Load(path string) (*Blob, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s", domain.ErrIndexNotFound, path)
		}
		return nil, fmt.Errorf("open index: %w", err)
	}
	defer f.Close()

	var b Blob
	if err := gob.NewDecoder(f).Decode(&b); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorruptIndex, err)
	}
	if err := b.validate(); err != nil {
		return nil, err
	}
	return &b, nil
}

// FileSource reads the blob from disk on every call.
type FileSource struct {
	Path string
}

// Snapshot implements retrieval.Source.
func (s FileSource) Snapshot() (*Blob, error) {
	return Load(s.Path)
}
