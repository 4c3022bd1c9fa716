package loader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"dormguide/internal/domain"
)

// DefaultExtensions are the file extensions treated as corpus documents.
var DefaultExtensions = []string{".txt"}

// Load returns every non-empty document in dir whose extension is in exts,
// ordered by file name. A missing directory yields no documents and no error.
func Load(dir string, exts []string) ([]domain.Document, error) {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read docs dir %s: %w", dir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var docs []domain.Document
	for _, e := range entries {
		if !e.Type().IsRegular() || !HasExtension(e.Name(), exts) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		text := strings.TrimSpace(string(data))
		if text == "" {
			continue
		}
		docs = append(docs, domain.Document{
			ID:     len(docs),
			Source: e.Name(),
			Path:   path,
			Text:   text,
		})
	}
	return docs, nil
}

// HasExtension reports whether name ends in one of exts, ignoring case.
func HasExtension(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}
