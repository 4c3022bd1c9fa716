package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoad_SortedFilteredNonEmpty(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "spencer.txt", "Spencer - historic, all women.")
	writeFile(t, dir, "cobb.TXT", "Cobb - quiet north campus hall.")
	writeFile(t, dir, "notes.md", "ignored")
	writeFile(t, dir, "blank.txt", "   \n\t ")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.txt"), 0o755))

	docs, err := Load(dir, nil)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, "cobb.TXT", docs[0].Source)
	assert.Equal(t, 0, docs[0].ID)
	assert.Equal(t, "Cobb - quiet north campus hall.", docs[0].Text)
	assert.Equal(t, "spencer.txt", docs[1].Source)
	assert.Equal(t, 1, docs[1].ID)
	assert.Equal(t, filepath.Join(dir, "spencer.txt"), docs[1].Path)
}

func TestLoad_TrimsContent(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "\n  Horton hall  \n")

	docs, err := Load(dir, []string{".txt"})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Horton hall", docs[0].Text)
}

func TestLoad_MissingDirIsEmpty(t *testing.T) {
	docs, err := Load(filepath.Join(t.TempDir(), "missing"), nil)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestLoad_CustomExtensions(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "alpha")
	writeFile(t, dir, "b.md", "beta")

	docs, err := Load(dir, []string{".md"})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "b.md", docs[0].Source)
}

func TestHasExtension(t *testing.T) {
	assert.True(t, HasExtension("x.TXT", []string{".txt"}))
	assert.False(t, HasExtension("x.txt.bak", []string{".txt"}))
	assert.False(t, HasExtension("txt", []string{".txt"}))
}
