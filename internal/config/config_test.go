package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("DORMGUIDE_DOCS_DIR", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, []string{".txt"}, cfg.Corpus.Extensions)
	assert.Equal(t, 20000, cfg.Index.MaxFeatures)
	assert.Equal(t, 3, cfg.Retrieval.TopK)
	assert.Equal(t, 10, cfg.Session.HistoryLimit)
	assert.Equal(t, "LLM_API_KEY", cfg.LLM.APIKeyEnv)
	assert.Equal(t, ":8000", cfg.Server.Addr)
}

func TestLoad_PartialFileFillsDefaults(t *testing.T) {
	t.Setenv("DORMGUIDE_DOCS_DIR", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "corpus:\n  docs_dir: /srv/docs\nretrieval:\n  top_k: 5\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/docs", cfg.Corpus.DocsDir)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.Equal(t, 10, cfg.Session.HistoryLimit)
	assert.NotEmpty(t, cfg.Corpus.IndexPath)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("corpus:\n  docs_dir: /srv/docs\n"), 0o644))
	t.Setenv("DORMGUIDE_DOCS_DIR", "/env/docs")
	t.Setenv("LLM_MODEL", "local-model")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/env/docs", cfg.Corpus.DocsDir)
	assert.Equal(t, "local-model", cfg.LLM.Model)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("corpus: [unclosed"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSave_RoundTrip(t *testing.T) {
	t.Setenv("DORMGUIDE_DOCS_DIR", "")
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := defaultConfig()
	cfg.Retrieval.TopK = 7

	require.NoError(t, Save(path, cfg))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, loaded.Retrieval.TopK)
}

func TestLLMConfig_APIKey(t *testing.T) {
	t.Setenv("MY_KEY", "secret")
	c := LLMConfig{APIKeyEnv: "MY_KEY"}
	assert.Equal(t, "secret", c.APIKey())
}
