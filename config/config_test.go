package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ":8000", cfg.Server.Addr)
	assert.Equal(t, "wikidex", cfg.Store.Collection)
	assert.Equal(t, 1536, cfg.Store.VectorSize)
	assert.Equal(t, "cosine", cfg.Store.Distance)
	assert.Equal(t, 3, cfg.Store.DefaultTopK)
	assert.Equal(t, 30, cfg.Store.MaxTopK)
	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, 2, cfg.Backfill.Workers)
	assert.Equal(t, []string{"english"}, cfg.Languages)

	require.NoError(t, cfg.Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
server:
  addr: ":9090"
store:
  dsn: "/tmp/wikidex.db"
  vector_size: 768
languages:
  - english
  - german
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "/tmp/wikidex.db", cfg.Store.DSN)
	assert.Equal(t, 768, cfg.Store.VectorSize)
	assert.Equal(t, []string{"english", "german"}, cfg.Languages)

	// Untouched sections keep their defaults.
	assert.Equal(t, "wikidex", cfg.Store.Collection)
	assert.Equal(t, 3, cfg.Store.DefaultTopK)
	assert.Equal(t, "en", cfg.Corpus.DefaultLang)
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("WIKIDEX_TEST_DSN", "postgres://wiki:secret@db/wikidex")

	path := writeConfigFile(t, `
store:
  dsn: "${WIKIDEX_TEST_DSN}"
embedding:
  model: "${WIKIDEX_TEST_MODEL:-text-embedding-3-large}"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://wiki:secret@db/wikidex", cfg.Store.DSN)
	assert.Equal(t, "text-embedding-3-large", cfg.Embedding.Model, "fallback applies when the variable is unset")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalidYAML(t *testing.T) {
	path := writeConfigFile(t, "store: [not a mapping")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero vector size", func(c *Config) { c.Store.VectorSize = 0 }},
		{"zero max top k", func(c *Config) { c.Store.MaxTopK = 0 }},
		{"default top k above max", func(c *Config) { c.Store.DefaultTopK = 100 }},
		{"zero backfill workers", func(c *Config) { c.Backfill.Workers = 0 }},
		{"inverted corpus timeout bounds", func(c *Config) {
			c.Corpus.MinTimeoutS = 60
			c.Corpus.MaxTimeoutS = 5
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
