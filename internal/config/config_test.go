package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recallhq/recall/pkg/types"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, string(types.FusionRRF), cfg.Search.Fusion)
	assert.Equal(t, 60, cfg.Search.RRFK)
	assert.InDelta(t, 0.4, cfg.Search.LexicalWeight, 1e-12)
	assert.InDelta(t, 0.6, cfg.Search.SemanticWeight, 1e-12)
	assert.Equal(t, 4000, cfg.Docs.ChunkMaxBytes)
	assert.Equal(t, 32, cfg.Ingest.BatchSize)
	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, filepath.Join(cfg.DataDir, "recall.db"), cfg.DBPath())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv(EnvConfigPath, filepath.Join(t.TempDir(), "absent.yaml"))
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 60, cfg.Search.RRFK)
}

func TestLoad_ExplicitMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recall.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_dir: /var/lib/recall
embedding:
  provider: ollama
  endpoint: http://embed-host:11434
  model: nomic-embed-text
docs:
  chunk_max_bytes: 2000
search:
  fusion: weighted
  lexical_weight: 0.5
  semantic_weight: 0.5
  limit: 25
watch:
  debounce_ms: 1200
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/recall", cfg.DataDir)
	assert.Equal(t, "ollama", cfg.Embedding.Provider)
	assert.Equal(t, "http://embed-host:11434", cfg.Embedding.Endpoint)
	assert.Equal(t, 2000, cfg.Docs.ChunkMaxBytes)
	assert.Equal(t, "weighted", cfg.Search.Fusion)
	assert.Equal(t, 25, cfg.Search.Limit)
	assert.Equal(t, 1200, cfg.Watch.DebounceMS)
	// Untouched sections keep defaults
	assert.Equal(t, 32, cfg.Ingest.BatchSize)
	assert.Equal(t, 60, cfg.Search.RRFK)
}

func TestLoad_EnvBeatsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recall.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir: /from/file\nembedding:\n  provider: openai\n"), 0o644))

	t.Setenv(EnvDataDir, "/from/env")
	t.Setenv("RECALL_EMBEDDING_PROVIDER", "local")
	t.Setenv("RECALL_EMBED_BATCH", "7")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/from/env", cfg.DataDir)
	assert.Equal(t, "local", cfg.Embedding.Provider)
	assert.Equal(t, 7, cfg.Ingest.BatchSize)
	assert.Equal(t, 7, cfg.Docs.EmbedBatch)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recall.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir: [unterminated"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestSearchOptionsConversion(t *testing.T) {
	cfg := Default()
	cfg.Search.Limit = 5
	opts := cfg.SearchOptions()
	assert.Equal(t, 5, opts.Limit)
	assert.Equal(t, types.FusionRRF, opts.Fusion)
	assert.Equal(t, 60, opts.RRFK)
}

func TestDebounceClampsToPositive(t *testing.T) {
	cfg := Default()
	cfg.Watch.DebounceMS = 0
	assert.Positive(t, cfg.Debounce())
}
