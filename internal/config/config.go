// Package config loads recall's tunables from a YAML file with environment
// overrides. Library packages never read configuration themselves; the CLI
// and MCP server resolve a Config once and pass concrete values down.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/recallhq/recall/pkg/types"
)

// Environment variables the loader honors after the file is read. The
// embedder package reads its own RECALL_EMBEDDING_* variables; they are
// mirrored here so a config file can set the same knobs.
const (
	EnvConfigPath = "RECALL_CONFIG"
	EnvDataDir    = "RECALL_DATA_DIR"
)

// Config is the full tunable surface
type Config struct {
	// DataDir holds the database and any per-project state
	DataDir string `yaml:"data_dir"`

	Embedding EmbeddingConfig `yaml:"embedding"`
	Docs      DocsConfig      `yaml:"docs"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Search    SearchConfig    `yaml:"search"`
	Watch     WatchConfig     `yaml:"watch"`
}

// EmbeddingConfig selects and tunes the embedding provider
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"` // ollama, openai, local; empty = auto
	Endpoint  string `yaml:"endpoint"` // Ollama base URL
	Model     string `yaml:"model"`
	CacheSize int    `yaml:"cache_size"`
}

// DocsConfig tunes the document indexer
type DocsConfig struct {
	ChunkMaxBytes int `yaml:"chunk_max_bytes"`
	EmbedBatch    int `yaml:"embed_batch"`
}

// IngestConfig tunes conversation ingestion
type IngestConfig struct {
	BatchSize int `yaml:"batch_size"`
}

// SearchConfig sets hybrid-search defaults; per-query options still win
type SearchConfig struct {
	Fusion         string  `yaml:"fusion"` // rrf or weighted
	RRFK           int     `yaml:"rrf_k"`
	LexicalWeight  float64 `yaml:"lexical_weight"`
	SemanticWeight float64 `yaml:"semantic_weight"`
	Limit          int     `yaml:"limit"`
}

// WatchConfig tunes the filesystem watcher
type WatchConfig struct {
	DebounceMS int `yaml:"debounce_ms"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		DataDir: defaultDataDir(),
		Embedding: EmbeddingConfig{
			CacheSize: 10000,
		},
		Docs: DocsConfig{
			ChunkMaxBytes: 4000,
			EmbedBatch:    32,
		},
		Ingest: IngestConfig{
			BatchSize: 32,
		},
		Search: SearchConfig{
			Fusion:         string(types.FusionRRF),
			RRFK:           60,
			LexicalWeight:  0.4,
			SemanticWeight: 0.6,
			Limit:          10,
		},
		Watch: WatchConfig{
			DebounceMS: 500,
		},
	}
}

// Load resolves configuration: defaults, then the YAML file, then env
// overrides. path may be empty, in which case RECALL_CONFIG and the
// default location are tried; a missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path == "" {
		path = filepath.Join(defaultDataDir(), "recall.yaml")
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err) && !explicit:
		// No file, defaults apply
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	applyEnv(cfg)
	return cfg, nil
}

// applyEnv layers environment overrides over whatever the file set
func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvDataDir); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("RECALL_EMBEDDING_PROVIDER"); v != "" {
		cfg.Embedding.Provider = v
	}
	if v := os.Getenv("RECALL_EMBEDDING_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}
	if v := os.Getenv("RECALL_OLLAMA_URL"); v != "" {
		cfg.Embedding.Endpoint = v
	}
	if v := os.Getenv("RECALL_EMBED_BATCH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Ingest.BatchSize = n
			cfg.Docs.EmbedBatch = n
		}
	}
}

// DBPath is where the shared database lives under the data dir
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "recall.db")
}

// Debounce returns the watcher debounce as a duration
func (c *Config) Debounce() time.Duration {
	if c.Watch.DebounceMS <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(c.Watch.DebounceMS) * time.Millisecond
}

// SearchOptions converts the configured search defaults into per-query
// options.
func (c *Config) SearchOptions() types.SearchOptions {
	return types.SearchOptions{
		Limit:          c.Search.Limit,
		Fusion:         types.FusionMethod(c.Search.Fusion),
		RRFK:           c.Search.RRFK,
		LexicalWeight:  c.Search.LexicalWeight,
		SemanticWeight: c.Search.SemanticWeight,
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".recall"
	}
	return filepath.Join(home, ".recall")
}
