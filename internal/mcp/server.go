package mcp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/recallhq/recall/internal/config"
	"github.com/recallhq/recall/internal/docindex"
	"github.com/recallhq/recall/internal/embedder"
	"github.com/recallhq/recall/internal/graph"
	"github.com/recallhq/recall/internal/ingest"
	"github.com/recallhq/recall/internal/search"
	"github.com/recallhq/recall/internal/store"
)

const (
	// ServerName is the MCP server name
	ServerName = "recall"
	// ServerVersion is the advertised server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with the engine's components. One embedder
// instance is shared by the indexers, the ingester, and the searcher so
// they all hit the same cache.
type Server struct {
	mcp      *server.MCPServer
	cfg      *config.Config
	store    *store.Store
	indexer  *graph.Indexer
	docs     *docindex.Indexer
	pipeline *ingest.Pipeline
	searcher *search.Searcher
	logger   *slog.Logger
}

// NewServer opens the database at cfg.DBPath() and wires every component.
// A nil logger falls back to slog.Default(), which callers must point at
// stderr before serving: stdout is the protocol channel.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	st, err := store.Open(cfg.DBPath())
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	emb, err := newEmbedder(cfg)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("create embedder: %w", err)
	}

	s := &Server{
		mcp:      server.NewMCPServer(ServerName, ServerVersion),
		cfg:      cfg,
		store:    st,
		indexer:  graph.New(st, logger),
		docs:     docindex.New(st, emb, logger),
		pipeline: ingest.New(st, emb, logger),
		searcher: search.New(st, emb, logger),
		logger:   logger,
	}
	s.registerTools()
	return s, nil
}

// newEmbedder builds the shared embedder from config, falling back to
// environment-driven selection when the config names no provider.
func newEmbedder(cfg *config.Config) (embedder.Embedder, error) {
	if cfg.Embedding.Provider == "" {
		return embedder.NewFromEnv()
	}
	return embedder.New(embedder.Config{
		Provider:  cfg.Embedding.Provider,
		Endpoint:  cfg.Embedding.Endpoint,
		Model:     cfg.Embedding.Model,
		CacheSize: cfg.Embedding.CacheSize,
	})
}

// Serve blocks on stdio until the client disconnects
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.store.Close() }()
	s.logger.Info("mcp server ready", "name", ServerName, "version", ServerVersion)
	return server.ServeStdio(s.mcp)
}

// Close releases the store without serving (used by tests and error paths)
func (s *Server) Close() error {
	return s.store.Close()
}

func (s *Server) registerTools() {
	s.mcp.AddTool(indexProjectTool(), s.handleIndexProject)
	s.mcp.AddTool(searchHistoryTool(), s.handleSearchHistory)
	s.mcp.AddTool(searchCodeTool(), s.handleSearchCode)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
