package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/recallhq/recall/internal/docindex"
	"github.com/recallhq/recall/internal/store"
	"github.com/recallhq/recall/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams   = -32602 // Invalid method parameters
	ErrorCodeInternalError   = -32603 // Internal JSON-RPC error
	ErrorCodeProjectNotFound = -32001 // Path does not exist or is not a directory
	ErrorCodeNotIndexed      = -32003 // Project has never been indexed
	ErrorCodeEmptyQuery      = -32004 // Query parameter is empty
)

// handleIndexProject handles the index_project tool invocation
func (s *Server) handleIndexProject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, err := requirePath(args)
	if err != nil {
		return nil, err
	}

	mode := getStringDefault(args, "mode", "sync")
	if mode != "full" && mode != "sync" {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid mode", map[string]interface{}{
			"param": "mode", "value": mode, "allowed": []string{"full", "sync"},
		})
	}

	run := s.indexer.SyncProject
	if mode == "full" {
		run = s.indexer.IndexProject
	}
	codeStats, err := run(ctx, path, nil)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "indexing failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"mode":            mode,
		"language":        string(codeStats.Language),
		"framework":       codeStats.Framework,
		"files_indexed":   codeStats.FilesIndexed,
		"files_unchanged": codeStats.FilesUnchanged,
		"files_deleted":   codeStats.FilesDeleted,
		"files_failed":    codeStats.FilesFailed,
		"functions":       codeStats.Functions,
		"classes":         codeStats.Classes,
		"edges":           codeStats.Edges,
		"duration_ms":     codeStats.Duration.Milliseconds(),
	}
	attachErrors(response, codeStats.Errors)

	if getBoolDefault(args, "include_docs", false) {
		docsRun := s.docs.SyncDocs
		if mode == "full" {
			docsRun = s.docs.IndexDocs
		}
		docStats, err := docsRun(ctx, path, &docindex.Config{
			ChunkMaxBytes: s.cfg.Docs.ChunkMaxBytes,
			EmbedBatch:    s.cfg.Docs.EmbedBatch,
		})
		if err != nil {
			return nil, newMCPError(ErrorCodeInternalError, "doc indexing failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
		response["docs"] = map[string]interface{}{
			"indexed":   docStats.DocsIndexed,
			"unchanged": docStats.DocsUnchanged,
			"deleted":   docStats.DocsDeleted,
			"failed":    docStats.DocsFailed,
			"sections":  docStats.Sections,
			"chunks":    docStats.Chunks,
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearchHistory handles the search_history tool invocation
func (s *Server) handleSearchHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, err := requirePath(args)
	if err != nil {
		return nil, err
	}
	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param": "query", "reason": "missing or empty",
		})
	}

	limit := getIntDefault(args, "limit", s.cfg.Search.Limit)
	if limit < 1 || limit > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit", "value": limit,
		})
	}

	opts := s.cfg.SearchOptions()
	opts.Limit = limit
	opts.Role = getStringDefault(args, "role", "")
	opts.ConversationFile = getStringDefault(args, "conversation_file", "")
	if fusion := getStringDefault(args, "fusion", ""); fusion != "" {
		opts.Fusion = types.FusionMethod(fusion)
	}

	hits, err := s.searcher.Search(ctx, path, query, opts)
	if err != nil {
		if errors.Is(err, types.ErrUnknownFusion) {
			return nil, newMCPError(ErrorCodeInvalidParams, "invalid fusion method", map[string]interface{}{
				"param": "fusion",
			})
		}
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	results := make([]map[string]interface{}, 0, len(hits))
	for _, h := range hits {
		results = append(results, map[string]interface{}{
			"rank":              h.Rank,
			"score":             h.Score,
			"source":            string(h.Source),
			"role":              h.Role,
			"conversation_file": h.ConversationFile,
			"timestamp":         h.TS,
			"text":              h.Text,
		})
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"query":   query,
		"results": results,
	})), nil
}

// handleSearchCode handles the search_code tool invocation
func (s *Server) handleSearchCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, err := requirePath(args)
	if err != nil {
		return nil, err
	}

	symbol := getStringDefault(args, "symbol", "")
	callsFrom := getStringDefault(args, "calls_from", "")
	if symbol == "" && callsFrom == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "either symbol or calls_from is required", nil)
	}

	response := map[string]interface{}{}

	if symbol != "" {
		limit := getIntDefault(args, "limit", 20)
		hits, err := s.store.SearchSymbols(ctx, path, symbol, limit)
		if err != nil {
			return nil, newMCPError(ErrorCodeInternalError, "symbol search failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
		symbols := make([]map[string]interface{}, 0, len(hits))
		for _, h := range hits {
			entry := map[string]interface{}{
				"name": h.Name,
				"kind": h.Kind,
				"path": h.Path,
			}
			if h.ClassName != "" {
				entry["class"] = h.ClassName
			}
			symbols = append(symbols, entry)
		}
		response["symbols"] = symbols
	}

	if callsFrom != "" {
		chain, err := s.callChain(ctx, path, callsFrom, getIntDefault(args, "depth", store.DefaultChainDepth))
		if err != nil {
			return nil, err
		}
		response["call_chain"] = chain
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// callChain resolves a function name and walks its call edges. Name-only
// resolution can be ambiguous; every candidate's chain is returned.
func (s *Server) callChain(ctx context.Context, project, fnName string, depth int) ([]map[string]interface{}, error) {
	fns, err := s.store.FunctionsByName(ctx, project, fnName)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "function lookup failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if len(fns) == 0 {
		return nil, newMCPError(ErrorCodeNotIndexed, "function not found in index", map[string]interface{}{
			"function": fnName,
		})
	}

	chains := make([]map[string]interface{}, 0, len(fns))
	for _, fn := range fns {
		entries, err := s.store.CallChain(ctx, fn.FnID, depth)
		if err != nil {
			return nil, newMCPError(ErrorCodeInternalError, "call chain failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
		reachable := make([]map[string]interface{}, 0, len(entries))
		for _, e := range entries {
			reachable = append(reachable, map[string]interface{}{
				"name":  e.Name,
				"path":  e.Path,
				"depth": e.Depth,
			})
		}
		chains = append(chains, map[string]interface{}{
			"from":      fn.Name,
			"file":      fn.FileID,
			"reachable": reachable,
		})
	}
	return chains, nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, err := requirePath(args)
	if err != nil {
		return nil, err
	}

	status, err := s.store.GetStatus(ctx, path)
	if errors.Is(err, store.ErrNotFound) {
		return mcp.NewToolResultText(formatJSON(map[string]interface{}{
			"indexed": false,
			"path":    path,
		})), nil
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "status lookup failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"indexed":         true,
		"path":            path,
		"language":        status.Project.Language,
		"framework":       status.Project.Framework,
		"last_indexed_at": status.LastIndexedAt,
		"files":           status.Files,
		"functions":       status.Functions,
		"classes":         status.Classes,
		"edges":           status.Edges,
		"documents":       status.Documents,
		"chunks":          status.Chunks,
		"messages":        status.Messages,
		"message_vectors": status.MessageVectors,
		"database_bytes":  status.DatabaseBytes,
		"build_mode":      status.BuildMode,
	})), nil
}

// Helper functions

// attachErrors includes the first few per-file error messages in a response
func attachErrors(response map[string]interface{}, msgs []string) {
	if len(msgs) == 0 {
		return
	}
	if len(msgs) > 5 {
		response["errors"] = msgs[:5]
		response["error_count"] = len(msgs)
		return
	}
	response["errors"] = msgs
}

// requirePath extracts and validates the mandatory path argument
func requirePath(args map[string]interface{}) (string, error) {
	path, ok := args["path"].(string)
	if !ok || path == "" {
		return "", newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param": "path", "reason": "missing or empty",
		})
	}
	if !filepath.IsAbs(path) {
		return "", newMCPError(ErrorCodeInvalidParams, "path must be absolute", map[string]interface{}{
			"param": "path", "value": path,
		})
	}
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return "", newMCPError(ErrorCodeProjectNotFound, "path is not an accessible directory", map[string]interface{}{
			"param": "path", "value": path,
		})
	}
	return filepath.Clean(path), nil
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{Code: code, Message: message, Data: data}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value. JSON
// numbers arrive as float64.
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok && val != "" {
		return val
	}
	return defaultValue
}
