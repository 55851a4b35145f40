package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// indexProjectTool returns the tool definition for index_project
func indexProjectTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_project",
		Description: "Build or incrementally update the code graph for a project",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the project root",
				},
				"mode": map[string]interface{}{
					"type":        "string",
					"description": "full rebuilds everything; sync re-indexes only changed files",
					"enum":        []string{"full", "sync"},
					"default":     "sync",
				},
				"include_docs": map[string]interface{}{
					"type":        "boolean",
					"description": "Also index the project's markdown/text documentation",
					"default":     false,
				},
			},
			Required: []string{"path"},
		},
	}
}

// searchHistoryTool returns the tool definition for search_history
func searchHistoryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_history",
		Description: "Hybrid lexical+semantic search over ingested conversation history",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path of the project whose history to search",
				},
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum results (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
				"role": map[string]interface{}{
					"type":        "string",
					"description": "Only messages with this role (e.g. user, assistant)",
				},
				"conversation_file": map[string]interface{}{
					"type":        "string",
					"description": "Only messages from this transcript path",
				},
				"fusion": map[string]interface{}{
					"type":        "string",
					"description": "Rank fusion method",
					"enum":        []string{"rrf", "weighted"},
					"default":     "rrf",
				},
			},
			Required: []string{"path", "query"},
		},
	}
}

// searchCodeTool returns the tool definition for search_code
func searchCodeTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_code",
		Description: "Look up functions and classes by name prefix, or walk the call chain from a function",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the indexed project",
				},
				"symbol": map[string]interface{}{
					"type":        "string",
					"description": "Name prefix to match against function and class names",
				},
				"calls_from": map[string]interface{}{
					"type":        "string",
					"description": "Exact function name; returns every function reachable from it over call edges",
				},
				"depth": map[string]interface{}{
					"type":        "integer",
					"description": "Call-chain traversal depth bound",
					"default":     10,
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum symbol matches",
					"default":     20,
				},
			},
			Required: []string{"path"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report index contents and health for a project",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the project root",
				},
			},
			Required: []string{"path"},
		},
	}
}
