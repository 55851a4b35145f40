// Package mcp exposes the indexing and retrieval engine over the Model
// Context Protocol so agents can drive it directly.
//
// Four tools are registered on a stdio JSON-RPC server:
//   - index_project: full or incremental code-graph indexing, optionally
//     including the project's documentation
//   - search_history: hybrid lexical+semantic search over ingested
//     conversation history
//   - search_code: symbol prefix lookup and bounded call-chain traversal
//     over the code graph
//   - get_status: per-project row counts and index health
//
// stdout carries the protocol; all logging goes to stderr. Error responses
// use JSON-RPC codes: -32602 invalid params, -32603 internal, plus
// tool-specific codes in the -32000 range.
package mcp
