// Package types provides shared type definitions for the recall indexing engine.
//
// This package defines the domain types that cross component boundaries:
// analyzer output, graph nodes, delta-sync metadata, document structure,
// conversation messages, and search results.
//
// # Analyzer Output
//
// ParsedFile is the uniform structural representation every language analyzer
// emits, regardless of source language or parsing strategy:
//
//	parsed := &types.ParsedFile{
//	    Path:     "app/models/user.rb",
//	    Language: types.LangRuby,
//	    Functions: []types.FunctionDef{{
//	        Name:          "full_name",
//	        QualifiedName: "User.full_name",
//	        ClassName:     "User",
//	        Calls:         []string{"first_name", "last_name"},
//	    }},
//	}
//
// Downstream code (the graph indexer, delta sync) is analyzer-agnostic: it
// consumes ParsedFile records and never inspects source text itself.
//
// # Conversation Messages
//
// Message content arrives either as a plain string or as a list of typed
// blocks. ContentBlock is the closed variant covering every block kind; Text
// extraction is an exhaustive switch over Type:
//
//	block := types.ContentBlock{Type: types.BlockThinking, Thinking: "..."}
//	text := block.Text()
//
// # Search Results
//
// SearchHit carries a fused relevance score plus a Source tag recording which
// ranking stage surfaced the hit (lexical, semantic, or both):
//
//	hit := types.SearchHit{
//	    MsgID:  "0193e...",
//	    Score:  0.0321,
//	    Source: types.MatchHybrid,
//	}
package types
