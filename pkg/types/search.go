package types

import "time"

// FusionMethod selects how lexical and semantic rankings are merged
type FusionMethod string

const (
	// FusionRRF is Reciprocal Rank Fusion: rank-position based, scale
	// invariant between heterogeneous scoring systems. The default.
	FusionRRF FusionMethod = "rrf"
	// FusionWeighted is a weighted linear sum of stage scores.
	FusionWeighted FusionMethod = "weighted"
)

// MatchSource records which ranking stage(s) surfaced a hit
type MatchSource string

const (
	MatchLexical  MatchSource = "lexical"
	MatchSemantic MatchSource = "semantic"
	MatchHybrid   MatchSource = "hybrid"
)

// SearchOptions controls one hybrid search invocation
type SearchOptions struct {
	Limit  int
	Fusion FusionMethod

	// RRFK is the rank-fusion constant (default 60).
	RRFK int
	// LexicalWeight/SemanticWeight apply to FusionWeighted only
	// (defaults 0.4 and 0.6).
	LexicalWeight  float64
	SemanticWeight float64

	// Post-filters, applied after ranking and content fetch. They can
	// reduce the effective result count below Limit.
	Role             string
	ConversationFile string
	Since            time.Time
	Until            time.Time
}

// SearchHit is one ranked result from the hybrid search engine
type SearchHit struct {
	// Identification
	MsgID string
	Rank  int // 1-based position in the returned set

	// Scoring
	Score         float64 // fused score
	LexicalScore  float64 // matching query-term ratio; 0 when not lexically matched
	SemanticScore float64 // cosine similarity; 0 when not semantically matched
	Source        MatchSource

	// Content
	Role             string
	ConversationFile string
	TS               time.Time
	Text             string
}
