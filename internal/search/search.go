// Package search answers retrieval queries over the conversation index by
// fusing two rankings: a lexical stage scoring messages by the fraction of
// query terms they contain, and a semantic stage ranking stored vectors by
// cosine similarity to the embedded query. Reciprocal Rank Fusion merges
// the two by rank position, so neither scoring system's scale dominates.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/recallhq/recall/internal/embedder"
	"github.com/recallhq/recall/internal/store"
	"github.com/recallhq/recall/internal/terms"
	"github.com/recallhq/recall/pkg/types"
)

const (
	// stageLimit caps each ranking stage before fusion
	stageLimit = 100

	// DefaultLimit is the returned result count when options don't set one
	DefaultLimit = 10

	// DefaultRRFK is the Reciprocal Rank Fusion constant
	DefaultRRFK = 60

	// Default weights for weighted linear fusion
	DefaultLexicalWeight  = 0.4
	DefaultSemanticWeight = 0.6

	// queryCacheSize bounds the per-searcher result cache
	queryCacheSize = 256
	// queryCacheTTL expires cached results; the cache is advisory, so a
	// short TTL keeps post-ingest staleness bounded.
	queryCacheTTL = 60 * time.Second
)

// Searcher runs hybrid searches over one project's message history
type Searcher struct {
	store    *store.Store
	embedder embedder.Embedder
	logger   *slog.Logger
	cache    *lru.Cache[string, cacheEntry]
}

type cacheEntry struct {
	hits      []types.SearchHit
	expiresAt time.Time
}

// New creates a Searcher. emb may be nil, which disables the semantic
// stage and makes every search lexical-only.
func New(st *store.Store, emb embedder.Embedder, logger *slog.Logger) *Searcher {
	if logger == nil {
		logger = slog.Default()
	}
	cache, _ := lru.New[string, cacheEntry](queryCacheSize)
	return &Searcher{store: st, embedder: emb, logger: logger, cache: cache}
}

// Search runs the full pipeline: lexical ranking, semantic ranking, fusion,
// content fetch, post-filters, and source tagging. Post-filters apply after
// ranking, so they can shrink the result set below opts.Limit.
func (s *Searcher) Search(ctx context.Context, project, query string, opts types.SearchOptions) ([]types.SearchHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, types.ErrEmptyQuery
	}
	opts = withDefaults(opts)

	key := cacheKey(project, query, opts)
	if entry, ok := s.cache.Get(key); ok && time.Now().Before(entry.expiresAt) {
		return cloneHits(entry.hits), nil
	}

	lexical, err := s.lexicalStage(ctx, project, query)
	if err != nil {
		return nil, err
	}
	semantic := s.semanticStage(ctx, project, query)

	fused, err := fuse(lexical, semantic, opts)
	if err != nil {
		return nil, err
	}

	hits, err := s.materialize(ctx, fused, lexical, semantic, opts)
	if err != nil {
		return nil, err
	}

	s.cache.Add(key, cacheEntry{hits: cloneHits(hits), expiresAt: time.Now().Add(queryCacheTTL)})

	s.logger.Debug("search complete",
		"project", project,
		"lexical", len(lexical.ids),
		"semantic", len(semantic.ids),
		"returned", len(hits))
	return hits, nil
}

// ranked is one stage's ordered result list with per-ID scores
type ranked struct {
	ids    []string
	scores map[string]float64
}

// lexicalStage scores each message by matched distinct query terms over
// total query terms, keeping the top stageLimit.
func (s *Searcher) lexicalStage(ctx context.Context, project, query string) (ranked, error) {
	queryTerms := terms.Tokenize(query)
	if len(queryTerms) == 0 {
		return ranked{scores: map[string]float64{}}, nil
	}

	counts, err := s.store.MessageIDsMatchingTerms(ctx, project, queryTerms)
	if err != nil {
		return ranked{}, fmt.Errorf("lexical stage: %w", err)
	}

	r := ranked{
		ids:    make([]string, 0, len(counts)),
		scores: make(map[string]float64, len(counts)),
	}
	for id, n := range counts {
		r.ids = append(r.ids, id)
		r.scores[id] = float64(n) / float64(len(queryTerms))
	}
	// Deterministic order: score desc, then ID for equal scores
	sort.Slice(r.ids, func(i, j int) bool {
		si, sj := r.scores[r.ids[i]], r.scores[r.ids[j]]
		if si != sj {
			return si > sj
		}
		return r.ids[i] < r.ids[j]
	})
	if len(r.ids) > stageLimit {
		for _, id := range r.ids[stageLimit:] {
			delete(r.scores, id)
		}
		r.ids = r.ids[:stageLimit]
	}
	return r, nil
}

// semanticStage embeds the query once and ranks stored vectors by cosine
// similarity. A missing embedder or a failed embedding degrades the search
// to lexical-only rather than failing it.
func (s *Searcher) semanticStage(ctx context.Context, project, query string) ranked {
	empty := ranked{scores: map[string]float64{}}
	if s.embedder == nil {
		return empty
	}

	vectors, err := s.embedder.EmbedBatch(ctx, []string{query})
	if err != nil || len(vectors) != 1 {
		s.logger.Warn("query embedding failed, lexical-only search", "error", err)
		return empty
	}

	matches, err := s.store.SearchMessageVectors(ctx, project, vectors[0], stageLimit)
	if err != nil {
		s.logger.Warn("vector search failed, lexical-only search", "error", err)
		return empty
	}

	r := ranked{
		ids:    make([]string, 0, len(matches)),
		scores: make(map[string]float64, len(matches)),
	}
	for _, m := range matches {
		r.ids = append(r.ids, m.MsgID)
		r.scores[m.MsgID] = m.Similarity
	}
	return r
}

// materialize fetches content for the fused IDs, applies post-filters, and
// assembles the final hits with stage scores and source tags.
func (s *Searcher) materialize(ctx context.Context, fused []scoredID, lexical, semantic ranked, opts types.SearchOptions) ([]types.SearchHit, error) {
	ids := make([]string, len(fused))
	for i, f := range fused {
		ids[i] = f.id
	}
	messages, err := s.store.GetMessagesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	hits := make([]types.SearchHit, 0, opts.Limit)
	for _, f := range fused {
		msg, ok := messages[f.id]
		if !ok {
			continue
		}
		if !passesFilters(msg, opts) {
			continue
		}

		hit := types.SearchHit{
			MsgID:            msg.MsgID,
			Score:            f.score,
			Role:             msg.Role,
			ConversationFile: msg.ConversationFile,
			TS:               msg.TS,
			Text:             msg.Text,
		}
		_, inLex := lexical.scores[f.id]
		_, inSem := semantic.scores[f.id]
		switch {
		case inLex && inSem:
			hit.Source = types.MatchHybrid
		case inSem:
			hit.Source = types.MatchSemantic
		default:
			hit.Source = types.MatchLexical
		}
		hit.LexicalScore = lexical.scores[f.id]
		hit.SemanticScore = semantic.scores[f.id]

		hit.Rank = len(hits) + 1
		hits = append(hits, hit)
		if len(hits) >= opts.Limit {
			break
		}
	}
	return hits, nil
}

// passesFilters applies the post-ranking role/conversation/time filters
func passesFilters(msg types.Message, opts types.SearchOptions) bool {
	if opts.Role != "" && msg.Role != opts.Role {
		return false
	}
	if opts.ConversationFile != "" && msg.ConversationFile != opts.ConversationFile {
		return false
	}
	if !opts.Since.IsZero() && msg.TS.Before(opts.Since) {
		return false
	}
	if !opts.Until.IsZero() && msg.TS.After(opts.Until) {
		return false
	}
	return true
}

func withDefaults(opts types.SearchOptions) types.SearchOptions {
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.Fusion == "" {
		opts.Fusion = types.FusionRRF
	}
	if opts.RRFK <= 0 {
		opts.RRFK = DefaultRRFK
	}
	if opts.LexicalWeight == 0 && opts.SemanticWeight == 0 {
		opts.LexicalWeight = DefaultLexicalWeight
		opts.SemanticWeight = DefaultSemanticWeight
	}
	return opts
}

func cacheKey(project, query string, opts types.SearchOptions) string {
	return fmt.Sprintf("%s|%s|%d|%s|%d|%g|%g|%s|%s|%d|%d",
		project, query, opts.Limit, opts.Fusion, opts.RRFK,
		opts.LexicalWeight, opts.SemanticWeight,
		opts.Role, opts.ConversationFile,
		opts.Since.Unix(), opts.Until.Unix())
}

func cloneHits(hits []types.SearchHit) []types.SearchHit {
	out := make([]types.SearchHit, len(hits))
	copy(out, hits)
	return out
}
