// Package docindex builds the searchable representation of a project's
// documentation: markdown and text files sectioned into a heading tree,
// chunked, term-extracted and optionally embedded. The same delta engine
// the code indexer uses keeps it incremental, keyed by absolute path so
// doc ledger rows and code ledger rows share a table without colliding.
package docindex

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/recallhq/recall/internal/analyzer"
	"github.com/recallhq/recall/internal/delta"
	"github.com/recallhq/recall/internal/embedder"
	"github.com/recallhq/recall/internal/identity"
	"github.com/recallhq/recall/internal/store"
	"github.com/recallhq/recall/internal/terms"
	"github.com/recallhq/recall/pkg/types"
)

const (
	// DefaultChunkMaxBytes is the whole-section chunk threshold, roughly a
	// thousand tokens of prose.
	DefaultChunkMaxBytes = 4000

	// DefaultEmbedBatch bounds how many chunks go into one embedding call
	DefaultEmbedBatch = 32
)

// docExtensions are the file types the document indexer accepts
var docExtensions = map[string]struct{}{
	".md":       {},
	".markdown": {},
	".mdx":      {},
	".txt":      {},
}

// IsDocFile reports whether path looks like an indexable document
func IsDocFile(path string) bool {
	_, ok := docExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// ProgressFunc receives advisory progress during a run
type ProgressFunc func(stage string, done, total int)

// Config tunes one document indexing run. nil means defaults.
type Config struct {
	ChunkMaxBytes int // whole-section threshold before paragraph splitting
	EmbedBatch    int // chunks per embedding call
	Progress      ProgressFunc
}

// Stats reports what one document indexing run did
type Stats struct {
	Project        string
	DocsIndexed    int
	DocsUnchanged  int
	DocsDeleted    int
	DocsFailed     int
	Sections       int
	Chunks         int
	ChunksEmbedded int
	ChunksSkipped  int
	Duration       time.Duration
	Errors         []string
}

// Indexer maintains the document index of one project at a time
type Indexer struct {
	store    *store.Store
	embedder embedder.Embedder
	logger   *slog.Logger
}

// New creates a document indexer. emb may be nil, which disables vectors
// and leaves chunks lexical-only.
func New(st *store.Store, emb embedder.Embedder, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{store: st, embedder: emb, logger: logger}
}

// IndexDocs rebuilds the document index for every doc file under root
func (idx *Indexer) IndexDocs(ctx context.Context, root string, cfg *Config) (*Stats, error) {
	return idx.run(ctx, root, cfg, true)
}

// SyncDocs indexes only documents the delta reports as new or modified
// and purges deleted ones.
func (idx *Indexer) SyncDocs(ctx context.Context, root string, cfg *Config) (*Stats, error) {
	return idx.run(ctx, root, cfg, false)
}

func (idx *Indexer) run(ctx context.Context, root string, cfg *Config, full bool) (*Stats, error) {
	start := time.Now()
	if cfg == nil {
		cfg = &Config{}
	}
	maxBytes := cfg.ChunkMaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultChunkMaxBytes
	}
	batchSize := cfg.EmbedBatch
	if batchSize <= 0 {
		batchSize = DefaultEmbedBatch
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	stats := &Stats{Project: absRoot}

	// Docs can be indexed before any code run. Make sure the registry row
	// exists, but never overwrite what a code run already detected.
	if _, err := idx.store.GetProject(ctx, absRoot); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		p := &store.Project{RootPath: absRoot, IndexVersion: store.CurrentSchemaVersion}
		if err := idx.store.UpsertProject(ctx, p); err != nil {
			return nil, err
		}
	}

	if cfg.Progress != nil {
		cfg.Progress("scan", 0, 0)
	}
	current, err := delta.Scan(absRoot, delta.ScanOptions{
		Accept:       IsDocFile,
		SkipDir:      analyzer.IgnoredDir,
		AbsoluteKeys: true,
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", absRoot, err)
	}

	stored, err := idx.store.ListFileMetadata(ctx, absRoot)
	if err != nil {
		return nil, err
	}
	// Code ledger rows share the table but key relative to the root; only
	// absolute keys belong to this delta.
	for key := range stored {
		if !filepath.IsAbs(key) {
			delete(stored, key)
		}
	}
	changes := delta.DetectChanges(stored, current)
	stats.DocsDeleted = len(changes.Deleted)

	var toIndex, toPurge []string
	if full {
		toIndex = make([]string, 0, len(current))
		for _, f := range current {
			toIndex = append(toIndex, f.Key)
		}
		sort.Strings(toIndex)
		toPurge = make([]string, 0, len(stored))
		for key := range stored {
			toPurge = append(toPurge, key)
		}
		sort.Strings(toPurge)
	} else {
		stats.DocsUnchanged = len(changes.Unchanged)
		toIndex = append(append([]string{}, changes.New...), changes.Modified...)
		sort.Strings(toIndex)
		toPurge = append(append([]string{}, changes.Deleted...), changes.Modified...)
		sort.Strings(toPurge)
	}

	for _, key := range toPurge {
		if err := idx.store.PurgeDocument(ctx, identity.DocumentID(key)); err != nil {
			return nil, fmt.Errorf("purge %s: %w", key, err)
		}
		// The ledger row goes too, so a run that dies between purge and
		// re-insert sees the doc as new instead of trusting a stale row.
		if err := idx.store.DeleteFileMetadata(ctx, absRoot, key); err != nil {
			return nil, err
		}
	}

	for i, key := range toIndex {
		if cfg.Progress != nil {
			cfg.Progress("index", i, len(toIndex))
		}
		if err := idx.indexOne(ctx, absRoot, key, maxBytes, batchSize, stats); err != nil {
			stats.DocsFailed++
			stats.Errors = append(stats.Errors, fmt.Sprintf("%s: %v", key, err))
			idx.logger.Warn("doc index failed", "path", key, "error", err)
			continue
		}
		stats.DocsIndexed++
	}
	if cfg.Progress != nil {
		cfg.Progress("index", len(toIndex), len(toIndex))
	}

	if err := idx.store.TouchProjectIndexed(ctx, absRoot, time.Now().UTC()); err != nil {
		return nil, err
	}

	stats.Duration = time.Since(start)
	idx.logger.Info("doc indexing complete",
		"project", absRoot,
		"indexed", stats.DocsIndexed,
		"unchanged", stats.DocsUnchanged,
		"deleted", stats.DocsDeleted,
		"failed", stats.DocsFailed,
		"chunks", stats.Chunks,
		"duration", stats.Duration)
	return stats, nil
}

// indexOne reads, sections, chunks, and persists a single document. The
// fresh ledger row lands only after everything else did, so a half-indexed
// doc re-classifies as new on the next run.
func (idx *Indexer) indexOne(ctx context.Context, project, key string, maxBytes, batchSize int, stats *Stats) error {
	data, err := os.ReadFile(key)
	if err != nil {
		return err
	}
	content := string(data)
	sum := sha256.Sum256(data)
	checksum := hex.EncodeToString(sum[:])

	docID := identity.DocumentID(key)
	parsed := parseDocument(content, docID)

	title := parsed.Title
	if title == "" {
		base := filepath.Base(key)
		title = strings.TrimSuffix(base, filepath.Ext(base))
	}
	rel, err := filepath.Rel(project, key)
	if err != nil {
		rel = filepath.Base(key)
	}

	doc := &types.Document{
		DocID:    docID,
		Path:     key,
		Title:    title,
		DocType:  ClassifyDoc(rel, content),
		Checksum: checksum,
	}
	if err := idx.store.UpsertDocument(ctx, project, doc); err != nil {
		return err
	}

	var chunkIDs, chunkTexts []string
	for _, sec := range parsed.Sections {
		if err := idx.store.UpsertSection(ctx, &sec); err != nil {
			return err
		}
		stats.Sections++

		for seq, text := range chunkSection(parsed.Bodies[sec.SectionID], maxBytes) {
			chunk := &types.Chunk{
				ChunkID:   identity.ChunkID(sec.SectionID, seq),
				DocID:     docID,
				SectionID: sec.SectionID,
				Seq:       seq,
				Content:   text,
			}
			if err := idx.store.UpsertChunk(ctx, project, chunk); err != nil {
				return err
			}
			if err := idx.store.ReplaceChunkTerms(ctx, chunk.ChunkID, terms.Tokenize(text)); err != nil {
				return err
			}
			stats.Chunks++
			chunkIDs = append(chunkIDs, chunk.ChunkID)
			chunkTexts = append(chunkTexts, text)
		}
	}

	if idx.embedder != nil {
		idx.embedChunks(ctx, chunkIDs, chunkTexts, batchSize, stats)
	}

	info, err := os.Stat(key)
	if err != nil {
		return err
	}
	return idx.store.UpsertFileMetadata(ctx, &types.FileMetadata{
		FileID:        docID,
		Project:       project,
		Path:          key,
		ContentHash:   checksum,
		Mtime:         info.ModTime().Unix(),
		Size:          info.Size(),
		LastIndexedAt: time.Now().UTC(),
	})
}

// embedChunks vectorizes chunk text in bounded batches. A failed batch is
// counted skipped and the rest continue; a chunk without a vector is still
// indexed lexically.
func (idx *Indexer) embedChunks(ctx context.Context, ids, texts []string, batchSize int, stats *Stats) {
	for start := 0; start < len(ids); start += batchSize {
		end := min(start+batchSize, len(ids))
		vectors, err := idx.embedder.EmbedBatch(ctx, texts[start:end])
		if err != nil || len(vectors) != end-start {
			stats.ChunksSkipped += end - start
			idx.logger.Warn("chunk embedding batch failed",
				"size", end-start, "error", err)
			continue
		}
		for i, vec := range vectors {
			if err := idx.store.UpsertChunkVector(ctx, ids[start+i], vec, idx.embedder.Provider(), idx.embedder.Model()); err != nil {
				stats.ChunksSkipped++
				continue
			}
			stats.ChunksEmbedded++
		}
	}
}
