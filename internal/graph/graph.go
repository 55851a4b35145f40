// Package graph maintains the code graph: it turns analyzer output into
// file/function/class nodes and typed edges, incrementally, with
// deterministic IDs so re-running on unchanged input converges instead of
// duplicating.
package graph

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/recallhq/recall/internal/analyzer"
	"github.com/recallhq/recall/internal/delta"
	"github.com/recallhq/recall/internal/identity"
	"github.com/recallhq/recall/internal/store"
	"github.com/recallhq/recall/pkg/types"
)

// ProgressFunc receives advisory progress updates during long stages
type ProgressFunc func(stage string, done, total int)

// Config tunes one indexing run. nil means defaults.
type Config struct {
	Workers    int            // parallel parse workers (default: runtime.NumCPU())
	Language   types.Language // force a language instead of detecting one
	PreferTree bool           // pick the syntax-tree TS/JS strategy when compiled in
	Progress   ProgressFunc
}

// IndexStats reports what one indexing run did
type IndexStats struct {
	Project        string
	Language       types.Language
	Framework      string
	FilesIndexed   int
	FilesUnchanged int
	FilesDeleted   int
	FilesFailed    int
	Functions      int
	Classes        int
	Edges          int
	Duration       time.Duration
	Errors         []string
}

// Indexer coordinates the code-graph pipeline:
// scan -> classify changes -> parse -> resolve -> insert.
type Indexer struct {
	store  *store.Store
	logger *slog.Logger
}

// New creates an Indexer over the given store. A nil logger falls back to
// slog.Default().
func New(st *store.Store, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{store: st, logger: logger}
}

// IndexProject rebuilds the graph for every source file under rootPath
func (idx *Indexer) IndexProject(ctx context.Context, rootPath string, config *Config) (*IndexStats, error) {
	return idx.run(ctx, rootPath, config, true)
}

// SyncProject indexes only what changed since the previous run: purge data
// for deleted and modified files first, re-index new and modified files,
// leave unchanged files untouched.
func (idx *Indexer) SyncProject(ctx context.Context, rootPath string, config *Config) (*IndexStats, error) {
	return idx.run(ctx, rootPath, config, false)
}

// parsedEntry pairs analyzer output with the ledger row recorded for the
// exact bytes that were parsed.
type parsedEntry struct {
	file *types.ParsedFile
	meta types.FileMetadata
}

func (idx *Indexer) run(ctx context.Context, rootPath string, config *Config, full bool) (*IndexStats, error) {
	if config == nil {
		config = &Config{}
	}
	workers := config.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	absRoot, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	stats := &IndexStats{Project: absRoot, Errors: make([]string, 0)}

	lang := config.Language
	framework := ""
	if lang == "" {
		info := analyzer.DetectProject(absRoot)
		lang = info.Language
		framework = info.Framework
	}
	stats.Language = lang
	stats.Framework = framework

	an, err := analyzer.ForLanguage(lang, analyzer.Options{PreferTree: config.PreferTree})
	if err != nil {
		return nil, err
	}

	if err := idx.store.UpsertProject(ctx, &store.Project{
		RootPath:     absRoot,
		Language:     string(lang),
		Framework:    framework,
		IndexVersion: store.CurrentSchemaVersion,
	}); err != nil {
		return nil, err
	}

	current, err := delta.Scan(absRoot, delta.ScanOptions{
		Accept:  func(path string) bool { return analyzer.IsSourceFile(lang, path) },
		SkipDir: analyzer.IgnoredDir,
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", absRoot, err)
	}

	stored, err := idx.store.ListFileMetadata(ctx, absRoot)
	if err != nil {
		return nil, err
	}
	// Document ledger rows share the table but key by absolute path; they
	// belong to the doc indexer's delta, not this one.
	for key := range stored {
		if filepath.IsAbs(key) {
			delete(stored, key)
		}
	}
	changes := delta.DetectChanges(stored, current)
	stats.FilesDeleted = len(changes.Deleted)

	// A full run rebuilds every current file and purges every ledger entry;
	// a sync run touches only the delta.
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
		toIndex = append(append([]string{}, changes.New...), changes.Modified...)
		toPurge = append(append([]string{}, changes.Deleted...), changes.Modified...)
		stats.FilesUnchanged = len(changes.Unchanged)
	}

	// Purge before any re-insert so a file's old graph contribution never
	// coexists with its new one. The ledger row goes too: if the run dies
	// between purge and re-insert, the next run sees the file as new
	// instead of trusting a stale row.
	for _, key := range toPurge {
		if err := idx.store.PurgeFileData(ctx, absRoot, key); err != nil {
			return nil, fmt.Errorf("purge %s: %w", key, err)
		}
		if err := idx.store.DeleteFileMetadata(ctx, absRoot, key); err != nil {
			return nil, fmt.Errorf("purge metadata %s: %w", key, err)
		}
	}

	stateByKey := make(map[string]delta.FileState, len(current))
	for _, f := range current {
		stateByKey[f.Key] = f
	}

	// Parse in parallel; parsing is pure CPU and touches no storage.
	results := make([]*parsedEntry, len(toIndex))
	var (
		mu   sync.Mutex
		done int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, key := range toIndex {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			entry, err := parseOne(an, absRoot, stateByKey[key])
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				stats.FilesFailed++
				stats.Errors = append(stats.Errors, fmt.Sprintf("%s: %v", key, err))
				idx.logger.Warn("parse failed", "file", key, "error", err)
			} else {
				results[i] = entry
			}
			done++
			if config.Progress != nil {
				config.Progress("parse", done, len(toIndex))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	parsed := make([]*parsedEntry, 0, len(results))
	batch := make([]*types.ParsedFile, 0, len(results))
	for _, entry := range results {
		if entry != nil {
			parsed = append(parsed, entry)
			batch = append(batch, entry.file)
		}
	}

	// Insertion is sequential: the resolver spans the whole batch, and the
	// store is a single-writer SQLite database anyway.
	res := buildResolver(batch)
	for i, entry := range parsed {
		counts, err := idx.insertFile(ctx, absRoot, res, entry.file)
		if err != nil {
			stats.FilesFailed++
			stats.Errors = append(stats.Errors, fmt.Sprintf("%s: %v", entry.file.Path, err))
			idx.logger.Warn("index failed", "file", entry.file.Path, "error", err)
			continue
		}
		// The fresh ledger row lands only after the file's graph data did,
		// so a half-indexed file re-classifies as new next run.
		entry.meta.Project = absRoot
		if err := idx.store.UpsertFileMetadata(ctx, &entry.meta); err != nil {
			return nil, fmt.Errorf("metadata %s: %w", entry.file.Path, err)
		}
		stats.FilesIndexed++
		stats.Functions += counts.functions
		stats.Classes += counts.classes
		stats.Edges += counts.edges
		if config.Progress != nil {
			config.Progress("index", i+1, len(parsed))
		}
	}

	if err := idx.store.TouchProjectIndexed(ctx, absRoot, time.Now().UTC()); err != nil {
		return nil, err
	}

	stats.Duration = time.Since(start)
	idx.logger.Info("index run complete",
		"project", absRoot,
		"language", lang,
		"indexed", stats.FilesIndexed,
		"unchanged", stats.FilesUnchanged,
		"deleted", stats.FilesDeleted,
		"failed", stats.FilesFailed,
		"duration", stats.Duration)
	return stats, nil
}

// Index applies the resolution and insertion passes to one already-parsed
// batch: a single name->ID map set is built over the whole batch, then each
// file's nodes and edges are inserted under deterministic IDs. Ambiguous
// call names produce an edge per candidate; unmatched ones produce none.
// Callers own delta classification and purging; this is the raw batch
// operation underneath IndexProject and SyncProject.
func (idx *Indexer) Index(ctx context.Context, project string, parsed []*types.ParsedFile) (*IndexStats, error) {
	start := time.Now()
	stats := &IndexStats{Project: project, Errors: make([]string, 0)}

	res := buildResolver(parsed)
	for _, pf := range parsed {
		counts, err := idx.insertFile(ctx, project, res, pf)
		if err != nil {
			stats.FilesFailed++
			stats.Errors = append(stats.Errors, fmt.Sprintf("%s: %v", pf.Path, err))
			idx.logger.Warn("index failed", "file", pf.Path, "error", err)
			continue
		}
		stats.FilesIndexed++
		stats.Functions += counts.functions
		stats.Classes += counts.classes
		stats.Edges += counts.edges
	}

	stats.Duration = time.Since(start)
	return stats, nil
}

// parseOne reads, parses, and fingerprints one file. The fingerprint hashes
// the bytes handed to the analyzer, not a later re-read.
func parseOne(an analyzer.Analyzer, root string, state delta.FileState) (*parsedEntry, error) {
	content, err := os.ReadFile(state.Path)
	if err != nil {
		return nil, err
	}
	parsed, err := an.Parse(state.Key, content)
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256(content)
	info, err := os.Stat(state.Path)
	if err != nil {
		return nil, err
	}
	return &parsedEntry{
		file: parsed,
		meta: types.FileMetadata{
			FileID:      identity.FileID(state.Key),
			Path:        state.Key,
			ContentHash: hex.EncodeToString(sum[:]),
			Mtime:       info.ModTime().Unix(),
			Size:        info.Size(),
		},
	}, nil
}
