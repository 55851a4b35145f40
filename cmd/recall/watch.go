package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/recallhq/recall/internal/analyzer"
	"github.com/recallhq/recall/internal/docindex"
	"github.com/recallhq/recall/internal/graph"
	"github.com/recallhq/recall/internal/watch"
)

var flagWatchDocs bool

var watchCmd = &cobra.Command{
	Use:   "watch <path>",
	Short: "Watch a project and re-sync its index on file changes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		var docs *docindex.Indexer
		if flagWatchDocs {
			emb, err := newEmbedder()
			if err != nil {
				return err
			}
			defer emb.Close()
			docs = docindex.New(st, emb, nil)
		}

		idx := graph.New(st, nil)
		run := func(ctx context.Context) error {
			stats, err := idx.SyncProject(ctx, root, &graph.Config{PreferTree: flagPreferTree})
			if err != nil {
				return err
			}
			if stats.FilesIndexed+stats.FilesDeleted > 0 {
				slog.Info("code re-synced",
					"indexed", stats.FilesIndexed,
					"deleted", stats.FilesDeleted,
					"failed", stats.FilesFailed)
			}
			if docs == nil {
				return nil
			}
			dstats, err := docs.SyncDocs(ctx, root, &docindex.Config{
				ChunkMaxBytes: cfg.Docs.ChunkMaxBytes,
				EmbedBatch:    cfg.Docs.EmbedBatch,
			})
			if err != nil {
				return err
			}
			if dstats.DocsIndexed+dstats.DocsDeleted > 0 {
				slog.Info("docs re-synced",
					"indexed", dstats.DocsIndexed,
					"deleted", dstats.DocsDeleted)
			}
			return nil
		}

		// Bring the index current before waiting on events.
		if err := run(cmd.Context()); err != nil {
			return err
		}

		w, err := watch.New(root, cfg.Debounce(), run, analyzer.IgnoredDir, slog.Default())
		if err != nil {
			return err
		}
		defer w.Close()

		fmt.Printf("Watching %s (debounce %s); Ctrl-C to stop\n", root, cfg.Debounce())
		if err := w.Watch(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	watchCmd.Flags().BoolVar(&flagWatchDocs, "docs", false, "also re-sync documentation on changes")
	watchCmd.Flags().BoolVar(&flagPreferTree, "tree-sitter", false, "prefer the syntax-tree TS/JS analyzer when compiled in")
	rootCmd.AddCommand(watchCmd)
}
