package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/recallhq/recall/internal/docindex"
)

var flagDocsFull bool

var docsCmd = &cobra.Command{
	Use:   "docs <path>",
	Short: "Index a project's markdown/text documentation",
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

		emb, err := newEmbedder()
		if err != nil {
			return err
		}
		defer emb.Close()

		idx := docindex.New(st, emb, nil)
		dcfg := &docindex.Config{
			ChunkMaxBytes: cfg.Docs.ChunkMaxBytes,
			EmbedBatch:    cfg.Docs.EmbedBatch,
			Progress:      printProgress,
		}

		start := time.Now()
		run := idx.SyncDocs
		if flagDocsFull {
			run = idx.IndexDocs
		}
		stats, err := run(cmd.Context(), root, dcfg)
		if err != nil {
			return err
		}

		fmt.Printf("Indexed docs under %s in %s\n", root, time.Since(start).Round(time.Millisecond))
		fmt.Printf("  Documents: %d indexed, %d unchanged, %d deleted, %d failed\n",
			stats.DocsIndexed, stats.DocsUnchanged, stats.DocsDeleted, stats.DocsFailed)
		fmt.Printf("  Content:   %d sections, %d chunks, %d embedded, %d skipped\n",
			stats.Sections, stats.Chunks, stats.ChunksEmbedded, stats.ChunksSkipped)
		printErrors(stats.Errors)
		return nil
	},
}

func init() {
	docsCmd.Flags().BoolVar(&flagDocsFull, "full", false, "rebuild instead of delta sync")
	rootCmd.AddCommand(docsCmd)
}
