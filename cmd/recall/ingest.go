package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/recallhq/recall/internal/ingest"
)

var flagIngestFull bool

var ingestCmd = &cobra.Command{
	Use:   "ingest <path> <transcript>",
	Short: "Ingest an agent conversation transcript for a project",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		transcript, err := filepath.Abs(args[1])
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

		pipe := ingest.New(st, emb, nil)
		icfg := &ingest.Config{
			BatchSize: cfg.Ingest.BatchSize,
			Progress:  printProgress,
		}

		start := time.Now()
		run := pipe.IngestDelta
		if flagIngestFull {
			run = pipe.IngestFull
		}
		stats, err := run(cmd.Context(), root, transcript, icfg)
		if err != nil {
			return err
		}

		fmt.Printf("Ingested %s in %s\n", transcript, time.Since(start).Round(time.Millisecond))
		fmt.Printf("  Lines:     %d seen, %d malformed\n", stats.LinesSeen, stats.Malformed)
		fmt.Printf("  Messages:  %d ingested, %d embedded, %d without text, %d unembedded\n",
			stats.MessagesIngested, stats.MessagesEmbedded, stats.SkippedNoText, stats.Unembedded)
		if stats.Rewritten {
			fmt.Println("  Transcript was rewritten; re-ingested from scratch")
		}
		printErrors(stats.Errors)
		return nil
	},
}

func init() {
	ingestCmd.Flags().BoolVar(&flagIngestFull, "full", false, "re-ingest the whole transcript instead of the new tail")
	rootCmd.AddCommand(ingestCmd)
}
