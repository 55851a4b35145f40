package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/recallhq/recall/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status <path>",
	Short: "Show index freshness and size for a project",
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

		ps, err := st.GetStatus(cmd.Context(), root)
		if errors.Is(err, store.ErrNotFound) {
			fmt.Printf("%s is not indexed. Run: recall index %s\n", root, root)
			return nil
		}
		if err != nil {
			return err
		}

		fmt.Printf("Project: %s\n", root)
		fmt.Printf("  Language:     %s", ps.Project.Language)
		if ps.Project.Framework != "" {
			fmt.Printf(" (%s)", ps.Project.Framework)
		}
		fmt.Println()
		if !ps.LastIndexedAt.IsZero() {
			fmt.Printf("  Last indexed: %s\n", ps.LastIndexedAt.Format("2006-01-02 15:04:05"))
		}
		fmt.Printf("  Code:         %d files, %d functions, %d classes, %d edges\n",
			ps.Files, ps.Functions, ps.Classes, ps.Edges)
		fmt.Printf("  Docs:         %d documents, %d chunks\n", ps.Documents, ps.Chunks)
		fmt.Printf("  History:      %d messages, %d embedded\n", ps.Messages, ps.MessageVectors)
		fmt.Printf("  Database:     %s (%s)\n", formatBytes(ps.DatabaseBytes), ps.BuildMode)
		return nil
	},
}

// formatBytes renders a byte count with a binary unit suffix
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
