package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/recallhq/recall/internal/graph"
)

var flagPreferTree bool

var indexCmd = &cobra.Command{
	Use:   "index <path>",
	Short: "Fully (re-)index a project's code graph",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCodeIndex(cmd, args[0], true)
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync <path>",
	Short: "Incrementally re-index only changed files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCodeIndex(cmd, args[0], false)
	},
}

func runCodeIndex(cmd *cobra.Command, path string, full bool) error {
	root, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	idx := graph.New(st, nil)
	gcfg := &graph.Config{PreferTree: flagPreferTree, Progress: printProgress}

	start := time.Now()
	run := idx.SyncProject
	if full {
		run = idx.IndexProject
	}
	stats, err := run(cmd.Context(), root, gcfg)
	if err != nil {
		return err
	}

	fmt.Printf("Indexed %s in %s\n", root, time.Since(start).Round(time.Millisecond))
	fmt.Printf("  Language:  %s", stats.Language)
	if stats.Framework != "" {
		fmt.Printf(" (%s)", stats.Framework)
	}
	fmt.Println()
	fmt.Printf("  Files:     %d indexed, %d unchanged, %d deleted, %d failed\n",
		stats.FilesIndexed, stats.FilesUnchanged, stats.FilesDeleted, stats.FilesFailed)
	fmt.Printf("  Graph:     %d functions, %d classes, %d edges\n",
		stats.Functions, stats.Classes, stats.Edges)
	printErrors(stats.Errors)
	return nil
}

// printErrors shows the first few per-file failures
func printErrors(errs []string) {
	if len(errs) == 0 {
		return
	}
	show := errs
	if len(show) > 5 {
		show = show[:5]
	}
	fmt.Printf("  Errors (%d):\n", len(errs))
	for _, e := range show {
		fmt.Printf("    %s\n", e)
	}
}

func init() {
	for _, c := range []*cobra.Command{indexCmd, syncCmd} {
		c.Flags().BoolVar(&flagPreferTree, "tree-sitter", false, "prefer the syntax-tree TS/JS analyzer when compiled in")
	}
	rootCmd.AddCommand(indexCmd, syncCmd)
}
