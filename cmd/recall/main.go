// Command recall indexes a project's code, documentation, and agent
// conversation history, and answers hybrid search queries over the result.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/recallhq/recall/internal/config"
	"github.com/recallhq/recall/internal/embedder"
	"github.com/recallhq/recall/internal/store"
)

var (
	version = "dev"

	flagConfig  string
	flagDataDir string
	flagVerbose bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "recall",
	Short:         "Code graph, documentation, and agent-memory indexing with hybrid search",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// stdout is command output (and the MCP protocol channel);
		// logging always goes to stderr.
		level := slog.LevelWarn
		if flagVerbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		})))

		var err error
		cfg, err = config.Load(flagConfig)
		if err != nil {
			return err
		}
		if flagDataDir != "" {
			cfg.DataDir = flagDataDir
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and build information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("recall %s\n", version)
		fmt.Printf("  build mode: %s\n", store.BuildMode)
		fmt.Printf("  sqlite driver: %s\n", store.DriverName)
		fmt.Printf("  vector extension: %v\n", store.VectorExtensionAvailable)
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default $RECALL_CONFIG, then <data-dir>/recall.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "data directory (default ~/.recall)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")
	rootCmd.AddCommand(versionCmd)
}

// openStore opens the shared database under the configured data dir
func openStore() (*store.Store, error) {
	return store.Open(cfg.DBPath())
}

// newEmbedder builds the embedding provider from config, falling back to
// environment-driven selection when no provider is configured.
func newEmbedder() (embedder.Embedder, error) {
	if cfg.Embedding.Provider == "" {
		return embedder.NewFromEnv()
	}
	return embedder.New(embedder.Config{
		Provider:  cfg.Embedding.Provider,
		Endpoint:  cfg.Embedding.Endpoint,
		Model:     cfg.Embedding.Model,
		CacheSize: cfg.Embedding.CacheSize,
	})
}

// printProgress writes advisory progress to stderr so stdout stays clean
func printProgress(stage string, done, total int) {
	if total > 0 {
		fmt.Fprintf(os.Stderr, "\r%s %d/%d", stage, done, total)
		if done >= total {
			fmt.Fprintln(os.Stderr)
		}
		return
	}
	fmt.Fprintf(os.Stderr, "%s...\n", stage)
}
