package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/recallhq/recall/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the indexing and search tools over MCP on stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		srv, err := mcp.NewServer(cfg, slog.Default())
		if err != nil {
			return err
		}
		defer srv.Close()
		return srv.Serve(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
