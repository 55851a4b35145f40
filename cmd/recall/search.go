package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/recallhq/recall/internal/search"
	"github.com/recallhq/recall/pkg/types"
)

var (
	flagSearchLimit        int
	flagSearchRole         string
	flagSearchConversation string
	flagSearchFusion       string
)

var searchCmd = &cobra.Command{
	Use:   "search <path> <query>...",
	Short: "Hybrid search over a project's ingested conversation history",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		query := strings.Join(args[1:], " ")

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

		opts := cfg.SearchOptions()
		if flagSearchLimit > 0 {
			opts.Limit = flagSearchLimit
		}
		if flagSearchFusion != "" {
			opts.Fusion = types.FusionMethod(flagSearchFusion)
		}
		opts.Role = flagSearchRole
		opts.ConversationFile = flagSearchConversation

		hits, err := search.New(st, emb, nil).Search(cmd.Context(), root, query, opts)
		if err != nil {
			return err
		}
		if len(hits) == 0 {
			fmt.Println("No results.")
			return nil
		}
		for _, h := range hits {
			printHit(h)
		}
		return nil
	},
}

func printHit(h types.SearchHit) {
	fmt.Printf("%2d. [%s] %s  score=%.4f", h.Rank, h.Source, h.Role, h.Score)
	if !h.TS.IsZero() {
		fmt.Printf("  %s", h.TS.Format("2006-01-02 15:04"))
	}
	fmt.Println()
	text := h.Text
	if len(text) > 200 {
		text = text[:200] + "..."
	}
	for _, line := range strings.Split(text, "\n") {
		fmt.Printf("    %s\n", line)
	}
}

func init() {
	searchCmd.Flags().IntVar(&flagSearchLimit, "limit", 0, "maximum results (default from config)")
	searchCmd.Flags().StringVar(&flagSearchRole, "role", "", "filter by message role")
	searchCmd.Flags().StringVar(&flagSearchConversation, "conversation", "", "filter by conversation file")
	searchCmd.Flags().StringVar(&flagSearchFusion, "fusion", "", "fusion strategy: rrf or weighted")
	rootCmd.AddCommand(searchCmd)
}
