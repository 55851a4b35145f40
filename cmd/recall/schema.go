package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/recallhq/recall/internal/dbschema"
)

// EnvSchemaDSN names the fallback environment variable for the Postgres DSN.
const EnvSchemaDSN = "RECALL_PG_DSN"

var flagSchemaDSN string

var schemaCmd = &cobra.Command{
	Use:   "schema <path>",
	Short: "Index a project's Postgres schema objects",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}

		dsn := flagSchemaDSN
		if dsn == "" {
			dsn = os.Getenv(EnvSchemaDSN)
		}
		if dsn == "" {
			return fmt.Errorf("no Postgres DSN: pass --dsn or set %s", EnvSchemaDSN)
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		in, err := dbschema.Open(dsn, nil)
		if err != nil {
			return err
		}
		defer in.Close()

		stats, err := in.IndexSchema(cmd.Context(), st, root)
		if err != nil {
			return err
		}
		fmt.Printf("Indexed %d schema objects in %s\n", stats.Objects, stats.Duration.Round(time.Millisecond))
		return nil
	},
}

func init() {
	schemaCmd.Flags().StringVar(&flagSchemaDSN, "dsn", "", "Postgres connection string (default $"+EnvSchemaDSN+")")
	rootCmd.AddCommand(schemaCmd)
}
