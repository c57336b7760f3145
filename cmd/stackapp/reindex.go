package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Bulk load every question into the search index",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()
		if a.indexer == nil {
			return errors.New("elasticsearch is not configured")
		}

		qs, err := a.questions.All(cmd.Context())
		if err != nil {
			return err
		}
		if !a.indexer.BulkIndex(cmd.Context(), qs) {
			return fmt.Errorf("some of %d questions failed to index, see log", len(qs))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "indexed %d questions into %s\n", len(qs), a.indexer.Index())
		return nil
	},
}
