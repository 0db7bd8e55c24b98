package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/journal-engine/internal/dataset"
	"github.com/pdiddy/journal-engine/pkg/types"
)

var datasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "List stored journal datasets",
	RunE:  runDatasets,
}

func init() {
	datasetsCmd.Flags().String("records-dir", "", "directory for dataset files (default fetcheddata)")
	rootCmd.AddCommand(datasetsCmd)
}

func runDatasets(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if dir, _ := cmd.Flags().GetString("records-dir"); dir != "" {
		cfg.RecordsDir = dir
	}

	store := dataset.NewStore(cfg.RecordsDir)
	summary, err := store.LoadSummary()
	if err != nil {
		return err
	}

	count, papers := 0, 0
	err = store.ForEach(func(journalISSN string, records []types.Paper) error {
		count++
		papers += len(records)
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %5d record(s)  %s\n", journalISSN, len(records), summary[journalISSN].Title)
		return nil
	})
	if err != nil {
		return err
	}

	if count == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no datasets: run harvest first")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\n%d dataset(s), %d paper(s)\n", count, papers)
	return nil
}
