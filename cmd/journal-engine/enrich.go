package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/journal-engine/internal/dataset"
	"github.com/pdiddy/journal-engine/internal/enrich"
	"github.com/pdiddy/journal-engine/internal/logging"
	"github.com/pdiddy/journal-engine/internal/semanticscholar"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Fill in missing abstracts from Semantic Scholar",
	Long: `Enrich scans every dataset file for records without an abstract,
looks each one up on the Semantic Scholar Graph API by DOI, and writes
back the datasets where something was added. Lookups are rate limited;
individual failures are counted, not fatal.`,
	RunE: runEnrich,
}

func init() {
	enrichCmd.Flags().String("records-dir", "", "directory for dataset files (default fetcheddata)")
	rootCmd.AddCommand(enrichCmd)
}

func runEnrich(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if dir, _ := cmd.Flags().GetString("records-dir"); dir != "" {
		cfg.RecordsDir = dir
	}

	log := logging.New(cfg.Log)
	store := dataset.NewStore(cfg.RecordsDir)
	client := semanticscholar.NewClient(cfg.SemanticScholar, logging.Component(log, "semanticscholar"))
	e := enrich.New(client, store, logging.Component(log, "enrich"))

	stats, err := e.Enrich(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(),
		"enriched %d file(s): %d added, %d already had abstracts, %d still missing, %d errors (%d papers)\n",
		stats.TotalFiles, stats.NewAbstractsAdded, stats.PapersWithAbstracts, stats.StillMissing, stats.Errors, stats.TotalPapers)
	if stats.Errors > 0 {
		return fmt.Errorf("%d abstract lookup(s) failed", stats.Errors)
	}
	return nil
}
