package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/journal-engine/internal/logging"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Semantic search over the indexed papers",
	Long: `Search embeds the query with the same model the index was built with
and prints the closest papers by cosine similarity.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().Int("top-k", 5, "number of results")
	searchCmd.Flags().String("issn", "", "restrict results to one journal")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	topK, _ := cmd.Flags().GetInt("top-k")
	journalISSN, _ := cmd.Flags().GetString("issn")

	log := logging.New(cfg.Log)
	builder, err := newBuilder(cfg, log)
	if err != nil {
		return err
	}

	results, err := builder.Search(cmd.Context(), args[0], topK, journalISSN)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no results")
		return nil
	}

	for _, r := range results {
		year := ""
		if r.Year != 0 {
			year = fmt.Sprintf(" (%d)", r.Year)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%.3f  %s%s\n       %s  %s\n", r.Similarity, r.Title, year, r.DOI, r.ISSN)
	}
	return nil
}
