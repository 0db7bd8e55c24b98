// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pdiddy/journal-engine/internal/dataset"
	"github.com/pdiddy/journal-engine/internal/embedding"
	"github.com/pdiddy/journal-engine/internal/index"
	"github.com/pdiddy/journal-engine/internal/logging"
	"github.com/pdiddy/journal-engine/pkg/types"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the vector collection",
	Long: `Index maintains the vector collection derived from the dataset store.
Build embeds every record with enough text and replaces the collection
wholesale; purge deletes it. Both leave the dataset files alone.`,
}

// newBuilder wires the dataset store and embedding provider into an
// index builder.
func newBuilder(cfg types.Config, log *logrus.Logger) (*index.Builder, error) {
	provider, err := embedding.New(cfg.Embedding)
	if err != nil {
		return nil, err
	}
	store := dataset.NewStore(cfg.RecordsDir)
	return index.NewBuilder(store, provider, cfg.Index, logging.Component(log, "index"))
}

// --- build subcommand ---

var indexBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Embed all dataset records into the vector collection",
	RunE:  runIndexBuild,
}

func runIndexBuild(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if workers, _ := cmd.Flags().GetInt("workers"); workers > 0 {
		cfg.Index.Workers = workers
	}

	log := logging.New(cfg.Log)
	builder, err := newBuilder(cfg, log)
	if err != nil {
		return err
	}

	stats, err := builder.Build(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "indexed %d record(s), skipped %d, embed errors %d\n",
		stats.RecordsIndexed, stats.RecordsSkipped, stats.EmbedErrors)
	return nil
}

// --- purge subcommand ---

var indexPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete the vector collection",
	RunE:  runIndexPurge,
}

func runIndexPurge(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log := logging.New(cfg.Log)
	builder, err := newBuilder(cfg, log)
	if err != nil {
		return err
	}

	if err := builder.Purge(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "collection purged")
	return nil
}

// --- stats subcommand ---

var indexStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show what the last build put in the collection",
	RunE:  runIndexStats,
}

func runIndexStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	m, err := index.ReadManifest(cfg.Index.Dir)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "collection: %s\n", m.Collection)
	fmt.Fprintf(cmd.OutOrStdout(), "model:      %s (%d dimensions)\n", m.Model, m.Dimensions)
	fmt.Fprintf(cmd.OutOrStdout(), "built:      %s\n", m.BuiltAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(cmd.OutOrStdout(), "records:    %d\n", m.RecordsIndexed)
	if len(m.Journals) > 0 {
		issns := make([]string, 0, len(m.Journals))
		for k := range m.Journals {
			issns = append(issns, k)
		}
		sort.Strings(issns)
		for _, k := range issns {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s: %d\n", k, m.Journals[k])
		}
	}
	return nil
}

func init() {
	indexBuildCmd.Flags().Int("workers", 0, "concurrent embedding workers (default 4)")

	indexCmd.AddCommand(indexBuildCmd)
	indexCmd.AddCommand(indexPurgeCmd)
	indexCmd.AddCommand(indexStatsCmd)
	rootCmd.AddCommand(indexCmd)
}
