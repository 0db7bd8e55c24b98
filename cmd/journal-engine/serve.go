package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/journal-engine/internal/crossref"
	"github.com/pdiddy/journal-engine/internal/dataset"
	"github.com/pdiddy/journal-engine/internal/enrich"
	"github.com/pdiddy/journal-engine/internal/harvest"
	"github.com/pdiddy/journal-engine/internal/logging"
	"github.com/pdiddy/journal-engine/internal/semanticscholar"
	"github.com/pdiddy/journal-engine/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the pipeline over HTTP",
	Long: `Serve exposes the harvest, enrichment, index, search, and dataset
download operations over HTTP. Mutating operations run one at a time;
a request that arrives while another is running receives 409.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default :8080)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}

	log := logging.New(cfg.Log)
	store := dataset.NewStore(cfg.RecordsDir)

	crossrefClient := crossref.NewClient(nil, cfg.Crossref, logging.Component(log, "crossref"))
	harvester := harvest.New(crossrefClient, store, logging.Component(log, "harvest"))

	scholarClient := semanticscholar.NewClient(cfg.SemanticScholar, logging.Component(log, "semanticscholar"))
	enricher := enrich.New(scholarClient, store, logging.Component(log, "enrich"))

	builder, err := newBuilder(cfg, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(harvester, enricher, builder, store, logging.Component(log, "server"))
	return srv.Run(ctx, cfg.Server.Addr, cfg.Server.Mode)
}
