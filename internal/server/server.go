// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the harvest, enrichment, and index pipeline
// over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pdiddy/journal-engine/internal/dataset"
	"github.com/pdiddy/journal-engine/internal/enrich"
	"github.com/pdiddy/journal-engine/internal/harvest"
	"github.com/pdiddy/journal-engine/internal/index"
)

// Harvester runs a journal harvest.
type Harvester interface {
	Harvest(ctx context.Context, rawISSN string) (harvest.Result, error)
}

// Enricher fills in missing abstracts across stored datasets.
type Enricher interface {
	Enrich(ctx context.Context) (enrich.Stats, error)
}

// Indexer builds, purges, and queries the vector collection.
type Indexer interface {
	Build(ctx context.Context) (index.BuildStats, error)
	Purge() error
	Search(ctx context.Context, query string, topK int, journalISSN string) ([]index.SearchResult, error)
}

// Server wires the pipeline components to HTTP routes.
type Server struct {
	harvester Harvester
	enricher  Enricher
	indexer   Indexer
	store     *dataset.Store
	log       *logrus.Entry

	// busy serializes the mutating pipeline operations; a request
	// that cannot take it is answered 409 rather than queued.
	busy sync.Mutex
}

// New returns a Server over the given pipeline components.
func New(harvester Harvester, enricher Enricher, indexer Indexer, store *dataset.Store, log *logrus.Entry) *Server {
	return &Server{
		harvester: harvester,
		enricher:  enricher,
		indexer:   indexer,
		store:     store,
		log:       log,
	}
}

// Router builds the gin engine with all routes and middleware.
func (s *Server) Router(mode string) *gin.Engine {
	switch mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(s.log))

	r.POST("/fetch", s.handleFetch)
	r.POST("/enrich_abstracts", s.handleEnrich)
	r.POST("/generate-chroma", s.handleGenerateIndex)
	r.POST("/purge_chroma", s.handlePurgeIndex)
	r.GET("/download/:filename", s.handleDownload)
	r.GET("/search", s.handleSearch)
	r.GET("/datasets", s.handleDatasets)
	r.GET("/healthz", s.handleHealth)

	return r
}

// Run serves the router on addr until ctx is cancelled, then shuts
// down gracefully, letting in-flight requests finish.
func (s *Server) Run(ctx context.Context, addr, mode string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.Router(mode),
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	s.log.WithField("addr", addr).Info("server listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
