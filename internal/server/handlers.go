// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pdiddy/journal-engine/internal/crossref"
	"github.com/pdiddy/journal-engine/internal/dataset"
	"github.com/pdiddy/journal-engine/internal/index"
	"github.com/pdiddy/journal-engine/internal/issn"
	"github.com/pdiddy/journal-engine/pkg/types"
)

type fetchRequest struct {
	ISSN string `json:"issn" binding:"required"`
}

func (s *Server) handleFetch(c *gin.Context) {
	var req fetchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	if !s.busy.TryLock() {
		c.JSON(http.StatusConflict, gin.H{"error": "another pipeline operation is in progress"})
		return
	}
	defer s.busy.Unlock()

	res, err := s.harvester.Harvest(c.Request.Context(), req.ISSN)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleEnrich(c *gin.Context) {
	if !s.busy.TryLock() {
		c.JSON(http.StatusConflict, gin.H{"error": "another pipeline operation is in progress"})
		return
	}
	defer s.busy.Unlock()

	stats, err := s.enricher.Enrich(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleGenerateIndex(c *gin.Context) {
	if !s.busy.TryLock() {
		c.JSON(http.StatusConflict, gin.H{"error": "another pipeline operation is in progress"})
		return
	}
	defer s.busy.Unlock()

	stats, err := s.indexer.Build(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handlePurgeIndex(c *gin.Context) {
	if !s.busy.TryLock() {
		c.JSON(http.StatusConflict, gin.H{"error": "another pipeline operation is in progress"})
		return
	}
	defer s.busy.Unlock()

	if err := s.indexer.Purge(); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "purged"})
}

func (s *Server) handleDownload(c *gin.Context) {
	name := c.Param("filename")
	f, err := s.store.Open(name)
	if err != nil {
		s.respondError(c, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.DataFromReader(http.StatusOK, info.Size(), "application/json", f, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", name),
	})
}

func (s *Server) handleSearch(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter 'q' is required"})
		return
	}

	topK := 0
	if v := c.Query("top_k"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "top_k must be a positive integer"})
			return
		}
		topK = n
	}

	results, err := s.indexer.Search(c.Request.Context(), query, topK, c.Query("issn"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"query": query, "results": results})
}

type datasetInfo struct {
	ISSN        string `json:"issn"`
	Filename    string `json:"filename"`
	Records     int    `json:"records"`
	Title       string `json:"title,omitempty"`
	LastHarvest string `json:"last_harvest,omitempty"`
}

func (s *Server) handleDatasets(c *gin.Context) {
	summary, err := s.store.LoadSummary()
	if err != nil {
		s.respondError(c, err)
		return
	}

	infos := []datasetInfo{}
	err = s.store.ForEach(func(journalISSN string, papers []types.Paper) error {
		info := datasetInfo{
			ISSN:     journalISSN,
			Filename: dataset.Filename(journalISSN),
			Records:  len(papers),
		}
		if entry, ok := summary[journalISSN]; ok {
			info.Title = entry.Title
			if !entry.LastHarvest.IsZero() {
				info.LastHarvest = entry.LastHarvest.Format(time.RFC3339)
			}
		}
		infos = append(infos, info)
		return nil
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"datasets": infos})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// respondError maps pipeline errors onto HTTP statuses: invalid input
// is the caller's fault, missing things are 404, a struggling upstream
// is 502, anything else is 500.
func (s *Server) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, issn.ErrInvalid):
		status = http.StatusBadRequest
	case errors.Is(err, crossref.ErrJournalNotFound),
		errors.Is(err, dataset.ErrNotFound),
		errors.Is(err, index.ErrNoIndex):
		status = http.StatusNotFound
	case errors.Is(err, crossref.ErrUpstreamUnavailable):
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		s.log.WithError(err).Error("request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
