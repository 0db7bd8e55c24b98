// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package harvest drives the journal harvest: validate the ISSN, pull
// every work record from the registry, merge with the stored dataset,
// and persist the result.
package harvest

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/journal-engine/internal/dataset"
	"github.com/pdiddy/journal-engine/internal/issn"
	"github.com/pdiddy/journal-engine/pkg/types"
)

// WorksSource lists a journal's work records and resolves its title.
// *crossref.Client satisfies it.
type WorksSource interface {
	JournalWorks(ctx context.Context, journalISSN string) ([]types.Paper, error)
	JournalTitle(ctx context.Context, journalISSN string) (string, error)
}

// Result summarizes a completed harvest.
type Result struct {
	ISSN            string `json:"issn"`
	RecordsFetched  int    `json:"records_fetched"`
	DatasetFilename string `json:"dataset_filename"`
}

// IncompleteError reports a harvest that did not retrieve the full
// record set. Partial progress is discarded; the stored dataset is
// left exactly as it was.
type IncompleteError struct {
	ISSN    string
	Fetched int
	Err     error
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("harvest of %s incomplete after %d records: %v", e.ISSN, e.Fetched, e.Err)
}

func (e *IncompleteError) Unwrap() error { return e.Err }

// Harvester fetches journal records and maintains the dataset store.
type Harvester struct {
	source WorksSource
	store  *dataset.Store
	log    *logrus.Entry
}

// New returns a Harvester reading from source and writing to store.
func New(source WorksSource, store *dataset.Store, log *logrus.Entry) *Harvester {
	return &Harvester{source: source, store: store, log: log}
}

// Harvest fetches all records for one journal and saves the merged
// dataset. The ISSN is validated before any network traffic. The
// dataset file is only written after the full record set arrived, so
// a failed harvest never clobbers a previous good one.
func (h *Harvester) Harvest(ctx context.Context, rawISSN string) (Result, error) {
	journalISSN, err := issn.Normalize(rawISSN)
	if err != nil {
		return Result{}, err
	}
	if !issn.ChecksumOK(journalISSN) {
		h.log.WithField("issn", journalISSN).Warn("ISSN checksum does not verify; harvesting anyway")
	}

	h.log.WithField("issn", journalISSN).Info("harvesting journal")

	fetched, err := h.source.JournalWorks(ctx, journalISSN)
	if err != nil {
		return Result{}, &IncompleteError{ISSN: journalISSN, Fetched: len(fetched), Err: err}
	}

	existing, err := h.store.Load(journalISSN)
	if err != nil {
		return Result{}, err
	}

	merged := merge(existing, fetched)
	if err := h.store.Save(journalISSN, merged); err != nil {
		return Result{}, err
	}

	h.updateSummary(ctx, journalISSN, len(merged))

	h.log.WithFields(logrus.Fields{
		"issn":    journalISSN,
		"fetched": len(fetched),
		"stored":  len(merged),
	}).Info("harvest complete")

	return Result{
		ISSN:            journalISSN,
		RecordsFetched:  len(fetched),
		DatasetFilename: dataset.Filename(journalISSN),
	}, nil
}

// merge folds freshly fetched records into the stored dataset. Stored
// records keep their position and are refreshed field-by-field from
// the fetch; a stored abstract survives when the fetched record has
// none, so enrichment work is never lost to a re-harvest. Records no
// longer listed upstream are retained, and new records append in
// upstream order.
func merge(existing, fetched []types.Paper) []types.Paper {
	merged := make([]types.Paper, len(existing))
	copy(merged, existing)

	byDOI := make(map[string]int, len(merged))
	for i, p := range merged {
		byDOI[p.DOI] = i
	}

	for _, f := range fetched {
		i, ok := byDOI[f.DOI]
		if !ok {
			byDOI[f.DOI] = len(merged)
			merged = append(merged, f)
			continue
		}
		if f.Abstract == "" && merged[i].Abstract != "" {
			f.Abstract = merged[i].Abstract
		}
		merged[i] = f
	}
	return merged
}

// updateSummary refreshes the journal's entry in journals.json. The
// summary is a convenience artifact: failures here are logged and do
// not fail the harvest, whose dataset is already on disk.
func (h *Harvester) updateSummary(ctx context.Context, journalISSN string, articleCount int) {
	summary, err := h.store.LoadSummary()
	if err != nil {
		h.log.WithError(err).Warn("journal summary unreadable; skipping update")
		return
	}

	info := summary[journalISSN]
	info.ArticleCount = articleCount
	info.LastHarvest = time.Now().UTC()

	if title, err := h.source.JournalTitle(ctx, journalISSN); err != nil {
		h.log.WithError(err).WithField("issn", journalISSN).Warn("journal title lookup failed")
	} else if title != "" {
		info.Title = title
	}

	summary[journalISSN] = info
	if err := h.store.SaveSummary(summary); err != nil {
		h.log.WithError(err).Warn("journal summary write failed")
	}
}
