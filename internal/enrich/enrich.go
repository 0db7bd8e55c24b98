// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package enrich fills in missing abstracts across every stored
// dataset from a secondary lookup source.
package enrich

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/journal-engine/internal/dataset"
	"github.com/pdiddy/journal-engine/pkg/types"
)

// AbstractSource resolves an abstract by DOI. *semanticscholar.Client
// satisfies it.
type AbstractSource interface {
	Abstract(ctx context.Context, doi string) (string, error)
}

// Stats aggregates one enrichment run. The counts reconcile:
// NewAbstractsAdded + PapersWithAbstracts + StillMissing + Errors
// equals TotalPapers.
type Stats struct {
	TotalFiles          int `json:"total_files"`
	TotalPapers         int `json:"total_papers"`
	PapersWithAbstracts int `json:"papers_with_abstracts"`
	NewAbstractsAdded   int `json:"new_abstracts_added"`
	StillMissing        int `json:"still_missing"`
	Errors              int `json:"errors"`
}

// Enricher scans datasets and adds abstracts where they are missing.
type Enricher struct {
	source AbstractSource
	store  *dataset.Store
	log    *logrus.Entry
}

// New returns an Enricher reading and writing store, looking
// abstracts up through source.
func New(source AbstractSource, store *dataset.Store, log *logrus.Entry) *Enricher {
	return &Enricher{source: source, store: store, log: log}
}

// Enrich walks every dataset file, looks up an abstract for each
// record that lacks one, and writes a dataset back only when at least
// one of its records changed. Individual lookup failures are counted
// and logged, never fatal; a second run over the same data adds
// nothing and rewrites nothing. Cancelling ctx stops the run.
func (e *Enricher) Enrich(ctx context.Context) (Stats, error) {
	var stats Stats

	err := e.store.ForEach(func(journalISSN string, papers []types.Paper) error {
		stats.TotalFiles++
		stats.TotalPapers += len(papers)

		changed := false
		for i := range papers {
			p := &papers[i]
			switch {
			case p.HasAbstract():
				stats.PapersWithAbstracts++
			case p.DOI == "":
				// Nothing to look up with.
				stats.StillMissing++
			default:
				abstract, err := e.source.Abstract(ctx, p.DOI)
				if err != nil {
					if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
						return err
					}
					e.log.WithError(err).WithFields(logrus.Fields{
						"issn": journalISSN,
						"doi":  p.DOI,
					}).Warn("abstract lookup failed")
					stats.Errors++
					continue
				}
				if abstract == "" {
					stats.StillMissing++
					continue
				}
				p.Abstract = abstract
				changed = true
				stats.NewAbstractsAdded++
			}
		}

		if !changed {
			return nil
		}
		return e.store.Save(journalISSN, papers)
	})
	if err != nil {
		return stats, err
	}

	e.log.WithFields(logrus.Fields{
		"files":   stats.TotalFiles,
		"papers":  stats.TotalPapers,
		"added":   stats.NewAbstractsAdded,
		"missing": stats.StillMissing,
		"errors":  stats.Errors,
	}).Info("enrichment complete")

	return stats, nil
}
