// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"strings"
	"time"
)

// Paper holds the bibliographic record for one journal article.
// Fields beyond doi/title/authors/year/issn/abstract are carried through
// from the upstream API as-is; the pipeline never fabricates values.
type Paper struct {
	// DOI is the paper identifier, unique within a journal dataset and
	// immutable once stored.
	DOI string `json:"doi"`

	// Title is the paper title.
	Title string `json:"title"`

	// Authors lists author names in source order.
	Authors []string `json:"authors,omitempty"`

	// Year is the publication year, 0 when the source record carries none.
	Year int `json:"year,omitempty"`

	// ISSN identifies the journal the record was harvested for.
	ISSN string `json:"issn"`

	// Abstract is empty until harvested or enriched.
	Abstract string `json:"abstract,omitempty"`

	Type           string   `json:"type,omitempty"`
	URL            string   `json:"url,omitempty"`
	Publisher      string   `json:"publisher,omitempty"`
	ContainerTitle string   `json:"container_title,omitempty"`
	Volume         string   `json:"volume,omitempty"`
	Issue          string   `json:"issue,omitempty"`
	Pages          string   `json:"page,omitempty"`
	Subjects       []string `json:"subject,omitempty"`
	Language       string   `json:"language,omitempty"`

	ReferencesCount int `json:"references_count,omitempty"`
	CitedByCount    int `json:"is_referenced_by_count,omitempty"`
}

// HasAbstract reports whether the record carries non-blank abstract text.
func (p Paper) HasAbstract() bool {
	return strings.TrimSpace(p.Abstract) != ""
}

// EmbeddableText returns the text the index embeds for this record:
// title plus abstract when present, title alone otherwise, empty when
// the record has neither.
func (p Paper) EmbeddableText() string {
	return strings.TrimSpace(strings.TrimSpace(p.Title) + " " + strings.TrimSpace(p.Abstract))
}

// JournalInfo summarizes one harvested journal for listing surfaces.
type JournalInfo struct {
	// Title is the journal title reported by the bibliographic API.
	Title string `json:"title"`

	// ArticleCount is the record count in the journal's dataset file
	// as of the last completed harvest.
	ArticleCount int `json:"article_count"`

	// LastHarvest is when the dataset file was last saved by a harvest.
	LastHarvest time.Time `json:"last_harvest,omitempty"`
}

// JournalSummary maps ISSN to journal info. Persisted alongside the
// dataset files and rewritten on every successful harvest.
type JournalSummary map[string]JournalInfo
