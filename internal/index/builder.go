// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package index builds and queries the vector collection derived from
// the dataset store. The collection is a fully regenerable artifact:
// every build embeds the current datasets wholesale and replaces what
// was there before.
package index

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"
	"github.com/sirupsen/logrus"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/journal-engine/internal/dataset"
	"github.com/pdiddy/journal-engine/internal/embedding"
	"github.com/pdiddy/journal-engine/pkg/types"
)

const (
	// DefaultCollection is the vector collection papers are indexed
	// into.
	DefaultCollection = "academic_papers"

	// DefaultDir is where the collection is persisted.
	DefaultDir = "chroma_db"

	defaultWorkers = 4
	manifestFile   = "manifest.yaml"
)

// ErrNoIndex reports a query against a collection that has never been
// built (or was purged).
var ErrNoIndex = errors.New("no index built")

// BuildStats summarizes one index build.
type BuildStats struct {
	RecordsIndexed int            `json:"records_indexed"`
	RecordsSkipped int            `json:"records_skipped"`
	EmbedErrors    int            `json:"embed_errors"`
	Journals       map[string]int `json:"journals"`
}

// SearchResult is one semantic search hit.
type SearchResult struct {
	DOI        string  `json:"doi"`
	Title      string  `json:"title"`
	ISSN       string  `json:"issn"`
	Year       int     `json:"year,omitempty"`
	Similarity float32 `json:"similarity"`
}

// Manifest describes the last successful build, written next to the
// collection data.
type Manifest struct {
	Collection     string         `yaml:"collection"`
	Model          string         `yaml:"model"`
	Dimensions     int            `yaml:"dimensions"`
	BuiltAt        time.Time      `yaml:"built_at"`
	RecordsIndexed int            `yaml:"records_indexed"`
	Journals       map[string]int `yaml:"journals,omitempty"`
}

// Builder embeds dataset records into a persistent vector collection.
type Builder struct {
	db         *chromem.DB
	store      *dataset.Store
	provider   embedding.Provider
	dir        string
	collection string
	workers    int
	log        *logrus.Entry
}

// NewBuilder opens (or creates) the vector store at cfg.Dir. A store
// that cannot be opened is fatal: nothing else in the package works
// without it.
func NewBuilder(store *dataset.Store, provider embedding.Provider, cfg types.IndexConfig, log *logrus.Entry) (*Builder, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = DefaultDir
	}
	collection := cfg.Collection
	if collection == "" {
		collection = DefaultCollection
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	db, err := chromem.NewPersistentDB(dir, false)
	if err != nil {
		return nil, fmt.Errorf("opening vector store at %s: %w", dir, err)
	}

	return &Builder{
		db:         db,
		store:      store,
		provider:   provider,
		dir:        dir,
		collection: collection,
		workers:    workers,
		log:        log,
	}, nil
}

type embedJob struct {
	journalISSN string
	text        string
	doc         chromem.Document
}

// Build embeds every record that has text to embed (title plus
// abstract, or title alone) and replaces the collection with the
// result. Records without a DOI or without any text are skipped and
// counted; per-record embedding failures are counted and leave that
// record out. The previous collection is only replaced after
// embedding produced something, so a dead embedding backend cannot
// wipe a good index.
func (b *Builder) Build(ctx context.Context) (BuildStats, error) {
	stats := BuildStats{Journals: map[string]int{}}

	// Providers that can report reachability get asked up front, so a
	// dead backend fails the build before any dataset is read.
	if pinger, ok := b.provider.(interface{ Ping(context.Context) error }); ok {
		if err := pinger.Ping(ctx); err != nil {
			return stats, err
		}
	}

	var jobs []embedJob
	err := b.store.ForEach(func(journalISSN string, papers []types.Paper) error {
		for _, p := range papers {
			text := p.EmbeddableText()
			if p.DOI == "" || text == "" {
				stats.RecordsSkipped++
				continue
			}
			metadata := map[string]string{
				"doi":   p.DOI,
				"title": p.Title,
				"issn":  journalISSN,
			}
			if p.Year != 0 {
				metadata["year"] = strconv.Itoa(p.Year)
			}
			jobs = append(jobs, embedJob{
				journalISSN: journalISSN,
				text:        text,
				doc:         chromem.Document{ID: p.DOI, Metadata: metadata, Content: text},
			})
		}
		return nil
	})
	if err != nil {
		return stats, err
	}

	vecs, errs := b.embedAll(ctx, jobs)
	if err := ctx.Err(); err != nil {
		return stats, err
	}

	// Fold results in record position order so repeated builds of the
	// same datasets come out identical.
	docs := make([]chromem.Document, 0, len(jobs))
	for i, job := range jobs {
		if errs[i] != nil {
			b.log.WithError(errs[i]).WithField("doi", job.doc.ID).Warn("embedding failed; record left out of index")
			stats.EmbedErrors++
			continue
		}
		job.doc.Embedding = vecs[i]
		docs = append(docs, job.doc)
		stats.Journals[job.journalISSN]++
		stats.RecordsIndexed++
	}

	if len(jobs) > 0 && len(docs) == 0 {
		return stats, errors.New("all embeddings failed; keeping previous index")
	}

	if err := b.db.DeleteCollection(b.collection); err != nil {
		return stats, fmt.Errorf("resetting collection: %w", err)
	}
	col, err := b.db.GetOrCreateCollection(b.collection, nil, b.embeddingFunc())
	if err != nil {
		return stats, fmt.Errorf("creating collection: %w", err)
	}
	if len(docs) > 0 {
		if err := col.AddDocuments(ctx, docs, 1); err != nil {
			return stats, fmt.Errorf("adding documents: %w", err)
		}
	}

	if err := b.writeManifest(stats); err != nil {
		b.log.WithError(err).Warn("manifest write failed")
	}

	b.log.WithFields(logrus.Fields{
		"indexed": stats.RecordsIndexed,
		"skipped": stats.RecordsSkipped,
		"errors":  stats.EmbedErrors,
	}).Info("index build complete")

	return stats, nil
}

// embedAll runs the embedding worker pool. vecs[i] and errs[i]
// correspond to jobs[i] regardless of which worker ran it.
func (b *Builder) embedAll(ctx context.Context, jobs []embedJob) (vecs [][]float32, errs []error) {
	vecs = make([][]float32, len(jobs))
	errs = make([]error, len(jobs))

	indexes := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < b.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				if err := ctx.Err(); err != nil {
					errs[i] = err
					continue
				}
				vecs[i], errs[i] = b.provider.Embed(ctx, jobs[i].text)
			}
		}()
	}
	for i := range jobs {
		indexes <- i
	}
	close(indexes)
	wg.Wait()
	return vecs, errs
}

// Purge deletes the vector collection and its manifest. The dataset
// store is untouched; a later build regenerates everything.
func (b *Builder) Purge() error {
	if err := b.db.DeleteCollection(b.collection); err != nil {
		return fmt.Errorf("deleting collection: %w", err)
	}
	if err := os.Remove(filepath.Join(b.dir, manifestFile)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing manifest: %w", err)
	}
	b.log.WithField("collection", b.collection).Info("collection purged")
	return nil
}

// Search embeds the query and returns the closest records. topK is
// capped at the collection size; journalISSN, when non-empty, filters
// hits to one journal.
func (b *Builder) Search(ctx context.Context, query string, topK int, journalISSN string) ([]SearchResult, error) {
	col := b.db.GetCollection(b.collection, b.embeddingFunc())
	if col == nil {
		return nil, ErrNoIndex
	}

	if topK <= 0 {
		topK = 5
	}
	if count := col.Count(); topK > count {
		topK = count
	}
	if topK == 0 {
		return []SearchResult{}, nil
	}

	var where map[string]string
	if journalISSN != "" {
		where = map[string]string{"issn": journalISSN}
	}

	hits, err := col.Query(ctx, query, topK, where, nil)
	if err != nil {
		return nil, fmt.Errorf("querying collection: %w", err)
	}

	results := make([]SearchResult, 0, len(hits))
	for _, h := range hits {
		year, _ := strconv.Atoi(h.Metadata["year"])
		results = append(results, SearchResult{
			DOI:        h.ID,
			Title:      h.Metadata["title"],
			ISSN:       h.Metadata["issn"],
			Year:       year,
			Similarity: h.Similarity,
		})
	}
	return results, nil
}

func (b *Builder) embeddingFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return b.provider.Embed(ctx, text)
	}
}

func (b *Builder) writeManifest(stats BuildStats) error {
	m := Manifest{
		Collection:     b.collection,
		Model:          b.provider.ModelName(),
		Dimensions:     b.provider.Dimensions(),
		BuiltAt:        time.Now().UTC(),
		RecordsIndexed: stats.RecordsIndexed,
		Journals:       stats.Journals,
	}
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	return os.WriteFile(filepath.Join(b.dir, manifestFile), data, 0o644)
}

// ReadManifest loads the manifest written by the last successful build
// in dir. ErrNoIndex when no build has run there.
func ReadManifest(dir string) (Manifest, error) {
	if dir == "" {
		dir = DefaultDir
	}
	data, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if errors.Is(err, os.ErrNotExist) {
		return Manifest{}, ErrNoIndex
	}
	if err != nil {
		return Manifest{}, fmt.Errorf("reading manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parsing manifest: %w", err)
	}
	return m, nil
}
