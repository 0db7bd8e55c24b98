// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"context"
	"crypto/sha256"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/journal-engine/internal/dataset"
	"github.com/pdiddy/journal-engine/internal/logging"
	"github.com/pdiddy/journal-engine/pkg/types"
)

// fakeProvider derives a stable vector from the text itself, so equal
// text always embeds to the same point and ranks first for itself.
type fakeProvider struct {
	fail map[string]bool
}

func (f *fakeProvider) Embed(_ context.Context, text string) ([]float32, error) {
	if f.fail[text] {
		return nil, errors.New("embed failed")
	}
	sum := sha256.Sum256([]byte(text))
	vec := make([]float32, 4)
	for i := range vec {
		vec[i] = float32(sum[i])/255*0.9 + 0.1
	}
	return vec, nil
}

func (f *fakeProvider) ModelName() string { return "fake-model" }
func (f *fakeProvider) Dimensions() int   { return 4 }

func newTestBuilder(t *testing.T, store *dataset.Store, dir string, provider *fakeProvider) *Builder {
	t.Helper()
	b, err := NewBuilder(store, provider, types.IndexConfig{Dir: dir, Workers: 3}, logging.Discard())
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	return b
}

// seedStore writes two datasets: five embeddable records plus one with
// no text and one with no DOI.
func seedStore(t *testing.T) *dataset.Store {
	t.Helper()
	store := dataset.NewStore(t.TempDir())

	err := store.Save("2053-9517", []types.Paper{
		{DOI: "10.1/a", Title: "Data infrastructures", Abstract: "On pipelines.", Year: 2020},
		{DOI: "10.1/b", Title: "Algorithmic accountability", Abstract: "On audits.", Year: 2021},
		{DOI: "10.1/c", Title: "Platform governance", Abstract: "On moderation."},
		{DOI: "10.1/empty"},
		{Title: "No identifier", Abstract: "Cannot be keyed."},
	})
	if err != nil {
		t.Fatal(err)
	}

	err = store.Save("2434-561X", []types.Paper{
		{DOI: "10.2/x", Title: "Survey methods"},
		{DOI: "10.2/y", Title: "Field experiments"},
	})
	if err != nil {
		t.Fatal(err)
	}
	return store
}

// --- Build ---

func TestBuildIndexesEmbeddableRecords(t *testing.T) {
	store := seedStore(t)
	dir := filepath.Join(t.TempDir(), "chroma_db")
	b := newTestBuilder(t, store, dir, &fakeProvider{})

	stats, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if stats.RecordsIndexed != 5 {
		t.Errorf("RecordsIndexed = %d, want 5", stats.RecordsIndexed)
	}
	if stats.RecordsSkipped != 2 {
		t.Errorf("RecordsSkipped = %d, want 2 (no text, no DOI)", stats.RecordsSkipped)
	}
	if stats.EmbedErrors != 0 {
		t.Errorf("EmbedErrors = %d, want 0", stats.EmbedErrors)
	}
	if stats.Journals["2053-9517"] != 3 || stats.Journals["2434-561X"] != 2 {
		t.Errorf("Journals = %v", stats.Journals)
	}

	// The manifest describes the build.
	data, err := os.ReadFile(filepath.Join(dir, "manifest.yaml"))
	if err != nil {
		t.Fatalf("manifest missing: %v", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		t.Fatalf("manifest unparsable: %v", err)
	}
	if m.Model != "fake-model" || m.Dimensions != 4 || m.RecordsIndexed != 5 {
		t.Errorf("manifest = %+v", m)
	}
	if m.BuiltAt.IsZero() {
		t.Error("manifest BuiltAt not set")
	}

	// topK is capped at the collection size.
	results, err := b.Search(context.Background(), "anything", 50, "")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 5 {
		t.Errorf("results = %d, want 5", len(results))
	}
}

func TestBuildCountsEmbedFailures(t *testing.T) {
	store := seedStore(t)
	provider := &fakeProvider{fail: map[string]bool{"Survey methods": true}}
	b := newTestBuilder(t, store, filepath.Join(t.TempDir(), "chroma_db"), provider)

	stats, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v (per-record embed failures must not be fatal)", err)
	}

	if stats.EmbedErrors != 1 {
		t.Errorf("EmbedErrors = %d, want 1", stats.EmbedErrors)
	}
	if stats.RecordsIndexed != 4 {
		t.Errorf("RecordsIndexed = %d, want 4", stats.RecordsIndexed)
	}

	results, err := b.Search(context.Background(), "anything", 50, "")
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range results {
		if r.DOI == "10.2/x" {
			t.Error("record whose embedding failed ended up in the index")
		}
	}
}

func TestBuildTotalFailureKeepsPreviousIndex(t *testing.T) {
	store := seedStore(t)
	dir := filepath.Join(t.TempDir(), "chroma_db")

	good := newTestBuilder(t, store, dir, &fakeProvider{})
	if _, err := good.Build(context.Background()); err != nil {
		t.Fatal(err)
	}

	failAll := map[string]bool{}
	for _, text := range []string{
		"Data infrastructures On pipelines.",
		"Algorithmic accountability On audits.",
		"Platform governance On moderation.",
		"Survey methods",
		"Field experiments",
	} {
		failAll[text] = true
	}
	bad := newTestBuilder(t, store, dir, &fakeProvider{fail: failAll})
	if _, err := bad.Build(context.Background()); err == nil {
		t.Fatal("Build succeeded with every embedding failing, want error")
	}

	// The collection on disk must still hold the previous build.
	reopened := newTestBuilder(t, store, dir, &fakeProvider{})
	results, err := reopened.Search(context.Background(), "anything", 50, "")
	if err != nil {
		t.Fatalf("Search after failed rebuild: %v", err)
	}
	if len(results) != 5 {
		t.Errorf("results = %d, want previous 5", len(results))
	}
}

func TestBuildIsReproducible(t *testing.T) {
	store := seedStore(t)
	b := newTestBuilder(t, store, filepath.Join(t.TempDir(), "chroma_db"), &fakeProvider{})

	first, err := b.Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	second, err := b.Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if first.RecordsIndexed != second.RecordsIndexed || first.RecordsSkipped != second.RecordsSkipped {
		t.Errorf("rebuild changed stats: %+v vs %+v", first, second)
	}

	// Rebuild replaces, never accumulates.
	results, err := b.Search(context.Background(), "anything", 50, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 5 {
		t.Errorf("results = %d after rebuild, want 5", len(results))
	}
}

func TestBuildEmptyStore(t *testing.T) {
	store := dataset.NewStore(t.TempDir())
	b := newTestBuilder(t, store, filepath.Join(t.TempDir(), "chroma_db"), &fakeProvider{})

	stats, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if stats.RecordsIndexed != 0 || stats.RecordsSkipped != 0 || stats.EmbedErrors != 0 {
		t.Errorf("stats = %+v, want zeros", stats)
	}

	results, err := b.Search(context.Background(), "anything", 5, "")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("results = %d, want 0", len(results))
	}
}

func TestReadManifest(t *testing.T) {
	store := seedStore(t)
	dir := filepath.Join(t.TempDir(), "chroma_db")

	if _, err := ReadManifest(dir); !errors.Is(err, ErrNoIndex) {
		t.Fatalf("ReadManifest before build err = %v, want ErrNoIndex", err)
	}

	b := newTestBuilder(t, store, dir, &fakeProvider{})
	if _, err := b.Build(context.Background()); err != nil {
		t.Fatal(err)
	}

	m, err := ReadManifest(dir)
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	if m.Collection != DefaultCollection || m.Model != "fake-model" || m.RecordsIndexed != 5 {
		t.Errorf("manifest = %+v", m)
	}
	if m.Journals["2053-9517"] != 3 || m.Journals["2434-561X"] != 2 {
		t.Errorf("Journals = %v", m.Journals)
	}
}

// --- Search ---

func TestSearchRanksExactTextFirst(t *testing.T) {
	store := seedStore(t)
	b := newTestBuilder(t, store, filepath.Join(t.TempDir(), "chroma_db"), &fakeProvider{})
	if _, err := b.Build(context.Background()); err != nil {
		t.Fatal(err)
	}

	results, err := b.Search(context.Background(), "Algorithmic accountability On audits.", 3, "")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("no results")
	}

	top := results[0]
	if top.DOI != "10.1/b" {
		t.Errorf("top hit = %q, want 10.1/b", top.DOI)
	}
	if top.Title != "Algorithmic accountability" || top.ISSN != "2053-9517" || top.Year != 2021 {
		t.Errorf("top hit metadata = %+v", top)
	}
	if top.Similarity < 0.99 {
		t.Errorf("top similarity = %f, want ~1 for identical text", top.Similarity)
	}
}

func TestSearchFiltersByJournal(t *testing.T) {
	store := seedStore(t)
	b := newTestBuilder(t, store, filepath.Join(t.TempDir(), "chroma_db"), &fakeProvider{})
	if _, err := b.Build(context.Background()); err != nil {
		t.Fatal(err)
	}

	results, err := b.Search(context.Background(), "methods", 2, "2434-561X")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	for _, r := range results {
		if r.ISSN != "2434-561X" {
			t.Errorf("hit %s has ISSN %q, want filter respected", r.DOI, r.ISSN)
		}
	}
}

func TestSearchBeforeBuild(t *testing.T) {
	store := dataset.NewStore(t.TempDir())
	b := newTestBuilder(t, store, filepath.Join(t.TempDir(), "chroma_db"), &fakeProvider{})

	_, err := b.Search(context.Background(), "anything", 5, "")
	if !errors.Is(err, ErrNoIndex) {
		t.Fatalf("err = %v, want ErrNoIndex", err)
	}
}

// --- Purge ---

func TestPurgeDestroysCollection(t *testing.T) {
	store := seedStore(t)
	dir := filepath.Join(t.TempDir(), "chroma_db")
	b := newTestBuilder(t, store, dir, &fakeProvider{})
	if _, err := b.Build(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := b.Purge(); err != nil {
		t.Fatalf("Purge: %v", err)
	}

	if _, err := b.Search(context.Background(), "anything", 5, ""); !errors.Is(err, ErrNoIndex) {
		t.Errorf("Search after purge err = %v, want ErrNoIndex", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "manifest.yaml")); err == nil {
		t.Error("manifest still present after purge")
	}

	// Deletion is persistent, not just in-memory.
	reopened := newTestBuilder(t, store, dir, &fakeProvider{})
	if _, err := reopened.Search(context.Background(), "anything", 5, ""); !errors.Is(err, ErrNoIndex) {
		t.Errorf("Search on reopened store err = %v, want ErrNoIndex", err)
	}

	// Datasets are untouched by a purge.
	papers, err := store.Load("2053-9517")
	if err != nil || len(papers) != 5 {
		t.Errorf("datasets disturbed by purge: %d papers, err %v", len(papers), err)
	}
}

func TestPurgeBeforeBuildIsNoop(t *testing.T) {
	store := dataset.NewStore(t.TempDir())
	b := newTestBuilder(t, store, filepath.Join(t.TempDir(), "chroma_db"), &fakeProvider{})
	if err := b.Purge(); err != nil {
		t.Fatalf("Purge on empty store: %v", err)
	}
}
