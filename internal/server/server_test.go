// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/pdiddy/journal-engine/internal/crossref"
	"github.com/pdiddy/journal-engine/internal/dataset"
	"github.com/pdiddy/journal-engine/internal/enrich"
	"github.com/pdiddy/journal-engine/internal/harvest"
	"github.com/pdiddy/journal-engine/internal/index"
	"github.com/pdiddy/journal-engine/internal/issn"
	"github.com/pdiddy/journal-engine/internal/logging"
	"github.com/pdiddy/journal-engine/pkg/types"
)

type stubHarvester struct {
	res     harvest.Result
	err     error
	started chan struct{}
	release chan struct{}
}

func (s *stubHarvester) Harvest(_ context.Context, _ string) (harvest.Result, error) {
	if s.started != nil {
		close(s.started)
	}
	if s.release != nil {
		<-s.release
	}
	return s.res, s.err
}

type stubEnricher struct {
	stats enrich.Stats
	err   error
}

func (s *stubEnricher) Enrich(_ context.Context) (enrich.Stats, error) {
	return s.stats, s.err
}

type stubIndexer struct {
	buildStats index.BuildStats
	buildErr   error
	purgeErr   error
	results    []index.SearchResult
	searchErr  error
	gotQuery   string
	gotTopK    int
	gotISSN    string
}

func (s *stubIndexer) Build(_ context.Context) (index.BuildStats, error) {
	return s.buildStats, s.buildErr
}

func (s *stubIndexer) Purge() error { return s.purgeErr }

func (s *stubIndexer) Search(_ context.Context, query string, topK int, journalISSN string) ([]index.SearchResult, error) {
	s.gotQuery, s.gotTopK, s.gotISSN = query, topK, journalISSN
	return s.results, s.searchErr
}

func newTestRouter(t *testing.T, h Harvester, e Enricher, i Indexer, store *dataset.Store) *gin.Engine {
	t.Helper()
	if store == nil {
		store = dataset.NewStore(t.TempDir())
	}
	return New(h, e, i, store, logging.Discard()).Router("test")
}

func doRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("response not JSON: %v\n%s", err, w.Body.String())
	}
	return m
}

// --- /fetch ---

func TestFetchReturnsHarvestResult(t *testing.T) {
	h := &stubHarvester{res: harvest.Result{ISSN: "2053-9517", RecordsFetched: 42, DatasetFilename: "2053-9517.json"}}
	router := newTestRouter(t, h, nil, nil, nil)

	w := doRequest(router, http.MethodPost, "/fetch", `{"issn":"2053-9517"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	body := decodeBody(t, w)
	if body["records_fetched"] != float64(42) {
		t.Errorf("records_fetched = %v, want 42", body["records_fetched"])
	}
	if body["dataset_filename"] != "2053-9517.json" {
		t.Errorf("dataset_filename = %v", body["dataset_filename"])
	}
}

func TestFetchRequiresISSN(t *testing.T) {
	router := newTestRouter(t, &stubHarvester{}, nil, nil, nil)
	w := doRequest(router, http.MethodPost, "/fetch", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestFetchErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid issn", fmt.Errorf("checking: %w", issn.ErrInvalid), http.StatusBadRequest},
		{"unknown journal", &harvest.IncompleteError{ISSN: "9999-9999", Err: crossref.ErrJournalNotFound}, http.StatusNotFound},
		{"upstream down", &harvest.IncompleteError{ISSN: "2053-9517", Fetched: 30, Err: crossref.ErrUpstreamUnavailable}, http.StatusBadGateway},
		{"storage failure", fmt.Errorf("writing temp file: permission denied"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t, &stubHarvester{err: tt.err}, nil, nil, nil)
			w := doRequest(router, http.MethodPost, "/fetch", `{"issn":"2053-9517"}`)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
			if body := decodeBody(t, w); body["error"] == "" {
				t.Error("error body missing")
			}
		})
	}
}

func TestMutatingOperationsConflict(t *testing.T) {
	h := &stubHarvester{
		res:     harvest.Result{RecordsFetched: 1},
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	router := newTestRouter(t, h, &stubEnricher{}, nil, nil)

	first := make(chan *httptest.ResponseRecorder)
	go func() {
		first <- doRequest(router, http.MethodPost, "/fetch", `{"issn":"2053-9517"}`)
	}()

	<-h.started
	w := doRequest(router, http.MethodPost, "/enrich_abstracts", "")
	if w.Code != http.StatusConflict {
		t.Errorf("concurrent op status = %d, want 409", w.Code)
	}

	close(h.release)
	if w := <-first; w.Code != http.StatusOK {
		t.Errorf("first op status = %d, want 200", w.Code)
	}

	// The guard is released afterwards.
	if w := doRequest(router, http.MethodPost, "/enrich_abstracts", ""); w.Code != http.StatusOK {
		t.Errorf("follow-up op status = %d, want 200", w.Code)
	}
}

// --- /enrich_abstracts and index routes ---

func TestEnrichReturnsStats(t *testing.T) {
	e := &stubEnricher{stats: enrich.Stats{TotalFiles: 1, TotalPapers: 42, PapersWithAbstracts: 32, NewAbstractsAdded: 3, StillMissing: 7}}
	router := newTestRouter(t, nil, e, nil, nil)

	w := doRequest(router, http.MethodPost, "/enrich_abstracts", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["total_papers"] != float64(42) || body["new_abstracts_added"] != float64(3) {
		t.Errorf("body = %v", body)
	}
}

func TestGenerateIndexReturnsStats(t *testing.T) {
	i := &stubIndexer{buildStats: index.BuildStats{RecordsIndexed: 5, RecordsSkipped: 2}}
	router := newTestRouter(t, nil, nil, i, nil)

	w := doRequest(router, http.MethodPost, "/generate-chroma", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["records_indexed"] != float64(5) {
		t.Errorf("records_indexed = %v", body["records_indexed"])
	}
}

func TestPurgeIndex(t *testing.T) {
	router := newTestRouter(t, nil, nil, &stubIndexer{}, nil)
	w := doRequest(router, http.MethodPost, "/purge_chroma", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if body := decodeBody(t, w); body["status"] != "purged" {
		t.Errorf("body = %v", body)
	}
}

// --- /download ---

func TestDownloadServesDataset(t *testing.T) {
	store := dataset.NewStore(t.TempDir())
	if err := store.Save("2053-9517", []types.Paper{{DOI: "10.1/a", Title: "A"}}); err != nil {
		t.Fatal(err)
	}
	router := newTestRouter(t, nil, nil, nil, store)

	w := doRequest(router, http.MethodGet, "/download/2053-9517.json", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "2053-9517.json") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	var papers []types.Paper
	if err := json.Unmarshal(w.Body.Bytes(), &papers); err != nil {
		t.Fatalf("body not a dataset: %v", err)
	}
	if len(papers) != 1 || papers[0].DOI != "10.1/a" {
		t.Errorf("papers = %+v", papers)
	}
}

func TestDownloadUnknownDataset(t *testing.T) {
	router := newTestRouter(t, nil, nil, nil, nil)
	w := doRequest(router, http.MethodGet, "/download/2053-9517.json", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

// --- /search ---

func TestSearchReturnsResults(t *testing.T) {
	i := &stubIndexer{results: []index.SearchResult{
		{DOI: "10.1/b", Title: "Algorithmic accountability", ISSN: "2053-9517", Year: 2021, Similarity: 0.93},
	}}
	router := newTestRouter(t, nil, nil, i, nil)

	w := doRequest(router, http.MethodGet, "/search?q=accountability&top_k=3&issn=2053-9517", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	if i.gotQuery != "accountability" || i.gotTopK != 3 || i.gotISSN != "2053-9517" {
		t.Errorf("search called with (%q, %d, %q)", i.gotQuery, i.gotTopK, i.gotISSN)
	}

	body := decodeBody(t, w)
	results, ok := body["results"].([]any)
	if !ok || len(results) != 1 {
		t.Fatalf("results = %v", body["results"])
	}
}

func TestSearchValidation(t *testing.T) {
	router := newTestRouter(t, nil, nil, &stubIndexer{}, nil)

	if w := doRequest(router, http.MethodGet, "/search", ""); w.Code != http.StatusBadRequest {
		t.Errorf("missing q: status = %d, want 400", w.Code)
	}
	if w := doRequest(router, http.MethodGet, "/search?q=x&top_k=many", ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad top_k: status = %d, want 400", w.Code)
	}
}

func TestSearchWithoutIndex(t *testing.T) {
	router := newTestRouter(t, nil, nil, &stubIndexer{searchErr: index.ErrNoIndex}, nil)
	w := doRequest(router, http.MethodGet, "/search?q=x", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

// --- /datasets and /healthz ---

func TestDatasetsListing(t *testing.T) {
	store := dataset.NewStore(t.TempDir())
	if err := store.Save("2053-9517", []types.Paper{{DOI: "10.1/a"}, {DOI: "10.1/b"}}); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveSummary(types.JournalSummary{"2053-9517": {Title: "Big Data & Society", ArticleCount: 2}}); err != nil {
		t.Fatal(err)
	}
	router := newTestRouter(t, nil, nil, nil, store)

	w := doRequest(router, http.MethodGet, "/datasets", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	body := decodeBody(t, w)
	list, ok := body["datasets"].([]any)
	if !ok || len(list) != 1 {
		t.Fatalf("datasets = %v", body["datasets"])
	}
	entry := list[0].(map[string]any)
	if entry["issn"] != "2053-9517" || entry["records"] != float64(2) || entry["title"] != "Big Data & Society" {
		t.Errorf("entry = %v", entry)
	}
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(t, nil, nil, nil, nil)
	w := doRequest(router, http.MethodGet, "/healthz", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
}
