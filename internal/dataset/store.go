// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dataset persists harvested journal records as per-journal
// JSON files under a single records directory. Each journal's papers
// live in <issn>.json; journals.json carries the harvest summary.
package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/journal-engine/internal/issn"
	"github.com/pdiddy/journal-engine/pkg/types"
)

const summaryFile = "journals.json"

// ErrNotFound reports a dataset file that does not exist in the store.
var ErrNotFound = errors.New("dataset not found")

// Filename returns the dataset file name for a journal ISSN.
func Filename(journalISSN string) string {
	return journalISSN + ".json"
}

// Store reads and writes journal datasets in a records directory.
// Writes are atomic: data lands in a temp file first and is renamed
// into place, so readers never observe a partially written dataset.
type Store struct {
	dir string
}

// NewStore returns a Store rooted at dir. The directory is created
// lazily on the first write.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the records directory the store is rooted at.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the absolute-or-relative path of a journal's dataset file.
func (s *Store) Path(journalISSN string) string {
	return filepath.Join(s.dir, Filename(journalISSN))
}

// Load reads the dataset for a journal. A missing file is not an
// error: it returns an empty dataset, so a first harvest and a
// re-harvest go through the same path.
func (s *Store) Load(journalISSN string) ([]types.Paper, error) {
	data, err := os.ReadFile(s.Path(journalISSN))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading dataset %s: %w", Filename(journalISSN), err)
	}

	var papers []types.Paper
	if err := json.Unmarshal(data, &papers); err != nil {
		return nil, fmt.Errorf("parsing dataset %s: %w", Filename(journalISSN), err)
	}
	return papers, nil
}

// Save writes the full dataset for a journal, replacing any previous
// file. A nil slice is stored as an empty JSON array so that a journal
// with zero records still produces a well-formed dataset file.
func (s *Store) Save(journalISSN string, papers []types.Paper) error {
	if papers == nil {
		papers = []types.Paper{}
	}
	data, err := json.MarshalIndent(papers, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling dataset: %w", err)
	}
	return s.writeAtomic(s.Path(journalISSN), data)
}

// ForEach calls fn once per stored dataset in file-name order. Files
// whose names are not <valid-ISSN>.json are ignored; the summary file
// is not a dataset. Iteration stops at the first error from fn and
// returns it.
func (s *Store) ForEach(fn func(journalISSN string, papers []types.Paper) error) error {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading records directory %s: %w", s.dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if name == summaryFile || !strings.HasSuffix(name, ".json") {
			continue
		}
		journalISSN := strings.TrimSuffix(name, ".json")
		if issn.Validate(journalISSN) != nil {
			continue
		}

		papers, err := s.Load(journalISSN)
		if err != nil {
			return err
		}
		if err := fn(journalISSN, papers); err != nil {
			return err
		}
	}
	return nil
}

// Open opens a stored file by its bare file name for streaming, e.g.
// to serve a download. Only names of the form <valid-ISSN>.json or the
// summary file are accepted; anything else reports ErrNotFound, which
// also keeps path traversal out of the store.
func (s *Store) Open(name string) (*os.File, error) {
	if !validName(name) {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	f, err := os.Open(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", name, err)
	}
	return f, nil
}

func validName(name string) bool {
	if name != filepath.Base(name) {
		return false
	}
	if name == summaryFile {
		return true
	}
	if !strings.HasSuffix(name, ".json") {
		return false
	}
	return issn.Validate(strings.TrimSuffix(name, ".json")) == nil
}

// LoadSummary reads the journal summary. A missing file yields an
// empty summary.
func (s *Store) LoadSummary() (types.JournalSummary, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, summaryFile))
	if errors.Is(err, fs.ErrNotExist) {
		return types.JournalSummary{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", summaryFile, err)
	}

	var summary types.JournalSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", summaryFile, err)
	}
	return summary, nil
}

// SaveSummary writes the journal summary, replacing any previous file.
func (s *Store) SaveSummary(summary types.JournalSummary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", summaryFile, err)
	}
	return s.writeAtomic(filepath.Join(s.dir, summaryFile), data)
}

func (s *Store) writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating records directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(s.dir, ".dataset-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
