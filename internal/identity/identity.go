// Package identity persists the set of external identifiers seen by prior
// sync runs. The store is a single human-readable JSON file, read in full at
// run start and replaced wholesale at run end.
package identity

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Record is the last-known metadata for one external identifier.
type Record struct {
	DisplayName     string    `json:"display_name"`
	LastProcessedAt time.Time `json:"last_processed_at"`
}

// Store is an in-memory view of the identity file.
type Store struct {
	path    string
	records map[string]Record
}

// Load reads the identity file at path. A missing or unreadable file is not
// fatal: the run starts fresh with an empty store.
func Load(path string) *Store {
	s := &Store{path: path, records: make(map[string]Record)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			zap.L().Info("no identity file, starting fresh", zap.String("path", path))
		} else {
			zap.L().Warn("identity file unreadable, starting fresh",
				zap.String("path", path), zap.Error(err))
		}
		return s
	}

	if err := json.Unmarshal(data, &s.records); err != nil {
		zap.L().Warn("identity file corrupt, starting fresh",
			zap.String("path", path), zap.Error(err))
		s.records = make(map[string]Record)
		return s
	}

	zap.L().Info("loaded identity store",
		zap.String("path", path), zap.Int("identifiers", len(s.records)))
	return s
}

// Has reports whether the identifier was seen by a prior run.
func (s *Store) Has(externalID string) bool {
	_, ok := s.records[externalID]
	return ok
}

// Len returns the number of known identifiers.
func (s *Store) Len() int {
	return len(s.records)
}

// IDs returns all known external identifiers in no particular order.
func (s *Store) IDs() []string {
	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	return ids
}

// Replace atomically rewrites the identity file to contain exactly the given
// records. The file reflects either this run or the previous complete run,
// never an interleaving: content goes to a temp file first, then renames
// over the target.
func (s *Store) Replace(records map[string]Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return eris.Wrap(err, "identity: marshal records")
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return eris.Wrap(err, "identity: create temp file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return eris.Wrap(err, "identity: write temp file")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return eris.Wrap(err, "identity: sync temp file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return eris.Wrap(err, "identity: close temp file")
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return eris.Wrap(err, "identity: rename into place")
	}

	s.records = records
	zap.L().Info("identity store replaced",
		zap.String("path", s.path), zap.Int("identifiers", len(records)))
	return nil
}
