// Package scancache persists the flattened (filename -> path) map from the
// last successful media-tree scan (component G). The orchestrator
// (component O) stores each scan's result here; within a run the
// crate-path fixer (K) works from the in-memory map, not from this cache.
// The orchestrator always performs the mandatory scan at the start of a
// sync, and this cache is never consulted in its place.
//
// Grounded on the bbolt-per-bucket key/value store shape in
// mmcdole-kino's internal/store package: a single bolt.DB, one bucket,
// JSON-encoded values, keyed by a caller-supplied string.
package scancache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketScans = []byte("scans") //nolint:gochecknoglobals // bbolt bucket name, immutable

// Store wraps a bbolt database holding one bucket of scan results.
type Store struct {
	db *bolt.DB
}

// entry is the JSON-encoded value stored per music root.
type entry struct {
	RootMTime int64             `json:"root_mtime"`
	Flattened map[string]string `json:"flattened"`
}

// dbFileName is the bbolt file created under <library-parent>/.ser-sync-pro/.
const dbFileName = "scancache.db"

// Open opens (creating if absent) the scan cache database rooted at
// <libraryParent>/.ser-sync-pro/scancache.db.
func Open(libraryParent string) (*Store, error) {
	dir := filepath.Join(libraryParent, ".ser-sync-pro")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create scancache dir: %w", err)
	}

	db, err := bolt.Open(filepath.Join(dir, dbFileName), 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open scancache db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, txErr := tx.CreateBucketIfNotExists(bucketScans)

		return txErr
	})
	if err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("create scancache bucket: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Lookup returns the cached flattened map for musicRoot if present and its
// stored root mtime matches rootMTime. A stale or missing entry reports
// ok=false, signaling the caller to flatten fresh and call Store.
func (s *Store) Lookup(musicRoot string, rootMTime time.Time) (map[string]string, bool) {
	var stored entry

	found := false

	_ = s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketScans)
		if bucket == nil {
			return nil
		}

		raw := bucket.Get([]byte(musicRoot))
		if raw == nil {
			return nil
		}

		if err := json.Unmarshal(raw, &stored); err != nil {
			return nil //nolint:nilerr // corrupt entry is treated as a cache miss, not a fatal error
		}

		found = true

		return nil
	})

	if !found || stored.RootMTime != rootMTime.UnixNano() {
		return nil, false
	}

	return stored.Flattened, true
}

// Store persists flattened for musicRoot, keyed by its current rootMTime.
func (s *Store) Store(musicRoot string, rootMTime time.Time, flattened map[string]string) error {
	raw, err := json.Marshal(entry{RootMTime: rootMTime.UnixNano(), Flattened: flattened})
	if err != nil {
		return fmt.Errorf("marshal scancache entry: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketScans)

		return bucket.Put([]byte(musicRoot), raw)
	})
}
