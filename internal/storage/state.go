// Package storage persists light state between runs.
package storage

import (
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Store keeps the latest snapshot of every light as a JSON document.
// Each save bumps the light's revision, so another process sharing the
// database can tell which lights it has to reload.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewStore creates a snapshot store on an open database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Load returns the stored snapshot of a light and its revision.
// A light that was never saved has a nil snapshot and revision 0.
func (s *Store) Load(lightID string) (snapshot []byte, revision int64, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var doc string
	err = s.db.QueryRow(`
		SELECT snapshot, revision FROM light_snapshots WHERE light_id = ?
	`, lightID).Scan(&doc, &revision)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}

	return []byte(doc), revision, nil
}

// Save replaces the snapshot of a light and returns its new revision.
func (s *Store) Save(lightID string, snapshot []byte) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var revision int64
	err := s.db.QueryRow(`
		INSERT INTO light_snapshots (light_id, snapshot, revision, saved_at)
		VALUES (?, ?, 1, ?)
		ON CONFLICT(light_id) DO UPDATE SET
			snapshot = excluded.snapshot,
			revision = revision + 1,
			saved_at = excluded.saved_at
		RETURNING revision
	`, lightID, string(snapshot), time.Now().UTC().Unix()).Scan(&revision)
	if err != nil {
		return 0, err
	}

	log.Debug().
		Str("light", lightID).
		Int64("revision", revision).
		Int("bytes", len(snapshot)).
		Msg("Saved light snapshot")

	return revision, nil
}

// Changed returns the lights whose stored revision is newer than the one
// in seen, with their current revision. Lights missing from seen count as
// revision 0.
func (s *Store) Changed(seen map[string]int64) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT light_id, revision FROM light_snapshots`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	changed := make(map[string]int64)
	for rows.Next() {
		var id string
		var revision int64
		if err := rows.Scan(&id, &revision); err != nil {
			return nil, err
		}
		if revision > seen[id] {
			changed[id] = revision
		}
	}
	return changed, rows.Err()
}

// LoadAll returns every stored snapshot with its revision.
func (s *Store) LoadAll() (map[string][]byte, map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT light_id, snapshot, revision FROM light_snapshots`)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	snapshots := make(map[string][]byte)
	revisions := make(map[string]int64)
	for rows.Next() {
		var id, doc string
		var revision int64
		if err := rows.Scan(&id, &doc, &revision); err != nil {
			return nil, nil, err
		}
		snapshots[id] = []byte(doc)
		revisions[id] = revision
	}
	return snapshots, revisions, rows.Err()
}
