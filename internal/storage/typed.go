package storage

import (
	"encoding/json"
	"fmt"
)

// Snapshots decodes the documents of a Store into T.
type Snapshots[T any] struct {
	store *Store
}

// NewSnapshots wraps a store.
func NewSnapshots[T any](store *Store) *Snapshots[T] {
	return &Snapshots[T]{store: store}
}

// Load returns the decoded snapshot of a light. The zero value and revision
// 0 mean the light was never saved.
func (s *Snapshots[T]) Load(lightID string) (snap T, revision int64, err error) {
	doc, revision, err := s.store.Load(lightID)
	if err != nil || doc == nil {
		return snap, 0, err
	}
	if err := json.Unmarshal(doc, &snap); err != nil {
		return snap, 0, fmt.Errorf("failed to decode snapshot of light %q: %w", lightID, err)
	}
	return snap, revision, nil
}

// Save encodes and stores the snapshot of a light.
func (s *Snapshots[T]) Save(lightID string, snap T) (int64, error) {
	doc, err := json.Marshal(snap)
	if err != nil {
		return 0, fmt.Errorf("failed to encode snapshot of light %q: %w", lightID, err)
	}
	return s.store.Save(lightID, doc)
}

// Changed reports lights saved since the revisions in seen.
func (s *Snapshots[T]) Changed(seen map[string]int64) (map[string]int64, error) {
	return s.store.Changed(seen)
}

// LoadAll decodes every stored snapshot.
func (s *Snapshots[T]) LoadAll() (map[string]T, map[string]int64, error) {
	docs, revisions, err := s.store.LoadAll()
	if err != nil {
		return nil, nil, err
	}

	snaps := make(map[string]T, len(docs))
	for id, doc := range docs {
		var snap T
		if err := json.Unmarshal(doc, &snap); err != nil {
			return nil, nil, fmt.Errorf("failed to decode snapshot of light %q: %w", id, err)
		}
		snaps[id] = snap
	}
	return snaps, revisions, nil
}
