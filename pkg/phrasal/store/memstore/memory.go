// Package memstore is an in-memory store.Store for tests.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/chagge/phrasal/pkg/phrasal/internalerr"
	"github.com/chagge/phrasal/pkg/phrasal/store"
)

// Store keeps snapshots in memory, ordered by save time.
type Store struct {
	mu    sync.RWMutex
	snaps map[string]store.Snapshot
	order []string
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{snaps: make(map[string]store.Snapshot)}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// SaveModel stores snap under its run id.
func (s *Store) SaveModel(ctx context.Context, snap store.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.snaps[snap.RunID]; !ok {
		s.order = append(s.order, snap.RunID)
	}
	s.snaps[snap.RunID] = snap
	return nil
}

// LoadModel retrieves a snapshot; an empty run id means the latest save.
func (s *Store) LoadModel(ctx context.Context, runID string) (store.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if runID == "" {
		if len(s.order) == 0 {
			return store.Snapshot{}, fmt.Errorf("no stored runs: %w", internalerr.ErrNotFound)
		}
		runID = s.order[len(s.order)-1]
	}
	snap, ok := s.snaps[runID]
	if !ok {
		return store.Snapshot{}, fmt.Errorf("run %s: %w", runID, internalerr.ErrNotFound)
	}
	return snap, nil
}

// Runs lists stored runs, most recent first.
func (s *Store) Runs(ctx context.Context) ([]store.RunInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	runs := make([]store.RunInfo, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		snap := s.snaps[s.order[i]]
		runs = append(runs, store.RunInfo{ID: snap.RunID, CreatedAt: snap.CreatedAt})
	}
	return runs, nil
}
