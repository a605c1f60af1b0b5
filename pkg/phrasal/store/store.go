// Package store defines snapshot persistence for a trained model: the
// frozen count state exported with its surface strings, so a later process
// can restore it and score or validate without re-counting the corpus.
package store

import (
	"context"
	"time"
)

// Side distinguishes the two marginal tables.
type Side string

const (
	SideSource Side = "f"
	SideTarget Side = "e"
)

// Snapshot is a full export of the frozen count state of one extraction
// run. Entities are keyed by surface strings rather than run-local ids, so
// a restore may mint different ids while reproducing identical scores.
type Snapshot struct {
	RunID     string
	CreatedAt time.Time

	WordPairs       []WordPairCount
	WordMarginals   []WordMarginalCount
	PhrasePairs     []PhrasePairCount
	PhraseMarginals []PhraseMarginalCount
}

// WordPairCount is one word-level joint count.
type WordPairCount struct {
	Source string
	Target string
	Count  int64
}

// WordMarginalCount is one per-side word marginal.
type WordMarginalCount struct {
	Side  Side
	Word  string
	Count int64
}

// PhrasePairCount is one phrase-level joint count with the first-seen
// intra-phrase alignment.
type PhrasePairCount struct {
	Source string
	Target string
	Links  string
	Count  int64
}

// PhraseMarginalCount is one per-side phrase marginal.
type PhraseMarginalCount struct {
	Side   Side
	Phrase string
	Count  int64
}

// RunInfo identifies a stored run.
type RunInfo struct {
	ID        string
	CreatedAt time.Time
}

// Store persists and retrieves model snapshots.
type Store interface {
	Close() error

	// SaveModel stores a snapshot under its run id.
	SaveModel(ctx context.Context, snap Snapshot) error

	// LoadModel retrieves a snapshot by run id; an empty id means the most
	// recently saved run.
	LoadModel(ctx context.Context, runID string) (Snapshot, error)

	// Runs lists stored runs, most recent first.
	Runs(ctx context.Context) ([]RunInfo, error)
}
