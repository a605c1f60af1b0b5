// Package template assigns the three integer ids a phrase-pair candidate
// carries into counting and scoring: a joint pair id and one marginal id
// per side. Ids are dense, monotonically assigned, and never reused or
// reordered once issued, so they double as count-vector offsets.
package template

import (
	"fmt"
	"strings"
	"sync"

	"github.com/chagge/phrasal/pkg/phrasal/align"
	"github.com/chagge/phrasal/pkg/phrasal/index"
	"github.com/chagge/phrasal/pkg/phrasal/internalerr"
)

type entry struct {
	srcID int32
	tgtID int32
	// first-seen intra-phrase alignment, kept for reconstruction
	links string
}

// Registry is the id-assignment authority for phrase pairs. Source and
// target phrase strings intern to the marginal ids; the pair id resolves
// through an open-addressed index over the two phrase ids, avoiding boxed
// compound keys.
type Registry struct {
	mu         sync.Mutex
	pairs      *index.PairIndex
	srcIDs     map[string]int32
	srcPhrases []string
	tgtIDs     map[string]int32
	tgtPhrases []string
	entries    []entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		pairs:  index.NewPairIndex(),
		srcIDs: make(map[string]int32),
		tgtIDs: make(map[string]int32),
	}
}

// Register assigns c's pair and marginal ids in place, minting new ids for
// unseen phrases. Registering the same phrase pair again resolves the same
// ids; a pair never receives a second id.
func (r *Registry) Register(c *align.Candidate) {
	r.mu.Lock()
	defer r.mu.Unlock()

	srcID := r.internSource(c.SourcePhrase())
	tgtID := r.internTarget(c.TargetPhrase())
	pairID := r.pairs.IndexOf(srcID, tgtID, true)
	if int(pairID) == len(r.entries) {
		r.entries = append(r.entries, entry{srcID: srcID, tgtID: tgtID, links: c.LinkString()})
	}

	c.PairID = pairID
	c.SourceID = srcID
	c.TargetID = tgtID
}

// SourceKey returns the marginal id for a source phrase string. With create
// false it returns align.Unassigned for unseen phrases.
func (r *Registry) SourceKey(phrase string, create bool) int32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !create {
		if id, ok := r.srcIDs[phrase]; ok {
			return id
		}
		return align.Unassigned
	}
	return r.internSource(phrase)
}

// TargetKey returns the marginal id for a target phrase string. With create
// false it returns align.Unassigned for unseen phrases.
func (r *Registry) TargetKey(phrase string, create bool) int32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !create {
		if id, ok := r.tgtIDs[phrase]; ok {
			return id
		}
		return align.Unassigned
	}
	return r.internTarget(phrase)
}

// Len returns the number of registered phrase pairs.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Candidate reconstructs the phrase pair registered under pairID, with its
// ids assigned and its first-seen intra-phrase alignment.
func (r *Registry) Candidate(pairID int32) (*align.Candidate, error) {
	r.mu.Lock()
	if pairID < 0 || int(pairID) >= len(r.entries) {
		r.mu.Unlock()
		return nil, fmt.Errorf("phrase pair id %d: %w", pairID, internalerr.ErrNotFound)
	}
	ent := r.entries[pairID]
	src := r.srcPhrases[ent.srcID]
	tgt := r.tgtPhrases[ent.tgtID]
	r.mu.Unlock()

	links, err := align.ParseLinks(ent.links)
	if err != nil {
		return nil, err
	}
	c, err := align.NewCandidate(strings.Fields(src), strings.Fields(tgt), links)
	if err != nil {
		return nil, err
	}
	c.PairID = pairID
	c.SourceID = ent.srcID
	c.TargetID = ent.tgtID
	return c, nil
}

// RangeSourcePhrases calls fn for every interned source phrase.
func (r *Registry) RangeSourcePhrases(fn func(phrase string, id int32)) {
	r.mu.Lock()
	phrases := append([]string(nil), r.srcPhrases...)
	r.mu.Unlock()
	for id, p := range phrases {
		fn(p, int32(id))
	}
}

// RangeTargetPhrases calls fn for every interned target phrase.
func (r *Registry) RangeTargetPhrases(fn func(phrase string, id int32)) {
	r.mu.Lock()
	phrases := append([]string(nil), r.tgtPhrases...)
	r.mu.Unlock()
	for id, p := range phrases {
		fn(p, int32(id))
	}
}

func (r *Registry) internSource(phrase string) int32 {
	if id, ok := r.srcIDs[phrase]; ok {
		return id
	}
	id := int32(len(r.srcPhrases))
	r.srcIDs[phrase] = id
	r.srcPhrases = append(r.srcPhrases, phrase)
	return id
}

func (r *Registry) internTarget(phrase string) int32 {
	if id, ok := r.tgtIDs[phrase]; ok {
		return id
	}
	id := int32(len(r.tgtPhrases))
	r.tgtIDs[phrase] = id
	r.tgtPhrases = append(r.tgtPhrases, phrase)
	return id
}
