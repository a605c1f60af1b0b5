// Package counts aggregates the six dense count vectors behind the
// translation features: phrase joint/source-marginal/target-marginal and
// word joint/source-marginal/target-marginal. Vectors are keyed by dense
// ids, grow on demand, and are incremented under a per-vector lock; once the
// counting passes end the state is read without locking.
package counts

import (
	"sync"

	"github.com/chagge/phrasal/pkg/phrasal/index"
	"github.com/chagge/phrasal/pkg/phrasal/vocab"
)

// Vector is an append-only growable array of non-negative counts. Unseen
// ids implicitly read as zero; the array only grows.
type Vector struct {
	mu     sync.Mutex
	counts []int64
}

// NewVector creates an empty vector.
func NewVector() *Vector {
	return &Vector{}
}

// Inc adds one to the count at id, extending the vector as needed.
// Negative ids are ignored.
func (v *Vector) Inc(id int32) {
	v.Add(id, 1)
}

// Add adds n to the count at id, extending the vector as needed.
func (v *Vector) Add(id int32, n int64) {
	if id < 0 {
		return
	}
	v.mu.Lock()
	for int(id) >= len(v.counts) {
		v.counts = append(v.counts, 0)
	}
	v.counts[id] += n
	v.mu.Unlock()
}

// Get returns the count at id; ids never written read as zero. Callers only
// read after all writer passes have completed, so no lock is taken.
func (v *Vector) Get(id int32) int64 {
	if id < 0 || int(id) >= len(v.counts) {
		return 0
	}
	return v.counts[id]
}

// Len returns one past the highest id ever written.
func (v *Vector) Len() int32 {
	return int32(len(v.counts))
}

// Aggregator owns the six count vectors and the index structures assigning
// word-level count slots. Phrase-level ids are assigned externally and
// arrive pre-set on candidates; word-level slots are minted here as links
// are counted.
type Aggregator struct {
	wordPairs *index.PairIndex
	srcWords  *index.WordIndex
	tgtWords  *index.WordIndex

	wordJoint *Vector
	wordSrc   *Vector
	wordTgt   *Vector

	phraseJoint *Vector
	phraseSrc   *Vector
	phraseTgt   *Vector
}

// NewAggregator creates an empty aggregator with the NULL word's marginal
// slots reserved on both sides.
func NewAggregator() *Aggregator {
	a := &Aggregator{
		wordPairs:   index.NewPairIndex(),
		srcWords:    index.NewWordIndex(),
		tgtWords:    index.NewWordIndex(),
		wordJoint:   NewVector(),
		wordSrc:     NewVector(),
		wordTgt:     NewVector(),
		phraseJoint: NewVector(),
		phraseSrc:   NewVector(),
		phraseTgt:   NewVector(),
	}
	a.srcWords.IndexOf(int32(vocab.Null), true)
	a.tgtWords.IndexOf(int32(vocab.Null), true)
	return a
}

// AddLink counts one aligned word pair: joint(f,e), source-marginal(f) and
// target-marginal(e) each gain one. Unaligned tokens are counted by passing
// vocab.Null for the missing side.
func (a *Aggregator) AddLink(f, e vocab.WordID) {
	a.wordJoint.Inc(a.wordPairs.IndexOf(int32(f), int32(e), true))
	a.wordSrc.Inc(a.srcWords.IndexOf(int32(f), true))
	a.wordTgt.Inc(a.tgtWords.IndexOf(int32(e), true))
}

// AddPhrase counts one phrase-pair occurrence against its three
// pre-assigned ids.
func (a *Aggregator) AddPhrase(pairID, srcID, tgtID int32) {
	a.phraseJoint.Inc(pairID)
	a.phraseSrc.Inc(srcID)
	a.phraseTgt.Inc(tgtID)
}

// WordJoint returns the joint count of (f, e). ok is false when the pair
// was never counted.
func (a *Aggregator) WordJoint(f, e vocab.WordID) (int64, bool) {
	slot := a.wordPairs.IndexOf(int32(f), int32(e), false)
	if slot == index.None {
		return 0, false
	}
	return a.wordJoint.Get(slot), true
}

// SourceMarginal returns the source-side marginal count of f.
func (a *Aggregator) SourceMarginal(f vocab.WordID) (int64, bool) {
	slot := a.srcWords.IndexOf(int32(f), false)
	if slot == index.None {
		return 0, false
	}
	return a.wordSrc.Get(slot), true
}

// TargetMarginal returns the target-side marginal count of e.
func (a *Aggregator) TargetMarginal(e vocab.WordID) (int64, bool) {
	slot := a.tgtWords.IndexOf(int32(e), false)
	if slot == index.None {
		return 0, false
	}
	return a.wordTgt.Get(slot), true
}

// PhraseCounts returns the joint and marginal counts for a candidate's
// three ids. ok is false when any id lies beyond its vector, meaning the
// candidate was indexed upstream but never observed during the final
// counting pass.
func (a *Aggregator) PhraseCounts(pairID, srcID, tgtID int32) (joint, src, tgt int64, ok bool) {
	if pairID < 0 || srcID < 0 || tgtID < 0 {
		return 0, 0, 0, false
	}
	if pairID >= a.phraseJoint.Len() || srcID >= a.phraseSrc.Len() || tgtID >= a.phraseTgt.Len() {
		return 0, 0, 0, false
	}
	return a.phraseJoint.Get(pairID), a.phraseSrc.Get(srcID), a.phraseTgt.Get(tgtID), true
}

// PhraseSourceMarginal reads the source-marginal count at srcID.
func (a *Aggregator) PhraseSourceMarginal(srcID int32) int64 {
	return a.phraseSrc.Get(srcID)
}

// PhraseTargetMarginal reads the target-marginal count at tgtID.
func (a *Aggregator) PhraseTargetMarginal(tgtID int32) int64 {
	return a.phraseTgt.Get(tgtID)
}

// AddWordJoint adds n to the joint count of (f, e), minting the slot if
// needed. Used when restoring a snapshot.
func (a *Aggregator) AddWordJoint(f, e vocab.WordID, n int64) {
	a.wordJoint.Add(a.wordPairs.IndexOf(int32(f), int32(e), true), n)
}

// AddSourceMarginal adds n to the source-side marginal of f.
func (a *Aggregator) AddSourceMarginal(f vocab.WordID, n int64) {
	a.wordSrc.Add(a.srcWords.IndexOf(int32(f), true), n)
}

// AddTargetMarginal adds n to the target-side marginal of e.
func (a *Aggregator) AddTargetMarginal(e vocab.WordID, n int64) {
	a.wordTgt.Add(a.tgtWords.IndexOf(int32(e), true), n)
}

// AddPhraseJoint adds n to the phrase joint count at pairID.
func (a *Aggregator) AddPhraseJoint(pairID int32, n int64) {
	a.phraseJoint.Add(pairID, n)
}

// AddPhraseSourceMarginal adds n to the phrase source-marginal at srcID.
func (a *Aggregator) AddPhraseSourceMarginal(srcID int32, n int64) {
	a.phraseSrc.Add(srcID, n)
}

// AddPhraseTargetMarginal adds n to the phrase target-marginal at tgtID.
func (a *Aggregator) AddPhraseTargetMarginal(tgtID int32, n int64) {
	a.phraseTgt.Add(tgtID, n)
}

// RangeWordPairs calls fn for every counted word pair.
func (a *Aggregator) RangeWordPairs(fn func(f, e vocab.WordID, count int64)) {
	for id := int32(0); int(id) < a.wordPairs.Size(); id++ {
		f, e := a.wordPairs.Pair(id)
		fn(vocab.WordID(f), vocab.WordID(e), a.wordJoint.Get(id))
	}
}

// RangeSourceMarginals calls fn for every source word with a marginal slot.
func (a *Aggregator) RangeSourceMarginals(fn func(f vocab.WordID, count int64)) {
	for id := int32(0); int(id) < a.srcWords.Size(); id++ {
		fn(vocab.WordID(a.srcWords.Key(id)), a.wordSrc.Get(id))
	}
}

// RangeTargetMarginals calls fn for every target word with a marginal slot.
func (a *Aggregator) RangeTargetMarginals(fn func(e vocab.WordID, count int64)) {
	for id := int32(0); int(id) < a.tgtWords.Size(); id++ {
		fn(vocab.WordID(a.tgtWords.Key(id)), a.wordTgt.Get(id))
	}
}
