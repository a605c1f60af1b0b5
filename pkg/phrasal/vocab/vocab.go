package vocab

import "sync"

// WordID is an interned vocabulary identifier. Ids are dense, assigned in
// interning order, and never reused.
type WordID int32

// Null is the reserved id meaning "no aligned counterpart". It is shared by
// the source and target sides.
const Null WordID = 0

// NullToken is the surface form reserved for Null.
const NullToken = "NULL"

// None is returned by Lookup for tokens that were never interned.
const None WordID = -1

// Vocabulary interns token strings to dense WordIDs. Both sides of the
// corpus share one vocabulary, as do phrase-internal tokens and the NULL
// word.
type Vocabulary struct {
	mu    sync.RWMutex
	ids   map[string]WordID
	words []string
}

// New creates a vocabulary with the NULL word pre-interned at id 0.
func New() *Vocabulary {
	v := &Vocabulary{
		ids:   make(map[string]WordID),
		words: make([]string, 0, 1024),
	}
	v.ids[NullToken] = Null
	v.words = append(v.words, NullToken)
	return v
}

// Add returns the id for tok, interning it if unseen.
func (v *Vocabulary) Add(tok string) WordID {
	v.mu.RLock()
	id, ok := v.ids[tok]
	v.mu.RUnlock()
	if ok {
		return id
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if id, ok := v.ids[tok]; ok {
		return id
	}
	id = WordID(len(v.words))
	v.ids[tok] = id
	v.words = append(v.words, tok)
	return id
}

// AddAll interns every token in toks and returns their ids.
func (v *Vocabulary) AddAll(toks []string) []WordID {
	ids := make([]WordID, len(toks))
	for i, tok := range toks {
		ids[i] = v.Add(tok)
	}
	return ids
}

// Lookup returns the id for tok, or None if it was never interned.
func (v *Vocabulary) Lookup(tok string) WordID {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if id, ok := v.ids[tok]; ok {
		return id
	}
	return None
}

// Word returns the surface form for id. Unknown ids return the empty string.
func (v *Vocabulary) Word(id WordID) string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if id < 0 || int(id) >= len(v.words) {
		return ""
	}
	return v.words[id]
}

// Size returns the number of interned tokens, including NULL.
func (v *Vocabulary) Size() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.words)
}
