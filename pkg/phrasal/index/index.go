// Package index provides the id-assignment structures behind the count
// vectors: an open-addressed index from integer pairs to dense ids, and a
// map-based single-integer analogue for per-side marginals.
package index

import "sync"

// fibonacci multiplier, spreads packed keys across the table
const mixConst = 0x9E3779B185EBCA87

const initialSlots = 1 << 10

// None is returned by lookup-only calls for absent keys.
const None int32 = -1

type pairSlot struct {
	key uint64
	id  int32
}

// PairIndex maps an ordered pair of int32s to a dense, permanently stable
// id via open-addressed linear probing. Assigned ids double as offsets into
// count vectors. Keys are packed into a single uint64, so lookups allocate
// nothing and the per-entry overhead is bounded at 16 bytes plus the
// reverse-lookup slot.
type PairIndex struct {
	mu    sync.RWMutex
	slots []pairSlot
	byID  []uint64
	shift uint
}

// NewPairIndex creates an empty pair index.
func NewPairIndex() *PairIndex {
	p := &PairIndex{
		slots: make([]pairSlot, initialSlots),
		shift: 64 - 10,
	}
	for i := range p.slots {
		p.slots[i].id = None
	}
	return p
}

func packPair(a, b int32) uint64 {
	return uint64(uint32(a))<<32 | uint64(uint32(b))
}

// IndexOf resolves the pair (a, b). With create false it returns None for
// absent pairs; with create true it returns the existing id or assigns the
// next sequential one. An existing pair never receives a second id.
func (p *PairIndex) IndexOf(a, b int32, create bool) int32 {
	key := packPair(a, b)

	p.mu.RLock()
	id := p.find(key)
	p.mu.RUnlock()
	if id != None || !create {
		return id
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if id := p.find(key); id != None {
		return id
	}
	if len(p.byID)*2 >= len(p.slots) {
		p.grow()
	}
	id = int32(len(p.byID))
	p.byID = append(p.byID, key)
	p.insert(key, id)
	return id
}

// Pair returns the key stored under id.
func (p *PairIndex) Pair(id int32) (a, b int32) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	key := p.byID[id]
	return int32(uint32(key >> 32)), int32(uint32(key))
}

// Size returns the number of assigned ids.
func (p *PairIndex) Size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.byID)
}

func (p *PairIndex) find(key uint64) int32 {
	mask := uint64(len(p.slots) - 1)
	i := (key * mixConst) >> p.shift
	for {
		s := p.slots[i&mask]
		if s.id == None {
			return None
		}
		if s.key == key {
			return s.id
		}
		i++
	}
}

func (p *PairIndex) insert(key uint64, id int32) {
	mask := uint64(len(p.slots) - 1)
	i := (key * mixConst) >> p.shift
	for p.slots[i&mask].id != None {
		i++
	}
	p.slots[i&mask] = pairSlot{key: key, id: id}
}

func (p *PairIndex) grow() {
	p.shift--
	p.slots = make([]pairSlot, len(p.slots)*2)
	for i := range p.slots {
		p.slots[i].id = None
	}
	for id, key := range p.byID {
		p.insert(key, int32(id))
	}
}

// WordIndex maps a single int32 to a dense id. It backs the per-side word
// marginal vectors, where the key population is small enough that a plain
// map needs no arena treatment.
type WordIndex struct {
	mu   sync.RWMutex
	ids  map[int32]int32
	byID []int32
}

// NewWordIndex creates an empty word index.
func NewWordIndex() *WordIndex {
	return &WordIndex{ids: make(map[int32]int32)}
}

// IndexOf resolves w. With create false it returns None for absent keys;
// with create true it returns the existing id or assigns the next one.
func (w *WordIndex) IndexOf(key int32, create bool) int32 {
	w.mu.RLock()
	id, ok := w.ids[key]
	w.mu.RUnlock()
	if ok {
		return id
	}
	if !create {
		return None
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if id, ok := w.ids[key]; ok {
		return id
	}
	id = int32(len(w.byID))
	w.ids[key] = id
	w.byID = append(w.byID, key)
	return id
}

// Key returns the key stored under id.
func (w *WordIndex) Key(id int32) int32 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.byID[id]
}

// Size returns the number of assigned ids.
func (w *WordIndex) Size() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.byID)
}
