// Package align holds the aligned-corpus input types: sentence pairs with
// bidirectional word alignments, and phrase-pair candidates carrying the
// intra-phrase links and count-table ids used by scoring.
package align

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/chagge/phrasal/pkg/phrasal/internalerr"
)

// GapToken marks a structural gap inside a discontinuous phrase. Gap
// positions carry no lexical content and are skipped by link-averaged
// lexical weighting.
const GapToken = "<gap>"

// Unassigned is the value of a candidate id before registration.
const Unassigned int32 = -1

// Link is one word-alignment point: source position i aligned to target
// position j.
type Link struct {
	Source int
	Target int
}

// SentencePair is a tokenized sentence pair with its symmetrized word
// alignment in both directions.
type SentencePair struct {
	Source []string
	Target []string

	// SourceToTarget[i] lists the target positions linked to source
	// position i; TargetToSource is the inverse. Unaligned positions have
	// empty lists.
	SourceToTarget [][]int
	TargetToSource [][]int
}

// NewSentencePair builds a sentence pair from token sequences and alignment
// links, materializing both link directions. Links referencing positions
// outside either sentence are rejected.
func NewSentencePair(source, target []string, links []Link) (SentencePair, error) {
	sp := SentencePair{
		Source:         source,
		Target:         target,
		SourceToTarget: make([][]int, len(source)),
		TargetToSource: make([][]int, len(target)),
	}
	for _, l := range links {
		if l.Source < 0 || l.Source >= len(source) || l.Target < 0 || l.Target >= len(target) {
			return SentencePair{}, fmt.Errorf("link %d-%d out of range for %dx%d sentence: %w",
				l.Source, l.Target, len(source), len(target), internalerr.ErrBadAlignment)
		}
		sp.SourceToTarget[l.Source] = append(sp.SourceToTarget[l.Source], l.Target)
		sp.TargetToSource[l.Target] = append(sp.TargetToSource[l.Target], l.Source)
	}
	return sp, nil
}

// Candidate is a phrase-pair candidate: the aligned token sequences, the
// intra-phrase alignment links, and the three pre-assigned ids keying the
// phrase-level count vectors. Ids are Unassigned until a registry assigns
// them.
type Candidate struct {
	Source []string
	Target []string

	SourceToTarget [][]int
	TargetToSource [][]int

	PairID   int32
	SourceID int32
	TargetID int32
}

// NewCandidate builds a candidate from token sequences and phrase-internal
// links, with all ids Unassigned.
func NewCandidate(source, target []string, links []Link) (*Candidate, error) {
	sp, err := NewSentencePair(source, target, links)
	if err != nil {
		return nil, err
	}
	return &Candidate{
		Source:         sp.Source,
		Target:         sp.Target,
		SourceToTarget: sp.SourceToTarget,
		TargetToSource: sp.TargetToSource,
		PairID:         Unassigned,
		SourceID:       Unassigned,
		TargetID:       Unassigned,
	}, nil
}

// SourcePhrase returns the source tokens joined as one phrase string.
func (c *Candidate) SourcePhrase() string {
	return strings.Join(c.Source, " ")
}

// TargetPhrase returns the target tokens joined as one phrase string.
func (c *Candidate) TargetPhrase() string {
	return strings.Join(c.Target, " ")
}

// LinkString formats the candidate's links in canonical "i-j" order.
func (c *Candidate) LinkString() string {
	var links []Link
	for i, targets := range c.SourceToTarget {
		for _, j := range targets {
			links = append(links, Link{Source: i, Target: j})
		}
	}
	sort.Slice(links, func(a, b int) bool {
		if links[a].Source != links[b].Source {
			return links[a].Source < links[b].Source
		}
		return links[a].Target < links[b].Target
	})
	parts := make([]string, len(links))
	for i, l := range links {
		parts[i] = strconv.Itoa(l.Source) + "-" + strconv.Itoa(l.Target)
	}
	return strings.Join(parts, " ")
}

// ParseLinks parses a whitespace-separated "i-j" alignment string. An empty
// string is a valid, empty alignment.
func ParseLinks(s string) ([]Link, error) {
	fields := strings.Fields(s)
	links := make([]Link, 0, len(fields))
	for _, f := range fields {
		dash := strings.IndexByte(f, '-')
		if dash <= 0 || dash == len(f)-1 {
			return nil, fmt.Errorf("alignment point %q: %w", f, internalerr.ErrBadAlignment)
		}
		i, err := strconv.Atoi(f[:dash])
		if err != nil {
			return nil, fmt.Errorf("alignment point %q: %w", f, internalerr.ErrBadAlignment)
		}
		j, err := strconv.Atoi(f[dash+1:])
		if err != nil {
			return nil, fmt.Errorf("alignment point %q: %w", f, internalerr.ErrBadAlignment)
		}
		if i < 0 || j < 0 {
			return nil, fmt.Errorf("alignment point %q: %w", f, internalerr.ErrBadAlignment)
		}
		links = append(links, Link{Source: i, Target: j})
	}
	return links, nil
}
