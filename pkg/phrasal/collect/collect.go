// Package collect enumerates consistent phrase-pair candidates from an
// aligned sentence pair. It is the upstream collaborator of the counting
// engine: the core packages only consume the candidates (and the ids a
// registry assigns to them), never this enumeration.
package collect

import (
	"github.com/chagge/phrasal/pkg/phrasal/align"
)

// Phrases extracts every consistent phrase pair up to maxLen tokens per
// side. A source span [i1,i2] pairs with the minimal target span covering
// its links, provided no link leaves either span; spans without any link
// are skipped.
func Phrases(sp align.SentencePair, maxLen int) []*align.Candidate {
	var out []*align.Candidate
	n := len(sp.Source)
	for i1 := 0; i1 < n; i1++ {
		for i2 := i1; i2 < n && i2-i1 < maxLen; i2++ {
			j1, j2 := targetSpan(sp, i1, i2)
			if j1 < 0 {
				continue
			}
			if j2-j1 >= maxLen {
				continue
			}
			if !consistent(sp, i1, i2, j1, j2) {
				continue
			}
			c, err := candidate(sp, i1, i2, j1, j2)
			if err != nil {
				continue
			}
			out = append(out, c)
		}
	}
	return out
}

// targetSpan returns the minimal target span covering all links out of the
// source span, or (-1, -1) when the span has no links.
func targetSpan(sp align.SentencePair, i1, i2 int) (int, int) {
	j1, j2 := -1, -1
	for i := i1; i <= i2; i++ {
		for _, j := range sp.SourceToTarget[i] {
			if j1 < 0 || j < j1 {
				j1 = j
			}
			if j > j2 {
				j2 = j
			}
		}
	}
	return j1, j2
}

// consistent reports whether no target position in [j1,j2] links outside
// [i1,i2].
func consistent(sp align.SentencePair, i1, i2, j1, j2 int) bool {
	for j := j1; j <= j2; j++ {
		for _, i := range sp.TargetToSource[j] {
			if i < i1 || i > i2 {
				return false
			}
		}
	}
	return true
}

func candidate(sp align.SentencePair, i1, i2, j1, j2 int) (*align.Candidate, error) {
	var links []align.Link
	for i := i1; i <= i2; i++ {
		for _, j := range sp.SourceToTarget[i] {
			links = append(links, align.Link{Source: i - i1, Target: j - j1})
		}
	}
	return align.NewCandidate(sp.Source[i1:i2+1], sp.Target[j1:j2+1], links)
}
