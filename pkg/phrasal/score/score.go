// Package score combines phrase-level counts and lexical weights into the
// final per-candidate feature vector, applying the pruning thresholds.
package score

import (
	"log/slog"

	"github.com/chagge/phrasal/pkg/phrasal/align"
	"github.com/chagge/phrasal/pkg/phrasal/config"
	"github.com/chagge/phrasal/pkg/phrasal/counts"
	"github.com/chagge/phrasal/pkg/phrasal/lexweight"
)

// Scorer emits translation model features from frozen count state. It is a
// pure function of that state: safe to call repeatedly and concurrently
// once the counting phase has ended.
type Scorer struct {
	counts *counts.Aggregator
	lex    *lexweight.Estimator
	cfg    config.Config
	log    *slog.Logger
}

// NewScorer creates a scorer over the given count state and estimator.
func NewScorer(a *counts.Aggregator, est *lexweight.Estimator, cfg config.Config, log *slog.Logger) *Scorer {
	if log == nil {
		log = slog.Default()
	}
	return &Scorer{counts: a, lex: est, cfg: cfg, log: log}
}

// Score returns the feature vector for c, or ok false when the candidate is
// rejected: either its ids were never counted (a recoverable data-quality
// condition, logged and dropped) or it fell below a pruning threshold.
//
// Pruning is deliberately one-sided: only phi(e|f) and lex(e|f) are checked
// against their thresholds, never the f|e direction. The emitted order is
// phi(f|e), lex(f|e), phi(e|f), lex(e|f); phi-only mode drops the lexical
// weights and print-counts mode appends the three raw counts.
func (s *Scorer) Score(c *align.Candidate) ([]float64, bool) {
	joint, srcCount, tgtCount, ok := s.counts.PhraseCounts(c.PairID, c.SourceID, c.TargetID)
	if !ok {
		s.log.Warn("no counts for phrase pair",
			"source", c.SourcePhrase(), "target", c.TargetPhrase(),
			"pair_id", c.PairID, "src_id", c.SourceID, "tgt_id", c.TargetID)
		return nil, false
	}

	phiFE := float64(joint) / float64(tgtCount)
	phiEF := float64(joint) / float64(srcCount)
	if s.cfg.PhiFilter > phiEF {
		return nil, false
	}

	lexFE, lexEF := s.lex.Weights(c)
	if s.cfg.LexFilter > lexEF {
		return nil, false
	}

	if s.cfg.PrintCounts {
		return []float64{phiFE, lexFE, phiEF, lexEF,
			float64(joint), float64(tgtCount), float64(srcCount)}, true
	}
	if s.cfg.PhiOnly {
		return []float64{phiFE, phiEF}, true
	}
	return []float64{phiFE, lexFE, phiEF, lexEF}, true
}
