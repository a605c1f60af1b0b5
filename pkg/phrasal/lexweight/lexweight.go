// Package lexweight derives lexically-weighted phrase translation scores
// from the word-level co-occurrence counts. Two mutually exclusive
// algorithms are supported: the default link-averaged weight, which follows
// the intra-phrase alignment, and the max-based weight, which considers
// every token co-occurrence and needs no alignment at all.
package lexweight

import (
	"log/slog"

	"github.com/chagge/phrasal/pkg/phrasal/align"
	"github.com/chagge/phrasal/pkg/phrasal/config"
	"github.com/chagge/phrasal/pkg/phrasal/counts"
	"github.com/chagge/phrasal/pkg/phrasal/vocab"
)

// Estimator computes directional per-word translation probabilities and the
// two phrase-level lexical weights. It reads frozen count state and is safe
// for concurrent use once the counting passes have ended.
type Estimator struct {
	vocab  *vocab.Vocabulary
	counts *counts.Aggregator
	floor  float64
	ibm    bool
	debug  int
	log    *slog.Logger
}

// NewEstimator creates an estimator over the given count state.
func NewEstimator(v *vocab.Vocabulary, a *counts.Aggregator, cfg config.Config, log *slog.Logger) *Estimator {
	if log == nil {
		log = slog.Default()
	}
	return &Estimator{
		vocab:  v,
		counts: a,
		floor:  cfg.LexFloor,
		ibm:    cfg.IBMLexModel,
		debug:  cfg.DebugLevel,
		log:    log,
	}
}

// Prob returns the word translation probability P(f|e):
// joint(f,e) / target-marginal(e). Pairs or words never counted yield 0.
// Note that Prob(f,e) generally differs from ProbInv(f,e), since the
// normalization counts differ.
func (est *Estimator) Prob(f, e vocab.WordID) float64 {
	joint, ok := est.counts.WordJoint(f, e)
	if !ok {
		return 0.0
	}
	marginal, ok := est.counts.TargetMarginal(e)
	if !ok {
		return 0.0
	}
	return float64(joint) / float64(marginal)
}

// ProbInv returns the word translation probability P(e|f):
// joint(f,e) / source-marginal(f). Pairs or words never counted yield 0.
func (est *Estimator) ProbInv(f, e vocab.WordID) float64 {
	joint, ok := est.counts.WordJoint(f, e)
	if !ok {
		return 0.0
	}
	marginal, ok := est.counts.SourceMarginal(f)
	if !ok {
		return 0.0
	}
	return float64(joint) / float64(marginal)
}

// Weights returns the phrase-level lexical weights (lex(f|e), lex(e|f)) for
// c under the configured algorithm.
func (est *Estimator) Weights(c *align.Candidate) (lexFE, lexEF float64) {
	if est.ibm {
		return est.maxWeight(c), est.maxWeightInv(c)
	}
	return est.linkedWeight(c), est.linkedWeightInv(c)
}

// linkedWeight computes lex(f|e): every source position must be explained,
// either by averaging P(f_i|e_j) over its alignment links or, unaligned, by
// P(f_i|NULL). A position whose average is exactly zero contributes the
// floor instead, so the product never collapses to zero.
func (est *Estimator) linkedWeight(c *align.Candidate) float64 {
	lex := 1.0
	for fi, tok := range c.Source {
		if tok == align.GapToken {
			continue
		}
		f := est.vocab.Lookup(tok)
		wSum := 0.0
		if len(c.SourceToTarget[fi]) == 0 {
			wSum = est.Prob(f, vocab.Null)
		} else {
			for _, ei := range c.SourceToTarget[fi] {
				wSum += est.Prob(f, est.vocab.Lookup(c.Target[ei]))
			}
			wSum /= float64(len(c.SourceToTarget[fi]))
		}
		if est.debug >= 1 {
			est.log.Debug("lexical weight term", "dir", "f|e", "word", tok, "w", wSum)
		}
		if wSum == 0 {
			wSum = est.floor
		}
		lex *= wSum
	}
	return lex
}

// linkedWeightInv mirrors linkedWeight for lex(e|f), iterating target
// positions and averaging over their inverse links.
func (est *Estimator) linkedWeightInv(c *align.Candidate) float64 {
	lex := 1.0
	for ei, tok := range c.Target {
		if tok == align.GapToken {
			continue
		}
		e := est.vocab.Lookup(tok)
		wSum := 0.0
		if len(c.TargetToSource[ei]) == 0 {
			wSum = est.ProbInv(vocab.Null, e)
		} else {
			for _, fi := range c.TargetToSource[ei] {
				wSum += est.ProbInv(est.vocab.Lookup(c.Source[fi]), e)
			}
			wSum /= float64(len(c.TargetToSource[ei]))
		}
		if est.debug >= 1 {
			est.log.Debug("lexical weight term", "dir", "e|f", "word", tok, "w", wSum)
		}
		if wSum == 0 {
			wSum = est.floor
		}
		lex *= wSum
	}
	return lex
}

// maxWeight computes the max-based lex(f|e): each source token contributes
// its best single-word probability over every target position plus NULL,
// floored at the configured minimum. No intra-phrase alignment is needed.
func (est *Estimator) maxWeight(c *align.Candidate) float64 {
	lex := 1.0
	for _, tok := range c.Source {
		f := est.vocab.Lookup(tok)
		wMax := est.floor
		for _, etok := range c.Target {
			if w := est.Prob(f, est.vocab.Lookup(etok)); w > wMax {
				wMax = w
			}
		}
		if w := est.Prob(f, vocab.Null); w > wMax {
			wMax = w
		}
		if est.debug >= 1 {
			est.log.Debug("lexical weight term", "dir", "f|e", "word", tok, "w", wMax)
		}
		lex *= wMax
	}
	return lex
}

// maxWeightInv mirrors maxWeight for lex(e|f).
func (est *Estimator) maxWeightInv(c *align.Candidate) float64 {
	lex := 1.0
	for _, tok := range c.Target {
		e := est.vocab.Lookup(tok)
		wMax := est.floor
		for _, ftok := range c.Source {
			if w := est.ProbInv(est.vocab.Lookup(ftok), e); w > wMax {
				wMax = w
			}
		}
		if w := est.ProbInv(vocab.Null, e); w > wMax {
			wMax = w
		}
		if est.debug >= 1 {
			est.log.Debug("lexical weight term", "dir", "e|f", "word", tok, "w", wMax)
		}
		lex *= wMax
	}
	return lex
}
