// Package phrasal is the offline statistics engine of a phrase-based
// translation model: it aggregates word- and phrase-level counts over a
// word-aligned bilingual corpus and scores phrase-pair candidates with
// relative-frequency and lexically-weighted translation features.
package phrasal

import (
	"context"
	"crypto/rand"
	"io"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/chagge/phrasal/pkg/phrasal/align"
	"github.com/chagge/phrasal/pkg/phrasal/check"
	"github.com/chagge/phrasal/pkg/phrasal/collect"
	"github.com/chagge/phrasal/pkg/phrasal/config"
	"github.com/chagge/phrasal/pkg/phrasal/counts"
	"github.com/chagge/phrasal/pkg/phrasal/lexweight"
	"github.com/chagge/phrasal/pkg/phrasal/score"
	"github.com/chagge/phrasal/pkg/phrasal/store"
	"github.com/chagge/phrasal/pkg/phrasal/template"
	"github.com/chagge/phrasal/pkg/phrasal/vocab"
)

// Extractor wires the vocabulary, count aggregator, phrase-pair registry,
// lexical weight estimator and feature scorer behind one value. State is
// mutated only during the counting passes and read-only afterwards; no
// phase runs readers and writers concurrently.
type Extractor struct {
	cfg   config.Config
	log   *slog.Logger
	runID string

	vocab     *vocab.Vocabulary
	counts    *counts.Aggregator
	templates *template.Registry
	lex       *lexweight.Estimator
	scorer    *score.Scorer
}

// New creates an extractor for one run.
func New(cfg config.Config, log *slog.Logger) (*Extractor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}

	v := vocab.New()
	agg := counts.NewAggregator()
	est := lexweight.NewEstimator(v, agg, cfg, log)
	x := &Extractor{
		cfg:       cfg,
		log:       log,
		runID:     ulid.MustNew(ulid.Now(), ulid.Monotonic(rand.Reader, 0)).String(),
		vocab:     v,
		counts:    agg,
		templates: template.NewRegistry(),
		lex:       est,
		scorer:    score.NewScorer(agg, est, cfg, log),
	}
	x.log.Info("extractor created",
		"run_id", x.runID, "exact", cfg.Exact, "passes", cfg.Passes(),
		"phi_filter", cfg.PhiFilter, "lex_filter", cfg.LexFilter,
		"ibm_lex_model", cfg.IBMLexModel)
	return x, nil
}

// RunID returns the run identifier stamped on snapshots and log lines.
func (x *Extractor) RunID() string { return x.runID }

// Passes returns the number of corpus passes the configuration requires.
func (x *Extractor) Passes() int { return x.cfg.Passes() }

// ObserveSentence accumulates word-level counts for one sentence pair. It
// runs on every pass: each alignment link counts (f,e), and tokens without
// links count against the NULL word on the opposite side.
func (x *Extractor) ObserveSentence(sp align.SentencePair) {
	fIDs := x.vocab.AddAll(sp.Source)
	eIDs := x.vocab.AddAll(sp.Target)

	for fi, f := range fIDs {
		for _, ei := range sp.SourceToTarget[fi] {
			x.addLink(f, eIDs[ei], sp.Source[fi], sp.Target[ei])
		}
		if len(sp.SourceToTarget[fi]) == 0 {
			x.addLink(f, vocab.Null, sp.Source[fi], vocab.NullToken)
		}
	}
	for ei, e := range eIDs {
		if len(sp.TargetToSource[ei]) == 0 {
			x.addLink(vocab.Null, e, vocab.NullToken, sp.Target[ei])
		}
	}
}

func (x *Extractor) addLink(f, e vocab.WordID, fTok, eTok string) {
	if x.cfg.DebugLevel >= 2 {
		x.log.Debug("word pair count", "f", fTok, "e", eTok)
	}
	x.counts.AddLink(f, e)
}

// ObserveCandidate registers a phrase-pair candidate, assigning its ids in
// place, and accumulates its phrase-level counts on the designated final
// pass only. In exact mode the first pass is discovery-only, so every
// marginal denominator reflects the entire corpus.
func (x *Extractor) ObserveCandidate(pass int, c *align.Candidate) {
	x.templates.Register(c)
	if pass+1 != x.cfg.Passes() {
		return
	}
	if x.cfg.DebugLevel >= 2 {
		x.log.Debug("phrase pair count",
			"source", c.SourcePhrase(), "target", c.TargetPhrase(),
			"pair_id", c.PairID, "src_id", c.SourceID, "tgt_id", c.TargetID)
	}
	x.counts.AddPhrase(c.PairID, c.SourceID, c.TargetID)
}

// Train runs the configured counting passes over the corpus, sharding each
// pass across worker goroutines. Per-resource locking makes the per-key
// totals order-independent, so the resulting phi values do not depend on
// how the final pass was sharded.
func (x *Extractor) Train(ctx context.Context, corpus []align.SentencePair) error {
	workers := x.cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	for pass := 0; pass < x.cfg.Passes(); pass++ {
		start := time.Now()
		g, ctx := errgroup.WithContext(ctx)
		for w := 0; w < workers; w++ {
			shard := w
			g.Go(func() error {
				for i := shard; i < len(corpus); i += workers {
					if err := ctx.Err(); err != nil {
						return err
					}
					sp := corpus[i]
					x.ObserveSentence(sp)
					for _, c := range collect.Phrases(sp, x.cfg.MaxPhraseLen) {
						x.ObserveCandidate(pass, c)
					}
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		x.log.Info("pass complete",
			"run_id", x.runID, "pass", pass+1, "of", x.cfg.Passes(),
			"sentences", len(corpus), "phrase_pairs", x.templates.Len(),
			"vocab", x.vocab.Size(), "elapsed", time.Since(start))
	}
	return nil
}

// Score emits the feature vector for a registered candidate, or false when
// the candidate is rejected. Only call after all counting passes are done.
func (x *Extractor) Score(c *align.Candidate) ([]float64, bool) {
	return x.scorer.Score(c)
}

// Candidates returns the number of registered phrase pairs.
func (x *Extractor) Candidates() int {
	return x.templates.Len()
}

// Candidate reconstructs the registered phrase pair with the given pair id.
func (x *Extractor) Candidate(pairID int32) (*align.Candidate, error) {
	return x.templates.Candidate(pairID)
}

// CheckAgainst validates computed features against a reference phrase
// table; see the check package.
func (x *Extractor) CheckAgainst(r io.Reader) ([]check.Mismatch, error) {
	checker := check.New(x.templates, x.scorer, check.DefaultTolerance, x.log)
	return checker.CheckAgainst(r)
}

// Snapshot exports the frozen count state keyed by surface strings.
func (x *Extractor) Snapshot() store.Snapshot {
	snap := store.Snapshot{
		RunID:     x.runID,
		CreatedAt: time.Now().UTC(),
	}

	x.counts.RangeWordPairs(func(f, e vocab.WordID, count int64) {
		snap.WordPairs = append(snap.WordPairs, store.WordPairCount{
			Source: x.vocab.Word(f),
			Target: x.vocab.Word(e),
			Count:  count,
		})
	})
	x.counts.RangeSourceMarginals(func(f vocab.WordID, count int64) {
		snap.WordMarginals = append(snap.WordMarginals, store.WordMarginalCount{
			Side: store.SideSource, Word: x.vocab.Word(f), Count: count,
		})
	})
	x.counts.RangeTargetMarginals(func(e vocab.WordID, count int64) {
		snap.WordMarginals = append(snap.WordMarginals, store.WordMarginalCount{
			Side: store.SideTarget, Word: x.vocab.Word(e), Count: count,
		})
	})

	for id := int32(0); int(id) < x.templates.Len(); id++ {
		c, err := x.templates.Candidate(id)
		if err != nil {
			continue
		}
		joint, _, _, ok := x.counts.PhraseCounts(c.PairID, c.SourceID, c.TargetID)
		if !ok {
			continue
		}
		snap.PhrasePairs = append(snap.PhrasePairs, store.PhrasePairCount{
			Source: c.SourcePhrase(),
			Target: c.TargetPhrase(),
			Links:  c.LinkString(),
			Count:  joint,
		})
	}
	x.templates.RangeSourcePhrases(func(phrase string, id int32) {
		snap.PhraseMarginals = append(snap.PhraseMarginals, store.PhraseMarginalCount{
			Side: store.SideSource, Phrase: phrase, Count: x.counts.PhraseSourceMarginal(id),
		})
	})
	x.templates.RangeTargetPhrases(func(phrase string, id int32) {
		snap.PhraseMarginals = append(snap.PhraseMarginals, store.PhraseMarginalCount{
			Side: store.SideTarget, Phrase: phrase, Count: x.counts.PhraseTargetMarginal(id),
		})
	})

	return snap
}

// Restore replays a snapshot into a fresh extractor. Ids may differ from
// the run that produced the snapshot, but scores are identical.
func (x *Extractor) Restore(snap store.Snapshot) error {
	if snap.RunID != "" {
		x.runID = snap.RunID
	}

	for _, wp := range snap.WordPairs {
		x.counts.AddWordJoint(x.vocab.Add(wp.Source), x.vocab.Add(wp.Target), wp.Count)
	}
	for _, wm := range snap.WordMarginals {
		switch wm.Side {
		case store.SideSource:
			x.counts.AddSourceMarginal(x.vocab.Add(wm.Word), wm.Count)
		case store.SideTarget:
			x.counts.AddTargetMarginal(x.vocab.Add(wm.Word), wm.Count)
		}
	}

	for _, pp := range snap.PhrasePairs {
		links, err := align.ParseLinks(pp.Links)
		if err != nil {
			return err
		}
		c, err := align.NewCandidate(strings.Fields(pp.Source), strings.Fields(pp.Target), links)
		if err != nil {
			return err
		}
		for _, tok := range c.Source {
			x.vocab.Add(tok)
		}
		for _, tok := range c.Target {
			x.vocab.Add(tok)
		}
		x.templates.Register(c)
		x.counts.AddPhraseJoint(c.PairID, pp.Count)
	}
	for _, pm := range snap.PhraseMarginals {
		switch pm.Side {
		case store.SideSource:
			x.counts.AddPhraseSourceMarginal(x.templates.SourceKey(pm.Phrase, true), pm.Count)
		case store.SideTarget:
			x.counts.AddPhraseTargetMarginal(x.templates.TargetKey(pm.Phrase, true), pm.Count)
		}
	}

	x.log.Info("model restored",
		"run_id", x.runID,
		"word_pairs", len(snap.WordPairs), "phrase_pairs", len(snap.PhrasePairs))
	return nil
}
