package score

import (
	"testing"

	"github.com/chagge/phrasal/pkg/phrasal/align"
	"github.com/chagge/phrasal/pkg/phrasal/config"
	"github.com/chagge/phrasal/pkg/phrasal/counts"
	"github.com/chagge/phrasal/pkg/phrasal/lexweight"
	"github.com/chagge/phrasal/pkg/phrasal/template"
	"github.com/chagge/phrasal/pkg/phrasal/vocab"
)

// fixture: corpus {("a b","x y", 0-0 1-1), ("a","x", 0-0)}, exact counts.
type fixture struct {
	reg    *template.Registry
	agg    *counts.Aggregator
	voc    *vocab.Vocabulary
	ab, a  *align.Candidate
	scorer func(cfg config.Config) *Scorer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	voc := vocab.New()
	agg := counts.NewAggregator()
	reg := template.NewRegistry()

	agg.AddLink(voc.Add("a"), voc.Add("x"))
	agg.AddLink(voc.Add("b"), voc.Add("y"))
	agg.AddLink(voc.Lookup("a"), voc.Lookup("x"))

	ab := mustCandidate(t, []string{"a", "b"}, []string{"x", "y"}, "0-0 1-1")
	a := mustCandidate(t, []string{"a"}, []string{"x"}, "0-0")
	reg.Register(ab)
	reg.Register(a)
	agg.AddPhrase(ab.PairID, ab.SourceID, ab.TargetID)
	agg.AddPhrase(a.PairID, a.SourceID, a.TargetID)
	agg.AddPhrase(a.PairID, a.SourceID, a.TargetID)

	return &fixture{
		reg: reg, agg: agg, voc: voc, ab: ab, a: a,
		scorer: func(cfg config.Config) *Scorer {
			est := lexweight.NewEstimator(voc, agg, cfg, nil)
			return NewScorer(agg, est, cfg, nil)
		},
	}
}

func mustCandidate(t *testing.T, src, tgt []string, links string) *align.Candidate {
	t.Helper()
	parsed, err := align.ParseLinks(links)
	if err != nil {
		t.Fatal(err)
	}
	c, err := align.NewCandidate(src, tgt, parsed)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestScoreFeatureOrder(t *testing.T) {
	fx := newFixture(t)
	s := fx.scorer(config.Default())

	feats, ok := s.Score(fx.ab)
	if !ok {
		t.Fatal("candidate with counts must score")
	}
	if len(feats) != 4 {
		t.Fatalf("feature count = %d, want 4", len(feats))
	}
	// counts 1/1/1, all word probabilities 1: every feature is 1.0
	for i, f := range feats {
		if f != 1.0 {
			t.Errorf("feats[%d] = %g, want 1.0", i, f)
		}
	}
}

func TestScorePhiValues(t *testing.T) {
	fx := newFixture(t)
	s := fx.scorer(config.Default())

	feats, ok := s.Score(fx.a)
	if !ok {
		t.Fatal("candidate with counts must score")
	}
	// joint=2, both marginals=2
	if feats[0] != 1.0 || feats[2] != 1.0 {
		t.Errorf("phi features = %g / %g, want 1.0", feats[0], feats[2])
	}
	for i, f := range feats {
		if f <= 0 || f > 1 {
			t.Errorf("feats[%d] = %g, want within (0, 1]", i, f)
		}
	}
}

func TestScorePhiOnly(t *testing.T) {
	fx := newFixture(t)
	cfg := config.Default()
	cfg.PhiOnly = true
	s := fx.scorer(cfg)

	feats, ok := s.Score(fx.ab)
	if !ok {
		t.Fatal("candidate with counts must score")
	}
	if len(feats) != 2 {
		t.Fatalf("phi-only feature count = %d, want 2", len(feats))
	}
}

func TestScorePrintCounts(t *testing.T) {
	fx := newFixture(t)
	cfg := config.Default()
	cfg.PrintCounts = true
	s := fx.scorer(cfg)

	feats, ok := s.Score(fx.a)
	if !ok {
		t.Fatal("candidate with counts must score")
	}
	if len(feats) != 7 {
		t.Fatalf("print-counts feature count = %d, want 7", len(feats))
	}
	if feats[4] != 2 || feats[5] != 2 || feats[6] != 2 {
		t.Errorf("raw counts = %g/%g/%g, want 2/2/2", feats[4], feats[5], feats[6])
	}
}

func TestScorePhiFilterOneSided(t *testing.T) {
	voc := vocab.New()
	agg := counts.NewAggregator()
	reg := template.NewRegistry()
	agg.AddLink(voc.Add("a"), voc.Add("x"))

	// "a" seen twice as a source phrase but only once with "x":
	// phi(e|f) = 0.5 while phi(f|e) = 1.0
	ax := mustCandidate(t, []string{"a"}, []string{"x"}, "0-0")
	ay := mustCandidate(t, []string{"a"}, []string{"y"}, "0-0")
	reg.Register(ax)
	reg.Register(ay)
	agg.AddPhrase(ax.PairID, ax.SourceID, ax.TargetID)
	agg.AddPhrase(ay.PairID, ay.SourceID, ay.TargetID)

	cfg := config.Default()
	cfg.PhiFilter = 0.75
	est := lexweight.NewEstimator(voc, agg, cfg, nil)
	s := NewScorer(agg, est, cfg, nil)

	if _, ok := s.Score(ax); ok {
		t.Error("phi(e|f) below the threshold must be pruned")
	}

	// swapped counts: phi(e|f) = 1.0, phi(f|e) = 0.5; the f|e side
	// must not trigger pruning
	voc2 := vocab.New()
	agg2 := counts.NewAggregator()
	reg2 := template.NewRegistry()
	agg2.AddLink(voc2.Add("a"), voc2.Add("x"))
	agg2.AddLink(voc2.Add("b"), voc2.Lookup("x"))

	ax2 := mustCandidate(t, []string{"a"}, []string{"x"}, "0-0")
	bx2 := mustCandidate(t, []string{"b"}, []string{"x"}, "0-0")
	reg2.Register(ax2)
	reg2.Register(bx2)
	agg2.AddPhrase(ax2.PairID, ax2.SourceID, ax2.TargetID)
	agg2.AddPhrase(bx2.PairID, bx2.SourceID, bx2.TargetID)

	est2 := lexweight.NewEstimator(voc2, agg2, cfg, nil)
	s2 := NewScorer(agg2, est2, cfg, nil)
	feats, ok := s2.Score(ax2)
	if !ok {
		t.Fatal("pruning must ignore the f|e direction")
	}
	if feats[0] != 0.5 || feats[2] != 1.0 {
		t.Errorf("phi features = %g / %g, want 0.5 / 1.0", feats[0], feats[2])
	}
}

func TestScoreLexFilter(t *testing.T) {
	fx := newFixture(t)
	cfg := config.Default()
	cfg.LexFilter = 2.0 // nothing can pass
	s := fx.scorer(cfg)

	if _, ok := s.Score(fx.ab); ok {
		t.Error("lex(e|f) below the threshold must be pruned")
	}
}

func TestScoreUncountedCandidate(t *testing.T) {
	fx := newFixture(t)
	s := fx.scorer(config.Default())

	// registered in some other run: ids beyond the counted range
	stray := mustCandidate(t, []string{"q"}, []string{"r"}, "0-0")
	stray.PairID, stray.SourceID, stray.TargetID = 99, 99, 99

	if _, ok := s.Score(stray); ok {
		t.Error("ids outside the counted range must be rejected, not scored")
	}
}
