package phrasal

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/chagge/phrasal/pkg/phrasal/align"
	"github.com/chagge/phrasal/pkg/phrasal/config"
)

func sentence(t *testing.T, src, tgt, links string) align.SentencePair {
	t.Helper()
	parsed, err := align.ParseLinks(links)
	if err != nil {
		t.Fatal(err)
	}
	sp, err := align.NewSentencePair(strings.Fields(src), strings.Fields(tgt), parsed)
	if err != nil {
		t.Fatal(err)
	}
	return sp
}

func testCorpus(t *testing.T) []align.SentencePair {
	t.Helper()
	return []align.SentencePair{
		sentence(t, "das haus", "the house", "0-0 1-1"),
		sentence(t, "das buch", "the book", "0-0 1-1"),
		sentence(t, "ein haus", "a house", "0-0 1-1"),
		sentence(t, "das", "the", "0-0"),
		sentence(t, "haus klein", "small house", "0-1 1-0"),
		sentence(t, "buch", "book", "0-0"),
	}
}

// scores for every registered candidate, keyed by phrase-pair string
func scoreMap(t *testing.T, x *Extractor) map[string][]float64 {
	t.Helper()
	scores := make(map[string][]float64)
	for id := int32(0); int(id) < x.Candidates(); id++ {
		c, err := x.Candidate(id)
		if err != nil {
			t.Fatal(err)
		}
		feats, ok := x.Score(c)
		if !ok {
			continue
		}
		scores[c.SourcePhrase()+" ||| "+c.TargetPhrase()] = feats
	}
	return scores
}

func TestTrainExactDuplicateAccumulates(t *testing.T) {
	cfg := config.Default()
	cfg.PrintCounts = true
	cfg.Workers = 1
	x, err := New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}

	corpus := []align.SentencePair{
		sentence(t, "a", "x", "0-0"),
		sentence(t, "a", "x", "0-0"),
	}
	if err := x.Train(context.Background(), corpus); err != nil {
		t.Fatal(err)
	}

	if x.Candidates() != 1 {
		t.Fatalf("registered %d candidates, want 1", x.Candidates())
	}
	scores := scoreMap(t, x)
	feats, ok := scores["a ||| x"]
	if !ok {
		t.Fatal("a/x must be scorable")
	}
	if len(feats) != 7 {
		t.Fatalf("print-counts feature count = %d, want 7", len(feats))
	}
	// a second occurrence is a second count of the same pair, not a new entry
	if feats[4] != 2 || feats[5] != 2 || feats[6] != 2 {
		t.Errorf("raw counts = %g/%g/%g, want 2/2/2", feats[4], feats[5], feats[6])
	}
	for i := 0; i < 4; i++ {
		if feats[i] != 1.0 {
			t.Errorf("feats[%d] = %g, want 1.0", i, feats[i])
		}
	}
}

func TestTrainScoresWithinRange(t *testing.T) {
	cfg := config.Default()
	x, err := New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := x.Train(context.Background(), testCorpus(t)); err != nil {
		t.Fatal(err)
	}

	scores := scoreMap(t, x)
	if len(scores) == 0 {
		t.Fatal("training must register scorable candidates")
	}
	for key, feats := range scores {
		if len(feats) != 4 {
			t.Fatalf("%s: feature count = %d, want 4", key, len(feats))
		}
		for i, f := range feats {
			if f <= 0 || f > 1 {
				t.Errorf("%s: feats[%d] = %g, want within (0, 1]", key, i, f)
			}
		}
	}
	// "das" translates as "the" in every observed context
	feats, ok := scores["das ||| the"]
	if !ok {
		t.Fatal("das/the must be scorable")
	}
	if feats[2] != 1.0 {
		t.Errorf("phi(e|f) for das/the = %g, want 1.0", feats[2])
	}
}

func TestTrainWorkerCountIndependence(t *testing.T) {
	corpus := testCorpus(t)

	run := func(workers int) map[string][]float64 {
		cfg := config.Default()
		cfg.Workers = workers
		x, err := New(cfg, nil)
		if err != nil {
			t.Fatal(err)
		}
		if err := x.Train(context.Background(), corpus); err != nil {
			t.Fatal(err)
		}
		return scoreMap(t, x)
	}

	serial := run(1)
	parallel := run(4)

	if len(serial) != len(parallel) {
		t.Fatalf("candidate sets differ: %d vs %d", len(serial), len(parallel))
	}
	for key, want := range serial {
		got, ok := parallel[key]
		if !ok {
			t.Errorf("%s: missing from the sharded run", key)
			continue
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("%s: feats[%d] = %g sharded vs %g serial", key, i, got[i], want[i])
			}
		}
	}
}

func TestFastModeSinglePass(t *testing.T) {
	cfg := config.Default()
	cfg.Exact = false
	x, err := New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if x.Passes() != 1 {
		t.Fatalf("fast mode Passes = %d, want 1", x.Passes())
	}
	if err := x.Train(context.Background(), testCorpus(t)); err != nil {
		t.Fatal(err)
	}
	if len(scoreMap(t, x)) == 0 {
		t.Error("fast mode must still produce scorable candidates")
	}
}

func TestSnapshotRestoreScores(t *testing.T) {
	cfg := config.Default()
	x, err := New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := x.Train(context.Background(), testCorpus(t)); err != nil {
		t.Fatal(err)
	}
	want := scoreMap(t, x)

	snap := x.Snapshot()
	if snap.RunID != x.RunID() {
		t.Errorf("snapshot run id = %q, want %q", snap.RunID, x.RunID())
	}

	y, err := New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := y.Restore(snap); err != nil {
		t.Fatal(err)
	}
	if y.RunID() != x.RunID() {
		t.Errorf("restored run id = %q, want %q", y.RunID(), x.RunID())
	}

	got := scoreMap(t, y)
	if len(got) != len(want) {
		t.Fatalf("restored candidate set has %d entries, want %d", len(got), len(want))
	}
	for key, wf := range want {
		gf, ok := got[key]
		if !ok {
			t.Errorf("%s: missing after restore", key)
			continue
		}
		for i := range wf {
			if math.Abs(gf[i]-wf[i]) > 1e-12 {
				t.Errorf("%s: feats[%d] = %g restored vs %g trained", key, i, gf[i], wf[i])
			}
		}
	}
}

func TestCheckAgainstOwnTable(t *testing.T) {
	cfg := config.Default()
	x, err := New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := x.Train(context.Background(), testCorpus(t)); err != nil {
		t.Fatal(err)
	}

	// render the model's own phrase table and validate against it
	var table strings.Builder
	for id := int32(0); int(id) < x.Candidates(); id++ {
		c, err := x.Candidate(id)
		if err != nil {
			t.Fatal(err)
		}
		feats, ok := x.Score(c)
		if !ok {
			continue
		}
		values := make([]string, len(feats))
		for i, f := range feats {
			values[i] = strconv.FormatFloat(f, 'g', -1, 64)
		}
		fmt.Fprintf(&table, "%s ||| %s ||| %s ||| %s ||| %s\n",
			c.SourcePhrase(), c.TargetPhrase(), c.LinkString(), c.LinkString(),
			strings.Join(values, " "))
	}

	mismatches, err := x.CheckAgainst(strings.NewReader(table.String()))
	if err != nil {
		t.Fatal(err)
	}
	if len(mismatches) != 0 {
		t.Errorf("model disagrees with its own table: %+v", mismatches)
	}
}

func TestCheckAgainstFlagsAlteredTable(t *testing.T) {
	cfg := config.Default()
	x, err := New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	corpus := []align.SentencePair{sentence(t, "a", "x", "0-0")}
	if err := x.Train(context.Background(), corpus); err != nil {
		t.Fatal(err)
	}

	// every true feature is 1.0; halve one
	ref := "a ||| x ||| 0-0 ||| 0-0 ||| 1.0 1.0 0.5 1.0\n"
	mismatches, err := x.CheckAgainst(strings.NewReader(ref))
	if err != nil {
		t.Fatal(err)
	}
	if len(mismatches) != 1 || mismatches[0].Feature != 2 {
		t.Errorf("mismatches = %+v, want one at feature 2", mismatches)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.LexFloor = -1
	if _, err := New(cfg, nil); err == nil {
		t.Error("invalid configuration must be rejected at construction")
	}
}
