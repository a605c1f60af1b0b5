package template

import (
	"errors"
	"testing"

	"github.com/chagge/phrasal/pkg/phrasal/align"
	"github.com/chagge/phrasal/pkg/phrasal/internalerr"
)

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

func TestRegisterAssignsIds(t *testing.T) {
	r := NewRegistry()
	c := mustCandidate(t, []string{"das", "haus"}, []string{"the", "house"}, "0-0 1-1")

	r.Register(c)
	if c.PairID != 0 || c.SourceID != 0 || c.TargetID != 0 {
		t.Errorf("first registration ids = %d/%d/%d, want 0/0/0", c.PairID, c.SourceID, c.TargetID)
	}
	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1", r.Len())
	}
}

func TestRegisterDuplicateKeepsIds(t *testing.T) {
	r := NewRegistry()
	first := mustCandidate(t, []string{"das", "haus"}, []string{"the", "house"}, "0-0 1-1")
	second := mustCandidate(t, []string{"das", "haus"}, []string{"the", "house"}, "0-0 1-1")

	r.Register(first)
	r.Register(second)
	if second.PairID != first.PairID {
		t.Errorf("duplicate phrase pair got pair id %d, want %d", second.PairID, first.PairID)
	}
	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1", r.Len())
	}
}

func TestRegisterSharesMarginalIds(t *testing.T) {
	r := NewRegistry()
	a := mustCandidate(t, []string{"das"}, []string{"the"}, "0-0")
	b := mustCandidate(t, []string{"das"}, []string{"that"}, "0-0")

	r.Register(a)
	r.Register(b)
	if a.SourceID != b.SourceID {
		t.Error("same source phrase must share its marginal id")
	}
	if a.TargetID == b.TargetID {
		t.Error("different target phrases must not share a marginal id")
	}
	if a.PairID == b.PairID {
		t.Error("different pairs must not share a pair id")
	}
}

func TestCandidateRoundTrip(t *testing.T) {
	r := NewRegistry()
	c := mustCandidate(t, []string{"das", "haus"}, []string{"the", "house"}, "0-0 1-1")
	r.Register(c)

	got, err := r.Candidate(c.PairID)
	if err != nil {
		t.Fatal(err)
	}
	if got.SourcePhrase() != "das haus" || got.TargetPhrase() != "the house" {
		t.Errorf("round trip phrases = %q / %q", got.SourcePhrase(), got.TargetPhrase())
	}
	if got.LinkString() != "0-0 1-1" {
		t.Errorf("round trip links = %q", got.LinkString())
	}
	if got.PairID != c.PairID || got.SourceID != c.SourceID || got.TargetID != c.TargetID {
		t.Error("round trip must keep the assigned ids")
	}
}

func TestCandidateUnknownId(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Candidate(3); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("unknown pair id should fail with ErrNotFound, got %v", err)
	}
}

func TestKeysLookupOnly(t *testing.T) {
	r := NewRegistry()
	c := mustCandidate(t, []string{"das"}, []string{"the"}, "0-0")
	r.Register(c)

	if got := r.SourceKey("das", false); got != c.SourceID {
		t.Errorf("SourceKey = %d, want %d", got, c.SourceID)
	}
	if got := r.SourceKey("unseen", false); got != align.Unassigned {
		t.Errorf("unseen source phrase = %d, want Unassigned", got)
	}
	if got := r.TargetKey("unseen", true); got == align.Unassigned {
		t.Error("create should mint an id for an unseen target phrase")
	}
}
