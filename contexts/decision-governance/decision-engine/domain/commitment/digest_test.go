package commitment

import (
	"testing"

	"quorum/contexts/decision-governance/decision-engine/domain/entities"
)

func TestCanonicalFormSingle(t *testing.T) {
	if got := CanonicalForm(entities.VotingModeSingle, " team-a ", nil, nil); got != "team-a" {
		t.Errorf("expected team-a, got %q", got)
	}
}

func TestCanonicalFormMultipleOrderIndependent(t *testing.T) {
	a := CanonicalForm(entities.VotingModeMultiple, "", []string{"team-b", "team-a"}, nil)
	b := CanonicalForm(entities.VotingModeMultiple, "", []string{"team-a", "team-b"}, nil)
	if a != b {
		t.Errorf("expected order-independent form, got %q vs %q", a, b)
	}
	if a != "team-a,team-b" {
		t.Errorf("expected sorted join, got %q", a)
	}
}

func TestCanonicalFormRankedOrderIndependent(t *testing.T) {
	a := CanonicalForm(entities.VotingModeRanked, "", nil, []entities.Ranking{
		{TargetID: "team-b", Rank: 2},
		{TargetID: "team-a", Rank: 1},
	})
	b := CanonicalForm(entities.VotingModeRanked, "", nil, []entities.Ranking{
		{TargetID: "team-a", Rank: 1},
		{TargetID: "team-b", Rank: 2},
	})
	if a != b {
		t.Errorf("expected order-independent form, got %q vs %q", a, b)
	}
	if a != "team-a:1,team-b:2" {
		t.Errorf("expected rank-ordered pairs, got %q", a)
	}
}

func TestDigestDeterministic(t *testing.T) {
	a := Digest("secret", "poll-1", "team-a", 1700000000)
	b := Digest("secret", "poll-1", "team-a", 1700000000)
	if a != b {
		t.Error("expected identical inputs to hash identically")
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
}

func TestDigestSensitivity(t *testing.T) {
	base := Digest("secret", "poll-1", "team-a", 1700000000)
	if Digest("other", "poll-1", "team-a", 1700000000) == base {
		t.Error("expected secret to affect digest")
	}
	if Digest("secret", "poll-2", "team-a", 1700000000) == base {
		t.Error("expected poll to affect digest")
	}
	if Digest("secret", "poll-1", "team-b", 1700000000) == base {
		t.Error("expected payload to affect digest")
	}
	if Digest("secret", "poll-1", "team-a", 1700000001) == base {
		t.Error("expected timestamp to affect digest")
	}
}
