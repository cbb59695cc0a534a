package voting

import (
	"errors"
	"reflect"
	"testing"

	"quorum/contexts/decision-governance/decision-engine/domain/entities"
	domainerrors "quorum/contexts/decision-governance/decision-engine/domain/errors"
)

func pollWithTargets(mode entities.VotingMode, targetIDs ...string) (entities.Poll, map[string]entities.Target) {
	poll := entities.Poll{
		PollID:      "poll-1",
		Mode:        mode,
		Permissions: entities.PermissionBoth,
	}
	targets := make(map[string]entities.Target, len(targetIDs))
	for _, id := range targetIDs {
		targets[id] = entities.Target{TargetID: id, PollID: poll.PollID}
	}
	return poll, targets
}

func TestNormalizeSingle(t *testing.T) {
	poll, targets := pollWithTargets(entities.VotingModeSingle, "team-a", "team-b")
	voter := EvaluatorVoter("judge@example.com")

	ballot, err := NormalizeBallot(poll, targets, voter, Ballot{TargetID: "  team-a  "})
	if err != nil {
		t.Fatalf("NormalizeBallot failed: %v", err)
	}
	if ballot.TargetID != "team-a" {
		t.Errorf("expected trimmed target, got %q", ballot.TargetID)
	}

	if _, err := NormalizeBallot(poll, targets, voter, Ballot{}); !errors.Is(err, domainerrors.ErrEmptyBallot) {
		t.Errorf("expected ErrEmptyBallot, got %v", err)
	}
	if _, err := NormalizeBallot(poll, targets, voter, Ballot{TargetID: "team-x"}); !errors.Is(err, domainerrors.ErrUnknownTarget) {
		t.Errorf("expected ErrUnknownTarget, got %v", err)
	}
}

func TestNormalizeMultipleSortsAndDedupes(t *testing.T) {
	poll, targets := pollWithTargets(entities.VotingModeMultiple, "team-a", "team-b", "team-c")
	voter := EvaluatorVoter("judge@example.com")

	ballot, err := NormalizeBallot(poll, targets, voter, Ballot{TargetIDs: []string{"team-c", "team-a"}})
	if err != nil {
		t.Fatalf("NormalizeBallot failed: %v", err)
	}
	if !reflect.DeepEqual(ballot.TargetIDs, []string{"team-a", "team-c"}) {
		t.Errorf("expected sorted target ids, got %v", ballot.TargetIDs)
	}

	_, err = NormalizeBallot(poll, targets, voter, Ballot{TargetIDs: []string{"team-a", "team-a"}})
	if !errors.Is(err, domainerrors.ErrDuplicateTarget) {
		t.Errorf("expected ErrDuplicateTarget, got %v", err)
	}
}

func TestNormalizeRanked(t *testing.T) {
	poll, targets := pollWithTargets(entities.VotingModeRanked, "team-a", "team-b", "team-c")
	voter := EvaluatorVoter("judge@example.com")

	ballot, err := NormalizeBallot(poll, targets, voter, Ballot{Rankings: []entities.Ranking{
		{TargetID: "team-c", Rank: 2},
		{TargetID: "team-a", Rank: 1},
	}})
	if err != nil {
		t.Fatalf("NormalizeBallot failed: %v", err)
	}
	if ballot.Rankings[0].TargetID != "team-a" || ballot.Rankings[1].TargetID != "team-c" {
		t.Errorf("expected rankings sorted by rank, got %v", ballot.Rankings)
	}
}

func TestNormalizeRankedRejectsCollisionsAndBadRanks(t *testing.T) {
	poll, targets := pollWithTargets(entities.VotingModeRanked, "team-a", "team-b")
	voter := EvaluatorVoter("judge@example.com")

	_, err := NormalizeBallot(poll, targets, voter, Ballot{Rankings: []entities.Ranking{
		{TargetID: "team-a", Rank: 1},
		{TargetID: "team-b", Rank: 1},
	}})
	if !errors.Is(err, domainerrors.ErrRankCollision) {
		t.Errorf("expected ErrRankCollision, got %v", err)
	}

	_, err = NormalizeBallot(poll, targets, voter, Ballot{Rankings: []entities.Ranking{
		{TargetID: "team-a", Rank: 0},
	}})
	if !errors.Is(err, domainerrors.ErrInvalidRank) {
		t.Errorf("expected ErrInvalidRank for rank 0, got %v", err)
	}

	_, err = NormalizeBallot(poll, targets, voter, Ballot{Rankings: []entities.Ranking{
		{TargetID: "team-a", Rank: 1},
		{TargetID: "team-a", Rank: 2},
	}})
	if !errors.Is(err, domainerrors.ErrDuplicateTarget) {
		t.Errorf("expected ErrDuplicateTarget, got %v", err)
	}
}

func TestNormalizeRankedPositionLimit(t *testing.T) {
	poll, targets := pollWithTargets(entities.VotingModeRanked, "team-a", "team-b", "team-c")
	poll.MaxRankedPositions = 2
	voter := EvaluatorVoter("judge@example.com")

	_, err := NormalizeBallot(poll, targets, voter, Ballot{Rankings: []entities.Ranking{
		{TargetID: "team-a", Rank: 1},
		{TargetID: "team-b", Rank: 2},
		{TargetID: "team-c", Rank: 3},
	}})
	if !errors.Is(err, domainerrors.ErrTooManyRanks) {
		t.Errorf("expected ErrTooManyRanks, got %v", err)
	}
}

func TestSelfDecisionForbidden(t *testing.T) {
	poll, targets := pollWithTargets(entities.VotingModeSingle, "team-a", "team-b")
	own := ParticipantVoter("hash-1", "token-1", "team-a")

	_, err := NormalizeBallot(poll, targets, own, Ballot{TargetID: "team-a"})
	if !errors.Is(err, domainerrors.ErrSelfDecisionForbidden) {
		t.Fatalf("expected ErrSelfDecisionForbidden, got %v", err)
	}

	if _, err := NormalizeBallot(poll, targets, own, Ballot{TargetID: "team-b"}); err != nil {
		t.Fatalf("expected other target allowed, got %v", err)
	}

	poll.SelfVoteAllowed = true
	if _, err := NormalizeBallot(poll, targets, own, Ballot{TargetID: "team-a"}); err != nil {
		t.Fatalf("expected self target allowed when poll permits, got %v", err)
	}
}

func TestSelfDecisionNotAppliedToEvaluators(t *testing.T) {
	poll, targets := pollWithTargets(entities.VotingModeSingle, "team-a")
	voter := EvaluatorVoter("judge@example.com")
	if _, err := NormalizeBallot(poll, targets, voter, Ballot{TargetID: "team-a"}); err != nil {
		t.Fatalf("expected evaluator unrestricted, got %v", err)
	}
}
