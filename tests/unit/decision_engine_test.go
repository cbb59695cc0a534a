package unit

import (
	"context"
	"errors"
	"testing"
	"time"

	decisionengine "quorum/contexts/decision-governance/decision-engine"
	"quorum/contexts/decision-governance/decision-engine/domain/entities"
	domainerrors "quorum/contexts/decision-governance/decision-engine/domain/errors"
	httptransport "quorum/contexts/decision-governance/decision-engine/transport/http"
)

func newEngineModule(poll entities.Poll, targetIDs ...string) decisionengine.Module {
	module := decisionengine.NewInMemoryModule(nil, nil)
	module.Store.SetPoll(poll)
	for _, targetID := range targetIDs {
		module.Store.SetTarget(entities.Target{TargetID: targetID, PollID: poll.PollID})
	}
	module.Store.SetNow(poll.StartsAt.Add(time.Hour))
	return module
}

func openPoll(mode entities.VotingMode) entities.Poll {
	return entities.Poll{
		PollID:            "poll-1",
		StartsAt:          time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		EndsAt:            time.Date(2026, 3, 1, 17, 0, 0, 0, time.UTC),
		Mode:              mode,
		Permissions:       entities.PermissionBoth,
		Sequence:          entities.SequenceSimultaneous,
		ParticipantWeight: 1.0,
		EvaluatorWeight:   2.0,
	}
}

func TestSubmitRecordsAndRepeatSurfacesExisting(t *testing.T) {
	poll := openPoll(entities.VotingModeSingle)
	module := newEngineModule(poll, "team-a", "team-b")
	module.Store.SetCredentialForToken("token-1", "poll-1", "")

	first, err := module.Handler.SubmitDecisionHandler(context.Background(), httptransport.SubmitDecisionRequest{
		IdentityToken: "token-1",
		TargetID:      "team-a",
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if first.DecisionID == "" {
		t.Fatal("expected decision id")
	}
	if first.AnchorRef == nil {
		t.Fatal("expected anchored decision")
	}

	second, err := module.Handler.SubmitDecisionHandler(context.Background(), httptransport.SubmitDecisionRequest{
		IdentityToken: "token-1",
		TargetID:      "team-b",
	})
	if err != nil {
		t.Fatalf("repeat submit failed: %v", err)
	}
	if !second.AlreadyDecided {
		t.Fatal("expected already-decided result with editing disabled")
	}
	if second.ExistingDecision == nil || second.ExistingDecision.TargetID != "team-a" {
		t.Fatalf("expected original payload surfaced, got %+v", second.ExistingDecision)
	}
	if second.DecisionID != first.DecisionID {
		t.Fatalf("expected same decision id, got %s and %s", first.DecisionID, second.DecisionID)
	}
}

func TestSubmitEditReplacesPayload(t *testing.T) {
	poll := openPoll(entities.VotingModeSingle)
	poll.AllowEdit = true
	module := newEngineModule(poll, "team-a", "team-b")
	module.Store.SetCredentialForToken("token-1", "poll-1", "")

	first, err := module.Handler.SubmitDecisionHandler(context.Background(), httptransport.SubmitDecisionRequest{
		IdentityToken: "token-1",
		TargetID:      "team-a",
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	edited, err := module.Handler.SubmitDecisionHandler(context.Background(), httptransport.SubmitDecisionRequest{
		IdentityToken: "token-1",
		TargetID:      "team-b",
	})
	if err != nil {
		t.Fatalf("edit failed: %v", err)
	}
	if !edited.IsUpdate {
		t.Fatal("expected edit marked as update")
	}
	if edited.DecisionID != first.DecisionID {
		t.Fatalf("expected edit to keep decision id, got %s and %s", first.DecisionID, edited.DecisionID)
	}

	current, err := module.Handler.LookupDecisionHandler(context.Background(), "token-1", "", "")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if current.TargetID != "team-b" {
		t.Fatalf("expected replaced payload, got %s", current.TargetID)
	}

	// One current decision per identity: the tally sees a single mark.
	tally, err := module.Handler.PollTallyHandler(context.Background(), "poll-1")
	if err != nil {
		t.Fatalf("tally failed: %v", err)
	}
	total := 0
	for _, entry := range tally.Items {
		total += entry.ParticipantCount + entry.EvaluatorCount
	}
	if total != 1 {
		t.Fatalf("expected exactly one counted decision, got %d", total)
	}
}

func TestSubmitRejectsSelfInterest(t *testing.T) {
	poll := openPoll(entities.VotingModeSingle)
	module := newEngineModule(poll, "team-a", "team-b")
	module.Store.SetCredentialForToken("token-1", "poll-1", "team-a")

	_, err := module.Handler.SubmitDecisionHandler(context.Background(), httptransport.SubmitDecisionRequest{
		IdentityToken: "token-1",
		TargetID:      "team-a",
	})
	if !errors.Is(err, domainerrors.ErrSelfDecisionForbidden) {
		t.Fatalf("expected ErrSelfDecisionForbidden, got %v", err)
	}

	// The rejected attempt must not burn the credential.
	if _, err := module.Handler.SubmitDecisionHandler(context.Background(), httptransport.SubmitDecisionRequest{
		IdentityToken: "token-1",
		TargetID:      "team-b",
	}); err != nil {
		t.Fatalf("expected valid retry to succeed, got %v", err)
	}
}

func TestSubmitRankedAllocatesDescendingPoints(t *testing.T) {
	poll := openPoll(entities.VotingModeRanked)
	module := newEngineModule(poll, "t1", "t2", "t3", "t4", "t5")
	module.Store.AllowEvaluator("poll-1", "judge@example.com")

	resp, err := module.Handler.SubmitDecisionHandler(context.Background(), httptransport.SubmitDecisionRequest{
		EvaluatorEmail: "judge@example.com",
		PollID:         "poll-1",
		Rankings: []httptransport.RankingPayload{
			{TargetID: "t3", Rank: 3},
			{TargetID: "t1", Rank: 1},
			{TargetID: "t5", Rank: 5},
			{TargetID: "t2", Rank: 2},
			{TargetID: "t4", Rank: 4},
		},
	})
	if err != nil {
		t.Fatalf("ranked submit failed: %v", err)
	}

	current, err := module.Handler.LookupDecisionHandler(context.Background(), "", "judge@example.com", "poll-1")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	expected := []int{5, 4, 3, 2, 1}
	if len(current.Rankings) != 5 {
		t.Fatalf("expected 5 rankings, got %d", len(current.Rankings))
	}
	for i, ranking := range current.Rankings {
		if ranking.Rank != i+1 {
			t.Errorf("position %d: expected rank %d, got %d", i, i+1, ranking.Rank)
		}
		if ranking.Points != expected[i] {
			t.Errorf("rank %d: expected %d points, got %d", ranking.Rank, expected[i], ranking.Points)
		}
	}

	anchor, err := module.Handler.DecisionAnchorHandler(context.Background(), resp.DecisionID)
	if err != nil {
		t.Fatalf("anchor lookup failed: %v", err)
	}
	if !anchor.Anchored || anchor.ExplorerURL == "" {
		t.Fatalf("expected anchored decision with explorer link, got %+v", anchor)
	}
}

func TestSubmitWindowBoundaryBySequence(t *testing.T) {
	poll := openPoll(entities.VotingModeSingle)
	poll.Sequence = entities.SequenceParticipantsFirst
	module := newEngineModule(poll, "team-a")
	module.Store.SetCredentialForToken("token-late", "poll-1", "")
	module.Store.AllowEvaluator("poll-1", "judge@example.com")
	module.Store.SetNow(poll.EndsAt.Add(time.Second))

	_, err := module.Handler.SubmitDecisionHandler(context.Background(), httptransport.SubmitDecisionRequest{
		IdentityToken: "token-late",
		TargetID:      "team-a",
	})
	if !errors.Is(err, domainerrors.ErrVotingClosed) {
		t.Fatalf("expected participant closed one second past end, got %v", err)
	}

	if _, err := module.Handler.SubmitDecisionHandler(context.Background(), httptransport.SubmitDecisionRequest{
		EvaluatorEmail: "judge@example.com",
		PollID:         "poll-1",
		TargetID:       "team-a",
	}); err != nil {
		t.Fatalf("expected evaluator accepted past end in participants_first, got %v", err)
	}
}

func TestSubmitSucceedsWhileAnchorDown(t *testing.T) {
	poll := openPoll(entities.VotingModeSingle)
	module := newEngineModule(poll, "team-a")
	module.Store.SetCredentialForToken("token-1", "poll-1", "")
	module.Store.SetAnchorDown(true)

	resp, err := module.Handler.SubmitDecisionHandler(context.Background(), httptransport.SubmitDecisionRequest{
		IdentityToken: "token-1",
		TargetID:      "team-a",
	})
	if err != nil {
		t.Fatalf("expected decision recorded despite anchor outage, got %v", err)
	}
	if resp.AnchorRef != nil {
		t.Fatal("expected unanchored decision while anchor is down")
	}

	anchor, err := module.Handler.DecisionAnchorHandler(context.Background(), resp.DecisionID)
	if err != nil {
		t.Fatalf("anchor lookup failed: %v", err)
	}
	if anchor.Anchored || anchor.Digest == "" {
		t.Fatalf("expected pending anchor with stored digest, got %+v", anchor)
	}
}

func TestSubmitRejectsUnknownEvaluator(t *testing.T) {
	poll := openPoll(entities.VotingModeSingle)
	module := newEngineModule(poll, "team-a")

	_, err := module.Handler.SubmitDecisionHandler(context.Background(), httptransport.SubmitDecisionRequest{
		EvaluatorEmail: "stranger@example.com",
		PollID:         "poll-1",
		TargetID:       "team-a",
	})
	if !errors.Is(err, domainerrors.ErrEvaluatorNotAllowed) {
		t.Fatalf("expected ErrEvaluatorNotAllowed, got %v", err)
	}
}

func TestSubmitRejectsAmbiguousIdentity(t *testing.T) {
	poll := openPoll(entities.VotingModeSingle)
	module := newEngineModule(poll, "team-a")

	_, err := module.Handler.SubmitDecisionHandler(context.Background(), httptransport.SubmitDecisionRequest{
		IdentityToken:  "token-1",
		EvaluatorEmail: "judge@example.com",
		PollID:         "poll-1",
		TargetID:       "team-a",
	})
	if !errors.Is(err, domainerrors.ErrIdentitySelector) {
		t.Fatalf("expected ErrIdentitySelector for both selectors, got %v", err)
	}

	_, err = module.Handler.SubmitDecisionHandler(context.Background(), httptransport.SubmitDecisionRequest{
		PollID:   "poll-1",
		TargetID: "team-a",
	})
	if !errors.Is(err, domainerrors.ErrIdentitySelector) {
		t.Fatalf("expected ErrIdentitySelector for no selector, got %v", err)
	}
}

func TestMultipleModeWeightedTally(t *testing.T) {
	poll := openPoll(entities.VotingModeMultiple)
	module := newEngineModule(poll, "team-a", "team-b", "team-c")
	module.Store.SetCredentialForToken("token-1", "poll-1", "")
	module.Store.AllowEvaluator("poll-1", "judge@example.com")

	submissions := []httptransport.SubmitDecisionRequest{
		{IdentityToken: "token-1", TargetIDs: []string{"team-a", "team-b"}},
		{EvaluatorEmail: "judge@example.com", PollID: "poll-1", TargetIDs: []string{"team-a"}},
	}
	for i, req := range submissions {
		if _, err := module.Handler.SubmitDecisionHandler(context.Background(), req); err != nil {
			t.Fatalf("submission %d failed: %v", i, err)
		}
	}

	tally, err := module.Handler.PollTallyHandler(context.Background(), "poll-1")
	if err != nil {
		t.Fatalf("tally failed: %v", err)
	}

	scores := make(map[string]float64, len(tally.Items))
	for _, entry := range tally.Items {
		scores[entry.TargetID] = entry.WeightedScore
	}
	// team-a: 1 participant * 1.0 + 1 evaluator * 2.0 = 3.0
	if scores["team-a"] != 3.0 {
		t.Errorf("expected team-a at 3.0, got %v", scores["team-a"])
	}
	// team-b: 1 participant * 1.0 = 1.0
	if scores["team-b"] != 1.0 {
		t.Errorf("expected team-b at 1.0, got %v", scores["team-b"])
	}
	if scores["team-c"] != 0 {
		t.Errorf("expected team-c at 0, got %v", scores["team-c"])
	}
	if tally.Items[0].TargetID != "team-a" {
		t.Errorf("expected team-a ranked first, got %s", tally.Items[0].TargetID)
	}
}

func TestLookupResolvesPollFromCredential(t *testing.T) {
	poll := openPoll(entities.VotingModeSingle)
	module := newEngineModule(poll, "team-a")
	module.Store.SetCredentialForToken("token-1", "poll-1", "")

	if _, err := module.Handler.SubmitDecisionHandler(context.Background(), httptransport.SubmitDecisionRequest{
		IdentityToken: "token-1",
		TargetID:      "team-a",
	}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	current, err := module.Handler.LookupDecisionHandler(context.Background(), "token-1", "", "")
	if err != nil {
		t.Fatalf("lookup without poll id failed: %v", err)
	}
	if current.PollID != "poll-1" || current.TargetID != "team-a" {
		t.Fatalf("unexpected lookup result: %+v", current)
	}

	_, err = module.Handler.LookupDecisionHandler(context.Background(), "", "nobody@example.com", "poll-1")
	if !errors.Is(err, domainerrors.ErrDecisionNotFound) {
		t.Fatalf("expected ErrDecisionNotFound for absent decision, got %v", err)
	}
}

func TestSubmitRejectsCrossPollCredential(t *testing.T) {
	poll := openPoll(entities.VotingModeSingle)
	module := newEngineModule(poll, "team-a")
	module.Store.SetCredentialForToken("token-1", "poll-1", "")

	_, err := module.Handler.SubmitDecisionHandler(context.Background(), httptransport.SubmitDecisionRequest{
		IdentityToken: "token-1",
		PollID:        "poll-other",
		TargetID:      "team-a",
	})
	if !errors.Is(err, domainerrors.ErrInvalidDecisionInput) {
		t.Fatalf("expected ErrInvalidDecisionInput for poll mismatch, got %v", err)
	}
}
