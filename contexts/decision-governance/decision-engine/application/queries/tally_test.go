package queries

import (
	"math/rand"
	"reflect"
	"testing"

	"quorum/contexts/decision-governance/decision-engine/domain/entities"
)

func tallyPoll(mode entities.VotingMode) entities.Poll {
	return entities.Poll{
		PollID:            "poll-1",
		Mode:              mode,
		ParticipantWeight: 1.0,
		EvaluatorWeight:   2.0,
	}
}

func tallyTargets(ids ...string) []entities.Target {
	items := make([]entities.Target, 0, len(ids))
	for _, id := range ids {
		items = append(items, entities.Target{TargetID: id, PollID: "poll-1"})
	}
	return items
}

func TestAggregateSingleModeWeighted(t *testing.T) {
	poll := tallyPoll(entities.VotingModeSingle)
	targets := tallyTargets("team-a", "team-b", "team-c")
	decisions := []entities.Decision{
		{PollID: "poll-1", Constituency: entities.ConstituencyParticipant, Mode: entities.VotingModeSingle, TargetID: "team-a"},
		{PollID: "poll-1", Constituency: entities.ConstituencyParticipant, Mode: entities.VotingModeSingle, TargetID: "team-a"},
		{PollID: "poll-1", Constituency: entities.ConstituencyEvaluator, Mode: entities.VotingModeSingle, TargetID: "team-a"},
		{PollID: "poll-1", Constituency: entities.ConstituencyEvaluator, Mode: entities.VotingModeSingle, TargetID: "team-b"},
	}

	entries := Aggregate(poll, targets, decisions)
	if len(entries) != 3 {
		t.Fatalf("expected every target present, got %d entries", len(entries))
	}

	// team-a: 2 participants * 1.0 + 1 evaluator * 2.0 = 4.0
	if entries[0].TargetID != "team-a" || entries[0].WeightedScore != 4.0 {
		t.Errorf("expected team-a at 4.0, got %s at %v", entries[0].TargetID, entries[0].WeightedScore)
	}
	// team-b: 1 evaluator * 2.0 = 2.0
	if entries[1].TargetID != "team-b" || entries[1].WeightedScore != 2.0 {
		t.Errorf("expected team-b at 2.0, got %s at %v", entries[1].TargetID, entries[1].WeightedScore)
	}
	// team-c: nobody decided, still listed at zero.
	if entries[2].TargetID != "team-c" || entries[2].WeightedScore != 0 {
		t.Errorf("expected team-c at 0, got %s at %v", entries[2].TargetID, entries[2].WeightedScore)
	}
}

func TestAggregateMultipleModeCountsEachNamedTarget(t *testing.T) {
	poll := tallyPoll(entities.VotingModeMultiple)
	targets := tallyTargets("team-a", "team-b")
	decisions := []entities.Decision{
		{PollID: "poll-1", Constituency: entities.ConstituencyParticipant, Mode: entities.VotingModeMultiple, TargetIDs: []string{"team-a", "team-b"}},
		{PollID: "poll-1", Constituency: entities.ConstituencyParticipant, Mode: entities.VotingModeMultiple, TargetIDs: []string{"team-a"}},
	}

	entries := Aggregate(poll, targets, decisions)
	if entries[0].TargetID != "team-a" || entries[0].ParticipantCount != 2 {
		t.Errorf("expected team-a with 2 participant marks, got %+v", entries[0])
	}
	if entries[1].TargetID != "team-b" || entries[1].ParticipantCount != 1 {
		t.Errorf("expected team-b with 1 participant mark, got %+v", entries[1])
	}
}

func TestAggregateRankedModePointsAndHistogram(t *testing.T) {
	poll := tallyPoll(entities.VotingModeRanked)
	targets := tallyTargets("team-a", "team-b", "team-c")
	decisions := []entities.Decision{
		{
			PollID: "poll-1", Constituency: entities.ConstituencyParticipant, Mode: entities.VotingModeRanked,
			Rankings: []entities.Ranking{
				{TargetID: "team-a", Rank: 1, Points: 3},
				{TargetID: "team-b", Rank: 2, Points: 2},
			},
		},
		{
			PollID: "poll-1", Constituency: entities.ConstituencyEvaluator, Mode: entities.VotingModeRanked,
			Rankings: []entities.Ranking{
				{TargetID: "team-a", Rank: 1, Points: 3},
			},
		},
	}

	entries := Aggregate(poll, targets, decisions)
	// team-a: participant 3*1.0 + evaluator 3*2.0 = 9.0
	if entries[0].TargetID != "team-a" || entries[0].WeightedScore != 9.0 {
		t.Fatalf("expected team-a at 9.0, got %s at %v", entries[0].TargetID, entries[0].WeightedScore)
	}
	if entries[0].RankCounts[1] != 2 {
		t.Errorf("expected 2 first-place marks for team-a, got %d", entries[0].RankCounts[1])
	}
	if entries[1].TargetID != "team-b" || entries[1].WeightedScore != 2.0 {
		t.Errorf("expected team-b at 2.0, got %s at %v", entries[1].TargetID, entries[1].WeightedScore)
	}
}

func TestAggregateOrderIndependent(t *testing.T) {
	poll := tallyPoll(entities.VotingModeSingle)
	targets := tallyTargets("team-a", "team-b", "team-c")
	decisions := []entities.Decision{
		{PollID: "poll-1", Constituency: entities.ConstituencyParticipant, Mode: entities.VotingModeSingle, TargetID: "team-a"},
		{PollID: "poll-1", Constituency: entities.ConstituencyEvaluator, Mode: entities.VotingModeSingle, TargetID: "team-b"},
		{PollID: "poll-1", Constituency: entities.ConstituencyParticipant, Mode: entities.VotingModeSingle, TargetID: "team-c"},
		{PollID: "poll-1", Constituency: entities.ConstituencyEvaluator, Mode: entities.VotingModeSingle, TargetID: "team-a"},
	}

	baseline := Aggregate(poll, targets, decisions)
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 10; i++ {
		shuffled := append([]entities.Decision(nil), decisions...)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		if got := Aggregate(poll, targets, shuffled); !reflect.DeepEqual(got, baseline) {
			t.Fatalf("aggregate changed under reordering:\nwant %+v\ngot  %+v", baseline, got)
		}
	}
}

func TestAggregateTieBreaksOnTargetID(t *testing.T) {
	poll := tallyPoll(entities.VotingModeSingle)
	targets := tallyTargets("team-z", "team-a")
	entries := Aggregate(poll, targets, nil)
	if entries[0].TargetID != "team-a" || entries[1].TargetID != "team-z" {
		t.Errorf("expected stable target-id order on ties, got %v then %v", entries[0].TargetID, entries[1].TargetID)
	}
}
