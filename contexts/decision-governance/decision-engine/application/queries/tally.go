package queries

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	application "quorum/contexts/decision-governance/decision-engine/application"
	"quorum/contexts/decision-governance/decision-engine/domain/entities"
	"quorum/contexts/decision-governance/decision-engine/ports"
)

// TallyUseCase folds all current decisions for a poll into per-target
// results. The fold is commutative, so decision order never affects totals.
// Results may be served from a short-TTL cache; tallying is an on-demand
// read path, not part of the submission path.
type TallyUseCase struct {
	Ledger    ports.DecisionLedger
	Directory ports.EligibilityDirectory
	Cache     ports.TallyCache
	CacheTTL  time.Duration
	Logger    *slog.Logger
}

// PollTally returns per-target aggregates sorted by weighted score
// descending. Ties are not broken beyond a stable target-id order; tie
// resolution is a governance decision left to the caller.
func (uc TallyUseCase) PollTally(ctx context.Context, pollID string) ([]entities.TargetTally, error) {
	logger := application.ResolveLogger(uc.Logger)
	pollID = strings.TrimSpace(pollID)

	if uc.Cache != nil {
		if entries, found, err := uc.Cache.GetTally(ctx, pollID); err != nil {
			logger.Warn("tally cache read failed; recomputing",
				"event", "tally_cache_read_failed",
				"module", "decision-governance/decision-engine",
				"layer", "application",
				"poll_id", pollID,
				"error", err.Error(),
			)
		} else if found {
			return entries, nil
		}
	}

	poll, err := uc.Directory.GetPoll(ctx, pollID)
	if err != nil {
		return nil, err
	}
	targets, err := uc.Directory.ListTargetsByPoll(ctx, pollID)
	if err != nil {
		return nil, err
	}
	decisions, err := uc.Ledger.ListDecisionsByPoll(ctx, pollID)
	if err != nil {
		return nil, err
	}

	entries := Aggregate(poll, targets, decisions)

	if uc.Cache != nil {
		if err := uc.Cache.PutTally(ctx, pollID, entries, uc.resolveCacheTTL()); err != nil {
			logger.Warn("tally cache write failed",
				"event", "tally_cache_write_failed",
				"module", "decision-governance/decision-engine",
				"layer", "application",
				"poll_id", pollID,
				"error", err.Error(),
			)
		}
	}
	return entries, nil
}

// Aggregate is the pure fold behind PollTally. Every poll target gets an
// entry, including targets nobody decided about.
func Aggregate(
	poll entities.Poll,
	targets []entities.Target,
	decisions []entities.Decision,
) []entities.TargetTally {
	byTarget := make(map[string]*entities.TargetTally, len(targets))
	for _, target := range targets {
		byTarget[target.TargetID] = &entities.TargetTally{TargetID: target.TargetID}
	}

	for _, decision := range decisions {
		switch decision.Mode {
		case entities.VotingModeSingle, entities.VotingModeMultiple:
			for _, targetID := range decision.NamedTargets() {
				entry, ok := byTarget[targetID]
				if !ok {
					continue
				}
				if decision.Constituency == entities.ConstituencyParticipant {
					entry.ParticipantCount++
				} else {
					entry.EvaluatorCount++
				}
			}
		case entities.VotingModeRanked:
			for _, ranking := range decision.Rankings {
				entry, ok := byTarget[ranking.TargetID]
				if !ok {
					continue
				}
				points := float64(ranking.Points)
				if decision.Constituency == entities.ConstituencyParticipant {
					entry.ParticipantCount++
					entry.ParticipantPoints += points * poll.ParticipantWeight
				} else {
					entry.EvaluatorCount++
					entry.EvaluatorPoints += points * poll.EvaluatorWeight
				}
				if entry.RankCounts == nil {
					entry.RankCounts = make(map[int]int)
				}
				entry.RankCounts[ranking.Rank]++
			}
		}
	}

	entries := make([]entities.TargetTally, 0, len(byTarget))
	for _, entry := range byTarget {
		if poll.Mode == entities.VotingModeRanked {
			entry.WeightedScore = entry.ParticipantPoints + entry.EvaluatorPoints
		} else {
			entry.ParticipantPoints = float64(entry.ParticipantCount) * poll.ParticipantWeight
			entry.EvaluatorPoints = float64(entry.EvaluatorCount) * poll.EvaluatorWeight
			entry.WeightedScore = entry.ParticipantPoints + entry.EvaluatorPoints
		}
		entries = append(entries, *entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].WeightedScore == entries[j].WeightedScore {
			return entries[i].TargetID < entries[j].TargetID
		}
		return entries[i].WeightedScore > entries[j].WeightedScore
	})
	return entries
}

func (uc TallyUseCase) resolveCacheTTL() time.Duration {
	if uc.CacheTTL <= 0 {
		return 15 * time.Second
	}
	return uc.CacheTTL
}
