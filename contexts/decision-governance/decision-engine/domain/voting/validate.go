package voting

import (
	"sort"
	"strings"

	"quorum/contexts/decision-governance/decision-engine/domain/entities"
	domainerrors "quorum/contexts/decision-governance/decision-engine/domain/errors"
)

// Ballot is the mode-dependent decision payload in normalized form.
type Ballot struct {
	Mode      entities.VotingMode
	TargetID  string
	TargetIDs []string
	Rankings  []entities.Ranking
}

// NormalizeBallot checks a submitted payload against the poll's voting mode
// and target set and returns the canonical in-memory form: multiple-mode
// target sets sorted lexicographically, ranked ballots sorted by rank
// ascending. Point values on rankings are left at zero; the allocator fills
// them in afterwards.
func NormalizeBallot(
	poll entities.Poll,
	targetsByID map[string]entities.Target,
	voter Voter,
	raw Ballot,
) (Ballot, error) {
	switch poll.Mode {
	case entities.VotingModeSingle:
		return normalizeSingle(poll, targetsByID, voter, raw)
	case entities.VotingModeMultiple:
		return normalizeMultiple(poll, targetsByID, voter, raw)
	case entities.VotingModeRanked:
		return normalizeRanked(poll, targetsByID, voter, raw)
	default:
		return Ballot{}, domainerrors.ErrInvalidDecisionInput
	}
}

func normalizeSingle(
	poll entities.Poll,
	targetsByID map[string]entities.Target,
	voter Voter,
	raw Ballot,
) (Ballot, error) {
	targetID := strings.TrimSpace(raw.TargetID)
	if targetID == "" {
		return Ballot{}, domainerrors.ErrEmptyBallot
	}
	if err := checkTarget(poll, targetsByID, voter, targetID); err != nil {
		return Ballot{}, err
	}
	return Ballot{
		Mode:     entities.VotingModeSingle,
		TargetID: targetID,
	}, nil
}

func normalizeMultiple(
	poll entities.Poll,
	targetsByID map[string]entities.Target,
	voter Voter,
	raw Ballot,
) (Ballot, error) {
	if len(raw.TargetIDs) == 0 {
		return Ballot{}, domainerrors.ErrEmptyBallot
	}
	seen := make(map[string]struct{}, len(raw.TargetIDs))
	items := make([]string, 0, len(raw.TargetIDs))
	for _, rawID := range raw.TargetIDs {
		targetID := strings.TrimSpace(rawID)
		if targetID == "" {
			return Ballot{}, domainerrors.ErrEmptyBallot
		}
		if _, dup := seen[targetID]; dup {
			return Ballot{}, domainerrors.ErrDuplicateTarget
		}
		seen[targetID] = struct{}{}
		if err := checkTarget(poll, targetsByID, voter, targetID); err != nil {
			return Ballot{}, err
		}
		items = append(items, targetID)
	}
	sort.Strings(items)
	return Ballot{
		Mode:      entities.VotingModeMultiple,
		TargetIDs: items,
	}, nil
}

func normalizeRanked(
	poll entities.Poll,
	targetsByID map[string]entities.Target,
	voter Voter,
	raw Ballot,
) (Ballot, error) {
	if len(raw.Rankings) == 0 {
		return Ballot{}, domainerrors.ErrEmptyBallot
	}
	if poll.MaxRankedPositions > 0 && len(raw.Rankings) > poll.MaxRankedPositions {
		return Ballot{}, domainerrors.ErrTooManyRanks
	}

	seenTargets := make(map[string]struct{}, len(raw.Rankings))
	seenRanks := make(map[int]struct{}, len(raw.Rankings))
	items := make([]entities.Ranking, 0, len(raw.Rankings))
	for _, ranking := range raw.Rankings {
		targetID := strings.TrimSpace(ranking.TargetID)
		if targetID == "" {
			return Ballot{}, domainerrors.ErrEmptyBallot
		}
		if ranking.Rank < 1 {
			return Ballot{}, domainerrors.ErrInvalidRank
		}
		if _, dup := seenTargets[targetID]; dup {
			return Ballot{}, domainerrors.ErrDuplicateTarget
		}
		if _, dup := seenRanks[ranking.Rank]; dup {
			return Ballot{}, domainerrors.ErrRankCollision
		}
		seenTargets[targetID] = struct{}{}
		seenRanks[ranking.Rank] = struct{}{}
		if err := checkTarget(poll, targetsByID, voter, targetID); err != nil {
			return Ballot{}, err
		}
		items = append(items, entities.Ranking{
			TargetID:      targetID,
			Rank:          ranking.Rank,
			Justification: strings.TrimSpace(ranking.Justification),
		})
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Rank < items[j].Rank
	})
	return Ballot{
		Mode:     entities.VotingModeRanked,
		Rankings: items,
	}, nil
}

func checkTarget(
	poll entities.Poll,
	targetsByID map[string]entities.Target,
	voter Voter,
	targetID string,
) error {
	target, ok := targetsByID[targetID]
	if !ok || target.PollID != poll.PollID {
		return domainerrors.ErrUnknownTarget
	}
	if voter.Constituency() == entities.ConstituencyParticipant &&
		!poll.SelfVoteAllowed &&
		voter.OwnTargetID() != "" &&
		voter.OwnTargetID() == targetID {
		return domainerrors.ErrSelfDecisionForbidden
	}
	return nil
}
