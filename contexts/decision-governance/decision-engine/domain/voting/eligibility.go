package voting

import (
	"time"

	"quorum/contexts/decision-governance/decision-engine/domain/entities"
	domainerrors "quorum/contexts/decision-governance/decision-engine/domain/errors"
)

// CheckEligibility decides whether a constituency may cast or edit a decision
// on the poll at the supplied instant. It is a pure function: the caller
// injects the clock reading and the existing-decision flag.
//
// Rule order matters. Evaluators in a participants_first poll are exempt from
// the end-of-window check; the participant phase is defined to have ended, so
// they may vote past EndsAt. ErrAlreadyDecided is a steady state, not a hard
// failure: callers return the existing decision alongside it.
func CheckEligibility(
	poll entities.Poll,
	now time.Time,
	constituency entities.Constituency,
	hasCurrentDecision bool,
) error {
	if now.Before(poll.StartsAt) {
		return domainerrors.ErrVotingNotOpen
	}

	evaluatorAfterParticipants := constituency == entities.ConstituencyEvaluator &&
		poll.Sequence == entities.SequenceParticipantsFirst
	if now.After(poll.EndsAt) && !evaluatorAfterParticipants {
		return domainerrors.ErrVotingClosed
	}

	if !poll.Allows(constituency) {
		return domainerrors.ErrNotPermitted
	}

	if hasCurrentDecision && !poll.AllowEdit {
		return domainerrors.ErrAlreadyDecided
	}
	return nil
}
