package voting

import (
	"strings"

	"quorum/contexts/decision-governance/decision-engine/domain/entities"
)

// Voter is the tagged union of the two identity selectors: a participant
// carrying a single-use credential, or an evaluator identified by email.
// Constructors enforce that exactly one selector shape exists, so callers
// never juggle two parallel optional fields.
type Voter struct {
	constituency entities.Constituency
	key          string
	secret       string
	ownTargetID  string
}

// ParticipantVoter builds a participant identity. The key is the credential
// hash stored on decisions; the secret is the raw token used for commitment
// digests and is never persisted.
func ParticipantVoter(credentialHash, rawToken, ownTargetID string) Voter {
	return Voter{
		constituency: entities.ConstituencyParticipant,
		key:          strings.TrimSpace(credentialHash),
		secret:       strings.TrimSpace(rawToken),
		ownTargetID:  strings.TrimSpace(ownTargetID),
	}
}

// EvaluatorVoter builds an evaluator identity keyed by normalized email.
func EvaluatorVoter(email string) Voter {
	normalized := strings.ToLower(strings.TrimSpace(email))
	return Voter{
		constituency: entities.ConstituencyEvaluator,
		key:          normalized,
		secret:       normalized,
	}
}

func (v Voter) Constituency() entities.Constituency { return v.constituency }

// Key identifies the voter inside the decision ledger.
func (v Voter) Key() string { return v.key }

// Secret feeds the commitment digest. For evaluators it equals the key.
func (v Voter) Secret() string { return v.secret }

// OwnTargetID is the target bound to a participant credential; empty for
// evaluators and unbound credentials.
func (v Voter) OwnTargetID() string { return v.ownTargetID }
