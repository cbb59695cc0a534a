package queries

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"quorum/contexts/decision-governance/decision-engine/domain/entities"
	domainerrors "quorum/contexts/decision-governance/decision-engine/domain/errors"
	"quorum/contexts/decision-governance/decision-engine/ports"
)

// LookupUseCase resolves a caller's current decision and anchor details.
// Identity selector rules match submission: one of token or email, the
// latter with an explicit poll.
type LookupUseCase struct {
	Ledger    ports.DecisionLedger
	Directory ports.EligibilityDirectory
	Anchor    ports.AnchorClient
}

// CurrentDecision returns the caller's current decision for the resolved
// poll, or ErrDecisionNotFound when none exists.
func (uc LookupUseCase) CurrentDecision(
	ctx context.Context,
	identityToken string,
	evaluatorEmail string,
	pollID string,
) (entities.Decision, error) {
	token := strings.TrimSpace(identityToken)
	email := strings.ToLower(strings.TrimSpace(evaluatorEmail))
	pollID = strings.TrimSpace(pollID)

	var voterKey string
	switch {
	case token != "" && email != "":
		return entities.Decision{}, domainerrors.ErrIdentitySelector
	case token == "" && email == "":
		return entities.Decision{}, domainerrors.ErrIdentitySelector
	case token != "":
		sum := sha256.Sum256([]byte(token))
		voterKey = hex.EncodeToString(sum[:])
		if pollID == "" {
			credential, err := uc.Directory.GetCredential(ctx, voterKey)
			if err != nil {
				return entities.Decision{}, err
			}
			pollID = credential.PollID
		}
	default:
		if pollID == "" {
			return entities.Decision{}, domainerrors.ErrIdentitySelector
		}
		voterKey = email
	}

	decision, found, err := uc.Ledger.GetDecisionByVoter(ctx, pollID, voterKey)
	if err != nil {
		return entities.Decision{}, err
	}
	if !found {
		return entities.Decision{}, domainerrors.ErrDecisionNotFound
	}
	return decision, nil
}

// AnchorInfo describes a decision's commitment anchoring state.
type AnchorInfo struct {
	DecisionID  string
	Digest      string
	AnchorRef   string
	Anchored    bool
	ExplorerURL string
}

// DecisionAnchor returns anchor details for one decision. ExplorerURL is
// presentation-only and empty while the decision is unanchored.
func (uc LookupUseCase) DecisionAnchor(ctx context.Context, decisionID string) (AnchorInfo, error) {
	decision, err := uc.Ledger.GetDecision(ctx, strings.TrimSpace(decisionID))
	if err != nil {
		return AnchorInfo{}, err
	}
	info := AnchorInfo{
		DecisionID: decision.DecisionID,
		Digest:     decision.Digest,
	}
	if decision.AnchorRef != nil {
		info.AnchorRef = *decision.AnchorRef
		info.Anchored = true
		if uc.Anchor != nil {
			info.ExplorerURL = uc.Anchor.ExplorerURL(*decision.AnchorRef)
		}
	}
	return info, nil
}
