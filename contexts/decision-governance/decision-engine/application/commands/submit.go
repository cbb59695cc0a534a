package commands

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"time"

	application "quorum/contexts/decision-governance/decision-engine/application"
	"quorum/contexts/decision-governance/decision-engine/domain/commitment"
	"quorum/contexts/decision-governance/decision-engine/domain/entities"
	domainerrors "quorum/contexts/decision-governance/decision-engine/domain/errors"
	"quorum/contexts/decision-governance/decision-engine/domain/voting"
	"quorum/contexts/decision-governance/decision-engine/ports"
)

// RankingInput is one position of a submitted ranked ballot.
type RankingInput struct {
	TargetID      string
	Rank          int
	Justification string
}

// SubmitDecisionCommand is the write-model input for decision submission.
// Exactly one of IdentityToken or EvaluatorEmail selects the constituency;
// PollID is required with EvaluatorEmail and otherwise resolved from the
// credential binding.
type SubmitDecisionCommand struct {
	IdentityToken  string
	EvaluatorEmail string
	PollID         string
	TargetID       string
	TargetIDs      []string
	Rankings       []RankingInput
}

// SubmitDecisionResult returns the final decision state plus markers the
// transport layer maps to API semantics. AlreadyDecided carries the existing
// decision and is a steady state, not an error.
type SubmitDecisionResult struct {
	Decision       entities.Decision
	IsUpdate       bool
	AlreadyDecided bool
}

// SubmitDecisionUseCase orchestrates the submission pipeline: eligibility
// gate, ballot validation, point allocation, commitment anchoring, and the
// atomic ledger record, in that order. Anchor and audit failures never block
// the decision itself.
type SubmitDecisionUseCase struct {
	Ledger        ports.DecisionLedger
	Directory     ports.EligibilityDirectory
	Anchor        ports.AnchorClient
	Outbox        ports.OutboxWriter
	Clock         ports.Clock
	IDGen         ports.IDGenerator
	AnchorTimeout time.Duration
	Logger        *slog.Logger
}

// SubmitDecision accepts one identity's decision for a poll, enforcing
// one-current-decision-per-identity semantics. A repeat submission either
// replaces the stored payload (poll allows editing) or surfaces the existing
// decision unchanged.
func (uc SubmitDecisionUseCase) SubmitDecision(ctx context.Context, cmd SubmitDecisionCommand) (SubmitDecisionResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	logger.Info("decision submit processing started",
		"event", "decision_submit_started",
		"module", "decision-governance/decision-engine",
		"layer", "application",
		"poll_id", strings.TrimSpace(cmd.PollID),
	)

	voter, credential, pollID, err := uc.resolveVoter(ctx, cmd)
	if err != nil {
		logger.Warn("decision submit identity resolution failed",
			"event", "decision_submit_identity_failed",
			"module", "decision-governance/decision-engine",
			"layer", "application",
			"poll_id", strings.TrimSpace(cmd.PollID),
			"error", err.Error(),
		)
		return SubmitDecisionResult{}, err
	}

	poll, err := uc.Directory.GetPoll(ctx, pollID)
	if err != nil {
		return SubmitDecisionResult{}, err
	}

	now := uc.now()
	existing, found, err := uc.Ledger.GetDecisionByVoter(ctx, poll.PollID, voter.Key())
	if err != nil {
		return SubmitDecisionResult{}, err
	}
	if voter.Constituency() == entities.ConstituencyParticipant && credential.Used && !found {
		return SubmitDecisionResult{}, domainerrors.ErrCredentialUsed
	}

	if err := voting.CheckEligibility(poll, now, voter.Constituency(), found); err != nil {
		if errors.Is(err, domainerrors.ErrAlreadyDecided) {
			logger.Info("decision submit found existing decision with editing disabled",
				"event", "decision_submit_already_decided",
				"module", "decision-governance/decision-engine",
				"layer", "application",
				"poll_id", poll.PollID,
				"decision_id", existing.DecisionID,
			)
			return SubmitDecisionResult{Decision: existing, AlreadyDecided: true}, nil
		}
		logger.Warn("decision submit blocked by eligibility gate",
			"event", "decision_submit_not_eligible",
			"module", "decision-governance/decision-engine",
			"layer", "application",
			"poll_id", poll.PollID,
			"constituency", string(voter.Constituency()),
			"error", err.Error(),
		)
		return SubmitDecisionResult{}, err
	}

	targets, err := uc.Directory.ListTargetsByPoll(ctx, poll.PollID)
	if err != nil {
		return SubmitDecisionResult{}, err
	}
	targetsByID := make(map[string]entities.Target, len(targets))
	for _, target := range targets {
		targetsByID[target.TargetID] = target
	}

	ballot, err := voting.NormalizeBallot(poll, targetsByID, voter, voting.Ballot{
		Mode:      poll.Mode,
		TargetID:  cmd.TargetID,
		TargetIDs: cmd.TargetIDs,
		Rankings:  toRankings(cmd.Rankings),
	})
	if err != nil {
		logger.Warn("decision submit ballot validation failed",
			"event", "decision_submit_validation_failed",
			"module", "decision-governance/decision-engine",
			"layer", "application",
			"poll_id", poll.PollID,
			"voting_mode", string(poll.Mode),
			"error", err.Error(),
		)
		return SubmitDecisionResult{}, err
	}
	if poll.Mode == entities.VotingModeRanked {
		ballot.Rankings = voting.AllocatePoints(poll, len(targets), ballot.Rankings)
	}

	digest := commitment.Digest(
		voter.Secret(),
		poll.PollID,
		commitment.CanonicalForm(ballot.Mode, ballot.TargetID, ballot.TargetIDs, ballot.Rankings),
		now.Unix(),
	)
	anchorRef := uc.submitAnchor(ctx, logger, digest, ports.AnchorMetadata{
		PollID:    poll.PollID,
		Mode:      string(poll.Mode),
		Timestamp: now.Unix(),
	})

	if found {
		return uc.replaceDecision(ctx, logger, existing, ballot, digest, anchorRef, now)
	}

	decisionID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return SubmitDecisionResult{}, err
	}
	decision := entities.Decision{
		DecisionID:   decisionID,
		PollID:       poll.PollID,
		VoterKey:     voter.Key(),
		Constituency: voter.Constituency(),
		Mode:         ballot.Mode,
		TargetID:     ballot.TargetID,
		TargetIDs:    ballot.TargetIDs,
		Rankings:     ballot.Rankings,
		Digest:       digest,
		AnchorRef:    anchorRef,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	consumeCredential := ""
	if voter.Constituency() == entities.ConstituencyParticipant {
		consumeCredential = credential.TokenHash
	}
	if err := uc.Ledger.InsertDecision(ctx, decision, consumeCredential); err != nil {
		if errors.Is(err, domainerrors.ErrConflict) {
			// Lost the insert race; the other submission is the creator and
			// this one serializes behind it.
			return uc.resolveInsertConflict(ctx, logger, poll, voter, ballot, digest, anchorRef, now)
		}
		logger.Error("decision submit ledger insert failed",
			"event", "decision_submit_insert_failed",
			"module", "decision-governance/decision-engine",
			"layer", "application",
			"poll_id", poll.PollID,
			"error", err.Error(),
		)
		return SubmitDecisionResult{}, err
	}

	uc.appendAudit(ctx, logger, "decision.recorded", decision, now, nil)
	logger.Info("decision recorded",
		"event", "decision_submit_recorded",
		"module", "decision-governance/decision-engine",
		"layer", "application",
		"decision_id", decision.DecisionID,
		"poll_id", decision.PollID,
		"constituency", string(decision.Constituency),
		"voting_mode", string(decision.Mode),
		"anchored", decision.AnchorRef != nil,
	)
	return SubmitDecisionResult{Decision: decision}, nil
}

func (uc SubmitDecisionUseCase) replaceDecision(
	ctx context.Context,
	logger *slog.Logger,
	existing entities.Decision,
	ballot voting.Ballot,
	digest string,
	anchorRef *string,
	now time.Time,
) (SubmitDecisionResult, error) {
	existing.Mode = ballot.Mode
	existing.TargetID = ballot.TargetID
	existing.TargetIDs = ballot.TargetIDs
	existing.Rankings = ballot.Rankings
	existing.Digest = digest
	existing.AnchorRef = anchorRef
	existing.UpdatedAt = now
	if err := uc.Ledger.UpdateDecision(ctx, existing); err != nil {
		logger.Error("decision submit ledger update failed",
			"event", "decision_submit_update_failed",
			"module", "decision-governance/decision-engine",
			"layer", "application",
			"decision_id", existing.DecisionID,
			"poll_id", existing.PollID,
			"error", err.Error(),
		)
		return SubmitDecisionResult{}, err
	}
	uc.appendAudit(ctx, logger, "decision.edited", existing, now, map[string]any{
		"reason": "edit_replaced_payload",
	})
	logger.Info("decision edited",
		"event", "decision_submit_edited",
		"module", "decision-governance/decision-engine",
		"layer", "application",
		"decision_id", existing.DecisionID,
		"poll_id", existing.PollID,
		"anchored", existing.AnchorRef != nil,
	)
	return SubmitDecisionResult{Decision: existing, IsUpdate: true}, nil
}

func (uc SubmitDecisionUseCase) resolveInsertConflict(
	ctx context.Context,
	logger *slog.Logger,
	poll entities.Poll,
	voter voting.Voter,
	ballot voting.Ballot,
	digest string,
	anchorRef *string,
	now time.Time,
) (SubmitDecisionResult, error) {
	existing, found, err := uc.Ledger.GetDecisionByVoter(ctx, poll.PollID, voter.Key())
	if err != nil {
		return SubmitDecisionResult{}, err
	}
	if !found {
		return SubmitDecisionResult{}, domainerrors.ErrConflict
	}
	if !poll.AllowEdit {
		return SubmitDecisionResult{Decision: existing, AlreadyDecided: true}, nil
	}
	return uc.replaceDecision(ctx, logger, existing, ballot, digest, anchorRef, now)
}

// resolveVoter maps the command's identity selector to a typed voter. For
// participants the poll is taken from the credential binding; a PollID in the
// request must then agree with it.
func (uc SubmitDecisionUseCase) resolveVoter(
	ctx context.Context,
	cmd SubmitDecisionCommand,
) (voting.Voter, ports.Credential, string, error) {
	token := strings.TrimSpace(cmd.IdentityToken)
	email := strings.ToLower(strings.TrimSpace(cmd.EvaluatorEmail))
	pollID := strings.TrimSpace(cmd.PollID)

	switch {
	case token != "" && email != "":
		return voting.Voter{}, ports.Credential{}, "", domainerrors.ErrIdentitySelector
	case token == "" && email == "":
		return voting.Voter{}, ports.Credential{}, "", domainerrors.ErrIdentitySelector
	case token != "":
		tokenHash := hashIdentityToken(token)
		credential, err := uc.Directory.GetCredential(ctx, tokenHash)
		if err != nil {
			return voting.Voter{}, ports.Credential{}, "", err
		}
		if pollID != "" && pollID != credential.PollID {
			return voting.Voter{}, ports.Credential{}, "", domainerrors.ErrInvalidDecisionInput
		}
		voter := voting.ParticipantVoter(tokenHash, token, credential.TargetID)
		return voter, credential, credential.PollID, nil
	default:
		if pollID == "" {
			return voting.Voter{}, ports.Credential{}, "", domainerrors.ErrIdentitySelector
		}
		allowed, err := uc.Directory.IsEvaluatorAllowed(ctx, pollID, email)
		if err != nil {
			return voting.Voter{}, ports.Credential{}, "", err
		}
		if !allowed {
			return voting.Voter{}, ports.Credential{}, "", domainerrors.ErrEvaluatorNotAllowed
		}
		return voting.EvaluatorVoter(email), ports.Credential{}, pollID, nil
	}
}

// submitAnchor is best-effort: the anchor call runs under its own deadline
// and any failure leaves the decision unanchored for the reconciler to
// backfill. The engine never rejects a decision because the anchor is down.
func (uc SubmitDecisionUseCase) submitAnchor(
	ctx context.Context,
	logger *slog.Logger,
	digest string,
	metadata ports.AnchorMetadata,
) *string {
	if uc.Anchor == nil {
		return nil
	}
	anchorCtx, cancel := context.WithTimeout(ctx, uc.resolveAnchorTimeout())
	defer cancel()

	ref, err := uc.Anchor.Submit(anchorCtx, digest, metadata)
	if err != nil {
		logger.Warn("commitment anchor unavailable; recording decision unanchored",
			"event", "decision_anchor_submit_failed",
			"module", "decision-governance/decision-engine",
			"layer", "application",
			"poll_id", metadata.PollID,
			"error", err.Error(),
		)
		return nil
	}
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil
	}
	return &ref
}

// appendAudit is fire-and-forget: a failed audit append never rolls back the
// recorded decision.
func (uc SubmitDecisionUseCase) appendAudit(
	ctx context.Context,
	logger *slog.Logger,
	eventType string,
	decision entities.Decision,
	occurredAt time.Time,
	metadata map[string]any,
) {
	if uc.Outbox == nil {
		return
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		logger.Warn("audit event id generation failed",
			"event", "decision_audit_id_failed",
			"module", "decision-governance/decision-engine",
			"layer", "application",
			"decision_id", decision.DecisionID,
			"error", err.Error(),
		)
		return
	}
	data := map[string]any{
		"decision_id":  decision.DecisionID,
		"poll_id":      decision.PollID,
		"constituency": string(decision.Constituency),
		"voting_mode":  string(decision.Mode),
		"digest":       decision.Digest,
		"anchored":     decision.AnchorRef != nil,
		"occurred_at":  occurredAt.Format(time.RFC3339),
	}
	for key, value := range metadata {
		data[key] = value
	}
	envelope, err := newAuditEnvelope(eventID, eventType, decision.PollID, occurredAt, data)
	if err != nil {
		logger.Warn("audit envelope build failed",
			"event", "decision_audit_envelope_failed",
			"module", "decision-governance/decision-engine",
			"layer", "application",
			"decision_id", decision.DecisionID,
			"error", err.Error(),
		)
		return
	}
	if err := uc.Outbox.AppendOutbox(ctx, envelope); err != nil {
		logger.Warn("audit outbox append failed",
			"event", "decision_audit_append_failed",
			"module", "decision-governance/decision-engine",
			"layer", "application",
			"decision_id", decision.DecisionID,
			"error", err.Error(),
		)
	}
}

func (uc SubmitDecisionUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}

func (uc SubmitDecisionUseCase) resolveAnchorTimeout() time.Duration {
	if uc.AnchorTimeout <= 0 {
		return 3 * time.Second
	}
	return uc.AnchorTimeout
}

func toRankings(inputs []RankingInput) []entities.Ranking {
	items := make([]entities.Ranking, 0, len(inputs))
	for _, input := range inputs {
		items = append(items, entities.Ranking{
			TargetID:      input.TargetID,
			Rank:          input.Rank,
			Justification: input.Justification,
		})
	}
	return items
}

func hashIdentityToken(token string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(token)))
	return hex.EncodeToString(sum[:])
}
