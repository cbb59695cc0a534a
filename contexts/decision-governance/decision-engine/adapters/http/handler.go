package httpadapter

import (
	"context"
	"log/slog"

	"quorum/contexts/decision-governance/decision-engine/application/commands"
	"quorum/contexts/decision-governance/decision-engine/application/queries"
	"quorum/contexts/decision-governance/decision-engine/domain/entities"
	httptransport "quorum/contexts/decision-governance/decision-engine/transport/http"
)

type Handler struct {
	Submissions commands.SubmitDecisionUseCase
	Tallies     queries.TallyUseCase
	Lookups     queries.LookupUseCase
	Logger      *slog.Logger
}

func (h Handler) SubmitDecisionHandler(
	ctx context.Context,
	req httptransport.SubmitDecisionRequest,
) (httptransport.SubmitDecisionResponse, error) {
	rankings := make([]commands.RankingInput, 0, len(req.Rankings))
	for _, ranking := range req.Rankings {
		rankings = append(rankings, commands.RankingInput{
			TargetID:      ranking.TargetID,
			Rank:          ranking.Rank,
			Justification: ranking.Justification,
		})
	}
	result, err := h.Submissions.SubmitDecision(ctx, commands.SubmitDecisionCommand{
		IdentityToken:  req.IdentityToken,
		EvaluatorEmail: req.EvaluatorEmail,
		PollID:         req.PollID,
		TargetID:       req.TargetID,
		TargetIDs:      req.TargetIDs,
		Rankings:       rankings,
	})
	if err != nil {
		return httptransport.SubmitDecisionResponse{}, err
	}

	resp := httptransport.SubmitDecisionResponse{
		DecisionID: result.Decision.DecisionID,
		AnchorRef:  result.Decision.AnchorRef,
		RecordedAt: result.Decision.CreatedAt,
		IsUpdate:   result.IsUpdate,
	}
	if result.AlreadyDecided {
		existing := mapDecision(result.Decision)
		resp.AlreadyDecided = true
		resp.ExistingDecision = &existing
	}
	return resp, nil
}

func (h Handler) PollTallyHandler(ctx context.Context, pollID string) (httptransport.TallyResponse, error) {
	entries, err := h.Tallies.PollTally(ctx, pollID)
	if err != nil {
		return httptransport.TallyResponse{}, err
	}
	items := make([]httptransport.TallyEntryPayload, 0, len(entries))
	for _, entry := range entries {
		items = append(items, httptransport.TallyEntryPayload{
			TargetID:          entry.TargetID,
			ParticipantCount:  entry.ParticipantCount,
			EvaluatorCount:    entry.EvaluatorCount,
			ParticipantPoints: entry.ParticipantPoints,
			EvaluatorPoints:   entry.EvaluatorPoints,
			WeightedScore:     entry.WeightedScore,
			RankCounts:        entry.RankCounts,
		})
	}
	return httptransport.TallyResponse{PollID: pollID, Items: items}, nil
}

func (h Handler) LookupDecisionHandler(
	ctx context.Context,
	identityToken string,
	evaluatorEmail string,
	pollID string,
) (httptransport.DecisionPayload, error) {
	decision, err := h.Lookups.CurrentDecision(ctx, identityToken, evaluatorEmail, pollID)
	if err != nil {
		return httptransport.DecisionPayload{}, err
	}
	return mapDecision(decision), nil
}

func (h Handler) DecisionAnchorHandler(ctx context.Context, decisionID string) (httptransport.DecisionAnchorResponse, error) {
	info, err := h.Lookups.DecisionAnchor(ctx, decisionID)
	if err != nil {
		return httptransport.DecisionAnchorResponse{}, err
	}
	return httptransport.DecisionAnchorResponse{
		DecisionID:  info.DecisionID,
		Digest:      info.Digest,
		AnchorRef:   info.AnchorRef,
		Anchored:    info.Anchored,
		ExplorerURL: info.ExplorerURL,
	}, nil
}

func mapDecision(decision entities.Decision) httptransport.DecisionPayload {
	rankings := make([]httptransport.RankingPayload, 0, len(decision.Rankings))
	for _, ranking := range decision.Rankings {
		rankings = append(rankings, httptransport.RankingPayload{
			TargetID:      ranking.TargetID,
			Rank:          ranking.Rank,
			Points:        ranking.Points,
			Justification: ranking.Justification,
		})
	}
	return httptransport.DecisionPayload{
		DecisionID:   decision.DecisionID,
		PollID:       decision.PollID,
		Constituency: string(decision.Constituency),
		VotingMode:   string(decision.Mode),
		TargetID:     decision.TargetID,
		TargetIDs:    decision.TargetIDs,
		Rankings:     rankings,
		AnchorRef:    decision.AnchorRef,
		RecordedAt:   decision.CreatedAt,
		UpdatedAt:    decision.UpdatedAt,
	}
}
