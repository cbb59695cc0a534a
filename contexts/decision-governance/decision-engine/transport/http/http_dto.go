package http

import "time"

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type RankingPayload struct {
	TargetID      string `json:"target_id"`
	Rank          int    `json:"rank"`
	Points        int    `json:"points,omitempty"`
	Justification string `json:"justification,omitempty"`
}

type SubmitDecisionRequest struct {
	IdentityToken  string           `json:"identity_token,omitempty"`
	EvaluatorEmail string           `json:"evaluator_email,omitempty"`
	PollID         string           `json:"poll_id,omitempty"`
	TargetID       string           `json:"target_id,omitempty"`
	TargetIDs      []string         `json:"target_ids,omitempty"`
	Rankings       []RankingPayload `json:"rankings,omitempty"`
}

type DecisionPayload struct {
	DecisionID   string           `json:"decision_id"`
	PollID       string           `json:"poll_id"`
	Constituency string           `json:"constituency"`
	VotingMode   string           `json:"voting_mode"`
	TargetID     string           `json:"target_id,omitempty"`
	TargetIDs    []string         `json:"target_ids,omitempty"`
	Rankings     []RankingPayload `json:"rankings,omitempty"`
	AnchorRef    *string          `json:"anchor_ref"`
	RecordedAt   time.Time        `json:"recorded_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

type SubmitDecisionResponse struct {
	DecisionID       string           `json:"decision_id"`
	AnchorRef        *string          `json:"anchor_ref"`
	RecordedAt       time.Time        `json:"recorded_at"`
	IsUpdate         bool             `json:"is_update"`
	AlreadyDecided   bool             `json:"already_decided,omitempty"`
	ExistingDecision *DecisionPayload `json:"existing_decision,omitempty"`
}

type TallyEntryPayload struct {
	TargetID          string      `json:"target_id"`
	ParticipantCount  int         `json:"participant_count"`
	EvaluatorCount    int         `json:"evaluator_count"`
	ParticipantPoints float64     `json:"participant_points"`
	EvaluatorPoints   float64     `json:"evaluator_points"`
	WeightedScore     float64     `json:"weighted_score"`
	RankCounts        map[int]int `json:"rank_counts,omitempty"`
}

type TallyResponse struct {
	PollID string              `json:"poll_id"`
	Items  []TallyEntryPayload `json:"items"`
}

type DecisionAnchorResponse struct {
	DecisionID  string `json:"decision_id"`
	Digest      string `json:"digest"`
	AnchorRef   string `json:"anchor_ref,omitempty"`
	Anchored    bool   `json:"anchored"`
	ExplorerURL string `json:"explorer_url,omitempty"`
}
