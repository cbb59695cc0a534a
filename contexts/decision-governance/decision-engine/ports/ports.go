package ports

import (
	"context"
	"time"

	"quorum/contexts/decision-governance/decision-engine/domain/entities"
	contractsv1 "quorum/contracts/gen/events/v1"
)

// DecisionLedger owns decision persistence. InsertDecision must be a single
// atomic operation keyed on (poll_id, voter_key): of two concurrent inserts
// for the same identity exactly one succeeds and the other observes
// ErrConflict. When consumeCredential is non-empty the credential's used flag
// is flipped in the same transaction as the insert, so a failed insert never
// burns a one-time credential.
type DecisionLedger interface {
	InsertDecision(ctx context.Context, decision entities.Decision, consumeCredential string) error
	UpdateDecision(ctx context.Context, decision entities.Decision) error
	GetDecision(ctx context.Context, decisionID string) (entities.Decision, error)
	GetDecisionByVoter(ctx context.Context, pollID string, voterKey string) (entities.Decision, bool, error)
	ListDecisionsByPoll(ctx context.Context, pollID string) ([]entities.Decision, error)
}

// AnchorBackfillLedger is the worker-side view used to reconcile decisions
// whose anchor submission failed at request time.
type AnchorBackfillLedger interface {
	ListUnanchoredDecisions(ctx context.Context, limit int) ([]entities.Decision, error)
	SetAnchorRef(ctx context.Context, decisionID string, anchorRef string, updatedAt time.Time) error
}

// Credential is the single-use participant credential projection. The engine
// reads it to resolve the voter's poll and bound target; issuance lives
// elsewhere.
type Credential struct {
	TokenHash string
	PollID    string
	TargetID  string // bound target for self-interest checks, may be empty
	Used      bool
}

// EligibilityDirectory exposes the read-only poll configuration and identity
// bindings the engine consumes. It never mutates poll configuration.
type EligibilityDirectory interface {
	GetPoll(ctx context.Context, pollID string) (entities.Poll, error)
	ListTargetsByPoll(ctx context.Context, pollID string) ([]entities.Target, error)
	GetCredential(ctx context.Context, tokenHash string) (Credential, error)
	IsEvaluatorAllowed(ctx context.Context, pollID string, email string) (bool, error)
}

// AnchorMetadata is the non-identifying context submitted alongside a digest.
// The raw identity secret must never appear here.
type AnchorMetadata struct {
	PollID    string
	Mode      string
	Timestamp int64
}

// AnchorClient submits commitment digests to the external anchor. Submit
// failures are non-fatal to the caller; ExplorerURL is presentation-only.
type AnchorClient interface {
	Submit(ctx context.Context, digest string, metadata AnchorMetadata) (string, error)
	ExplorerURL(anchorRef string) string
}

// TallyCache is an optional read-side cache for computed tallies. Staleness
// within the TTL is acceptable; tallying is on-demand, not per submission.
type TallyCache interface {
	GetTally(ctx context.Context, pollID string) ([]entities.TargetTally, bool, error)
	PutTally(ctx context.Context, pollID string, entries []entities.TargetTally, ttl time.Duration) error
}

// OutboxMessage is a row ready to relay from the module outbox.
type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

// OutboxWriter appends audit envelopes on the command side.
type OutboxWriter interface {
	AppendOutbox(ctx context.Context, event EventEnvelope) error
}

// OutboxRepository models worker-side outbox polling/acknowledgement.
type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

// EventEnvelope reuses the canonical cross-runtime envelope contract.
type EventEnvelope = contractsv1.Envelope

// EventPublisher publishes canonical envelopes to a topic.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
