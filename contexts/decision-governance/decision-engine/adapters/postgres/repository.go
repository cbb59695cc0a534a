package postgresadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"quorum/contexts/decision-governance/decision-engine/domain/entities"
	domainerrors "quorum/contexts/decision-governance/decision-engine/domain/errors"
	"quorum/contexts/decision-governance/decision-engine/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// InsertDecision atomically creates the decision row and, for participants,
// consumes the one-time credential in the same transaction. The unique index
// on (poll_id, voter_key) totally orders concurrent submissions: the loser
// sees ErrConflict and its credential stays unconsumed.
func (r *Repository) InsertDecision(ctx context.Context, decision entities.Decision, consumeCredential string) error {
	row, err := decisionModelFromEntity(decision)
	if err != nil {
		return r.logError("decision_repo_insert_encode_failed", err,
			"decision_id", strings.TrimSpace(decision.DecisionID),
		)
	}
	consumeCredential = strings.TrimSpace(consumeCredential)

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		create := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "poll_id"}, {Name: "voter_key"}},
			DoNothing: true,
		}).Create(&row)
		if create.Error != nil {
			if isUniqueViolation(create.Error) {
				return domainerrors.ErrConflict
			}
			return create.Error
		}
		if create.RowsAffected == 0 {
			return domainerrors.ErrConflict
		}

		if consumeCredential == "" {
			return nil
		}
		consume := tx.Model(&credentialModel{}).
			Where("token_hash = ?", consumeCredential).
			Where("used = ?", false).
			Updates(map[string]any{
				"used":    true,
				"used_at": row.CreatedAt,
			})
		if consume.Error != nil {
			return consume.Error
		}
		if consume.RowsAffected == 0 {
			var existing credentialModel
			if err := tx.Where("token_hash = ?", consumeCredential).First(&existing).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return domainerrors.ErrCredentialNotFound
				}
				return err
			}
			return domainerrors.ErrCredentialUsed
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrConflict) ||
			errors.Is(err, domainerrors.ErrCredentialUsed) ||
			errors.Is(err, domainerrors.ErrCredentialNotFound) {
			return err
		}
		return r.logError("decision_repo_insert_failed", err,
			"decision_id", strings.TrimSpace(decision.DecisionID),
			"poll_id", strings.TrimSpace(decision.PollID),
		)
	}
	return nil
}

func (r *Repository) UpdateDecision(ctx context.Context, decision entities.Decision) error {
	row, err := decisionModelFromEntity(decision)
	if err != nil {
		return r.logError("decision_repo_update_encode_failed", err,
			"decision_id", strings.TrimSpace(decision.DecisionID),
		)
	}
	result := r.db.WithContext(ctx).
		Model(&decisionModel{}).
		Where("id = ?", row.ID).
		Updates(map[string]any{
			"voting_mode": row.VotingMode,
			"target_id":   row.TargetID,
			"target_ids":  row.TargetIDs,
			"rankings":    row.Rankings,
			"digest":      row.Digest,
			"anchor_ref":  row.AnchorRef,
			"updated_at":  row.UpdatedAt,
		})
	if result.Error != nil {
		return r.logError("decision_repo_update_failed", result.Error,
			"decision_id", row.ID,
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrDecisionNotFound
	}
	return nil
}

func (r *Repository) GetDecision(ctx context.Context, decisionID string) (entities.Decision, error) {
	var row decisionModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(decisionID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Decision{}, domainerrors.ErrDecisionNotFound
		}
		return entities.Decision{}, r.logError("decision_repo_get_failed", err,
			"decision_id", strings.TrimSpace(decisionID),
		)
	}
	return row.toEntity()
}

func (r *Repository) GetDecisionByVoter(ctx context.Context, pollID string, voterKey string) (entities.Decision, bool, error) {
	var row decisionModel
	err := r.db.WithContext(ctx).
		Where("poll_id = ?", strings.TrimSpace(pollID)).
		Where("voter_key = ?", strings.TrimSpace(voterKey)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Decision{}, false, nil
		}
		return entities.Decision{}, false, r.logError("decision_repo_get_by_voter_failed", err,
			"poll_id", strings.TrimSpace(pollID),
		)
	}
	decision, err := row.toEntity()
	if err != nil {
		return entities.Decision{}, false, err
	}
	return decision, true, nil
}

func (r *Repository) ListDecisionsByPoll(ctx context.Context, pollID string) ([]entities.Decision, error) {
	var rows []decisionModel
	if err := r.db.WithContext(ctx).
		Where("poll_id = ?", strings.TrimSpace(pollID)).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("decision_repo_list_by_poll_failed", err,
			"poll_id", strings.TrimSpace(pollID),
		)
	}
	return toDecisionEntities(rows)
}

func (r *Repository) ListUnanchoredDecisions(ctx context.Context, limit int) ([]entities.Decision, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []decisionModel
	if err := r.db.WithContext(ctx).
		Where("anchor_ref IS NULL").
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("decision_repo_list_unanchored_failed", err, "limit", limit)
	}
	return toDecisionEntities(rows)
}

func (r *Repository) SetAnchorRef(ctx context.Context, decisionID string, anchorRef string, updatedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&decisionModel{}).
		Where("id = ?", strings.TrimSpace(decisionID)).
		Where("anchor_ref IS NULL").
		Updates(map[string]any{
			"anchor_ref": strings.TrimSpace(anchorRef),
			"updated_at": updatedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("decision_repo_set_anchor_failed", result.Error,
			"decision_id", strings.TrimSpace(decisionID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrDecisionNotFound
	}
	return nil
}

// --- ports.EligibilityDirectory ---

func (r *Repository) GetPoll(ctx context.Context, pollID string) (entities.Poll, error) {
	var row pollModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(pollID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Poll{}, domainerrors.ErrPollNotFound
		}
		return entities.Poll{}, r.logError("decision_repo_get_poll_failed", err,
			"poll_id", strings.TrimSpace(pollID),
		)
	}
	return row.toEntity()
}

func (r *Repository) ListTargetsByPoll(ctx context.Context, pollID string) ([]entities.Target, error) {
	var rows []targetModel
	if err := r.db.WithContext(ctx).
		Where("poll_id = ?", strings.TrimSpace(pollID)).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("decision_repo_list_targets_failed", err,
			"poll_id", strings.TrimSpace(pollID),
		)
	}
	items := make([]entities.Target, 0, len(rows))
	for _, row := range rows {
		items = append(items, entities.Target{
			TargetID: row.ID,
			PollID:   row.PollID,
		})
	}
	return items, nil
}

func (r *Repository) GetCredential(ctx context.Context, tokenHash string) (ports.Credential, error) {
	var row credentialModel
	err := r.db.WithContext(ctx).
		Where("token_hash = ?", strings.TrimSpace(tokenHash)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.Credential{}, domainerrors.ErrCredentialNotFound
		}
		return ports.Credential{}, r.logError("decision_repo_get_credential_failed", err)
	}
	targetID := ""
	if row.TargetID != nil {
		targetID = strings.TrimSpace(*row.TargetID)
	}
	return ports.Credential{
		TokenHash: row.TokenHash,
		PollID:    row.PollID,
		TargetID:  targetID,
		Used:      row.Used,
	}, nil
}

func (r *Repository) IsEvaluatorAllowed(ctx context.Context, pollID string, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&evaluatorModel{}).
		Where("poll_id = ?", strings.TrimSpace(pollID)).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		Count(&count).
		Error
	if err != nil {
		return false, r.logError("decision_repo_evaluator_allowlist_failed", err,
			"poll_id", strings.TrimSpace(pollID),
		)
	}
	return count > 0, nil
}

// --- ports.OutboxWriter / ports.OutboxRepository ---

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return r.logError("decision_repo_append_outbox_marshal_failed", err,
			"event_id", strings.TrimSpace(envelope.EventID),
		)
	}
	row := outboxModel{
		OutboxID:     strings.TrimSpace(envelope.EventID),
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if row.OutboxID == "" {
		row.OutboxID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "outbox_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return r.logError("decision_repo_append_outbox_insert_failed", create.Error,
			"outbox_id", row.OutboxID,
		)
	}
	if create.RowsAffected > 0 {
		return nil
	}

	var existing outboxModel
	if err := r.db.WithContext(ctx).
		Select("payload").
		Where("outbox_id = ?", row.OutboxID).
		First(&existing).Error; err != nil {
		return r.logError("decision_repo_append_outbox_load_existing_failed", err,
			"outbox_id", row.OutboxID,
		)
	}
	if !bytes.Equal(existing.Payload, row.Payload) {
		return domainerrors.ErrConflict
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("decision_repo_list_pending_outbox_failed", err, "limit", limit)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("decision_repo_mark_outbox_published_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrConflict
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "decision-governance/decision-engine",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("decision repository operation failed", fields...)
	return err
}

// --- gorm models ---

type decisionModel struct {
	ID           string    `gorm:"column:id;primaryKey"`
	PollID       string    `gorm:"column:poll_id;uniqueIndex:ux_decisions_poll_voter"`
	VoterKey     string    `gorm:"column:voter_key;uniqueIndex:ux_decisions_poll_voter"`
	Constituency string    `gorm:"column:constituency"`
	VotingMode   string    `gorm:"column:voting_mode"`
	TargetID     *string   `gorm:"column:target_id"`
	TargetIDs    []byte    `gorm:"column:target_ids"`
	Rankings     []byte    `gorm:"column:rankings"`
	Digest       string    `gorm:"column:digest"`
	AnchorRef    *string   `gorm:"column:anchor_ref"`
	CreatedAt    time.Time `gorm:"column:created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

func (decisionModel) TableName() string {
	return "decisions"
}

func decisionModelFromEntity(decision entities.Decision) (decisionModel, error) {
	row := decisionModel{
		ID:           strings.TrimSpace(decision.DecisionID),
		PollID:       strings.TrimSpace(decision.PollID),
		VoterKey:     strings.TrimSpace(decision.VoterKey),
		Constituency: string(decision.Constituency),
		VotingMode:   string(decision.Mode),
		Digest:       strings.TrimSpace(decision.Digest),
		AnchorRef:    decision.AnchorRef,
		CreatedAt:    decision.CreatedAt.UTC(),
		UpdatedAt:    decision.UpdatedAt.UTC(),
	}
	if targetID := strings.TrimSpace(decision.TargetID); targetID != "" {
		row.TargetID = &targetID
	}
	if len(decision.TargetIDs) > 0 {
		payload, err := json.Marshal(decision.TargetIDs)
		if err != nil {
			return decisionModel{}, err
		}
		row.TargetIDs = payload
	}
	if len(decision.Rankings) > 0 {
		payload, err := json.Marshal(decision.Rankings)
		if err != nil {
			return decisionModel{}, err
		}
		row.Rankings = payload
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = row.CreatedAt
	}
	return row, nil
}

func (m decisionModel) toEntity() (entities.Decision, error) {
	decision := entities.Decision{
		DecisionID:   m.ID,
		PollID:       m.PollID,
		VoterKey:     m.VoterKey,
		Constituency: entities.Constituency(m.Constituency),
		Mode:         entities.VotingMode(m.VotingMode),
		Digest:       m.Digest,
		AnchorRef:    m.AnchorRef,
		CreatedAt:    m.CreatedAt.UTC(),
		UpdatedAt:    m.UpdatedAt.UTC(),
	}
	if m.TargetID != nil {
		decision.TargetID = strings.TrimSpace(*m.TargetID)
	}
	if len(m.TargetIDs) > 0 {
		if err := json.Unmarshal(m.TargetIDs, &decision.TargetIDs); err != nil {
			return entities.Decision{}, err
		}
	}
	if len(m.Rankings) > 0 {
		if err := json.Unmarshal(m.Rankings, &decision.Rankings); err != nil {
			return entities.Decision{}, err
		}
	}
	return decision, nil
}

type pollModel struct {
	ID                 string    `gorm:"column:id;primaryKey"`
	StartsAt           time.Time `gorm:"column:starts_at"`
	EndsAt             time.Time `gorm:"column:ends_at"`
	VotingMode         string    `gorm:"column:voting_mode"`
	Permissions        string    `gorm:"column:permissions"`
	Sequence           string    `gorm:"column:voting_sequence"`
	ParticipantWeight  float64   `gorm:"column:participant_weight"`
	EvaluatorWeight    float64   `gorm:"column:evaluator_weight"`
	SelfVoteAllowed    bool      `gorm:"column:self_vote_allowed"`
	AllowEdit          bool      `gorm:"column:allow_edit"`
	MaxRankedPositions int       `gorm:"column:max_ranked_positions"`
	RankPointOverrides []byte    `gorm:"column:rank_point_overrides"`
}

func (pollModel) TableName() string {
	return "polls"
}

func (m pollModel) toEntity() (entities.Poll, error) {
	poll := entities.Poll{
		PollID:             m.ID,
		StartsAt:           m.StartsAt.UTC(),
		EndsAt:             m.EndsAt.UTC(),
		Mode:               entities.VotingMode(m.VotingMode),
		Permissions:        entities.PermissionMode(m.Permissions),
		Sequence:           entities.VotingSequence(m.Sequence),
		ParticipantWeight:  m.ParticipantWeight,
		EvaluatorWeight:    m.EvaluatorWeight,
		SelfVoteAllowed:    m.SelfVoteAllowed,
		AllowEdit:          m.AllowEdit,
		MaxRankedPositions: m.MaxRankedPositions,
	}
	if len(m.RankPointOverrides) > 0 {
		if err := json.Unmarshal(m.RankPointOverrides, &poll.RankPointOverrides); err != nil {
			return entities.Poll{}, err
		}
	}
	return poll, nil
}

type targetModel struct {
	ID     string `gorm:"column:id;primaryKey"`
	PollID string `gorm:"column:poll_id"`
}

func (targetModel) TableName() string {
	return "targets"
}

type credentialModel struct {
	TokenHash string     `gorm:"column:token_hash;primaryKey"`
	PollID    string     `gorm:"column:poll_id"`
	TargetID  *string    `gorm:"column:target_id"`
	Used      bool       `gorm:"column:used"`
	UsedAt    *time.Time `gorm:"column:used_at"`
}

func (credentialModel) TableName() string {
	return "participant_credentials"
}

type evaluatorModel struct {
	PollID string `gorm:"column:poll_id;primaryKey"`
	Email  string `gorm:"column:email;primaryKey"`
}

func (evaluatorModel) TableName() string {
	return "poll_evaluators"
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "decision_audit_outbox"
}

func toDecisionEntities(rows []decisionModel) ([]entities.Decision, error) {
	items := make([]entities.Decision, 0, len(rows))
	for _, row := range rows {
		decision, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		items = append(items, decision)
	}
	return items, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.DecisionLedger = (*Repository)(nil)
var _ ports.AnchorBackfillLedger = (*Repository)(nil)
var _ ports.EligibilityDirectory = (*Repository)(nil)
var _ ports.OutboxWriter = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)

// SystemClock satisfies ports.Clock with wall time.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// UUIDGenerator satisfies ports.IDGenerator with random UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}
