package memory

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"quorum/contexts/decision-governance/decision-engine/domain/entities"
	domainerrors "quorum/contexts/decision-governance/decision-engine/domain/errors"
	"quorum/contexts/decision-governance/decision-engine/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	message   ports.OutboxMessage
	published bool
}

// Store is the in-memory adapter behind every engine port. It backs unit
// tests and local wiring; the mutex stands in for the storage-level atomicity
// the postgres adapter gets from its unique constraint.
type Store struct {
	mu sync.RWMutex

	decisions   map[string]entities.Decision
	byVoter     map[string]string // pollID|voterKey -> decisionID
	outbox      map[string]outboxRecord
	polls       map[string]entities.Poll
	targets     map[string][]entities.Target
	credentials map[string]ports.Credential
	evaluators  map[string]map[string]struct{} // pollID -> allowed emails

	anchorDown bool
	anchored   map[string]string // digest -> anchor ref

	now time.Time
}

func NewStore(seed []entities.Decision) *Store {
	decisions := make(map[string]entities.Decision, len(seed))
	byVoter := make(map[string]string, len(seed))
	for _, decision := range seed {
		decisions[decision.DecisionID] = decision
		byVoter[voterIndex(decision.PollID, decision.VoterKey)] = decision.DecisionID
	}
	return &Store{
		decisions:   decisions,
		byVoter:     byVoter,
		outbox:      make(map[string]outboxRecord),
		polls:       make(map[string]entities.Poll),
		targets:     make(map[string][]entities.Target),
		credentials: make(map[string]ports.Credential),
		evaluators:  make(map[string]map[string]struct{}),
		anchored:    make(map[string]string),
	}
}

// --- seeding helpers (tests and local wiring) ---

func (s *Store) SetPoll(poll entities.Poll) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.polls[strings.TrimSpace(poll.PollID)] = poll
}

func (s *Store) SetTarget(target entities.Target) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pollID := strings.TrimSpace(target.PollID)
	s.targets[pollID] = append(s.targets[pollID], entities.Target{
		TargetID: strings.TrimSpace(target.TargetID),
		PollID:   pollID,
	})
}

func (s *Store) SetCredential(credential ports.Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credentials[strings.TrimSpace(credential.TokenHash)] = credential
}

// SetCredentialForToken seeds a credential from the raw token, hashing it the
// way the engine does.
func (s *Store) SetCredentialForToken(token string, pollID string, targetID string) {
	sum := sha256.Sum256([]byte(strings.TrimSpace(token)))
	s.SetCredential(ports.Credential{
		TokenHash: hex.EncodeToString(sum[:]),
		PollID:    strings.TrimSpace(pollID),
		TargetID:  strings.TrimSpace(targetID),
	})
}

func (s *Store) AllowEvaluator(pollID string, email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pollID = strings.TrimSpace(pollID)
	if s.evaluators[pollID] == nil {
		s.evaluators[pollID] = make(map[string]struct{})
	}
	s.evaluators[pollID][strings.ToLower(strings.TrimSpace(email))] = struct{}{}
}

// SetAnchorDown toggles simulated anchor unavailability.
func (s *Store) SetAnchorDown(down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.anchorDown = down
}

// SetNow pins the injected clock; zero restores wall time.
func (s *Store) SetNow(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// --- ports.DecisionLedger ---

func (s *Store) InsertDecision(_ context.Context, decision entities.Decision, consumeCredential string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := voterIndex(decision.PollID, decision.VoterKey)
	if _, exists := s.byVoter[key]; exists {
		return domainerrors.ErrConflict
	}
	if consumeCredential = strings.TrimSpace(consumeCredential); consumeCredential != "" {
		credential, ok := s.credentials[consumeCredential]
		if !ok {
			return domainerrors.ErrCredentialNotFound
		}
		if credential.Used {
			return domainerrors.ErrCredentialUsed
		}
		credential.Used = true
		s.credentials[consumeCredential] = credential
	}
	s.decisions[decision.DecisionID] = decision
	s.byVoter[key] = decision.DecisionID
	return nil
}

func (s *Store) UpdateDecision(_ context.Context, decision entities.Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.decisions[decision.DecisionID]; !ok {
		return domainerrors.ErrDecisionNotFound
	}
	s.decisions[decision.DecisionID] = decision
	return nil
}

func (s *Store) GetDecision(_ context.Context, decisionID string) (entities.Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	decision, ok := s.decisions[strings.TrimSpace(decisionID)]
	if !ok {
		return entities.Decision{}, domainerrors.ErrDecisionNotFound
	}
	return decision, nil
}

func (s *Store) GetDecisionByVoter(_ context.Context, pollID string, voterKey string) (entities.Decision, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	decisionID, ok := s.byVoter[voterIndex(pollID, voterKey)]
	if !ok {
		return entities.Decision{}, false, nil
	}
	return s.decisions[decisionID], true, nil
}

func (s *Store) ListDecisionsByPoll(_ context.Context, pollID string) ([]entities.Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pollID = strings.TrimSpace(pollID)
	items := make([]entities.Decision, 0)
	for _, decision := range s.decisions {
		if decision.PollID == pollID {
			items = append(items, decision)
		}
	}
	sortDecisionsByCreation(items)
	return items, nil
}

// --- ports.AnchorBackfillLedger ---

func (s *Store) ListUnanchoredDecisions(_ context.Context, limit int) ([]entities.Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 50
	}
	items := make([]entities.Decision, 0)
	for _, decision := range s.decisions {
		if decision.AnchorRef == nil {
			items = append(items, decision)
		}
	}
	sortDecisionsByCreation(items)
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) SetAnchorRef(_ context.Context, decisionID string, anchorRef string, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	decision, ok := s.decisions[strings.TrimSpace(decisionID)]
	if !ok {
		return domainerrors.ErrDecisionNotFound
	}
	ref := strings.TrimSpace(anchorRef)
	decision.AnchorRef = &ref
	decision.UpdatedAt = updatedAt.UTC()
	s.decisions[decision.DecisionID] = decision
	return nil
}

// --- ports.EligibilityDirectory ---

func (s *Store) GetPoll(_ context.Context, pollID string) (entities.Poll, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	poll, ok := s.polls[strings.TrimSpace(pollID)]
	if !ok {
		return entities.Poll{}, domainerrors.ErrPollNotFound
	}
	return poll, nil
}

func (s *Store) ListTargetsByPoll(_ context.Context, pollID string) ([]entities.Target, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := append([]entities.Target(nil), s.targets[strings.TrimSpace(pollID)]...)
	sort.Slice(items, func(i, j int) bool {
		return items[i].TargetID < items[j].TargetID
	})
	return items, nil
}

func (s *Store) GetCredential(_ context.Context, tokenHash string) (ports.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	credential, ok := s.credentials[strings.TrimSpace(tokenHash)]
	if !ok {
		return ports.Credential{}, domainerrors.ErrCredentialNotFound
	}
	return credential, nil
}

func (s *Store) IsEvaluatorAllowed(_ context.Context, pollID string, email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	allowed, ok := s.evaluators[strings.TrimSpace(pollID)]
	if !ok {
		return false, nil
	}
	_, member := allowed[strings.ToLower(strings.TrimSpace(email))]
	return member, nil
}

// --- ports.AnchorClient ---

func (s *Store) Submit(_ context.Context, digest string, _ ports.AnchorMetadata) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.anchorDown {
		return "", errors.New("anchor service unavailable")
	}
	if ref, ok := s.anchored[digest]; ok {
		return ref, nil
	}
	ref := "anchor-" + uuid.NewString()
	s.anchored[digest] = ref
	return ref, nil
}

func (s *Store) ExplorerURL(anchorRef string) string {
	return "https://explorer.invalid/tx/" + strings.TrimSpace(anchorRef)
}

// --- ports.OutboxWriter / ports.OutboxRepository ---

func (s *Store) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	if existing, ok := s.outbox[outboxID]; ok {
		if !bytes.Equal(existing.message.Payload, payload) {
			return domainerrors.ErrConflict
		}
		return nil
	}
	createdAt := envelope.OccurredAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	s.outbox[outboxID] = outboxRecord{
		message: ports.OutboxMessage{
			OutboxID:     outboxID,
			EventType:    strings.TrimSpace(envelope.EventType),
			PartitionKey: strings.TrimSpace(envelope.PartitionKey),
			Payload:      payload,
			CreatedAt:    createdAt,
		},
	}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	items := make([]ports.OutboxMessage, 0, len(s.outbox))
	for _, row := range s.outbox {
		if row.published {
			continue
		}
		items = append(items, row.message)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return domainerrors.ErrConflict
	}
	row.published = true
	s.outbox[strings.TrimSpace(outboxID)] = row
	return nil
}

// --- ports.Clock / ports.IDGenerator ---

func (s *Store) Now() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.now.IsZero() {
		return s.now
	}
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func voterIndex(pollID string, voterKey string) string {
	return strings.TrimSpace(pollID) + "|" + strings.TrimSpace(voterKey)
}

func sortDecisionsByCreation(items []entities.Decision) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].DecisionID < items[j].DecisionID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
}

var _ ports.DecisionLedger = (*Store)(nil)
var _ ports.AnchorBackfillLedger = (*Store)(nil)
var _ ports.EligibilityDirectory = (*Store)(nil)
var _ ports.AnchorClient = (*Store)(nil)
var _ ports.OutboxWriter = (*Store)(nil)
var _ ports.OutboxRepository = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)
