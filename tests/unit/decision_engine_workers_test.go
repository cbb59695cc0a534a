package unit

import (
	"context"
	"errors"
	"testing"
	"time"

	enginememory "quorum/contexts/decision-governance/decision-engine/adapters/memory"
	engineworkers "quorum/contexts/decision-governance/decision-engine/application/workers"
	"quorum/contexts/decision-governance/decision-engine/domain/entities"
	"quorum/contexts/decision-governance/decision-engine/ports"
	httptransport "quorum/contexts/decision-governance/decision-engine/transport/http"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

type capturingPublisher struct {
	published []ports.EventEnvelope
	failAfter int // publish calls before failing; negative disables
}

func (p *capturingPublisher) Publish(_ context.Context, _ string, event ports.EventEnvelope) error {
	if p.failAfter >= 0 && len(p.published) >= p.failAfter {
		return errors.New("bus unavailable")
	}
	p.published = append(p.published, event)
	return nil
}

func TestAuditRelayPublishesAndAcknowledges(t *testing.T) {
	poll := openPoll(entities.VotingModeSingle)
	module := newEngineModule(poll, "team-a")
	module.Store.SetCredentialForToken("token-1", "poll-1", "")

	if _, err := module.Handler.SubmitDecisionHandler(context.Background(), httptransport.SubmitDecisionRequest{
		IdentityToken: "token-1",
		TargetID:      "team-a",
	}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	pub := &capturingPublisher{failAfter: -1}
	relay := engineworkers.AuditRelay{
		Outbox:    module.Store,
		Publisher: pub,
		Clock:     fixedClock{now: poll.StartsAt.Add(2 * time.Hour)},
	}
	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("relay run failed: %v", err)
	}
	if len(pub.published) != 1 {
		t.Fatalf("expected 1 published event, got %d", len(pub.published))
	}
	if pub.published[0].EventType != "decision.recorded" {
		t.Errorf("expected decision.recorded, got %s", pub.published[0].EventType)
	}
	if pub.published[0].PartitionKey != "poll-1" {
		t.Errorf("expected partition by poll, got %s", pub.published[0].PartitionKey)
	}

	pending, err := module.Store.ListPendingOutbox(context.Background(), 20)
	if err != nil {
		t.Fatalf("list outbox failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected outbox drained, got %d pending", len(pending))
	}
}

func TestAuditRelayStopsOnPublishFailure(t *testing.T) {
	store := enginememory.NewStore(nil)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"event-1", "event-2"} {
		if err := store.AppendOutbox(context.Background(), ports.EventEnvelope{
			EventID:    id,
			EventType:  "decision.recorded",
			OccurredAt: now.Add(time.Duration(i) * time.Second),
		}); err != nil {
			t.Fatalf("seed outbox failed: %v", err)
		}
	}

	pub := &capturingPublisher{failAfter: 1}
	relay := engineworkers.AuditRelay{
		Outbox:    store,
		Publisher: pub,
		Clock:     fixedClock{now: now},
	}
	if err := relay.RunOnce(context.Background()); err == nil {
		t.Fatal("expected relay to surface publish failure")
	}

	pending, err := store.ListPendingOutbox(context.Background(), 20)
	if err != nil {
		t.Fatalf("list outbox failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected unpublished row retained for retry, got %d pending", len(pending))
	}
	if pending[0].OutboxID != "event-2" {
		t.Fatalf("expected event-2 retained, got %s", pending[0].OutboxID)
	}
}

func TestAnchorReconcilerBackfillsAfterOutage(t *testing.T) {
	poll := openPoll(entities.VotingModeSingle)
	module := newEngineModule(poll, "team-a")
	module.Store.SetCredentialForToken("token-1", "poll-1", "")
	module.Store.SetAnchorDown(true)

	resp, err := module.Handler.SubmitDecisionHandler(context.Background(), httptransport.SubmitDecisionRequest{
		IdentityToken: "token-1",
		TargetID:      "team-a",
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if resp.AnchorRef != nil {
		t.Fatal("expected unanchored decision during outage")
	}

	reconciler := engineworkers.AnchorReconciler{
		Ledger: module.Store,
		Anchor: module.Store,
		Clock:  fixedClock{now: poll.StartsAt.Add(3 * time.Hour)},
	}

	// Outage persists: the cycle completes without backfilling.
	if err := reconciler.RunOnce(context.Background()); err != nil {
		t.Fatalf("reconcile during outage failed: %v", err)
	}
	anchor, err := module.Handler.DecisionAnchorHandler(context.Background(), resp.DecisionID)
	if err != nil {
		t.Fatalf("anchor lookup failed: %v", err)
	}
	if anchor.Anchored {
		t.Fatal("expected decision still unanchored while anchor is down")
	}

	module.Store.SetAnchorDown(false)
	if err := reconciler.RunOnce(context.Background()); err != nil {
		t.Fatalf("reconcile after recovery failed: %v", err)
	}
	anchor, err = module.Handler.DecisionAnchorHandler(context.Background(), resp.DecisionID)
	if err != nil {
		t.Fatalf("anchor lookup failed: %v", err)
	}
	if !anchor.Anchored || anchor.AnchorRef == "" {
		t.Fatalf("expected backfilled anchor, got %+v", anchor)
	}

	unanchored, err := module.Store.ListUnanchoredDecisions(context.Background(), 10)
	if err != nil {
		t.Fatalf("list unanchored failed: %v", err)
	}
	if len(unanchored) != 0 {
		t.Fatalf("expected no unanchored decisions left, got %d", len(unanchored))
	}
}
