package workers

import (
	"context"
	"log/slog"
	"time"

	application "quorum/contexts/decision-governance/decision-engine/application"
	"quorum/contexts/decision-governance/decision-engine/ports"
)

// AnchorReconciler backfills anchor references for decisions whose anchor
// submission failed at request time. Anchoring is best-effort in the request
// path; this worker is the out-of-band retry.
type AnchorReconciler struct {
	Ledger    ports.AnchorBackfillLedger
	Anchor    ports.AnchorClient
	Clock     ports.Clock
	BatchSize int
	Logger    *slog.Logger
}

// RunOnce retries anchoring for a bounded batch of unanchored decisions.
// Individual anchor failures are logged and skipped; the next cycle picks
// them up again.
func (r AnchorReconciler) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(r.Logger)
	limit := r.BatchSize
	if limit <= 0 {
		limit = 50
	}

	pending, err := r.Ledger.ListUnanchoredDecisions(ctx, limit)
	if err != nil {
		logger.Error("anchor reconciler list failed",
			"event", "anchor_reconcile_list_failed",
			"module", "decision-governance/decision-engine",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}
	if len(pending) == 0 {
		logger.Debug("anchor reconciler found no unanchored decisions",
			"event", "anchor_reconcile_noop",
			"module", "decision-governance/decision-engine",
			"layer", "worker",
		)
		return nil
	}

	now := time.Now().UTC()
	if r.Clock != nil {
		now = r.Clock.Now().UTC()
	}

	backfilled := 0
	for _, decision := range pending {
		ref, err := r.Anchor.Submit(ctx, decision.Digest, ports.AnchorMetadata{
			PollID:    decision.PollID,
			Mode:      string(decision.Mode),
			Timestamp: decision.UpdatedAt.Unix(),
		})
		if err != nil {
			logger.Warn("anchor reconcile submit failed; will retry next cycle",
				"event", "anchor_reconcile_submit_failed",
				"module", "decision-governance/decision-engine",
				"layer", "worker",
				"decision_id", decision.DecisionID,
				"error", err.Error(),
			)
			continue
		}
		if err := r.Ledger.SetAnchorRef(ctx, decision.DecisionID, ref, now); err != nil {
			logger.Error("anchor reconcile persist failed",
				"event", "anchor_reconcile_persist_failed",
				"module", "decision-governance/decision-engine",
				"layer", "worker",
				"decision_id", decision.DecisionID,
				"error", err.Error(),
			)
			return err
		}
		backfilled++
	}

	logger.Info("anchor reconcile cycle completed",
		"event", "anchor_reconcile_completed",
		"module", "decision-governance/decision-engine",
		"layer", "worker",
		"pending_count", len(pending),
		"backfilled_count", backfilled,
	)
	return nil
}
