package commands

import (
	"encoding/json"
	"time"

	"quorum/contexts/decision-governance/decision-engine/ports"
)

func newAuditEnvelope(
	eventID string,
	eventType string,
	pollID string,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	// Audit events are partitioned by poll so poll-scoped consumers see
	// submissions in a stable order.
	payload, err := json.Marshal(data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    "decision-engine",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "poll_id",
		PartitionKey:     pollID,
		Data:             payload,
	}, nil
}
