// Package decisionengine implements the decision submission and tallying
// engine inside the decision-governance context.
//
// The module owns decision lifecycle orchestration (submit/edit), eligibility
// and ballot validation, commitment anchoring, weighted tally reads, and
// audit event production through outbox-backed workers. It keeps business
// rules in application/domain layers and isolates infrastructure concerns
// behind ports and adapters.
package decisionengine
