// Package commitment derives tamper-evident digests from decision content.
// Everything here is pure; the external anchor submission lives behind
// ports.AnchorClient.
package commitment

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"

	"quorum/contexts/decision-governance/decision-engine/domain/entities"
)

// CanonicalForm renders a decision payload into the canonical string used for
// hashing. Single mode hashes the target id directly; multiple mode sorts
// target ids lexicographically; ranked mode sorts target:rank pairs by rank
// ascending. Semantically identical ballots therefore hash identically
// regardless of submission order.
func CanonicalForm(
	mode entities.VotingMode,
	targetID string,
	targetIDs []string,
	rankings []entities.Ranking,
) string {
	switch mode {
	case entities.VotingModeSingle:
		return strings.TrimSpace(targetID)
	case entities.VotingModeMultiple:
		items := make([]string, 0, len(targetIDs))
		for _, id := range targetIDs {
			items = append(items, strings.TrimSpace(id))
		}
		sort.Strings(items)
		return strings.Join(items, ",")
	case entities.VotingModeRanked:
		ordered := append([]entities.Ranking(nil), rankings...)
		sort.Slice(ordered, func(i, j int) bool {
			return ordered[i].Rank < ordered[j].Rank
		})
		pairs := make([]string, 0, len(ordered))
		for _, ranking := range ordered {
			pairs = append(pairs, strings.TrimSpace(ranking.TargetID)+":"+strconv.Itoa(ranking.Rank))
		}
		return strings.Join(pairs, ",")
	default:
		return ""
	}
}

// Digest computes the fixed-length commitment over the identity secret, poll,
// canonical payload, and submission instant. The raw identity secret never
// leaves this function; only the digest is shared with the anchor.
func Digest(identitySecret string, pollID string, canonicalPayload string, unixTimestamp int64) string {
	sum := sha256.Sum256([]byte(
		strings.TrimSpace(identitySecret) + "|" +
			strings.TrimSpace(pollID) + "|" +
			canonicalPayload + "|" +
			strconv.FormatInt(unixTimestamp, 10),
	))
	return hex.EncodeToString(sum[:])
}
