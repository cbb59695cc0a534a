package entities

import "time"

type VotingMode string

const (
	VotingModeSingle   VotingMode = "single"
	VotingModeMultiple VotingMode = "multiple"
	VotingModeRanked   VotingMode = "ranked"
)

type PermissionMode string

const (
	PermissionParticipantsOnly PermissionMode = "participants_only"
	PermissionEvaluatorsOnly   PermissionMode = "evaluators_only"
	PermissionBoth             PermissionMode = "both"
)

type VotingSequence string

const (
	SequenceSimultaneous      VotingSequence = "simultaneous"
	SequenceParticipantsFirst VotingSequence = "participants_first"
)

type Constituency string

const (
	ConstituencyParticipant Constituency = "participant"
	ConstituencyEvaluator   Constituency = "evaluator"
)

// Poll is a bounded decision event. Configuration is owned by an external
// administrative process; this engine only reads it.
type Poll struct {
	PollID             string
	StartsAt           time.Time
	EndsAt             time.Time
	Mode               VotingMode
	Permissions        PermissionMode
	Sequence           VotingSequence
	ParticipantWeight  float64
	EvaluatorWeight    float64
	SelfVoteAllowed    bool
	AllowEdit          bool
	MaxRankedPositions int         // 0 means unlimited
	RankPointOverrides map[int]int // explicit rank -> points table, optional
}

// Allows reports whether the poll's permission mode admits the constituency.
func (p Poll) Allows(constituency Constituency) bool {
	switch p.Permissions {
	case PermissionParticipantsOnly:
		return constituency == ConstituencyParticipant
	case PermissionEvaluatorsOnly:
		return constituency == ConstituencyEvaluator
	case PermissionBoth:
		return true
	default:
		return false
	}
}

// Target is an entity decisions are cast about. A target belongs to exactly
// one poll.
type Target struct {
	TargetID string
	PollID   string
}

// Ranking is one position of a ranked ballot. Points are assigned by the
// point allocator before the decision is recorded.
type Ranking struct {
	TargetID      string
	Rank          int
	Points        int
	Justification string
}

// Decision is one identity's current choice for a poll. At most one current
// Decision exists per (PollID, VoterKey); edits replace the payload in place
// and keep DecisionID and CreatedAt.
type Decision struct {
	DecisionID   string
	PollID       string
	VoterKey     string // credential hash for participants, normalized email for evaluators
	Constituency Constituency
	Mode         VotingMode
	TargetID     string    // single mode
	TargetIDs    []string  // multiple mode
	Rankings     []Ranking // ranked mode
	Digest       string    // commitment digest, always stored
	AnchorRef    *string   // nil while anchoring is pending or failed
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NamedTargets returns the targets the decision references, mode-dependent.
func (d Decision) NamedTargets() []string {
	switch d.Mode {
	case VotingModeSingle:
		if d.TargetID == "" {
			return nil
		}
		return []string{d.TargetID}
	case VotingModeMultiple:
		return append([]string(nil), d.TargetIDs...)
	case VotingModeRanked:
		items := make([]string, 0, len(d.Rankings))
		for _, ranking := range d.Rankings {
			items = append(items, ranking.TargetID)
		}
		return items
	default:
		return nil
	}
}

// TargetTally is the derived per-target aggregate. It is computed on demand
// and never persisted by this engine.
type TargetTally struct {
	TargetID          string
	ParticipantCount  int
	EvaluatorCount    int
	ParticipantPoints float64
	EvaluatorPoints   float64
	WeightedScore     float64
	RankCounts        map[int]int // ranked mode only
}
