package errors

import "errors"

var (
	ErrInvalidDecisionInput  = errors.New("invalid decision input")
	ErrIdentitySelector      = errors.New("exactly one of identity token or evaluator email is required")
	ErrPollNotFound          = errors.New("poll not found")
	ErrDecisionNotFound      = errors.New("decision not found")
	ErrCredentialNotFound    = errors.New("participant credential not found")
	ErrCredentialUsed        = errors.New("participant credential is already used")
	ErrEvaluatorNotAllowed   = errors.New("evaluator is not on the poll allow-list")
	ErrVotingNotOpen         = errors.New("voting has not opened yet")
	ErrVotingClosed          = errors.New("voting is closed")
	ErrNotPermitted          = errors.New("constituency is not permitted to vote on this poll")
	ErrAlreadyDecided        = errors.New("a current decision already exists and editing is disabled")
	ErrEmptyBallot           = errors.New("ballot names no targets")
	ErrUnknownTarget         = errors.New("ballot names a target outside the poll")
	ErrDuplicateTarget       = errors.New("ballot names the same target twice")
	ErrSelfDecisionForbidden = errors.New("participants may not decide about their own target")
	ErrRankCollision         = errors.New("ballot assigns the same rank twice")
	ErrInvalidRank           = errors.New("ranks must be positive")
	ErrTooManyRanks          = errors.New("ballot exceeds the poll's ranked position limit")
	ErrConflict              = errors.New("decision conflict")
)
