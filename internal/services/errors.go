package services

import (
	"errors"

	"github.com/challenge-arena/backend/internal/repositories"
)

// Engine error taxonomy. Validation errors are returned before any
// transaction opens; mid-transaction failures roll the whole transaction
// back and surface wrapped.
var (
	ErrInvalidChallengeID    = errors.New("challenge not found")
	ErrChallengeNotJoinable  = errors.New("challenge is not joinable")
	ErrAlreadyQueued         = errors.New("user already has a waiting queue entry for this challenge")
	ErrNoWaitingEntry        = errors.New("no waiting queue entry to cancel")
	ErrInsufficientBalance   = repositories.ErrInsufficientBalance
	ErrNotParticipant        = errors.New("user is not a participant of this challenge")
	ErrChallengeNotSettlable = errors.New("challenge is not in a settlable state")
	ErrInvalidWinnerChoice   = errors.New("vote choices do not map to a winner")
	ErrInvalidResolution     = errors.New("invalid admin resolution")
	ErrInvalidStake          = errors.New("stake amount must be positive")
	ErrInvalidSide           = errors.New("side must be YES or NO")
	ErrInvalidVoteChoice     = errors.New("vote choice must be challenger or challenged")
	ErrUnknownProofHash      = errors.New("proof_hash does not match any uploaded proof")
)

// Auto-release outcome reasons. vote_mismatch is not an error: it is the
// valid path into dispute.
const (
	ReasonReleased          = "released"
	ReasonInsufficientVotes = "insufficient_votes"
	ReasonVoteMismatch      = "vote_mismatch"
	ReasonInvalidWinner     = "invalid_winner_choice"
	ReasonNoReservedFunds   = "no_reserved_funds"
	ReasonAlreadySettled    = "already_settled"
)
