package models

import (
	"time"

	"github.com/google/uuid"
)

// Vote choices
const (
	VoteChallenger = "challenger"
	VoteChallenged = "challenged"
)

func IsValidVoteChoice(choice string) bool {
	return choice == VoteChallenger || choice == VoteChallenged
}

// VoteRecord is upserted by (challenge_id, participant_id): a participant
// can change their vote until the challenge settles, but never hold two.
type VoteRecord struct {
	ID            uuid.UUID `json:"id"`
	ChallengeID   uuid.UUID `json:"challenge_id"`
	ParticipantID uuid.UUID `json:"participant_id"`
	VoteChoice    string    `json:"vote_choice"`
	ProofHash     string    `json:"proof_hash"`
	SignedVote    string    `json:"signed_vote"` // opaque signature blob
	SubmittedAt   time.Time `json:"submitted_at"`
}
