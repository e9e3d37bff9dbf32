package dto

import "time"

type AuthRequest struct {
	Payload string `json:"payload"` // signed query string from the bot
}

type CreateChallengeRequest struct {
	Title        string    `json:"title"`
	Category     string    `json:"category,omitempty"`
	Amount       int64     `json:"amount"`
	DueDate      time.Time `json:"due_date"`
	ChallengedID *string   `json:"challenged_id,omitempty"`

	BonusSide          *string    `json:"bonus_side,omitempty"`
	BonusMultiplierBPS int        `json:"bonus_multiplier_bps,omitempty"`
	BonusGrantAmount   int64      `json:"bonus_grant_amount,omitempty"`
	BonusExpiresAt     *time.Time `json:"bonus_expires_at,omitempty"`
}

type JoinChallengeRequest struct {
	Side        string `json:"side"` // YES / NO
	StakeAmount int64  `json:"stake_amount"`
}

type ReserveStakeRequest struct {
	Amount int64 `json:"amount"`
}

type CreateProofRequest struct {
	ProofURI  string `json:"proof_uri"`
	ProofHash string `json:"proof_hash"`
}

type SubmitVoteRequest struct {
	VoteChoice string `json:"vote_choice"` // challenger / challenged
	ProofHash  string `json:"proof_hash,omitempty"`
	SignedVote string `json:"signed_vote,omitempty"`
}

type OpenDisputeRequest struct {
	Reason string `json:"reason"`
}

type ResolveSplitShare struct {
	ParticipantID string `json:"participant_id"`
	Pct           int    `json:"pct"`
}

type AdminResolveRequest struct {
	Type                string              `json:"type"` // refund / winner / split
	WinnerParticipantID *string             `json:"winner_participant_id,omitempty"`
	Splits              []ResolveSplitShare `json:"splits,omitempty"`
}

type DepositRequest struct {
	Amount int64 `json:"amount"`
}
