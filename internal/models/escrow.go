package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	EscrowStatusHolding  = "holding"
	EscrowStatusReleased = "released"
	EscrowStatusRefunded = "refunded"
)

// EscrowRecord holds one participant's stake against a challenge.
// Created atomically with a match (Pairing Engine) or a direct stake
// reservation (Settlement), unique per (challenge_id, user_id).
// Records transition status only, they are never deleted.
//
// Invariant: the sum of holding escrow for a challenge equals the sum
// of stakes of its currently matched, unsettled participants.
type EscrowRecord struct {
	ID          uuid.UUID  `json:"id"`
	ChallengeID uuid.UUID  `json:"challenge_id"`
	UserID      uuid.UUID  `json:"user_id"`
	Amount      int64      `json:"amount"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	ReleasedAt  *time.Time `json:"released_at,omitempty"`
}
