package models

import (
	"time"

	"github.com/google/uuid"
)

// Queue entry statuses
const (
	QueueStatusWaiting   = "waiting"
	QueueStatusMatched   = "matched"
	QueueStatusCancelled = "cancelled"
)

// QueueEntry is a stake request awaiting an opposite-side counterparty.
// At most one waiting entry exists per (challenge_id, user_id). Matched
// entries are immutable, they stay around as match history.
type QueueEntry struct {
	ID          uuid.UUID  `json:"id"`
	ChallengeID uuid.UUID  `json:"challenge_id"`
	UserID      uuid.UUID  `json:"user_id"`
	Side        string     `json:"side"` // YES / NO
	StakeAmount int64      `json:"stake_amount"`
	Status      string     `json:"status"`
	MatchedWith *uuid.UUID `json:"matched_with,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	MatchedAt   *time.Time `json:"matched_at,omitempty"`
}
