package models

import (
	"time"

	"github.com/google/uuid"
)

// Challenge statuses
const (
	ChallengeStatusOpen         = "open"
	ChallengeStatusPending      = "pending"
	ChallengeStatusActive       = "active"
	ChallengeStatusPendingAdmin = "pending_admin"
	ChallengeStatusDisputed     = "disputed"
	ChallengeStatusCompleted    = "completed"
	ChallengeStatusCancelled    = "cancelled"
)

// Challenge results
const (
	ResultChallengerWon = "challenger_won"
	ResultChallengedWon = "challenged_won"
	ResultDraw          = "draw"
)

// Sides
const (
	SideYes = "YES"
	SideNo  = "NO"
)

func IsValidSide(side string) bool {
	return side == SideYes || side == SideNo
}

func OppositeSide(side string) string {
	if side == SideYes {
		return SideNo
	}
	return SideYes
}

// Valid state transitions: from -> []to
var ValidChallengeTransitions = map[string][]string{
	ChallengeStatusOpen:         {ChallengeStatusPending, ChallengeStatusActive, ChallengeStatusCompleted, ChallengeStatusCancelled},
	ChallengeStatusPending:      {ChallengeStatusActive, ChallengeStatusCancelled},
	ChallengeStatusActive:       {ChallengeStatusCompleted, ChallengeStatusDisputed, ChallengeStatusPendingAdmin, ChallengeStatusCancelled},
	ChallengeStatusDisputed:     {ChallengeStatusCompleted, ChallengeStatusCancelled, ChallengeStatusPendingAdmin},
	ChallengeStatusPendingAdmin: {ChallengeStatusCompleted, ChallengeStatusCancelled, ChallengeStatusDisputed},
	ChallengeStatusCompleted:    {},
	ChallengeStatusCancelled:    {},
}

func IsValidTransition(from, to string) bool {
	allowed, ok := ValidChallengeTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// IsSettleable reports whether a challenge may still be resolved
// (auto-release or admin resolution). Completed and cancelled
// challenges must never be paid out again.
func IsSettleable(status string) bool {
	switch status {
	case ChallengeStatusActive, ChallengeStatusDisputed, ChallengeStatusPendingAdmin:
		return true
	}
	return false
}

type Challenge struct {
	ID            uuid.UUID  `json:"id"`
	Title         string     `json:"title"`
	Category      string     `json:"category"`
	CreatedBy     uuid.UUID  `json:"created_by"`
	ChallengerID  *uuid.UUID `json:"challenger_id,omitempty"` // designated YES participant
	ChallengedID  *uuid.UUID `json:"challenged_id,omitempty"` // designated NO participant
	Amount        int64      `json:"amount"`                  // base stake, minor currency units
	Status        string     `json:"status"`
	Result        *string    `json:"result,omitempty"`
	DueDate       time.Time  `json:"due_date"`
	YesStakeTotal int64      `json:"yes_stake_total"`
	NoStakeTotal  int64      `json:"no_stake_total"`

	// Bonus is a payout-time modifier, not part of matching.
	BonusSide          *string    `json:"bonus_side,omitempty"`
	BonusMultiplierBPS int        `json:"bonus_multiplier_bps,omitempty"` // 10000 = 1.0x
	BonusGrantAmount   int64      `json:"bonus_grant_amount,omitempty"`
	BonusFundedBy      *uuid.UUID `json:"bonus_funded_by,omitempty"`
	BonusExpiresAt     *time.Time `json:"bonus_expires_at,omitempty"`

	Warned1h    bool       `json:"-"`
	Warned10m   bool       `json:"-"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ParticipantSide returns which side a user is designated on, or "".
func (c *Challenge) ParticipantSide(userID uuid.UUID) string {
	if c.ChallengerID != nil && *c.ChallengerID == userID {
		return SideYes
	}
	if c.ChallengedID != nil && *c.ChallengedID == userID {
		return SideNo
	}
	return ""
}

// BonusActiveAt reports whether the bonus multiplier still applies at t.
func (c *Challenge) BonusActiveAt(t time.Time) bool {
	if c.BonusSide == nil || c.BonusMultiplierBPS <= 0 {
		return false
	}
	if c.BonusExpiresAt != nil && t.After(*c.BonusExpiresAt) {
		return false
	}
	return true
}
