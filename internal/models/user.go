package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID             uuid.UUID `json:"id"`
	TelegramUserID int64     `json:"telegram_user_id"`
	Username       *string   `json:"username,omitempty"`
	Balance        int64     `json:"balance"` // minor currency units
	CreatedAt      time.Time `json:"created_at"`
	LastActiveAt   time.Time `json:"last_active_at"`
}

// Balance transaction types
const (
	TxTypeStakeHold     = "stake_hold"
	TxTypeRefund        = "refund"
	TxTypePayout        = "payout"
	TxTypePlatformFee   = "platform_fee"
	TxTypeSplit         = "split"
	TxTypeBonusGrant    = "bonus_grant"
	TxTypeBonusReversal = "bonus_reversal"
	TxTypeDeposit       = "deposit"
)

// BalanceTransaction is the per-user ledger journal. Every debit and
// credit the engine performs gets a row, in the same transaction as
// the balance change.
type BalanceTransaction struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	Type      string     `json:"type"`
	Amount    int64      `json:"amount"` // negative for debits
	RefType   string     `json:"ref_type"`
	RefID     *uuid.UUID `json:"ref_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
