package models

import (
	"time"

	"github.com/google/uuid"
)

// StateHistory is the append-only audit trail of challenge state
// transitions. Write-once, read by admins.
type StateHistory struct {
	ID          uuid.UUID  `json:"id"`
	ChallengeID uuid.UUID  `json:"challenge_id"`
	PrevState   string     `json:"prev_state"`
	NewState    string     `json:"new_state"`
	ChangedBy   *uuid.UUID `json:"changed_by,omitempty"` // nil for system
	ActorType   string     `json:"actor_type"`           // user/admin/system
	Note        *string    `json:"note,omitempty"`
	ChangedAt   time.Time  `json:"changed_at"`
}
