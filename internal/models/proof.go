package models

import (
	"time"

	"github.com/google/uuid"
)

// ProofRecord is append-only: a participant may upload several proofs,
// a vote references a specific proof by hash.
type ProofRecord struct {
	ID            uuid.UUID `json:"id"`
	ChallengeID   uuid.UUID `json:"challenge_id"`
	ParticipantID uuid.UUID `json:"participant_id"`
	ProofURI      string    `json:"proof_uri"`
	ProofHash     string    `json:"proof_hash"`
	PreviewTitle  *string   `json:"preview_title,omitempty"`
	UploadedAt    time.Time `json:"uploaded_at"`
}
