package repositories

import (
	"context"

	"github.com/challenge-arena/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ProofRepo struct {
	pool *pgxpool.Pool
}

func NewProofRepo(pool *pgxpool.Pool) *ProofRepo {
	return &ProofRepo{pool: pool}
}

// Create is append-only: a participant may upload multiple proofs over
// the life of a challenge.
func (r *ProofRepo) Create(ctx context.Context, p *models.ProofRecord) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO proof_records (challenge_id, participant_id, proof_uri, proof_hash, preview_title)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, uploaded_at
	`, p.ChallengeID, p.ParticipantID, p.ProofURI, p.ProofHash, p.PreviewTitle).Scan(&p.ID, &p.UploadedAt)
}

func (r *ProofRepo) ListByChallenge(ctx context.Context, challengeID uuid.UUID) ([]models.ProofRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, challenge_id, participant_id, proof_uri, proof_hash, preview_title, uploaded_at
		FROM proof_records WHERE challenge_id = $1
		ORDER BY uploaded_at
	`, challengeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var proofs []models.ProofRecord
	for rows.Next() {
		var p models.ProofRecord
		if err := rows.Scan(&p.ID, &p.ChallengeID, &p.ParticipantID, &p.ProofURI, &p.ProofHash, &p.PreviewTitle, &p.UploadedAt); err != nil {
			return nil, err
		}
		proofs = append(proofs, p)
	}
	return proofs, nil
}

func (r *ProofRepo) ExistsByHash(ctx context.Context, challengeID uuid.UUID, proofHash string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM proof_records WHERE challenge_id = $1 AND proof_hash = $2)
	`, challengeID, proofHash).Scan(&exists)
	return exists, err
}
