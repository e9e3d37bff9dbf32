package repositories

import (
	"context"

	"github.com/challenge-arena/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type VoteRepo struct {
	pool *pgxpool.Pool
}

func NewVoteRepo(pool *pgxpool.Pool) *VoteRepo {
	return &VoteRepo{pool: pool}
}

// Upsert enforces at most one vote per (challenge_id, participant_id):
// voting again replaces the previous choice.
func (r *VoteRepo) Upsert(ctx context.Context, q DBTX, v *models.VoteRecord) error {
	return q.QueryRow(ctx, `
		INSERT INTO vote_records (challenge_id, participant_id, vote_choice, proof_hash, signed_vote)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (challenge_id, participant_id) DO UPDATE SET
			vote_choice = EXCLUDED.vote_choice,
			proof_hash = EXCLUDED.proof_hash,
			signed_vote = EXCLUDED.signed_vote,
			submitted_at = now()
		RETURNING id, submitted_at
	`, v.ChallengeID, v.ParticipantID, v.VoteChoice, v.ProofHash, v.SignedVote).Scan(&v.ID, &v.SubmittedAt)
}

func (r *VoteRepo) ListByChallenge(ctx context.Context, q DBTX, challengeID uuid.UUID) ([]models.VoteRecord, error) {
	rows, err := q.Query(ctx, `
		SELECT id, challenge_id, participant_id, vote_choice, proof_hash, signed_vote, submitted_at
		FROM vote_records WHERE challenge_id = $1
		ORDER BY submitted_at
	`, challengeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var votes []models.VoteRecord
	for rows.Next() {
		var v models.VoteRecord
		if err := rows.Scan(&v.ID, &v.ChallengeID, &v.ParticipantID, &v.VoteChoice, &v.ProofHash, &v.SignedVote, &v.SubmittedAt); err != nil {
			return nil, err
		}
		votes = append(votes, v)
	}
	return votes, nil
}
