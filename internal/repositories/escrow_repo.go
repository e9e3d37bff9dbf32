package repositories

import (
	"context"
	"time"

	"github.com/challenge-arena/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const escrowColumns = `id, challenge_id, user_id, amount, status, created_at, released_at`

type EscrowRepo struct {
	pool *pgxpool.Pool
}

func NewEscrowRepo(pool *pgxpool.Pool) *EscrowRepo {
	return &EscrowRepo{pool: pool}
}

// Upsert creates or refreshes a participant's holding escrow. One record
// per (challenge_id, user_id): re-reserving updates the amount and
// timestamp instead of stacking a second hold record.
func (r *EscrowRepo) Upsert(ctx context.Context, q DBTX, e *models.EscrowRecord) error {
	return q.QueryRow(ctx, `
		INSERT INTO escrow_records (challenge_id, user_id, amount, status)
		VALUES ($1, $2, $3, 'holding')
		ON CONFLICT (challenge_id, user_id) DO UPDATE SET
			amount = EXCLUDED.amount,
			status = 'holding',
			created_at = now(),
			released_at = NULL
		RETURNING id, status, created_at
	`, e.ChallengeID, e.UserID, e.Amount).Scan(&e.ID, &e.Status, &e.CreatedAt)
}

// SumHolding totals the reserved, not yet released escrow of a challenge.
// Call inside the settlement transaction; the challenge row lock keeps
// the sum stable until commit.
func (r *EscrowRepo) SumHolding(ctx context.Context, q DBTX, challengeID uuid.UUID) (int64, error) {
	var total int64
	err := q.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM escrow_records
		WHERE challenge_id = $1 AND status = 'holding'
	`, challengeID).Scan(&total)
	return total, err
}

func (r *EscrowRepo) ListHolding(ctx context.Context, q DBTX, challengeID uuid.UUID) ([]models.EscrowRecord, error) {
	rows, err := q.Query(ctx, `
		SELECT `+escrowColumns+` FROM escrow_records
		WHERE challenge_id = $1 AND status = 'holding'
		ORDER BY created_at
	`, challengeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.EscrowRecord
	for rows.Next() {
		var e models.EscrowRecord
		if err := rows.Scan(&e.ID, &e.ChallengeID, &e.UserID, &e.Amount, &e.Status, &e.CreatedAt, &e.ReleasedAt); err != nil {
			return nil, err
		}
		records = append(records, e)
	}
	return records, nil
}

// MarkAll transitions every holding record of the challenge to the given
// terminal status (released or refunded).
func (r *EscrowRepo) MarkAll(ctx context.Context, q DBTX, challengeID uuid.UUID, status string, at time.Time) (int, error) {
	tag, err := q.Exec(ctx, `
		UPDATE escrow_records SET status = $1, released_at = $2
		WHERE challenge_id = $3 AND status = 'holding'
	`, status, at, challengeID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *EscrowRepo) ListByChallenge(ctx context.Context, challengeID uuid.UUID) ([]models.EscrowRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+escrowColumns+` FROM escrow_records
		WHERE challenge_id = $1 ORDER BY created_at
	`, challengeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.EscrowRecord
	for rows.Next() {
		var e models.EscrowRecord
		if err := rows.Scan(&e.ID, &e.ChallengeID, &e.UserID, &e.Amount, &e.Status, &e.CreatedAt, &e.ReleasedAt); err != nil {
			return nil, err
		}
		records = append(records, e)
	}
	return records, nil
}
