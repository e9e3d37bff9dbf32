package repositories

import (
	"context"

	"github.com/challenge-arena/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type HistoryRepo struct {
	pool *pgxpool.Pool
}

func NewHistoryRepo(pool *pgxpool.Pool) *HistoryRepo {
	return &HistoryRepo{pool: pool}
}

// Log appends a state transition record. When called with a DBTX it
// commits together with the transition itself.
func (r *HistoryRepo) Log(ctx context.Context, q DBTX, h models.StateHistory) error {
	_, err := q.Exec(ctx, `
		INSERT INTO state_history (challenge_id, prev_state, new_state, changed_by, actor_type, note)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, h.ChallengeID, h.PrevState, h.NewState, h.ChangedBy, h.ActorType, h.Note)
	return err
}

func (r *HistoryRepo) ListByChallenge(ctx context.Context, challengeID uuid.UUID, limit, offset int) ([]models.StateHistory, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, challenge_id, prev_state, new_state, changed_by, actor_type, note, changed_at
		FROM state_history WHERE challenge_id = $1
		ORDER BY changed_at DESC LIMIT $2 OFFSET $3
	`, challengeID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.StateHistory
	for rows.Next() {
		var h models.StateHistory
		if err := rows.Scan(&h.ID, &h.ChallengeID, &h.PrevState, &h.NewState, &h.ChangedBy, &h.ActorType, &h.Note, &h.ChangedAt); err != nil {
			return nil, err
		}
		entries = append(entries, h)
	}
	return entries, nil
}
