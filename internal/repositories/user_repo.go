package repositories

import (
	"context"

	"github.com/challenge-arena/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) UpsertByTelegramID(ctx context.Context, telegramID int64, username *string) (*models.User, error) {
	var u models.User
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (telegram_user_id, username)
		VALUES ($1, $2)
		ON CONFLICT (telegram_user_id) DO UPDATE SET
			username = COALESCE(EXCLUDED.username, users.username),
			last_active_at = now()
		RETURNING id, telegram_user_id, username, balance, created_at, last_active_at
	`, telegramID, username).Scan(
		&u.ID, &u.TelegramUserID, &u.Username, &u.Balance, &u.CreatedAt, &u.LastActiveAt,
	)
	return &u, err
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	err := r.pool.QueryRow(ctx, `
		SELECT id, telegram_user_id, username, balance, created_at, last_active_at
		FROM users WHERE id = $1
	`, id).Scan(&u.ID, &u.TelegramUserID, &u.Username, &u.Balance, &u.CreatedAt, &u.LastActiveAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetTelegramIDs resolves telegram ids for notification recipients.
func (r *UserRepo) GetTelegramIDs(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, telegram_user_id FROM users WHERE id = ANY($1)`, userIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[uuid.UUID]int64, len(userIDs))
	for rows.Next() {
		var id uuid.UUID
		var tgID int64
		if err := rows.Scan(&id, &tgID); err != nil {
			return nil, err
		}
		out[id] = tgID
	}
	return out, nil
}
