package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/challenge-arena/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const queueColumns = `id, challenge_id, user_id, side, stake_amount, status, matched_with, created_at, matched_at`

type QueueRepo struct {
	pool *pgxpool.Pool
}

func NewQueueRepo(pool *pgxpool.Pool) *QueueRepo {
	return &QueueRepo{pool: pool}
}

func scanQueueEntry(row interface{ Scan(...any) error }, e *models.QueueEntry) error {
	return row.Scan(&e.ID, &e.ChallengeID, &e.UserID, &e.Side, &e.StakeAmount, &e.Status, &e.MatchedWith, &e.CreatedAt, &e.MatchedAt)
}

func (r *QueueRepo) Insert(ctx context.Context, q DBTX, e *models.QueueEntry) error {
	return q.QueryRow(ctx, `
		INSERT INTO queue_entries (challenge_id, user_id, side, stake_amount, status, matched_with, matched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`, e.ChallengeID, e.UserID, e.Side, e.StakeAmount, e.Status, e.MatchedWith, e.MatchedAt).Scan(&e.ID, &e.CreatedAt)
}

func (r *QueueRepo) HasWaiting(ctx context.Context, q DBTX, challengeID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM queue_entries WHERE challenge_id = $1 AND user_id = $2 AND status = 'waiting')
	`, challengeID, userID).Scan(&exists)
	return exists, err
}

// LockOldestWaitingInBand picks the FCFS match candidate: the oldest
// waiting opposite-side entry whose stake lies inside [lo, hi], row-locked
// so no concurrent join can match it twice. Returns nil when no eligible
// entry exists.
func (r *QueueRepo) LockOldestWaitingInBand(ctx context.Context, q DBTX, challengeID uuid.UUID, side string, lo, hi int64) (*models.QueueEntry, error) {
	var e models.QueueEntry
	err := scanQueueEntry(q.QueryRow(ctx, `
		SELECT `+queueColumns+`
		FROM queue_entries
		WHERE challenge_id = $1 AND side = $2 AND status = 'waiting'
		  AND stake_amount BETWEEN $3 AND $4
		ORDER BY created_at, id
		LIMIT 1
		FOR UPDATE
	`, challengeID, side, lo, hi), &e)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *QueueRepo) MarkMatched(ctx context.Context, q DBTX, id, matchedWith uuid.UUID, at time.Time) error {
	tag, err := q.Exec(ctx, `
		UPDATE queue_entries SET status = 'matched', matched_with = $1, matched_at = $2
		WHERE id = $3 AND status = 'waiting'
	`, matchedWith, at, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errors.New("queue entry no longer waiting")
	}
	return nil
}

// CancelWaiting cancels a user's waiting entry and returns it. pgx.ErrNoRows
// means there was nothing waiting to cancel (already matched or absent).
func (r *QueueRepo) CancelWaiting(ctx context.Context, q DBTX, challengeID, userID uuid.UUID) (*models.QueueEntry, error) {
	var e models.QueueEntry
	err := scanQueueEntry(q.QueryRow(ctx, `
		UPDATE queue_entries SET status = 'cancelled'
		WHERE challenge_id = $1 AND user_id = $2 AND status = 'waiting'
		RETURNING `+queueColumns+`
	`, challengeID, userID), &e)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// CancelAllWaiting cancels every waiting entry of a challenge and returns
// them (for refunding). Used by expiry.
func (r *QueueRepo) CancelAllWaiting(ctx context.Context, q DBTX, challengeID uuid.UUID) ([]models.QueueEntry, error) {
	rows, err := q.Query(ctx, `
		UPDATE queue_entries SET status = 'cancelled'
		WHERE challenge_id = $1 AND status = 'waiting'
		RETURNING `+queueColumns+`
	`, challengeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.QueueEntry
	for rows.Next() {
		var e models.QueueEntry
		if err := scanQueueEntry(rows, &e); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// WaitingPosition returns the 1-based FCFS position of an entry among
// same-side waiting entries.
func (r *QueueRepo) WaitingPosition(ctx context.Context, q DBTX, e *models.QueueEntry) (int, error) {
	var pos int
	err := q.QueryRow(ctx, `
		SELECT COUNT(*) FROM queue_entries
		WHERE challenge_id = $1 AND side = $2 AND status = 'waiting'
		  AND (created_at < $3 OR (created_at = $3 AND id <= $4))
	`, e.ChallengeID, e.Side, e.CreatedAt, e.ID).Scan(&pos)
	return pos, err
}

func (r *QueueRepo) CountWaitingBySide(ctx context.Context, challengeID uuid.UUID) (yes int, no int, err error) {
	rows, err := r.pool.Query(ctx, `
		SELECT side, COUNT(*) FROM queue_entries
		WHERE challenge_id = $1 AND status = 'waiting'
		GROUP BY side
	`, challengeID)
	if err != nil {
		return 0, 0, err
	}
	defer rows.Close()

	for rows.Next() {
		var side string
		var count int
		if err := rows.Scan(&side, &count); err != nil {
			return 0, 0, err
		}
		switch side {
		case models.SideYes:
			yes = count
		case models.SideNo:
			no = count
		}
	}
	return yes, no, nil
}

func (r *QueueRepo) GetUserEntry(ctx context.Context, challengeID, userID uuid.UUID) (*models.QueueEntry, error) {
	var e models.QueueEntry
	err := scanQueueEntry(r.pool.QueryRow(ctx, `
		SELECT `+queueColumns+`
		FROM queue_entries
		WHERE challenge_id = $1 AND user_id = $2
		ORDER BY created_at DESC LIMIT 1
	`, challengeID, userID), &e)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
