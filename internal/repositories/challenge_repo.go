package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/challenge-arena/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const challengeColumns = `
	id, title, category, created_by, challenger_id, challenged_id, amount,
	status, result, due_date, yes_stake_total, no_stake_total,
	bonus_side, bonus_multiplier_bps, bonus_grant_amount, bonus_funded_by, bonus_expires_at,
	warned_1h, warned_10m, completed_at, created_at, updated_at`

type ChallengeRepo struct {
	pool *pgxpool.Pool
}

func NewChallengeRepo(pool *pgxpool.Pool) *ChallengeRepo {
	return &ChallengeRepo{pool: pool}
}

func scanChallenge(row interface{ Scan(...any) error }, c *models.Challenge) error {
	return row.Scan(&c.ID, &c.Title, &c.Category, &c.CreatedBy, &c.ChallengerID, &c.ChallengedID, &c.Amount,
		&c.Status, &c.Result, &c.DueDate, &c.YesStakeTotal, &c.NoStakeTotal,
		&c.BonusSide, &c.BonusMultiplierBPS, &c.BonusGrantAmount, &c.BonusFundedBy, &c.BonusExpiresAt,
		&c.Warned1h, &c.Warned10m, &c.CompletedAt, &c.CreatedAt, &c.UpdatedAt)
}

func (r *ChallengeRepo) Create(ctx context.Context, q DBTX, c *models.Challenge) error {
	return q.QueryRow(ctx, `
		INSERT INTO challenges (title, category, created_by, challenger_id, challenged_id, amount, status, due_date,
		                        bonus_side, bonus_multiplier_bps, bonus_grant_amount, bonus_funded_by, bonus_expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at
	`, c.Title, c.Category, c.CreatedBy, c.ChallengerID, c.ChallengedID, c.Amount, c.Status, c.DueDate,
		c.BonusSide, c.BonusMultiplierBPS, c.BonusGrantAmount, c.BonusFundedBy, c.BonusExpiresAt,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

func (r *ChallengeRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Challenge, error) {
	var c models.Challenge
	err := scanChallenge(r.pool.QueryRow(ctx, `SELECT`+challengeColumns+` FROM challenges WHERE id = $1`, id), &c)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetForUpdate locks the challenge row for the duration of the caller's
// transaction. Concurrent matching and settlement attempts on the same
// challenge serialize on this lock.
func (r *ChallengeRepo) GetForUpdate(ctx context.Context, q DBTX, id uuid.UUID) (*models.Challenge, error) {
	var c models.Challenge
	err := scanChallenge(q.QueryRow(ctx, `SELECT`+challengeColumns+` FROM challenges WHERE id = $1 FOR UPDATE`, id), &c)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ChallengeRepo) UpdateStatus(ctx context.Context, q DBTX, id uuid.UUID, status string) error {
	_, err := q.Exec(ctx, `UPDATE challenges SET status = $1, updated_at = now() WHERE id = $2`, status, id)
	return err
}

// TryTransition moves the challenge from one of the expected statuses to
// the new status, returning false if the challenge was not in any of
// them. This is the idempotency guard for expiry and settlement.
func (r *ChallengeRepo) TryTransition(ctx context.Context, q DBTX, id uuid.UUID, from []string, to string) (bool, error) {
	tag, err := q.Exec(ctx, `
		UPDATE challenges SET status = $1, updated_at = now()
		WHERE id = $2 AND status = ANY($3)
	`, to, id, from)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *ChallengeRepo) MarkCompleted(ctx context.Context, q DBTX, id uuid.UUID, result string, at time.Time) error {
	_, err := q.Exec(ctx, `
		UPDATE challenges SET status = $1, result = $2, completed_at = $3, updated_at = now()
		WHERE id = $4
	`, models.ChallengeStatusCompleted, result, at, id)
	return err
}

func (r *ChallengeRepo) AddStakeTotals(ctx context.Context, q DBTX, id uuid.UUID, yesDelta, noDelta int64) error {
	_, err := q.Exec(ctx, `
		UPDATE challenges SET yes_stake_total = yes_stake_total + $1, no_stake_total = no_stake_total + $2, updated_at = now()
		WHERE id = $3
	`, yesDelta, noDelta, id)
	return err
}

// AssignParticipants fills designated participant slots that are still
// empty. A slot already assigned is never overwritten.
func (r *ChallengeRepo) AssignParticipants(ctx context.Context, q DBTX, id uuid.UUID, challengerID, challengedID uuid.UUID) error {
	_, err := q.Exec(ctx, `
		UPDATE challenges SET
			challenger_id = COALESCE(challenger_id, $1),
			challenged_id = COALESCE(challenged_id, $2),
			updated_at = now()
		WHERE id = $3
	`, challengerID, challengedID, id)
	return err
}

type ChallengeFilter struct {
	Status        *string
	Category      *string
	ParticipantID *uuid.UUID
	Limit         int
	Offset        int
}

func (r *ChallengeRepo) List(ctx context.Context, f ChallengeFilter) ([]models.Challenge, error) {
	query := `SELECT` + challengeColumns + ` FROM challenges`
	args := []any{}
	argIdx := 1
	where := []string{}

	if f.Status != nil {
		where = append(where, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *f.Status)
		argIdx++
	}
	if f.Category != nil {
		where = append(where, fmt.Sprintf("category = $%d", argIdx))
		args = append(args, *f.Category)
		argIdx++
	}
	if f.ParticipantID != nil {
		where = append(where, fmt.Sprintf("(challenger_id = $%d OR challenged_id = $%d OR created_by = $%d)", argIdx, argIdx, argIdx))
		args = append(args, *f.ParticipantID)
		argIdx++
	}

	if len(where) > 0 {
		query += " WHERE "
		for i, w := range where {
			if i > 0 {
				query += " AND "
			}
			query += w
		}
	}

	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, limit, f.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var challenges []models.Challenge
	for rows.Next() {
		var c models.Challenge
		if err := scanChallenge(rows, &c); err != nil {
			return nil, err
		}
		challenges = append(challenges, c)
	}
	return challenges, nil
}

// ListDue returns challenges in the given statuses whose due date has
// passed. The worker feeds these into expiry / admin escalation.
func (r *ChallengeRepo) ListDue(ctx context.Context, statuses []string, now time.Time, limit int) ([]models.Challenge, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT`+challengeColumns+`
		FROM challenges
		WHERE status = ANY($1) AND due_date < $2
		ORDER BY due_date LIMIT $3
	`, statuses, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var challenges []models.Challenge
	for rows.Next() {
		var c models.Challenge
		if err := scanChallenge(rows, &c); err != nil {
			return nil, err
		}
		challenges = append(challenges, c)
	}
	return challenges, nil
}

// ListDueWithin returns not-yet-warned active or open challenges falling
// due within the window. warnedCol must be one of the warned flags.
func (r *ChallengeRepo) ListDueWithin(ctx context.Context, now time.Time, window time.Duration, warnedCol string, limit int) ([]models.Challenge, error) {
	if warnedCol != "warned_1h" && warnedCol != "warned_10m" {
		return nil, fmt.Errorf("unknown warned column %q", warnedCol)
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT`+challengeColumns+`
		FROM challenges
		WHERE status IN ('open', 'pending', 'active')
		  AND `+warnedCol+` = false
		  AND due_date > $1 AND due_date <= $2
		ORDER BY due_date LIMIT $3
	`, now, now.Add(window), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var challenges []models.Challenge
	for rows.Next() {
		var c models.Challenge
		if err := scanChallenge(rows, &c); err != nil {
			return nil, err
		}
		challenges = append(challenges, c)
	}
	return challenges, nil
}

func (r *ChallengeRepo) SetWarned(ctx context.Context, id uuid.UUID, warnedCol string) error {
	if warnedCol != "warned_1h" && warnedCol != "warned_10m" {
		return fmt.Errorf("unknown warned column %q", warnedCol)
	}
	_, err := r.pool.Exec(ctx, `UPDATE challenges SET `+warnedCol+` = true WHERE id = $1`, id)
	return err
}
