package repositories

import (
	"context"
	"errors"

	"github.com/challenge-arena/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrInsufficientBalance is returned when a debit would take a user
// balance below zero. The balance row is the single source of truth,
// re-checked at every debit.
var ErrInsufficientBalance = errors.New("insufficient balance")

// LedgerRepo is the internal wallet: per-user balance plus an append-only
// journal. Debit and Credit are always called through the caller's
// transaction so balance changes commit or roll back together with the
// state transition that caused them.
type LedgerRepo struct {
	pool *pgxpool.Pool
}

func NewLedgerRepo(pool *pgxpool.Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

func (r *LedgerRepo) Debit(ctx context.Context, q DBTX, userID uuid.UUID, amount int64, txType, refType string, refID *uuid.UUID) error {
	if amount <= 0 {
		return errors.New("debit amount must be positive")
	}

	tag, err := q.Exec(ctx, `
		UPDATE users SET balance = balance - $1 WHERE id = $2 AND balance >= $1
	`, amount, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInsufficientBalance
	}

	_, err = q.Exec(ctx, `
		INSERT INTO balance_transactions (user_id, type, amount, ref_type, ref_id)
		VALUES ($1, $2, $3, $4, $5)
	`, userID, txType, -amount, refType, refID)
	return err
}

func (r *LedgerRepo) Credit(ctx context.Context, q DBTX, userID uuid.UUID, amount int64, txType, refType string, refID *uuid.UUID) error {
	if amount <= 0 {
		return errors.New("credit amount must be positive")
	}

	tag, err := q.Exec(ctx, `UPDATE users SET balance = balance + $1 WHERE id = $2`, amount, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errors.New("credit target user not found")
	}

	_, err = q.Exec(ctx, `
		INSERT INTO balance_transactions (user_id, type, amount, ref_type, ref_id)
		VALUES ($1, $2, $3, $4, $5)
	`, userID, txType, amount, refType, refID)
	return err
}

// Deposit credits outside of any caller transaction. Used by the admin
// deposit endpoint where the credit is the whole operation.
func (r *LedgerRepo) Deposit(ctx context.Context, userID uuid.UUID, amount int64) error {
	return r.Credit(ctx, r.pool, userID, amount, models.TxTypeDeposit, "deposit", nil)
}

func (r *LedgerRepo) GetBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	var bal int64
	err := r.pool.QueryRow(ctx, `SELECT balance FROM users WHERE id = $1`, userID).Scan(&bal)
	return bal, err
}

func (r *LedgerRepo) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.BalanceTransaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, type, amount, ref_type, ref_id, created_at
		FROM balance_transactions WHERE user_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []models.BalanceTransaction
	for rows.Next() {
		var t models.BalanceTransaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Type, &t.Amount, &t.RefType, &t.RefID, &t.CreatedAt); err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, nil
}
