package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/challenge-arena/backend/internal/config"
	"github.com/challenge-arena/backend/internal/db"
	"github.com/challenge-arena/backend/internal/events"
	"github.com/challenge-arena/backend/internal/models"
	"github.com/challenge-arena/backend/internal/repositories"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PairingService joins opposing stakes: FCFS queue matching inside the
// stake tolerance band, escrow creation, queue cancellation and expiry.
// Every match decision runs in a single transaction with the candidate
// rows locked; a failed join leaves no stray queue entry behind.
type PairingService struct {
	pool          *pgxpool.Pool
	challengeRepo *repositories.ChallengeRepo
	queueRepo     *repositories.QueueRepo
	escrowRepo    *repositories.EscrowRepo
	ledgerRepo    *repositories.LedgerRepo
	historyRepo   *repositories.HistoryRepo
	notifier      *Notifier
	cfg           *config.Config
	log           *zap.Logger
	now           func() time.Time
}

func NewPairingService(
	pool *pgxpool.Pool,
	challengeRepo *repositories.ChallengeRepo,
	queueRepo *repositories.QueueRepo,
	escrowRepo *repositories.EscrowRepo,
	ledgerRepo *repositories.LedgerRepo,
	historyRepo *repositories.HistoryRepo,
	notifier *Notifier,
	cfg *config.Config,
	log *zap.Logger,
) *PairingService {
	return &PairingService{
		pool:          pool,
		challengeRepo: challengeRepo,
		queueRepo:     queueRepo,
		escrowRepo:    escrowRepo,
		ledgerRepo:    ledgerRepo,
		historyRepo:   historyRepo,
		notifier:      notifier,
		cfg:           cfg,
		log:           log,
		now:           time.Now,
	}
}

// WithClock overrides the service clock. Tests use this for
// deterministic matched_at timestamps.
func (s *PairingService) WithClock(now func() time.Time) *PairingService {
	s.now = now
	return s
}

type JoinResult struct {
	Matched        bool       `json:"matched"`
	ChallengeID    uuid.UUID  `json:"challenge_id"`
	Position       int        `json:"position,omitempty"` // 1-based, queued only
	EntryID        uuid.UUID  `json:"entry_id"`
	MatchedWith    *uuid.UUID `json:"matched_with,omitempty"`
	EscrowID       *uuid.UUID `json:"escrow_id,omitempty"`
	CombinedAmount int64      `json:"combined_amount,omitempty"`
}

// JoinChallenge matches the stake against the oldest eligible
// opposite-side waiting entry, or enqueues it. One transaction:
// challenge row lock, precondition checks, ledger debit, candidate row
// lock, then match or enqueue. Retrying after an aborted transaction is
// the caller's job.
func (s *PairingService) JoinChallenge(ctx context.Context, userID, challengeID uuid.UUID, side string, stakeAmount int64) (*JoinResult, error) {
	if stakeAmount <= 0 {
		return nil, ErrInvalidStake
	}
	if !models.IsValidSide(side) {
		return nil, ErrInvalidSide
	}

	now := s.now()
	result := &JoinResult{ChallengeID: challengeID}
	var opponent *models.QueueEntry

	err := db.RunInTx(ctx, s.pool, func(tx pgx.Tx) error {
		ch, err := s.challengeRepo.GetForUpdate(ctx, tx, challengeID)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrInvalidChallengeID
		}
		if err != nil {
			return err
		}
		if ch.Status != models.ChallengeStatusOpen || now.After(ch.DueDate) {
			return ErrChallengeNotJoinable
		}

		queued, err := s.queueRepo.HasWaiting(ctx, tx, challengeID, userID)
		if err != nil {
			return err
		}
		if queued {
			return ErrAlreadyQueued
		}

		if err := s.ledgerRepo.Debit(ctx, tx, userID, stakeAmount, models.TxTypeStakeHold, "challenge", &challengeID); err != nil {
			return err
		}

		lo, hi := ToleranceBand(stakeAmount, s.cfg.StakeToleranceBPS)
		opponent, err = s.queueRepo.LockOldestWaitingInBand(ctx, tx, challengeID, models.OppositeSide(side), lo, hi)
		if err != nil {
			return err
		}

		if opponent != nil {
			return s.completeMatch(ctx, tx, ch, userID, side, stakeAmount, opponent, now, result)
		}

		entry := &models.QueueEntry{
			ChallengeID: challengeID,
			UserID:      userID,
			Side:        side,
			StakeAmount: stakeAmount,
			Status:      models.QueueStatusWaiting,
		}
		if err := s.queueRepo.Insert(ctx, tx, entry); err != nil {
			return err
		}
		pos, err := s.queueRepo.WaitingPosition(ctx, tx, entry)
		if err != nil {
			return err
		}
		result.Matched = false
		result.EntryID = entry.ID
		result.Position = pos
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Best-effort, after commit.
	if result.Matched {
		s.notifier.Send(ctx, events.EventMatchFound, []uuid.UUID{userID, *result.MatchedWith}, map[string]any{
			"challenge_id":    challengeID.String(),
			"combined_amount": result.CombinedAmount,
		})
	} else {
		s.notifier.Send(ctx, events.EventQueueAdded, []uuid.UUID{userID}, map[string]any{
			"challenge_id": challengeID.String(),
			"position":     result.Position,
			"side":         side,
		})
	}
	return result, nil
}

func (s *PairingService) completeMatch(
	ctx context.Context,
	tx pgx.Tx,
	ch *models.Challenge,
	userID uuid.UUID,
	side string,
	stakeAmount int64,
	opponent *models.QueueEntry,
	now time.Time,
	result *JoinResult,
) error {
	if err := s.queueRepo.MarkMatched(ctx, tx, opponent.ID, userID, now); err != nil {
		return err
	}

	entry := &models.QueueEntry{
		ChallengeID: ch.ID,
		UserID:      userID,
		Side:        side,
		StakeAmount: stakeAmount,
		Status:      models.QueueStatusMatched,
		MatchedWith: &opponent.UserID,
		MatchedAt:   &now,
	}
	if err := s.queueRepo.Insert(ctx, tx, entry); err != nil {
		return err
	}

	// One escrow record per party, each for its actual stake.
	myEscrow := &models.EscrowRecord{ChallengeID: ch.ID, UserID: userID, Amount: stakeAmount}
	if err := s.escrowRepo.Upsert(ctx, tx, myEscrow); err != nil {
		return err
	}
	oppEscrow := &models.EscrowRecord{ChallengeID: ch.ID, UserID: opponent.UserID, Amount: opponent.StakeAmount}
	if err := s.escrowRepo.Upsert(ctx, tx, oppEscrow); err != nil {
		return err
	}

	yesDelta, noDelta := StakeDeltas(side, stakeAmount, opponent.StakeAmount)
	if err := s.challengeRepo.AddStakeTotals(ctx, tx, ch.ID, yesDelta, noDelta); err != nil {
		return err
	}

	yesUser, noUser := userID, opponent.UserID
	if side == models.SideNo {
		yesUser, noUser = opponent.UserID, userID
	}
	if err := s.challengeRepo.AssignParticipants(ctx, tx, ch.ID, yesUser, noUser); err != nil {
		return err
	}

	if err := s.challengeRepo.UpdateStatus(ctx, tx, ch.ID, models.ChallengeStatusActive); err != nil {
		return err
	}
	if err := s.historyRepo.Log(ctx, tx, models.StateHistory{
		ChallengeID: ch.ID,
		PrevState:   ch.Status,
		NewState:    models.ChallengeStatusActive,
		ActorType:   "system",
		Note:        strPtr(fmt.Sprintf("matched %s vs %s", userID, opponent.UserID)),
	}); err != nil {
		return err
	}

	result.Matched = true
	result.EntryID = entry.ID
	result.MatchedWith = &opponent.UserID
	result.EscrowID = &myEscrow.ID
	result.CombinedAmount = stakeAmount + opponent.StakeAmount
	return nil
}

// CancelFromQueue withdraws a waiting entry and refunds the stake. A
// matched entry can not be withdrawn unilaterally.
func (s *PairingService) CancelFromQueue(ctx context.Context, userID, challengeID uuid.UUID) (int64, error) {
	var refund int64
	err := db.RunInTx(ctx, s.pool, func(tx pgx.Tx) error {
		entry, err := s.queueRepo.CancelWaiting(ctx, tx, challengeID, userID)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNoWaitingEntry
		}
		if err != nil {
			return err
		}
		refund = entry.StakeAmount
		return s.ledgerRepo.Credit(ctx, tx, userID, refund, models.TxTypeRefund, "challenge", &challengeID)
	})
	if err != nil {
		return 0, err
	}

	s.notifier.Send(ctx, events.EventQueueCancelled, []uuid.UUID{userID}, map[string]any{
		"challenge_id": challengeID.String(),
		"refund":       refund,
	})
	return refund, nil
}

// ExpireChallenge closes a challenge whose due date passed with entries
// still waiting, refunding every waiting stake exactly once. Idempotent:
// the status transition is the guard, a second run is a no-op. Safe to
// run concurrently with joins on the same challenge (both take the
// challenge row lock).
func (s *PairingService) ExpireChallenge(ctx context.Context, challengeID uuid.UUID) (int, error) {
	var refunded []models.QueueEntry
	var held []models.EscrowRecord
	err := db.RunInTx(ctx, s.pool, func(tx pgx.Tx) error {
		ch, err := s.challengeRepo.GetForUpdate(ctx, tx, challengeID)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrInvalidChallengeID
		}
		if err != nil {
			return err
		}

		moved, err := s.challengeRepo.TryTransition(ctx, tx, challengeID,
			[]string{models.ChallengeStatusOpen, models.ChallengeStatusPending}, models.ChallengeStatusCancelled)
		if err != nil {
			return err
		}
		if !moved {
			// Already matched, completed or expired: nothing to refund.
			return nil
		}

		refunded, err = s.queueRepo.CancelAllWaiting(ctx, tx, challengeID)
		if err != nil {
			return err
		}
		for _, e := range refunded {
			if err := s.ledgerRepo.Credit(ctx, tx, e.UserID, e.StakeAmount, models.TxTypeRefund, "challenge", &challengeID); err != nil {
				return err
			}
		}

		// Direct challenges may hold escrow from a side that the other
		// never funded. Return it.
		held, err = s.escrowRepo.ListHolding(ctx, tx, challengeID)
		if err != nil {
			return err
		}
		for _, e := range held {
			if err := s.ledgerRepo.Credit(ctx, tx, e.UserID, e.Amount, models.TxTypeRefund, "challenge", &challengeID); err != nil {
				return err
			}
		}
		if len(held) > 0 {
			if _, err := s.escrowRepo.MarkAll(ctx, tx, challengeID, models.EscrowStatusRefunded, s.now()); err != nil {
				return err
			}
		}

		// Reverse an admin-funded bonus that never got paid out.
		if ch.BonusGrantAmount > 0 && ch.BonusFundedBy != nil {
			if err := s.ledgerRepo.Credit(ctx, tx, *ch.BonusFundedBy, ch.BonusGrantAmount, models.TxTypeBonusReversal, "challenge", &challengeID); err != nil {
				return err
			}
		}

		return s.historyRepo.Log(ctx, tx, models.StateHistory{
			ChallengeID: challengeID,
			PrevState:   ch.Status,
			NewState:    models.ChallengeStatusCancelled,
			ActorType:   "system",
			Note:        strPtr(fmt.Sprintf("expired, refunded %d waiting entries", len(refunded))),
		})
	})
	if err != nil {
		return 0, err
	}

	if len(refunded) > 0 || len(held) > 0 {
		seen := make(map[uuid.UUID]struct{}, len(refunded)+len(held))
		userIDs := make([]uuid.UUID, 0, len(refunded)+len(held))
		for _, e := range refunded {
			if _, ok := seen[e.UserID]; !ok {
				seen[e.UserID] = struct{}{}
				userIDs = append(userIDs, e.UserID)
			}
		}
		for _, e := range held {
			if _, ok := seen[e.UserID]; !ok {
				seen[e.UserID] = struct{}{}
				userIDs = append(userIDs, e.UserID)
			}
		}
		s.notifier.Send(ctx, events.EventChallengeExpired, userIDs, map[string]any{
			"challenge_id": challengeID.String(),
		})
	}
	return len(refunded), nil
}

// EscalateOverdue moves an active challenge past its due date to
// pending_admin: matched funds are held, an admin has to resolve.
func (s *PairingService) EscalateOverdue(ctx context.Context, challengeID uuid.UUID) (bool, error) {
	var moved bool
	err := db.RunInTx(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		moved, err = s.challengeRepo.TryTransition(ctx, tx, challengeID,
			[]string{models.ChallengeStatusActive}, models.ChallengeStatusPendingAdmin)
		if err != nil || !moved {
			return err
		}

		// Joiners still waiting behind the matched pair get their
		// stakes back: the challenge will never match again.
		leftover, err := s.queueRepo.CancelAllWaiting(ctx, tx, challengeID)
		if err != nil {
			return err
		}
		for _, e := range leftover {
			if err := s.ledgerRepo.Credit(ctx, tx, e.UserID, e.StakeAmount, models.TxTypeRefund, "challenge", &challengeID); err != nil {
				return err
			}
		}

		return s.historyRepo.Log(ctx, tx, models.StateHistory{
			ChallengeID: challengeID,
			PrevState:   models.ChallengeStatusActive,
			NewState:    models.ChallengeStatusPendingAdmin,
			ActorType:   "system",
			Note:        strPtr("due date passed without settlement"),
		})
	})
	return moved, err
}

type QueueStatus struct {
	ChallengeID   uuid.UUID `json:"challenge_id"`
	YesWaiting    int       `json:"yes_waiting"`
	NoWaiting     int       `json:"no_waiting"`
	YesStakeTotal int64     `json:"yes_stake_total"`
	NoStakeTotal  int64     `json:"no_stake_total"`
}

func (s *PairingService) GetQueueStatus(ctx context.Context, challengeID uuid.UUID) (*QueueStatus, error) {
	ch, err := s.challengeRepo.GetByID(ctx, challengeID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInvalidChallengeID
	}
	if err != nil {
		return nil, err
	}
	yes, no, err := s.queueRepo.CountWaitingBySide(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	return &QueueStatus{
		ChallengeID:   challengeID,
		YesWaiting:    yes,
		NoWaiting:     no,
		YesStakeTotal: ch.YesStakeTotal,
		NoStakeTotal:  ch.NoStakeTotal,
	}, nil
}

type UserQueueStatus struct {
	Entry    *models.QueueEntry `json:"entry,omitempty"`
	Position int                `json:"position,omitempty"`
}

func (s *PairingService) GetUserStatus(ctx context.Context, challengeID, userID uuid.UUID) (*UserQueueStatus, error) {
	entry, err := s.queueRepo.GetUserEntry(ctx, challengeID, userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return &UserQueueStatus{}, nil
	}
	if err != nil {
		return nil, err
	}

	status := &UserQueueStatus{Entry: entry}
	if entry.Status == models.QueueStatusWaiting {
		pos, err := s.queueRepo.WaitingPosition(ctx, s.pool, entry)
		if err != nil {
			return nil, err
		}
		status.Position = pos
	}
	return status, nil
}

type ChallengeOverview struct {
	Challenge  *models.Challenge     `json:"challenge"`
	Queue      *QueueStatus          `json:"queue"`
	Escrow     []models.EscrowRecord `json:"escrow,omitempty"`
	HeldAmount int64                 `json:"held_amount"`
}

func (s *PairingService) GetChallengeOverview(ctx context.Context, challengeID uuid.UUID) (*ChallengeOverview, error) {
	ch, err := s.challengeRepo.GetByID(ctx, challengeID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInvalidChallengeID
	}
	if err != nil {
		return nil, err
	}
	queue, err := s.GetQueueStatus(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	escrow, err := s.escrowRepo.ListByChallenge(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	var held int64
	for _, e := range escrow {
		if e.Status == models.EscrowStatusHolding {
			held += e.Amount
		}
	}
	return &ChallengeOverview{Challenge: ch, Queue: queue, Escrow: escrow, HeldAmount: held}, nil
}

func strPtr(s string) *string {
	return &s
}
