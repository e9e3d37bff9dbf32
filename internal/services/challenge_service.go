package services

import (
	"context"
	"errors"
	"time"

	"github.com/challenge-arena/backend/internal/config"
	"github.com/challenge-arena/backend/internal/db"
	"github.com/challenge-arena/backend/internal/models"
	"github.com/challenge-arena/backend/internal/repositories"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// ChallengeService covers challenge lifecycle outside of matching and
// settlement: creation, listing, detail views and the audit trail.
type ChallengeService struct {
	pool          *pgxpool.Pool
	challengeRepo *repositories.ChallengeRepo
	escrowRepo    *repositories.EscrowRepo
	proofRepo     *repositories.ProofRepo
	historyRepo   *repositories.HistoryRepo
	ledgerRepo    *repositories.LedgerRepo
	cfg           *config.Config
	log           *zap.Logger
	now           func() time.Time
}

func NewChallengeService(
	pool *pgxpool.Pool,
	challengeRepo *repositories.ChallengeRepo,
	escrowRepo *repositories.EscrowRepo,
	proofRepo *repositories.ProofRepo,
	historyRepo *repositories.HistoryRepo,
	ledgerRepo *repositories.LedgerRepo,
	cfg *config.Config,
	log *zap.Logger,
) *ChallengeService {
	return &ChallengeService{
		pool:          pool,
		challengeRepo: challengeRepo,
		escrowRepo:    escrowRepo,
		proofRepo:     proofRepo,
		historyRepo:   historyRepo,
		ledgerRepo:    ledgerRepo,
		cfg:           cfg,
		log:           log,
		now:           time.Now,
	}
}

type CreateChallengeInput struct {
	Title        string
	Category     string
	Amount       int64
	DueDate      time.Time
	ChallengedID *uuid.UUID // set for a direct challenge against a known opponent

	// Optional bonus sponsored by an admin. The grant is debited from
	// the funder up front so the payout can never exceed funded money.
	BonusSide          *string
	BonusMultiplierBPS int
	BonusGrantAmount   int64
	BonusExpiresAt     *time.Time
}

// Create opens a new challenge. The creator is always the YES side. A
// direct challenge (ChallengedID set) starts in pending and activates
// once both stakes are reserved; an open one waits for queue matching.
func (s *ChallengeService) Create(ctx context.Context, creatorID uuid.UUID, in CreateChallengeInput) (*models.Challenge, error) {
	if in.Title == "" {
		return nil, errors.New("title is required")
	}
	if in.Amount <= 0 {
		return nil, ErrInvalidStake
	}
	if !in.DueDate.After(s.now()) {
		return nil, errors.New("due_date must be in the future")
	}
	if in.BonusSide != nil {
		if !models.IsValidSide(*in.BonusSide) {
			return nil, ErrInvalidSide
		}
		if in.BonusMultiplierBPS <= 0 || in.BonusGrantAmount <= 0 {
			return nil, errors.New("bonus requires a positive multiplier and grant")
		}
	}

	status := models.ChallengeStatusOpen
	if in.ChallengedID != nil {
		if *in.ChallengedID == creatorID {
			return nil, errors.New("cannot challenge yourself")
		}
		status = models.ChallengeStatusPending
	}

	ch := &models.Challenge{
		ID:           uuid.New(),
		Title:        in.Title,
		Category:     in.Category,
		CreatedBy:    creatorID,
		ChallengedID: in.ChallengedID,
		Amount:       in.Amount,
		Status:       status,
		DueDate:      in.DueDate,
	}
	if in.ChallengedID != nil {
		challengerID := creatorID
		ch.ChallengerID = &challengerID
	}
	if in.BonusSide != nil {
		ch.BonusSide = in.BonusSide
		ch.BonusMultiplierBPS = in.BonusMultiplierBPS
		ch.BonusGrantAmount = in.BonusGrantAmount
		ch.BonusFundedBy = &creatorID
		ch.BonusExpiresAt = in.BonusExpiresAt
	}

	err := db.RunInTx(ctx, s.pool, func(tx pgx.Tx) error {
		if in.BonusSide != nil {
			if err := s.ledgerRepo.Debit(ctx, tx, creatorID, in.BonusGrantAmount, models.TxTypeBonusGrant, "challenge", &ch.ID); err != nil {
				return err
			}
		}
		if err := s.challengeRepo.Create(ctx, tx, ch); err != nil {
			return err
		}
		return s.historyRepo.Log(ctx, tx, models.StateHistory{
			ChallengeID: ch.ID,
			PrevState:   "",
			NewState:    status,
			ChangedBy:   &creatorID,
			ActorType:   "user",
			Note:        strPtr("created"),
		})
	})
	if err != nil {
		return nil, err
	}
	return ch, nil
}

func (s *ChallengeService) Get(ctx context.Context, id uuid.UUID) (*models.Challenge, error) {
	ch, err := s.challengeRepo.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInvalidChallengeID
	}
	return ch, err
}

func (s *ChallengeService) List(ctx context.Context, f repositories.ChallengeFilter) ([]models.Challenge, error) {
	return s.challengeRepo.List(ctx, f)
}

// Detail bundles a challenge with its escrow and proof records for the
// detail endpoint.
type ChallengeDetail struct {
	Challenge *models.Challenge     `json:"challenge"`
	Escrow    []models.EscrowRecord `json:"escrow"`
	Proofs    []models.ProofRecord  `json:"proofs"`
}

func (s *ChallengeService) GetDetail(ctx context.Context, id uuid.UUID) (*ChallengeDetail, error) {
	ch, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	escrow, err := s.escrowRepo.ListByChallenge(ctx, id)
	if err != nil {
		return nil, err
	}
	proofs, err := s.proofRepo.ListByChallenge(ctx, id)
	if err != nil {
		return nil, err
	}
	return &ChallengeDetail{Challenge: ch, Escrow: escrow, Proofs: proofs}, nil
}

func (s *ChallengeService) History(ctx context.Context, id uuid.UUID, limit, offset int) ([]models.StateHistory, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.historyRepo.ListByChallenge(ctx, id, limit, offset)
}
