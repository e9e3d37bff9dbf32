package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/challenge-arena/backend/internal/config"
	"github.com/challenge-arena/backend/internal/db"
	"github.com/challenge-arena/backend/internal/events"
	"github.com/challenge-arena/backend/internal/models"
	"github.com/challenge-arena/backend/internal/proofcheck"
	"github.com/challenge-arena/backend/internal/repositories"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// SettlementService drives the proof/vote/dispute workflow that picks a
// winner and pays out escrow. All balance mutations and status changes
// of one settlement run in a single transaction serialized on the
// challenge row: no partial payout, no double payout.
type SettlementService struct {
	pool          *pgxpool.Pool
	challengeRepo *repositories.ChallengeRepo
	queueRepo     *repositories.QueueRepo
	escrowRepo    *repositories.EscrowRepo
	proofRepo     *repositories.ProofRepo
	voteRepo      *repositories.VoteRepo
	ledgerRepo    *repositories.LedgerRepo
	historyRepo   *repositories.HistoryRepo
	notifier      *Notifier
	previewer     *proofcheck.Fetcher
	cfg           *config.Config
	log           *zap.Logger
	now           func() time.Time
}

func NewSettlementService(
	pool *pgxpool.Pool,
	challengeRepo *repositories.ChallengeRepo,
	queueRepo *repositories.QueueRepo,
	escrowRepo *repositories.EscrowRepo,
	proofRepo *repositories.ProofRepo,
	voteRepo *repositories.VoteRepo,
	ledgerRepo *repositories.LedgerRepo,
	historyRepo *repositories.HistoryRepo,
	notifier *Notifier,
	previewer *proofcheck.Fetcher,
	cfg *config.Config,
	log *zap.Logger,
) *SettlementService {
	return &SettlementService{
		pool:          pool,
		challengeRepo: challengeRepo,
		queueRepo:     queueRepo,
		escrowRepo:    escrowRepo,
		proofRepo:     proofRepo,
		voteRepo:      voteRepo,
		ledgerRepo:    ledgerRepo,
		historyRepo:   historyRepo,
		notifier:      notifier,
		previewer:     previewer,
		cfg:           cfg,
		log:           log,
		now:           time.Now,
	}
}

func (s *SettlementService) WithClock(now func() time.Time) *SettlementService {
	s.now = now
	return s
}

// ReserveStake debits the participant and upserts their holding escrow,
// keyed (challenge_id, user_id). The debit is unconditional per call;
// the escrow record updates in place. Used by the direct-accept path:
// once both designated participants hold escrow the challenge activates.
func (s *SettlementService) ReserveStake(ctx context.Context, challengeID, userID uuid.UUID, amount int64) (*models.EscrowRecord, error) {
	if amount <= 0 {
		return nil, ErrInvalidStake
	}

	rec := &models.EscrowRecord{ChallengeID: challengeID, UserID: userID, Amount: amount}
	err := db.RunInTx(ctx, s.pool, func(tx pgx.Tx) error {
		ch, err := s.challengeRepo.GetForUpdate(ctx, tx, challengeID)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrInvalidChallengeID
		}
		if err != nil {
			return err
		}
		if ch.Status != models.ChallengeStatusOpen && ch.Status != models.ChallengeStatusPending {
			return ErrChallengeNotJoinable
		}
		if ch.ParticipantSide(userID) == "" {
			return ErrNotParticipant
		}

		if err := s.ledgerRepo.Debit(ctx, tx, userID, amount, models.TxTypeStakeHold, "challenge", &challengeID); err != nil {
			return err
		}
		if err := s.escrowRepo.Upsert(ctx, tx, rec); err != nil {
			return err
		}

		// Both designated sides funded: the challenge goes active.
		holding, err := s.escrowRepo.ListHolding(ctx, tx, challengeID)
		if err != nil {
			return err
		}
		funded := map[uuid.UUID]bool{}
		for _, h := range holding {
			funded[h.UserID] = true
		}
		if ch.ChallengerID != nil && ch.ChallengedID != nil && funded[*ch.ChallengerID] && funded[*ch.ChallengedID] {
			if err := s.challengeRepo.UpdateStatus(ctx, tx, challengeID, models.ChallengeStatusActive); err != nil {
				return err
			}
			if err := s.historyRepo.Log(ctx, tx, models.StateHistory{
				ChallengeID: challengeID,
				PrevState:   ch.Status,
				NewState:    models.ChallengeStatusActive,
				ActorType:   "system",
				Note:        strPtr("both stakes reserved"),
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Send(ctx, events.EventStakeReserved, []uuid.UUID{userID}, map[string]any{
		"challenge_id": challengeID.String(),
		"amount":       amount,
	})
	return rec, nil
}

// CreateProof appends a proof record and notifies the counterparty. The
// page preview is fetched best-effort, a fetch failure never blocks the
// upload.
func (s *SettlementService) CreateProof(ctx context.Context, challengeID, userID uuid.UUID, proofURI, proofHash string) (*models.ProofRecord, error) {
	if proofURI == "" || proofHash == "" {
		return nil, errors.New("proof_uri and proof_hash are required")
	}

	ch, err := s.challengeRepo.GetByID(ctx, challengeID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInvalidChallengeID
	}
	if err != nil {
		return nil, err
	}
	side := ch.ParticipantSide(userID)
	if side == "" {
		return nil, ErrNotParticipant
	}

	proof := &models.ProofRecord{
		ChallengeID:   challengeID,
		ParticipantID: userID,
		ProofURI:      proofURI,
		ProofHash:     proofHash,
	}
	if s.previewer != nil {
		if preview, err := s.previewer.Fetch(ctx, proofURI); err != nil {
			s.log.Warn("proof preview fetch failed", zap.String("uri", proofURI), zap.Error(err))
		} else if preview.Title != "" {
			proof.PreviewTitle = &preview.Title
		}
	}
	if err := s.proofRepo.Create(ctx, proof); err != nil {
		return nil, err
	}

	if counterparty := s.counterpartyOf(ch, userID); counterparty != nil {
		s.notifier.Send(ctx, events.EventProofUploaded, []uuid.UUID{*counterparty}, map[string]any{
			"challenge_id": challengeID.String(),
			"proof_hash":   proofHash,
		})
	}
	return proof, nil
}

// SubmitVote upserts the participant's vote and always attempts
// auto-release afterwards. Only the two matched participants may vote,
// so a third VoteRecord cannot come into existence.
func (s *SettlementService) SubmitVote(ctx context.Context, challengeID, userID uuid.UUID, voteChoice, proofHash, signedVote string) (*ReleaseOutcome, error) {
	if !models.IsValidVoteChoice(voteChoice) {
		return nil, ErrInvalidVoteChoice
	}

	ch, err := s.challengeRepo.GetByID(ctx, challengeID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInvalidChallengeID
	}
	if err != nil {
		return nil, err
	}
	if ch.ParticipantSide(userID) == "" {
		return nil, ErrNotParticipant
	}
	if ch.Status != models.ChallengeStatusActive {
		return nil, ErrChallengeNotSettlable
	}

	if proofHash != "" {
		known, err := s.proofRepo.ExistsByHash(ctx, challengeID, proofHash)
		if err != nil {
			return nil, err
		}
		if !known {
			return nil, ErrUnknownProofHash
		}
	}

	vote := &models.VoteRecord{
		ChallengeID:   challengeID,
		ParticipantID: userID,
		VoteChoice:    voteChoice,
		ProofHash:     proofHash,
		SignedVote:    signedVote,
	}
	if err := s.voteRepo.Upsert(ctx, s.pool, vote); err != nil {
		return nil, err
	}

	if counterparty := s.counterpartyOf(ch, userID); counterparty != nil {
		s.notifier.Send(ctx, events.EventVoteSubmitted, []uuid.UUID{*counterparty}, map[string]any{
			"challenge_id": challengeID.String(),
		})
	}

	return s.TryAutoRelease(ctx, challengeID)
}

type ReleaseOutcome struct {
	Released bool   `json:"released"`
	Reason   string `json:"reason"`
	Result   string `json:"result,omitempty"`
	Net      int64  `json:"net,omitempty"`
	Fee      int64  `json:"fee,omitempty"`
}

// TryAutoRelease settles the challenge when both votes agree: fee to the
// platform account, net (plus any active bonus) to the winner, all
// escrow released, challenge completed. Disagreeing votes open a
// dispute. The whole decision runs under the challenge row lock.
func (s *SettlementService) TryAutoRelease(ctx context.Context, challengeID uuid.UUID) (*ReleaseOutcome, error) {
	outcome := &ReleaseOutcome{}
	var participants []uuid.UUID

	err := db.RunInTx(ctx, s.pool, func(tx pgx.Tx) error {
		ch, err := s.challengeRepo.GetForUpdate(ctx, tx, challengeID)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrInvalidChallengeID
		}
		if err != nil {
			return err
		}
		if ch.Status == models.ChallengeStatusCompleted {
			// A concurrent vote already settled the challenge. The
			// caller's vote counted, nothing left to do.
			outcome.Reason = ReasonAlreadySettled
			return nil
		}
		if ch.Status != models.ChallengeStatusActive {
			return ErrChallengeNotSettlable
		}

		votes, err := s.voteRepo.ListByChallenge(ctx, tx, challengeID)
		if err != nil {
			return err
		}
		if len(votes) < 2 {
			outcome.Reason = ReasonInsufficientVotes
			return nil
		}

		if !VotesAgree(votes) {
			if err := s.challengeRepo.UpdateStatus(ctx, tx, challengeID, models.ChallengeStatusDisputed); err != nil {
				return err
			}
			if err := s.historyRepo.Log(ctx, tx, models.StateHistory{
				ChallengeID: challengeID,
				PrevState:   ch.Status,
				NewState:    models.ChallengeStatusDisputed,
				ActorType:   "system",
				Note:        strPtr("votes disagree"),
			}); err != nil {
				return err
			}
			outcome.Reason = ReasonVoteMismatch
			participants = s.participantsOf(ch)
			return nil
		}

		winnerID, result := ResolveWinner(votes[0].VoteChoice, ch)
		if winnerID == nil {
			outcome.Reason = ReasonInvalidWinner
			return nil
		}

		total, err := s.escrowRepo.SumHolding(ctx, tx, challengeID)
		if err != nil {
			return err
		}
		if total == 0 {
			outcome.Reason = ReasonNoReservedFunds
			return nil
		}

		net, fee := FeeSplit(total, s.cfg.PlatformFeeBPS)
		now := s.now()
		var bonusSpent int64
		if ch.BonusActiveAt(now) && ch.BonusSide != nil && *ch.BonusSide == winnerSide(result) {
			net, bonusSpent = BonusSpend(net, ch.BonusMultiplierBPS, ch.BonusGrantAmount)
		}

		if err := s.payout(ctx, tx, ch, *winnerID, result, net, fee, now, "system", nil); err != nil {
			return err
		}
		if err := s.reverseBonus(ctx, tx, ch, bonusSpent); err != nil {
			return err
		}

		outcome.Released = true
		outcome.Reason = ReasonReleased
		outcome.Result = result
		outcome.Net = net
		outcome.Fee = fee
		participants = s.participantsOf(ch)
		return nil
	})
	if err != nil {
		return nil, err
	}

	switch outcome.Reason {
	case ReasonReleased:
		s.notifier.Send(ctx, events.EventAutoReleased, participants, map[string]any{
			"challenge_id": challengeID.String(),
			"result":       outcome.Result,
			"net":          outcome.Net,
		})
	case ReasonVoteMismatch:
		s.notifier.Send(ctx, events.EventDisputeOpened, participants, map[string]any{
			"challenge_id": challengeID.String(),
			"reason":       "vote_mismatch",
		})
	}
	return outcome, nil
}

// payout performs the financial leg of a win inside the caller's
// transaction: credit winner, credit platform fee, release escrow, mark
// the challenge completed, write history. Any error aborts everything.
func (s *SettlementService) payout(ctx context.Context, tx pgx.Tx, ch *models.Challenge, winnerID uuid.UUID, result string, net, fee int64, now time.Time, actorType string, actorID *uuid.UUID) error {
	if err := s.ledgerRepo.Credit(ctx, tx, winnerID, net, models.TxTypePayout, "challenge", &ch.ID); err != nil {
		return err
	}
	if fee > 0 {
		if err := s.ledgerRepo.Credit(ctx, tx, s.cfg.PlatformAccountID, fee, models.TxTypePlatformFee, "challenge", &ch.ID); err != nil {
			return err
		}
	}
	if _, err := s.escrowRepo.MarkAll(ctx, tx, ch.ID, models.EscrowStatusReleased, now); err != nil {
		return err
	}
	if err := s.refundWaiting(ctx, tx, ch.ID); err != nil {
		return err
	}
	if err := s.challengeRepo.MarkCompleted(ctx, tx, ch.ID, result, now); err != nil {
		return err
	}
	return s.historyRepo.Log(ctx, tx, models.StateHistory{
		ChallengeID: ch.ID,
		PrevState:   ch.Status,
		NewState:    models.ChallengeStatusCompleted,
		ChangedBy:   actorID,
		ActorType:   actorType,
		Note:        strPtr(fmt.Sprintf("%s: net %d to %s, fee %d", result, net, winnerID, fee)),
	})
}

// reverseBonus returns the unconsumed part of an admin-funded bonus
// grant to its funder. The grant was debited at creation, so every
// terminal settlement path has to account for it or money is lost.
func (s *SettlementService) reverseBonus(ctx context.Context, tx pgx.Tx, ch *models.Challenge, spent int64) error {
	if ch.BonusGrantAmount == 0 || ch.BonusFundedBy == nil {
		return nil
	}
	remainder := ch.BonusGrantAmount - spent
	if remainder <= 0 {
		return nil
	}
	return s.ledgerRepo.Credit(ctx, tx, *ch.BonusFundedBy, remainder, models.TxTypeBonusReversal, "challenge", &ch.ID)
}

// refundWaiting cancels and refunds queue entries still waiting on a
// challenge that is leaving settlement. Without this, joiners who
// never matched would stay debited forever once the challenge closes.
func (s *SettlementService) refundWaiting(ctx context.Context, tx pgx.Tx, challengeID uuid.UUID) error {
	entries, err := s.queueRepo.CancelAllWaiting(ctx, tx, challengeID)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := s.ledgerRepo.Credit(ctx, tx, e.UserID, e.StakeAmount, models.TxTypeRefund, "challenge", &challengeID); err != nil {
			return err
		}
	}
	return nil
}

// OpenDispute escalates manually, regardless of vote state.
func (s *SettlementService) OpenDispute(ctx context.Context, challengeID, userID uuid.UUID, reason string) error {
	var participants []uuid.UUID
	err := db.RunInTx(ctx, s.pool, func(tx pgx.Tx) error {
		ch, err := s.challengeRepo.GetForUpdate(ctx, tx, challengeID)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrInvalidChallengeID
		}
		if err != nil {
			return err
		}
		if ch.ParticipantSide(userID) == "" {
			return ErrNotParticipant
		}
		if !models.IsValidTransition(ch.Status, models.ChallengeStatusDisputed) {
			return ErrChallengeNotSettlable
		}
		if err := s.challengeRepo.UpdateStatus(ctx, tx, challengeID, models.ChallengeStatusDisputed); err != nil {
			return err
		}
		participants = s.participantsOf(ch)
		return s.historyRepo.Log(ctx, tx, models.StateHistory{
			ChallengeID: challengeID,
			PrevState:   ch.Status,
			NewState:    models.ChallengeStatusDisputed,
			ChangedBy:   &userID,
			ActorType:   "user",
			Note:        &reason,
		})
	})
	if err != nil {
		return err
	}

	s.notifier.Send(ctx, events.EventDisputeOpened, participants, map[string]any{
		"challenge_id": challengeID.String(),
		"reason":       reason,
	})
	return nil
}

// Admin resolution types
const (
	ResolutionRefund = "refund"
	ResolutionWinner = "winner"
	ResolutionSplit  = "split"
)

type Resolution struct {
	Type                string       `json:"type"`
	WinnerParticipantID *uuid.UUID   `json:"winner_participant_id,omitempty"`
	Splits              []SplitShare `json:"splits,omitempty"`
}

// AdminResolve settles a disputed or escalated challenge by admin
// decision. refund returns each holding escrow exactly; winner applies
// the same fee split as auto-release; split distributes by percentage
// with no platform fee (a negotiated settlement, not a win).
func (s *SettlementService) AdminResolve(ctx context.Context, challengeID, adminID uuid.UUID, res Resolution) error {
	switch res.Type {
	case ResolutionRefund:
	case ResolutionWinner:
		if res.WinnerParticipantID == nil || *res.WinnerParticipantID == uuid.Nil {
			return ErrInvalidResolution
		}
	case ResolutionSplit:
		if len(res.Splits) == 0 {
			return ErrInvalidResolution
		}
	default:
		return ErrInvalidResolution
	}

	var participants []uuid.UUID
	err := db.RunInTx(ctx, s.pool, func(tx pgx.Tx) error {
		ch, err := s.challengeRepo.GetForUpdate(ctx, tx, challengeID)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrInvalidChallengeID
		}
		if err != nil {
			return err
		}
		if !models.IsSettleable(ch.Status) {
			return ErrChallengeNotSettlable
		}
		participants = s.participantsOf(ch)
		now := s.now()

		note, _ := json.Marshal(res)
		noteStr := string(note)

		switch res.Type {
		case ResolutionRefund:
			holding, err := s.escrowRepo.ListHolding(ctx, tx, challengeID)
			if err != nil {
				return err
			}
			for _, e := range holding {
				if err := s.ledgerRepo.Credit(ctx, tx, e.UserID, e.Amount, models.TxTypeRefund, "challenge", &challengeID); err != nil {
					return err
				}
			}
			if _, err := s.escrowRepo.MarkAll(ctx, tx, challengeID, models.EscrowStatusRefunded, now); err != nil {
				return err
			}
			if err := s.refundWaiting(ctx, tx, challengeID); err != nil {
				return err
			}
			if err := s.reverseBonus(ctx, tx, ch, 0); err != nil {
				return err
			}
			if err := s.challengeRepo.UpdateStatus(ctx, tx, challengeID, models.ChallengeStatusCancelled); err != nil {
				return err
			}
			return s.historyRepo.Log(ctx, tx, models.StateHistory{
				ChallengeID: challengeID,
				PrevState:   ch.Status,
				NewState:    models.ChallengeStatusCancelled,
				ChangedBy:   &adminID,
				ActorType:   "admin",
				Note:        &noteStr,
			})

		case ResolutionWinner:
			winnerID := *res.WinnerParticipantID
			result := ""
			switch ch.ParticipantSide(winnerID) {
			case models.SideYes:
				result = models.ResultChallengerWon
			case models.SideNo:
				result = models.ResultChallengedWon
			default:
				return ErrInvalidResolution
			}
			total, err := s.escrowRepo.SumHolding(ctx, tx, challengeID)
			if err != nil {
				return err
			}
			if total == 0 {
				return ErrChallengeNotSettlable
			}
			// Admin awards carry no bonus multiplier: the grant goes
			// back to its funder in full.
			net, fee := FeeSplit(total, s.cfg.PlatformFeeBPS)
			if err := s.payout(ctx, tx, ch, winnerID, result, net, fee, now, "admin", &adminID); err != nil {
				return err
			}
			return s.reverseBonus(ctx, tx, ch, 0)

		case ResolutionSplit:
			total, err := s.escrowRepo.SumHolding(ctx, tx, challengeID)
			if err != nil {
				return err
			}
			if total == 0 {
				return ErrChallengeNotSettlable
			}
			shares, err := SplitShares(total, res.Splits)
			if err != nil {
				return err
			}
			for userID, amount := range shares {
				if amount == 0 {
					continue
				}
				if err := s.ledgerRepo.Credit(ctx, tx, userID, amount, models.TxTypeSplit, "challenge", &challengeID); err != nil {
					return err
				}
			}
			if _, err := s.escrowRepo.MarkAll(ctx, tx, challengeID, models.EscrowStatusReleased, now); err != nil {
				return err
			}
			if err := s.refundWaiting(ctx, tx, challengeID); err != nil {
				return err
			}
			if err := s.reverseBonus(ctx, tx, ch, 0); err != nil {
				return err
			}
			if err := s.challengeRepo.MarkCompleted(ctx, tx, challengeID, models.ResultDraw, now); err != nil {
				return err
			}
			return s.historyRepo.Log(ctx, tx, models.StateHistory{
				ChallengeID: challengeID,
				PrevState:   ch.Status,
				NewState:    models.ChallengeStatusCompleted,
				ChangedBy:   &adminID,
				ActorType:   "admin",
				Note:        &noteStr,
			})
		}
		return ErrInvalidResolution
	})
	if err != nil {
		return err
	}

	s.notifier.Send(ctx, events.EventDisputeResolved, participants, map[string]any{
		"challenge_id": challengeID.String(),
		"resolution":   res.Type,
	})
	return nil
}

func (s *SettlementService) participantsOf(ch *models.Challenge) []uuid.UUID {
	var out []uuid.UUID
	if ch.ChallengerID != nil {
		out = append(out, *ch.ChallengerID)
	}
	if ch.ChallengedID != nil {
		out = append(out, *ch.ChallengedID)
	}
	return out
}

func (s *SettlementService) counterpartyOf(ch *models.Challenge, userID uuid.UUID) *uuid.UUID {
	if ch.ChallengerID != nil && *ch.ChallengerID == userID {
		return ch.ChallengedID
	}
	if ch.ChallengedID != nil && *ch.ChallengedID == userID {
		return ch.ChallengerID
	}
	return nil
}

func winnerSide(result string) string {
	if result == models.ResultChallengerWon {
		return models.SideYes
	}
	return models.SideNo
}
