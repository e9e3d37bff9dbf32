package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/challenge-arena/backend/internal/config"
	"github.com/challenge-arena/backend/internal/db"
	"github.com/challenge-arena/backend/internal/events"
	"github.com/challenge-arena/backend/internal/models"
	"github.com/challenge-arena/backend/internal/repositories"
	"github.com/challenge-arena/backend/internal/services"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Repos
	userRepo := repositories.NewUserRepo(pool)
	challengeRepo := repositories.NewChallengeRepo(pool)
	queueRepo := repositories.NewQueueRepo(pool)
	escrowRepo := repositories.NewEscrowRepo(pool)
	ledgerRepo := repositories.NewLedgerRepo(pool)
	historyRepo := repositories.NewHistoryRepo(pool)

	// Services
	publisher := events.NewRedisPublisher(rdb, log)
	notifier := services.NewNotifier(publisher, userRepo, log)
	pairingService := services.NewPairingService(pool, challengeRepo, queueRepo, escrowRepo, ledgerRepo, historyRepo, notifier, cfg, log)

	log.Info("worker started")

	expiryTicker := time.NewTicker(cfg.ExpiryScanInterval)
	warningTicker := time.NewTicker(cfg.WarningScanInterval)
	defer expiryTicker.Stop()
	defer warningTicker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-expiryTicker.C:
			runExpiry(ctx, challengeRepo, pairingService, log)
		case <-warningTicker.C:
			runDueDateWarnings(ctx, challengeRepo, notifier, log)
		case <-sigCh:
			log.Info("shutting down worker")
			cancel()
			return
		case <-ctx.Done():
			return
		}
	}
}

// runExpiry cancels unmatched challenges past due (refunding the queue)
// and escalates matched ones that missed their due date to admin review.
func runExpiry(ctx context.Context, challengeRepo *repositories.ChallengeRepo, pairingService *services.PairingService, log *zap.Logger) {
	now := time.Now()

	unmatched, err := challengeRepo.ListDue(ctx, []string{models.ChallengeStatusOpen, models.ChallengeStatusPending}, now, 100)
	if err != nil {
		log.Error("failed to list due challenges", zap.Error(err))
		return
	}
	for _, ch := range unmatched {
		refunded, err := pairingService.ExpireChallenge(ctx, ch.ID)
		if err != nil {
			log.Error("failed to expire challenge", zap.String("challenge_id", ch.ID.String()), zap.Error(err))
			continue
		}
		log.Info("challenge expired",
			zap.String("challenge_id", ch.ID.String()),
			zap.Int("refunded_entries", refunded),
		)
	}

	overdue, err := challengeRepo.ListDue(ctx, []string{models.ChallengeStatusActive}, now, 100)
	if err != nil {
		log.Error("failed to list overdue challenges", zap.Error(err))
		return
	}
	for _, ch := range overdue {
		moved, err := pairingService.EscalateOverdue(ctx, ch.ID)
		if err != nil {
			log.Error("failed to escalate challenge", zap.String("challenge_id", ch.ID.String()), zap.Error(err))
			continue
		}
		if moved {
			log.Info("overdue challenge escalated to admin", zap.String("challenge_id", ch.ID.String()))
		}
	}
}

// runDueDateWarnings notifies participants 1h and 10m before the due
// date. Each warning fires once per challenge.
func runDueDateWarnings(ctx context.Context, challengeRepo *repositories.ChallengeRepo, notifier *services.Notifier, log *zap.Logger) {
	now := time.Now()

	windows := []struct {
		window time.Duration
		col    string
		label  string
	}{
		{time.Hour, "warned_1h", "1h"},
		{10 * time.Minute, "warned_10m", "10m"},
	}

	for _, w := range windows {
		challenges, err := challengeRepo.ListDueWithin(ctx, now, w.window, w.col, 100)
		if err != nil {
			log.Error("failed to list challenges for warning", zap.String("window", w.label), zap.Error(err))
			continue
		}

		for _, ch := range challenges {
			var recipients []uuid.UUID
			if ch.ChallengerID != nil {
				recipients = append(recipients, *ch.ChallengerID)
			}
			if ch.ChallengedID != nil {
				recipients = append(recipients, *ch.ChallengedID)
			}

			notifier.Send(ctx, events.EventDueDateWarning, recipients, map[string]any{
				"challenge_id": ch.ID.String(),
				"due_date":     ch.DueDate,
				"window":       w.label,
			})

			if err := challengeRepo.SetWarned(ctx, ch.ID, w.col); err != nil {
				log.Error("failed to mark challenge warned", zap.String("challenge_id", ch.ID.String()), zap.Error(err))
			}
		}
	}
}
