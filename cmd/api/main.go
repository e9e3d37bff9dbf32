package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/challenge-arena/backend/internal/config"
	"github.com/challenge-arena/backend/internal/db"
	"github.com/challenge-arena/backend/internal/events"
	apphttp "github.com/challenge-arena/backend/internal/http"
	"github.com/challenge-arena/backend/internal/http/handlers"
	"github.com/challenge-arena/backend/internal/proofcheck"
	"github.com/challenge-arena/backend/internal/repositories"
	"github.com/challenge-arena/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	// Run migrations
	if err := db.RunMigrations(ctx, pool, "migrations", log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Redis
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Repositories
	userRepo := repositories.NewUserRepo(pool)
	challengeRepo := repositories.NewChallengeRepo(pool)
	queueRepo := repositories.NewQueueRepo(pool)
	escrowRepo := repositories.NewEscrowRepo(pool)
	proofRepo := repositories.NewProofRepo(pool)
	voteRepo := repositories.NewVoteRepo(pool)
	ledgerRepo := repositories.NewLedgerRepo(pool)
	historyRepo := repositories.NewHistoryRepo(pool)

	// Events
	publisher := events.NewRedisPublisher(rdb, log)
	subscriber := events.NewRedisSubscriber(rdb, log)

	// Services
	notifier := services.NewNotifier(publisher, userRepo, log)
	previewer := proofcheck.NewFetcher(cfg.ProofFetchTimeoutMS, cfg.ProofFetchMaxRetries, log)
	pairingService := services.NewPairingService(pool, challengeRepo, queueRepo, escrowRepo, ledgerRepo, historyRepo, notifier, cfg, log)
	settlementService := services.NewSettlementService(pool, challengeRepo, queueRepo, escrowRepo, proofRepo, voteRepo, ledgerRepo, historyRepo, notifier, previewer, cfg, log)
	challengeService := services.NewChallengeService(pool, challengeRepo, escrowRepo, proofRepo, historyRepo, ledgerRepo, cfg, log)

	// Handlers
	authHandler := handlers.NewAuthHandler(userRepo, cfg, log)
	userHandler := handlers.NewUserHandler(userRepo, ledgerRepo, log)
	challengeHandler := handlers.NewChallengeHandler(challengeService, pairingService, cfg, log)
	settlementHandler := handlers.NewSettlementHandler(settlementService, pairingService, log)
	wsHub := handlers.NewWSHub(cfg, subscriber, log)

	// Start WS hub
	wsHub.Start(ctx)

	// Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	apphttp.SetupRouter(app, cfg, log, rdb, authHandler, userHandler, challengeHandler, settlementHandler, wsHub)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
