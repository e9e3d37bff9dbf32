package http

import (
	"time"

	"github.com/challenge-arena/backend/internal/config"
	"github.com/challenge-arena/backend/internal/http/handlers"
	"github.com/challenge-arena/backend/internal/middleware"
	"github.com/challenge-arena/backend/internal/rbac"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	rdb *redis.Client,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	challengeHandler *handlers.ChallengeHandler,
	settlementHandler *handlers.SettlementHandler,
	wsHub *handlers.WSHub,
) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api/v1")

	// Auth (public)
	api.Post("/auth/login", authHandler.Login)

	// Rate-limited endpoints
	api.Use(middleware.RateLimitMiddleware(rdb, 100, time.Minute))

	// Protected endpoints
	protected := api.Group("", middleware.AuthMiddleware(cfg, log))

	// User
	protected.Get("/me", userHandler.GetMe)
	protected.Get("/me/balance", userHandler.GetBalance)
	protected.Get("/me/transactions", userHandler.ListTransactions)

	// Challenges
	protected.Post("/challenges", challengeHandler.Create)
	protected.Get("/challenges", challengeHandler.List)
	protected.Get("/challenges/:id", challengeHandler.Get)
	protected.Get("/challenges/:id/history", challengeHandler.History)
	protected.Get("/challenges/:id/overview", settlementHandler.Overview)

	// Matching queue
	protected.Post("/challenges/:id/join", challengeHandler.Join)
	protected.Delete("/challenges/:id/queue", challengeHandler.CancelQueue)
	protected.Get("/challenges/:id/queue", challengeHandler.QueueStatus)
	protected.Get("/challenges/:id/queue/me", challengeHandler.MyQueueStatus)

	// Settlement
	protected.Post("/challenges/:id/reserve", settlementHandler.ReserveStake)
	protected.Post("/challenges/:id/proofs", settlementHandler.CreateProof)
	protected.Post("/challenges/:id/votes", settlementHandler.SubmitVote)
	protected.Post("/challenges/:id/dispute", settlementHandler.OpenDispute)

	// Admin
	admin := protected.Group("/admin")
	admin.Post("/challenges/:id/resolve", middleware.RequirePermission(cfg, rbac.PermResolveDispute), settlementHandler.AdminResolve)
	admin.Post("/users/:id/deposit", middleware.RequirePermission(cfg, rbac.PermDepositFunds), userHandler.Deposit)

	// WebSocket
	app.Use("/ws", handlers.WSUpgradeMiddleware())
	app.Get("/ws", websocket.New(wsHub.HandleWS))
}
