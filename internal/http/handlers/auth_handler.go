package handlers

import (
	"strconv"

	"github.com/challenge-arena/backend/internal/auth"
	"github.com/challenge-arena/backend/internal/config"
	"github.com/challenge-arena/backend/internal/http/dto"
	"github.com/challenge-arena/backend/internal/repositories"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type AuthHandler struct {
	userRepo *repositories.UserRepo
	cfg      *config.Config
	log      *zap.Logger
}

func NewAuthHandler(userRepo *repositories.UserRepo, cfg *config.Config, log *zap.Logger) *AuthHandler {
	return &AuthHandler{userRepo: userRepo, cfg: cfg, log: log}
}

// Login exchanges a bot-signed payload for a JWT, creating the user on
// first contact.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.AuthRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if req.Payload == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "payload is required"})
	}

	vals, err := auth.ValidateSignedAuth(req.Payload, h.cfg.AuthSecret, 0)
	if err != nil {
		h.log.Debug("auth validation failed", zap.Error(err))
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	telegramID, err := strconv.ParseInt(vals.Get("telegram_user_id"), 10, 64)
	if err != nil || telegramID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "telegram_user_id missing from payload"})
	}

	var username *string
	if u := vals.Get("username"); u != "" {
		username = &u
	}

	user, err := h.userRepo.UpsertByTelegramID(c.Context(), telegramID, username)
	if err != nil {
		h.log.Error("failed to upsert user", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}

	token, err := auth.GenerateJWT(h.cfg.JWTSecret, user.ID, user.TelegramUserID, h.cfg.JWTExpiration)
	if err != nil {
		h.log.Error("failed to generate jwt", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}

	return c.JSON(dto.AuthResponse{Token: token, User: user})
}
