package handlers

import (
	"errors"
	"strconv"

	"github.com/challenge-arena/backend/internal/config"
	"github.com/challenge-arena/backend/internal/http/dto"
	"github.com/challenge-arena/backend/internal/middleware"
	"github.com/challenge-arena/backend/internal/rbac"
	"github.com/challenge-arena/backend/internal/repositories"
	"github.com/challenge-arena/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ChallengeHandler struct {
	challengeService *services.ChallengeService
	pairingService   *services.PairingService
	cfg              *config.Config
	log              *zap.Logger
}

func NewChallengeHandler(challengeService *services.ChallengeService, pairingService *services.PairingService, cfg *config.Config, log *zap.Logger) *ChallengeHandler {
	return &ChallengeHandler{challengeService: challengeService, pairingService: pairingService, cfg: cfg, log: log}
}

func (h *ChallengeHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateChallengeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}

	if req.BonusSide != nil && !rbac.HasPermission(middleware.RoleOf(h.cfg, c), rbac.PermFundBonus) {
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Error: "bonus funding requires admin access"})
	}

	in := services.CreateChallengeInput{
		Title:              req.Title,
		Category:           req.Category,
		Amount:             req.Amount,
		DueDate:            req.DueDate,
		BonusSide:          req.BonusSide,
		BonusMultiplierBPS: req.BonusMultiplierBPS,
		BonusGrantAmount:   req.BonusGrantAmount,
		BonusExpiresAt:     req.BonusExpiresAt,
	}
	if req.ChallengedID != nil {
		id, err := uuid.Parse(*req.ChallengedID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid challenged_id"})
		}
		in.ChallengedID = &id
	}

	creatorID := middleware.GetUserID(c)
	ch, err := h.challengeService.Create(c.Context(), creatorID, in)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: ch})
}

func (h *ChallengeHandler) List(c *fiber.Ctx) error {
	filter := repositories.ChallengeFilter{Limit: 20}

	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}
	if v := c.Query("status"); v != "" {
		filter.Status = &v
	}
	if v := c.Query("category"); v != "" {
		filter.Category = &v
	}
	if c.Query("mine") == "true" {
		userID := middleware.GetUserID(c)
		filter.ParticipantID = &userID
	}

	challenges, err := h.challengeService.List(c.Context(), filter)
	if err != nil {
		h.log.Error("list challenges failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: challenges})
}

func (h *ChallengeHandler) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid challenge id"})
	}

	detail, err := h.challengeService.GetDetail(c.Context(), id)
	if errors.Is(err, services.ErrInvalidChallengeID) {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "challenge not found"})
	}
	if err != nil {
		h.log.Error("get challenge failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: detail})
}

func (h *ChallengeHandler) History(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid challenge id"})
	}

	limit, offset := 50, 0
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			offset = n
		}
	}

	history, err := h.challengeService.History(c.Context(), id, limit, offset)
	if errors.Is(err, services.ErrInvalidChallengeID) {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "challenge not found"})
	}
	if err != nil {
		h.log.Error("get history failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: history})
}

func (h *ChallengeHandler) Join(c *fiber.Ctx) error {
	challengeID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid challenge id"})
	}

	var req dto.JoinChallengeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}

	userID := middleware.GetUserID(c)
	result, err := h.pairingService.JoinChallenge(c.Context(), userID, challengeID, req.Side, req.StakeAmount)
	switch {
	case errors.Is(err, services.ErrInvalidChallengeID):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "challenge not found"})
	case errors.Is(err, services.ErrInsufficientBalance):
		return c.Status(fiber.StatusPaymentRequired).JSON(dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, services.ErrAlreadyQueued):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Error: err.Error()})
	case err != nil:
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: result})
}

func (h *ChallengeHandler) CancelQueue(c *fiber.Ctx) error {
	challengeID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid challenge id"})
	}

	userID := middleware.GetUserID(c)
	refund, err := h.pairingService.CancelFromQueue(c.Context(), userID, challengeID)
	if errors.Is(err, services.ErrNoWaitingEntry) {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.CancelQueueResponse{OK: true, Refund: refund})
}

func (h *ChallengeHandler) QueueStatus(c *fiber.Ctx) error {
	challengeID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid challenge id"})
	}

	status, err := h.pairingService.GetQueueStatus(c.Context(), challengeID)
	if errors.Is(err, services.ErrInvalidChallengeID) {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "challenge not found"})
	}
	if err != nil {
		h.log.Error("queue status failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: status})
}

func (h *ChallengeHandler) MyQueueStatus(c *fiber.Ctx) error {
	challengeID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid challenge id"})
	}

	userID := middleware.GetUserID(c)
	status, err := h.pairingService.GetUserStatus(c.Context(), challengeID, userID)
	if err != nil {
		h.log.Error("user queue status failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: status})
}
