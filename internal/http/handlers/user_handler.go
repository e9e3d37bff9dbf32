package handlers

import (
	"strconv"

	"github.com/challenge-arena/backend/internal/http/dto"
	"github.com/challenge-arena/backend/internal/middleware"
	"github.com/challenge-arena/backend/internal/repositories"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type UserHandler struct {
	userRepo   *repositories.UserRepo
	ledgerRepo *repositories.LedgerRepo
	log        *zap.Logger
}

func NewUserHandler(userRepo *repositories.UserRepo, ledgerRepo *repositories.LedgerRepo, log *zap.Logger) *UserHandler {
	return &UserHandler{userRepo: userRepo, ledgerRepo: ledgerRepo, log: log}
}

func (h *UserHandler) GetMe(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	user, err := h.userRepo.GetByID(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "user not found"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: user})
}

func (h *UserHandler) GetBalance(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	balance, err := h.ledgerRepo.GetBalance(c.Context(), userID)
	if err != nil {
		h.log.Error("get balance failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
	return c.JSON(dto.BalanceResponse{UserID: userID.String(), Balance: balance})
}

func (h *UserHandler) ListTransactions(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

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

	txs, err := h.ledgerRepo.ListTransactions(c.Context(), userID, limit, offset)
	if err != nil {
		h.log.Error("list transactions failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: txs})
}

// Deposit credits a user's balance. Admin-only: the money rail is
// external, this endpoint just records arrivals.
func (h *UserHandler) Deposit(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid user id"})
	}

	var req dto.DepositRequest
	if err := c.BodyParser(&req); err != nil || req.Amount <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "amount must be positive"})
	}

	if err := h.ledgerRepo.Deposit(c.Context(), userID, req.Amount); err != nil {
		h.log.Error("deposit failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}
