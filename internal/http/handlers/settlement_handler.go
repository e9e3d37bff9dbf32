package handlers

import (
	"errors"

	"github.com/challenge-arena/backend/internal/http/dto"
	"github.com/challenge-arena/backend/internal/middleware"
	"github.com/challenge-arena/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type SettlementHandler struct {
	settlementService *services.SettlementService
	pairingService    *services.PairingService
	log               *zap.Logger
}

func NewSettlementHandler(settlementService *services.SettlementService, pairingService *services.PairingService, log *zap.Logger) *SettlementHandler {
	return &SettlementHandler{settlementService: settlementService, pairingService: pairingService, log: log}
}

func (h *SettlementHandler) ReserveStake(c *fiber.Ctx) error {
	challengeID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid challenge id"})
	}

	var req dto.ReserveStakeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}

	userID := middleware.GetUserID(c)
	rec, err := h.settlementService.ReserveStake(c.Context(), challengeID, userID, req.Amount)
	switch {
	case errors.Is(err, services.ErrInvalidChallengeID):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "challenge not found"})
	case errors.Is(err, services.ErrInsufficientBalance):
		return c.Status(fiber.StatusPaymentRequired).JSON(dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, services.ErrNotParticipant):
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Error: err.Error()})
	case err != nil:
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: rec})
}

func (h *SettlementHandler) CreateProof(c *fiber.Ctx) error {
	challengeID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid challenge id"})
	}

	var req dto.CreateProofRequest
	if err := c.BodyParser(&req); err != nil || req.ProofURI == "" || req.ProofHash == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "proof_uri and proof_hash are required"})
	}

	userID := middleware.GetUserID(c)
	proof, err := h.settlementService.CreateProof(c.Context(), challengeID, userID, req.ProofURI, req.ProofHash)
	switch {
	case errors.Is(err, services.ErrInvalidChallengeID):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "challenge not found"})
	case errors.Is(err, services.ErrNotParticipant):
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Error: err.Error()})
	case err != nil:
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: proof})
}

func (h *SettlementHandler) SubmitVote(c *fiber.Ctx) error {
	challengeID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid challenge id"})
	}

	var req dto.SubmitVoteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}

	userID := middleware.GetUserID(c)
	outcome, err := h.settlementService.SubmitVote(c.Context(), challengeID, userID, req.VoteChoice, req.ProofHash, req.SignedVote)
	switch {
	case errors.Is(err, services.ErrInvalidChallengeID):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "challenge not found"})
	case errors.Is(err, services.ErrNotParticipant):
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Error: err.Error()})
	case err != nil:
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: outcome})
}

func (h *SettlementHandler) OpenDispute(c *fiber.Ctx) error {
	challengeID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid challenge id"})
	}

	var req dto.OpenDisputeRequest
	_ = c.BodyParser(&req)

	userID := middleware.GetUserID(c)
	err = h.settlementService.OpenDispute(c.Context(), challengeID, userID, req.Reason)
	switch {
	case errors.Is(err, services.ErrInvalidChallengeID):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "challenge not found"})
	case errors.Is(err, services.ErrNotParticipant):
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Error: err.Error()})
	case err != nil:
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

func (h *SettlementHandler) Overview(c *fiber.Ctx) error {
	challengeID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid challenge id"})
	}

	overview, err := h.pairingService.GetChallengeOverview(c.Context(), challengeID)
	if errors.Is(err, services.ErrInvalidChallengeID) {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "challenge not found"})
	}
	if err != nil {
		h.log.Error("overview failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: overview})
}

// AdminResolve is mounted behind AdminMiddleware.
func (h *SettlementHandler) AdminResolve(c *fiber.Ctx) error {
	challengeID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid challenge id"})
	}

	var req dto.AdminResolveRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}

	res := services.Resolution{Type: req.Type}
	if req.WinnerParticipantID != nil {
		id, err := uuid.Parse(*req.WinnerParticipantID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid winner_participant_id"})
		}
		res.WinnerParticipantID = &id
	}
	for _, s := range req.Splits {
		id, err := uuid.Parse(s.ParticipantID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid split participant_id"})
		}
		res.Splits = append(res.Splits, services.SplitShare{ParticipantID: id, Pct: s.Pct})
	}

	adminID := middleware.GetUserID(c)
	err = h.settlementService.AdminResolve(c.Context(), challengeID, adminID, res)
	switch {
	case errors.Is(err, services.ErrInvalidChallengeID):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "challenge not found"})
	case errors.Is(err, services.ErrInvalidResolution):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, services.ErrChallengeNotSettlable):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Error: err.Error()})
	case err != nil:
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}
