package handler

import (
	"reward-ledger/internal/adapter/http/dto"
	"reward-ledger/internal/core/domain"
	"reward-ledger/internal/core/ports"
	"reward-ledger/pkg/apperror"
	"reward-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PayoutHandler handles payout request and processing endpoints.
type PayoutHandler struct {
	payoutSvc ports.PayoutService
	actorRepo ports.ActorRepository
}

// NewPayoutHandler creates a new PayoutHandler.
func NewPayoutHandler(payoutSvc ports.PayoutService, actorRepo ports.ActorRepository) *PayoutHandler {
	return &PayoutHandler{payoutSvc: payoutSvc, actorRepo: actorRepo}
}

// Request handles POST /api/v1/payouts — the authenticated actor requests a
// payout of their affiliate earnings.
func (h *PayoutHandler) Request(c *gin.Context) {
	actor, err := h.resolveActor(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.RequestPayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	payout, err := h.payoutSvc.Request(c.Request.Context(), actor.UserID, req.Amount, req.Method)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, payout)
}

// ListMine handles GET /api/v1/payouts.
func (h *PayoutHandler) ListMine(c *gin.Context) {
	actor, err := h.resolveActor(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	page, pageSize := paginationParams(c)
	payouts, total, err := h.payoutSvc.ListByActor(c.Request.Context(), actor.UserID, page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.ListResponse{
		Items:      payouts,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(total, pageSize),
	})
}

// Process handles POST /api/v1/admin/payouts/:id/process — an admin moves a
// payout through its lifecycle.
func (h *PayoutHandler) Process(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("payout id must be a valid UUID"))
		return
	}
	adminID, ok := adminIDFromContext(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.ProcessPayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	payout, err := h.payoutSvc.Process(c.Request.Context(), ports.PayoutProcessRequest{
		PayoutID:      id,
		Target:        domain.PayoutStatus(req.Target),
		SettlementRef: req.SettlementRef,
		Notes:         req.Notes,
		AdminID:       adminID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, payout)
}

func (h *PayoutHandler) resolveActor(c *gin.Context) (*domain.Actor, error) {
	userID, ok := adminIDFromContext(c)
	if !ok {
		return nil, apperror.ErrInvalidToken()
	}
	actor, err := h.actorRepo.GetByUserID(c.Request.Context(), userID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if actor == nil {
		return nil, apperror.ErrNotFound("actor")
	}
	return actor, nil
}
