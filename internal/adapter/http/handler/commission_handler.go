package handler

import (
	"math"
	"strconv"

	"reward-ledger/internal/adapter/http/dto"
	"reward-ledger/internal/adapter/http/middleware"
	"reward-ledger/internal/core/domain"
	"reward-ledger/internal/core/ports"
	"reward-ledger/pkg/apperror"
	"reward-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CommissionHandler handles commission lifecycle endpoints.
type CommissionHandler struct {
	commissionSvc ports.CommissionService
	actorRepo     ports.ActorRepository
}

// NewCommissionHandler creates a new CommissionHandler.
func NewCommissionHandler(commissionSvc ports.CommissionService, actorRepo ports.ActorRepository) *CommissionHandler {
	return &CommissionHandler{commissionSvc: commissionSvc, actorRepo: actorRepo}
}

// Confirm handles POST /api/v1/admin/commissions/:id/confirm.
func (h *CommissionHandler) Confirm(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("commission id must be a valid UUID"))
		return
	}
	adminID, ok := adminIDFromContext(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	commission, err := h.commissionSvc.Confirm(c.Request.Context(), id, adminID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, commission)
}

// Reverse handles POST /api/v1/admin/commissions/:id/reverse.
func (h *CommissionHandler) Reverse(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("commission id must be a valid UUID"))
		return
	}
	adminID, ok := adminIDFromContext(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.ReverseCommissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	commission, err := h.commissionSvc.Reverse(c.Request.Context(), id, req.Reason, adminID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, commission)
}

// ListMine handles GET /api/v1/commissions — the authenticated actor's
// earning history.
func (h *CommissionHandler) ListMine(c *gin.Context) {
	actor, err := h.resolveActor(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	page, pageSize := paginationParams(c)
	params := ports.CommissionListParams{
		ActorID:  actor.UserID,
		Page:     page,
		PageSize: pageSize,
	}
	if s := c.Query("status"); s != "" {
		status := domain.CommissionStatus(s)
		params.Status = &status
	}

	commissions, total, err := h.commissionSvc.ListByActor(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.ListResponse{
		Items:      commissions,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(total, pageSize),
	})
}

// StatsMine handles GET /api/v1/commissions/stats.
func (h *CommissionHandler) StatsMine(c *gin.Context) {
	actor, err := h.resolveActor(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	stats, err := h.commissionSvc.Stats(c.Request.Context(), actor.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, stats)
}

// resolveActor maps the authenticated user to their actor profile.
func (h *CommissionHandler) resolveActor(c *gin.Context) (*domain.Actor, error) {
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

// adminIDFromContext pulls the authenticated caller's id set by JWTAuth.
func adminIDFromContext(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(middleware.CtxAdminID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// paginationParams parses and clamps page/page_size query parameters.
func paginationParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}

func totalPages(total int64, pageSize int) int {
	return int(math.Ceil(float64(total) / float64(pageSize)))
}
