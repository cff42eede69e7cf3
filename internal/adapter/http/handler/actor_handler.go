package handler

import (
	"time"

	"reward-ledger/internal/adapter/http/dto"
	"reward-ledger/internal/core/domain"
	"reward-ledger/internal/core/ports"
	"reward-ledger/pkg/apperror"
	"reward-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ActorHandler handles affiliate/referrer account administration.
type ActorHandler struct {
	actorRepo ports.ActorRepository
}

// NewActorHandler creates a new ActorHandler.
func NewActorHandler(actorRepo ports.ActorRepository) *ActorHandler {
	return &ActorHandler{actorRepo: actorRepo}
}

// Create handles POST /api/v1/admin/actors — registers a shareable code for a
// platform user. Codes are unique; a taken code is a conflict, not an update.
func (h *ActorHandler) Create(c *gin.Context) {
	var req dto.CreateActorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		response.Error(c, apperror.Validation("user_id must be a valid UUID"))
		return
	}

	existing, err := h.actorRepo.GetByCode(c.Request.Context(), req.Code)
	if err != nil {
		response.Error(c, apperror.InternalError(err))
		return
	}
	if existing != nil {
		response.Error(c, apperror.ErrAlreadyExists("code"))
		return
	}

	now := time.Now().UTC()
	actor := &domain.Actor{
		ID:        uuid.New(),
		UserID:    userID,
		Code:      req.Code,
		Name:      req.Name,
		Status:    domain.ActorStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.actorRepo.Create(c.Request.Context(), actor); err != nil {
		response.Error(c, apperror.InternalError(err))
		return
	}

	response.Created(c, actor)
}

// Get handles GET /api/v1/admin/actors/:id.
func (h *ActorHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("actor id must be a valid UUID"))
		return
	}

	actor, err := h.actorRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, apperror.InternalError(err))
		return
	}
	if actor == nil {
		response.Error(c, apperror.ErrNotFound("actor"))
		return
	}
	response.OK(c, actor)
}
