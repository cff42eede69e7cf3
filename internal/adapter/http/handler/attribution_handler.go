package handler

import (
	"time"

	"reward-ledger/internal/adapter/http/dto"
	"reward-ledger/internal/core/ports"
	"reward-ledger/pkg/apperror"
	"reward-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// AttributionHandler handles click tracking.
type AttributionHandler struct {
	attributionSvc ports.AttributionService
}

// NewAttributionHandler creates a new AttributionHandler.
func NewAttributionHandler(attributionSvc ports.AttributionService) *AttributionHandler {
	return &AttributionHandler{attributionSvc: attributionSvc}
}

// Track handles POST /api/v1/attribution/track.
func (h *AttributionHandler) Track(c *gin.Context) {
	var req dto.TrackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	session, err := h.attributionSvc.Track(c.Request.Context(), ports.TrackRequest{
		Code:        req.Code,
		ProductID:   req.ProductID,
		ReferrerURL: req.ReferrerURL,
		DeviceClass: req.DeviceClass,
		Campaign:    req.Campaign,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.TrackResponse{
		SessionID: session.SessionID,
		ExpiresAt: session.ExpiresAt().UTC().Format(time.RFC3339),
	})
}
