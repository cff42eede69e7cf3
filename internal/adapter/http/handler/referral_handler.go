package handler

import (
	"reward-ledger/internal/adapter/http/dto"
	"reward-ledger/internal/core/domain"
	"reward-ledger/internal/core/ports"
	"reward-ledger/pkg/apperror"
	"reward-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// ReferralHandler handles referral settings and fraud review endpoints.
type ReferralHandler struct {
	referralSvc  ports.ReferralService
	referralRepo ports.ReferralRepository
}

// NewReferralHandler creates a new ReferralHandler.
func NewReferralHandler(referralSvc ports.ReferralService, referralRepo ports.ReferralRepository) *ReferralHandler {
	return &ReferralHandler{referralSvc: referralSvc, referralRepo: referralRepo}
}

// GetSettings handles GET /api/v1/admin/referral-settings.
func (h *ReferralHandler) GetSettings(c *gin.Context) {
	settings, err := h.referralSvc.GetSettings(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, settings)
}

// UpdateSettings handles PUT /api/v1/admin/referral-settings.
func (h *ReferralHandler) UpdateSettings(c *gin.Context) {
	var req dto.ReferralSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	settings, err := h.referralSvc.UpdateSettings(c.Request.Context(), &domain.ReferralSettings{
		Enabled:             req.Enabled,
		ReferrerRewardCoins: req.ReferrerRewardCoins,
		RefereeRewardAmount: req.RefereeRewardAmount,
		MinOrderValue:       req.MinOrderValue,
		PerUserLimit:        req.PerUserLimit,
		DailyLimit:          req.DailyLimit,
		MonthlyLimit:        req.MonthlyLimit,
		AllowSelfReferral:   req.AllowSelfReferral,
		FirstOrderOnly:      req.FirstOrderOnly,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, settings)
}

// ListBlocked handles GET /api/v1/admin/referrals/blocked — blocked referral
// transactions with their fraud flags, for manual review.
func (h *ReferralHandler) ListBlocked(c *gin.Context) {
	page, pageSize := paginationParams(c)
	transactions, total, err := h.referralRepo.ListBlocked(c.Request.Context(), page, pageSize)
	if err != nil {
		response.Error(c, apperror.InternalError(err))
		return
	}

	response.OK(c, dto.ListResponse{
		Items:      transactions,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(total, pageSize),
	})
}
