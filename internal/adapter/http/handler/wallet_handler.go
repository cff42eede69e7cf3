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

// WalletHandler handles wallet balance, history and adjustment endpoints.
type WalletHandler struct {
	ledgerSvc ports.LedgerService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(ledgerSvc ports.LedgerService) *WalletHandler {
	return &WalletHandler{ledgerSvc: ledgerSvc}
}

// GetMine handles GET /api/v1/wallets/me.
func (h *WalletHandler) GetMine(c *gin.Context) {
	userID, ok := adminIDFromContext(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}
	h.getWallet(c, userID)
}

// HistoryMine handles GET /api/v1/wallets/me/transactions.
func (h *WalletHandler) HistoryMine(c *gin.Context) {
	userID, ok := adminIDFromContext(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}
	h.history(c, userID)
}

// Get handles GET /api/v1/admin/wallets/:user_id.
func (h *WalletHandler) Get(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		response.Error(c, apperror.Validation("user id must be a valid UUID"))
		return
	}
	h.getWallet(c, userID)
}

// History handles GET /api/v1/admin/wallets/:user_id/transactions.
func (h *WalletHandler) History(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		response.Error(c, apperror.Validation("user id must be a valid UUID"))
		return
	}
	h.history(c, userID)
}

// Adjust handles POST /api/v1/admin/wallets/:user_id/adjust — a manual
// admin mutation, recorded in the ledger with the admin's id.
func (h *WalletHandler) Adjust(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		response.Error(c, apperror.Validation("user id must be a valid UUID"))
		return
	}
	adminID, ok := adminIDFromContext(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.AdjustWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	result, err := h.ledgerSvc.Mutate(c.Request.Context(), ports.MutationRequest{
		UserID:    userID,
		Bucket:    domain.Bucket(req.Bucket),
		Direction: domain.Direction(req.Direction),
		Amount:    req.Amount,
		Reason:    req.Reason,
		AdminID:   &adminID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.AdjustWalletResponse{
		Bucket:     req.Bucket,
		OldBalance: result.OldBalance,
		NewBalance: result.NewBalance,
		Total:      result.Total,
	})
}

func (h *WalletHandler) getWallet(c *gin.Context, userID uuid.UUID) {
	wallet, err := h.ledgerSvc.GetWallet(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, wallet)
}

func (h *WalletHandler) history(c *gin.Context, userID uuid.UUID) {
	page, pageSize := paginationParams(c)
	params := ports.LedgerListParams{
		UserID:   userID,
		Page:     page,
		PageSize: pageSize,
	}
	if b := c.Query("bucket"); b != "" {
		bucket := domain.Bucket(b)
		if !bucket.Valid() {
			response.Error(c, apperror.Validation("unknown bucket"))
			return
		}
		params.Bucket = &bucket
	}

	entries, total, err := h.ledgerSvc.History(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.ListResponse{
		Items:      entries,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(total, pageSize),
	})
}
