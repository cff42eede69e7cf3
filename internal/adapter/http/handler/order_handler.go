package handler

import (
	"reward-ledger/internal/adapter/http/dto"
	"reward-ledger/internal/core/domain"
	"reward-ledger/internal/core/ports"
	"reward-ledger/pkg/apperror"
	"reward-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderHandler handles order completion event ingestion.
type OrderHandler struct {
	orderSvc ports.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orderSvc ports.OrderService) *OrderHandler {
	return &OrderHandler{orderSvc: orderSvc}
}

// ProcessEvent handles POST /api/v1/orders/events.
func (h *OrderHandler) ProcessEvent(c *gin.Context) {
	var req dto.OrderEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	event := ports.OrderEvent{
		OrderID:   req.OrderID,
		ActorCode: req.ActorCode,
		SessionID: req.SessionID,
	}
	if req.BuyerID != "" {
		buyerID, err := uuid.Parse(req.BuyerID)
		if err != nil {
			response.Error(c, apperror.Validation("buyer_id must be a valid UUID"))
			return
		}
		event.BuyerID = buyerID
	}

	for _, line := range req.Lines {
		l := ports.OrderLine{
			ProductID: line.ProductID,
			UnitPrice: line.UnitPrice,
			Quantity:  line.Quantity,
		}
		basis, err := toBasis(line)
		if err != nil {
			response.Error(c, err)
			return
		}
		l.Basis = basis
		event.Lines = append(event.Lines, l)
	}

	result, err := h.orderSvc.ProcessOrderEvent(c.Request.Context(), event)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Accepted(c, result)
}

// toBasis converts the wire-level basis fields into the domain form.
// A line without a basis type earns nothing and maps to nil.
func toBasis(line dto.OrderLineRequest) (*domain.CommissionBasis, error) {
	if line.BasisType == nil {
		return nil, nil
	}

	basis := &domain.CommissionBasis{
		Type: domain.BasisType(*line.BasisType),
		Cap:  line.BasisCap,
	}
	if line.BasisFixed != nil {
		basis.Fixed = *line.BasisFixed
	}
	if line.BasisPercent != nil {
		percent, err := decimal.NewFromString(*line.BasisPercent)
		if err != nil {
			return nil, apperror.Validation("basis_percent must be a decimal string")
		}
		basis.Percent = percent
	}
	return basis, nil
}
