package service

import (
	"reward-ledger/internal/core/domain"
	"reward-ledger/pkg/apperror"

	"github.com/shopspring/decimal"
)

var oneHundred = decimal.NewFromInt(100)

// ComputeCommission derives the reward amount for one order line.
// Fixed basis: fixed * quantity. Percentage basis: unitPrice * quantity * P/100,
// bounded by the cap when one is set. Rounding is half-up, applied once on the
// final amount, never on intermediate unit calculations.
func ComputeCommission(basis domain.CommissionBasis, unitPrice, quantity int64) (int64, error) {
	if unitPrice < 0 {
		return 0, apperror.Validation("unit_price must not be negative")
	}
	if quantity <= 0 {
		return 0, apperror.Validation("quantity must be positive")
	}

	switch basis.Type {
	case domain.BasisFixed:
		if basis.Fixed < 0 {
			return 0, apperror.Validation("fixed commission must not be negative")
		}
		return basis.Fixed * quantity, nil

	case domain.BasisPercentage:
		if basis.Percent.IsNegative() {
			return 0, apperror.Validation("commission percent must not be negative")
		}
		if basis.Cap != nil && *basis.Cap < 0 {
			return 0, apperror.Validation("commission cap must not be negative")
		}

		lineTotal := decimal.NewFromInt(unitPrice).Mul(decimal.NewFromInt(quantity))
		raw := lineTotal.Mul(basis.Percent).Div(oneHundred)

		if basis.Cap != nil {
			cap := decimal.NewFromInt(*basis.Cap)
			if raw.GreaterThan(cap) {
				raw = cap
			}
		}

		// Round half away from zero; inputs are non-negative so this is half-up.
		return raw.Round(0).IntPart(), nil

	default:
		return 0, apperror.Validation("unknown commission basis type")
	}
}
