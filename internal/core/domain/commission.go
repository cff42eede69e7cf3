package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BasisType selects how a commission is derived from an order line.
type BasisType string

const (
	BasisFixed      BasisType = "fixed"
	BasisPercentage BasisType = "percentage"
)

// CommissionBasis is the reward configuration of a product at order time.
// Fixed is in smallest currency units per unit sold. Percent applies to the
// line total; Cap, when set, bounds the final amount.
type CommissionBasis struct {
	Type    BasisType       `json:"type"`
	Fixed   int64           `json:"fixed,omitempty"`
	Percent decimal.Decimal `json:"percent,omitempty"`
	Cap     *int64          `json:"cap,omitempty"`
}

// CommissionStatus is the lifecycle state of an earned commission.
type CommissionStatus string

const (
	CommissionStatusPending   CommissionStatus = "pending"
	CommissionStatusConfirmed CommissionStatus = "confirmed"
	CommissionStatusCancelled CommissionStatus = "cancelled"
	CommissionStatusReversed  CommissionStatus = "reversed"
)

// Commission is one earned reward attributed to an actor for an order line.
// Everything except Status and ConfirmedAt is immutable after creation.
type Commission struct {
	ID          uuid.UUID        `json:"id"`
	ActorID     uuid.UUID        `json:"actor_id"` // user earning the reward
	OrderID     string           `json:"order_id"`
	ProductID   string           `json:"product_id"`
	Basis       CommissionBasis  `json:"basis"`
	Amount      int64            `json:"amount"`
	Status      CommissionStatus `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	ConfirmedAt *time.Time       `json:"confirmed_at,omitempty"`
}

// IsTerminal reports whether no further transition is allowed.
func (c *Commission) IsTerminal() bool {
	return c.Status == CommissionStatusCancelled || c.Status == CommissionStatusReversed
}

// CanConfirm reports whether Confirm is a legal transition.
// Confirming only changes payout eligibility; the wallet was credited at creation.
func (c *Commission) CanConfirm() bool {
	return c.Status == CommissionStatusPending
}

// CanReverse reports whether Reverse is a legal transition. A reversal
// performs a compensating debit for the original amount.
func (c *Commission) CanReverse() bool {
	return c.Status == CommissionStatusPending || c.Status == CommissionStatusConfirmed
}
