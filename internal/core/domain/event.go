package domain

import (
	"time"

	"github.com/google/uuid"
)

// ProcessedEvent guards order-event ingestion against double-processing: a
// completed order credits wallets exactly once regardless of redelivery. The
// buyer id doubles as the order history used by first-order referral checks.
type ProcessedEvent struct {
	OrderID      string    `json:"order_id"`
	BuyerID      uuid.UUID `json:"buyer_id"`
	ResponseJSON []byte    `json:"response_json"` // cached result returned on replay
	CreatedAt    time.Time `json:"created_at"`
}

// BuildEventKey constructs the idempotency key for an order completion event.
func BuildEventKey(orderID string) string {
	return "order:" + orderID
}
