package domain

import (
	"time"

	"github.com/google/uuid"
)

// WalletTransaction is an immutable ledger row recording one bucket mutation,
// with the balance before and after. Rows are appended in the same database
// transaction as the balance write and never updated or deleted.
type WalletTransaction struct {
	ID         uuid.UUID  `json:"id"`
	WalletID   uuid.UUID  `json:"wallet_id"`
	UserID     uuid.UUID  `json:"user_id"`
	Bucket     Bucket     `json:"bucket"`
	Direction  Direction  `json:"direction"`
	Amount     int64      `json:"amount"`
	OldBalance int64      `json:"old_balance"`
	NewBalance int64      `json:"new_balance"`
	Reason     string     `json:"reason"`
	AdminID    *uuid.UUID `json:"admin_id,omitempty"` // set for manual adjustments
	CreatedAt  time.Time  `json:"created_at"`
}
