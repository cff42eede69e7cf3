package domain

import (
	"time"

	"github.com/google/uuid"
)

// PayoutStatus is the lifecycle state of a withdrawal request.
type PayoutStatus string

const (
	PayoutStatusPending    PayoutStatus = "pending"
	PayoutStatusProcessing PayoutStatus = "processing"
	PayoutStatusCompleted  PayoutStatus = "completed"
	PayoutStatusFailed     PayoutStatus = "failed"
)

// Payout is a withdrawal request over confirmed earnings. Funds stay visible
// in the wallet until settlement: the debit happens only on completion.
type Payout struct {
	ID            uuid.UUID    `json:"id"`
	ActorID       uuid.UUID    `json:"actor_id"`
	Amount        int64        `json:"amount"`
	Method        string       `json:"method"` // e.g. bank_transfer, upi
	Status        PayoutStatus `json:"status"`
	SettlementRef *string      `json:"settlement_ref,omitempty"`
	Notes         *string      `json:"notes,omitempty"`
	RequestedAt   time.Time    `json:"requested_at"`
	ProcessedAt   *time.Time   `json:"processed_at,omitempty"`
}

// IsTerminal reports whether the payout reached a final state.
func (p *Payout) IsTerminal() bool {
	return p.Status == PayoutStatusCompleted || p.Status == PayoutStatusFailed
}

// CanTransition reports whether moving to target is legal. The machine is
// strictly pending -> processing -> completed | failed; only the completion
// step debits the wallet, so it must never apply twice.
func (p *Payout) CanTransition(target PayoutStatus) bool {
	switch p.Status {
	case PayoutStatusPending:
		return target == PayoutStatusProcessing
	case PayoutStatusProcessing:
		return target == PayoutStatusCompleted || target == PayoutStatusFailed
	default:
		return false
	}
}
