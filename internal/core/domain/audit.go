package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited admin action.
type AuditAction string

const (
	AuditActionConfirmCommission AuditAction = "CONFIRM_COMMISSION"
	AuditActionReverseCommission AuditAction = "REVERSE_COMMISSION"
	AuditActionProcessPayout     AuditAction = "PROCESS_PAYOUT"
	AuditActionAdjustWallet      AuditAction = "ADJUST_WALLET"
	AuditActionUpdateSettings    AuditAction = "UPDATE_SETTINGS"
	AuditActionCreateActor       AuditAction = "CREATE_ACTOR"
)

// AuditLog records a single audited admin action.
type AuditLog struct {
	ID           uuid.UUID   `json:"id"`
	AdminID      *uuid.UUID  `json:"admin_id,omitempty"`
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id,omitempty"`
	Details      string      `json:"details,omitempty"` // JSON string
	IPAddress    string      `json:"ip_address"`
	CreatedAt    time.Time   `json:"created_at"`
}
