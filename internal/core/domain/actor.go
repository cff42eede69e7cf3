package domain

import (
	"time"

	"github.com/google/uuid"
)

// ActorStatus represents the state of an affiliate/referrer account.
type ActorStatus string

const (
	ActorStatusActive    ActorStatus = "active"
	ActorStatusSuspended ActorStatus = "suspended"
)

// Actor is a user enrolled to earn rewards: an affiliate or referrer owning a
// shareable code. The account/identity side lives in the excluded auth system;
// only the attribution-relevant slice is modeled here.
type Actor struct {
	ID        uuid.UUID   `json:"id"`
	UserID    uuid.UUID   `json:"user_id"`
	Code      string      `json:"code"` // shareable referral/affiliate code
	Name      string      `json:"name"`
	Status    ActorStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// IsActive reports whether the actor may receive new attributions.
func (a *Actor) IsActive() bool {
	return a.Status == ActorStatusActive
}
