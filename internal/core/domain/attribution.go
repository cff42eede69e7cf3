package domain

import (
	"time"

	"github.com/google/uuid"
)

// SessionTTL is the fixed validity window of an attribution session.
const SessionTTL = 30 * 24 * time.Hour

// AttributionSession links a tracked click to a future order. Sessions live in
// the session store under their TTL and are consumed exactly once on
// resolution; expired or absent sessions are inert.
type AttributionSession struct {
	SessionID string    `json:"session_id"`
	Code      string    `json:"code"`
	ActorID   uuid.UUID `json:"actor_id"`
	ProductID string    `json:"product_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ExpiresAt returns the instant the session becomes inert.
func (s *AttributionSession) ExpiresAt() time.Time {
	return s.CreatedAt.Add(SessionTTL)
}

// Expired reports whether the session has passed its validity window.
func (s *AttributionSession) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt())
}

// Click is an append-only record of a tracked referral visit, kept for
// reporting only. Ledger outcomes never read clicks back.
type Click struct {
	ID          uuid.UUID `json:"id"`
	SessionID   string    `json:"session_id"`
	Code        string    `json:"code"`
	ActorID     uuid.UUID `json:"actor_id"`
	ProductID   string    `json:"product_id"`
	ReferrerURL string    `json:"referrer_url,omitempty"`
	DeviceClass string    `json:"device_class,omitempty"` // mobile, desktop, tablet
	Campaign    string    `json:"campaign,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
