package ports

import (
	"context"
	"time"

	"reward-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// --- Infrastructure ports ---

// SessionStore holds attribution sessions under their TTL. Consume removes the
// session atomically so a session id can only ever resolve once.
type SessionStore interface {
	Put(ctx context.Context, s *domain.AttributionSession, ttl time.Duration) error
	// Consume returns nil, nil when the session is absent or already consumed.
	Consume(ctx context.Context, sessionID string) (*domain.AttributionSession, error)
}

// EventCache is the Redis-layer idempotency check for order events (fast path).
type EventCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // cached response JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// TokenService validates admin bearer tokens issued by the identity system.
type TokenService interface {
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	AdminID uuid.UUID
	Role    string
}

// SignatureService signs and verifies outbound payloads so the messaging
// subsystem can authenticate them.
type SignatureService interface {
	Sign(secretKey string, payload string) string
	Verify(secretKey string, payload string, signature string) bool
}

// Notifier fires user-facing notifications at the excluded messaging
// subsystem. Delivery failure never rolls back the mutation that triggered it.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Notification carries what the messaging subsystem needs to render a message.
type Notification struct {
	Event   string    // commission_confirmed, payout_completed
	ActorID uuid.UUID
	Amount  int64
	Reason  string
}

// Notification event names.
const (
	EventCommissionConfirmed = "commission_confirmed"
	EventPayoutCompleted     = "payout_completed"
)

// --- Service ports (business logic) ---

// LedgerService owns every wallet mutation: balance update, derived-total
// recompute and log append as one atomic unit.
type LedgerService interface {
	Mutate(ctx context.Context, req MutationRequest) (*MutationResult, error)
	// MutateInTx applies the same triple write inside a caller-owned
	// transaction so a state change and its ledger movement commit together.
	MutateInTx(ctx context.Context, tx pgx.Tx, req MutationRequest) (*MutationResult, error)
	GetWallet(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error)
	History(ctx context.Context, params LedgerListParams) ([]domain.WalletTransaction, int64, error)
}

// MutationRequest holds validated input for a ledger mutation.
type MutationRequest struct {
	UserID    uuid.UUID
	Bucket    domain.Bucket
	Direction domain.Direction
	Amount    int64
	Reason    string
	AdminID   *uuid.UUID // set when an administrator adjusts manually
}

// MutationResult reports the balance movement for caller confirmation.
type MutationResult struct {
	OldBalance int64
	NewBalance int64
	Total      int64 // recomputed total_redeemable_amount
	Entry      *domain.WalletTransaction
}

// AttributionService tracks referral clicks and resolves sessions at order time.
type AttributionService interface {
	Track(ctx context.Context, req TrackRequest) (*domain.AttributionSession, error)
	// Resolve consumes the session. Expired and absent sessions return typed
	// errors the order flow treats as "proceed without attribution".
	Resolve(ctx context.Context, sessionID string) (*domain.AttributionSession, error)
}

// TrackRequest holds input for click tracking.
type TrackRequest struct {
	Code        string
	ProductID   string
	ReferrerURL string
	DeviceClass string
	Campaign    string
}

// OrderService ingests order completion events: resolves attribution, computes
// and credits commissions, and runs referral policy. Idempotent by order id.
type OrderService interface {
	ProcessOrderEvent(ctx context.Context, event OrderEvent) (*OrderResult, error)
}

// OrderEvent is the payload received from checkout when an order completes.
type OrderEvent struct {
	OrderID   string
	BuyerID   uuid.UUID
	ActorCode *string // direct code attribution, when no session exists
	SessionID *string // click-session attribution
	Lines     []OrderLine
}

// OrderLine is one purchased line plus the product's reward configuration as
// resolved by checkout. Lines without a basis earn nothing.
type OrderLine struct {
	ProductID string
	UnitPrice int64
	Quantity  int64
	Basis     *domain.CommissionBasis
}

// OrderResult summarises what the event produced.
type OrderResult struct {
	OrderID     string                      `json:"order_id"`
	Attributed  bool                        `json:"attributed"`
	Commissions []domain.Commission         `json:"commissions,omitempty"`
	Referral    *domain.ReferralTransaction `json:"referral,omitempty"`
}

// CommissionService owns the commission lifecycle after creation.
type CommissionService interface {
	Confirm(ctx context.Context, id uuid.UUID, adminID uuid.UUID) (*domain.Commission, error)
	Reverse(ctx context.Context, id uuid.UUID, reason string, adminID uuid.UUID) (*domain.Commission, error)
	ListByActor(ctx context.Context, params CommissionListParams) ([]domain.Commission, int64, error)
	Stats(ctx context.Context, actorID uuid.UUID) (*CommissionStats, error)
}

// PayoutService owns the payout request lifecycle.
type PayoutService interface {
	Request(ctx context.Context, actorID uuid.UUID, amount int64, method string) (*domain.Payout, error)
	Process(ctx context.Context, req PayoutProcessRequest) (*domain.Payout, error)
	ListByActor(ctx context.Context, actorID uuid.UUID, page, pageSize int) ([]domain.Payout, int64, error)
}

// PayoutProcessRequest is an admin transition on a payout.
type PayoutProcessRequest struct {
	PayoutID      uuid.UUID
	Target        domain.PayoutStatus
	SettlementRef *string
	Notes         *string
	AdminID       uuid.UUID
}

// ReferralService validates settings and evaluates referral transactions.
type ReferralService interface {
	GetSettings(ctx context.Context) (*domain.ReferralSettings, error)
	UpdateSettings(ctx context.Context, s *domain.ReferralSettings) (*domain.ReferralSettings, error)
	// Evaluate persists the referral either way: allowed, or blocked with
	// accumulated fraud flags for manual review.
	Evaluate(ctx context.Context, e ReferralEvaluation) (*domain.ReferralTransaction, error)
}

// ReferralEvaluation holds one referral transaction to be checked.
type ReferralEvaluation struct {
	ReferrerID uuid.UUID
	RefereeID  uuid.UUID
	OrderID    string
	OrderValue int64
}

// AuditService records admin actions asynchronously.
type AuditService interface {
	Record(ctx context.Context, log *domain.AuditLog)
}
