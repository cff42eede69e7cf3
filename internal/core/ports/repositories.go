package ports

import (
	"context"
	"time"

	"reward-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ActorRepository defines persistence operations for affiliate/referrer actors.
type ActorRepository interface {
	Create(ctx context.Context, actor *domain.Actor) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Actor, error)
	GetByCode(ctx context.Context, code string) (*domain.Actor, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Actor, error)
}

// WalletRepository defines persistence operations for wallets.
// Methods accepting pgx.Tx run inside transaction blocks so the wallet row
// stays locked for the whole triple write.
type WalletRepository interface {
	Create(ctx context.Context, tx pgx.Tx, wallet *domain.Wallet) error
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error)
	GetByUserIDForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*domain.Wallet, error)
	UpdateBalances(ctx context.Context, tx pgx.Tx, wallet *domain.Wallet) error
}

// LedgerRepository defines persistence for the append-only transaction log.
type LedgerRepository interface {
	Append(ctx context.Context, tx pgx.Tx, entry *domain.WalletTransaction) error
	ListByUser(ctx context.Context, params LedgerListParams) ([]domain.WalletTransaction, int64, error)
}

// LedgerListParams holds filter + pagination for transaction history.
type LedgerListParams struct {
	UserID   uuid.UUID
	Bucket   *domain.Bucket
	Page     int
	PageSize int
}

// CommissionRepository defines persistence for commission records.
type CommissionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, c *domain.Commission) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Commission, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Commission, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.CommissionStatus, confirmedAt *time.Time) error
	ListByActor(ctx context.Context, params CommissionListParams) ([]domain.Commission, int64, error)
	GetStats(ctx context.Context, actorID uuid.UUID) (*CommissionStats, error)
}

// CommissionListParams holds filter + pagination for commission listings.
type CommissionListParams struct {
	ActorID  uuid.UUID
	Status   *domain.CommissionStatus
	Page     int
	PageSize int
}

// CommissionStats holds per-actor earning aggregates for the dashboard.
type CommissionStats struct {
	TotalEarned    int64 `json:"total_earned"` // sum over pending + confirmed
	TotalConfirmed int64 `json:"total_confirmed"`
	TotalPending   int64 `json:"total_pending"`
	TotalReversed  int64 `json:"total_reversed"`
	Count          int64 `json:"count"`
}

// PayoutRepository defines persistence for payout requests.
type PayoutRepository interface {
	Create(ctx context.Context, p *domain.Payout) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Payout, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Payout, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.PayoutStatus, settlementRef, notes *string) error
	ListByActor(ctx context.Context, actorID uuid.UUID, page, pageSize int) ([]domain.Payout, int64, error)
}

// ClickRepository appends click records for reporting.
type ClickRepository interface {
	Create(ctx context.Context, click *domain.Click) error
	CountByActor(ctx context.Context, actorID uuid.UUID, since time.Time) (int64, error)
}

// ReferralRepository defines persistence for referral settings and transactions.
type ReferralRepository interface {
	// GetLatestSettings returns the most recent settings row plus the total
	// number of rows, so callers can warn when duplicates have crept in.
	GetLatestSettings(ctx context.Context) (*domain.ReferralSettings, int64, error)
	UpsertSettings(ctx context.Context, s *domain.ReferralSettings) error
	CreateTransaction(ctx context.Context, r *domain.ReferralTransaction) error
	CountByReferrerSince(ctx context.Context, referrerID uuid.UUID, since time.Time) (int64, error)
	CountByReferrerForReferee(ctx context.Context, referrerID, refereeID uuid.UUID) (int64, error)
	// HasPriorOrders reports whether the referee completed any order other
	// than the one under evaluation.
	HasPriorOrders(ctx context.Context, refereeID uuid.UUID, excludeOrderID string) (bool, error)
	ListBlocked(ctx context.Context, page, pageSize int) ([]domain.ReferralTransaction, int64, error)
}

// EventRepository is the durable half of order-event idempotency.
type EventRepository interface {
	Create(ctx context.Context, tx pgx.Tx, e *domain.ProcessedEvent) error
	Get(ctx context.Context, orderID string) (*domain.ProcessedEvent, error)
}

// AuditRepository persists admin action audit entries.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
	List(ctx context.Context, page, pageSize int) ([]domain.AuditLog, int64, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
