package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reward-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ReferralRepo implements ports.ReferralRepository.
type ReferralRepo struct {
	pool Pool
}

// NewReferralRepo creates a new ReferralRepo.
func NewReferralRepo(pool Pool) *ReferralRepo {
	return &ReferralRepo{pool: pool}
}

// GetLatestSettings returns the most recently updated settings row plus the
// total row count. The table is meant to hold a single row, but nothing
// enforces that; callers log a warning when count > 1.
func (r *ReferralRepo) GetLatestSettings(ctx context.Context) (*domain.ReferralSettings, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM referral_settings`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count referral settings: %w", err)
	}

	query := `SELECT id, enabled, referrer_reward_coins, referee_reward_amount, min_order_value,
		per_user_limit, daily_limit, monthly_limit, allow_self_referral, first_order_only, updated_at
		FROM referral_settings ORDER BY updated_at DESC LIMIT 1`

	s := &domain.ReferralSettings{}
	err := r.pool.QueryRow(ctx, query).Scan(
		&s.ID, &s.Enabled, &s.ReferrerRewardCoins, &s.RefereeRewardAmount, &s.MinOrderValue,
		&s.PerUserLimit, &s.DailyLimit, &s.MonthlyLimit, &s.AllowSelfReferral, &s.FirstOrderOnly,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("scan referral settings: %w", err)
	}
	return s, total, nil
}

// UpsertSettings inserts or replaces the settings row keyed by id.
func (r *ReferralRepo) UpsertSettings(ctx context.Context, s *domain.ReferralSettings) error {
	query := `INSERT INTO referral_settings (id, enabled, referrer_reward_coins, referee_reward_amount,
		min_order_value, per_user_limit, daily_limit, monthly_limit, allow_self_referral,
		first_order_only, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			enabled = EXCLUDED.enabled,
			referrer_reward_coins = EXCLUDED.referrer_reward_coins,
			referee_reward_amount = EXCLUDED.referee_reward_amount,
			min_order_value = EXCLUDED.min_order_value,
			per_user_limit = EXCLUDED.per_user_limit,
			daily_limit = EXCLUDED.daily_limit,
			monthly_limit = EXCLUDED.monthly_limit,
			allow_self_referral = EXCLUDED.allow_self_referral,
			first_order_only = EXCLUDED.first_order_only,
			updated_at = EXCLUDED.updated_at`

	_, err := r.pool.Exec(ctx, query,
		s.ID, s.Enabled, s.ReferrerRewardCoins, s.RefereeRewardAmount, s.MinOrderValue,
		s.PerUserLimit, s.DailyLimit, s.MonthlyLimit, s.AllowSelfReferral, s.FirstOrderOnly,
		s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert referral settings: %w", err)
	}
	return nil
}

// CreateTransaction records the outcome of a referral evaluation, allowed or
// blocked, with the fraud flags that applied.
func (r *ReferralRepo) CreateTransaction(ctx context.Context, t *domain.ReferralTransaction) error {
	query := `INSERT INTO referral_transactions (id, referrer_id, referee_id, order_id, order_value,
		status, fraud_flags, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		t.ID, t.ReferrerID, t.RefereeID, t.OrderID, t.OrderValue,
		t.Status, t.FraudFlags, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert referral transaction: %w", err)
	}
	return nil
}

// CountByReferrerSince counts allowed referrals for a referrer since the
// cutoff. Blocked attempts do not consume the rate limits.
func (r *ReferralRepo) CountByReferrerSince(ctx context.Context, referrerID uuid.UUID, since time.Time) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM referral_transactions
		WHERE referrer_id = $1 AND status = 'allowed' AND created_at >= $2`
	if err := r.pool.QueryRow(ctx, query, referrerID, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("count referrals since: %w", err)
	}
	return count, nil
}

// CountByReferrerForReferee counts allowed referrals between a specific
// referrer/referee pair, for the per-user cap.
func (r *ReferralRepo) CountByReferrerForReferee(ctx context.Context, referrerID, refereeID uuid.UUID) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM referral_transactions
		WHERE referrer_id = $1 AND referee_id = $2 AND status = 'allowed'`
	if err := r.pool.QueryRow(ctx, query, referrerID, refereeID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count referrals for referee: %w", err)
	}
	return count, nil
}

// HasPriorOrders reports whether the referee completed any order other than
// the one under evaluation, using the processed-events table as the order
// history.
func (r *ReferralRepo) HasPriorOrders(ctx context.Context, refereeID uuid.UUID, excludeOrderID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM processed_events WHERE buyer_id = $1 AND order_id <> $2)`
	if err := r.pool.QueryRow(ctx, query, refereeID, excludeOrderID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check prior orders: %w", err)
	}
	return exists, nil
}

// ListBlocked returns a page of blocked referral transactions, newest first,
// for the admin fraud review screen.
func (r *ReferralRepo) ListBlocked(ctx context.Context, page, pageSize int) ([]domain.ReferralTransaction, int64, error) {
	var total int64
	countQuery := `SELECT COUNT(*) FROM referral_transactions WHERE status = 'blocked'`
	if err := r.pool.QueryRow(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count blocked referrals: %w", err)
	}

	offset := (page - 1) * pageSize
	query := `SELECT id, referrer_id, referee_id, order_id, order_value, status, fraud_flags, created_at
		FROM referral_transactions WHERE status = 'blocked'
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, pageSize, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query blocked referrals: %w", err)
	}
	defer rows.Close()

	transactions := make([]domain.ReferralTransaction, 0, pageSize)
	for rows.Next() {
		var t domain.ReferralTransaction
		err := rows.Scan(
			&t.ID, &t.ReferrerID, &t.RefereeID, &t.OrderID, &t.OrderValue,
			&t.Status, &t.FraudFlags, &t.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan referral transaction: %w", err)
		}
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate referral transactions: %w", err)
	}
	return transactions, total, nil
}
