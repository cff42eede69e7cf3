package postgres

import (
	"context"
	"errors"
	"fmt"

	"reward-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

const walletColumns = `id, user_id, loyalty_coins, affiliate_earnings, refund_credits,
		promotional_credits, referral_rewards, total_redeemable, created_at, updated_at`

// Create inserts a new wallet within a database transaction. Wallets are
// created lazily on first credit, so the insert races with concurrent credits;
// the unique index on user_id turns the race into a retryable conflict.
func (r *WalletRepo) Create(ctx context.Context, tx pgx.Tx, w *domain.Wallet) error {
	query := `INSERT INTO wallets (id, user_id, loyalty_coins, affiliate_earnings, refund_credits,
		promotional_credits, referral_rewards, total_redeemable, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := tx.Exec(ctx, query,
		w.ID, w.UserID, w.LoyaltyCoins, w.AffiliateEarnings, w.RefundCredits,
		w.PromotionalCredits, w.ReferralRewards, w.TotalRedeemable,
		w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

// GetByUserID fetches a wallet by user ID (non-locking read).
func (r *WalletRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	query := fmt.Sprintf(`SELECT %s FROM wallets WHERE user_id = $1`, walletColumns)
	return r.scanWallet(r.pool.QueryRow(ctx, query, userID))
}

// GetByUserIDForUpdate fetches a wallet by user ID with pessimistic locking.
// This MUST be called within a transaction.
func (r *WalletRepo) GetByUserIDForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*domain.Wallet, error) {
	query := fmt.Sprintf(`SELECT %s FROM wallets WHERE user_id = $1 FOR UPDATE`, walletColumns)
	return r.scanWallet(tx.QueryRow(ctx, query, userID))
}

// UpdateBalances writes all bucket balances plus the derived total within a
// database transaction.
func (r *WalletRepo) UpdateBalances(ctx context.Context, tx pgx.Tx, w *domain.Wallet) error {
	query := `UPDATE wallets SET loyalty_coins = $1, affiliate_earnings = $2, refund_credits = $3,
		promotional_credits = $4, referral_rewards = $5, total_redeemable = $6, updated_at = $7
		WHERE id = $8`

	tag, err := tx.Exec(ctx, query,
		w.LoyaltyCoins, w.AffiliateEarnings, w.RefundCredits,
		w.PromotionalCredits, w.ReferralRewards, w.TotalRedeemable,
		w.UpdatedAt, w.ID,
	)
	if err != nil {
		return fmt.Errorf("update wallet balances: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("wallet not found: %s", w.ID)
	}
	return nil
}

// scanWallet is a helper to scan a single row into a Wallet.
func (r *WalletRepo) scanWallet(row pgx.Row) (*domain.Wallet, error) {
	w := &domain.Wallet{}
	err := row.Scan(
		&w.ID, &w.UserID, &w.LoyaltyCoins, &w.AffiliateEarnings, &w.RefundCredits,
		&w.PromotionalCredits, &w.ReferralRewards, &w.TotalRedeemable,
		&w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan wallet: %w", err)
	}
	return w, nil
}
