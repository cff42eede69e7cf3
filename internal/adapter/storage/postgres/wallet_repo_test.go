package postgres

import (
	"context"
	"testing"
	"time"

	"reward-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWallet(userID uuid.UUID) *domain.Wallet {
	now := time.Now()
	return &domain.Wallet{
		ID:                 uuid.New(),
		UserID:             userID,
		LoyaltyCoins:       5,
		AffiliateEarnings:  300,
		RefundCredits:      0,
		PromotionalCredits: 100,
		ReferralRewards:    2,
		TotalRedeemable:    470,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

func walletRows(w *domain.Wallet) *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "user_id", "loyalty_coins", "affiliate_earnings", "refund_credits",
		"promotional_credits", "referral_rewards", "total_redeemable", "created_at", "updated_at",
	}).AddRow(
		w.ID, w.UserID, w.LoyaltyCoins, w.AffiliateEarnings, w.RefundCredits,
		w.PromotionalCredits, w.ReferralRewards, w.TotalRedeemable, w.CreatedAt, w.UpdatedAt,
	)
}

func TestWalletRepo_Create(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewWalletRepo(mockPool)
	w := newTestWallet(uuid.New())

	mockPool.ExpectBegin()
	mockPool.ExpectExec("INSERT INTO wallets").
		WithArgs(
			w.ID, w.UserID, w.LoyaltyCoins, w.AffiliateEarnings, w.RefundCredits,
			w.PromotionalCredits, w.ReferralRewards, w.TotalRedeemable,
			w.CreatedAt, w.UpdatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mockPool.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), tx, w)
	assert.NoError(t, err)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestWalletRepo_GetByUserID(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewWalletRepo(mockPool)
	userID := uuid.New()
	w := newTestWallet(userID)

	mockPool.ExpectQuery("SELECT .+ FROM wallets WHERE user_id").
		WithArgs(userID).
		WillReturnRows(walletRows(w))

	got, err := repo.GetByUserID(context.Background(), userID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, w.ID, got.ID)
	assert.Equal(t, int64(300), got.AffiliateEarnings)
	assert.Equal(t, int64(470), got.TotalRedeemable)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestWalletRepo_GetByUserID_NotFound(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewWalletRepo(mockPool)
	userID := uuid.New()

	mockPool.ExpectQuery("SELECT .+ FROM wallets WHERE user_id").
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	got, err := repo.GetByUserID(context.Background(), userID)
	assert.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestWalletRepo_GetByUserIDForUpdate(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewWalletRepo(mockPool)
	userID := uuid.New()
	w := newTestWallet(userID)

	mockPool.ExpectBegin()
	mockPool.ExpectQuery("SELECT .+ FROM wallets WHERE user_id = \\$1 FOR UPDATE").
		WithArgs(userID).
		WillReturnRows(walletRows(w))

	tx, err := mockPool.Begin(context.Background())
	require.NoError(t, err)

	got, err := repo.GetByUserIDForUpdate(context.Background(), tx, userID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, w.UserID, got.UserID)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestWalletRepo_UpdateBalances(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewWalletRepo(mockPool)
	w := newTestWallet(uuid.New())
	w.AffiliateEarnings = 250
	w.TotalRedeemable = 420

	mockPool.ExpectBegin()
	mockPool.ExpectExec("UPDATE wallets SET").
		WithArgs(
			w.LoyaltyCoins, w.AffiliateEarnings, w.RefundCredits,
			w.PromotionalCredits, w.ReferralRewards, w.TotalRedeemable,
			w.UpdatedAt, w.ID,
		).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mockPool.Begin(context.Background())
	require.NoError(t, err)

	err = repo.UpdateBalances(context.Background(), tx, w)
	assert.NoError(t, err)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestWalletRepo_UpdateBalances_NotFound(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewWalletRepo(mockPool)
	w := newTestWallet(uuid.New())

	mockPool.ExpectBegin()
	mockPool.ExpectExec("UPDATE wallets SET").
		WithArgs(
			w.LoyaltyCoins, w.AffiliateEarnings, w.RefundCredits,
			w.PromotionalCredits, w.ReferralRewards, w.TotalRedeemable,
			w.UpdatedAt, w.ID,
		).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	tx, err := mockPool.Begin(context.Background())
	require.NoError(t, err)

	err = repo.UpdateBalances(context.Background(), tx, w)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "wallet not found")
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
