package postgres

import (
	"context"
	"testing"
	"time"

	"reward-ledger/internal/core/domain"
	"reward-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEntry(userID uuid.UUID) *domain.WalletTransaction {
	return &domain.WalletTransaction{
		ID:         uuid.New(),
		WalletID:   uuid.New(),
		UserID:     userID,
		Bucket:     domain.BucketAffiliateEarnings,
		Direction:  domain.DirectionCredit,
		Amount:     50,
		OldBalance: 100,
		NewBalance: 150,
		Reason:     "Commission for order ORD-1001, product SKU-7",
		CreatedAt:  time.Now(),
	}
}

func ledgerColumns() []string {
	return []string{
		"id", "wallet_id", "user_id", "bucket", "direction", "amount",
		"old_balance", "new_balance", "reason", "admin_id", "created_at",
	}
}

func TestLedgerRepo_Append(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewLedgerRepo(mockPool)
	entry := newTestEntry(uuid.New())

	mockPool.ExpectBegin()
	mockPool.ExpectExec("INSERT INTO wallet_transactions").
		WithArgs(
			entry.ID, entry.WalletID, entry.UserID, entry.Bucket, entry.Direction,
			entry.Amount, entry.OldBalance, entry.NewBalance, entry.Reason,
			entry.AdminID, entry.CreatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mockPool.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Append(context.Background(), tx, entry)
	assert.NoError(t, err)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestLedgerRepo_ListByUser(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewLedgerRepo(mockPool)
	userID := uuid.New()
	entry := newTestEntry(userID)

	mockPool.ExpectQuery("SELECT COUNT\\(\\*\\) FROM wallet_transactions").
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(42)))
	mockPool.ExpectQuery("SELECT .+ FROM wallet_transactions .+ ORDER BY created_at DESC").
		WithArgs(userID, 20, 0).
		WillReturnRows(pgxmock.NewRows(ledgerColumns()).AddRow(
			entry.ID, entry.WalletID, entry.UserID, entry.Bucket, entry.Direction,
			entry.Amount, entry.OldBalance, entry.NewBalance, entry.Reason,
			entry.AdminID, entry.CreatedAt,
		))

	entries, total, err := repo.ListByUser(context.Background(), ports.LedgerListParams{
		UserID:   userID,
		Page:     1,
		PageSize: 20,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), total)
	require.Len(t, entries, 1)
	assert.Equal(t, entry.ID, entries[0].ID)
	assert.Equal(t, int64(150), entries[0].NewBalance)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestLedgerRepo_ListByUser_BucketFilter(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewLedgerRepo(mockPool)
	userID := uuid.New()
	bucket := domain.BucketLoyaltyCoins

	mockPool.ExpectQuery("SELECT COUNT\\(\\*\\) FROM wallet_transactions WHERE user_id = \\$1 AND bucket = \\$2").
		WithArgs(userID, bucket).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(0)))
	mockPool.ExpectQuery("SELECT .+ FROM wallet_transactions WHERE user_id = \\$1 AND bucket = \\$2").
		WithArgs(userID, bucket, 10, 10).
		WillReturnRows(pgxmock.NewRows(ledgerColumns()))

	entries, total, err := repo.ListByUser(context.Background(), ports.LedgerListParams{
		UserID:   userID,
		Bucket:   &bucket,
		Page:     2,
		PageSize: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
	assert.Empty(t, entries)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
