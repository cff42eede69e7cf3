package postgres

import (
	"context"
	"fmt"

	"reward-ledger/internal/core/domain"
	"reward-ledger/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

// LedgerRepo implements ports.LedgerRepository.
type LedgerRepo struct {
	pool Pool
}

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(pool Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

// Append inserts a ledger entry within a database transaction. Entries are
// immutable once written; corrections happen through new composing entries.
func (r *LedgerRepo) Append(ctx context.Context, tx pgx.Tx, t *domain.WalletTransaction) error {
	query := `INSERT INTO wallet_transactions (id, wallet_id, user_id, bucket, direction, amount,
		old_balance, new_balance, reason, admin_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := tx.Exec(ctx, query,
		t.ID, t.WalletID, t.UserID, t.Bucket, t.Direction, t.Amount,
		t.OldBalance, t.NewBalance, t.Reason, t.AdminID, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert wallet transaction: %w", err)
	}
	return nil
}

// ListByUser returns a page of ledger entries for a user, newest first,
// optionally filtered by bucket, together with the total match count.
func (r *LedgerRepo) ListByUser(ctx context.Context, params ports.LedgerListParams) ([]domain.WalletTransaction, int64, error) {
	where := `WHERE user_id = $1`
	args := []any{params.UserID}
	if params.Bucket != nil {
		where += ` AND bucket = $2`
		args = append(args, *params.Bucket)
	}

	var total int64
	countQuery := `SELECT COUNT(*) FROM wallet_transactions ` + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count wallet transactions: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	query := fmt.Sprintf(`SELECT id, wallet_id, user_id, bucket, direction, amount,
		old_balance, new_balance, reason, admin_id, created_at
		FROM wallet_transactions %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	args = append(args, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query wallet transactions: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.WalletTransaction, 0, params.PageSize)
	for rows.Next() {
		var t domain.WalletTransaction
		err := rows.Scan(
			&t.ID, &t.WalletID, &t.UserID, &t.Bucket, &t.Direction, &t.Amount,
			&t.OldBalance, &t.NewBalance, &t.Reason, &t.AdminID, &t.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan wallet transaction: %w", err)
		}
		entries = append(entries, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate wallet transactions: %w", err)
	}
	return entries, total, nil
}
