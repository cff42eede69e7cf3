package postgres

import (
	"context"
	"errors"
	"fmt"

	"reward-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PayoutRepo implements ports.PayoutRepository.
type PayoutRepo struct {
	pool Pool
}

// NewPayoutRepo creates a new PayoutRepo.
func NewPayoutRepo(pool Pool) *PayoutRepo {
	return &PayoutRepo{pool: pool}
}

const payoutColumns = `id, actor_id, amount, method, status, settlement_ref, notes,
		requested_at, processed_at`

// Create inserts a new payout request.
func (r *PayoutRepo) Create(ctx context.Context, p *domain.Payout) error {
	query := `INSERT INTO payouts (id, actor_id, amount, method, status, settlement_ref, notes,
		requested_at, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, query,
		p.ID, p.ActorID, p.Amount, p.Method, p.Status,
		p.SettlementRef, p.Notes, p.RequestedAt, p.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payout: %w", err)
	}
	return nil
}

// GetByID fetches a payout by ID (non-locking read).
func (r *PayoutRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payout, error) {
	query := fmt.Sprintf(`SELECT %s FROM payouts WHERE id = $1`, payoutColumns)
	return scanPayout(r.pool.QueryRow(ctx, query, id))
}

// GetByIDForUpdate fetches a payout by ID with pessimistic locking so
// concurrent admin decisions serialize. MUST be called within a transaction.
func (r *PayoutRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Payout, error) {
	query := fmt.Sprintf(`SELECT %s FROM payouts WHERE id = $1 FOR UPDATE`, payoutColumns)
	return scanPayout(tx.QueryRow(ctx, query, id))
}

// UpdateStatus moves a payout to a new lifecycle state within a database
// transaction, stamping processed_at and recording the settlement reference
// and notes when provided.
func (r *PayoutRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.PayoutStatus, settlementRef, notes *string) error {
	query := `UPDATE payouts SET status = $1, settlement_ref = COALESCE($2, settlement_ref),
		notes = COALESCE($3, notes), processed_at = NOW()
		WHERE id = $4`

	tag, err := tx.Exec(ctx, query, status, settlementRef, notes, id)
	if err != nil {
		return fmt.Errorf("update payout status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("payout not found: %s", id)
	}
	return nil
}

// ListByActor returns a page of an actor's payouts, newest first, together
// with the total count.
func (r *PayoutRepo) ListByActor(ctx context.Context, actorID uuid.UUID, page, pageSize int) ([]domain.Payout, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM payouts WHERE actor_id = $1`, actorID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count payouts: %w", err)
	}

	offset := (page - 1) * pageSize
	query := fmt.Sprintf(`SELECT %s FROM payouts WHERE actor_id = $1
		ORDER BY requested_at DESC
		LIMIT $2 OFFSET $3`, payoutColumns)

	rows, err := r.pool.Query(ctx, query, actorID, pageSize, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query payouts: %w", err)
	}
	defer rows.Close()

	payouts := make([]domain.Payout, 0, pageSize)
	for rows.Next() {
		var p domain.Payout
		err := rows.Scan(
			&p.ID, &p.ActorID, &p.Amount, &p.Method, &p.Status,
			&p.SettlementRef, &p.Notes, &p.RequestedAt, &p.ProcessedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan payout: %w", err)
		}
		payouts = append(payouts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate payouts: %w", err)
	}
	return payouts, total, nil
}

func scanPayout(row pgx.Row) (*domain.Payout, error) {
	p := &domain.Payout{}
	err := row.Scan(
		&p.ID, &p.ActorID, &p.Amount, &p.Method, &p.Status,
		&p.SettlementRef, &p.Notes, &p.RequestedAt, &p.ProcessedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan payout: %w", err)
	}
	return p, nil
}
