package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reward-ledger/internal/core/domain"
	"reward-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CommissionRepo implements ports.CommissionRepository.
type CommissionRepo struct {
	pool Pool
}

// NewCommissionRepo creates a new CommissionRepo.
func NewCommissionRepo(pool Pool) *CommissionRepo {
	return &CommissionRepo{pool: pool}
}

const commissionColumns = `id, actor_id, order_id, product_id, basis_type, basis_fixed,
		basis_percent, basis_cap, amount, status, created_at, confirmed_at`

// Create inserts a new commission within a database transaction, flattening
// the basis into dedicated columns so reversals can replay the calculation.
func (r *CommissionRepo) Create(ctx context.Context, tx pgx.Tx, c *domain.Commission) error {
	query := `INSERT INTO commissions (id, actor_id, order_id, product_id, basis_type, basis_fixed,
		basis_percent, basis_cap, amount, status, created_at, confirmed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := tx.Exec(ctx, query,
		c.ID, c.ActorID, c.OrderID, c.ProductID,
		c.Basis.Type, c.Basis.Fixed, c.Basis.Percent, c.Basis.Cap,
		c.Amount, c.Status, c.CreatedAt, c.ConfirmedAt,
	)
	if err != nil {
		return fmt.Errorf("insert commission: %w", err)
	}
	return nil
}

// GetByID fetches a commission by ID (non-locking read).
func (r *CommissionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Commission, error) {
	query := fmt.Sprintf(`SELECT %s FROM commissions WHERE id = $1`, commissionColumns)
	return scanCommission(r.pool.QueryRow(ctx, query, id))
}

// GetByIDForUpdate fetches a commission by ID with pessimistic locking so
// concurrent confirm/reverse calls serialize on the row. MUST be called
// within a transaction.
func (r *CommissionRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Commission, error) {
	query := fmt.Sprintf(`SELECT %s FROM commissions WHERE id = $1 FOR UPDATE`, commissionColumns)
	return scanCommission(tx.QueryRow(ctx, query, id))
}

// UpdateStatus moves a commission to a new lifecycle state within a database
// transaction. confirmedAt is only set on the pending -> confirmed edge.
func (r *CommissionRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.CommissionStatus, confirmedAt *time.Time) error {
	query := `UPDATE commissions SET status = $1, confirmed_at = COALESCE($2, confirmed_at) WHERE id = $3`

	tag, err := tx.Exec(ctx, query, status, confirmedAt, id)
	if err != nil {
		return fmt.Errorf("update commission status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("commission not found: %s", id)
	}
	return nil
}

// ListByActor returns a page of an actor's commissions, newest first,
// optionally filtered by status, together with the total match count.
func (r *CommissionRepo) ListByActor(ctx context.Context, params ports.CommissionListParams) ([]domain.Commission, int64, error) {
	where := `WHERE actor_id = $1`
	args := []any{params.ActorID}
	if params.Status != nil {
		where += ` AND status = $2`
		args = append(args, *params.Status)
	}

	var total int64
	countQuery := `SELECT COUNT(*) FROM commissions ` + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count commissions: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	query := fmt.Sprintf(`SELECT %s FROM commissions %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, commissionColumns, where, len(args)+1, len(args)+2)
	args = append(args, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query commissions: %w", err)
	}
	defer rows.Close()

	commissions := make([]domain.Commission, 0, params.PageSize)
	for rows.Next() {
		c, err := scanCommissionRow(rows)
		if err != nil {
			return nil, 0, err
		}
		commissions = append(commissions, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate commissions: %w", err)
	}
	return commissions, total, nil
}

// GetStats aggregates an actor's commissions per lifecycle state in a single
// scan using FILTER clauses.
func (r *CommissionRepo) GetStats(ctx context.Context, actorID uuid.UUID) (*ports.CommissionStats, error) {
	query := `SELECT
		COALESCE(SUM(amount) FILTER (WHERE status IN ('pending', 'confirmed')), 0) AS total_earned,
		COALESCE(SUM(amount) FILTER (WHERE status = 'confirmed'), 0) AS total_confirmed,
		COALESCE(SUM(amount) FILTER (WHERE status = 'pending'), 0) AS total_pending,
		COALESCE(SUM(amount) FILTER (WHERE status = 'reversed'), 0) AS total_reversed,
		COUNT(*) AS count
		FROM commissions WHERE actor_id = $1`

	stats := &ports.CommissionStats{}
	err := r.pool.QueryRow(ctx, query, actorID).Scan(
		&stats.TotalEarned, &stats.TotalConfirmed, &stats.TotalPending,
		&stats.TotalReversed, &stats.Count,
	)
	if err != nil {
		return nil, fmt.Errorf("query commission stats: %w", err)
	}
	return stats, nil
}

func scanCommission(row pgx.Row) (*domain.Commission, error) {
	c := &domain.Commission{}
	err := row.Scan(
		&c.ID, &c.ActorID, &c.OrderID, &c.ProductID,
		&c.Basis.Type, &c.Basis.Fixed, &c.Basis.Percent, &c.Basis.Cap,
		&c.Amount, &c.Status, &c.CreatedAt, &c.ConfirmedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan commission: %w", err)
	}
	return c, nil
}

func scanCommissionRow(rows pgx.Rows) (*domain.Commission, error) {
	c := &domain.Commission{}
	err := rows.Scan(
		&c.ID, &c.ActorID, &c.OrderID, &c.ProductID,
		&c.Basis.Type, &c.Basis.Fixed, &c.Basis.Percent, &c.Basis.Cap,
		&c.Amount, &c.Status, &c.CreatedAt, &c.ConfirmedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan commission: %w", err)
	}
	return c, nil
}
