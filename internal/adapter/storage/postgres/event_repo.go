package postgres

import (
	"context"
	"errors"
	"fmt"

	"reward-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// EventRepo implements ports.EventRepository, the durable half of order-event
// idempotency. The primary key on order_id makes a replayed insert fail
// inside the same transaction that wrote the commissions, so a duplicate can
// never double-credit.
type EventRepo struct {
	pool Pool
}

// NewEventRepo creates a new EventRepo.
func NewEventRepo(pool Pool) *EventRepo {
	return &EventRepo{pool: pool}
}

// Create inserts a processed-event row within a database transaction.
func (r *EventRepo) Create(ctx context.Context, tx pgx.Tx, e *domain.ProcessedEvent) error {
	query := `INSERT INTO processed_events (order_id, buyer_id, response_json, created_at)
		VALUES ($1, $2, $3, $4)`

	_, err := tx.Exec(ctx, query, e.OrderID, e.BuyerID, e.ResponseJSON, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert processed event: %w", err)
	}
	return nil
}

// Get fetches a processed event by order ID.
func (r *EventRepo) Get(ctx context.Context, orderID string) (*domain.ProcessedEvent, error) {
	query := `SELECT order_id, buyer_id, response_json, created_at
		FROM processed_events WHERE order_id = $1`

	e := &domain.ProcessedEvent{}
	err := r.pool.QueryRow(ctx, query, orderID).Scan(&e.OrderID, &e.BuyerID, &e.ResponseJSON, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan processed event: %w", err)
	}
	return e, nil
}
