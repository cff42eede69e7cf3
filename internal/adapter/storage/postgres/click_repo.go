package postgres

import (
	"context"
	"fmt"
	"time"

	"reward-ledger/internal/core/domain"

	"github.com/google/uuid"
)

// ClickRepo implements ports.ClickRepository. Click rows are the durable
// analytics trail behind the Redis attribution sessions.
type ClickRepo struct {
	pool Pool
}

// NewClickRepo creates a new ClickRepo.
func NewClickRepo(pool Pool) *ClickRepo {
	return &ClickRepo{pool: pool}
}

// Create inserts a click record.
func (r *ClickRepo) Create(ctx context.Context, c *domain.Click) error {
	query := `INSERT INTO clicks (id, session_id, code, actor_id, product_id, referrer_url,
		device_class, campaign, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, query,
		c.ID, c.SessionID, c.Code, c.ActorID, c.ProductID,
		c.ReferrerURL, c.DeviceClass, c.Campaign, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert click: %w", err)
	}
	return nil
}

// CountByActor returns how many clicks an actor accumulated since the cutoff.
func (r *ClickRepo) CountByActor(ctx context.Context, actorID uuid.UUID, since time.Time) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM clicks WHERE actor_id = $1 AND created_at >= $2`
	if err := r.pool.QueryRow(ctx, query, actorID, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("count clicks: %w", err)
	}
	return count, nil
}
