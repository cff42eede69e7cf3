package postgres

import (
	"context"
	"errors"
	"fmt"

	"reward-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ActorRepo implements ports.ActorRepository.
type ActorRepo struct {
	pool Pool
}

// NewActorRepo creates a new ActorRepo.
func NewActorRepo(pool Pool) *ActorRepo {
	return &ActorRepo{pool: pool}
}

const actorColumns = `id, user_id, code, name, status, created_at, updated_at`

// Create inserts a new actor. The unique index on code rejects duplicates.
func (r *ActorRepo) Create(ctx context.Context, a *domain.Actor) error {
	query := `INSERT INTO actors (id, user_id, code, name, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		a.ID, a.UserID, a.Code, a.Name, a.Status, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert actor: %w", err)
	}
	return nil
}

// GetByID fetches an actor by ID.
func (r *ActorRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Actor, error) {
	query := fmt.Sprintf(`SELECT %s FROM actors WHERE id = $1`, actorColumns)
	return r.scanActor(r.pool.QueryRow(ctx, query, id))
}

// GetByCode fetches an actor by its shareable code.
func (r *ActorRepo) GetByCode(ctx context.Context, code string) (*domain.Actor, error) {
	query := fmt.Sprintf(`SELECT %s FROM actors WHERE code = $1`, actorColumns)
	return r.scanActor(r.pool.QueryRow(ctx, query, code))
}

// GetByUserID fetches the actor profile belonging to a user.
func (r *ActorRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Actor, error) {
	query := fmt.Sprintf(`SELECT %s FROM actors WHERE user_id = $1`, actorColumns)
	return r.scanActor(r.pool.QueryRow(ctx, query, userID))
}

func (r *ActorRepo) scanActor(row pgx.Row) (*domain.Actor, error) {
	a := &domain.Actor{}
	err := row.Scan(&a.ID, &a.UserID, &a.Code, &a.Name, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan actor: %w", err)
	}
	return a, nil
}
