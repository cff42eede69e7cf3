package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reward-ledger/internal/core/domain"
	"reward-ledger/internal/core/ports"
	"reward-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CommissionServiceImpl implements ports.CommissionService: the pending ->
// confirmed / cancelled / reversed lifecycle over commission records.
type CommissionServiceImpl struct {
	commissionRepo ports.CommissionRepository
	ledger         ports.LedgerService
	transactor     ports.DBTransactor
	notifier       ports.Notifier
	log            zerolog.Logger
}

// NewCommissionService creates a new CommissionServiceImpl.
func NewCommissionService(
	commissionRepo ports.CommissionRepository,
	ledger ports.LedgerService,
	transactor ports.DBTransactor,
	notifier ports.Notifier,
	log zerolog.Logger,
) *CommissionServiceImpl {
	return &CommissionServiceImpl{
		commissionRepo: commissionRepo,
		ledger:         ledger,
		transactor:     transactor,
		notifier:       notifier,
		log:            log,
	}
}

// Confirm moves a pending commission to confirmed. The wallet was credited
// optimistically at creation, so confirmation changes eligibility only; no
// balance moves. The state check runs under a row lock so the transition
// applies at most once.
func (s *CommissionServiceImpl) Confirm(ctx context.Context, id uuid.UUID, adminID uuid.UUID) (*domain.Commission, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	c, err := s.commissionRepo.GetByIDForUpdate(ctx, dbTx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock commission: %w", err))
	}
	if c == nil {
		return nil, apperror.ErrNotFound("commission")
	}
	if !c.CanConfirm() {
		return nil, apperror.ErrInvalidTransition(string(c.Status), string(domain.CommissionStatusConfirmed))
	}

	now := time.Now().UTC()
	if err := s.commissionRepo.UpdateStatus(ctx, dbTx, id, domain.CommissionStatusConfirmed, &now); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("confirm commission: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	c.Status = domain.CommissionStatusConfirmed
	c.ConfirmedAt = &now

	s.log.Info().
		Str("commission_id", id.String()).
		Str("admin_id", adminID.String()).
		Int64("amount", c.Amount).
		Msg("commission confirmed")

	s.notify(ctx, ports.Notification{
		Event:   ports.EventCommissionConfirmed,
		ActorID: c.ActorID,
		Amount:  c.Amount,
		Reason:  fmt.Sprintf("Commission for order %s confirmed", c.OrderID),
	})

	return c, nil
}

// Reverse moves a pending or confirmed commission to reversed and performs the
// compensating debit in the same database transaction. When the user already
// spent the credited amount the whole reversal is blocked and the record keeps
// its state for manual reconciliation; balances never go negative.
func (s *CommissionServiceImpl) Reverse(ctx context.Context, id uuid.UUID, reason string, adminID uuid.UUID) (*domain.Commission, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	c, err := s.commissionRepo.GetByIDForUpdate(ctx, dbTx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock commission: %w", err))
	}
	if c == nil {
		return nil, apperror.ErrNotFound("commission")
	}
	if !c.CanReverse() {
		return nil, apperror.ErrInvalidTransition(string(c.Status), string(domain.CommissionStatusReversed))
	}

	mutationReason := fmt.Sprintf("Commission reversal for order %s: %s", c.OrderID, reason)
	_, err = s.ledger.MutateInTx(ctx, dbTx, ports.MutationRequest{
		UserID:    c.ActorID,
		Bucket:    domain.BucketAffiliateEarnings,
		Direction: domain.DirectionDebit,
		Amount:    c.Amount,
		Reason:    mutationReason,
		AdminID:   &adminID,
	})
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) && appErr.Code == "LED_001" {
			s.log.Warn().
				Str("commission_id", id.String()).
				Int64("amount", c.Amount).
				Msg("reversal blocked: earnings already spent")
			return nil, apperror.ErrReversalBlocked()
		}
		return nil, apperror.InternalError(fmt.Errorf("compensating debit: %w", err))
	}

	if err := s.commissionRepo.UpdateStatus(ctx, dbTx, id, domain.CommissionStatusReversed, nil); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("reverse commission: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	c.Status = domain.CommissionStatusReversed

	s.log.Info().
		Str("commission_id", id.String()).
		Str("admin_id", adminID.String()).
		Int64("amount", c.Amount).
		Str("reason", reason).
		Msg("commission reversed")

	return c, nil
}

// ListByActor returns an actor's commission history.
func (s *CommissionServiceImpl) ListByActor(ctx context.Context, params ports.CommissionListParams) ([]domain.Commission, int64, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 || params.PageSize > 100 {
		params.PageSize = 20
	}
	items, total, err := s.commissionRepo.ListByActor(ctx, params)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list commissions: %w", err))
	}
	return items, total, nil
}

// Stats returns per-actor earning aggregates.
func (s *CommissionServiceImpl) Stats(ctx context.Context, actorID uuid.UUID) (*ports.CommissionStats, error) {
	stats, err := s.commissionRepo.GetStats(ctx, actorID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commission stats: %w", err))
	}
	return stats, nil
}

// notify fires the messaging hook best-effort. Delivery failure never rolls
// back the mutation that triggered it.
func (s *CommissionServiceImpl) notify(ctx context.Context, n ports.Notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.log.Warn().Err(err).Str("event", n.Event).Msg("notification delivery failed")
	}
}
