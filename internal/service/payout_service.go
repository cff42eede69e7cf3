package service

import (
	"context"
	"fmt"
	"time"

	"reward-ledger/internal/core/domain"
	"reward-ledger/internal/core/ports"
	"reward-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// PayoutServiceImpl implements ports.PayoutService: the pending -> processing
// -> completed | failed withdrawal lifecycle. Requesting holds nothing; the
// wallet is debited once, at settlement.
type PayoutServiceImpl struct {
	payoutRepo ports.PayoutRepository
	ledger     ports.LedgerService
	transactor ports.DBTransactor
	notifier   ports.Notifier
	log        zerolog.Logger
}

// NewPayoutService creates a new PayoutServiceImpl.
func NewPayoutService(
	payoutRepo ports.PayoutRepository,
	ledger ports.LedgerService,
	transactor ports.DBTransactor,
	notifier ports.Notifier,
	log zerolog.Logger,
) *PayoutServiceImpl {
	return &PayoutServiceImpl{
		payoutRepo: payoutRepo,
		ledger:     ledger,
		transactor: transactor,
		notifier:   notifier,
		log:        log,
	}
}

// Request creates a pending payout over affiliate earnings. The balance must
// cover the amount at request time but stays visible in the wallet until
// settlement.
func (s *PayoutServiceImpl) Request(ctx context.Context, actorID uuid.UUID, amount int64, method string) (*domain.Payout, error) {
	if amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	if method == "" {
		return nil, apperror.Validation("method is required")
	}

	wallet, err := s.ledger.GetWallet(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if wallet.AffiliateEarnings < amount {
		return nil, apperror.ErrPayoutBalanceTooLow()
	}

	p := &domain.Payout{
		ID:          uuid.New(),
		ActorID:     actorID,
		Amount:      amount,
		Method:      method,
		Status:      domain.PayoutStatusPending,
		RequestedAt: time.Now().UTC(),
	}
	if err := s.payoutRepo.Create(ctx, p); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create payout: %w", err))
	}

	s.log.Info().
		Str("payout_id", p.ID.String()).
		Str("actor_id", actorID.String()).
		Int64("amount", amount).
		Str("method", method).
		Msg("payout requested")

	return p, nil
}

// Process applies an admin transition. Completion debits the wallet inside the
// same transaction as the status flip; the row lock plus the state check make
// settlement apply at most once per payout id. Failure is terminal with no
// wallet movement.
func (s *PayoutServiceImpl) Process(ctx context.Context, req ports.PayoutProcessRequest) (*domain.Payout, error) {
	switch req.Target {
	case domain.PayoutStatusProcessing, domain.PayoutStatusCompleted, domain.PayoutStatusFailed:
	default:
		return nil, apperror.Validation(fmt.Sprintf("unknown target status %q", req.Target))
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	p, err := s.payoutRepo.GetByIDForUpdate(ctx, dbTx, req.PayoutID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock payout: %w", err))
	}
	if p == nil {
		return nil, apperror.ErrNotFound("payout")
	}
	if !p.CanTransition(req.Target) {
		return nil, apperror.ErrInvalidTransition(string(p.Status), string(req.Target))
	}

	if req.Target == domain.PayoutStatusCompleted {
		reason := fmt.Sprintf("Payout %s settled", p.ID)
		if req.SettlementRef != nil {
			reason = fmt.Sprintf("Payout %s settled (ref %s)", p.ID, *req.SettlementRef)
		}
		_, err = s.ledger.MutateInTx(ctx, dbTx, ports.MutationRequest{
			UserID:    p.ActorID,
			Bucket:    domain.BucketAffiliateEarnings,
			Direction: domain.DirectionDebit,
			Amount:    p.Amount,
			Reason:    reason,
			AdminID:   &req.AdminID,
		})
		if err != nil {
			return nil, err
		}
	}

	if err := s.payoutRepo.UpdateStatus(ctx, dbTx, p.ID, req.Target, req.SettlementRef, req.Notes); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update payout status: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	now := time.Now().UTC()
	p.Status = req.Target
	p.SettlementRef = req.SettlementRef
	p.Notes = req.Notes
	p.ProcessedAt = &now

	s.log.Info().
		Str("payout_id", p.ID.String()).
		Str("admin_id", req.AdminID.String()).
		Str("status", string(req.Target)).
		Int64("amount", p.Amount).
		Msg("payout processed")

	if req.Target == domain.PayoutStatusCompleted {
		s.notify(ctx, ports.Notification{
			Event:   ports.EventPayoutCompleted,
			ActorID: p.ActorID,
			Amount:  p.Amount,
			Reason:  fmt.Sprintf("Payout of %d via %s completed", p.Amount, p.Method),
		})
	}

	return p, nil
}

// ListByActor returns an actor's payout history.
func (s *PayoutServiceImpl) ListByActor(ctx context.Context, actorID uuid.UUID, page, pageSize int) ([]domain.Payout, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	items, total, err := s.payoutRepo.ListByActor(ctx, actorID, page, pageSize)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list payouts: %w", err))
	}
	return items, total, nil
}

func (s *PayoutServiceImpl) notify(ctx context.Context, n ports.Notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.log.Warn().Err(err).Str("event", n.Event).Msg("notification delivery failed")
	}
}
