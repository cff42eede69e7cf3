package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"reward-ledger/internal/core/domain"
	"reward-ledger/internal/core/ports"
	"reward-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const eventCacheTTL = 24 * time.Hour

// OrderServiceImpl implements ports.OrderService: order completion events in,
// commission records and optimistic wallet credits out. Ingestion is
// idempotent by order id through a Redis fast path backed by a durable log,
// because checkout may redeliver events.
type OrderServiceImpl struct {
	attribution    ports.AttributionService
	actorRepo      ports.ActorRepository
	commissionRepo ports.CommissionRepository
	eventRepo      ports.EventRepository
	eventCache     ports.EventCache
	ledger         ports.LedgerService
	referrals      ports.ReferralService
	transactor     ports.DBTransactor
	log            zerolog.Logger
}

// NewOrderService creates a new OrderServiceImpl.
func NewOrderService(
	attribution ports.AttributionService,
	actorRepo ports.ActorRepository,
	commissionRepo ports.CommissionRepository,
	eventRepo ports.EventRepository,
	eventCache ports.EventCache,
	ledger ports.LedgerService,
	referrals ports.ReferralService,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *OrderServiceImpl {
	return &OrderServiceImpl{
		attribution:    attribution,
		actorRepo:      actorRepo,
		commissionRepo: commissionRepo,
		eventRepo:      eventRepo,
		eventCache:     eventCache,
		ledger:         ledger,
		referrals:      referrals,
		transactor:     transactor,
		log:            log,
	}
}

// ProcessOrderEvent attributes a completed order and credits the earned
// commissions. Attribution problems (expired session, unknown code) degrade to
// an unattributed order; the buyer flow never fails because of them.
func (s *OrderServiceImpl) ProcessOrderEvent(ctx context.Context, event ports.OrderEvent) (*ports.OrderResult, error) {
	if event.OrderID == "" {
		return nil, apperror.Validation("order_id is required")
	}

	key := domain.BuildEventKey(event.OrderID)

	// Layer 1: Redis idempotency check
	cached, err := s.eventCache.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("redis idempotency check failed, falling through to DB")
	}
	if cached != nil {
		return s.unmarshalCachedResult(cached)
	}

	// Layer 2: DB idempotency check
	processed, err := s.eventRepo.Get(ctx, event.OrderID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("db idempotency check: %w", err))
	}
	if processed != nil {
		return s.unmarshalCachedResult(processed.ResponseJSON)
	}

	actorID, attributed := s.resolveActor(ctx, event)

	result := &ports.OrderResult{
		OrderID:    event.OrderID,
		Attributed: attributed,
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if attributed {
		now := time.Now().UTC()
		for _, line := range event.Lines {
			if line.Basis == nil {
				continue
			}
			amount, err := ComputeCommission(*line.Basis, line.UnitPrice, line.Quantity)
			if err != nil {
				s.log.Warn().Err(err).
					Str("order_id", event.OrderID).
					Str("product_id", line.ProductID).
					Msg("skipping line with invalid commission basis")
				continue
			}
			if amount == 0 {
				continue
			}

			c := domain.Commission{
				ID:        uuid.New(),
				ActorID:   actorID,
				OrderID:   event.OrderID,
				ProductID: line.ProductID,
				Basis:     *line.Basis,
				Amount:    amount,
				Status:    domain.CommissionStatusPending,
				CreatedAt: now,
			}
			if err := s.commissionRepo.Create(ctx, dbTx, &c); err != nil {
				return nil, apperror.InternalError(fmt.Errorf("create commission: %w", err))
			}

			// Optimistic credit: the wallet moves now, confirmation later
			// only flips payout eligibility.
			_, err = s.ledger.MutateInTx(ctx, dbTx, ports.MutationRequest{
				UserID:    actorID,
				Bucket:    domain.BucketAffiliateEarnings,
				Direction: domain.DirectionCredit,
				Amount:    amount,
				Reason:    fmt.Sprintf("Commission for order %s, product %s", event.OrderID, line.ProductID),
			})
			if err != nil {
				return nil, apperror.InternalError(fmt.Errorf("credit commission: %w", err))
			}

			result.Commissions = append(result.Commissions, c)
		}
	}

	respJSON, err := json.Marshal(result)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("marshal result: %w", err))
	}
	if err := s.eventRepo.Create(ctx, dbTx, &domain.ProcessedEvent{
		OrderID:      event.OrderID,
		BuyerID:      event.BuyerID,
		ResponseJSON: respJSON,
		CreatedAt:    time.Now().UTC(),
	}); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("save processed event: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	// Referral policy runs after the commission unit commits: a blocked or
	// failed referral must not undo the attribution.
	if attributed && event.BuyerID != uuid.Nil {
		result.Referral = s.evaluateReferral(ctx, actorID, event)
	}

	// Post-process: cache in Redis (best-effort)
	if cacheJSON, err := json.Marshal(result); err == nil {
		if err := s.eventCache.Set(ctx, key, cacheJSON, eventCacheTTL); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("failed to cache order result in redis")
		}
	}

	s.log.Info().
		Str("order_id", event.OrderID).
		Bool("attributed", attributed).
		Int("commissions", len(result.Commissions)).
		Msg("order event processed")

	return result, nil
}

// resolveActor finds who earns from this order: the click session when one
// resolves, else a direct code. Both paths failing means no attribution.
func (s *OrderServiceImpl) resolveActor(ctx context.Context, event ports.OrderEvent) (uuid.UUID, bool) {
	if event.SessionID != nil && *event.SessionID != "" {
		session, err := s.attribution.Resolve(ctx, *event.SessionID)
		if err == nil {
			return session.ActorID, true
		}
		var appErr *apperror.AppError
		if errors.As(err, &appErr) && (appErr.Code == "ATTR_002" || appErr.Code == "ATTR_003") {
			s.log.Debug().
				Str("order_id", event.OrderID).
				Str("session_id", *event.SessionID).
				Str("code", appErr.Code).
				Msg("session did not resolve, order proceeds unattributed")
		} else {
			s.log.Warn().Err(err).Str("order_id", event.OrderID).Msg("session resolution failed")
		}
	}

	if event.ActorCode != nil && *event.ActorCode != "" {
		actor, err := s.actorRepo.GetByCode(ctx, *event.ActorCode)
		if err != nil {
			s.log.Warn().Err(err).Str("order_id", event.OrderID).Msg("actor code lookup failed")
			return uuid.Nil, false
		}
		if actor != nil && actor.IsActive() {
			return actor.UserID, true
		}
	}

	return uuid.Nil, false
}

// evaluateReferral runs policy for the referral side of the order and grants
// the configured rewards when allowed. Never fails the order.
func (s *OrderServiceImpl) evaluateReferral(ctx context.Context, referrerID uuid.UUID, event ports.OrderEvent) *domain.ReferralTransaction {
	var orderValue int64
	for _, line := range event.Lines {
		orderValue += line.UnitPrice * line.Quantity
	}

	txn, err := s.referrals.Evaluate(ctx, ports.ReferralEvaluation{
		ReferrerID: referrerID,
		RefereeID:  event.BuyerID,
		OrderID:    event.OrderID,
		OrderValue: orderValue,
	})
	if err != nil {
		s.log.Warn().Err(err).Str("order_id", event.OrderID).Msg("referral evaluation failed")
		return nil
	}
	if txn.Blocked() {
		return txn
	}

	settings, err := s.referrals.GetSettings(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("could not load settings for reward grant")
		return txn
	}

	if settings.ReferrerRewardCoins > 0 {
		_, err := s.ledger.Mutate(ctx, ports.MutationRequest{
			UserID:    referrerID,
			Bucket:    domain.BucketReferralRewards,
			Direction: domain.DirectionCredit,
			Amount:    settings.ReferrerRewardCoins,
			Reason:    fmt.Sprintf("Referral reward for order %s", event.OrderID),
		})
		if err != nil {
			s.log.Error().Err(err).Str("order_id", event.OrderID).Msg("referrer reward credit failed")
		}
	}
	if settings.RefereeRewardAmount > 0 {
		_, err := s.ledger.Mutate(ctx, ports.MutationRequest{
			UserID:    event.BuyerID,
			Bucket:    domain.BucketPromotionalCredits,
			Direction: domain.DirectionCredit,
			Amount:    settings.RefereeRewardAmount,
			Reason:    fmt.Sprintf("Welcome reward for order %s", event.OrderID),
		})
		if err != nil {
			s.log.Error().Err(err).Str("order_id", event.OrderID).Msg("referee reward credit failed")
		}
	}

	return txn
}

func (s *OrderServiceImpl) unmarshalCachedResult(data []byte) (*ports.OrderResult, error) {
	result := &ports.OrderResult{}
	if err := json.Unmarshal(data, result); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("unmarshal cached result: %w", err))
	}
	return result, nil
}
