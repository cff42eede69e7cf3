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

// AttributionServiceImpl implements ports.AttributionService. Sessions live in
// the session store under the 30-day TTL; click rows are reporting-only and
// never feed back into ledger decisions.
type AttributionServiceImpl struct {
	actorRepo ports.ActorRepository
	clickRepo ports.ClickRepository
	sessions  ports.SessionStore
	log       zerolog.Logger
}

// NewAttributionService creates a new AttributionServiceImpl.
func NewAttributionService(
	actorRepo ports.ActorRepository,
	clickRepo ports.ClickRepository,
	sessions ports.SessionStore,
	log zerolog.Logger,
) *AttributionServiceImpl {
	return &AttributionServiceImpl{
		actorRepo: actorRepo,
		clickRepo: clickRepo,
		sessions:  sessions,
		log:       log,
	}
}

// Track records a referral visit. Unknown or suspended codes produce no side
// effect at all.
func (s *AttributionServiceImpl) Track(ctx context.Context, req ports.TrackRequest) (*domain.AttributionSession, error) {
	actor, err := s.actorRepo.GetByCode(ctx, req.Code)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lookup code: %w", err))
	}
	if actor == nil || !actor.IsActive() {
		return nil, apperror.ErrCodeNotFound()
	}

	now := time.Now().UTC()
	session := &domain.AttributionSession{
		SessionID: uuid.NewString(),
		Code:      req.Code,
		ActorID:   actor.UserID,
		ProductID: req.ProductID,
		CreatedAt: now,
	}
	if err := s.sessions.Put(ctx, session, domain.SessionTTL); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("store session: %w", err))
	}

	// Click rows are analytics only; a failed insert must not fail the track.
	click := &domain.Click{
		ID:          uuid.New(),
		SessionID:   session.SessionID,
		Code:        req.Code,
		ActorID:     actor.UserID,
		ProductID:   req.ProductID,
		ReferrerURL: req.ReferrerURL,
		DeviceClass: req.DeviceClass,
		Campaign:    req.Campaign,
		CreatedAt:   now,
	}
	if err := s.clickRepo.Create(ctx, click); err != nil {
		s.log.Warn().Err(err).Str("code", req.Code).Msg("failed to record click")
	}

	return session, nil
}

// Resolve consumes a session exactly once. Two devices racing on the same
// session resolve first-writer-wins; the loser sees it as absent.
func (s *AttributionServiceImpl) Resolve(ctx context.Context, sessionID string) (*domain.AttributionSession, error) {
	session, err := s.sessions.Consume(ctx, sessionID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("consume session: %w", err))
	}
	if session == nil {
		return nil, apperror.ErrSessionAbsent()
	}
	// The store TTL already discards most expired sessions; CreatedAt stays
	// authoritative for the 30-day window.
	if session.Expired(time.Now().UTC()) {
		return nil, apperror.ErrSessionExpired()
	}
	return session, nil
}
