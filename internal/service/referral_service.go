package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"reward-ledger/internal/core/domain"
	"reward-ledger/internal/core/ports"
	"reward-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// FlagProgramDisabled marks referrals received while the program is off.
const FlagProgramDisabled = "program_disabled"

// ReferralServiceImpl implements ports.ReferralService: settings management
// and fraud-heuristic evaluation of referral transactions.
type ReferralServiceImpl struct {
	referralRepo ports.ReferralRepository
	log          zerolog.Logger
}

// NewReferralService creates a new ReferralServiceImpl.
func NewReferralService(referralRepo ports.ReferralRepository, log zerolog.Logger) *ReferralServiceImpl {
	return &ReferralServiceImpl{referralRepo: referralRepo, log: log}
}

// GetSettings returns the single active configuration. When duplicate rows
// have crept in, the most recent wins and the drift is logged for cleanup.
// With no row at all the program reads as disabled.
func (s *ReferralServiceImpl) GetSettings(ctx context.Context) (*domain.ReferralSettings, error) {
	settings, count, err := s.referralRepo.GetLatestSettings(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get settings: %w", err))
	}
	if count > 1 {
		s.log.Warn().Int64("rows", count).Msg("duplicate referral settings rows, using most recent")
	}
	if settings == nil {
		return &domain.ReferralSettings{Enabled: false}, nil
	}
	return settings, nil
}

// UpdateSettings validates and persists the configuration.
func (s *ReferralServiceImpl) UpdateSettings(ctx context.Context, settings *domain.ReferralSettings) (*domain.ReferralSettings, error) {
	if problems := settings.Validate(); len(problems) > 0 {
		return nil, apperror.ErrSettingsInvalid(strings.Join(problems, "; "))
	}

	if settings.ID == uuid.Nil {
		settings.ID = uuid.New()
	}
	settings.UpdatedAt = time.Now().UTC()

	if err := s.referralRepo.UpsertSettings(ctx, settings); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("upsert settings: %w", err))
	}

	s.log.Info().
		Bool("enabled", settings.Enabled).
		Int64("daily_limit", settings.DailyLimit).
		Int64("monthly_limit", settings.MonthlyLimit).
		Msg("referral settings updated")

	return settings, nil
}

// Evaluate runs the fraud heuristics and persists the transaction either way:
// allowed, or blocked with every accumulated flag for manual admin review.
// Device- and payment-method-based heuristics are not implemented; the flag
// list is the extension point for them.
func (s *ReferralServiceImpl) Evaluate(ctx context.Context, e ports.ReferralEvaluation) (*domain.ReferralTransaction, error) {
	settings, err := s.GetSettings(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var flags []string

	if !settings.Enabled {
		flags = append(flags, FlagProgramDisabled)
	}
	if e.ReferrerID == e.RefereeID && !settings.AllowSelfReferral {
		flags = append(flags, domain.FlagSelfReferral)
	}
	if e.OrderValue < settings.MinOrderValue {
		flags = append(flags, domain.FlagBelowMinOrder)
	}

	if settings.FirstOrderOnly {
		prior, err := s.referralRepo.HasPriorOrders(ctx, e.RefereeID, e.OrderID)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("check prior orders: %w", err))
		}
		if prior {
			flags = append(flags, domain.FlagNotFirstOrder)
		}
	}

	if settings.PerUserLimit > 0 {
		used, err := s.referralRepo.CountByReferrerForReferee(ctx, e.ReferrerID, e.RefereeID)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("count per-user referrals: %w", err))
		}
		if used >= settings.PerUserLimit {
			flags = append(flags, domain.FlagPerUserLimit)
		}
	}
	if settings.DailyLimit > 0 {
		dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		used, err := s.referralRepo.CountByReferrerSince(ctx, e.ReferrerID, dayStart)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("count daily referrals: %w", err))
		}
		if used >= settings.DailyLimit {
			flags = append(flags, domain.FlagDailyLimit)
		}
	}
	if settings.MonthlyLimit > 0 {
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		used, err := s.referralRepo.CountByReferrerSince(ctx, e.ReferrerID, monthStart)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("count monthly referrals: %w", err))
		}
		if used >= settings.MonthlyLimit {
			flags = append(flags, domain.FlagMonthlyLimit)
		}
	}

	status := domain.ReferralStatusAllowed
	if len(flags) > 0 {
		status = domain.ReferralStatusBlocked
	}

	txn := &domain.ReferralTransaction{
		ID:         uuid.New(),
		ReferrerID: e.ReferrerID,
		RefereeID:  e.RefereeID,
		OrderID:    e.OrderID,
		OrderValue: e.OrderValue,
		Status:     status,
		FraudFlags: flags,
		CreatedAt:  now,
	}
	if err := s.referralRepo.CreateTransaction(ctx, txn); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("persist referral: %w", err))
	}

	if txn.Blocked() {
		s.log.Info().
			Str("referrer_id", e.ReferrerID.String()).
			Str("order_id", e.OrderID).
			Strs("fraud_flags", flags).
			Msg("referral blocked for review")
	}

	return txn, nil
}
