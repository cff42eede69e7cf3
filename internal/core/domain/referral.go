package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ReferralSettings is the single active referral configuration. One row is
// authoritative; reads pick the most recent and warn when duplicates exist.
type ReferralSettings struct {
	ID                  uuid.UUID `json:"id"`
	Enabled             bool      `json:"enabled"`
	ReferrerRewardCoins int64     `json:"referrer_reward_coins"`
	RefereeRewardAmount int64     `json:"referee_reward_amount"` // promotional credits, smallest units
	MinOrderValue       int64     `json:"min_order_value"`
	PerUserLimit        int64     `json:"per_user_limit"`   // 0 = unlimited
	DailyLimit          int64     `json:"daily_limit"`      // 0 = unlimited
	MonthlyLimit        int64     `json:"monthly_limit"`    // 0 = unlimited
	AllowSelfReferral   bool      `json:"allow_self_referral"`
	FirstOrderOnly      bool      `json:"first_order_only"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// Validate checks every numeric field and the cap ordering. It returns one
// message per offending field so the admin console can highlight them all.
func (s *ReferralSettings) Validate() []string {
	var problems []string

	numeric := []struct {
		name  string
		value int64
	}{
		{"referrer_reward_coins", s.ReferrerRewardCoins},
		{"referee_reward_amount", s.RefereeRewardAmount},
		{"min_order_value", s.MinOrderValue},
		{"per_user_limit", s.PerUserLimit},
		{"daily_limit", s.DailyLimit},
		{"monthly_limit", s.MonthlyLimit},
	}
	for _, f := range numeric {
		if f.value < 0 {
			problems = append(problems, fmt.Sprintf("%s must not be negative", f.name))
		}
	}

	if s.MonthlyLimit > 0 && s.DailyLimit > s.MonthlyLimit {
		problems = append(problems, fmt.Sprintf(
			"daily_limit (%d) must not exceed monthly_limit (%d)", s.DailyLimit, s.MonthlyLimit))
	}

	return problems
}

// Fraud flags attached to blocked referral transactions.
const (
	FlagSelfReferral  = "self_referral"
	FlagBelowMinOrder = "below_min_order_value"
	FlagDailyLimit    = "daily_limit_reached"
	FlagMonthlyLimit  = "monthly_limit_reached"
	FlagPerUserLimit  = "per_user_limit_reached"
	FlagNotFirstOrder = "not_first_order"
)

// ReferralStatus marks whether a referral transaction passed policy checks.
type ReferralStatus string

const (
	ReferralStatusAllowed ReferralStatus = "allowed"
	ReferralStatusBlocked ReferralStatus = "blocked"
)

// ReferralTransaction records one evaluated referral. Blocked referrals are
// persisted with their fraud flags for manual review, never dropped.
type ReferralTransaction struct {
	ID         uuid.UUID      `json:"id"`
	ReferrerID uuid.UUID      `json:"referrer_id"`
	RefereeID  uuid.UUID      `json:"referee_id"`
	OrderID    string         `json:"order_id"`
	OrderValue int64          `json:"order_value"`
	Status     ReferralStatus `json:"status"`
	FraudFlags []string       `json:"fraud_flags,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Blocked reports whether the referral failed policy evaluation.
func (r *ReferralTransaction) Blocked() bool {
	return r.Status == ReferralStatusBlocked
}
