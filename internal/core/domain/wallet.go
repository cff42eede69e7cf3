package domain

import (
	"time"

	"github.com/google/uuid"
)

// Bucket identifies one named balance inside a user wallet. The set is closed:
// every consumer switches over it and rejects anything else, so a bucket can
// never be addressed by a free-form string.
type Bucket string

const (
	BucketLoyaltyCoins       Bucket = "loyalty_coins"
	BucketAffiliateEarnings  Bucket = "affiliate_earnings"
	BucketRefundCredits      Bucket = "refund_credits"
	BucketPromotionalCredits Bucket = "promotional_credits"
	BucketReferralRewards    Bucket = "referral_rewards"
)

// Coin-to-currency conversion rates, in smallest currency units per coin.
const (
	loyaltyCoinRate  = 10
	referralCoinRate = 10
)

// AllBuckets lists every bucket in a stable order.
func AllBuckets() []Bucket {
	return []Bucket{
		BucketLoyaltyCoins,
		BucketAffiliateEarnings,
		BucketRefundCredits,
		BucketPromotionalCredits,
		BucketReferralRewards,
	}
}

// Valid reports whether b is one of the known buckets.
func (b Bucket) Valid() bool {
	switch b {
	case BucketLoyaltyCoins, BucketAffiliateEarnings, BucketRefundCredits,
		BucketPromotionalCredits, BucketReferralRewards:
		return true
	}
	return false
}

// IsCoin reports whether b holds coin counts rather than monetary units.
// Coin buckets only accept whole-coin amounts.
func (b Bucket) IsCoin() bool {
	return b == BucketLoyaltyCoins || b == BucketReferralRewards
}

// Rate returns the multiplier applied when the bucket contributes to the
// redeemable total: smallest currency units per stored unit.
func (b Bucket) Rate() int64 {
	switch b {
	case BucketLoyaltyCoins:
		return loyaltyCoinRate
	case BucketReferralRewards:
		return referralCoinRate
	default:
		return 1
	}
}

// Direction is the sign of a ledger mutation.
type Direction string

const (
	DirectionCredit Direction = "credit"
	DirectionDebit  Direction = "debit"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d == DirectionCredit || d == DirectionDebit
}

// Wallet holds the fixed set of reward balances owned by one user. Monetary
// buckets are in smallest currency units; coin buckets are whole-coin counts.
// TotalRedeemable is derived and recomputed on every mutation, never trusted
// from storage.
type Wallet struct {
	ID                 uuid.UUID `json:"id"`
	UserID             uuid.UUID `json:"user_id"`
	LoyaltyCoins       int64     `json:"loyalty_coins"`
	AffiliateEarnings  int64     `json:"affiliate_earnings"`
	RefundCredits      int64     `json:"refund_credits"`
	PromotionalCredits int64     `json:"promotional_credits"`
	ReferralRewards    int64     `json:"referral_rewards"`
	TotalRedeemable    int64     `json:"total_redeemable_amount"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// NewWallet returns an empty wallet for a user. Wallets are created lazily on
// first credit and never deleted.
func NewWallet(userID uuid.UUID) *Wallet {
	now := time.Now().UTC()
	return &Wallet{
		ID:        uuid.New(),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Balance returns the current value of one bucket.
func (w *Wallet) Balance(b Bucket) int64 {
	switch b {
	case BucketLoyaltyCoins:
		return w.LoyaltyCoins
	case BucketAffiliateEarnings:
		return w.AffiliateEarnings
	case BucketRefundCredits:
		return w.RefundCredits
	case BucketPromotionalCredits:
		return w.PromotionalCredits
	case BucketReferralRewards:
		return w.ReferralRewards
	default:
		return 0
	}
}

// SetBalance writes a bucket value and refreshes the derived total. Callers
// are responsible for never passing a negative value.
func (w *Wallet) SetBalance(b Bucket, value int64) {
	switch b {
	case BucketLoyaltyCoins:
		w.LoyaltyCoins = value
	case BucketAffiliateEarnings:
		w.AffiliateEarnings = value
	case BucketRefundCredits:
		w.RefundCredits = value
	case BucketPromotionalCredits:
		w.PromotionalCredits = value
	case BucketReferralRewards:
		w.ReferralRewards = value
	}
	w.TotalRedeemable = w.ComputeTotal()
}

// ComputeTotal returns the weighted sum of all buckets: monetary buckets at
// face value plus each coin bucket at its conversion rate.
func (w *Wallet) ComputeTotal() int64 {
	var total int64
	for _, b := range AllBuckets() {
		total += w.Balance(b) * b.Rate()
	}
	return total
}
