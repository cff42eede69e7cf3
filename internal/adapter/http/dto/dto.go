package dto

// TrackRequest is the request body for click tracking.
type TrackRequest struct {
	Code        string `json:"code" binding:"required,max=50,safe_id"`
	ProductID   string `json:"product_id" binding:"required,max=100,safe_id"`
	ReferrerURL string `json:"referrer_url" binding:"omitempty,safe_url"`
	DeviceClass string `json:"device_class" binding:"omitempty,oneof=mobile desktop tablet"`
	Campaign    string `json:"campaign" binding:"omitempty,max=100"`
}

// TrackResponse returns the session the storefront should carry in a cookie.
type TrackResponse struct {
	SessionID string `json:"session_id"`
	ExpiresAt string `json:"expires_at"`
}

// OrderLineRequest is one purchased line of an order event. The basis fields
// mirror the product's reward configuration as resolved by checkout.
type OrderLineRequest struct {
	ProductID    string  `json:"product_id" binding:"required,max=100"`
	UnitPrice    int64   `json:"unit_price" binding:"required,gt=0"`
	Quantity     int64   `json:"quantity" binding:"required,gt=0"`
	BasisType    *string `json:"basis_type,omitempty" binding:"omitempty,oneof=fixed percentage"`
	BasisFixed   *int64  `json:"basis_fixed,omitempty"`
	BasisPercent *string `json:"basis_percent,omitempty"` // decimal string, e.g. "7.5"
	BasisCap     *int64  `json:"basis_cap,omitempty"`
}

// OrderEventRequest is the request body for order completion ingestion.
type OrderEventRequest struct {
	OrderID   string             `json:"order_id" binding:"required,max=100,safe_id"`
	BuyerID   string             `json:"buyer_id" binding:"omitempty,uuid"`
	ActorCode *string            `json:"actor_code,omitempty" binding:"omitempty,max=50"`
	SessionID *string            `json:"session_id,omitempty" binding:"omitempty,max=100"`
	Lines     []OrderLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// CreateActorRequest is the request body for registering an affiliate or
// referrer account.
type CreateActorRequest struct {
	UserID string `json:"user_id" binding:"required,uuid"`
	Code   string `json:"code" binding:"required,max=50,safe_id"`
	Name   string `json:"name" binding:"required,max=100"`
}

// ReverseCommissionRequest is the request body for a commission reversal.
type ReverseCommissionRequest struct {
	Reason string `json:"reason" binding:"required,max=255"`
}

// ProcessPayoutRequest is the request body for an admin payout transition.
type ProcessPayoutRequest struct {
	Target        string  `json:"target" binding:"required,oneof=processing completed failed"`
	SettlementRef *string `json:"settlement_ref,omitempty" binding:"omitempty,max=100"`
	Notes         *string `json:"notes,omitempty" binding:"omitempty,max=500"`
}

// RequestPayoutRequest is the request body for an actor payout request.
type RequestPayoutRequest struct {
	Amount int64  `json:"amount" binding:"required,gt=0"`
	Method string `json:"method" binding:"required,oneof=bank_transfer store_credit"`
}

// AdjustWalletRequest is the request body for a manual wallet adjustment.
type AdjustWalletRequest struct {
	Bucket    string `json:"bucket" binding:"required"`
	Direction string `json:"direction" binding:"required,oneof=credit debit"`
	Amount    int64  `json:"amount" binding:"required,gt=0"`
	Reason    string `json:"reason" binding:"required,max=255"`
}

// AdjustWalletResponse reports the balance movement.
type AdjustWalletResponse struct {
	Bucket     string `json:"bucket"`
	OldBalance int64  `json:"old_balance"`
	NewBalance int64  `json:"new_balance"`
	Total      int64  `json:"total_redeemable_amount"`
}

// ReferralSettingsRequest is the request body for settings updates. All
// fields are required so an omitted limit cannot silently zero out.
type ReferralSettingsRequest struct {
	Enabled             bool  `json:"enabled"`
	ReferrerRewardCoins int64 `json:"referrer_reward_coins"`
	RefereeRewardAmount int64 `json:"referee_reward_amount"`
	MinOrderValue       int64 `json:"min_order_value"`
	PerUserLimit        int64 `json:"per_user_limit"`
	DailyLimit          int64 `json:"daily_limit"`
	MonthlyLimit        int64 `json:"monthly_limit"`
	AllowSelfReferral   bool  `json:"allow_self_referral"`
	FirstOrderOnly      bool  `json:"first_order_only"`
}

// ListResponse wraps any paginated collection.
type ListResponse struct {
	Items      interface{} `json:"items"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalPages int         `json:"total_pages"`
}
