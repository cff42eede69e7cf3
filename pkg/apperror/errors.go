package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Validation (VAL) ----

// Validation reports a bad input value, naming the field at fault.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}

func ErrInvalidAmount() *AppError {
	return New("VAL_002", "Amount must be positive", http.StatusBadRequest)
}

func ErrNonIntegerCoins() *AppError {
	return New("VAL_003", "Coin bucket amounts must be whole coins", http.StatusBadRequest)
}

func ErrSettingsInvalid(message string) *AppError {
	return New("VAL_004", message, http.StatusBadRequest)
}

// ---- Ledger (LED) ----

func ErrInsufficientFunds(bucket string) *AppError {
	return New("LED_001", fmt.Sprintf("Insufficient balance in bucket %s", bucket), http.StatusPaymentRequired)
}

func ErrWalletNotFound() *AppError {
	return New("LED_002", "Wallet not found", http.StatusNotFound)
}

// ErrReversalBlocked is returned when a commission reversal would overdraw the
// earning bucket. The commission keeps its current state for manual review.
func ErrReversalBlocked() *AppError {
	return New("LED_003", "Reversal blocked: earnings already spent, manual reconciliation required", http.StatusConflict)
}

// ---- State machines (STM) ----

func ErrInvalidTransition(from, to string) *AppError {
	return New("STM_001", fmt.Sprintf("Invalid transition from %s to %s", from, to), http.StatusConflict)
}

func ErrPayoutBalanceTooLow() *AppError {
	return New("STM_002", "Requested payout exceeds earnings balance", http.StatusUnprocessableEntity)
}

// ---- Attribution (ATTR) ----

func ErrCodeNotFound() *AppError {
	return New("ATTR_001", "Referral or affiliate code not found", http.StatusNotFound)
}

func ErrSessionExpired() *AppError {
	return New("ATTR_002", "Attribution session expired", http.StatusGone)
}

func ErrSessionAbsent() *AppError {
	return New("ATTR_003", "Attribution session not found", http.StatusNotFound)
}

// ---- Generic lookup ----

func ErrNotFound(entity string) *AppError {
	return New("RES_001", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrAlreadyExists(entity string) *AppError {
	return New("RES_002", fmt.Sprintf("%s already exists", entity), http.StatusConflict)
}

// ---- Authentication (AUTH) ----

func ErrInvalidToken() *AppError {
	return New("AUTH_001", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrAdminRequired() *AppError {
	return New("AUTH_002", "Administrator privileges required", http.StatusForbidden)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// ErrStorageConflict is surfaced after bounded retries on write contention.
func ErrStorageConflict(err error) *AppError {
	return Wrap("SYS_002", "Storage conflict, please retry", http.StatusServiceUnavailable, err)
}

func ErrDuplicateEvent() *AppError {
	return New("SYS_003", "Event already processed", http.StatusConflict)
}
