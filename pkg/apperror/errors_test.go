package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without wrapped error",
			appErr:   New("LED_001", "Insufficient funds", http.StatusPaymentRequired),
			expected: "[LED_001] Insufficient funds",
		},
		{
			name:     "with wrapped error",
			appErr:   Wrap("SYS_001", "DB error", http.StatusInternalServerError, fmt.Errorf("connection refused")),
			expected: "[SYS_001] DB error: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.appErr.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("inner error")
	appErr := Wrap("SYS_001", "wrapped", http.StatusInternalServerError, inner)

	assert.True(t, errors.Is(appErr, inner))
}

func TestAppError_IsNilUnwrap(t *testing.T) {
	appErr := New("VAL_001", "test", http.StatusBadRequest)
	assert.Nil(t, appErr.Unwrap())
}

func TestLedgerErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"InsufficientFunds", ErrInsufficientFunds("affiliate_earnings"), "LED_001", 402},
		{"WalletNotFound", ErrWalletNotFound(), "LED_002", 404},
		{"ReversalBlocked", ErrReversalBlocked(), "LED_003", 409},
		{"InvalidAmount", ErrInvalidAmount(), "VAL_002", 400},
		{"NonIntegerCoins", ErrNonIntegerCoins(), "VAL_003", 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestInsufficientFundsNamesBucket(t *testing.T) {
	err := ErrInsufficientFunds("loyalty_coins")
	assert.Contains(t, err.Message, "loyalty_coins")
}

func TestStateMachineErrors(t *testing.T) {
	err := ErrInvalidTransition("confirmed", "confirmed")
	assert.Equal(t, "STM_001", err.Code)
	assert.Equal(t, http.StatusConflict, err.HTTPStatus)
	assert.Contains(t, err.Message, "confirmed")

	assert.Equal(t, "STM_002", ErrPayoutBalanceTooLow().Code)
}

func TestAttributionErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"CodeNotFound", ErrCodeNotFound(), "ATTR_001", 404},
		{"SessionExpired", ErrSessionExpired(), "ATTR_002", 410},
		{"SessionAbsent", ErrSessionAbsent(), "ATTR_003", 404},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestSystemErrors(t *testing.T) {
	inner := fmt.Errorf("serialization failure")
	err := ErrStorageConflict(inner)
	assert.Equal(t, "SYS_002", err.Code)
	assert.Equal(t, http.StatusServiceUnavailable, err.HTTPStatus)
	assert.True(t, errors.Is(err, inner))

	assert.Equal(t, "SYS_003", ErrDuplicateEvent().Code)
}
