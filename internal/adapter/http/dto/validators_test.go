package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// --- SanitizeStruct tests ---

func TestSanitizeStruct_TrimsWhitespace(t *testing.T) {
	req := TrackRequest{
		Code:      "  SUMMER10  ",
		ProductID: " SKU-7 ",
		Campaign:  " spring-launch ",
	}
	SanitizeStruct(&req)

	assert.Equal(t, "SUMMER10", req.Code)
	assert.Equal(t, "SKU-7", req.ProductID)
	assert.Equal(t, "spring-launch", req.Campaign)
}

func TestSanitizeStruct_EscapesHTML(t *testing.T) {
	reason := "duplicate <script>alert('x')</script> order"
	req := ReverseCommissionRequest{Reason: reason}
	SanitizeStruct(&req)

	assert.Contains(t, req.Reason, "&lt;script&gt;")
	assert.NotContains(t, req.Reason, "<script>")
}

func TestSanitizeStruct_HandlesPointerString(t *testing.T) {
	ref := "  BANK-REF-42  "
	req := ProcessPayoutRequest{
		Target:        "completed",
		SettlementRef: &ref,
	}
	SanitizeStruct(&req)

	assert.Equal(t, "BANK-REF-42", *req.SettlementRef)
}

func TestSanitizeStruct_NilPointerIsNoOp(t *testing.T) {
	req := ProcessPayoutRequest{Target: "failed"}
	SanitizeStruct(&req)
	assert.Nil(t, req.SettlementRef)
	assert.Nil(t, req.Notes)
}

func TestSanitizeStruct_NonPointerIsNoOp(t *testing.T) {
	s := "hello"
	SanitizeStruct(s) // should not panic
}

// --- Custom validator tests ---

func TestSafeID_Valid(t *testing.T) {
	cases := []string{
		"ORD-1001",
		"SKU_7",
		"a.b.c",
		"simple123",
		"ABC-def_GHI.123",
	}
	for _, tc := range cases {
		assert.True(t, safeStringRe.MatchString(tc), "expected valid: %s", tc)
	}
}

func TestSafeID_Invalid(t *testing.T) {
	cases := []string{
		"ORD 1001",    // space
		"ORD<1001>",   // angle brackets
		"ORD;DROP",    // semicolon
		"",            // empty
		"hello world", // space
		"ORD\n1001",   // newline
	}
	for _, tc := range cases {
		assert.False(t, safeStringRe.MatchString(tc), "expected invalid: %s", tc)
	}
}
