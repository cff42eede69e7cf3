package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"reward-ledger/internal/adapter/http/dto"
	"reward-ledger/internal/adapter/http/middleware"
	"reward-ledger/internal/core/domain"
	"reward-ledger/internal/core/ports"
	"reward-ledger/internal/core/ports/mocks"
	"reward-ledger/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func postJSON(t *testing.T, w *httptest.ResponseRecorder, path string, body any) *gin.Context {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	c.Request.Header.Set("Content-Type", "application/json")
	return c
}

func responseData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data, ok := resp["data"].(map[string]interface{})
	require.True(t, ok, "response has no data object: %s", w.Body.String())
	return data
}

// --- Attribution Handler ---

func TestTrack_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAttr := mocks.NewMockAttributionService(ctrl)
	h := NewAttributionHandler(mockAttr)

	session := &domain.AttributionSession{
		SessionID: "sess-abc",
		Code:      "SUMMER10",
		ActorID:   uuid.New(),
		ProductID: "SKU-7",
		CreatedAt: time.Now(),
	}
	mockAttr.EXPECT().Track(gomock.Any(), ports.TrackRequest{
		Code:      "SUMMER10",
		ProductID: "SKU-7",
	}).Return(session, nil)

	w := httptest.NewRecorder()
	c := postJSON(t, w, "/api/v1/attribution/track", dto.TrackRequest{
		Code:      "SUMMER10",
		ProductID: "SKU-7",
	})

	h.Track(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := responseData(t, w)
	assert.Equal(t, "sess-abc", data["session_id"])
	assert.NotEmpty(t, data["expires_at"])
}

func TestTrack_UnknownCode(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAttr := mocks.NewMockAttributionService(ctrl)
	h := NewAttributionHandler(mockAttr)

	mockAttr.EXPECT().Track(gomock.Any(), gomock.Any()).Return(nil, apperror.ErrCodeNotFound())

	w := httptest.NewRecorder()
	c := postJSON(t, w, "/api/v1/attribution/track", dto.TrackRequest{
		Code:      "NOPE",
		ProductID: "SKU-7",
	})

	h.Track(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTrack_ValidationError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAttr := mocks.NewMockAttributionService(ctrl)
	h := NewAttributionHandler(mockAttr)

	// Missing required fields => binding error, service never called.
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("{}")))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Track(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- Order Handler ---

func TestProcessEvent_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockOrder := mocks.NewMockOrderService(ctrl)
	h := NewOrderHandler(mockOrder)

	buyerID := uuid.New()
	basisType := "fixed"
	fixed := int64(50)

	mockOrder.EXPECT().ProcessOrderEvent(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ interface{}, event ports.OrderEvent) (*ports.OrderResult, error) {
			assert.Equal(t, "ORD-1001", event.OrderID)
			assert.Equal(t, buyerID, event.BuyerID)
			require.Len(t, event.Lines, 1)
			require.NotNil(t, event.Lines[0].Basis)
			assert.Equal(t, domain.BasisFixed, event.Lines[0].Basis.Type)
			assert.Equal(t, int64(50), event.Lines[0].Basis.Fixed)
			return &ports.OrderResult{OrderID: "ORD-1001", Attributed: true}, nil
		})

	w := httptest.NewRecorder()
	c := postJSON(t, w, "/api/v1/orders/events", dto.OrderEventRequest{
		OrderID: "ORD-1001",
		BuyerID: buyerID.String(),
		Lines: []dto.OrderLineRequest{
			{ProductID: "SKU-7", UnitPrice: 1000, Quantity: 1, BasisType: &basisType, BasisFixed: &fixed},
		},
	})

	h.ProcessEvent(c)

	assert.Equal(t, http.StatusAccepted, w.Code)
	data := responseData(t, w)
	assert.Equal(t, "ORD-1001", data["order_id"])
	assert.Equal(t, true, data["attributed"])
}

func TestProcessEvent_BadBuyerID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockOrder := mocks.NewMockOrderService(ctrl)
	h := NewOrderHandler(mockOrder)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/",
		bytes.NewReader([]byte(`{"order_id":"ORD-1","buyer_id":"nope","lines":[{"product_id":"SKU-1","unit_price":10,"quantity":1}]}`)))
	c.Request.Header.Set("Content-Type", "application/json")

	h.ProcessEvent(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- Commission Handler ---

func TestConfirmCommission_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockComm := mocks.NewMockCommissionService(ctrl)
	h := NewCommissionHandler(mockComm, nil)

	commissionID := uuid.New()
	adminID := uuid.New()
	mockComm.EXPECT().Confirm(gomock.Any(), commissionID, adminID).
		Return(&domain.Commission{ID: commissionID, Status: domain.CommissionStatusConfirmed}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
	c.Params = gin.Params{{Key: "id", Value: commissionID.String()}}
	c.Set(middleware.CtxAdminID, adminID)

	h.Confirm(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := responseData(t, w)
	assert.Equal(t, string(domain.CommissionStatusConfirmed), data["status"])
}

func TestConfirmCommission_BadID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockComm := mocks.NewMockCommissionService(ctrl)
	h := NewCommissionHandler(mockComm, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
	c.Params = gin.Params{{Key: "id", Value: "not-a-uuid"}}
	c.Set(middleware.CtxAdminID, uuid.New())

	h.Confirm(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReverseCommission_Blocked(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockComm := mocks.NewMockCommissionService(ctrl)
	h := NewCommissionHandler(mockComm, nil)

	commissionID := uuid.New()
	adminID := uuid.New()
	mockComm.EXPECT().Reverse(gomock.Any(), commissionID, "duplicate order", adminID).
		Return(nil, apperror.ErrReversalBlocked())

	w := httptest.NewRecorder()
	c := postJSON(t, w, "/", dto.ReverseCommissionRequest{Reason: "duplicate order"})
	c.Params = gin.Params{{Key: "id", Value: commissionID.String()}}
	c.Set(middleware.CtxAdminID, adminID)

	h.Reverse(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "LED_003", resp["error_code"])
}

// --- Payout Handler ---

func TestProcessPayout_Completed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockPayout := mocks.NewMockPayoutService(ctrl)
	h := NewPayoutHandler(mockPayout, nil)

	payoutID := uuid.New()
	adminID := uuid.New()
	ref := "BANK-REF-42"

	mockPayout.EXPECT().Process(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ interface{}, req ports.PayoutProcessRequest) (*domain.Payout, error) {
			assert.Equal(t, payoutID, req.PayoutID)
			assert.Equal(t, domain.PayoutStatusCompleted, req.Target)
			require.NotNil(t, req.SettlementRef)
			assert.Equal(t, ref, *req.SettlementRef)
			assert.Equal(t, adminID, req.AdminID)
			return &domain.Payout{ID: payoutID, Status: domain.PayoutStatusCompleted}, nil
		})

	w := httptest.NewRecorder()
	c := postJSON(t, w, "/", dto.ProcessPayoutRequest{Target: "completed", SettlementRef: &ref})
	c.Params = gin.Params{{Key: "id", Value: payoutID.String()}}
	c.Set(middleware.CtxAdminID, adminID)

	h.Process(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestPayout_ResolvesActor(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockPayout := mocks.NewMockPayoutService(ctrl)
	mockActors := mocks.NewMockActorRepository(ctrl)
	h := NewPayoutHandler(mockPayout, mockActors)

	userID := uuid.New()
	actorID := uuid.New()
	mockActors.EXPECT().GetByUserID(gomock.Any(), userID).
		Return(&domain.Actor{ID: actorID, UserID: userID, Status: domain.ActorStatusActive}, nil)
	mockPayout.EXPECT().Request(gomock.Any(), userID, int64(500), "bank_transfer").
		Return(&domain.Payout{ID: uuid.New(), ActorID: userID, Amount: 500, Status: domain.PayoutStatusPending}, nil)

	w := httptest.NewRecorder()
	c := postJSON(t, w, "/api/v1/payouts", dto.RequestPayoutRequest{Amount: 500, Method: "bank_transfer"})
	c.Set(middleware.CtxAdminID, userID)

	h.Request(c)

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestRequestPayout_NoActorProfile(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockPayout := mocks.NewMockPayoutService(ctrl)
	mockActors := mocks.NewMockActorRepository(ctrl)
	h := NewPayoutHandler(mockPayout, mockActors)

	userID := uuid.New()
	mockActors.EXPECT().GetByUserID(gomock.Any(), userID).Return(nil, nil)

	w := httptest.NewRecorder()
	c := postJSON(t, w, "/api/v1/payouts", dto.RequestPayoutRequest{Amount: 500, Method: "bank_transfer"})
	c.Set(middleware.CtxAdminID, userID)

	h.Request(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

// --- Wallet Handler ---

func TestAdjustWallet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLedger := mocks.NewMockLedgerService(ctrl)
	h := NewWalletHandler(mockLedger)

	userID := uuid.New()
	adminID := uuid.New()

	mockLedger.EXPECT().Mutate(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ interface{}, req ports.MutationRequest) (*ports.MutationResult, error) {
			assert.Equal(t, userID, req.UserID)
			assert.Equal(t, domain.BucketPromotionalCredits, req.Bucket)
			assert.Equal(t, domain.DirectionCredit, req.Direction)
			assert.Equal(t, int64(100), req.Amount)
			require.NotNil(t, req.AdminID)
			assert.Equal(t, adminID, *req.AdminID)
			return &ports.MutationResult{OldBalance: 0, NewBalance: 100, Total: 100}, nil
		})

	w := httptest.NewRecorder()
	c := postJSON(t, w, "/", dto.AdjustWalletRequest{
		Bucket:    string(domain.BucketPromotionalCredits),
		Direction: "credit",
		Amount:    100,
		Reason:    "goodwill credit",
	})
	c.Params = gin.Params{{Key: "user_id", Value: userID.String()}}
	c.Set(middleware.CtxAdminID, adminID)

	h.Adjust(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := responseData(t, w)
	assert.Equal(t, float64(100), data["new_balance"])
	assert.Equal(t, float64(100), data["total_redeemable_amount"])
}

func TestAdjustWallet_InsufficientFunds(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLedger := mocks.NewMockLedgerService(ctrl)
	h := NewWalletHandler(mockLedger)

	mockLedger.EXPECT().Mutate(gomock.Any(), gomock.Any()).
		Return(nil, apperror.ErrInsufficientFunds(string(domain.BucketAffiliateEarnings)))

	w := httptest.NewRecorder()
	c := postJSON(t, w, "/", dto.AdjustWalletRequest{
		Bucket:    string(domain.BucketAffiliateEarnings),
		Direction: "debit",
		Amount:    10_000,
		Reason:    "clawback",
	})
	c.Params = gin.Params{{Key: "user_id", Value: uuid.New().String()}}
	c.Set(middleware.CtxAdminID, uuid.New())

	h.Adjust(c)

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
}

func TestWalletHistory_BadBucket(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLedger := mocks.NewMockLedgerService(ctrl)
	h := NewWalletHandler(mockLedger)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/?bucket=gold_bars", nil)
	c.Params = gin.Params{{Key: "user_id", Value: uuid.New().String()}}

	h.History(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- Referral Handler ---

func TestUpdateReferralSettings_Invalid(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockReferral := mocks.NewMockReferralService(ctrl)
	h := NewReferralHandler(mockReferral, nil)

	mockReferral.EXPECT().UpdateSettings(gomock.Any(), gomock.Any()).
		Return(nil, apperror.ErrSettingsInvalid("daily_limit exceeds monthly_limit"))

	w := httptest.NewRecorder()
	c := postJSON(t, w, "/", dto.ReferralSettingsRequest{
		Enabled:      true,
		DailyLimit:   10,
		MonthlyLimit: 5,
	})

	h.UpdateSettings(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- Actor Handler ---

func TestCreateActor_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockActors := mocks.NewMockActorRepository(ctrl)
	h := NewActorHandler(mockActors)

	userID := uuid.New()
	mockActors.EXPECT().GetByCode(gomock.Any(), "SUMMER10").Return(nil, nil)
	mockActors.EXPECT().Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, actor *domain.Actor) error {
			assert.Equal(t, userID, actor.UserID)
			assert.Equal(t, "SUMMER10", actor.Code)
			assert.Equal(t, domain.ActorStatusActive, actor.Status)
			return nil
		})

	w := httptest.NewRecorder()
	c := postJSON(t, w, "/api/v1/admin/actors", dto.CreateActorRequest{
		UserID: userID.String(),
		Code:   "SUMMER10",
		Name:   "Summer Campaign",
	})

	h.Create(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := responseData(t, w)
	assert.Equal(t, "SUMMER10", data["code"])
}

func TestCreateActor_DuplicateCode(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockActors := mocks.NewMockActorRepository(ctrl)
	h := NewActorHandler(mockActors)

	mockActors.EXPECT().GetByCode(gomock.Any(), "SUMMER10").
		Return(&domain.Actor{ID: uuid.New(), Code: "SUMMER10"}, nil)

	w := httptest.NewRecorder()
	c := postJSON(t, w, "/api/v1/admin/actors", dto.CreateActorRequest{
		UserID: uuid.New().String(),
		Code:   "SUMMER10",
		Name:   "Summer Campaign",
	})

	h.Create(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "RES_002")
}

func TestGetActor_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockActors := mocks.NewMockActorRepository(ctrl)
	h := NewActorHandler(mockActors)

	actorID := uuid.New()
	mockActors.EXPECT().GetByID(gomock.Any(), actorID).Return(nil, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Params = gin.Params{{Key: "id", Value: actorID.String()}}

	h.Get(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

// --- Middleware ---

func TestAdminOnly_RejectsNonAdmin(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockToken := mocks.NewMockTokenService(ctrl)
	mockToken.EXPECT().Validate("actor-token").
		Return(&ports.TokenClaims{AdminID: uuid.New(), Role: "actor"}, nil)

	r := gin.New()
	r.GET("/admin/ping",
		middleware.JWTAuth(mockToken, testLogger()),
		middleware.AdminOnly(),
		func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req.Header.Set("Authorization", "Bearer actor-token")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestJWTAuth_MissingHeader(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockToken := mocks.NewMockTokenService(ctrl)

	r := gin.New()
	r.GET("/ping", middleware.JWTAuth(mockToken, testLogger()),
		func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
