package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	httpHandler "reward-ledger/internal/adapter/http/handler"
	redisStorage "reward-ledger/internal/adapter/storage/redis"
	"reward-ledger/internal/core/domain"
	"reward-ledger/internal/core/ports"
	"reward-ledger/internal/service"
	"reward-ledger/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testJWTSecret = "integration-test-secret-32bytes!"
	testJWTIssuer = "storefront-identity"
)

// testApp builds the full application stack against in-memory Redis
// (miniredis) and in-memory postgres repos. This exercises the real HTTP
// layer, middleware, handlers, services, and Redis stores end-to-end.

type testApp struct {
	server     *httptest.Server
	redis      *miniredis.Miniredis
	actorRepo  *inMemoryActorRepo
	walletRepo *inMemoryWalletRepo
	auditRepo  *inMemoryAuditRepo
	ledgerSvc  ports.LedgerService
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})

	// Redis stores
	sessionStore := redisStorage.NewSessionStore(rdb)
	eventCache := redisStorage.NewEventCache(rdb)

	// In-memory repos
	actorRepo := newInMemoryActorRepo()
	walletRepo := newInMemoryWalletRepo()
	ledgerRepo := newInMemoryLedgerRepo()
	commissionRepo := newInMemoryCommissionRepo()
	payoutRepo := newInMemoryPayoutRepo()
	clickRepo := newInMemoryClickRepo()
	eventRepo := newInMemoryEventRepo()
	referralRepo := newInMemoryReferralRepo(eventRepo)
	auditRepo := newInMemoryAuditRepo()
	transactor := newLockingTransactor()

	log := logger.New("debug", false)
	tokenSvc := service.NewJWTTokenService(testJWTSecret, testJWTIssuer)

	// Business services. No notifier: delivery is best-effort and out of
	// scope here.
	ledgerSvc := service.NewLedgerService(walletRepo, ledgerRepo, transactor, log)
	attributionSvc := service.NewAttributionService(actorRepo, clickRepo, sessionStore, log)
	referralSvc := service.NewReferralService(referralRepo, log)
	commissionSvc := service.NewCommissionService(commissionRepo, ledgerSvc, transactor, nil, log)
	payoutSvc := service.NewPayoutService(payoutRepo, ledgerSvc, transactor, nil, log)
	orderSvc := service.NewOrderService(attributionSvc, actorRepo, commissionRepo, eventRepo, eventCache, ledgerSvc, referralSvc, transactor, log)
	auditSvc := service.NewAuditService(auditRepo, log)

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AttributionSvc: attributionSvc,
		OrderSvc:       orderSvc,
		CommissionSvc:  commissionSvc,
		PayoutSvc:      payoutSvc,
		LedgerSvc:      ledgerSvc,
		ReferralSvc:    referralSvc,
		ActorRepo:      actorRepo,
		ReferralRepo:   referralRepo,
		AuditRepo:      auditRepo,
		TokenSvc:       tokenSvc,
		HealthCheckers: []ports.HealthChecker{redisStorage.NewHealthCheck(rdb)},
		AuditSvc:       auditSvc,
		Logger:         log,
	})

	server := httptest.NewServer(router)

	return &testApp{
		server:     server,
		redis:      mr,
		actorRepo:  actorRepo,
		walletRepo: walletRepo,
		auditRepo:  auditRepo,
		ledgerSvc:  ledgerSvc,
	}
}

func (a *testApp) close() {
	a.server.Close()
	a.redis.Close()
}

// seedActor registers an active affiliate and returns it.
func (a *testApp) seedActor(t *testing.T, code string) *domain.Actor {
	t.Helper()
	now := time.Now().UTC()
	actor := &domain.Actor{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		Code:      code,
		Name:      "Test Affiliate",
		Status:    domain.ActorStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, a.actorRepo.Create(t.Context(), actor))
	return actor
}

func mintToken(t *testing.T, subject uuid.UUID, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  subject.String(),
		"role": role,
		"iss":  testJWTIssuer,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return signed
}

// doJSON sends a JSON request with an optional bearer token and returns the
// decoded response body.
func (a *testApp) doJSON(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, a.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp.StatusCode, decoded
}

func data(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	d, ok := body["data"].(map[string]any)
	require.True(t, ok, "expected data envelope, got %v", body)
	return d
}

// trackClick runs the track endpoint and returns the issued session id.
func (a *testApp) trackClick(t *testing.T, code, productID string) string {
	t.Helper()
	status, body := a.doJSON(t, http.MethodPost, "/api/v1/attribution/track", "", map[string]any{
		"code":         code,
		"product_id":   productID,
		"device_class": "mobile",
	})
	require.Equal(t, http.StatusCreated, status)
	sessionID, _ := data(t, body)["session_id"].(string)
	require.NotEmpty(t, sessionID)
	return sessionID
}

// --- Integration Tests ---

func TestIntegration_HealthCheck(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	resp, err := http.Get(app.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
}

func TestIntegration_ClickToCommissionFlow(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	actor := app.seedActor(t, "SUMMER2026")
	sessionID := app.trackClick(t, "SUMMER2026", "SKU-100")

	event := map[string]any{
		"order_id":   "ORD-1001",
		"session_id": sessionID,
		"lines": []map[string]any{
			{
				"product_id":  "SKU-100",
				"unit_price":  2500,
				"quantity":    2,
				"basis_type":  "fixed",
				"basis_fixed": 150,
			},
		},
	}

	status, body := app.doJSON(t, http.MethodPost, "/api/v1/orders/events", "", event)
	require.Equal(t, http.StatusAccepted, status)
	result := data(t, body)
	assert.Equal(t, true, result["attributed"])
	commissions, ok := result["commissions"].([]any)
	require.True(t, ok)
	require.Len(t, commissions, 1)
	assert.Equal(t, float64(300), commissions[0].(map[string]any)["amount"])
	assert.Equal(t, "pending", commissions[0].(map[string]any)["status"])

	// The earning bucket was credited optimistically.
	wallet, err := app.ledgerSvc.GetWallet(t.Context(), actor.UserID)
	require.NoError(t, err)
	assert.Equal(t, int64(300), wallet.AffiliateEarnings)
	assert.Equal(t, int64(300), wallet.TotalRedeemable)

	// Redelivery of the same order returns the cached result without a
	// second credit.
	status, body = app.doJSON(t, http.MethodPost, "/api/v1/orders/events", "", event)
	require.Equal(t, http.StatusAccepted, status)
	replay := data(t, body)
	assert.Equal(t, "ORD-1001", replay["order_id"])
	assert.Equal(t, true, replay["attributed"])

	wallet, err = app.ledgerSvc.GetWallet(t.Context(), actor.UserID)
	require.NoError(t, err)
	assert.Equal(t, int64(300), wallet.AffiliateEarnings)
}

func TestIntegration_SessionResolvesOnce(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	app.seedActor(t, "ONESHOT")
	sessionID := app.trackClick(t, "ONESHOT", "SKU-1")

	line := map[string]any{
		"product_id":  "SKU-1",
		"unit_price":  1000,
		"quantity":    1,
		"basis_type":  "fixed",
		"basis_fixed": 100,
	}

	status, body := app.doJSON(t, http.MethodPost, "/api/v1/orders/events", "", map[string]any{
		"order_id":   "ORD-A",
		"session_id": sessionID,
		"lines":      []map[string]any{line},
	})
	require.Equal(t, http.StatusAccepted, status)
	assert.Equal(t, true, data(t, body)["attributed"])

	// The session was consumed by the first order; a second order carrying
	// it proceeds unattributed.
	status, body = app.doJSON(t, http.MethodPost, "/api/v1/orders/events", "", map[string]any{
		"order_id":   "ORD-B",
		"session_id": sessionID,
		"lines":      []map[string]any{line},
	})
	require.Equal(t, http.StatusAccepted, status)
	result := data(t, body)
	assert.Equal(t, false, result["attributed"])
	assert.Nil(t, result["commissions"])
}

func TestIntegration_UnknownCodeRejected(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	status, body := app.doJSON(t, http.MethodPost, "/api/v1/attribution/track", "", map[string]any{
		"code":       "NOSUCHCODE",
		"product_id": "SKU-1",
	})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "ATTR_001", body["error_code"])
}

func TestIntegration_ReferralRewards(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	actor := app.seedActor(t, "FRIEND50")
	adminToken := mintToken(t, uuid.New(), "admin")

	status, body := app.doJSON(t, http.MethodPut, "/api/v1/admin/referral-settings", adminToken, map[string]any{
		"enabled":               true,
		"referrer_reward_coins": 50,
		"referee_reward_amount": 25,
		"min_order_value":       0,
		"per_user_limit":        0,
		"daily_limit":           0,
		"monthly_limit":         0,
		"allow_self_referral":   false,
		"first_order_only":      false,
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, data(t, body)["enabled"])

	buyer := uuid.New()
	sessionID := app.trackClick(t, "FRIEND50", "SKU-9")
	status, body = app.doJSON(t, http.MethodPost, "/api/v1/orders/events", "", map[string]any{
		"order_id":   "ORD-REF-1",
		"buyer_id":   buyer.String(),
		"session_id": sessionID,
		"lines": []map[string]any{
			{"product_id": "SKU-9", "unit_price": 5000, "quantity": 1},
		},
	})
	require.Equal(t, http.StatusAccepted, status)
	referral, ok := data(t, body)["referral"].(map[string]any)
	require.True(t, ok, "expected a referral evaluation in the result")
	assert.Equal(t, "allowed", referral["status"])

	// Both sides were rewarded into their respective buckets.
	referrerWallet, err := app.ledgerSvc.GetWallet(t.Context(), actor.UserID)
	require.NoError(t, err)
	assert.Equal(t, int64(50), referrerWallet.ReferralRewards)

	buyerWallet, err := app.ledgerSvc.GetWallet(t.Context(), buyer)
	require.NoError(t, err)
	assert.Equal(t, int64(25), buyerWallet.PromotionalCredits)
}

func TestIntegration_SelfReferralBlocked(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	actor := app.seedActor(t, "SELFIE")
	adminToken := mintToken(t, uuid.New(), "admin")

	status, _ := app.doJSON(t, http.MethodPut, "/api/v1/admin/referral-settings", adminToken, map[string]any{
		"enabled":               true,
		"referrer_reward_coins": 50,
		"referee_reward_amount": 25,
	})
	require.Equal(t, http.StatusOK, status)

	// The actor buys through their own code.
	sessionID := app.trackClick(t, "SELFIE", "SKU-2")
	status, body := app.doJSON(t, http.MethodPost, "/api/v1/orders/events", "", map[string]any{
		"order_id":   "ORD-SELF-1",
		"buyer_id":   actor.UserID.String(),
		"session_id": sessionID,
		"lines": []map[string]any{
			{"product_id": "SKU-2", "unit_price": 3000, "quantity": 1},
		},
	})
	require.Equal(t, http.StatusAccepted, status)
	referral, ok := data(t, body)["referral"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "blocked", referral["status"])
	assert.Contains(t, referral["fraud_flags"], "self_referral")

	// No referral reward moved.
	wallet, err := app.ledgerSvc.GetWallet(t.Context(), actor.UserID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), wallet.ReferralRewards)

	// The blocked transaction surfaces in the admin review queue.
	status, body = app.doJSON(t, http.MethodGet, "/api/v1/admin/referrals/blocked", adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), data(t, body)["total"])
}

func TestIntegration_ConfirmAndPayoutLifecycle(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	actor := app.seedActor(t, "PAYDAY")
	adminToken := mintToken(t, uuid.New(), "admin")
	actorToken := mintToken(t, actor.UserID, "actor")

	// Earn a commission.
	sessionID := app.trackClick(t, "PAYDAY", "SKU-7")
	status, body := app.doJSON(t, http.MethodPost, "/api/v1/orders/events", "", map[string]any{
		"order_id":   "ORD-PAY-1",
		"session_id": sessionID,
		"lines": []map[string]any{
			{"product_id": "SKU-7", "unit_price": 10000, "quantity": 1, "basis_type": "percentage", "basis_percent": "7.5"},
		},
	})
	require.Equal(t, http.StatusAccepted, status)
	commissions := data(t, body)["commissions"].([]any)
	require.Len(t, commissions, 1)
	commissionID := commissions[0].(map[string]any)["id"].(string)
	assert.Equal(t, float64(750), commissions[0].(map[string]any)["amount"])

	// Admin confirms it.
	status, body = app.doJSON(t, http.MethodPost, "/api/v1/admin/commissions/"+commissionID+"/confirm", adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "confirmed", data(t, body)["status"])

	// Confirming twice is an invalid transition.
	status, body = app.doJSON(t, http.MethodPost, "/api/v1/admin/commissions/"+commissionID+"/confirm", adminToken, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "STM_001", body["error_code"])

	// The actor sees it in their console.
	status, body = app.doJSON(t, http.MethodGet, "/api/v1/commissions/stats", actorToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(750), data(t, body)["total_confirmed"])

	// A payout over the balance is rejected.
	status, body = app.doJSON(t, http.MethodPost, "/api/v1/payouts", actorToken, map[string]any{
		"amount": 10000,
		"method": "bank_transfer",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "STM_002", body["error_code"])

	// A covered payout request is accepted but holds nothing yet.
	status, body = app.doJSON(t, http.MethodPost, "/api/v1/payouts", actorToken, map[string]any{
		"amount": 750,
		"method": "bank_transfer",
	})
	require.Equal(t, http.StatusCreated, status)
	payout := data(t, body)
	payoutID := payout["id"].(string)
	assert.Equal(t, "pending", payout["status"])

	wallet, err := app.ledgerSvc.GetWallet(t.Context(), actor.UserID)
	require.NoError(t, err)
	assert.Equal(t, int64(750), wallet.AffiliateEarnings)

	// Admin walks it through processing to completed.
	status, _ = app.doJSON(t, http.MethodPost, "/api/v1/admin/payouts/"+payoutID+"/process", adminToken, map[string]any{
		"target": "processing",
	})
	require.Equal(t, http.StatusOK, status)

	status, body = app.doJSON(t, http.MethodPost, "/api/v1/admin/payouts/"+payoutID+"/process", adminToken, map[string]any{
		"target":         "completed",
		"settlement_ref": "BANK-REF-42",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "completed", data(t, body)["status"])

	// Settlement debited the wallet exactly once.
	wallet, err = app.ledgerSvc.GetWallet(t.Context(), actor.UserID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), wallet.AffiliateEarnings)

	// The state machine is terminal.
	status, body = app.doJSON(t, http.MethodPost, "/api/v1/admin/payouts/"+payoutID+"/process", adminToken, map[string]any{
		"target": "completed",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "STM_001", body["error_code"])

	// Admin actions land in the audit log (written asynchronously).
	require.Eventually(t, func() bool {
		return len(app.auditRepo.byActionSubstring("CONFIRM_COMMISSION")) >= 1 &&
			len(app.auditRepo.byActionSubstring("PROCESS_PAYOUT")) >= 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestIntegration_WalletAdjustment(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	adminToken := mintToken(t, uuid.New(), "admin")
	userID := uuid.New()
	base := fmt.Sprintf("/api/v1/admin/wallets/%s", userID)

	status, body := app.doJSON(t, http.MethodPost, base+"/adjust", adminToken, map[string]any{
		"bucket":    "loyalty_coins",
		"direction": "credit",
		"amount":    500,
		"reason":    "Goodwill gesture",
	})
	require.Equal(t, http.StatusOK, status)
	adjusted := data(t, body)
	assert.Equal(t, float64(0), adjusted["old_balance"])
	assert.Equal(t, float64(500), adjusted["new_balance"])
	assert.Equal(t, float64(500), adjusted["total_redeemable_amount"])

	// Overdrafts are refused, never clamped.
	status, body = app.doJSON(t, http.MethodPost, base+"/adjust", adminToken, map[string]any{
		"bucket":    "loyalty_coins",
		"direction": "debit",
		"amount":    600,
		"reason":    "Chargeback",
	})
	assert.Equal(t, http.StatusPaymentRequired, status)
	assert.Equal(t, "LED_001", body["error_code"])

	// History shows the single credit.
	status, body = app.doJSON(t, http.MethodGet, base+"/transactions", adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	history := data(t, body)
	assert.Equal(t, float64(1), history["total"])
	items := history["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "Goodwill gesture", items[0].(map[string]any)["reason"])
}

func TestIntegration_AdminAccessControl(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	// No token at all.
	status, body := app.doJSON(t, http.MethodGet, "/api/v1/admin/audit-logs", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "AUTH_001", body["error_code"])

	// Valid token, wrong role.
	actorToken := mintToken(t, uuid.New(), "actor")
	status, body = app.doJSON(t, http.MethodGet, "/api/v1/admin/audit-logs", actorToken, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "AUTH_002", body["error_code"])

	// Token signed with the wrong key.
	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  uuid.NewString(),
		"role": "admin",
		"iss":  testJWTIssuer,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	forgedStr, err := forged.SignedString([]byte("wrong-secret"))
	require.NoError(t, err)
	status, body = app.doJSON(t, http.MethodGet, "/api/v1/admin/audit-logs", forgedStr, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "AUTH_001", body["error_code"])
}

func TestIntegration_SessionExpiry(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	app.seedActor(t, "EXPIRES")
	sessionID := app.trackClick(t, "EXPIRES", "SKU-3")

	// The Redis TTL discards the session after the attribution window.
	app.redis.FastForward(domain.SessionTTL + time.Minute)

	status, body := app.doJSON(t, http.MethodPost, "/api/v1/orders/events", "", map[string]any{
		"order_id":   "ORD-LATE-1",
		"session_id": sessionID,
		"lines": []map[string]any{
			{"product_id": "SKU-3", "unit_price": 1000, "quantity": 1, "basis_type": "fixed", "basis_fixed": 100},
		},
	})
	require.Equal(t, http.StatusAccepted, status)
	assert.Equal(t, false, data(t, body)["attributed"])
}
