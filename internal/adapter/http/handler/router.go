package handler

import (
	"reward-ledger/internal/adapter/http/middleware"
	redisStore "reward-ledger/internal/adapter/storage/redis"
	"reward-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AttributionSvc ports.AttributionService
	OrderSvc       ports.OrderService
	CommissionSvc  ports.CommissionService
	PayoutSvc      ports.PayoutService
	LedgerSvc      ports.LedgerService
	ReferralSvc    ports.ReferralService
	ActorRepo      ports.ActorRepository
	ReferralRepo   ports.ReferralRepository
	AuditRepo      ports.AuditRepository
	TokenSvc       ports.TokenService
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	AuditSvc       ports.AuditService // nil = audit logging disabled
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Audit logging (after response)
	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// API documentation
	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Public routes (storefront-facing, no auth) ---
	attributionHandler := NewAttributionHandler(deps.AttributionSvc)
	v1.POST("/attribution/track", rl("track"), attributionHandler.Track)

	orderHandler := NewOrderHandler(deps.OrderSvc)
	v1.POST("/orders/events", rl("order_events"), orderHandler.ProcessEvent)

	// --- JWT-authenticated routes (actor console) ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	commissionHandler := NewCommissionHandler(deps.CommissionSvc, deps.ActorRepo)
	payoutHandler := NewPayoutHandler(deps.PayoutSvc, deps.ActorRepo)
	walletHandler := NewWalletHandler(deps.LedgerSvc)

	commissions := v1.Group("/commissions", jwtAuth)
	{
		commissions.GET("", rl("admin_read"), commissionHandler.ListMine)
		commissions.GET("/stats", rl("admin_read"), commissionHandler.StatsMine)
	}

	payouts := v1.Group("/payouts", jwtAuth)
	{
		payouts.POST("", rl("payouts"), payoutHandler.Request)
		payouts.GET("", rl("admin_read"), payoutHandler.ListMine)
	}

	wallets := v1.Group("/wallets/me", jwtAuth)
	{
		wallets.GET("", rl("admin_read"), walletHandler.GetMine)
		wallets.GET("/transactions", rl("admin_read"), walletHandler.HistoryMine)
	}

	// --- Admin routes (JWT + admin role, audited) ---
	referralHandler := NewReferralHandler(deps.ReferralSvc, deps.ReferralRepo)
	auditHandler := NewAuditHandler(deps.AuditRepo)

	actorHandler := NewActorHandler(deps.ActorRepo)

	admin := v1.Group("/admin", jwtAuth, middleware.AdminOnly())
	{
		admin.POST("/actors", rl("admin_write"), actorHandler.Create)
		admin.GET("/actors/:id", rl("admin_read"), actorHandler.Get)

		admin.POST("/commissions/:id/confirm", rl("admin_write"), commissionHandler.Confirm)
		admin.POST("/commissions/:id/reverse", rl("admin_write"), commissionHandler.Reverse)

		admin.POST("/payouts/:id/process", rl("admin_write"), payoutHandler.Process)

		admin.GET("/wallets/:user_id", rl("admin_read"), walletHandler.Get)
		admin.GET("/wallets/:user_id/transactions", rl("admin_read"), walletHandler.History)
		admin.POST("/wallets/:user_id/adjust", rl("admin_write"), walletHandler.Adjust)

		admin.GET("/referral-settings", rl("admin_read"), referralHandler.GetSettings)
		admin.PUT("/referral-settings", rl("admin_write"), referralHandler.UpdateSettings)
		admin.GET("/referrals/blocked", rl("admin_read"), referralHandler.ListBlocked)

		admin.GET("/audit-logs", rl("admin_read"), auditHandler.List)
	}

	return r
}
