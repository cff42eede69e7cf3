package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"reward-ledger/config"
	httpHandler "reward-ledger/internal/adapter/http/handler"
	pgStorage "reward-ledger/internal/adapter/storage/postgres"
	redisStorage "reward-ledger/internal/adapter/storage/redis"
	"reward-ledger/internal/core/ports"
	"reward-ledger/internal/service"
	"reward-ledger/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Reward Ledger")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	actorRepo := pgStorage.NewActorRepo(pool)
	walletRepo := pgStorage.NewWalletRepo(pool)
	ledgerRepo := pgStorage.NewLedgerRepo(pool)
	commissionRepo := pgStorage.NewCommissionRepo(pool)
	payoutRepo := pgStorage.NewPayoutRepo(pool)
	clickRepo := pgStorage.NewClickRepo(pool)
	referralRepo := pgStorage.NewReferralRepo(pool)
	eventRepo := pgStorage.NewEventRepo(pool)
	auditRepo := pgStorage.NewAuditRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	sessionStore := redisStorage.NewSessionStore(rdb)
	eventCache := redisStorage.NewEventCache(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Initialize core services
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Issuer)
	sigSvc := service.NewHMACSignatureService()
	notifier := service.NewHTTPNotifier(
		cfg.Notifier.Endpoint,
		cfg.Notifier.SecretKey,
		sigSvc,
		&http.Client{Timeout: 10 * time.Second},
		log,
	)
	auditSvc := service.NewAuditService(auditRepo, log)

	// Initialize business services
	ledgerSvc := service.NewLedgerService(walletRepo, ledgerRepo, transactor, log)
	attributionSvc := service.NewAttributionService(actorRepo, clickRepo, sessionStore, log)
	referralSvc := service.NewReferralService(referralRepo, log)
	commissionSvc := service.NewCommissionService(commissionRepo, ledgerSvc, transactor, notifier, log)
	payoutSvc := service.NewPayoutService(payoutRepo, ledgerSvc, transactor, notifier, log)
	orderSvc := service.NewOrderService(
		attributionSvc,
		actorRepo,
		commissionRepo,
		eventRepo,
		eventCache,
		ledgerSvc,
		referralSvc,
		transactor,
		log,
	)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Load OpenAPI spec for Swagger UI
	if specBytes, err := os.ReadFile("docs/api/openapi.yaml"); err == nil {
		httpHandler.SetSwaggerSpec(specBytes)
		log.Info().Msg("OpenAPI spec loaded for Swagger UI at /swagger")
	} else {
		log.Warn().Err(err).Msg("OpenAPI spec not found, Swagger UI will be unavailable")
	}

	// Setup Gin router with all routes
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
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		AuditSvc:       auditSvc,
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
