package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"goldpayments/config"
	"goldpayments/internal/adapter/advisor"
	"goldpayments/internal/adapter/capture"
	httpHandler "goldpayments/internal/adapter/http/handler"
	memStorage "goldpayments/internal/adapter/storage/memory"
	pgStorage "goldpayments/internal/adapter/storage/postgres"
	redisStorage "goldpayments/internal/adapter/storage/redis"
	sqliteStorage "goldpayments/internal/adapter/storage/sqlite"
	"goldpayments/internal/core/domain"
	"goldpayments/internal/core/ports"
	"goldpayments/internal/service"
	"goldpayments/pkg/logger"
	"goldpayments/pkg/money"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func main() {
	cfg, err := config.Load(os.Getenv("GPV_CONFIG_FILE"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)
	gin.SetMode(cfg.Server.Mode)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Str("storage", cfg.Storage.Driver).
		Msg("Starting GoldPayments Vault")

	ctx := context.Background()

	seed, err := walletSeed(cfg.Wallet)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid wallet seed")
	}
	syncAmount, err := decimal.NewFromString(cfg.Link.SyncAmount)
	if err != nil {
		log.Fatal().Err(err).Str("sync_amount", cfg.Link.SyncAmount).Msg("Invalid link sync amount")
	}
	formatter, err := money.NewFormatter(cfg.Wallet.Locale)
	if err != nil {
		log.Fatal().Err(err).Str("locale", cfg.Wallet.Locale).Msg("Invalid wallet locale")
	}

	// Redis holds sessions, flows, the vault slot, locks and rate limits.
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	sessionStore := redisStorage.NewSessionStore(rdb, cfg.Session.TTL)
	flowStore := redisStorage.NewFlowStore(rdb, cfg.Session.TTL)
	tokenStore := redisStorage.NewTokenStore(rdb, cfg.Session.TTL)
	lockStore := redisStorage.NewLockStore(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)
	checkers := []ports.HealthChecker{redisStorage.NewHealthCheck(rdb)}

	// The ledger and audit trail live in PostgreSQL or SQLite when configured.
	var (
		ledger    ports.LedgerRepository
		auditRepo ports.AuditRepository
	)
	switch cfg.Storage.Driver {
	case "postgres":
		if cfg.Database.AutoMigrate {
			if err := pgStorage.Migrate(cfg.Database.MigrateURL(), log); err != nil {
				log.Fatal().Err(err).Msg("Failed to migrate database")
			}
		}
		pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
		}
		defer pool.Close()

		ledger = pgStorage.NewLedgerRepo(pool)
		auditRepo = pgStorage.NewAuditRepository(pool)
		checkers = append(checkers, pgStorage.NewHealthCheck(pool))
	case "sqlite":
		db, err := sqliteStorage.Open(cfg.Storage.SQLitePath, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open SQLite ledger")
		}
		defer db.Close()

		ledger = sqliteStorage.NewLedgerRepo(db)
		auditRepo = sqliteStorage.NewAuditRepository(db)
		checkers = append(checkers, sqliteStorage.NewHealthCheck(db))
	default:
		ledger = memStorage.NewLedgerRepo(cfg.Session.TTL)
		log.Warn().Msg("Using in-memory ledger; balances are lost on restart")
	}

	cipher, err := service.NewVaultCipher(cfg.Vault.Passphrase, cfg.Vault.Cipher)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize vault cipher")
	}

	jwtSecret := cfg.JWT.Secret
	if jwtSecret == "" {
		jwtSecret = randomSecret()
		log.Warn().Msg("jwt.secret not set, using a random per-process secret")
	}
	tokenSvc := service.NewJWTTokenService(jwtSecret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	generator, err := newGenerator(ctx, cfg.Advice, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize advice generator")
	}

	sessionSvc := service.NewSessionService(
		sessionStore,
		ledger,
		lockStore,
		capture.NewSimulated(cfg.Session.DenyCamera),
		tokenSvc,
		seed,
		cfg.Session.ScanDelay,
		logger.Component(log, "session"),
	)
	syncSvc := service.NewSyncService(cipher, tokenStore, ledger, syncAmount, cfg.Wallet.Currency, logger.Component(log, "vault"))
	linkSvc := service.NewLinkService(
		flowStore,
		lockStore,
		syncSvc,
		cfg.Link.Institutions,
		service.LinkDelays{Step: cfg.Link.StepDelay, Finalize: cfg.Link.FinalizeDelay},
		logger.Component(log, "link"),
	)
	adviceSvc := service.NewAdviceService(
		ledger,
		generator,
		ports.GenerationParams{
			Model:       cfg.Advice.Model,
			Temperature: cfg.Advice.Temperature,
			TopP:        cfg.Advice.TopP,
		},
		cfg.Advice.Timeout,
		logger.Component(log, "advice"),
	)
	dashboardSvc := service.NewDashboardService(ledger, sessionStore, tokenStore, cipher, formatter, logger.Component(log, "dashboard"))
	auditSvc := service.NewAuditService(auditRepo, logger.Component(log, "audit"))

	if specBytes, err := os.ReadFile("docs/api/openapi.yaml"); err == nil {
		httpHandler.SetOpenAPISpec(specBytes)
		log.Info().Msg("OpenAPI spec loaded for Swagger UI at /swagger")
	} else {
		log.Warn().Err(err).Msg("OpenAPI spec not found, Swagger UI will be unavailable")
	}

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		SessionSvc:     sessionSvc,
		DashboardSvc:   dashboardSvc,
		LinkSvc:        linkSvc,
		AdviceSvc:      adviceSvc,
		TokenSvc:       tokenSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: checkers,
		AuditSvc:       auditSvc,
		Logger:         log,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	// Scans and finalizes hold requests open for seconds.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

func walletSeed(cfg config.WalletConfig) (service.WalletSeed, error) {
	balance, err := decimal.NewFromString(cfg.InitialBalance)
	if err != nil {
		return service.WalletSeed{}, fmt.Errorf("wallet.initial_balance: %w", err)
	}
	tier, err := domain.ParseTier(cfg.Tier)
	if err != nil {
		return service.WalletSeed{}, fmt.Errorf("wallet.tier: %w", err)
	}
	return service.WalletSeed{
		Balance:  balance,
		Currency: cfg.Currency,
		Address:  cfg.Address,
		Tier:     tier,
	}, nil
}

// newGenerator picks Gemini when it is configured with a key and falls back
// to the offline generator otherwise.
func newGenerator(ctx context.Context, cfg config.AdviceConfig, log zerolog.Logger) (ports.TextGenerator, error) {
	if cfg.Provider == "gemini" {
		if cfg.APIKey == "" {
			log.Warn().Msg("advice.provider is gemini but advice.api_key is empty, using offline advice")
			return advisor.NewOffline(), nil
		}
		return advisor.NewGemini(ctx, cfg.APIKey, cfg.BaseURL)
	}
	return advisor.NewOffline(), nil
}

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("crypto/rand: %v", err))
	}
	return hex.EncodeToString(b)
}
