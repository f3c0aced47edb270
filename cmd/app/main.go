package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"openapp-settlement/internal/config"
	"openapp-settlement/internal/domain/model"
	"openapp-settlement/internal/domain/ports/adapter"
	"openapp-settlement/internal/infra/adapters/notify"
	"openapp-settlement/internal/infra/adapters/pinetwork"
	pg "openapp-settlement/internal/infra/db/postgres"
	"openapp-settlement/internal/infra/logging"
	"openapp-settlement/internal/infra/metrics"
	"openapp-settlement/internal/infra/migrations"
	red "openapp-settlement/internal/infra/redis"
	"openapp-settlement/internal/infra/sched"
	"openapp-settlement/internal/infra/web"
	"openapp-settlement/internal/infra/worker"
	"openapp-settlement/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// .env is optional; explicit environment always wins.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("developer mode enabled")
	}

	metrics.MustRegister()

	// ---- Migrations (lib/pq handle, closed after) ----
	mdb, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		logger.Fatal().Err(err).Msg("open migration connection")
	}
	if err := migrations.Up(mdb, *logger); err != nil {
		logger.Fatal().Err(err).Msg("migrations")
	}
	_ = mdb.Close()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, int32(cfg.Database.MaxConns))
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)

	// ---- Repositories ----
	paymentRepo := pg.NewPaymentRepo(pool)
	idemRepo := pg.NewIdempotencyRepo(pool)
	earningsRepo := pg.NewEarningsRepo(pool)
	subRepo := pg.NewSubscriptionRepo(pool)
	affiliateRepo := pg.NewAffiliateRepo(pool)
	profileRepo := pg.NewProfileRepo(pool)
	listingRepo := pg.NewListingRepo(pool)
	txManager := pg.NewTxManager(pool)

	// ---- Notifier ----
	var notifier adapter.Notifier
	if cfg.Notify.TelegramToken != "" && cfg.Notify.ChatID != 0 {
		notifier, err = notify.NewTelegramNotifier(cfg.Notify.TelegramToken, cfg.Notify.ChatID)
		if err != nil {
			logger.Fatal().Err(err).Msg("telegram notifier")
		}
	} else {
		notifier = notify.NewNoopNotifier()
		logger.Info().Msg("telegram notifications disabled")
	}

	// ---- Pi network gateway ----
	gateway, err := pinetwork.NewGateway(cfg.Pi.APIKey, cfg.Pi.BaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("pi gateway")
	}

	// ---- Use cases ----
	earningsUC := usecase.NewEarningsUseCase(earningsRepo, notifier, logger)
	subUC := usecase.NewSubscriptionUseCase(subRepo, profileRepo, notifier, logger)
	affiliateUC := usecase.NewAffiliateUseCase(affiliateRepo, rewardTable(cfg.Settlement), logger)
	settlementUC := usecase.NewSettlementUseCase(
		gateway, paymentRepo, idemRepo, profileRepo, listingRepo,
		earningsUC, subUC, affiliateUC, locker, txManager,
		cfg.Settlement.LockTTL, cfg.Settlement.StaleClaimAge, logger,
	)

	// ---- Background jobs ----
	pool2 := worker.NewPool(cfg.Settlement.Workers, logger)
	pool2.Start(ctx)
	defer pool2.Stop()

	reconciler := sched.NewSettlementReconciler(
		settlementUC, paymentRepo, idemRepo, locker, pool2,
		cfg.Settlement.ReconcileInterval, cfg.Settlement.ReconcileAfter, logger,
	)
	go func() { _ = reconciler.Run(ctx) }()

	expiry := sched.NewExpiryWorker(cfg.Settlement.ExpirySweepInterval, subUC, logger)
	go func() { _ = expiry.Run(ctx) }()

	// ---- HTTP ----
	auth := web.NewAuthManager(cfg.Server.SessionSecret, cfg.Server.AdminAPIKey, cfg.Server.SecureCookies, cfg.Server.SessionTTL)
	srv := web.NewServer(settlementUC, earningsUC, subUC, auth, logger)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	cancel()
}

func rewardTable(s config.SettlementConfig) model.RewardTable {
	parsed := s.RewardTable()
	if parsed == nil {
		return nil
	}
	table := make(model.RewardTable, len(parsed))
	for plan, amt := range parsed {
		table[model.PlanType(plan)] = amt
	}
	return table
}
