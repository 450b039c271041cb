package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpAdapter "github.com/corebank/ledgersvc/internal/adapter/http"
	"github.com/corebank/ledgersvc/internal/adapter/http/handler"
	postgresRepo "github.com/corebank/ledgersvc/internal/adapter/repository/postgres"
	redisRepo "github.com/corebank/ledgersvc/internal/adapter/repository/redis"
	"github.com/corebank/ledgersvc/internal/infrastructure/config"
	"github.com/corebank/ledgersvc/internal/infrastructure/eventbus"
	"github.com/corebank/ledgersvc/internal/infrastructure/logger"
	"github.com/corebank/ledgersvc/internal/infrastructure/logging"
	"github.com/corebank/ledgersvc/internal/infrastructure/metrics"
	"github.com/corebank/ledgersvc/internal/infrastructure/outbox"
	"github.com/corebank/ledgersvc/internal/infrastructure/postgres"
	"github.com/corebank/ledgersvc/internal/infrastructure/redis"
	"github.com/corebank/ledgersvc/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Setup loggers. zerolog serves the request path, slog the workers.
	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	slogger := logging.New(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)

	ctx := context.Background()

	// Connect to PostgreSQL
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns, cfg.DatabaseTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	// Run migrations
	if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	// Connect to Redis
	redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("connected to redis")

	// Initialize metrics
	appMetrics := metrics.New()

	// Initialize repositories
	txManager := postgresRepo.NewTxManager(pool)
	accountRepo := postgresRepo.NewAccountRepository(pool)
	txnRepo := postgresRepo.NewTransactionRepository(pool)
	legRepo := postgresRepo.NewLegRepository(pool)
	entryRepo := postgresRepo.NewEntryRepository(pool)
	historyRepo := postgresRepo.NewStatusHistoryRepository(pool)
	outboxRepo := postgresRepo.NewOutboxRepository(pool)
	idempotencyStore := redisRepo.NewIdempotencyStore(redisClient)
	cache := redisRepo.NewCache(redisClient)
	idGen := postgresRepo.NewULIDGenerator()
	retrier := postgresRepo.NewRetrier()

	// Initialize use cases
	postingUC := usecase.NewPostingUseCase(txManager, txnRepo, legRepo, entryRepo, historyRepo, outboxRepo, idGen, retrier, cache, cfg.CacheTTL)
	accountUC := usecase.NewAccountUseCase(txManager, accountRepo, outboxRepo, idGen)

	// Initialize handlers
	postingHandler := handler.NewPostingHandler(postingUC)
	accountHandler := handler.NewAccountHandler(accountUC)
	outboxHandler := handler.NewOutboxHandler(outboxRepo)
	healthHandler := handler.NewHealthHandler(pool, redisClient)

	// Create router
	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		PostingHandler:   postingHandler,
		AccountHandler:   accountHandler,
		OutboxHandler:    outboxHandler,
		HealthHandler:    healthHandler,
		IdempotencyStore: idempotencyStore,
		IdempotencyTTL:   cfg.IdempotencyTTL,
		Logger:           &log,
		Metrics:          appMetrics,
	})

	// Select event publisher
	var publisher outbox.Publisher
	switch cfg.EventPublisher {
	case "log":
		publisher = eventbus.NewLogPublisher(slogger.Logger)
	default:
		publisher = eventbus.NewRedisStreamPublisher(redisClient, cfg.EventStream, cfg.EventStreamMaxLen)
	}

	// Start outbox dispatcher
	dispatcher := outbox.NewDispatcher(outbox.Config{
		OutboxRepo:  outboxRepo,
		Publisher:   publisher,
		Logger:      slogger.Logger,
		Metrics:     appMetrics,
		BatchSize:   cfg.OutboxBatchSize,
		Interval:    cfg.OutboxPollInterval,
		ClaimTTL:    cfg.OutboxClaimTTL,
		MaxAttempts: cfg.OutboxMaxAttempts,
	})

	dispatcherCtx, stopDispatcher := context.WithCancel(ctx)
	dispatcherDone := make(chan struct{})
	go func() {
		defer close(dispatcherDone)
		if err := dispatcher.Start(dispatcherCtx); err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("outbox dispatcher stopped")
		}
	}()

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	// Graceful shutdown. Stop accepting requests first, then stop the
	// dispatcher so in-flight postings still get their events claimed later.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	stopDispatcher()
	<-dispatcherDone

	log.Info().Msg("server stopped")
}
