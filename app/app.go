package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/fundmesh/transfer-service/configs"
	"github.com/fundmesh/transfer-service/internal/handlers"
	"github.com/fundmesh/transfer-service/internal/services"
	"github.com/fundmesh/transfer-service/pkg"
	"github.com/fundmesh/transfer-service/pkg/cache"
	"github.com/fundmesh/transfer-service/pkg/currency"
	"github.com/fundmesh/transfer-service/pkg/database"
	middleware "github.com/fundmesh/transfer-service/pkg/middlewares"
	"github.com/fundmesh/transfer-service/pkg/repositories"
	"github.com/fundmesh/transfer-service/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const dbConnectAttempts = 5

// NewApp wires dependencies, builds the Gin engine, and returns an *http.Server and a cleanup func.
// It reads configuration from environment variables via configs.Load.
func NewApp(ctx context.Context, logger *zap.Logger) (*http.Server, func(), error) {
	// Load config
	cfg, err := configs.Load(logger)
	if err != nil {
		return nil, nil, err
	}

	// The rate table is frozen at startup; there is no mutable process-wide
	// rate state anywhere else.
	rates := currency.DefaultRates()
	if !utils.IsEmpty(cfg.RatesJSON) {
		if rates, err = currency.ParseRates(cfg.RatesJSON); err != nil {
			return nil, nil, err
		}
	}
	converter, err := currency.NewConverter(rates)
	if err != nil {
		return nil, nil, err
	}

	// Initialize postgres db
	dbConfig := database.Config{
		PrimaryDSN:  cfg.PrimaryDbAddr,
		ReplicaDSNs: []string{cfg.ReplicaDbAddr},
		MaxConns:    cfg.MaxDbCons,
		MinConns:    cfg.MinDbCons,
		LockTimeout: time.Duration(cfg.LockTimeoutMs) * time.Millisecond,
	}
	db, disconnect, err := connectWithRetry(ctx, logger, dbConfig)
	if err != nil {
		return nil, nil, err
	}

	// Run migrations on primary
	if err := database.RunMigrations(logger, cfg.PrimaryDbAddr); err != nil {
		disconnect()
		return nil, nil, err
	}

	// Redis backs the account view cache and the distributed rate limiter;
	// both degrade gracefully when it is not configured.
	var redisClient *redis.Client
	redisCloser := func() {}
	if !utils.IsEmpty(cfg.RedisAddr) {
		redisClient, redisCloser, err = cache.New(ctx, cache.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			disconnect()
			return nil, nil, err
		}
	}

	limiter := pkg.NewDistributedLimiter(redisClient, "global:transfer_rate", cfg.TransferRate, cfg.TransferBurst, time.Minute, logger)

	var publisher services.TransferPublisher = services.NoopPublisher{}
	if !utils.IsEmpty(cfg.KafkaBrokers) {
		publisher = services.NewKafkaPublisher(logger, ctx, cfg)
	}

	// Setup dependencies
	accountRepo := repositories.NewAccountRepository()
	accountCache := services.NewAccountCache(redisClient, logger)

	transferService := services.NewTransferService(logger, converter, accountRepo, db, accountCache, publisher)
	accountService := services.NewAccountService(logger, converter, accountRepo, db, accountCache)

	baseHandler := handlers.NewBaseHandler(logger)
	transferHandler := handlers.NewTransferHandler(logger, transferService)
	accountHandler := handlers.NewAccountHandler(logger, accountService)

	// Router
	r := gin.Default()

	api := r.Group("/api/v1")
	api.Use(middleware.TraceID())
	api.Use(middleware.Metrics())

	transferHandler.RegisterRoutes(api, middleware.RateLimit(limiter))
	accountHandler.RegisterRoutes(api)
	baseHandler.RegisterRoutes(r)

	addr := fmt.Sprintf(":%s", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	cleanup := func() {
		// close db pools
		disconnect()
		// close redis client
		redisCloser()
		// close kafka producer
		publisher.Close()
	}

	return srv, cleanup, nil
}

// connectWithRetry dials the database with jittered backoff so a pod start
// can outlast a short primary failover.
func connectWithRetry(ctx context.Context, logger *zap.Logger, cfg database.Config) (*database.DB, func(), error) {
	var lastErr error
	for attempt := 1; attempt <= dbConnectAttempts; attempt++ {
		db, closer, err := database.New(ctx, logger, cfg)
		if err == nil {
			return db, closer, nil
		}
		lastErr = err
		delay := utils.CalculateExponentialBackoffWithJitter(attempt, time.Second, 30*time.Second)
		logger.Warn("database connection failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, nil, lastErr
}
