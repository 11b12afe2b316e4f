package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gaushala-ops/gaushala/internal/app"
	"github.com/gaushala-ops/gaushala/internal/auth"
	"github.com/gaushala-ops/gaushala/internal/csrf"
	"github.com/gaushala-ops/gaushala/internal/gateway"
	"github.com/gaushala-ops/gaushala/internal/observability"
	"github.com/gaushala-ops/gaushala/internal/policy"
	"github.com/gaushala-ops/gaushala/internal/ratelimit"
	"github.com/gaushala-ops/gaushala/internal/session"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	secure := !cfg.IsDevelopment()

	sessions := session.NewManager(cfg.SessionSecret, cfg.SessionFreshTTL, cfg.SessionTTL, cfg.SessionRememberTTL, secure)
	guard := csrf.NewGuard(secure)
	accessPolicy := policy.Default()
	metrics := observability.NewMetrics()

	// The counter backend is decided once at startup: a configured Redis
	// address selects the distributed store with the in-process store as
	// its fail-open fallback, absence selects the in-process store alone.
	local := ratelimit.NewLocalStore()
	limiterOpts := []ratelimit.Option{ratelimit.WithLogger(logger)}
	var store ratelimit.CounterStore = local
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("redis ping", slog.Any("error", err))
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		store = ratelimit.NewRedisStore(redisClient, cfg.CounterTimeout)
		limiterOpts = append(limiterOpts, ratelimit.WithFallback(local))
	}

	limits := gateway.Limits{
		API:      ratelimit.NewLimiter(store, cfg.RateAPIWindow, cfg.RateAPIMax, limiterOpts...),
		Mutation: ratelimit.NewLimiter(store, cfg.RateMutationWindow, cfg.RateMutationMax, limiterOpts...),
		Export:   ratelimit.NewLimiter(store, cfg.RateExportWindow, cfg.RateExportMax, limiterOpts...),
	}

	gw := gateway.New(gateway.Config{
		Logger:    logger,
		Sessions:  sessions,
		Policy:    accessPolicy,
		Guard:     guard,
		Limits:    limits,
		Decisions: metrics,
	})

	seed, err := auth.ParseSeedUsers(cfg.SeedUsers)
	if err != nil {
		logger.Error("parse seed users", slog.Any("error", err))
		os.Exit(1)
	}
	authService := auth.NewService(auth.NewStaticRepository(seed))
	authHandler := auth.NewHandler(logger, authService, sessions, guard, accessPolicy)

	router := app.NewRouter(app.RouterParams{
		Logger:      logger,
		Config:      cfg,
		AuthHandler: authHandler,
		Gateway:     gw,
		Metrics:     metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
