package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/tyebliya/waitlist-api/config"
	"github.com/tyebliya/waitlist-api/internal/guard"
	"github.com/tyebliya/waitlist-api/internal/handlers"
	"github.com/tyebliya/waitlist-api/internal/middleware"
	"github.com/tyebliya/waitlist-api/internal/ratelimit"
	"github.com/tyebliya/waitlist-api/internal/repository"
	"github.com/tyebliya/waitlist-api/internal/services"
	"github.com/tyebliya/waitlist-api/internal/validation"
	"github.com/tyebliya/waitlist-api/pkg/db"
	"github.com/tyebliya/waitlist-api/pkg/httpclient"
	"github.com/tyebliya/waitlist-api/pkg/logger"
	"github.com/tyebliya/waitlist-api/pkg/metrics"
	"github.com/tyebliya/waitlist-api/pkg/profiling"
	"github.com/tyebliya/waitlist-api/pkg/tracing"
	"github.com/tyebliya/waitlist-api/pkg/turnstile"
)

// newSignupLimiter builds the fixed-window limiter on the configured backend
func newSignupLimiter(ctx context.Context, cfg *config.Config) (*ratelimit.FixedWindow, func(), error) {
	limits := ratelimit.Config{
		MaxRequests:   cfg.RateLimit.MaxRequests,
		Window:        cfg.RateLimitWindow(),
		SweepInterval: cfg.RateLimitSweepInterval(),
	}

	if cfg.RateLimit.Backend == config.RateLimitBackendRedis {
		client, err := ratelimit.NewRedisClient(ctx, cfg.RateLimit.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Signup rate limiter using redis")
		return ratelimit.NewFixedWindow(ratelimit.NewRedisStore(client), limits), func() { _ = client.Close() }, nil
	}

	logger.Info("Signup rate limiter using in-process store")
	return ratelimit.NewFixedWindow(ratelimit.NewMemoryStore(limits.Window), limits), func() {}, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	err = logger.Initialize(logger.Config{
		Level:       cfg.Logging.Level,
		LogDir:      cfg.Logging.Dir,
		Environment: cfg.Server.AppEnv,
		ServiceName: cfg.Observability.ServiceName,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting waitlist API",
		zap.String("version", cfg.Observability.ServiceVersion),
		zap.String("environment", cfg.Server.AppEnv),
	)

	tracerShutdown, err := tracing.InitTracer(tracing.Config{
		ServiceName:       cfg.Observability.ServiceName,
		ServiceNamespace:  cfg.Observability.ServiceNamespace,
		ServiceVersion:    cfg.Observability.ServiceVersion,
		ServiceInstanceID: cfg.Observability.ServiceInstanceID,
		Environment:       cfg.Server.AppEnv,
		Endpoint:          cfg.Observability.ExporterEndpoint,
	})
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tracerShutdown(ctx); shutdownErr != nil {
			logger.Error("Failed to shutdown tracer", zap.Error(shutdownErr))
		}
	}()

	stopProfiler, err := profiling.InitProfiler(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize profiler", zap.Error(err))
	}
	defer stopProfiler()

	// Background loops (rate limit sweeps, visitor cleanup) stop with this context
	appCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	// Migrations run separately: ./migrate
	pool, err := db.NewPool(appCtx, db.PoolConfigFrom(cfg.Database))
	if err != nil {
		logger.Fatal("Failed to initialize database connection pool", zap.Error(err))
	}
	defer db.Close(pool)

	signupLimiter, closeLimiter, err := newSignupLimiter(appCtx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize signup rate limiter", zap.Error(err))
	}
	defer closeLimiter()
	signupLimiter.StartSweeper(appCtx)

	httpClient := httpclient.NewStandardClient(10 * time.Second)

	verifier := turnstile.NewVerifier(cfg.Turnstile.SecretKey, cfg.Turnstile.VerifyURL, httpClient)
	if !verifier.Enabled() {
		logger.Warn("Turnstile verification disabled: TURNSTILE_SECRET_KEY not configured")
	}

	waitlistRepo := repository.NewWaitlistRepository(pool)

	statsService := services.NewStatsService(waitlistRepo, cfg.Waitlist.Capacity, cfg.StatsCacheTTL())
	waitlistService := services.NewWaitlistService(
		waitlistRepo,
		guard.NewGate(verifier),
		validation.NewSchema(),
		statsService,
		cfg,
		httpClient,
	)

	waitlistHandler := handlers.NewWaitlistHandler(waitlistService, signupLimiter)
	statsHandler := handlers.NewStatsHandler(statsService)
	healthHandler := handlers.NewHealthHandler(pool.Ping)

	gin.SetMode(cfg.Server.GinMode)
	router := gin.New()

	router.Use(middleware.RecoveryMiddleware())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(otelgin.Middleware(cfg.Observability.ServiceName))
	router.Use(middleware.ObservabilityMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())

	allowedOrigins := cfg.Server.AllowedOrigins
	if cfg.IsDevelopment() {
		allowedOrigins = append(allowedOrigins, "http://localhost:3000", "http://127.0.0.1:3000")
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:  allowedOrigins,
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader, "traceparent", "tracestate"},
		ExposeHeaders: []string{"Content-Length", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}))

	// Token bucket for the read-only routes; signups go through the fixed window inside the handler
	generalRateLimiter := middleware.NewRateLimiter(appCtx, 20, 40)

	api := router.Group("/api")
	api.GET("/healthcheck", generalRateLimiter.Middleware(), healthHandler.Healthcheck)
	api.GET("/metrics", generalRateLimiter.Middleware(), gin.WrapH(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))
	api.GET("/waitlist/stats", generalRateLimiter.Middleware(), statsHandler.GetStats)
	api.POST("/waitlist", middleware.BodySizeLimitMiddleware(middleware.WaitlistBodyLimit), waitlistHandler.Join)

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		logger.Info("Server started", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
