package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/mergington/activities/internal/events"
	"github.com/mergington/activities/internal/featureflags"
	"github.com/mergington/activities/internal/handler"
	"github.com/mergington/activities/internal/infrastructure/logger"
	redisinfra "github.com/mergington/activities/internal/infrastructure/redis"
	"github.com/mergington/activities/internal/observability/metrics"
	"github.com/mergington/activities/internal/observability/tracing"
	"github.com/mergington/activities/internal/repository"
	"github.com/mergington/activities/internal/security/audit"
	"github.com/mergington/activities/internal/security/auth"
	"github.com/mergington/activities/internal/security/middleware"
	"github.com/mergington/activities/internal/security/ratelimit"
	"github.com/mergington/activities/internal/service"
	"github.com/mergington/activities/internal/worker"
	"github.com/mergington/activities/pkg/cache"
	"github.com/mergington/activities/pkg/config"
	"github.com/mergington/activities/pkg/database"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("starting activities server", slog.String("environment", cfg.Environment))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Optional tracing
	shutdownTracing, err := tracing.Init(ctx, log, "activities", cfg.Environment)
	if err != nil {
		log.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Connect to Postgres and apply the schema
	pool, err := database.NewConnectionPool(ctx, &database.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Database: cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	}, log)
	if err != nil {
		log.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Migrate(ctx); err != nil {
		log.Error("failed to migrate database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 5. Redis backs the cross-instance roster feed. The server still runs
	// without it; events stay instance-local.
	var redisClient *redisinfra.Client
	if featureflags.Enabled("LIVE_FEED") {
		redisClient, err = redisinfra.NewClient(cfg.RedisURL)
		if err != nil {
			log.Error("failed to connect to Redis", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer redisClient.Close()
	}

	// 6. Repositories
	db := pool.GetDB()
	userRepo := repository.NewPostgresUserRepository(db, log)
	activityRepo := repository.NewPostgresActivityRepository(db, log)
	registrationRepo := repository.NewPostgresRegistrationRepository(db, log)

	// 7. Services
	tokenManager := auth.NewTokenManager(cfg.JWTSecret, "mergington-activities")
	authService := service.NewAuthService(userRepo, tokenManager, cfg.TokenTTL, log)
	catalogService := service.NewCatalogService(activityRepo, cache.New(), log)

	hub := events.NewHub(redisClient, log)
	go hub.Run(ctx)

	registrationService := service.NewRegistrationService(userRepo, activityRepo, registrationRepo, hub, log)

	// 8. Seed the starter catalog exactly once
	if err := catalogService.SeedIfEmpty(ctx); err != nil {
		log.Error("failed to seed catalog", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 9. Handlers and security components
	auditLogger := audit.NewLogger(log)
	rateLimiter := ratelimit.NewLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)

	authHandler := handler.NewAuthHandler(authService, auditLogger, log)
	activitiesHandler := handler.NewActivitiesHandler(catalogService, log)
	registrationHandler := handler.NewRegistrationHandler(registrationService, catalogService, auditLogger, log)
	healthHandler := handler.NewHealthHandler(handler.PingerFunc(pool.Health), redisPinger(redisClient), log)
	feedHandler := handler.NewFeedHandler(hub, log, cfg.CORSAllowedOrigins)

	// 10. Routes
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/register", authHandler.Register)
	mux.HandleFunc("POST /api/login", authHandler.Login)
	mux.Handle("GET /api/me", middleware.RequireAuth(authService, log)(http.HandlerFunc(authHandler.Me)))
	mux.HandleFunc("GET /api/activities", activitiesHandler.List)
	mux.HandleFunc("POST /api/activities", activitiesHandler.Create)
	mux.HandleFunc("POST /api/activities/{id}/signup", registrationHandler.Signup)
	mux.HandleFunc("DELETE /api/activities/{id}/unregister", registrationHandler.Unregister)
	mux.HandleFunc("GET /healthz", healthHandler.Health)
	mux.HandleFunc("GET /readyz", healthHandler.Ready)
	mux.Handle("/metrics", promhttp.Handler())
	if featureflags.Enabled("LIVE_FEED") {
		mux.Handle("GET /ws/activities", feedHandler)
	}

	// CORS middleware honoring configured origins
	handlerWithCORS := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if originAllowed(cfg.CORSAllowedOrigins, origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else if len(cfg.CORSAllowedOrigins) > 0 {
			w.Header().Set("Access-Control-Allow-Origin", cfg.CORSAllowedOrigins[0])
		}
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		mux.ServeHTTP(w, r)
	})

	// Chain middleware: request ID -> metrics -> rate limit -> content type -> CORS
	rootHandler := withRequestID(
		metrics.HTTPMetricsMiddleware(
			middleware.RateLimitMiddleware(rateLimiter, cfg.AuthRateLimit, log)(
				middleware.ValidateJSONContentType(log)(handlerWithCORS),
			),
		),
		log,
	)

	// 11. Background seat-gauge refresher
	statsWorker := worker.NewStatsWorker(activityRepo, log, cfg.StatsInterval)
	go statsWorker.Start(ctx)

	// 12. Start HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      otelhttp.NewHandler(rootHandler, "activities-http"),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.Duration("token_ttl", cfg.TokenTTL),
		slog.Int("rate_limit", cfg.RateLimitRequests),
		slog.Duration("rate_limit_window", cfg.RateLimitWindow),
	)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.String("error", err.Error()))
		}
	}()

	<-sigChan
	log.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}

	cancel() // stop workers and the event relay
	rateLimiter.Stop()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing shutdown error", slog.String("error", err.Error()))
	}
	log.Info("server stopped")
}

type requestIDKey struct{}

// withRequestID attaches a request ID to the context and response headers for traceability
func withRequestID(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := generateRequestID()
		w.Header().Set("X-Request-ID", reqID)

		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		start := time.Now()

		next.ServeHTTP(w, r.WithContext(ctx))

		log.Info("request completed",
			slog.String("request_id", reqID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Duration("duration_ms", time.Since(start)),
		)
	})
}

// redisPinger returns nil for a nil client so the readiness check reports
// redis as not configured instead of failing.
func redisPinger(c *redisinfra.Client) handler.Pinger {
	if c == nil {
		return nil
	}
	return c
}

func originAllowed(allowed []string, origin string) bool {
	if origin == "" {
		return false
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}

func generateRequestID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err == nil {
		return hex.EncodeToString(buf)
	}
	return fmt.Sprintf("req-%d", time.Now().UnixNano())
}
