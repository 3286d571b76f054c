// Package main is the entrypoint for the EdgeLink API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/edgelink/edgelink/internal/auth"
	"github.com/edgelink/edgelink/internal/cache"
	"github.com/edgelink/edgelink/internal/config"
	"github.com/edgelink/edgelink/internal/handler"
	"github.com/edgelink/edgelink/internal/metrics"
	"github.com/edgelink/edgelink/internal/middleware"
	"github.com/edgelink/edgelink/internal/model"
	"github.com/edgelink/edgelink/internal/notify"
	"github.com/edgelink/edgelink/internal/repository"
	"github.com/edgelink/edgelink/internal/server"
)

func main() {
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg)

	// Initialize database
	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("connected to database")

	// Initialize cache
	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		os.Exit(1)
	}
	defer cacheClient.Close()
	logger.Info("connected to Redis")

	// Metrics
	recorder := metrics.NewPrometheus()

	// Identity resolution
	keyVerifier := auth.NewAPIKeyVerifier(repo, cacheClient, logger)
	tokenVerifier := auth.NewTokenVerifier(cfg.JWTSecret)
	resolver := auth.NewResolver(keyVerifier, tokenVerifier, nil, logger)

	// Quota and abuse enforcement
	ledger := cache.NewQuotaLedger(cacheClient, model.DefaultPlanLimits, logger)
	abuseLimiter := cache.NewAbuseLimiter(cacheClient, model.DefaultAbuseLimits, logger)

	// Outbound delivery
	provider := notify.NewHTTPProvider(cfg.EmailProviderURL, cfg.EmailProviderKey)
	engine := notify.NewEngine(provider, repo, logger, recorder)
	dispatcher := notify.NewDispatcher(engine, notify.DefaultRenderer(), abuseLimiter, cfg.EmailFrom, logger)

	// Initialize handlers
	h := handler.New()
	healthHandler := handler.NewHealthHandler(repo, cacheClient)
	apiKeyHandler := handler.NewAPIKeyHandler(logger, repo)
	notificationHandler := handler.NewNotificationHandler(logger, dispatcher, cfg.BaseURL)

	// Setup router
	r := setupRouter(routerDeps{
		root:          h,
		health:        healthHandler,
		apiKeys:       apiKeyHandler,
		notifications: notificationHandler,
		resolver:      resolver,
		ledger:        ledger,
		recorder:      recorder,
		cfg:           cfg,
		logger:        logger,
	})

	// Create and run server
	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	logger.Info("starting server",
		"port", cfg.AppPort,
		"base_url", cfg.BaseURL,
		"env", cfg.AppEnv,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	level := parseLogLevel(cfg.LogLevel)

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// routerDeps bundles everything the router needs.
type routerDeps struct {
	root          *handler.Handler
	health        *handler.HealthHandler
	apiKeys       *handler.APIKeyHandler
	notifications *handler.NotificationHandler
	resolver      *auth.Resolver
	ledger        *cache.QuotaLedger
	recorder      *metrics.PrometheusRecorder
	cfg           *config.Config
	logger        *slog.Logger
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(deps routerDeps) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(deps.logger))
	r.Use(middleware.Recoverer(deps.logger))
	r.Use(middleware.Security(middleware.SecurityConfig{
		IsDevelopment:      deps.cfg.IsDevelopment(),
		MaxRequestBodySize: deps.cfg.MaxRequestBodySize,
	}))
	r.Use(middleware.MaxBodySize(deps.cfg.MaxRequestBodySize))

	if origins := deps.cfg.GetCORSAllowedOrigins(); len(origins) > 0 {
		corsCfg := middleware.DefaultCORSConfig()
		corsCfg.AllowedOrigins = origins
		r.Use(middleware.CORS(corsCfg))
	}

	// Health and metrics endpoints (no auth required)
	r.Get("/healthz", deps.health.Healthz)
	r.Get("/readyz", deps.health.Readyz)
	r.Method("GET", "/metrics", deps.recorder.Handler())

	// Root info endpoint
	r.Get("/", deps.root.Root)

	identityCfg := middleware.IdentityConfig{
		Logger:   deps.logger,
		Resolver: deps.resolver,
		Metrics:  deps.recorder,
	}

	quotaCfg := middleware.QuotaConfig{
		Logger:  deps.logger,
		Ledger:  deps.ledger,
		Metrics: deps.recorder,
		Enabled: deps.cfg.RateLimitEnabled,
	}

	// API v1 routes: identity resolution then quota enforcement on
	// every request, anonymous included.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Identity(identityCfg))
		r.Use(middleware.Quota(quotaCfg))

		r.Get("/me", deps.root.Me)

		// API key management (JWT holders; admin scope for mutations)
		r.Route("/api-keys", func(r chi.Router) {
			r.Use(middleware.RequireAuth())
			r.With(middleware.RequireRead()).Get("/", deps.apiKeys.ListAPIKeys)
			r.With(middleware.RequireAdmin()).Post("/", deps.apiKeys.CreateAPIKey)
			r.With(middleware.RequireAdmin()).Delete("/{key_id}", deps.apiKeys.RevokeAPIKey)
		})

		r.Route("/auth", func(r chi.Router) {
			r.Use(middleware.RequireAuth())
			r.Post("/resend-verification", deps.notifications.ResendVerification)
		})
	})

	// 404 and 405 handlers
	r.NotFound(deps.root.NotFound)
	r.MethodNotAllowed(deps.root.MethodNotAllowed)

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
