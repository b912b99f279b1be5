// Package main is the entry point for the FletoAds API server.
//
// It loads configuration, connects to PostgreSQL (and Redis when
// configured), wires the repositories, services, and HTTP handlers, and
// serves the versioned API through the core chassis (middleware, routing,
// health checks).
//
// Graceful shutdown is handled via OS signal interception (SIGINT, SIGTERM).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"fletoads/internal/api/handlers"
	"fletoads/internal/auth"
	"fletoads/internal/billing"
	"fletoads/internal/cache"
	"fletoads/internal/config"
	"fletoads/internal/core"
	"fletoads/internal/db"
	"fletoads/internal/external"
	"fletoads/internal/types"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("fletoads API starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
	)

	startupCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Database pool and repositories.
	pool, err := db.NewPool(startupCtx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}

	userRepo := db.NewUserRepository(pool)
	sessionRepo := db.NewSessionRepository(pool)
	securityRepo := db.NewSecurityRepository(pool)
	planoRepo := db.NewPlanoRepository(pool)
	usageRepo := db.NewUsageRepository(pool)
	lojaRepo := db.NewLojaRepository(pool)
	panfletoRepo := db.NewPanfletoRepository(pool)
	produtoRepo := db.NewProdutoRepository(pool)
	cupomRepo := db.NewCupomRepository(pool)
	integracaoRepo := db.NewIntegracaoRepository(pool)
	arquivoRepo := db.NewArquivoRepository(pool)
	notificacaoRepo := db.NewNotificacaoRepository(pool)

	// Auth services.
	securityService := auth.NewSecurityService(securityRepo, auth.DefaultSecurityConfig(), nil, logger)
	sessionService := auth.NewSessionService(
		sessionRepo,
		auth.NewCryptoTokenGenerator(),
		auth.DefaultSessionConfig(),
		nil,
		logger,
	)
	authService := auth.NewAuthService(auth.AuthServiceConfig{
		UserRepo:       userRepo,
		SessionService: sessionService,
		Security:       securityService,
		Logger:         logger,
	})
	authenticator := auth.NewSessionAuthenticator(sessionService, userRepo, logger)

	// Plan limit accounting.
	planRegistry := billing.NewStaticPlanRegistry()
	usageReporter := billing.NewUsageReporter(userRepo, planoRepo, usageRepo, planRegistry)

	// Stripe billing.
	stripeClient := external.NewStripeClient(
		&http.Client{Timeout: 30 * time.Second},
		userRepo,
		planoRepo,
		external.StripeClientConfig{
			SecretKey: cfg.Billing.StripeSecretKey.Unmask(),
			Logger:    logger,
		},
	)
	webhookProcessor := external.NewWebhookProcessor(userRepo, notificacaoRepo, logger)

	// HTTP chassis.
	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	srv.SecurityService = securityService
	srv.Authenticator = authenticator
	srv.HealthProbes = append(srv.HealthProbes, core.NewPingProbe("database", pool))
	srv.RegisterCloser(func() error {
		pool.Close()
		return nil
	})

	// Redis-backed rate limiting is optional; without REDIS_URL the
	// middleware passes requests through unthrottled.
	if cfg.Redis.URL.Unmask() != "" {
		redisClient, err := cache.NewRedisClient(startupCtx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		store := cache.NewRedisRateLimitStore(redisClient, logger)
		srv.RateLimitStore = store
		srv.HealthProbes = append(srv.HealthProbes, core.NewPingProbe("redis", store))
		srv.RegisterCloser(store.Close)
	} else {
		logger.Warn("REDIS_URL not set; rate limiting disabled")
	}

	adminOnly := srv.RequireRole(types.RoleAdmin)
	secureCookie := cfg.Environment != "local"

	authHandler := handlers.NewAuthHandler(authService, userRepo, srv.Validator, logger, secureCookie)
	usageHandler := handlers.NewUsageHandler(usageReporter, planoRepo, logger)
	planoHandler := handlers.NewPlanoHandler(planoRepo, srv.Validator, logger)
	lojaHandler := handlers.NewLojaHandler(lojaRepo, panfletoRepo, srv.Validator, logger)
	panfletoHandler := handlers.NewPanfletoHandler(panfletoRepo, userRepo, usageReporter, srv.Validator, logger)
	produtoHandler := handlers.NewProdutoHandler(produtoRepo, userRepo, usageReporter, srv.Validator, logger)
	cupomHandler := handlers.NewCupomHandler(cupomRepo, srv.Validator, logger)
	integracaoHandler := handlers.NewIntegracaoHandler(integracaoRepo, userRepo, usageReporter, srv.Validator, logger)
	arquivoHandler := handlers.NewArquivoHandler(arquivoRepo, userRepo, usageReporter, srv.Validator, logger)
	notificacaoHandler := handlers.NewNotificacaoHandler(notificacaoRepo, logger)
	billingHandler := handlers.NewBillingHandler(
		stripeClient,
		userRepo,
		&external.StripeVerifier{},
		webhookProcessor,
		cfg.Billing.StripeWebhookSecret.Unmask(),
		srv.Validator,
		logger,
	)

	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars,
		authHandler.RegisterRoutes,
		func(r chi.Router) { usageHandler.RegisterRoutes(r, adminOnly) },
		func(r chi.Router) { planoHandler.RegisterRoutes(r, adminOnly) },
		lojaHandler.RegisterRoutes,
		lojaHandler.RegisterPublicRoutes,
		panfletoHandler.RegisterRoutes,
		produtoHandler.RegisterRoutes,
		cupomHandler.RegisterRoutes,
		integracaoHandler.RegisterRoutes,
		arquivoHandler.RegisterRoutes,
		notificacaoHandler.RegisterRoutes,
		billingHandler.RegisterRoutes,
		billingHandler.RegisterWebhookRoutes,
	)

	srv.MountRoutes()

	return runHTTPServer(srv, cfg, logger)
}

// runHTTPServer starts the server in standard HTTP mode with graceful shutdown.
func runHTTPServer(srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)

	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("initiating graceful shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server resource shutdown error", "error", err)
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

// newLogger creates a structured slog.Logger configured for the given log level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
