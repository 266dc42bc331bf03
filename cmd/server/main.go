package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/hollandv/quill/internal"
	"github.com/hollandv/quill/internal/ai"
	"github.com/hollandv/quill/internal/ai/anthropic"
	"github.com/hollandv/quill/internal/ai/mock"
	"github.com/hollandv/quill/internal/billing"
	"github.com/hollandv/quill/internal/handler"
	"github.com/hollandv/quill/internal/maintenance"
	"github.com/hollandv/quill/internal/metrics"
	"github.com/hollandv/quill/internal/middleware"
	"github.com/hollandv/quill/internal/repository"
	"github.com/hollandv/quill/internal/service"
	"github.com/hollandv/quill/internal/storage"
)

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize database connection
	db, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	// Run migrations
	if err := internal.RunMigrations(db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database ready")

	// Initialize repository
	queries := repository.New(db)

	// Initialize storage
	store, err := newStorage(cfg, logger)
	if err != nil {
		return fmt.Errorf("storage initialization failed: %w", err)
	}
	logger.Info("Storage ready", "provider", cfg.StorageProvider)

	// Initialize AI provider
	provider, err := newAIProvider(cfg, logger)
	if err != nil {
		return fmt.Errorf("ai provider initialization failed: %w", err)
	}
	logger.Info("AI provider ready", "provider", cfg.AIProvider)

	// Initialize billing (nil when Stripe is not configured)
	var billingService billing.Service
	if cfg.StripeSecretKey != "" {
		billingService = billing.NewStripeService(cfg.StripeSecretKey, cfg.StripeWebhookSecret, billing.PriceConfig{
			ProMonthlyPriceID: cfg.StripeProMonthlyPriceID,
			ProYearlyPriceID:  cfg.StripeProYearlyPriceID,
		})
		logger.Info("Stripe billing enabled")
	} else {
		logger.Warn("Stripe billing disabled: no secret key configured")
	}

	// Initialize services
	userService := service.NewUserService(db, queries, cfg.InvitesRequired, logger)
	quotaService := service.NewQuotaService(queries, cfg.QuotaLimits(), logger)
	inviteService := service.NewInviteService(queries, logger)
	personaService := service.NewPersonaService(db, queries, store, service.NewImagingProcessor(), logger)
	knowledgeService := service.NewKnowledgeService(queries, logger)
	chatService := service.NewChatService(queries, quotaService, personaService, knowledgeService, provider, logger)

	// Initialize middleware
	isSecure := cfg.Env != "development"
	authMw := middleware.NewAuthMiddleware(userService, cfg.IsAdminEmail, logger, isSecure)
	loggingMw := middleware.NewRequestLoggingMiddleware(logger)
	securityMw := middleware.NewSecurityHeadersMiddleware(isSecure)
	metricsAuthMw := middleware.NewMetricsAuthMiddleware(cfg.MetricsUsername, cfg.MetricsPassword)
	authLimiter := middleware.NewAuthRateLimiter(logger)

	requireUser := middleware.Stack(authMw.RequireUser)
	requireAdmin := middleware.Stack(authMw.RequireAdmin)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(userService, logger, isSecure)
	inviteHandler := handler.NewInviteHandler(inviteService, logger)
	quotaHandler := handler.NewQuotaHandler(quotaService, logger)
	chatHandler := handler.NewChatHandler(chatService, logger)
	personaHandler := handler.NewPersonaHandler(personaService, logger)
	knowledgeHandler := handler.NewKnowledgeHandler(knowledgeService, logger)
	billingHandler := handler.NewBillingHandler(billingService, userService, cfg.BaseURL, billing.PriceConfig{
		ProMonthlyPriceID: cfg.StripeProMonthlyPriceID,
		ProYearlyPriceID:  cfg.StripeProYearlyPriceID,
	}, logger)
	webhookHandler := handler.NewWebhookHandler(billingService, userService, logger)

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			logger.Error("health check failed", "error", err)
			http.Error(w, "unhealthy", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// Prometheus metrics (basic auth when configured)
	mux.Handle("GET /metrics", metricsAuthMw.Handler(promhttp.Handler()))

	// Locally stored avatar files
	if cfg.StorageProvider == storage.ProviderLocal {
		filesFS := http.FileServer(http.Dir(cfg.LocalStoragePath))
		mux.Handle("GET /files/", http.StripPrefix("/files/", filesFS))
	}

	// Public routes
	authHandler.RegisterRoutes(mux, authLimiter.LimitRegister, authLimiter.LimitLogin)
	webhookHandler.RegisterRoutes(mux)

	// Authenticated routes
	mux.Handle("GET /api/me", requireUser(http.HandlerFunc(authHandler.Me)))
	inviteHandler.RegisterRoutes(mux, requireUser)
	quotaHandler.RegisterRoutes(mux, requireUser)
	chatHandler.RegisterRoutes(mux, requireUser)
	billingHandler.RegisterRoutes(mux, requireUser)
	personaHandler.RegisterRoutes(mux, requireUser, requireAdmin)
	knowledgeHandler.RegisterRoutes(mux, requireAdmin)

	// Outer middleware applied to every request
	corsMw := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	root := middleware.Stack(
		loggingMw.Handler,
		metrics.Middleware,
		securityMw.Handler,
		corsMw.Handler,
		authMw.WithUser,
	)(mux)

	// ==========================================================================
	// Start server and background workers
	// ==========================================================================

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: root,
	}

	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	if cfg.SweeperEnabled {
		sweeper := maintenance.NewSweeper(inviteService, userService, cfg.SweeperInterval, logger)
		go sweeper.Run(sweepCtx)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
		}
	}()

	<-sigChan
	logger.Info("Shutdown signal received, initiating graceful shutdown...")

	stopSweeper()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

// newStorage builds the configured storage backend.
func newStorage(cfg *internal.Config, logger *slog.Logger) (storage.Storage, error) {
	switch cfg.StorageProvider {
	case storage.ProviderR2:
		return storage.NewR2Storage(storage.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicURL:       cfg.R2PublicURL,
		}, logger)
	case storage.ProviderLocal:
		return storage.NewLocalStorage(storage.LocalConfig{
			BasePath: cfg.LocalStoragePath,
			BaseURL:  cfg.LocalStorageURL,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.StorageProvider)
	}
}

// newAIProvider builds the configured AI provider.
func newAIProvider(cfg *internal.Config, logger *slog.Logger) (ai.Provider, error) {
	switch cfg.AIProvider {
	case "anthropic":
		return anthropic.New(anthropic.Config{
			APIKey: cfg.AnthropicAPIKey,
			Model:  cfg.AnthropicModel,
			ProviderConfig: ai.ProviderConfig{
				MaxRetries:     cfg.AIMaxRetries,
				RetryBaseDelay: cfg.AIRetryBaseDelay,
				RequestTimeout: cfg.AIRequestTimeout,
			},
		}, logger)
	case "mock":
		return mock.New(logger), nil
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.AIProvider)
	}
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
