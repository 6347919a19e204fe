package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/BradenHooton/showroom/internal/auth"
	"github.com/BradenHooton/showroom/internal/background"
	"github.com/BradenHooton/showroom/internal/cache"
	"github.com/BradenHooton/showroom/internal/config"
	"github.com/BradenHooton/showroom/internal/database"
	"github.com/BradenHooton/showroom/internal/handlers"
	middlewareCustom "github.com/BradenHooton/showroom/internal/middleware"
	"github.com/BradenHooton/showroom/internal/repositories"
	"github.com/BradenHooton/showroom/internal/routes"
	"github.com/BradenHooton/showroom/internal/services"
	pkghttp "github.com/BradenHooton/showroom/pkg/http"
	pkglogger "github.com/BradenHooton/showroom/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.Server.LogLevel)}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	redisClient, err := cache.NewRedisClient(&cfg.Redis, logger)
	if err != nil {
		logger.Error("failed to connect to redis", slog.Any("error", err))
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	ipConfig, err := pkghttp.NewIPConfig(cfg.Server.TrustedProxies)
	if err != nil {
		logger.Error("invalid trusted proxy configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// Repositories
	userRepo := repositories.NewUserRepository(db)
	revokeRepo := repositories.NewTokenRevocationRepository(db)
	auditRepo := repositories.NewSuspensionAuditRepository(db)
	inquiryRepo := repositories.NewInquiryRepository(db)
	dealershipRepo := repositories.NewDealershipInquiryRepository(db)

	var velocity services.VelocityCounter
	if redisClient != nil {
		velocity = repositories.NewSubmissionVelocity(redisClient, time.Hour)
	}

	// Abuse heuristic
	rules, err := services.LoadAbuseRules(cfg.Abuse.RulesFile)
	if err != nil {
		logger.Error("failed to load abuse rules", slog.Any("error", err))
		os.Exit(1)
	}
	heuristic := services.NewAbuseHeuristic(rules)

	var notifier services.Notifier = services.NewLogNotifier(logger)
	if cfg.Email.NotificationsEnabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		ses, err := services.NewSESNotifier(ctx, &cfg.Email, logger)
		cancel()
		if err != nil {
			logger.Error("failed to initialize email notifications", slog.Any("error", err))
			os.Exit(1)
		}
		notifier = ses
	}

	var totp *auth.TOTPManager
	if len(cfg.Auth.MFAEncryptionKey) > 0 {
		totp, err = auth.NewTOTPManager(cfg.Auth.MFAEncryptionKey, cfg.Auth.MFAIssuer)
		if err != nil {
			logger.Error("failed to initialize MFA", slog.Any("error", err))
			os.Exit(1)
		}
	} else {
		logger.Warn("MFA_ENCRYPTION_KEY not set, admin MFA is disabled")
	}

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenExpiry, cfg.Auth.RefreshTokenExpiry, userRepo)

	// Services
	auditService := services.NewAuditService(auditRepo, logger)
	accountService := services.NewAccountService(userRepo, auditService, logger)
	mfaService := services.NewMFAService(userRepo, totp, logger)
	authService := services.NewAuthService(userRepo, tokenManager, revokeRepo, mfaService, logger)
	dashboardService := services.NewDashboardService(userRepo, inquiryRepo, dealershipRepo, logger)
	submissionService := services.NewSubmissionService(inquiryRepo, dealershipRepo, velocity, heuristic, notifier, logger)

	if cfg.Auth.AdminEmail != "" && cfg.Auth.AdminPassword != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := accountService.EnsureAdmin(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword, cfg.Auth.AdminName); err != nil {
			logger.Error("failed to ensure admin account", pkglogger.EmailAttr(cfg.Auth.AdminEmail), slog.Any("error", err))
		}
		cancel()
	}

	var redisHealth handlers.HealthCheck
	if redisClient != nil {
		redisHealth = func(ctx context.Context) error { return cache.HealthCheck(ctx, redisClient) }
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.SecurityHeaders(cfg.Server.Env))
	router.Use(middlewareCustom.CORS(cfg.Server.AllowedOrigins))
	router.Use(middlewareCustom.SecureLogger(logger, ipConfig))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(router, routes.Handlers{
		Users:       handlers.NewUserHandler(accountService),
		Submissions: handlers.NewSubmissionHandler(submissionService, ipConfig, logger),
		Auth:        handlers.NewAuthHandler(authService),
		MFA:         handlers.NewMFAHandler(mfaService, logger),
		Admin:       handlers.NewAdminHandler(dashboardService),
		Health:      handlers.NewHealthHandler(db.HealthCheck, redisHealth),
	}, routes.Security{
		Tokens:      tokenManager,
		Revocations: revokeRepo,
		Accounts:    userRepo,
		IPConfig:    ipConfig,
		RateLimits:  cfg.RateLimit,
		Logger:      logger,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	cleanupManager := background.NewCleanupManager(revokeRepo, logger, cfg.Auth.CleanupInterval)
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()
	go cleanupManager.Start(cleanupCtx)

	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupManager.Stop()
	cleanupCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(raw) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
