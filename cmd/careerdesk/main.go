package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/careerdesk/careerdesk-backend/internal/apps"
	"github.com/careerdesk/careerdesk-backend/internal/config"
	httpserver "github.com/careerdesk/careerdesk-backend/internal/http"
	"github.com/careerdesk/careerdesk-backend/internal/http/middleware"
	"github.com/careerdesk/careerdesk-backend/internal/notification"
	"github.com/careerdesk/careerdesk-backend/internal/repository"
	"github.com/careerdesk/careerdesk-backend/internal/verify"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Connect to database
	db, err := repository.NewDB(repository.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	logger.Info("connected to database")

	// Initialize repositories
	sessionsRepo := repository.NewSessionsRepository(db)
	applicationsRepo := repository.NewApplicationsRepository(db)

	// Initialize code delivery channels
	var emailService *notification.EmailService
	if cfg.HasSMTP() {
		emailService = notification.NewEmailService(notification.EmailConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			FromName: cfg.SMTPFromName,
		})
		logger.Info("email channel enabled")
	}
	var smsService *notification.SMSService
	if cfg.HasSMSGateway() {
		smsService = notification.NewSMSService(cfg.SMSGatewayURL, cfg.SMSGatewayAPIKey, cfg.SMSSender, nil)
		logger.Info("sms channel enabled")
	}
	dispatcher := notification.NewDispatcher(logger, emailService, smsService)

	// Initialize services
	verificationService := verify.NewService(verify.Config{
		CodeTTL:         cfg.Verification.CodeTTL,
		ResendCooldown:  cfg.Verification.ResendCooldown,
		MaxAttempts:     cfg.Verification.MaxAttempts,
		DispatchTimeout: cfg.Verification.DispatchTimeout,
	}, sessionsRepo, dispatcher)
	applicationService := apps.NewService(applicationsRepo)

	// Optional shared rate limiter
	var redisLimiter *middleware.RedisLimiter
	if cfg.HasRedis() {
		redisLimiter = middleware.NewRedisLimiter(redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		}))
		logger.Info("redis rate limiter enabled", "addr", cfg.RedisAddr)
	}

	// Create router
	router := httpserver.NewRouter(httpserver.RouterConfig{
		Logger:              logger,
		VerificationService: verificationService,
		ApplicationService:  applicationService,
		JWTSecret:           []byte(cfg.JWTSecret),
		JWTIssuer:           cfg.JWTIssuer,
		RateLimitConfig:     cfg.RateLimit,
		RedisLimiter:        redisLimiter,
	})

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.ServerAddr, cfg.ServerPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Periodic sweep of consumed/expired verification sessions. Hygiene
	// only; expiry is re-checked on every access.
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go func() {
		ticker := time.NewTicker(cfg.Verification.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				removed, err := verificationService.SweepExpired(sweepCtx)
				if err != nil {
					logger.Error("session sweep failed", "error", err)
				} else if removed > 0 {
					logger.Info("swept expired verification sessions", "removed", removed)
				}
			case <-sweepCtx.Done():
				return
			}
		}
	}()

	// Start server in goroutine
	go func() {
		logger.Info("starting server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
}
