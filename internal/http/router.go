package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/careerdesk/careerdesk-backend/internal/apps"
	"github.com/careerdesk/careerdesk-backend/internal/config"
	"github.com/careerdesk/careerdesk-backend/internal/http/features/applications"
	"github.com/careerdesk/careerdesk-backend/internal/http/features/verification"
	"github.com/careerdesk/careerdesk-backend/internal/http/middleware"
	"github.com/careerdesk/careerdesk-backend/internal/httputil"
	"github.com/careerdesk/careerdesk-backend/internal/verify"
	"github.com/go-chi/chi/v5"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger              *slog.Logger
	VerificationService *verify.Service
	ApplicationService  *apps.Service
	JWTSecret           []byte
	JWTIssuer           string
	RateLimitConfig     config.RateLimitConfig
	// RedisLimiter is optional; nil disables the cross-replica limiter.
	RedisLimiter *middleware.RedisLimiter
}

// NewRouter creates a new HTTP router with all routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(middleware.Recover(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	rateLimiters := middleware.CreateRateLimiters(cfg.RateLimitConfig, cfg.Logger)

	// Verification routes: unauthenticated, rate limited per IP. The
	// code-request endpoint additionally goes through the shared Redis
	// limiter when one is configured.
	verificationHandler := verification.NewHandler(cfg.Logger, cfg.VerificationService)
	r.Group(func(r chi.Router) {
		r.Use(rateLimiters["request"])
		r.Use(middleware.RedisRateLimit(cfg.RedisLimiter, "request-code",
			cfg.RateLimitConfig.RequestCodePerWindow,
			time.Duration(cfg.RateLimitConfig.RequestCodeWindowMinutes)*time.Minute))
		r.Post("/v1/verification/request-code", verificationHandler.RequestCode)
	})
	r.Group(func(r chi.Router) {
		r.Use(rateLimiters["verify"])
		r.Post("/v1/verification/verify", verificationHandler.VerifyCode)
	})

	// Application routes: authenticated, actor resolved from the token.
	applicationsHandler := applications.NewHandler(cfg.Logger, cfg.ApplicationService)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret, cfg.JWTIssuer))
		r.Use(rateLimiters["apps"])
		r.Post("/v1/applications", applicationsHandler.Submit)
		r.Get("/v1/applications", applicationsHandler.List)
		r.Get("/v1/applications/status-counts", applicationsHandler.StatusCounts)
		r.Patch("/v1/applications/{id}/status", applicationsHandler.SetStatus)
		r.Post("/v1/applications/{id}/withdraw", applicationsHandler.Withdraw)
	})

	return r
}
