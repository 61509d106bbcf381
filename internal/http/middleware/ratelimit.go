package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/careerdesk/careerdesk-backend/internal/config"
	"github.com/careerdesk/careerdesk-backend/internal/httputil"
	"github.com/go-chi/httprate"
)

// RateLimitConfig holds rate limiting configuration for a specific endpoint type.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	Logger   *slog.Logger
}

// RateLimit creates an IP-based rate limiter middleware with logging.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.Requests,
		cfg.Window,
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Logger != nil {
				cfg.Logger.Warn("rate limit exceeded",
					"ip", r.RemoteAddr,
					"path", r.URL.Path,
					"method", r.Method,
				)
			}
			httputil.Error(w, http.StatusTooManyRequests, "rate limit exceeded. please try again later")
		}),
	)
}

// NoRateLimit returns a no-op middleware when rate limiting is disabled.
func NoRateLimit() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return next
	}
}

// CreateRateLimiters creates rate limiting middleware functions based on configuration.
func CreateRateLimiters(cfg config.RateLimitConfig, logger *slog.Logger) map[string]func(http.Handler) http.Handler {
	if !cfg.Enabled {
		noOp := NoRateLimit()
		return map[string]func(http.Handler) http.Handler{
			"request": noOp,
			"verify":  noOp,
			"apps":    noOp,
		}
	}

	return map[string]func(http.Handler) http.Handler{
		"request": RateLimit(RateLimitConfig{
			Requests: cfg.RequestCodePerWindow,
			Window:   time.Duration(cfg.RequestCodeWindowMinutes) * time.Minute,
			Logger:   logger,
		}),
		"verify": RateLimit(RateLimitConfig{
			Requests: cfg.VerifyPerWindow,
			Window:   time.Duration(cfg.VerifyWindowMinutes) * time.Minute,
			Logger:   logger,
		}),
		"apps": RateLimit(RateLimitConfig{
			Requests: cfg.ApplicationsPerMinute,
			Window:   time.Minute,
			Logger:   logger,
		}),
	}
}
