package middleware

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/careerdesk/careerdesk-backend/internal/httputil"
	"github.com/redis/go-redis/v9"
)

const rateLimitScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
if current > tonumber(ARGV[2]) then
  return 0
end
return 1
`

// RedisLimiter is a fixed-window counter shared across replicas. The
// in-process httprate limiters only see one replica's traffic; deployments
// running several replicas layer this on top of them.
type RedisLimiter struct {
	client *redis.Client
	script *redis.Script
}

// NewRedisLimiter creates a Redis-backed limiter. Returns nil for a nil
// client; a nil limiter allows everything.
func NewRedisLimiter(client *redis.Client) *RedisLimiter {
	if client == nil {
		return nil
	}
	return &RedisLimiter{
		client: client,
		script: redis.NewScript(rateLimitScript),
	}
}

// Allow reports whether the key may proceed within its window. Fails open:
// an unreachable Redis never blocks traffic.
func (l *RedisLimiter) Allow(key string, limit int, window time.Duration) bool {
	if l == nil || l.client == nil {
		return true
	}
	if key == "" || limit <= 0 || window <= 0 {
		return true
	}
	ttl := window.Milliseconds()
	if ttl <= 0 {
		ttl = 1
	}
	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()
	allowed, err := l.script.Run(ctx, l.client, []string{key}, ttl, limit).Int64()
	if err != nil {
		return true
	}
	return allowed == 1
}

// RedisRateLimit creates middleware limiting by client IP through the shared
// limiter. A nil limiter yields a no-op.
func RedisRateLimit(limiter *RedisLimiter, prefix string, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}
			if !limiter.Allow(prefix+":"+ip, limit, window) {
				httputil.Error(w, http.StatusTooManyRequests, "rate limit exceeded. please try again later")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
