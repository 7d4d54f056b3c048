package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"library-api/internal/config"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

type limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// redisWindowLimiter counts requests per key in a fixed window shared by all replicas.
type redisWindowLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
	logger *slog.Logger
}

func (l *redisWindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	pipe := l.client.Pipeline()
	incrCmd := pipe.Incr(ctx, key)
	ttlCmd := pipe.TTL(ctx, key)

	if _, err := pipe.Exec(ctx); err != nil {
		return true, fmt.Errorf("redis pipeline failed: %w", err)
	}

	currentCount, err := incrCmd.Result()
	if err != nil {
		return true, fmt.Errorf("failed to read INCR result: %w", err)
	}

	ttl, err := ttlCmd.Result()
	if err != nil {
		l.logger.Error("Failed to get TTL result after pipeline exec", "error", err, "key", key)
	}
	if ttl == -1 || ttl == -2 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			l.logger.Error("Failed to set Redis EXPIRE for rate limit key", "error", err, "key", key)
		}
	}

	return currentCount <= l.limit, nil
}

// localLimiter keeps one token bucket per key in process memory.
type localLimiter struct {
	limiters sync.Map
	rps      rate.Limit
	burst    int
}

func (l *localLimiter) Allow(_ context.Context, key string) (bool, error) {
	v, _ := l.limiters.LoadOrStore(key, rate.NewLimiter(l.rps, l.burst))
	return v.(*rate.Limiter).Allow(), nil
}

func (l *localLimiter) cleanup(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.limiters.Range(func(key, value any) bool {
				bucket := value.(*rate.Limiter)
				if bucket.Tokens() >= float64(l.burst) {
					l.limiters.Delete(key)
				}
				return true
			})
		}
	}
}

type RateLimiterMiddleware struct {
	limiter limiter
	cfg     config.RateLimitConfig
	logger  *slog.Logger
	window  time.Duration
}

// NewRateLimiterMiddleware prefers a Redis-backed window and falls back to
// in-process token buckets when no client is configured. The context bounds
// the background cleanup of idle buckets.
func NewRateLimiterMiddleware(
	ctx context.Context,
	cfg config.RateLimitConfig,
	redisClient *redis.Client,
	logger *slog.Logger,
) *RateLimiterMiddleware {
	logger.Info("Initializing rate limiter middleware component...")

	rl := &RateLimiterMiddleware{
		cfg:    cfg,
		logger: logger,
		window: 1 * time.Second,
	}

	switch {
	case !cfg.Enabled:
		logger.Info("Rate limiting is disabled via configuration.")
	case redisClient != nil:
		logger.Info("Rate limiter middleware configured", "backend", "redis", "rps", cfg.RPS, "window", rl.window)
		rl.limiter = &redisWindowLimiter{client: redisClient, limit: int64(cfg.RPS), window: rl.window, logger: logger}
	default:
		burst := cfg.Burst
		if burst <= 0 {
			burst = max(1, int(cfg.RPS))
		}
		logger.Info("Rate limiter middleware configured", "backend", "memory", "rps", cfg.RPS, "burst", burst)
		local := &localLimiter{rps: rate.Limit(cfg.RPS), burst: burst}
		go local.cleanup(ctx, 10*time.Minute)
		rl.limiter = local
	}

	return rl
}

func (rl *RateLimiterMiddleware) IsEnabled() bool {
	return rl.cfg.Enabled && rl.limiter != nil
}

func (rl *RateLimiterMiddleware) extractIP(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		ips := strings.Split(xff, ",")
		ip := strings.TrimSpace(ips[0])

		if net.ParseIP(ip) != nil {
			return ip
		}
	}

	xRealIP := r.Header.Get("X-Real-IP")
	if xRealIP != "" {
		ip := strings.TrimSpace(xRealIP)

		if net.ParseIP(ip) != nil {
			return ip
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return ip
	}

	parsedIP := net.ParseIP(r.RemoteAddr)
	if parsedIP != nil {
		return parsedIP.String()
	}

	rl.logger.Warn("Could not determine client IP for rate limiting", "remoteAddr", r.RemoteAddr, "x-forwarded-for", xff, "x-real-ip", xRealIP)
	return "unknown"
}

func (rl *RateLimiterMiddleware) Middleware(next http.Handler) http.Handler {
	if !rl.IsEnabled() {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := rl.extractIP(r)
		if ip == "unknown" {
			rl.logger.Error("Blocking request due to unknown client IP for rate limiting")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		key := fmt.Sprintf("ratelimit:%s", ip)
		allowed, err := rl.limiter.Allow(r.Context(), key)
		if err != nil {
			rl.logger.Error("Rate limit check failed, letting request through", "error", err, "ip", ip, "key", key)
		}

		if !allowed {
			rl.logger.Warn("Rate limit exceeded", "ip", ip, "limit", rl.cfg.RPS)
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", fmt.Sprintf("%.0f", rl.window.Seconds()))
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"error": map[string]string{
					"message": "Rate limit exceeded",
				},
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}
