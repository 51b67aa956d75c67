package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/crucial707/ndt-dochub/internal/metrics"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Limiter decides whether another request for key is allowed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// maxTrackedIPs caps the buckets an IPRateLimiter keeps; the least recently
// seen IP is dropped first.
const maxTrackedIPs = 10000

// IPRateLimiter limits requests per client IP using a token bucket per IP.
// It is process-local; use RedisLimiter when several API instances share a limit.
// Buckets idle longer than the time a bucket needs to refill are evicted.
type IPRateLimiter struct {
	ips   *lru.LRU[string, *rate.Limiter]
	mu    sync.Mutex
	limit rate.Limit
	burst int
}

// NewIPRateLimiter creates a per-IP rate limiter. limit is events per second;
// for N per minute use rate.Limit(float64(N)/60.0). burst is max tokens per bucket.
func NewIPRateLimiter(limit rate.Limit, burst int) *IPRateLimiter {
	return newIPRateLimiter(limit, burst, maxTrackedIPs)
}

func newIPRateLimiter(limit rate.Limit, burst, size int) *IPRateLimiter {
	return &IPRateLimiter{
		ips:   lru.NewLRU[string, *rate.Limiter](size, nil, refillTime(limit, burst)),
		limit: limit,
		burst: burst,
	}
}

// refillTime is how long an untouched bucket takes to fill up, at least a minute.
// An evicted bucket is then indistinguishable from a fresh one.
func refillTime(limit rate.Limit, burst int) time.Duration {
	ttl := time.Minute
	if limit > 0 && limit != rate.Inf {
		if d := time.Duration(float64(burst) / float64(limit) * float64(time.Second)); d > ttl {
			ttl = d
		}
	}
	return ttl
}

func (l *IPRateLimiter) getLimiter(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.ips.Get(ip)
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
	}
	// Add refreshes the idle expiry on every hit.
	l.ips.Add(ip, lim)
	return lim
}

func (l *IPRateLimiter) Allow(_ context.Context, key string) (bool, error) {
	return l.getLimiter(key).Allow(), nil
}

// RedisLimiter is a fixed-window counter shared through Redis.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	limit  int64
	window time.Duration
}

// NewRedisLimiter allows limit requests per key in each window.
func NewRedisLimiter(client *redis.Client, prefix string, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: prefix, limit: int64(limit), window: window}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	k := fmt.Sprintf("rl:%s:%s", l.prefix, key)
	count, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return true, err
	}
	if count == 1 {
		if err := l.client.Expire(ctx, k, l.window).Err(); err != nil {
			return true, err
		}
	}
	return count <= l.limit, nil
}

// clientIP returns the host part of r.RemoteAddr. Forwarding headers are
// honoured only through RealIP, which rewrites RemoteAddr for trusted proxies.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// ClientIP is clientIP for handlers recording session metadata.
func ClientIP(r *http.Request) string { return clientIP(r) }

// RateLimit returns a middleware that answers 429 when the client IP exceeds l.
// Rejections are counted as rate_limited login attempts since only /auth/login
// is limited. Limiter errors are logged and the request is let through.
func RateLimit(l Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, err := l.Allow(r.Context(), clientIP(r))
			if err != nil {
				slog.Warn("rate limiter unavailable, allowing request", "error", err)
			}
			if !ok {
				metrics.IncLoginAttempt("rate_limited")
				writeError(w, "too many requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// LoginLimiter returns the limiter for /auth/login: a Redis fixed window when
// client is non-nil, otherwise an in-process token bucket.
func LoginLimiter(client *redis.Client, perMinute, burst int) Limiter {
	if client != nil {
		return NewRedisLimiter(client, "login", perMinute, time.Minute)
	}
	return NewIPRateLimiter(rate.Limit(float64(perMinute)/60.0), burst)
}
