package middleware

import (
	"context"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bigyanadk07/BugTracker"
	"github.com/bigyanadk07/BugTracker/apperr"
	"github.com/bigyanadk07/BugTracker/metrics"
)

// MessageRateLimited is the client message for throttled requests.
const MessageRateLimited = "Too many requests, please try again later"

// Allower decides whether the caller identified by key may proceed.
type Allower interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type bucket struct {
	tokens float64
	last   time.Time
}

// Limiter is an in-process token bucket per key.
type Limiter struct {
	rate    float64
	burst   float64
	ttl     time.Duration
	now     func() time.Time
	mu      sync.Mutex
	buckets map[string]*bucket
}

// LimiterOption customizes the limiter.
type LimiterOption func(*Limiter)

// LimiterTTL evicts buckets idle for longer than ttl.
func LimiterTTL(ttl time.Duration) LimiterOption {
	return func(l *Limiter) {
		l.ttl = ttl
	}
}

// LimiterClock replaces the time source.
func LimiterClock(now func() time.Time) LimiterOption {
	return func(l *Limiter) {
		l.now = now
	}
}

// NewLimiter creates a limiter refilling rate tokens per second up to burst.
func NewLimiter(rate float64, burst int, options ...LimiterOption) *Limiter {
	limiter := &Limiter{
		rate:    rate,
		burst:   float64(burst),
		ttl:     10 * time.Minute,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
	for _, opt := range options {
		opt(limiter)
	}
	return limiter
}

// Allow implements Allower.
func (l *Limiter) Allow(_ context.Context, key string) (bool, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ttl > 0 {
		for k, b := range l.buckets {
			if k != key && now.Sub(b.last) > l.ttl {
				delete(l.buckets, k)
			}
		}
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: l.burst, last: now}
		l.buckets[key] = b
	}

	elapsed := now.Sub(b.last).Seconds()
	if elapsed > 0 {
		b.tokens += elapsed * l.rate
	}
	if b.tokens > l.burst {
		b.tokens = l.burst
	}
	b.last = now

	if b.tokens < 1 {
		return false, nil
	}
	b.tokens--
	return true, nil
}

// KeyFunc extracts a rate limiting key from the request.
type KeyFunc func(*bugtracker.Context) string

type rateLimitConfig struct {
	keyFunc    KeyFunc
	retryAfter time.Duration
	registry   *metrics.Registry
}

// RateLimitOption customizes rate limit middleware behavior.
type RateLimitOption func(*rateLimitConfig)

// RateLimitKey sets the key function.
func RateLimitKey(fn KeyFunc) RateLimitOption {
	return func(cfg *rateLimitConfig) {
		cfg.keyFunc = fn
	}
}

// RateLimitRetryAfter sets the Retry-After header duration.
func RateLimitRetryAfter(duration time.Duration) RateLimitOption {
	return func(cfg *rateLimitConfig) {
		cfg.retryAfter = duration
	}
}

// RateLimitMetrics counts rejected requests in registry.
func RateLimitMetrics(registry *metrics.Registry) RateLimitOption {
	return func(cfg *rateLimitConfig) {
		cfg.registry = registry
	}
}

// RateLimit throttles requests per key. A limiter backend failure is
// logged and the request is let through.
func RateLimit(limiter Allower, options ...RateLimitOption) bugtracker.Middleware {
	cfg := rateLimitConfig{keyFunc: ClientIP, retryAfter: time.Second}
	for _, opt := range options {
		opt(&cfg)
	}

	return func(next bugtracker.Handler) bugtracker.Handler {
		return func(ctx *bugtracker.Context) error {
			if limiter == nil {
				return apperr.Internal("Server Error", errNoLimiter)
			}

			key := cfg.keyFunc(ctx)
			if key == "" {
				return next(ctx)
			}

			allowed, err := limiter.Allow(ctx.Request.Context(), key)
			if err != nil {
				ctx.Logger().Warn("rate limiter unavailable", slog.String("error", err.Error()))
				return next(ctx)
			}
			if !allowed {
				if cfg.retryAfter > 0 {
					ctx.ResponseWriter.Header().Set("Retry-After", formatRetryAfter(cfg.retryAfter))
				}
				if cfg.registry != nil {
					cfg.registry.AuthDecision(metrics.AuthRateLimited)
				}
				return apperr.RateLimited(MessageRateLimited, nil)
			}
			return next(ctx)
		}
	}
}

// ClientIP keys on the first X-Forwarded-For hop, falling back to the
// connection address.
func ClientIP(ctx *bugtracker.Context) string {
	if forwarded := ctx.Request.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(ctx.Request.RemoteAddr)
	if err == nil {
		return host
	}
	return ctx.Request.RemoteAddr
}

func formatRetryAfter(duration time.Duration) string {
	seconds := int(duration.Seconds())
	if seconds < 1 {
		seconds = 1
	}
	return strconv.Itoa(seconds)
}
