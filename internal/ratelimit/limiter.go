package ratelimit

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Result is the outcome of one rate limit check.
type Result struct {
	Limited      bool
	Remaining    int
	ResetTime    time.Time
	RetryAfter   time.Duration
	Route        string // pattern that applied, empty for the global limit
	LimitHeaders map[string]string
}

// Key identifies one counter.
type Key struct {
	IP     string
	Method string
	Path   string
}

// Store keeps fixed-window counters.
type Store interface {
	// Get returns the current count of key and when its window resets.
	Get(ctx context.Context, key string) (int, time.Time, error)

	// Increment bumps key, starting a window that ends at resetTime when
	// none is open, and returns the new count.
	Increment(ctx context.Context, key string, resetTime time.Time) (int, error)

	Reset(ctx context.Context, key string) error
	Close() error
}

type Limiter interface {
	Allow(ctx context.Context, key Key) (*Result, error)
	Close() error
}

const (
	HeaderRateLimit     = "X-RateLimit-Limit"
	HeaderRateRemaining = "X-RateLimit-Remaining"
	HeaderRateReset     = "X-RateLimit-Reset"
	HeaderRetryAfter    = "Retry-After"
)

var (
	ErrRateLimitExceeded  = fiber.NewError(fiber.StatusTooManyRequests, "rate limit exceeded")
	ErrStorageUnavailable = fiber.NewError(fiber.StatusServiceUnavailable, "rate limit storage unavailable")
)
