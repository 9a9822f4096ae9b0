package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/tuncerburak97/munzi/internal/config"
	"github.com/tuncerburak97/munzi/internal/metrics"
	"github.com/tuncerburak97/munzi/internal/policy"
)

// Service applies per-route limits, falling back to the global limit.
// Route patterns use the same "METHOD /path*" matching as api_log.
type Service struct {
	config  config.RateLimitConfig
	store   Store
	metrics *metrics.MetricsCollector
	now     func() time.Time
}

func NewService(cfg config.RateLimitConfig, store Store, m *metrics.MetricsCollector) *Service {
	return &Service{
		config:  cfg,
		store:   store,
		metrics: m,
		now:     time.Now,
	}
}

func (s *Service) Allow(ctx context.Context, key Key) (*Result, error) {
	if !s.config.Enabled {
		return &Result{}, nil
	}

	limit := s.findLimit(policy.NewSignature(key.Method, key.Path))
	counter := key.String()
	if limit.Pattern != "" {
		counter += ":" + limit.Pattern
	}

	result, err := s.checkLimit(ctx, counter, limit)
	if err != nil {
		return nil, err
	}
	result.Route = limit.Pattern
	if result.Limited {
		s.metrics.IncRateLimited(routeLabel(limit.Pattern))
	}
	return result, nil
}

func (s *Service) Reset(ctx context.Context, key Key) error {
	return s.store.Reset(ctx, key.String())
}

func (s *Service) Close() error {
	return s.store.Close()
}

// findLimit returns the first route whose pattern matches sig, or the
// global limit.
func (s *Service) findLimit(sig policy.Signature) config.RouteLimit {
	for _, route := range s.config.Routes {
		if policy.Matches([]string{route.Pattern}, sig) {
			if route.Window <= 0 {
				route.Window = s.config.Window
			}
			return route
		}
	}
	return config.RouteLimit{
		Requests: s.config.Requests,
		Window:   s.config.Window,
		Burst:    s.config.Burst,
	}
}

func (s *Service) checkLimit(ctx context.Context, key string, limit config.RouteLimit) (*Result, error) {
	count, resetTime, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	now := s.now()
	if !resetTime.After(now) {
		resetTime = now.Add(limit.Window)
		count = 0
	}

	allowed := limit.Requests + limit.Burst
	if count >= allowed {
		retryAfter := resetTime.Sub(now)
		return &Result{
			Limited:    true,
			ResetTime:  resetTime,
			RetryAfter: retryAfter,
			LimitHeaders: map[string]string{
				HeaderRateLimit:     strconv.Itoa(limit.Requests),
				HeaderRateRemaining: "0",
				HeaderRateReset:     strconv.FormatInt(resetTime.Unix(), 10),
				HeaderRetryAfter:    strconv.FormatInt(int64(retryAfter.Seconds()), 10),
			},
		}, nil
	}

	newCount, err := s.store.Increment(ctx, key, resetTime)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	remaining := allowed - newCount
	if remaining < 0 {
		remaining = 0
	}

	return &Result{
		Remaining: remaining,
		ResetTime: resetTime,
		LimitHeaders: map[string]string{
			HeaderRateLimit:     strconv.Itoa(limit.Requests),
			HeaderRateRemaining: strconv.Itoa(remaining),
			HeaderRateReset:     strconv.FormatInt(resetTime.Unix(), 10),
		},
	}, nil
}

func (k Key) String() string {
	return k.Method + ":" + k.Path + ":" + k.IP
}

func routeLabel(pattern string) string {
	if pattern == "" {
		return "global"
	}
	return pattern
}
