package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/tuncerburak97/munzi/internal/config"
)

const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
)

func NewStore(ctx context.Context, cfg config.RateLimitConfig) (Store, error) {
	switch cfg.Storage.Type {
	case StorageMemory, "":
		return NewMemoryStore(time.Minute), nil
	case StorageRedis:
		r := cfg.Storage.Redis
		return NewRedisStore(ctx, r.Host, r.Port, r.Password, r.DB, r.Timeout)
	default:
		return nil, fmt.Errorf("unsupported rate limit storage: %s", cfg.Storage.Type)
	}
}
