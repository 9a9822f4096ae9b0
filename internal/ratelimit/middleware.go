package ratelimit

import (
	"github.com/gofiber/fiber/v2"
)

// Middleware rejects requests over their limit with ErrRateLimitExceeded,
// which the app's error handler turns into a 429 response.
func Middleware(limiter Limiter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		result, err := limiter.Allow(c.UserContext(), Key{
			IP:     c.IP(),
			Method: c.Method(),
			Path:   c.Path(),
		})
		if err != nil {
			return err
		}

		for header, value := range result.LimitHeaders {
			c.Set(header, value)
		}
		if result.Limited {
			return ErrRateLimitExceeded
		}

		return c.Next()
	}
}
