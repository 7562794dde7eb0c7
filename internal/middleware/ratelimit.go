package middleware

import (
	"net/http"

	"github.com/BurakKama/fullstack-mobile-app/pkg/config"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// RateLimiter throttles a route group with a shared token bucket. Applied to
// the credential endpoints to slow down brute-force attempts.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter builds a limiter from configuration
func NewRateLimiter(cfg *config.RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
	}
}

// Middleware rejects requests with 429 once the bucket is drained
func (rl *RateLimiter) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !rl.limiter.Allow() {
			return c.JSON(http.StatusTooManyRequests, echo.Map{
				"error": "too many requests, please try again later",
			})
		}
		return next(c)
	}
}
