package handler

import (
	"errors"
	"log"

	"github.com/go-redis/redis_rate/v10"
	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo/v4"

	"tournament/internal/interfaces"
	"tournament/internal/pkg/limiter"
	"tournament/internal/services"
)

// RateLimitByIP rejects clients above perMinute requests. A limiter outage
// lets the request through.
func RateLimitByIP(l interfaces.Limiter, perMinute int) echo.MiddlewareFunc {
	limit := redis_rate.PerMinute(perMinute)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := l.Allow(c.Request().Context(), services.LimitKeyReadChallenge(c.RealIP()), limit)
			if err != nil {
				if errors.Is(err, limiter.ErrRateLimited) {
					//nolint:errcheck
					httpx.Abort(c, errorx.Wrap(err, errorx.RateLimiting), -1)
					return nil
				}
				log.Printf("rate limiter: %v\n", err)
			}

			return next(c)
		}
	}
}
