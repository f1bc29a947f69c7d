package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis_rate/v10"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tournament/internal/pkg/limiter"
)

func serve(e *echo.Echo, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/challenge/vault", nil)
	req.Header.Set(echo.HeaderXRealIP, ip)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitByIP(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	l, err := limiter.NewLimiter(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	require.NoError(t, err)

	calls := 0
	e := echo.New()
	e.GET("/api/v1/challenge/:name", func(c echo.Context) error {
		calls++
		return c.NoContent(http.StatusOK)
	}, RateLimitByIP(l, 2))

	assert.Equal(t, http.StatusOK, serve(e, "10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, serve(e, "10.0.0.1").Code)
	assert.NotEqual(t, http.StatusOK, serve(e, "10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, serve(e, "10.0.0.2").Code)
	assert.Equal(t, 3, calls)
}

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string, redis_rate.Limit) error {
	return errors.New("redis: connection refused")
}

func TestRateLimitByIPFailsOpen(t *testing.T) {
	e := echo.New()
	e.GET("/api/v1/challenge/:name", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}, RateLimitByIP(brokenLimiter{}, 1))

	assert.Equal(t, http.StatusOK, serve(e, "10.0.0.1").Code)
}
