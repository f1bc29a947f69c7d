package handler

import (
	"net/http"

	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo-contrib/pprof"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/samber/do"

	"tournament/internal/interfaces"
	"tournament/internal/services"
)

type Config struct {
	Container     *do.Injector
	Mode          string
	Origins       []string
	ReadRateLimit int
}

func New(cfg *Config) (http.Handler, error) {
	r := echo.New()
	r.Pre(middleware.RemoveTrailingSlash())
	if cfg.Mode == "debug" {
		r.Debug = true
		pprof.Register(r)
	}

	r.JSONSerializer = httpx.SegmentJSONSerializer{}
	r.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339}\t${method}\t${uri}\t${status}\t${latency_human}\n",
	}))
	r.Use(middleware.Recover())

	r.GET("", func(c echo.Context) error {
		return c.String(http.StatusOK, "🤖")
	})

	routesAPIv1 := r.Group("/api/v1")
	{
		limiter, err := do.Invoke[interfaces.Limiter](cfg.Container)
		if err != nil {
			return nil, err
		}

		readRateLimit := cfg.ReadRateLimit
		if readRateLimit <= 0 {
			readRateLimit = services.READ_RATE_LIMIT_PER_MINUTE
		}

		cors := middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: cfg.Origins,
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
			MaxAge:       60 * 60,
		})

		routesAPIv1.Use(cors)
		routesAPIv1.GET("", Hello)

		routesAPIv1Challenge := routesAPIv1.Group("/challenge")
		{
			routesAPIv1Challenge.Use(RateLimitByIP(limiter, readRateLimit))
			ch := groupChallenge{cfg.Container}

			routesAPIv1Challenge.GET("/:name", ch.Show)
			routesAPIv1Challenge.GET("/:name/settlement", ch.Settlement)
		}
	}

	return r, nil
}

func Hello(c echo.Context) error {
	return httpx.RestAbort(c, "hello world", nil)
}
