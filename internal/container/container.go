package container

import (
	"database/sql"
	"os"
	"strconv"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/hiendaovinh/toolkit/pkg/db"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"tournament/internal/interfaces"
	"tournament/internal/pkg/caching"
	"tournament/internal/pkg/limiter"
	"tournament/internal/pkg/quote"
	"tournament/internal/pkg/ton_utils"
	"tournament/internal/services"
	"tournament/internal/settlement"
)

// Required lists the variables every settlement process needs.
var Required = []string{
	"DB_DSN",
	"REDIS_DB",
	"LEDGER_SEED",
}

var optional = []string{
	"API_MODE",
	"API_ORIGINS",
	"DB_PASSWORD",
	"DB_DSN_READONLY",
	"DB_PASSWORD_READONLY",
	"STORAGE_TIMEOUT",
	"LEDGER_TIMEOUT",
	"CHAT_HISTORY_LIMIT",
	"QUOTE_URL",
	"QUOTE_API_TOKEN",
	"BOT_TOKEN",
	"ANNOUNCE_CHAT_ID",
	"READ_RATE_LIMIT_PER_MINUTE",
}

func New(vs map[string]string) *do.Injector {
	injector := do.New()
	for _, key := range optional {
		vs[key] = os.Getenv(key)
	}

	if vs["API_MODE"] == "" {
		vs["API_MODE"] = "production"
	}
	if vs["API_ORIGINS"] == "" {
		vs["API_ORIGINS"] = "*"
	}
	if vs["DB_DSN_READONLY"] == "" {
		vs["DB_DSN_READONLY"] = vs["DB_DSN"]
		vs["DB_PASSWORD_READONLY"] = vs["DB_PASSWORD"]
	}

	do.ProvideNamedValue(injector, "envs", vs)

	do.Provide(injector, func(i *do.Injector) (*bun.DB, error) {
		return NewPostgres(vs["DB_DSN"], vs["DB_PASSWORD"]), nil
	})

	do.ProvideNamed(injector, "db-readonly", func(i *do.Injector) (*bun.DB, error) {
		return NewPostgres(vs["DB_DSN_READONLY"], vs["DB_PASSWORD_READONLY"]), nil
	})

	do.ProvideNamed(injector, "redis-db", func(i *do.Injector) (redis.UniversalClient, error) {
		return NewRedis("CLUSTER_REDIS_DB", "REDIS_DB", false)
	})

	do.ProvideNamed(injector, "redis-cache", func(i *do.Injector) (redis.UniversalClient, error) {
		return NewRedis("CLUSTER_REDIS_CACHE", "REDIS_CACHE", false)
	})

	do.ProvideNamed(injector, "redis-cache-readonly", func(i *do.Injector) (redis.UniversalClient, error) {
		if os.Getenv("CLUSTER_REDIS_CACHE_READONLY") == "" && os.Getenv("REDIS_CACHE_READONLY") == "" {
			return NewRedis("CLUSTER_REDIS_CACHE", "REDIS_CACHE", true)
		}
		return NewRedis("CLUSTER_REDIS_CACHE_READONLY", "REDIS_CACHE_READONLY", true)
	})

	do.ProvideNamed(injector, "redis-limiter", func(i *do.Injector) (redis.UniversalClient, error) {
		return NewRedis("CLUSTER_REDIS_LIMITER", "REDIS_LIMITER", false)
	})

	do.ProvideNamed(injector, "redis-mutex", func(i *do.Injector) (redis.UniversalClient, error) {
		return NewRedis("CLUSTER_REDIS_MUTEX", "REDIS_MUTEX", false)
	})

	do.Provide(injector, func(i *do.Injector) (caching.Cache, error) {
		dbRedis, err := do.InvokeNamed[redis.UniversalClient](i, "redis-cache")
		if err != nil {
			return nil, err
		}

		return caching.NewCacheRedis(dbRedis, false)
	})

	do.Provide(injector, func(i *do.Injector) (caching.ReadOnlyCache, error) {
		dbRedis, err := do.InvokeNamed[redis.UniversalClient](i, "redis-cache-readonly")
		if err != nil {
			return nil, err
		}

		return caching.NewCacheRedis(dbRedis, false)
	})

	do.Provide(injector, func(i *do.Injector) (interfaces.Limiter, error) {
		dbRedis, err := do.InvokeNamed[redis.UniversalClient](i, "redis-limiter")
		if err != nil {
			return nil, err
		}

		return limiter.NewLimiter(dbRedis)
	})

	do.Provide(injector, func(i *do.Injector) (*redsync.Redsync, error) {
		dbRedis, err := do.InvokeNamed[redis.UniversalClient](i, "redis-mutex")
		if err != nil {
			return nil, err
		}

		pool := goredis.NewPool(dbRedis)
		rs := redsync.New(pool)
		return rs, nil
	})

	do.ProvideValue(injector, settlement.Config{
		StorageTimeout: duration(vs["STORAGE_TIMEOUT"], 5*time.Second),
		LedgerTimeout:  duration(vs["LEDGER_TIMEOUT"], 30*time.Second),
		HistoryLimit:   integer(vs["CHAT_HISTORY_LIMIT"], settlement.DefaultHistoryLimit),
	})

	do.Provide(injector, func(i *do.Injector) (settlement.Ledger, error) {
		return ton_utils.NewMainnetLedger(ton_utils.LedgerConfig{
			Seed:            vs["LEDGER_SEED"],
			ConfirmationTTL: duration(vs["LEDGER_TIMEOUT"], 30*time.Second) / 2,
		})
	})

	do.Provide(injector, func(i *do.Injector) (settlement.QuoteSource, error) {
		cache, err := do.Invoke[caching.Cache](i)
		if err != nil {
			return nil, err
		}

		return quote.NewClient(quote.Config{
			URL:        vs["QUOTE_URL"],
			Token:      vs["QUOTE_API_TOKEN"],
			Timeout:    duration(vs["STORAGE_TIMEOUT"], 5*time.Second),
			RetryCount: 2,
		}, cache), nil
	})

	if vs["BOT_TOKEN"] != "" && vs["ANNOUNCE_CHAT_ID"] != "" {
		do.Provide(injector, func(i *do.Injector) (*services.Bot, error) {
			chatID, err := strconv.ParseInt(vs["ANNOUNCE_CHAT_ID"], 10, 64)
			if err != nil {
				return nil, err
			}
			return services.NewBot(services.BotConfig{Token: vs["BOT_TOKEN"], ChatID: chatID})
		})
	}

	do.Provide(injector, func(i *do.Injector) (*services.ServiceConfig, error) {
		return services.NewServiceConfig(injector)
	})

	do.Provide(injector, func(i *do.Injector) (*services.ServiceChallenge, error) {
		return services.NewServiceChallenge(injector)
	})

	return injector
}

func NewPostgres(dsn string, password string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(dsn),
		pgdriver.WithPassword(password),
	))

	return bun.NewDB(sqldb, pgdialect.New())
}

// NewRedis prefers the cluster url, then the single node url, then REDIS_DB.
func NewRedis(clusterKey string, urlKey string, readOnly bool) (redis.UniversalClient, error) {
	if clusterURL := os.Getenv(clusterKey); clusterURL != "" {
		clusterOpts, err := redis.ParseClusterURL(clusterURL)
		if err != nil {
			return nil, err
		}
		clusterOpts.ReadOnly = readOnly
		return redis.NewClusterClient(clusterOpts), nil
	}

	url := os.Getenv(urlKey)
	if url == "" {
		url = os.Getenv("REDIS_DB")
	}

	return db.InitRedis(&db.RedisConfig{
		URL: url,
	})
}

func duration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func integer(value string, fallback int) int {
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
