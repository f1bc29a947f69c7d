package services

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrSettlementSweepLock = errors.New("settlement sweep locked")
var ErrDeploymentSettingsMissing = errors.New("deployment settings missing")

const (
	CONFIG_DEPLOYMENT_DATA         = "deployment-data"
	CONFIG_SETTLEMENT_SWEEP_LIMIT  = "SETTLEMENT_SWEEP_LIMIT"
	CONFIG_READ_RATE_LIMIT_PER_MIN = "READ_RATE_LIMIT_PER_MINUTE"
	CONFIG_CRONJOB_TIME_SETTLEMENT = "CRONJOB_TIME_SETTLEMENT"

	SETTLEMENT_SWEEP_DEFAULT_LIMIT = 50
	READ_RATE_LIMIT_PER_MINUTE     = 120
	CRONJOB_TIME_SETTLEMENT        = "@every 1m"

	CACHE_TTL_5_SECONDS = 5 * time.Second
	CACHE_TTL_1_MIN     = 1 * time.Minute
	CACHE_TTL_5_MINS    = 5 * time.Minute

	SETTLEMENT_SWEEP_LOCK_TTL = 10 * time.Minute
)

func LockKeySettlementSweep() string {
	return "lock:settlement-sweep"
}

func LimitKeyReadChallenge(ip string) string {
	return fmt.Sprintf("limit:challenge-read:%s", ip)
}

// db
func DBKeyConfig(key string) string {
	return fmt.Sprintf("config:%s", strings.ToLower(key))
}

func DBKeyDeploymentSettings() string {
	return "config:deployment-settings"
}
