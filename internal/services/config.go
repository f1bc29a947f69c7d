package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/samber/do"
	"github.com/uptrace/bun"

	"tournament/internal/datastore"
	"tournament/internal/models"
	"tournament/internal/pkg/caching"
	"tournament/internal/pkg/ton_utils"
)

type ServiceConfig struct {
	container          *do.Injector
	readonlyPostgresDB *bun.DB
	cache              caching.Cache
	readonlyCache      caching.ReadOnlyCache
}

func NewServiceConfig(container *do.Injector) (*ServiceConfig, error) {
	cache, err := do.Invoke[caching.Cache](container)
	if err != nil {
		return nil, err
	}

	readonlyPostgresDB, err := do.InvokeNamed[*bun.DB](container, "db-readonly")
	if err != nil {
		return nil, err
	}

	readOnlyCache, err := do.Invoke[caching.ReadOnlyCache](container)
	if err != nil {
		return nil, err
	}

	return &ServiceConfig{container, readonlyPostgresDB, cache, readOnlyCache}, nil
}

func (service *ServiceConfig) GetStringConfig(ctx context.Context, key string, defaultValue string) (string, error) {
	callback := func() (string, error) {
		config, err := datastore.GetConfigByKey(ctx, service.readonlyPostgresDB, key)
		if err != nil {
			return defaultValue, err
		}
		return config.Value, nil
	}

	value, err := caching.UseCacheWithRO(ctx, service.readonlyCache, service.cache, DBKeyConfig(key), CACHE_TTL_5_MINS, callback)
	if err != nil {
		return defaultValue, err
	}

	return value, nil
}

func (service *ServiceConfig) GetIntConfig(ctx context.Context, key string, defaultValue int) (int, error) {
	value, err := service.GetStringConfig(ctx, key, "")
	if err != nil {
		return defaultValue, err
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue, err
	}

	return intValue, nil
}

// GetDeploymentSettings reads the operator address and fee. The settings are
// cached for a minute so a fee change reaches new settlements quickly.
func (service *ServiceConfig) GetDeploymentSettings(ctx context.Context) (*models.DeploymentSettings, error) {
	callback := func() (*models.DeploymentSettings, error) {
		config, err := datastore.GetConfigByKey(ctx, service.readonlyPostgresDB, CONFIG_DEPLOYMENT_DATA)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDeploymentSettingsMissing, err)
		}
		return ParseDeploymentSettings(config.Value)
	}

	return caching.UseCacheWithRO(ctx, service.readonlyCache, service.cache, DBKeyDeploymentSettings(), CACHE_TTL_1_MIN, callback)
}

func ParseDeploymentSettings(raw string) (*models.DeploymentSettings, error) {
	var config models.DeploymentConfig
	if err := json.Unmarshal([]byte(raw), &config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeploymentSettingsMissing, err)
	}

	settings := config.DeploymentData
	if settings.OwnerAddress == "" {
		return nil, fmt.Errorf("%w: owner_address is empty", ErrDeploymentSettingsMissing)
	}

	if _, err := ton_utils.ParseAccountID(settings.OwnerAddress); err != nil {
		return nil, err
	}

	if settings.OwnerFee < 0 || settings.OwnerFee > 100 {
		return nil, fmt.Errorf("%w: owner_fee %v out of range", ErrDeploymentSettingsMissing, settings.OwnerFee)
	}

	return &settings, nil
}
