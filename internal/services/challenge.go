package services

import (
	"context"
	"errors"
	"log"

	"github.com/go-redsync/redsync/v4"
	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/uptrace/bun"

	"tournament/internal/datastore"
	"tournament/internal/datastore/redis_store"
	"tournament/internal/models"
	"tournament/internal/settlement"
)

type ServiceChallenge struct {
	container          *do.Injector
	redisDB            redis.UniversalClient
	rs                 *redsync.Redsync
	readonlyPostgresDB *bun.DB
	serviceConfig      *ServiceConfig
	orchestrator       *settlement.Orchestrator
}

func NewServiceChallenge(container *do.Injector) (*ServiceChallenge, error) {
	db, err := do.InvokeNamed[redis.UniversalClient](container, "redis-db")
	if err != nil {
		return nil, err
	}

	rs, err := do.Invoke[*redsync.Redsync](container)
	if err != nil {
		return nil, err
	}

	postgresDB, err := do.Invoke[*bun.DB](container)
	if err != nil {
		return nil, err
	}

	readonlyPostgresDB, err := do.InvokeNamed[*bun.DB](container, "db-readonly")
	if err != nil {
		return nil, err
	}

	serviceConfig, err := do.Invoke[*ServiceConfig](container)
	if err != nil {
		return nil, err
	}

	ledger, err := do.Invoke[settlement.Ledger](container)
	if err != nil {
		return nil, err
	}

	quotes, err := do.Invoke[settlement.QuoteSource](container)
	if err != nil {
		return nil, err
	}

	cfg, err := do.Invoke[settlement.Config](container)
	if err != nil {
		return nil, err
	}

	publishers := []settlement.Publisher{&receiptPublisher{db}}
	if bot, err := do.Invoke[*Bot](container); err == nil && bot != nil {
		publishers = append(publishers, bot)
	}

	store := &challengeStore{postgresDB: postgresDB, readonlyPostgresDB: readonlyPostgresDB}

	return &ServiceChallenge{
		container:          container,
		redisDB:            db,
		rs:                 rs,
		readonlyPostgresDB: readonlyPostgresDB,
		serviceConfig:      serviceConfig,
		orchestrator:       settlement.NewOrchestrator(store, ledger, quotes, cfg, publishers...),
	}, nil
}

// GetChallenge serves a challenge and settles it when it is due.
func (service *ServiceChallenge) GetChallenge(ctx context.Context, name string, initial bool) (*settlement.ChallengeView, error) {
	settings, err := service.serviceConfig.GetDeploymentSettings(ctx)
	if err != nil {
		log.Printf("challenge %s: %v\n", name, err)
		settings = nil
	}

	view, err := service.orchestrator.Read(ctx, settlement.ReadRequest{
		Name:     name,
		Initial:  initial,
		Settings: settings,
	})
	if err != nil {
		return nil, wrapSettlementError(err)
	}

	return view, nil
}

func (service *ServiceChallenge) GetSettlementReceipt(ctx context.Context, name string) (*models.SettlementReceipt, error) {
	receipt, err := redis_store.GetSettlementReceipt(ctx, service.redisDB, name)
	if err == nil {
		return receipt, nil
	}
	if !errors.Is(err, redis.Nil) {
		log.Printf("challenge %s: receipt cache: %v\n", name, err)
	}

	chat, err := datastore.GetLatestSettlementChat(ctx, service.readonlyPostgresDB, name)
	if err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			return nil, errorx.Wrap(errors.New("settlement not found"), errorx.NotExist)
		}
		return nil, errorx.Wrap(err, errorx.Service)
	}

	return chat.Receipt, nil
}

// Reconcile re-runs a failed settlement on operator request.
func (service *ServiceChallenge) Reconcile(ctx context.Context, name string) (*models.SettlementReceipt, error) {
	settings, err := service.serviceConfig.GetDeploymentSettings(ctx)
	if err != nil {
		return nil, err
	}

	receipt, err := service.orchestrator.Reconcile(ctx, name, *settings)
	if err != nil {
		return nil, wrapSettlementError(err)
	}

	return receipt, nil
}

// SweepExpired settles every expired challenge that has activity. Only one
// sweeper runs at a time across processes.
func (service *ServiceChallenge) SweepExpired(ctx context.Context) ([]*models.SettlementReceipt, error) {
	mutex := service.rs.NewMutex(LockKeySettlementSweep(), redsync.WithExpiry(SETTLEMENT_SWEEP_LOCK_TTL), redsync.WithTries(1))
	if err := mutex.TryLockContext(ctx); err != nil {
		return nil, ErrSettlementSweepLock
	}
	// nolint:errcheck
	defer mutex.UnlockContext(ctx)

	settings, err := service.serviceConfig.GetDeploymentSettings(ctx)
	if err != nil {
		return nil, err
	}

	limit, _ := service.serviceConfig.GetIntConfig(ctx, CONFIG_SETTLEMENT_SWEEP_LIMIT, SETTLEMENT_SWEEP_DEFAULT_LIMIT)

	return service.orchestrator.SettleExpired(ctx, *settings, limit)
}

func wrapSettlementError(err error) error {
	switch {
	case errors.Is(err, settlement.ErrNotFound), errors.Is(err, settlement.ErrInvalidState):
		return errorx.Wrap(err, errorx.NotExist)
	case errors.Is(err, settlement.ErrClaimLost):
		return errorx.Wrap(err, errorx.Invalid)
	default:
		return errorx.Wrap(err, errorx.Service)
	}
}

// receiptPublisher keeps the latest receipt of each challenge in redis.
type receiptPublisher struct {
	redisDB redis.UniversalClient
}

func (p *receiptPublisher) PublishSettlement(ctx context.Context, receipt *models.SettlementReceipt) error {
	return redis_store.SetSettlementReceipt(ctx, p.redisDB, receipt)
}
