package main

import (
	"context"
	"errors"
	"log"

	"github.com/robfig/cron/v3"

	"tournament/internal/services"
)

type SettlementJob struct {
	ctx              context.Context
	serviceChallenge *services.ServiceChallenge
	serviceConfig    *services.ServiceConfig
}

func NewSettlementJob(ctx context.Context, serviceChallenge *services.ServiceChallenge, serviceConfig *services.ServiceConfig) *SettlementJob {
	return &SettlementJob{ctx, serviceChallenge, serviceConfig}
}

func (job *SettlementJob) Start(cronRunner *cron.Cron) error {
	spec, err := job.serviceConfig.GetStringConfig(job.ctx, services.CONFIG_CRONJOB_TIME_SETTLEMENT, services.CRONJOB_TIME_SETTLEMENT)
	if err != nil || spec == "" {
		spec = services.CRONJOB_TIME_SETTLEMENT
	}

	_, err = cronRunner.AddFunc(spec, job.run)
	if err != nil {
		return err
	}

	log.Printf("settlement job scheduled: %s\n", spec)
	return nil
}

func (job *SettlementJob) run() {
	receipts, err := job.serviceChallenge.SweepExpired(job.ctx)
	if errors.Is(err, services.ErrSettlementSweepLock) {
		log.Println("settlement sweep skipped, another sweeper holds the lock")
		return
	}
	if err != nil {
		log.Printf("settlement sweep: %v\n", err)
		return
	}

	for _, receipt := range receipts {
		log.Printf("settled %s winner=%s failed_legs=%d\n", receipt.Challenge, receipt.Winner, len(receipt.FailedLegs()))
	}
}
