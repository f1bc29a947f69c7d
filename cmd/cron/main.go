package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hiendaovinh/toolkit/pkg/env"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/samber/do"
	"github.com/urfave/cli/v2"

	"tournament/internal/container"
	"tournament/internal/services"
)

func init() {
	// for development
	//nolint:errcheck
	godotenv.Load("../../.env")

	// for production
	//nolint:errcheck
	godotenv.Load("./.env")
}

type CronJob interface {
	Start(cronRunner *cron.Cron) error
}

func main() {
	vs, err := env.EnvsRequired(container.Required...)
	if err != nil {
		log.Fatal(err)
	}

	app := &cli.App{
		Name: "cronjob",
		Commands: []*cli.Command{
			commandCronjob(container.New(vs)),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func commandCronjob(container *do.Injector) *cli.Command {
	return &cli.Command{
		Name: "cron",
		Action: func(c *cli.Context) error {
			serviceChallenge, err := do.Invoke[*services.ServiceChallenge](container)
			if err != nil {
				return err
			}

			serviceConfig, err := do.Invoke[*services.ServiceConfig](container)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cronRunner := cron.New()

			jobs := []CronJob{
				NewSettlementJob(ctx, serviceChallenge, serviceConfig),
			}
			for _, job := range jobs {
				if err := job.Start(cronRunner); err != nil {
					return err
				}
			}

			log.Println("Start cronjob")
			cronRunner.Start()
			<-ctx.Done()
			<-cronRunner.Stop().Done()
			log.Println("Stop cronjob")
			return nil
		},
	}
}
