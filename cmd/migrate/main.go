package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"tournament/internal/container"
	"tournament/internal/datastore"
	"tournament/internal/models"
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

func main() {
	app := &cli.App{
		Name: "migrate",
		Commands: []*cli.Command{
			commandMigration(),
			commandConfigMigration(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func commandMigration() *cli.Command {
	return &cli.Command{
		Name: "migrate",
		Action: func(c *cli.Context) error {
			ctx := context.Background()
			db := container.NewPostgres(os.Getenv("DB_DSN"), os.Getenv("DB_PASSWORD"))

			err := datastore.CreateTableChallenge(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableChat(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableConfig(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			fmt.Println("Migration success")

			return nil
		},
	}
}

// insert default configs to db
func commandConfigMigration() *cli.Command {
	return &cli.Command{
		Name:        "migrate-config",
		Description: "Insert default configs to db",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "owner-address",
				Usage: "platform owner wallet",
			},
			&cli.Float64Flag{
				Name:  "owner-fee",
				Usage: "owner share of every pool, in percent",
			},
		},
		Action: func(c *cli.Context) error {
			ctx := context.Background()
			db := container.NewPostgres(os.Getenv("DB_DSN"), os.Getenv("DB_PASSWORD"))

			deployment, err := json.Marshal(models.DeploymentConfig{
				DeploymentData: models.DeploymentSettings{
					OwnerAddress: c.String("owner-address"),
					OwnerFee:     c.Float64("owner-fee"),
				},
			})
			if err != nil {
				return err
			}

			configs := []models.Config{
				{Key: services.CONFIG_DEPLOYMENT_DATA, Value: string(deployment)},
				{Key: services.CONFIG_SETTLEMENT_SWEEP_LIMIT, Value: strconv.Itoa(services.SETTLEMENT_SWEEP_DEFAULT_LIMIT)},
				{Key: services.CONFIG_CRONJOB_TIME_SETTLEMENT, Value: services.CRONJOB_TIME_SETTLEMENT},
			}

			for _, config := range configs {
				err = datastore.UpsertConfig(ctx, db, &config)
				if err != nil {
					log.Println(err)
				}
			}

			fmt.Println("Migration success")

			return nil
		},
	}
}
