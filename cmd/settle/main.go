package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/hiendaovinh/toolkit/pkg/env"
	"github.com/joho/godotenv"
	"github.com/samber/do"
	"github.com/urfave/cli/v2"

	"tournament/internal/container"
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
	vs, err := env.EnvsRequired(container.Required...)
	if err != nil {
		log.Fatal(err)
	}

	injector := container.New(vs)

	app := &cli.App{
		Name:  "settle",
		Usage: "operator tools for challenge settlements",
		Commands: []*cli.Command{
			commandReconcile(injector),
			commandInspect(injector),
			commandSweep(injector),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

var nameFlag = &cli.StringFlag{
	Name:     "name",
	Usage:    "challenge name",
	Required: true,
}

func commandReconcile(injector *do.Injector) *cli.Command {
	return &cli.Command{
		Name:  "reconcile",
		Usage: "retry a settlement that ended in the failed state",
		Flags: []cli.Flag{nameFlag},
		Action: func(c *cli.Context) error {
			service, err := do.Invoke[*services.ServiceChallenge](injector)
			if err != nil {
				return err
			}

			receipt, err := service.Reconcile(context.Background(), c.String("name"))
			if err != nil {
				return err
			}

			return printReceipt(receipt)
		},
	}
}

func commandInspect(injector *do.Injector) *cli.Command {
	return &cli.Command{
		Name:  "inspect",
		Usage: "print the latest settlement receipt of a challenge",
		Flags: []cli.Flag{nameFlag},
		Action: func(c *cli.Context) error {
			service, err := do.Invoke[*services.ServiceChallenge](injector)
			if err != nil {
				return err
			}

			receipt, err := service.GetSettlementReceipt(context.Background(), c.String("name"))
			if err != nil {
				return err
			}

			return printReceipt(receipt)
		},
	}
}

func commandSweep(injector *do.Injector) *cli.Command {
	return &cli.Command{
		Name:  "sweep",
		Usage: "settle every expired challenge once",
		Action: func(c *cli.Context) error {
			service, err := do.Invoke[*services.ServiceChallenge](injector)
			if err != nil {
				return err
			}

			receipts, err := service.SweepExpired(context.Background())
			if err != nil {
				return err
			}

			fmt.Printf("settled %d challenges\n", len(receipts))
			for _, receipt := range receipts {
				if err := printReceipt(receipt); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func printReceipt(receipt *models.SettlementReceipt) error {
	out, err := json.MarshalIndent(receipt, "", "  ")
	if err != nil {
		return err
	}

	fmt.Println(string(out))
	if failed := receipt.FailedLegs(); len(failed) > 0 {
		fmt.Printf("%d transfer(s) need manual follow-up\n", len(failed))
	}
	return nil
}
