// Command runcycle invokes the Publisher Cycle outside of the HTTP
// trigger surface — for operators driving it from a host crontab instead
// of an HTTP-triggered scheduler (SPEC_FULL.md §8 expansion).
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"
	"github.com/xfleet/publisher/config"
	"github.com/xfleet/publisher/crypto"
	"github.com/xfleet/publisher/models"
	"github.com/xfleet/publisher/platform"
	"github.com/xfleet/publisher/publisher"
)

func main() {
	app := &cli.App{
		Name:  "runcycle",
		Usage: "drain due schedules through one Publisher Cycle invocation",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Value: 30, Usage: "maximum schedules to drain (1-200)"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	logger := config.GetLogger()

	env, err := config.LoadEnv()
	if err != nil {
		return fmt.Errorf("load environment: %w", err)
	}

	sealer, err := crypto.NewSealer(env.TokenEncryptionKey, logger)
	if err != nil {
		return fmt.Errorf("construct credential store: %w", err)
	}

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if err := models.AutoMigrate(db); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	platformClient := platform.NewClient(env.TwitterClientID, env.TwitterClientSecret, env.MockXAPI)
	cycle := publisher.NewCycle(db, logger, sealer, platformClient, env.Timezone)

	summary, err := cycle.RunCycle(context.Background(), c.Int("limit"))
	if err != nil {
		return fmt.Errorf("run cycle: %w", err)
	}

	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
