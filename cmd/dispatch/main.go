// Command dispatch drives the Dispatch Planner from an operator's
// terminal — for one-off or scripted dispatch outside the HTTP surface
// (SPEC_FULL.md §8 expansion).
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
	"github.com/xfleet/publisher/config"
	"github.com/xfleet/publisher/dispatch"
	"github.com/xfleet/publisher/models"
)

func main() {
	app := &cli.App{
		Name:  "dispatch",
		Usage: "dispatch one content item to its target accounts",
		Flags: []cli.Flag{
			&cli.UintFlag{Name: "content-id", Required: true},
			&cli.StringFlag{Name: "mode", Value: "rule", Usage: "manual or rule"},
			&cli.StringFlag{Name: "account-ids", Usage: "comma-separated account IDs (manual mode)"},
			&cli.StringFlag{Name: "schedule-at", Usage: "RFC3339 timestamp; defaults to now"},
			&cli.IntFlag{Name: "stagger-minutes", Value: 0},
			&cli.IntFlag{Name: "priority", Value: 500},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	logger := config.GetLogger()

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if err := models.AutoMigrate(db); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	accountIds, err := parseUintList(c.String("account-ids"))
	if err != nil {
		return fmt.Errorf("parse account-ids: %w", err)
	}

	req := dispatch.Request{
		Mode:           dispatch.Mode(c.String("mode")),
		AccountIds:     accountIds,
		StaggerMinutes: c.Int("stagger-minutes"),
		Priority:       c.Int("priority"),
	}
	if raw := c.String("schedule-at"); raw != "" {
		at, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return fmt.Errorf("parse schedule-at: %w", err)
		}
		req.ScheduleAt = &at
	}

	planner := dispatch.NewPlanner(db, logger)
	summary, err := planner.Plan(c.Uint("content-id"), req, time.Now())
	if err != nil {
		return fmt.Errorf("plan dispatch: %w", err)
	}

	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func parseUintList(raw string) ([]uint, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]uint, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid account id %q: %w", p, err)
		}
		out = append(out, uint(v))
	}
	return out, nil
}
