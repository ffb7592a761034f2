package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/reportbot/reportbot/internal/config"
	dbpostgres "github.com/reportbot/reportbot/internal/database/postgres"
	"github.com/reportbot/reportbot/internal/migrations"
	"github.com/reportbot/reportbot/internal/observability"
)

func main() {
	direction := flag.String("direction", "up", "migration direction: up|down|status")
	steps := flag.Int("steps", 0, "number of migration steps; 0 means all for up, 1 for down")
	envFile := flag.String("env-file", ".env", "optional dotenv file; process environment wins")
	flag.Parse()

	cfg, err := config.LoadFromEnvFile("reportbot-migrate", *envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	if cfg.Database.DSN == "" {
		fmt.Fprintln(os.Stderr, "REPORTBOT_DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := dbpostgres.Open(ctx, dbpostgres.ConfigFromSettings(cfg.Database))
	if err != nil {
		fmt.Fprintf(os.Stderr, "database open error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	runner := migrations.NewRunner(observability.NewLogger(cfg, os.Stderr))
	switch *direction {
	case "up":
		applied, err := runner.Up(ctx, db, *steps)
		if err != nil {
			fmt.Fprintf(os.Stderr, "migration up failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("applied %d migration(s)\n", applied)
	case "down":
		applied, err := runner.Down(ctx, db, *steps)
		if err != nil {
			fmt.Fprintf(os.Stderr, "migration down failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("rolled back %d migration(s)\n", applied)
	case "status":
		states, err := runner.Status(ctx, db)
		if err != nil {
			fmt.Fprintf(os.Stderr, "migration status failed: %v\n", err)
			os.Exit(1)
		}
		for _, state := range states {
			label := "pending"
			switch {
			case state.Drifted:
				label = "modified"
			case state.Applied:
				label = "applied"
			}
			fmt.Printf("%06d_%s\t%s\n", state.Version, state.Name, label)
		}
	default:
		fmt.Fprintf(os.Stderr, "invalid direction: %s\n", *direction)
		os.Exit(1)
	}
}
