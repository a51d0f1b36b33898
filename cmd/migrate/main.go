package main

// Apply the Postgres session schema:
//   go run ./cmd/migrate --database-url postgres://...

import (
	"context"
	"os"

	"github.com/spf13/pflag"

	"interview-relay/internal/shared/config"
	"interview-relay/internal/shared/storage/db"
	"interview-relay/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()

	flags := pflag.NewFlagSet("migrate", pflag.ExitOnError)
	flags.StringVar(&cfg.DatabaseURL, "database-url", cfg.DatabaseURL, "Postgres connection string")
	_ = flags.Parse(os.Args[1:])

	telemetry.Configure(os.Stdout, cfg.LogLevel, cfg.LogPretty)
	ctx := context.Background()

	opts := db.OptionsFromEnv(db.DefaultMigrateOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		telemetry.Error("migrate.connect_failed", map[string]any{"err": err.Error()})
		os.Exit(1)
	}
	defer sqlDB.Close()

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		telemetry.Error("migrate.failed", map[string]any{"err": err.Error()})
		os.Exit(1)
	}
	telemetry.Info("migrate.done", nil)
}
