// Command migrate manages the ClickHouse activity table with goose.
//
// Usage: migrate [up|down|redo|status|version|create <name>]
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"filebot/internal/config"
	"filebot/internal/storage/ch"
)

func main() {
	envErr := godotenv.Load()

	logger := zap.Must(zap.NewDevelopment())
	defer func() { _ = logger.Sync() }()
	if envErr != nil {
		logger.Info("No .env file found, using system environment variables")
	}

	if err := run(logger, os.Args[1:]); err != nil {
		logger.Error("Migration failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(logger *zap.Logger, args []string) error {
	cfg, err := config.LoadClickHouseFromEnv()
	if err != nil {
		return err
	}

	command := "up"
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}
	dir := os.Getenv("MIGRATIONS_DIR")
	if dir == "" {
		dir = "./migrations"
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Connecting to ClickHouse",
		zap.String("host", cfg.ClickHouseHost),
		zap.Int("port", cfg.ClickHousePort),
		zap.String("database", cfg.ClickHouseDatabase),
	)
	dsn := ch.DSN(cfg.ClickHouseHost, cfg.ClickHousePort, cfg.ClickHouseDatabase,
		cfg.ClickHouseUser, cfg.ClickHousePassword, cfg.ClickHouseUseTLS)
	migrator, err := ch.NewMigrator(ctx, dsn, dir, logger)
	if err != nil {
		return err
	}
	defer migrator.Close()

	return migrator.Run(ctx, command, args...)
}
