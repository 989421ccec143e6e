package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/testcontainers/testcontainers-go/modules/clickhouse"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.uber.org/zap"

	"filebot/internal/app"
	"filebot/internal/storage/ch"
)

// main starts MongoDB and ClickHouse containers and runs the bot against them
func main() {
	ctx := context.Background()

	log.Println("Starting MongoDB testcontainer...")
	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	if err != nil {
		log.Fatalf("Failed to start MongoDB container: %v", err)
	}
	defer func() {
		log.Println("Stopping MongoDB container...")
		if err := mongoContainer.Terminate(ctx); err != nil {
			log.Printf("Failed to terminate container: %v", err)
		}
	}()

	mongoURI, err := mongoContainer.ConnectionString(ctx)
	if err != nil {
		log.Fatalf("Failed to get MongoDB connection string: %v", err)
	}
	log.Printf("MongoDB started at %s", mongoURI)

	log.Println("Starting ClickHouse testcontainer...")
	clickhouseContainer, err := clickhouse.Run(ctx,
		"clickhouse/clickhouse-server:latest",
		clickhouse.WithUsername("default"),
		clickhouse.WithPassword("devpassword"),
		clickhouse.WithDatabase("default"),
	)
	if err != nil {
		log.Fatalf("Failed to start ClickHouse container: %v", err)
	}
	defer func() {
		log.Println("Stopping ClickHouse container...")
		if err := clickhouseContainer.Terminate(ctx); err != nil {
			log.Printf("Failed to terminate container: %v", err)
		}
	}()

	host, err := clickhouseContainer.Host(ctx)
	if err != nil {
		log.Fatalf("Failed to get container host: %v", err)
	}
	port, err := clickhouseContainer.MappedPort(ctx, "9000/tcp")
	if err != nil {
		log.Fatalf("Failed to get container port: %v", err)
	}
	log.Printf("ClickHouse started at %s:%s", host, port.Port())

	if err := migrate(ctx, host, port.Int()); err != nil {
		log.Printf("Failed to migrate ClickHouse: %v", err)
		return
	}

	// Set environment variables for the application
	os.Setenv("MONGO_URI", mongoURI)
	os.Setenv("MONGO_DATABASE", "filebot")
	os.Setenv("CLICKHOUSE_HOST", host)
	os.Setenv("CLICKHOUSE_PORT", port.Port())
	os.Setenv("CLICKHOUSE_DATABASE", "default")
	os.Setenv("CLICKHOUSE_USER", "default")
	os.Setenv("CLICKHOUSE_PASSWORD", "devpassword")
	os.Setenv("CLICKHOUSE_USE_TLS", "false")
	os.Setenv("USE_MOCK_DB", "false")
	os.Setenv("WEBHOOK_MODE", "false")
	if os.Getenv("LOG_LEVEL") == "" {
		os.Setenv("LOG_LEVEL", "debug")
	}

	for _, key := range []string{"TELEGRAM_BOT_TOKEN", "ADMIN_IDS", "STORAGE_GROUP_ID"} {
		if os.Getenv(key) == "" {
			log.Printf("⚠️  %s not set. Please set it in your .env file or environment.", key)
		}
	}

	log.Println("Starting application with MongoDB and ClickHouse backends...")
	fmt.Println()

	application, err := app.New()
	if err != nil {
		log.Printf("Failed to create application: %v", err)
		return
	}

	// Run blocks until SIGINT/SIGTERM, then the deferred cleanup stops the containers
	if err := application.Run(); err != nil {
		log.Printf("Application error: %v", err)
	}
}

// migrate applies the activity log migrations to the dev container
func migrate(ctx context.Context, host string, port int) error {
	dsn := ch.DSN(host, port, "default", "default", "devpassword", false)
	migrator, err := ch.NewMigrator(ctx, dsn, "./migrations", zap.NewNop())
	if err != nil {
		return err
	}
	defer migrator.Close()
	return migrator.Run(ctx, "up")
}
