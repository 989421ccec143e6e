package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the application configuration
type Config struct {
	TelegramToken string

	// AdminIDs seeds the admin set; the first entry is the bot owner
	AdminIDs       []int64
	StorageGroupID int64
	ChannelID      string // optional force-sub channel seeded at startup

	// Bot mode configuration
	WebhookMode   bool   // If true, use webhook mode; if false, use polling mode
	WebhookURL    string // URL for webhook (required if WebhookMode is true)
	WebhookSecret string
	Port          string

	// MongoDB configuration
	MongoURI      string
	MongoDatabase string

	// ClickHouse activity log, disabled when ClickHouseHost is empty
	ClickHouseHost     string
	ClickHousePort     int
	ClickHouseDatabase string
	ClickHouseUser     string
	ClickHousePassword string
	ClickHouseUseTLS   bool

	UseMockDB bool
	LogLevel  string
}

// OwnerID is the first configured admin
func (c *Config) OwnerID() int64 {
	return c.AdminIDs[0]
}

// ActivityLogEnabled reports whether ClickHouse is configured
func (c *Config) ActivityLogEnabled() bool {
	return c.ClickHouseHost != ""
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	config := &Config{}

	// Telegram Bot Token (required)
	config.TelegramToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	if config.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	// Admin IDs (required, first one is the owner)
	adminIDsStr := os.Getenv("ADMIN_IDS")
	if adminIDsStr == "" {
		return nil, fmt.Errorf("ADMIN_IDS is required (comma-separated list of Telegram user IDs, owner first)")
	}
	for _, idStr := range strings.Split(adminIDsStr, ",") {
		idStr = strings.TrimSpace(idStr)
		if idStr == "" {
			continue
		}
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid user ID in ADMIN_IDS: %s", idStr)
		}
		config.AdminIDs = append(config.AdminIDs, id)
	}
	if len(config.AdminIDs) == 0 {
		return nil, fmt.Errorf("ADMIN_IDS must contain at least one user ID")
	}

	// Storage group (required, uploads are copied there)
	groupStr := os.Getenv("STORAGE_GROUP_ID")
	if groupStr == "" {
		return nil, fmt.Errorf("STORAGE_GROUP_ID is required")
	}
	groupID, err := strconv.ParseInt(strings.TrimSpace(groupStr), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid STORAGE_GROUP_ID: %w", err)
	}
	config.StorageGroupID = groupID

	config.ChannelID = strings.TrimSpace(os.Getenv("CHANNEL_ID"))

	// Bot mode configuration
	config.WebhookMode = os.Getenv("WEBHOOK_MODE") == "true"
	if config.WebhookMode {
		config.WebhookURL = os.Getenv("WEBHOOK_URL")
		if config.WebhookURL == "" {
			return nil, fmt.Errorf("WEBHOOK_URL is required when WEBHOOK_MODE is true")
		}
		config.WebhookSecret = os.Getenv("WEBHOOK_SECRET")
	}

	config.Port = os.Getenv("PORT")
	if config.Port == "" {
		config.Port = "8080" // Default port
	}

	// Use Mock DB (default: false)
	config.UseMockDB = os.Getenv("USE_MOCK_DB") == "true"

	// MongoDB configuration (required if not using mock)
	if !config.UseMockDB {
		config.MongoURI = os.Getenv("MONGO_URI")
		if config.MongoURI == "" {
			return nil, fmt.Errorf("MONGO_URI is required when USE_MOCK_DB is not set")
		}
		config.MongoDatabase = os.Getenv("MONGO_DATABASE")
		if config.MongoDatabase == "" {
			config.MongoDatabase = "filebot"
		}
	}

	// ClickHouse configuration (optional activity log)
	if err := loadClickHouse(config, ""); err != nil {
		return nil, err
	}

	config.LogLevel = logLevel()

	return config, nil
}

// LoadClickHouseFromEnv reads only the ClickHouse settings, for tools that
// do not run the bot. The host defaults to localhost.
func LoadClickHouseFromEnv() (*Config, error) {
	config := &Config{LogLevel: logLevel()}
	if err := loadClickHouse(config, "localhost"); err != nil {
		return nil, err
	}
	return config, nil
}

// loadClickHouse leaves the ClickHouse fields empty when no host is set
func loadClickHouse(config *Config, defaultHost string) error {
	config.ClickHouseHost = os.Getenv("CLICKHOUSE_HOST")
	if config.ClickHouseHost == "" {
		config.ClickHouseHost = defaultHost
	}
	if config.ClickHouseHost == "" {
		return nil
	}

	portStr := os.Getenv("CLICKHOUSE_PORT")
	if portStr == "" {
		config.ClickHousePort = 9000 // Default ClickHouse native port
	} else {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("invalid CLICKHOUSE_PORT: %w", err)
		}
		config.ClickHousePort = port
	}

	config.ClickHouseDatabase = os.Getenv("CLICKHOUSE_DATABASE")
	if config.ClickHouseDatabase == "" {
		config.ClickHouseDatabase = "default"
	}

	config.ClickHouseUser = os.Getenv("CLICKHOUSE_USER")
	if config.ClickHouseUser == "" {
		config.ClickHouseUser = "default"
	}

	// Password is optional, can be empty
	config.ClickHousePassword = os.Getenv("CLICKHOUSE_PASSWORD")
	config.ClickHouseUseTLS = os.Getenv("CLICKHOUSE_USE_TLS") == "true"
	return nil
}

func logLevel() string {
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		return level
	}
	return "info"
}
