package ch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

// ErrUnknownCommand is returned for commands the migrator does not support
var ErrUnknownCommand = errors.New("unknown migration command")

// DSN builds the database/sql form of the native connection settings
func DSN(host string, port int, database, user, password string, useTLS bool) string {
	q := url.Values{}
	q.Set("dial_timeout", "10s")
	q.Set("max_execution_time", "60")
	if useTLS {
		q.Set("secure", "true")
	}
	u := url.URL{
		Scheme:   "clickhouse",
		User:     url.UserPassword(user, password),
		Host:     net.JoinHostPort(host, strconv.Itoa(port)),
		Path:     "/" + database,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// Migrator applies the goose migrations of the activity table
type Migrator struct {
	db     *sql.DB
	dir    string
	logger *zap.Logger
}

// NewMigrator opens a database/sql handle for goose and checks it is reachable
func NewMigrator(ctx context.Context, dsn, dir string, logger *zap.Logger) (*Migrator, error) {
	db, err := sql.Open("clickhouse", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open ClickHouse: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}
	if err := goose.SetDialect("clickhouse"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set goose dialect: %w", err)
	}
	goose.SetLogger(zap.NewStdLog(logger.Named("goose")))

	return &Migrator{db: db, dir: dir, logger: logger}, nil
}

// Run executes one goose command: up, down, redo, status, version or create <name>
func (m *Migrator) Run(ctx context.Context, command string, args ...string) error {
	m.logger.Info("Running migrations", zap.String("command", command), zap.String("dir", m.dir))

	switch command {
	case "up":
		return m.wrap("apply", goose.UpContext(ctx, m.db, m.dir))
	case "down":
		return m.wrap("roll back", goose.DownContext(ctx, m.db, m.dir))
	case "redo":
		return m.wrap("redo", goose.RedoContext(ctx, m.db, m.dir))
	case "status":
		return m.wrap("report status of", goose.StatusContext(ctx, m.db, m.dir))
	case "version":
		version, err := goose.GetDBVersionContext(ctx, m.db)
		if err != nil {
			return m.wrap("read version of", err)
		}
		m.logger.Info("Current migration version", zap.Int64("version", version))
		return nil
	case "create":
		if len(args) == 0 || args[0] == "" {
			return errors.New("create needs a migration name")
		}
		return m.wrap("create", goose.Create(m.db, m.dir, args[0], "sql"))
	default:
		return fmt.Errorf("%w %q (available: up, down, redo, status, version, create)", ErrUnknownCommand, command)
	}
}

func (m *Migrator) wrap(action string, err error) error {
	if err != nil {
		return fmt.Errorf("failed to %s migrations: %w", action, err)
	}
	m.logger.Info("Migrations done")
	return nil
}

// Close releases the database/sql handle
func (m *Migrator) Close() error {
	return m.db.Close()
}
