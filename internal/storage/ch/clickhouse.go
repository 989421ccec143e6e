package ch

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"filebot/internal/models"
)

// ClickHouseDB is the append-only activity log backed by the activity table
type ClickHouseDB struct {
	conn clickhouse.Conn
}

// NewClickHouseDB creates a new ClickHouse database connection
func NewClickHouseDB(host string, port int, database, user, password string, useTLS bool) (*ClickHouseDB, error) {
	addr := fmt.Sprintf("%s:%d", host, port)

	options := &clickhouse.Options{
		Addr:     []string{addr},
		Protocol: clickhouse.Native,
		Auth: clickhouse.Auth{
			Database: database,
			Username: user,
			Password: password,
		},
		DialTimeout: 10 * time.Second,
	}

	if useTLS {
		options.TLS = &tls.Config{
			InsecureSkipVerify: false,
		}
	}

	conn, err := clickhouse.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	return &ClickHouseDB{conn: conn}, nil
}

// Record appends one activity row
func (db *ClickHouseDB) Record(ctx context.Context, activity models.Activity) error {
	ts := activity.Time
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	err := db.conn.Exec(ctx, `INSERT INTO activity (ts, kind, user_id, subject, outcome) VALUES (?, ?, ?, ?, ?)`,
		ts, string(activity.Kind), activity.UserID, activity.Subject, activity.Outcome)
	if err != nil {
		return fmt.Errorf("failed to record activity: %w", err)
	}
	return nil
}

// Totals returns the number of rows per activity kind
func (db *ClickHouseDB) Totals(ctx context.Context) ([]models.ActivityStat, error) {
	rows, err := db.conn.Query(ctx, `SELECT kind, count() FROM activity GROUP BY kind ORDER BY kind`)
	if err != nil {
		return nil, fmt.Errorf("failed to count activity: %w", err)
	}
	defer rows.Close()

	var stats []models.ActivityStat
	for rows.Next() {
		var (
			kind  string
			count uint64
		)
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("failed to scan activity totals: %w", err)
		}
		stats = append(stats, models.ActivityStat{Kind: models.ActivityKind(kind), Count: count})
	}
	return stats, rows.Err()
}

// Recent returns the last limit rows for one user, newest first
func (db *ClickHouseDB) Recent(ctx context.Context, userID int64, limit int) ([]models.Activity, error) {
	rows, err := db.conn.Query(ctx,
		`SELECT ts, kind, user_id, subject, outcome FROM activity WHERE user_id = ? ORDER BY ts DESC LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent activity: %w", err)
	}
	defer rows.Close()

	var out []models.Activity
	for rows.Next() {
		var (
			a    models.Activity
			kind string
		)
		if err := rows.Scan(&a.Time, &kind, &a.UserID, &a.Subject, &a.Outcome); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		a.Kind = models.ActivityKind(kind)
		out = append(out, a)
	}
	return out, rows.Err()
}

// Close closes the database connection
func (db *ClickHouseDB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}
