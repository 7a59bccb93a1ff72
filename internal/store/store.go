// Package store provides the durable service-alert store behind
// database/sql, with Postgres for deployments and SQLite for local runs.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/jo12no/lightrail-sydney-alerts/internal/alert"
)

const (
	// DriverPostgres selects the lib/pq driver.
	DriverPostgres = "postgres"
	// DriverSQLite selects the modernc.org/sqlite driver.
	DriverSQLite = "sqlite"

	tableName = "service_alerts"
)

// ErrUnavailable marks a store transport failure (connect, query, insert).
// Callers must propagate it; treating an unreachable store as "not known"
// would break deduplication on the next run.
var ErrUnavailable = errors.New("store: unavailable")

// ErrDuplicateKey marks a uniqueness violation on alert_id at insert time.
// The store's unique constraint is the final arbiter when two overlapping
// runs race past the existence check.
var ErrDuplicateKey = errors.New("store: duplicate alert_id")

// uniqueViolation is the Postgres SQLSTATE for unique constraint errors.
const uniqueViolation = "23505"

// Store wraps a database connection and provides alert persistence.
type Store struct {
	conn   *sql.DB
	driver string
	loc    *time.Location
}

// Config holds store configuration.
type Config struct {
	Driver   string
	DSN      string
	Timezone *time.Location
}

// Open creates a store connection and verifies it with a ping.
func Open(cfg Config) (*Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverPostgres
	}
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("store: unsupported driver %q", driver)
	}

	conn, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("%w: opening connection: %v", ErrUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: ping: %v", ErrUnavailable, err)
	}

	loc := cfg.Timezone
	if loc == nil {
		loc = time.UTC
	}

	slog.Info("Connected to alert store", "driver", driver)

	return &Store{conn: conn, driver: driver, loc: loc}, nil
}

// Close closes the store connection.
func (s *Store) Close() error {
	if s.conn != nil {
		slog.Info("Closing store connection")
		return s.conn.Close()
	}
	return nil
}

// EnsureSchema creates the alerts table if it does not exist yet.
// The create is idempotent; an existing table is left untouched.
func (s *Store) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS ` + tableName + ` (
			alert_id TEXT NOT NULL,
			url TEXT NOT NULL,
			title TEXT NOT NULL,
			description_html TEXT NOT NULL,
			start_date TEXT NOT NULL,
			end_date TEXT NOT NULL,
			l1_line_impacted BOOLEAN NOT NULL,
			creation_date TIMESTAMP NOT NULL,
			CONSTRAINT service_alerts_alert_id_key UNIQUE (alert_id)
		)
	`
	if _, err := s.conn.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("%w: ensuring schema: %v", ErrUnavailable, err)
	}
	slog.Debug("Alert table present", "table", tableName)
	return nil
}

// Exists reports whether an alert with the given id is already recorded.
// The store is authoritative on every check; results are never cached.
func (s *Store) Exists(ctx context.Context, alertID string) (bool, error) {
	query := `SELECT COUNT(*) FROM ` + tableName + ` WHERE alert_id = ` + s.placeholder(1)

	var count int
	if err := s.conn.QueryRowContext(ctx, query, alertID).Scan(&count); err != nil {
		return false, fmt.Errorf("%w: existence check for %s: %v", ErrUnavailable, alertID, err)
	}
	if count > 0 {
		slog.Info("Alert already recorded, skipping", "alert_id", alertID)
		return true, nil
	}
	return false, nil
}

// Insert records one alert row. The creation_date stamp uses the store's
// insertion-time clock in the configured civil timezone, not the caller's.
// A uniqueness violation returns ErrDuplicateKey.
func (s *Store) Insert(ctx context.Context, a alert.Alert) error {
	var query string
	args := []any{a.ID, a.URL, a.Title, a.Description, a.StartDate, a.EndDate, a.Relevant}

	switch s.driver {
	case DriverPostgres:
		query = `
			INSERT INTO ` + tableName + ` (alert_id, url, title, description_html, start_date, end_date, l1_line_impacted, creation_date)
			VALUES ($1, $2, $3, $4, $5, $6, $7, timezone($8, now()))
		`
		args = append(args, s.loc.String())
	default:
		// SQLite runs in-process, so the process clock is the store clock.
		query = `
			INSERT INTO ` + tableName + ` (alert_id, url, title, description_html, start_date, end_date, l1_line_impacted, creation_date)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`
		args = append(args, time.Now().In(s.loc).Format("2006-01-02 15:04:05"))
	}

	if _, err := s.conn.ExecContext(ctx, query, args...); err != nil {
		if isDuplicate(err) {
			slog.Warn("Duplicate alert_id rejected by store", "alert_id", a.ID)
			return fmt.Errorf("%w: %s", ErrDuplicateKey, a.ID)
		}
		return fmt.Errorf("%w: inserting %s: %v", ErrUnavailable, a.ID, err)
	}

	slog.Info("Recorded new alert",
		"alert_id", a.ID,
		"title", a.Title,
		"start_date", a.StartDate,
		"end_date", a.EndDate,
	)
	return nil
}

// placeholder renders the driver's positional parameter syntax.
func (s *Store) placeholder(n int) string {
	if s.driver == DriverPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// isDuplicate reports whether err is a unique constraint violation for
// either driver.
func isDuplicate(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
