package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"livechat-bot/models"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

const (
	driverSQLite   = "sqlite3"
	driverPostgres = "postgres"
)

// DB is the relational store behind the queue, the audience lock and moderation state.
// Queries are written with "?" placeholders and rebound for postgres.
type DB struct {
	sql    *sql.DB
	driver string
	log    zerolog.Logger
}

// Open connects to the configured database and ensures the schema exists.
func Open(ctx context.Context, cfg models.DatabaseConfig, log zerolog.Logger) (*DB, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "sqlite" || driver == "" {
		driver = driverSQLite
	}

	switch driver {
	case driverSQLite:
		// Ensure the directory for the database file exists.
		if dir := filepath.Dir(cfg.DSN); dir != "" && !strings.HasPrefix(cfg.DSN, "file:") {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	case driverPostgres:
	default:
		return nil, fmt.Errorf("unknown database driver: %s", cfg.Driver)
	}

	sqlDB, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driver == driverSQLite {
		// SQLite prefers a single writer.
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := &DB{sql: sqlDB, driver: driver, log: log.With().Str("component", "database").Logger()}
	if driver == driverSQLite {
		for _, pragma := range []string{"PRAGMA journal_mode = WAL", "PRAGMA busy_timeout = 5000"} {
			if _, err := sqlDB.ExecContext(ctx, pragma); err != nil {
				db.log.Warn().Err(err).Str("pragma", pragma).Msg("failed to apply pragma")
			}
		}
	}

	if err := db.Migrate(ctx); err != nil {
		sqlDB.Close()
		return nil, err
	}

	db.log.Info().Str("driver", driver).Msg("connected to database")
	return db, nil
}

// Close closes the underlying connection pool.
func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

// Migrate creates the tables and indexes if they don't exist.
func (d *DB) Migrate(ctx context.Context) error {
	stmts := sqliteSchema
	if d.driver == driverPostgres {
		stmts = postgresSchema
	}
	for _, stmt := range stmts {
		if _, err := d.sql.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// rebind converts "?" placeholders to "$n" for postgres.
func (d *DB) rebind(query string) string {
	if d.driver != driverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

// storeErr tags a persistence failure as transient while keeping the cause.
func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, models.ErrTransientStore, err)
}

func toMillis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms) }

func nullString(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
