// Package db opens the SQLite store, applies the embedded schema and exposes the generated queries.
package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/rosterforge/rosterforge/internal/config"
	dbgen "github.com/rosterforge/rosterforge/internal/db/generated"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Connection parameters every DSN gets unless the caller already set them.
var dsnDefaults = url.Values{
	"_fk":           {"1"},
	"_busy_timeout": {"5000"},
	"_journal_mode": {"WAL"},
}

type DB struct {
	*sql.DB
	Queries *dbgen.Queries
}

// New opens dsn, brings the schema up to date and binds the generated queries.
func New(dsn string) (*DB, error) {
	dsn, err := withDefaults(dsn)
	if err != nil {
		return nil, err
	}
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One writer at a time keeps SQLite from returning SQLITE_BUSY under concurrent saves.
	conn.SetMaxOpenConns(1)
	conn.SetConnMaxIdleTime(5 * time.Minute)

	if err := Migrate(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return &DB{DB: conn, Queries: dbgen.New(conn)}, nil
}

// NewFromConfig opens the database named in cfg, creating its directory first.
func NewFromConfig(cfg *config.Config) (*DB, error) {
	if cfg == nil {
		return nil, errors.New("database config is required")
	}
	if cfg.Database.Driver != "sqlite" {
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}
	if dir := filepath.Dir(cfg.Database.Filename); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	return New(cfg.Database.Filename)
}

func withDefaults(dsn string) (string, error) {
	path, rawQuery, _ := strings.Cut(dsn, "?")
	params, err := url.ParseQuery(rawQuery)
	if err != nil {
		return "", fmt.Errorf("parse database dsn: %w", err)
	}
	for key, value := range dsnDefaults {
		if !params.Has(key) {
			params[key] = value
		}
	}
	// In-memory databases cannot use WAL.
	if path == ":memory:" || strings.Contains(path, "mode=memory") {
		params.Del("_journal_mode")
	}
	return path + "?" + params.Encode(), nil
}

// Migrate applies every pending embedded migration. An up-to-date schema is not an error.
func Migrate(conn *sql.DB) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	target, err := sqlite3.WithInstance(conn, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", target)
	if err != nil {
		return fmt.Errorf("migration setup: %w", err)
	}

	switch err := m.Up(); {
	case errors.Is(err, migrate.ErrNoChange):
	case err != nil:
		return fmt.Errorf("apply migrations: %w", err)
	default:
		version, _, _ := m.Version()
		log.Info().Uint("version", version).Msg("Database migrated")
	}
	return nil
}

// RunInTx calls fn with a DB whose queries run inside one transaction. fn's error or panic rolls it back.
func (db *DB) RunInTx(ctx context.Context, fn func(*DB) error) (err error) {
	tx, err := db.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
	}()

	if err := fn(&DB{DB: db.DB, Queries: db.Queries.WithTx(tx)}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	return nil
}
