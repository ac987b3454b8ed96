// Package db owns the database schema. The schema lives in embedded
// SQL migrations: the pgvector extension, the chunks table holding
// embedded article fragments, and its cosine similarity index.
package db

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5" // pgx v5 driver
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate brings the schema up to date. Migrations are embedded in the
// binary and applied in order; golang-migrate tracks progress in its
// schema_migrations table, so reruns are no-ops.
//
// connURL is a postgres:// or postgresql:// URL.
func Migrate(connURL string) error {
	m, err := open(connURL)
	if err != nil {
		return err
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil {
			slog.Warn("closing migration source", "error", srcErr)
		}
		if dbErr != nil {
			slog.Warn("closing migration database connection", "error", dbErr)
		}
	}()

	// A dirty version means an earlier run died mid-migration. Running
	// more migrations on top would compound the damage, so stop and ask
	// for manual repair.
	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("reading migration version: %w", err)
	}
	if dirty {
		slog.Error("schema is dirty, repair before migrating",
			"version", version,
			"hint", fmt.Sprintf("inspect schema and run: migrate force %d", version))
		return fmt.Errorf("database in dirty state (version=%d), manual cleanup required", version)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			slog.Debug("schema already up to date")
			return nil
		}
		if v, d, verr := m.Version(); verr == nil && d {
			slog.Error("migration failed partway, schema left dirty",
				"version", v,
				"hint", fmt.Sprintf("fix the migration and run: migrate force %d", v))
		}
		return fmt.Errorf("applying migrations: %w", err)
	}

	if version, dirty, err = m.Version(); err != nil {
		slog.Warn("migrations applied but version readback failed", "error", err)
	} else {
		slog.Info("migrations applied", "version", version, "dirty", dirty)
	}
	return nil
}

// open builds a migrate instance over the embedded migrations and the
// pgx v5 database driver.
func open(connURL string) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("loading embedded migrations: %w", err)
	}

	pgxURL, err := toPgxURL(connURL)
	if err != nil {
		return nil, err
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, pgxURL)
	if err != nil {
		return nil, fmt.Errorf("connecting for migrations: %w", err)
	}
	return m, nil
}

// toPgxURL rewrites the URL scheme to pgx5, which golang-migrate maps
// to its pgx v5 driver.
func toPgxURL(connURL string) (string, error) {
	u, err := url.Parse(connURL)
	if err != nil {
		return "", fmt.Errorf("parsing database URL: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "postgres", "postgresql":
		u.Scheme = "pgx5"
		return u.String(), nil
	default:
		return "", fmt.Errorf("unsupported database URL scheme %q (expected postgres or postgresql)", u.Scheme)
	}
}
