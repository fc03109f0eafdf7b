// Package database connects to PostgreSQL through pgxpool and applies
// the embedded schema migrations with golang-migrate.
package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Connect creates a pgx connection pool and pings it
func Connect(ctx context.Context, databaseURL string, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.Info("Postgres connection established",
		slog.String("host", poolCfg.ConnConfig.Host),
		slog.Int("port", int(poolCfg.ConnConfig.Port)),
		slog.String("database", poolCfg.ConnConfig.Database),
	)
	return pool, nil
}

// Migrate applies all pending up migrations embedded in the binary
func Migrate(databaseURL string, logger *slog.Logger) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, MigrationURL(databaseURL))
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	logMigrationVersion(logger, m)
	return nil
}

// versioner is satisfied by *migrate.Migrate
type versioner interface {
	Version() (version uint, dirty bool, err error)
}

func logMigrationVersion(logger *slog.Logger, m versioner) {
	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		logger.Info("Database migrations applied", slog.String("version", "none"))
	case err != nil:
		logger.Warn("Database migrations applied, version unknown", slog.String("error", err.Error()))
	default:
		logger.Info("Database migrations applied",
			slog.Uint64("version", uint64(version)),
			slog.Bool("dirty", dirty),
		)
	}
}

// MigrationURL rewrites a postgres:// URL to the pgx5:// scheme golang-migrate's pgx driver expects
func MigrationURL(databaseURL string) string {
	for _, scheme := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(databaseURL, scheme) {
			return "pgx5://" + strings.TrimPrefix(databaseURL, scheme)
		}
	}
	return databaseURL
}

// pinger is satisfied by *pgxpool.Pool
type pinger interface {
	Ping(ctx context.Context) error
}

// ReadinessChecker reports whether PostgreSQL is reachable
type ReadinessChecker struct {
	db      pinger
	timeout time.Duration
}

// NewReadinessChecker creates a PostgreSQL readiness check over the pool
func NewReadinessChecker(pool *pgxpool.Pool) *ReadinessChecker {
	return &ReadinessChecker{db: pool, timeout: 3 * time.Second}
}

// CheckReady pings PostgreSQL. Returns status ("ok" or "fail") and a message.
func (c *ReadinessChecker) CheckReady(ctx context.Context) (status, message string) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.db.Ping(ctx); err != nil {
		return "fail", fmt.Sprintf("postgres unavailable: %v", err)
	}
	return "ok", "connection active"
}
