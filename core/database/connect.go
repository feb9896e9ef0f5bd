package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	coreconfig "github.com/m3rciful/juliabot/core/config"
	"github.com/m3rciful/juliabot/core/logger"
)

const driverName = "postgres"

// NormalizeDSN strips a "+driver" suffix from the URL scheme so that
// DSNs written for other clients (postgresql+asyncpg://...) are accepted by lib/pq.
func NormalizeDSN(dsn string) string {
	dsn = strings.TrimSpace(dsn)
	scheme, rest, ok := strings.Cut(dsn, "://")
	if !ok {
		return dsn
	}
	if base, _, found := strings.Cut(scheme, "+"); found {
		scheme = base
	}
	return scheme + "://" + rest
}

// describeDSN extracts host, port and database name for logs without leaking credentials.
func describeDSN(dsn string) (host, port, name string) {
	u, err := url.Parse(dsn)
	if err != nil || u.Host == "" {
		return "", "", ""
	}
	return u.Hostname(), u.Port(), strings.TrimPrefix(u.Path, "/")
}

// Connect opens the database connection pool (the session factory), configures it and verifies connectivity.
func Connect(ctx context.Context, cfg coreconfig.DatabaseConfig) (*sqlx.DB, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	dsn := NormalizeDSN(cfg.DSN)
	host, port, name := describeDSN(dsn)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	start := time.Now()
	sqlxDB, err := sqlx.ConnectContext(ctx, driverName, dsn)
	took := time.Since(start)
	if err != nil {
		logger.DB.Error("db connect failed",
			slog.String("event", "db.connect"),
			slog.String("driver", driverName),
			slog.String("host", host),
			slog.String("port", port),
			slog.String("db", name),
			slog.Duration("duration", logger.RoundMS(took)),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("db connect: %w", err)
	}

	sqlxDB.SetMaxOpenConns(cfg.MaxConnections)
	sqlxDB.SetMaxIdleConns(cfg.MaxConnections)
	logger.DB.Debug("db pool configured",
		slog.String("event", "db.pool"),
		slog.Int("pool_open", cfg.MaxConnections),
	)

	logger.DB.Info("db connected",
		slog.String("event", "db.connect"),
		slog.String("driver", driverName),
		slog.String("host", host),
		slog.String("port", port),
		slog.String("db", name),
		slog.Int("pool_open", cfg.MaxConnections),
		slog.Duration("duration", logger.RoundMS(took)),
	)

	return sqlxDB, nil
}

// pingInterval is the pause between readiness checks in WaitForPostgres.
var pingInterval = 2 * time.Second

// WaitForPostgres pings the database until it answers, timeout passes or ctx is done.
func WaitForPostgres(ctx context.Context, dsn string, timeout time.Duration) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		err := db.PingContext(ctx)
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for database: %w", errors.Join(ctx.Err(), err))
		case <-ticker.C:
		}
	}
}
