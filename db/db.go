package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/lib/pq"           // Import postgres driver
	_ "github.com/mattn/go-sqlite3" // Import sqlite driver
)

// Connect opens a handle for driver ("postgres" or "sqlite3") and verifies it
// with a ping bounded by timeout.
func Connect(driver, dsn string, timeout time.Duration, logger *slog.Logger) (*sql.DB, error) {
	if driver == "sqlite3" {
		dsn = sqliteDSN(dsn)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create database handle: %w", err)
	}

	// Configure connection pool
	if driver == "sqlite3" {
		// A single writer connection avoids SQLITE_BUSY between pooled connections.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
	}
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err = db.PingContext(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logger.Warn("failed to close database handle after ping error", slog.Any("error", closeErr))
		}
		return nil, fmt.Errorf("failed to ping database within %v: %w", timeout, err)
	}

	return db, nil
}

// sqlitePragmas are applied by the driver on every new connection.
var sqlitePragmas = []string{"_foreign_keys=on", "_busy_timeout=5000"}

// sqliteDSN appends the pragmas the caller did not set explicitly.
func sqliteDSN(dsn string) string {
	for _, p := range sqlitePragmas {
		key := p[:strings.IndexByte(p, '=')+1]
		if strings.Contains(dsn, key) {
			continue
		}
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + p
	}
	return dsn
}
