// Package sqlite owns the application's SQLite database: connection setup, declarative schema migration,
// fixtures, periodic optimisation and per-user data export.
package sqlite

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"

	_ "embed"
)

//go:embed schema.sql
var schemaDefinition string

//go:embed fixtures.sql
var fixtures string

// Database holds a single-connection writer and a pooled read-only handle to the same file.
type Database struct {
	ReadWrite *sql.DB
	ReadOnly  *sql.DB
	logger    *slog.Logger
}

// NewDatabase connects to url, migrates it to schema.sql, applies fixtures.sql and starts the hourly optimiser
// that runs until ctx is cancelled.
//
// url is a file path or ":memory:". Every in-memory database gets a unique name so that parallel tests stay
// isolated.
func NewDatabase(ctx context.Context, url string, logger *slog.Logger) (*Database, error) {
	db, err := connect(ctx, url, logger)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err = db.migrateTo(ctx, schemaDefinition); err != nil {
		return nil, errors.Join(fmt.Errorf("migrate: %w", err), db.Close())
	}
	if _, err = db.ReadWrite.ExecContext(ctx, fixtures); err != nil {
		return nil, errors.Join(fmt.Errorf("apply fixtures: %w", err), db.Close())
	}

	// 0x10002 also analyses tables that have never been analysed, which suits long-lived connections.
	db.optimize(ctx, "PRAGMA optimize = 0x10002")
	go db.runOptimizer(ctx, time.Hour)

	return db, nil
}

//nolint:gochecknoglobals // the driver can be registered only once per process.
var registerDriver sync.Once

const driverName = "sqlite3_fitplan"

func tunedDriver() *sqlite3.SQLiteDriver {
	return &sqlite3.SQLiteDriver{
		Extensions: nil,
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			pragmas := []string{
				// Temporary tables and indices live in memory.
				"PRAGMA temp_store = memory",
				// Memory-mapped I/O saves read syscalls.
				"PRAGMA mmap_size = 268435456",
				// Checkpoints are left to the backup sidecar.
				// See https://litestream.io/tips/#disable-autocheckpoints-for-high-write-load-servers
				"PRAGMA wal_autocheckpoint = 0",
			}
			if _, err := conn.Exec(strings.Join(pragmas, ";")+";", nil); err != nil {
				return fmt.Errorf("exec connection pragmas: %w", err)
			}
			return nil
		},
	}
}

func connect(ctx context.Context, url string, logger *slog.Logger) (*Database, error) {
	memoryParams := ""
	if strings.Contains(url, ":memory:") {
		// Shared cache lets the reader and the writer see the same in-memory database.
		// See https://www.sqlite.org/inmemorydb.html.
		url = rand.Text()
		memoryParams = "&mode=memory&cache=shared"
	}

	// Parameters prefixed with an underscore are documented at
	// https://pkg.go.dev/github.com/mattn/go-sqlite3#SQLiteDriver.Open, the rest at https://www.sqlite.org/uri.html.
	params := strings.Join([]string{
		"_loc=auto",
		"_defer_foreign_keys=1",
		"_journal_mode=wal",
		"_busy_timeout=5000",
		"_synchronous=normal",
		"_foreign_keys=on",
	}, "&")
	readWriteDSN := fmt.Sprintf("file:%s?mode=rwc&_txlock=immediate&%s%s", url, params, memoryParams)
	readOnlyDSN := fmt.Sprintf("file:%s?mode=ro&_txlock=deferred&_query_only=true&%s%s", url, params, memoryParams)
	if memoryParams != "" {
		// mode=ro and mode=memory are mutually exclusive. Query-only still prevents writes.
		readOnlyDSN = fmt.Sprintf("file:%s?_txlock=deferred&_query_only=true&%s%s", url, params, memoryParams)
	}

	registerDriver.Do(func() { sql.Register(driverName, tunedDriver()) })

	readWrite, err := open(ctx, readWriteDSN, 1)
	if err != nil {
		return nil, fmt.Errorf("open read-write database: %w", err)
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "opened database", slog.String("sqlDsn", readWriteDSN))

	const maxReaders = 10
	readOnly, err := open(ctx, readOnlyDSN, maxReaders)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("open read-only database: %w", err), readWrite.Close())
	}

	return &Database{
		ReadWrite: readWrite,
		ReadOnly:  readOnly,
		logger:    logger,
	}, nil
}

// open creates a pool of at most maxConns connections and pings it since sql.Open is lazy.
func open(ctx context.Context, dsn string, maxConns int) (*sql.DB, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(time.Hour)
	if err = db.PingContext(ctx); err != nil {
		return nil, errors.Join(fmt.Errorf("ping: %w", err), db.Close())
	}
	return db, nil
}

// Close closes both connection pools.
func (db *Database) Close() error {
	return errors.Join(db.ReadOnly.Close(), db.ReadWrite.Close())
}
