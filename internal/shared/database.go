package shared

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

const busyTimeoutMillis = 5000

// NewDatabase opens a connection to a SQLite database at the specified path.
// The path can be ":memory:" for an in-memory database, in which case the pool is pinned to a single
// connection so every query sees the same database.
//
// File databases begin transactions with BEGIN IMMEDIATE, so concurrent read-modify-write transactions
// queue on the busy timeout instead of failing with SQLITE_BUSY when they upgrade to a write lock.
func NewDatabase(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dataSourceName(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// OpenMigrated opens the database at path and applies all pending migrations.
func OpenMigrated(path string) (*sql.DB, error) {
	db, err := NewDatabase(path)
	if err != nil {
		return nil, err
	}
	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}

func dataSourceName(path string) string {
	if path == ":memory:" {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_txlock=immediate&_busy_timeout=" + strconv.Itoa(busyTimeoutMillis)
}
