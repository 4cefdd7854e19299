package shared

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// MemoryDatabase is the path that opens a private in-memory database.
const MemoryDatabase = ":memory:"

// dsn appends the pragmas every file-backed database gets: WAL so the daemon and CLI
// can share the file, a busy timeout instead of immediate SQLITE_BUSY, and foreign keys.
func dsn(path string) string {
	if path == MemoryDatabase || strings.Contains(path, "?") {
		return path
	}
	return path + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
}

// NewDatabase opens and pings the SQLite database at path.
func NewDatabase(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: database path is empty", ErrInvalidConfig)
	}
	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every pooled connection to ":memory:" would see its own empty database.
	if path == MemoryDatabase {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// ConfigureDatabase applies the pool limits from [DatabaseConfig]. Non-positive values
// leave the driver defaults; at least one idle connection is kept so an in-memory
// database is not dropped between queries.
func ConfigureDatabase(db *sql.DB, maxOpenConns, maxIdleConns int) {
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}
	db.SetMaxIdleConns(max(maxIdleConns, 1))
}
