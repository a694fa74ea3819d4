package database

import (
	"database/sql"
	"fmt"

	"github.com/osmo/osmo/internal/config"
	_ "modernc.org/sqlite"
)

// NewInMemory opens an unmigrated in-memory database with foreign keys on.
// The pool is pinned to one connection so every query sees the same memory
// database.
func NewInMemory() (*DB, error) {
	sqlDB, err := sql.Open("sqlite", "file::memory:?_txlock=immediate&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory database: %w", err)
	}

	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if _, err := sqlDB.Exec("PRAGMA foreign_keys = ON"); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	return &DB{
		DB:     sqlDB,
		path:   ":memory:",
		config: &config.DatabaseConfig{},
	}, nil
}
