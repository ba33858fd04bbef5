// Package database provides database connection and initialization functionality.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// DatabaseProfile defines different configuration profiles for databases
type DatabaseProfile string

const (
	// ProfileStandard - read/write, used for fixtures and price history imports
	ProfileStandard DatabaseProfile = "standard"
	// ProfileReadOnly - price history consumed by the optimizer, never written
	ProfileReadOnly DatabaseProfile = "readonly"
)

// DB wraps the database connection
type DB struct {
	conn *sql.DB
}

// Config holds database configuration
type Config struct {
	Path    string
	Profile DatabaseProfile
	Name    string // Friendly name for error messages (e.g., "history")
}

// New opens a SQLite database. Read-only databases must already exist; the
// returned error then wraps os.ErrNotExist.
func New(cfg Config) (*DB, error) {
	if cfg.Profile == "" {
		cfg.Profile = ProfileStandard
	}

	// file: URIs (in-memory databases in tests) are used as-is
	if !strings.HasPrefix(cfg.Path, "file:") {
		absPath, err := filepath.Abs(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve database path to absolute: %w", err)
		}
		cfg.Path = absPath

		if cfg.Profile == ProfileReadOnly {
			if _, err := os.Stat(absPath); err != nil {
				return nil, fmt.Errorf("database %s: %w", cfg.Name, err)
			}
		} else if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", buildConnectionString(cfg.Path, cfg.Profile))
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", cfg.Name, err)
	}

	// Test connection with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database %s: %w", cfg.Name, err)
	}

	return &DB{conn: conn}, nil
}

func buildConnectionString(path string, profile DatabaseProfile) string {
	switch profile {
	case ProfileReadOnly:
		if !strings.HasPrefix(path, "file:") {
			path = "file:" + path
		}
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return path + sep + "mode=ro&_pragma=query_only(1)&_pragma=busy_timeout(5000)"
	default:
		// Rollback journal, not WAL, so read-only handles never need -shm files
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return path + sep + "_pragma=synchronous(NORMAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	}
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying *sql.DB
func (db *DB) Conn() *sql.DB {
	return db.conn
}
