package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/CedricEugeni/MoMentor/pkg/config"

	_ "modernc.org/sqlite"
)

// SQLite wraps a database/sql handle opened with the pure-Go sqlite driver
type SQLite struct {
	DB   *sql.DB
	path string
}

// OpenSQLite opens (and creates if needed) a SQLite database file.
// ":memory:" opens a private in-memory database.
func OpenSQLite(path string) (*SQLite, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// 단일 writer: in-memory DB는 커넥션마다 별도 DB가 되므로 1로 고정
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	if path != ":memory:" {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite pragma %q: %w", p, err)
		}
	}

	return &SQLite{DB: db, path: path}, nil
}

// OpenSQLiteFromConfig opens the SQLite file named by a sqlite:// DATABASE_URL
func OpenSQLiteFromConfig(cfg config.DatabaseConfig) (*SQLite, error) {
	return OpenSQLite(cfg.SQLitePath())
}

// Close closes the database
func (s *SQLite) Close() error {
	return s.DB.Close()
}

// HealthCheck pings the database
func (s *SQLite) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	status := &HealthStatus{
		Driver:    config.DriverSQLite,
		Timestamp: time.Now(),
	}

	start := time.Now()
	if err := s.DB.PingContext(ctx); err != nil {
		status.Error = err.Error()
		return status, err
	}
	status.ResponseTime = time.Since(start)

	stats := s.DB.Stats()
	status.OpenConns = stats.OpenConnections
	status.IdleConns = stats.Idle
	status.Healthy = true
	return status, nil
}
