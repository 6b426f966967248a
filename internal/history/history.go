// Package history records reconciliation runs so that results and corrected
// workbooks can be listed and downloaded later.
//
// Three backends share the Store interface:
//
//   - memory: process-local, lost on restart
//   - sqlite: single file via modernc.org/sqlite (no cgo)
//   - postgres: shared database via pgx
package history

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned by Get when no run has the requested ID.
var ErrNotFound = errors.New("run not found")

// Run is one recorded reconciliation.
type Run struct {
	ID           string        `json:"id"`
	SourceName   string        `json:"source_name"`
	OutputPath   string        `json:"output_path,omitempty"`
	FileName     string        `json:"filename,omitempty"`
	Success      bool          `json:"success"`
	ErrorCode    string        `json:"error_code,omitempty"`
	Error        string        `json:"error,omitempty"`
	Warnings     []string      `json:"warnings,omitempty"`
	Tables       int           `json:"total_tables"`
	SkippedTabs  int           `json:"skipped_tables"`
	TotalRows    int           `json:"total_rows"`
	MatchedRows  int           `json:"matched_rows"`
	SkippedRows  int           `json:"skipped_rows"`
	CellsUpdated int           `json:"cells_updated"`
	Duration     time.Duration `json:"duration_ns"`
	ClientIP     string        `json:"client_ip,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Store persists runs. Implementations are safe for concurrent use.
type Store interface {
	Record(ctx context.Context, run Run) error
	Get(ctx context.Context, id string) (Run, error)
	// List returns up to limit runs, newest first.
	List(ctx context.Context, limit int) ([]Run, error)
	// Prune deletes runs created before cutoff and returns how many went.
	Prune(ctx context.Context, before time.Time) (int64, error)
	Close() error
}

// DefaultListLimit applies when List is called with limit <= 0.
const DefaultListLimit = 50

// Driver names accepted by Open.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverPgx      = "pgx" // alias for postgres
)

// Open creates the store for driver. dsn is a file path for sqlite and a
// connection string for postgres; it is ignored for memory.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverMemory:
		return NewMemoryStore(), nil
	case DriverSQLite:
		s, err := OpenSQLite(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverPostgres, DriverPgx:
		s, err := OpenPostgres(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown history driver %q", driver)
	}
}

func listLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}

// joinWarnings and splitWarnings store warnings in a single text column.
func joinWarnings(w []string) string {
	return strings.Join(w, "\n")
}

func splitWarnings(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
