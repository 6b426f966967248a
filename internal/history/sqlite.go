package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY,
	source_name   TEXT NOT NULL,
	output_path   TEXT NOT NULL DEFAULT '',
	file_name     TEXT NOT NULL DEFAULT '',
	success       INTEGER NOT NULL,
	error_code    TEXT NOT NULL DEFAULT '',
	error         TEXT NOT NULL DEFAULT '',
	warnings      TEXT NOT NULL DEFAULT '',
	total_tables  INTEGER NOT NULL DEFAULT 0,
	skipped_tables INTEGER NOT NULL DEFAULT 0,
	total_rows    INTEGER NOT NULL DEFAULT 0,
	matched_rows  INTEGER NOT NULL DEFAULT 0,
	skipped_rows  INTEGER NOT NULL DEFAULT 0,
	cells_updated INTEGER NOT NULL DEFAULT 0,
	duration_ns   INTEGER NOT NULL DEFAULT 0,
	client_ip     TEXT NOT NULL DEFAULT '',
	created_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC);
`

const runColumns = `id, source_name, output_path, file_name, success, error_code, error, warnings,
	total_tables, skipped_tables, total_rows, matched_rows, skipped_rows, cells_updated,
	duration_ns, client_ip, created_at`

// SQLiteStore keeps runs in a SQLite file. Timestamps are stored as Unix
// nanoseconds.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path. ":memory:"
// gives a private in-memory database.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite history: empty path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite history: create dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite history: open: %w", err)
	}
	// One writer; also keeps ":memory:" on a single connection.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite history: migrate: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Record(ctx context.Context, run Run) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.SourceName, run.OutputPath, run.FileName, boolInt(run.Success),
		run.ErrorCode, run.Error, joinWarnings(run.Warnings),
		run.Tables, run.SkippedTabs, run.TotalRows, run.MatchedRows, run.SkippedRows, run.CellsUpdated,
		int64(run.Duration), run.ClientIP, run.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", run.ID, err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanSQLiteRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", id, err)
	}
	return run, nil
}

func (s *SQLiteStore) List(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, id DESC LIMIT ?`, listLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanSQLiteRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *SQLiteStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE created_at < ?`, before.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteRun(sc rowScanner) (Run, error) {
	var (
		r        Run
		success  int
		warnings string
		duration int64
		created  int64
	)
	err := sc.Scan(&r.ID, &r.SourceName, &r.OutputPath, &r.FileName, &success,
		&r.ErrorCode, &r.Error, &warnings,
		&r.Tables, &r.SkippedTabs, &r.TotalRows, &r.MatchedRows, &r.SkippedRows, &r.CellsUpdated,
		&duration, &r.ClientIP, &created)
	if err != nil {
		return Run{}, err
	}
	r.Success = success != 0
	r.Warnings = splitWarnings(warnings)
	r.Duration = time.Duration(duration)
	r.CreatedAt = time.Unix(0, created).UTC()
	return r, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
