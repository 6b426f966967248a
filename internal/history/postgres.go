package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS reconcile_runs (
	id             TEXT PRIMARY KEY,
	source_name    TEXT NOT NULL,
	output_path    TEXT NOT NULL DEFAULT '',
	file_name      TEXT NOT NULL DEFAULT '',
	success        BOOLEAN NOT NULL,
	error_code     TEXT NOT NULL DEFAULT '',
	error          TEXT NOT NULL DEFAULT '',
	warnings       TEXT[] NOT NULL DEFAULT '{}',
	total_tables   INTEGER NOT NULL DEFAULT 0,
	skipped_tables INTEGER NOT NULL DEFAULT 0,
	total_rows     INTEGER NOT NULL DEFAULT 0,
	matched_rows   INTEGER NOT NULL DEFAULT 0,
	skipped_rows   INTEGER NOT NULL DEFAULT 0,
	cells_updated  INTEGER NOT NULL DEFAULT 0,
	duration_ms    BIGINT NOT NULL DEFAULT 0,
	client_ip      TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS reconcile_runs_created_at_idx ON reconcile_runs (created_at DESC);
`

const pgRunColumns = `id, source_name, output_path, file_name, success, error_code, error, warnings,
	total_tables, skipped_tables, total_rows, matched_rows, skipped_rows, cells_updated,
	duration_ms, client_ip, created_at`

// PostgresStore keeps runs in the reconcile_runs table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to dsn and ensures the schema exists.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, errors.New("postgres history: empty DSN")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres history: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres history: ping: %w", err)
	}

	return NewPostgresStore(ctx, pool)
}

// NewPostgresStore uses an existing pool. The pool is closed by Close.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres history: migrate: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Record(ctx context.Context, run Run) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	warnings := run.Warnings
	if warnings == nil {
		warnings = []string{}
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO reconcile_runs (id, source_name, output_path, file_name, success, error_code, error,
			warnings, total_tables, skipped_tables, total_rows, matched_rows, skipped_rows, cells_updated,
			duration_ms, client_ip, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (id) DO UPDATE SET
			output_path = EXCLUDED.output_path,
			file_name = EXCLUDED.file_name,
			success = EXCLUDED.success,
			error_code = EXCLUDED.error_code,
			error = EXCLUDED.error,
			warnings = EXCLUDED.warnings`,
		run.ID, run.SourceName, run.OutputPath, run.FileName, run.Success, run.ErrorCode, run.Error,
		warnings, run.Tables, run.SkippedTabs, run.TotalRows, run.MatchedRows, run.SkippedRows,
		run.CellsUpdated, run.Duration.Milliseconds(), run.ClientIP, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", run.ID, err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Run, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+pgRunColumns+` FROM reconcile_runs WHERE id = $1`, id)
	run, err := scanPostgresRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", id, err)
	}
	return run, nil
}

func (s *PostgresStore) List(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+pgRunColumns+` FROM reconcile_runs ORDER BY created_at DESC, id DESC LIMIT $1`, listLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanPostgresRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *PostgresStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM reconcile_runs WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func scanPostgresRun(row pgx.Row) (Run, error) {
	var (
		r        Run
		duration int64
	)
	err := row.Scan(&r.ID, &r.SourceName, &r.OutputPath, &r.FileName, &r.Success, &r.ErrorCode, &r.Error,
		&r.Warnings, &r.Tables, &r.SkippedTabs, &r.TotalRows, &r.MatchedRows, &r.SkippedRows,
		&r.CellsUpdated, &duration, &r.ClientIP, &r.CreatedAt)
	if err != nil {
		return Run{}, err
	}
	if len(r.Warnings) == 0 {
		r.Warnings = nil
	}
	r.Duration = time.Duration(duration) * time.Millisecond
	return r, nil
}
