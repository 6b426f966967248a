package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/sheetpatch/internal/history"
	"github.com/JonMunkholm/sheetpatch/internal/logging"
	"github.com/JonMunkholm/sheetpatch/internal/sheet"
)

// DefaultRunTimeout bounds a single reconciliation, including the wait for a slot.
const DefaultRunTimeout = 5 * time.Minute

// ServiceConfig wires a Service. Zero values fall back to defaults.
type ServiceConfig struct {
	Options      Options
	OutputDir    string // corrected copies; defaults to the workbook's directory
	OutputSuffix string // defaults to sheet.DefaultSuffix
	RunTimeout   time.Duration
	History      history.Store
	Limiter      *RunLimiter
}

// Service runs reconciliations end to end: decode, extract, load, reconcile,
// save and record.
type Service struct {
	opts      Options
	outputDir string
	suffix    string
	timeout   time.Duration
	history   history.Store
	limiter   *RunLimiter
}

// NewService creates a Service.
func NewService(cfg ServiceConfig) *Service {
	if cfg.OutputSuffix == "" {
		cfg.OutputSuffix = sheet.DefaultSuffix
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = DefaultRunTimeout
	}
	if cfg.History == nil {
		cfg.History = history.NewMemoryStore()
	}
	if cfg.Limiter == nil {
		cfg.Limiter = NewRunLimiter(DefaultMaxConcurrentRuns, DefaultRunWait)
	}
	return &Service{
		opts:      cfg.Options.withDefaults(),
		outputDir: cfg.OutputDir,
		suffix:    cfg.OutputSuffix,
		timeout:   cfg.RunTimeout,
		history:   cfg.History,
		limiter:   cfg.Limiter,
	}
}

// Options returns the engine options the service runs with.
func (s *Service) Options() Options {
	return s.opts
}

// Request describes one reconciliation.
type Request struct {
	WorkbookPath string // xlsx file to correct; never modified
	Payload      string // correction text holding pipe-delimited tables
	OutputDir    string // overrides the service output directory
	SourceName   string // display name for naming and history; defaults to the workbook base name
}

// Reconcile applies req.Payload to the workbook and saves a corrected copy.
// It always returns a populated Result; failures set Success=false with an
// error code from Classify.
func (s *Service) Reconcile(ctx context.Context, req Request) Result {
	start := time.Now()
	runID := uuid.New().String()

	source := req.SourceName
	if source == "" {
		source = filepath.Base(req.WorkbookPath)
	}

	ctx, logger := logging.WithRun(ctx, runID, source)
	obs := NewSlogObserver(logger)
	obs.Event(Event{Type: EventRunStarted, Table: -1, Detail: source})

	res := s.reconcile(ctx, source, req, obs)
	res.RunID = runID
	if res.Stats.Elapsed == 0 {
		res.Stats.Elapsed = time.Since(start)
		res.Stats.ProcessingTime = res.Stats.Elapsed.Seconds()
	}

	if res.Success {
		logger.Info("reconcile completed",
			"output", res.OutputPath,
			"matched_rows", res.Stats.MatchedRows,
			"total_rows", res.Stats.TotalRows,
			"cells_updated", res.Stats.CellsUpdated,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	} else {
		logger.Warn("reconcile failed", "code", res.ErrorCode, "error", res.Error)
	}

	s.record(ctx, logger, source, res)
	return res
}

func (s *Service) reconcile(ctx context.Context, source string, req Request, obs Observer) Result {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.limiter.Acquire(ctx); err != nil {
		return failed(Classify(err), Stats{}, nil)
	}
	defer s.limiter.Release()

	tables := ExtractTables(req.Payload, s.opts.KeyColumn)
	obs.Event(Event{Type: EventTablesExtracted, Table: -1, Count: len(tables)})
	if len(tables) == 0 {
		return failed(Classify(ErrNoTables), Stats{}, nil)
	}

	if err := ctx.Err(); err != nil {
		return failed(Classify(err), Stats{}, nil)
	}

	wb, err := sheet.Open(req.WorkbookPath)
	if err != nil {
		return failed(Classify(err), Stats{}, nil)
	}
	defer wb.Close()
	obs.Event(Event{Type: EventGridLoaded, Table: -1, Count: wb.MaxRow(), Detail: wb.SheetName()})

	out := NewEngine(s.opts, obs).Reconcile(wb, tables)
	if !out.OK() {
		return failed(out.Err, out.Stats, out.Warnings)
	}

	if err := ctx.Err(); err != nil {
		return failed(Classify(err), out.Stats, out.Warnings)
	}

	dir := req.OutputDir
	if dir == "" {
		dir = s.outputDir
	}
	if dir == "" {
		dir = filepath.Dir(req.WorkbookPath)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return failed(Classify(fmt.Errorf("create output dir: %w", err)), out.Stats, out.Warnings)
	}

	path, err := sheet.OutputPath(dir, source, s.suffix)
	if err != nil {
		return failed(Classify(err), out.Stats, out.Warnings)
	}
	if err := wb.SaveAs(path); err != nil {
		return failed(Classify(err), out.Stats, out.Warnings)
	}
	obs.Event(Event{Type: EventRunSaved, Table: -1, Detail: path, Count: out.Stats.CellsUpdated})

	return Result{
		Success:    true,
		OutputPath: path,
		FileName:   filepath.Base(path),
		Stats:      out.Stats,
		Warnings:   out.Warnings,
	}
}

func failed(f *Fault, stats Stats, warnings []string) Result {
	return Result{
		Success:   false,
		Stats:     stats,
		Error:     f.Error(),
		ErrorCode: f.Code,
		Warnings:  warnings,
	}
}

// record stores the run. History failures are logged, never returned.
func (s *Service) record(ctx context.Context, logger *slog.Logger, source string, res Result) {
	run := history.Run{
		ID:           res.RunID,
		SourceName:   source,
		OutputPath:   res.OutputPath,
		FileName:     res.FileName,
		Success:      res.Success,
		ErrorCode:    res.ErrorCode,
		Error:        res.Error,
		Warnings:     res.Warnings,
		Tables:       res.Stats.TotalTables,
		SkippedTabs:  res.Stats.SkippedTables,
		TotalRows:    res.Stats.TotalRows,
		MatchedRows:  res.Stats.MatchedRows,
		SkippedRows:  res.Stats.SkippedRows,
		CellsUpdated: res.Stats.CellsUpdated,
		Duration:     res.Stats.Elapsed,
		ClientIP:     ClientIPFromContext(ctx),
		CreatedAt:    time.Now().UTC(),
	}
	// The request may already be cancelled; history should still land.
	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.history.Record(recCtx, run); err != nil {
		logger.Error("record run history failed", "error", err)
	}
}

// Preview extracts the tables in payload without touching a workbook.
func (s *Service) Preview(payload string) []Table {
	return ExtractTables(payload, s.opts.KeyColumn)
}

// DryRun reconciles payload against an in-memory copy of the workbook and
// reports what would change. Nothing is saved or recorded.
func (s *Service) DryRun(ctx context.Context, workbookPath, payload string) (Outcome, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return Outcome{}, err
	}
	defer s.limiter.Release()

	tables := ExtractTables(payload, s.opts.KeyColumn)
	if len(tables) == 0 {
		return Outcome{Err: Classify(ErrNoTables)}, nil
	}

	wb, err := sheet.Open(workbookPath)
	if err != nil {
		return Outcome{}, err
	}
	grid := sheet.NewMemoryGridFrom(wb)
	wb.Close()

	return NewEngine(s.opts, nil).Reconcile(grid, tables), nil
}

// Run returns a recorded run.
func (s *Service) Run(ctx context.Context, id string) (history.Run, error) {
	return s.history.Get(ctx, id)
}

// Runs lists recent runs, newest first.
func (s *Service) Runs(ctx context.Context, limit int) ([]history.Run, error) {
	return s.history.List(ctx, limit)
}

// OutputFile returns the corrected workbook of a successful run, verifying it
// still exists on disk.
func (s *Service) OutputFile(ctx context.Context, id string) (string, error) {
	run, err := s.history.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if !run.Success || run.OutputPath == "" {
		return "", fmt.Errorf("%w: run %s produced no output", ErrInvalidData, id)
	}
	if _, err := os.Stat(run.OutputPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("output of run %s expired: %w", id, err)
		}
		return "", err
	}
	return run.OutputPath, nil
}

// LimiterStatus reports current run concurrency.
func (s *Service) LimiterStatus() LimiterStatus {
	return s.limiter.Status()
}

// WaitForRuns blocks until in-flight runs finish or ctx ends.
func (s *Service) WaitForRuns(ctx context.Context) error {
	return s.limiter.Drain(ctx)
}

// Close releases the history store.
func (s *Service) Close() error {
	return s.history.Close()
}

// IsSpreadsheet reports whether name has an extension the service can open.
func IsSpreadsheet(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		return true
	}
	return false
}
