package core

// scheduler.go runs periodic maintenance.
//
// Uploaded workbooks and corrected copies are only useful for a short while,
// so a cleanup job removes files older than the retention window from the
// configured directories and prunes run history to the same window. A failed
// pass is logged and retried on the next tick; it never stops the server.

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Cleanup defaults.
const (
	DefaultFileRetention   = 24 * time.Hour
	DefaultCleanupInterval = time.Hour
)

// CleanupConfig controls the cleanup scheduler. Zero durations use defaults.
type CleanupConfig struct {
	Dirs      []string      // directories whose old files are removed
	Retention time.Duration // files and runs older than this go
	Interval  time.Duration // time between passes
}

func (c CleanupConfig) withDefaults() CleanupConfig {
	if c.Retention <= 0 {
		c.Retention = DefaultFileRetention
	}
	if c.Interval <= 0 {
		c.Interval = DefaultCleanupInterval
	}
	return c
}

// CleanupReport summarizes one cleanup pass.
type CleanupReport struct {
	FilesRemoved int   `json:"files_removed"`
	BytesFreed   int64 `json:"bytes_freed"`
	RunsPruned   int64 `json:"runs_pruned"`
	Errors       int   `json:"errors"`
}

// StartCleanupScheduler runs a cleanup pass immediately and then every
// Interval until ctx is cancelled.
func (s *Service) StartCleanupScheduler(ctx context.Context, cfg CleanupConfig) {
	cfg = cfg.withDefaults()
	slog.Info("cleanup scheduler started",
		"dirs", cfg.Dirs,
		"retention", cfg.Retention.String(),
		"interval", cfg.Interval.String(),
	)

	s.RunCleanup(ctx, cfg)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("cleanup scheduler stopped")
			return
		case <-ticker.C:
			s.RunCleanup(ctx, cfg)
		}
	}
}

// RunCleanup performs one pass and returns what it did.
func (s *Service) RunCleanup(ctx context.Context, cfg CleanupConfig) CleanupReport {
	cfg = cfg.withDefaults()
	start := time.Now()
	cutoff := start.Add(-cfg.Retention)

	var report CleanupReport
	for _, dir := range cfg.Dirs {
		if ctx.Err() != nil {
			break
		}
		removeOlderThan(dir, cutoff, &report)
	}

	pruned, err := s.history.Prune(ctx, cutoff)
	if err != nil {
		slog.Error("prune run history failed", "error", err)
		report.Errors++
	}
	report.RunsPruned = pruned

	slog.Info("cleanup completed",
		"files_removed", report.FilesRemoved,
		"bytes_freed", report.BytesFreed,
		"runs_pruned", report.RunsPruned,
		"errors", report.Errors,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return report
}

// removeOlderThan deletes regular files under dir last modified before
// cutoff, then drops old directories left empty. dir itself is kept.
func removeOlderThan(dir string, cutoff time.Time, report *CleanupReport) {
	var emptied []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			report.Errors++
			slog.Warn("cleanup walk failed", "path", path, "error", err)
			return nil
		}
		if d.IsDir() {
			if path == dir {
				return nil
			}
			// Fresh directories may belong to an upload in progress.
			if info, err := d.Info(); err == nil && info.ModTime().Before(cutoff) {
				emptied = append(emptied, path)
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			report.Errors++
			return nil
		}
		if info.ModTime().After(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil {
			report.Errors++
			slog.Warn("cleanup remove failed", "path", path, "error", err)
			return nil
		}
		report.FilesRemoved++
		report.BytesFreed += info.Size()
		return nil
	})
	if err != nil {
		report.Errors++
	}

	// Deepest first so nested empty directories collapse.
	for i := len(emptied) - 1; i >= 0; i-- {
		_ = os.Remove(emptied[i]) // fails harmlessly when not empty
	}
}
