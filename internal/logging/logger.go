// Package logging configures log/slog for sheetpatch and carries run context.
//
// Two identifiers tie log records together: the chi request ID set by the web
// middleware, and the run ID the service assigns to every reconciliation.
// FromContext attaches whichever of them the context holds, so engine events,
// history writes and HTTP access logs for one run can be joined on run_id.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

// Setup installs a logger writing to stdout as the slog default.
// Level is debug, info, warn or error; format is text or json.
func Setup(level, format string) {
	slog.SetDefault(New(os.Stdout, level, format))
}

// New builds a logger writing to w. The CLI passes stderr so stdout stays
// reserved for result JSON.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

var levels = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// parseLevel maps a config level name to slog. Unknown names mean info.
func parseLevel(level string) slog.Level {
	if l, ok := levels[strings.ToLower(strings.TrimSpace(level))]; ok {
		return l
	}
	return slog.LevelInfo
}

type runKey struct{}

// run identifies the reconciliation a context belongs to.
type run struct {
	id       string
	workbook string
}

// WithRun binds a reconciliation to ctx and returns the run-scoped logger.
// Loggers later taken from the returned context carry run_id and workbook.
func WithRun(ctx context.Context, runID, workbook string) (context.Context, *slog.Logger) {
	ctx = context.WithValue(ctx, runKey{}, run{id: runID, workbook: workbook})
	return ctx, FromContext(ctx)
}

// RunID returns the run bound by WithRun, or "".
func RunID(ctx context.Context) string {
	r, _ := ctx.Value(runKey{}).(run)
	return r.id
}

// FromContext returns the default logger with request_id, run_id and
// workbook attached when ctx carries them.
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		logger = logger.With("request_id", reqID)
	}
	if r, ok := ctx.Value(runKey{}).(run); ok {
		logger = logger.With("run_id", r.id, "workbook", r.workbook)
	}
	return logger
}
