package core

import (
	"log/slog"
)

// EventType names a state change in a reconciliation run.
type EventType string

const (
	EventRunStarted      EventType = "run_started"
	EventTablesExtracted EventType = "tables_extracted"
	EventGridLoaded      EventType = "grid_loaded"
	EventHeaderLocated   EventType = "header_located"
	EventTableStarted    EventType = "table_started"
	EventTableSkipped    EventType = "table_skipped"
	EventColumnsMapped   EventType = "columns_mapped"
	EventRowMatched      EventType = "row_matched"
	EventRowSkipped      EventType = "row_skipped"
	EventDuplicateKey    EventType = "duplicate_key"
	EventRunSaved        EventType = "run_saved"
	EventRunFailed       EventType = "run_failed"
)

// Event describes one step of a run. Fields that do not apply are zero;
// Table is the 0-based table index, or -1 for run-level events.
type Event struct {
	Type     EventType
	Table    int
	Caption  string
	Row      int // correction row index within the table
	SheetRow int // spreadsheet row
	Count    int // cells written, tables found, columns mapped, ...
	Detail   string
	Err      error
}

// Observer receives run events. Implementations must not block for long;
// they run inline with the engine.
type Observer interface {
	Event(e Event)
}

// NopObserver discards every event.
type NopObserver struct{}

func (NopObserver) Event(Event) {}

// SlogObserver writes events as structured log records. Per-row events are
// logged at debug level; skips, duplicates and column collisions at warn.
type SlogObserver struct {
	Logger *slog.Logger
}

// NewSlogObserver returns an observer writing to logger, or to the default
// logger when logger is nil.
func NewSlogObserver(logger *slog.Logger) *SlogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogObserver{Logger: logger}
}

func (o *SlogObserver) Event(e Event) {
	attrs := []any{"event", string(e.Type)}
	if e.Table >= 0 {
		attrs = append(attrs, "table", e.Table)
		if e.Caption != "" {
			attrs = append(attrs, "caption", e.Caption)
		}
	}
	if e.SheetRow > 0 {
		attrs = append(attrs, "sheet_row", e.SheetRow)
	}
	if e.Count != 0 {
		attrs = append(attrs, "count", e.Count)
	}
	if e.Detail != "" {
		attrs = append(attrs, "detail", e.Detail)
	}
	if e.Err != nil {
		attrs = append(attrs, "error", e.Err)
	}

	switch e.Type {
	case EventColumnsMapped:
		if e.Err != nil {
			o.Logger.Warn("reconcile", attrs...)
			return
		}
		o.Logger.Debug("reconcile", attrs...)
	case EventRowMatched:
		o.Logger.Debug("reconcile", attrs...)
	case EventRowSkipped:
		attrs = append(attrs, "row", e.Row)
		o.Logger.Warn("reconcile", attrs...)
	case EventTableSkipped, EventDuplicateKey:
		o.Logger.Warn("reconcile", attrs...)
	case EventRunFailed:
		o.Logger.Error("reconcile", attrs...)
	default:
		o.Logger.Info("reconcile", attrs...)
	}
}
