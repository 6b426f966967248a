package core

import (
	"fmt"
	"time"
)

// maxWarnings bounds the warnings kept per run; the rest are summarized.
const maxWarnings = 200

// Engine reconciles correction tables against a grid. An Engine is
// stateless between runs and may be reused, but a single Reconcile call is
// synchronous and must not share its grid with other goroutines.
type Engine struct {
	opts Options
	obs  Observer
}

// NewEngine creates an engine. Zero-valued options fall back to defaults and
// a nil observer discards events.
func NewEngine(opts Options, obs Observer) *Engine {
	if obs == nil {
		obs = NopObserver{}
	}
	return &Engine{opts: opts.withDefaults(), obs: obs}
}

// Options returns the effective options.
func (e *Engine) Options() Options {
	return e.opts
}

// Outcome is the engine's verdict on a run. Err is nil only when at least one
// row matched and the grid should be saved.
type Outcome struct {
	Stats    Stats
	Warnings []string
	Err      *Fault
}

// OK reports whether the grid should be persisted.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// run carries the mutable state of one Reconcile call.
type run struct {
	*Engine
	grid     Grid
	stats    Stats
	warnings []string
	dropped  int
	headers  map[string]headerResult
}

type headerResult struct {
	loc HeaderLocation
	ok  bool
}

// Reconcile applies tables to grid in order. Later tables overwrite cells
// written by earlier ones. Rows of skipped tables are counted as skipped so
// that MatchedRows+SkippedRows always equals TotalRows.
func (e *Engine) Reconcile(grid Grid, tables []Table) Outcome {
	start := time.Now()
	r := &run{Engine: e, grid: grid, headers: make(map[string]headerResult)}

	out := r.reconcile(tables)

	r.stats.Elapsed = time.Since(start)
	r.stats.ProcessingTime = r.stats.Elapsed.Seconds()
	out.Stats = r.stats
	out.Warnings = r.finishWarnings()
	if out.Err != nil {
		e.obs.Event(Event{Type: EventRunFailed, Table: -1, Detail: out.Err.Code, Err: out.Err.Err})
	}
	return out
}

func (r *run) reconcile(tables []Table) Outcome {
	if len(tables) == 0 {
		return Outcome{Err: Classify(ErrNoTables)}
	}
	if r.grid == nil {
		return Outcome{Err: Classify(fmt.Errorf("%w: no worksheet", ErrInvalidData))}
	}

	for i, t := range tables {
		if err := r.table(i, t); err != nil {
			return Outcome{Err: err}
		}
	}

	if r.stats.MatchedRows == 0 {
		return Outcome{Err: Classify(ErrNoRowsMatched)}
	}
	return Outcome{}
}

// table processes one correction table. A non-nil return is fatal for the run.
func (r *run) table(idx int, t Table) *Fault {
	r.stats.TotalTables++
	r.stats.TotalRows += len(t.Rows)
	r.obs.Event(Event{Type: EventTableStarted, Table: idx, Caption: t.Caption, Count: len(t.Rows)})

	header, ok := r.header()
	if !ok {
		r.skipTable(idx, t, "spreadsheet header row not found")
		return nil
	}

	mapping, matches, collisions := mapColumnsDetailed(t.Headers, header, r.opts.FuzzyMatchThreshold)
	for _, m := range collisions {
		reason := fmt.Sprintf("column %q ignored: sheet column %q already mapped", t.Headers[m.Correction], header.Columns[m.Column])
		r.warn(fmt.Sprintf("table %d: %s", idx+1, reason))
		r.obs.Event(Event{
			Type:     EventColumnsMapped,
			Table:    idx,
			Caption:  t.Caption,
			SheetRow: header.Row,
			Count:    m.Column,
			Detail:   reason,
			Err:      ErrDuplicateTarget,
		})
	}
	rate := mapping.MatchRate(len(t.Headers))
	if rate < r.opts.HeaderMatchThreshold {
		r.skipTable(idx, t, fmt.Sprintf("column match rate %.0f%% below %.0f%%", rate*100, r.opts.HeaderMatchThreshold*100))
		return nil
	}
	for _, m := range matches {
		r.obs.Event(Event{
			Type:     EventColumnsMapped,
			Table:    idx,
			Caption:  t.Caption,
			SheetRow: header.Row,
			Count:    m.Column,
			Detail:   fmt.Sprintf("%s -> %s (%s)", t.Headers[m.Correction], header.Columns[m.Column], m.Kind),
		})
	}

	matcher, updates, err := r.matcher(idx, t, header, mapping)
	if err != nil {
		r.skipTable(idx, t, err.Error())
		return nil
	}

	for i, row := range t.Rows {
		res := matcher.Find(row, r.grid)
		if !res.Matched {
			r.skipRow(idx, t, i, "no matching spreadsheet row", nil)
			continue
		}

		n, err := ApplyRow(r.grid, res.Row, row, updates)
		if err != nil {
			f := Classify(err)
			if !f.Recoverable {
				// Remaining rows of this table never ran.
				r.stats.SkippedRows += len(t.Rows) - i
				r.stats.SkippedTables++
				return f
			}
			r.skipRow(idx, t, i, f.Message, err)
			continue
		}

		r.stats.MatchedRows++
		r.stats.CellsUpdated += n
		r.obs.Event(Event{Type: EventRowMatched, Table: idx, Caption: t.Caption, Row: i, SheetRow: res.Row, Count: n})
	}

	r.stats.ProcessedTables++
	return nil
}

// header locates the spreadsheet header once per vocabulary per run.
func (r *run) header() (HeaderLocation, bool) {
	key := r.opts.Vocabulary.key()
	if h, ok := r.headers[key]; ok {
		return h.loc, h.ok
	}

	loc, ok := LocateHeader(r.grid, r.opts.MaxHeaderScanRows, r.opts.Vocabulary)
	if !ok && r.opts.HeaderFallbackFirstRow {
		loc, ok = FirstRowHeader(r.grid)
	}
	r.headers[key] = headerResult{loc: loc, ok: ok}

	if ok {
		r.obs.Event(Event{Type: EventHeaderLocated, Table: -1, SheetRow: loc.Row, Count: len(loc.Columns)})
	}
	return loc, ok
}

// matcher chooses the row matching strategy for a table. updates is the
// mapping used for writes; the key column is left out of it because the key
// only identifies the row.
func (r *run) matcher(idx int, t Table, header HeaderLocation, mapping ColumnMapping) (RowMatcher, ColumnMapping, error) {
	keyCol := 0
	if t.HasKey() {
		if _, mapped := mapping[t.KeyColumn]; mapped {
			keyCol = header.ColumnOf(r.opts.KeyColumn)
		}
	}

	useKey := false
	switch r.opts.Strategy {
	case StrategyKey:
		if keyCol == 0 {
			return nil, nil, fmt.Errorf("key column %q not present in both table and spreadsheet", r.opts.KeyColumn)
		}
		useKey = true
	case StrategyAuto:
		useKey = keyCol > 0
	}

	if !useKey {
		return NewVotingMatcher(mapping, header.Row, r.opts.RowMatchThreshold, r.opts.EnableWraparound), mapping, nil
	}

	km := NewKeyMatcher(r.grid, header.Row, keyCol, t.KeyColumn)
	for _, d := range km.Duplicates() {
		r.obs.Event(Event{
			Type:     EventDuplicateKey,
			Table:    idx,
			Caption:  t.Caption,
			SheetRow: d.IgnoredAt,
			Detail:   fmt.Sprintf("key %q first seen at row %d", d.Key, d.FirstRow),
		})
	}

	updates := make(ColumnMapping, len(mapping))
	for ci, col := range mapping {
		if ci != t.KeyColumn {
			updates[ci] = col
		}
	}
	return km, updates, nil
}

func (r *run) skipTable(idx int, t Table, reason string) {
	r.stats.SkippedTables++
	r.stats.SkippedRows += len(t.Rows)
	r.warn(fmt.Sprintf("table %d skipped: %s", idx+1, reason))
	r.obs.Event(Event{Type: EventTableSkipped, Table: idx, Caption: t.Caption, Count: len(t.Rows), Detail: reason})
}

func (r *run) skipRow(idx int, t Table, row int, reason string, err error) {
	r.stats.SkippedRows++
	r.warn(fmt.Sprintf("table %d row %d skipped: %s", idx+1, row+1, reason))
	r.obs.Event(Event{Type: EventRowSkipped, Table: idx, Caption: t.Caption, Row: row, Detail: reason, Err: err})
}

func (r *run) warn(msg string) {
	if len(r.warnings) >= maxWarnings {
		r.dropped++
		return
	}
	r.warnings = append(r.warnings, msg)
}

func (r *run) finishWarnings() []string {
	if r.dropped > 0 {
		return append(r.warnings, fmt.Sprintf("%d more warnings omitted", r.dropped))
	}
	return r.warnings
}

// Failure returns the outcome's fault as an error, or nil.
func (o Outcome) Failure() error {
	if o.Err == nil {
		return nil
	}
	return o.Err
}
