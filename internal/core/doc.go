// Package core applies correction tables to a spreadsheet.
//
// This package is the heart of sheetpatch, containing all reconciliation
// logic independent of any UI or transport layer. It can be used by web
// handlers, the CLI, or tests without modification.
//
// # Pipeline
//
// A run moves through a fixed sequence of steps:
//
//  1. [ExtractTables] parses pipe-delimited tables out of free-form text.
//  2. [LocateHeader] finds the spreadsheet's header row by keyword score.
//  3. [MapColumns] pairs correction headers with spreadsheet columns.
//  4. A [RowMatcher] finds the target row for each correction row, either
//     by unique key ([KeyMatcher]) or by multi-column voting ([VotingMatcher]).
//  5. [ApplyRow] overwrites the mapped cells whose values differ.
//
// [Engine.Reconcile] drives steps 2 to 5 over a [Grid] and returns an
// [Outcome] with statistics and warnings. [Service.Reconcile] wraps the
// engine with workbook I/O, concurrency limits and run history.
//
// # Invariants
//
//   - Blank correction values never clear a cell.
//   - MatchedRows + SkippedRows == TotalRows for every run.
//   - A run that matches no rows saves nothing.
//   - The source workbook is never modified; output goes to a new file.
//
// # Error Handling
//
// Errors are classified by [Classify] into a [Fault] with a stable code:
//
//   - FILE_NOT_FOUND, PERMISSION_DENIED: fatal, the run stops
//   - IO_ERROR: fatal only on resource exhaustion
//   - INVALID_DATA, ENCODING_ERROR, STRUCTURAL_MISMATCH, UNKNOWN_ERROR: recoverable
//
// Recoverable faults on a row or table skip it with a warning; the run
// continues.
//
// # Events
//
// The engine reports progress through an [Observer]. [SlogObserver] writes
// structured log records; [NopObserver] discards them.
package core
