package core

// # Fault Codes Reference
//
// Every error that reaches a caller is classified into a Fault carrying a
// kind, a support code, a user-facing message and a suggested action.
//
//	FILE_NOT_FOUND      - workbook or payload path does not exist (fatal)
//	PERMISSION_DENIED   - file cannot be read or written (fatal)
//	IO_ERROR            - read/write failure; fatal only on resource exhaustion
//	ENCODING_ERROR      - payload or workbook text cannot be decoded
//	INVALID_DATA        - malformed tables, no tables, nothing matched
//	STRUCTURAL_MISMATCH - spreadsheet layout does not fit the corrections
//	UNKNOWN_ERROR       - anything else (recoverable)
//
// # Classification Order
//
//  1. errors.Is/As against fs, syscall and core sentinel errors.
//  2. Case-insensitive substring patterns over the error text, first match
//     wins. More specific patterns come first.
//  3. UNKNOWN_ERROR fallback.

import (
	"context"
	"errors"
	"io/fs"
	"strings"
	"syscall"
)

// Sentinel errors raised by the engine and service.
var (
	ErrNoTables           = errors.New("no correction tables found in payload")
	ErrNoHeader           = errors.New("header row not found")
	ErrNoRowsMatched      = errors.New("no rows matched; workbook not saved")
	ErrInvalidData        = errors.New("invalid data")
	ErrStructuralMismatch = errors.New("structural mismatch")
	ErrEncoding           = errors.New("encoding error")
	ErrTooManyRuns        = errors.New("too many concurrent runs")
	ErrDuplicateTarget    = errors.New("sheet column already mapped")
)

// FaultKind is the category of a classified error.
type FaultKind string

const (
	FaultFileNotFound       FaultKind = "FileNotFound"
	FaultPermissionDenied   FaultKind = "PermissionDenied"
	FaultInvalidData        FaultKind = "InvalidData"
	FaultIOFailure          FaultKind = "IOFailure"
	FaultEncodingFailure    FaultKind = "EncodingFailure"
	FaultStructuralMismatch FaultKind = "StructuralMismatch"
	FaultUnknown            FaultKind = "Unknown"
)

// Code returns the support code for the kind.
func (k FaultKind) Code() string {
	switch k {
	case FaultFileNotFound:
		return "FILE_NOT_FOUND"
	case FaultPermissionDenied:
		return "PERMISSION_DENIED"
	case FaultInvalidData:
		return "INVALID_DATA"
	case FaultIOFailure:
		return "IO_ERROR"
	case FaultEncodingFailure:
		return "ENCODING_ERROR"
	case FaultStructuralMismatch:
		return "STRUCTURAL_MISMATCH"
	default:
		return "UNKNOWN_ERROR"
	}
}

// Fault is a classified error. It wraps the original error for logging while
// Message and Action are safe to show to users.
type Fault struct {
	Kind        FaultKind
	Code        string
	Message     string // What happened (user-friendly)
	Action      string // What to do about it
	Recoverable bool
	Err         error
}

func (f *Fault) Error() string {
	if f.Err == nil {
		return f.Message
	}
	return f.Message + ": " + f.Err.Error()
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// faultPattern maps a lower-case substring of an error message to a kind.
type faultPattern struct {
	pattern string
	kind    FaultKind
	message string
	action  string
	fatal   bool
}

var faultPatterns = []faultPattern{
	// Resource exhaustion is fatal regardless of where it surfaces.
	{"out of memory", FaultIOFailure, "The system ran out of memory", "Process a smaller workbook or free resources", true},
	{"no space left", FaultIOFailure, "The disk is full", "Free disk space and try again", true},
	{"too many open files", FaultIOFailure, "The system ran out of file handles", "Wait for other runs to finish", true},

	{"no such file", FaultFileNotFound, "File not found", "Check the file path", true},
	{"file not found", FaultFileNotFound, "File not found", "Check the file path", true},
	{"permission denied", FaultPermissionDenied, "Permission denied", "Close the file in other programs and check access rights", true},

	{"encoding", FaultEncodingFailure, "Text could not be decoded", "Save the payload as UTF-8", false},
	{"invalid utf", FaultEncodingFailure, "Text could not be decoded", "Save the payload as UTF-8", false},

	{"zip: not a valid zip", FaultInvalidData, "The workbook is not a valid xlsx file", "Upload an .xlsx workbook", false},
	{"unsupported workbook", FaultInvalidData, "The workbook format is not supported", "Upload an .xlsx workbook", false},
	{"header", FaultStructuralMismatch, "The spreadsheet header could not be matched", "Check that correction columns exist in the sheet", false},
	{"column", FaultStructuralMismatch, "Correction columns do not fit the sheet", "Check correction headers against the sheet", false},

	{"i/o", FaultIOFailure, "A read or write failed", "Try again", false},
	{"read", FaultIOFailure, "A read failed", "Try again", false},
	{"write", FaultIOFailure, "A write failed", "Try again", false},

	{"invalid", FaultInvalidData, "The input data is invalid", "Check the correction tables", false},
}

// Classify maps err to a Fault. A nil error returns nil. An error that is
// already a Fault is returned unchanged.
func Classify(err error) *Fault {
	if err == nil {
		return nil
	}

	var f *Fault
	if errors.As(err, &f) {
		return f
	}

	if kind, msg, action, fatal, ok := classifyTyped(err); ok {
		return newFault(kind, msg, action, fatal, err)
	}

	text := strings.ToLower(err.Error())
	for _, p := range faultPatterns {
		if strings.Contains(text, p.pattern) {
			return newFault(p.kind, p.message, p.action, p.fatal, err)
		}
	}

	return newFault(FaultUnknown, "An unexpected error occurred", "Try again or contact support", false, err)
}

func newFault(kind FaultKind, message, action string, fatal bool, err error) *Fault {
	return &Fault{
		Kind:        kind,
		Code:        kind.Code(),
		Message:     message,
		Action:      action,
		Recoverable: !fatal,
		Err:         err,
	}
}

// classifyTyped handles errors whose identity is known without looking at text.
func classifyTyped(err error) (kind FaultKind, message, action string, fatal, ok bool) {
	switch {
	case errors.Is(err, syscall.ENOSPC):
		return FaultIOFailure, "The disk is full", "Free disk space and try again", true, true
	case errors.Is(err, syscall.ENOMEM):
		return FaultIOFailure, "The system ran out of memory", "Process a smaller workbook or free resources", true, true
	case errors.Is(err, syscall.EMFILE):
		return FaultIOFailure, "The system ran out of file handles", "Wait for other runs to finish", true, true
	case errors.Is(err, fs.ErrNotExist):
		return FaultFileNotFound, "File not found", "Check the file path", true, true
	case errors.Is(err, fs.ErrPermission):
		return FaultPermissionDenied, "Permission denied", "Close the file in other programs and check access rights", true, true
	case errors.Is(err, ErrEncoding):
		return FaultEncodingFailure, "Text could not be decoded", "Save the payload as UTF-8", false, true
	case errors.Is(err, ErrNoTables):
		return FaultInvalidData, "No correction tables were found", "Paste the tables with '|' separated columns", false, true
	case errors.Is(err, ErrNoRowsMatched):
		return FaultInvalidData, "No rows matched the spreadsheet", "Check that the corrections belong to this workbook", false, true
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return FaultIOFailure, "The run was cancelled or timed out", "Try again with a smaller workbook", false, true
	case errors.Is(err, ErrTooManyRuns):
		return FaultIOFailure, "The system is busy processing other runs", "Wait a moment and try again", false, true
	case errors.Is(err, ErrInvalidData):
		return FaultInvalidData, "The input data is invalid", "Check the correction tables", false, true
	case errors.Is(err, ErrNoHeader), errors.Is(err, ErrStructuralMismatch):
		return FaultStructuralMismatch, "The spreadsheet layout does not fit the corrections", "Check that correction columns exist in the sheet", false, true
	}

	var pe *fs.PathError
	if errors.As(err, &pe) {
		return FaultIOFailure, "A read or write failed", "Try again", false, true
	}
	return "", "", "", false, false
}

// IsFatal reports whether err must abort the run.
func IsFatal(err error) bool {
	f := Classify(err)
	return f != nil && !f.Recoverable
}

// FormatFault renders a fault for display as "Message (Code: X). Action".
func FormatFault(err error) string {
	f := Classify(err)
	if f == nil {
		return ""
	}
	return f.Message + " (Code: " + f.Code + "). " + f.Action
}
