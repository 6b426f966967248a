package core

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"syscall"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		recoverable bool
	}{
		{"missing file", &fs.PathError{Op: "open", Path: "a.xlsx", Err: fs.ErrNotExist}, "FILE_NOT_FOUND", false},
		{"permission", fmt.Errorf("save: %w", os.ErrPermission), "PERMISSION_DENIED", false},
		{"disk full", &fs.PathError{Op: "write", Path: "a.xlsx", Err: syscall.ENOSPC}, "IO_ERROR", false},
		{"other path error", &fs.PathError{Op: "read", Path: "a.xlsx", Err: syscall.EIO}, "IO_ERROR", true},
		{"encoding sentinel", fmt.Errorf("%w: bad bytes", ErrEncoding), "ENCODING_ERROR", true},
		{"no tables", ErrNoTables, "INVALID_DATA", true},
		{"nothing matched", ErrNoRowsMatched, "INVALID_DATA", true},
		{"structural", fmt.Errorf("%w: row 9", ErrStructuralMismatch), "STRUCTURAL_MISMATCH", true},
		{"cancelled", context.Canceled, "IO_ERROR", true},
		{"deadline", fmt.Errorf("run: %w", context.DeadlineExceeded), "IO_ERROR", true},
		{"busy", ErrTooManyRuns, "IO_ERROR", true},
		{"pattern out of memory", errors.New("runtime: out of memory"), "IO_ERROR", false},
		{"pattern zip", errors.New("zip: not a valid zip file"), "INVALID_DATA", true},
		{"pattern header", errors.New("bad header row"), "STRUCTURAL_MISMATCH", true},
		{"pattern case insensitive", errors.New("Invalid UTF-8 sequence"), "ENCODING_ERROR", true},
		{"unknown", errors.New("something odd"), "UNKNOWN_ERROR", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Classify(tt.err)
			if f == nil {
				t.Fatal("Classify() = nil")
			}
			if f.Code != tt.wantCode {
				t.Errorf("Code = %s, want %s", f.Code, tt.wantCode)
			}
			if f.Recoverable != tt.recoverable {
				t.Errorf("Recoverable = %v, want %v", f.Recoverable, tt.recoverable)
			}
			if !errors.Is(f, tt.err) {
				t.Errorf("fault does not wrap %v", tt.err)
			}
			if f.Message == "" || f.Action == "" {
				t.Errorf("fault missing message or action: %+v", f)
			}
		})
	}
}

func TestClassify_Nil(t *testing.T) {
	if f := Classify(nil); f != nil {
		t.Errorf("Classify(nil) = %v, want nil", f)
	}
}

func TestClassify_KeepsExistingFault(t *testing.T) {
	orig := Classify(ErrNoTables)
	wrapped := fmt.Errorf("service: %w", orig)

	if got := Classify(wrapped); got != orig {
		t.Errorf("Classify(wrapped fault) = %v, want the original fault", got)
	}
}

func TestFaultKind_Code(t *testing.T) {
	kinds := map[FaultKind]string{
		FaultFileNotFound:       "FILE_NOT_FOUND",
		FaultPermissionDenied:   "PERMISSION_DENIED",
		FaultInvalidData:        "INVALID_DATA",
		FaultIOFailure:          "IO_ERROR",
		FaultEncodingFailure:    "ENCODING_ERROR",
		FaultStructuralMismatch: "STRUCTURAL_MISMATCH",
		FaultUnknown:            "UNKNOWN_ERROR",
	}
	for k, want := range kinds {
		if got := k.Code(); got != want {
			t.Errorf("%s.Code() = %s, want %s", k, got, want)
		}
	}
}

func TestIsFatal(t *testing.T) {
	if !IsFatal(os.ErrNotExist) {
		t.Error("IsFatal(ErrNotExist) = false")
	}
	if IsFatal(ErrNoRowsMatched) {
		t.Error("IsFatal(ErrNoRowsMatched) = true")
	}
	if IsFatal(nil) {
		t.Error("IsFatal(nil) = true")
	}
}

func TestFormatFault(t *testing.T) {
	got := FormatFault(ErrNoTables)
	want := "No correction tables were found (Code: INVALID_DATA). Paste the tables with '|' separated columns"
	if got != want {
		t.Errorf("FormatFault() = %q, want %q", got, want)
	}
	if FormatFault(nil) != "" {
		t.Error("FormatFault(nil) not empty")
	}
}
