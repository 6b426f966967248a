package web

// errors.go provides unified error response handling for the web layer.
//
// Every error is:
//   - Logged with full technical details and the request ID (server-side)
//   - Returned as a classified fault: message, suggested action and code
//   - Rendered as JSON for API clients and as an HTML alert otherwise

import (
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/sheetpatch/internal/core"
	"github.com/JonMunkholm/sheetpatch/internal/history"
	"github.com/JonMunkholm/sheetpatch/internal/logging"
	"github.com/JonMunkholm/sheetpatch/internal/web/templates"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondError logs err and writes the classified fault. statusCode 0 picks a
// status from the fault kind.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	f := core.Classify(err)
	if errors.Is(err, history.ErrNotFound) {
		f = &core.Fault{Kind: core.FaultUnknown, Code: "NOT_FOUND", Message: "Run not found",
			Action: "Check the run ID", Recoverable: true, Err: err}
		if statusCode == 0 {
			statusCode = http.StatusNotFound
		}
	}
	if statusCode == 0 {
		statusCode = statusForCode(f.Code, err)
	}

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", f.Code,
	)

	if wantsJSON(r) {
		writeJSONStatus(w, statusCode, ErrorResponse{
			Error:   f.Message,
			Message: f.Message,
			Action:  f.Action,
			Code:    f.Code,
		})
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	_ = templates.ErrorAlert(f.Message, f.Action, f.Code).Render(r.Context(), w)
}

// statusForCode maps a fault code to an HTTP status.
func statusForCode(code string, err error) int {
	switch {
	case errors.Is(err, core.ErrTooManyRuns):
		return http.StatusServiceUnavailable
	case code == core.FaultInvalidData.Code(),
		code == core.FaultEncodingFailure.Code(),
		code == core.FaultStructuralMismatch.Code():
		return http.StatusUnprocessableEntity
	case code == core.FaultFileNotFound.Code():
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// wantsJSON checks if the client prefers a JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	// API routes default to JSON
	return strings.HasPrefix(r.URL.Path, "/api/")
}
