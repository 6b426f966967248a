package web

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/JonMunkholm/sheetpatch/internal/core"
	"github.com/JonMunkholm/sheetpatch/internal/history"
	"github.com/JonMunkholm/sheetpatch/internal/logging"
	"github.com/JonMunkholm/sheetpatch/internal/web/templates"
)

// multipartMemory is how much of a multipart form is buffered in memory;
// the rest spills to temp files.
const multipartMemory = 32 << 20

// dashboardRuns is how many runs the dashboard lists.
const dashboardRuns = 20

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	runs, err := s.service.Runs(r.Context(), dashboardRuns)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Dashboard(runs, s.service.LimiterStatus()).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render dashboard", "error", err)
	}
}

// handleReconcile accepts a multipart form with the workbook in "file" and the
// corrections either as the "payload" field or as a "payload_file" upload.
func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize+core.MaxPayloadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %v", core.ErrInvalidData, err), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, fmt.Errorf("%w: workbook file is required", core.ErrInvalidData), http.StatusBadRequest)
		return
	}
	defer file.Close()

	if !core.IsSpreadsheet(header.Filename) {
		s.respondError(w, r, fmt.Errorf("%w: unsupported workbook %q", core.ErrInvalidData, header.Filename), http.StatusBadRequest)
		return
	}

	payload, err := formPayload(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	path, err := s.saveUpload(file, header.Filename)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	res := s.service.Reconcile(r.Context(), core.Request{
		WorkbookPath: path,
		Payload:      payload,
		OutputDir:    s.cfg.Storage.OutputDir,
		SourceName:   cleanFilename(header.Filename),
	})

	status := http.StatusOK
	if !res.Success {
		status = statusForCode(res.ErrorCode, nil)
		if strings.Contains(res.Error, core.ErrTooManyRuns.Error()) {
			status = http.StatusServiceUnavailable
		}
	}
	writeJSONStatus(w, status, res)
}

// formPayload returns the correction text from the "payload" field or the
// "payload_file" upload.
func formPayload(r *http.Request) (string, error) {
	if p := r.FormValue("payload"); strings.TrimSpace(p) != "" {
		return core.DecodePayloadBytes([]byte(p))
	}

	f, _, err := r.FormFile("payload_file")
	if errors.Is(err, http.ErrMissingFile) {
		// An empty payload is reported by the service as "no tables".
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrInvalidData, err)
	}
	defer f.Close()
	return core.DecodePayload(f)
}

// saveUpload stores an uploaded workbook in its own directory under the
// upload dir so concurrent uploads with the same name never collide.
func (s *Server) saveUpload(src multipart.File, name string) (string, error) {
	dir := filepath.Join(s.cfg.Storage.UploadDir, uuid.New().String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	path := filepath.Join(dir, cleanFilename(name))
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	return path, nil
}

// cleanFilename strips any client-supplied directories from name.
func cleanFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	if name == "." || name == "/" || name == "" {
		return "workbook.xlsx"
	}
	return name
}

type extractResponse struct {
	Count  int          `json:"count"`
	Tables []core.Table `json:"tables"`
}

// handleExtract parses the raw request body and returns the tables found.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	text, err := core.DecodePayload(r.Body)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	tables := s.service.Preview(text)
	if tables == nil {
		tables = []core.Table{}
	}
	writeJSON(w, extractResponse{Count: len(tables), Tables: tables})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", history.DefaultListLimit)

	runs, err := s.service.Runs(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []history.Run{}
	}
	writeJSON(w, map[string]any{"runs": runs})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.service.Run(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, run)
}

// handleDownload streams the corrected workbook of a successful run.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "runID")

	path, err := s.service.OutputFile(r.Context(), id)
	if err != nil {
		status := 0
		if errors.Is(err, os.ErrNotExist) {
			status = http.StatusGone
		}
		s.respondError(w, r, err, status)
		return
	}

	f, err := os.Open(path)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	name := filepath.Base(path)
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	// FormatMediaType switches to RFC 2231 encoding for non-ASCII names.
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	http.ServeContent(w, r, name, info.ModTime(), f)
}

// handleCleanup runs one cleanup pass on demand.
func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.service.RunCleanup(r.Context(), s.cfg.CleanupConfig()))
}

type statusResponse struct {
	Status  string             `json:"status"`
	Limiter core.LimiterStatus `json:"limiter"`
	Time    time.Time          `json:"time"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, statusResponse{
		Status:  "ok",
		Limiter: s.service.LimiterStatus(),
		Time:    time.Now().UTC(),
	})
}

// parseIntParam parses a positive integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}
