package web

import (
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/TalhaTeeTee/AmzBulk-IDs-extractor/internal/core"
	"github.com/TalhaTeeTee/AmzBulk-IDs-extractor/internal/history"
	"github.com/TalhaTeeTee/AmzBulk-IDs-extractor/internal/logging"
	"github.com/TalhaTeeTee/AmzBulk-IDs-extractor/internal/pipeline"
	"github.com/TalhaTeeTee/AmzBulk-IDs-extractor/internal/web/templates"
	"github.com/TalhaTeeTee/AmzBulk-IDs-extractor/internal/workbook"
	"github.com/a-h/templ"
)

// multipartMemory is how much of a form is held in memory before spilling
// to temp files.
const multipartMemory = 32 << 20

// SheetSummary describes one output table in a summary response.
type SheetSummary struct {
	Key     string   `json:"key"`
	Sheet   string   `json:"sheet"`
	Rows    int      `json:"rows"`
	Headers []string `json:"headers"`
}

// SummaryResponse is the JSON body of /api/process-summary.
type SummaryResponse struct {
	RunID                string         `json:"run_id"`
	FileName             string         `json:"file_name"`
	Sheet                string         `json:"sheet"`
	TotalRows            int            `json:"total_rows"`
	ProductTargetingRows int            `json:"product_targeting_rows"`
	Counts               map[string]int `json:"counts"`
	Sheets               []SheetSummary `json:"sheets"`
	Summary              string         `json:"summary"`
	Warnings             []string       `json:"warnings"`
	DurationMS           int64          `json:"duration_ms"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, map[string]bool{"ok": true})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, s.service.Limiter().Status())
}

// handleRuns lists recent extraction runs, newest first.
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", history.DefaultLimit)

	runs, err := s.service.History().Recent(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, r, map[string]any{"runs": runs})
}

// handleProcessXLSX classifies the uploaded file and returns the workbook.
func (s *Server) handleProcessXLSX(w http.ResponseWriter, r *http.Request) {
	req, cleanup, err := s.parseUpload(w, r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	defer cleanup()

	run, err := s.service.Process(WithRequestMetadata(r.Context(), r), req)
	w.Header().Set("X-Run-ID", run.ID.String())
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	h := w.Header()
	h.Set("Content-Type", workbook.ContentType)
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": s.cfg.Extract.OutputName}))
	h.Set("Content-Length", strconv.Itoa(len(run.Workbook)))
	h.Set("X-Row-Counts", rowCounts(run.Result))
	if len(run.Result.Diagnostics.Warnings) > 0 {
		h.Set("X-Warnings", strings.Join(run.Result.Diagnostics.Warnings, "; "))
	}

	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(run.Workbook); err != nil {
		s.logWriteError(r, err)
	}
}

// handleProcessSummary classifies the uploaded file and reports counts only.
func (s *Server) handleProcessSummary(w http.ResponseWriter, r *http.Request) {
	req, cleanup, err := s.parseUpload(w, r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	defer cleanup()

	run, err := s.service.Extract(WithRequestMetadata(r.Context(), r), req)
	w.Header().Set("X-Run-ID", run.ID.String())
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	writeJSON(w, r, summarize(run))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderUploadPage(w, r, nil, http.StatusOK)
}

// handleUIProcess runs an extraction for the HTML form and renders the
// result page with the workbook embedded as a download link.
func (s *Server) handleUIProcess(w http.ResponseWriter, r *http.Request) {
	req, cleanup, err := s.parseUpload(w, r)
	if err != nil {
		s.renderUploadError(w, r, err)
		return
	}
	defer cleanup()

	run, err := s.service.Process(WithRequestMetadata(r.Context(), r), req)
	if err != nil {
		s.renderUploadError(w, r, err)
		return
	}

	diag := run.Result.Diagnostics
	data := templates.ResultData{
		RunID:        run.ID.String(),
		FileName:     run.FileName,
		Sheet:        run.Sheet,
		TotalRows:    diag.TotalRows,
		Summary:      diag.Summary(),
		Warnings:     diag.Warnings,
		DownloadName: s.cfg.Extract.OutputName,
		DownloadURL:  templ.SafeURL("data:" + workbook.ContentType + ";base64," + base64.StdEncoding.EncodeToString(run.Workbook)),
	}
	for _, t := range run.Result.Tables {
		data.Tables = append(data.Tables, templates.TableCount{Sheet: t.Sheet, Rows: len(t.Rows)})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Run-ID", run.ID.String())
	if err := templates.ResultPage(data).Render(r.Context(), w); err != nil {
		s.logWriteError(r, err)
	}
}

func (s *Server) renderUploadError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := core.MapError(err)
	s.logRejected(r, err, status, msg.Code)
	s.renderUploadPage(w, r, &templates.ErrorData{Message: msg.Message, Action: msg.Action, Code: msg.Code}, status)
}

func (s *Server) renderUploadPage(w http.ResponseWriter, r *http.Request, errData *templates.ErrorData, status int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)

	page := templates.UploadPage(templates.UploadPageData{
		DefaultSheet:  s.cfg.Extract.SheetName,
		MaxFileSizeMB: s.cfg.Upload.MaxFileSize >> 20,
		Error:         errData,
	})
	if err := page.Render(r.Context(), w); err != nil {
		s.logWriteError(r, err)
	}
}

// parseUpload reads the multipart form and returns the file as a pipeline
// request. cleanup closes the file and removes any multipart temp files; it
// is only returned when err is nil.
func (s *Server) parseUpload(w http.ResponseWriter, r *http.Request) (pipeline.Request, func(), error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		removeForm(r)
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large") {
			return pipeline.Request{}, nil, fmt.Errorf("%w: limit is %d bytes", errFileTooBig, s.cfg.Upload.MaxFileSize)
		}
		return pipeline.Request{}, nil, fmt.Errorf("%w: %w", errInvalidForm, err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		removeForm(r)
		return pipeline.Request{}, nil, errNoFile
	}
	if header.Size == 0 {
		file.Close()
		removeForm(r)
		return pipeline.Request{}, nil, errEmptyFile
	}

	cleanup := func() {
		file.Close()
		removeForm(r)
	}
	return pipeline.Request{
		FileName: header.Filename,
		Body:     file,
		Sheet:    strings.TrimSpace(r.FormValue("sheet")),
	}, cleanup, nil
}

func removeForm(r *http.Request) {
	if r.MultipartForm != nil {
		r.MultipartForm.RemoveAll()
	}
}

// rowCounts renders per-table row counts as "key=n" pairs in table order.
func rowCounts(res *core.Result) string {
	parts := make([]string, len(res.Tables))
	for i, t := range res.Tables {
		parts[i] = t.Key + "=" + strconv.Itoa(len(t.Rows))
	}
	return strings.Join(parts, ",")
}

func summarize(run *pipeline.Run) SummaryResponse {
	diag := run.Result.Diagnostics

	resp := SummaryResponse{
		RunID:                run.ID.String(),
		FileName:             run.FileName,
		Sheet:                run.Sheet,
		TotalRows:            diag.TotalRows,
		ProductTargetingRows: diag.ProductTargetingRows,
		Counts:               diag.Counts,
		Summary:              diag.Summary(),
		Warnings:             diag.Warnings,
		DurationMS:           run.Duration.Milliseconds(),
	}
	if resp.Warnings == nil {
		resp.Warnings = []string{}
	}
	for _, t := range run.Result.Tables {
		resp.Sheets = append(resp.Sheets, SheetSummary{
			Key:     t.Key,
			Sheet:   t.Sheet,
			Rows:    len(t.Rows),
			Headers: t.Headers,
		})
	}
	return resp
}

// parseIntParam parses a positive integer query parameter.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	i, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

func (s *Server) logRejected(r *http.Request, err error, status int, code string) {
	logging.FromContext(r.Context()).Warn("upload rejected",
		"path", r.URL.Path, "error", err, "status", status, "code", code)
}

func (s *Server) logWriteError(r *http.Request, err error) {
	logging.FromContext(r.Context()).Error("failed to write response", "path", r.URL.Path, "error", err)
}
