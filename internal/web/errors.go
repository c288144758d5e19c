package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/TalhaTeeTee/AmzBulk-IDs-extractor/internal/core"
	"github.com/TalhaTeeTee/AmzBulk-IDs-extractor/internal/logging"
	"github.com/TalhaTeeTee/AmzBulk-IDs-extractor/internal/pipeline"
	"github.com/TalhaTeeTee/AmzBulk-IDs-extractor/internal/web/templates"
)

// Upload errors. Their texts match the patterns core.MapError knows.
var (
	errNoFile      = errors.New("no file provided")
	errEmptyFile   = errors.New("empty file")
	errFileTooBig  = errors.New("file too large")
	errInvalidForm = errors.New("invalid upload form")
)

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusFor picks the HTTP status for err.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errFileTooBig):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errNoFile), errors.Is(err, errEmptyFile), errors.Is(err, errInvalidForm):
		return http.StatusBadRequest
	case core.IsInputError(err):
		return http.StatusBadRequest
	case errors.Is(err, pipeline.ErrTooManyExtractions):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes a user-facing message as JSON or HTML
// depending on the request.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	msg := core.MapError(err)

	logger := logging.FromContext(r.Context()).With(
		"path", r.URL.Path,
		"status", status,
		"code", msg.Code,
		"error", err.Error(),
	)
	if status >= http.StatusInternalServerError {
		logger.Error("request error")
	} else {
		logger.Warn("request rejected")
	}

	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "5")
	}

	if wantsJSON(r) {
		respondErrorJSON(w, err, status)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	templates.ErrorPage(msg.Message, msg.Action, msg.Code).Render(r.Context(), w)
}

// respondErrorJSON writes the mapped message for err. The raw error text is
// only exposed for known errors; anything else may carry internal detail.
func respondErrorJSON(w http.ResponseWriter, err error, status int) {
	msg := core.MapError(err)
	detail := msg.Message
	if core.IsUserFacing(err) {
		detail = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   detail,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// wantsJSON reports whether the client expects a JSON error body.
func wantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") || r.URL.Path == "/process-xlsx" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// writeJSON encodes v with status 200.
func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("json encode error", "error", err)
	}
}
