// Package history records extraction runs so operators can see what was
// processed, by whom and with what outcome. Recording is optional; without
// a database the server uses NopRecorder.
package history

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Run status values.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// DefaultLimit is the number of runs returned when no limit is given.
const DefaultLimit = 50

// MaxLimit caps a single listing.
const MaxLimit = 500

// Run is one extraction attempt.
type Run struct {
	ID         uuid.UUID      `json:"id"`
	FileName   string         `json:"file_name"`
	Sheet      string         `json:"sheet"`
	Status     string         `json:"status"`
	ErrorCode  string         `json:"error_code,omitempty"`
	TotalRows  int            `json:"total_rows"`
	Counts     map[string]int `json:"counts"`
	Warnings   []string       `json:"warnings"`
	IPAddress  string         `json:"ip_address,omitempty"`
	UserAgent  string         `json:"user_agent,omitempty"`
	DurationMS int64          `json:"duration_ms"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Recorder persists and lists runs.
type Recorder interface {
	Record(ctx context.Context, run Run) error
	Recent(ctx context.Context, limit int) ([]Run, error)
}

// NopRecorder discards runs and lists nothing.
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, Run) error { return nil }

func (NopRecorder) Recent(context.Context, int) ([]Run, error) { return []Run{}, nil }

// ClampLimit maps a requested listing size into [1, MaxLimit].
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

type contextKey string

const (
	ctxKeyIPAddress contextKey = "history_ip"
	ctxKeyUserAgent contextKey = "history_ua"
)

// ContextWithClient stores the caller's address and User-Agent for the
// run record written later in the request.
func ContextWithClient(ctx context.Context, ip, userAgent string) context.Context {
	ctx = context.WithValue(ctx, ctxKeyIPAddress, ip)
	return context.WithValue(ctx, ctxKeyUserAgent, userAgent)
}

// ClientFromContext returns the values stored by ContextWithClient.
func ClientFromContext(ctx context.Context) (ip, userAgent string) {
	ip, _ = ctx.Value(ctxKeyIPAddress).(string)
	userAgent, _ = ctx.Value(ctxKeyUserAgent).(string)
	return ip, userAgent
}
