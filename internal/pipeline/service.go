// Package pipeline runs one extraction end to end: read the uploaded bulk
// sheet, classify its rows and render the five-sheet workbook. It owns the
// cross-cutting parts of a run (concurrency limit, metrics, logging and
// history) so the CLI and HTTP adapters stay thin.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/TalhaTeeTee/AmzBulk-IDs-extractor/internal/core"
	"github.com/TalhaTeeTee/AmzBulk-IDs-extractor/internal/history"
	"github.com/TalhaTeeTee/AmzBulk-IDs-extractor/internal/logging"
	"github.com/TalhaTeeTee/AmzBulk-IDs-extractor/internal/observability"
	"github.com/TalhaTeeTee/AmzBulk-IDs-extractor/internal/workbook"
	"github.com/google/uuid"
)

// DefaultTimeout bounds a run when Options.Timeout is unset.
const DefaultTimeout = 5 * time.Minute

// historyTimeout bounds the history write after a run.
const historyTimeout = 5 * time.Second

// Options configures a Service.
type Options struct {
	// DefaultSheet is read when a request names no sheet.
	DefaultSheet string
	Timeout      time.Duration
}

// Request is one file to extract.
type Request struct {
	// FileName selects the format by extension and is kept for history.
	FileName string
	Body     io.Reader
	// Sheet overrides the default sheet for workbook input.
	Sheet string
}

// Run is the outcome of one extraction.
type Run struct {
	ID        uuid.UUID
	FileName  string
	Sheet     string
	Result    *core.Result
	Workbook  []byte
	StartedAt time.Time
	Duration  time.Duration
}

// Service executes extractions.
type Service struct {
	limiter  *Limiter
	recorder history.Recorder
	opts     Options
}

// NewService builds a service. A nil recorder disables history.
func NewService(limiter *Limiter, recorder history.Recorder, opts Options) *Service {
	if limiter == nil {
		limiter = NewLimiter(DefaultMaxConcurrent, DefaultMaxWait)
	}
	if recorder == nil {
		recorder = history.NopRecorder{}
	}
	if opts.DefaultSheet == "" {
		opts.DefaultSheet = workbook.DefaultSheet
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Service{limiter: limiter, recorder: recorder, opts: opts}
}

// Limiter returns the concurrency limiter, for shutdown draining and status.
func (s *Service) Limiter() *Limiter { return s.limiter }

// History returns the run recorder.
func (s *Service) History() history.Recorder { return s.recorder }

// Extract reads and classifies req without rendering a workbook.
// The returned run is never nil, so callers can report its ID on failure.
func (s *Service) Extract(ctx context.Context, req Request) (*Run, error) {
	return s.execute(ctx, req, false)
}

// Process extracts req and renders the result into Run.Workbook.
func (s *Service) Process(ctx context.Context, req Request) (*Run, error) {
	return s.execute(ctx, req, true)
}

func (s *Service) execute(ctx context.Context, req Request, render bool) (*Run, error) {
	run := &Run{
		ID:        uuid.New(),
		FileName:  req.FileName,
		Sheet:     req.Sheet,
		StartedAt: time.Now(),
	}
	if run.Sheet == "" {
		run.Sheet = s.opts.DefaultSheet
	}

	logger := logging.WithFields(ctx, "run_id", run.ID.String(), "file", run.FileName, "sheet", run.Sheet)

	if err := s.limiter.Acquire(ctx); err != nil {
		observability.RunCount.WithLabelValues(outcome(err)).Inc()
		logger.Warn("extraction rejected", "error", err, "limiter", s.limiter.Status())
		return run, err
	}
	defer s.limiter.Release()

	observability.ActiveRuns.Inc()
	defer observability.ActiveRuns.Dec()

	runCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	err := s.stages(runCtx, run, req, render)
	run.Duration = time.Since(run.StartedAt)

	s.observe(logger, run, err)
	s.record(ctx, logger, run, err)

	return run, err
}

// stages reads, classifies and optionally renders. The classifier itself is
// not interruptible, so ctx is checked between stages.
func (s *Service) stages(ctx context.Context, run *Run, req Request, render bool) error {
	table, err := workbook.Read(req.Body, workbook.DetectFormat(req.FileName), run.Sheet)
	if err != nil {
		return fmt.Errorf("read %s: %w", req.FileName, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	res, err := core.Classify(table)
	if err != nil {
		return fmt.Errorf("classify %s: %w", req.FileName, err)
	}
	run.Result = res

	if !render {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := workbook.Bytes(res)
	if err != nil {
		return fmt.Errorf("render %s: %w", req.FileName, err)
	}
	run.Workbook = data
	return nil
}

func (s *Service) observe(logger *slog.Logger, run *Run, err error) {
	observability.RunCount.WithLabelValues(outcome(err)).Inc()
	observability.RunDuration.Observe(run.Duration.Seconds())

	if err != nil {
		msg := core.MapError(err)
		if core.IsInputError(err) {
			logger.Warn("extraction rejected input", "error", err, "code", msg.Code, "duration", run.Duration)
		} else {
			logger.Error("extraction failed", "error", err, "code", msg.Code, "duration", run.Duration)
		}
		return
	}

	diag := run.Result.Diagnostics
	observability.InputRows.Add(float64(diag.TotalRows))
	for key, n := range diag.Counts {
		observability.TableRows.WithLabelValues(key).Add(float64(n))
	}
	if diag.TargetingColumnMissing {
		observability.TargetingColumnMissing.Inc()
	}
	for _, w := range diag.Warnings {
		logger.Warn("extraction warning", "warning", w)
	}

	logger.Info("extraction finished",
		"rows", diag.TotalRows,
		"counts", diag.Counts,
		"targeting", diag.Summary(),
		"bytes", len(run.Workbook),
		"duration", run.Duration,
	)
}

// record writes the run to history. It runs detached from ctx cancellation so
// a client that hangs up right after the response still gets its run logged.
func (s *Service) record(ctx context.Context, logger *slog.Logger, run *Run, runErr error) {
	ip, ua := history.ClientFromContext(ctx)

	entry := history.Run{
		ID:         run.ID,
		FileName:   run.FileName,
		Sheet:      run.Sheet,
		Status:     history.StatusSuccess,
		Counts:     map[string]int{},
		Warnings:   []string{},
		IPAddress:  ip,
		UserAgent:  ua,
		DurationMS: run.Duration.Milliseconds(),
		CreatedAt:  run.StartedAt.UTC(),
	}
	if runErr != nil {
		entry.Status = history.StatusFailed
		entry.ErrorCode = core.MapError(runErr).Code
	}
	if run.Result != nil {
		entry.TotalRows = run.Result.Diagnostics.TotalRows
		entry.Counts = run.Result.Diagnostics.Counts
		if w := run.Result.Diagnostics.Warnings; w != nil {
			entry.Warnings = w
		}
	}

	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), historyTimeout)
	defer cancel()

	if err := s.recorder.Record(recCtx, entry); err != nil {
		observability.HistoryErrors.Inc()
		logger.Error("failed to record run history", "error", err)
	}
}

// outcome maps a run error to its metrics label.
func outcome(err error) string {
	switch {
	case err == nil:
		return observability.OutcomeSuccess
	case errors.Is(err, ErrTooManyExtractions):
		return observability.OutcomeBusy
	case core.IsInputError(err):
		return observability.OutcomeInputError
	case errors.Is(err, core.ErrOutputWrite):
		return observability.OutcomeOutputError
	default:
		return observability.OutcomeError
	}
}
