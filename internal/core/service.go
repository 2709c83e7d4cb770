package core

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/filecheck/internal/logging"
	"github.com/JonMunkholm/filecheck/internal/schema"
)

// DefaultRunTimeout bounds a single run, recorder calls included.
const DefaultRunTimeout = 30 * time.Second

// RunObserver receives the result of every run. Implementations must be
// safe for concurrent use.
type RunObserver interface {
	ObserveRun(out Outcome, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveRun(Outcome, time.Duration) {}

// ServiceConfig tunes a Service. Zero values select defaults.
type ServiceConfig struct {
	MaxConcurrent int
	MaxWait       time.Duration
	Timeout       time.Duration
	Observer      RunObserver
}

// Submission is a caller's request to validate one file.
type Submission struct {
	DeclaredType string
	FileName     string
	Content      io.ReadSeeker
	Size         int64 // -1 if unknown
}

// Service is the entry point used by the HTTP transport and the CLI. It
// wraps a Pipeline with run IDs, concurrency limits, logging and metrics.
type Service struct {
	pipeline *Pipeline
	limiter  *RunLimiter
	timeout  time.Duration
	observer RunObserver
}

// NewService creates a Service that runs p.
func NewService(p *Pipeline, cfg ServiceConfig) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRunTimeout
	}
	if cfg.Observer == nil {
		cfg.Observer = nopObserver{}
	}
	return &Service{
		pipeline: p,
		limiter:  NewRunLimiter(cfg.MaxConcurrent, cfg.MaxWait),
		timeout:  cfg.Timeout,
		observer: cfg.Observer,
	}
}

// Validate runs the pipeline on sub. The returned Outcome always carries a
// run ID; err is non-nil exactly when the Outcome's status is error.
func (s *Service) Validate(ctx context.Context, sub Submission) (Outcome, error) {
	runID := uuid.NewString()
	logger := logging.WithFields(ctx,
		"run_id", runID,
		"file_name", sub.FileName,
		"declared_type", sub.DeclaredType,
		"client_ip", ClientIPFromContext(ctx),
	)

	fail := func(err error) (Outcome, error) {
		out := Outcome{RunID: runID, Status: StatusError, Err: err}
		s.observer.ObserveRun(out, 0)
		logger.Warn("validation not started", "error", err)
		return out, err
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return fail(err)
	}
	defer s.limiter.Release()

	// Unknown types keep the caller's spelling so the mismatch message
	// echoes it back.
	declared := schema.ParseDeclaredType(sub.DeclaredType)
	if !declared.Supported() {
		declared = schema.DeclaredType(sub.DeclaredType)
	}

	file, err := NewUploadedFile(declared, sub.FileName, sub.Content, sub.Size)
	if err != nil {
		return fail(err)
	}

	runCtx, cancel := context.WithTimeout(contextWithRunID(ctx, runID), s.timeout)
	defer cancel()

	logger.Debug("validation started", "size", file.Size)
	start := time.Now()

	out, err := s.pipeline.Run(runCtx, file)
	out.RunID = runID
	elapsed := time.Since(start)
	s.observer.ObserveRun(out, elapsed)

	switch {
	case err != nil:
		var pe *ParseError
		if errors.As(err, &pe) {
			logger.Info("validation could not parse file", "error", err, "duration", elapsed)
		} else {
			logger.Error("validation aborted", "error", err, "duration", elapsed)
		}
	case out.Status == StatusAccepted:
		logger.Info("validation accepted", "verdicts", len(out.Verdicts), "duration", elapsed)
	default:
		logger.Info("validation rejected", "failures", len(out.Failures()), "duration", elapsed)
	}

	return out, err
}

// LimiterStatus reports run slot occupancy.
func (s *Service) LimiterStatus() RunLimiterStatus {
	return s.limiter.Status()
}

// Drain blocks until in-flight runs complete or ctx is done.
func (s *Service) Drain(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
