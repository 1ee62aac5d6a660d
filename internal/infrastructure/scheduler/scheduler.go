// Package scheduler runs periodic background jobs inside the server process.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrInvalidConfig  = errors.New("invalid scheduler configuration")
	ErrAlreadyRunning = errors.New("scheduler is already running")
)

// JobStatus represents the outcome of the last run
type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

// Job is a unit of periodic work
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Config holds scheduler configuration
type Config struct {
	Interval   time.Duration
	JobTimeout time.Duration
	// RunOnStart runs the job immediately instead of after the first interval
	RunOnStart bool
}

// RunInfo describes the last run of the job
type RunInfo struct {
	Status      JobStatus
	Runs        int
	Error       string
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// Scheduler runs one job on a fixed interval. Runs never overlap: a run
// that outlasts the interval delays the next tick.
type Scheduler struct {
	config Config
	job    Job
	logger *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	last      RunInfo
}

// NewScheduler creates a new scheduler instance
func NewScheduler(config Config, job Job, logger *zap.Logger) (*Scheduler, error) {
	if config.Interval <= 0 {
		return nil, fmt.Errorf("%w: interval must be positive", ErrInvalidConfig)
	}
	if job == nil {
		return nil, fmt.Errorf("%w: job is required", ErrInvalidConfig)
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = config.Interval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		config: config,
		job:    job,
		logger: logger.With(zap.String("job", job.Name())),
		last:   RunInfo{Status: JobStatusPending},
	}, nil
}

// Start starts the run loop. It returns immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return ErrAlreadyRunning
	}
	s.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.loop(ctx)

	s.logger.Info("Scheduler started",
		zap.Duration("interval", s.config.Interval),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)
	return nil
}

// Stop cancels the running job and waits for the loop to exit, or for ctx
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out")
		return ctx.Err()
	}
}

// LastRun returns a snapshot of the last run
func (s *Scheduler) LastRun() RunInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	if s.config.RunOnStart {
		s.runOnce(ctx)
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	s.mu.Lock()
	s.last.Status = JobStatusRunning
	s.last.StartedAt = &start
	s.last.Error = ""
	s.mu.Unlock()

	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	err := s.safeRun(jobCtx)

	end := time.Now()
	s.mu.Lock()
	s.last.Runs++
	s.last.CompletedAt = &end
	if err != nil {
		s.last.Status = JobStatusFailed
		s.last.Error = err.Error()
	} else {
		s.last.Status = JobStatusSuccess
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("Job failed", zap.Duration("duration", end.Sub(start)), zap.Error(err))
		return
	}
	s.logger.Debug("Job completed", zap.Duration("duration", end.Sub(start)))
}

// safeRun turns a panicking job into a failed run
func (s *Scheduler) safeRun(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return s.job.Run(ctx)
}
