package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type funcJob struct {
	runs atomic.Int32
	fn   func(ctx context.Context) error
}

func (j *funcJob) Name() string { return "test_job" }

func (j *funcJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	if j.fn == nil {
		return nil
	}
	return j.fn(ctx)
}

func TestNewScheduler_Validation(t *testing.T) {
	_, err := NewScheduler(Config{}, &funcJob{}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewScheduler(Config{Interval: time.Second}, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	s, err := NewScheduler(Config{Interval: time.Second}, &funcJob{}, nil)
	require.NoError(t, err)
	assert.Equal(t, time.Second, s.config.JobTimeout, "timeout defaults to the interval")
	assert.Equal(t, JobStatusPending, s.LastRun().Status)
}

func TestScheduler_RunsPeriodically(t *testing.T) {
	job := &funcJob{}
	s, err := NewScheduler(Config{Interval: 10 * time.Millisecond}, job, nil)
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Start(context.Background()), ErrAlreadyRunning)

	assert.Eventually(t, func() bool { return job.runs.Load() >= 2 }, time.Second, 5*time.Millisecond)
	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, JobStatusSuccess, s.LastRun().Status)

	stopped := job.runs.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, job.runs.Load(), "no runs after Stop")
	require.NoError(t, s.Stop(context.Background()), "second Stop is a no-op")
}

func TestScheduler_RunOnStart(t *testing.T) {
	job := &funcJob{}
	s, err := NewScheduler(Config{Interval: time.Hour, RunOnStart: true}, job, nil)
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	assert.Eventually(t, func() bool { return s.LastRun().Runs == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, s.Stop(context.Background()))
}

func TestScheduler_RecordsFailures(t *testing.T) {
	t.Run("error", func(t *testing.T) {
		job := &funcJob{fn: func(context.Context) error { return errors.New("chain broken") }}
		s, err := NewScheduler(Config{Interval: time.Hour, RunOnStart: true}, job, nil)
		require.NoError(t, err)

		require.NoError(t, s.Start(context.Background()))
		assert.Eventually(t, func() bool { return s.LastRun().Status == JobStatusFailed }, time.Second, 5*time.Millisecond)
		require.NoError(t, s.Stop(context.Background()))
		assert.Equal(t, "chain broken", s.LastRun().Error)
	})

	t.Run("panic", func(t *testing.T) {
		job := &funcJob{fn: func(context.Context) error { panic("boom") }}
		s, err := NewScheduler(Config{Interval: time.Hour, RunOnStart: true}, job, nil)
		require.NoError(t, err)

		require.NoError(t, s.Start(context.Background()))
		assert.Eventually(t, func() bool { return s.LastRun().Status == JobStatusFailed }, time.Second, 5*time.Millisecond)
		require.NoError(t, s.Stop(context.Background()))
		assert.Contains(t, s.LastRun().Error, "boom")
	})
}

func TestScheduler_JobTimeout(t *testing.T) {
	job := &funcJob{fn: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	s, err := NewScheduler(Config{Interval: time.Hour, JobTimeout: 10 * time.Millisecond, RunOnStart: true}, job, nil)
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	assert.Eventually(t, func() bool { return s.LastRun().Status == JobStatusFailed }, time.Second, 5*time.Millisecond)
	require.NoError(t, s.Stop(context.Background()))
	assert.Contains(t, s.LastRun().Error, "deadline exceeded")
}
