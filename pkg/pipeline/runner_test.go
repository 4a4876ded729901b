package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitdesk/ticketrouter/pkg/models"
)

func TestRun_SucceedsOnFirstAttempt(t *testing.T) {
	runner := NewRunner(NewSemaphore(0), Budget{MaxAttempts: 3})
	outcome := runner.Run(context.Background(), "t1", "b1", models.StageSpamCheck, func(ctx context.Context) error {
		return nil
	})
	assert.Equal(t, models.StatusCompleted, outcome.Status)
}

func TestRun_RetriesTransientFailureThenSucceeds(t *testing.T) {
	var attempts int32
	runner := NewRunner(NewSemaphore(0), Budget{MaxAttempts: 5})
	outcome := runner.Run(context.Background(), "t1", "b1", models.StageLLMAnalysis, func(ctx context.Context) error {
		if atomic.AddInt32(&attempts, 1) < 3 {
			return ErrTransient
		}
		return nil
	})
	assert.Equal(t, models.StatusCompleted, outcome.Status)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestRun_ExhaustsRetriesAndFails(t *testing.T) {
	var attempts int32
	runner := NewRunner(NewSemaphore(0), Budget{MaxAttempts: 2})
	outcome := runner.Run(context.Background(), "t1", "b1", models.StageGeocode, func(ctx context.Context) error {
		atomic.AddInt32(&attempts, 1)
		return ErrTransient
	})
	assert.Equal(t, models.StatusFailed, outcome.Status)
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
}

func TestRun_PermanentErrorStopsAfterFirstAttempt(t *testing.T) {
	var attempts int32
	runner := NewRunner(NewSemaphore(0), Budget{MaxAttempts: 5})
	outcome := runner.Run(context.Background(), "t1", "b1", models.StagePIIScrub, func(ctx context.Context) error {
		atomic.AddInt32(&attempts, 1)
		return ErrPermanent
	})
	assert.Equal(t, models.StatusFailed, outcome.Status)
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestRun_FatalInfraErrorIsRecordedWithDedicatedMessage(t *testing.T) {
	runner := NewRunner(NewSemaphore(0), Budget{MaxAttempts: 3})
	outcome := runner.Run(context.Background(), "t1", "b1", models.StageRouting, func(ctx context.Context) error {
		return ErrFatalInfra
	})
	assert.Equal(t, models.StatusFailed, outcome.Status)
	assert.Equal(t, "fatal infrastructure error", outcome.Message)
}

func TestRun_StageTimeoutAbortsLongRunningStage(t *testing.T) {
	runner := NewRunner(NewSemaphore(0), Budget{MaxAttempts: 1, StageTimeout: 10 * time.Millisecond})
	outcome := runner.Run(context.Background(), "t1", "b1", models.StageSpamCheck, func(ctx context.Context) error {
		select {
		case <-time.After(200 * time.Millisecond):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	assert.Equal(t, models.StatusFailed, outcome.Status)
	assert.Equal(t, "stage failed", outcome.Message)
}

func TestRun_CallerCancellationSurfacesAsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	runner := NewRunner(NewSemaphore(0), Budget{MaxAttempts: 1})
	outcome := runner.Run(ctx, "t1", "b1", models.StageSpamCheck, func(ctx context.Context) error {
		return ctx.Err()
	})
	assert.Equal(t, models.StatusFailed, outcome.Status)
	assert.Equal(t, "cancelled", outcome.Message)
}

func TestSemaphore_AcquireBlocksUntilReleased(t *testing.T) {
	sem := NewSemaphore(1)
	require.NoError(t, sem.Acquire(context.Background()))

	acquired := make(chan struct{})
	go func() {
		_ = sem.Acquire(context.Background())
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second Acquire should not succeed while the slot is held")
	case <-time.After(20 * time.Millisecond):
	}

	sem.Release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second Acquire should succeed once the slot is released")
	}
}

func TestSemaphore_AcquireRespectsContextCancellation(t *testing.T) {
	sem := NewSemaphore(1)
	require.NoError(t, sem.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := sem.Acquire(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestSemaphore_ZeroLimitIsUnbounded(t *testing.T) {
	sem := NewSemaphore(0)
	for i := 0; i < 100; i++ {
		require.NoError(t, sem.Acquire(context.Background()))
	}
}
