package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/orbitdesk/ticketrouter/pkg/models"
)

// StageFunc runs one stage attempt. It must respect ctx cancellation at
// its own suspension points (network I/O, sleeps).
type StageFunc func(ctx context.Context) error

// Budget bounds one stage's retries and timeouts.
type Budget struct {
	MaxAttempts       int
	PerAttemptTimeout time.Duration
	StageTimeout      time.Duration
}

// Semaphore bounds how many stage invocations of one kind run at once
// across tickets. A buffered channel is the idiomatic Go counting
// semaphore; Acquire/Release make the call sites read like a mutex.
type Semaphore struct {
	slots chan struct{}
}

// NewSemaphore builds a Semaphore with the given concurrency ceiling. A
// non-positive limit means unlimited (no gate).
func NewSemaphore(limit int) *Semaphore {
	if limit <= 0 {
		return &Semaphore{}
	}
	return &Semaphore{slots: make(chan struct{}, limit)}
}

// Acquire blocks until a slot is free or ctx is done.
func (s *Semaphore) Acquire(ctx context.Context) error {
	if s.slots == nil {
		return nil
	}
	select {
	case s.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a previously-acquired slot.
func (s *Semaphore) Release() {
	if s.slots == nil {
		return
	}
	<-s.slots
}

// Runner executes one StageFunc under a semaphore, retry budget, and
// per-attempt/per-stage timeout, producing a StageOutcome.
type Runner struct {
	sem    *Semaphore
	budget Budget
}

// NewRunner builds a Runner gating on sem with the given retry budget.
func NewRunner(sem *Semaphore, budget Budget) *Runner {
	return &Runner{sem: sem, budget: budget}
}

// Run executes fn, retrying KindTransient failures up to budget.MaxAttempts
// within budget.StageTimeout, and returns the StageOutcome for (ticketID,
// stage). A KindCancelled failure is recorded with message "cancelled".
func (r *Runner) Run(ctx context.Context, ticketID, batchID string, stage models.Stage, fn StageFunc) models.StageOutcome {
	outcome := models.StageOutcome{
		TicketID: ticketID,
		BatchID:  batchID,
		Stage:    stage,
		Status:   models.StatusInProgress,
		Start:    time.Now(),
	}

	if err := r.sem.Acquire(ctx); err != nil {
		outcome.Status = models.StatusFailed
		outcome.Message = "cancelled"
		outcome.ErrorDetail = err.Error()
		outcome.End = time.Now()
		return outcome
	}
	defer r.sem.Release()

	stageCtx := ctx
	var cancel context.CancelFunc
	if r.budget.StageTimeout > 0 {
		stageCtx, cancel = context.WithTimeout(ctx, r.budget.StageTimeout)
		defer cancel()
	}

	err := r.runWithRetry(stageCtx, fn)
	outcome.End = time.Now()

	switch Classify(err) {
	case KindUnknown:
		outcome.Status = models.StatusCompleted
	case KindCancelled:
		outcome.Status = models.StatusFailed
		outcome.Message = "cancelled"
		outcome.ErrorDetail = err.Error()
	case KindFatalInfra:
		outcome.Status = models.StatusFailed
		outcome.Message = "fatal infrastructure error"
		outcome.ErrorDetail = err.Error()
	default:
		outcome.Status = models.StatusFailed
		outcome.Message = "stage failed"
		outcome.ErrorDetail = err.Error()
	}
	return outcome
}

func (r *Runner) runWithRetry(ctx context.Context, fn StageFunc) error {
	maxAttempts := r.budget.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	operation := func() (struct{}, error) {
		attemptCtx := ctx
		var cancel context.CancelFunc
		if r.budget.PerAttemptTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, r.budget.PerAttemptTimeout)
			defer cancel()
		}

		err := fn(attemptCtx)
		if err == nil {
			return struct{}{}, nil
		}

		switch Classify(err) {
		case KindPermanent, KindFatalInfra, KindCancelled:
			return struct{}{}, backoff.Permanent(err)
		default:
			return struct{}{}, err
		}
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 250 * time.Millisecond
	bo.Multiplier = 2
	bo.RandomizationFactor = 0.2
	bo.MaxInterval = 4 * time.Second

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(maxAttempts)),
	)
	if err != nil {
		return fmt.Errorf("stage exhausted retries: %w", err)
	}
	return nil
}
