// Package pipeline implements the stage runner (bounded-concurrency,
// retrying stage execution) and the per-batch orchestrator that drives
// every ticket through the stage graph.
package pipeline

import (
	"context"
	"errors"
)

// ErrorKind classifies a stage failure for the propagation policy: which
// errors the stage runner absorbs via retry, and which become a failed
// StageOutcome immediately.
type ErrorKind int

const (
	// KindUnknown is never returned by Classify; it exists so the zero
	// value is visibly not a real classification.
	KindUnknown ErrorKind = iota
	KindTransient
	KindPermanent
	KindCancelled
	KindFatalInfra
)

// Sentinel errors a stage implementation wraps to signal its failure kind.
// Classify recognizes these via errors.Is/errors.As; an error matching
// none of them defaults to KindTransient, since most infrastructure
// failures (an unreachable endpoint, a reset connection) are worth a
// retry.
var (
	// ErrTransient is retriable: network errors, 5xx, 429, DB deadlocks.
	ErrTransient = errors.New("pipeline: transient error")

	// ErrPermanent is non-retriable: validation failures, 4xx other than
	// 429, schema mismatches.
	ErrPermanent = errors.New("pipeline: permanent error")

	// ErrFatalInfra terminates the whole batch: the database is
	// unreachable.
	ErrFatalInfra = errors.New("pipeline: fatal infrastructure error")
)

// Classify maps an error to its propagation-policy kind.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, context.Canceled):
		return KindCancelled
	case errors.Is(err, ErrFatalInfra):
		return KindFatalInfra
	case errors.Is(err, ErrPermanent):
		return KindPermanent
	case errors.Is(err, ErrTransient):
		return KindTransient
	default:
		return KindTransient
	}
}

// WrapPermanent marks err as non-retriable.
func WrapPermanent(err error) error {
	if err == nil {
		return nil
	}
	return errors.Join(ErrPermanent, err)
}

// WrapFatalInfra marks err as a batch-terminating infrastructure failure.
func WrapFatalInfra(err error) error {
	if err == nil {
		return nil
	}
	return errors.Join(ErrFatalInfra, err)
}

// WrapTransient marks err as retriable, for callers that want to be
// explicit even though it is also Classify's default.
func WrapTransient(err error) error {
	if err == nil {
		return nil
	}
	return errors.Join(ErrTransient, err)
}
