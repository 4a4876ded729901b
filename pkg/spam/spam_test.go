package spam

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClassifier struct {
	result Result
	err    error
	called bool
}

func (s *stubClassifier) Classify(_ context.Context, _ string) (Result, error) {
	s.called = true
	return s.result, s.err
}

func TestCheck_KeywordMatchShortCircuitsAsSpam(t *testing.T) {
	classifier := &stubClassifier{}
	checker := NewChecker(DefaultThresholds, classifier)

	result, err := checker.Check(context.Background(), "!!!КУПИ СЕЙЧАС http://x.y http://z.w")
	require.NoError(t, err)
	assert.True(t, result.IsSpam)
	assert.GreaterOrEqual(t, result.Probability, 0.8)
	assert.False(t, classifier.called)
}

func TestCheck_CleanTextIsNotSpamWithoutCallingExternal(t *testing.T) {
	classifier := &stubClassifier{}
	checker := NewChecker(DefaultThresholds, classifier)

	result, err := checker.Check(context.Background(), "I would like an update on my claim please.")
	require.NoError(t, err)
	assert.False(t, result.IsSpam)
	assert.False(t, classifier.called)
}

func TestCheck_AmbiguousScoreFallsThroughToExternalClassifier(t *testing.T) {
	classifier := &stubClassifier{result: Result{IsSpam: true, Probability: 0.55}}
	checker := NewChecker(DefaultThresholds, classifier)

	result, err := checker.Check(context.Background(), "http://x.y http://z.w http://q.r")
	require.NoError(t, err)
	assert.True(t, classifier.called)
	assert.True(t, result.IsSpam)
}

func TestCheck_AmbiguousWithNoExternalClassifierFailsOpen(t *testing.T) {
	checker := NewChecker(DefaultThresholds, nil)

	result, err := checker.Check(context.Background(), "http://x.y http://z.w http://q.r")
	require.NoError(t, err)
	assert.False(t, result.IsSpam)
}
