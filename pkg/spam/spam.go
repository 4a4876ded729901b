// Package spam implements the two-layer spam check: a cheap structural
// heuristic, falling back to an external classifier when the heuristic is
// ambiguous.
package spam

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// Result is the outcome of a spam check.
type Result struct {
	IsSpam      bool
	Probability float64
}

// Classifier is the external spam-classifier port: classify(text) ->
// {is_spam, probability}.
type Classifier interface {
	Classify(ctx context.Context, text string) (Result, error)
}

// HeuristicThresholds tunes the structural layer.
type HeuristicThresholds struct {
	MinLength          int
	MaxURLCount        int
	MaxInvisibleRatio  float64
	Keywords           []string
	ConfidentThreshold float64 // heuristic score >= this short-circuits without calling Classifier
}

// DefaultThresholds mirrors a conservative out-of-the-box configuration.
var DefaultThresholds = HeuristicThresholds{
	MinLength:          3,
	MaxURLCount:        1,
	MaxInvisibleRatio:  0.1,
	Keywords:           []string{"купи сейчас", "viagra", "free money", "click here", "buy now"},
	ConfidentThreshold: 0.8,
}

var urlPattern = regexp.MustCompile(`https?://\S+`)

// Checker runs the two-layer classification.
type Checker struct {
	thresholds HeuristicThresholds
	external   Classifier
}

// NewChecker builds a Checker. external may be nil, in which case an
// ambiguous heuristic score is treated as non-spam (fail open, since there
// is nothing else to consult).
func NewChecker(thresholds HeuristicThresholds, external Classifier) *Checker {
	return &Checker{thresholds: thresholds, external: external}
}

// heuristicScore returns a probability in [0,1] from cheap structural
// signals: very short text, excess URLs, a high ratio of invisible/control
// characters, and known spam keywords all push the score up.
func (c *Checker) heuristicScore(text string) float64 {
	var score float64

	if len(strings.TrimSpace(text)) < c.thresholds.MinLength {
		score += 0.3
	}

	urls := urlPattern.FindAllString(text, -1)
	if len(urls) > c.thresholds.MaxURLCount {
		score += 0.3
	}

	invisible := 0
	for _, r := range text {
		if unicode.IsControl(r) || !unicode.IsPrint(r) {
			invisible++
		}
	}
	if len(text) > 0 && float64(invisible)/float64(len([]rune(text))) > c.thresholds.MaxInvisibleRatio {
		score += 0.2
	}

	lower := strings.ToLower(text)
	for _, kw := range c.thresholds.Keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			score += 0.8
			break
		}
	}

	if score > 1 {
		score = 1
	}
	return score
}

// Check runs the heuristic first; if it is confident either way it returns
// immediately, otherwise it falls through to the external classifier.
func (c *Checker) Check(ctx context.Context, text string) (Result, error) {
	score := c.heuristicScore(text)
	if score >= c.thresholds.ConfidentThreshold {
		return Result{IsSpam: true, Probability: score}, nil
	}
	if score == 0 {
		return Result{IsSpam: false, Probability: 0}, nil
	}

	if c.external == nil {
		return Result{IsSpam: false, Probability: score}, nil
	}

	result, err := c.external.Classify(ctx, text)
	if err != nil {
		return Result{}, fmt.Errorf("spam: external classifier: %w", err)
	}
	return result, nil
}
