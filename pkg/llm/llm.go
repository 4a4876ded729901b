// Package llm is the LLM provider port: a synchronous request/response
// call that turns a scrubbed ticket description into structured analysis
// fields. Schema validation lives here so invalid responses can be
// classified and retried by the stage runner before ever reaching the
// domain model.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/orbitdesk/ticketrouter/pkg/models"
)

// ErrSchemaMismatch means a provider response failed schema validation.
// pipeline.Classify treats it as transient (it matches none of the pipeline
// sentinels), so the stage runner retries it up to the retry budget and then
// records the stage as failed with message "stage failed". Nothing rewraps
// it as a permanent error.
var ErrSchemaMismatch = errors.New("llm: response failed schema validation")

// Request is the port's input: the scrubbed ticket text plus a structured
// prompt the adapter is responsible for rendering into whatever shape the
// concrete provider expects.
type Request struct {
	TicketID           string
	ScrubbedDescription string
	Segment            models.Segment
}

// Response is the port's output, mirroring the documented schema:
// {detected_type, language, is_mixed, sentiment, sentiment_confidence,
// summary, anomaly_flags}.
type Response struct {
	DetectedType        string   `json:"detected_type"`
	Language            string   `json:"language"`
	IsMixedLanguage     bool     `json:"is_mixed"`
	Sentiment           string   `json:"sentiment"`
	SentimentConfidence float64  `json:"sentiment_confidence"`
	Summary             string   `json:"summary"`
	AnomalyFlags        []string `json:"anomaly_flags"`
}

// Provider is the port interface the orchestrator depends on.
type Provider interface {
	Analyze(ctx context.Context, req Request) (Response, error)
}

var validTypes = map[string]bool{
	"complaint": true, "data-change": true, "consultation": true,
	"claim": true, "outage": true, "fraud": true, "spam": true,
}

var validSentiments = map[string]bool{"positive": true, "neutral": true, "negative": true}

// ValidateResponse enforces the documented schema. A malformed response
// yields an error wrapping ErrSchemaMismatch, which the stage runner retries
// as transient until the retry budget is exhausted.
func ValidateResponse(resp Response) error {
	if !validTypes[resp.DetectedType] {
		return fmt.Errorf("%w: unknown detected_type %q", ErrSchemaMismatch, resp.DetectedType)
	}
	if !validSentiments[resp.Sentiment] {
		return fmt.Errorf("%w: unknown sentiment %q", ErrSchemaMismatch, resp.Sentiment)
	}
	if resp.SentimentConfidence < 0 || resp.SentimentConfidence > 1 {
		return fmt.Errorf("%w: sentiment_confidence %f out of [0,1]", ErrSchemaMismatch, resp.SentimentConfidence)
	}
	if resp.Language == "" {
		return fmt.Errorf("%w: empty language", ErrSchemaMismatch)
	}
	return nil
}

// ToAnalysis converts a validated Response into the stored Analysis model.
func ToAnalysis(ticketID string, resp Response) models.Analysis {
	return models.Analysis{
		TicketID:            ticketID,
		DetectedType:        models.TicketType(resp.DetectedType),
		Language:            resp.Language,
		IsMixedLanguage:     resp.IsMixedLanguage,
		Sentiment:           models.Sentiment(resp.Sentiment),
		SentimentConfidence: resp.SentimentConfidence,
		Summary:             resp.Summary,
		AnomalyFlags:        resp.AnomalyFlags,
	}
}

// DefaultAnalysis builds the documented fallback Analysis used when
// LLM_ANALYSIS fails permanently: language=RU, detected_type=consultation,
// sentiment=neutral.
func DefaultAnalysis(ticketID string) models.Analysis {
	return models.Analysis{
		TicketID:            ticketID,
		DetectedType:        models.DefaultTicketType,
		Language:            models.DefaultLanguage,
		Sentiment:           models.DefaultSentiment,
		SentimentConfidence: models.DefaultSentimentConf,
	}
}
