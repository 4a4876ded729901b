package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/orbitdesk/ticketrouter/pkg/models"
)

// AnalysisRepo persists the per-ticket Analysis produced by LLM_ANALYSIS,
// GEOCODE, and PRIORITY.
type AnalysisRepo struct {
	client *Client
}

// NewAnalysisRepo builds an AnalysisRepo over client.
func NewAnalysisRepo(client *Client) *AnalysisRepo {
	return &AnalysisRepo{client: client}
}

// Upsert writes or replaces a ticket's analysis row.
func (r *AnalysisRepo) Upsert(ctx context.Context, a models.Analysis) error {
	var lat, lon *float64
	if a.Coordinates != nil {
		lat, lon = &a.Coordinates.Lat, &a.Coordinates.Lon
	}
	breakdown, err := json.Marshal(a.PriorityBreakdown)
	if err != nil {
		return fmt.Errorf("database: marshal priority breakdown for %s: %w", a.TicketID, err)
	}

	_, err = r.client.Pool.Exec(ctx, `
		INSERT INTO analyses (
			ticket_id, detected_type, language, is_mixed_language, sentiment, sentiment_confidence,
			summary, anomaly_flags, latitude, longitude, address_status, priority_final, priority_breakdown
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (ticket_id) DO UPDATE SET
			detected_type = EXCLUDED.detected_type, language = EXCLUDED.language,
			is_mixed_language = EXCLUDED.is_mixed_language, sentiment = EXCLUDED.sentiment,
			sentiment_confidence = EXCLUDED.sentiment_confidence, summary = EXCLUDED.summary,
			anomaly_flags = EXCLUDED.anomaly_flags, latitude = EXCLUDED.latitude, longitude = EXCLUDED.longitude,
			address_status = EXCLUDED.address_status, priority_final = EXCLUDED.priority_final,
			priority_breakdown = EXCLUDED.priority_breakdown`,
		a.TicketID, string(a.DetectedType), a.Language, a.IsMixedLanguage, string(a.Sentiment), a.SentimentConfidence,
		a.Summary, a.AnomalyFlags, lat, lon, a.AddressStatus, a.PriorityFinal, breakdown,
	)
	if err != nil {
		return fmt.Errorf("database: upsert analysis for %s: %w", a.TicketID, err)
	}
	return nil
}
