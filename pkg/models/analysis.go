package models

import "github.com/orbitdesk/ticketrouter/pkg/dynamap"

// TicketType is the LLM-detected category of a ticket.
type TicketType string

const (
	TypeComplaint    TicketType = "complaint"
	TypeDataChange   TicketType = "data-change"
	TypeConsultation TicketType = "consultation"
	TypeClaim        TicketType = "claim"
	TypeOutage       TicketType = "outage"
	TypeFraud        TicketType = "fraud"
	TypeSpam         TicketType = "spam"
)

// Sentiment is the LLM-detected emotional tone of a ticket.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// Default fallback values used when the LLM analysis stage fails
// permanently and the orchestrator must join with a partial Analysis.
const (
	DefaultLanguage      = "RU"
	DefaultTicketType    = TypeConsultation
	DefaultSentiment     = SentimentNeutral
	DefaultSentimentConf = 0.0
)

// Coordinates is a resolved lat/lon pair, or nil when geocoding never
// produced one. Routing proceeds with an "unknown" address rather than
// blocking on a missing resolution.
type Coordinates struct {
	Lat float64
	Lon float64
}

// Analysis is the per-ticket enrichment result produced by LLM_ANALYSIS and
// GEOCODE, consumed by PRIORITY and ROUTING.
type Analysis struct {
	TicketID string

	DetectedType       TicketType
	Language           string
	IsMixedLanguage    bool
	Sentiment          Sentiment
	SentimentConfidence float64
	Summary            string
	AnomalyFlags       []string

	Coordinates    *Coordinates
	AddressStatus  string // "resolved" | "unknown"
	GeocodeProvider string

	PriorityBase      float64
	PriorityExtra     float64
	PriorityFinal     float64
	PriorityBreakdown dynamap.Map
}
