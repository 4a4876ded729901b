// Package priority implements the pure (Ticket, Analysis) -> priority_final
// scoring function and its breakdown.
package priority

import (
	"github.com/orbitdesk/ticketrouter/pkg/dynamap"
	"github.com/orbitdesk/ticketrouter/pkg/models"
)

const (
	minPriority   = 1.0
	maxPriority   = 10.0
	fraudFloor    = 8.0
	repeatDivisor = 5.0
)

// Scorer computes priority_final and its breakdown from a configured set of
// weights and extras.
type Scorer struct {
	weights Weights
	extras  Extras
}

// NewScorer builds a Scorer. Zero-valued Weights/Extras fields behave as
// documented by their corresponding component function for an unset input.
// Callers that want the shipped defaults should pass DefaultWeights and
// DefaultExtras explicitly.
func NewScorer(weights Weights, extras Extras) *Scorer {
	return &Scorer{weights: weights, extras: extras}
}

func segmentComponent(segment models.Segment) float64 {
	switch segment {
	case models.SegmentVIP:
		return 1.0
	case models.SegmentPriority:
		return 0.66
	default:
		return 0.25
	}
}

func typeComponent(t models.TicketType) float64 {
	switch t {
	case models.TypeFraud:
		return 1.0
	case models.TypeOutage:
		return 0.9
	case models.TypeClaim:
		return 0.7
	case models.TypeDataChange:
		return 0.6
	case models.TypeComplaint:
		return 0.5
	case models.TypeConsultation:
		return 0.2
	default: // spam, or an unrecognized type
		return 0.0
	}
}

func sentimentComponent(s models.Sentiment) float64 {
	switch s {
	case models.SentimentNegative:
		return 1.0
	case models.SentimentPositive:
		return 0.1
	default:
		return 0.4
	}
}

func ageComponent(age *int) float64 {
	if age == nil {
		return 0.4
	}
	switch {
	case *age < 25:
		return 0.8
	case *age >= 60:
		return 0.9
	default:
		return 0.4
	}
}

func repeatComponent(idCount int) float64 {
	v := float64(idCount) / repeatDivisor
	if v > 1 {
		return 1
	}
	if v < 0 {
		return 0
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Score computes priority_final for ticket given its (possibly partial)
// analysis. rowIndex and totalRows drive the FIFO bonus: rowIndex 0 within
// a larger batch earns the full bonus, the last row earns none.
func (s *Scorer) Score(ticket models.Ticket, analysis models.Analysis, totalRows int) (final float64, breakdown dynamap.Map) {
	segment := s.weights.Segment * segmentComponent(ticket.Segment)
	ttype := s.weights.Type * typeComponent(analysis.DetectedType)
	sentiment := s.weights.Sentiment * sentimentComponent(analysis.Sentiment)
	age := s.weights.Age * ageComponent(ticket.Age)
	repeat := s.weights.Repeat * repeatComponent(ticket.IDCountOfUser)

	base := 10 * (segment + ttype + sentiment + age + repeat)

	fifo := s.fifoBonus(ticket.RowIndex, totalRows)
	expansion := s.expansionBonus(ticket.Address.Country)
	youngVIP := s.youngVIPBonus(ticket.Segment, ticket.Age)

	sum := base + fifo + expansion + youngVIP
	final = clamp(sum, minPriority, maxPriority)
	if analysis.DetectedType == models.TypeFraud && final < fraudFloor {
		final = fraudFloor
	}

	breakdown = dynamap.Map{
		"segment":   dynamap.Number(segment),
		"type":      dynamap.Number(ttype),
		"sentiment": dynamap.Number(sentiment),
		"age":       dynamap.Number(age),
		"repeat":    dynamap.Number(repeat),
		"base":      dynamap.Number(base),
		"fifo":      dynamap.Number(fifo),
		"expansion": dynamap.Number(expansion),
		"young_vip": dynamap.Number(youngVIP),
		"final":     dynamap.Number(final),
	}
	return final, breakdown
}

// fifoBonus gives earlier rows a linearly larger bonus, 0 for the last row
// of a multi-row batch. The only row of a single-row batch gets the full
// bonus.
func (s *Scorer) fifoBonus(rowIndex, totalRows int) float64 {
	if totalRows <= 1 {
		return s.extras.FIFOMaxBonus
	}
	fraction := 1.0 - float64(rowIndex)/float64(totalRows-1)
	return s.extras.FIFOMaxBonus * clamp(fraction, 0, 1)
}

func (s *Scorer) expansionBonus(country string) float64 {
	if country == "" || country == s.extras.HomeCountry {
		return 0
	}
	if s.extras.ExpansionCountries[country] {
		return s.extras.ExpansionBonus
	}
	return 0
}

func (s *Scorer) youngVIPBonus(segment models.Segment, age *int) float64 {
	if segment != models.SegmentVIP || age == nil {
		return 0
	}
	ceiling := s.extras.YoungVIPAgeCeiling
	if ceiling == 0 {
		ceiling = DefaultExtras.YoungVIPAgeCeiling
	}
	if *age < ceiling {
		return s.extras.YoungVIPBonus
	}
	return 0
}
