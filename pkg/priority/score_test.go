package priority

import (
	"testing"

	"github.com/orbitdesk/ticketrouter/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestScore_FraudAlwaysClampsToFraudFloor(t *testing.T) {
	scorer := NewScorer(DefaultWeights, DefaultExtras)
	ticket := models.Ticket{Segment: models.SegmentMass, Age: intPtr(40), RowIndex: 9}
	analysis := models.Analysis{DetectedType: models.TypeFraud, Sentiment: models.SentimentNegative}

	final, breakdown := scorer.Score(ticket, analysis, 10)
	assert.GreaterOrEqual(t, final, 8.0)
	v, ok := breakdown["final"].AsNumber()
	require.True(t, ok)
	assert.Equal(t, final, v)
}

func TestScore_StaysWithinBounds(t *testing.T) {
	scorer := NewScorer(DefaultWeights, DefaultExtras)
	ticket := models.Ticket{Segment: models.SegmentVIP, Age: intPtr(20), RowIndex: 0, IDCountOfUser: 50}
	analysis := models.Analysis{DetectedType: models.TypeOutage, Sentiment: models.SentimentNegative}

	final, _ := scorer.Score(ticket, analysis, 1)
	assert.LessOrEqual(t, final, 10.0)
	assert.GreaterOrEqual(t, final, 1.0)
}

func TestScore_FIFOBonusIsHigherForEarlierRows(t *testing.T) {
	scorer := NewScorer(DefaultWeights, DefaultExtras)
	base := models.Ticket{Segment: models.SegmentMass}
	analysis := models.Analysis{DetectedType: models.TypeConsultation, Sentiment: models.SentimentNeutral}

	first := base
	first.RowIndex = 0
	last := base
	last.RowIndex = 9

	firstScore, _ := scorer.Score(first, analysis, 10)
	lastScore, _ := scorer.Score(last, analysis, 10)
	assert.Greater(t, firstScore, lastScore)
}

func TestScore_YoungVIPBonusApplies(t *testing.T) {
	scorer := NewScorer(DefaultWeights, DefaultExtras)
	analysis := models.Analysis{DetectedType: models.TypeConsultation, Sentiment: models.SentimentNeutral}

	young := models.Ticket{Segment: models.SegmentVIP, Age: intPtr(25), RowIndex: 5}
	old := models.Ticket{Segment: models.SegmentVIP, Age: intPtr(45), RowIndex: 5}

	youngScore, _ := scorer.Score(young, analysis, 10)
	oldScore, _ := scorer.Score(old, analysis, 10)
	assert.Greater(t, youngScore, oldScore)
}

func TestScore_ExpansionBonusOnlyForNonHomeExpansionCountry(t *testing.T) {
	extras := DefaultExtras
	extras.HomeCountry = "Kazakhstan"
	extras.ExpansionCountries = map[string]bool{"Uzbekistan": true}
	scorer := NewScorer(DefaultWeights, extras)
	analysis := models.Analysis{DetectedType: models.TypeConsultation, Sentiment: models.SentimentNeutral}

	expansion := models.Ticket{Segment: models.SegmentMass, RowIndex: 5, Address: models.Address{Country: "Uzbekistan"}}
	home := models.Ticket{Segment: models.SegmentMass, RowIndex: 5, Address: models.Address{Country: "Kazakhstan"}}
	other := models.Ticket{Segment: models.SegmentMass, RowIndex: 5, Address: models.Address{Country: "Russia"}}

	expansionScore, _ := scorer.Score(expansion, analysis, 10)
	homeScore, _ := scorer.Score(home, analysis, 10)
	otherScore, _ := scorer.Score(other, analysis, 10)
	assert.Greater(t, expansionScore, homeScore)
	assert.Equal(t, homeScore, otherScore)
}

func TestScore_UnknownAgeUsesMidRangeComponent(t *testing.T) {
	scorer := NewScorer(DefaultWeights, DefaultExtras)
	analysis := models.Analysis{DetectedType: models.TypeConsultation, Sentiment: models.SentimentNeutral}

	unknown := models.Ticket{Segment: models.SegmentMass, RowIndex: 5}
	midRange := models.Ticket{Segment: models.SegmentMass, RowIndex: 5, Age: intPtr(40)}

	unknownScore, _ := scorer.Score(unknown, analysis, 10)
	midScore, _ := scorer.Score(midRange, analysis, 10)
	assert.Equal(t, midScore, unknownScore)
}
