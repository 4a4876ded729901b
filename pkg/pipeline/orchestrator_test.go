package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitdesk/ticketrouter/pkg/bus"
	"github.com/orbitdesk/ticketrouter/pkg/geocode"
	"github.com/orbitdesk/ticketrouter/pkg/ledger"
	"github.com/orbitdesk/ticketrouter/pkg/llm"
	"github.com/orbitdesk/ticketrouter/pkg/models"
	"github.com/orbitdesk/ticketrouter/pkg/pii"
	"github.com/orbitdesk/ticketrouter/pkg/priority"
	"github.com/orbitdesk/ticketrouter/pkg/progress"
	"github.com/orbitdesk/ticketrouter/pkg/routing"
	"github.com/orbitdesk/ticketrouter/pkg/spam"
)

type stubLLMProvider struct {
	resp llm.Response
	err  error
}

func (s stubLLMProvider) Analyze(ctx context.Context, req llm.Request) (llm.Response, error) {
	return s.resp, s.err
}

func newTestOrchestrator(t *testing.T, llmProvider llm.Provider) (*Orchestrator, progress.Store, *bus.Bus) {
	t.Helper()

	vault := pii.NewVault(pii.NewMemStore(), mustSealer(t), pii.NewRegexDetector())
	spamChecker := spam.NewChecker(spam.DefaultThresholds, nil)
	geoResolver := geocode.NewResolver(geocode.NewMemCache(), nil, &geocode.Result{Lat: 1, Lon: 1, Provider: "last-resort"})
	scorer := priority.NewScorer(priority.DefaultWeights, priority.DefaultExtras)

	offices := []models.Office{{ID: "office-1", Name: "Almaty", Latitude: 43.2, Longitude: 76.9}}
	agents := []models.Agent{
		{ID: "agent-1", Position: models.PositionSpecialist, Skills: []string{"EN"}, SkillFactor: 1, HomeOfficeID: "office-1", Active: true},
	}
	eng := routing.NewEngine(offices, agents, ledger.New(nil), routing.DifficultyWeights{})

	events := bus.New()
	store := progress.NewMemStore()

	orch := NewOrchestrator(
		events, store, spamChecker, vault, llmProvider, geoResolver, scorer, eng,
		Semaphores{SpamLLM: NewSemaphore(0), LLM: NewSemaphore(0), Geocode: NewSemaphore(0)},
		Budgets{
			Spam:    Budget{MaxAttempts: 1},
			LLM:     Budget{MaxAttempts: 1},
			Geocode: Budget{MaxAttempts: 1},
		},
		nil,
	)
	return orch, store, events
}

func mustSealer(t *testing.T) *pii.AESSealer {
	t.Helper()
	sealer, err := pii.NewAESSealer(make([]byte, 32))
	require.NoError(t, err)
	return sealer
}

func TestRunBatch_RoutesCleanTicketAndRecordsEveryStage(t *testing.T) {
	provider := stubLLMProvider{resp: llm.Response{DetectedType: "consultation", Language: "RU", Sentiment: "neutral", SentimentConfidence: 0.5}}
	orch, store, _ := newTestOrchestrator(t, provider)

	tickets := []models.Ticket{{ID: "t1", BatchID: "b1", Description: "hello, my account is broken", Segment: models.SegmentMass}}
	assignments, err := orch.RunBatch(context.Background(), "b1", tickets)
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.Equal(t, "agent-1", assignments[0].AgentID)

	rows, err := store.ByTicket("t1")
	require.NoError(t, err)
	stages := map[models.Stage]bool{}
	for _, r := range rows {
		stages[r.Stage] = true
		assert.True(t, r.Status.Terminal())
	}
	assert.True(t, stages[models.StageSpamCheck])
	assert.True(t, stages[models.StagePIIScrub])
	assert.True(t, stages[models.StageLLMAnalysis])
	assert.True(t, stages[models.StageRouting])
}

func TestRunBatch_SpamTicketNeverReachesRouting(t *testing.T) {
	provider := stubLLMProvider{resp: llm.Response{DetectedType: "consultation", Language: "RU", Sentiment: "neutral"}}
	orch, store, _ := newTestOrchestrator(t, provider)

	tickets := []models.Ticket{{ID: "t-spam", BatchID: "b1", Description: "\x00\x00\x00\x00\x00\x00buy viagra\x00\x00\x00\x00 http://a http://b http://c", Segment: models.SegmentMass}}
	assignments, err := orch.RunBatch(context.Background(), "b1", tickets)
	require.NoError(t, err)
	assert.Empty(t, assignments)

	rows, err := store.ByTicket("t-spam")
	require.NoError(t, err)
	for _, r := range rows {
		assert.NotEqual(t, models.StageRouting, r.Stage)
	}
}

func TestRunBatch_LLMFailureFallsBackToDefaultAnalysisAndStillRoutes(t *testing.T) {
	provider := stubLLMProvider{err: ErrPermanent}
	orch, _, _ := newTestOrchestrator(t, provider)

	tickets := []models.Ticket{{ID: "t2", BatchID: "b1", Description: "a normal question about my claim", Segment: models.SegmentMass}}
	assignments, err := orch.RunBatch(context.Background(), "b1", tickets)
	require.NoError(t, err)
	require.Len(t, assignments, 1)
}

func TestRunBatch_PublishesBatchLevelInProgressAndCompletedEvents(t *testing.T) {
	provider := stubLLMProvider{resp: llm.Response{DetectedType: "fraud", Language: "RU", Sentiment: "negative", SentimentConfidence: 0.9}}
	orch, _, events := newTestOrchestrator(t, provider)
	sub, err := events.Subscribe(64)
	require.NoError(t, err)

	tickets := []models.Ticket{
		{ID: "low", BatchID: "b1", RowIndex: 0, Description: "minor question", Segment: models.SegmentMass},
		{ID: "high", BatchID: "b1", RowIndex: 1, Description: "fraud on my account right now", Segment: models.SegmentVIP},
	}
	assignments, err := orch.RunBatch(context.Background(), "b1", tickets)
	require.NoError(t, err)
	assert.Len(t, assignments, 2)

	var sawInProgress, sawCompleted bool
	deadline := time.After(time.Second)
	for !sawCompleted {
		select {
		case e := <-sub.Events:
			if e.TicketID == "" || e.TicketID == models.ZeroTicketID {
				switch e.Status {
				case "in_progress":
					sawInProgress = true
				case "completed":
					sawCompleted = true
				}
			}
		case <-deadline:
			t.Fatal("timed out waiting for batch completed event")
		}
	}
	assert.True(t, sawInProgress)
	assert.True(t, sawCompleted)
}
