package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/orbitdesk/ticketrouter/pkg/bus"
	"github.com/orbitdesk/ticketrouter/pkg/config"
	"github.com/orbitdesk/ticketrouter/pkg/database"
	"github.com/orbitdesk/ticketrouter/pkg/geocode"
	"github.com/orbitdesk/ticketrouter/pkg/ledger"
	"github.com/orbitdesk/ticketrouter/pkg/llm"
	"github.com/orbitdesk/ticketrouter/pkg/metrics"
	"github.com/orbitdesk/ticketrouter/pkg/models"
	"github.com/orbitdesk/ticketrouter/pkg/pii"
	"github.com/orbitdesk/ticketrouter/pkg/pipeline"
	"github.com/orbitdesk/ticketrouter/pkg/priority"
	"github.com/orbitdesk/ticketrouter/pkg/routing"
	"github.com/orbitdesk/ticketrouter/pkg/spam"
)

// runningBatch tracks one in-flight RunBatch call so Cancel can reach it.
type runningBatch struct {
	cancel context.CancelFunc
}

// BatchService drives a batch end to end: ingest rows, run the pipeline,
// persist assignments, and answer progress/cancel requests while it runs.
type BatchService struct {
	db         *database.Client
	events     *bus.Bus
	policies   *config.Policies
	sealer     *pii.AESSealer
	llmClient  llm.Provider
	geoCache   geocode.Cache
	geoCascade []geocode.Provider
	metrics    *metrics.Metrics

	mu      sync.Mutex
	running map[string]*runningBatch
}

// NewBatchService wires a BatchService from its dependencies. geoCascade is
// the ordered list of geocoding providers to try before falling back to the
// policies' last-resort coordinates; it may be nil if no HTTP providers are
// configured. m may be nil to disable pipeline instrumentation.
func NewBatchService(db *database.Client, events *bus.Bus, policies *config.Policies, sealer *pii.AESSealer, llmClient llm.Provider, geoCache geocode.Cache, geoCascade []geocode.Provider, m *metrics.Metrics) *BatchService {
	return &BatchService{
		db: db, events: events, policies: policies, sealer: sealer,
		llmClient: llmClient, geoCache: geoCache, geoCascade: geoCascade, metrics: m,
		running: make(map[string]*runningBatch),
	}
}

// IngestBatch creates the batch row and inserts every ticket, assigning a
// fresh UUID to each if the caller didn't already supply one.
func (s *BatchService) IngestBatch(ctx context.Context, filename string, tickets []models.Ticket) (string, error) {
	batchID := uuid.NewString()
	for i := range tickets {
		if tickets[i].ID == "" {
			tickets[i].ID = uuid.NewString()
		}
		tickets[i].BatchID = batchID
		tickets[i].RowIndex = i
	}

	batch := models.Batch{ID: batchID, Filename: filename, TotalRows: len(tickets), Status: models.BatchStatusPending}
	if err := database.NewBatchRepo(s.db).Create(ctx, batch); err != nil {
		return "", err
	}
	if err := database.NewTicketRepo(s.db).InsertBatch(ctx, tickets); err != nil {
		return "", err
	}
	return batchID, nil
}

// Start launches the pipeline for batchID in the background. It returns
// ErrAlreadyRunning if the batch is already being processed.
func (s *BatchService) Start(parent context.Context, batchID string) error {
	s.mu.Lock()
	if _, ok := s.running[batchID]; ok {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.running[batchID] = &runningBatch{cancel: cancel}
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.running, batchID)
			s.mu.Unlock()
		}()
		if err := s.run(ctx, batchID); err != nil {
			s.events.Publish(models.Event{BatchID: batchID, Status: "failed", Message: err.Error()})
		}
	}()
	return nil
}

// Cancel requests cooperative cancellation of a running batch. It is a
// no-op if the batch isn't currently running.
func (s *BatchService) Cancel(batchID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rb, ok := s.running[batchID]; ok {
		rb.cancel()
	}
}

// Progress returns the batch row plus every recorded stage outcome.
func (s *BatchService) Progress(ctx context.Context, batchID string) (models.Batch, []models.StageOutcome, error) {
	batchRepo := database.NewBatchRepo(s.db)
	batch, err := batchRepo.Get(ctx, batchID)
	if err != nil {
		return models.Batch{}, nil, fmt.Errorf("%w: %s", ErrNotFound, batchID)
	}
	outcomes, err := database.NewProgressRepo(s.db, ctx).ByBatch(batchID)
	if err != nil {
		return models.Batch{}, nil, err
	}
	return batch, outcomes, nil
}

func (s *BatchService) run(ctx context.Context, batchID string) error {
	batchRepo := database.NewBatchRepo(s.db)
	ticketRepo := database.NewTicketRepo(s.db)
	tickets, err := ticketRepo.ByBatch(ctx, batchID)
	if err != nil {
		return fmt.Errorf("services: load tickets for batch %s: %w", batchID, err)
	}

	batch, err := batchRepo.Get(ctx, batchID)
	if err != nil {
		return fmt.Errorf("services: load batch %s: %w", batchID, err)
	}
	batch.Status = models.BatchStatusInProgress
	if err := batchRepo.UpdateCounters(ctx, batch); err != nil {
		return fmt.Errorf("services: mark batch %s in progress: %w", batchID, err)
	}

	rosterRepo := database.NewRosterRepo(s.db)
	offices, err := rosterRepo.Offices(ctx)
	if err != nil {
		return fmt.Errorf("services: load offices: %w", err)
	}
	agents, err := rosterRepo.Agents(ctx)
	if err != nil {
		return fmt.Errorf("services: load agents: %w", err)
	}

	initialLoad := make(map[string]int, len(agents))
	for _, a := range agents {
		initialLoad[a.ID] = a.CommittedLoad
	}
	ld := ledger.New(initialLoad)

	difficulty := make(routing.DifficultyWeights, len(s.policies.DifficultyWeights))
	for k, v := range s.policies.DifficultyWeights {
		difficulty[models.TicketType(k)] = v
	}
	router := routing.NewEngine(offices, agents, ld, difficulty)

	vault := pii.NewVault(database.NewPIIRepo(s.db, ctx), s.sealer, pii.NewRegexDetector())
	spamChecker := spam.NewChecker(spam.DefaultThresholds, nil)

	var lastResort *geocode.Result
	if s.policies.LastResort != nil {
		lastResort = &geocode.Result{Lat: s.policies.LastResort.Lat, Lon: s.policies.LastResort.Lon}
	}
	geoResolver := geocode.NewResolver(s.geoCache, s.geoCascade, lastResort)

	expansionCountries := make(map[string]bool, len(s.policies.ScoringExtras.ExpansionCountries))
	for _, c := range s.policies.ScoringExtras.ExpansionCountries {
		expansionCountries[c] = true
	}
	scorer := priority.NewScorer(
		priority.Weights(s.policies.ScoringWeights),
		priority.Extras{
			HomeCountry:        s.policies.ScoringExtras.HomeCountry,
			ExpansionCountries: expansionCountries,
			FIFOMaxBonus:       s.policies.ScoringExtras.FIFOMaxBonus,
			ExpansionBonus:     s.policies.ScoringExtras.ExpansionBonus,
			YoungVIPBonus:      s.policies.ScoringExtras.YoungVIPBonus,
			YoungVIPAgeCeiling: s.policies.ScoringExtras.YoungVIPAgeCeiling,
		},
	)

	progressRepo := database.NewProgressRepo(s.db, ctx)

	orch := pipeline.NewOrchestrator(
		s.events, progressRepo, spamChecker, vault, s.llmClient, geoResolver, scorer, router,
		pipeline.Semaphores{
			SpamLLM: pipeline.NewSemaphore(s.policies.Concurrency.SpamLLM),
			LLM:     pipeline.NewSemaphore(s.policies.Concurrency.LLM),
			Geocode: pipeline.NewSemaphore(s.policies.Concurrency.Geocode),
		},
		pipeline.Budgets{
			Spam:    toBudget(s.policies.Retry.Spam),
			LLM:     toBudget(s.policies.Retry.LLM),
			Geocode: toBudget(s.policies.Retry.Geocode),
		},
		s.metrics,
	)

	assignments, err := orch.RunBatch(ctx, batchID, tickets)
	if err != nil {
		batch.Status = models.BatchStatusFailed
		_ = batchRepo.UpdateCounters(ctx, batch)
		return err
	}

	assignmentRepo := database.NewAssignmentRepo(s.db)
	for _, a := range assignments {
		if err := assignmentRepo.Insert(ctx, a); err != nil {
			batch.Status = models.BatchStatusFailed
			_ = batchRepo.UpdateCounters(ctx, batch)
			return fmt.Errorf("services: persist assignment for %s: %w", a.TicketID, err)
		}
	}

	if err := rosterRepo.PersistLoad(ctx, ld.Snapshot()); err != nil {
		batch.Status = models.BatchStatusFailed
		_ = batchRepo.UpdateCounters(ctx, batch)
		return err
	}

	batch.Status = models.BatchStatusCompleted
	batch.Processed = len(tickets)
	batch.Routed = len(assignments)
	batch.Failed = len(tickets) - len(assignments)
	return batchRepo.UpdateCounters(ctx, batch)
}

func toBudget(b config.RetryBudget) pipeline.Budget {
	return pipeline.Budget{
		MaxAttempts:       b.MaxAttempts,
		PerAttemptTimeout: b.PerAttemptTimeout,
		StageTimeout:      b.StageTimeout,
	}
}
