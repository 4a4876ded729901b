package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/orbitdesk/ticketrouter/pkg/bus"
	"github.com/orbitdesk/ticketrouter/pkg/dynamap"
	"github.com/orbitdesk/ticketrouter/pkg/geocode"
	"github.com/orbitdesk/ticketrouter/pkg/llm"
	"github.com/orbitdesk/ticketrouter/pkg/metrics"
	"github.com/orbitdesk/ticketrouter/pkg/models"
	"github.com/orbitdesk/ticketrouter/pkg/pii"
	"github.com/orbitdesk/ticketrouter/pkg/priority"
	"github.com/orbitdesk/ticketrouter/pkg/progress"
	"github.com/orbitdesk/ticketrouter/pkg/routing"
	"github.com/orbitdesk/ticketrouter/pkg/spam"
)

// Budgets groups the per-stage retry/timeout budgets the orchestrator
// hands to its stage runners.
type Budgets struct {
	Spam    Budget
	LLM     Budget
	Geocode Budget
}

// Semaphores groups the cross-ticket concurrency ceilings per stage.
type Semaphores struct {
	SpamLLM *Semaphore
	LLM     *Semaphore
	Geocode *Semaphore
}

// Orchestrator drives every ticket in a batch through
// ingest -> spam -> pii_scrub -> (llm || geocode) -> priority -> routing,
// publishing an event at every transition and persisting each
// StageOutcome.
type Orchestrator struct {
	events   *bus.Bus
	progress progress.Store

	spamChecker *spam.Checker
	vault       *pii.Vault
	llmProvider llm.Provider
	geoResolver *geocode.Resolver
	scorer      *priority.Scorer
	router      *routing.Engine

	semaphores Semaphores
	budgets    Budgets
	metrics    *metrics.Metrics
}

// NewOrchestrator wires the per-batch component instances together. m may
// be nil, in which case instrumentation is skipped.
func NewOrchestrator(
	events *bus.Bus,
	progressStore progress.Store,
	spamChecker *spam.Checker,
	vault *pii.Vault,
	llmProvider llm.Provider,
	geoResolver *geocode.Resolver,
	scorer *priority.Scorer,
	router *routing.Engine,
	semaphores Semaphores,
	budgets Budgets,
	m *metrics.Metrics,
) *Orchestrator {
	return &Orchestrator{
		events: events, progress: progressStore,
		spamChecker: spamChecker, vault: vault, llmProvider: llmProvider,
		geoResolver: geoResolver, scorer: scorer, router: router,
		semaphores: semaphores, budgets: budgets, metrics: m,
	}
}

// ticketResult is the per-ticket outcome the orchestrator accumulates
// before the batch-wide routing pass.
type ticketResult struct {
	ticket   models.Ticket
	analysis models.Analysis
	isSpam   bool
	failed   bool // a fatal infra error aborted this ticket before routing
}

// RunBatch processes every ticket through enrichment (all stages up to and
// including PRIORITY), then routes the surviving tickets in descending
// priority order, and returns the resulting assignments. Per-ticket
// failures are not returned: they are recorded as failed StageOutcomes and
// those tickets are absent from the result. ctx cancellation aborts pending
// retries and in-flight I/O at the next suspension point.
func (o *Orchestrator) RunBatch(ctx context.Context, batchID string, tickets []models.Ticket) ([]models.Assignment, error) {
	o.publishBatchEvent(batchID, "in_progress", dynamap.Map{"total": dynamap.Number(float64(len(tickets)))})

	results := make([]ticketResult, len(tickets))
	var wg sync.WaitGroup
	for i, ticket := range tickets {
		wg.Add(1)
		go func(i int, ticket models.Ticket) {
			defer wg.Done()
			results[i] = o.enrichTicket(ctx, batchID, ticket, len(tickets))
		}(i, ticket)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		o.metrics.ObserveBatch("failed")
		o.publishBatchEvent(batchID, "failed", dynamap.Map{"reason": dynamap.String("cancelled")})
		return nil, fmt.Errorf("pipeline: batch %s cancelled: %w", batchID, err)
	}

	var routable []ticketResult
	spamCount, enrichedCount := 0, 0
	for _, r := range results {
		switch {
		case r.isSpam:
			spamCount++
		case r.failed:
			// fatal infra error already recorded; excluded from routing
		default:
			enrichedCount++
			routable = append(routable, r)
		}
	}

	sort.SliceStable(routable, func(i, j int) bool {
		pi, pj := routable[i].analysis.PriorityFinal, routable[j].analysis.PriorityFinal
		if pi != pj {
			return pi > pj
		}
		return routable[i].ticket.RowIndex < routable[j].ticket.RowIndex
	})

	assignments := make([]models.Assignment, 0, len(routable))
	for _, r := range routable {
		outcome := o.runRoutingStage(batchID, r)
		if outcome.assignment != nil {
			assignments = append(assignments, *outcome.assignment)
		}
	}

	o.metrics.ObserveBatch("completed")
	o.publishBatchEvent(batchID, "completed", dynamap.Map{
		"total":    dynamap.Number(float64(len(tickets))),
		"spam":     dynamap.Number(float64(spamCount)),
		"enriched": dynamap.Number(float64(enrichedCount)),
		"routed":   dynamap.Number(float64(len(assignments))),
	})
	return assignments, nil
}

// enrichTicket runs the per-ticket graph up to and including PRIORITY.
// Routing is deferred to the batch-wide pass since it needs a stable
// priority ordering across every ticket.
func (o *Orchestrator) enrichTicket(ctx context.Context, batchID string, ticket models.Ticket, totalRows int) ticketResult {
	spamRunner := NewRunner(o.semaphores.SpamLLM, o.budgets.Spam)
	var spamResult spam.Result
	spamOutcome := spamRunner.Run(ctx, ticket.ID, batchID, models.StageSpamCheck, func(stageCtx context.Context) error {
		result, err := o.spamChecker.Check(stageCtx, ticket.Description)
		if err != nil {
			return err
		}
		spamResult = result
		return nil
	})
	o.record(spamOutcome, dynamap.Map{"is_spam": dynamap.Bool(spamResult.IsSpam), "probability": dynamap.Number(spamResult.Probability)})

	if spamResult.IsSpam {
		return ticketResult{ticket: ticket, isSpam: true}
	}
	if spamOutcome.Status == models.StatusFailed && spamOutcome.Message == "fatal infrastructure error" {
		return ticketResult{ticket: ticket, failed: true}
	}

	scrubbed := ticket.Description
	scrubRunner := NewRunner(NewSemaphore(0), Budget{MaxAttempts: 1})
	scrubOutcome := scrubRunner.Run(ctx, ticket.ID, batchID, models.StagePIIScrub, func(stageCtx context.Context) error {
		out, _, err := o.vault.Scrub(ticket.ID, ticket.Description)
		if err != nil {
			return err
		}
		scrubbed = out
		return nil
	})
	o.record(scrubOutcome, nil)

	var (
		analysisMu sync.Mutex
		analysis   = llm.DefaultAnalysis(ticket.ID)
		coords     *models.Coordinates
	)

	var joinWG sync.WaitGroup
	joinWG.Add(2)

	go func() {
		defer joinWG.Done()
		llmRunner := NewRunner(o.semaphores.LLM, o.budgets.LLM)
		outcome := llmRunner.Run(ctx, ticket.ID, batchID, models.StageLLMAnalysis, func(stageCtx context.Context) error {
			resp, err := o.llmProvider.Analyze(stageCtx, llm.Request{TicketID: ticket.ID, ScrubbedDescription: scrubbed, Segment: ticket.Segment})
			if err != nil {
				return err
			}
			analysisMu.Lock()
			analysis = llm.ToAnalysis(ticket.ID, resp)
			analysisMu.Unlock()
			return nil
		})
		o.record(outcome, nil)
	}()

	go func() {
		defer joinWG.Done()
		if !ticket.HasAddress() {
			return
		}
		geoRunner := NewRunner(o.semaphores.Geocode, o.budgets.Geocode)
		outcome := geoRunner.Run(ctx, ticket.ID, batchID, models.StageGeocode, func(stageCtx context.Context) error {
			result, err := o.geoResolver.Resolve(stageCtx, ticket.Address)
			if err != nil {
				return err
			}
			if result != nil && result.Provider != "last_resort" {
				analysisMu.Lock()
				coords = &models.Coordinates{Lat: result.Lat, Lon: result.Lon}
				analysisMu.Unlock()
			}
			return nil
		})
		o.record(outcome, nil)
	}()

	joinWG.Wait()

	analysisMu.Lock()
	analysis.Coordinates = coords
	if coords != nil {
		analysis.AddressStatus = "resolved"
	} else {
		analysis.AddressStatus = "unknown"
	}
	analysisMu.Unlock()

	final, breakdown := o.scorer.Score(ticket, analysis, totalRows)
	analysis.PriorityFinal = final
	analysis.PriorityBreakdown = breakdown

	o.publishEvent(ticket.ID, batchID, models.StagePriority, "completed", nil, "")

	return ticketResult{ticket: ticket, analysis: analysis}
}

type routingStageResult struct {
	assignment *models.Assignment
}

func (o *Orchestrator) runRoutingStage(batchID string, r ticketResult) routingStageResult {
	runner := NewRunner(NewSemaphore(0), Budget{MaxAttempts: 1})
	var assignment models.Assignment
	outcome := runner.Run(context.Background(), r.ticket.ID, batchID, models.StageRouting, func(_ context.Context) error {
		a, err := o.router.Assign(r.ticket, r.analysis)
		if err != nil {
			return WrapPermanent(err)
		}
		assignment = a
		return nil
	})
	o.record(outcome, nil)

	if outcome.Status != models.StatusCompleted {
		return routingStageResult{}
	}
	o.metrics.ObserveRouted()
	return routingStageResult{assignment: &assignment}
}

func (o *Orchestrator) record(outcome models.StageOutcome, data dynamap.Map) {
	_ = o.progress.Upsert(outcome)
	status := "completed"
	if outcome.Status == models.StatusFailed {
		status = "failed"
	}
	o.metrics.ObserveStage(string(outcome.Stage), status, float64(outcome.ElapsedMillis())/1000)
	o.publishEvent(outcome.TicketID, outcome.BatchID, outcome.Stage, status, data, outcome.Message)
}

func (o *Orchestrator) publishEvent(ticketID, batchID string, stage models.Stage, status string, data dynamap.Map, message string) {
	o.events.Publish(models.Event{
		TicketID: ticketID, BatchID: batchID, Stage: stage, Status: status,
		Data: data, Message: message, Timestamp: time.Now(),
	})
}

func (o *Orchestrator) publishBatchEvent(batchID, status string, data dynamap.Map) {
	o.events.Publish(models.Event{
		BatchID: batchID, Status: status, Data: data, Timestamp: time.Now(),
	})
}
