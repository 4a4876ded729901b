package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/orbitdesk/ticketrouter/pkg/models"
)

// ProgressRepo implements progress.Store over Postgres: an upsert on
// (ticket_id, stage) so the current row for a pair is always the latest
// write, matching pkg/progress.MemStore's in-memory semantics.
type ProgressRepo struct {
	client *Client
	ctx    context.Context
}

// NewProgressRepo builds a ProgressRepo bound to ctx, since progress.Store's
// methods don't take one.
func NewProgressRepo(client *Client, ctx context.Context) *ProgressRepo {
	return &ProgressRepo{client: client, ctx: ctx}
}

// Upsert implements progress.Store. It never overwrites an already-terminal
// (completed or failed) row, mirroring MemStore's invariant.
func (r *ProgressRepo) Upsert(outcome models.StageOutcome) error {
	var existingStatus string
	err := r.client.Pool.QueryRow(r.ctx,
		`SELECT status FROM stage_outcomes WHERE ticket_id = $1 AND stage = $2`,
		outcome.TicketID, string(outcome.Stage),
	).Scan(&existingStatus)
	if err != nil && err != pgx.ErrNoRows {
		return fmt.Errorf("database: check existing stage outcome: %w", err)
	}
	if models.StageStatus(existingStatus).Terminal() {
		return nil
	}

	_, err = r.client.Pool.Exec(r.ctx, `
		INSERT INTO stage_outcomes (ticket_id, batch_id, stage, status, message, error_detail, started_at, ended_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (ticket_id, stage) DO UPDATE SET
			status = EXCLUDED.status, message = EXCLUDED.message,
			error_detail = EXCLUDED.error_detail, ended_at = EXCLUDED.ended_at`,
		outcome.TicketID, outcome.BatchID, string(outcome.Stage), string(outcome.Status),
		outcome.Message, outcome.ErrorDetail, outcome.Start, nullableTime(outcome.End),
	)
	if err != nil {
		return fmt.Errorf("database: upsert stage outcome: %w", err)
	}
	return nil
}

// ByBatch implements progress.Store.
func (r *ProgressRepo) ByBatch(batchID string) ([]models.StageOutcome, error) {
	return r.query(`SELECT ticket_id, batch_id, stage, status, message, error_detail, started_at, ended_at
		FROM stage_outcomes WHERE batch_id = $1 ORDER BY ticket_id, started_at`, batchID)
}

// ByTicket implements progress.Store.
func (r *ProgressRepo) ByTicket(ticketID string) ([]models.StageOutcome, error) {
	return r.query(`SELECT ticket_id, batch_id, stage, status, message, error_detail, started_at, ended_at
		FROM stage_outcomes WHERE ticket_id = $1 ORDER BY started_at`, ticketID)
}

func (r *ProgressRepo) query(sql string, arg string) ([]models.StageOutcome, error) {
	rows, err := r.client.Pool.Query(r.ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("database: query stage outcomes: %w", err)
	}
	defer rows.Close()

	var out []models.StageOutcome
	for rows.Next() {
		var o models.StageOutcome
		var stage, status string
		var end *time.Time
		if err := rows.Scan(&o.TicketID, &o.BatchID, &stage, &status, &o.Message, &o.ErrorDetail, &o.Start, &end); err != nil {
			return nil, fmt.Errorf("database: scan stage outcome: %w", err)
		}
		o.Stage = models.Stage(stage)
		o.Status = models.StageStatus(status)
		if end != nil {
			o.End = *end
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
