package database

import (
	"context"
	"fmt"

	"github.com/orbitdesk/ticketrouter/pkg/models"
)

// BatchRepo persists Batch rows.
type BatchRepo struct {
	client *Client
}

// NewBatchRepo builds a BatchRepo over client.
func NewBatchRepo(client *Client) *BatchRepo {
	return &BatchRepo{client: client}
}

// Create inserts a new batch row in BatchStatusPending.
func (r *BatchRepo) Create(ctx context.Context, b models.Batch) error {
	_, err := r.client.Pool.Exec(ctx,
		`INSERT INTO batches (id, filename, total_rows, status) VALUES ($1, $2, $3, $4)`,
		b.ID, b.Filename, b.TotalRows, string(b.Status),
	)
	if err != nil {
		return fmt.Errorf("database: create batch %s: %w", b.ID, err)
	}
	return nil
}

// UpdateCounters writes the batch's running processed/spam/enriched/routed/
// failed counters and status.
func (r *BatchRepo) UpdateCounters(ctx context.Context, b models.Batch) error {
	_, err := r.client.Pool.Exec(ctx,
		`UPDATE batches SET processed = $2, spam = $3, enriched = $4, routed = $5, failed = $6, status = $7 WHERE id = $1`,
		b.ID, b.Processed, b.Spam, b.Enriched, b.Routed, b.Failed, string(b.Status),
	)
	if err != nil {
		return fmt.Errorf("database: update batch %s: %w", b.ID, err)
	}
	return nil
}

// Get loads one batch by ID.
func (r *BatchRepo) Get(ctx context.Context, id string) (models.Batch, error) {
	var b models.Batch
	var status string
	err := r.client.Pool.QueryRow(ctx,
		`SELECT id, filename, total_rows, processed, spam, enriched, routed, failed, status FROM batches WHERE id = $1`,
		id,
	).Scan(&b.ID, &b.Filename, &b.TotalRows, &b.Processed, &b.Spam, &b.Enriched, &b.Routed, &b.Failed, &status)
	if err != nil {
		return models.Batch{}, fmt.Errorf("database: get batch %s: %w", id, err)
	}
	b.Status = models.BatchStatus(status)
	return b, nil
}
