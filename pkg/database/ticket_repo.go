package database

import (
	"context"
	"fmt"

	"github.com/orbitdesk/ticketrouter/pkg/models"
)

// TicketRepo persists Ticket rows, scoped to a batch.
type TicketRepo struct {
	client *Client
}

// NewTicketRepo builds a TicketRepo over client.
func NewTicketRepo(client *Client) *TicketRepo {
	return &TicketRepo{client: client}
}

// InsertBatch inserts every ticket of one uploaded file in a single
// transaction, so a partial write never leaves a batch half-ingested.
func (r *TicketRepo) InsertBatch(ctx context.Context, tickets []models.Ticket) error {
	tx, err := r.client.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("database: begin ticket insert: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, t := range tickets {
		_, err := tx.Exec(ctx, `
			INSERT INTO tickets (
				id, batch_id, row_index, description, age, birth_date, gender, segment,
				address_country, address_region, address_city, address_street, address_house,
				id_count_of_user
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
			t.ID, t.BatchID, t.RowIndex, t.Description, t.Age, t.BirthDate, string(t.Gender), string(t.Segment),
			t.Address.Country, t.Address.Region, t.Address.City, t.Address.Street, t.Address.House,
			t.IDCountOfUser,
		)
		if err != nil {
			return fmt.Errorf("database: insert ticket %s: %w", t.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("database: commit ticket insert: %w", err)
	}
	return nil
}

// ByBatch loads every ticket belonging to batchID, ordered by its original
// row position.
func (r *TicketRepo) ByBatch(ctx context.Context, batchID string) ([]models.Ticket, error) {
	rows, err := r.client.Pool.Query(ctx, `
		SELECT id, batch_id, row_index, description, age, birth_date, gender, segment,
		       address_country, address_region, address_city, address_street, address_house,
		       id_count_of_user
		FROM tickets WHERE batch_id = $1 ORDER BY row_index`, batchID)
	if err != nil {
		return nil, fmt.Errorf("database: list tickets for batch %s: %w", batchID, err)
	}
	defer rows.Close()

	var out []models.Ticket
	for rows.Next() {
		var t models.Ticket
		var gender, segment string
		if err := rows.Scan(
			&t.ID, &t.BatchID, &t.RowIndex, &t.Description, &t.Age, &t.BirthDate, &gender, &segment,
			&t.Address.Country, &t.Address.Region, &t.Address.City, &t.Address.Street, &t.Address.House,
			&t.IDCountOfUser,
		); err != nil {
			return nil, fmt.Errorf("database: scan ticket row: %w", err)
		}
		t.Gender = models.Gender(gender)
		t.Segment = models.Segment(segment)
		out = append(out, t)
	}
	return out, rows.Err()
}
