package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/orbitdesk/ticketrouter/pkg/models"
)

// AssignmentRepo persists the routing engine's output.
type AssignmentRepo struct {
	client *Client
}

// NewAssignmentRepo builds an AssignmentRepo over client.
func NewAssignmentRepo(client *Client) *AssignmentRepo {
	return &AssignmentRepo{client: client}
}

// Insert records one assignment. A ticket is routed at most once, so this
// is a plain insert rather than an upsert.
func (r *AssignmentRepo) Insert(ctx context.Context, a models.Assignment) error {
	details, err := json.Marshal(a.RoutingDetails)
	if err != nil {
		return fmt.Errorf("database: marshal routing details for %s: %w", a.TicketID, err)
	}

	_, err = r.client.Pool.Exec(ctx,
		`INSERT INTO assignments (ticket_id, agent_id, office_id, explanation, routing_details) VALUES ($1,$2,$3,$4,$5)`,
		a.TicketID, a.AgentID, a.OfficeID, a.Explanation, details,
	)
	if err != nil {
		return fmt.Errorf("database: insert assignment for %s: %w", a.TicketID, err)
	}
	return nil
}

// ByBatch loads every assignment whose ticket belongs to batchID.
func (r *AssignmentRepo) ByBatch(ctx context.Context, batchID string) ([]models.Assignment, error) {
	rows, err := r.client.Pool.Query(ctx, `
		SELECT a.ticket_id, a.agent_id, a.office_id, a.explanation, a.routing_details, a.assigned_at
		FROM assignments a JOIN tickets t ON t.id = a.ticket_id
		WHERE t.batch_id = $1`, batchID)
	if err != nil {
		return nil, fmt.Errorf("database: list assignments for batch %s: %w", batchID, err)
	}
	defer rows.Close()

	var out []models.Assignment
	for rows.Next() {
		var a models.Assignment
		var details []byte
		if err := rows.Scan(&a.TicketID, &a.AgentID, &a.OfficeID, &a.Explanation, &details, &a.Timestamp); err != nil {
			return nil, fmt.Errorf("database: scan assignment: %w", err)
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &a.RoutingDetails); err != nil {
				return nil, fmt.Errorf("database: unmarshal routing details for %s: %w", a.TicketID, err)
			}
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
