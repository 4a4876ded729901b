package database

import (
	"context"
	"fmt"

	"github.com/orbitdesk/ticketrouter/pkg/models"
)

// RosterRepo loads the office/agent roster routing runs against, and
// persists the agents' committed_load back after a batch finishes so the
// in-memory ledger used during a run starts from the durable count next
// time.
type RosterRepo struct {
	client *Client
}

// NewRosterRepo builds a RosterRepo over client.
func NewRosterRepo(client *Client) *RosterRepo {
	return &RosterRepo{client: client}
}

// Offices loads every office.
func (r *RosterRepo) Offices(ctx context.Context) ([]models.Office, error) {
	rows, err := r.client.Pool.Query(ctx, `SELECT id, name, address, latitude, longitude FROM offices`)
	if err != nil {
		return nil, fmt.Errorf("database: list offices: %w", err)
	}
	defer rows.Close()

	var out []models.Office
	for rows.Next() {
		var o models.Office
		if err := rows.Scan(&o.ID, &o.Name, &o.Address, &o.Latitude, &o.Longitude); err != nil {
			return nil, fmt.Errorf("database: scan office: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// Agents loads every agent, active and inactive alike; routing.NewEngine
// filters to active agents itself.
func (r *RosterRepo) Agents(ctx context.Context) ([]models.Agent, error) {
	rows, err := r.client.Pool.Query(ctx,
		`SELECT id, full_name, position, skills, skill_factor, home_office_id, committed_load, stress_score, active FROM agents`)
	if err != nil {
		return nil, fmt.Errorf("database: list agents: %w", err)
	}
	defer rows.Close()

	var out []models.Agent
	for rows.Next() {
		var a models.Agent
		var position string
		if err := rows.Scan(&a.ID, &a.FullName, &position, &a.Skills, &a.SkillFactor,
			&a.HomeOfficeID, &a.CommittedLoad, &a.StressScore, &a.Active); err != nil {
			return nil, fmt.Errorf("database: scan agent: %w", err)
		}
		a.Position = models.Position(position)
		out = append(out, a)
	}
	return out, rows.Err()
}

// PersistLoad writes the ledger's final per-agent load snapshot back to the
// roster table at the end of a batch run.
func (r *RosterRepo) PersistLoad(ctx context.Context, snapshot map[string]int) error {
	tx, err := r.client.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("database: begin load persist: %w", err)
	}
	defer tx.Rollback(ctx)

	for agentID, load := range snapshot {
		if _, err := tx.Exec(ctx, `UPDATE agents SET committed_load = $2 WHERE id = $1`, agentID, load); err != nil {
			return fmt.Errorf("database: persist load for agent %s: %w", agentID, err)
		}
	}
	return tx.Commit(ctx)
}
