package database

import (
	"context"
	"fmt"

	"github.com/orbitdesk/ticketrouter/pkg/models"
)

// PIIRepo persists PIIBindings with Original already sealed by the caller
// (pkg/pii.Vault never hands this repo plaintext). It implements
// pii.BindingStore.
type PIIRepo struct {
	client *Client
	ctx    context.Context
}

// NewPIIRepo builds a PIIRepo bound to ctx for the lifetime of one batch
// run, since pii.BindingStore's methods don't take a context parameter.
func NewPIIRepo(client *Client, ctx context.Context) *PIIRepo {
	return &PIIRepo{client: client, ctx: ctx}
}

// SaveBindings implements pii.BindingStore.
func (r *PIIRepo) SaveBindings(ticketID string, bindings []models.PIIBinding) error {
	tx, err := r.client.Pool.Begin(r.ctx)
	if err != nil {
		return fmt.Errorf("database: begin pii insert: %w", err)
	}
	defer tx.Rollback(r.ctx)

	for _, b := range bindings {
		_, err := tx.Exec(r.ctx,
			`INSERT INTO pii_bindings (ticket_id, token, sealed, kind, ordinal) VALUES ($1,$2,$3,$4,$5)`,
			ticketID, b.Token, []byte(b.Original), string(b.Kind), b.Ordinal,
		)
		if err != nil {
			return fmt.Errorf("database: insert pii binding %s: %w", b.Token, err)
		}
	}
	return tx.Commit(r.ctx)
}

// LoadBindings implements pii.BindingStore. Original carries the sealed
// bytes as a string; the vault's Sealer opens it before substitution.
func (r *PIIRepo) LoadBindings(ticketID string) ([]models.PIIBinding, error) {
	rows, err := r.client.Pool.Query(r.ctx,
		`SELECT ticket_id, token, sealed, kind, ordinal FROM pii_bindings WHERE ticket_id = $1`, ticketID)
	if err != nil {
		return nil, fmt.Errorf("database: load pii bindings for %s: %w", ticketID, err)
	}
	defer rows.Close()

	var out []models.PIIBinding
	for rows.Next() {
		var b models.PIIBinding
		var sealed []byte
		var kind string
		if err := rows.Scan(&b.TicketID, &b.Token, &sealed, &kind, &b.Ordinal); err != nil {
			return nil, fmt.Errorf("database: scan pii binding: %w", err)
		}
		b.Kind = models.PIIKind(kind)
		b.Original = string(sealed)
		out = append(out, b)
	}
	return out, rows.Err()
}

// PurgeBindings implements pii.BindingStore.
func (r *PIIRepo) PurgeBindings(ticketID string) error {
	_, err := r.client.Pool.Exec(r.ctx, `DELETE FROM pii_bindings WHERE ticket_id = $1`, ticketID)
	if err != nil {
		return fmt.Errorf("database: purge pii bindings for %s: %w", ticketID, err)
	}
	return nil
}
