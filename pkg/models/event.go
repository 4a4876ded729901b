package models

import (
	"time"

	"github.com/orbitdesk/ticketrouter/pkg/dynamap"
)

// ZeroTicketID is substituted for TicketID on batch-level events that have
// no single owning ticket.
const ZeroTicketID = "00000000-0000-0000-0000-000000000000"

// Event is the publish/subscribe payload flowing through the event bus. It
// is never persisted by the bus itself; the subset that is a StageOutcome
// is what the progress store durably records.
type Event struct {
	TicketID  string
	BatchID   string
	Stage     Stage
	Status    string // stage events: completed/failed (no event is published when a stage starts); batch events: in_progress/completed/failed
	Field     string // optional sub-field tag, e.g. "is_spam"
	Data      dynamap.Map
	Message   string
	Timestamp time.Time
}

// JSON mirrors the wire shape sent to external consumers over the event
// stream endpoint.
type JSON struct {
	TicketID  string      `json:"ticket_id"`
	BatchID   string      `json:"batch_id"`
	Stage     string      `json:"stage"`
	Status    string      `json:"status"`
	Field     string      `json:"field,omitempty"`
	Data      dynamap.Map `json:"data,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// ToJSON converts an Event to its wire representation, substituting
// ZeroTicketID for batch-level events.
func (e Event) ToJSON() JSON {
	ticketID := e.TicketID
	if ticketID == "" {
		ticketID = ZeroTicketID
	}
	return JSON{
		TicketID:  ticketID,
		BatchID:   e.BatchID,
		Stage:     string(e.Stage),
		Status:    e.Status,
		Field:     e.Field,
		Data:      e.Data,
		Message:   e.Message,
		Timestamp: e.Timestamp.UTC().Format(time.RFC3339Nano),
	}
}
