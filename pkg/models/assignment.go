package models

import (
	"time"

	"github.com/orbitdesk/ticketrouter/pkg/dynamap"
)

// Assignment is the output of the routing engine: exactly one per non-spam
// ticket once routing completes.
type Assignment struct {
	TicketID    string
	AgentID     string
	OfficeID    string
	Explanation string
	// RoutingDetails carries the relaxation list, distances, and load
	// before/after in structured form for the event stream / progress API.
	RoutingDetails dynamap.Map
	Timestamp      time.Time
}

// BatchStatus is the lifecycle state of a Batch.
type BatchStatus string

const (
	BatchStatusPending    BatchStatus = "pending"
	BatchStatusInProgress BatchStatus = "in_progress"
	BatchStatusCompleted  BatchStatus = "completed"
	BatchStatusFailed     BatchStatus = "failed"
	BatchStatusCancelled  BatchStatus = "cancelled"
)

// Batch is one uploaded file's worth of tickets, processed as a unit.
type Batch struct {
	ID       string
	Filename string

	TotalRows int
	Processed int
	Spam      int
	Enriched  int
	Routed    int
	Failed    int

	Status BatchStatus
}
