// Package models holds the core data model shared by every pipeline and
// routing component: Ticket, Agent, Office, Analysis, PIIBinding,
// StageOutcome, Assignment, Batch, and Event.
package models

import "time"

// Segment classifies the customer tier a Ticket belongs to.
type Segment string

const (
	SegmentVIP      Segment = "vip"
	SegmentPriority Segment = "priority"
	SegmentMass     Segment = "mass"
)

// Gender is an optional demographic field; free-form beyond the known set
// is preserved as-is (not validated) since the core never branches on it.
type Gender string

// Attachment is a reference to an uploaded file accompanying a ticket.
// The core never inspects attachment contents.
type Attachment struct {
	Filename string
	URL      string
	SizeByte int64
}

// Address holds whatever postal fragments a ticket's upload row supplied.
// All fields are optional; the geocode stage builds its query from
// whichever are present, falling back through progressively coarser
// queries as fields are missing.
type Address struct {
	Country string
	Region  string
	City    string
	Street  string
	House   string
}

// Ticket is the immutable input to the pipeline. Fields populated by stage
// outcomes (Analysis, Assignment) live in their own types and are looked up
// by TicketID rather than embedded, so Ticket itself never needs mutation
// once ingested.
type Ticket struct {
	ID          string
	BatchID     string
	RowIndex    int // position within the batch's uploaded file; drives FIFO bonus and tie-breaks
	Description string

	Age       *int
	BirthDate *time.Time
	Gender    Gender
	Segment   Segment

	Address Address

	Attachments []Attachment

	// IDCountOfUser is the number of prior tickets raised by the same
	// customer identity, used by the priority scorer's repeat-contact term.
	IDCountOfUser int

	CreatedAt time.Time
}

// HasAddress reports whether address fragments were supplied at all.
// It does not imply the geocoder succeeded; that is recorded on Analysis.
func (t Ticket) HasAddress() bool {
	a := t.Address
	return a.Country != "" || a.Region != "" || a.City != "" || a.Street != "" || a.House != ""
}
