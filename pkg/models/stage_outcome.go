package models

import "time"

// Stage identifies one node of the per-ticket pipeline graph.
type Stage string

const (
	StageSpamCheck    Stage = "spam_filter"
	StagePIIScrub     Stage = "pii_scrub"
	StageLLMAnalysis  Stage = "llm_analysis"
	StageGeocode      Stage = "geocode"
	StagePriority     Stage = "priority"
	StageRouting      Stage = "routing"
)

// StageStatus is the lifecycle state of a StageOutcome.
type StageStatus string

const (
	StatusPending    StageStatus = "pending"
	StatusInProgress StageStatus = "in-progress"
	StatusCompleted  StageStatus = "completed"
	StatusFailed     StageStatus = "failed"
	StatusSkipped    StageStatus = "skipped"
)

// Terminal reports whether a status never transitions further: a
// StageOutcome never moves away from completed or failed.
func (s StageStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// StageOutcome is the persisted record of one stage run for one ticket. The
// progress store upserts on (TicketID, Stage); the current row for a pair
// is always the latest write.
type StageOutcome struct {
	TicketID    string
	BatchID     string
	Stage       Stage
	Status      StageStatus
	Message     string
	ErrorDetail string
	Start       time.Time
	End         time.Time
}

// ElapsedMillis returns the stage duration, or 0 if the outcome has not
// completed (End is zero).
func (o StageOutcome) ElapsedMillis() int64 {
	if o.End.IsZero() || o.Start.IsZero() {
		return 0
	}
	return o.End.Sub(o.Start).Milliseconds()
}
