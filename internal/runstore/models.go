package runstore

import "time"

// Run statuses.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Step outcomes.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomeError     = "error"
)

// Run is one ledger row per pipeline execution.
type Run struct {
	ID         string
	Pipeline   string
	Object     string
	Status     string
	StartedAt  time.Time
	FinishedAt *time.Time
}

// StepRecord is one executed step within a run.
type StepRecord struct {
	ID        int64
	RunID     string
	Step      string
	Outcome   string
	Error     string
	Elapsed   time.Duration
	CreatedAt time.Time
}
