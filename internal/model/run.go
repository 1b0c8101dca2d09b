package model

import "time"

// RunOperation distinguishes ledger entries by pipeline phase.
type RunOperation string

const (
	OpResearch RunOperation = "research"
	OpUpdate   RunOperation = "update"
)

// RunStatus is the terminal outcome of one per-competitor operation.
type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// Run is one ledger row: a single research or update operation for one
// competitor within one invocation.
type Run struct {
	ID         string       `json:"id"`
	Competitor string       `json:"competitor"`
	Operation  RunOperation `json:"operation"`
	Status     RunStatus    `json:"status"`
	Error      string       `json:"error,omitempty"`
	Attempts   int          `json:"attempts"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
}
