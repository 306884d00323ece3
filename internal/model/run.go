package model

import "time"

// RunKind distinguishes the two offline pipelines.
type RunKind string

const (
	RunKindSync   RunKind = "sync"
	RunKindDedupe RunKind = "dedupe"
)

// RunStatus is the lifecycle state of a recorded run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// RunSummary holds the counters surfaced at the end of a run.
type RunSummary struct {
	Scraped    int    `json:"scraped,omitempty"`
	Creates    int    `json:"creates,omitempty"`
	Updates    int    `json:"updates,omitempty"`
	Deletions  int    `json:"deletions,omitempty"`
	Skipped    int    `json:"skipped,omitempty"`
	Failed     int    `json:"failed,omitempty"`
	BulkJobID  string `json:"bulk_job_id,omitempty"`
	Duplicates int    `json:"duplicates,omitempty"`
}

// Run is one recorded execution of a pipeline command.
type Run struct {
	ID          string      `json:"id"`
	Kind        RunKind     `json:"kind"`
	Status      RunStatus   `json:"status"`
	Summary     *RunSummary `json:"summary,omitempty"`
	StartedAt   time.Time   `json:"started_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
}
