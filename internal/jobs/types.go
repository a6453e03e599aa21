package jobs

import (
	"context"
	"time"
)

// RunKind identifies which ingestion routine a run executed.
type RunKind string

const (
	// RunKindCategory is a category tree fetch.
	RunKindCategory RunKind = "category"
	// RunKindKeywordRank is a keyword-rank fetch for one end date.
	RunKindKeywordRank RunKind = "keyword_rank"
)

// RunStatus represents the current status of a run.
type RunStatus string

const (
	// RunStatusRunning indicates the run has started and not yet finished.
	RunStatusRunning RunStatus = "running"
	// RunStatusCompleted indicates the batch was fetched and appended.
	RunStatusCompleted RunStatus = "completed"
	// RunStatusFailed indicates the run aborted; nothing was appended.
	RunStatusFailed RunStatus = "failed"
)

// IngestRun records one invocation of an ingestion routine.
type IngestRun struct {
	// RunID is the unique identifier for this run.
	RunID string `json:"run_id"`

	Kind RunKind `json:"kind"`
	CID  string  `json:"cid"`

	// EndDate and DateType are empty for category runs.
	EndDate  string `json:"end_date,omitempty"`
	DateType string `json:"date_type,omitempty"`

	Status RunStatus `json:"status"`

	// Records is the number of rows appended.
	Records int `json:"records"`

	// Stage names the failed stage (fetch, normalize, load) when Status is failed.
	Stage string `json:"stage,omitempty"`
	Error string `json:"error,omitempty"`

	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Duration reports how long a finished run took, or zero while it is running.
func (r *IngestRun) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// RunStore keeps the outcome of each run of a driver invocation.
type RunStore interface {
	// SaveRun saves or updates a run's state.
	SaveRun(ctx context.Context, run *IngestRun) error

	// GetRun retrieves a run by ID.
	GetRun(ctx context.Context, runID string) (*IngestRun, error)

	// ListRuns retrieves runs in the order they were first saved.
	ListRuns(ctx context.Context, filter RunFilter) ([]*IngestRun, error)
}

// RunFilter defines filtering criteria for listing runs.
type RunFilter struct {
	Kind   RunKind
	Status RunStatus

	// Limit limits the number of results.
	Limit int
}
