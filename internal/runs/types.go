// Package runs tracks refresh runs and the phase each one is in.
package runs

import (
	"context"
	"errors"
	"time"
)

// Phase is the step a run is in.
type Phase string

const (
	// PhaseFetching indicates the run is reading from its source.
	PhaseFetching Phase = "fetching"
	// PhaseDeleting indicates existing destination records are being removed.
	PhaseDeleting Phase = "deleting"
	// PhaseInserting indicates new records are being written.
	PhaseInserting Phase = "inserting"
	// PhaseDone indicates the run completed successfully.
	PhaseDone Phase = "done"
	// PhaseFailed indicates the run stopped with an error.
	PhaseFailed Phase = "failed"
)

// Finished reports whether p is a terminal phase.
func (p Phase) Finished() bool {
	return p == PhaseDone || p == PhaseFailed
}

// ErrNotFound is returned when a run id is unknown.
var ErrNotFound = errors.New("run not found")

// Run is one execution of a refresh pipeline.
type Run struct {
	// ID is the unique identifier for this run.
	ID string `json:"id"`

	// Pipeline is "items" or "po".
	Pipeline string `json:"pipeline"`

	// Table is the destination table being replaced.
	Table string `json:"table"`

	// Phase is the current phase.
	Phase Phase `json:"phase"`

	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`

	// Error contains the failure message when Phase is failed.
	Error string `json:"error,omitempty"`

	// Summary is the pipeline's result once the run is done.
	Summary interface{} `json:"summary,omitempty"`
}

// Filter narrows a run listing.
type Filter struct {
	Pipeline string
	Phase    Phase
	// Limit caps the number of runs returned. Zero means no limit.
	Limit int
}

// Recorder stores run state as a refresh progresses.
type Recorder interface {
	// Start registers a new run in PhaseFetching.
	Start(ctx context.Context, pipeline, table string) (*Run, error)

	// SetPhase moves a run to phase.
	SetPhase(ctx context.Context, id string, phase Phase) error

	// Finish marks a run done, or failed when runErr is non-nil.
	Finish(ctx context.Context, id string, summary interface{}, runErr error) error
}

// Reader exposes stored runs.
type Reader interface {
	Get(ctx context.Context, id string) (*Run, error)
	List(ctx context.Context, filter Filter) ([]*Run, error)
}
