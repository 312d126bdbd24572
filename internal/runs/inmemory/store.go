package inmemory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/inventory-refresher/internal/runs"
)

// DefaultRetention is the number of runs kept when NewStore is given zero.
const DefaultRetention = 50

// Store is an in-memory run store, safe for concurrent use.
// Only the most recent runs are kept and everything is lost on restart.
type Store struct {
	mu        sync.RWMutex
	runs      map[string]*runs.Run
	order     []string
	retention int
	now       func() time.Time
}

// NewStore creates a store keeping at most retention runs.
func NewStore(retention int) *Store {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Store{
		runs:      make(map[string]*runs.Run),
		retention: retention,
		now:       time.Now,
	}
}

// Start implements runs.Recorder.
func (s *Store) Start(ctx context.Context, pipeline, table string) (*runs.Run, error) {
	run := &runs.Run{
		ID:        uuid.New().String(),
		Pipeline:  pipeline,
		Table:     table,
		Phase:     runs.PhaseFetching,
		StartedAt: s.now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[run.ID] = run
	s.order = append(s.order, run.ID)
	s.evict()

	runCopy := *run
	return &runCopy, nil
}

// SetPhase implements runs.Recorder.
func (s *Store) SetPhase(ctx context.Context, id string, phase runs.Phase) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[id]
	if !ok {
		return fmt.Errorf("SetPhase: %s: %w", id, runs.ErrNotFound)
	}
	if run.Phase.Finished() {
		return fmt.Errorf("SetPhase: run %s already %s", id, run.Phase)
	}
	run.Phase = phase
	return nil
}

// Finish implements runs.Recorder.
func (s *Store) Finish(ctx context.Context, id string, summary interface{}, runErr error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[id]
	if !ok {
		return fmt.Errorf("Finish: %s: %w", id, runs.ErrNotFound)
	}

	completedAt := s.now()
	run.CompletedAt = &completedAt
	run.Summary = summary
	if runErr != nil {
		run.Phase = runs.PhaseFailed
		run.Error = runErr.Error()
	} else {
		run.Phase = runs.PhaseDone
		run.Error = ""
	}
	return nil
}

// Get implements runs.Reader.
func (s *Store) Get(ctx context.Context, id string) (*runs.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("Get: %s: %w", id, runs.ErrNotFound)
	}
	runCopy := *run
	return &runCopy, nil
}

// List implements runs.Reader. Runs are returned newest first.
func (s *Store) List(ctx context.Context, filter runs.Filter) ([]*runs.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []*runs.Run{}
	for i := len(s.order) - 1; i >= 0; i-- {
		run := s.runs[s.order[i]]
		if filter.Pipeline != "" && run.Pipeline != filter.Pipeline {
			continue
		}
		if filter.Phase != "" && run.Phase != filter.Phase {
			continue
		}
		runCopy := *run
		result = append(result, &runCopy)
		if filter.Limit > 0 && len(result) == filter.Limit {
			break
		}
	}
	return result, nil
}

// evict drops the oldest runs beyond the retention limit. Callers hold mu.
func (s *Store) evict() {
	for len(s.order) > s.retention {
		delete(s.runs, s.order[0])
		s.order = s.order[1:]
	}
}

// Ensure Store implements the runs interfaces.
var (
	_ runs.Recorder = (*Store)(nil)
	_ runs.Reader   = (*Store)(nil)
)
