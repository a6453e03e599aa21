package inmemory

import (
	"context"
	"fmt"
	"sync"

	"github.com/dvloznov/shopping-insight/internal/jobs"
)

// Store is an in-memory implementation of RunStore.
// It is safe for concurrent use. Data lives only as long as the process.
type Store struct {
	mu    sync.RWMutex
	runs  map[string]*jobs.IngestRun
	order []string
}

// NewStore creates a new in-memory run store.
func NewStore() *Store {
	return &Store{
		runs: make(map[string]*jobs.IngestRun),
	}
}

// SaveRun implements the RunStore interface.
func (s *Store) SaveRun(ctx context.Context, run *jobs.IngestRun) error {
	if run.RunID == "" {
		return fmt.Errorf("SaveRun: run ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[run.RunID]; !exists {
		s.order = append(s.order, run.RunID)
	}

	// Store a copy so later mutations by the caller are not shared.
	runCopy := *run
	s.runs[run.RunID] = &runCopy

	return nil
}

// GetRun implements the RunStore interface.
func (s *Store) GetRun(ctx context.Context, runID string) (*jobs.IngestRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, exists := s.runs[runID]
	if !exists {
		return nil, fmt.Errorf("GetRun: run not found: %s", runID)
	}

	runCopy := *run
	return &runCopy, nil
}

// ListRuns implements the RunStore interface.
func (s *Store) ListRuns(ctx context.Context, filter jobs.RunFilter) ([]*jobs.IngestRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*jobs.IngestRun, 0, len(s.order))
	for _, id := range s.order {
		run := s.runs[id]
		if filter.Kind != "" && run.Kind != filter.Kind {
			continue
		}
		if filter.Status != "" && run.Status != filter.Status {
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

// Ensure Store implements RunStore interface.
var _ jobs.RunStore = (*Store)(nil)
