package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/m-mizutani/goerr/v2"

	"github.com/mkurata/docship/pkg/domain/model"
)

// Memory is an in-process run store. It is the default for `serve` without
// a persistence backend and the store used by tests.
type Memory struct {
	mu   sync.RWMutex
	runs map[string]model.Run
}

// NewMemory creates an empty in-memory run store
func NewMemory() *Memory {
	return &Memory{runs: make(map[string]model.Run)}
}

// Save upserts the run record. The run is copied, so later mutation by the
// pipeline does not leak into stored state until the next Save.
func (m *Memory) Save(ctx context.Context, run *model.Run) error {
	if run.ID == "" {
		return goerr.New("run id must not be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *run
	stored.Steps = append([]model.StepResult(nil), run.Steps...)
	m.runs[run.ID] = stored
	return nil
}

// Get returns the run with the given id
func (m *Memory) Get(ctx context.Context, id string) (*model.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	run, ok := m.runs[id]
	if !ok {
		return nil, goerr.Wrap(model.ErrRunNotFound, "no such run", goerr.V("run_id", id))
	}
	return &run, nil
}

// List returns up to limit runs, most recently started first
func (m *Memory) List(ctx context.Context, limit int) ([]*model.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	runs := make([]*model.Run, 0, len(m.runs))
	for id := range m.runs {
		run := m.runs[id]
		runs = append(runs, &run)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}
