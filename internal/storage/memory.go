package storage

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	runs        map[string]Run
	order       []string
	iterations  map[string][]IterationRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.runs = make(map[string]Run)
	s.order = nil
	s.iterations = make(map[string][]IterationRecord)
	return nil
}

func (s *MemoryStore) CreateRun(_ context.Context, run Run) (Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return Run{}, ErrNotInitialized
	}
	run = newRun(run)
	if _, ok := s.runs[run.ID]; !ok {
		s.order = append(s.order, run.ID)
	}
	s.runs[run.ID] = run
	return run, nil
}

func (s *MemoryStore) AppendIteration(_ context.Context, runID string, rec IterationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	if _, ok := s.runs[runID]; !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	recs := s.iterations[runID]
	if i := slices.IndexFunc(recs, func(r IterationRecord) bool { return r.Iter == rec.Iter }); i >= 0 {
		recs[i] = rec
		return nil
	}
	s.iterations[runID] = append(recs, rec)
	return nil
}

func (s *MemoryStore) FinishRun(_ context.Context, runID string, result RunResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	run, ok := s.runs[runID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	s.runs[runID] = finish(run, result)
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (Run, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	return run, ok, nil
}

func (s *MemoryStore) ListRuns(_ context.Context) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Run, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.runs[id])
	}
	return out, nil
}

func (s *MemoryStore) GetIterations(_ context.Context, runID string) ([]IterationRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.runs[runID]; !ok {
		return nil, false, nil
	}
	recs := s.iterations[runID]
	out := make([]IterationRecord, len(recs))
	copy(out, recs)
	slices.SortFunc(out, func(a, b IterationRecord) int { return a.Iter - b.Iter })
	return out, true, nil
}
