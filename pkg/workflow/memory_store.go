package workflow

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

const defaultMemoryRetainedRuns = 10000

// MemoryStore keeps runs in process memory. Finished runs beyond maxRetained are evicted
// oldest first.
type MemoryStore struct {
	mu          sync.RWMutex
	runs        map[string]*RunRecord
	events      map[string][]Event
	finished    []string
	maxRetained int
}

func NewMemoryStore(maxRetained int) *MemoryStore {
	if maxRetained <= 0 {
		maxRetained = defaultMemoryRetainedRuns
	}
	return &MemoryStore{
		runs:        map[string]*RunRecord{},
		events:      map[string][]Event{},
		maxRetained: maxRetained,
	}
}

func (s *MemoryStore) CreateRun(_ context.Context, rec RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := rec
	s.runs[rec.ID] = &cp
	return nil
}

func (s *MemoryStore) AppendEvent(_ context.Context, ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[ev.RunID]; !ok {
		return ErrRunNotFound
	}
	s.events[ev.RunID] = append(s.events[ev.RunID], ev)
	return nil
}

func (s *MemoryStore) FinishRun(_ context.Context, id string, status RunStatus, result json.RawMessage, errMsg string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.runs[id]
	if !ok {
		return ErrRunNotFound
	}
	rec.Status = status
	rec.Result = result
	rec.Error = errMsg
	rec.FinishedAt = at

	s.finished = append(s.finished, id)
	for len(s.finished) > s.maxRetained {
		evict := s.finished[0]
		s.finished = s.finished[1:]
		delete(s.runs, evict)
		delete(s.events, evict)
	}
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.runs[id]
	if !ok {
		return RunRecord{}, ErrRunNotFound
	}
	return *rec, nil
}

func (s *MemoryStore) ListEvents(_ context.Context, id string) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.runs[id]; !ok {
		return nil, ErrRunNotFound
	}
	return append([]Event(nil), s.events[id]...), nil
}
