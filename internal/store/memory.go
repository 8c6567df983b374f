package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps runs and refresh records in process memory. Both
// histories are bounded; the oldest entries are dropped first.
type MemoryStore struct {
	mu        sync.RWMutex
	runs      []*Run
	byID      map[uuid.UUID]*Run
	refreshes []*RefreshRecord
	maxRuns   int
	maxHist   int
}

func NewMemoryStore(maxRuns, historyLimit int) *MemoryStore {
	if maxRuns <= 0 {
		maxRuns = 1000
	}
	if historyLimit <= 0 {
		historyLimit = 100
	}
	return &MemoryStore{
		byID:    make(map[uuid.UUID]*Run),
		maxRuns: maxRuns,
		maxHist: historyLimit,
	}
}

func (s *MemoryStore) CreateRun(_ context.Context, run *Run) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	cp := *run

	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, &cp)
	s.byID[cp.ID] = &cp
	if over := len(s.runs) - s.maxRuns; over > 0 {
		for _, old := range s.runs[:over] {
			delete(s.byID, old.ID)
		}
		s.runs = append([]*Run(nil), s.runs[over:]...)
	}
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id uuid.UUID) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

// ListRuns returns matching runs newest first.
func (s *MemoryStore) ListRuns(_ context.Context, filter RunFilter) ([]*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Run
	skipped := 0
	for i := len(s.runs) - 1; i >= 0; i-- {
		r := s.runs[i]
		if !filter.matches(r) {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		cp := *r
		out = append(out, &cp)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) RecordRefresh(_ context.Context, rec *RefreshRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	cp := *rec

	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshes = append(s.refreshes, &cp)
	if over := len(s.refreshes) - s.maxHist; over > 0 {
		s.refreshes = append([]*RefreshRecord(nil), s.refreshes[over:]...)
	}
	return nil
}

func (s *MemoryStore) ListRefreshes(_ context.Context, limit int) ([]*RefreshRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.refreshes)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]*RefreshRecord, 0, limit)
	for i := n - 1; i >= 0 && len(out) < limit; i-- {
		cp := *s.refreshes[i]
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
