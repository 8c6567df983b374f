// Package source supplies raw factor tables to the index engine. Concrete
// sources read from built-in sample data, JSON snapshots, Postgres or a
// remote HTTP provider; decorators add derivation, caching and fallback.
package source

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/MikeSquared-Agency/TariffIndex/internal/index"
)

// ErrUnknownFactor is returned when a source has no table for a factor.
var ErrUnknownFactor = errors.New("unknown factor")

// Source supplies one raw factor table at a time.
type Source interface {
	Name() string
	Fetch(ctx context.Context, factor index.Factor) (index.Table, error)
}

// Snapshot is a dated set of factor tables.
type Snapshot struct {
	CollectionDate string             `json:"collection_date"`
	Data           index.FactorTables `json:"data"`
}

// Sink persists a freshly collected snapshot.
type Sink interface {
	Record(ctx context.Context, snap Snapshot) error
}

// FetchAll fetches every factor from src. The first failure aborts.
func FetchAll(ctx context.Context, src Source, factors []index.Factor) (index.FactorTables, error) {
	out := make(index.FactorTables, len(factors))
	for _, f := range factors {
		if _, ok := out[f]; ok {
			continue
		}
		t, err := src.Fetch(ctx, f)
		if err != nil {
			return nil, fmt.Errorf("fetch %s from %s: %w", f, src.Name(), err)
		}
		out[f] = t
	}
	return out, nil
}

// Static serves tables held in memory. It is safe for concurrent use and
// hands out copies.
type Static struct {
	name string

	mu     sync.RWMutex
	tables index.FactorTables
	date   string
}

// NewStatic returns a Static source over a copy of tables.
func NewStatic(name string, tables index.FactorTables) *Static {
	s := &Static{name: name}
	s.Replace(Snapshot{Data: tables})
	return s
}

func (s *Static) Name() string { return s.name }

func (s *Static) Fetch(_ context.Context, factor index.Factor) (index.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[factor]
	if !ok {
		return nil, fmt.Errorf("%s: %w", factor, ErrUnknownFactor)
	}
	return t.Clone(), nil
}

// Factors lists the factors the source holds.
func (s *Static) Factors() []index.Factor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tables.Factors()
}

// Replace swaps in a new snapshot.
func (s *Static) Replace(snap Snapshot) {
	tables := make(index.FactorTables, len(snap.Data))
	for f, t := range snap.Data {
		tables[f] = t.Clone()
	}
	s.mu.Lock()
	s.tables = tables
	s.date = snap.CollectionDate
	s.mu.Unlock()
}

// Record implements Sink.
func (s *Static) Record(_ context.Context, snap Snapshot) error {
	s.Replace(snap)
	return nil
}

// CollectionDate returns the date of the current snapshot.
func (s *Static) CollectionDate() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.date
}
