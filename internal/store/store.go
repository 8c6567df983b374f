package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/TariffIndex/internal/index"
)

type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// Run records one composite computation and its outcome.
type Run struct {
	ID        uuid.UUID `json:"run_id"`
	Kind      string    `json:"kind"`
	Category  string    `json:"category,omitempty"`
	Variant   string    `json:"variant,omitempty"`
	HSCode    string    `json:"hs_code,omitempty"`
	Reference string    `json:"reference"`
	Trigger   string    `json:"trigger"`

	Status    RunStatus `json:"status"`
	Error     string    `json:"error,omitempty"`
	ErrorKind string    `json:"error_kind,omitempty"`

	Weights index.Weights `json:"weights,omitempty"`
	Index   index.Table   `json:"index,omitempty"`

	CollectionDate string    `json:"collection_date,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type RunFilter struct {
	Kind     string
	Category string
	Status   *RunStatus
	Limit    int
	Offset   int
}

func (f RunFilter) matches(r *Run) bool {
	if f.Kind != "" && r.Kind != f.Kind {
		return false
	}
	if f.Category != "" && r.Category != f.Category {
		return false
	}
	if f.Status != nil && r.Status != *f.Status {
		return false
	}
	return true
}

type RefreshStatus string

const (
	RefreshSuccess RefreshStatus = "success"
	RefreshError   RefreshStatus = "error"
)

// RefreshRecord is one entry of the refresh history.
type RefreshRecord struct {
	ID             uuid.UUID     `json:"id"`
	Trigger        string        `json:"trigger"`
	Status         RefreshStatus `json:"status"`
	Error          string        `json:"error,omitempty"`
	CollectionDate string        `json:"collection_date,omitempty"`
	Runs           int           `json:"runs"`
	StartedAt      time.Time     `json:"started_at"`
	FinishedAt     time.Time     `json:"finished_at"`
}

type Store interface {
	CreateRun(ctx context.Context, run *Run) error
	// GetRun returns nil, nil when no run has the given ID.
	GetRun(ctx context.Context, id uuid.UUID) (*Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]*Run, error)

	RecordRefresh(ctx context.Context, rec *RefreshRecord) error
	// ListRefreshes returns the newest records first.
	ListRefreshes(ctx context.Context, limit int) ([]*RefreshRecord, error)

	Close() error
}
