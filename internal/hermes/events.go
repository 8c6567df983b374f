package hermes

import "time"

type IndexComputedEvent struct {
	RunID          string             `json:"run_id"`
	Kind           string             `json:"kind"`
	Category       string             `json:"category,omitempty"`
	Variant        string             `json:"variant,omitempty"`
	HSCode         string             `json:"hs_code,omitempty"`
	Reference      string             `json:"reference"`
	Index          map[string]float64 `json:"index"`
	CollectionDate string             `json:"collection_date,omitempty"`
	Timestamp      time.Time          `json:"timestamp"`
}

type IndexFailedEvent struct {
	RunID     string    `json:"run_id"`
	Kind      string    `json:"kind"`
	Category  string    `json:"category,omitempty"`
	Variant   string    `json:"variant,omitempty"`
	Error     string    `json:"error"`
	ErrorKind string    `json:"error_kind"`
	Timestamp time.Time `json:"timestamp"`
}

type RefreshEvent struct {
	RefreshID      string    `json:"refresh_id"`
	Trigger        string    `json:"trigger"`
	Status         string    `json:"status"`
	Error          string    `json:"error,omitempty"`
	CollectionDate string    `json:"collection_date,omitempty"`
	Runs           int       `json:"runs"`
	DurationMs     int64     `json:"duration_ms"`
	Timestamp      time.Time `json:"timestamp"`
}

// RefreshRequestEvent asks a running service to refresh now.
type RefreshRequestEvent struct {
	RequestedBy string `json:"requested_by,omitempty"`
}
